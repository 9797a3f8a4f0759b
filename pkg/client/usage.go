package client

import (
	"context"
	"fmt"
	"net/http"
)

// UsageService accesses usage endpoints
type UsageService struct {
	client *Client
}

// Summary retrieves per-member usage totals over the last days
func (s *UsageService) Summary(ctx context.Context, days int) (*UsageSummary, error) {
	path := "/api/v1/usage/summary"
	if days > 0 {
		path = fmt.Sprintf("%s?days=%d", path, days)
	}

	var resp struct {
		Success bool         `json:"success"`
		Data    UsageSummary `json:"data"`
	}
	if err := s.client.doRequest(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return &resp.Data, nil
}

// Sync triggers an upstream provider sync
func (s *UsageService) Sync(ctx context.Context) error {
	return s.client.doRequest(ctx, http.MethodPost, "/api/v1/usage/sync", nil, nil)
}
