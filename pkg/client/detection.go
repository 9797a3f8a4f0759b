package client

import (
	"context"
	"net/http"
)

// DetectionService accesses detection endpoints
type DetectionService struct {
	client *Client
}

// Run triggers a detection run
func (s *DetectionService) Run(ctx context.Context) (*RunResult, error) {
	var resp struct {
		Success bool      `json:"success"`
		Data    RunResult `json:"data"`
	}
	if err := s.client.doRequest(ctx, http.MethodPost, "/api/v1/detection/run", nil, &resp); err != nil {
		return nil, err
	}
	return &resp.Data, nil
}

// GetConfig retrieves the detection config
func (s *DetectionService) GetConfig(ctx context.Context) (*DetectionConfig, error) {
	var resp struct {
		Success bool            `json:"success"`
		Data    DetectionConfig `json:"data"`
	}
	if err := s.client.doRequest(ctx, http.MethodGet, "/api/v1/detection/config", nil, &resp); err != nil {
		return nil, err
	}
	return &resp.Data, nil
}

// UpdateConfig replaces the detection config
func (s *DetectionService) UpdateConfig(ctx context.Context, cfg *DetectionConfig) error {
	return s.client.doRequest(ctx, http.MethodPut, "/api/v1/detection/config", cfg, nil)
}
