package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

// IncidentService accesses incident endpoints
type IncidentService struct {
	client *Client
}

// IncidentListOptions filters incident listings
type IncidentListOptions struct {
	SubjectID string
	Status    string
	Page      int
	PageSize  int
}

// List retrieves incidents matching the options
func (s *IncidentService) List(ctx context.Context, opts *IncidentListOptions) ([]Incident, error) {
	params := url.Values{}
	if opts != nil {
		if opts.SubjectID != "" {
			params.Set("subject_id", opts.SubjectID)
		}
		if opts.Status != "" {
			params.Set("status", opts.Status)
		}
		if opts.Page > 0 {
			params.Set("page", strconv.Itoa(opts.Page))
		}
		if opts.PageSize > 0 {
			params.Set("page_size", strconv.Itoa(opts.PageSize))
		}
	}

	path := "/api/v1/incidents"
	if len(params) > 0 {
		path += "?" + params.Encode()
	}

	var page incidentPage
	if err := s.client.doRequest(ctx, http.MethodGet, path, nil, &page); err != nil {
		return nil, err
	}
	return page.Data, nil
}

// Get retrieves a single incident
func (s *IncidentService) Get(ctx context.Context, id int64) (*Incident, error) {
	var resp struct {
		Success bool     `json:"success"`
		Data    Incident `json:"data"`
	}
	path := fmt.Sprintf("/api/v1/incidents/%d", id)
	if err := s.client.doRequest(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return &resp.Data, nil
}

// Summary retrieves incident counts by status
func (s *IncidentService) Summary(ctx context.Context) (map[string]int, error) {
	var resp struct {
		Success bool `json:"success"`
		Data    struct {
			ByStatus map[string]int `json:"by_status"`
		} `json:"data"`
	}
	if err := s.client.doRequest(ctx, http.MethodGet, "/api/v1/incidents/summary", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Data.ByStatus, nil
}

// Acknowledge records operator acknowledgement of an incident
func (s *IncidentService) Acknowledge(ctx context.Context, id int64) error {
	path := fmt.Sprintf("/api/v1/incidents/%d/ack", id)
	return s.client.doRequest(ctx, http.MethodPost, path, nil, nil)
}

// Resolve closes an incident
func (s *IncidentService) Resolve(ctx context.Context, id int64) error {
	path := fmt.Sprintf("/api/v1/incidents/%d/resolve", id)
	return s.client.doRequest(ctx, http.MethodPost, path, nil, nil)
}
