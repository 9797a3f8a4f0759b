package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

// AnomalyService accesses anomaly endpoints
type AnomalyService struct {
	client *Client
}

// AnomalyListOptions filters anomaly listings
type AnomalyListOptions struct {
	SubjectID string
	Type      string
	Metric    string
	Severity  string
	Open      *bool
	Page      int
	PageSize  int
}

// List retrieves anomalies matching the options
func (s *AnomalyService) List(ctx context.Context, opts *AnomalyListOptions) ([]Anomaly, error) {
	params := url.Values{}
	if opts != nil {
		if opts.SubjectID != "" {
			params.Set("subject_id", opts.SubjectID)
		}
		if opts.Type != "" {
			params.Set("type", opts.Type)
		}
		if opts.Metric != "" {
			params.Set("metric", opts.Metric)
		}
		if opts.Severity != "" {
			params.Set("severity", opts.Severity)
		}
		if opts.Open != nil {
			params.Set("open", strconv.FormatBool(*opts.Open))
		}
		if opts.Page > 0 {
			params.Set("page", strconv.Itoa(opts.Page))
		}
		if opts.PageSize > 0 {
			params.Set("page_size", strconv.Itoa(opts.PageSize))
		}
	}

	path := "/api/v1/anomalies"
	if len(params) > 0 {
		path += "?" + params.Encode()
	}

	var page anomalyPage
	if err := s.client.doRequest(ctx, http.MethodGet, path, nil, &page); err != nil {
		return nil, err
	}
	return page.Data, nil
}

// Get retrieves a single anomaly
func (s *AnomalyService) Get(ctx context.Context, id int64) (*Anomaly, error) {
	var resp struct {
		Success bool    `json:"success"`
		Data    Anomaly `json:"data"`
	}
	path := fmt.Sprintf("/api/v1/anomalies/%d", id)
	if err := s.client.doRequest(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return &resp.Data, nil
}

// Summary retrieves open anomaly counts by severity
func (s *AnomalyService) Summary(ctx context.Context) (map[string]int, error) {
	var resp struct {
		Success bool `json:"success"`
		Data    struct {
			OpenBySeverity map[string]int `json:"open_by_severity"`
		} `json:"data"`
	}
	if err := s.client.doRequest(ctx, http.MethodGet, "/api/v1/anomalies/summary", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Data.OpenBySeverity, nil
}
