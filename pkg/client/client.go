// Package client provides a Go client for the UsageSentry HTTP API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client is the UsageSentry API client
type Client struct {
	baseURL    string
	httpClient *http.Client
	token      string
}

// Config holds the client configuration
type Config struct {
	BaseURL    string        // API base URL (e.g., "http://localhost:8080")
	Token      string        // Optional API token
	Timeout    time.Duration // HTTP client timeout (default: 30s)
	HTTPClient *http.Client  // Optional custom HTTP client
}

// NewClient creates a new UsageSentry API client
func NewClient(cfg Config) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: cfg.Timeout,
		}
	}

	return &Client{
		baseURL:    cfg.BaseURL,
		httpClient: httpClient,
		token:      cfg.Token,
	}
}

// SetToken sets the API token for authenticated requests
func (c *Client) SetToken(token string) {
	c.token = token
}

// doRequest performs an HTTP request with proper error handling
func (c *Client) doRequest(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewBuffer(jsonData)
	}

	url := c.baseURL + path
	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var apiErr APIError
		if err := json.Unmarshal(respBody, &apiErr); err != nil {
			return fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(respBody))
		}
		apiErr.StatusCode = resp.StatusCode
		return &apiErr
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("failed to parse response: %w", err)
		}
	}

	return nil
}

// Anomalies returns the anomaly service
func (c *Client) Anomalies() *AnomalyService {
	return &AnomalyService{client: c}
}

// Incidents returns the incident service
func (c *Client) Incidents() *IncidentService {
	return &IncidentService{client: c}
}

// Detection returns the detection service
func (c *Client) Detection() *DetectionService {
	return &DetectionService{client: c}
}

// Usage returns the usage service
func (c *Client) Usage() *UsageService {
	return &UsageService{client: c}
}

// Health checks whether the server is ready
func (c *Client) Health(ctx context.Context) error {
	return c.doRequest(ctx, http.MethodGet, "/readyz", nil, nil)
}
