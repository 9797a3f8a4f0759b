package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/usagesentry/usagesentry/internal/config"
	"github.com/usagesentry/usagesentry/internal/domain/usage"
	"github.com/usagesentry/usagesentry/internal/pkg/errors"
	"github.com/usagesentry/usagesentry/internal/pkg/logger"
)

const (
	defaultPageSize = 500
	maxRetries      = 3
)

// Client talks to the upstream usage provider's admin API
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *logger.Logger
}

// NewClient creates a new provider API client
func NewClient(cfg config.ProviderConfig, log *logger.Logger) *Client {
	return &Client{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		logger: log,
	}
}

type memberResponse struct {
	Data []struct {
		ID        string    `json:"id"`
		Email     string    `json:"email"`
		Name      string    `json:"name"`
		CreatedAt time.Time `json:"created_at"`
	} `json:"data"`
	HasMore    bool   `json:"has_more"`
	NextCursor string `json:"next_cursor"`
}

type eventResponse struct {
	Data []struct {
		ID           string    `json:"id"`
		MemberID     string    `json:"member_id"`
		Model        string    `json:"model"`
		Requests     int64     `json:"requests"`
		InputTokens  int64     `json:"input_tokens"`
		OutputTokens int64     `json:"output_tokens"`
		SpendCents   int64     `json:"spend_cents"`
		OccurredAt   time.Time `json:"occurred_at"`
	} `json:"data"`
	HasMore    bool   `json:"has_more"`
	NextCursor string `json:"next_cursor"`
}

// ListMembers fetches all team members, following pagination cursors
func (c *Client) ListMembers(ctx context.Context) ([]usage.Member, error) {
	var members []usage.Member
	cursor := ""

	for {
		params := url.Values{}
		params.Set("limit", strconv.Itoa(defaultPageSize))
		if cursor != "" {
			params.Set("cursor", cursor)
		}

		var page memberResponse
		if err := c.get(ctx, "/v1/members", params, &page); err != nil {
			return nil, err
		}

		for _, m := range page.Data {
			members = append(members, usage.Member{
				ID:        m.ID,
				Email:     m.Email,
				Name:      m.Name,
				CreatedAt: m.CreatedAt,
			})
		}

		if !page.HasMore {
			return members, nil
		}
		cursor = page.NextCursor
	}
}

// UsageEvents fetches usage events newer than since, following pagination
// cursors. A nil since fetches everything the provider retains.
func (c *Client) UsageEvents(ctx context.Context, since *time.Time) ([]usage.Event, error) {
	var events []usage.Event
	cursor := ""

	for {
		params := url.Values{}
		params.Set("limit", strconv.Itoa(defaultPageSize))
		if since != nil {
			params.Set("after", since.UTC().Format(time.RFC3339))
		}
		if cursor != "" {
			params.Set("cursor", cursor)
		}

		var page eventResponse
		if err := c.get(ctx, "/v1/usage_events", params, &page); err != nil {
			return nil, err
		}

		for _, e := range page.Data {
			events = append(events, usage.Event{
				ID:           e.ID,
				MemberID:     e.MemberID,
				Model:        e.Model,
				Requests:     e.Requests,
				InputTokens:  e.InputTokens,
				OutputTokens: e.OutputTokens,
				SpendCents:   e.SpendCents,
				OccurredAt:   e.OccurredAt,
			})
		}

		if !page.HasMore {
			return events, nil
		}
		cursor = page.NextCursor
	}
}

// get performs an authenticated GET with retry on rate limiting
func (c *Client) get(ctx context.Context, path string, params url.Values, out interface{}) error {
	endpoint := c.baseURL + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	for attempt := 0; attempt <= maxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return errors.ProviderAPIError("failed to build provider request", err)
		}
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return errors.ProviderAPIError("provider request failed", err)
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			resp.Body.Close()
			wait := retryAfter(resp, attempt)
			c.logger.WithFields(map[string]interface{}{
				"path":    path,
				"attempt": attempt + 1,
				"wait":    wait.String(),
			}).Warn("Provider rate limited, backing off")

			select {
			case <-time.After(wait):
				continue
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return errors.ProviderAPIError(
				fmt.Sprintf("provider returned status %d for %s", resp.StatusCode, path), nil)
		}

		err = json.NewDecoder(resp.Body).Decode(out)
		resp.Body.Close()
		if err != nil {
			return errors.ProviderAPIError("failed to decode provider response", err)
		}
		return nil
	}

	return errors.RateLimited("provider rate limit retries exhausted")
}

func retryAfter(resp *http.Response, attempt int) time.Duration {
	if h := resp.Header.Get("Retry-After"); h != "" {
		if secs, err := strconv.Atoi(h); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return time.Duration(1<<attempt) * time.Second
}
