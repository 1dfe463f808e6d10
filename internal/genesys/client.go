// Package genesys is a typed client for the upstream Genesys Cloud analytics
// API. Payloads are decoded into explicit structs at this boundary so schema
// drift never reaches the aggregation code.
package genesys

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// APIError is returned for any non-2xx upstream response. Failures are
// surfaced to the caller as values; nothing is retried here.
type APIError struct {
	Status  int
	Message string
	Details string
}

func (e *APIError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("genesys api error %d: %s (%s)", e.Status, e.Message, e.Details)
	}
	return fmt.Sprintf("genesys api error %d: %s", e.Status, e.Message)
}

// ErrQueueNotFound reports that a queue lookup matched no queue.
type ErrQueueNotFound struct {
	Name string
}

func (e *ErrQueueNotFound) Error() string {
	return fmt.Sprintf("queue %q not found", e.Name)
}

const detailsPageSize = 100

// Client queries the Genesys Cloud analytics API.
type Client struct {
	tokens     *TokenSource
	baseURL    string // overridable for tests
	httpClient *http.Client
	logger     zerolog.Logger
}

// NewClient creates a client bound to the token source's region.
func NewClient(tokens *TokenSource, logger zerolog.Logger) *Client {
	return &Client{
		tokens:     tokens,
		baseURL:    fmt.Sprintf("https://api.%s", tokens.Region()),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger.With().Str("component", "genesys_client").Logger(),
	}
}

// WithBaseURL overrides the API base URL. Intended for tests.
func (c *Client) WithBaseURL(base string) *Client {
	c.baseURL = strings.TrimSuffix(base, "/")
	return c
}

// QueueIDByName resolves a routing queue name to its ID. Matching is
// case-insensitive on the exact name.
func (c *Client) QueueIDByName(ctx context.Context, name string) (string, error) {
	path := "/api/v2/routing/queues?name=" + url.QueryEscape(strings.TrimSpace(name))

	var resp queuesResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return "", err
	}

	for _, q := range resp.Entities {
		if strings.EqualFold(q.Name, name) {
			return q.ID, nil
		}
	}
	return "", &ErrQueueNotFound{Name: name}
}

// detailsQuery is the request body for the conversation details query.
type detailsQuery struct {
	Interval       string          `json:"interval"`
	Paging         paging          `json:"paging"`
	SegmentFilters []segmentFilter `json:"segmentFilters"`
}

type paging struct {
	PageSize   int `json:"pageSize"`
	PageNumber int `json:"pageNumber"`
}

type segmentFilter struct {
	Type       string      `json:"type"`
	Predicates []predicate `json:"predicates"`
}

type predicate struct {
	Type      string `json:"type"`
	Dimension string `json:"dimension"`
	Operator  string `json:"operator"`
	Value     string `json:"value"`
}

// Conversations runs the details query for one interval filtered to a queue
// and returns the conversations array. A single page of 100 is fetched, as
// the shift volumes this dashboard serves fit one page.
func (c *Client) Conversations(ctx context.Context, queueID, interval string) ([]Conversation, error) {
	query := detailsQuery{
		Interval: interval,
		Paging:   paging{PageSize: detailsPageSize, PageNumber: 1},
		SegmentFilters: []segmentFilter{{
			Type: "and",
			Predicates: []predicate{{
				Type: "dimension", Dimension: "queueId", Operator: "matches", Value: queueID,
			}},
		}},
	}

	var resp conversationsResponse
	if err := c.do(ctx, http.MethodPost, "/api/v2/analytics/conversations/details/query", query, &resp); err != nil {
		return nil, err
	}
	return resp.Conversations, nil
}

// aggregateQuery is the request body for the aggregates query.
type aggregateQuery struct {
	Interval    string   `json:"interval"`
	Granularity string   `json:"granularity"`
	Metrics     []string `json:"metrics"`
	GroupBy     []string `json:"groupBy"`
}

// Aggregates runs the hourly aggregate query used by the staffing forecast:
// answered counts and handle-time sums grouped by queue.
func (c *Client) Aggregates(ctx context.Context, interval string) ([]AggregateResult, error) {
	query := aggregateQuery{
		Interval:    interval,
		Granularity: "PT1H",
		Metrics:     []string{"nAnswered", "tHandle"},
		GroupBy:     []string{"queueId"},
	}

	var resp aggregatesResponse
	if err := c.do(ctx, http.MethodPost, "/api/v2/analytics/conversations/aggregates/query", query, &resp); err != nil {
		return nil, err
	}
	return resp.Results, nil
}

// do issues one authenticated request and decodes the response into out.
func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return err
	}

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request to %s failed: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var upstream struct {
			Message string `json:"message"`
		}
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 8192))
		_ = json.Unmarshal(raw, &upstream)

		c.logger.Error().
			Int("status", resp.StatusCode).
			Str("path", path).
			Str("message", upstream.Message).
			Msg("upstream query failed")

		msg := upstream.Message
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return &APIError{Status: resp.StatusCode, Message: msg}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response from %s: %w", path, err)
		}
	}
	return nil
}
