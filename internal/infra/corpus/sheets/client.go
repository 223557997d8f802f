// Package sheets loads the Q/A corpus from the Google Sheets values API.
package sheets

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/yanqian/sales-assistant/internal/domain/index"
	"github.com/yanqian/sales-assistant/internal/infra/corpus"
)

const defaultBaseURL = "https://sheets.googleapis.com"

// Options tune the client beyond the required identifiers.
type Options struct {
	BaseURL     string
	MaxAttempts int
	BaseBackoff time.Duration
}

// Client fetches spreadsheet values over the REST API using an API key.
type Client struct {
	baseURL       string
	spreadsheetID string
	readRange     string
	apiKey        string
	maxAttempts   int
	baseBackoff   time.Duration
	httpClient    *http.Client
	logger        *slog.Logger
}

// NewClient builds a corpus loader for one spreadsheet range.
func NewClient(spreadsheetID, readRange, apiKey string, opts Options, logger *slog.Logger) *Client {
	base := strings.TrimSpace(opts.BaseURL)
	if base == "" {
		base = defaultBaseURL
	}
	attempts := opts.MaxAttempts
	if attempts <= 0 {
		attempts = 3
	}
	backoff := opts.BaseBackoff
	if backoff <= 0 {
		backoff = time.Second
	}
	return &Client{
		baseURL:       strings.TrimRight(base, "/"),
		spreadsheetID: spreadsheetID,
		readRange:     readRange,
		apiKey:        apiKey,
		maxAttempts:   attempts,
		baseBackoff:   backoff,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		logger: logger.With("component", "corpus.sheets"),
	}
}

type valuesResponse struct {
	Range          string     `json:"range"`
	MajorDimension string     `json:"majorDimension"`
	Values         [][]string `json:"values"`
}

// Load fetches the configured range and returns the ordered pair set.
// Transport failures and 5xx/429 responses are retried with exponential
// backoff before the attempt is reported as terminal.
func (c *Client) Load(ctx context.Context) ([]index.QAPair, error) {
	endpoint := fmt.Sprintf("%s/v4/spreadsheets/%s/values/%s?key=%s",
		c.baseURL,
		url.PathEscape(c.spreadsheetID),
		url.PathEscape(c.readRange),
		url.QueryEscape(c.apiKey),
	)

	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if attempt > 1 {
			delay := c.baseBackoff * time.Duration(1<<(attempt-2))
			c.logger.Warn("corpus fetch retrying", "attempt", attempt, "delay", delay.String(), "error", lastErr)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		rows, retryable, err := c.fetch(ctx, endpoint)
		if err == nil {
			pairs, parseErr := corpus.ParseTable(rows)
			if parseErr != nil {
				return nil, parseErr
			}
			c.logger.Info("corpus loaded", "pairs", len(pairs))
			return pairs, nil
		}
		lastErr = err
		if !retryable {
			return nil, err
		}
	}
	return nil, fmt.Errorf("corpus fetch failed after %d attempts: %w", c.maxAttempts, lastErr)
}

func (c *Client) fetch(ctx context.Context, endpoint string) (rows [][]string, retryable bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, false, fmt.Errorf("build sheets request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, true, fmt.Errorf("sheets request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		retryable := resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests
		return nil, retryable, fmt.Errorf("sheets request error: status=%d body=%s", resp.StatusCode, string(payload))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, true, fmt.Errorf("read sheets response: %w", err)
	}

	var raw valuesResponse
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, false, fmt.Errorf("decode sheets response: %w", err)
	}
	return raw.Values, false, nil
}
