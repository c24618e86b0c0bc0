package summarizer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/V4T54L/kyb-watch/internal/domain"
)

const maxErrorBody = 4 << 10

var errEmptyResult = errors.New("summarization service returned no result")

// HTTPClient calls the external summarization service.
type HTTPClient struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

// NewHTTPClient creates a client for the service at baseURL.
func NewHTTPClient(baseURL string, timeout time.Duration, logger *slog.Logger) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		logger:  logger.With("component", "summarizer_client"),
	}
}

type summarizeRequest struct {
	URL string `json:"url"`
}

type summarizeResult struct {
	domain.EntitySummary
	EntityName string `json:"entity_name"`
}

type summarizeResponse struct {
	Result *summarizeResult `json:"result"`
	Detail string           `json:"detail"`
}

// Summarize asks the service to describe the business at url.
func (c *HTTPClient) Summarize(ctx context.Context, url string) (domain.EntitySummary, error) {
	body, err := json.Marshal(summarizeRequest{URL: url})
	if err != nil {
		return domain.EntitySummary{}, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/new_entity", bytes.NewReader(body))
	if err != nil {
		return domain.EntitySummary{}, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return domain.EntitySummary{}, fmt.Errorf("summarize request failed: %w", err)
	}
	defer resp.Body.Close()
	c.logger.Debug("summarization service responded", "status", resp.StatusCode, "duration", time.Since(start))

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		var payload summarizeResponse
		if json.Unmarshal(raw, &payload) == nil && payload.Detail != "" {
			return domain.EntitySummary{}, fmt.Errorf("summarization service returned %d: %s", resp.StatusCode, payload.Detail)
		}
		return domain.EntitySummary{}, fmt.Errorf("summarization service returned %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var payload summarizeResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return domain.EntitySummary{}, fmt.Errorf("failed to decode response: %w", err)
	}
	if payload.Result == nil {
		return domain.EntitySummary{}, errEmptyResult
	}

	summary := payload.Result.EntitySummary
	if summary.Name == "" {
		summary.Name = payload.Result.EntityName
	}
	return summary, nil
}
