// Package cohere calls the Cohere v2 rerank endpoint.
package cohere

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/evidence-assistant/internal/core/domain"
	"github.com/kirillkom/evidence-assistant/internal/core/ports"
	"github.com/kirillkom/evidence-assistant/internal/infrastructure/resilience"
)

const (
	DefaultBaseURL = "https://api.cohere.com"
	DefaultModel   = "rerank-v3.5"
)

type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

type Client struct {
	cfg        Config
	httpClient *http.Client
	executor   *resilience.Executor
}

func New(cfg Config, executor *resilience.Executor) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if executor == nil {
		executor = resilience.NewExecutor(resilience.Config{RetryMaxAttempts: 1})
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		executor:   executor,
	}
}

func (c *Client) Configured() bool {
	return strings.TrimSpace(c.cfg.APIKey) != ""
}

type rerankRequest struct {
	Model     string   `json:"model"`
	Query     string   `json:"query"`
	Documents []string `json:"documents"`
	TopN      int      `json:"top_n"`
}

type rerankResponse struct {
	Results []struct {
		Index          int     `json:"index"`
		RelevanceScore float64 `json:"relevance_score"`
	} `json:"results"`
}

// Rerank fails with a configuration error when no key is set; it never
// falls back to the input order.
func (c *Client) Rerank(ctx context.Context, query string, documents []string, topN int) ([]ports.RerankHit, error) {
	if !c.Configured() {
		return nil, domain.NewError(domain.ErrConfiguration, "cohere rerank", "COHERE_API_KEY is not set")
	}
	if len(documents) == 0 {
		return []ports.RerankHit{}, nil
	}
	if topN <= 0 || topN > len(documents) {
		topN = len(documents)
	}

	payload := rerankRequest{Model: c.cfg.Model, Query: query, Documents: documents, TopN: topN}
	var resp rerankResponse
	err := c.executor.Execute(ctx, "cohere_rerank", func(callCtx context.Context) error {
		return wrapTemporaryIfNeeded("cohere rerank", c.postJSON(callCtx, "/v2/rerank", payload, &resp))
	}, classifyCohereError)
	if err != nil {
		return nil, err
	}

	hits := make([]ports.RerankHit, 0, len(resp.Results))
	for _, r := range resp.Results {
		hits = append(hits, ports.RerankHit{Index: r.Index, Score: r.RelevanceScore})
	}
	return hits, nil
}

func (c *Client) postJSON(ctx context.Context, path string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal rerank request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create rerank request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("cohere rerank request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return &HTTPStatusError{StatusCode: resp.StatusCode, Status: resp.Status, Body: strings.TrimSpace(string(msg))}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode rerank response: %w", err)
	}
	return nil
}

type HTTPStatusError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *HTTPStatusError) Error() string {
	if e.Body == "" {
		return "cohere rerank status: " + e.Status
	}
	return "cohere rerank status: " + e.Status + ": " + e.Body
}

func classifyCohereError(err error) resilience.ErrorClassification {
	var statusErr *HTTPStatusError
	if errors.As(err, &statusErr) {
		if resilience.RetryableStatus(statusErr.StatusCode) {
			return resilience.Transient
		}
		return resilience.Rejected
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return resilience.Transient
	}
	return resilience.Failed
}

func wrapTemporaryIfNeeded(operation string, err error) error {
	if err == nil {
		return nil
	}
	if resilience.Guard(classifyCohereError)(err).Retryable {
		return domain.WrapError(domain.ErrTemporary, operation, err)
	}
	var statusErr *HTTPStatusError
	if errors.As(err, &statusErr) && (statusErr.StatusCode == http.StatusUnauthorized || statusErr.StatusCode == http.StatusForbidden) {
		return domain.WrapError(domain.ErrConfiguration, operation, err)
	}
	return domain.WrapError(domain.ErrUpstream, operation, err)
}
