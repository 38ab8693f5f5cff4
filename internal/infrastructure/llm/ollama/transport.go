package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/kirillkom/evidence-assistant/internal/infrastructure/resilience"
)

const maxErrorBody = 2048

// call posts payload to endpoint under the client's retry policy and decodes
// the answer into out. Retryable failures come back as domain.ErrTemporary.
func (c *Client) call(ctx context.Context, endpoint string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode ollama %s request: %w", endpoint, err)
	}
	operation := "ollama" + strings.ReplaceAll(endpoint, "/", "_")

	return c.executor.Execute(ctx, operation, func(callCtx context.Context) error {
		return resilience.WrapTemporary(operation, c.post(callCtx, endpoint, body, out), classify)
	}, classify)
}

func (c *Client) post(ctx context.Context, endpoint string, body []byte, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{Endpoint: endpoint, Code: resp.StatusCode, Body: strings.TrimSpace(string(snippet))}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode ollama %s response: %w", endpoint, err)
	}
	return nil
}
