package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/kirillkom/evidence-assistant/internal/core/domain"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return New(Config{APIKey: "test-key", BaseURL: server.URL + "/"}, nil)
}

func TestEmbedRestoresInputOrder(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embeddings" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"object":"list","model":"text-embedding-3-small",
			"data":[{"object":"embedding","index":1,"embedding":[0.5,0.5]},{"object":"embedding","index":0,"embedding":[1,0]}],
			"usage":{"prompt_tokens":2,"total_tokens":2}}`))
	})

	out, err := NewEmbedder(client).Embed(context.Background(), []string{"first", "second"})
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	if len(out) != 2 || out[0][0] != 1 || out[1][0] != 0.5 {
		t.Fatalf("expected vectors ordered by index, got %v", out)
	}
}

func TestEmbedBatchesAt512(t *testing.T) {
	var calls int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		var req struct {
			Input []string `json:"input"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		data := make([]map[string]any, len(req.Input))
		for i := range req.Input {
			data[i] = map[string]any{"object": "embedding", "index": i, "embedding": []float64{1}}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"object": "list", "model": "m", "data": data})
	})

	texts := make([]string, 600)
	for i := range texts {
		texts[i] = "t"
	}
	out, err := NewEmbedder(client).Embed(context.Background(), texts)
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	if len(out) != 600 || atomic.LoadInt32(&calls) != 2 {
		t.Fatalf("expected 600 vectors in 2 calls, got %d in %d", len(out), calls)
	}
}

func TestCompleteSendsSystemAndUser(t *testing.T) {
	var captured struct {
		Model       string           `json:"model"`
		Temperature float64          `json:"temperature"`
		Messages    []map[string]any `json:"messages"`
	}
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			http.NotFound(w, r)
			return
		}
		_ = json.NewDecoder(r.Body).Decode(&captured)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"c1","object":"chat.completion","created":1,"model":"gpt-4.1-mini",
			"choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"neutral summary"}}]}`))
	})
	client.cfg.Temperature = 0.2

	out, err := NewGenerator(client).Complete(context.Background(), "system text", "user text")
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if out != "neutral summary" {
		t.Fatalf("unexpected completion %q", out)
	}
	if captured.Model != "gpt-4.1-mini" || captured.Temperature != 0.2 || len(captured.Messages) != 2 {
		t.Fatalf("unexpected request %+v", captured)
	}
	if captured.Messages[0]["role"] != "system" || captured.Messages[1]["role"] != "user" {
		t.Fatalf("unexpected roles %+v", captured.Messages)
	}
}

func TestCompleteEmptyIsUpstreamError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"c1","object":"chat.completion","created":1,"model":"m",
			"choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":""}}]}`))
	})
	_, err := NewGenerator(client).Complete(context.Background(), "s", "u")
	if !domain.IsKind(err, domain.ErrUpstream) {
		t.Fatalf("expected upstream error, got %v", err)
	}
}

func TestRateLimitIsTemporary(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"slow down","type":"rate_limit"}}`))
	})
	_, err := NewEmbedder(client).EmbedQuery(context.Background(), "q")
	if !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected temporary error, got %v", err)
	}
}

func TestMissingKeyIsConfigurationError(t *testing.T) {
	client := New(Config{}, nil)
	if client.Configured() {
		t.Fatalf("expected unconfigured client")
	}
	if _, err := NewEmbedder(client).Embed(context.Background(), []string{"x"}); !domain.IsKind(err, domain.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	if _, err := NewGenerator(client).Complete(context.Background(), "s", "u"); !domain.IsKind(err, domain.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}
