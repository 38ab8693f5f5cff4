package cohere

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/kirillkom/evidence-assistant/internal/core/domain"
)

func TestRerankSendsV2RequestAndMapsResults(t *testing.T) {
	var captured rerankRequest
	var auth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v2/rerank" {
			http.NotFound(w, r)
			return
		}
		auth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&captured)
		_, _ = w.Write([]byte(`{"results":[{"index":1,"relevance_score":0.91},{"index":0,"relevance_score":0.12}]}`))
	}))
	defer server.Close()

	client := New(Config{APIKey: "k", BaseURL: server.URL}, nil)
	hits, err := client.Rerank(context.Background(), "deadline", []string{"a", "b", "c"}, 2)
	if err != nil {
		t.Fatalf("Rerank() error = %v", err)
	}
	if auth != "Bearer k" {
		t.Fatalf("unexpected auth header %q", auth)
	}
	if captured.Model != DefaultModel || captured.TopN != 2 || len(captured.Documents) != 3 {
		t.Fatalf("unexpected request %+v", captured)
	}
	if len(hits) != 2 || hits[0].Index != 1 || hits[0].Score != 0.91 {
		t.Fatalf("unexpected hits %+v", hits)
	}
}

func TestRerankWithoutKeyFailsClosed(t *testing.T) {
	_, err := New(Config{}, nil).Rerank(context.Background(), "q", []string{"a"}, 1)
	if !domain.IsKind(err, domain.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestRerankClampsTopN(t *testing.T) {
	var captured rerankRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&captured)
		_, _ = w.Write([]byte(`{"results":[]}`))
	}))
	defer server.Close()

	if _, err := New(Config{APIKey: "k", BaseURL: server.URL}, nil).Rerank(context.Background(), "q", []string{"a"}, 5); err != nil {
		t.Fatalf("Rerank() error = %v", err)
	}
	if captured.TopN != 1 {
		t.Fatalf("expected top_n clamped to 1, got %d", captured.TopN)
	}
}

func TestRerankMapsStatusErrors(t *testing.T) {
	tests := []struct {
		status int
		kind   error
	}{
		{status: http.StatusServiceUnavailable, kind: domain.ErrTemporary},
		{status: http.StatusUnauthorized, kind: domain.ErrConfiguration},
		{status: http.StatusBadRequest, kind: domain.ErrUpstream},
	}
	for _, tc := range tests {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "nope", tc.status)
		}))
		_, err := New(Config{APIKey: "k", BaseURL: server.URL}, nil).Rerank(context.Background(), "q", []string{"a"}, 1)
		server.Close()
		if !domain.IsKind(err, tc.kind) {
			t.Fatalf("status %d: expected %v, got %v", tc.status, tc.kind, err)
		}
	}
}

func TestRerankTimeoutIsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(100 * time.Millisecond)
		_, _ = w.Write([]byte(`{"results":[]}`))
	}))
	defer server.Close()

	_, err := New(Config{APIKey: "k", BaseURL: server.URL, Timeout: 10 * time.Millisecond}, nil).Rerank(context.Background(), "q", []string{"a"}, 1)
	if err == nil {
		t.Fatalf("expected timeout error")
	}
}
