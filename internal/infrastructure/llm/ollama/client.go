// Package ollama serves embeddings and chat completions from a local Ollama
// server, for deployments without hosted model access.
package ollama

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/evidence-assistant/internal/core/domain"
	"github.com/kirillkom/evidence-assistant/internal/infrastructure/resilience"
)

const defaultEmbedBatch = 512

type Client struct {
	baseURL    string
	genModel   string
	embedModel string
	httpClient *http.Client
	executor   *resilience.Executor
}

func New(baseURL, genModel, embedModel string, timeout time.Duration, executor *resilience.Executor) *Client {
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	if executor == nil {
		executor = resilience.NewExecutor(resilience.Config{RetryMaxAttempts: 1})
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		genModel:   genModel,
		embedModel: embedModel,
		httpClient: &http.Client{Timeout: timeout},
		executor:   executor,
	}
}

type Embedder struct {
	client    *Client
	batchSize int
}

func NewEmbedder(client *Client) *Embedder {
	return &Embedder{client: client, batchSize: defaultEmbedBatch}
}

func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += e.batchSize {
		end := min(start+e.batchSize, len(texts))
		request := map[string]any{
			"model": e.client.embedModel,
			"input": texts[start:end],
		}

		var response struct {
			Embeddings [][]float32 `json:"embeddings"`
		}
		if err := e.client.call(ctx, "/api/embed", request, &response); err != nil {
			return nil, fmt.Errorf("embed batch %d-%d: %w", start, end, err)
		}
		if len(response.Embeddings) != end-start {
			return nil, domain.NewError(domain.ErrUpstream, "ollama embed",
				fmt.Sprintf("expected %d embeddings, got %d", end-start, len(response.Embeddings)))
		}
		out = append(out, response.Embeddings...)
	}
	return out, nil
}

func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, domain.NewError(domain.ErrUpstream, "ollama embed", "empty embedding result")
	}
	return vectors[0], nil
}

type Generator struct {
	client      *Client
	temperature float64
}

func NewGenerator(client *Client, temperature float64) *Generator {
	return &Generator{client: client, temperature: temperature}
}

func (g *Generator) Complete(ctx context.Context, system, user string) (string, error) {
	request := map[string]any{
		"model": g.client.genModel,
		"messages": []map[string]string{
			{"role": "system", "content": system},
			{"role": "user", "content": user},
		},
		"stream":  false,
		"options": map[string]any{"temperature": g.temperature},
	}

	var response struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	}
	if err := g.client.call(ctx, "/api/chat", request, &response); err != nil {
		return "", err
	}

	content := strings.TrimSpace(response.Message.Content)
	if content == "" {
		return "", domain.NewError(domain.ErrUpstream, "ollama chat", "empty completion")
	}
	return content, nil
}
