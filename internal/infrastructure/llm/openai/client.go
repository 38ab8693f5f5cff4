// Package openai adapts the OpenAI embeddings and chat completion APIs.
package openai

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	openaisdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/kirillkom/evidence-assistant/internal/core/domain"
	"github.com/kirillkom/evidence-assistant/internal/infrastructure/resilience"
)

const defaultEmbedBatch = 512

type Config struct {
	APIKey         string
	BaseURL        string
	EmbeddingModel string
	ChatModel      string
	Temperature    float64
	Timeout        time.Duration
}

// Client owns one SDK client. SDK-level retries are disabled; retries go
// through the executor so they share the circuit breakers.
type Client struct {
	sdk      openaisdk.Client
	cfg      Config
	executor *resilience.Executor
}

func New(cfg Config, executor *resilience.Executor) *Client {
	if cfg.EmbeddingModel == "" {
		cfg.EmbeddingModel = "text-embedding-3-small"
	}
	if cfg.ChatModel == "" {
		cfg.ChatModel = "gpt-4.1-mini"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if executor == nil {
		executor = resilience.NewExecutor(resilience.Config{RetryMaxAttempts: 1})
	}
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
		option.WithRequestTimeout(cfg.Timeout),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &Client{sdk: openaisdk.NewClient(opts...), cfg: cfg, executor: executor}
}

func (c *Client) Configured() bool {
	return strings.TrimSpace(c.cfg.APIKey) != ""
}

func (c *Client) requireKey(operation string) error {
	if !c.Configured() {
		return domain.NewError(domain.ErrConfiguration, operation, "OPENAI_API_KEY is not set")
	}
	return nil
}

type Embedder struct {
	client    *Client
	batchSize int
}

func NewEmbedder(client *Client) *Embedder {
	return &Embedder{client: client, batchSize: defaultEmbedBatch}
}

func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if err := e.client.requireKey("openai embed"); err != nil {
		return nil, err
	}
	if len(texts) == 0 {
		return nil, nil
	}

	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += e.batchSize {
		end := min(start+e.batchSize, len(texts))
		batch, err := e.embedBatch(ctx, texts[start:end])
		if err != nil {
			return nil, fmt.Errorf("embed batch %d-%d: %w", start, end, err)
		}
		out = append(out, batch...)
	}
	return out, nil
}

func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, domain.NewError(domain.ErrUpstream, "openai embed", "empty embedding result")
	}
	return vectors[0], nil
}

func (e *Embedder) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	var resp *openaisdk.CreateEmbeddingResponse
	err := e.client.executor.Execute(ctx, "openai_embed", func(callCtx context.Context) error {
		var err error
		resp, err = e.client.sdk.Embeddings.New(callCtx, openaisdk.EmbeddingNewParams{
			Input: openaisdk.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts},
			Model: openaisdk.EmbeddingModel(e.client.cfg.EmbeddingModel),
		})
		return wrapTemporaryIfNeeded("openai embed", err)
	}, classifyOpenAIError)
	if err != nil {
		return nil, err
	}
	if len(resp.Data) != len(texts) {
		return nil, domain.NewError(domain.ErrUpstream, "openai embed",
			fmt.Sprintf("expected %d embeddings, got %d", len(texts), len(resp.Data)))
	}

	out := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || int(d.Index) >= len(out) {
			return nil, domain.NewError(domain.ErrUpstream, "openai embed", fmt.Sprintf("embedding index %d out of range", d.Index))
		}
		out[d.Index] = toFloat32(d.Embedding)
	}
	return out, nil
}

type Generator struct {
	client *Client
}

func NewGenerator(client *Client) *Generator {
	return &Generator{client: client}
}

func (g *Generator) Complete(ctx context.Context, system, user string) (string, error) {
	if err := g.client.requireKey("openai chat"); err != nil {
		return "", err
	}
	var resp *openaisdk.ChatCompletion
	err := g.client.executor.Execute(ctx, "openai_chat", func(callCtx context.Context) error {
		var err error
		resp, err = g.client.sdk.Chat.Completions.New(callCtx, openaisdk.ChatCompletionNewParams{
			Model: openaisdk.ChatModel(g.client.cfg.ChatModel),
			Messages: []openaisdk.ChatCompletionMessageParamUnion{
				openaisdk.SystemMessage(system),
				openaisdk.UserMessage(user),
			},
			Temperature: openaisdk.Float(g.client.cfg.Temperature),
		})
		return wrapTemporaryIfNeeded("openai chat", err)
	}, classifyOpenAIError)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", domain.NewError(domain.ErrUpstream, "openai chat", "no choices returned")
	}
	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return "", domain.NewError(domain.ErrUpstream, "openai chat", "empty completion")
	}
	return content, nil
}

func classifyOpenAIError(err error) resilience.ErrorClassification {
	var apiErr *openaisdk.Error
	if errors.As(err, &apiErr) {
		if resilience.RetryableStatus(apiErr.StatusCode) {
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
	if resilience.Guard(classifyOpenAIError)(err).Retryable {
		return domain.WrapError(domain.ErrTemporary, operation, err)
	}
	var apiErr *openaisdk.Error
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized {
		return domain.WrapError(domain.ErrConfiguration, operation, err)
	}
	return domain.WrapError(domain.ErrUpstream, operation, err)
}

func toFloat32(f64 []float64) []float32 {
	f32 := make([]float32, len(f64))
	for i, v := range f64 {
		f32[i] = float32(v)
	}
	return f32
}
