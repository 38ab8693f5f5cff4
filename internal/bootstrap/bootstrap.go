package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	goredis "github.com/redis/go-redis/v9"

	"github.com/kirillkom/evidence-assistant/internal/config"
	"github.com/kirillkom/evidence-assistant/internal/core/lexical"
	"github.com/kirillkom/evidence-assistant/internal/core/ports"
	"github.com/kirillkom/evidence-assistant/internal/core/transcript"
	"github.com/kirillkom/evidence-assistant/internal/core/usecase"
	"github.com/kirillkom/evidence-assistant/internal/infrastructure/chunking"
	"github.com/kirillkom/evidence-assistant/internal/infrastructure/extractor"
	"github.com/kirillkom/evidence-assistant/internal/infrastructure/llm/ollama"
	"github.com/kirillkom/evidence-assistant/internal/infrastructure/llm/openai"
	"github.com/kirillkom/evidence-assistant/internal/infrastructure/queue/nats"
	"github.com/kirillkom/evidence-assistant/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/evidence-assistant/internal/infrastructure/repository/redis"
	"github.com/kirillkom/evidence-assistant/internal/infrastructure/rerank/cohere"
	"github.com/kirillkom/evidence-assistant/internal/infrastructure/resilience"
	"github.com/kirillkom/evidence-assistant/internal/infrastructure/storage/localfs"
	"github.com/kirillkom/evidence-assistant/internal/infrastructure/tokens"
	"github.com/kirillkom/evidence-assistant/internal/infrastructure/vector/memory"
	"github.com/kirillkom/evidence-assistant/internal/infrastructure/vector/qdrant"
	"github.com/kirillkom/evidence-assistant/internal/observability/metrics"
)

type App struct {
	Config config.Config

	CaseUC       *usecase.CaseUseCase
	IngestUC     *usecase.IngestDocumentUseCase
	ChallengeUC  *usecase.ChallengeUseCase
	TranscriptUC *usecase.TranscriptUseCase
	EvidenceUC   *usecase.EvidenceUseCase

	// Feed is nil unless NATS_ENABLED is set.
	Feed    *nats.Feed
	Metrics *metrics.HTTPServerMetrics

	OpenAIConfigured bool
	CohereConfigured bool
	// Checks are dependency probes for the health endpoint.
	Checks map[string]func(ctx context.Context) error

	closers []func()
}

func New(ctx context.Context, cfg config.Config, service string) (*App, error) {
	app := &App{
		Config: cfg,
		Checks: make(map[string]func(ctx context.Context) error),
	}
	ok := false
	defer func() {
		if !ok {
			app.Close()
		}
	}()

	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	app.onClose(func() { _ = db.Close() })
	if err := postgres.EnsureSchema(ctx, db); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	app.Checks["postgres"] = db.PingContext
	caseRepo := postgres.NewCaseRepository(db)
	docRepo := postgres.NewDocumentRepository(db)

	storage, err := localfs.New(cfg.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("init object storage: %w", err)
	}

	executor := resilience.NewExecutor(resilience.Background(cfg.RetryMaxAttempts, cfg.BreakerEnabled))
	// Embedding, searches and rerank sit on the challenge path and fail fast.
	fastExecutor := resilience.NewExecutor(resilience.Interactive(cfg.BreakerEnabled))

	embedder, generator, err := app.languageModels(cfg, executor, fastExecutor)
	if err != nil {
		return nil, err
	}

	reranker := cohere.New(cohere.Config{
		APIKey:  cfg.CohereAPIKey,
		BaseURL: cfg.CohereBaseURL,
		Model:   cfg.RerankModel,
		Timeout: cfg.RerankTimeout,
	}, fastExecutor)
	app.CohereConfigured = reranker.Configured()
	if !reranker.Configured() {
		slog.Warn("reranker_not_configured", "provider", cfg.RerankProvider)
	}

	index, err := app.vectorIndex(cfg, executor, fastExecutor)
	if err != nil {
		return nil, err
	}
	if err := index.EnsureCollection(ctx, cfg.EmbeddingDim); err != nil {
		return nil, fmt.Errorf("ensure vector collection: %w", err)
	}

	durable, err := app.turnStore(cfg, db)
	if err != nil {
		return nil, err
	}

	counter, err := tokens.NewCounter(cfg.TokenEncoding)
	if err != nil {
		slog.Warn("token_encoding_unavailable", "encoding", cfg.TokenEncoding, "error", err)
		counter = tokens.Estimate()
	}

	app.Metrics = metrics.NewHTTPServerMetrics(service)
	ingestMetrics := metrics.NewIngestMetrics(service, app.Metrics.Registry())

	encoder := lexical.NewEncoder()
	indexer := usecase.NewIndexer(index, encoder, cfg.UpsertBatchSize)
	store := transcript.NewStore(transcript.Options{
		Window:      cfg.TranscriptTurns,
		QueryWindow: cfg.TranscriptQueryTurns,
		MaxSessions: cfg.TranscriptMaxSessions,
		Durable:     durable,
		Tokens:      counter,
	})
	funnel := usecase.NewFunnel(index, encoder, reranker, usecase.FunnelConfig{
		TopK:       cfg.RetrievalTopK,
		RerankTopK: cfg.RerankTopK,
		RRFK:       cfg.RRFK,
		Gate: usecase.ThresholdGate{
			Rerank: cfg.RerankThreshold,
			Fusion: cfg.FusionThreshold,
		},
	})

	app.CaseUC = usecase.NewCaseUseCase(caseRepo, caseRepo)
	app.IngestUC = usecase.NewIngestDocumentUseCase(
		caseRepo,
		docRepo,
		storage,
		extractor.NewRegistry(),
		chunking.NewSectionChunker(cfg.ChunkSizeTokens, cfg.ChunkCharsPerToken, cfg.ChunkOverlapPct),
		embedder,
		indexer,
		ingestMetrics,
		usecase.IngestOptions{MaxUploadBytes: cfg.MaxUploadBytes, Enrich: cfg.ContextualEnrichment},
	)
	app.TranscriptUC = usecase.NewTranscriptUseCase(caseRepo, store)
	app.ChallengeUC = usecase.NewChallengeUseCase(
		caseRepo,
		store,
		embedder,
		funnel,
		usecase.NewSynthesizer(generator),
		app.Metrics,
	)
	app.EvidenceUC = usecase.NewEvidenceUseCase(docRepo, docRepo, storage)

	if cfg.NATSEnabled {
		feed, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{ResilienceExecutor: executor})
		if err != nil {
			return nil, fmt.Errorf("init transcript feed: %w", err)
		}
		app.Feed = feed
		app.onClose(feed.Close)
	}

	slog.Info("bootstrap_ready",
		"llm_provider", cfg.LLMProvider,
		"vector_backend", cfg.VectorBackend,
		"transcript_store", cfg.TranscriptStore,
		"token_encoding", counter.Encoding(),
		"nats_enabled", cfg.NATSEnabled,
	)
	ok = true
	return app, nil
}

// StartTranscriptFeed consumes live segments until ctx is done. It is a
// no-op when the feed is disabled.
func (a *App) StartTranscriptFeed(ctx context.Context) {
	if a.Feed == nil {
		return
	}
	go func() {
		slog.Info("transcript_feed_subscribed", "subject", a.Feed.Subject())
		if err := a.Feed.SubscribeSegments(ctx, a.TranscriptUC.HandleSegment); err != nil {
			slog.Error("transcript_feed_stopped", "error", err)
		}
	}()
}

func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

func (a *App) onClose(fn func()) {
	a.closers = append(a.closers, fn)
}

func (a *App) languageModels(cfg config.Config, executor, fastExecutor *resilience.Executor) (ports.Embedder, ports.Generator, error) {
	switch cfg.LLMProvider {
	case "ollama":
		embedClient := ollama.New(cfg.OllamaURL, cfg.OllamaGenModel, cfg.OllamaEmbedModel, cfg.LLMTimeout, fastExecutor)
		chatClient := ollama.New(cfg.OllamaURL, cfg.OllamaGenModel, cfg.OllamaEmbedModel, cfg.LLMTimeout, executor)
		return ollama.NewEmbedder(embedClient), ollama.NewGenerator(chatClient, cfg.LLMTemperature), nil
	case "openai":
		openaiCfg := openai.Config{
			APIKey:         cfg.OpenAIAPIKey,
			BaseURL:        cfg.OpenAIBaseURL,
			EmbeddingModel: cfg.EmbeddingModel,
			ChatModel:      cfg.ChatModel,
			Temperature:    cfg.LLMTemperature,
			Timeout:        cfg.LLMTimeout,
		}
		embedClient := openai.New(openaiCfg, fastExecutor)
		chatClient := openai.New(openaiCfg, executor)
		a.OpenAIConfigured = chatClient.Configured()
		if !a.OpenAIConfigured {
			slog.Warn("openai_not_configured")
		}
		return openai.NewEmbedder(embedClient), openai.NewGenerator(chatClient), nil
	default:
		return nil, nil, fmt.Errorf("unsupported llm provider %q", cfg.LLMProvider)
	}
}

func (a *App) vectorIndex(cfg config.Config, executor, fastExecutor *resilience.Executor) (ports.VectorIndex, error) {
	switch cfg.VectorBackend {
	case "memory":
		slog.Warn("vector_index_in_memory", "reason", "points are lost on restart")
		return memory.New(), nil
	case "qdrant":
		client, err := qdrant.New(qdrant.Config{
			Host:       cfg.QdrantHost,
			Port:       cfg.QdrantPort,
			APIKey:     cfg.QdrantAPIKey,
			UseTLS:     cfg.QdrantUseTLS,
			Collection: cfg.QdrantCollection,
			Timeout:    cfg.QdrantTimeout,
		}, executor, fastExecutor)
		if err != nil {
			return nil, fmt.Errorf("init qdrant: %w", err)
		}
		a.onClose(func() { _ = client.Close() })
		a.Checks["qdrant"] = client.Health
		return client, nil
	default:
		return nil, fmt.Errorf("unsupported vector backend %q", cfg.VectorBackend)
	}
}

// turnStore returns the durable transcript tier, or nil for memory only.
func (a *App) turnStore(cfg config.Config, db *sql.DB) (ports.TurnStore, error) {
	switch cfg.TranscriptStore {
	case "postgres":
		return postgres.NewTranscriptRepository(db), nil
	case "redis":
		client := goredis.NewUniversalClient(&goredis.UniversalOptions{
			Addrs:    []string{cfg.RedisAddr},
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		a.onClose(func() { _ = client.Close() })
		store := redis.NewTranscriptStore(client, cfg.RedisTranscriptTTL)
		a.Checks["redis"] = store.Ping
		return store, nil
	case "memory":
		return nil, nil
	default:
		return nil, fmt.Errorf("unsupported transcript store %q", cfg.TranscriptStore)
	}
}
