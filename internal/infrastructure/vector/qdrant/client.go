// Package qdrant stores chunk points in a Qdrant collection with one named
// dense vector and one IDF-weighted sparse vector.
package qdrant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/kirillkom/evidence-assistant/internal/core/domain"
	"github.com/kirillkom/evidence-assistant/internal/infrastructure/resilience"
)

const (
	DenseVectorName  = "dense"
	SparseVectorName = "bm25"

	defaultTimeout = 5 * time.Second
)

// pointsAPI is the part of *qdrant.Client the index needs.
type pointsAPI interface {
	CollectionExists(ctx context.Context, collectionName string) (bool, error)
	CreateCollection(ctx context.Context, request *qdrant.CreateCollection) error
	CreateFieldIndex(ctx context.Context, request *qdrant.CreateFieldIndexCollection) (*qdrant.UpdateResult, error)
	Upsert(ctx context.Context, request *qdrant.UpsertPoints) (*qdrant.UpdateResult, error)
	Query(ctx context.Context, request *qdrant.QueryPoints) ([]*qdrant.ScoredPoint, error)
	HealthCheck(ctx context.Context) (*qdrant.HealthCheckReply, error)
	Close() error
}

type Config struct {
	Host       string
	Port       int
	APIKey     string
	UseTLS     bool
	Collection string
	// Timeout bounds every gRPC call, each retry attempt separately.
	Timeout time.Duration
}

type Client struct {
	api        pointsAPI
	collection string
	timeout    time.Duration
	// writes carries upserts and collection setup; searches run on the
	// challenge path and may use a stricter policy.
	writes   *resilience.Executor
	searches *resilience.Executor

	ensureMu          sync.Mutex
	ensuredCollection bool
	ensuredVectorSize int
}

// New dials Qdrant. A nil searches executor reuses writes.
func New(cfg Config, writes, searches *resilience.Executor) (*Client, error) {
	api, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("create qdrant client: %w", err)
	}
	client := newWithAPI(api, cfg.Collection, writes)
	if cfg.Timeout > 0 {
		client.timeout = cfg.Timeout
	}
	if searches != nil {
		client.searches = searches
	}
	return client, nil
}

func newWithAPI(api pointsAPI, collection string, executor *resilience.Executor) *Client {
	if collection == "" {
		collection = "evidence_chunks"
	}
	if executor == nil {
		executor = resilience.NewExecutor(resilience.Config{RetryMaxAttempts: 1, BreakerEnabled: false})
	}
	return &Client{
		api:        api,
		collection: collection,
		timeout:    defaultTimeout,
		writes:     executor,
		searches:   executor,
	}
}

// bounded runs fn under the client's per-call deadline. Expiry of that
// deadline is reported as ErrTemporary; caller cancellation passes through.
func (c *Client) bounded(ctx context.Context, fn func(context.Context) error) error {
	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	err := fn(callCtx)
	if err != nil && ctx.Err() == nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) {
		return domain.NewError(domain.ErrTemporary, "qdrant", fmt.Sprintf("call exceeded %s", c.timeout))
	}
	return err
}

func (c *Client) Close() error {
	return c.api.Close()
}

func (c *Client) Health(ctx context.Context) error {
	var reply *qdrant.HealthCheckReply
	err := c.bounded(ctx, func(callCtx context.Context) error {
		var err error
		reply, err = c.api.HealthCheck(callCtx)
		return err
	})
	if err != nil {
		return wrapTemporaryIfNeeded("qdrant health check", err)
	}
	if reply == nil || reply.GetTitle() == "" {
		return domain.NewError(domain.ErrUpstream, "qdrant health check", "invalid health response")
	}
	return nil
}

// EnsureCollection creates the hybrid collection and its case_id keyword
// index when missing. The result is cached per vector size.
func (c *Client) EnsureCollection(ctx context.Context, vectorSize int) error {
	c.ensureMu.Lock()
	defer c.ensureMu.Unlock()
	if c.ensuredCollection && c.ensuredVectorSize == vectorSize {
		return nil
	}

	var exists bool
	err := c.bounded(ctx, func(callCtx context.Context) error {
		var err error
		exists, err = c.api.CollectionExists(callCtx, c.collection)
		return err
	})
	if err != nil {
		return wrapTemporaryIfNeeded("qdrant collection exists", err)
	}
	if !exists {
		create := &qdrant.CreateCollection{
			CollectionName: c.collection,
			VectorsConfig: qdrant.NewVectorsConfigMap(map[string]*qdrant.VectorParams{
				DenseVectorName: {
					Size:     uint64(vectorSize),
					Distance: qdrant.Distance_Cosine,
				},
			}),
			SparseVectorsConfig: qdrant.NewSparseVectorsConfig(map[string]*qdrant.SparseVectorParams{
				SparseVectorName: {Modifier: qdrant.Modifier_Idf.Enum()},
			}),
		}
		err = c.bounded(ctx, func(callCtx context.Context) error {
			return c.api.CreateCollection(callCtx, create)
		})
		if err != nil && status.Code(err) != codes.AlreadyExists {
			return wrapTemporaryIfNeeded("qdrant create collection", err)
		}
		for _, field := range []string{"case_id", "doc_id", "party"} {
			err := c.bounded(ctx, func(callCtx context.Context) error {
				_, err := c.api.CreateFieldIndex(callCtx, &qdrant.CreateFieldIndexCollection{
					CollectionName: c.collection,
					FieldName:      field,
					FieldType:      qdrant.FieldType_FieldTypeKeyword.Enum(),
					Wait:           qdrant.PtrOf(true),
				})
				return err
			})
			if err != nil {
				return wrapTemporaryIfNeeded("qdrant create field index "+field, err)
			}
		}
		slog.Info("qdrant_collection_created", "collection", c.collection, "vector_size", vectorSize)
	}

	c.ensuredCollection = true
	c.ensuredVectorSize = vectorSize
	return nil
}

func (c *Client) Upsert(ctx context.Context, points []domain.IndexPoint) error {
	if len(points) == 0 {
		return nil
	}
	structs := make([]*qdrant.PointStruct, 0, len(points))
	for _, p := range points {
		structs = append(structs, &qdrant.PointStruct{
			Id: qdrant.NewIDUUID(p.ID),
			Vectors: qdrant.NewVectorsMap(map[string]*qdrant.Vector{
				DenseVectorName:  qdrant.NewVectorDense(p.Dense),
				SparseVectorName: qdrant.NewVectorSparse(p.Sparse.Indices, p.Sparse.Values),
			}),
			Payload: qdrant.NewValueMap(payload(p)),
		})
	}

	return c.writes.Execute(ctx, "qdrant_upsert", func(attemptCtx context.Context) error {
		err := c.bounded(attemptCtx, func(callCtx context.Context) error {
			_, err := c.api.Upsert(callCtx, &qdrant.UpsertPoints{
				CollectionName: c.collection,
				Wait:           qdrant.PtrOf(true),
				Points:         structs,
			})
			return err
		})
		if err != nil {
			return wrapTemporaryIfNeeded("qdrant upsert", err)
		}
		return nil
	}, classifyQdrantError)
}

func (c *Client) SearchDense(ctx context.Context, caseID string, vector []float32, limit int) ([]domain.RetrievalResult, error) {
	return c.query(ctx, "qdrant_search_dense", caseID, qdrant.NewQueryDense(vector), DenseVectorName, limit)
}

func (c *Client) SearchSparse(ctx context.Context, caseID string, vector domain.SparseVector, limit int) ([]domain.RetrievalResult, error) {
	return c.query(ctx, "qdrant_search_sparse", caseID, qdrant.NewQuerySparse(vector.Indices, vector.Values), SparseVectorName, limit)
}

func (c *Client) query(ctx context.Context, operation, caseID string, query *qdrant.Query, using string, limit int) ([]domain.RetrievalResult, error) {
	if caseID == "" {
		return nil, domain.NewError(domain.ErrInvalidInput, operation, "case id is required")
	}
	var points []*qdrant.ScoredPoint
	err := c.searches.Execute(ctx, operation, func(attemptCtx context.Context) error {
		err := c.bounded(attemptCtx, func(callCtx context.Context) error {
			var err error
			points, err = c.api.Query(callCtx, &qdrant.QueryPoints{
				CollectionName: c.collection,
				Query:          query,
				Using:          qdrant.PtrOf(using),
				Filter: &qdrant.Filter{
					Must: []*qdrant.Condition{qdrant.NewMatch("case_id", caseID)},
				},
				Limit:       qdrant.PtrOf(uint64(limit)),
				WithPayload: qdrant.NewWithPayload(true),
			})
			return err
		})
		if err != nil {
			return wrapTemporaryIfNeeded(operation, err)
		}
		return nil
	}, classifyQdrantError)
	if err != nil {
		return nil, err
	}

	out := make([]domain.RetrievalResult, 0, len(points))
	for _, p := range points {
		out = append(out, resultFromPayload(p.GetPayload(), float64(p.GetScore())))
	}
	return out, nil
}

func payload(p domain.IndexPoint) map[string]any {
	c := p.Chunk
	return map[string]any{
		"chunk_id":      c.ID,
		"doc_id":        c.DocumentID,
		"case_id":       c.CaseID,
		"party":         string(c.Party),
		"filename":      c.Filename,
		"page":          int64(c.Page),
		"start_char":    int64(c.StartChar),
		"end_char":      int64(c.EndChar),
		"text":          c.Text,
		"enriched_text": p.EnrichedText,
		"parent_text":   c.ParentText,
		"section_title": c.SectionTitle,
	}
}

func resultFromPayload(payload map[string]*qdrant.Value, score float64) domain.RetrievalResult {
	return domain.RetrievalResult{
		Chunk: domain.Chunk{
			ID:           payload["chunk_id"].GetStringValue(),
			DocumentID:   payload["doc_id"].GetStringValue(),
			CaseID:       payload["case_id"].GetStringValue(),
			Party:        domain.Party(payload["party"].GetStringValue()),
			Filename:     payload["filename"].GetStringValue(),
			Page:         int(payload["page"].GetIntegerValue()),
			StartChar:    int(payload["start_char"].GetIntegerValue()),
			EndChar:      int(payload["end_char"].GetIntegerValue()),
			Text:         payload["text"].GetStringValue(),
			ParentText:   payload["parent_text"].GetStringValue(),
			SectionTitle: payload["section_title"].GetStringValue(),
		},
		EnrichedText: payload["enriched_text"].GetStringValue(),
		FusionScore:  score,
	}
}

func classifyQdrantError(err error) resilience.ErrorClassification {
	if domain.IsKind(err, domain.ErrTemporary) {
		return resilience.Transient
	}
	return resilience.Rejected
}

func wrapTemporaryIfNeeded(operation string, err error) error {
	if err == nil {
		return nil
	}
	if domain.IsKind(err, domain.ErrTemporary) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return domain.WrapError(domain.ErrTemporary, operation, err)
	}
	switch status.Code(err) {
	case codes.Unavailable, codes.DeadlineExceeded, codes.ResourceExhausted, codes.Aborted:
		return domain.WrapError(domain.ErrTemporary, operation, err)
	case codes.NotFound:
		return domain.WrapError(domain.ErrConfiguration, operation, err)
	}
	return domain.WrapError(domain.ErrUpstream, operation, err)
}
