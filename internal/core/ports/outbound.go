package ports

import (
	"context"
	"io"

	"github.com/kirillkom/evidence-assistant/internal/core/domain"
)

type CaseRepository interface {
	CreateCase(ctx context.Context, c *domain.Case) error
	GetCase(ctx context.Context, id string) (*domain.Case, error)
	ListCases(ctx context.Context) ([]domain.Case, error)
}

type SessionRepository interface {
	CreateSession(ctx context.Context, s *domain.Session) error
	GetSession(ctx context.Context, id string) (*domain.Session, error)
	ListSessions(ctx context.Context, caseID string) ([]domain.Session, error)
}

type DocumentRepository interface {
	// CreateDocument writes the document row and its chunk rows atomically.
	CreateDocument(ctx context.Context, doc *domain.Document, chunks []domain.Chunk) error
	GetDocument(ctx context.Context, id string) (*domain.Document, error)
	ListDocuments(ctx context.Context, caseID string) ([]domain.Document, error)
}

type ChunkRepository interface {
	GetChunk(ctx context.Context, id string) (*domain.Chunk, error)
}

// TurnStore is the durable tier behind the transcript buffer. Turns are
// stored raw, before merge.
type TurnStore interface {
	AppendTurn(ctx context.Context, turn domain.RawTurn) error
	ListTurns(ctx context.Context, sessionID string) ([]domain.RawTurn, error)
	ClearTurns(ctx context.Context, sessionID string) error
}

type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// TextExtractor turns raw file bytes into ordered pages with text. Pages
// without extractable text are omitted. Detect rejects unsupported formats
// with domain.ErrInvalidInput.
type TextExtractor interface {
	Detect(filename string, content []byte) (string, error)
	Extract(ctx context.Context, contentType string, content []byte) (domain.Extraction, error)
}

type Chunker interface {
	Chunk(doc *domain.Document, pages []domain.Page) []domain.Chunk
}

type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Generator completes a system instruction plus user content. An empty
// completion is an error.
type Generator interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

type RerankHit struct {
	Index int
	Score float64
}

// Reranker scores documents against a query and returns at most topN hits
// ordered by relevance, referencing indices of the input slice.
type Reranker interface {
	Rerank(ctx context.Context, query string, documents []string, topN int) ([]RerankHit, error)
}

type SparseEncoder interface {
	Encode(text string) domain.SparseVector
}

// VectorIndex is the hybrid index. Every search is scoped to one case.
type VectorIndex interface {
	EnsureCollection(ctx context.Context, dimension int) error
	Upsert(ctx context.Context, points []domain.IndexPoint) error
	SearchDense(ctx context.Context, caseID string, vector []float32, limit int) ([]domain.RetrievalResult, error)
	SearchSparse(ctx context.Context, caseID string, vector domain.SparseVector, limit int) ([]domain.RetrievalResult, error)
}

type TokenCounter interface {
	CountTokens(text string) int
}

type TranscriptSegment struct {
	SessionID string `json:"session_id"`
	Speaker   string `json:"speaker"`
	Text      string `json:"text"`
}

type TranscriptFeed interface {
	PublishSegment(ctx context.Context, segment TranscriptSegment) error
	SubscribeSegments(ctx context.Context, handler func(context.Context, TranscriptSegment) error) error
}

// ChallengeObserver receives per-run retrieval measurements.
type ChallengeObserver interface {
	ObserveChallenge(treatment domain.Treatment, outcome string, fused, reranked int, stages map[string]float64)
}

type IngestObserver interface {
	StartIngest()
	FinishIngest(status string, chunks int, seconds float64)
}
