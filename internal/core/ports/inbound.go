package ports

import (
	"context"
	"io"

	"github.com/kirillkom/evidence-assistant/internal/core/domain"
)

type CaseService interface {
	CreateCase(ctx context.Context, name, description string) (*domain.Case, error)
	GetCase(ctx context.Context, id string) (*domain.Case, error)
	ListCases(ctx context.Context) ([]domain.Case, error)
	CreateSession(ctx context.Context, caseID, treatment string) (*domain.Session, error)
	GetSession(ctx context.Context, id string) (*domain.Session, error)
	ListSessions(ctx context.Context, caseID string) ([]domain.Session, error)
}

type DocumentIngestor interface {
	Upload(ctx context.Context, caseID, party, filename string, body io.Reader) (*domain.Document, error)
	ListDocuments(ctx context.Context, caseID string) ([]domain.Document, error)
}

type ChallengeRunner interface {
	Run(ctx context.Context, sessionID string) (domain.ChallengeResponse, error)
}

type TranscriptService interface {
	AddTurn(ctx context.Context, sessionID, speaker, text string) ([]domain.Turn, error)
	Turns(ctx context.Context, sessionID string) ([]domain.Turn, error)
	Clear(ctx context.Context, sessionID string) error
}

type EvidenceService interface {
	DocumentFile(ctx context.Context, docID string) (*domain.Document, io.ReadCloser, error)
	ChunkContext(ctx context.Context, docID, chunkID string) (*domain.Chunk, error)
}
