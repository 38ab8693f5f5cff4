package usecase

import (
	"context"
	"fmt"
	"io"

	"github.com/kirillkom/evidence-assistant/internal/core/domain"
	"github.com/kirillkom/evidence-assistant/internal/core/ports"
)

type EvidenceUseCase struct {
	docs    ports.DocumentRepository
	chunks  ports.ChunkRepository
	storage ports.ObjectStorage
}

func NewEvidenceUseCase(docs ports.DocumentRepository, chunks ports.ChunkRepository, storage ports.ObjectStorage) *EvidenceUseCase {
	return &EvidenceUseCase{docs: docs, chunks: chunks, storage: storage}
}

// DocumentFile opens the stored original. The caller closes the reader.
func (uc *EvidenceUseCase) DocumentFile(ctx context.Context, docID string) (*domain.Document, io.ReadCloser, error) {
	doc, err := uc.docs.GetDocument(ctx, docID)
	if err != nil {
		return nil, nil, err
	}
	rc, err := uc.storage.Open(ctx, doc.StoragePath)
	if err != nil {
		return nil, nil, fmt.Errorf("open document file: %w", err)
	}
	return doc, rc, nil
}

func (uc *EvidenceUseCase) ChunkContext(ctx context.Context, docID, chunkID string) (*domain.Chunk, error) {
	chunk, err := uc.chunks.GetChunk(ctx, chunkID)
	if err != nil {
		return nil, err
	}
	if chunk.DocumentID != docID {
		return nil, domain.NewError(domain.ErrNotFound, "chunk context", "chunk "+chunkID+" not found")
	}
	return chunk, nil
}
