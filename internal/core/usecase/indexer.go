package usecase

import (
	"context"
	"fmt"

	"github.com/kirillkom/evidence-assistant/internal/core/domain"
	"github.com/kirillkom/evidence-assistant/internal/core/ports"
)

const defaultUpsertBatch = 100

// Indexer projects chunks into hybrid index points. Re-indexing a chunk id
// overwrites the same point.
type Indexer struct {
	index     ports.VectorIndex
	encoder   ports.SparseEncoder
	batchSize int
}

func NewIndexer(index ports.VectorIndex, encoder ports.SparseEncoder, batchSize int) *Indexer {
	if batchSize <= 0 {
		batchSize = defaultUpsertBatch
	}
	return &Indexer{index: index, encoder: encoder, batchSize: batchSize}
}

// Index writes one point per chunk. enriched may be nil; when present it
// replaces the chunk text for the sparse vector.
func (ix *Indexer) Index(ctx context.Context, chunks []domain.Chunk, embeddings [][]float32, enriched []string) error {
	if len(chunks) != len(embeddings) {
		return domain.NewError(domain.ErrInvalidInput, "index chunks",
			fmt.Sprintf("chunks/embeddings mismatch: %d != %d", len(chunks), len(embeddings)))
	}
	if enriched != nil && len(enriched) != len(chunks) {
		return domain.NewError(domain.ErrInvalidInput, "index chunks",
			fmt.Sprintf("chunks/enriched mismatch: %d != %d", len(chunks), len(enriched)))
	}
	if len(chunks) == 0 {
		return nil
	}

	if err := ix.index.EnsureCollection(ctx, len(embeddings[0])); err != nil {
		return fmt.Errorf("ensure collection: %w", err)
	}

	points := BuildPoints(ix.encoder, chunks, embeddings, enriched)
	for start := 0; start < len(points); start += ix.batchSize {
		end := start + ix.batchSize
		if end > len(points) {
			end = len(points)
		}
		if err := ix.index.Upsert(ctx, points[start:end]); err != nil {
			return fmt.Errorf("upsert points %d-%d of %d: %w", start, end, len(points), err)
		}
	}
	return nil
}

func BuildPoints(encoder ports.SparseEncoder, chunks []domain.Chunk, embeddings [][]float32, enriched []string) []domain.IndexPoint {
	points := make([]domain.IndexPoint, len(chunks))
	for i, chunk := range chunks {
		text := chunk.Text
		if enriched != nil {
			text = enriched[i]
		}
		points[i] = domain.IndexPoint{
			ID:           domain.PointID(chunk.ID),
			Dense:        embeddings[i],
			Sparse:       encoder.Encode(text),
			Chunk:        chunk,
			EnrichedText: text,
		}
	}
	return points
}

// EnrichChunkText prefixes a chunk with its document and section context.
func EnrichChunkText(chunk domain.Chunk) string {
	prefix := chunk.Filename
	if chunk.SectionTitle != "" {
		prefix += " | " + chunk.SectionTitle
	}
	if prefix == "" {
		return chunk.Text
	}
	return prefix + "\n" + chunk.Text
}
