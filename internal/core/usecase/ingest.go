package usecase

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/kirillkom/evidence-assistant/internal/core/domain"
	"github.com/kirillkom/evidence-assistant/internal/core/ports"
)

const defaultMaxUploadBytes = 50 << 20

type IngestOptions struct {
	MaxUploadBytes int64
	// Enrich prefixes chunk text with filename and section title for the
	// sparse vector and rerank text. Citations keep the raw text.
	Enrich bool
}

type IngestDocumentUseCase struct {
	cases     ports.CaseRepository
	docs      ports.DocumentRepository
	storage   ports.ObjectStorage
	extractor ports.TextExtractor
	chunker   ports.Chunker
	embedder  ports.Embedder
	indexer   *Indexer
	observer  ports.IngestObserver
	opts      IngestOptions
	now       func() time.Time
}

func NewIngestDocumentUseCase(
	cases ports.CaseRepository,
	docs ports.DocumentRepository,
	storage ports.ObjectStorage,
	extractor ports.TextExtractor,
	chunker ports.Chunker,
	embedder ports.Embedder,
	indexer *Indexer,
	observer ports.IngestObserver,
	opts IngestOptions,
) *IngestDocumentUseCase {
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = defaultMaxUploadBytes
	}
	return &IngestDocumentUseCase{
		cases:     cases,
		docs:      docs,
		storage:   storage,
		extractor: extractor,
		chunker:   chunker,
		embedder:  embedder,
		indexer:   indexer,
		observer:  observer,
		opts:      opts,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Upload stores the raw file, then extracts, chunks, embeds and indexes it.
// Document and chunk rows are written together, only after indexing
// succeeds. The stored object uses a sanitized key; the document keeps the
// uploaded name for citations.
func (uc *IngestDocumentUseCase) Upload(
	ctx context.Context,
	caseID, partyRaw, filename string,
	body io.Reader,
) (*domain.Document, error) {
	party, err := domain.ParseParty(partyRaw)
	if err != nil {
		return nil, err
	}
	filename, key := displayFilename(filename), sanitizeFilename(filename)
	if strings.TrimSpace(caseID) == "" {
		return nil, domain.NewError(domain.ErrInvalidInput, "ingest", "case id is required")
	}

	content, err := io.ReadAll(io.LimitReader(body, uc.opts.MaxUploadBytes+1))
	if err != nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "read upload", err)
	}
	if len(content) == 0 {
		return nil, domain.NewError(domain.ErrInvalidInput, "ingest", "empty file")
	}
	if int64(len(content)) > uc.opts.MaxUploadBytes {
		return nil, domain.NewError(domain.ErrTooLarge, "ingest", "file exceeds upload limit")
	}
	contentType, err := uc.extractor.Detect(filename, content)
	if err != nil {
		return nil, err
	}
	if _, err := uc.cases.GetCase(ctx, caseID); err != nil {
		return nil, err
	}

	started := time.Now()
	if uc.observer != nil {
		uc.observer.StartIngest()
	}
	doc, chunkCount, err := uc.ingest(ctx, caseID, party, filename, key, contentType, content)
	if uc.observer != nil {
		status := "ok"
		if err != nil {
			status = "error"
		}
		uc.observer.FinishIngest(status, chunkCount, time.Since(started).Seconds())
	}
	if err != nil {
		slog.Warn("document_ingest_failed", "case_id", caseID, "filename", filename, "error", err)
		return nil, err
	}

	slog.Info("document_ingested",
		"case_id", caseID,
		"doc_id", doc.ID,
		"party", string(party),
		"pages", doc.PageCount,
		"chunks", chunkCount,
		"duration_ms", float64(time.Since(started).Microseconds())/1000.0,
	)
	return doc, nil
}

func (uc *IngestDocumentUseCase) ingest(
	ctx context.Context,
	caseID string,
	party domain.Party,
	filename, key, contentType string,
	content []byte,
) (*domain.Document, int, error) {
	doc := &domain.Document{
		ID:          domain.NewID(),
		CaseID:      caseID,
		Party:       party,
		Filename:    filename,
		ContentType: contentType,
		CreatedAt:   uc.now(),
	}
	doc.StoragePath = fmt.Sprintf("%s/%s_%s", caseID, doc.ID, key)

	if err := uc.storage.Save(ctx, doc.StoragePath, bytes.NewReader(content)); err != nil {
		return nil, 0, fmt.Errorf("save to object storage: %w", err)
	}

	extraction, err := uc.extractor.Extract(ctx, contentType, content)
	if err != nil {
		if domain.IsKind(err, domain.ErrExtraction) {
			return nil, 0, err
		}
		return nil, 0, domain.WrapError(domain.ErrExtraction, "extract "+filename, err)
	}
	if len(extraction.Pages) == 0 {
		return nil, 0, domain.NewError(domain.ErrExtraction, "extract", "no text extracted from "+filename)
	}
	doc.PageCount = extraction.PageCount

	chunks := uc.chunker.Chunk(doc, extraction.Pages)
	if len(chunks) == 0 {
		return nil, 0, domain.NewError(domain.ErrExtraction, "chunk", "no chunks produced from "+filename)
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	embeddings, err := uc.embedder.Embed(ctx, texts)
	if err != nil {
		return nil, len(chunks), fmt.Errorf("embed chunks: %w", err)
	}

	var enriched []string
	if uc.opts.Enrich {
		enriched = make([]string, len(chunks))
		for i, c := range chunks {
			enriched[i] = EnrichChunkText(c)
		}
	}
	if err := uc.indexer.Index(ctx, chunks, embeddings, enriched); err != nil {
		return nil, len(chunks), fmt.Errorf("index chunks: %w", err)
	}

	if err := uc.docs.CreateDocument(ctx, doc, chunks); err != nil {
		return nil, len(chunks), fmt.Errorf("create document metadata: %w", err)
	}
	return doc, len(chunks), nil
}

func (uc *IngestDocumentUseCase) ListDocuments(ctx context.Context, caseID string) ([]domain.Document, error) {
	docs, err := uc.docs.ListDocuments(ctx, caseID)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	return docs, nil
}

// displayFilename drops any client-side directory from name.
func displayFilename(name string) string {
	base := strings.TrimSpace(filepath.Base(strings.ReplaceAll(name, "\\", "/")))
	if base == "" || base == "." || base == ".." || base == "/" {
		return sanitizeFilename(name)
	}
	return base
}

func sanitizeFilename(name string) string {
	base := filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	base = strings.ReplaceAll(base, " ", "_")
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r
		case r >= 'A' && r <= 'Z':
			return r
		case r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, base)
	if base == "" || base == "." || base == ".." {
		return "document.bin"
	}
	return base
}
