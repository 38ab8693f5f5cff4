package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/kirillkom/evidence-assistant/internal/core/domain"
)

// DocumentRepository stores document metadata and the chunk rows used for
// citation lookups.
type DocumentRepository struct {
	db *sql.DB
}

func NewDocumentRepository(db *sql.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

// CreateDocument writes the document row and all of its chunks in one
// transaction. Re-ingesting a chunk id refreshes its text.
func (r *DocumentRepository) CreateDocument(ctx context.Context, doc *domain.Document, chunks []domain.Chunk) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin document tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `
INSERT INTO documents (id, case_id, party, filename, content_type, page_count, storage_path, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
`, doc.ID, doc.CaseID, string(doc.Party), doc.Filename, doc.ContentType, doc.PageCount, doc.StoragePath, doc.CreatedAt); err != nil {
		return fmt.Errorf("insert document: %w", err)
	}
	if err := insertChunks(ctx, tx, chunks); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit document tx: %w", err)
	}
	return nil
}

func (r *DocumentRepository) GetDocument(ctx context.Context, id string) (*domain.Document, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, case_id, party, filename, content_type, page_count, storage_path, created_at
FROM documents
WHERE id = $1
`, id)

	doc, err := scanDocument(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NewError(domain.ErrNotFound, "get document", "document not found: "+id)
		}
		return nil, fmt.Errorf("scan document: %w", err)
	}
	return &doc, nil
}

func (r *DocumentRepository) ListDocuments(ctx context.Context, caseID string) ([]domain.Document, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, case_id, party, filename, content_type, page_count, storage_path, created_at
FROM documents
WHERE case_id = $1
ORDER BY created_at DESC
`, caseID)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Document, 0)
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		out = append(out, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}
	return out, nil
}

func insertChunks(ctx context.Context, tx *sql.Tx, chunks []domain.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO chunks (id, doc_id, case_id, party, filename, page, start_char, end_char, text, parent_text, section_title)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
ON CONFLICT (id) DO UPDATE SET text = EXCLUDED.text
`)
	if err != nil {
		return fmt.Errorf("prepare chunk insert: %w", err)
	}
	defer stmt.Close()

	for _, c := range chunks {
		if _, err := stmt.ExecContext(ctx,
			c.ID, c.DocumentID, c.CaseID, string(c.Party), c.Filename, c.Page,
			c.StartChar, c.EndChar, c.Text, c.ParentText, c.SectionTitle,
		); err != nil {
			return fmt.Errorf("insert chunk %s: %w", c.ID, err)
		}
	}
	return nil
}

func (r *DocumentRepository) GetChunk(ctx context.Context, id string) (*domain.Chunk, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, doc_id, case_id, party, filename, page, start_char, end_char, text, parent_text, section_title
FROM chunks
WHERE id = $1
`, id)

	var c domain.Chunk
	var party string
	err := row.Scan(
		&c.ID, &c.DocumentID, &c.CaseID, &party, &c.Filename, &c.Page,
		&c.StartChar, &c.EndChar, &c.Text, &c.ParentText, &c.SectionTitle,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NewError(domain.ErrNotFound, "get chunk", "chunk not found: "+id)
		}
		return nil, fmt.Errorf("scan chunk: %w", err)
	}
	c.Party = domain.Party(party)
	return &c, nil
}

func scanDocument(row rowScanner) (domain.Document, error) {
	var doc domain.Document
	var party string
	err := row.Scan(
		&doc.ID, &doc.CaseID, &party, &doc.Filename, &doc.ContentType,
		&doc.PageCount, &doc.StoragePath, &doc.CreatedAt,
	)
	if err != nil {
		return domain.Document{}, err
	}
	doc.Party = domain.Party(party)
	return doc, nil
}
