package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

const schemaLockID = int64(2026101601)

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func EnsureSchema(ctx context.Context, db *sql.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/mcp/cli startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, schemaLockID); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS cases (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS sessions (
	id TEXT PRIMARY KEY,
	case_id TEXT NOT NULL REFERENCES cases(id),
	treatment TEXT NOT NULL DEFAULT 'neutralizer',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS documents (
	id TEXT PRIMARY KEY,
	case_id TEXT NOT NULL REFERENCES cases(id),
	party TEXT NOT NULL CHECK (party IN ('A', 'B')),
	filename TEXT NOT NULL,
	content_type TEXT NOT NULL DEFAULT '',
	page_count INTEGER NOT NULL DEFAULT 0,
	storage_path TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS chunks (
	id TEXT PRIMARY KEY,
	doc_id TEXT NOT NULL REFERENCES documents(id),
	case_id TEXT NOT NULL,
	party TEXT NOT NULL,
	filename TEXT NOT NULL,
	page INTEGER NOT NULL,
	start_char INTEGER NOT NULL,
	end_char INTEGER NOT NULL,
	text TEXT NOT NULL,
	parent_text TEXT NOT NULL DEFAULT '',
	section_title TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS transcript_turns (
	id BIGSERIAL PRIMARY KEY,
	session_id TEXT NOT NULL,
	speaker TEXT NOT NULL,
	text TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_sessions_case_id ON sessions(case_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_documents_case_id ON documents(case_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_chunks_doc_id ON chunks(doc_id);
CREATE INDEX IF NOT EXISTS idx_transcript_turns_session ON transcript_turns(session_id, id);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}
