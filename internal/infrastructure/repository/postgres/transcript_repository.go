package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/kirillkom/evidence-assistant/internal/core/domain"
)

// TranscriptRepository is the durable raw-turn log replayed on buffer
// rehydration.
type TranscriptRepository struct {
	db *sql.DB
}

func NewTranscriptRepository(db *sql.DB) *TranscriptRepository {
	return &TranscriptRepository{db: db}
}

func (r *TranscriptRepository) AppendTurn(ctx context.Context, turn domain.RawTurn) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO transcript_turns (session_id, speaker, text, created_at)
VALUES ($1,$2,$3,$4)
`, turn.SessionID, turn.Speaker, turn.Text, turn.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert transcript turn: %w", err)
	}
	return nil
}

func (r *TranscriptRepository) ListTurns(ctx context.Context, sessionID string) ([]domain.RawTurn, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT session_id, speaker, text, created_at
FROM transcript_turns
WHERE session_id = $1
ORDER BY id ASC
`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list transcript turns: %w", err)
	}
	defer rows.Close()

	out := make([]domain.RawTurn, 0)
	for rows.Next() {
		var t domain.RawTurn
		if err := rows.Scan(&t.SessionID, &t.Speaker, &t.Text, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan transcript turn: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transcript turns: %w", err)
	}
	return out, nil
}

func (r *TranscriptRepository) ClearTurns(ctx context.Context, sessionID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM transcript_turns WHERE session_id = $1`, sessionID); err != nil {
		return fmt.Errorf("clear transcript turns: %w", err)
	}
	return nil
}
