package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/kirillkom/evidence-assistant/internal/core/domain"
)

// CaseRepository stores cases and their sessions.
type CaseRepository struct {
	db *sql.DB
}

func NewCaseRepository(db *sql.DB) *CaseRepository {
	return &CaseRepository{db: db}
}

func (r *CaseRepository) CreateCase(ctx context.Context, c *domain.Case) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO cases (id, name, description, created_at)
VALUES ($1,$2,$3,$4)
`, c.ID, c.Name, c.Description, c.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert case: %w", err)
	}
	return nil
}

func (r *CaseRepository) GetCase(ctx context.Context, id string) (*domain.Case, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, name, description, created_at
FROM cases
WHERE id = $1
`, id)

	var c domain.Case
	if err := row.Scan(&c.ID, &c.Name, &c.Description, &c.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NewError(domain.ErrNotFound, "get case", "case not found: "+id)
		}
		return nil, fmt.Errorf("scan case: %w", err)
	}
	return &c, nil
}

func (r *CaseRepository) ListCases(ctx context.Context) ([]domain.Case, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, name, description, created_at
FROM cases
ORDER BY created_at DESC
`)
	if err != nil {
		return nil, fmt.Errorf("list cases: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Case, 0)
	for rows.Next() {
		var c domain.Case
		if err := rows.Scan(&c.ID, &c.Name, &c.Description, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan case: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cases: %w", err)
	}
	return out, nil
}

func (r *CaseRepository) CreateSession(ctx context.Context, s *domain.Session) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO sessions (id, case_id, treatment, created_at)
VALUES ($1,$2,$3,$4)
`, s.ID, s.CaseID, string(s.Treatment), s.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

func (r *CaseRepository) GetSession(ctx context.Context, id string) (*domain.Session, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, case_id, treatment, created_at
FROM sessions
WHERE id = $1
`, id)

	s, err := scanSession(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NewError(domain.ErrNotFound, "get session", "session not found: "+id)
		}
		return nil, fmt.Errorf("scan session: %w", err)
	}
	return &s, nil
}

func (r *CaseRepository) ListSessions(ctx context.Context, caseID string) ([]domain.Session, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, case_id, treatment, created_at
FROM sessions
WHERE case_id = $1
ORDER BY created_at DESC
`, caseID)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Session, 0)
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return out, nil
}

func scanSession(row rowScanner) (domain.Session, error) {
	var s domain.Session
	var treatment string
	if err := row.Scan(&s.ID, &s.CaseID, &treatment, &s.CreatedAt); err != nil {
		return domain.Session{}, err
	}
	s.Treatment = domain.Treatment(treatment)
	return s, nil
}
