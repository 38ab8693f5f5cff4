package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/kirillkom/evidence-assistant/internal/core/domain"
	"github.com/kirillkom/evidence-assistant/internal/core/ports"
)

type CaseUseCase struct {
	cases    ports.CaseRepository
	sessions ports.SessionRepository
	now      func() time.Time
}

func NewCaseUseCase(cases ports.CaseRepository, sessions ports.SessionRepository) *CaseUseCase {
	return &CaseUseCase{
		cases:    cases,
		sessions: sessions,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (uc *CaseUseCase) CreateCase(ctx context.Context, name, description string) (*domain.Case, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, domain.NewError(domain.ErrInvalidInput, "create case", "name is required")
	}
	c := &domain.Case{
		ID:          domain.NewID(),
		Name:        name,
		Description: strings.TrimSpace(description),
		CreatedAt:   uc.now(),
	}
	if err := uc.cases.CreateCase(ctx, c); err != nil {
		return nil, fmt.Errorf("create case: %w", err)
	}
	return c, nil
}

func (uc *CaseUseCase) GetCase(ctx context.Context, id string) (*domain.Case, error) {
	return uc.cases.GetCase(ctx, id)
}

func (uc *CaseUseCase) ListCases(ctx context.Context) ([]domain.Case, error) {
	return uc.cases.ListCases(ctx)
}

func (uc *CaseUseCase) CreateSession(ctx context.Context, caseID, treatment string) (*domain.Session, error) {
	t, err := domain.ParseTreatment(treatment)
	if err != nil {
		return nil, err
	}
	if _, err := uc.cases.GetCase(ctx, caseID); err != nil {
		return nil, err
	}
	s := &domain.Session{
		ID:        domain.NewID(),
		CaseID:    caseID,
		Treatment: t,
		CreatedAt: uc.now(),
	}
	if err := uc.sessions.CreateSession(ctx, s); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return s, nil
}

func (uc *CaseUseCase) GetSession(ctx context.Context, id string) (*domain.Session, error) {
	return uc.sessions.GetSession(ctx, id)
}

func (uc *CaseUseCase) ListSessions(ctx context.Context, caseID string) ([]domain.Session, error) {
	if _, err := uc.cases.GetCase(ctx, caseID); err != nil {
		return nil, err
	}
	return uc.sessions.ListSessions(ctx, caseID)
}
