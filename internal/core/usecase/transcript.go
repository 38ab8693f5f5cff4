package usecase

import (
	"context"
	"log/slog"

	"github.com/kirillkom/evidence-assistant/internal/core/domain"
	"github.com/kirillkom/evidence-assistant/internal/core/ports"
	"github.com/kirillkom/evidence-assistant/internal/core/transcript"
)

// TranscriptUseCase accepts turns for known sessions only.
type TranscriptUseCase struct {
	sessions ports.SessionRepository
	store    *transcript.Store
}

func NewTranscriptUseCase(sessions ports.SessionRepository, store *transcript.Store) *TranscriptUseCase {
	return &TranscriptUseCase{sessions: sessions, store: store}
}

func (uc *TranscriptUseCase) AddTurn(ctx context.Context, sessionID, speaker, text string) ([]domain.Turn, error) {
	if _, err := uc.sessions.GetSession(ctx, sessionID); err != nil {
		return nil, err
	}
	return uc.store.Append(ctx, sessionID, speaker, text)
}

func (uc *TranscriptUseCase) Turns(ctx context.Context, sessionID string) ([]domain.Turn, error) {
	if _, err := uc.sessions.GetSession(ctx, sessionID); err != nil {
		return nil, err
	}
	return uc.store.Recent(ctx, sessionID)
}

func (uc *TranscriptUseCase) Clear(ctx context.Context, sessionID string) error {
	if _, err := uc.sessions.GetSession(ctx, sessionID); err != nil {
		return err
	}
	return uc.store.Clear(ctx, sessionID)
}

// HandleSegment is the transcript feed handler. Invalid segments are logged
// and dropped so one bad message does not stall the feed.
func (uc *TranscriptUseCase) HandleSegment(ctx context.Context, segment ports.TranscriptSegment) error {
	_, err := uc.AddTurn(ctx, segment.SessionID, segment.Speaker, segment.Text)
	if err != nil && (domain.IsKind(err, domain.ErrInvalidInput) || domain.IsKind(err, domain.ErrNotFound)) {
		slog.Warn("transcript_segment_dropped", "session_id", segment.SessionID, "error", err)
		return nil
	}
	return err
}
