package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/kirillkom/evidence-assistant/internal/core/domain"
	"github.com/kirillkom/evidence-assistant/internal/core/ports"
	"github.com/kirillkom/evidence-assistant/internal/core/transcript"
)

// TranscriptWindows supplies the generation context and the shorter query
// window for a session.
type TranscriptWindows interface {
	Recent(ctx context.Context, sessionID string) ([]domain.Turn, error)
	QueryWindow(ctx context.Context, sessionID string) ([]domain.Turn, error)
}

type ChallengeUseCase struct {
	sessions    ports.SessionRepository
	transcripts TranscriptWindows
	embedder    ports.Embedder
	funnel      *Funnel
	synthesizer *Synthesizer
	observer    ports.ChallengeObserver
}

func NewChallengeUseCase(
	sessions ports.SessionRepository,
	transcripts TranscriptWindows,
	embedder ports.Embedder,
	funnel *Funnel,
	synthesizer *Synthesizer,
	observer ports.ChallengeObserver,
) *ChallengeUseCase {
	return &ChallengeUseCase{
		sessions:    sessions,
		transcripts: transcripts,
		embedder:    embedder,
		funnel:      funnel,
		synthesizer: synthesizer,
		observer:    observer,
	}
}

// Run retrieves and summarizes evidence for the current discussion in a
// session. "No evidence" is a successful outcome, not an error.
func (uc *ChallengeUseCase) Run(ctx context.Context, sessionID string) (domain.ChallengeResponse, error) {
	started := time.Now()
	session, err := uc.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return domain.ChallengeResponse{}, err
	}

	full, err := uc.transcripts.Recent(ctx, session.ID)
	if err != nil {
		return domain.ChallengeResponse{}, fmt.Errorf("load transcript: %w", err)
	}
	if len(full) == 0 {
		uc.finish(session, domain.NoEvidenceNoTranscript, 0, 0, nil, started)
		return domain.NoEvidenceResponse(session.Treatment, ""), nil
	}
	queryTurns, err := uc.transcripts.QueryWindow(ctx, session.ID)
	if err != nil {
		return domain.ChallengeResponse{}, fmt.Errorf("load query window: %w", err)
	}
	queryText := transcript.Format(queryTurns)
	transcriptContext := transcript.Format(full)

	embedStarted := time.Now()
	queryEmbedding, err := uc.embedder.EmbedQuery(ctx, queryText)
	if err != nil {
		return domain.ChallengeResponse{}, fmt.Errorf("embed query: %w", err)
	}
	embedElapsed := time.Since(embedStarted)

	retrieved, err := uc.funnel.Retrieve(ctx, session.CaseID, queryText, queryEmbedding, 0)
	if err != nil {
		return domain.ChallengeResponse{}, err
	}
	retrieved.Stages["embed"] = embedElapsed
	if retrieved.NoEvidence {
		uc.finish(session, retrieved.Reason, retrieved.Fused, 0, retrieved.Stages, started)
		return domain.NoEvidenceResponse(session.Treatment, queryText), nil
	}

	generateStarted := time.Now()
	resp, err := uc.synthesizer.Synthesize(ctx, session.Treatment, queryText, transcriptContext, retrieved.Results)
	if err != nil {
		return domain.ChallengeResponse{}, err
	}
	retrieved.Stages["generate"] = time.Since(generateStarted)

	uc.finish(session, "evidence", retrieved.Fused, len(retrieved.Results), retrieved.Stages, started)
	return resp, nil
}

func (uc *ChallengeUseCase) finish(
	session *domain.Session,
	outcome string,
	fused, reranked int,
	stages map[string]time.Duration,
	started time.Time,
) {
	seconds := make(map[string]float64, len(stages))
	for stage, d := range stages {
		seconds[stage] = d.Seconds()
	}
	if uc.observer != nil {
		uc.observer.ObserveChallenge(session.Treatment, outcome, fused, reranked, seconds)
	}
	slog.Info("challenge_completed",
		"session_id", session.ID,
		"case_id", session.CaseID,
		"treatment", string(session.Treatment),
		"outcome", outcome,
		"fused", fused,
		"reranked", reranked,
		"duration_ms", float64(time.Since(started).Microseconds())/1000.0,
	)
}
