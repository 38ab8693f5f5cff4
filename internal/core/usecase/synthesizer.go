package usecase

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/kirillkom/evidence-assistant/internal/core/domain"
	"github.com/kirillkom/evidence-assistant/internal/core/ports"
)

// Synthesizer turns gated results into a treatment-specific response.
type Synthesizer struct {
	generator ports.Generator
}

func NewSynthesizer(generator ports.Generator) *Synthesizer {
	return &Synthesizer{generator: generator}
}

func (s *Synthesizer) Synthesize(
	ctx context.Context,
	treatment domain.Treatment,
	queryText, transcriptContext string,
	results []domain.RetrievalResult,
) (domain.ChallengeResponse, error) {
	if treatment == domain.TreatmentSideBySide {
		return s.SideBySide(ctx, queryText, transcriptContext, results)
	}
	return s.Merged(ctx, queryText, transcriptContext, results)
}

func (s *Synthesizer) Merged(ctx context.Context, queryText, transcriptContext string, results []domain.RetrievalResult) (domain.ChallengeResponse, error) {
	summary, err := s.generator.Complete(ctx, mergedSystemPrompt, mergedUserPrompt(transcriptContext, formatEvidence(results)))
	if err != nil {
		return domain.ChallengeResponse{}, fmt.Errorf("generate merged summary: %w", err)
	}
	return domain.ChallengeResponse{
		Treatment: domain.TreatmentMerged,
		QueryUsed: queryText,
		Merged: &domain.MergedEvidence{
			Summary:   summary,
			Citations: buildCitations(results),
		},
	}, nil
}

// SideBySide generates one summary per party concurrently. A party without
// results gets a fixed message and no generator call.
func (s *Synthesizer) SideBySide(ctx context.Context, queryText, transcriptContext string, results []domain.RetrievalResult) (domain.ChallengeResponse, error) {
	var partyA, partyB []domain.RetrievalResult
	for _, r := range results {
		switch r.Party {
		case domain.PartyA:
			partyA = append(partyA, r)
		case domain.PartyB:
			partyB = append(partyB, r)
		}
	}

	var evidence domain.SideBySideEvidence
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		evidence.PartyA, err = s.partySummary(gctx, transcriptContext, string(domain.PartyA), partyA)
		return err
	})
	g.Go(func() error {
		var err error
		evidence.PartyB, err = s.partySummary(gctx, transcriptContext, string(domain.PartyB), partyB)
		return err
	})
	if err := g.Wait(); err != nil {
		return domain.ChallengeResponse{}, err
	}

	return domain.ChallengeResponse{
		Treatment:  domain.TreatmentSideBySide,
		QueryUsed:  queryText,
		SideBySide: &evidence,
	}, nil
}

func (s *Synthesizer) partySummary(ctx context.Context, transcriptContext, label string, results []domain.RetrievalResult) (domain.PartyEvidence, error) {
	if len(results) == 0 {
		return domain.PartyEvidence{Summary: noPartyEvidence(label), Citations: []domain.Citation{}}, nil
	}
	summary, err := s.generator.Complete(ctx, sideBySideSystemPrompt, partyUserPrompt(transcriptContext, label, formatEvidence(results)))
	if err != nil {
		return domain.PartyEvidence{}, fmt.Errorf("generate party %s summary: %w", label, err)
	}
	return domain.PartyEvidence{Summary: summary, Citations: buildCitations(results)}, nil
}

func formatEvidence(results []domain.RetrievalResult) string {
	parts := make([]string, 0, len(results))
	for _, r := range results {
		filename := r.Filename
		if filename == "" {
			filename = "Doc"
		}
		parts = append(parts, fmt.Sprintf("[%s, p.%d]\n%s", filename, r.Page, r.GenerationText()))
	}
	return strings.Join(parts, evidenceDivider)
}

func buildCitations(results []domain.RetrievalResult) []domain.Citation {
	out := make([]domain.Citation, 0, len(results))
	for _, r := range results {
		name := r.Filename
		if name == "" {
			name = "Unknown"
		}
		out = append(out, domain.Citation{
			ChunkID: r.ID,
			DocName: name,
			Page:    r.Page,
			Snippet: truncateRunes(r.Text, snippetRunes),
		})
	}
	return out
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
