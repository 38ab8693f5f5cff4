package usecase

import "github.com/kirillkom/evidence-assistant/internal/core/domain"

// RelevanceGate decides whether a surviving candidate set is presented at all.
type RelevanceGate interface {
	Admit(results []domain.RetrievalResult) bool
}

// ThresholdGate admits the whole set when at least one result reaches the
// threshold configured for its score source. Rerank and fusion scores come
// from different scales, so each source has its own threshold.
type ThresholdGate struct {
	Rerank float64
	Fusion float64
}

func (g ThresholdGate) Admit(results []domain.RetrievalResult) bool {
	for _, r := range results {
		score, source := r.EffectiveScore()
		if score >= g.threshold(source) {
			return true
		}
	}
	return false
}

func (g ThresholdGate) threshold(source domain.ScoreSource) float64 {
	if source == domain.ScoreSourceRerank {
		return g.Rerank
	}
	return g.Fusion
}
