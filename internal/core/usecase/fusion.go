package usecase

import (
	"sort"

	"github.com/kirillkom/evidence-assistant/internal/core/domain"
)

const defaultRRFK = 60

type fusedCandidate struct {
	result domain.RetrievalResult
	score  float64
}

// fuseCandidatesRRF merges ranked lists with Reciprocal Rank Fusion: each
// list contributes 1/(k+rank) with a 1-based rank. Ties break on chunk id.
func fuseCandidatesRRF(rrfK int, lists ...[]domain.RetrievalResult) []domain.RetrievalResult {
	if rrfK <= 0 {
		rrfK = defaultRRFK
	}

	size := 0
	for _, list := range lists {
		size += len(list)
	}
	acc := make(map[string]fusedCandidate, size)
	for _, list := range lists {
		seen := make(map[string]struct{}, len(list))
		for i, result := range list {
			key := result.ID
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}

			candidate := acc[key]
			candidate.result = preferRicherResult(candidate.result, result)
			candidate.score += 1.0 / float64(rrfK+i+1)
			acc[key] = candidate
		}
	}

	out := make([]domain.RetrievalResult, 0, len(acc))
	for _, c := range acc {
		result := c.result
		result.FusionScore = c.score
		result.RerankScore = 0
		result.Reranked = false
		out = append(out, result)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].FusionScore != out[j].FusionScore {
			return out[i].FusionScore > out[j].FusionScore
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func trimCandidates(results []domain.RetrievalResult, limit int) []domain.RetrievalResult {
	if limit <= 0 || len(results) <= limit {
		return results
	}
	return results[:limit]
}

func preferRicherResult(current, candidate domain.RetrievalResult) domain.RetrievalResult {
	if current.ID == "" {
		return candidate
	}
	if current.Text == "" {
		current.Text = candidate.Text
	}
	if current.ParentText == "" {
		current.ParentText = candidate.ParentText
	}
	if current.EnrichedText == "" {
		current.EnrichedText = candidate.EnrichedText
	}
	if current.SectionTitle == "" {
		current.SectionTitle = candidate.SectionTitle
	}
	if current.Filename == "" {
		current.Filename = candidate.Filename
	}
	return current
}
