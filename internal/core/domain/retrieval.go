package domain

// ScoreSource names the stage that produced a result's effective score.
type ScoreSource string

const (
	ScoreSourceFusion ScoreSource = "fusion"
	ScoreSourceRerank ScoreSource = "rerank"
)

// RetrievalResult is a ranked chunk with its relevance evidence.
type RetrievalResult struct {
	Chunk
	EnrichedText string  `json:"enriched_text,omitempty"`
	FusionScore  float64 `json:"score"`
	RerankScore  float64 `json:"rerank_score,omitempty"`
	Reranked     bool    `json:"reranked"`
}

// EffectiveScore prefers the reranker score once reranking happened.
func (r RetrievalResult) EffectiveScore() (float64, ScoreSource) {
	if r.Reranked {
		return r.RerankScore, ScoreSourceRerank
	}
	return r.FusionScore, ScoreSourceFusion
}

// RerankText is the document text sent to the cross-encoder.
func (r RetrievalResult) RerankText() string {
	if r.EnrichedText != "" {
		return r.EnrichedText
	}
	return r.Text
}

// RetrievalOutcome is the terminal state of one funnel run.
type RetrievalOutcome struct {
	Results    []RetrievalResult
	NoEvidence bool
	// Reason is one of the NoEvidence* values when NoEvidence is true.
	Reason string
}

const (
	NoEvidenceNoTranscript   = "no_transcript"
	NoEvidenceNoCandidates   = "no_candidates"
	NoEvidenceBelowThreshold = "below_threshold"
)
