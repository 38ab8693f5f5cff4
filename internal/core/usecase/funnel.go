package usecase

import (
	"context"
	"fmt"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kirillkom/evidence-assistant/internal/core/domain"
	"github.com/kirillkom/evidence-assistant/internal/core/ports"
)

type FunnelConfig struct {
	TopK       int
	RerankTopK int
	RRFK       int
	Gate       RelevanceGate
}

// FunnelResult is the funnel outcome plus per-stage measurements.
type FunnelResult struct {
	domain.RetrievalOutcome
	Fused  int
	Stages map[string]time.Duration
}

// Funnel runs hybrid search, fusion, rerank and the relevance gate for one
// case-scoped query.
type Funnel struct {
	index    ports.VectorIndex
	encoder  ports.SparseEncoder
	reranker ports.Reranker
	cfg      FunnelConfig
}

func NewFunnel(index ports.VectorIndex, encoder ports.SparseEncoder, reranker ports.Reranker, cfg FunnelConfig) *Funnel {
	if cfg.TopK <= 0 {
		cfg.TopK = 20
	}
	if cfg.RerankTopK <= 0 {
		cfg.RerankTopK = 5
	}
	if cfg.RRFK <= 0 {
		cfg.RRFK = defaultRRFK
	}
	if cfg.Gate == nil {
		cfg.Gate = ThresholdGate{Rerank: 0.4}
	}
	return &Funnel{index: index, encoder: encoder, reranker: reranker, cfg: cfg}
}

// Retrieve returns ranked chunks for caseID, or a no-evidence outcome. A
// topK of zero uses the configured default.
func (f *Funnel) Retrieve(ctx context.Context, caseID, queryText string, queryEmbedding []float32, topK int) (FunnelResult, error) {
	if caseID == "" {
		return FunnelResult{}, domain.NewError(domain.ErrInvalidInput, "retrieve", "case id is required")
	}
	if f.reranker == nil {
		return FunnelResult{}, domain.NewError(domain.ErrConfiguration, "retrieve", "reranker is not configured")
	}
	if topK <= 0 {
		topK = f.cfg.TopK
	}
	out := FunnelResult{Stages: make(map[string]time.Duration, 3)}

	started := time.Now()
	var dense, sparse []domain.RetrievalResult
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		dense, err = f.index.SearchDense(gctx, caseID, queryEmbedding, topK)
		if err != nil {
			return fmt.Errorf("dense search: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		sparse, err = f.index.SearchSparse(gctx, caseID, f.encoder.Encode(queryText), topK)
		if err != nil {
			return fmt.Errorf("sparse search: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return FunnelResult{}, err
	}
	out.Stages["search"] = time.Since(started)

	fused := trimCandidates(fuseCandidatesRRF(f.cfg.RRFK, dense, sparse), topK)
	out.Fused = len(fused)
	if len(fused) == 0 {
		out.NoEvidence = true
		out.Reason = domain.NoEvidenceNoCandidates
		return out, nil
	}

	started = time.Now()
	reranked, err := f.rerank(ctx, queryText, fused)
	if err != nil {
		return FunnelResult{}, err
	}
	out.Stages["rerank"] = time.Since(started)

	if !f.cfg.Gate.Admit(reranked) {
		out.NoEvidence = true
		out.Reason = domain.NoEvidenceBelowThreshold
		return out, nil
	}
	out.Results = reranked
	return out, nil
}

func (f *Funnel) rerank(ctx context.Context, queryText string, fused []domain.RetrievalResult) ([]domain.RetrievalResult, error) {
	topN := f.cfg.RerankTopK
	if topN > len(fused) {
		topN = len(fused)
	}
	documents := make([]string, len(fused))
	for i, r := range fused {
		documents[i] = r.RerankText()
	}

	hits, err := f.reranker.Rerank(ctx, queryText, documents, topN)
	if err != nil {
		return nil, fmt.Errorf("rerank: %w", err)
	}

	out := make([]domain.RetrievalResult, 0, len(hits))
	for _, hit := range hits {
		if hit.Index < 0 || hit.Index >= len(fused) {
			return nil, domain.NewError(domain.ErrUpstream, "rerank", fmt.Sprintf("result index %d out of range", hit.Index))
		}
		r := fused[hit.Index]
		r.RerankScore = hit.Score
		r.Reranked = true
		out = append(out, r)
		if len(out) == topN {
			break
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].RerankScore > out[j].RerankScore
	})
	return out, nil
}
