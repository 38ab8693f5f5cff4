// Package memory is an in-process hybrid index for tests and offline runs.
// Sparse scoring applies the same IDF modifier the Qdrant collection uses.
package memory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/kirillkom/evidence-assistant/internal/core/domain"
)

type Index struct {
	mu        sync.RWMutex
	dimension int
	points    map[string]domain.IndexPoint
}

func New() *Index {
	return &Index{points: make(map[string]domain.IndexPoint)}
}

func (ix *Index) EnsureCollection(_ context.Context, dimension int) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if ix.dimension != 0 && ix.dimension != dimension {
		return domain.NewError(domain.ErrConfiguration, "ensure collection",
			fmt.Sprintf("dimension %d does not match collection dimension %d", dimension, ix.dimension))
	}
	ix.dimension = dimension
	return nil
}

func (ix *Index) Upsert(_ context.Context, points []domain.IndexPoint) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	for _, p := range points {
		if ix.dimension != 0 && len(p.Dense) != ix.dimension {
			return domain.NewError(domain.ErrInvalidInput, "upsert", "dense vector dimension mismatch for "+p.Chunk.ID)
		}
		ix.points[p.ID] = p
	}
	return nil
}

func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.points)
}

func (ix *Index) SearchDense(ctx context.Context, caseID string, vector []float32, limit int) ([]domain.RetrievalResult, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	scored := make([]scoredPoint, 0, len(ix.points))
	for _, p := range ix.points {
		if p.Chunk.CaseID != caseID {
			continue
		}
		scored = append(scored, scoredPoint{point: p, score: cosine(vector, p.Dense)})
	}
	return rank(ctx, scored, limit)
}

func (ix *Index) SearchSparse(ctx context.Context, caseID string, vector domain.SparseVector, limit int) ([]domain.RetrievalResult, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	docFreq := make(map[uint32]int)
	total := 0
	for _, p := range ix.points {
		if p.Chunk.CaseID != caseID {
			continue
		}
		total++
		for i, idx := range p.Sparse.Indices {
			if p.Sparse.Values[i] > 0 {
				docFreq[idx]++
			}
		}
	}

	scored := make([]scoredPoint, 0, total)
	for _, p := range ix.points {
		if p.Chunk.CaseID != caseID {
			continue
		}
		score := sparseDot(vector, p.Sparse, docFreq, total)
		if score <= 0 {
			continue
		}
		scored = append(scored, scoredPoint{point: p, score: score})
	}
	return rank(ctx, scored, limit)
}

type scoredPoint struct {
	point domain.IndexPoint
	score float64
}

func rank(ctx context.Context, scored []scoredPoint, limit int) ([]domain.RetrievalResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].score != scored[j].score {
			return scored[i].score > scored[j].score
		}
		return scored[i].point.Chunk.ID < scored[j].point.Chunk.ID
	})
	if limit > 0 && len(scored) > limit {
		scored = scored[:limit]
	}
	out := make([]domain.RetrievalResult, len(scored))
	for i, s := range scored {
		out[i] = domain.RetrievalResult{
			Chunk:        s.point.Chunk,
			EnrichedText: s.point.EnrichedText,
			FusionScore:  s.score,
		}
	}
	return out, nil
}

func cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// sparseDot scores a document against a query with query-time IDF:
// ln(1 + (N - n + 0.5) / (n + 0.5)).
func sparseDot(query, doc domain.SparseVector, docFreq map[uint32]int, total int) float64 {
	weights := make(map[uint32]float32, len(doc.Indices))
	for i, idx := range doc.Indices {
		weights[idx] = doc.Values[i]
	}
	var score float64
	for i, idx := range query.Indices {
		w, ok := weights[idx]
		if !ok || w == 0 || query.Values[i] == 0 {
			continue
		}
		n := float64(docFreq[idx])
		idf := math.Log(1 + (float64(total)-n+0.5)/(n+0.5))
		score += float64(query.Values[i]) * float64(w) * idf
	}
	return score
}
