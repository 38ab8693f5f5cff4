package domain

import (
	"crypto/sha256"

	"github.com/google/uuid"
)

// SparseVector holds term ids sorted ascending with their weights.
type SparseVector struct {
	Indices []uint32  `json:"indices"`
	Values  []float32 `json:"values"`
}

func (v SparseVector) Len() int {
	return len(v.Indices)
}

// IndexPoint is the hybrid-index projection of a chunk.
type IndexPoint struct {
	ID           string
	Dense        []float32
	Sparse       SparseVector
	Chunk        Chunk
	EnrichedText string
}

// PointID maps a chunk id onto a stable UUID-shaped point id.
func PointID(chunkID string) string {
	sum := sha256.Sum256([]byte(chunkID))
	id, _ := uuid.FromBytes(sum[:16])
	return id.String()
}
