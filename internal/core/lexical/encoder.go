// Package lexical builds the sparse term-frequency vectors used for the
// keyword half of hybrid search. IDF weighting is applied by the index
// engine at query time, so only raw counts are emitted here.
package lexical

import (
	"hash/fnv"
	"sort"
	"strings"
	"unicode"

	"github.com/kirillkom/evidence-assistant/internal/core/domain"
)

const (
	minTokenLen = 2
	termIDMask  = 0x7fffffff
)

type Encoder struct{}

func NewEncoder() Encoder {
	return Encoder{}
}

// Encode is pure: the same text always yields the same vector, so index-time
// and query-time vectors share one term-id space.
func (Encoder) Encode(text string) domain.SparseVector {
	counts := make(map[uint32]float32, 32)
	for _, token := range Tokenize(text) {
		counts[TermID(token)]++
	}
	if len(counts) == 0 {
		return domain.SparseVector{Indices: []uint32{0}, Values: []float32{0}}
	}

	indices := make([]uint32, 0, len(counts))
	for idx := range counts {
		indices = append(indices, idx)
	}
	sort.Slice(indices, func(i, j int) bool { return indices[i] < indices[j] })

	values := make([]float32, len(indices))
	for i, idx := range indices {
		values[i] = counts[idx]
	}
	return domain.SparseVector{Indices: indices, Values: values}
}

// TermID hashes a token into the 31-bit term space. Colliding terms share an id.
func TermID(token string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(token))
	return h.Sum32() & termIDMask
}

// Tokenize lowercases text and returns maximal runs of word characters
// (letters, digits, underscore) at least two runes long.
func Tokenize(text string) []string {
	if text == "" {
		return nil
	}
	out := make([]string, 0, 32)
	var b strings.Builder
	runes := 0
	flush := func() {
		if runes >= minTokenLen {
			out = append(out, b.String())
		}
		b.Reset()
		runes = 0
	}
	for _, r := range strings.ToLower(text) {
		if isWordRune(r) {
			b.WriteRune(r)
			runes++
			continue
		}
		flush()
	}
	flush()
	return out
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsMark(r)
}
