// Package tokens counts tokens for transcript turns.
package tokens

import (
	"fmt"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
)

const DefaultEncoding = "cl100k_base"

// Counter counts with a tiktoken encoding and falls back to a
// characters-per-four estimate when no encoding is loaded.
type Counter struct {
	encoding string
	tke      *tiktoken.Tiktoken
}

// NewCounter resolves an encoding name, then a model name. The BPE ranks
// are fetched on first use unless TIKTOKEN_CACHE_DIR already holds them.
func NewCounter(modelOrEncoding string) (*Counter, error) {
	if modelOrEncoding == "" {
		modelOrEncoding = DefaultEncoding
	}
	tke, err := tiktoken.GetEncoding(modelOrEncoding)
	if err != nil {
		var modelErr error
		tke, modelErr = tiktoken.EncodingForModel(modelOrEncoding)
		if modelErr != nil {
			return nil, fmt.Errorf("load tiktoken encoding %q: %w", modelOrEncoding, err)
		}
	}
	return &Counter{encoding: modelOrEncoding, tke: tke}, nil
}

// Estimate returns a counter that never loads an encoding.
func Estimate() *Counter {
	return &Counter{encoding: "estimate"}
}

func (c *Counter) Encoding() string {
	return c.encoding
}

func (c *Counter) CountTokens(text string) int {
	if text == "" {
		return 0
	}
	if c == nil || c.tke == nil {
		return estimate(text)
	}
	return len(c.tke.Encode(text, nil, nil))
}

func estimate(text string) int {
	return (utf8.RuneCountInString(text) + 3) / 4
}
