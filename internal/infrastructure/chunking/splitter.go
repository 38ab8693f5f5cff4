package chunking

import (
	"strings"
	"unicode"
)

const (
	minBreakSearchLen = 50
	breakMidpoint     = 0.5
)

// span is a window over a section, in rune offsets.
type span struct {
	start int
	end   int
	text  string
}

// Splitter slides a window of ChunkSize runes across a section, stepping back
// by Overlap runes after each window.
type Splitter struct {
	ChunkSize int
	Overlap   int
}

func NewSplitter(chunkSize, overlap int) *Splitter {
	if chunkSize <= 0 {
		chunkSize = 1200
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= chunkSize {
		overlap = chunkSize / 4
	}
	return &Splitter{
		ChunkSize: chunkSize,
		Overlap:   overlap,
	}
}

// Split returns windows over section. Offsets are relative to section, and
// every span text is section[start:end] trimmed and non-empty.
func (s *Splitter) Split(section string) []span {
	runes := []rune(section)
	if len(runes) == 0 {
		return nil
	}
	if len(runes) <= s.ChunkSize {
		text := strings.TrimSpace(section)
		if text == "" {
			return nil
		}
		return []span{{start: 0, end: len(runes), text: text}}
	}

	out := make([]span, 0, len(runes)/s.ChunkSize+1)
	start := 0
	for start < len(runes) {
		end := start + s.ChunkSize
		if end > len(runes) {
			end = len(runes)
		}
		window := runes[start:end]

		if end < len(runes) && len(window) > minBreakSearchLen {
			breakAt := lastBreak(window)
			if float64(breakAt) > float64(len(window))*breakMidpoint {
				end = start + breakAt + 1
				window = runes[start:end]
			}
		}

		if text := strings.TrimSpace(string(window)); text != "" {
			out = append(out, span{start: start, end: end, text: text})
		}

		if end >= len(runes) {
			break
		}
		next := end - s.Overlap
		if next < 0 {
			next = 0
		}
		if next <= start {
			break
		}
		start = next
	}
	return out
}

// lastBreak finds the last ". " or line break in window, or -1.
func lastBreak(window []rune) int {
	period := -1
	for i := len(window) - 2; i >= 0; i-- {
		if window[i] == '.' && window[i+1] == ' ' {
			period = i
			break
		}
	}
	newline := -1
	for i := len(window) - 1; i >= 0; i-- {
		if window[i] == '\n' {
			newline = i
			break
		}
	}
	if newline > period {
		return newline
	}
	return period
}

func isUpper(s string) bool {
	cased := false
	for _, r := range s {
		if unicode.IsLower(r) {
			return false
		}
		if unicode.IsUpper(r) || unicode.IsTitle(r) {
			cased = true
		}
	}
	return cased
}

// isTitle reports whether every word starts with an upper-case rune followed
// only by lower-case runes.
func isTitle(s string) bool {
	cased := false
	prevCased := false
	for _, r := range s {
		switch {
		case unicode.IsUpper(r) || unicode.IsTitle(r):
			if prevCased {
				return false
			}
			prevCased = true
			cased = true
		case unicode.IsLower(r):
			if !prevCased {
				return false
			}
			prevCased = true
			cased = true
		default:
			prevCased = false
		}
	}
	return cased
}
