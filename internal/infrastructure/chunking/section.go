// Package chunking splits extracted pages into overlapping, section-aware
// passages.
package chunking

import (
	"strings"
	"unicode/utf8"

	"github.com/kirillkom/evidence-assistant/internal/core/domain"
)

const maxHeadingLen = 120

type SectionChunker struct {
	splitter *Splitter
}

// NewSectionChunker sizes chunks in tokens and converts them to characters
// with charsPerToken. overlapPct is a fraction of the character chunk size.
func NewSectionChunker(sizeTokens, charsPerToken int, overlapPct float64) *SectionChunker {
	if charsPerToken <= 0 {
		charsPerToken = 4
	}
	size := sizeTokens * charsPerToken
	if overlapPct < 0 || overlapPct >= 1 {
		overlapPct = 0
	}
	return &SectionChunker{splitter: NewSplitter(size, int(float64(size)*overlapPct))}
}

func (c *SectionChunker) ChunkSize() int {
	return c.splitter.ChunkSize
}

func (c *SectionChunker) Chunk(doc *domain.Document, pages []domain.Page) []domain.Chunk {
	out := make([]domain.Chunk, 0, len(pages)*2)
	for _, page := range pages {
		out = c.chunkPage(out, doc, page)
	}
	return out
}

func (c *SectionChunker) chunkPage(out []domain.Chunk, doc *domain.Document, page domain.Page) []domain.Chunk {
	text := strings.ReplaceAll(page.Text, "\r\n", "\n")

	var section strings.Builder
	title := ""
	for _, raw := range strings.Split(text, "\n\n") {
		para := strings.TrimSpace(raw)
		if para == "" {
			continue
		}
		if isHeading(para) {
			if strings.TrimSpace(section.String()) != "" {
				out = c.flush(out, doc, page.Number, section.String(), title)
			}
			section.Reset()
			title = para
			continue
		}

		section.WriteString(para)
		section.WriteString("\n\n")

		if utf8.RuneCountInString(section.String()) >= c.splitter.ChunkSize*2 {
			out = c.flush(out, doc, page.Number, section.String(), title)
			section.Reset()
		}
	}
	if strings.TrimSpace(section.String()) != "" {
		out = c.flush(out, doc, page.Number, section.String(), title)
	}
	return out
}

func (c *SectionChunker) flush(out []domain.Chunk, doc *domain.Document, pageNumber int, raw, title string) []domain.Chunk {
	parent := strings.TrimSpace(raw)
	for _, s := range c.splitter.Split(parent) {
		out = append(out, domain.Chunk{
			ID:           domain.ChunkID(doc.ID, pageNumber, s.start, s.end),
			DocumentID:   doc.ID,
			CaseID:       doc.CaseID,
			Party:        doc.Party,
			Filename:     doc.Filename,
			Page:         pageNumber,
			StartChar:    s.start,
			EndChar:      s.end,
			Text:         s.text,
			ParentText:   parent,
			SectionTitle: title,
		})
	}
	return out
}

// isHeading matches single short lines in upper or title case that do not
// end a sentence.
func isHeading(para string) bool {
	if strings.Contains(para, "\n") {
		return false
	}
	if utf8.RuneCountInString(para) >= maxHeadingLen {
		return false
	}
	if strings.HasSuffix(para, ".") {
		return false
	}
	return isUpper(para) || isTitle(para)
}
