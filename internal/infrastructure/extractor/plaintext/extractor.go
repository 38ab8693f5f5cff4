package plaintext

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/kirillkom/evidence-assistant/internal/core/domain"
)

const ContentType = "text/plain"

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Extractor treats a form feed as a page break.
type Extractor struct{}

func NewExtractor() *Extractor {
	return &Extractor{}
}

func (e *Extractor) Extract(_ context.Context, content []byte) (domain.Extraction, error) {
	content = bytes.TrimPrefix(content, utf8BOM)
	if !utf8.Valid(content) {
		return domain.Extraction{}, domain.WrapError(domain.ErrExtraction, "extract plain text", fmt.Errorf("content is not valid UTF-8"))
	}

	raw := strings.Split(strings.ReplaceAll(string(content), "\r\n", "\n"), "\f")
	pages := make([]domain.Page, 0, len(raw))
	for i, text := range raw {
		if strings.TrimSpace(text) == "" {
			continue
		}
		pages = append(pages, domain.Page{Number: i + 1, Text: text})
	}
	return domain.Extraction{Pages: pages, PageCount: len(raw)}, nil
}
