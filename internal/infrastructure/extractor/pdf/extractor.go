package pdf

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/kirillkom/evidence-assistant/internal/core/domain"
)

const ContentType = "application/pdf"

// Extractor reads the text layer of each page. Image-only pages have no
// text and are skipped.
type Extractor struct{}

func NewExtractor() *Extractor {
	return &Extractor{}
}

func (e *Extractor) Extract(ctx context.Context, content []byte) (out domain.Extraction, err error) {
	// The parser panics on some malformed files.
	defer func() {
		if r := recover(); r != nil {
			out = domain.Extraction{}
			err = domain.WrapError(domain.ErrExtraction, "extract pdf", fmt.Errorf("malformed pdf: %v", r))
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return domain.Extraction{}, domain.WrapError(domain.ErrExtraction, "extract pdf", err)
	}

	total := reader.NumPage()
	pages := make([]domain.Page, 0, total)
	for i := 1; i <= total; i++ {
		if err := ctx.Err(); err != nil {
			return domain.Extraction{}, err
		}
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return domain.Extraction{}, domain.WrapError(domain.ErrExtraction, fmt.Sprintf("extract pdf page %d", i), err)
		}
		if strings.TrimSpace(text) == "" {
			continue
		}
		pages = append(pages, domain.Page{Number: i, Text: text})
	}
	return domain.Extraction{Pages: pages, PageCount: total}, nil
}
