package xlsx

import (
	"bytes"
	"context"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/kirillkom/evidence-assistant/internal/core/domain"
)

const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Extractor renders each worksheet as one page: a "# sheet" line followed
// by one tab-separated line per non-empty row.
type Extractor struct{}

func NewExtractor() *Extractor {
	return &Extractor{}
}

func (e *Extractor) Extract(ctx context.Context, content []byte) (domain.Extraction, error) {
	book, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return domain.Extraction{}, domain.WrapError(domain.ErrExtraction, "open workbook", err)
	}
	defer book.Close()

	sheets := book.GetSheetList()
	pages := make([]domain.Page, 0, len(sheets))
	for i, sheet := range sheets {
		if err := ctx.Err(); err != nil {
			return domain.Extraction{}, err
		}
		rows, err := book.GetRows(sheet)
		if err != nil {
			return domain.Extraction{}, domain.WrapError(domain.ErrExtraction, "read sheet "+sheet, err)
		}
		text := renderSheet(sheet, rows)
		if text == "" {
			continue
		}
		pages = append(pages, domain.Page{Number: i + 1, Text: text})
	}
	return domain.Extraction{Pages: pages, PageCount: len(sheets)}, nil
}

func renderSheet(name string, rows [][]string) string {
	var b strings.Builder
	for _, row := range rows {
		cells := make([]string, 0, len(row))
		for _, cell := range row {
			cells = append(cells, strings.TrimSpace(cell))
		}
		line := strings.TrimRight(strings.Join(cells, "\t"), "\t")
		if line == "" {
			continue
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}
	if b.Len() == 0 {
		return ""
	}
	return "# " + name + "\n" + strings.TrimRight(b.String(), "\n")
}
