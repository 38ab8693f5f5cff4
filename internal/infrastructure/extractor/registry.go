// Package extractor picks a page extractor by detected file type.
package extractor

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/kirillkom/evidence-assistant/internal/core/domain"
	"github.com/kirillkom/evidence-assistant/internal/infrastructure/extractor/pdf"
	"github.com/kirillkom/evidence-assistant/internal/infrastructure/extractor/plaintext"
	"github.com/kirillkom/evidence-assistant/internal/infrastructure/extractor/xlsx"
)

type PageExtractor interface {
	Extract(ctx context.Context, content []byte) (domain.Extraction, error)
}

type Registry struct {
	extractors map[string]PageExtractor
}

func NewRegistry() *Registry {
	return &Registry{extractors: map[string]PageExtractor{
		pdf.ContentType:       pdf.NewExtractor(),
		xlsx.ContentType:      xlsx.NewExtractor(),
		plaintext.ContentType: plaintext.NewExtractor(),
	}}
}

// Detect sniffs the content and walks up the MIME hierarchy, so text/csv
// and friends resolve to text/plain. A zip container is only accepted as a
// workbook when the filename says so.
func (r *Registry) Detect(filename string, content []byte) (string, error) {
	if len(content) == 0 {
		return "", domain.NewError(domain.ErrInvalidInput, "detect content type", "file is empty")
	}
	detected := mimetype.Detect(content)
	for mt := detected; mt != nil; mt = mt.Parent() {
		for contentType := range r.extractors {
			if mt.Is(contentType) {
				return contentType, nil
			}
		}
	}
	if detected.Is("application/zip") && strings.EqualFold(filepath.Ext(filename), ".xlsx") {
		return xlsx.ContentType, nil
	}
	return "", domain.WrapError(domain.ErrInvalidInput, "detect content type",
		fmt.Errorf("unsupported file type %s", detected.String()))
}

func (r *Registry) Extract(ctx context.Context, contentType string, content []byte) (domain.Extraction, error) {
	ext, ok := r.extractors[contentType]
	if !ok {
		return domain.Extraction{}, domain.NewError(domain.ErrInvalidInput, "extract", "unsupported content type "+contentType)
	}
	return ext.Extract(ctx, content)
}
