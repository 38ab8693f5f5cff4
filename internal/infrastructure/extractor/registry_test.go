package extractor

import (
	"context"
	"testing"

	"github.com/kirillkom/evidence-assistant/internal/core/domain"
	"github.com/kirillkom/evidence-assistant/internal/infrastructure/extractor/pdf"
	"github.com/kirillkom/evidence-assistant/internal/infrastructure/extractor/plaintext"
)

func TestDetect(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		content  []byte
		want     string
		wantKind error
	}{
		{name: "pdf header", filename: "a.pdf", content: []byte("%PDF-1.7\n%âãÏÓ\n"), want: pdf.ContentType},
		{name: "plain text", filename: "notes.txt", content: []byte("The parties agreed on a delivery date."), want: plaintext.ContentType},
		{name: "csv resolves to text", filename: "t.csv", content: []byte("a,b,c\n1,2,3\n4,5,6\n"), want: plaintext.ContentType},
		{name: "png rejected", filename: "scan.png", content: []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), wantKind: domain.ErrInvalidInput},
		{name: "empty rejected", filename: "x.txt", content: nil, wantKind: domain.ErrInvalidInput},
	}

	registry := NewRegistry()
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := registry.Detect(tc.filename, tc.content)
			if tc.wantKind != nil {
				if !domain.IsKind(err, tc.wantKind) {
					t.Fatalf("expected %v, got %v (type %q)", tc.wantKind, err, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("Detect() error = %v", err)
			}
			if got != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, got)
			}
		})
	}
}

func TestExtractDispatchesByContentType(t *testing.T) {
	registry := NewRegistry()
	got, err := registry.Extract(context.Background(), plaintext.ContentType, []byte("one\ftwo"))
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if got.PageCount != 2 || len(got.Pages) != 2 {
		t.Fatalf("unexpected extraction %+v", got)
	}

	if _, err := registry.Extract(context.Background(), "image/png", []byte("x")); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}
