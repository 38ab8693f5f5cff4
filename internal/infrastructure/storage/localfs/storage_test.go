package localfs

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/kirillkom/evidence-assistant/internal/core/domain"
)

func TestSaveAndOpenNestedKey(t *testing.T) {
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	ctx := context.Background()

	if err := store.Save(ctx, "case-1/doc-1_a.txt", strings.NewReader("first")); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := store.Save(ctx, "case-1/doc-1_a.txt", strings.NewReader("second")); err != nil {
		t.Fatalf("Save() overwrite error = %v", err)
	}

	rc, err := store.Open(ctx, "case-1/doc-1_a.txt")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer rc.Close()
	data, _ := io.ReadAll(rc)
	if string(data) != "second" {
		t.Fatalf("expected overwritten content, got %q", data)
	}
}

func TestOpenMissingKeyIsNotFound(t *testing.T) {
	store, _ := New(t.TempDir())
	if _, err := store.Open(context.Background(), "case-1/missing.pdf"); !domain.IsKind(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestKeysCannotEscapeBase(t *testing.T) {
	store, _ := New(t.TempDir())
	for _, key := range []string{"../outside.txt", "a/../../x", "/etc/passwd", "", "."} {
		if err := store.Save(context.Background(), key, strings.NewReader("x")); !domain.IsKind(err, domain.ErrInvalidInput) {
			t.Fatalf("key %q: expected invalid input, got %v", key, err)
		}
	}
}
