package localfs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/kirillkom/evidence-assistant/internal/core/domain"
)

// Storage keeps raw uploads on disk under basePath. Keys are slash
// separated and may not escape the base directory.
type Storage struct {
	basePath string
}

func New(basePath string) (*Storage, error) {
	if basePath == "" {
		basePath = "./data/storage"
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	return &Storage{basePath: basePath}, nil
}

// Save writes through a temp file and renames it into place, so a repeated
// save of the same key replaces the file whole.
func (s *Storage) Save(_ context.Context, key string, data io.Reader) error {
	path, err := s.resolve(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create object dir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".upload-*")
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, data); err != nil {
		tmp.Close()
		return fmt.Errorf("write file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("move file into place: %w", err)
	}
	return nil
}

func (s *Storage) Open(_ context.Context, key string) (io.ReadCloser, error) {
	path, err := s.resolve(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, domain.WrapError(domain.ErrNotFound, "open object", err)
		}
		return nil, fmt.Errorf("open file: %w", err)
	}
	return f, nil
}

func (s *Storage) resolve(key string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(strings.TrimSpace(key)))
	if clean == "." || filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", domain.NewError(domain.ErrInvalidInput, "resolve object key", "invalid key "+key)
	}
	return filepath.Join(s.basePath, clean), nil
}
