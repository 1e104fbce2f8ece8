package storage

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
)

// ErrNotFound is returned by every driver when the requested object is missing.
var ErrNotFound = errors.New("storage: object not found")

// FileStorage is a read-only object store addressed by slash separated keys.
type FileStorage interface {
	Get(ctx context.Context, path string) (io.ReadCloser, error)
	Exists(ctx context.Context, path string) bool
}

type fileStorage struct {
	basePath string
}

func NewFileStorage(basePath string) FileStorage {
	return &fileStorage{basePath: basePath}
}

func (s *fileStorage) fullPath(path string) string {
	return filepath.Join(s.basePath, filepath.FromSlash(path))
}

func (s *fileStorage) Get(ctx context.Context, path string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	file, err := os.Open(s.fullPath(path))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return file, nil
}

func (s *fileStorage) Exists(ctx context.Context, path string) bool {
	info, err := os.Stat(s.fullPath(path))
	return err == nil && !info.IsDir()
}
