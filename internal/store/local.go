package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// LocalStore is a directory-backed BlobStore using the same
// functions/{id}.js layout as the object store. It backs development and
// tests, and single-node deployments that do not want an object store.
type LocalStore struct {
	root string
}

// Compile-time interface satisfaction check.
var _ BlobStore = (*LocalStore)(nil)

// NewLocalStore creates the store rooted at dir, creating the functions
// directory if needed.
func NewLocalStore(dir string) (*LocalStore, error) {
	if err := os.MkdirAll(filepath.Join(dir, "functions"), 0o755); err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}
	return &LocalStore{root: dir}, nil
}

func (s *LocalStore) path(id string) string {
	return filepath.Join(s.root, filepath.FromSlash(objectName(id)))
}

// Save writes the source under functions/{id}.js.
func (s *LocalStore) Save(ctx context.Context, id, source string) error {
	if err := os.WriteFile(s.path(id), []byte(source), 0o644); err != nil {
		return fmt.Errorf("save function %s: %w", id, err)
	}
	return nil
}

// Get reads the source for id, or ErrNotFound.
func (s *LocalStore) Get(ctx context.Context, id string) (string, error) {
	data, err := os.ReadFile(s.path(id))
	if errors.Is(err, fs.ErrNotExist) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get function %s: %w", id, err)
	}
	return string(data), nil
}

// Exists reports whether functions/{id}.js is present.
func (s *LocalStore) Exists(ctx context.Context, id string) (bool, error) {
	_, err := os.Stat(s.path(id))
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("stat function %s: %w", id, err)
	}
	return true, nil
}
