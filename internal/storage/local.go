package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Local stores blobs as files named by share ID under a single directory.
type Local struct {
	dir string
}

// NewLocal creates the upload directory if needed and returns the backend.
func NewLocal(dir string) (*Local, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &Local{dir: dir}, nil
}

// Type implements Backend.
func (l *Local) Type() string { return "local" }

// Save writes the blob to <dir>/<id>.
func (l *Local) Save(_ context.Context, id string, r io.Reader) (string, error) {
	path := filepath.Join(l.dir, id)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return "", fmt.Errorf("create blob %s: %w", id, err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(path)
		return "", fmt.Errorf("write blob %s: %w", id, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close blob %s: %w", id, err)
	}
	return path, nil
}

// Open implements Backend.
func (l *Local) Open(_ context.Context, path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("open blob %s: %w", path, err)
	}
	return f, nil
}

// Delete implements Backend. A blob that is already gone is not an error.
func (l *Local) Delete(_ context.Context, path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete blob %s: %w", path, err)
	}
	return nil
}

// Exists implements Backend.
func (l *Local) Exists(_ context.Context, path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// List returns the names of all stored blobs.
func (l *Local) List() ([]string, error) {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		return nil, fmt.Errorf("list upload dir: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	return names, nil
}

// PathFor returns the storage path a given share ID maps to.
func (l *Local) PathFor(id string) string {
	return filepath.Join(l.dir, id)
}
