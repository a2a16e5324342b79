// Package storage provides blob storage backends for encrypted payloads.
// Backends store and serve payloads verbatim; the bytes are opaque
// ciphertext and only the clients on either end understand their layout.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/buzzdrop/buzzdrop/internal/config"
)

// ErrNotFound reports a blob that does not exist (anymore). One-shot
// deletion and expiry both lead here on a second fetch.
var ErrNotFound = errors.New("blob not found")

// Backend abstracts where ciphertext blobs live.
type Backend interface {
	// Type returns the backend name ("local" or "s3").
	Type() string
	// Save stores the blob under the share ID and returns its storage path.
	Save(ctx context.Context, id string, r io.Reader) (string, error)
	// Open returns a reader over the blob at path, or ErrNotFound.
	Open(ctx context.Context, path string) (io.ReadCloser, error)
	// Delete removes the blob at path. A missing blob is not an error.
	Delete(ctx context.Context, path string) error
	// Exists reports whether a blob is present at path.
	Exists(ctx context.Context, path string) bool
}

// Lister is implemented by backends that can enumerate stored blobs. The
// startup orphan sweep uses it to drop blobs no record points at.
type Lister interface {
	List() ([]string, error)
}

// New constructs the backend selected by the configuration.
func New(ctx context.Context, opts *config.Options) (Backend, error) {
	switch opts.StorageBackend {
	case "local":
		return NewLocal(opts.UploadDir)
	case "s3":
		return NewS3(ctx, opts.S3Bucket, opts.S3Region, opts.S3AccessKey, opts.S3SecretKey)
	default:
		return nil, fmt.Errorf("unknown storage backend: %s", opts.StorageBackend)
	}
}
