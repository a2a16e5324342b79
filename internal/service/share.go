// Package service provides business logic for share lifecycle and
// authentication, delegating persistence to repository interfaces and blob
// handling to storage backends.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/buzzdrop/buzzdrop/internal/models"
	"github.com/buzzdrop/buzzdrop/internal/repository"
	"github.com/buzzdrop/buzzdrop/internal/storage"
)

var (
	// ErrNotFound covers shares that never existed and shares already
	// consumed: both terminal states answer any further fetch the same way.
	ErrNotFound = errors.New("share not found")
	// ErrExpired reports a share deleted by time-based expiry.
	ErrExpired = errors.New("share has expired")
)

// ShareRepository defines the persistence operations needed by ShareService.
type ShareRepository interface {
	Create(ctx context.Context, share *models.Share) error
	GetByID(ctx context.Context, id string) (*models.Share, error)
	ListByOwner(ctx context.Context, owner string) ([]models.Share, error)
	ClaimDownload(ctx context.Context, id, ip string) (*models.Share, error)
	MarkExpired(ctx context.Context, id string) error
	SetDecryptionResult(ctx context.Context, id string, ok bool) error
	Delete(ctx context.Context, id string) error
	ExpiredBefore(ctx context.Context, now time.Time) ([]models.Share, error)
	PurgeConsumedBefore(ctx context.Context, cutoff time.Time) (int64, error)
	AllPaths(ctx context.Context) ([]string, error)
}

// ShareService implements the one-shot share protocol: store verbatim,
// serve verbatim exactly once, delete after serving, expire on a clock.
// It never inspects payload bytes; they are ciphertext it cannot read.
type ShareService struct {
	repo  ShareRepository
	blobs storage.Backend
	log   *zap.Logger
}

// NewShareService constructs a ShareService.
func NewShareService(repo ShareRepository, blobs storage.Backend, log *zap.Logger) *ShareService {
	return &ShareService{repo: repo, blobs: blobs, log: log}
}

// Upload stores the payload blob and inserts the share record. The payload
// is written verbatim; the service has no idea whether the bytes even form
// a valid packed payload, and must not care.
func (s *ShareService) Upload(
	ctx context.Context,
	owner, name string,
	kind models.ShareKind,
	expiry *time.Time,
	payload io.Reader,
) (*models.Share, error) {
	id := uuid.NewString()

	blobPath, err := s.blobs.Save(ctx, id, payload)
	if err != nil {
		return nil, fmt.Errorf("save payload: %w", err)
	}

	share := &models.Share{
		ID:           id,
		OriginalName: name,
		Kind:         kind,
		Path:         blobPath,
		UploadedBy:   owner,
		CreatedAt:    time.Now().UTC(),
		ExpiryAt:     expiry,
		Status:       models.StatusActive,
	}
	if err := s.repo.Create(ctx, share); err != nil {
		// Do not leave an untracked blob behind.
		if derr := s.blobs.Delete(ctx, blobPath); derr != nil {
			s.log.Error("failed to remove blob after create error",
				zap.String("id", id), zap.Error(derr))
		}
		return nil, err
	}
	return share, nil
}

// Get returns recipient-facing share state, applying the lazy expiry check:
// an overdue share encountered here is expired on the spot, blob included.
// Consumed shares are indistinguishable from absent ones.
func (s *ShareService) Get(ctx context.Context, id string) (*models.Share, error) {
	share, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if share.Consumed() {
		return nil, ErrNotFound
	}
	if share.Status == models.StatusExpired {
		return nil, ErrExpired
	}
	if share.ExpiredAt(time.Now()) {
		if err := s.expire(ctx, share); err != nil {
			return nil, err
		}
		return nil, ErrExpired
	}
	return share, nil
}

// Download is a claimed one-shot payload stream. Closing it removes the
// blob from storage, so callers must fully serve the body before Close.
type Download struct {
	Share   *models.Share
	body    io.ReadCloser
	cleanup func()
}

// NewDownload wraps a payload stream with its share metadata and the cleanup
// to run on Close.
func NewDownload(share *models.Share, body io.ReadCloser, cleanup func()) *Download {
	return &Download{Share: share, body: body, cleanup: cleanup}
}

func (d *Download) Read(p []byte) (int, error) { return d.body.Read(p) }

// Close closes the underlying blob reader and then deletes the blob. The
// deletion runs strictly after the stream has been handed over; a partial
// delivery followed by premature deletion would leave the recipient with
// corrupted bytes and no retry.
func (d *Download) Close() error {
	err := d.body.Close()
	d.cleanup()
	return err
}

// Download claims the share and opens its payload. The claim is the point
// of no return: it succeeds for exactly one fetch per share, whether or not
// the recipient later manages to decrypt what they were handed.
func (s *ShareService) Download(ctx context.Context, id, ip string) (*Download, error) {
	// Resolve expiry first so an overdue share cannot be claimed.
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}

	claimed, err := s.repo.ClaimDownload(ctx, id, ip)
	if errors.Is(err, repository.ErrNotFound) {
		// Lost the race to another fetch.
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	body, err := s.blobs.Open(ctx, claimed.Path)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("open payload: %w", err)
	}

	blobPath := claimed.Path
	return NewDownload(claimed, body, func() {
		// The request context may already be done once the response has
		// been flushed; deletion must still happen.
		if err := s.blobs.Delete(context.Background(), blobPath); err != nil {
			s.log.Error("failed to delete served blob",
				zap.String("id", claimed.ID), zap.Error(err))
		}
	}), nil
}

// ReportDecryption records the recipient's decrypt outcome. The payload is
// long gone either way; this only feeds the sender's dashboard. Only the
// first report is recorded.
func (s *ShareService) ReportDecryption(ctx context.Context, id string, ok bool) error {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	return s.repo.SetDecryptionResult(ctx, id, ok)
}

// ListByOwner returns the owner's shares.
func (s *ShareService) ListByOwner(ctx context.Context, owner string) ([]models.Share, error) {
	return s.repo.ListByOwner(ctx, owner)
}

// Delete removes a share on behalf of its owner. The blob is removed only
// when it has not been served yet; after a download it no longer exists.
func (s *ShareService) Delete(ctx context.Context, owner, id string) error {
	share, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if share.UploadedBy != owner {
		// Ownership is not disclosed to other users.
		return ErrNotFound
	}
	if !share.Consumed() {
		if err := s.blobs.Delete(ctx, share.Path); err != nil {
			return err
		}
	}
	return s.repo.Delete(ctx, id)
}

// ExpireOverdue implements db.Sweeper: it deletes the blobs of overdue
// active shares and marks the records expired.
func (s *ShareService) ExpireOverdue(ctx context.Context, now time.Time) (int, error) {
	shares, err := s.repo.ExpiredBefore(ctx, now)
	if err != nil {
		return 0, err
	}
	expired := 0
	for i := range shares {
		if err := s.expire(ctx, &shares[i]); err != nil {
			s.log.Error("failed to expire share",
				zap.String("id", shares[i].ID), zap.Error(err))
			continue
		}
		expired++
	}
	return expired, nil
}

// PurgeOld implements db.Sweeper.
func (s *ShareService) PurgeOld(ctx context.Context, cutoff time.Time) (int64, error) {
	return s.repo.PurgeConsumedBefore(ctx, cutoff)
}

func (s *ShareService) expire(ctx context.Context, share *models.Share) error {
	if err := s.blobs.Delete(ctx, share.Path); err != nil {
		return err
	}
	return s.repo.MarkExpired(ctx, share.ID)
}

// CleanupOrphans removes blobs no share record points at. Only backends
// that can enumerate their blobs participate; for S3 this is a no-op.
func (s *ShareService) CleanupOrphans(ctx context.Context) (int, error) {
	lister, ok := s.blobs.(storage.Lister)
	if !ok {
		return 0, nil
	}

	paths, err := s.repo.AllPaths(ctx)
	if err != nil {
		return 0, err
	}
	tracked := make(map[string]bool, len(paths))
	for _, p := range paths {
		tracked[filepath.Base(p)] = true
	}

	names, err := lister.List()
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, name := range names {
		if tracked[name] {
			continue
		}
		local, ok := s.blobs.(*storage.Local)
		if !ok {
			continue
		}
		if err := s.blobs.Delete(ctx, local.PathFor(name)); err != nil {
			s.log.Error("failed to remove orphaned blob",
				zap.String("name", name), zap.Error(err))
			continue
		}
		removed++
	}
	return removed, nil
}
