// Package repository provides persistence for share records using a
// PostgreSQL database.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/buzzdrop/buzzdrop/internal/models"
)

// ErrNotFound reports a share that does not exist or, for ClaimDownload,
// one that has already been consumed.
var ErrNotFound = errors.New("share not found")

const shareColumns = `id, original_name, kind, path, uploaded_by, created_at, downloaded_at, downloaded_by_ip, expiry_at, status, decryption_ok`

// PostgresShareRepository implements share persistence against PostgreSQL.
type PostgresShareRepository struct {
	// DB is the database handle for executing queries and transactions.
	DB *sql.DB
}

// NewPostgresShareRepository creates a repository using the provided *sql.DB.
// db must be a valid connection to a PostgreSQL instance.
func NewPostgresShareRepository(db *sql.DB) *PostgresShareRepository {
	return &PostgresShareRepository{DB: db}
}

func scanShare(row interface{ Scan(...any) error }) (*models.Share, error) {
	var s models.Share
	var downloadedAt, expiryAt sql.NullTime
	var downloadedByIP sql.NullString
	var decryptionOK sql.NullBool
	err := row.Scan(
		&s.ID, &s.OriginalName, &s.Kind, &s.Path, &s.UploadedBy, &s.CreatedAt,
		&downloadedAt, &downloadedByIP, &expiryAt, &s.Status, &decryptionOK,
	)
	if err != nil {
		return nil, err
	}
	if downloadedAt.Valid {
		s.DownloadedAt = &downloadedAt.Time
	}
	if downloadedByIP.Valid {
		s.DownloadedByIP = downloadedByIP.String
	}
	if expiryAt.Valid {
		s.ExpiryAt = &expiryAt.Time
	}
	if decryptionOK.Valid {
		s.DecryptionOK = &decryptionOK.Bool
	}
	return &s, nil
}

// Create inserts a new share record.
func (r *PostgresShareRepository) Create(ctx context.Context, share *models.Share) error {
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO shares (id, original_name, kind, path, uploaded_by, created_at, expiry_at, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, share.ID, share.OriginalName, share.Kind, share.Path, share.UploadedBy,
		share.CreatedAt, share.ExpiryAt, share.Status)
	if err != nil {
		return fmt.Errorf("create share: %w", err)
	}
	return nil
}

// GetByID fetches a single share, or ErrNotFound.
func (r *PostgresShareRepository) GetByID(ctx context.Context, id string) (*models.Share, error) {
	share, err := scanShare(r.DB.QueryRowContext(ctx, `
		SELECT `+shareColumns+` FROM shares WHERE id = $1
	`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get share: %w", err)
	}
	return share, nil
}

// ListByOwner returns all shares uploaded by the given user, newest first.
func (r *PostgresShareRepository) ListByOwner(ctx context.Context, owner string) ([]models.Share, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT `+shareColumns+` FROM shares WHERE uploaded_by = $1 ORDER BY created_at DESC
	`, owner)
	if err != nil {
		return nil, fmt.Errorf("list shares: %w", err)
	}
	defer rows.Close()

	var shares []models.Share
	for rows.Next() {
		s, err := scanShare(rows)
		if err != nil {
			return nil, fmt.Errorf("scan share: %w", err)
		}
		shares = append(shares, *s)
	}
	return shares, rows.Err()
}

// ClaimDownload performs the atomic active-to-consumed transition: exactly
// one caller wins the single UPDATE guarded by downloaded_at IS NULL. Any
// later claim, for a consumed or expired share alike, gets ErrNotFound.
func (r *PostgresShareRepository) ClaimDownload(ctx context.Context, id, ip string) (*models.Share, error) {
	share, err := scanShare(r.DB.QueryRowContext(ctx, `
		UPDATE shares SET downloaded_at = NOW(), downloaded_by_ip = $2
		WHERE id = $1 AND downloaded_at IS NULL AND status = 'active'
		RETURNING `+shareColumns+`
	`, id, ip))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("claim download: %w", err)
	}
	return share, nil
}

// MarkExpired transitions a share to expired.
func (r *PostgresShareRepository) MarkExpired(ctx context.Context, id string) error {
	_, err := r.DB.ExecContext(ctx, `
		UPDATE shares SET status = 'expired' WHERE id = $1
	`, id)
	if err != nil {
		return fmt.Errorf("mark expired: %w", err)
	}
	return nil
}

// SetDecryptionResult records the recipient-reported decrypt outcome.
// Only the first report counts; later reports are ignored.
func (r *PostgresShareRepository) SetDecryptionResult(ctx context.Context, id string, ok bool) error {
	_, err := r.DB.ExecContext(ctx, `
		UPDATE shares SET decryption_ok = $2 WHERE id = $1 AND decryption_ok IS NULL
	`, id, ok)
	if err != nil {
		return fmt.Errorf("set decryption result: %w", err)
	}
	return nil
}

// Delete removes a share record.
func (r *PostgresShareRepository) Delete(ctx context.Context, id string) error {
	_, err := r.DB.ExecContext(ctx, `DELETE FROM shares WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete share: %w", err)
	}
	return nil
}

// ExpiredBefore returns active shares whose expiry has passed.
func (r *PostgresShareRepository) ExpiredBefore(ctx context.Context, now time.Time) ([]models.Share, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT `+shareColumns+` FROM shares
		WHERE status = 'active' AND expiry_at IS NOT NULL AND expiry_at <= $1
	`, now)
	if err != nil {
		return nil, fmt.Errorf("expired before: %w", err)
	}
	defer rows.Close()

	var shares []models.Share
	for rows.Next() {
		s, err := scanShare(rows)
		if err != nil {
			return nil, fmt.Errorf("scan share: %w", err)
		}
		shares = append(shares, *s)
	}
	return shares, rows.Err()
}

// PurgeConsumedBefore deletes consumed or expired records older than the
// cutoff. The blobs are already gone by then; this only trims the ledger.
func (r *PostgresShareRepository) PurgeConsumedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.DB.ExecContext(ctx, `
		DELETE FROM shares
		WHERE (downloaded_at IS NOT NULL AND downloaded_at < $1)
		   OR (status = 'expired' AND created_at < $1)
	`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge shares: %w", err)
	}
	return res.RowsAffected()
}

// AllPaths returns the storage paths of every tracked share, for the
// startup orphan sweep.
func (r *PostgresShareRepository) AllPaths(ctx context.Context) ([]string, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT path FROM shares`)
	if err != nil {
		return nil, fmt.Errorf("all paths: %w", err)
	}
	defer rows.Close()

	var paths []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("scan path: %w", err)
		}
		paths = append(paths, p)
	}
	return paths, rows.Err()
}
