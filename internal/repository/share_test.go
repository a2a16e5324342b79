package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/buzzdrop/buzzdrop/internal/models"
)

func setupMock(t *testing.T) (*PostgresShareRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to open sqlmock: %v", err)
	}
	t.Cleanup(func() {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unmet sqlmock expectations: %v", err)
		}
		db.Close()
	})
	return NewPostgresShareRepository(db), mock
}

func shareRows(s *models.Share) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{
		"id", "original_name", "kind", "path", "uploaded_by", "created_at",
		"downloaded_at", "downloaded_by_ip", "expiry_at", "status", "decryption_ok",
	})
	var downloadedAt, expiryAt any
	if s.DownloadedAt != nil {
		downloadedAt = *s.DownloadedAt
	}
	if s.ExpiryAt != nil {
		expiryAt = *s.ExpiryAt
	}
	var ip any
	if s.DownloadedByIP != "" {
		ip = s.DownloadedByIP
	}
	var decryptionOK any
	if s.DecryptionOK != nil {
		decryptionOK = *s.DecryptionOK
	}
	return rows.AddRow(
		s.ID, s.OriginalName, string(s.Kind), s.Path, s.UploadedBy, s.CreatedAt,
		downloadedAt, ip, expiryAt, string(s.Status), decryptionOK,
	)
}

func TestCreate(t *testing.T) {
	repo, mock := setupMock(t)

	share := &models.Share{
		ID:           "abc",
		OriginalName: "doc.pdf",
		Kind:         models.KindFile,
		Path:         "/data/abc",
		UploadedBy:   "alice",
		CreatedAt:    time.Now().UTC(),
		Status:       models.StatusActive,
	}

	mock.ExpectExec("INSERT INTO shares").
		WithArgs(share.ID, share.OriginalName, share.Kind, share.Path,
			share.UploadedBy, share.CreatedAt, share.ExpiryAt, share.Status).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.Create(context.Background(), share); err != nil {
		t.Fatalf("Create error = %v", err)
	}
}

func TestGetByID(t *testing.T) {
	repo, mock := setupMock(t)

	want := &models.Share{
		ID:           "abc",
		OriginalName: "doc.pdf",
		Kind:         models.KindFile,
		Path:         "/data/abc",
		UploadedBy:   "alice",
		CreatedAt:    time.Now().UTC(),
		Status:       models.StatusActive,
	}
	mock.ExpectQuery("SELECT (.+) FROM shares WHERE id").
		WithArgs("abc").
		WillReturnRows(shareRows(want))

	got, err := repo.GetByID(context.Background(), "abc")
	if err != nil {
		t.Fatalf("GetByID error = %v", err)
	}
	if got.ID != want.ID || got.OriginalName != want.OriginalName || got.DownloadedAt != nil {
		t.Errorf("GetByID = %+v; want %+v", got, want)
	}
}

func TestGetByID_NotFound(t *testing.T) {
	repo, mock := setupMock(t)

	// An empty result set surfaces as sql.ErrNoRows, mapped to ErrNotFound.
	mock.ExpectQuery("SELECT (.+) FROM shares WHERE id").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	if _, err := repo.GetByID(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("GetByID error = %v; want ErrNotFound", err)
	}
}

func TestClaimDownload(t *testing.T) {
	repo, mock := setupMock(t)

	now := time.Now().UTC()
	claimed := &models.Share{
		ID:             "abc",
		OriginalName:   "doc.pdf",
		Kind:           models.KindFile,
		Path:           "/data/abc",
		UploadedBy:     "alice",
		CreatedAt:      now.Add(-time.Hour),
		DownloadedAt:   &now,
		DownloadedByIP: "203.0.113.9",
		Status:         models.StatusActive,
	}
	mock.ExpectQuery("UPDATE shares SET downloaded_at").
		WithArgs("abc", "203.0.113.9").
		WillReturnRows(shareRows(claimed))

	got, err := repo.ClaimDownload(context.Background(), "abc", "203.0.113.9")
	if err != nil {
		t.Fatalf("ClaimDownload error = %v", err)
	}
	if got.DownloadedAt == nil || got.DownloadedByIP != "203.0.113.9" {
		t.Errorf("ClaimDownload = %+v; want claimed share", got)
	}
}

func TestClaimDownload_AlreadyConsumed(t *testing.T) {
	repo, mock := setupMock(t)

	// The guarded UPDATE matches no row for a consumed share.
	mock.ExpectQuery("UPDATE shares SET downloaded_at").
		WithArgs("abc", "ip").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	if _, err := repo.ClaimDownload(context.Background(), "abc", "ip"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("ClaimDownload error = %v; want ErrNotFound", err)
	}
}

func TestMarkExpired(t *testing.T) {
	repo, mock := setupMock(t)

	mock.ExpectExec("UPDATE shares SET status = 'expired'").
		WithArgs("abc").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.MarkExpired(context.Background(), "abc"); err != nil {
		t.Fatalf("MarkExpired error = %v", err)
	}
}

func TestSetDecryptionResult(t *testing.T) {
	repo, mock := setupMock(t)

	mock.ExpectExec("UPDATE shares SET decryption_ok").
		WithArgs("abc", false).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.SetDecryptionResult(context.Background(), "abc", false); err != nil {
		t.Fatalf("SetDecryptionResult error = %v", err)
	}
}

func TestListByOwner(t *testing.T) {
	repo, mock := setupMock(t)

	now := time.Now().UTC()
	a := &models.Share{ID: "a", OriginalName: "a.txt", Kind: models.KindText,
		Path: "/data/a", UploadedBy: "alice", CreatedAt: now, Status: models.StatusActive}
	b := &models.Share{ID: "b", OriginalName: "b.txt", Kind: models.KindText,
		Path: "/data/b", UploadedBy: "alice", CreatedAt: now.Add(-time.Hour), Status: models.StatusExpired}

	rows := shareRows(a)
	rows.AddRow(b.ID, b.OriginalName, string(b.Kind), b.Path, b.UploadedBy,
		b.CreatedAt, nil, nil, nil, string(b.Status), nil)

	mock.ExpectQuery("SELECT (.+) FROM shares WHERE uploaded_by").
		WithArgs("alice").
		WillReturnRows(rows)

	shares, err := repo.ListByOwner(context.Background(), "alice")
	if err != nil {
		t.Fatalf("ListByOwner error = %v", err)
	}
	if len(shares) != 2 || shares[0].ID != "a" || shares[1].ID != "b" {
		t.Errorf("ListByOwner = %+v; want shares a, b", shares)
	}
}

func TestExpiredBefore(t *testing.T) {
	repo, mock := setupMock(t)

	now := time.Now().UTC()
	past := now.Add(-time.Hour)
	overdue := &models.Share{ID: "a", OriginalName: "a", Kind: models.KindFile,
		Path: "/data/a", UploadedBy: "alice", CreatedAt: past, ExpiryAt: &past,
		Status: models.StatusActive}

	mock.ExpectQuery("SELECT (.+) FROM shares").
		WithArgs(now).
		WillReturnRows(shareRows(overdue))

	shares, err := repo.ExpiredBefore(context.Background(), now)
	if err != nil {
		t.Fatalf("ExpiredBefore error = %v", err)
	}
	if len(shares) != 1 || shares[0].ID != "a" {
		t.Errorf("ExpiredBefore = %+v; want share a", shares)
	}
}

func TestPurgeConsumedBefore(t *testing.T) {
	repo, mock := setupMock(t)

	cutoff := time.Now().UTC()
	mock.ExpectExec("DELETE FROM shares").
		WithArgs(cutoff).
		WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := repo.PurgeConsumedBefore(context.Background(), cutoff)
	if err != nil {
		t.Fatalf("PurgeConsumedBefore error = %v", err)
	}
	if n != 3 {
		t.Errorf("PurgeConsumedBefore = %d; want 3", n)
	}
}

func TestDelete(t *testing.T) {
	repo, mock := setupMock(t)

	mock.ExpectExec("DELETE FROM shares WHERE id").
		WithArgs("abc").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.Delete(context.Background(), "abc"); err != nil {
		t.Fatalf("Delete error = %v", err)
	}
}

func TestAllPaths(t *testing.T) {
	repo, mock := setupMock(t)

	mock.ExpectQuery("SELECT path FROM shares").
		WillReturnRows(sqlmock.NewRows([]string{"path"}).AddRow("/data/a").AddRow("/data/b"))

	paths, err := repo.AllPaths(context.Background())
	if err != nil {
		t.Fatalf("AllPaths error = %v", err)
	}
	if len(paths) != 2 || paths[0] != "/data/a" {
		t.Errorf("AllPaths = %v; want [/data/a /data/b]", paths)
	}
}
