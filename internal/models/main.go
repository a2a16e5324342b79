// Package models defines the core data structures for shares and users.
package models

import "time"

// ShareKind identifies what the sender uploaded. The payload bytes are
// opaque ciphertext either way; the kind only drives presentation.
type ShareKind string

const (
	// KindFile is an encrypted file upload.
	KindFile ShareKind = "file"
	// KindText is an encrypted text note.
	KindText ShareKind = "text"
)

// ShareStatus tracks the server-side lifecycle of a stored payload.
type ShareStatus string

const (
	// StatusActive means the payload is stored and has not been served.
	StatusActive ShareStatus = "active"
	// StatusExpired means the payload passed its expiry and was deleted
	// without ever being served.
	StatusExpired ShareStatus = "expired"
)

// Share associates a generated identifier with a stored encrypted payload
// and its one-shot download state. The payload itself never appears here;
// Path points into the blob storage backend.
type Share struct {
	// ID is the share identifier used in the share link.
	ID string `json:"id"`
	// OriginalName is the uploaded filename, or a label for text notes.
	OriginalName string `json:"original_name"`
	// Kind is "file" or "text".
	Kind ShareKind `json:"kind"`
	// Path locates the ciphertext blob in the storage backend.
	Path string `json:"-"`
	// UploadedBy is the owner's username.
	UploadedBy string `json:"uploaded_by"`
	// CreatedAt is the upload time.
	CreatedAt time.Time `json:"created_at"`
	// DownloadedAt is set on the first (and only) fetch of the payload.
	DownloadedAt *time.Time `json:"downloaded_at,omitempty"`
	// DownloadedByIP records who claimed the download.
	DownloadedByIP string `json:"-"`
	// ExpiryAt, when set, bounds the share's lifetime.
	ExpiryAt *time.Time `json:"expiry_at,omitempty"`
	// Status is "active" or "expired".
	Status ShareStatus `json:"status"`
	// DecryptionOK is nil until a recipient reports the decrypt outcome.
	// The server learns the outcome only through the report endpoint; by
	// the time the report arrives the blob is already gone.
	DecryptionOK *bool `json:"decryption_ok,omitempty"`
}

// Consumed reports whether the payload has been served.
func (s *Share) Consumed() bool {
	return s.DownloadedAt != nil
}

// ExpiredAt reports whether the share is past its expiry at the given time.
// Shares without an expiry never expire by time.
func (s *Share) ExpiredAt(now time.Time) bool {
	return s.ExpiryAt != nil && !now.Before(*s.ExpiryAt)
}

// User is an account from the environment-variable user store.
type User struct {
	// Name is the login name.
	Name string
	// Salt and PasswordHash hold the PBKDF2-SHA256 password digest.
	Salt         []byte
	PasswordHash []byte
	// Admin marks administrative accounts.
	Admin bool
}
