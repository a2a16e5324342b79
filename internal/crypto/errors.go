package crypto

import (
	"errors"
	"fmt"
)

// ErrDecryptFailed is the single category surfaced to users on any decrypt
// failure. A wrong password and corrupted or tampered data are deliberately
// indistinguishable at this boundary; revealing which one occurred would
// hand an attacker probing a link an oracle.
var ErrDecryptFailed = errors.New("incorrect password or corrupted data")

// The concrete causes below wrap ErrDecryptFailed, so callers match the
// unified category with errors.Is while tests can still assert the precise
// internal cause.
var (
	// ErrMalformedPayload reports input shorter than the fixed salt+nonce
	// prefix. This is a transport bug or truncation, never a password issue.
	ErrMalformedPayload = fmt.Errorf("%w: payload too short", ErrDecryptFailed)

	// ErrAuthentication reports a failed GCM tag check. The cipher cannot
	// tell a wrong key from flipped ciphertext bits.
	ErrAuthentication = fmt.Errorf("%w: authentication failed", ErrDecryptFailed)

	// ErrHeaderMismatch reports decrypted plaintext that does not start with
	// the magic marker.
	ErrHeaderMismatch = fmt.Errorf("%w: payload marker missing", ErrDecryptFailed)
)

// ErrEmptyPassword is returned before any key derivation when the supplied
// password is empty. It is not part of the decrypt-failure category: no
// retry with the same input can succeed and the payload is untouched.
var ErrEmptyPassword = errors.New("password must not be empty")
