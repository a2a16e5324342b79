package crypto

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/pbkdf2"
)

// Service encrypts and decrypts share payloads under a user password.
// It is stateless: every Encrypt call draws a fresh salt and nonce and
// derives its own key, so concurrent calls need no coordination.
type Service struct {
	params Params
}

// New returns a Service bound to the given format parameters.
func New(params Params) *Service {
	return &Service{params: params}
}

// Encrypt derives a key from the password and a fresh salt, seals
// magic || data under AES-GCM with a fresh nonce, and returns the packed
// payload: salt || nonce || ciphertext-with-tag. The output is intentionally
// non-deterministic; two calls with identical inputs produce different bytes
// that both decrypt back to data.
//
// PBKDF2 is deliberately CPU-expensive; callers on a latency-sensitive path
// should run Encrypt off that path. ctx is checked between the expensive
// phases.
func (s *Service) Encrypt(ctx context.Context, data []byte, password string) ([]byte, error) {
	if password == "" {
		return nil, ErrEmptyPassword
	}

	salt := make([]byte, s.params.SaltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, fmt.Errorf("read salt: %w", err)
	}
	nonce := make([]byte, s.params.NonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("read nonce: %w", err)
	}

	key := s.deriveKey(password, salt)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	aead, err := s.newAEAD(key)
	if err != nil {
		return nil, err
	}
	sealed := aead.Seal(nil, nonce, s.params.prependMagic(data), nil)
	return s.params.pack(salt, nonce, sealed), nil
}

// Decrypt reverses Encrypt. Any failure past the empty-password check is
// reported as ErrDecryptFailed (wrapped by the precise cause): a payload
// shorter than the fixed prefix, a failed tag check, or a missing magic
// marker. Decryption is all-or-nothing; no partial plaintext is ever
// returned.
func (s *Service) Decrypt(ctx context.Context, packed []byte, password string) ([]byte, error) {
	if password == "" {
		return nil, ErrEmptyPassword
	}

	salt, nonce, sealed, err := s.params.unpack(packed)
	if err != nil {
		return nil, err
	}

	key := s.deriveKey(password, salt)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	aead, err := s.newAEAD(key)
	if err != nil {
		return nil, err
	}
	plain, err := aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		// The GCM error text is discarded: wrong key and corrupted bytes are
		// indistinguishable and must stay that way.
		return nil, ErrAuthentication
	}
	return s.params.stripMagic(plain)
}

// deriveKey is deterministic in (password, salt); the recipient re-derives
// the sender's key from the salt that travels with the ciphertext.
func (s *Service) deriveKey(password string, salt []byte) []byte {
	return pbkdf2.Key([]byte(password), salt, s.params.Iterations, s.params.KeySize, sha256.New)
}

func (s *Service) newAEAD(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	aead, err := cipher.NewGCMWithNonceSize(block, s.params.NonceSize)
	if err != nil {
		return nil, fmt.Errorf("create AEAD: %w", err)
	}
	return aead, nil
}
