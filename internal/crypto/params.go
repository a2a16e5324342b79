// Package crypto implements the Buzzdrop payload format: password-based
// key derivation, AES-GCM sealing, and the packed byte layout that travels
// between sender and recipient. The server never holds a key; it only ever
// sees the packed bytes produced here.
package crypto

// Params fixes the cryptographic parameters of the packed payload format.
// Sender and recipient may run different implementations of this format and
// must interoperate bit-for-bit, so the parameters are carried as an
// immutable value rather than package-level state; a future format version
// can be introduced as a second Params value.
type Params struct {
	// SaltSize is the length in bytes of the random KDF salt.
	SaltSize int
	// NonceSize is the length in bytes of the random GCM nonce.
	NonceSize int
	// KeySize is the derived key length in bytes.
	KeySize int
	// Iterations is the PBKDF2 iteration count.
	Iterations int
	// Magic is the plaintext marker sealed in front of the payload. It is
	// checked after decryption as a format-level password sanity check.
	Magic []byte
}

// DefaultParams returns the v1 format parameters: PBKDF2-SHA256 at 100000
// iterations, AES-256-GCM with a 96-bit nonce, and the "BKP-FILE" marker.
func DefaultParams() Params {
	return Params{
		SaltSize:   16,
		NonceSize:  12,
		KeySize:    32,
		Iterations: 100000,
		Magic:      []byte("BKP-FILE"),
	}
}

// minPackedSize is the shortest well-formed payload: the salt and nonce
// prefix with an empty sealed section.
func (p Params) minPackedSize() int {
	return p.SaltSize + p.NonceSize
}
