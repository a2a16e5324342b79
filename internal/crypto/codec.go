package crypto

import "bytes"

// pack concatenates salt, nonce and the sealed plaintext in fixed order.
// Salt and nonce have fixed known sizes, so no length framing is needed;
// the sealed section is everything that remains.
func (p Params) pack(salt, nonce, sealed []byte) []byte {
	out := make([]byte, 0, len(salt)+len(nonce)+len(sealed))
	out = append(out, salt...)
	out = append(out, nonce...)
	out = append(out, sealed...)
	return out
}

// unpack splits a packed payload at the fixed offsets. Payloads shorter
// than the salt+nonce prefix are rejected before any key derivation.
func (p Params) unpack(packed []byte) (salt, nonce, sealed []byte, err error) {
	if len(packed) < p.minPackedSize() {
		return nil, nil, nil, ErrMalformedPayload
	}
	salt = packed[:p.SaltSize]
	nonce = packed[p.SaltSize : p.SaltSize+p.NonceSize]
	sealed = packed[p.SaltSize+p.NonceSize:]
	return salt, nonce, sealed, nil
}

// prependMagic returns magic || data, the plaintext handed to the cipher.
func (p Params) prependMagic(data []byte) []byte {
	out := make([]byte, 0, len(p.Magic)+len(data))
	out = append(out, p.Magic...)
	return append(out, data...)
}

// stripMagic verifies the decrypted plaintext starts with the magic marker
// and returns the remainder. GCM already authenticates the plaintext; the
// marker is a second, format-level check kept as defense in depth against
// format-version mistakes. Comparison is exact and fixed-length.
func (p Params) stripMagic(plain []byte) ([]byte, error) {
	if len(plain) < len(p.Magic) || !bytes.Equal(plain[:len(p.Magic)], p.Magic) {
		return nil, ErrHeaderMismatch
	}
	return plain[len(p.Magic):], nil
}
