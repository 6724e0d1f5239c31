// Package pmcrypto provides the handful of cryptographic primitives the
// provenance mark engine is built from: SHA-256, HKDF-SHA-256 key
// extension, and ChaCha20 keystream obfuscation.
package pmcrypto

import (
	"crypto/sha256"
	"io"

	"golang.org/x/crypto/chacha20"
	"golang.org/x/crypto/hkdf"
)

// SHA256Size is the length in bytes of a SHA-256 digest.
const SHA256Size = 32

// SHA256 returns the SHA-256 digest of data.
func SHA256(data []byte) [SHA256Size]byte {
	return sha256.Sum256(data)
}

// SHA256Prefix returns the first n bytes of the SHA-256 digest of data.
// Callers must ensure n <= SHA256Size.
func SHA256Prefix(data []byte, n int) []byte {
	digest := SHA256(data)
	return digest[:n]
}

// ExtendKey derives a 32-byte key from arbitrary material using
// HKDF-SHA-256 with an empty salt and empty info.
func ExtendKey(material []byte) [32]byte {
	reader := hkdf.New(sha256.New, material, nil, nil)
	var out [32]byte
	if _, err := io.ReadFull(reader, out[:]); err != nil {
		// HKDF-Expand only fails when the requested length exceeds
		// 255*HashLen; 32 bytes never does.
		panic(err)
	}
	return out
}

// Obfuscate XORs message with a ChaCha20 keystream derived from key. It is
// its own inverse: Obfuscate(key, Obfuscate(key, m)) == m. The stream key
// is ExtendKey(key); the 12-byte nonce is the last 12 bytes of that
// extended key, reversed.
func Obfuscate(key, message []byte) []byte {
	if len(message) == 0 {
		return []byte{}
	}

	extended := ExtendKey(key)

	nonce := make([]byte, chacha20.NonceSize)
	for i := range nonce {
		nonce[i] = extended[len(extended)-1-i]
	}

	cipher, err := chacha20.NewUnauthenticatedCipher(extended[:], nonce)
	if err != nil {
		// extended is always 32 bytes and nonce always 12; this can't fail.
		panic(err)
	}

	out := make([]byte, len(message))
	cipher.XORKeyStream(out, message)
	return out
}
