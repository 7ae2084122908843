// Package keys derives the process-wide symmetric key from the operator
// secret. Derivation happens once at startup; the key is passed
// explicitly to the token codec and cipher and is never persisted.
package keys

import "crypto/sha256"

// Size is the derived key length in bytes (AES-256 / HMAC-SHA256).
const Size = 32

// Derive hashes the secret's UTF-8 bytes into a fixed 32-byte key.
// Hashing is total: any string, including the empty string, yields a key.
func Derive(secret string) []byte {
	sum := sha256.Sum256([]byte(secret))
	return sum[:]
}
