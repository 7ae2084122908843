// Package crypt provides the authenticated message cipher. Every stored
// payload is an opaque base64url blob laid out as nonce(12) | tag(16) |
// ciphertext, produced with AES-256-GCM under the derived service key.
package crypt

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"io"

	"quietpost/pkg/keys"
)

const (
	// NonceSize is the GCM nonce length prefixed to each blob.
	NonceSize = 12
	// TagSize is the GCM authentication tag length following the nonce.
	TagSize = 16
)

// ErrDecrypt is returned whenever a blob fails to authenticate or is
// structurally malformed. There is no partial decrypt.
var ErrDecrypt = errors.New("decrypt failed")

// Cipher performs AEAD encryption of message text under a fixed key.
type Cipher struct {
	aead cipher.AEAD
}

// New builds a cipher from the 32-byte derived key.
func New(key []byte) (*Cipher, error) {
	if len(key) != keys.Size {
		return nil, errors.New("cipher key must be 32 bytes (AES-256)")
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &Cipher{aead: aead}, nil
}

// Encrypt seals plaintext under a fresh random nonce and returns the
// base64url blob. Nonce reuse under the same key would break the scheme,
// so the nonce is always drawn from crypto/rand, never derived.
func (c *Cipher) Encrypt(plaintext string) (string, error) {
	nonce := make([]byte, NonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}
	// Seal appends the tag after the ciphertext; the blob layout wants
	// it between nonce and ciphertext, so re-order here.
	sealed := c.aead.Seal(nil, nonce, []byte(plaintext), nil)
	split := len(sealed) - TagSize
	blob := make([]byte, 0, NonceSize+len(sealed))
	blob = append(blob, nonce...)
	blob = append(blob, sealed[split:]...)
	blob = append(blob, sealed[:split]...)
	return base64.RawURLEncoding.EncodeToString(blob), nil
}

// Decrypt opens a blob produced by Encrypt. It fails closed: a blob too
// short to hold nonce and tag, undecodable base64, or a tag that does
// not authenticate all return ErrDecrypt.
func (c *Cipher) Decrypt(blob string) (string, error) {
	raw, err := base64.RawURLEncoding.DecodeString(blob)
	if err != nil {
		return "", ErrDecrypt
	}
	if len(raw) < NonceSize+TagSize {
		return "", ErrDecrypt
	}
	nonce := raw[:NonceSize]
	tag := raw[NonceSize : NonceSize+TagSize]
	ct := raw[NonceSize+TagSize:]

	sealed := make([]byte, 0, len(ct)+TagSize)
	sealed = append(sealed, ct...)
	sealed = append(sealed, tag...)
	pt, err := c.aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", ErrDecrypt
	}
	return string(pt), nil
}
