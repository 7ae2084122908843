// Package token issues and verifies the compact signed session tokens
// carried by the portal cookie. Tokens are stateless HS256 JWTs; there
// is no server-side session table and no revocation list.
package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalid is returned for every verification failure. Callers must
// not be able to distinguish a malformed token from a forged one.
var ErrInvalid = errors.New("invalid token")

// Claims is the typed payload embedded in a session token.
type Claims struct {
	jwt.RegisteredClaims
	SubjectID  string `json:"sub_id"`
	CanClear   bool   `json:"can_clear"`
	IssuedAtMs int64  `json:"iat_ms"`
}

// Codec signs and verifies session tokens with a symmetric key.
type Codec struct {
	key []byte
}

// NewCodec returns a codec bound to the derived service key.
func NewCodec(key []byte) *Codec {
	return &Codec{key: key}
}

// Issue signs a token for the given identity and capability. The issue
// time is recorded in the claims but is advisory only; no expiry is
// enforced at verification.
func (c *Codec) Issue(subjectID string, canClear bool) (string, error) {
	claims := Claims{
		SubjectID:  subjectID,
		CanClear:   canClear,
		IssuedAtMs: time.Now().UnixMilli(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(c.key)
}

// Verify checks the token signature and returns the embedded claims.
// Any failure (wrong segment count, bad base64, forged signature,
// unparseable payload) yields ErrInvalid.
func (c *Codec) Verify(raw string) (*Claims, error) {
	if raw == "" {
		return nil, ErrInvalid
	}
	claims := &Claims{}
	t, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		return c.key, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil || !t.Valid {
		return nil, ErrInvalid
	}
	return claims, nil
}
