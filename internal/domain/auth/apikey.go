// Package auth authenticates API clients via peppered HMAC-SHA256 key hashes.
// Raw keys are never stored; the database holds only the hex-encoded hash.
package auth

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"

	"github.com/go-faster/errors"
)

// ErrUnauthorized is returned for any failed key verification. The cause is
// deliberately not distinguished to callers.
var ErrUnauthorized = errors.New("unauthorized")

// APIKeyInfo holds the identity and permission data for a validated API key.
type APIKeyInfo struct {
	ID      int64
	KeyHash string
	Name    string
	Scopes  []string
}

// Repository provides lookup of active API keys by their HMAC hash.
type Repository interface {
	FindByHash(ctx context.Context, hash string) (*APIKeyInfo, error)
}

// Verifier checks presented API keys against stored hashes.
type Verifier struct {
	keys   Repository
	pepper []byte
}

// NewVerifier creates a Verifier over the given key repository and HMAC
// pepper.
func NewVerifier(keys Repository, pepper []byte) *Verifier {
	return &Verifier{keys: keys, pepper: pepper}
}

// HashKey computes the hex-encoded HMAC-SHA256 of a raw API key. Key
// provisioning uses the same function so stored hashes and lookups agree.
func (v *Verifier) HashKey(key string) string {
	mac := hmac.New(sha256.New, v.pepper)
	mac.Write([]byte(key))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify authenticates a raw API key: hash it, look it up, and compare the
// stored hash in constant time. Any failure maps to ErrUnauthorized.
func (v *Verifier) Verify(ctx context.Context, key string) (*APIKeyInfo, error) {
	hexHash := v.HashKey(key)

	info, err := v.keys.FindByHash(ctx, hexHash)
	if err != nil {
		return nil, ErrUnauthorized
	}

	stored, err := hex.DecodeString(info.KeyHash)
	if err != nil {
		return nil, ErrUnauthorized
	}
	computed, _ := hex.DecodeString(hexHash)
	if subtle.ConstantTimeCompare(computed, stored) != 1 {
		return nil, ErrUnauthorized
	}

	return info, nil
}
