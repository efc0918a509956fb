// Package auth holds API key verification for the admin surface.
package auth

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/go-faster/errors"
)

// ErrNotFound is returned when no key matches the presented credential.
var ErrNotFound = errors.New("api key not found")

// APIKey is one issued admin credential. Only the HMAC of the secret is
// stored; the plaintext exists solely at issue time.
type APIKey struct {
	ID        int64
	Name      string
	KeyHash   string
	CreatedAt time.Time
}

// Repository provides API key lookups.
type Repository interface {
	FindByHash(ctx context.Context, hash string) (*APIKey, error)
}

// HashKey derives the stored form of a key: hex HMAC-SHA256 of the
// plaintext under the deployment pepper. Comparing hashes of equal
// length is not timing sensitive, so lookups go straight to the store.
func HashKey(pepper, key string) string {
	mac := hmac.New(sha256.New, []byte(pepper))
	mac.Write([]byte(key))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verifier authenticates presented keys against the repository.
type Verifier struct {
	repo   Repository
	pepper string
}

func NewVerifier(repo Repository, pepper string) *Verifier {
	return &Verifier{repo: repo, pepper: pepper}
}

// Verify returns the key record for a presented plaintext credential.
func (v *Verifier) Verify(ctx context.Context, key string) (*APIKey, error) {
	if key == "" {
		return nil, ErrNotFound
	}
	return v.repo.FindByHash(ctx, HashKey(v.pepper, key))
}
