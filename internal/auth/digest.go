// Package auth checks caller-supplied API keys against a configured digest.
package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strings"
)

// Digest returns the lowercase hex SHA-256 of an API key.
func Digest(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

// Verifier compares API keys against the expected digest. The raw key is never kept.
type Verifier struct {
	expected []byte
}

// NewVerifier creates a verifier for a hex encoded SHA-256 digest.
func NewVerifier(expectedDigest string) *Verifier {
	return &Verifier{expected: []byte(strings.ToLower(strings.TrimSpace(expectedDigest)))}
}

// Verify reports whether key hashes to the expected digest. A key that was not
// supplied at all never matches; it is still hashed so both paths do the same work.
func (v *Verifier) Verify(key string, supplied bool) bool {
	got := []byte(Digest(key))
	match := subtle.ConstantTimeCompare(got, v.expected) == 1
	return supplied && match
}
