// Package sha1 provides SHA-1 content fingerprints.
package sha1

import (
	"crypto/sha1" // #nosec G505 -- fingerprint for deduplication, not a security boundary.
	"encoding/hex"
)

// Hasher implements ccnews.Hasher using SHA-1.
type Hasher struct{}

// New returns a SHA-1 hasher.
func New() *Hasher {
	return &Hasher{}
}

// Hash hashes the input and returns a hex digest.
func (h *Hasher) Hash(data []byte) (string, error) {
	sum := sha1.Sum(data) // #nosec G401
	return hex.EncodeToString(sum[:]), nil
}
