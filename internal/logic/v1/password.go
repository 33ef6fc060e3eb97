package v1

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// MaxPasswordLength is the longest accepted plaintext password.
// bcrypt silently truncates input beyond 72 bytes, so longer passwords
// are rejected instead of being accepted with reduced entropy.
const MaxPasswordLength = 72

// Hasher hashes and verifies passwords with bcrypt.
// The cost is the bcrypt work factor; raising it makes each hash and
// verification more expensive for brute-force resistance.
type Hasher struct {
	cost int
}

// NewHasher creates a Hasher with the given bcrypt cost.
// Costs outside bcrypt's valid range fall back to bcrypt.DefaultCost.
func NewHasher(cost int) *Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &Hasher{cost: cost}
}

// Hash returns the salted bcrypt hash of plaintext. Two calls with the same
// plaintext produce different hashes; both verify against the plaintext.
func (h *Hasher) Hash(plaintext string) (string, error) {
	if plaintext == "" {
		return "", fmt.Errorf("hash password: empty password: %w", ErrInvalidInput)
	}
	if len(plaintext) > MaxPasswordLength {
		return "", fmt.Errorf("hash password: longer than %d bytes: %w", MaxPasswordLength, ErrInvalidInput)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// Verify reports whether plaintext matches the given bcrypt hash.
// Malformed hashes verify as false rather than failing; the comparison
// itself is constant-time inside bcrypt.
func (h *Hasher) Verify(plaintext, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext)) == nil
}
