package cryptox

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// Supported bcrypt work factors.
const (
	MinCost     = 10
	MaxCost     = 15
	DefaultCost = 10
)

var (
	ErrInvalidCost   = errors.New("cryptox: bcrypt cost out of range")
	ErrMalformedHash = errors.New("cryptox: malformed password hash")
)

// Hasher hashes and verifies passwords with bcrypt. The plaintext is first
// keyed with the pepper through HMAC-SHA256, which also keeps the bcrypt input
// below its 72 byte limit regardless of password length.
type Hasher struct {
	cost   int
	pepper []byte
}

// NewHasher returns a Hasher using the given cost. A nil pepper is allowed.
func NewHasher(cost int, pepper []byte) (*Hasher, error) {
	if cost < MinCost || cost > MaxCost {
		return nil, fmt.Errorf("%w: %d not in [%d, %d]", ErrInvalidCost, cost, MinCost, MaxCost)
	}
	return &Hasher{cost: cost, pepper: pepper}, nil
}

// Cost returns the work factor new hashes are produced with.
func (h *Hasher) Cost() int { return h.cost }

// Hash returns a salted bcrypt hash embedding the cost factor.
func (h *Hasher) Hash(password string) (string, error) {
	out, err := bcrypt.GenerateFromPassword(h.prehash(password), h.cost)
	if err != nil {
		return "", fmt.Errorf("cryptox: hash password: %w", err)
	}
	return string(out), nil
}

// Verify reports whether password matches encoded. A mismatch is not an
// error; only an unrecognisable hash is.
func (h *Hasher) Verify(password, encoded string) (bool, error) {
	if _, err := bcrypt.Cost([]byte(encoded)); err != nil {
		return false, fmt.Errorf("%w: %v", ErrMalformedHash, err)
	}

	err := bcrypt.CompareHashAndPassword([]byte(encoded), h.prehash(password))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, fmt.Errorf("%w: %v", ErrMalformedHash, err)
	}
}

// NeedsRehash reports whether encoded was produced with a different cost than
// the one currently configured.
func (h *Hasher) NeedsRehash(encoded string) bool {
	cost, err := bcrypt.Cost([]byte(encoded))
	if err != nil {
		return false
	}
	return cost != h.cost
}

func (h *Hasher) prehash(password string) []byte {
	mac := hmac.New(sha256.New, h.pepper)
	mac.Write([]byte(password))
	sum := mac.Sum(nil)

	out := make([]byte, base64.RawStdEncoding.EncodedLen(len(sum)))
	base64.RawStdEncoding.Encode(out, sum)
	return out
}
