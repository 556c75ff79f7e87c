package cryptox

import (
	"crypto/sha256"
	"encoding/base64"
)

// FingerprintToken returns the base64url SHA-256 digest of token (43 chars).
// Refresh tokens are persisted and looked up by this value only.
func FingerprintToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}
