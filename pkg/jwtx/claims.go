package jwtx

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenType discriminates access from refresh tokens inside the claim set, so
// a token minted for one purpose is rejected when presented for the other
// even if both contexts were configured with the same secret.
type TokenType string

const (
	TypeAccess  TokenType = "access"
	TypeRefresh TokenType = "refresh"
)

// AccessClaims are embedded in short-lived access tokens.
type AccessClaims struct {
	jwt.RegisteredClaims

	Email string    `json:"email"`
	Roles []string  `json:"roles"`
	Type  TokenType `json:"type"`
}

// RefreshClaims are embedded in refresh tokens. The registered "jti" claim
// carries a fresh random identifier so two refresh tokens minted for the same
// subject in the same second still differ.
type RefreshClaims struct {
	jwt.RegisteredClaims

	Type TokenType `json:"type"`
}

// TokenID returns the random identifier of the refresh token.
func (c RefreshClaims) TokenID() string { return c.ID }

// NewAccessClaims builds access claims valid for ttl from now.
func NewAccessClaims(
	subject, email string,
	roles []string,
	issuer string,
	ttl time.Duration,
	now time.Time,
) AccessClaims {
	return AccessClaims{
		RegisteredClaims: registered(subject, issuer, ttl, now),
		Email:            email,
		Roles:            roles,
		Type:             TypeAccess,
	}
}

// NewRefreshClaims builds refresh claims valid for ttl from now.
func NewRefreshClaims(subject, issuer string, ttl time.Duration, now time.Time) RefreshClaims {
	return RefreshClaims{
		RegisteredClaims: registered(subject, issuer, ttl, now),
		Type:             TypeRefresh,
	}
}

func registered(subject, issuer string, ttl time.Duration, now time.Time) jwt.RegisteredClaims {
	return jwt.RegisteredClaims{
		Issuer:    issuer,
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		ID:        uuid.NewString(),
	}
}
