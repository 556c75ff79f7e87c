package jwtx

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrExpired is returned when the embedded expiry has passed.
	ErrExpired = errors.New("jwtx: token expired")

	// ErrInvalid covers bad signatures, malformed structure and claim
	// validation failures other than expiry.
	ErrInvalid = errors.New("jwtx: invalid token")

	// ErrWrongType is an ErrInvalid raised when the type discriminator does
	// not match the verifier that was called.
	ErrWrongType = fmt.Errorf("%w: unexpected token type", ErrInvalid)

	ErrEmptySecret = errors.New("jwtx: empty signing secret")
)

// HS256 signs and verifies tokens for a single signing context. Access and
// refresh tokens each get their own HS256 with its own secret.
type HS256 struct {
	secret []byte
	issuer string
	now    func() time.Time
}

// Option configures an HS256.
type Option func(*HS256)

// WithClock overrides the time source used during verification.
func WithClock(now func() time.Time) Option {
	return func(k *HS256) { k.now = now }
}

// NewHS256 returns a codec for secret. Minimum secret length is a deployment
// concern, only an empty secret is rejected here.
func NewHS256(secret []byte, issuer string, opts ...Option) (*HS256, error) {
	if len(secret) == 0 {
		return nil, ErrEmptySecret
	}
	k := &HS256{secret: secret, issuer: issuer, now: time.Now}
	for _, opt := range opts {
		opt(k)
	}
	return k, nil
}

// SignAccess returns the compact serialisation of claims.
func (k *HS256) SignAccess(claims AccessClaims) (string, error) {
	return k.sign(claims)
}

// SignRefresh returns the compact serialisation of claims.
func (k *HS256) SignRefresh(claims RefreshClaims) (string, error) {
	return k.sign(claims)
}

// VerifyAccess checks signature, expiry and type of an access token.
func (k *HS256) VerifyAccess(token string) (AccessClaims, error) {
	var claims AccessClaims
	if err := k.parse(token, &claims); err != nil {
		return AccessClaims{}, err
	}
	if claims.Type != TypeAccess {
		return AccessClaims{}, ErrWrongType
	}
	return claims, nil
}

// VerifyRefresh checks signature, expiry and type of a refresh token. It is
// stateless: revocation is the store's business.
func (k *HS256) VerifyRefresh(token string) (RefreshClaims, error) {
	var claims RefreshClaims
	if err := k.parse(token, &claims); err != nil {
		return RefreshClaims{}, err
	}
	if claims.Type != TypeRefresh {
		return RefreshClaims{}, ErrWrongType
	}
	if claims.Subject == "" || claims.ID == "" {
		return RefreshClaims{}, fmt.Errorf("%w: missing sub or jti", ErrInvalid)
	}
	return claims, nil
}

func (k *HS256) sign(claims jwt.Claims) (string, error) {
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := t.SignedString(k.secret)
	if err != nil {
		return "", fmt.Errorf("jwtx: sign: %w", err)
	}
	return s, nil
}

func (k *HS256) parse(token string, claims jwt.Claims) error {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(k.now),
	}
	if k.issuer != "" {
		opts = append(opts, jwt.WithIssuer(k.issuer))
	}

	_, err := jwt.NewParser(opts...).ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return k.secret, nil
	})
	switch {
	case err == nil:
		return nil
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrExpired
	default:
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
}
