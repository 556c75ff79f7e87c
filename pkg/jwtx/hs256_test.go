package jwtx_test

import (
	"strings"
	"testing"
	"time"

	"github.com/aussiebroadwan/sessionauth/pkg/jwtx"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

const exampleIssuer = "sessionauth-test"

func newCodec(t *testing.T, secret string, opts ...jwtx.Option) *jwtx.HS256 {
	t.Helper()
	k, err := jwtx.NewHS256([]byte(secret), exampleIssuer, opts...)
	require.NoError(t, err)
	return k
}

func TestNewHS256_RejectsEmptySecret(t *testing.T) {
	_, err := jwtx.NewHS256(nil, exampleIssuer)
	require.ErrorIs(t, err, jwtx.ErrEmptySecret)
}

func TestAccessRoundTrip(t *testing.T) {
	k := newCodec(t, "access-secret")
	now := time.Now()

	claims := jwtx.NewAccessClaims("user-1", "alice@example.com", []string{"user", "admin"}, exampleIssuer, 15*time.Minute, now)
	token, err := k.SignAccess(claims)
	require.NoError(t, err)
	require.Len(t, strings.Split(token, "."), 3)

	parsed, err := k.VerifyAccess(token)
	require.NoError(t, err)
	require.Equal(t, "user-1", parsed.Subject)
	require.Equal(t, "alice@example.com", parsed.Email)
	require.Equal(t, []string{"user", "admin"}, parsed.Roles)
	require.Equal(t, jwtx.TypeAccess, parsed.Type)
	require.Equal(t, claims.ExpiresAt.Unix(), parsed.ExpiresAt.Unix())
}

func TestAccessExpiresAfterTTL(t *testing.T) {
	issued := time.Now()
	clock := issued
	k := newCodec(t, "access-secret", jwtx.WithClock(func() time.Time { return clock }))

	token, err := k.SignAccess(jwtx.NewAccessClaims("user-1", "a@example.com", nil, exampleIssuer, time.Minute, issued))
	require.NoError(t, err)

	clock = issued.Add(30 * time.Second)
	_, err = k.VerifyAccess(token)
	require.NoError(t, err)

	clock = issued.Add(2 * time.Minute)
	_, err = k.VerifyAccess(token)
	require.ErrorIs(t, err, jwtx.ErrExpired)
	require.NotErrorIs(t, err, jwtx.ErrInvalid)
}

func TestRefreshRoundTrip(t *testing.T) {
	k := newCodec(t, "refresh-secret")
	now := time.Now()

	a := jwtx.NewRefreshClaims("user-1", exampleIssuer, 7*24*time.Hour, now)
	b := jwtx.NewRefreshClaims("user-1", exampleIssuer, 7*24*time.Hour, now)
	require.NotEqual(t, a.TokenID(), b.TokenID(), "every refresh token gets a fresh identifier")

	ta, err := k.SignRefresh(a)
	require.NoError(t, err)
	tb, err := k.SignRefresh(b)
	require.NoError(t, err)
	require.NotEqual(t, ta, tb)

	parsed, err := k.VerifyRefresh(ta)
	require.NoError(t, err)
	require.Equal(t, "user-1", parsed.Subject)
	require.Equal(t, a.TokenID(), parsed.TokenID())
	require.Equal(t, jwtx.TypeRefresh, parsed.Type)
}

func TestTypeDiscriminator(t *testing.T) {
	// Same secret on purpose: only the discriminator separates the two.
	k := newCodec(t, "shared-secret")
	now := time.Now()

	access, err := k.SignAccess(jwtx.NewAccessClaims("user-1", "a@example.com", nil, exampleIssuer, time.Minute, now))
	require.NoError(t, err)
	refresh, err := k.SignRefresh(jwtx.NewRefreshClaims("user-1", exampleIssuer, time.Minute, now))
	require.NoError(t, err)

	_, err = k.VerifyRefresh(access)
	require.ErrorIs(t, err, jwtx.ErrWrongType)
	require.ErrorIs(t, err, jwtx.ErrInvalid)

	_, err = k.VerifyAccess(refresh)
	require.ErrorIs(t, err, jwtx.ErrWrongType)
}

func TestVerifyRejectsForeignSecret(t *testing.T) {
	access := newCodec(t, "access-secret")
	refresh := newCodec(t, "refresh-secret")

	token, err := access.SignAccess(jwtx.NewAccessClaims("user-1", "a@example.com", nil, exampleIssuer, time.Minute, time.Now()))
	require.NoError(t, err)

	_, err = refresh.VerifyAccess(token)
	require.ErrorIs(t, err, jwtx.ErrInvalid)
}

func TestVerifyRejectsWrongIssuer(t *testing.T) {
	signer, err := jwtx.NewHS256([]byte("secret"), "someone-else")
	require.NoError(t, err)
	token, err := signer.SignRefresh(jwtx.NewRefreshClaims("user-1", "someone-else", time.Minute, time.Now()))
	require.NoError(t, err)

	_, err = newCodec(t, "secret").VerifyRefresh(token)
	require.ErrorIs(t, err, jwtx.ErrInvalid)
}

func TestVerifyRejectsMalformed(t *testing.T) {
	k := newCodec(t, "secret")
	token, err := k.SignRefresh(jwtx.NewRefreshClaims("user-1", exampleIssuer, time.Minute, time.Now()))
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	tampered := parts[0] + "." + parts[1] + "x." + parts[2]

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwtx.NewRefreshClaims("user-1", exampleIssuer, time.Minute, time.Now())).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"garbage", "not.a.jwt"},
		{"tampered payload", tampered},
		{"truncated", parts[0] + "." + parts[1]},
		{"alg none", unsigned},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := k.VerifyRefresh(tt.token)
			require.ErrorIs(t, err, jwtx.ErrInvalid)
		})
	}
}

func TestVerifyRequiresExpiry(t *testing.T) {
	k := newCodec(t, "secret")
	claims := jwtx.NewRefreshClaims("user-1", exampleIssuer, time.Minute, time.Now())
	claims.ExpiresAt = nil

	token, err := k.SignRefresh(claims)
	require.NoError(t, err)

	_, err = k.VerifyRefresh(token)
	require.ErrorIs(t, err, jwtx.ErrInvalid)
}
