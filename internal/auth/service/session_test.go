package service_test

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aussiebroadwan/sessionauth/internal/auth/domain"
	"github.com/aussiebroadwan/sessionauth/internal/auth/service"
	"github.com/aussiebroadwan/sessionauth/internal/auth/store"
	redisstore "github.com/aussiebroadwan/sessionauth/internal/auth/store/drivers/redis"
	"github.com/aussiebroadwan/sessionauth/internal/auth/store/drivers/sqlite"
	"github.com/aussiebroadwan/sessionauth/pkg/cryptox"
	"github.com/aussiebroadwan/sessionauth/pkg/jwtx"
	"github.com/aussiebroadwan/sessionauth/pkg/slogx"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

const (
	testAccessSecret  = "access-secret-for-tests-0123456789"
	testRefreshSecret = "refresh-secret-for-tests-0123456789"
	testIssuer        = "sessionauth-test"

	aliceEmail    = "alice@example.com"
	alicePassword = "Secret123!"
)

var testDevice = domain.DeviceContext{UserAgent: "go-test/1.0", IPAddress: "203.0.113.9"}

type backend struct {
	name   string
	tokens func(t *testing.T, db *sqlite.Store) store.RefreshTokens
}

var backends = []backend{
	{
		name:   "sqlite",
		tokens: func(t *testing.T, db *sqlite.Store) store.RefreshTokens { return db.RefreshTokens() },
	},
	{
		name: "redis",
		tokens: func(t *testing.T, _ *sqlite.Store) store.RefreshTokens {
			mr := miniredis.RunT(t)
			client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
			t.Cleanup(func() { _ = client.Close() })
			return redisstore.NewStore(client)
		},
	},
}

type env struct {
	svc    *service.SessionService
	db     *sqlite.Store
	tokens store.RefreshTokens
}

func testConfig() service.SessionConfig {
	return service.SessionConfig{
		AccessSecret:  []byte(testAccessSecret),
		RefreshSecret: []byte(testRefreshSecret),
		AccessTTL:     "15m",
		RefreshTTL:    "7d",
		Issuer:        testIssuer,
		BcryptCost:    cryptox.MinCost,
		Pepper:        []byte("test-pepper"),
	}
}

func newEnv(t *testing.T, b backend, mutate ...func(*service.SessionConfig)) env {
	t.Helper()

	db, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.ApplyMigrations())

	cfg := testConfig()
	for _, m := range mutate {
		m(&cfg)
	}

	tokens := b.tokens(t, db)
	svc, err := service.NewSessionService(cfg, db.Users(), tokens)
	require.NoError(t, err)
	return env{svc: svc, db: db, tokens: tokens}
}

func registerAlice(t *testing.T, e env) *domain.AuthResult {
	t.Helper()
	res, err := e.svc.Register(context.Background(), service.RegisterInput{
		Email:     aliceEmail,
		FirstName: "Alice",
		LastName:  "Liddell",
		Password:  alicePassword,
	}, testDevice)
	require.NoError(t, err)
	return res
}

func requireRejected(t *testing.T, err error, reason service.RejectReason) {
	t.Helper()
	require.ErrorIs(t, err, service.ErrInvalidToken)

	var rej *service.RejectionError
	require.True(t, errors.As(err, &rej), "expected *RejectionError, got %T", err)
	require.Equal(t, reason, rej.Reason)
}

func forEachBackend(t *testing.T, fn func(t *testing.T, b backend)) {
	for _, b := range backends {
		t.Run(b.name, func(t *testing.T) {
			t.Parallel()
			fn(t, b)
		})
	}
}

func TestRegister(t *testing.T) {
	forEachBackend(t, func(t *testing.T, b backend) {
		ctx := context.Background()
		e := newEnv(t, b)
		res := registerAlice(t, e)

		require.NotEmpty(t, res.AccessToken)
		require.NotEmpty(t, res.RefreshToken)
		require.Equal(t, "Bearer", res.TokenType)
		require.EqualValues(t, 900, res.ExpiresIn)
		require.Equal(t, aliceEmail, res.User.Email)
		require.Equal(t, []string{domain.DefaultRole}, res.User.Roles)
		require.True(t, res.User.IsActive)

		recs, err := e.tokens.ListUserRefreshTokens(ctx, res.User.ID)
		require.NoError(t, err)
		require.Len(t, recs, 1)
		require.False(t, recs[0].Revoked)
		require.True(t, recs[0].ExpiresAt.After(time.Now()))
		require.Equal(t, testDevice.UserAgent, recs[0].UserAgent)
		require.Equal(t, testDevice.IPAddress, recs[0].IPAddress)
		require.Equal(t, cryptox.FingerprintToken(res.RefreshToken), recs[0].TokenHash)

		stored, err := e.db.Users().GetUserByID(ctx, res.User.ID)
		require.NoError(t, err)
		require.NotEqual(t, alicePassword, stored.PasswordHash)

		t.Run("duplicate email", func(t *testing.T) {
			_, err := e.svc.Register(ctx, service.RegisterInput{
				Email:     "ALICE@example.com",
				FirstName: "Other",
				LastName:  "Alice",
				Password:  "another-password",
			}, testDevice)
			require.ErrorIs(t, err, service.ErrDuplicateEmail)
		})
	})
}

func TestRefreshExpiryMatchesRecord(t *testing.T) {
	e := newEnv(t, backends[0])
	res := registerAlice(t, e)

	codec, err := jwtx.NewHS256([]byte(testRefreshSecret), testIssuer)
	require.NoError(t, err)
	claims, err := codec.VerifyRefresh(res.RefreshToken)
	require.NoError(t, err)

	rec, err := e.tokens.GetRefreshToken(context.Background(), cryptox.FingerprintToken(res.RefreshToken), res.User.ID)
	require.NoError(t, err)
	require.True(t, claims.ExpiresAt.Time.Equal(rec.ExpiresAt))
	require.Equal(t, 7*24*time.Hour, claims.ExpiresAt.Sub(claims.IssuedAt.Time))
}

func TestLogin(t *testing.T) {
	forEachBackend(t, func(t *testing.T, b backend) {
		ctx := context.Background()
		e := newEnv(t, b)
		reg := registerAlice(t, e)

		t.Run("success", func(t *testing.T) {
			res, err := e.svc.Login(ctx, "Alice@Example.com", alicePassword, testDevice)
			require.NoError(t, err)
			require.Equal(t, reg.User.ID, res.User.ID)
			require.NotEqual(t, reg.RefreshToken, res.RefreshToken)

			u, err := e.db.Users().GetUserByID(ctx, reg.User.ID)
			require.NoError(t, err)
			require.NotNil(t, u.LastLoginAt)

			recs, err := e.tokens.ListUserRefreshTokens(ctx, reg.User.ID)
			require.NoError(t, err)
			require.Len(t, recs, 2)
		})

		t.Run("wrong password and unknown email are indistinguishable", func(t *testing.T) {
			_, errWrong := e.svc.Login(ctx, aliceEmail, "not-the-password", testDevice)
			_, errUnknown := e.svc.Login(ctx, "nobody@example.com", alicePassword, testDevice)

			require.ErrorIs(t, errWrong, service.ErrInvalidCredentials)
			require.ErrorIs(t, errUnknown, service.ErrInvalidCredentials)
			require.Equal(t, errWrong.Error(), errUnknown.Error())
		})

		t.Run("inactive account", func(t *testing.T) {
			require.NoError(t, e.db.Users().SetActive(ctx, reg.User.ID, false))
			t.Cleanup(func() { _ = e.db.Users().SetActive(ctx, reg.User.ID, true) })

			_, err := e.svc.Login(ctx, aliceEmail, alicePassword, testDevice)
			require.ErrorIs(t, err, service.ErrInactiveAccount)

			_, err = e.svc.Login(ctx, aliceEmail, "wrong", testDevice)
			require.ErrorIs(t, err, service.ErrInvalidCredentials, "inactivity is only revealed with the right password")
		})
	})
}

func TestLoginUpgradesHashCost(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, backends[0])
	reg := registerAlice(t, e)

	cfg := testConfig()
	cfg.BcryptCost = cryptox.MinCost + 1
	stronger, err := service.NewSessionService(cfg, e.db.Users(), e.tokens)
	require.NoError(t, err)

	_, err = stronger.Login(ctx, aliceEmail, alicePassword, testDevice)
	require.NoError(t, err)

	u, err := e.db.Users().GetUserByID(ctx, reg.User.ID)
	require.NoError(t, err)
	require.Contains(t, u.PasswordHash, "$11$")

	_, err = e.svc.Login(ctx, aliceEmail, alicePassword, testDevice)
	require.NoError(t, err)
}

func TestRefresh(t *testing.T) {
	forEachBackend(t, func(t *testing.T, b backend) {
		ctx := context.Background()
		e := newEnv(t, b)
		reg := registerAlice(t, e)

		pair, err := e.svc.Refresh(ctx, reg.RefreshToken)
		require.NoError(t, err)
		require.NotEqual(t, reg.RefreshToken, pair.RefreshToken)
		require.Equal(t, "Bearer", pair.TokenType)

		claims, err := e.svc.VerifyAccess(pair.AccessToken)
		require.NoError(t, err)
		require.Equal(t, reg.User.ID, claims.Subject)
		require.Equal(t, aliceEmail, claims.Email)

		t.Run("rotated token is single use", func(t *testing.T) {
			for range 3 {
				_, err := e.svc.Refresh(ctx, reg.RefreshToken)
				requireRejected(t, err, service.ReasonRevoked)
			}
		})

		t.Run("rotation keeps device context", func(t *testing.T) {
			rec, err := e.tokens.GetRefreshToken(ctx, cryptox.FingerprintToken(pair.RefreshToken), reg.User.ID)
			require.NoError(t, err)
			require.Equal(t, testDevice.UserAgent, rec.UserAgent)
			require.Equal(t, testDevice.IPAddress, rec.IPAddress)
		})

		t.Run("chain continues", func(t *testing.T) {
			next, err := e.svc.Refresh(ctx, pair.RefreshToken)
			require.NoError(t, err)

			sessions, err := e.svc.Sessions(ctx, reg.User.ID)
			require.NoError(t, err)
			require.Len(t, sessions, 1)

			_, err = e.svc.Refresh(ctx, next.RefreshToken)
			require.NoError(t, err)
		})
	})
}

func TestRefreshRejections(t *testing.T) {
	ctx := context.Background()

	t.Run("malformed", func(t *testing.T) {
		e := newEnv(t, backends[0])
		_, err := e.svc.Refresh(ctx, "not.a.jwt")
		requireRejected(t, err, service.ReasonMalformed)

		_, err = e.svc.Refresh(ctx, "")
		requireRejected(t, err, service.ReasonMalformed)
	})

	t.Run("access token presented", func(t *testing.T) {
		e := newEnv(t, backends[0])
		reg := registerAlice(t, e)

		_, err := e.svc.Refresh(ctx, reg.AccessToken)
		require.ErrorIs(t, err, service.ErrInvalidToken)
	})

	t.Run("tampered", func(t *testing.T) {
		e := newEnv(t, backends[0])
		reg := registerAlice(t, e)

		parts := strings.Split(reg.RefreshToken, ".")
		require.Len(t, parts, 3)
		parts[2] = base64.RawURLEncoding.EncodeToString(make([]byte, 32))
		tampered := strings.Join(parts, ".")
		_, err := e.svc.Refresh(ctx, tampered)
		requireRejected(t, err, service.ReasonMalformed)
	})

	t.Run("signed but never stored", func(t *testing.T) {
		e := newEnv(t, backends[0])
		reg := registerAlice(t, e)

		codec, err := jwtx.NewHS256([]byte(testRefreshSecret), testIssuer)
		require.NoError(t, err)
		forged, err := codec.SignRefresh(jwtx.NewRefreshClaims(reg.User.ID, testIssuer, time.Hour, time.Now()))
		require.NoError(t, err)

		_, err = e.svc.Refresh(ctx, forged)
		requireRejected(t, err, service.ReasonNotFound)
	})

	t.Run("expired after ttl", func(t *testing.T) {
		if testing.Short() {
			t.Skip("sleeps for two seconds")
		}
		e := newEnv(t, backends[0], func(c *service.SessionConfig) { c.RefreshTTL = "1s" })
		reg := registerAlice(t, e)

		time.Sleep(2 * time.Second)
		_, err := e.svc.Refresh(ctx, reg.RefreshToken)
		requireRejected(t, err, service.ReasonExpired)
	})

	t.Run("user deactivated after issue", func(t *testing.T) {
		e := newEnv(t, backends[0])
		reg := registerAlice(t, e)

		require.NoError(t, e.db.Users().SetActive(ctx, reg.User.ID, false))
		_, err := e.svc.Refresh(ctx, reg.RefreshToken)
		requireRejected(t, err, service.ReasonUserInactive)

		recs, err := e.tokens.ListUserRefreshTokens(ctx, reg.User.ID)
		require.NoError(t, err)
		require.Len(t, recs, 1, "no new token was issued")
		require.False(t, recs[0].Revoked)
	})

	t.Run("record expired before claim", func(t *testing.T) {
		db, err := sqlite.NewStore(":memory:")
		require.NoError(t, err)
		t.Cleanup(func() { _ = db.Close() })
		require.NoError(t, db.ApplyMigrations())

		tokens := &skewedTokens{RefreshTokens: db.RefreshTokens(), skew: -8 * 24 * time.Hour}
		svc, err := service.NewSessionService(testConfig(), db.Users(), tokens)
		require.NoError(t, err)

		reg := registerAlice(t, env{svc: svc, db: db, tokens: tokens})
		_, err = svc.Refresh(ctx, reg.RefreshToken)
		requireRejected(t, err, service.ReasonRecordExpired)
	})

	t.Run("reason is logged", func(t *testing.T) {
		e := newEnv(t, backends[0])
		reg := registerAlice(t, e)
		_, err := e.svc.Refresh(ctx, reg.RefreshToken)
		require.NoError(t, err)

		var buf bytes.Buffer
		logCtx := slogx.WithContext(ctx, slog.New(slog.NewJSONHandler(&buf, nil)))

		_, err = e.svc.Refresh(logCtx, reg.RefreshToken)
		require.ErrorIs(t, err, service.ErrInvalidToken)
		require.Contains(t, buf.String(), `"reason":"revoked"`)
		require.Contains(t, buf.String(), `"user_id":"`+reg.User.ID+`"`)
		require.NotContains(t, err.Error(), reg.RefreshToken)
	})
}

func TestConcurrentRefreshSingleWinner(t *testing.T) {
	forEachBackend(t, func(t *testing.T, b backend) {
		ctx := context.Background()
		e := newEnv(t, b)
		reg := registerAlice(t, e)

		const callers = 8
		var (
			wg       sync.WaitGroup
			wins     atomic.Int32
			rejected atomic.Int32
			start    = make(chan struct{})
		)
		for range callers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				<-start
				_, err := e.svc.Refresh(ctx, reg.RefreshToken)
				switch {
				case err == nil:
					wins.Add(1)
				case errors.Is(err, service.ErrInvalidToken):
					rejected.Add(1)
				}
			}()
		}
		close(start)
		wg.Wait()

		require.EqualValues(t, 1, wins.Load())
		require.EqualValues(t, callers-1, rejected.Load())

		sessions, err := e.svc.Sessions(ctx, reg.User.ID)
		require.NoError(t, err)
		require.Len(t, sessions, 1)
	})
}

func TestLogout(t *testing.T) {
	forEachBackend(t, func(t *testing.T, b backend) {
		ctx := context.Background()
		e := newEnv(t, b)
		reg := registerAlice(t, e)
		hash := cryptox.FingerprintToken(reg.RefreshToken)

		e.svc.Logout(ctx, reg.User.ID, reg.RefreshToken)
		first, err := e.tokens.GetRefreshToken(ctx, hash, reg.User.ID)
		require.NoError(t, err)
		require.True(t, first.Revoked)
		require.NotNil(t, first.RevokedAt)

		e.svc.Logout(ctx, reg.User.ID, reg.RefreshToken)
		second, err := e.tokens.GetRefreshToken(ctx, hash, reg.User.ID)
		require.NoError(t, err)
		require.Equal(t, first, second)

		_, err = e.svc.Refresh(ctx, reg.RefreshToken)
		require.ErrorIs(t, err, service.ErrInvalidToken)

		// Absent, garbage and foreign tokens are silently ignored.
		e.svc.Logout(ctx, reg.User.ID, "")
		e.svc.Logout(ctx, reg.User.ID, "garbage")
		e.svc.Logout(ctx, "someone-else", reg.RefreshToken)
	})
}

func TestLogoutOtherOwnerIsNoop(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, backends[0])
	reg := registerAlice(t, e)

	e.svc.Logout(ctx, "mallory", reg.RefreshToken)

	_, err := e.svc.Refresh(ctx, reg.RefreshToken)
	require.NoError(t, err)
}

func TestLogoutAllAndSessions(t *testing.T) {
	forEachBackend(t, func(t *testing.T, b backend) {
		ctx := context.Background()
		e := newEnv(t, b)
		reg := registerAlice(t, e)

		for range 2 {
			_, err := e.svc.Login(ctx, aliceEmail, alicePassword, testDevice)
			require.NoError(t, err)
		}

		sessions, err := e.svc.Sessions(ctx, reg.User.ID)
		require.NoError(t, err)
		require.Len(t, sessions, 3)
		require.Equal(t, testDevice.UserAgent, sessions[0].UserAgent)

		e.svc.LogoutAll(ctx, reg.User.ID)

		sessions, err = e.svc.Sessions(ctx, reg.User.ID)
		require.NoError(t, err)
		require.Empty(t, sessions)

		_, err = e.svc.Refresh(ctx, reg.RefreshToken)
		require.ErrorIs(t, err, service.ErrInvalidToken)
	})
}

func TestChangePassword(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, backends[0])
	reg := registerAlice(t, e)

	err := e.svc.ChangePassword(ctx, reg.User.ID, "wrong", "NewSecret456!")
	require.ErrorIs(t, err, service.ErrInvalidCredentials)

	require.NoError(t, e.svc.ChangePassword(ctx, reg.User.ID, alicePassword, "NewSecret456!"))

	_, err = e.svc.Refresh(ctx, reg.RefreshToken)
	require.ErrorIs(t, err, service.ErrInvalidToken)

	_, err = e.svc.Login(ctx, aliceEmail, alicePassword, testDevice)
	require.ErrorIs(t, err, service.ErrInvalidCredentials)

	_, err = e.svc.Login(ctx, aliceEmail, "NewSecret456!", testDevice)
	require.NoError(t, err)

	err = e.svc.ChangePassword(ctx, "missing-user", "x", "y")
	require.ErrorIs(t, err, service.ErrInvalidCredentials)
}

func TestMe(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, backends[0])
	reg := registerAlice(t, e)

	me, err := e.svc.Me(ctx, reg.User.ID)
	require.NoError(t, err)
	require.Equal(t, reg.User.ID, me.ID)
	require.Equal(t, aliceEmail, me.Email)
	require.Equal(t, "Alice", me.FirstName)
	require.Equal(t, []string{domain.DefaultRole}, me.Roles)

	_, err = e.svc.Me(ctx, "missing")
	require.ErrorIs(t, err, service.ErrInvalidToken)
}

func TestIssueRetriesOnceOnCollision(t *testing.T) {
	ctx := context.Background()

	newSvc := func(t *testing.T, failures int) (*service.SessionService, *collidingTokens) {
		db, err := sqlite.NewStore(":memory:")
		require.NoError(t, err)
		t.Cleanup(func() { _ = db.Close() })
		require.NoError(t, db.ApplyMigrations())

		tokens := &collidingTokens{RefreshTokens: db.RefreshTokens(), failures: failures}
		svc, err := service.NewSessionService(testConfig(), db.Users(), tokens)
		require.NoError(t, err)
		return svc, tokens
	}

	t.Run("one collision is absorbed", func(t *testing.T) {
		svc, tokens := newSvc(t, 1)
		_, err := svc.Register(ctx, service.RegisterInput{Email: aliceEmail, Password: alicePassword}, testDevice)
		require.NoError(t, err)
		require.Equal(t, 2, tokens.calls)
	})

	t.Run("repeated collisions give up", func(t *testing.T) {
		svc, tokens := newSvc(t, 10)
		_, err := svc.Register(ctx, service.RegisterInput{Email: aliceEmail, Password: alicePassword}, testDevice)
		require.ErrorIs(t, err, store.ErrAlreadyExists)
		require.NotErrorIs(t, err, service.ErrInvalidToken)
		require.Equal(t, 2, tokens.calls)
	})
}

func TestRegisterRemovesUserWhenIssuanceFails(t *testing.T) {
	ctx := context.Background()
	db, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.ApplyMigrations())

	tokens := &failingTokens{RefreshTokens: db.RefreshTokens(), err: errors.New("token store down")}
	svc, err := service.NewSessionService(testConfig(), db.Users(), tokens)
	require.NoError(t, err)

	in := service.RegisterInput{Email: aliceEmail, FirstName: "Alice", LastName: "Liddell", Password: alicePassword}
	_, err = svc.Register(ctx, in, testDevice)
	require.ErrorIs(t, err, tokens.err)

	_, err = db.Users().GetUserByEmail(ctx, aliceEmail)
	require.ErrorIs(t, err, store.ErrNotFound)

	tokens.err = nil
	res, err := svc.Register(ctx, in, testDevice)
	require.NoError(t, err, "retry with the same email succeeds")
	require.Equal(t, aliceEmail, res.User.Email)
}

func TestNewSessionServiceConfiguration(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*service.SessionConfig)
	}{
		{name: "bad access ttl", mutate: func(c *service.SessionConfig) { c.AccessTTL = "15 minutes" }},
		{name: "bad refresh ttl", mutate: func(c *service.SessionConfig) { c.RefreshTTL = "7w" }},
		{name: "zero ttl", mutate: func(c *service.SessionConfig) { c.AccessTTL = "0s" }},
		{name: "cost too low", mutate: func(c *service.SessionConfig) { c.BcryptCost = 4 }},
		{name: "cost too high", mutate: func(c *service.SessionConfig) { c.BcryptCost = 31 }},
		{name: "empty access secret", mutate: func(c *service.SessionConfig) { c.AccessSecret = nil }},
		{name: "empty refresh secret", mutate: func(c *service.SessionConfig) { c.RefreshSecret = nil }},
		{name: "shared secret", mutate: func(c *service.SessionConfig) { c.RefreshSecret = c.AccessSecret }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			tt.mutate(&cfg)
			_, err := service.NewSessionService(cfg, nil, nil)
			require.ErrorIs(t, err, service.ErrConfiguration)
		})
	}
}

// skewedTokens shifts stored expiries so the record expires before the JWT.
type skewedTokens struct {
	store.RefreshTokens
	skew time.Duration
}

func (s *skewedTokens) CreateRefreshToken(ctx context.Context, t domain.RefreshToken) error {
	t.ExpiresAt = t.ExpiresAt.Add(s.skew)
	return s.RefreshTokens.CreateRefreshToken(ctx, t)
}

// collidingTokens reports a collision for the first failures inserts.
type collidingTokens struct {
	store.RefreshTokens
	failures int
	calls    int
}

func (c *collidingTokens) CreateRefreshToken(ctx context.Context, t domain.RefreshToken) error {
	c.calls++
	if c.calls <= c.failures {
		return store.ErrAlreadyExists
	}
	return c.RefreshTokens.CreateRefreshToken(ctx, t)
}

// failingTokens fails every insert with err while it is set.
type failingTokens struct {
	store.RefreshTokens
	err error
}

func (f *failingTokens) CreateRefreshToken(ctx context.Context, t domain.RefreshToken) error {
	if f.err != nil {
		return f.err
	}
	return f.RefreshTokens.CreateRefreshToken(ctx, t)
}
