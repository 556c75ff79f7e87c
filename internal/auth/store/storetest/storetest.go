// Package storetest holds a behavioural suite shared by every
// store.RefreshTokens driver.
package storetest

import (
	"context"
	"crypto/rand"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aussiebroadwan/sessionauth/internal/auth/domain"
	"github.com/aussiebroadwan/sessionauth/internal/auth/store"
	"github.com/aussiebroadwan/sessionauth/pkg/cryptox"
	"github.com/aussiebroadwan/sessionauth/pkg/idx"
	"github.com/stretchr/testify/require"
)

// Harness is a fresh, empty driver instance.
type Harness struct {
	Tokens store.RefreshTokens

	// SeedUser makes id a valid owner. Drivers without referential
	// integrity may leave it nil.
	SeedUser func(t *testing.T, id string)

	// Clock is the time source the driver was built with.
	Clock *Clock
}

// Clock is a settable time source.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

func NewClock(start time.Time) *Clock { return &Clock{now: start} }

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// Record builds a live record owned by userID.
func Record(t *testing.T, userID string, now time.Time) domain.RefreshToken {
	t.Helper()
	raw := make([]byte, 32)
	_, err := rand.Read(raw)
	require.NoError(t, err)
	return domain.RefreshToken{
		ID:        idx.New().String(),
		UserID:    userID,
		TokenHash: cryptox.FingerprintToken(string(raw)),
		ExpiresAt: now.Add(time.Hour).Truncate(time.Millisecond),
		UserAgent: "storetest/1.0",
		IPAddress: "203.0.113.7",
		CreatedAt: now.Truncate(time.Millisecond),
	}
}

// RunRefreshTokens exercises the store.RefreshTokens contract.
func RunRefreshTokens(t *testing.T, newHarness func(t *testing.T) Harness) {
	ctx := context.Background()

	setup := func(t *testing.T, users ...string) Harness {
		h := newHarness(t)
		if h.SeedUser != nil {
			for _, u := range users {
				h.SeedUser(t, u)
			}
		}
		return h
	}

	t.Run("create and get", func(t *testing.T) {
		h := setup(t, "alice")
		rec := Record(t, "alice", h.Clock.Now())
		require.NoError(t, h.Tokens.CreateRefreshToken(ctx, rec))

		got, err := h.Tokens.GetRefreshToken(ctx, rec.TokenHash, "alice")
		require.NoError(t, err)
		require.Equal(t, rec.ID, got.ID)
		require.Equal(t, rec.UserID, got.UserID)
		require.Equal(t, rec.TokenHash, got.TokenHash)
		require.True(t, rec.ExpiresAt.Equal(got.ExpiresAt))
		require.True(t, rec.CreatedAt.Equal(got.CreatedAt))
		require.Equal(t, rec.UserAgent, got.UserAgent)
		require.Equal(t, rec.IPAddress, got.IPAddress)
		require.False(t, got.Revoked)
		require.Nil(t, got.RevokedAt)
	})

	t.Run("lookup is scoped to owner", func(t *testing.T) {
		h := setup(t, "alice", "mallory")
		rec := Record(t, "alice", h.Clock.Now())
		require.NoError(t, h.Tokens.CreateRefreshToken(ctx, rec))

		_, err := h.Tokens.GetRefreshToken(ctx, rec.TokenHash, "mallory")
		require.ErrorIs(t, err, store.ErrNotFound)

		_, err = h.Tokens.GetRefreshToken(ctx, "no-such-hash", "alice")
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("duplicate hash conflicts", func(t *testing.T) {
		h := setup(t, "alice")
		rec := Record(t, "alice", h.Clock.Now())
		require.NoError(t, h.Tokens.CreateRefreshToken(ctx, rec))

		dup := Record(t, "alice", h.Clock.Now())
		dup.TokenHash = rec.TokenHash
		require.ErrorIs(t, h.Tokens.CreateRefreshToken(ctx, dup), store.ErrAlreadyExists)
	})

	t.Run("revoke is idempotent and sets revoked_at once", func(t *testing.T) {
		h := setup(t, "alice")
		rec := Record(t, "alice", h.Clock.Now())
		require.NoError(t, h.Tokens.CreateRefreshToken(ctx, rec))

		require.NoError(t, h.Tokens.RevokeRefreshToken(ctx, rec.ID))
		first, err := h.Tokens.GetRefreshToken(ctx, rec.TokenHash, "alice")
		require.NoError(t, err)
		require.True(t, first.Revoked)
		require.NotNil(t, first.RevokedAt)

		h.Clock.Advance(time.Minute)
		require.NoError(t, h.Tokens.RevokeRefreshToken(ctx, rec.ID))
		second, err := h.Tokens.GetRefreshToken(ctx, rec.TokenHash, "alice")
		require.NoError(t, err)
		require.True(t, first.RevokedAt.Equal(*second.RevokedAt))

		require.NoError(t, h.Tokens.RevokeRefreshToken(ctx, "unknown-id"))
	})

	t.Run("revoke by hash requires owner", func(t *testing.T) {
		h := setup(t, "alice", "mallory")
		rec := Record(t, "alice", h.Clock.Now())
		require.NoError(t, h.Tokens.CreateRefreshToken(ctx, rec))

		require.NoError(t, h.Tokens.RevokeRefreshTokenByHash(ctx, rec.TokenHash, "mallory"))
		got, err := h.Tokens.GetRefreshToken(ctx, rec.TokenHash, "alice")
		require.NoError(t, err)
		require.False(t, got.Revoked)

		require.NoError(t, h.Tokens.RevokeRefreshTokenByHash(ctx, rec.TokenHash, "alice"))
		require.NoError(t, h.Tokens.RevokeRefreshTokenByHash(ctx, rec.TokenHash, "alice"))
		require.NoError(t, h.Tokens.RevokeRefreshTokenByHash(ctx, "never-issued", "alice"))

		got, err = h.Tokens.GetRefreshToken(ctx, rec.TokenHash, "alice")
		require.NoError(t, err)
		require.True(t, got.Revoked)
	})

	t.Run("rotate revokes old and stores next", func(t *testing.T) {
		h := setup(t, "alice")
		old := Record(t, "alice", h.Clock.Now())
		require.NoError(t, h.Tokens.CreateRefreshToken(ctx, old))

		next := Record(t, "alice", h.Clock.Now())
		require.NoError(t, h.Tokens.RotateRefreshToken(ctx, old.ID, next))

		got, err := h.Tokens.GetRefreshToken(ctx, old.TokenHash, "alice")
		require.NoError(t, err)
		require.True(t, got.Revoked)

		got, err = h.Tokens.GetRefreshToken(ctx, next.TokenHash, "alice")
		require.NoError(t, err)
		require.False(t, got.Revoked)
	})

	t.Run("rotate of revoked record stores nothing", func(t *testing.T) {
		h := setup(t, "alice")
		old := Record(t, "alice", h.Clock.Now())
		require.NoError(t, h.Tokens.CreateRefreshToken(ctx, old))
		require.NoError(t, h.Tokens.RevokeRefreshToken(ctx, old.ID))

		next := Record(t, "alice", h.Clock.Now())
		require.ErrorIs(t, h.Tokens.RotateRefreshToken(ctx, old.ID, next), store.ErrAlreadyRevoked)

		_, err := h.Tokens.GetRefreshToken(ctx, next.TokenHash, "alice")
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("rotate of unknown record", func(t *testing.T) {
		h := setup(t, "alice")
		next := Record(t, "alice", h.Clock.Now())
		require.ErrorIs(t, h.Tokens.RotateRefreshToken(ctx, "missing", next), store.ErrNotFound)
	})

	t.Run("rotate conflict leaves old record live", func(t *testing.T) {
		h := setup(t, "alice")
		old := Record(t, "alice", h.Clock.Now())
		other := Record(t, "alice", h.Clock.Now())
		require.NoError(t, h.Tokens.CreateRefreshToken(ctx, old))
		require.NoError(t, h.Tokens.CreateRefreshToken(ctx, other))

		next := Record(t, "alice", h.Clock.Now())
		next.TokenHash = other.TokenHash
		require.ErrorIs(t, h.Tokens.RotateRefreshToken(ctx, old.ID, next), store.ErrAlreadyExists)

		got, err := h.Tokens.GetRefreshToken(ctx, old.TokenHash, "alice")
		require.NoError(t, err)
		require.False(t, got.Revoked)
	})

	t.Run("concurrent rotate has exactly one winner", func(t *testing.T) {
		h := setup(t, "alice")
		old := Record(t, "alice", h.Clock.Now())
		require.NoError(t, h.Tokens.CreateRefreshToken(ctx, old))

		const workers = 16
		var (
			wg       sync.WaitGroup
			wins     atomic.Int32
			replayed atomic.Int32
			start    = make(chan struct{})
		)
		for range workers {
			next := Record(t, "alice", h.Clock.Now())
			wg.Add(1)
			go func() {
				defer wg.Done()
				<-start
				switch err := h.Tokens.RotateRefreshToken(ctx, old.ID, next); {
				case err == nil:
					wins.Add(1)
				case errors.Is(err, store.ErrAlreadyRevoked):
					replayed.Add(1)
				}
			}()
		}
		close(start)
		wg.Wait()

		require.EqualValues(t, 1, wins.Load())
		require.EqualValues(t, workers-1, replayed.Load())

		all, err := h.Tokens.ListUserRefreshTokens(ctx, "alice")
		require.NoError(t, err)
		require.Len(t, all, 2)
	})

	t.Run("revoke all and list", func(t *testing.T) {
		h := setup(t, "alice", "bob")
		for range 3 {
			require.NoError(t, h.Tokens.CreateRefreshToken(ctx, Record(t, "alice", h.Clock.Now())))
			h.Clock.Advance(time.Second)
		}
		bobs := Record(t, "bob", h.Clock.Now())
		require.NoError(t, h.Tokens.CreateRefreshToken(ctx, bobs))

		all, err := h.Tokens.ListUserRefreshTokens(ctx, "alice")
		require.NoError(t, err)
		require.Len(t, all, 3)
		require.True(t, all[0].CreatedAt.After(all[2].CreatedAt), "newest first")

		require.NoError(t, h.Tokens.RevokeAllUserRefreshTokens(ctx, "alice"))
		all, err = h.Tokens.ListUserRefreshTokens(ctx, "alice")
		require.NoError(t, err)
		for _, rec := range all {
			require.True(t, rec.Revoked)
		}

		got, err := h.Tokens.GetRefreshToken(ctx, bobs.TokenHash, "bob")
		require.NoError(t, err)
		require.False(t, got.Revoked)

		none, err := h.Tokens.ListUserRefreshTokens(ctx, "nobody")
		require.NoError(t, err)
		require.Empty(t, none)
	})

	t.Run("sweep deletes only past retention", func(t *testing.T) {
		h := setup(t, "alice")
		rec := Record(t, "alice", h.Clock.Now())
		require.NoError(t, h.Tokens.CreateRefreshToken(ctx, rec))

		retention := 24 * time.Hour

		h.Clock.Advance(2 * time.Hour) // expired but within retention
		n, err := h.Tokens.DeleteExpiredRefreshTokens(ctx, retention)
		require.NoError(t, err)
		require.Zero(t, n)
		_, err = h.Tokens.GetRefreshToken(ctx, rec.TokenHash, "alice")
		require.NoError(t, err)

		h.Clock.Advance(retention)
		n, err = h.Tokens.DeleteExpiredRefreshTokens(ctx, retention)
		require.NoError(t, err)
		require.EqualValues(t, 1, n)
		_, err = h.Tokens.GetRefreshToken(ctx, rec.TokenHash, "alice")
		require.ErrorIs(t, err, store.ErrNotFound)
	})
}
