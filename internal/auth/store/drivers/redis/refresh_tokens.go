package redis

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/aussiebroadwan/sessionauth/internal/auth/domain"
	"github.com/aussiebroadwan/sessionauth/internal/auth/store"
	goredis "github.com/redis/go-redis/v9"
)

var _ store.RefreshTokens = (*Store)(nil)

func (s *Store) RefreshTokens() store.RefreshTokens { return s }

func (s *Store) createKeys(t domain.RefreshToken) []string {
	return []string{
		s.recordKey(t.ID),
		s.hashKey(t.TokenHash),
		s.userKey(t.UserID),
		s.expiryKey(),
	}
}

func (s *Store) createArgs(t domain.RefreshToken) []any {
	created := t.CreatedAt
	if created.IsZero() {
		created = s.now()
	}
	return []any{
		t.ID,
		t.UserID,
		t.TokenHash,
		t.ExpiresAt.UnixMilli(),
		t.UserAgent,
		t.IPAddress,
		created.UnixMilli(),
		t.ExpiresAt.Add(s.retention).UnixMilli(),
	}
}

func (s *Store) CreateRefreshToken(ctx context.Context, t domain.RefreshToken) error {
	status, err := createLua.Run(ctx, s.rdb, s.createKeys(t), s.createArgs(t)...).Int64()
	if err != nil {
		return unavailable(err)
	}
	if status == statusConflict {
		return store.ErrAlreadyExists
	}
	return nil
}

func (s *Store) GetRefreshToken(ctx context.Context, hash, userID string) (domain.RefreshToken, error) {
	id, err := s.rdb.Get(ctx, s.hashKey(hash)).Result()
	if errors.Is(err, goredis.Nil) {
		return domain.RefreshToken{}, store.ErrNotFound
	}
	if err != nil {
		return domain.RefreshToken{}, unavailable(err)
	}

	t, err := s.load(ctx, id)
	if err != nil {
		return domain.RefreshToken{}, err
	}
	if t.UserID != userID {
		return domain.RefreshToken{}, store.ErrNotFound
	}
	return t, nil
}

func (s *Store) load(ctx context.Context, id string) (domain.RefreshToken, error) {
	fields, err := s.rdb.HGetAll(ctx, s.recordKey(id)).Result()
	if err != nil {
		return domain.RefreshToken{}, unavailable(err)
	}
	if len(fields) == 0 {
		return domain.RefreshToken{}, store.ErrNotFound
	}
	return decode(id, fields)
}

func decode(id string, f map[string]string) (domain.RefreshToken, error) {
	expires, err := strconv.ParseInt(f["expires_at"], 10, 64)
	if err != nil {
		return domain.RefreshToken{}, fmt.Errorf("redis: corrupt record %s: %w", id, err)
	}
	created, err := strconv.ParseInt(f["created_at"], 10, 64)
	if err != nil {
		return domain.RefreshToken{}, fmt.Errorf("redis: corrupt record %s: %w", id, err)
	}

	t := domain.RefreshToken{
		ID:        id,
		UserID:    f["user_id"],
		TokenHash: f["token_hash"],
		ExpiresAt: time.UnixMilli(expires).UTC(),
		Revoked:   f["revoked"] == "1",
		UserAgent: f["user_agent"],
		IPAddress: f["ip_address"],
		CreatedAt: time.UnixMilli(created).UTC(),
	}
	if v, ok := f["revoked_at"]; ok {
		ms, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return domain.RefreshToken{}, fmt.Errorf("redis: corrupt record %s: %w", id, err)
		}
		at := time.UnixMilli(ms).UTC()
		t.RevokedAt = &at
	}
	return t, nil
}

func (s *Store) revoke(ctx context.Context, id, owner string) error {
	err := revokeLua.Run(ctx, s.rdb, []string{s.recordKey(id)}, s.now().UnixMilli(), owner).Err()
	if err != nil {
		return unavailable(err)
	}
	return nil
}

func (s *Store) RevokeRefreshToken(ctx context.Context, id string) error {
	return s.revoke(ctx, id, "")
}

func (s *Store) RevokeRefreshTokenByHash(ctx context.Context, hash, userID string) error {
	id, err := s.rdb.Get(ctx, s.hashKey(hash)).Result()
	if errors.Is(err, goredis.Nil) {
		return nil
	}
	if err != nil {
		return unavailable(err)
	}
	// owner is checked inside the script
	return s.revoke(ctx, id, userID)
}

func (s *Store) RotateRefreshToken(ctx context.Context, oldID string, next domain.RefreshToken) error {
	keys := append([]string{s.recordKey(oldID)}, s.createKeys(next)...)
	args := append([]any{s.now().UnixMilli()}, s.createArgs(next)...)

	status, err := rotateLua.Run(ctx, s.rdb, keys, args...).Int64()
	if err != nil {
		return unavailable(err)
	}
	switch status {
	case statusOK:
		return nil
	case statusNoop:
		return store.ErrAlreadyRevoked
	case statusNotFound:
		return store.ErrNotFound
	case statusConflict:
		return store.ErrAlreadyExists
	default:
		return fmt.Errorf("redis: unexpected rotate status %d", status)
	}
}

func (s *Store) RevokeAllUserRefreshTokens(ctx context.Context, userID string) error {
	err := revokeAllLua.Run(ctx, s.rdb,
		[]string{s.userKey(userID)},
		s.now().UnixMilli(), s.recordPrefix(),
	).Err()
	if err != nil {
		return unavailable(err)
	}
	return nil
}

func (s *Store) ListUserRefreshTokens(ctx context.Context, userID string) ([]domain.RefreshToken, error) {
	ids, err := s.rdb.SMembers(ctx, s.userKey(userID)).Result()
	if err != nil {
		return nil, unavailable(err)
	}

	cmds := make([]*goredis.MapStringStringCmd, len(ids))
	_, err = s.rdb.Pipelined(ctx, func(p goredis.Pipeliner) error {
		for i, id := range ids {
			cmds[i] = p.HGetAll(ctx, s.recordKey(id))
		}
		return nil
	})
	if err != nil {
		return nil, unavailable(err)
	}

	out := make([]domain.RefreshToken, 0, len(ids))
	var dangling []any
	for i, cmd := range cmds {
		fields := cmd.Val()
		if len(fields) == 0 {
			dangling = append(dangling, ids[i])
			continue
		}
		t, err := decode(ids[i], fields)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}

	// Records evicted by PEXPIREAT leave their id behind in the user set.
	if len(dangling) > 0 {
		if err := s.rdb.SRem(ctx, s.userKey(userID), dangling...).Err(); err != nil {
			return nil, unavailable(err)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (s *Store) DeleteExpiredRefreshTokens(ctx context.Context, retention time.Duration) (int64, error) {
	cutoff := s.now().Add(-retention).UnixMilli()
	n, err := sweepLua.Run(ctx, s.rdb,
		[]string{s.expiryKey()},
		cutoff, s.recordPrefix(), s.hashPrefix(), s.userPrefix(),
	).Int64()
	if err != nil {
		return 0, unavailable(err)
	}
	return n, nil
}
