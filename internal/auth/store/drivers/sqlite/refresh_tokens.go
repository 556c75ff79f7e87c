package sqlite

import (
	"context"
	"time"

	"github.com/aussiebroadwan/sessionauth/internal/auth/domain"
	"github.com/aussiebroadwan/sessionauth/internal/auth/store"
	"github.com/aussiebroadwan/sessionauth/internal/auth/store/drivers/sqlite/gen"
)

type refreshTokensRepo struct {
	q   *gen.Queries
	now func() time.Time

	// root is set outside a transaction so RotateRefreshToken can open one.
	root *Store
}

func mapRefreshToken(row gen.RefreshToken) domain.RefreshToken {
	return domain.RefreshToken{
		ID:        row.ID,
		UserID:    row.UserID,
		TokenHash: row.TokenHash,
		ExpiresAt: fromMillis(row.ExpiresAt),
		Revoked:   row.Revoked != 0,
		RevokedAt: mapNullMillis(row.RevokedAt),
		UserAgent: mapNullString(row.UserAgent),
		IPAddress: mapNullString(row.IpAddress),
		CreatedAt: fromMillis(row.CreatedAt),
	}
}

func (r *refreshTokensRepo) CreateRefreshToken(ctx context.Context, t domain.RefreshToken) error {
	created := t.CreatedAt
	if created.IsZero() {
		created = r.now()
	}

	return mapConstraint(r.q.CreateRefreshToken(ctx, gen.CreateRefreshTokenParams{
		ID:        t.ID,
		UserID:    t.UserID,
		TokenHash: t.TokenHash,
		ExpiresAt: toMillis(t.ExpiresAt),
		UserAgent: mapStringNull(t.UserAgent),
		IpAddress: mapStringNull(t.IPAddress),
		CreatedAt: toMillis(created),
	}))
}

func (r *refreshTokensRepo) GetRefreshToken(
	ctx context.Context,
	hash, userID string,
) (domain.RefreshToken, error) {
	row, err := r.q.GetRefreshToken(ctx, gen.GetRefreshTokenParams{
		TokenHash: hash,
		UserID:    userID,
	})
	if err != nil {
		return domain.RefreshToken{}, mapNotFound(err)
	}
	return mapRefreshToken(row), nil
}

func (r *refreshTokensRepo) RevokeRefreshToken(ctx context.Context, id string) error {
	now := r.now()
	_, err := r.q.RevokeRefreshToken(ctx, gen.RevokeRefreshTokenParams{
		RevokedAt: mapOptionalMillis(&now),
		ID:        id,
	})
	return err
}

func (r *refreshTokensRepo) RevokeRefreshTokenByHash(ctx context.Context, hash, userID string) error {
	now := r.now()
	return r.q.RevokeRefreshTokenByHash(ctx, gen.RevokeRefreshTokenByHashParams{
		RevokedAt: mapOptionalMillis(&now),
		TokenHash: hash,
		UserID:    userID,
	})
}

func (r *refreshTokensRepo) RotateRefreshToken(
	ctx context.Context,
	oldID string,
	next domain.RefreshToken,
) error {
	if r.root != nil {
		return r.root.WithTx(ctx, func(tx store.Tx) error {
			return tx.RefreshTokens().RotateRefreshToken(ctx, oldID, next)
		})
	}

	now := r.now()
	n, err := r.q.RevokeRefreshToken(ctx, gen.RevokeRefreshTokenParams{
		RevokedAt: mapOptionalMillis(&now),
		ID:        oldID,
	})
	if err != nil {
		return err
	}
	if n == 0 {
		count, err := r.q.CountRefreshTokensByID(ctx, oldID)
		if err != nil {
			return err
		}
		if count == 0 {
			return store.ErrNotFound
		}
		return store.ErrAlreadyRevoked
	}

	return r.CreateRefreshToken(ctx, next)
}

func (r *refreshTokensRepo) RevokeAllUserRefreshTokens(ctx context.Context, userID string) error {
	now := r.now()
	return r.q.RevokeAllUserRefreshTokens(ctx, gen.RevokeAllUserRefreshTokensParams{
		RevokedAt: mapOptionalMillis(&now),
		UserID:    userID,
	})
}

func (r *refreshTokensRepo) ListUserRefreshTokens(
	ctx context.Context,
	userID string,
) ([]domain.RefreshToken, error) {
	rows, err := r.q.ListUserRefreshTokens(ctx, userID)
	if err != nil {
		return nil, err
	}

	out := make([]domain.RefreshToken, 0, len(rows))
	for _, row := range rows {
		out = append(out, mapRefreshToken(row))
	}
	return out, nil
}

func (r *refreshTokensRepo) DeleteExpiredRefreshTokens(
	ctx context.Context,
	retention time.Duration,
) (int64, error) {
	return r.q.DeleteExpiredRefreshTokens(ctx, toMillis(r.now().Add(-retention)))
}
