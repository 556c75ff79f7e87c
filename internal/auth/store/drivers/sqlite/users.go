package sqlite

import (
	"context"
	"strings"
	"time"

	"github.com/aussiebroadwan/sessionauth/internal/auth/domain"
	"github.com/aussiebroadwan/sessionauth/internal/auth/store/drivers/sqlite/gen"
)

type usersRepo struct {
	q   *gen.Queries
	now func() time.Time
}

func mapUser(row gen.User) domain.User {
	return domain.User{
		ID:           row.ID,
		Email:        row.Email,
		FirstName:    row.FirstName,
		LastName:     row.LastName,
		PasswordHash: row.PasswordHash,
		Roles:        splitAndFilter(row.Roles),
		IsActive:     row.IsActive != 0,
		LastLoginAt:  mapNullMillis(row.LastLoginAt),
		CreatedAt:    fromMillis(row.CreatedAt),
		UpdatedAt:    fromMillis(row.UpdatedAt),
	}
}

func (r *usersRepo) GetUserByID(ctx context.Context, id string) (domain.User, error) {
	row, err := r.q.GetUserByID(ctx, id)
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}
	return mapUser(row), nil
}

func (r *usersRepo) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	row, err := r.q.GetUserByEmail(ctx, domain.NormalizeEmail(email))
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}
	return mapUser(row), nil
}

func (r *usersRepo) CreateUser(ctx context.Context, u domain.User) error {
	created := u.CreatedAt
	if created.IsZero() {
		created = r.now()
	}
	roles := u.Roles
	if len(roles) == 0 {
		roles = []string{domain.DefaultRole}
	}

	return mapConstraint(r.q.CreateUser(ctx, gen.CreateUserParams{
		ID:           u.ID,
		Email:        domain.NormalizeEmail(u.Email),
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		PasswordHash: u.PasswordHash,
		Roles:        strings.Join(roles, " "),
		IsActive:     boolToInt(u.IsActive),
		LastLoginAt:  mapOptionalMillis(u.LastLoginAt),
		CreatedAt:    toMillis(created),
		UpdatedAt:    toMillis(created),
	}))
}

func (r *usersRepo) UpdateLastLogin(ctx context.Context, userID string, at time.Time) error {
	return requireRow(r.q.UpdateUserLastLogin(ctx, gen.UpdateUserLastLoginParams{
		LastLoginAt: mapOptionalMillis(&at),
		UpdatedAt:   toMillis(r.now()),
		ID:          userID,
	}))
}

func (r *usersRepo) UpdatePasswordHash(ctx context.Context, userID, newHash string) error {
	return requireRow(r.q.UpdateUserPasswordHash(ctx, gen.UpdateUserPasswordHashParams{
		PasswordHash: newHash,
		UpdatedAt:    toMillis(r.now()),
		ID:           userID,
	}))
}

func (r *usersRepo) SetActive(ctx context.Context, userID string, active bool) error {
	return requireRow(r.q.UpdateUserActive(ctx, gen.UpdateUserActiveParams{
		IsActive:  boolToInt(active),
		UpdatedAt: toMillis(r.now()),
		ID:        userID,
	}))
}

func (r *usersRepo) DeleteUser(ctx context.Context, userID string) error {
	return requireRow(r.q.DeleteUser(ctx, userID))
}
