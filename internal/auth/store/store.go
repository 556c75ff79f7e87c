package store

import (
	"context"
	"errors"
	"time"

	"github.com/aussiebroadwan/sessionauth/internal/auth/domain"
)

var (
	// ErrNotFound means no row or record matched.
	ErrNotFound = errors.New("store: not found")
	// ErrAlreadyExists reports a unique key collision, such as email or token hash.
	ErrAlreadyExists = errors.New("store: already exists")
	// ErrAlreadyRevoked is returned by RotateRefreshToken when the old record
	// lost the race or was revoked earlier.
	ErrAlreadyRevoked = errors.New("store: already revoked")
)

// Store is the root data access interface for the relational driver. It
// exposes sub-repositories so callers cannot open a transaction from inside a
// transaction by accident.
type Store interface {
	Users() Users
	RefreshTokens() RefreshTokens

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx runs fn in a transaction, committing when fn returns nil and
	// rolling back otherwise.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

// Users is the account collaborator. Emails are stored and matched in their
// normalized form (see domain.NormalizeEmail).
type Users interface {
	GetUserByID(ctx context.Context, id string) (domain.User, error)

	GetUserByEmail(ctx context.Context, email string) (domain.User, error)

	// CreateUser inserts a new user. A duplicate email yields ErrAlreadyExists.
	CreateUser(ctx context.Context, u domain.User) error

	UpdateLastLogin(ctx context.Context, userID string, at time.Time) error

	UpdatePasswordHash(ctx context.Context, userID, newHash string) error

	// SetActive toggles whether the user may authenticate.
	SetActive(ctx context.Context, userID string, active bool) error

	// DeleteUser removes the user and, through the foreign key, any refresh
	// records the relational driver holds for it. A missing user is ErrNotFound.
	DeleteUser(ctx context.Context, userID string) error
}

// RefreshTokens persists refresh token records. Implementations must make
// RevokeRefreshToken and RotateRefreshToken atomic conditional updates so
// that a record transitions to revoked exactly once.
type RefreshTokens interface {
	// CreateRefreshToken stores a new record. A colliding TokenHash or ID
	// yields ErrAlreadyExists.
	CreateRefreshToken(ctx context.Context, t domain.RefreshToken) error

	// GetRefreshToken returns the record with the given fingerprint owned by
	// userID, revoked or not. Records owned by someone else are ErrNotFound.
	GetRefreshToken(ctx context.Context, hash, userID string) (domain.RefreshToken, error)

	// RevokeRefreshToken marks the record revoked if it is not already. It is
	// idempotent and does not report whether anything changed.
	RevokeRefreshToken(ctx context.Context, id string) error

	// RevokeRefreshTokenByHash revokes the caller's record with the given
	// fingerprint. A missing or already revoked record is not an error.
	RevokeRefreshTokenByHash(ctx context.Context, hash, userID string) error

	// RotateRefreshToken revokes oldID and stores next as one atomic unit.
	// If oldID was already revoked it returns ErrAlreadyRevoked and stores
	// nothing; a colliding next yields ErrAlreadyExists and leaves oldID
	// untouched.
	RotateRefreshToken(ctx context.Context, oldID string, next domain.RefreshToken) error

	// RevokeAllUserRefreshTokens revokes every live record of the user.
	RevokeAllUserRefreshTokens(ctx context.Context, userID string) error

	// ListUserRefreshTokens returns every record of the user, newest first.
	ListUserRefreshTokens(ctx context.Context, userID string) ([]domain.RefreshToken, error)

	// DeleteExpiredRefreshTokens hard-deletes records whose expiry lies more
	// than retention in the past and returns how many were removed.
	DeleteExpiredRefreshTokens(ctx context.Context, retention time.Duration) (int64, error)
}

// Pinger is implemented by every backend that can report liveness.
type Pinger interface {
	Ping(ctx context.Context) error
}
