package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/aussiebroadwan/sessionauth/internal/auth/store"
	"github.com/aussiebroadwan/sessionauth/internal/auth/store/drivers/sqlite/gen"
)

type txStore struct {
	tx  *sql.Tx
	q   *gen.Queries
	now func() time.Time
}

func newTx(tx *sql.Tx, q *gen.Queries, now func() time.Time) *txStore {
	return &txStore{tx: tx, q: q, now: now}
}

func (t *txStore) Commit() error   { return t.tx.Commit() }
func (t *txStore) Rollback() error { return t.tx.Rollback() }

func (t *txStore) Close() error { return nil } // caller commits or rolls back; the DB stays open

// Ping is a no-op, the transaction already holds a live connection.
func (t *txStore) Ping(ctx context.Context) error { return nil }

func (t *txStore) Tx(ctx context.Context) (store.Tx, error) {
	// Nested tx not supported; could emulate with SAVEPOINT if needed
	return nil, sql.ErrTxDone
}

func (t *txStore) WithTx(ctx context.Context, fn func(tx store.Tx) error) error {
	return sql.ErrTxDone
}

func (t *txStore) Users() store.Users { return &usersRepo{q: t.q, now: t.now} }

// root is nil so RotateRefreshToken runs inline on this transaction.
func (t *txStore) RefreshTokens() store.RefreshTokens {
	return &refreshTokensRepo{q: t.q, now: t.now}
}

func (t *txStore) ApplyMigrations() error { return nil } // migrations run before any tx
