// Package redis is a store.RefreshTokens driver backed by Redis. Every state
// transition runs as a single Lua script so revocation and rotation are
// atomic conditional updates on the server.
//
// The driver targets a standalone server (or a primary with replicas). The
// revoke-all and sweep scripts derive record keys from prefixes at run time,
// which Redis Cluster rejects, so NewStore only accepts a *goredis.Client.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// ErrUnavailable wraps every transport or server error.
var ErrUnavailable = errors.New("redis: unavailable")

const (
	DefaultPrefix    = "sa"
	DefaultRetention = 30 * 24 * time.Hour
)

type Store struct {
	rdb       *goredis.Client
	prefix    string
	retention time.Duration
	now       func() time.Time
}

type Option func(*Store)

// WithPrefix namespaces every key.
func WithPrefix(p string) Option { return func(s *Store) { s.prefix = p } }

// WithRetention sets how long a record outlives its expiry before Redis
// evicts it on its own.
func WithRetention(d time.Duration) Option { return func(s *Store) { s.retention = d } }

func WithClock(now func() time.Time) Option { return func(s *Store) { s.now = now } }

func NewStore(rdb *goredis.Client, opts ...Option) *Store {
	s := &Store{
		rdb:       rdb,
		prefix:    DefaultPrefix,
		retention: DefaultRetention,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) Ping(ctx context.Context) error {
	if err := s.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func (s *Store) Close() error { return s.rdb.Close() }

func (s *Store) recordPrefix() string { return s.prefix + ":rt:" }
func (s *Store) hashPrefix() string   { return s.prefix + ":rth:" }
func (s *Store) userPrefix() string   { return s.prefix + ":rtu:" }

func (s *Store) recordKey(id string) string   { return s.recordPrefix() + id }
func (s *Store) hashKey(hash string) string   { return s.hashPrefix() + hash }
func (s *Store) userKey(userID string) string { return s.userPrefix() + userID }
func (s *Store) expiryKey() string            { return s.prefix + ":rtexp" }

func unavailable(err error) error {
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}
