// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package credstore

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/oops"
)

// poolIface is the subset of pgxpool.Pool the store uses. It matches
// pgxmock.PgxPoolIface for tests.
type poolIface interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// PostgresStore keeps credential records in an accounts table.
type PostgresStore struct {
	dsn    string
	hasher *Hasher
	pool   poolIface
}

// NewPostgresStore creates a postgres-backed store. Connect opens the
// pool.
func NewPostgresStore(dsn string, hasher *Hasher) *PostgresStore {
	return &PostgresStore{dsn: dsn, hasher: hasher}
}

// NewPostgresStoreWithPool creates a store over an existing pool,
// primarily for tests with pgxmock.
func NewPostgresStoreWithPool(pool poolIface, hasher *Hasher) *PostgresStore {
	return &PostgresStore{pool: pool, hasher: hasher}
}

// Connect opens the connection pool and verifies it with a ping.
func (s *PostgresStore) Connect(ctx context.Context) error {
	if s.pool != nil {
		if err := s.pool.Ping(ctx); err != nil {
			return errUnavailable("postgres", err)
		}
		return nil
	}

	pool, err := pgxpool.New(ctx, s.dsn)
	if err != nil {
		return errUnavailable("postgres", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return errUnavailable("postgres", err)
	}
	s.pool = pool
	return nil
}

// Disconnect closes the pool. Idempotent.
func (s *PostgresStore) Disconnect(_ context.Context) error {
	if s.pool != nil {
		s.pool.Close()
		s.pool = nil
	}
	return nil
}

// Exists reports whether a record exists for the account key.
func (s *PostgresStore) Exists(ctx context.Context, key string) (bool, error) {
	if s.pool == nil {
		return false, errUnavailable("postgres", nil)
	}

	k := normalizeKey(key)
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM accounts WHERE key = $1)`,
		k).Scan(&exists)
	if err != nil {
		return false, errUnavailable("postgres", err)
	}
	return exists, nil
}

// Register hashes the secret and inserts the record. A unique violation
// maps to ALREADY_REGISTERED.
func (s *PostgresStore) Register(ctx context.Context, key, secret string) error {
	if s.pool == nil {
		return errUnavailable("postgres", nil)
	}

	k := normalizeKey(key)
	hash, err := s.hasher.Hash(secret)
	if err != nil {
		return oops.Code("CRED_HASH_FAILED").With("key", k).Wrap(err)
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO accounts (key, hash, registered_at) VALUES ($1, $2, $3)`,
		k, hash, time.Now().UTC())
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return errAlreadyRegistered(k)
		}
		return errUnavailable("postgres", err)
	}
	return nil
}

// Authenticate fetches the stored hash and verifies the secret.
func (s *PostgresStore) Authenticate(ctx context.Context, key, secret string) (bool, error) {
	if s.pool == nil {
		return false, errUnavailable("postgres", nil)
	}

	k := normalizeKey(key)
	var hash string
	err := s.pool.QueryRow(ctx,
		`SELECT hash FROM accounts WHERE key = $1`,
		k).Scan(&hash)
	if errors.Is(err, pgx.ErrNoRows) {
		s.hasher.verifyAbsent(secret)
		return false, errNotRegistered(k)
	}
	if err != nil {
		return false, errUnavailable("postgres", err)
	}
	return s.hasher.Verify(secret, hash)
}

// Unregister deletes the record.
func (s *PostgresStore) Unregister(ctx context.Context, key string) error {
	if s.pool == nil {
		return errUnavailable("postgres", nil)
	}

	k := normalizeKey(key)
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM accounts WHERE key = $1`,
		k)
	if err != nil {
		return errUnavailable("postgres", err)
	}
	if tag.RowsAffected() == 0 {
		return errNotRegistered(k)
	}
	return nil
}

// Compile-time interface check.
var _ Store = (*PostgresStore)(nil)
