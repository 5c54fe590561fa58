// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package credstore

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockedPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err, "failed to create mock")
	t.Cleanup(mock.Close)
	return NewPostgresStoreWithPool(mock, NewHasher()), mock
}

func TestPostgresStore_Exists(t *testing.T) {
	tests := []struct {
		name      string
		key       string
		setupMock func(mock pgxmock.PgxPoolIface)
		want      bool
		wantErr   bool
	}{
		{
			name: "record exists",
			key:  "Alice",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				rows := pgxmock.NewRows([]string{"exists"}).AddRow(true)
				mock.ExpectQuery(`SELECT EXISTS`).
					WithArgs("alice").
					WillReturnRows(rows)
			},
			want: true,
		},
		{
			name: "record absent",
			key:  "ghost",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				rows := pgxmock.NewRows([]string{"exists"}).AddRow(false)
				mock.ExpectQuery(`SELECT EXISTS`).
					WithArgs("ghost").
					WillReturnRows(rows)
			},
			want: false,
		},
		{
			name: "database error",
			key:  "alice",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`SELECT EXISTS`).
					WithArgs("alice").
					WillReturnError(errors.New("connection refused"))
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, mock := newMockedPostgresStore(t)
			tt.setupMock(mock)

			got, err := store.Exists(context.Background(), tt.key)
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
			}
			assert.NoError(t, mock.ExpectationsWereMet(), "unfulfilled expectations")
		})
	}
}

func TestPostgresStore_Register(t *testing.T) {
	t.Run("successful insert", func(t *testing.T) {
		store, mock := newMockedPostgresStore(t)
		mock.ExpectExec(`INSERT INTO accounts`).
			WithArgs("alice", pgxmock.AnyArg(), pgxmock.AnyArg()).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		require.NoError(t, store.Register(context.Background(), "Alice", "wonderland"))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unique violation maps to already registered", func(t *testing.T) {
		store, mock := newMockedPostgresStore(t)
		mock.ExpectExec(`INSERT INTO accounts`).
			WithArgs("alice", pgxmock.AnyArg(), pgxmock.AnyArg()).
			WillReturnError(&pgconn.PgError{Code: pgerrcode.UniqueViolation})

		err := store.Register(context.Background(), "alice", "wonderland")
		require.Error(t, err)

		oopsErr, ok := oops.AsOops(err)
		require.True(t, ok)
		assert.Equal(t, CodeAlreadyRegistered, oopsErr.Code())
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPostgresStore_Authenticate(t *testing.T) {
	hasher := NewHasher()
	hash, err := hasher.Hash("wonderland")
	require.NoError(t, err)

	t.Run("matching secret", func(t *testing.T) {
		store, mock := newMockedPostgresStore(t)
		rows := pgxmock.NewRows([]string{"hash"}).AddRow(hash)
		mock.ExpectQuery(`SELECT hash FROM accounts`).
			WithArgs("alice").
			WillReturnRows(rows)

		ok, err := store.Authenticate(context.Background(), "Alice", "wonderland")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("wrong secret", func(t *testing.T) {
		store, mock := newMockedPostgresStore(t)
		rows := pgxmock.NewRows([]string{"hash"}).AddRow(hash)
		mock.ExpectQuery(`SELECT hash FROM accounts`).
			WithArgs("alice").
			WillReturnRows(rows)

		ok, err := store.Authenticate(context.Background(), "alice", "looking-glass")
		require.NoError(t, err)
		assert.False(t, ok)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown account", func(t *testing.T) {
		store, mock := newMockedPostgresStore(t)
		mock.ExpectQuery(`SELECT hash FROM accounts`).
			WithArgs("ghost").
			WillReturnError(pgx.ErrNoRows)

		_, err := store.Authenticate(context.Background(), "ghost", "boo")
		assert.ErrorIs(t, err, ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPostgresStore_Unregister(t *testing.T) {
	t.Run("successful delete", func(t *testing.T) {
		store, mock := newMockedPostgresStore(t)
		mock.ExpectExec(`DELETE FROM accounts`).
			WithArgs("alice").
			WillReturnResult(pgxmock.NewResult("DELETE", 1))

		require.NoError(t, store.Unregister(context.Background(), "alice"))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("no rows deleted maps to not registered", func(t *testing.T) {
		store, mock := newMockedPostgresStore(t)
		mock.ExpectExec(`DELETE FROM accounts`).
			WithArgs("ghost").
			WillReturnResult(pgxmock.NewResult("DELETE", 0))

		err := store.Unregister(context.Background(), "ghost")
		assert.ErrorIs(t, err, ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
