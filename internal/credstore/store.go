// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

// Package credstore provides durable, backend-agnostic verification and
// management of account secrets.
//
// A Store is polymorphic over {Connect, Disconnect, Exists, Register,
// Authenticate, Unregister}; switching backend (file, postgres, redis)
// is a pure configuration choice and the rest of the system never
// branches on backend type.
package credstore

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/samber/oops"
)

// Error codes surfaced to the command layer.
const (
	CodeStoreUnavailable  = "STORE_UNAVAILABLE"
	CodeAlreadyRegistered = "ALREADY_REGISTERED"
	CodeNotRegistered     = "NOT_REGISTERED"
)

// ErrNotFound is wrapped by NOT_REGISTERED errors so callers can use
// errors.Is without inspecting codes.
var ErrNotFound = errors.New("not registered")

// Record is one registered account. Hash is an argon2id PHC string with
// the salt embedded; the clear secret is never stored.
type Record struct {
	Key          string    `json:"key" yaml:"key"`
	Hash         string    `json:"hash" yaml:"hash"`
	RegisteredAt time.Time `json:"registeredAt" yaml:"registeredAt"`
}

// Store persists and verifies account secrets.
type Store interface {
	// Connect establishes backend resources. Fails with
	// STORE_UNAVAILABLE if the backend cannot be reached.
	Connect(ctx context.Context) error

	// Disconnect releases resources. Idempotent; safe when never
	// connected.
	Disconnect(ctx context.Context) error

	// Exists reports whether a record exists for the account key.
	Exists(ctx context.Context, key string) (bool, error)

	// Register derives a salted hash of the secret and persists it
	// atomically. Fails with ALREADY_REGISTERED if a record exists.
	Register(ctx context.Context, key, secret string) error

	// Authenticate recomputes the hash with the stored parameters and
	// compares in constant time. Fails with NOT_REGISTERED if no
	// record exists; a plain mismatch returns (false, nil), never an
	// error.
	Authenticate(ctx context.Context, key, secret string) (bool, error)

	// Unregister deletes the record. Fails with NOT_REGISTERED if
	// absent.
	Unregister(ctx context.Context, key string) error
}

// normalizeKey canonicalizes account keys so lookups are
// case-insensitive.
func normalizeKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}

func errUnavailable(backend string, cause error) error {
	b := oops.Code(CodeStoreUnavailable).With("backend", backend)
	if cause != nil {
		return b.Wrap(cause)
	}
	return b.Errorf("credential backend unavailable")
}

func errAlreadyRegistered(key string) error {
	return oops.Code(CodeAlreadyRegistered).
		With("key", key).
		Errorf("account already registered")
}

func errNotRegistered(key string) error {
	return oops.Code(CodeNotRegistered).
		With("key", key).
		Wrap(ErrNotFound)
}
