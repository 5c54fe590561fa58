// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package credstore

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/sethvargo/go-retry"
)

// Guard wraps a Store and fails closed: while the backend is not
// connected, or while a reconnect holds exclusive access, every
// operation is rejected with STORE_UNAVAILABLE instead of reaching a
// dead backend. Authentication never silently degrades to "allow".
type Guard struct {
	mu        sync.RWMutex
	inner     Store
	backend   string
	available bool
}

// NewGuard wraps a store. The guard starts unavailable until Connect
// succeeds.
func NewGuard(backend string, inner Store) *Guard {
	return &Guard{inner: inner, backend: backend}
}

// Backend returns the configured backend name.
func (g *Guard) Backend() string {
	return g.backend
}

// Available reports whether operations are currently admitted.
func (g *Guard) Available() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.available
}

// Connect connects the inner store and opens the guard.
func (g *Guard) Connect(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.inner.Connect(ctx); err != nil {
		g.available = false
		return err
	}
	g.available = true
	return nil
}

// Disconnect closes the guard and disconnects the inner store.
// Idempotent.
func (g *Guard) Disconnect(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.available = false
	return g.inner.Disconnect(ctx)
}

// Reconnect takes exclusive access, tears the backend down, and
// redials with exponential backoff. In-flight operations finish first;
// new operations are rejected until the reconnect resolves. On failure
// the guard stays closed.
func (g *Guard) Reconnect(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.available = false
	if err := g.inner.Disconnect(ctx); err != nil {
		slog.Warn("credential store disconnect failed during reconnect",
			"backend", g.backend, "error", err)
	}

	backoff := retry.WithMaxRetries(4, retry.NewExponential(250*time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := g.inner.Connect(ctx); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		return errUnavailable(g.backend, err)
	}
	g.available = true
	return nil
}

// Exists reports whether a record exists for the account key.
func (g *Guard) Exists(ctx context.Context, key string) (bool, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if !g.available {
		return false, errUnavailable(g.backend, nil)
	}
	return g.inner.Exists(ctx, key)
}

// Register forwards to the inner store when the guard is open.
func (g *Guard) Register(ctx context.Context, key, secret string) error {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if !g.available {
		return errUnavailable(g.backend, nil)
	}
	return g.inner.Register(ctx, key, secret)
}

// Authenticate forwards to the inner store when the guard is open.
func (g *Guard) Authenticate(ctx context.Context, key, secret string) (bool, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if !g.available {
		return false, errUnavailable(g.backend, nil)
	}
	return g.inner.Authenticate(ctx, key, secret)
}

// Unregister forwards to the inner store when the guard is open.
func (g *Guard) Unregister(ctx context.Context, key string) error {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if !g.available {
		return errUnavailable(g.backend, nil)
	}
	return g.inner.Unregister(ctx, key)
}

// Compile-time interface check.
var _ Store = (*Guard)(nil)
