// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package credstore

import (
	"github.com/samber/oops"
)

// Backend names accepted in configuration.
const (
	BackendFile     = "file"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

// Options selects and parameterizes a credential backend.
type Options struct {
	Backend string // file | postgres | redis
	Path    string // file: accounts document path
	DSN     string // postgres: connection string
	URL     string // redis: redis:// url
}

// Open builds the configured backend wrapped in a fail-closed Guard.
// The guard is not yet connected; callers Connect it during startup.
func Open(opts Options) (*Guard, error) {
	hasher := NewHasher()

	var inner Store
	switch opts.Backend {
	case BackendFile:
		inner = NewFileStore(opts.Path, hasher)
	case BackendPostgres:
		inner = NewPostgresStore(opts.DSN, hasher)
	case BackendRedis:
		inner = NewRedisStore(opts.URL, hasher)
	default:
		return nil, oops.Code("STORE_UNKNOWN_BACKEND").
			With("backend", opts.Backend).
			Errorf("unknown credential backend %q", opts.Backend)
	}
	return NewGuard(opts.Backend, inner), nil
}
