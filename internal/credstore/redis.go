// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package credstore

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/samber/oops"
)

const redisKeyPrefix = "account:"

// RedisStore keeps credential records as JSON values under
// "account:<key>".
type RedisStore struct {
	url    string
	hasher *Hasher
	client redis.UniversalClient
}

// NewRedisStore creates a redis-backed store. Connect dials the server.
func NewRedisStore(url string, hasher *Hasher) *RedisStore {
	return &RedisStore{url: url, hasher: hasher}
}

// NewRedisStoreWithClient creates a store over an existing client,
// primarily for tests with miniredis.
func NewRedisStoreWithClient(client redis.UniversalClient, hasher *Hasher) *RedisStore {
	return &RedisStore{client: client, hasher: hasher}
}

// Connect dials the server and verifies it with a ping.
func (s *RedisStore) Connect(ctx context.Context) error {
	if s.client == nil {
		opts, err := redis.ParseURL(s.url)
		if err != nil {
			return errUnavailable("redis", err)
		}
		s.client = redis.NewClient(opts)
	}
	if err := s.client.Ping(ctx).Err(); err != nil {
		return errUnavailable("redis", err)
	}
	return nil
}

// Disconnect closes the client. Idempotent.
func (s *RedisStore) Disconnect(_ context.Context) error {
	if s.client == nil {
		return nil
	}
	err := s.client.Close()
	s.client = nil
	if err != nil {
		return errUnavailable("redis", err)
	}
	return nil
}

// Exists reports whether a record exists for the account key.
func (s *RedisStore) Exists(ctx context.Context, key string) (bool, error) {
	if s.client == nil {
		return false, errUnavailable("redis", nil)
	}

	n, err := s.client.Exists(ctx, redisKeyPrefix+normalizeKey(key)).Result()
	if err != nil {
		return false, errUnavailable("redis", err)
	}
	return n > 0, nil
}

// Register hashes the secret and stores the record with SETNX so a
// concurrent registration cannot overwrite an existing one.
func (s *RedisStore) Register(ctx context.Context, key, secret string) error {
	if s.client == nil {
		return errUnavailable("redis", nil)
	}

	k := normalizeKey(key)
	hash, err := s.hasher.Hash(secret)
	if err != nil {
		return oops.Code("CRED_HASH_FAILED").With("key", k).Wrap(err)
	}

	rec := Record{Key: k, Hash: hash, RegisteredAt: time.Now().UTC()}
	data, err := json.Marshal(rec)
	if err != nil {
		return oops.Code("CRED_MARSHAL_FAILED").With("key", k).Wrap(err)
	}

	set, err := s.client.SetNX(ctx, redisKeyPrefix+k, data, 0).Result()
	if err != nil {
		return errUnavailable("redis", err)
	}
	if !set {
		return errAlreadyRegistered(k)
	}
	return nil
}

// Authenticate fetches the stored record and verifies the secret.
func (s *RedisStore) Authenticate(ctx context.Context, key, secret string) (bool, error) {
	if s.client == nil {
		return false, errUnavailable("redis", nil)
	}

	k := normalizeKey(key)
	data, err := s.client.Get(ctx, redisKeyPrefix+k).Bytes()
	if errors.Is(err, redis.Nil) {
		s.hasher.verifyAbsent(secret)
		return false, errNotRegistered(k)
	}
	if err != nil {
		return false, errUnavailable("redis", err)
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return false, oops.Code("CRED_CORRUPT_RECORD").With("key", k).Wrap(err)
	}
	return s.hasher.Verify(secret, rec.Hash)
}

// Unregister deletes the record.
func (s *RedisStore) Unregister(ctx context.Context, key string) error {
	if s.client == nil {
		return errUnavailable("redis", nil)
	}

	k := normalizeKey(key)
	n, err := s.client.Del(ctx, redisKeyPrefix+k).Result()
	if err != nil {
		return errUnavailable("redis", err)
	}
	if n == 0 {
		return errNotRegistered(k)
	}
	return nil
}

// Compile-time interface check.
var _ Store = (*RedisStore)(nil)
