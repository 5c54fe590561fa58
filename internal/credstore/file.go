// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package credstore

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/samber/oops"
	"gopkg.in/yaml.v3"
)

// FileStore keeps credential records in a single yaml document, one
// record per account key. Writes are atomic: temp file plus rename.
type FileStore struct {
	mu        sync.Mutex
	path      string
	hasher    *Hasher
	records   map[string]Record
	connected bool
}

// NewFileStore creates a file-backed store rooted at path. Connect
// loads the document.
func NewFileStore(path string, hasher *Hasher) *FileStore {
	return &FileStore{
		path:   path,
		hasher: hasher,
	}
}

// Connect loads the records document. A missing file is an empty store,
// not an error; an unreadable or corrupt file is STORE_UNAVAILABLE.
func (s *FileStore) Connect(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	records := make(map[string]Record)
	data, err := os.ReadFile(s.path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		// first run
	case err != nil:
		return errUnavailable("file", err)
	default:
		if err := yaml.Unmarshal(data, &records); err != nil {
			return errUnavailable("file", err)
		}
	}

	s.records = records
	s.connected = true
	return nil
}

// Disconnect drops the in-memory view. Idempotent.
func (s *FileStore) Disconnect(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = nil
	s.connected = false
	return nil
}

// Exists reports whether a record exists for the account key.
func (s *FileStore) Exists(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.connected {
		return false, errUnavailable("file", nil)
	}
	_, ok := s.records[normalizeKey(key)]
	return ok, nil
}

// Register hashes the secret and persists the new record atomically.
func (s *FileStore) Register(_ context.Context, key, secret string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.connected {
		return errUnavailable("file", nil)
	}

	k := normalizeKey(key)
	if _, ok := s.records[k]; ok {
		return errAlreadyRegistered(k)
	}

	hash, err := s.hasher.Hash(secret)
	if err != nil {
		return oops.Code("CRED_HASH_FAILED").With("key", k).Wrap(err)
	}

	s.records[k] = Record{Key: k, Hash: hash, RegisteredAt: time.Now().UTC()}
	if err := s.flushLocked(); err != nil {
		delete(s.records, k)
		return err
	}
	return nil
}

// Authenticate verifies the secret against the stored hash.
func (s *FileStore) Authenticate(_ context.Context, key, secret string) (bool, error) {
	s.mu.Lock()
	if !s.connected {
		s.mu.Unlock()
		return false, errUnavailable("file", nil)
	}
	k := normalizeKey(key)
	rec, ok := s.records[k]
	s.mu.Unlock()

	if !ok {
		s.hasher.verifyAbsent(secret)
		return false, errNotRegistered(k)
	}
	return s.hasher.Verify(secret, rec.Hash)
}

// Unregister deletes the record and persists the removal.
func (s *FileStore) Unregister(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.connected {
		return errUnavailable("file", nil)
	}

	k := normalizeKey(key)
	rec, ok := s.records[k]
	if !ok {
		return errNotRegistered(k)
	}

	delete(s.records, k)
	if err := s.flushLocked(); err != nil {
		s.records[k] = rec
		return err
	}
	return nil
}

// flushLocked writes the document atomically. Callers hold s.mu.
func (s *FileStore) flushLocked() error {
	data, err := yaml.Marshal(s.records)
	if err != nil {
		return oops.Code("CRED_MARSHAL_FAILED").With("path", s.path).Wrap(err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".accounts-*.yml")
	if err != nil {
		return oops.Code("CRED_WRITE_FAILED").With("path", s.path).Wrap(err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return oops.Code("CRED_WRITE_FAILED").With("path", s.path).Wrap(err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return oops.Code("CRED_WRITE_FAILED").With("path", s.path).Wrap(err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		_ = os.Remove(tmpName)
		return oops.Code("CRED_WRITE_FAILED").With("path", s.path).Wrap(err)
	}
	return nil
}

// Compile-time interface check.
var _ Store = (*FileStore)(nil)
