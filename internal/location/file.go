// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package location

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
	"gopkg.in/yaml.v3"
)

// fileDoc is the on-disk shape of the locations file.
type fileDoc struct {
	Named   map[string]Location `yaml:"named,omitempty"`
	Players map[string]Location `yaml:"playerLocations,omitempty"`
}

// FileService stores locations in a single yaml document.
type FileService struct {
	mu      sync.RWMutex
	path    string
	named   map[string]Location
	players map[string]Location
}

// OpenFile loads the locations file at path, creating an empty service
// if the file does not exist yet.
func OpenFile(path string) (*FileService, error) {
	s := &FileService{
		path:    path,
		named:   make(map[string]Location),
		players: make(map[string]Location),
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, oops.Code("LOCATIONS_READ_FAILED").
			With("path", path).
			Wrap(err)
	}

	var doc fileDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, oops.Code("LOCATIONS_PARSE_FAILED").
			With("path", path).
			Wrap(err)
	}
	if doc.Named != nil {
		s.named = doc.Named
	}
	if doc.Players != nil {
		s.players = doc.Players
	}
	return s, nil
}

// Named returns the location saved under a logical name.
func (s *FileService) Named(name string) (Location, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	loc, ok := s.named[name]
	return loc, ok
}

// SetNamed saves a location under a logical name.
func (s *FileService) SetNamed(name string, loc Location) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.named[name] = loc
}

// PlayerLast returns a participant's last saved position.
func (s *FileService) PlayerLast(id ulid.ULID) (Location, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	loc, ok := s.players[id.String()]
	return loc, ok
}

// SetPlayerLast saves a participant's last position.
func (s *FileService) SetPlayerLast(id ulid.ULID, loc Location) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.players[id.String()] = loc
}

// Save writes the document atomically: marshal to a temp file in the
// same directory, then rename over the target.
func (s *FileService) Save() error {
	s.mu.RLock()
	doc := fileDoc{Named: s.named, Players: s.players}
	data, err := yaml.Marshal(doc)
	s.mu.RUnlock()
	if err != nil {
		return oops.Code("LOCATIONS_MARSHAL_FAILED").Wrap(err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".locations-*.yml")
	if err != nil {
		return oops.Code("LOCATIONS_SAVE_FAILED").
			With("path", s.path).
			Wrap(err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return oops.Code("LOCATIONS_SAVE_FAILED").
			With("path", s.path).
			Wrap(err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return oops.Code("LOCATIONS_SAVE_FAILED").
			With("path", s.path).
			Wrap(err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		_ = os.Remove(tmpName)
		return oops.Code("LOCATIONS_SAVE_FAILED").
			With("path", s.path).
			Wrap(err)
	}
	return nil
}

// Compile-time interface check.
var _ Service = (*FileService)(nil)
