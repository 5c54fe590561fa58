// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

// Package location provides the named-location service consumed by the
// handoff dispatcher and the quit path. The core treats it as a
// key-value store of world coordinates; the file implementation here is
// the default persistence mechanism.
package location

import (
	"math"

	"github.com/oklog/ulid/v2"
)

// Well-known location names.
const (
	NameSpawn = "spawn"
	NameLogin = "login"
)

// Location is a world coordinate with orientation.
type Location struct {
	World string  `yaml:"world"`
	X     float64 `yaml:"x"`
	Y     float64 `yaml:"y"`
	Z     float64 `yaml:"z"`
	Yaw   float32 `yaml:"yaw"`
	Pitch float32 `yaml:"pitch"`
}

// DistanceSquared returns the squared displacement between two
// locations, ignoring orientation. Locations in different worlds are
// treated as infinitely far apart.
func (l Location) DistanceSquared(other Location) float64 {
	if l.World != other.World {
		return math.Inf(1)
	}
	dx := l.X - other.X
	dy := l.Y - other.Y
	dz := l.Z - other.Z
	return dx*dx + dy*dy + dz*dz
}

// Service is the location lookup consumed by the core.
type Service interface {
	// Named returns the location saved under a logical name.
	Named(name string) (Location, bool)

	// SetNamed saves a location under a logical name.
	SetNamed(name string, loc Location)

	// PlayerLast returns a participant's last saved position.
	PlayerLast(id ulid.ULID) (Location, bool)

	// SetPlayerLast saves a participant's last position.
	SetPlayerLast(id ulid.ULID, loc Location)

	// Save persists the current state.
	Save() error
}
