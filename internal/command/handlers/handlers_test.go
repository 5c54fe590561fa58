// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package handlers_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/require"

	"github.com/gatehouse/gatehouse/internal/command"
	"github.com/gatehouse/gatehouse/internal/location"
	"github.com/gatehouse/gatehouse/internal/messages"
	"github.com/gatehouse/gatehouse/internal/session"
)

// fakeAuth records AuthFlow calls.
type fakeAuth struct {
	loginSecret     string
	registerSecret  string
	unregisteredKey string
	reloads         int
	unregisterErr   error
}

func (f *fakeAuth) Login(_ context.Context, _ *session.Session, secret string) {
	f.loginSecret = secret
}

func (f *fakeAuth) Register(_ context.Context, _ *session.Session, secret, _ string) {
	f.registerSecret = secret
}

func (f *fakeAuth) Unregister(_ context.Context, key string) error {
	if f.unregisterErr != nil {
		return f.unregisterErr
	}
	f.unregisteredKey = key
	return nil
}

func (f *fakeAuth) Reload(context.Context) error {
	f.reloads++
	return nil
}

// fakeWorld serves one position for every player.
type fakeWorld struct {
	pos   location.Location
	known bool
}

func (f *fakeWorld) Position(ulid.ULID) (location.Location, bool) {
	return f.pos, f.known
}

type fixture struct {
	auth  *fakeAuth
	world *fakeWorld
	locs  *location.FileService
	sent  []string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	locs, err := location.OpenFile(filepath.Join(t.TempDir(), "locations.yml"))
	require.NoError(t, err)
	return &fixture{
		auth:  &fakeAuth{},
		world: &fakeWorld{known: true, pos: location.Location{World: "overworld", X: 1, Y: 64, Z: 2}},
		locs:  locs,
	}
}

func (f *fixture) exec(state session.State, args string) *command.Execution {
	renderer, _ := messages.Load("")
	return &command.Execution{
		Session: &session.Session{ID: ulid.Make(), Name: "alice", State: state},
		Args:    args,
		Send:    func(text string) { f.sent = append(f.sent, text) },
		Services: &command.Services{
			Auth:      f.auth,
			World:     f.world,
			Locations: f.locs,
			Messages:  renderer,
		},
	}
}
