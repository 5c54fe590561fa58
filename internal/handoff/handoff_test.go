// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package handoff_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gatehouse/gatehouse/internal/handoff"
	"github.com/gatehouse/gatehouse/internal/location"
	"github.com/gatehouse/gatehouse/internal/messages"
	"github.com/gatehouse/gatehouse/internal/session"
)

type fakeHost struct {
	sent      map[ulid.ULID][]string
	teleports map[ulid.ULID]location.Location
}

func newFakeHost() *fakeHost {
	return &fakeHost{
		sent:      make(map[ulid.ULID][]string),
		teleports: make(map[ulid.ULID]location.Location),
	}
}

func (h *fakeHost) Send(id ulid.ULID, text string) {
	h.sent[id] = append(h.sent[id], text)
}

func (h *fakeHost) Teleport(id ulid.ULID, loc location.Location) error {
	h.teleports[id] = loc
	return nil
}

type fakeLister struct {
	sessions []*session.Session
}

func (l *fakeLister) Authenticated() []*session.Session { return l.sessions }

type fakeProxy struct {
	calls map[ulid.ULID]string
}

func (p *fakeProxy) SendToServer(_ context.Context, id ulid.ULID, server string) error {
	if p.calls == nil {
		p.calls = make(map[ulid.ULID]string)
	}
	p.calls[id] = server
	return nil
}

func newTestDispatcher(t *testing.T, cfg handoff.Config) (*handoff.Dispatcher, *fakeHost, *fakeLister, *fakeProxy, *location.FileService) {
	t.Helper()
	locs, err := location.OpenFile(filepath.Join(t.TempDir(), "locations.yml"))
	require.NoError(t, err)

	renderer, err := messages.Load("")
	require.NoError(t, err)

	host := newFakeHost()
	lister := &fakeLister{}
	proxy := &fakeProxy{}
	d := handoff.NewDispatcher(cfg, host, lister, locs, proxy, renderer)
	return d, host, lister, proxy, locs
}

func authedSession(name string) *session.Session {
	return &session.Session{ID: ulid.Make(), Name: name, State: session.Authenticated}
}

func TestVeto(t *testing.T) {
	d, _, _, _, _ := newTestDispatcher(t, handoff.Config{})
	sess := authedSession("alice")

	require.NoError(t, d.Veto(sess, "login"), "no listeners means no veto")

	var seenType string
	d.AddListener(func(e *handoff.Event) { seenType = e.AuthType })
	d.AddListener(func(e *handoff.Event) { e.Cancel() })

	assert.ErrorIs(t, d.Veto(sess, "register"), handoff.ErrCancelled)
	assert.Equal(t, "register", seenType)
}

func TestDispatch_ProxyForwards(t *testing.T) {
	d, host, _, proxy, _ := newTestDispatcher(t, handoff.Config{
		ProxyEnabled:   true,
		SpawnServer:    "lobby",
		LoginBroadcast: true,
	})
	sess := authedSession("alice")

	require.NoError(t, d.Dispatch(context.Background(), sess))

	assert.Equal(t, "lobby", proxy.calls[sess.ID])
	assert.Empty(t, host.teleports, "proxy handoff does not teleport locally")
	assert.Empty(t, host.sent, "proxy handoff does not announce locally")
}

func TestDispatch_SavedPositionWins(t *testing.T) {
	d, host, _, _, locs := newTestDispatcher(t, handoff.Config{
		SavePosition: true,
		ToSpawn:      true,
	})
	sess := authedSession("alice")

	spawn := location.Location{World: "overworld", X: 0, Y: 64, Z: 0}
	last := location.Location{World: "nether", X: 5, Y: 40, Z: -8}
	locs.SetNamed(location.NameSpawn, spawn)
	locs.SetPlayerLast(sess.ID, last)

	require.NoError(t, d.Dispatch(context.Background(), sess))
	assert.Equal(t, last, host.teleports[sess.ID])
}

func TestDispatch_FallsBackToSpawn(t *testing.T) {
	d, host, _, _, locs := newTestDispatcher(t, handoff.Config{
		SavePosition: true,
		ToSpawn:      true,
	})
	sess := authedSession("alice")

	spawn := location.Location{World: "overworld", X: 0, Y: 64, Z: 0}
	locs.SetNamed(location.NameSpawn, spawn)

	require.NoError(t, d.Dispatch(context.Background(), sess))
	assert.Equal(t, spawn, host.teleports[sess.ID])
}

func TestDispatch_NoDestination(t *testing.T) {
	d, _, _, _, _ := newTestDispatcher(t, handoff.Config{ToSpawn: true})
	sess := authedSession("alice")

	err := d.Dispatch(context.Background(), sess)
	require.Error(t, err)

	oopsErr, ok := oops.AsOops(err)
	require.True(t, ok)
	assert.Equal(t, handoff.CodeDestinationUnset, oopsErr.Code())
}

func TestDispatch_NoTeleportConfigured(t *testing.T) {
	d, host, _, _, _ := newTestDispatcher(t, handoff.Config{})
	sess := authedSession("alice")

	require.NoError(t, d.Dispatch(context.Background(), sess))
	assert.Empty(t, host.teleports)
}

func TestDispatch_AnnouncesToAuthenticatedOnly(t *testing.T) {
	d, host, lister, _, locs := newTestDispatcher(t, handoff.Config{
		ToSpawn:        true,
		LoginBroadcast: true,
	})
	locs.SetNamed(location.NameSpawn, location.Location{World: "overworld"})

	arriving := authedSession("alice")
	other := authedSession("bob")
	lister.sessions = []*session.Session{arriving, other}

	require.NoError(t, d.Dispatch(context.Background(), arriving))

	require.Len(t, host.sent[other.ID], 1)
	assert.Contains(t, host.sent[other.ID][0], "alice")
	assert.Empty(t, host.sent[arriving.ID], "the arriving player is not announced to")
}

func TestDispatch_BroadcastDisabled(t *testing.T) {
	d, host, lister, _, locs := newTestDispatcher(t, handoff.Config{ToSpawn: true})
	locs.SetNamed(location.NameSpawn, location.Location{World: "overworld"})

	arriving := authedSession("alice")
	other := authedSession("bob")
	lister.sessions = []*session.Session{arriving, other}

	require.NoError(t, d.Dispatch(context.Background(), arriving))
	assert.Empty(t, host.sent)
}
