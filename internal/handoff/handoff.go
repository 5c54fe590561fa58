// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

// Package handoff delivers a freshly authenticated player into the
// world: either forwarded to another server through the proxy, or
// placed locally at their saved position or the spawn point, with an
// announcement to everyone already inside.
package handoff

import (
	"context"
	"log/slog"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/gatehouse/gatehouse/internal/location"
	"github.com/gatehouse/gatehouse/internal/messages"
	"github.com/gatehouse/gatehouse/internal/session"
)

// CodeDestinationUnset is returned when a local handoff has nowhere to
// put the player: position saving is off or has no record, and no
// spawn point has been set.
const CodeDestinationUnset = "DESTINATION_UNSET"

// ErrCancelled is returned when a listener vetoes the handoff.
var ErrCancelled = oops.Code("HANDOFF_CANCELLED").Errorf("handoff cancelled by listener")

// Event is passed to listeners before a handoff proceeds. AuthType is
// "login" or "register". A listener may Cancel it to veto the login.
type Event struct {
	Session   *session.Session
	AuthType  string
	cancelled bool
}

// Cancel vetoes the handoff.
func (e *Event) Cancel() { e.cancelled = true }

// Cancelled reports whether any listener vetoed the handoff.
func (e *Event) Cancelled() bool { return e.cancelled }

// Listener observes authentication handoffs.
type Listener func(*Event)

// Host is the world surface the dispatcher drives.
type Host interface {
	// Send delivers text to one player.
	Send(id ulid.ULID, text string)

	// Teleport moves a player.
	Teleport(id ulid.ULID, loc location.Location) error
}

// SessionLister exposes the sessions eligible for announcements.
type SessionLister interface {
	Authenticated() []*session.Session
}

// ProxyMessenger forwards a player to another server behind the proxy.
type ProxyMessenger interface {
	SendToServer(ctx context.Context, playerID ulid.ULID, server string) error
}

// Config selects the handoff behavior.
type Config struct {
	// ProxyEnabled forwards players to SpawnServer instead of placing
	// them locally.
	ProxyEnabled bool
	SpawnServer  string

	// SavePosition returns players to where they were last seen.
	// Takes priority over ToSpawn when a record exists.
	SavePosition bool

	// ToSpawn places players at the spawn point.
	ToSpawn bool

	// LoginBroadcast announces the arrival to authenticated players.
	LoginBroadcast bool
}

// Dispatcher performs post-authentication delivery.
type Dispatcher struct {
	cfg       Config
	host      Host
	sessions  SessionLister
	locations location.Service
	proxy     ProxyMessenger
	renderer  messages.Renderer
	listeners []Listener
}

// NewDispatcher creates a Dispatcher. proxy may be nil when the proxy
// is disabled.
func NewDispatcher(
	cfg Config,
	host Host,
	sessions SessionLister,
	locations location.Service,
	proxy ProxyMessenger,
	renderer messages.Renderer,
) *Dispatcher {
	return &Dispatcher{
		cfg:       cfg,
		host:      host,
		sessions:  sessions,
		locations: locations,
		proxy:     proxy,
		renderer:  renderer,
	}
}

// SetConfig replaces the routing policy. Called from the game loop
// during a configuration reload.
func (d *Dispatcher) SetConfig(cfg Config) {
	d.cfg = cfg
}

// AddListener registers a handoff listener. Listeners run in
// registration order; the first Cancel wins.
func (d *Dispatcher) AddListener(l Listener) {
	d.listeners = append(d.listeners, l)
}

// Veto runs the listeners for a session about to authenticate. Returns
// ErrCancelled if any listener vetoes.
func (d *Dispatcher) Veto(sess *session.Session, authType string) error {
	ev := &Event{Session: sess, AuthType: authType}
	for _, l := range d.listeners {
		l(ev)
		if ev.Cancelled() {
			return ErrCancelled
		}
	}
	return nil
}

// Dispatch delivers an authenticated session into the world. With the
// proxy enabled the player is forwarded and nothing local happens;
// otherwise the arrival is announced and the player teleported to
// their destination.
func (d *Dispatcher) Dispatch(ctx context.Context, sess *session.Session) error {
	if d.cfg.ProxyEnabled {
		if err := d.proxy.SendToServer(ctx, sess.ID, d.cfg.SpawnServer); err != nil {
			return oops.Code("HANDOFF_PROXY_FAILED").
				With("player", sess.Name).
				With("server", d.cfg.SpawnServer).
				Wrap(err)
		}
		return nil
	}

	if d.cfg.LoginBroadcast {
		d.announce(sess)
	}
	return d.place(sess)
}

// announce tells every other authenticated player about the arrival.
// Pending sessions never see it.
func (d *Dispatcher) announce(sess *session.Session) {
	text := d.renderer.Render(messages.PathLoginAnnouncement, map[string]string{
		"player": sess.Name,
	})
	for _, other := range d.sessions.Authenticated() {
		if other.ID == sess.ID {
			continue
		}
		d.host.Send(other.ID, text)
	}
}

// place teleports the player to their destination: saved position
// first, spawn second.
func (d *Dispatcher) place(sess *session.Session) error {
	if d.cfg.SavePosition {
		if loc, ok := d.locations.PlayerLast(sess.ID); ok {
			return d.teleport(sess, loc)
		}
	}
	if d.cfg.ToSpawn {
		loc, ok := d.locations.Named(location.NameSpawn)
		if !ok {
			return oops.Code(CodeDestinationUnset).
				With("player", sess.Name).
				Errorf("no spawn point set and no saved position")
		}
		return d.teleport(sess, loc)
	}

	slog.Debug("handoff leaves player in place", "player", sess.Name)
	return nil
}

func (d *Dispatcher) teleport(sess *session.Session, loc location.Location) error {
	if err := d.host.Teleport(sess.ID, loc); err != nil {
		return oops.Code("HANDOFF_TELEPORT_FAILED").
			With("player", sess.Name).
			With("world", loc.World).
			Wrap(err)
	}
	return nil
}
