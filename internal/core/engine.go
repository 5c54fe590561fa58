// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

// Package core drives the authentication lifecycle: join, gating,
// login or registration, handoff into the world, and quit. All engine
// methods run on the game loop; credential store I/O is pushed off the
// loop and its results marshalled back.
package core

import (
	"context"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/gatehouse/gatehouse/internal/command"
	"github.com/gatehouse/gatehouse/internal/credstore"
	"github.com/gatehouse/gatehouse/internal/gate"
	"github.com/gatehouse/gatehouse/internal/handoff"
	"github.com/gatehouse/gatehouse/internal/location"
	"github.com/gatehouse/gatehouse/internal/loop"
	"github.com/gatehouse/gatehouse/internal/messages"
	"github.com/gatehouse/gatehouse/internal/sched"
	"github.com/gatehouse/gatehouse/internal/session"
	"github.com/gatehouse/gatehouse/pkg/errutil"
)

// Host is the world surface the engine drives. Implementations are the
// bridge to the actual game server.
type Host interface {
	// Send delivers text to one player.
	Send(id ulid.ULID, text string)

	// Teleport moves a player.
	Teleport(id ulid.ULID, loc location.Location) error

	// Disconnect kicks a player with a reason.
	Disconnect(id ulid.ULID, reason string)

	// Position returns a player's current position.
	Position(id ulid.ULID) (location.Location, bool)
}

// Config carries the engine's authentication policy.
type Config struct {
	// AuthRequired gates the world behind login. When false every
	// session authenticates on join.
	AuthRequired bool

	// Timeout disconnects sessions that stay pending too long.
	Timeout time.Duration

	// ReminderInterval repeats the welcome prompt to pending sessions.
	ReminderInterval time.Duration

	// SavePosition stores an authenticated player's position on quit.
	SavePosition bool

	// IPRecords remembers a player's address briefly after quit so an
	// immediate rejoin from the same address skips login.
	IPRecords     bool
	IPRecordDelay time.Duration
}

// Settings is the full runtime policy a reload replaces: the engine's
// own config plus the pieces it pushes into the gate and the handoff
// dispatcher.
type Settings struct {
	Engine Config

	// ReminderWindow is the gate's debounce for blocked-action
	// reminders.
	ReminderWindow time.Duration

	Handoff handoff.Config
}

// Deps are the collaborators the engine is wired with.
type Deps struct {
	Loop       *loop.Loop
	Scheduler  *sched.Scheduler
	Sessions   *session.Registry
	Store      *credstore.Guard
	Gate       *gate.Gate
	Handoff    *handoff.Dispatcher
	Dispatcher *command.Dispatcher
	Locations  location.Service
	Messages   messages.Renderer
	Host       Host
}

// Engine owns the authentication lifecycle for every session.
type Engine struct {
	cfg        Config
	loop       *loop.Loop
	sched      *sched.Scheduler
	sessions   *session.Registry
	store      *credstore.Guard
	gate       *gate.Gate
	handoff    *handoff.Dispatcher
	dispatcher *command.Dispatcher
	locations  location.Service
	renderer   messages.Renderer
	host       Host

	// reloadHook re-reads external state (config file, message
	// catalog) during Reload and returns the policy to run under
	// afterwards. Set by the wiring layer.
	reloadHook func(context.Context) (*Settings, error)
}

// NewEngine creates an engine.
func NewEngine(cfg Config, deps Deps) *Engine {
	return &Engine{
		cfg:        cfg,
		loop:       deps.Loop,
		sched:      deps.Scheduler,
		sessions:   deps.Sessions,
		store:      deps.Store,
		gate:       deps.Gate,
		handoff:    deps.Handoff,
		dispatcher: deps.Dispatcher,
		locations:  deps.Locations,
		renderer:   deps.Messages,
		host:       deps.Host,
	}
}

// SetReloadHook installs the function Reload uses to re-read external
// state. A nil Settings result keeps the current policy.
func (e *Engine) SetReloadHook(fn func(context.Context) (*Settings, error)) {
	e.reloadHook = fn
}

// OnJoin creates the session and either authenticates it immediately
// (auth disabled, or a fresh IP record matches) or parks it pending
// with a timeout and a reminder.
func (e *Engine) OnJoin(ctx context.Context, id ulid.ULID, name, addr string) {
	sess := e.sessions.OnJoin(id, name, addr)

	if !e.cfg.AuthRequired {
		e.sessions.MarkAuthenticated(id)
		return
	}

	if e.cfg.IPRecords && addr != "" {
		if recorded, ok := e.sessions.IPOf(id); ok && recorded == addr {
			slog.Info("session authenticated from ip record",
				"player", name)
			e.finishAuth(ctx, sess, "ip_record")
			return
		}
	}

	e.host.Send(id, e.renderer.Render(messages.PathWelcome, nil))

	if loc, ok := e.locations.Named(location.NameLogin); ok {
		if err := e.host.Teleport(id, loc); err != nil {
			slog.Warn("teleport to login point failed",
				"player", name, "error", err)
		}
	}

	e.startAuthTimers(ctx, sess)
}

// startAuthTimers arms the timeout and reminder for a pending session.
func (e *Engine) startAuthTimers(ctx context.Context, sess *session.Session) {
	id := sess.ID
	sess.Timeout = e.sched.After(e.cfg.Timeout, func() {
		e.onTimeout(ctx, id)
	})
	sess.Reminder = e.sched.Every(e.cfg.ReminderInterval, func() {
		e.remind(id)
	})
}

// onTimeout fires when a session stayed pending for the whole window.
// Harmless if the session authenticated or quit in the meantime.
func (e *Engine) onTimeout(_ context.Context, id ulid.ULID) {
	sess, ok := e.sessions.Lookup(id)
	if !ok || sess.State == session.Authenticated {
		return
	}

	slog.Info("authentication timeout", "player", sess.Name)
	authTimeouts.Inc()
	e.host.Disconnect(id, e.renderer.Render(messages.PathTimeout, nil))
	e.sessions.OnQuit(id)
}

// remind repeats the welcome prompt while a session stays pending.
func (e *Engine) remind(id ulid.ULID) {
	sess, ok := e.sessions.Lookup(id)
	if !ok || sess.State == session.Authenticated {
		return
	}
	e.host.Send(id, e.renderer.Render(messages.PathWelcome, nil))
}

// OnQuit tears the session down. Authenticated sessions may leave a
// saved position and a short-lived IP record behind.
func (e *Engine) OnQuit(_ context.Context, id ulid.ULID) {
	sess := e.sessions.OnQuit(id)
	if sess == nil || sess.State != session.Authenticated {
		return
	}

	if e.cfg.SavePosition {
		if pos, ok := e.host.Position(id); ok {
			e.locations.SetPlayerLast(id, pos)
			if err := e.locations.Save(); err != nil {
				errutil.LogError(slog.With("player", sess.Name),
					"saving player position failed", err)
			}
		}
	}

	if e.cfg.IPRecords && sess.Addr != "" {
		e.sessions.RecordIP(id, sess.Addr)
		e.sched.After(e.cfg.IPRecordDelay, func() {
			e.sessions.ClearIP(id)
		})
	}
}

// HandleChat reports whether a chat message may go through.
func (e *Engine) HandleChat(id ulid.ULID) bool {
	return e.filter(id, gate.ActionChat)
}

// HandleAction reports whether a gameplay action may go through.
func (e *Engine) HandleAction(id ulid.ULID, action gate.Action) bool {
	return e.filter(id, action)
}

func (e *Engine) filter(id ulid.ULID, action gate.Action) bool {
	d := e.gate.Filter(e.sessions.Get(id), action)
	if d.Remind {
		e.host.Send(id, e.renderer.Render(messages.PathWelcome, nil))
	}
	return d.Allowed
}

// HandleMove reports whether a movement may go through; when it may
// not, revert holds the position to put the player back to.
func (e *Engine) HandleMove(id ulid.ULID, from, to location.Location) (allowed bool, revert location.Location) {
	d := e.gate.FilterMove(e.sessions.Get(id), from, to)
	if d.Remind {
		e.host.Send(id, e.renderer.Render(messages.PathWelcome, nil))
	}
	return d.Allowed, d.Revert
}

// HandleCommand dispatches a slash command for a session. Dispatch
// errors are rendered for the player and never propagate.
func (e *Engine) HandleCommand(ctx context.Context, id ulid.ULID, input string, admin bool) {
	sess := e.sessions.Get(id)
	exec := &command.Execution{
		Session: sess,
		Admin:   admin,
		Send:    func(text string) { e.host.Send(id, text) },
		Services: &command.Services{
			Auth:      e,
			World:     e.host,
			Locations: e.locations,
			Messages:  e.renderer,
		},
	}
	if err := e.dispatcher.Dispatch(ctx, input, exec); err != nil {
		e.host.Send(id, command.PlayerMessage(e.renderer, err))
	}
}

// Login verifies a secret off the loop and finishes authentication on
// it. The session may authenticate or quit while verification runs;
// stale results are dropped.
func (e *Engine) Login(ctx context.Context, sess *session.Session, secret string) {
	id := sess.ID
	name := sess.Name
	loop.Async(e.loop, func() (bool, error) {
		return e.store.Authenticate(ctx, name, secret)
	}, func(ok bool, err error) {
		cur, live := e.sessions.Lookup(id)
		if !live || cur != sess || cur.State == session.Authenticated {
			return
		}
		if err != nil {
			e.reportStoreError("authenticate", name, err)
			e.host.Send(id, command.PlayerMessage(e.renderer, err))
			return
		}
		if !ok {
			e.host.Send(id, e.renderer.Render(messages.PathWrongPassword, nil))
			return
		}
		e.finishAuth(ctx, sess, "login")
	})
}

// Register creates the account off the loop, then finishes
// authentication on it.
func (e *Engine) Register(ctx context.Context, sess *session.Session, secret, confirm string) {
	if secret != confirm {
		e.host.Send(sess.ID, e.renderer.Render(messages.PathPasswordsMismatch, nil))
		return
	}

	id := sess.ID
	name := sess.Name
	loop.Async(e.loop, func() (struct{}, error) {
		return struct{}{}, e.store.Register(ctx, name, secret)
	}, func(_ struct{}, err error) {
		cur, live := e.sessions.Lookup(id)
		if !live || cur != sess || cur.State == session.Authenticated {
			return
		}
		if err != nil {
			e.reportStoreError("register", name, err)
			e.host.Send(id, command.PlayerMessage(e.renderer, err))
			return
		}
		e.host.Send(id, e.renderer.Render(messages.PathRegistered, nil))
		e.finishAuth(ctx, sess, "register")
	})
}

// finishAuth is the single path into the authenticated state: veto
// listeners first, then the registry transition, then handoff.
func (e *Engine) finishAuth(ctx context.Context, sess *session.Session, kind string) {
	if err := e.handoff.Veto(sess, kind); err != nil {
		slog.Info("authentication vetoed", "player", sess.Name)
		return
	}

	_, changed := e.sessions.MarkAuthenticated(sess.ID)
	if !changed {
		return
	}

	loginsTotal.WithLabelValues(kind).Inc()
	slog.Info("session authenticated", "player", sess.Name, "kind", kind)
	e.host.Send(sess.ID, e.renderer.Render(messages.PathLoggedIn, nil))

	if err := e.handoff.Dispatch(ctx, sess); err != nil {
		errutil.LogError(slog.With("player", sess.Name), "handoff failed", err)
		e.host.Send(sess.ID, command.PlayerMessage(e.renderer, err))
	}
}

// Unregister removes an account. Runs the store call inline: it is an
// operator action and rare enough not to warrant the async path.
func (e *Engine) Unregister(ctx context.Context, key string) error {
	if err := e.store.Unregister(ctx, key); err != nil {
		e.reportStoreError("unregister", key, err)
		return err
	}
	return nil
}

// Reload re-reads external state, swaps in the new policy, reconnects
// the credential store, and discards every session. Connected
// participants get fresh sessions: authenticated ones come back
// authenticated, pending ones start over with timers armed under the
// new configuration.
func (e *Engine) Reload(ctx context.Context) error {
	if e.reloadHook != nil {
		settings, err := e.reloadHook(ctx)
		if err != nil {
			return oops.Code("RELOAD_FAILED").Wrap(err)
		}
		if settings != nil {
			e.cfg = settings.Engine
			e.gate.SetReminderWindow(settings.ReminderWindow)
			e.handoff.SetConfig(settings.Handoff)
		}
	}

	loop.Async(e.loop, func() (struct{}, error) {
		return struct{}{}, e.store.Reconnect(ctx)
	}, func(_ struct{}, err error) {
		if err != nil {
			e.reportStoreError("reconnect", "", err)
		}
	})

	old := e.sessions.All()
	e.sessions.Clear()
	for _, prev := range old {
		sess := e.sessions.OnJoin(prev.ID, prev.Name, prev.Addr)
		if prev.State == session.Authenticated || !e.cfg.AuthRequired {
			e.sessions.MarkAuthenticated(sess.ID)
			continue
		}
		e.startAuthTimers(ctx, sess)
		e.host.Send(sess.ID, e.renderer.Render(messages.PathWelcome, nil))
	}
	return nil
}

func (e *Engine) reportStoreError(op, key string, err error) {
	if oopsErr, ok := oops.AsOops(err); ok {
		switch oopsErr.Code() {
		case credstore.CodeNotRegistered, credstore.CodeAlreadyRegistered:
			// expected outcomes, not store failures
			return
		}
	}
	storeErrors.Inc()
	errutil.LogError(slog.With("operation", op, "key", key), "credential store error", err)
}

// Compile-time interface check.
var _ command.AuthFlow = (*Engine)(nil)
