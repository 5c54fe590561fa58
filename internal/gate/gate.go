// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

// Package gate suppresses world interaction for sessions that have not
// authenticated yet. Every gameplay action from a pending session is
// blocked; movement is reverted; reminders are rate limited so a
// flood of blocked events cannot spam the player.
package gate

import (
	"time"

	"github.com/gatehouse/gatehouse/internal/location"
	"github.com/gatehouse/gatehouse/internal/session"
)

// Action classifies a gameplay event subject to gating.
type Action int

// Gated actions.
const (
	ActionMove Action = iota
	ActionChat
	ActionCommand
	ActionDropItem
	ActionPickupItem
	ActionBreakBlock
)

// String returns the action label used in logs and metrics.
func (a Action) String() string {
	switch a {
	case ActionMove:
		return "move"
	case ActionChat:
		return "chat"
	case ActionCommand:
		return "command"
	case ActionDropItem:
		return "drop_item"
	case ActionPickupItem:
		return "pickup_item"
	case ActionBreakBlock:
		return "break_block"
	default:
		return "unknown"
	}
}

// moveEpsilon is the squared displacement below which a movement event
// counts as looking around rather than walking. Orientation-only
// updates are never blocked.
const moveEpsilon = 0.001

// Decision is the gate's verdict on one event.
type Decision struct {
	// Allowed is true when the event may proceed unmodified.
	Allowed bool

	// Remind is true when the player should be told to authenticate.
	// At most one reminder per debounce window per session.
	Remind bool

	// Revert, for blocked movement, is the position to put the player
	// back to.
	Revert location.Location
}

// Gate decides which events from unauthenticated sessions to suppress.
type Gate struct {
	reminderWindow time.Duration
	now            func() time.Time
}

// New creates a Gate. reminderWindow bounds how often a blocked session
// is reminded to authenticate.
func New(reminderWindow time.Duration) *Gate {
	return &Gate{reminderWindow: reminderWindow, now: time.Now}
}

// SetReminderWindow replaces the debounce window. Called from the game
// loop during a configuration reload.
func (g *Gate) SetReminderWindow(d time.Duration) {
	g.reminderWindow = d
}

// Filter decides a non-movement action. Authenticated sessions always
// pass; pending sessions are blocked.
func (g *Gate) Filter(sess *session.Session, action Action) Decision {
	if sess == nil || sess.State == session.Authenticated {
		return Decision{Allowed: true}
	}

	blockedActions.WithLabelValues(action.String()).Inc()
	return Decision{
		Allowed: false,
		Remind:  sess.ReminderDue(g.reminderWindow, g.now()),
	}
}

// FilterMove decides a movement event. Turning in place passes; actual
// displacement while pending is blocked with a revert to the origin.
func (g *Gate) FilterMove(sess *session.Session, from, to location.Location) Decision {
	if sess == nil || sess.State == session.Authenticated {
		return Decision{Allowed: true}
	}
	if from.DistanceSquared(to) < moveEpsilon {
		return Decision{Allowed: true}
	}

	blockedActions.WithLabelValues(ActionMove.String()).Inc()
	return Decision{
		Allowed: false,
		Remind:  sess.ReminderDue(g.reminderWindow, g.now()),
		Revert:  from,
	}
}
