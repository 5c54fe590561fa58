// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

// Package session tracks per-participant authentication state.
package session

import (
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/gatehouse/gatehouse/internal/sched"
)

// State is a session's position in the authentication lifecycle.
type State int

const (
	// PendingAuth means the participant has joined but not yet
	// authenticated; guarded actions are suppressed.
	PendingAuth State = iota
	// Authenticated means restrictions are lifted.
	Authenticated
)

// String returns the state name for logs.
func (s State) String() string {
	switch s {
	case PendingAuth:
		return "pending_auth"
	case Authenticated:
		return "authenticated"
	default:
		return "unknown"
	}
}

// Session is the authentication state machine for one connected
// participant. Sessions are loop-confined: all mutation happens on the
// game loop, via the Registry.
type Session struct {
	ID       ulid.ULID
	Name     string
	Addr     string // remote address, empty when unknown
	State    State
	JoinedAt time.Time

	// Timeout and Reminder are owned exclusively by this session and
	// cancelled on authentication, quit, or reload. Authenticated
	// implies both are cancelled.
	Timeout  *sched.Handle
	Reminder *sched.Handle

	lastReminder time.Time
}

// ReminderDue reports whether a blocked-action reminder may be sent,
// and stamps the send time when it may. At most one reminder is allowed
// per window, however many blocked actions occur.
func (s *Session) ReminderDue(window time.Duration, now time.Time) bool {
	if !s.lastReminder.IsZero() && now.Sub(s.lastReminder) < window {
		return false
	}
	s.lastReminder = now
	return true
}

// CancelTimers cancels both timer handles. Idempotent.
func (s *Session) CancelTimers() {
	s.Timeout.Cancel()
	s.Reminder.Cancel()
	s.Timeout = nil
	s.Reminder = nil
}
