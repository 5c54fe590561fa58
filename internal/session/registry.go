// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package session

import (
	"log/slog"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Registry is the single source of truth for per-participant auth
// state. At most one session exists per participant; MarkAuthenticated
// is the only authentication decision point, everything else just
// reads State.
//
// Mutating methods must be called from the game loop. The mutex only
// protects read-only observers (metrics, listings) that run off-loop.
type Registry struct {
	mu       sync.RWMutex
	sessions map[ulid.ULID]*Session

	// ipRecords outlive their sessions: an address is captured at
	// disconnect and cleared after a configured delay.
	ipRecords map[ulid.ULID]string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		sessions:  make(map[ulid.ULID]*Session),
		ipRecords: make(map[ulid.ULID]string),
	}
}

// OnJoin creates a session in PendingAuth for the participant.
// If a session already exists (a lifecycle bug), its timers are
// cancelled and it is replaced.
func (r *Registry) OnJoin(id ulid.ULID, name, addr string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	if old, exists := r.sessions[id]; exists {
		slog.Warn("join for participant with live session, replacing",
			"participant_id", id.String(),
			"name", name,
		)
		old.CancelTimers()
	}

	sess := &Session{
		ID:       id,
		Name:     name,
		Addr:     addr,
		State:    PendingAuth,
		JoinedAt: time.Now(),
	}
	r.sessions[id] = sess
	return sess
}

// Get returns the participant's session. Join events are expected to
// have fired first; a missing session indicates a lifecycle bug, so one
// is synthesized defensively and the condition logged.
func (r *Registry) Get(id ulid.ULID) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	if sess, exists := r.sessions[id]; exists {
		return sess
	}

	slog.Warn("session missing for connected participant, synthesizing",
		"participant_id", id.String(),
	)
	sess := &Session{
		ID:       id,
		State:    PendingAuth,
		JoinedAt: time.Now(),
	}
	r.sessions[id] = sess
	return sess
}

// Lookup returns the session without synthesizing a missing one.
func (r *Registry) Lookup(id ulid.ULID) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sess, exists := r.sessions[id]
	return sess, exists
}

// MarkAuthenticated transitions PendingAuth -> Authenticated and
// cancels both timers. A no-op when already authenticated or when no
// session exists. Returns the session and whether a transition
// happened.
func (r *Registry) MarkAuthenticated(id ulid.ULID) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sess, exists := r.sessions[id]
	if !exists {
		slog.Debug("mark authenticated for non-existent session",
			"participant_id", id.String(),
		)
		return nil, false
	}
	if sess.State == Authenticated {
		return sess, false
	}

	sess.State = Authenticated
	sess.CancelTimers()
	return sess, true
}

// OnQuit cancels any outstanding timers and removes the session.
// Returns the removed session, or nil if none existed.
func (r *Registry) OnQuit(id ulid.ULID) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	sess, exists := r.sessions[id]
	if !exists {
		slog.Debug("quit for non-existent session",
			"participant_id", id.String(),
		)
		return nil
	}

	sess.CancelTimers()
	delete(r.sessions, id)
	return sess
}

// Clear cancels all outstanding timers and empties the registry.
// Used on reload so no timer keeps referencing a stale configuration.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, sess := range r.sessions {
		sess.CancelTimers()
	}
	r.sessions = make(map[ulid.ULID]*Session)
}

// All returns the live sessions. Loop-confined: callers must only touch
// the returned sessions from the game loop.
func (r *Registry) All() []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*Session, 0, len(r.sessions))
	for _, sess := range r.sessions {
		result = append(result, sess)
	}
	return result
}

// Authenticated returns the live sessions currently in Authenticated.
func (r *Registry) Authenticated() []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*Session, 0, len(r.sessions))
	for _, sess := range r.sessions {
		if sess.State == Authenticated {
			result = append(result, sess)
		}
	}
	return result
}

// Count returns the number of live sessions.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.sessions)
}

// RecordIP stores a participant's address at disconnect. The record
// outlives the session and is removed by ClearIP.
func (r *Registry) RecordIP(id ulid.ULID, addr string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.ipRecords[id] = addr
}

// ClearIP removes a participant's recorded address.
func (r *Registry) ClearIP(id ulid.ULID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.ipRecords, id)
}

// IPOf returns the recorded address for a participant, if any.
func (r *Registry) IPOf(id ulid.ULID) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	addr, ok := r.ipRecords[id]
	return addr, ok
}
