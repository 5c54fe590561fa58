// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

// Package command provides the command registry, parser, and dispatch
// system for the authentication gate.
package command

import (
	"context"

	"github.com/oklog/ulid/v2"

	"github.com/gatehouse/gatehouse/internal/location"
	"github.com/gatehouse/gatehouse/internal/messages"
	"github.com/gatehouse/gatehouse/internal/session"
)

// Handler is the function signature for command handlers.
type Handler func(ctx context.Context, exec *Execution) error

// Entry represents a registered command.
type Entry struct {
	Name    string  // canonical name (e.g. "login")
	Handler Handler // handler invoked on dispatch

	// AllowPending marks commands runnable before authentication.
	// Everything else is refused while a session is pending.
	AllowPending bool

	// Admin restricts the command to operators and the console.
	Admin bool

	Usage string // usage pattern (e.g. "login <password>")
	Help  string // short description (one line)
}

// Execution provides context for command execution.
type Execution struct {
	Session *session.Session
	Args    string

	// Admin is true when the invoker is an operator or the console.
	Admin bool

	// Send delivers text back to the invoker.
	Send func(text string)

	Services *Services
}

// Services provides access to core services for command handlers.
// Handlers must not retain references beyond execution.
type Services struct {
	Auth      AuthFlow
	World     WorldReader
	Locations location.Service
	Messages  messages.Renderer
}

// AuthFlow is the authentication surface handlers drive. Login and
// Register resolve asynchronously; their outcome reaches the player
// through the world host, not a return value.
type AuthFlow interface {
	Login(ctx context.Context, sess *session.Session, secret string)
	Register(ctx context.Context, sess *session.Session, secret, confirm string)
	Unregister(ctx context.Context, key string) error
	Reload(ctx context.Context) error
}

// WorldReader exposes read-only world state to handlers.
type WorldReader interface {
	Position(id ulid.ULID) (location.Location, bool)
}
