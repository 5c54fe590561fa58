// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package command

import (
	"github.com/samber/oops"

	"github.com/gatehouse/gatehouse/internal/credstore"
	"github.com/gatehouse/gatehouse/internal/handoff"
	"github.com/gatehouse/gatehouse/internal/messages"
)

// Error codes for command dispatch failures.
const (
	CodeUnknownCommand = "UNKNOWN_COMMAND"
	CodeInvalidArgs    = "INVALID_ARGS"
	CodeAuthRequired   = "AUTH_REQUIRED"
	CodeAdminOnly      = "ADMIN_ONLY"
	CodeRateLimited    = "RATE_LIMITED"
)

// ErrUnknownCommand creates an error for an unknown command.
func ErrUnknownCommand(cmd string) error {
	return oops.Code(CodeUnknownCommand).
		With("command", cmd).
		Errorf("unknown command: %s", cmd)
}

// ErrInvalidArgs creates an error for invalid arguments.
func ErrInvalidArgs(cmd, usage string) error {
	return oops.Code(CodeInvalidArgs).
		With("command", cmd).
		With("usage", usage).
		Errorf("invalid arguments")
}

// ErrAuthRequired creates an error for commands refused to pending
// sessions.
func ErrAuthRequired(cmd string) error {
	return oops.Code(CodeAuthRequired).
		With("command", cmd).
		Errorf("command requires authentication: %s", cmd)
}

// ErrAdminOnly creates an error for operator-only commands.
func ErrAdminOnly(cmd string) error {
	return oops.Code(CodeAdminOnly).
		With("command", cmd).
		Errorf("command restricted to operators: %s", cmd)
}

// ErrRateLimited creates an error for rate limiting.
func ErrRateLimited(cooldownMs int64) error {
	return oops.Code(CodeRateLimited).
		With("cooldown_ms", cooldownMs).
		Errorf("too many commands")
}

// PlayerMessage extracts a player-facing message from a dispatch
// error, rendering catalog entries where one applies. Internal detail
// never leaks to the player.
func PlayerMessage(r messages.Renderer, err error) string {
	if err == nil {
		return ""
	}
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return "Something went wrong. Try again."
	}

	switch oopsErr.Code() {
	case CodeUnknownCommand:
		return "Unknown command."
	case CodeInvalidArgs:
		if usage, ok := oopsErr.Context()["usage"].(string); ok && usage != "" {
			return "Usage: /" + usage
		}
		return "Invalid arguments."
	case CodeAuthRequired:
		return r.Render(messages.PathWelcome, nil)
	case CodeAdminOnly:
		return "You don't have permission to do that."
	case CodeRateLimited:
		return "Too many attempts. Please slow down."
	case credstore.CodeNotRegistered:
		return r.Render(messages.PathNotRegistered, nil)
	case credstore.CodeAlreadyRegistered:
		return r.Render(messages.PathAlreadyRegistered, nil)
	case credstore.CodeStoreUnavailable:
		return r.Render(messages.PathStoreUnavailable, nil)
	case handoff.CodeDestinationUnset:
		return "No spawn point has been set. Ask an operator to run /set spawn."
	default:
		return "Something went wrong. Try again."
	}
}
