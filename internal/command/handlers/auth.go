// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

// Package handlers implements the built-in commands.
package handlers

import (
	"context"

	"github.com/gatehouse/gatehouse/internal/command"
	"github.com/gatehouse/gatehouse/internal/messages"
	"github.com/gatehouse/gatehouse/internal/session"
)

// LoginHandler authenticates a pending session against the credential
// store. The verification runs off the game loop; the outcome reaches
// the player asynchronously.
func LoginHandler(ctx context.Context, exec *command.Execution) error {
	if exec.Session.State == session.Authenticated {
		exec.Send(exec.Services.Messages.Render(messages.PathAlreadyLoggedIn, nil))
		return nil
	}

	args := command.SplitArgs(exec.Args)
	if len(args) != 1 {
		return command.ErrInvalidArgs("login", "login <password>")
	}

	exec.Services.Auth.Login(ctx, exec.Session, args[0])
	return nil
}

// RegisterHandler creates an account for a pending session and logs it
// in. Requires the password twice; a mismatch is caught before the
// store is touched.
func RegisterHandler(ctx context.Context, exec *command.Execution) error {
	if exec.Session.State == session.Authenticated {
		exec.Send(exec.Services.Messages.Render(messages.PathAlreadyLoggedIn, nil))
		return nil
	}

	args := command.SplitArgs(exec.Args)
	if len(args) != 2 {
		return command.ErrInvalidArgs("register", "register <password> <password>")
	}
	if args[0] != args[1] {
		exec.Send(exec.Services.Messages.Render(messages.PathPasswordsMismatch, nil))
		return nil
	}

	exec.Services.Auth.Register(ctx, exec.Session, args[0], args[1])
	return nil
}
