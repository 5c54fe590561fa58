// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package handlers

import (
	"context"

	"github.com/samber/oops"

	"github.com/gatehouse/gatehouse/internal/command"
	"github.com/gatehouse/gatehouse/internal/location"
	"github.com/gatehouse/gatehouse/internal/messages"
)

// SetHandler saves the invoker's current position under a logical
// name. Only "login" and "spawn" are accepted.
func SetHandler(_ context.Context, exec *command.Execution) error {
	args := command.SplitArgs(exec.Args)
	if len(args) != 1 {
		return command.ErrInvalidArgs("set", "set <login|spawn>")
	}

	name := args[0]
	if name != location.NameLogin && name != location.NameSpawn {
		return command.ErrInvalidArgs("set", "set <login|spawn>")
	}

	pos, ok := exec.Services.World.Position(exec.Session.ID)
	if !ok {
		return oops.Code("POSITION_UNKNOWN").
			With("player", exec.Session.Name).
			Errorf("no known position for invoker")
	}

	exec.Services.Locations.SetNamed(name, pos)
	if err := exec.Services.Locations.Save(); err != nil {
		return err
	}

	exec.Send(exec.Services.Messages.Render(messages.PathSet, map[string]string{
		"name": name,
	}))
	return nil
}

// ReloadHandler re-reads configuration, messages, and locations, and
// restarts the authentication timers of pending sessions.
func ReloadHandler(ctx context.Context, exec *command.Execution) error {
	if err := exec.Services.Auth.Reload(ctx); err != nil {
		return err
	}
	exec.Send(exec.Services.Messages.Render(messages.PathReload, nil))
	return nil
}

// UnregisterHandler removes a player's account from the credential
// store.
func UnregisterHandler(ctx context.Context, exec *command.Execution) error {
	args := command.SplitArgs(exec.Args)
	if len(args) != 1 {
		return command.ErrInvalidArgs("unregister", "unregister <player>")
	}

	if err := exec.Services.Auth.Unregister(ctx, args[0]); err != nil {
		return err
	}
	exec.Send(exec.Services.Messages.Render(messages.PathUnregistered, map[string]string{
		"player": args[0],
	}))
	return nil
}
