// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package handlers

import (
	"github.com/gatehouse/gatehouse/internal/command"
)

// RegisterAll registers the built-in commands with the registry.
func RegisterAll(reg *command.Registry) {
	// Authentication commands, runnable while pending.
	reg.Register(command.Entry{
		Name:         "login",
		Handler:      LoginHandler,
		AllowPending: true,
		Usage:        "login <password>",
		Help:         "Log in to your account",
	})
	reg.Register(command.Entry{
		Name:         "register",
		Handler:      RegisterHandler,
		AllowPending: true,
		Usage:        "register <password> <password>",
		Help:         "Create an account and log in",
	})
	reg.Register(command.Entry{
		Name:         "help",
		Handler:      NewHelpHandler(reg),
		AllowPending: true,
		Usage:        "help",
		Help:         "List available commands",
	})

	// Operator commands.
	reg.Register(command.Entry{
		Name:    "set",
		Handler: SetHandler,
		Admin:   true,
		Usage:   "set <login|spawn>",
		Help:    "Save your position as the login or spawn point",
	})
	reg.Register(command.Entry{
		Name:    "reload",
		Handler: ReloadHandler,
		Admin:   true,
		Usage:   "reload",
		Help:    "Reload configuration, messages, and locations",
	})
	reg.Register(command.Entry{
		Name:    "unregister",
		Handler: UnregisterHandler,
		Admin:   true,
		Usage:   "unregister <player>",
		Help:    "Delete a player's account",
	})
}
