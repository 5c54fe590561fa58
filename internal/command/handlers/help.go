// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package handlers

import (
	"context"
	"strings"

	"github.com/gatehouse/gatehouse/internal/command"
	"github.com/gatehouse/gatehouse/internal/session"
)

// NewHelpHandler builds the help command over a registry. Pending
// sessions only see commands they can actually run.
func NewHelpHandler(registry *command.Registry) command.Handler {
	return func(_ context.Context, exec *command.Execution) error {
		var b strings.Builder
		b.WriteString("Available commands:")
		for _, entry := range registry.All() {
			if entry.Admin && !exec.Admin {
				continue
			}
			if exec.Session.State == session.PendingAuth && !entry.AllowPending {
				continue
			}
			b.WriteString("\n  /" + entry.Usage)
			if entry.Help != "" {
				b.WriteString(" - " + entry.Help)
			}
		}
		exec.Send(b.String())
		return nil
	}
}
