// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package command

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/samber/oops"

	"github.com/gatehouse/gatehouse/internal/session"
)

var tracer = otel.Tracer("gatehouse/command")

// Dispatcher handles command parsing, state checks, and execution.
type Dispatcher struct {
	registry *Registry
	limiter  *RateLimiter // optional, can be nil
}

// DispatcherOption configures a Dispatcher during construction.
type DispatcherOption func(*Dispatcher)

// WithRateLimiter configures the dispatcher to throttle commands per
// session. If not provided, rate limiting is disabled.
func WithRateLimiter(rl *RateLimiter) DispatcherOption {
	return func(d *Dispatcher) {
		d.limiter = rl
	}
}

// NewDispatcher creates a command dispatcher.
func NewDispatcher(registry *Registry, opts ...DispatcherOption) (*Dispatcher, error) {
	if registry == nil {
		return nil, oops.Code("NIL_REGISTRY").Errorf("registry must not be nil")
	}
	d := &Dispatcher{registry: registry}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Dispatch parses and executes a command. Pending sessions may only
// run commands marked AllowPending; operator commands require an
// admin invoker.
func (d *Dispatcher) Dispatch(ctx context.Context, input string, exec *Execution) (err error) {
	parsed, err := Parse(input)
	if err != nil {
		return err
	}

	ctx, span := tracer.Start(ctx, "command.execute",
		trace.WithAttributes(
			attribute.String("command.name", parsed.Name),
			attribute.String("session.id", exec.Session.ID.String()),
		),
	)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	if d.limiter != nil && !exec.Admin {
		allowed, cooldownMs := d.limiter.Allow(exec.Session.ID)
		if !allowed {
			span.SetAttributes(attribute.Bool("command.rate_limited", true))
			err = ErrRateLimited(cooldownMs)
			return err
		}
	}

	entry, ok := d.registry.Get(parsed.Name)
	if !ok {
		err = ErrUnknownCommand(parsed.Name)
		return err
	}

	if entry.Admin && !exec.Admin {
		err = ErrAdminOnly(parsed.Name)
		return err
	}
	if exec.Session.State == session.PendingAuth && !entry.AllowPending {
		err = ErrAuthRequired(parsed.Name)
		return err
	}

	exec.Args = parsed.Args
	err = entry.Handler(ctx, exec)
	if err != nil {
		slog.WarnContext(ctx, "command execution failed",
			"command", parsed.Name,
			"player", exec.Session.Name,
			"error", err,
		)
	}
	return err
}
