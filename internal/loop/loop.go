// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

// Package loop provides the single-threaded cooperative game loop.
//
// All game-state mutation (session transitions, restriction checks,
// teleports) happens on one goroutine. Timers and background work
// re-enter the loop via Submit, so no two handlers ever run
// concurrently.
package loop

import (
	"context"
	"log/slog"
	"sync"

	"github.com/samber/oops"
)

// ErrStopped is returned when work is submitted after the loop has exited.
var ErrStopped = oops.Code("LOOP_STOPPED").Errorf("game loop is stopped")

// defaultQueueSize bounds the number of pending tasks before Submit blocks.
const defaultQueueSize = 256

// Loop executes submitted closures one at a time on a single goroutine.
type Loop struct {
	tasks   chan func()
	stopped chan struct{}
	once    sync.Once
}

// New creates a loop. Run must be called for submitted work to execute.
func New() *Loop {
	return &Loop{
		tasks:   make(chan func(), defaultQueueSize),
		stopped: make(chan struct{}),
	}
}

// Run processes submitted tasks until ctx is cancelled. It must be called
// exactly once, and all loop-confined state belongs to its goroutine.
func (l *Loop) Run(ctx context.Context) {
	defer l.once.Do(func() { close(l.stopped) })

	for {
		select {
		case <-ctx.Done():
			// Drain tasks already queued so callers waiting on
			// SubmitWait are not left hanging.
			for {
				select {
				case fn := <-l.tasks:
					fn()
				default:
					return
				}
			}
		case fn := <-l.tasks:
			fn()
		}
	}
}

// Submit enqueues fn for execution on the loop goroutine.
// Returns ErrStopped if the loop has exited.
func (l *Loop) Submit(fn func()) error {
	select {
	case <-l.stopped:
		return ErrStopped
	default:
	}

	select {
	case l.tasks <- fn:
		return nil
	case <-l.stopped:
		return ErrStopped
	}
}

// SubmitWait enqueues fn and blocks until it has run.
// Must not be called from the loop goroutine itself - that deadlocks.
func (l *Loop) SubmitWait(fn func()) error {
	done := make(chan struct{})
	err := l.Submit(func() {
		defer close(done)
		fn()
	})
	if err != nil {
		return err
	}

	select {
	case <-done:
		return nil
	case <-l.stopped:
		// The loop drains queued tasks on shutdown, so give the task
		// a chance to have completed before reporting failure.
		select {
		case <-done:
			return nil
		default:
			return ErrStopped
		}
	}
}

// Async runs work on its own goroutine and marshals the completion back
// onto the loop. This is the required path for blocking I/O such as
// credential store access: the loop is never blocked, and then runs with
// full access to loop-confined state.
func Async[T any](l *Loop, work func() (T, error), then func(T, error)) {
	go func() {
		v, err := work()
		if submitErr := l.Submit(func() { then(v, err) }); submitErr != nil {
			slog.Debug("async completion dropped: loop stopped", "error", err)
		}
	}()
}
