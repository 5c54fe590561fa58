// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

// Package sched schedules timers that fire back onto the game loop.
//
// Handles are owned by the session that created them and must be
// cancelled on authentication, quit, or reload. Cancellation is
// idempotent; a timer that fires after its session is gone runs as a
// harmless no-op because the callback re-checks session state on the
// loop.
package sched

import (
	"sync"
	"time"

	"github.com/gatehouse/gatehouse/internal/loop"
)

// Handle is a cancellable reference to a scheduled timer.
type Handle struct {
	once  sync.Once
	timer *time.Timer
	stop  chan struct{}
}

// Cancel stops the timer. Safe to call multiple times, on a nil handle,
// or concurrently with the timer firing.
func (h *Handle) Cancel() {
	if h == nil {
		return
	}
	h.once.Do(func() {
		if h.timer != nil {
			h.timer.Stop()
		}
		if h.stop != nil {
			close(h.stop)
		}
	})
}

// Scheduler creates timers whose callbacks run on the game loop.
type Scheduler struct {
	loop *loop.Loop
}

// New creates a scheduler bound to the given loop.
func New(l *loop.Loop) *Scheduler {
	return &Scheduler{loop: l}
}

// After schedules fn to run once on the loop after d.
func (s *Scheduler) After(d time.Duration, fn func()) *Handle {
	h := &Handle{}
	h.timer = time.AfterFunc(d, func() {
		// A stopped loop means shutdown; dropping the tick is fine.
		_ = s.loop.Submit(fn)
	})
	return h
}

// Every schedules fn to run on the loop every d until the handle is
// cancelled. The first run happens after d, not immediately.
func (s *Scheduler) Every(d time.Duration, fn func()) *Handle {
	h := &Handle{stop: make(chan struct{})}
	ticker := time.NewTicker(d)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := s.loop.Submit(fn); err != nil {
					return
				}
			case <-h.stop:
				return
			}
		}
	}()
	return h
}
