// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package command

import (
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Rate limiting defaults. The sustained rate is deliberately low:
// the command surface here is mostly authentication attempts, and
// throttling them slows down online password guessing.
const (
	DefaultBurstCapacity   = 5
	DefaultSustainedRate   = 1.0 // tokens per second
	DefaultCleanupInterval = 5 * time.Minute
	DefaultBucketMaxAge    = time.Hour
)

// RateLimiterConfig configures the rate limiter. Zero values fall
// back to the defaults above.
type RateLimiterConfig struct {
	BurstCapacity   int
	SustainedRate   float64
	CleanupInterval time.Duration
	BucketMaxAge    time.Duration
}

// bucket tracks token-bucket state for one session.
type bucket struct {
	tokens   float64
	lastSeen time.Time
}

// RateLimiter throttles commands per session with a token bucket. It
// runs a background goroutine to drop stale buckets; call Close to
// stop it.
type RateLimiter struct {
	mu            sync.Mutex
	buckets       map[ulid.ULID]*bucket
	burstCapacity int
	sustainedRate float64
	maxAge        time.Duration

	stopChan chan struct{}
	wg       sync.WaitGroup
}

// NewRateLimiter creates a rate limiter and starts its cleanup
// goroutine.
func NewRateLimiter(cfg RateLimiterConfig) *RateLimiter {
	if cfg.BurstCapacity <= 0 {
		cfg.BurstCapacity = DefaultBurstCapacity
	}
	if cfg.SustainedRate <= 0 {
		cfg.SustainedRate = DefaultSustainedRate
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = DefaultCleanupInterval
	}
	if cfg.BucketMaxAge <= 0 {
		cfg.BucketMaxAge = DefaultBucketMaxAge
	}

	rl := &RateLimiter{
		buckets:       make(map[ulid.ULID]*bucket),
		burstCapacity: cfg.BurstCapacity,
		sustainedRate: cfg.SustainedRate,
		maxAge:        cfg.BucketMaxAge,
		stopChan:      make(chan struct{}),
	}
	rl.wg.Add(1)
	go rl.cleanupLoop(cfg.CleanupInterval)
	return rl
}

// Allow consumes one token for the session if available. Returns
// (allowed, cooldownMs) where cooldownMs is the wait until the next
// token when refused.
func (rl *RateLimiter) Allow(sessionID ulid.ULID) (bool, int64) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	b, ok := rl.buckets[sessionID]
	if !ok {
		b = &bucket{tokens: float64(rl.burstCapacity), lastSeen: now}
		rl.buckets[sessionID] = b
	}

	b.tokens += now.Sub(b.lastSeen).Seconds() * rl.sustainedRate
	if b.tokens > float64(rl.burstCapacity) {
		b.tokens = float64(rl.burstCapacity)
	}
	b.lastSeen = now

	if b.tokens >= 1.0 {
		b.tokens--
		return true, 0
	}
	deficit := 1.0 - b.tokens
	return false, int64(deficit / rl.sustainedRate * 1000)
}

// Forget drops a session's bucket, typically on disconnect.
func (rl *RateLimiter) Forget(sessionID ulid.ULID) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	delete(rl.buckets, sessionID)
}

func (rl *RateLimiter) cleanupLoop(interval time.Duration) {
	defer rl.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stopChan:
			return
		case <-ticker.C:
			rl.cleanup()
		}
	}
}

func (rl *RateLimiter) cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	threshold := time.Now().Add(-rl.maxAge)
	for id, b := range rl.buckets {
		if b.lastSeen.Before(threshold) {
			delete(rl.buckets, id)
		}
	}
}

// Close stops the cleanup goroutine. It blocks until the goroutine
// has stopped.
func (rl *RateLimiter) Close() {
	close(rl.stopChan)
	rl.wg.Wait()
}
