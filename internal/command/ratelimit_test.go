// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package command

import (
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestRateLimiter_BurstThenRefused(t *testing.T) {
	defer goleak.VerifyNone(t)

	rl := NewRateLimiter(RateLimiterConfig{BurstCapacity: 3, SustainedRate: 0.1})
	defer rl.Close()

	id := ulid.Make()
	for i := range 3 {
		allowed, _ := rl.Allow(id)
		require.True(t, allowed, "burst attempt %d", i)
	}

	allowed, cooldown := rl.Allow(id)
	assert.False(t, allowed)
	assert.Positive(t, cooldown)
}

func TestRateLimiter_Refills(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{BurstCapacity: 1, SustainedRate: 50})
	defer rl.Close()

	id := ulid.Make()
	allowed, _ := rl.Allow(id)
	require.True(t, allowed)
	allowed, _ = rl.Allow(id)
	require.False(t, allowed)

	time.Sleep(50 * time.Millisecond)
	allowed, _ = rl.Allow(id)
	assert.True(t, allowed, "tokens refill over time")
}

func TestRateLimiter_SessionsIndependent(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{BurstCapacity: 1, SustainedRate: 0.1})
	defer rl.Close()

	a, b := ulid.Make(), ulid.Make()
	allowed, _ := rl.Allow(a)
	require.True(t, allowed)
	allowed, _ = rl.Allow(a)
	require.False(t, allowed)

	allowed, _ = rl.Allow(b)
	assert.True(t, allowed, "other sessions keep their own bucket")
}

func TestRateLimiter_ForgetResets(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{BurstCapacity: 1, SustainedRate: 0.1})
	defer rl.Close()

	id := ulid.Make()
	allowed, _ := rl.Allow(id)
	require.True(t, allowed)

	rl.Forget(id)
	allowed, _ = rl.Allow(id)
	assert.True(t, allowed, "forgotten session starts with a full bucket")
}
