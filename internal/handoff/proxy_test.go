// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package handoff_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/oklog/ulid/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gatehouse/gatehouse/internal/handoff"
)

func TestRedisProxy_SendToServer(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	sub := client.Subscribe(context.Background(), "gatehouse:handoff")
	t.Cleanup(func() { _ = sub.Close() })
	_, err := sub.Receive(context.Background())
	require.NoError(t, err, "subscription confirmation")

	proxy := handoff.NewRedisProxyWithClient(client, "")
	id := ulid.Make()
	require.NoError(t, proxy.SendToServer(context.Background(), id, "lobby"))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	msg, err := sub.ReceiveMessage(ctx)
	require.NoError(t, err)

	var payload struct {
		Player string `json:"player"`
		Server string `json:"server"`
	}
	require.NoError(t, json.Unmarshal([]byte(msg.Payload), &payload))
	assert.Equal(t, id.String(), payload.Player)
	assert.Equal(t, "lobby", payload.Server)
}

func TestRedisProxy_PublishFailure(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	proxy := handoff.NewRedisProxyWithClient(client, "custom:channel")
	mr.Close()

	err := proxy.SendToServer(context.Background(), ulid.Make(), "lobby")
	assert.Error(t, err)
}
