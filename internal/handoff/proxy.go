// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package handoff

import (
	"context"
	"encoding/json"

	"github.com/oklog/ulid/v2"
	"github.com/redis/go-redis/v9"
	"github.com/samber/oops"
)

// DefaultProxyChannel is the pub/sub channel the proxy bridge listens
// on.
const DefaultProxyChannel = "gatehouse:handoff"

// proxyMessage is the wire shape published to the proxy bridge.
type proxyMessage struct {
	Player string `json:"player"`
	Server string `json:"server"`
}

// RedisProxy publishes server-switch requests over redis pub/sub.
type RedisProxy struct {
	client  redis.UniversalClient
	channel string
}

// NewRedisProxy creates a proxy messenger from a redis url.
func NewRedisProxy(url, channel string) (*RedisProxy, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, oops.Code("PROXY_CONFIG_INVALID").With("url", url).Wrap(err)
	}
	return NewRedisProxyWithClient(redis.NewClient(opts), channel), nil
}

// NewRedisProxyWithClient creates a proxy messenger over an existing
// client, primarily for tests with miniredis.
func NewRedisProxyWithClient(client redis.UniversalClient, channel string) *RedisProxy {
	if channel == "" {
		channel = DefaultProxyChannel
	}
	return &RedisProxy{client: client, channel: channel}
}

// SendToServer publishes a switch request for the player.
func (p *RedisProxy) SendToServer(ctx context.Context, playerID ulid.ULID, server string) error {
	data, err := json.Marshal(proxyMessage{Player: playerID.String(), Server: server})
	if err != nil {
		return oops.Code("PROXY_MARSHAL_FAILED").Wrap(err)
	}
	if err := p.client.Publish(ctx, p.channel, data).Err(); err != nil {
		return oops.Code("PROXY_PUBLISH_FAILED").
			With("channel", p.channel).
			With("server", server).
			Wrap(err)
	}
	return nil
}

// Close releases the underlying client.
func (p *RedisProxy) Close() error {
	if err := p.client.Close(); err != nil {
		return oops.Code("PROXY_CLOSE_FAILED").Wrap(err)
	}
	return nil
}

// Compile-time interface check.
var _ ProxyMessenger = (*RedisProxy)(nil)
