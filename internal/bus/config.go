// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package bus

import "time"

// ClientConfig holds NATSClient connection and resilience tuning.
type ClientConfig struct {
	// MaxReconnects is the number of reconnect attempts before giving up.
	// -1 means retry forever. Default: -1.
	MaxReconnects int

	// ReconnectWait is the delay between reconnect attempts. Default: 2s.
	ReconnectWait time.Duration

	// ReconnectBufSize is the size, in bytes, of the buffer nats.go holds
	// for publishes issued while disconnected. Default: 8MB.
	ReconnectBufSize int

	// SubscriptionBuffer is the per-subscription channel depth used to
	// serialize handler invocations. Default: 256.
	SubscriptionBuffer int

	// BreakerMaxRequests is gobreaker's half-open trial request count.
	// Default: 1.
	BreakerMaxRequests uint32

	// BreakerInterval is gobreaker's closed-state failure-count reset
	// interval. Default: 30s.
	BreakerInterval time.Duration

	// BreakerTimeout is how long the breaker stays open before trying
	// half-open. Default: 15s.
	BreakerTimeout time.Duration

	// BreakerFailureThreshold is consecutive request failures before the
	// breaker trips open. Default: 5.
	BreakerFailureThreshold uint32
}

// DefaultClientConfig returns production-ready defaults.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		MaxReconnects:           -1,
		ReconnectWait:           2 * time.Second,
		ReconnectBufSize:        8 * 1024 * 1024,
		SubscriptionBuffer:      256,
		BreakerMaxRequests:      1,
		BreakerInterval:         30 * time.Second,
		BreakerTimeout:          15 * time.Second,
		BreakerFailureThreshold: 5,
	}
}
