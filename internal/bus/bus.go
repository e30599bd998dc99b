// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

// Package bus is the thin adapter every service dials to exchange data
// streams, commands, and request/reply queries over the fabric's
// subject-addressed bus.
//
// Delivery is best-effort, at-most-once, unordered across subjects; within
// a single subject the broker preserves publish order to a given
// subscriber. This is deliberately not a durable queue — see the Non-goals
// in the system specification this package implements.
package bus

import (
	"errors"
)

// Subject is a hierarchical, dot-delimited routing key. Wildcards: "*"
// matches exactly one segment, ">" matches the tail (one or more segments).
type Subject = string

// Envelope is every bus message: a subject, opaque payload bytes, and an
// optional reply subject the sender expects a response on.
type Envelope struct {
	Subject Subject
	Payload []byte
	Reply   Subject
}

// Handler processes one message delivered to a subscription. Handlers for
// the same subscription are never invoked concurrently with each other —
// see Client.Subscribe.
type Handler func(Envelope)

// Sentinel errors for the bus's small failure taxonomy (spec §4.1/§7):
// transient bus errors are retried by the caller, never fatal to the
// service that hit them.
var (
	// ErrNotConnected is returned when an operation is attempted before
	// Connect succeeds or after the connection is lost and not yet restored.
	ErrNotConnected = errors.New("bus: not connected")

	// ErrTimeout is returned by Request when no reply arrives before the
	// given timeout expires.
	ErrTimeout = errors.New("bus: request timed out")

	// ErrEncode is returned when a payload cannot be marshaled or unmarshaled.
	ErrEncode = errors.New("bus: encode error")
)

// Client is the bus contract every service depends on. Implementations
// MUST transparently re-establish existing subscriptions across a
// reconnect (spec §4.1).
type Client interface {
	// Connect dials the broker at url. Safe to call once per Client.
	Connect(url string) error

	// Close disconnects and releases resources. Safe to call multiple times.
	Close() error

	// Publish sends payload to subject. Never blocks waiting for delivery
	// acknowledgement (spec §5 backpressure policy).
	Publish(subject Subject, payload []byte) error

	// Subscribe installs handler for subject, returning a Subscription that
	// can be unsubscribed later. Messages for one subscription are
	// delivered to handler strictly in receipt order, never concurrently.
	Subscribe(subject Subject, handler Handler) (Subscription, error)

	// QueueSubscribe is Subscribe with load-balancing across every
	// subscriber sharing queue in the same queue group.
	QueueSubscribe(subject Subject, queue string, handler Handler) (Subscription, error)

	// Request publishes payload to subject with a private reply inbox and
	// blocks for exactly one reply, or returns ErrTimeout after timeoutMs
	// milliseconds.
	Request(subject Subject, payload []byte, timeoutMs int) (Envelope, error)

	// Connected reports whether the client currently believes it is connected.
	Connected() bool
}

// Subscription is a handle to an active subscription.
type Subscription interface {
	// Unsubscribe stops delivery to the subscription's handler.
	Unsubscribe() error

	// Subject returns the subject this subscription was created for.
	Subject() Subject
}
