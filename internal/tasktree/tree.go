// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

// Package tasktree supervises a fixed set of in-process background
// goroutines for a service that otherwise owns no concurrency of its own.
//
// The Supervisor and the Compute Engine both have the same shape: a small,
// fixed number of cooperating background loops (a monitor loop, a command
// subscription loop, a periodic broadcaster) wrapped around one piece of
// exclusively-owned state. Neither needs suture's layered tree — there is
// no data/messaging/api split here, just "this component's own loops" — so
// this package holds one flat suture.Supervisor rather than the three-layer
// tree a media-analytics server organizes itself into.
package tasktree

import (
	"context"
	"log/slog"
	"time"

	"github.com/thejerf/suture/v4"
	"github.com/thejerf/sutureslog"
)

// Config holds tree configuration, the same knobs suture.Spec exposes.
type Config struct {
	// FailureThreshold is the number of failures before entering backoff.
	FailureThreshold float64

	// FailureDecay is the rate at which failures decay, in seconds.
	FailureDecay float64

	// FailureBackoff is how long to wait once FailureThreshold is exceeded.
	FailureBackoff time.Duration

	// ShutdownTimeout is the maximum time to wait for a service to stop.
	ShutdownTimeout time.Duration
}

// DefaultConfig returns suture's own documented defaults.
func DefaultConfig() Config {
	return Config{
		FailureThreshold: 5.0,
		FailureDecay:     30.0,
		FailureBackoff:   15 * time.Second,
		ShutdownTimeout:  10 * time.Second,
	}
}

// Tree supervises one flat set of background services: a panic or error
// return in one is logged and the service is restarted, rather than taking
// down the rest of the component's loops.
type Tree struct {
	root   *suture.Supervisor
	config Config
}

// New creates a tree named for the component it belongs to ("supervisor" or
// "compute_service"), logging suture's own lifecycle events through a slog
// logger (suture's EventHook only understands slog, independent of the
// zerolog logger the component uses for its own domain events).
func New(name string, logger *slog.Logger, config Config) *Tree {
	if config.FailureThreshold == 0 {
		config.FailureThreshold = 5.0
	}
	if config.FailureDecay == 0 {
		config.FailureDecay = 30.0
	}
	if config.FailureBackoff == 0 {
		config.FailureBackoff = 15 * time.Second
	}
	if config.ShutdownTimeout == 0 {
		config.ShutdownTimeout = 10 * time.Second
	}

	handler := &sutureslog.Handler{Logger: logger}

	spec := suture.Spec{
		EventHook:        handler.MustHook(),
		FailureThreshold: config.FailureThreshold,
		FailureDecay:     config.FailureDecay,
		FailureBackoff:   config.FailureBackoff,
		Timeout:          config.ShutdownTimeout,
	}

	return &Tree{
		root:   suture.New(name, spec),
		config: config,
	}
}

// Add registers a background service with the tree.
func (t *Tree) Add(svc suture.Service) suture.ServiceToken {
	return t.root.Add(svc)
}

// Serve runs the tree and blocks until ctx is cancelled.
func (t *Tree) Serve(ctx context.Context) error {
	return t.root.Serve(ctx)
}

// ServeBackground runs the tree in a background goroutine, returning a
// channel that receives the terminal error (or nil) once it stops.
func (t *Tree) ServeBackground(ctx context.Context) <-chan error {
	return t.root.ServeBackground(ctx)
}

// UnstoppedServiceReport reports services that failed to stop within
// ShutdownTimeout, for shutdown diagnostics.
func (t *Tree) UnstoppedServiceReport() ([]suture.UnstoppedService, error) {
	return t.root.UnstoppedServiceReport()
}

// Remove stops and removes a service by its token.
func (t *Tree) Remove(token suture.ServiceToken) error {
	return t.root.Remove(token)
}

// RemoveAndWait stops a service and waits up to timeout for it to fully exit.
func (t *Tree) RemoveAndWait(token suture.ServiceToken, timeout time.Duration) error {
	return t.root.RemoveAndWait(token, timeout)
}
