// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package testinfra

import (
	"fmt"
	"time"

	"github.com/nats-io/nats-server/v2/server"
)

// EmbeddedNATS wraps an in-process nats-server instance with no JetStream
// (the fabric's bus is best-effort, non-durable pub/sub — see bus.Client),
// so unit tests against a real broker don't need Docker.
type EmbeddedNATS struct {
	server    *server.Server
	clientURL string
}

// NewEmbeddedNATS starts an embedded NATS server on a random free port.
func NewEmbeddedNATS() (*EmbeddedNATS, error) {
	opts := &server.Options{
		Host:       "127.0.0.1",
		Port:       -1, // random free port
		JetStream:  false,
		NoLog:      true,
		NoSigs:     true,
		MaxPayload: 8 * 1024 * 1024,
	}

	ns, err := server.NewServer(opts)
	if err != nil {
		return nil, fmt.Errorf("create embedded NATS server: %w", err)
	}

	go ns.Start()

	if !ns.ReadyForConnections(10 * time.Second) {
		ns.Shutdown()
		return nil, fmt.Errorf("embedded NATS server not ready within timeout")
	}

	return &EmbeddedNATS{server: ns, clientURL: ns.ClientURL()}, nil
}

// ClientURL returns the connection URL for test clients.
func (e *EmbeddedNATS) ClientURL() string {
	return e.clientURL
}

// Shutdown stops the embedded server and waits for it to fully exit.
func (e *EmbeddedNATS) Shutdown() {
	e.server.Shutdown()
	e.server.WaitForShutdown()
}
