// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

// Package testinfra provides test infrastructure for exercising the fabric
// against a real message broker instead of a fake.
//
// # Embedded NATS (default, no Docker)
//
// Most package tests use EmbeddedNATS, an in-process nats-server instance
// with JetStream disabled, matching the bus's best-effort, non-durable
// semantics:
//
//	ns, err := testinfra.NewEmbeddedNATS()
//	if err != nil {
//	    t.Fatal(err)
//	}
//	defer ns.Shutdown()
//
//	client := bus.NewNATSClient(bus.DefaultClientConfig(), logger)
//	client.Connect(ns.ClientURL())
//
// # Dockerized NATS (opt-in, "integration" build tag)
//
// NATSContainer runs a real dockerized nats-server for the CI-only
// integration suite, using testcontainers-go:
//
//	testinfra.SkipIfNoDocker(t)
//	ctx := context.Background()
//	nc, err := testinfra.NewNATSContainer(ctx)
//	if err != nil {
//	    t.Fatal(err)
//	}
//	defer testinfra.CleanupContainer(t, ctx, nc.Container)
//
// # CI Considerations
//
// The integration-tagged suite requires Docker; it is skipped gracefully
// via SkipIfNoDocker when unavailable. The embedded-server suite requires
// nothing beyond the nats-server package already in go.mod.
package testinfra
