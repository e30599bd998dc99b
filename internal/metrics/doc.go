// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

/*
Package metrics provides Prometheus metrics collection and export for the
telemetry fabric's own operational visibility.

This package instruments the plumbing itself — the bus, the Supervisor's
managed fleet, the Compute Engine's evaluation loop, and the Settings Store —
using the Prometheus client library. It does not instrument application
domain data (sensor readings, excavator state); that lives in the Compute
Engine's own state and is exposed through the settings/compute bus commands,
not through /metrics.

# Metrics Endpoint

Metrics are exposed at /metrics on the ops HTTP surface (see internal/ops):

	curl http://localhost:9090/metrics

# Available Metrics

Bus Metrics:
  - bus_messages_published_total: Total messages published (counter)
    Labels: subject
  - bus_messages_received_total: Total messages delivered to subscriptions (counter)
    Labels: subject
  - bus_publish_errors_total: Total publish failures (counter)
    Labels: subject
  - bus_request_duration_seconds: Request/reply round-trip latency (histogram)
    Labels: subject
  - bus_reconnects_total: Total reconnect events (counter)
  - bus_connected: Whether the bus client is currently connected (gauge, 0/1)

Circuit Breaker Metrics:
  - circuit_breaker_state: Current state (gauge)
    Labels: name
    Values: 0=closed, 1=half-open, 2=open
  - circuit_breaker_requests_total: Requests observed by the breaker (counter)
    Labels: name, result (success, failure, rejected)

Supervisor Metrics:
  - supervisor_managed_services: Current count of managed services by state (gauge)
    Labels: state (running, stopped, crashed, error)
  - supervisor_restarts_total: Total restart attempts (counter)
    Labels: service
  - supervisor_service_uptime_seconds: Uptime of the current run of a service (gauge)
    Labels: service

Compute Engine Metrics:
  - compute_computations_processed_total: Total computation invocations (counter)
    Labels: kind
  - compute_trigger_evaluations_total: Total trigger evaluations (counter)
  - compute_trigger_fires_total: Total trigger action firings (counter)
    Labels: name, action
  - compute_process_duration_seconds: Duration of one outermost process() call,
    including any recursive fan-out it caused (histogram)

Settings Store Metrics:
  - settings_operations_total: Settings mutation operations (counter)
    Labels: operation
  - settings_persist_errors_total: Failed atomic persists to disk (counter)

# Design

Every metric is registered once via promauto against the default registry at
package init, matching the teacher's package-level promauto pattern. Unlike
the teacher's media-analytics metrics (DuckDB queries, WebSocket connections,
sync batches), nothing here is domain-specific — it all describes the
fabric's own health.

# See Also

  - internal/bus: publishes bus_* metrics
  - internal/supervisor: publishes supervisor_* metrics
  - internal/compute: publishes compute_* metrics
  - internal/ops: serves /metrics via promhttp.Handler
*/
package metrics
