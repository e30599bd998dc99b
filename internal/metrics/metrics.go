// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Bus metrics.
var (
	BusMessagesPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bus_messages_published_total",
			Help: "Total number of messages published to the bus",
		},
		[]string{"subject"},
	)

	BusMessagesReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bus_messages_received_total",
			Help: "Total number of messages delivered to subscriptions",
		},
		[]string{"subject"},
	)

	BusPublishErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bus_publish_errors_total",
			Help: "Total number of publish failures",
		},
		[]string{"subject"},
	)

	BusRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bus_request_duration_seconds",
			Help:    "Duration of request/reply round trips over the bus",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"subject"},
	)

	BusReconnects = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bus_reconnects_total",
			Help: "Total number of bus reconnect events",
		},
	)

	BusConnected = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "bus_connected",
			Help: "Whether the bus client is currently connected (1) or not (0)",
		},
	)
)

// Circuit breaker metrics, shared by every gobreaker instance wrapping a
// bus Request call.
var (
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests observed through a circuit breaker",
		},
		[]string{"name", "result"}, // result: success, failure, rejected
	)
)

// Supervisor metrics.
var (
	SupervisorManagedServices = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "supervisor_managed_services",
			Help: "Current number of managed services, by state",
		},
		[]string{"state"}, // running, stopped, crashed, error
	)

	SupervisorRestarts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "supervisor_restarts_total",
			Help: "Total number of restart attempts for a managed service",
		},
		[]string{"service"},
	)

	SupervisorServiceUptime = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "supervisor_service_uptime_seconds",
			Help: "Uptime in seconds of the current run of a managed service",
		},
		[]string{"service"},
	)
)

// Compute Engine metrics.
var (
	ComputeComputationsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "compute_computations_processed_total",
			Help: "Total number of computation invocations",
		},
		[]string{"kind"},
	)

	ComputeTriggerEvaluations = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "compute_trigger_evaluations_total",
			Help: "Total number of trigger evaluation passes",
		},
	)

	ComputeTriggerFires = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "compute_trigger_fires_total",
			Help: "Total number of trigger action firings",
		},
		[]string{"name", "action"},
	)

	ComputeProcessDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "compute_process_duration_seconds",
			Help:    "Duration of one outermost process() call, including recursive fan-out",
			Buckets: prometheus.DefBuckets,
		},
	)
)

// Settings Store metrics.
var (
	SettingsOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "settings_operations_total",
			Help: "Total number of settings mutation operations",
		},
		[]string{"operation"},
	)

	SettingsPersistErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "settings_persist_errors_total",
			Help: "Total number of failed atomic persists of the settings file",
		},
	)
)

// RecordBusPublish records a successful publish to subject.
func RecordBusPublish(subject string) {
	BusMessagesPublished.WithLabelValues(subject).Inc()
}

// RecordBusPublishError records a failed publish to subject.
func RecordBusPublishError(subject string) {
	BusPublishErrors.WithLabelValues(subject).Inc()
}

// RecordBusReceive records a message delivered to a subscription on subject.
func RecordBusReceive(subject string) {
	BusMessagesReceived.WithLabelValues(subject).Inc()
}

// RecordBusRequest records the duration of a request/reply round trip.
func RecordBusRequest(subject string, duration time.Duration) {
	BusRequestDuration.WithLabelValues(subject).Observe(duration.Seconds())
}

// SetBusConnected updates the bus connectivity gauge.
func SetBusConnected(connected bool) {
	if connected {
		BusConnected.Set(1)
	} else {
		BusConnected.Set(0)
	}
}

// RecordCircuitBreakerResult records one request outcome through a named breaker.
func RecordCircuitBreakerResult(name, result string) {
	CircuitBreakerRequests.WithLabelValues(name, result).Inc()
}

// SetCircuitBreakerState sets the current numeric state of a named breaker.
func SetCircuitBreakerState(name string, state float64) {
	CircuitBreakerState.WithLabelValues(name).Set(state)
}

// SetSupervisorManagedServices sets the gauge for a given fleet state.
func SetSupervisorManagedServices(state string, count int) {
	SupervisorManagedServices.WithLabelValues(state).Set(float64(count))
}

// RecordSupervisorRestart records a restart attempt for a managed service.
func RecordSupervisorRestart(service string) {
	SupervisorRestarts.WithLabelValues(service).Inc()
}

// SetSupervisorServiceUptime sets the uptime gauge for a managed service.
func SetSupervisorServiceUptime(service string, uptime time.Duration) {
	SupervisorServiceUptime.WithLabelValues(service).Set(uptime.Seconds())
}

// RecordComputation records one computation invocation of the given kind.
func RecordComputation(kind string) {
	ComputeComputationsProcessed.WithLabelValues(kind).Inc()
}

// RecordTriggerEvaluation records one trigger evaluation pass.
func RecordTriggerEvaluation() {
	ComputeTriggerEvaluations.Inc()
}

// RecordTriggerFire records a trigger firing a named action.
func RecordTriggerFire(name, action string) {
	ComputeTriggerFires.WithLabelValues(name, action).Inc()
}

// RecordProcessDuration records the duration of one outermost process() call.
func RecordProcessDuration(duration time.Duration) {
	ComputeProcessDuration.Observe(duration.Seconds())
}

// RecordSettingsOperation records a settings mutation operation.
func RecordSettingsOperation(operation string) {
	SettingsOperations.WithLabelValues(operation).Inc()
}

// RecordSettingsPersistError records a failed atomic persist.
func RecordSettingsPersistError() {
	SettingsPersistErrors.Inc()
}
