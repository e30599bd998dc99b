// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

// Package ops serves the optional ops HTTP surface every binary may expose
// alongside its bus-addressed API: liveness, Prometheus metrics, and, for
// the Supervisor only, the fleet snapshot for operators without a NATS
// client at hand. It is not the out-of-scope web dashboard — no
// templating, no WebSocket bridge, just three small GET routes.
package ops

import (
	"net/http"

	json "github.com/goccy/go-json"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// StatusProvider is implemented by the Supervisor. Kept as a narrow
// interface here, rather than importing internal/supervisor directly, so
// binaries that embed ops without a Supervisor (the settings and compute
// services) never pull in process-supervision code they do not use.
type StatusProvider interface {
	Snapshot() any
}

// Ready reports whether the embedding binary has completed its own
// startup, so /healthz can distinguish "process is up" from "process has
// finished registering its bus subscriptions."
type Ready func() bool

// NewRouter builds the chi.Router for the ops surface. status is nil for
// every binary except the Supervisor's.
func NewRouter(ready Ready, status StatusProvider) chi.Router {
	r := chi.NewRouter()
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)

	r.Get("/healthz", healthzHandler(ready))
	r.Handle("/metrics", promhttp.Handler())

	if status != nil {
		r.Get("/status", statusHandler(status))
	}

	return r
}

func healthzHandler(ready Ready) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if ready != nil && !ready() {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}

func statusHandler(status StatusProvider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snapshot := status.Snapshot()
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(snapshot); err != nil {
			w.WriteHeader(http.StatusInternalServerError)
		}
	}
}
