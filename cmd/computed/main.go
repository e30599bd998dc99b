// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

// Package main is the entry point for the Compute Engine binary: the
// chained-derived-signal and trigger-evaluation service. Unlike the
// Supervisor and the settings service, it has nothing to bootstrap itself
// with and goes through the ordinary Service Runtime startup protocol.
package main

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/cartographus/internal/bus"
	"github.com/tomtom215/cartographus/internal/compute"
	"github.com/tomtom215/cartographus/internal/config"
	"github.com/tomtom215/cartographus/internal/logging"
	"github.com/tomtom215/cartographus/internal/ops"
	"github.com/tomtom215/cartographus/internal/runtime"
)

// dataSubjects are the Compute Engine's fixed ingest subjects: CAN-bus
// telemetry and the digital twin's aggregate state.
var dataSubjects = []string{"can_data", "digital_twin.data"}

// computeWorker adapts compute.Engine to runtime.Worker. The Engine itself
// is not built until Register, once the settings document (and therefore
// ui_publish_interval) is known.
type computeWorker struct {
	cfg    *config.Config
	logger zerolog.Logger
	engine *compute.Engine
}

func (w *computeWorker) Register(ctx context.Context, client bus.Client, settings map[string]any) error {
	w.engine = compute.New(compute.Config{
		DataSubjects:    dataSubjects,
		PublishInterval: publishInterval(settings),
	}, w.logger)

	if err := w.engine.Start(ctx, client); err != nil {
		return err
	}

	if w.cfg.Ops.Enabled {
		router := ops.NewRouter(func() bool { return true }, nil)
		opsSrv := ops.NewServerService(w.cfg.Ops.Addr, router, w.cfg.Supervisor.GracefulTimeout)
		go func() {
			if err := opsSrv.Serve(ctx); err != nil {
				w.logger.Error().Err(err).Msg("ops http server exited with error")
			}
		}()
	}

	return nil
}

func (w *computeWorker) Stop(ctx context.Context) error {
	return w.engine.Stop(ctx)
}

// publishInterval reads compute_service.ui_publish_interval (seconds, as in
// the original document) from the settings tree, defaulting to 1s when absent.
func publishInterval(settings map[string]any) time.Duration {
	block, ok := settings["compute_service"].(map[string]any)
	if !ok {
		return time.Second
	}
	raw, ok := block["ui_publish_interval"]
	if !ok {
		return time.Second
	}
	seconds, ok := raw.(float64)
	if !ok || seconds <= 0 {
		return time.Second
	}
	return time.Duration(seconds * float64(time.Second))
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.New(logging.DefaultConfig(), "compute_service").Fatal().Err(err).Msg("failed to load configuration")
	}

	logger := logging.New(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format}, "compute_service")

	worker := &computeWorker{cfg: cfg, logger: logger}
	rt := runtime.New("compute_service", cfg, logger, worker)

	if err := rt.Run(context.Background()); err != nil {
		logger.Fatal().Err(err).Msg("compute service exited with an error")
	}
}
