// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

// Package main is the entry point for the Supervisor binary: the process
// that discovers, spawns, and monitors the rest of the telemetry fabric.
//
// The Supervisor cannot go through the Service Runtime's usual GetSettings
// bootstrap — there is no settings service to ask, since the Supervisor is
// what starts one. It dials the bootstrap NATS URL directly instead.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/tomtom215/cartographus/internal/bus"
	"github.com/tomtom215/cartographus/internal/config"
	"github.com/tomtom215/cartographus/internal/logging"
	"github.com/tomtom215/cartographus/internal/ops"
	"github.com/tomtom215/cartographus/internal/supervisor"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.New(logging.DefaultConfig(), "supervisor").Fatal().Err(err).Msg("failed to load configuration")
	}

	logger := logging.New(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format}, "supervisor")

	sup, err := supervisor.New(supervisor.Config{
		UnitDir:             cfg.Supervisor.UnitDir,
		MaxRetries:          cfg.Supervisor.MaxRetries,
		GracefulTimeout:     cfg.Supervisor.GracefulTimeout,
		SettingsWarmupDelay: cfg.Supervisor.SettingsWarmupDelay,
		MonitorInterval:     cfg.Supervisor.MonitorInterval,
		SettingsServiceName: cfg.Supervisor.SettingsServiceName,
	}, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to discover unit descriptors")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := bus.NewNATSClient(bus.DefaultClientConfig(), logger)
	if err := client.Connect(cfg.NATSURL); err != nil {
		logger.Fatal().Err(err).Str("nats_url", cfg.NATSURL).Msg("failed to connect to bus")
	}
	defer client.Close()

	if err := sup.Start(ctx, client); err != nil {
		logger.Fatal().Err(err).Msg("failed to start supervisor")
	}

	ready := true
	if cfg.Ops.Enabled {
		router := ops.NewRouter(func() bool { return ready }, statusProvider{sup})
		opsSrv := ops.NewServerService(cfg.Ops.Addr, router, cfg.Supervisor.GracefulTimeout)
		go func() {
			if err := opsSrv.Serve(ctx); err != nil {
				logger.Error().Err(err).Msg("ops http server exited with error")
			}
		}()
	}

	sup.StartAll()

	logger.Info().Str("nats_url", cfg.NATSURL).Msg("supervisor started")

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	stopCtx, cancel := context.WithTimeout(context.Background(), cfg.Supervisor.GracefulTimeout)
	defer cancel()

	if err := sup.Stop(stopCtx); err != nil {
		logger.Error().Err(err).Msg("supervisor stop returned an error")
	}
}

// statusProvider adapts *supervisor.Supervisor to ops.StatusProvider
// without internal/ops importing internal/supervisor.
type statusProvider struct {
	sup *supervisor.Supervisor
}

func (p statusProvider) Snapshot() any {
	return p.sup.Snapshot()
}
