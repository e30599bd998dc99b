// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

// Package main is the entry point for the settings service binary: the
// authority for the dynamic Settings Document.
//
// Like the Supervisor, the settings service does not go through the
// Service Runtime's GetSettings bootstrap — it IS the thing every other
// binary's GetSettings call is asking. It loads its document straight off
// disk and dials the bootstrap NATS URL directly.
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
	"github.com/tomtom215/cartographus/internal/settingsstore"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.New(logging.DefaultConfig(), "settings_service").Fatal().Err(err).Msg("failed to load configuration")
	}

	logger := logging.New(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format}, "settings_service")

	doc, err := settingsstore.Load(cfg.Settings.Dir, cfg.Settings.File)
	if err != nil {
		logger.Warn().Err(err).Msg("starting with an empty settings document")
		doc = settingsstore.Document{}
	}

	store := settingsstore.New(cfg.Settings.Dir, cfg.Settings.File, doc, logger)
	defer store.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	natsURL := cfg.NATSURL
	if global, ok := doc["global"].(map[string]any); ok {
		if url, ok := global["nats_url"].(string); ok && url != "" {
			natsURL = url
		}
	}

	client := bus.NewNATSClient(bus.DefaultClientConfig(), logger)
	if err := client.Connect(natsURL); err != nil {
		logger.Fatal().Err(err).Str("nats_url", natsURL).Msg("failed to connect to bus")
	}
	defer client.Close()

	svc := settingsstore.NewService(client, store, cfg.Settings.Dir, cfg.Settings.File, logger)
	if err := svc.Start(); err != nil {
		logger.Fatal().Err(err).Msg("failed to start settings service")
	}

	ready := true
	if cfg.Ops.Enabled {
		router := ops.NewRouter(func() bool { return ready }, nil)
		opsSrv := ops.NewServerService(cfg.Ops.Addr, router, cfg.Supervisor.GracefulTimeout)
		go func() {
			if err := opsSrv.Serve(ctx); err != nil {
				logger.Error().Err(err).Msg("ops http server exited with error")
			}
		}()
	}

	logger.Info().Str("nats_url", natsURL).Msg("settings service started")

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	if err := svc.Stop(); err != nil {
		logger.Error().Err(err).Msg("settings service stop returned an error")
	}
}
