// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

// Package runtime provides the Service Runtime every worker binary embeds:
// signal-driven shutdown, the GetSettings bootstrap protocol against the
// settings service, and a uniform Register/Stop lifecycle around a worker's
// own bus subscriptions.
//
// The runtime owns no global state. A logger and the bootstrap config are
// handed to New explicitly; Run constructs its own bus clients rather than
// reaching for a package-level singleton, the same discipline
// internal/logging applies to loggers.
package runtime

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/tomtom215/cartographus/internal/bus"
	"github.com/tomtom215/cartographus/internal/config"
)

// Worker is what a binary built on the Service Runtime implements. Register
// is called once a long-lived bus client is connected and the settings
// document has been fetched — this is where a worker subscribes its own
// commands.<name> handler and any domain subjects. Stop cancels whatever
// background goroutines Register started; the runtime closes the bus
// client afterward.
type Worker interface {
	Register(ctx context.Context, client bus.Client, settings map[string]any) error
	Stop(ctx context.Context) error
}

// Runtime drives one Worker's lifecycle.
type Runtime struct {
	name   string
	cfg    *config.Config
	logger zerolog.Logger
	worker Worker
}

// New constructs a Runtime for worker, named for logging and for the
// commands.<name> subject the worker is expected to subscribe in Register.
func New(name string, cfg *config.Config, logger zerolog.Logger, worker Worker) *Runtime {
	return &Runtime{
		name:   name,
		cfg:    cfg,
		logger: logger.With().Str("service", name).Logger(),
		worker: worker,
	}
}

// Run installs signal-driven shutdown, fetches the settings document,
// dials the long-lived bus client, and blocks until the context is
// cancelled or the worker's Register call fails.
func (r *Runtime) Run(parentCtx context.Context) error {
	ctx, stop := signal.NotifyContext(parentCtx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	settings, err := r.getSettings(ctx)
	if err != nil {
		return fmt.Errorf("runtime: get settings: %w", err)
	}

	natsURL := settingsNATSURL(settings, r.cfg.NATSURL)

	client := bus.NewNATSClient(bus.DefaultClientConfig(), r.logger)
	if err := client.Connect(natsURL); err != nil {
		return fmt.Errorf("runtime: connect to bus at %s: %w", natsURL, err)
	}
	defer client.Close()

	if err := r.worker.Register(ctx, client, settings); err != nil {
		return fmt.Errorf("runtime: register: %w", err)
	}

	r.logger.Info().Str("nats_url", natsURL).Msg("runtime: service started")

	<-ctx.Done()
	r.logger.Info().Msg("runtime: shutdown signal received")

	stopCtx, cancel := context.WithTimeout(context.Background(), r.cfg.Supervisor.GracefulTimeout)
	defer cancel()

	if err := r.worker.Stop(stopCtx); err != nil {
		r.logger.Error().Err(err).Msg("runtime: worker stop returned an error")
	}

	return nil
}

// getSettings implements the GetSettings retry-loop protocol: a short-lived
// bus client dials the bootstrap NATS URL, issues settings.get.all requests
// until one succeeds or ctx is cancelled, then returns the parsed document.
// The short-lived client is closed before Run dials its long-lived
// replacement.
func (r *Runtime) getSettings(ctx context.Context) (map[string]any, error) {
	shortClient := bus.NewNATSClient(bus.DefaultClientConfig(), r.logger)
	if err := shortClient.Connect(r.cfg.NATSURL); err != nil {
		return nil, fmt.Errorf("connect to bootstrap bus at %s: %w", r.cfg.NATSURL, err)
	}
	defer shortClient.Close()

	timeoutMs := int(r.cfg.Runtime.GetSettingsTimeout / time.Millisecond)

	for {
		reply, err := shortClient.Request("settings.get.all", nil, timeoutMs)
		if err == nil {
			var doc map[string]any
			if err := json.Unmarshal(reply.Payload, &doc); err != nil {
				return nil, fmt.Errorf("parse settings document: %w", err)
			}
			return doc, nil
		}

		r.logger.Warn().Err(err).Msg("runtime: settings.get.all failed, retrying")

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(r.cfg.Runtime.RetryInterval):
		}
	}
}

// settingsNATSURL extracts settings.global.nats_url from the parsed
// document, falling back to the bootstrap default when absent.
func settingsNATSURL(settings map[string]any, fallback string) string {
	global, ok := settings["global"].(map[string]any)
	if !ok {
		return fallback
	}
	url, ok := global["nats_url"].(string)
	if !ok || url == "" {
		return fallback
	}
	return url
}
