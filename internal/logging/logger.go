// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

// Package logging provides zerolog-based logging for the telemetry fabric.
//
// Unlike a process-wide singleton logger, every component in this module is
// handed its own zerolog.Logger at construction time — the Service Runtime,
// the Bus Client, the Supervisor, and the Compute Engine all take a logger
// argument rather than reaching for a package-level global. This keeps a
// panic'd or misconfigured component from corrupting another service's log
// stream.
//
// # Quick Start
//
//	logger := logging.New(logging.Config{Level: "info", Format: "json"}, "compute_service")
//	logger.Info().Msg("engine starting")
//	logger.Error().Err(err).Str("output_name", name).Msg("computation failed")
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Config holds logging configuration for one logger instance.
type Config struct {
	// Level is the minimum log level: trace, debug, info, warn, error, fatal, panic.
	// Default: info
	Level string

	// Format is the output format: json or console.
	// Default: json
	Format string

	// Caller includes caller file and line number in logs.
	Caller bool

	// Output is the writer for log output. Default: os.Stderr.
	Output io.Writer
}

// DefaultConfig returns the default logging configuration.
func DefaultConfig() Config {
	return Config{
		Level:  "info",
		Format: "json",
		Caller: false,
		Output: os.Stderr,
	}
}

// New builds a logger for one named component (a service name, or a
// sub-component such as "bus" or "monitor"). The component name is attached
// as the "service" field on every event so that events from several
// components written to one log stream can still be told apart. (The
// Supervisor does not capture its children's stdout/stderr.)
func New(cfg Config, component string) zerolog.Logger {
	if cfg.Level == "" {
		cfg.Level = "info"
	}
	if cfg.Format == "" {
		cfg.Format = "json"
	}
	if cfg.Output == nil {
		cfg.Output = os.Stderr
	}

	zerolog.TimeFieldFormat = time.RFC3339
	zerolog.TimestampFieldName = "time"
	zerolog.LevelFieldName = "level"
	zerolog.MessageFieldName = "message"
	zerolog.ErrorFieldName = "error"

	output := cfg.Output
	if cfg.Format == "console" {
		output = zerolog.ConsoleWriter{
			Out:        cfg.Output,
			TimeFormat: "15:04:05",
			NoColor:    false,
		}
	}

	ctx := zerolog.New(output).Level(ParseLevel(cfg.Level)).With().
		Timestamp().
		Str("service", component)

	if cfg.Caller {
		ctx = ctx.Caller()
	}

	return ctx.Logger()
}

// ParseLevel converts a string level to zerolog.Level, defaulting to Info
// for anything unrecognized rather than rejecting the configuration.
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "fatal":
		return zerolog.FatalLevel
	case "panic":
		return zerolog.PanicLevel
	case "disabled":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}

// NewTest creates a logger that writes to the provided writer, for capturing
// log output in tests.
func NewTest(w io.Writer, component string) zerolog.Logger {
	return zerolog.New(w).With().Timestamp().Str("service", component).Logger()
}
