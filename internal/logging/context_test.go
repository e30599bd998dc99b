// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package logging

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestGenerateCorrelationID(t *testing.T) {
	t.Parallel()

	id1 := GenerateCorrelationID()
	id2 := GenerateCorrelationID()

	if id1 == "" {
		t.Error("expected non-empty correlation ID")
	}
	if len(id1) != 8 {
		t.Errorf("expected 8-character correlation ID, got %d", len(id1))
	}
	if id1 == id2 {
		t.Error("expected unique correlation IDs")
	}
}

func TestCorrelationIDContext(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	if id := CorrelationIDFromContext(ctx); id != "" {
		t.Errorf("expected empty correlation ID, got %s", id)
	}

	ctx = ContextWithCorrelationID(ctx, "test-123")
	if id := CorrelationIDFromContext(ctx); id != "test-123" {
		t.Errorf("expected 'test-123', got '%s'", id)
	}
}

func TestContextWithLogger(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	custom := zerolog.New(&buf).With().Str("custom", "field").Logger()
	fallback := zerolog.Nop()

	ctx := context.Background()
	ctx = ContextWithLogger(ctx, custom)

	LoggerFromContext(ctx, fallback).Info().Msg("test")

	if !strings.Contains(buf.String(), "custom") {
		t.Errorf("expected custom field in output: %s", buf.String())
	}
}

func TestLoggerFromContextFallback(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	fallback := zerolog.New(&buf).With().Str("fallback", "yes").Logger()

	ctx := context.Background()
	LoggerFromContext(ctx, fallback).Info().Msg("no logger in context")

	if !strings.Contains(buf.String(), "fallback") {
		t.Errorf("expected fallback logger to be used: %s", buf.String())
	}
}

func TestCtxAttachesCorrelationID(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	fallback := zerolog.New(&buf)

	ctx := context.Background()
	ctx = ContextWithCorrelationID(ctx, "corr-123")

	Ctx(ctx, fallback).Info().Msg("context test")

	if !strings.Contains(buf.String(), "corr-123") {
		t.Errorf("expected correlation_id in output: %s", buf.String())
	}
}
