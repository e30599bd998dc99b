// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

// Package command implements the per-service command table every worker's
// commands.<service_name> subscription is routed through.
package command

import (
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
)

// Args is the decoded, non-command keys of a command payload, plus
// "reply" when the envelope carried a reply subject.
type Args map[string]any

// Handler processes one decoded command invocation.
type Handler func(args Args)

// Router is a per-service table mapping command names to handlers. It
// never propagates a handler panic to the caller: Dispatch recovers and
// logs so one bad command cannot take down the bus subscription goroutine
// feeding it.
type Router struct {
	service  string
	handlers map[string]Handler
	logger   zerolog.Logger
}

// NewRouter creates a router for the named service.
func NewRouter(service string, logger zerolog.Logger) *Router {
	return &Router{
		service:  service,
		handlers: make(map[string]Handler),
		logger:   logger,
	}
}

// Handle registers the handler for a command name. Registering the same
// name twice replaces the previous handler — this is the tagged-table
// redesign from a runtime-mutated dictionary (spec §9): handlers are
// declared once at construction, not patched in at arbitrary points.
func (r *Router) Handle(name string, h Handler) {
	r.handlers[name] = h
}

// Dispatch decodes payload, extracts the command name, builds Args from
// the remaining keys (plus "reply" if replySubject is non-empty), and
// invokes the matching handler. Malformed payloads, missing commands, and
// unknown commands are logged and dropped — never fatal to the service
// (spec §4.2, §7).
func (r *Router) Dispatch(payload []byte, replySubject string) {
	var decoded map[string]any
	if err := json.Unmarshal(payload, &decoded); err != nil {
		r.logger.Warn().Err(err).Str("service", r.service).Msg("dropping malformed command payload")
		return
	}

	raw, ok := decoded["command"]
	if !ok {
		r.logger.Warn().Str("service", r.service).Msg("dropping command payload with no command field")
		return
	}
	name, ok := raw.(string)
	if !ok {
		r.logger.Warn().Str("service", r.service).Msg("dropping command payload with non-string command field")
		return
	}

	handler, ok := r.handlers[name]
	if !ok {
		r.logger.Warn().Str("service", r.service).Str("command", name).Msg("dropping unknown command")
		return
	}

	args := make(Args, len(decoded))
	for k, v := range decoded {
		if k == "command" {
			continue
		}
		args[k] = v
	}
	if replySubject != "" {
		args["reply"] = replySubject
	}

	r.invoke(name, handler, args)
}

func (r *Router) invoke(name string, handler Handler, args Args) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error().
				Str("service", r.service).
				Str("command", name).
				Interface("panic", rec).
				Msg("command handler panicked")
		}
	}()
	handler(args)
}
