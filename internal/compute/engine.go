// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package compute

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/tomtom215/cartographus/internal/bus"
	"github.com/tomtom215/cartographus/internal/command"
	"github.com/tomtom215/cartographus/internal/metrics"
	"github.com/tomtom215/cartographus/internal/tasktree"
)

// Config holds the Engine's bootstrap knobs. PublishInterval mirrors the
// settings-driven ui_publish_interval (default 1s).
type Config struct {
	DataSubjects    []string
	PublishInterval time.Duration
}

// binding is one (computation, output name) pair registered against a
// source signal.
type binding struct {
	kind        string
	computation Computation
	outputName  string
}

// Engine owns the state map, the registered computations, and the
// registered triggers, exclusively through one goroutine — the same
// single-owning-goroutine shape as internal/settingsstore.Store and
// internal/supervisor.Supervisor.
type Engine struct {
	cfg    Config
	logger zerolog.Logger

	client bus.Client
	router *command.Router
	subs   []bus.Subscription

	state        map[string]any
	computations map[string][]*binding
	triggers     []*Trigger

	cmds chan func()
	tree *tasktree.Tree
}

// New builds an Engine with empty state, ready to Start.
func New(cfg Config, logger zerolog.Logger) *Engine {
	if cfg.PublishInterval <= 0 {
		cfg.PublishInterval = time.Second
	}

	e := &Engine{
		cfg:          cfg,
		logger:       logger,
		state:        make(map[string]any),
		computations: make(map[string][]*binding),
		cmds:         make(chan func(), 256),
	}

	e.router = command.NewRouter("compute_service", logger)
	e.registerHandlers()

	return e
}

// Start subscribes the configured data subjects and commands.compute_service,
// and launches the Engine's own background loops (command dispatch, the
// periodic compute.state.full broadcaster) under a tasktree.Tree.
func (e *Engine) Start(ctx context.Context, client bus.Client) error {
	e.client = client

	sub, err := client.Subscribe("commands.compute_service", e.handleEnvelope)
	if err != nil {
		return fmt.Errorf("compute: subscribe commands.compute_service: %w", err)
	}
	e.subs = append(e.subs, sub)

	for _, subject := range e.cfg.DataSubjects {
		source := subject
		ingestSub, err := client.Subscribe(subject, e.ingestHandler(source))
		if err != nil {
			return fmt.Errorf("compute: subscribe %s: %w", subject, err)
		}
		e.subs = append(e.subs, ingestSub)
	}

	slogLogger := slog.New(slog.NewJSONHandler(os.Stderr, nil))
	e.tree = tasktree.New("compute_service", slogLogger, tasktree.DefaultConfig())
	e.tree.Add(&loopService{name: "compute-command-loop", cmds: e.cmds})
	e.tree.Add(&tickerService{name: "compute-state-broadcast", interval: e.cfg.PublishInterval, fn: e.publishFullState})

	e.tree.ServeBackground(ctx)

	return nil
}

// Stop unsubscribes every subscription. The Engine holds no child
// processes and no persisted state, so there is nothing else to tear down.
func (e *Engine) Stop(ctx context.Context) error {
	var firstErr error
	for _, sub := range e.subs {
		if err := sub.Unsubscribe(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	e.subs = nil
	return firstErr
}

// exec runs fn on the owning goroutine and blocks until it completes. Used
// by the exported API, which may be called from outside the owning
// goroutine (tests, cmd/computed's bootstrap).
func (e *Engine) exec(fn func()) {
	ack := make(chan struct{})
	e.cmds <- func() {
		fn()
		close(ack)
	}
	<-ack
}

func (e *Engine) handleEnvelope(env bus.Envelope) {
	e.cmds <- func() {
		e.router.Dispatch(env.Payload, env.Reply)
	}
}

// ingestRecord is the decoded shape of a data-subject message.
type ingestRecord struct {
	Name  string `json:"name"`
	Value any    `json:"value"`
	TS    *int64 `json:"ts"`
}

func (e *Engine) ingestHandler(source string) bus.Handler {
	return func(env bus.Envelope) {
		var rec ingestRecord
		var whole any
		if err := json.Unmarshal(env.Payload, &whole); err != nil {
			e.logger.Error().Err(err).Str("source", source).Msg("compute: failed to decode ingest payload")
			return
		}

		var signal string
		var value any
		var t float64

		asMap, isMap := whole.(map[string]any)
		if isMap {
			if _, hasName := asMap["name"]; hasName {
				if _, hasValue := asMap["value"]; hasValue {
					if err := json.Unmarshal(env.Payload, &rec); err == nil {
						signal = source + "." + rec.Name
						value = rec.Value
						if rec.TS != nil {
							t = float64(*rec.TS) / 1000.0
						} else {
							t = float64(time.Now().UnixMilli()) / 1000.0
						}
						e.ingest(signal, value, t)
						return
					}
				}
			}
		}

		signal = source
		value = whole
		t = float64(time.Now().UnixMilli()) / 1000.0
		e.ingest(signal, value, t)
	}
}

// ingest enqueues a top-level process() call onto the owning goroutine.
// Ingest is fire-and-forget: nothing downstream waits on a reply, so we do
// not pay for an exec() round trip here.
func (e *Engine) ingest(signal string, value any, t float64) {
	e.cmds <- func() {
		e.process(signal, value, t, 0, make(map[string]bool))
	}
}

// process is the central fan-out algorithm. visited tracks output names
// already produced within this single top-level ingest call so a cyclic
// registration is detected and broken rather than recursing forever.
// evaluateTriggers runs at the end of every invocation, not just the
// outermost one: a signal produced partway down the chain must be visible
// to trigger evaluation as soon as it lands, the same as every other signal
// update in the chain.
func (e *Engine) process(signal string, value any, t float64, depth int, visited map[string]bool) {
	if depth == 0 {
		start := time.Now()
		defer func() { metrics.RecordProcessDuration(time.Since(start)) }()
	}

	e.state[signal] = value

	for _, b := range e.computations[signal] {
		numeric, ok := toFloat64(value)
		if !ok {
			e.logger.Warn().Str("signal", signal).Str("output_name", b.outputName).
				Msg("compute: skipping computation on non-numeric value")
			continue
		}

		newValue := e.runComputation(b, numeric, t)
		metrics.RecordComputation(b.kind)
		e.publishResult(b.outputName, newValue, t)

		if visited[b.outputName] {
			e.logger.Error().Str("output_name", b.outputName).
				Msg("compute: cycle detected in computation chain, breaking recursion")
			continue
		}
		visited[b.outputName] = true

		e.process(b.outputName, newValue, t, depth+1, visited)
	}

	e.evaluateTriggers(t)
}

// runComputation isolates a single computation's panic or failure so one
// bad instance cannot abort fan-out to its siblings.
func (e *Engine) runComputation(b *binding, value, t float64) (result float64) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error().Interface("panic", r).Str("output_name", b.outputName).
				Msg("compute: computation panicked")
			result = 0
		}
	}()
	return b.computation.Update(value, t)
}

func (e *Engine) publishResult(outputName string, value float64, t float64) {
	if e.client == nil {
		return
	}
	payload, err := json.Marshal(map[string]any{"value": value, "timestamp": t})
	if err != nil {
		e.logger.Error().Err(err).Str("output_name", outputName).Msg("compute: failed to marshal result")
		return
	}
	subject := "compute.result." + outputName
	if err := e.client.Publish(subject, payload); err != nil {
		e.logger.Error().Err(err).Str("subject", subject).Msg("compute: failed to publish result")
	}
}

// evaluateTriggers runs the 2-state machine for every registered trigger,
// in registration order.
func (e *Engine) evaluateTriggers(t float64) {
	metrics.RecordTriggerEvaluation()

	for _, tr := range e.triggers {
		func() {
			defer func() {
				if r := recover(); r != nil {
					e.logger.Error().Interface("panic", r).Str("trigger", tr.Name).Msg("compute: trigger evaluation panicked")
				}
			}()

			allMet := tr.allConditionsMet(e.state)
			wasActive := tr.IsActive

			switch {
			case allMet && !wasActive:
				tr.IsActive = true
				ts := t
				tr.LastEventTS = &ts
				e.fireAction(tr, actionBecomeActive)
			case !allMet && wasActive:
				tr.IsActive = false
				ts := t
				tr.LastEventTS = &ts
				e.fireAction(tr, actionBecomeInactive)
			case allMet && wasActive:
				e.fireAction(tr, actionIsActive)
			default:
				e.fireAction(tr, actionIsInactive)
			}
		}()
	}
}

func (e *Engine) fireAction(tr *Trigger, key string) {
	action, ok := tr.Actions[key]
	if !ok {
		return
	}
	if action.Type != "publish" {
		if action.Type != "" {
			e.logger.Warn().Str("trigger", tr.Name).Str("action_type", action.Type).
				Msg("compute: ignoring unsupported trigger action type")
		}
		return
	}
	if action.Subject == "" {
		e.logger.Warn().Str("trigger", tr.Name).Msg("compute: publish action missing a subject")
		return
	}

	payload := action.Payload
	if payload == nil {
		payload = map[string]any{"trigger_name": tr.Name, "timestamp": tr.LastEventTS}
	}
	data, err := json.Marshal(payload)
	if err != nil {
		e.logger.Error().Err(err).Str("trigger", tr.Name).Msg("compute: failed to marshal trigger payload")
		return
	}
	if e.client != nil {
		if err := e.client.Publish(action.Subject, data); err != nil {
			e.logger.Error().Err(err).Str("subject", action.Subject).Msg("compute: failed to publish trigger action")
		}
	}
	metrics.RecordTriggerFire(tr.Name, key)
}

// publishFullState is the periodic compute.state.full broadcaster.
func (e *Engine) publishFullState() {
	e.exec(func() {
		if e.client == nil {
			return
		}
		payload, err := json.Marshal(map[string]any{
			"computation_state": e.state,
			"triggers":          e.triggers,
		})
		if err != nil {
			e.logger.Error().Err(err).Msg("compute: failed to marshal full state snapshot")
			return
		}
		if err := e.client.Publish("compute.state.full", payload); err != nil {
			e.logger.Error().Err(err).Msg("compute: failed to publish full state snapshot")
		}
	})
}
