// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package compute

import (
	"fmt"

	json "github.com/goccy/go-json"

	"github.com/tomtom215/cartographus/internal/command"
)

// registerHandlers wires the commands.compute_service router. Every
// handler here runs on the Engine's owning goroutine (command.Router.
// Dispatch is only ever invoked from inside a closure sent to e.cmds via
// handleEnvelope), so they call the unexported do* mutators directly
// rather than the exported, exec-wrapping public methods — the same
// deadlock-avoidance rule internal/supervisor's command handlers follow.
func (e *Engine) registerHandlers() {
	e.router.Handle("register_computation", e.handleRegisterComputation)
	e.router.Handle("unregister_computation", e.handleUnregisterComputation)
	e.router.Handle("register_trigger", e.handleRegisterTrigger)
	e.router.Handle("unregister_trigger", e.handleUnregisterTrigger)
	e.router.Handle("get_available_signals", e.handleGetAvailableSignals)
}

type commandReply struct {
	Status  string   `json:"status"`
	Message string   `json:"message,omitempty"`
	Signals []string `json:"signals,omitempty"`
}

func (e *Engine) reply(replySubject string, r commandReply) {
	if replySubject == "" {
		return
	}
	data, err := json.Marshal(r)
	if err != nil {
		e.logger.Error().Err(err).Msg("compute: failed to marshal command reply")
		return
	}
	if e.client != nil {
		e.client.Publish(replySubject, data)
	}
}

type registerComputationArgs struct {
	SourceSignal string `json:"source_signal" validate:"required"`
	Kind         string `json:"computation_type" validate:"required"`
	OutputName   string `json:"output_name" validate:"required"`
	Reply        string `json:"reply"`
}

func (e *Engine) handleRegisterComputation(args command.Args) {
	var parsed registerComputationArgs
	if err := command.Decode(args, &parsed); err != nil {
		e.logger.Warn().Err(err).Msg("compute: bad register_computation args")
		e.reply(parsed.Reply, commandReply{Status: "error", Message: "missing source_signal, computation_type, or output_name"})
		return
	}

	if err := e.doRegisterComputation(parsed.SourceSignal, parsed.Kind, parsed.OutputName); err != nil {
		e.reply(parsed.Reply, commandReply{Status: "error", Message: err.Error()})
		return
	}
	e.reply(parsed.Reply, commandReply{Status: "ok", Message: "computation registered successfully"})
}

// doRegisterComputation enforces output_name uniqueness across the engine
// (spec invariant), builds the computation instance via the kind factory,
// and appends it to the binding list for source_signal.
func (e *Engine) doRegisterComputation(sourceSignal, kind, outputName string) error {
	for _, bindings := range e.computations {
		for _, b := range bindings {
			if b.outputName == outputName {
				return fmt.Errorf("compute: output_name %q is already registered", outputName)
			}
		}
	}

	inst, err := NewComputation(kind)
	if err != nil {
		return err
	}

	e.computations[sourceSignal] = append(e.computations[sourceSignal], &binding{
		kind:        kind,
		computation: inst,
		outputName:  outputName,
	})
	e.logger.Info().Str("source_signal", sourceSignal).Str("kind", kind).Str("output_name", outputName).
		Msg("compute: registered computation")
	return nil
}

type unregisterComputationArgs struct {
	OutputName string `json:"output_name" validate:"required"`
	Reply      string `json:"reply"`
}

func (e *Engine) handleUnregisterComputation(args command.Args) {
	var parsed unregisterComputationArgs
	if err := command.Decode(args, &parsed); err != nil {
		e.logger.Warn().Err(err).Msg("compute: bad unregister_computation args")
		e.reply(parsed.Reply, commandReply{Status: "error", Message: "missing output_name"})
		return
	}

	if e.doUnregisterComputation(parsed.OutputName) {
		e.reply(parsed.Reply, commandReply{Status: "ok", Message: "computation unregistered"})
	} else {
		e.reply(parsed.Reply, commandReply{Status: "error", Message: "computation with that output_name not found"})
	}
}

func (e *Engine) doUnregisterComputation(outputName string) bool {
	found := false
	for source, bindings := range e.computations {
		kept := bindings[:0]
		for _, b := range bindings {
			if b.outputName == outputName {
				found = true
				continue
			}
			kept = append(kept, b)
		}
		e.computations[source] = kept
	}
	if found {
		delete(e.state, outputName)
		e.logger.Info().Str("output_name", outputName).Msg("compute: unregistered computation")
	}
	return found
}

type registerTriggerArgs struct {
	Trigger Trigger `json:"trigger" validate:"required"`
	Reply   string  `json:"reply"`
}

func (e *Engine) handleRegisterTrigger(args command.Args) {
	var parsed registerTriggerArgs
	if err := command.Decode(args, &parsed); err != nil {
		e.logger.Warn().Err(err).Msg("compute: bad register_trigger args")
		e.reply(parsed.Reply, commandReply{Status: "error", Message: "invalid trigger structure"})
		return
	}
	if parsed.Trigger.Name == "" || parsed.Trigger.Conditions == nil || parsed.Trigger.Actions == nil {
		e.reply(parsed.Reply, commandReply{Status: "error", Message: "invalid trigger structure. required fields: name, conditions, action"})
		return
	}

	e.doRegisterTrigger(parsed.Trigger)
	e.reply(parsed.Reply, commandReply{Status: "ok", Message: "trigger registered successfully"})
}

// doRegisterTrigger initializes is_active/last_event_ts and replaces any
// existing trigger bearing the same name.
func (e *Engine) doRegisterTrigger(tr Trigger) {
	tr.IsActive = false
	tr.LastEventTS = nil

	kept := e.triggers[:0]
	for _, existing := range e.triggers {
		if existing.Name != tr.Name {
			kept = append(kept, existing)
		}
	}
	e.triggers = append(kept, &tr)
	e.logger.Info().Str("trigger", tr.Name).Msg("compute: registered trigger")
}

type unregisterTriggerArgs struct {
	Name  string `json:"name" validate:"required"`
	Reply string `json:"reply"`
}

func (e *Engine) handleUnregisterTrigger(args command.Args) {
	var parsed unregisterTriggerArgs
	if err := command.Decode(args, &parsed); err != nil {
		e.logger.Warn().Err(err).Msg("compute: bad unregister_trigger args")
		e.reply(parsed.Reply, commandReply{Status: "error", Message: "missing trigger name"})
		return
	}

	if e.doUnregisterTrigger(parsed.Name) {
		e.reply(parsed.Reply, commandReply{Status: "ok", Message: "trigger unregistered"})
	} else {
		e.reply(parsed.Reply, commandReply{Status: "error", Message: "trigger not found"})
	}
}

func (e *Engine) doUnregisterTrigger(name string) bool {
	found := false
	kept := e.triggers[:0]
	for _, tr := range e.triggers {
		if tr.Name == name {
			found = true
			continue
		}
		kept = append(kept, tr)
	}
	e.triggers = kept
	if found {
		e.logger.Info().Str("trigger", name).Msg("compute: unregistered trigger")
	}
	return found
}

type getAvailableSignalsArgs struct {
	Reply string `json:"reply"`
}

func (e *Engine) handleGetAvailableSignals(args command.Args) {
	var parsed getAvailableSignalsArgs
	_ = command.Decode(args, &parsed)

	signals := make([]string, 0, len(e.state))
	for name := range e.state {
		signals = append(signals, name)
	}
	e.reply(parsed.Reply, commandReply{Status: "ok", Signals: signals})
}
