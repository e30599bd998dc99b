// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package compute

// RegisterComputation registers a new computation from outside the
// owning goroutine (tests, cmd/computed bootstrap). Bus-driven
// registration goes through handleRegisterComputation instead, which
// calls doRegisterComputation directly since it already runs in-loop.
func (e *Engine) RegisterComputation(sourceSignal, kind, outputName string) error {
	var err error
	e.exec(func() { err = e.doRegisterComputation(sourceSignal, kind, outputName) })
	return err
}

// UnregisterComputation removes the computation bearing outputName.
func (e *Engine) UnregisterComputation(outputName string) bool {
	var found bool
	e.exec(func() { found = e.doUnregisterComputation(outputName) })
	return found
}

// RegisterTrigger registers or replaces a trigger by name.
func (e *Engine) RegisterTrigger(tr Trigger) {
	e.exec(func() { e.doRegisterTrigger(tr) })
}

// UnregisterTrigger removes the trigger bearing name.
func (e *Engine) UnregisterTrigger(name string) bool {
	var found bool
	e.exec(func() { found = e.doUnregisterTrigger(name) })
	return found
}

// Ingest feeds one signal sample into the engine synchronously, blocking
// until the whole recursive fan-out and trigger evaluation for this
// sample has completed. Exported for tests that need to assert
// post-ingest state without racing the engine's own goroutine.
func (e *Engine) Ingest(signal string, value any, t float64) {
	e.exec(func() { e.process(signal, value, t, 0, make(map[string]bool)) })
}

// StateSnapshot returns a shallow copy of the current state map.
func (e *Engine) StateSnapshot() map[string]any {
	out := make(map[string]any)
	e.exec(func() {
		for k, v := range e.state {
			out[k] = v
		}
	})
	return out
}

// AvailableSignals returns the current keys of the state map.
func (e *Engine) AvailableSignals() []string {
	var signals []string
	e.exec(func() {
		signals = make([]string, 0, len(e.state))
		for name := range e.state {
			signals = append(signals, name)
		}
	})
	return signals
}

// TriggerSnapshot returns a shallow copy of the currently registered
// triggers, in registration order.
func (e *Engine) TriggerSnapshot() []Trigger {
	var out []Trigger
	e.exec(func() {
		out = make([]Trigger, len(e.triggers))
		for i, tr := range e.triggers {
			out[i] = *tr
		}
	})
	return out
}
