// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package compute

import "reflect"

// Condition is one clause of a Trigger's conjunction: signal_name op value.
type Condition struct {
	Signal   string `json:"name"`
	Operator string `json:"operator"`
	Value    any    `json:"value"`
}

// Action describes one transition/level handler's effect. Only Type
// "publish" is implemented; any other type is logged and ignored.
type Action struct {
	Type    string `json:"type"`
	Subject string `json:"subject,omitempty"`
	Payload any    `json:"payload,omitempty"`
}

// Trigger is a conjunction of Conditions plus a transition/level action
// table, running the 2-state active/inactive machine described by the
// evaluation loop in engine.go.
type Trigger struct {
	Name        string            `json:"name"`
	Conditions  []Condition       `json:"conditions"`
	Actions     map[string]Action `json:"action"`
	IsActive    bool              `json:"is_currently_active"`
	LastEventTS *float64          `json:"last_event_timestamp,omitempty"`
}

const (
	actionBecomeActive   = "on_become_active"
	actionBecomeInactive = "on_become_inactive"
	actionIsActive       = "on_is_active"
	actionIsInactive     = "on_is_inactive"
)

// allConditionsMet evaluates the conjunction against the current state
// map. A missing signal or unrecognized operator short-circuits to false,
// exactly like a condition that failed to hold.
func (tr *Trigger) allConditionsMet(state map[string]any) bool {
	for _, c := range tr.Conditions {
		current, ok := state[c.Signal]
		if !ok {
			return false
		}
		if !evaluateCondition(current, c.Operator, c.Value) {
			return false
		}
	}
	return true
}

func evaluateCondition(current any, op string, threshold any) bool {
	switch op {
	case "==":
		return looseEqual(current, threshold)
	case "!=":
		return !looseEqual(current, threshold)
	case ">", "<", ">=", "<=":
		cf, cok := toFloat64(current)
		tf, tok := toFloat64(threshold)
		if !cok || !tok {
			return false
		}
		switch op {
		case ">":
			return cf > tf
		case "<":
			return cf < tf
		case ">=":
			return cf >= tf
		case "<=":
			return cf <= tf
		}
	}
	return false
}

func looseEqual(a, b any) bool {
	if af, aok := toFloat64(a); aok {
		if bf, bok := toFloat64(b); bok {
			return af == bf
		}
	}
	return reflect.DeepEqual(a, b)
}
