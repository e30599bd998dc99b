// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package compute

import "testing"

func TestAllConditionsMetMissingSignalIsFalse(t *testing.T) {
	tr := &Trigger{Conditions: []Condition{{Signal: "missing", Operator: ">", Value: 1.0}}}
	if tr.allConditionsMet(map[string]any{}) {
		t.Error("expected false when the condition's signal is absent")
	}
}

func TestAllConditionsMetUnknownOperatorIsFalse(t *testing.T) {
	tr := &Trigger{Conditions: []Condition{{Signal: "x", Operator: "~=", Value: 1.0}}}
	if tr.allConditionsMet(map[string]any{"x": 5.0}) {
		t.Error("expected false for an unrecognized operator")
	}
}

func TestAllConditionsMetConjunction(t *testing.T) {
	tr := &Trigger{Conditions: []Condition{
		{Signal: "a", Operator: ">", Value: 10.0},
		{Signal: "b", Operator: "<", Value: 5.0},
	}}
	state := map[string]any{"a": 20.0, "b": 1.0}
	if !tr.allConditionsMet(state) {
		t.Error("expected conjunction to hold")
	}

	state["b"] = 9.0
	if tr.allConditionsMet(state) {
		t.Error("expected conjunction to fail once one clause no longer holds")
	}
}

func TestEvaluateConditionOperators(t *testing.T) {
	cases := []struct {
		op      string
		current any
		thresh  any
		want    bool
	}{
		{">", 10.0, 5.0, true},
		{"<", 10.0, 5.0, false},
		{">=", 5.0, 5.0, true},
		{"<=", 4.9, 5.0, true},
		{"==", 5.0, 5.0, true},
		{"!=", 5.0, 5.0, false},
		{"==", "idle", "idle", true},
		{"!=", "idle", "running", true},
	}
	for _, c := range cases {
		got := evaluateCondition(c.current, c.op, c.thresh)
		if got != c.want {
			t.Errorf("evaluateCondition(%v, %q, %v) = %v, want %v", c.current, c.op, c.thresh, got, c.want)
		}
	}
}
