// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package compute

import "testing"

func TestRunningAverageSingleSampleEqualsItself(t *testing.T) {
	ra := &RunningAverage{}
	got := ra.Update(10, 0)
	if got != 10 {
		t.Errorf("expected 10, got %v", got)
	}
}

func TestRunningAverageAccumulates(t *testing.T) {
	ra := &RunningAverage{}
	ra.Update(10, 0)
	got := ra.Update(20, 1)
	if got != 15 {
		t.Errorf("expected 15, got %v", got)
	}
}

func TestIntegratorFirstSampleIsZero(t *testing.T) {
	in := &Integrator{}
	got := in.Update(5, 0)
	if got != 0 {
		t.Errorf("expected 0 on first sample, got %v", got)
	}
}

func TestIntegratorTrapezoidalRule(t *testing.T) {
	in := &Integrator{}
	in.Update(10, 0)
	got := in.Update(20, 1)
	want := 15.0 // (10+20)/2 * 1
	if got != want {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestDifferentiatorFirstSampleIsZero(t *testing.T) {
	d := &Differentiator{}
	got := d.Update(5, 0)
	if got != 0 {
		t.Errorf("expected 0 on first sample, got %v", got)
	}
}

func TestDifferentiatorRateOfChange(t *testing.T) {
	d := &Differentiator{}
	d.Update(10, 0)
	got := d.Update(20, 1)
	if got != 10 {
		t.Errorf("expected 10, got %v", got)
	}
}

func TestNewComputationUnknownKind(t *testing.T) {
	if _, err := NewComputation("Nonsense"); err == nil {
		t.Error("expected error for unknown computation kind")
	}
}

func TestNewComputationKnownKinds(t *testing.T) {
	for _, kind := range []string{"RunningAverage", "Integrator", "Differentiator"} {
		if _, err := NewComputation(kind); err != nil {
			t.Errorf("NewComputation(%q): %v", kind, err)
		}
	}
}
