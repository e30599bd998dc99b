// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

// Package compute is the Compute Engine: it maintains a state map of the
// last-seen value for every signal flowing through the fabric, runs
// registered stateful computations to derive new signals from existing
// ones (optionally chained), and evaluates transition-triggered rules
// against the accumulated state.
package compute

import "fmt"

// Computation is the capability interface every computation kind
// implements — a stand-in for the abstract-base-class-plus-subclasses
// shape, with concrete kinds built by NewComputation rather than patched
// into a runtime dictionary.
type Computation interface {
	Update(value, t float64) float64
}

// RunningAverage computes a cumulative mean.
type RunningAverage struct {
	count int
	sum   float64
}

func (r *RunningAverage) Update(value, t float64) float64 {
	r.count++
	r.sum += value
	if r.count == 0 {
		return 0
	}
	return r.sum / float64(r.count)
}

// Integrator computes the running integral of a signal over time using
// the trapezoidal rule. The first sample establishes the baseline and
// yields zero.
type Integrator struct {
	hasLast  bool
	lastVal  float64
	lastTS   float64
	integral float64
}

func (i *Integrator) Update(value, t float64) float64 {
	if i.hasLast {
		dt := t - i.lastTS
		if dt > 0 {
			i.integral += (value + i.lastVal) / 2.0 * dt
		}
	}
	i.lastVal = value
	i.lastTS = t
	i.hasLast = true
	return i.integral
}

// Differentiator computes the derivative of a signal with respect to
// time. The first sample yields zero.
type Differentiator struct {
	hasLast bool
	lastVal float64
	lastTS  float64
}

func (d *Differentiator) Update(value, t float64) float64 {
	var derivative float64
	if d.hasLast {
		dt := t - d.lastTS
		if dt > 0 {
			derivative = (value - d.lastVal) / dt
		}
	}
	d.lastVal = value
	d.lastTS = t
	d.hasLast = true
	return derivative
}

// NewComputation builds a fresh computation instance for the given kind
// string. Kind names match the registration API exactly: "RunningAverage",
// "Integrator", "Differentiator".
func NewComputation(kind string) (Computation, error) {
	switch kind {
	case "RunningAverage":
		return &RunningAverage{}, nil
	case "Integrator":
		return &Integrator{}, nil
	case "Differentiator":
		return &Differentiator{}, nil
	default:
		return nil, fmt.Errorf("compute: unknown computation kind %q", kind)
	}
}

// toFloat64 coerces a decoded JSON value (or a float64 already produced by
// an upstream computation) into a float64, reporting whether the value was
// numeric at all. Non-numeric signals (e.g. a whole digital-twin object
// ingested under its source name) simply cannot feed a computation.
func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case bool:
		if n {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}
