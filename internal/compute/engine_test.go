// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package compute

import (
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/cartographus/internal/bus"
)

// fakePublisher is a minimal in-process bus.Client stand-in: engine.process
// and evaluate_triggers are pure enough to test without a real broker, so
// tests just need to capture what would have been published.
type fakePublisher struct {
	mu        sync.Mutex
	published []bus.Envelope
}

func (f *fakePublisher) Connect(string) error { return nil }
func (f *fakePublisher) Close() error         { return nil }
func (f *fakePublisher) Connected() bool      { return true }

func (f *fakePublisher) Publish(subject bus.Subject, payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, bus.Envelope{Subject: subject, Payload: payload})
	return nil
}

func (f *fakePublisher) Subscribe(bus.Subject, bus.Handler) (bus.Subscription, error) {
	return nil, nil
}

func (f *fakePublisher) QueueSubscribe(bus.Subject, string, bus.Handler) (bus.Subscription, error) {
	return nil, nil
}

func (f *fakePublisher) Request(bus.Subject, []byte, int) (bus.Envelope, error) {
	return bus.Envelope{}, bus.ErrTimeout
}

func (f *fakePublisher) subjects() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.published))
	for i, env := range f.published {
		out[i] = env.Subject
	}
	return out
}

func newTestEngine(t *testing.T) (*Engine, *fakePublisher) {
	t.Helper()
	e := New(Config{}, zerolog.Nop())
	pub := &fakePublisher{}
	e.client = pub
	return e, pub
}

// TestChainedComputeSignalPropagation realizes scenario S1: a
// RunningAverage feeding a Differentiator, verifying both the derived
// state_map entries and the total publish count on compute.result.*.
func TestChainedComputeSignalPropagation(t *testing.T) {
	e, pub := newTestEngine(t)

	if err := e.doRegisterComputation("can.speed", "RunningAverage", "speed_avg"); err != nil {
		t.Fatalf("register RunningAverage: %v", err)
	}
	if err := e.doRegisterComputation("speed_avg", "Differentiator", "speed_acc"); err != nil {
		t.Fatalf("register Differentiator: %v", err)
	}

	e.process("can.speed", 10.0, 0, 0, make(map[string]bool))
	e.process("can.speed", 20.0, 1, 0, make(map[string]bool))

	if got := e.state["can.speed"]; got != 20.0 {
		t.Errorf("state_map[can.speed] = %v, want 20.0", got)
	}
	if got := e.state["speed_avg"]; got != 15.0 {
		t.Errorf("state_map[speed_avg] = %v, want 15.0", got)
	}
	if got := e.state["speed_acc"]; got != 5.0 {
		t.Errorf("state_map[speed_acc] = %v, want 5.0", got)
	}

	var resultCount int
	for _, subject := range pub.subjects() {
		if len(subject) >= len("compute.result.") && subject[:len("compute.result.")] == "compute.result." {
			resultCount++
		}
	}
	if resultCount != 4 {
		t.Errorf("expected 4 compute.result.* publishes, got %d", resultCount)
	}
}

// TestTriggerTransitionSequence realizes scenario S2: one trigger with all
// four transition/level actions wired, ingesting 40, 60, 70, 30 and
// expecting publishes in order level_inactive, active, level_active,
// inactive.
func TestTriggerTransitionSequence(t *testing.T) {
	e, pub := newTestEngine(t)

	e.doRegisterTrigger(Trigger{
		Name:       "T",
		Conditions: []Condition{{Signal: "some_signal", Operator: ">", Value: 50.0}},
		Actions: map[string]Action{
			actionBecomeActive:   {Type: "publish", Subject: "test.active"},
			actionBecomeInactive: {Type: "publish", Subject: "test.inactive"},
			actionIsActive:       {Type: "publish", Subject: "test.level_active"},
			actionIsInactive:     {Type: "publish", Subject: "test.level_inactive"},
		},
	})

	for i, value := range []float64{40, 60, 70, 30} {
		e.process("some_signal", value, float64(i), 0, make(map[string]bool))
	}

	want := []string{"test.level_inactive", "test.active", "test.level_active", "test.inactive"}
	got := pub.subjects()
	if len(got) != len(want) {
		t.Fatalf("expected %d publishes, got %d: %v", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("publish[%d] = %q, want %q (full sequence: %v)", i, got[i], want[i], got)
		}
	}
}

// TestTriggerEvaluatesAtEveryRecursionDepth verifies evaluateTriggers runs
// at the end of every process() invocation in the recursive fan-out, not
// just the outermost one. A single-level chain (can.speed -> speed_avg)
// whose trigger condition is satisfied by the very first sample should see
// two evaluations within the same ingest: one as the nested process() call
// for speed_avg unwinds (trigger transitions inactive -> active), and a
// second as the outer call for can.speed unwinds (trigger is still active).
// Evaluating only once, after the outermost call, would produce only the
// first publish.
func TestTriggerEvaluatesAtEveryRecursionDepth(t *testing.T) {
	e, pub := newTestEngine(t)

	if err := e.doRegisterComputation("can.speed", "RunningAverage", "speed_avg"); err != nil {
		t.Fatalf("register RunningAverage: %v", err)
	}

	e.doRegisterTrigger(Trigger{
		Name:       "avg_high",
		Conditions: []Condition{{Signal: "speed_avg", Operator: ">", Value: 5.0}},
		Actions: map[string]Action{
			actionBecomeActive: {Type: "publish", Subject: "test.active"},
			actionIsActive:     {Type: "publish", Subject: "test.level_active"},
		},
	})

	e.process("can.speed", 10.0, 0, 0, make(map[string]bool))

	want := []string{"compute.result.speed_avg", "test.active", "test.level_active"}
	got := pub.subjects()
	if len(got) != len(want) {
		t.Fatalf("expected %d publishes, got %d: %v", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("publish[%d] = %q, want %q (full sequence: %v)", i, got[i], want[i], got)
		}
	}
}

func TestRegisterComputationRejectsDuplicateOutputName(t *testing.T) {
	e, _ := newTestEngine(t)

	if err := e.doRegisterComputation("a", "RunningAverage", "out"); err != nil {
		t.Fatalf("first registration: %v", err)
	}
	if err := e.doRegisterComputation("b", "Integrator", "out"); err == nil {
		t.Error("expected duplicate output_name to be rejected")
	}
}

func TestUnregisterComputationRemovesStateEntry(t *testing.T) {
	e, _ := newTestEngine(t)

	if err := e.doRegisterComputation("a", "RunningAverage", "a_avg"); err != nil {
		t.Fatalf("register: %v", err)
	}
	e.process("a", 5.0, 0, 0, make(map[string]bool))
	if _, ok := e.state["a_avg"]; !ok {
		t.Fatal("expected a_avg to be present in state after processing")
	}

	if !e.doUnregisterComputation("a_avg") {
		t.Fatal("expected unregister to find a_avg")
	}
	if _, ok := e.state["a_avg"]; ok {
		t.Error("expected a_avg to be removed from state_map after unregister")
	}
}

func TestRegisterTriggerReplacesSameName(t *testing.T) {
	e, _ := newTestEngine(t)

	e.doRegisterTrigger(Trigger{Name: "dup", Conditions: []Condition{}, Actions: map[string]Action{}})
	e.doRegisterTrigger(Trigger{Name: "dup", Conditions: []Condition{{Signal: "x", Operator: ">", Value: 1.0}}, Actions: map[string]Action{}})

	if len(e.triggers) != 1 {
		t.Fatalf("expected exactly one trigger named dup, got %d", len(e.triggers))
	}
	if len(e.triggers[0].Conditions) != 1 {
		t.Error("expected the second registration to have replaced the first")
	}
}

func TestCyclicComputationChainDoesNotRecurseForever(t *testing.T) {
	e, _ := newTestEngine(t)

	if err := e.doRegisterComputation("a", "RunningAverage", "b"); err != nil {
		t.Fatalf("register a->b: %v", err)
	}
	if err := e.doRegisterComputation("b", "RunningAverage", "a"); err != nil {
		t.Fatalf("register b->a: %v", err)
	}

	done := make(chan struct{})
	go func() {
		e.process("a", 1.0, 0, 0, make(map[string]bool))
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("process() did not return; cyclic chain was not broken")
	}
}

func TestGetAvailableSignalsReflectsState(t *testing.T) {
	e, _ := newTestEngine(t)
	e.process("can.speed", 42.0, 0, 0, make(map[string]bool))
	e.process("digital_twin.data", map[string]any{"bucket_angle": 10.0}, 0, 0, make(map[string]bool))

	if _, ok := e.state["can.speed"]; !ok {
		t.Error("expected can.speed present in state_map")
	}
	if _, ok := e.state["digital_twin.data"]; !ok {
		t.Error("expected digital_twin.data present in state_map")
	}
}
