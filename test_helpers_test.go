package pelican

import (
	"sync"
	"testing"
)

// TestSink captures every event logged by a controller
type TestSink struct {
	mutex  sync.RWMutex
	Events []Event
}

func NewTestSink() *TestSink {
	return &TestSink{}
}

func (s *TestSink) Log(event Event) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.Events = append(s.Events, event)
}

// OfKind returns the captured events of one kind
func (s *TestSink) OfKind(kind EventKind) []Event {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	var result []Event
	for _, e := range s.Events {
		if e.Kind == kind {
			result = append(result, e)
		}
	}
	return result
}

// Transitions returns the committed transitions in order
func (s *TestSink) Transitions() []Transition {
	var result []Transition
	for _, e := range s.OfKind(EventTransition) {
		result = append(result, Transition{From: e.From, To: e.To, Cause: e.Cause, At: e.At, Elapsed: e.Elapsed})
	}
	return result
}

type testRig struct {
	Controller *Controller
	Clock      *ManualClock
	Button     *VirtualButton
	Actuator   *MemoryActuator
	Sink       *TestSink
}

// NewTestRig builds a controller on a manual clock with default timings
func NewTestRig(t *testing.T) *testRig {
	t.Helper()
	return NewTestRigWithConfig(t, DefaultConfig())
}

func NewTestRigWithConfig(t *testing.T, cfg Config) *testRig {
	t.Helper()
	rig := &testRig{
		Clock:    NewManualClock(0),
		Button:   NewVirtualButton(),
		Actuator: NewMemoryActuator(),
		Sink:     NewTestSink(),
	}

	c, err := NewBuilder().
		WithConfig(cfg).
		WithClock(rig.Clock).
		WithButton(rig.Button).
		WithActuator(rig.Actuator).
		WithSink(rig.Sink).
		Build()
	if err != nil {
		t.Fatalf("Failed to build controller: %v", err)
	}
	rig.Controller = c
	return rig
}

// Start starts the controller or fails the test
func (r *testRig) Start(t *testing.T) {
	t.Helper()
	if err := r.Controller.Start(); err != nil {
		t.Fatalf("Expected no error starting controller, got: %v", err)
	}
}

// RunUntil simulates to the given time, pressing the button on the listed ticks
func (r *testRig) RunUntil(t *testing.T, until int64, pressAt ...int64) []Transition {
	t.Helper()
	presses := make(map[Timestamp]bool)
	for _, at := range pressAt {
		presses[At(at)] = true
	}
	transitions, err := r.Controller.Simulate(r.Clock, At(until), func(now Timestamp) {
		if presses[now] {
			r.Button.Press()
		} else {
			r.Button.Release()
		}
	})
	if err != nil {
		t.Fatalf("Simulate failed: %v", err)
	}
	return transitions
}

// AssertPhase verifies the controller is in the expected phase
func AssertPhase(t *testing.T, c *Controller, expected Phase) {
	t.Helper()
	if actual := c.CurrentPhase(); actual != expected {
		t.Errorf("Expected phase '%s', got '%s'", expected, actual)
	}
}

// AssertRequest verifies the pedestrian request state
func AssertRequest(t *testing.T, c *Controller, expected RequestState) {
	t.Helper()
	if actual := c.State().Pedestrian; actual != expected {
		t.Errorf("Expected request '%s', got '%s'", expected, actual)
	}
}

// AssertTransition verifies one committed transition
func AssertTransition(t *testing.T, tr Transition, from, to Phase, cause Cause, at int64) {
	t.Helper()
	if tr.From != from || tr.To != to || tr.Cause != cause || tr.At != At(at) {
		t.Errorf("Expected %s -> %s (%s) at %d, got %s at %s", from, to, cause, at, tr, tr.At)
	}
}
