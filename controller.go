package pelican

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MachineState represents the lifecycle state of the controller
type MachineState int

const (
	// Controller is stopped and not ticking
	MachineStateStopped MachineState = iota
	// Controller is running
	MachineStateStarted
)

// Controller sequences the crossing phases. Start, Tick, Run, Simulate and Stop
// belong to a single owner goroutine; Snapshot may be called from anywhere.
type Controller struct {
	config   Config
	timings  Timings
	clock    Clock
	button   ButtonInput
	actuator ActuatorOutput
	sinks    *SinkGroup
	project  func(Phase) (Signals, bool)

	state        ControllerState
	commanded    Signals
	forced       bool
	machineState MachineState
	ticks        uint64
	transitions  uint64

	snapshotMutex sync.RWMutex
	snapshot      Snapshot
}

// Start creates the initial {Red, Idle} state and asserts its outputs
func (c *Controller) Start() error {
	if c.machineState == MachineStateStarted {
		return NewAlreadyStartedError("Start")
	}

	now := c.clock.Now()
	c.state = ControllerState{
		Phase:      Red,
		PhaseStart: now,
		Pedestrian: Idle,
		LastPress:  Never,
	}
	c.machineState = MachineStateStarted

	event := NewEvent(EventStarted, SeverityInfo, now)
	event.Message = "controller started in red"
	c.assertPhaseOutputs(now)
	c.log(event)
	c.publish(now)
	return nil
}

// Stop halts the controller. The last outputs stay asserted.
func (c *Controller) Stop() error {
	if c.machineState != MachineStateStarted {
		return NewMachineNotStartedError("Stop")
	}
	now := c.clock.Now()
	c.machineState = MachineStateStopped
	c.log(NewEvent(EventStopped, SeverityInfo, now))
	c.publish(now)
	return nil
}

// Reset returns a running controller to {Red, Idle} at the current time and
// re-asserts the red outputs. Any outstanding request is dropped.
func (c *Controller) Reset() error {
	if c.machineState != MachineStateStarted {
		return NewMachineNotStartedError("Reset")
	}
	now := c.clock.Now()
	event := c.newStateEvent(EventReset, SeverityWarning, now)
	event.Message = fmt.Sprintf("reset from %s", c.state.Phase)

	c.state = ControllerState{
		Phase:      Red,
		PhaseStart: now,
		Pedestrian: Idle,
		LastPress:  Never,
	}
	c.transitions++

	c.assertPhaseOutputs(now)
	event.Signals = c.commanded
	c.log(event)
	c.publish(now)
	return nil
}

// Started reports whether the controller is running
func (c *Controller) Started() bool {
	return c.machineState == MachineStateStarted
}

// State returns a copy of the controller state
func (c *Controller) State() ControllerState {
	return c.state
}

// CurrentPhase returns the active phase
func (c *Controller) CurrentPhase() Phase {
	return c.state.Phase
}

// Commanded returns the signals the controller last applied
func (c *Controller) Commanded() Signals {
	return c.commanded
}

// Config returns the controller configuration
func (c *Controller) Config() Config {
	return c.config
}

// AddSink registers another event sink
func (c *Controller) AddSink(sink EventSink) {
	c.sinks.Add(sink)
}

// Snapshot returns the state published by the most recent tick
func (c *Controller) Snapshot() Snapshot {
	c.snapshotMutex.RLock()
	defer c.snapshotMutex.RUnlock()
	return c.snapshot
}

// Tick runs one read-compute-apply pass
func (c *Controller) Tick() *TickResult {
	if c.machineState != MachineStateStarted {
		return &TickResult{
			Phase:   c.state.Phase,
			Request: c.state.Pedestrian,
			Error:   NewMachineNotStartedError("Tick"),
		}
	}

	now := c.clock.Now()
	c.ticks++
	result := &TickResult{Now: now}
	defer func() {
		result.Phase = c.state.Phase
		result.Request = c.state.Pedestrian
		c.publish(now)
	}()

	if !c.state.Phase.Valid() {
		result.Error = c.recoverUnknownPhase(now)
		return result
	}

	elapsed := now.Sub(c.state.PhaseStart)
	if press, ok := Debounce(c.button.IsPressed(), now, c.state.LastPress, c.config.DebounceWindow); ok {
		c.state.LastPress = press.At
		result.Pressed = true

		event := c.newStateEvent(EventPress, SeverityDebug, now)
		c.log(event)

		c.setRequest(OnPress(c.state.Pedestrian, c.state.Phase, elapsed, c.config.GreenMinimumDuration), now)
	}

	if tr, ok := Step(c.state.Phase, elapsed, c.state.Pedestrian, c.timings); ok {
		tr.At = now
		committed, err := c.commit(tr)
		if committed {
			result.Transition = &tr
		}
		if err != nil {
			if IsViolationError(err) {
				result.Violation = err
			} else {
				result.Error = err
			}
		}
	}

	c.setRequest(OnTick(c.state.Pedestrian, c.state.Phase, now.Sub(c.state.PhaseStart), c.config.GreenMinimumDuration), now)

	if err := c.verifyAsserted(now); err != nil {
		result.Violation = err
	}

	return result
}

// commit applies a proposed transition. A transition refused by a safety check
// leaves the phase unchanged and returns false. A committed transition whose
// outputs fail verification returns true together with the violation.
func (c *Controller) commit(tr Transition) (bool, error) {
	if err := VerifyTransition(tr.From, tr.To); err != nil {
		c.logBlocked(tr, err)
		return false, err
	}
	if err := VerifyMinimumGreen(tr, c.config.GreenMinimumDuration); err != nil {
		c.logBlocked(tr, err)
		return false, err
	}

	c.state.Phase = tr.To
	c.state.PhaseStart = tr.At
	c.transitions++
	if clearsRequest(tr) {
		c.setRequest(Idle, tr.At)
	}

	signals, _ := c.project(tr.To)
	event := c.newStateEvent(EventTransition, SeverityInfo, tr.At)
	event.From = tr.From
	event.To = tr.To
	event.Cause = tr.Cause
	event.Elapsed = tr.Elapsed
	event.Signals = signals
	event.Message = fmt.Sprintf("left %s after %s", tr.From, tr.Elapsed)
	c.log(event)

	if err := Verify(signals); err != nil {
		c.force(FailSafeSignals, tr.At, signals, err)
		return true, err
	}

	c.apply(signals, false)
	return true, nil
}

// verifyAsserted re-checks whatever is on the outputs right now
func (c *Controller) verifyAsserted(now Timestamp) error {
	asserted := c.commanded
	if reader, ok := c.actuator.(SignalReader); ok {
		asserted = reader.Asserted()
	}
	err := Verify(asserted)
	if err != nil {
		c.force(EmergencySignals, now, asserted, err)
	}
	return err
}

// assertPhaseOutputs applies the projection of the current phase, falling back
// to the fail-safe pattern if it does not verify.
func (c *Controller) assertPhaseOutputs(now Timestamp) {
	signals, _ := c.project(c.state.Phase)
	if err := Verify(signals); err != nil {
		c.force(FailSafeSignals, now, signals, err)
		return
	}
	c.apply(signals, false)
}

func (c *Controller) recoverUnknownPhase(now Timestamp) error {
	err := NewPhaseError(c.state.Phase, "unrecognized phase, resetting to red")

	event := c.newStateEvent(EventFault, SeverityCritical, now)
	event.From = c.state.Phase
	event.To = Red
	event.Cause = CauseRecovery
	event.Elapsed = now.Sub(c.state.PhaseStart)
	event.Message = err.Error()

	c.state.Phase = Red
	c.state.PhaseStart = now
	c.state.Pedestrian = Idle
	c.transitions++

	c.assertPhaseOutputs(now)
	event.Signals = c.commanded
	c.log(event)
	return err
}

func (c *Controller) force(signals Signals, now Timestamp, offending Signals, err error) {
	event := c.newStateEvent(EventViolation, SeverityError, now)
	event.Signals = offending
	if v, ok := err.(*ViolationError); ok {
		event.Violation = v.Kind
	}
	event.Message = fmt.Sprintf("forcing %s", signals)
	c.apply(signals, true)
	c.log(event)
}

func (c *Controller) apply(signals Signals, forced bool) {
	c.commanded = signals
	c.forced = forced
	c.actuator.Apply(signals)
}

func (c *Controller) setRequest(next RequestState, now Timestamp) {
	if next == c.state.Pedestrian {
		return
	}
	previous := c.state.Pedestrian
	c.state.Pedestrian = next

	event := c.newStateEvent(EventRequestChanged, SeverityInfo, now)
	event.Message = fmt.Sprintf("%s -> %s", previous, next)
	c.log(event)
}

func (c *Controller) logBlocked(tr Transition, err error) {
	event := c.newStateEvent(EventTransitionBlocked, SeverityWarning, tr.At)
	event.From = tr.From
	event.To = tr.To
	event.Cause = tr.Cause
	event.Elapsed = tr.Elapsed
	if te, ok := err.(*TransitionError); ok {
		event.Violation = te.Violation
	}
	event.Message = err.Error()
	c.log(event)
}

func (c *Controller) newStateEvent(kind EventKind, severity Severity, now Timestamp) Event {
	event := NewEvent(kind, severity, now)
	event.Phase = c.state.Phase
	event.Request = c.state.Pedestrian
	event.Signals = c.commanded
	return event
}

func (c *Controller) log(event Event) {
	c.sinks.Log(event)
}

func (c *Controller) publish(now Timestamp) {
	snapshot := newSnapshot(c.state, c.config, now)
	snapshot.Running = c.machineState == MachineStateStarted
	snapshot.Signals = c.commanded
	snapshot.Forced = c.forced
	snapshot.Ticks = c.ticks
	snapshot.Transitions = c.transitions

	c.snapshotMutex.Lock()
	c.snapshot = snapshot
	c.snapshotMutex.Unlock()
}

// Run ticks the controller every TickPeriod until ctx is cancelled. It starts
// the controller if needed and stops it on return.
func (c *Controller) Run(ctx context.Context) error {
	if !c.Started() {
		if err := c.Start(); err != nil {
			return err
		}
	}

	ticker := time.NewTicker(c.config.TickPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return c.Stop()
		case <-ticker.C:
			c.Tick()
		}
	}
}

// Simulate drives the controller from a manual clock, ticking every TickPeriod
// until the clock reaches until. before, if not nil, runs ahead of each tick so
// callers can script button activity. The committed transitions are returned.
func (c *Controller) Simulate(clock *ManualClock, until Timestamp, before func(now Timestamp)) ([]Transition, error) {
	if Clock(clock) != c.clock {
		return nil, NewConfigurationError("Simulate", "controller is not driven by the given manual clock")
	}
	if !c.Started() {
		if err := c.Start(); err != nil {
			return nil, err
		}
	}

	var transitions []Transition
	for clock.Now() < until {
		now := clock.Advance(c.config.TickPeriod)
		if before != nil {
			before(now)
		}
		if result := c.Tick(); result.Transition != nil {
			transitions = append(transitions, *result.Transition)
		}
	}
	return transitions, nil
}
