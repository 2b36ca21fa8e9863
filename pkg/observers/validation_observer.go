package observers

import (
	"fmt"
	"sync"
	"time"

	"github.com/anggasct/pelican"
)

// ValidationObserver audits the transition stream independently of the
// controller's own checks
type ValidationObserver struct {
	minGreen      time.Duration
	visitedPhases map[pelican.Phase]bool
	violations    []string
	transitions   []pelican.Transition
	lastGreenExit *pelican.Transition
	mutex         sync.RWMutex
}

// NewValidationObserver creates a validation observer for the given minimum green
func NewValidationObserver(minGreen time.Duration) *ValidationObserver {
	return &ValidationObserver{
		minGreen:      minGreen,
		visitedPhases: make(map[pelican.Phase]bool),
		violations:    make([]string, 0),
	}
}

// Log implements pelican.EventSink
func (o *ValidationObserver) Log(event pelican.Event) {
	o.mutex.Lock()
	defer o.mutex.Unlock()

	switch event.Kind {
	case pelican.EventStarted:
		o.visitedPhases[event.Phase] = true
		o.checkSignals(event)
	case pelican.EventTransition:
		o.onTransition(event)
	case pelican.EventFault, pelican.EventReset:
		o.visitedPhases[pelican.Red] = true
		o.lastGreenExit = nil
	}
}

func (o *ValidationObserver) onTransition(event pelican.Event) {
	tr := pelican.Transition{
		From:    event.From,
		To:      event.To,
		Cause:   event.Cause,
		At:      event.At,
		Elapsed: event.Elapsed,
	}
	o.transitions = append(o.transitions, tr)
	o.visitedPhases[tr.To] = true

	if tr.From == pelican.Green && tr.To == pelican.Red {
		o.addViolation(fmt.Sprintf("%s: green went straight to red", tr.At))
	} else if !pelican.CanTransition(tr.From, tr.To) {
		o.addViolation(fmt.Sprintf("%s: invalid transition %s -> %s", tr.At, tr.From, tr.To))
	}

	if tr.From == pelican.Green {
		exit := tr
		o.lastGreenExit = &exit
	}
	if tr.From == pelican.Amber && tr.To == pelican.PedestrianCrossing && o.lastGreenExit != nil {
		if o.lastGreenExit.Elapsed < o.minGreen {
			o.addViolation(fmt.Sprintf("%s: crossing granted after only %s of green",
				tr.At, o.lastGreenExit.Elapsed))
		}
	}

	o.checkSignals(event)
}

func (o *ValidationObserver) checkSignals(event pelican.Event) {
	if err := pelican.Verify(event.Signals); err != nil {
		o.addViolation(fmt.Sprintf("%s: %v", event.At, err))
	}
}

func (o *ValidationObserver) addViolation(message string) {
	o.violations = append(o.violations, message)
}

// GetViolations returns all validation violations
func (o *ValidationObserver) GetViolations() []string {
	o.mutex.RLock()
	defer o.mutex.RUnlock()

	result := make([]string, len(o.violations))
	copy(result, o.violations)
	return result
}

// GetTransitions returns every transition seen so far
func (o *ValidationObserver) GetTransitions() []pelican.Transition {
	o.mutex.RLock()
	defer o.mutex.RUnlock()

	result := make([]pelican.Transition, len(o.transitions))
	copy(result, o.transitions)
	return result
}

// GetUnvisitedPhases returns the phases never entered
func (o *ValidationObserver) GetUnvisitedPhases() []pelican.Phase {
	o.mutex.RLock()
	defer o.mutex.RUnlock()

	var unvisited []pelican.Phase
	for _, phase := range pelican.AllPhases() {
		if !o.visitedPhases[phase] {
			unvisited = append(unvisited, phase)
		}
	}
	return unvisited
}

// HasViolations returns whether any violations occurred
func (o *ValidationObserver) HasViolations() bool {
	o.mutex.RLock()
	defer o.mutex.RUnlock()
	return len(o.violations) > 0
}

// Reset resets the validation state
func (o *ValidationObserver) Reset() {
	o.mutex.Lock()
	defer o.mutex.Unlock()

	o.visitedPhases = make(map[pelican.Phase]bool)
	o.violations = make([]string, 0)
	o.transitions = nil
	o.lastGreenExit = nil
}
