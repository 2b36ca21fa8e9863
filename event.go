package pelican

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EventKind identifies what an Event reports
type EventKind string

const (
	// EventStarted is logged once the initial Red outputs are asserted
	EventStarted EventKind = "controller_started"
	// EventStopped is logged when the controller stops
	EventStopped EventKind = "controller_stopped"
	// EventTransition is logged for every committed phase change
	EventTransition EventKind = "phase_transition"
	// EventTransitionBlocked is logged when a safety check refuses a transition
	EventTransitionBlocked EventKind = "transition_blocked"
	// EventPress is logged for every debounced button press
	EventPress EventKind = "button_press"
	// EventRequestChanged is logged when the pedestrian request state changes
	EventRequestChanged EventKind = "pedestrian_request"
	// EventViolation is logged when asserted outputs break an invariant
	EventViolation EventKind = "safety_violation"
	// EventFault is logged when an unrecognized phase forces a reset
	EventFault EventKind = "phase_fault"
	// EventReset is logged when the controller is reset to red on request
	EventReset EventKind = "controller_reset"
)

// Severity orders events by importance
type Severity int

const (
	// SeverityDebug is for high-volume diagnostics
	SeverityDebug Severity = iota
	// SeverityInfo is for normal operation
	SeverityInfo
	// SeverityWarning is for refused but harmless actions
	SeverityWarning
	// SeverityError is for recovered invariant violations
	SeverityError
	// SeverityCritical is for logic faults
	SeverityCritical
)

// String returns the severity name
func (s Severity) String() string {
	switch s {
	case SeverityDebug:
		return "DEBUG"
	case SeverityInfo:
		return "INFO"
	case SeverityWarning:
		return "WARN"
	case SeverityError:
		return "ERROR"
	case SeverityCritical:
		return "CRITICAL"
	default:
		return fmt.Sprintf("SEVERITY(%d)", int(s))
	}
}

// MarshalText implements encoding.TextMarshaler
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Event is an informational record handed to every EventSink
type Event struct {
	ID        string        `json:"id"`
	Kind      EventKind     `json:"kind"`
	Severity  Severity      `json:"severity"`
	At        Timestamp     `json:"at"`
	Phase     Phase         `json:"phase"`
	Request   RequestState  `json:"request"`
	From      Phase         `json:"from"`
	To        Phase         `json:"to"`
	Cause     Cause         `json:"cause"`
	Elapsed   time.Duration `json:"elapsed"`
	Violation ViolationKind `json:"violation"`
	Signals   Signals       `json:"signals"`
	Message   string        `json:"message,omitempty"`
}

// NewEvent creates an event stamped with a fresh ID
func NewEvent(kind EventKind, severity Severity, at Timestamp) Event {
	return Event{
		ID:       uuid.New().String(),
		Kind:     kind,
		Severity: severity,
		At:       at,
	}
}

// String renders a one-line description of the event
func (e Event) String() string {
	switch e.Kind {
	case EventTransition, EventTransitionBlocked:
		return fmt.Sprintf("%s %s %s -> %s (%s)", e.At, e.Kind, e.From, e.To, e.Cause)
	case EventViolation:
		return fmt.Sprintf("%s %s %s %s", e.At, e.Kind, e.Violation, e.Signals)
	default:
		if e.Message != "" {
			return fmt.Sprintf("%s %s %s", e.At, e.Kind, e.Message)
		}
		return fmt.Sprintf("%s %s phase=%s request=%s", e.At, e.Kind, e.Phase, e.Request)
	}
}

// TickResult represents the outcome of one controller tick
type TickResult struct {
	Now        Timestamp
	Phase      Phase
	Request    RequestState
	Pressed    bool
	Transition *Transition
	Violation  error
	Error      error
}

// StateChanged reports whether the tick committed a transition
func (r *TickResult) StateChanged() bool {
	return r.Transition != nil
}

// Success returns true if the tick ran and found no violation
func (r *TickResult) Success() bool {
	return r.Error == nil && r.Violation == nil
}
