package pelican

import (
	"fmt"
	"time"
)

// Cause explains why a transition was taken
type Cause int

const (
	// CauseTimeout is the normal end of a timed phase
	CauseTimeout Cause = iota
	// CausePedestrianInterrupt ends Green early for an active request
	CausePedestrianInterrupt
	// CausePedestrianCrossing leaves Amber into the crossing phase
	CausePedestrianCrossing
	// CauseCrossingComplete ends the crossing phase
	CauseCrossingComplete
	// CauseRecovery resets the controller after an unrecognized phase
	CauseRecovery
)

// String returns the cause name
func (c Cause) String() string {
	switch c {
	case CauseTimeout:
		return "timeout"
	case CausePedestrianInterrupt:
		return "pedestrian_interrupt"
	case CausePedestrianCrossing:
		return "pedestrian_crossing"
	case CauseCrossingComplete:
		return "crossing_complete"
	case CauseRecovery:
		return "recovery"
	default:
		return fmt.Sprintf("cause(%d)", int(c))
	}
}

// MarshalText implements encoding.TextMarshaler
func (c Cause) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// Transition represents a phase change
type Transition struct {
	From    Phase
	To      Phase
	Cause   Cause
	At      Timestamp
	Elapsed time.Duration // time spent in From
}

// String renders the transition as "green -> amber (timeout)"
func (t Transition) String() string {
	return fmt.Sprintf("%s -> %s (%s)", t.From, t.To, t.Cause)
}

// Timings are the per-phase durations used by Step
type Timings struct {
	Red          time.Duration
	RedAmber     time.Duration
	Green        time.Duration
	GreenMinimum time.Duration
	Amber        time.Duration
	Crossing     time.Duration
}

// Step decides whether the current phase should end. It returns the transition
// to take, or false if the phase persists. From, To and Cause are filled in;
// At is left for the caller.
func Step(phase Phase, elapsed time.Duration, request RequestState, timings Timings) (Transition, bool) {
	next := func(to Phase, cause Cause) (Transition, bool) {
		return Transition{From: phase, To: to, Cause: cause, Elapsed: elapsed}, true
	}

	switch phase {
	case Red:
		if elapsed >= timings.Red {
			return next(RedAmber, CauseTimeout)
		}
	case RedAmber:
		if elapsed >= timings.RedAmber {
			return next(Green, CauseTimeout)
		}
	case Green:
		if elapsed >= timings.Green {
			return next(Amber, CauseTimeout)
		}
		if request == Active {
			return next(Amber, CausePedestrianInterrupt)
		}
	case Amber:
		if elapsed >= timings.Amber {
			if request == Active || request == Waiting {
				return next(PedestrianCrossing, CausePedestrianCrossing)
			}
			return next(Red, CauseTimeout)
		}
	case PedestrianCrossing:
		if elapsed >= timings.Crossing {
			return next(Red, CauseCrossingComplete)
		}
	}
	return Transition{}, false
}
