package pelican

import (
	"fmt"
	"time"
)

// ViolationKind names the invariant a safety check found broken
type ViolationKind int

const (
	// NoViolation is the zero value
	NoViolation ViolationKind = iota
	// MutualExclusionViolated means traffic green and pedestrian green are both on
	MutualExclusionViolated
	// ProgressiveWarningViolated means Green was about to go straight to Red
	ProgressiveWarningViolated
	// MinimumGreenViolated means Green was interrupted before its guaranteed minimum
	MinimumGreenViolated
)

// String returns the violation name
func (k ViolationKind) String() string {
	switch k {
	case NoViolation:
		return "None"
	case MutualExclusionViolated:
		return "MutualExclusionViolated"
	case ProgressiveWarningViolated:
		return "ProgressiveWarningViolated"
	case MinimumGreenViolated:
		return "MinimumGreenViolated"
	default:
		return fmt.Sprintf("ViolationKind(%d)", int(k))
	}
}

// MarshalText implements encoding.TextMarshaler
func (k ViolationKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Verify checks a signal tuple against the mutual exclusion invariant
func Verify(signals Signals) error {
	if signals.TrafficGreen && signals.PedestrianGreen {
		return NewViolationError(MutualExclusionViolated,
			fmt.Sprintf("traffic green and pedestrian green both asserted %s", signals))
	}
	return nil
}

// VerifyTransition checks a proposed transition before it is committed
func VerifyTransition(from, to Phase) error {
	if from == Green && to == Red {
		return NewTransitionBlockedError(from, to, ProgressiveWarningViolated,
			"green must pass through amber before red")
	}
	if !CanTransition(from, to) {
		return NewTransitionNotAllowedError(from, to)
	}
	return nil
}

// VerifyMinimumGreen checks that a pedestrian interrupt leaves Green only after
// the configured minimum.
func VerifyMinimumGreen(tr Transition, minGreen time.Duration) error {
	if tr.From != Green || tr.Cause != CausePedestrianInterrupt {
		return nil
	}
	if tr.Elapsed < minGreen {
		return NewTransitionBlockedError(tr.From, tr.To, MinimumGreenViolated,
			fmt.Sprintf("green lasted %s of the required %s", tr.Elapsed, minGreen))
	}
	return nil
}
