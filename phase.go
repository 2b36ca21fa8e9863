package pelican

import (
	"fmt"
	"strings"
)

// Phase is one named state of the traffic/pedestrian signal cycle
type Phase int

const (
	// Red stops vehicle traffic
	Red Phase = iota
	// RedAmber warns vehicles that Green follows
	RedAmber
	// Green lets vehicle traffic flow
	Green
	// Amber warns vehicles that Red follows
	Amber
	// PedestrianCrossing holds traffic on Red while pedestrians cross
	PedestrianCrossing
)

var phaseNames = map[Phase]string{
	Red:                "red",
	RedAmber:           "red_amber",
	Green:              "green",
	Amber:              "amber",
	PedestrianCrossing: "pedestrian_crossing",
}

// AllPhases lists every phase in cycle order
func AllPhases() []Phase {
	return []Phase{Red, RedAmber, Green, Amber, PedestrianCrossing}
}

// String returns the phase name
func (p Phase) String() string {
	if name, ok := phaseNames[p]; ok {
		return name
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

// Valid reports whether p is one of the five known phases
func (p Phase) Valid() bool {
	_, ok := phaseNames[p]
	return ok
}

// MarshalText implements encoding.TextMarshaler
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (p *Phase) UnmarshalText(text []byte) error {
	phase, err := ParsePhase(string(text))
	if err != nil {
		return err
	}
	*p = phase
	return nil
}

// ParsePhase converts a phase name back into a Phase
func ParsePhase(name string) (Phase, error) {
	normalized := strings.ToLower(strings.TrimSpace(name))
	normalized = strings.NewReplacer("-", "_", "+", "_", " ", "_").Replace(normalized)
	for phase, phaseName := range phaseNames {
		if phaseName == normalized {
			return phase, nil
		}
	}
	return Red, NewPhaseError(Phase(-1), fmt.Sprintf("unknown phase name '%s'", name))
}

// phaseGraph is the fixed directed transition graph. Green has no edge to Red.
var phaseGraph = map[Phase][]Phase{
	Red:                {RedAmber},
	RedAmber:           {Green},
	Green:              {Amber},
	Amber:              {Red, PedestrianCrossing},
	PedestrianCrossing: {Red},
}

// Successors returns the phases reachable from p in one transition
func Successors(p Phase) []Phase {
	next := phaseGraph[p]
	result := make([]Phase, len(next))
	copy(result, next)
	return result
}

// CanTransition reports whether from -> to is an edge of the phase graph
func CanTransition(from, to Phase) bool {
	for _, next := range phaseGraph[from] {
		if next == to {
			return true
		}
	}
	return false
}

// RequestState is the pedestrian request arbitration state
type RequestState int

const (
	// Idle means no request is outstanding
	Idle RequestState = iota
	// Waiting means a press was registered but activation is deferred
	Waiting
	// Active means the request may force the next exit from Green/Amber
	Active
)

// String returns the request state name
func (r RequestState) String() string {
	switch r {
	case Idle:
		return "idle"
	case Waiting:
		return "waiting"
	case Active:
		return "active"
	default:
		return fmt.Sprintf("request(%d)", int(r))
	}
}

// MarshalText implements encoding.TextMarshaler
func (r RequestState) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (r *RequestState) UnmarshalText(text []byte) error {
	for _, state := range []RequestState{Idle, Waiting, Active} {
		if state.String() == string(text) {
			*r = state
			return nil
		}
	}
	return fmt.Errorf("unknown request state '%s'", text)
}
