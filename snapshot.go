package pelican

import "time"

// ControllerState is the single aggregate mutated by the tick step
type ControllerState struct {
	Phase      Phase
	PhaseStart Timestamp
	Pedestrian RequestState
	LastPress  Timestamp
}

// Snapshot is a copy of the controller state taken at the end of a tick. It is
// safe to hand to readers on other goroutines.
type Snapshot struct {
	Now         Timestamp     `json:"now"`
	Running     bool          `json:"running"`
	Phase       Phase         `json:"phase"`
	PhaseStart  Timestamp     `json:"phase_start"`
	Elapsed     time.Duration `json:"elapsed"`
	Remaining   time.Duration `json:"remaining"`
	Pedestrian  RequestState  `json:"pedestrian"`
	LastPress   Timestamp     `json:"last_press"`
	Signals     Signals       `json:"signals"`
	Forced      bool          `json:"forced"`
	Ticks       uint64        `json:"ticks"`
	Transitions uint64        `json:"transitions"`
}

func newSnapshot(state ControllerState, cfg Config, now Timestamp) Snapshot {
	elapsed := now.Sub(state.PhaseStart)
	remaining := cfg.Duration(state.Phase) - elapsed
	if remaining < 0 {
		remaining = 0
	}
	return Snapshot{
		Now:        now,
		Phase:      state.Phase,
		PhaseStart: state.PhaseStart,
		Elapsed:    elapsed,
		Remaining:  remaining,
		Pedestrian: state.Pedestrian,
		LastPress:  state.LastPress,
	}
}
