package pelican

import "strings"

// Signals is the discrete output tuple asserted on the actuators
type Signals struct {
	TrafficRed      bool `json:"traffic_red"`
	TrafficAmber    bool `json:"traffic_amber"`
	TrafficGreen    bool `json:"traffic_green"`
	PedestrianRed   bool `json:"pedestrian_red"`
	PedestrianGreen bool `json:"pedestrian_green"`
}

var (
	// FailSafeSignals is forced when a freshly committed phase fails verification:
	// all traffic lights off, pedestrian red on.
	FailSafeSignals = Signals{PedestrianRed: true}

	// EmergencySignals is forced when the asserted outputs fail the per-tick check
	EmergencySignals = Signals{TrafficRed: true, PedestrianRed: true}
)

// projection is the single source of truth for mutual exclusion: no entry sets
// both TrafficGreen and PedestrianGreen.
var projection = map[Phase]Signals{
	Red:                {TrafficRed: true, PedestrianRed: true},
	RedAmber:           {TrafficRed: true, TrafficAmber: true, PedestrianRed: true},
	Green:              {TrafficGreen: true, PedestrianRed: true},
	Amber:              {TrafficAmber: true, PedestrianRed: true},
	PedestrianCrossing: {TrafficRed: true, PedestrianGreen: true},
}

// Project maps a phase to the signals that must be asserted for it.
// It returns false for an unknown phase.
func Project(phase Phase) (Signals, bool) {
	signals, ok := projection[phase]
	return signals, ok
}

// Tuple returns the signals in (red, amber, green, ped_red, ped_green) order
func (s Signals) Tuple() [5]bool {
	return [5]bool{s.TrafficRed, s.TrafficAmber, s.TrafficGreen, s.PedestrianRed, s.PedestrianGreen}
}

// String renders the tuple as "(1,0,0,1,0)"
func (s Signals) String() string {
	var sb strings.Builder
	sb.WriteByte('(')
	for i, on := range s.Tuple() {
		if i > 0 {
			sb.WriteByte(',')
		}
		if on {
			sb.WriteByte('1')
		} else {
			sb.WriteByte('0')
		}
	}
	sb.WriteByte(')')
	return sb.String()
}
