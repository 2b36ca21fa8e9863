package pelican

import (
	"fmt"
	"io"
	"sync"
	"sync/atomic"
)

// ButtonInput reads the pedestrian button level. Active-low inversion happens
// upstream, so true means pressed.
type ButtonInput interface {
	IsPressed() bool
}

// ButtonFunc adapts a function to the ButtonInput interface
type ButtonFunc func() bool

// IsPressed calls f()
func (f ButtonFunc) IsPressed() bool {
	return f()
}

// VirtualButton is a button whose level is set in software
type VirtualButton struct {
	level atomic.Bool
}

// NewVirtualButton creates a released virtual button
func NewVirtualButton() *VirtualButton {
	return &VirtualButton{}
}

// Press holds the button down
func (b *VirtualButton) Press() {
	b.level.Store(true)
}

// Release lets the button go
func (b *VirtualButton) Release() {
	b.level.Store(false)
}

// IsPressed returns the current level
func (b *VirtualButton) IsPressed() bool {
	return b.level.Load()
}

// ActuatorOutput drives the physical lamps. Apply must be idempotent and free of
// side effects when called with unchanged values.
type ActuatorOutput interface {
	Apply(signals Signals)
}

// SignalReader is implemented by actuators that can read back what is actually
// asserted, which may differ from what was commanded after an external fault.
type SignalReader interface {
	Asserted() Signals
}

// MemoryActuator keeps the asserted signals in memory and records every change
type MemoryActuator struct {
	mutex    sync.RWMutex
	asserted Signals
	history  []Signals
}

// NewMemoryActuator creates an actuator with every output off
func NewMemoryActuator() *MemoryActuator {
	return &MemoryActuator{history: make([]Signals, 0)}
}

// Apply asserts signals, recording them only if they differ from what is asserted
func (a *MemoryActuator) Apply(signals Signals) {
	a.mutex.Lock()
	defer a.mutex.Unlock()
	if len(a.history) > 0 && a.asserted == signals {
		return
	}
	a.asserted = signals
	a.history = append(a.history, signals)
}

// Force overwrites the asserted outputs without recording them, simulating an
// external fault on the output stage.
func (a *MemoryActuator) Force(signals Signals) {
	a.mutex.Lock()
	defer a.mutex.Unlock()
	a.asserted = signals
}

// Asserted returns the currently asserted signals
func (a *MemoryActuator) Asserted() Signals {
	a.mutex.RLock()
	defer a.mutex.RUnlock()
	return a.asserted
}

// History returns every distinct tuple applied so far
func (a *MemoryActuator) History() []Signals {
	a.mutex.RLock()
	defer a.mutex.RUnlock()
	result := make([]Signals, len(a.history))
	copy(result, a.history)
	return result
}

// ConsoleActuator prints every changed tuple to a writer
type ConsoleActuator struct {
	mutex   sync.Mutex
	out     io.Writer
	clock   Clock
	last    Signals
	applied bool
}

// NewConsoleActuator creates an actuator writing to out. The clock, if not nil,
// stamps every line.
func NewConsoleActuator(out io.Writer, clock Clock) *ConsoleActuator {
	return &ConsoleActuator{out: out, clock: clock}
}

// Apply prints signals if they changed
func (a *ConsoleActuator) Apply(signals Signals) {
	a.mutex.Lock()
	defer a.mutex.Unlock()
	if a.applied && a.last == signals {
		return
	}
	a.last = signals
	a.applied = true

	stamp := ""
	if a.clock != nil {
		stamp = a.clock.Now().String() + " "
	}
	fmt.Fprintf(a.out, "%ssignals %s traffic=%s pedestrian=%s\n",
		stamp, signals, trafficLamp(signals), pedestrianLamp(signals))
}

// Asserted returns the last printed signals
func (a *ConsoleActuator) Asserted() Signals {
	a.mutex.Lock()
	defer a.mutex.Unlock()
	return a.last
}

func trafficLamp(s Signals) string {
	switch {
	case s.TrafficRed && s.TrafficAmber:
		return "RED+AMBER"
	case s.TrafficRed:
		return "RED"
	case s.TrafficAmber:
		return "AMBER"
	case s.TrafficGreen:
		return "GREEN"
	default:
		return "OFF"
	}
}

func pedestrianLamp(s Signals) string {
	switch {
	case s.PedestrianGreen && s.PedestrianRed:
		return "RED+GREEN"
	case s.PedestrianGreen:
		return "WALK"
	case s.PedestrianRed:
		return "DONT_WALK"
	default:
		return "OFF"
	}
}
