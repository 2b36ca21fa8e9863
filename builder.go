package pelican

import "time"

// ControllerBuilder provides the entry point for assembling a controller
type ControllerBuilder interface {
	WithConfig(cfg Config) ControllerBuilder
	WithTimings(timings Timings) ControllerBuilder
	WithDebounceWindow(window time.Duration) ControllerBuilder
	WithTickPeriod(period time.Duration) ControllerBuilder

	WithClock(clock Clock) ControllerBuilder
	WithButton(button ButtonInput) ControllerBuilder
	WithActuator(actuator ActuatorOutput) ControllerBuilder
	WithSink(sinks ...EventSink) ControllerBuilder

	Build() (*Controller, error)
}

// controllerBuilderImpl implements ControllerBuilder
type controllerBuilderImpl struct {
	config   Config
	clock    Clock
	button   ButtonInput
	actuator ActuatorOutput
	sinks    []EventSink
}

// NewBuilder creates a builder preloaded with DefaultConfig and a system clock
func NewBuilder() ControllerBuilder {
	return &controllerBuilderImpl{
		config: DefaultConfig(),
		sinks:  make([]EventSink, 0),
	}
}

// WithConfig replaces the whole configuration
func (b *controllerBuilderImpl) WithConfig(cfg Config) ControllerBuilder {
	b.config = cfg
	return b
}

// WithTimings replaces the phase durations, keeping debounce and tick settings
func (b *controllerBuilderImpl) WithTimings(timings Timings) ControllerBuilder {
	b.config.RedDuration = timings.Red
	b.config.RedAmberDuration = timings.RedAmber
	b.config.GreenDuration = timings.Green
	b.config.GreenMinimumDuration = timings.GreenMinimum
	b.config.AmberDuration = timings.Amber
	b.config.PedestrianCrossingDuration = timings.Crossing
	return b
}

// WithDebounceWindow sets the button debounce window
func (b *controllerBuilderImpl) WithDebounceWindow(window time.Duration) ControllerBuilder {
	b.config.DebounceWindow = window
	return b
}

// WithTickPeriod sets the Run cadence
func (b *controllerBuilderImpl) WithTickPeriod(period time.Duration) ControllerBuilder {
	b.config.TickPeriod = period
	return b
}

// WithClock sets the time source
func (b *controllerBuilderImpl) WithClock(clock Clock) ControllerBuilder {
	b.clock = clock
	return b
}

// WithButton sets the pedestrian button
func (b *controllerBuilderImpl) WithButton(button ButtonInput) ControllerBuilder {
	b.button = button
	return b
}

// WithActuator sets the lamp driver
func (b *controllerBuilderImpl) WithActuator(actuator ActuatorOutput) ControllerBuilder {
	b.actuator = actuator
	return b
}

// WithSink adds event sinks
func (b *controllerBuilderImpl) WithSink(sinks ...EventSink) ControllerBuilder {
	b.sinks = append(b.sinks, sinks...)
	return b
}

// Build validates the configuration and returns a stopped controller
func (b *controllerBuilderImpl) Build() (*Controller, error) {
	if err := b.config.Validate(); err != nil {
		return nil, err
	}
	if b.actuator == nil {
		return nil, NewConfigurationError("ControllerBuilder", "an actuator output is required")
	}

	clock := b.clock
	if clock == nil {
		clock = NewSystemClock()
	}
	button := b.button
	if button == nil {
		button = ButtonFunc(func() bool { return false })
	}

	c := &Controller{
		config:       b.config,
		timings:      b.config.Timings(),
		clock:        clock,
		button:       button,
		actuator:     b.actuator,
		sinks:        NewSinkGroup(b.sinks...),
		project:      Project,
		machineState: MachineStateStopped,
		state: ControllerState{
			Phase:      Red,
			Pedestrian: Idle,
			LastPress:  Never,
		},
	}
	c.publish(clock.Now())
	return c, nil
}
