// Package pelican implements the phase controller of a timed pedestrian crossing:
// a vehicle signal cycling Red, Red+Amber, Green, Amber and back to Red, which a
// pedestrian request can divert into a crossing phase.
//
// The controller is driven by ticks. Each tick reads the clock and the button,
// debounces presses, arbitrates the pedestrian request, steps the phase machine,
// projects the phase onto the lamp outputs and verifies the safety invariants.
// Hardware, time and logging are reached through the Clock, ButtonInput,
// ActuatorOutput and EventSink interfaces.
package pelican
