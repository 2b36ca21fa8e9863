package pelican

import "time"

// OnPress arbitrates a debounced press. Only an Idle request can change; a press
// in Green past the minimum activates immediately, anything else is queued.
func OnPress(state RequestState, phase Phase, elapsedInPhase, minGreen time.Duration) RequestState {
	if state != Idle {
		return state
	}
	if phase == Green && elapsedInPhase >= minGreen {
		return Active
	}
	return Waiting
}

// OnTick promotes a Waiting request to Active once Green has lasted minGreen
func OnTick(state RequestState, phase Phase, elapsedInPhase, minGreen time.Duration) RequestState {
	if state == Waiting && phase == Green && elapsedInPhase >= minGreen {
		return Active
	}
	return state
}

// clearsRequest reports whether entering or leaving through tr consumes the
// outstanding pedestrian request.
func clearsRequest(tr Transition) bool {
	return tr.To == PedestrianCrossing || tr.From == PedestrianCrossing
}
