package pelican

import "time"

// DefaultDebounceWindow is the press suppression window used when none is configured
const DefaultDebounceWindow = 200 * time.Millisecond

// PressEvent is a clean, debounced button press
type PressEvent struct {
	At Timestamp
}

// Debounce turns a raw button reading into a press event. A press is reported
// only when rawPressed is true and more than window has passed since lastPress.
// A lastPress of Never is always outside the window.
func Debounce(rawPressed bool, now, lastPress Timestamp, window time.Duration) (PressEvent, bool) {
	if !rawPressed {
		return PressEvent{}, false
	}
	if lastPress != Never && now.Sub(lastPress) <= window {
		return PressEvent{}, false
	}
	return PressEvent{At: now}, true
}
