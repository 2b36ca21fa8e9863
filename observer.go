package pelican

import (
	"fmt"
	"sync"
)

// EventSink receives informational controller events. Log must not block;
// a panicking sink is recovered and never fails the tick.
type EventSink interface {
	Log(event Event)
}

// SinkFunc adapts a function to the EventSink interface
type SinkFunc func(event Event)

// Log calls f(event)
func (f SinkFunc) Log(event Event) {
	f(event)
}

// PanicReporter is implemented by sinks that want to hear about panics raised
// by other sinks in the same group.
type PanicReporter interface {
	OnSinkPanic(err error)
}

// SinkGroup fans events out to a collection of sinks
type SinkGroup struct {
	mutex sync.RWMutex
	sinks []EventSink
}

// NewSinkGroup creates a new sink group
func NewSinkGroup(sinks ...EventSink) *SinkGroup {
	group := &SinkGroup{sinks: make([]EventSink, 0, len(sinks))}
	for _, sink := range sinks {
		group.Add(sink)
	}
	return group
}

// Add adds a sink to the group
func (g *SinkGroup) Add(sink EventSink) {
	if sink == nil {
		return
	}
	g.mutex.Lock()
	defer g.mutex.Unlock()
	g.sinks = append(g.sinks, sink)
}

// Remove removes a sink from the group. The sink must be comparable, so
// SinkFunc values cannot be removed.
func (g *SinkGroup) Remove(sink EventSink) {
	g.mutex.Lock()
	defer g.mutex.Unlock()
	for i, s := range g.sinks {
		if s == sink {
			g.sinks = append(g.sinks[:i], g.sinks[i+1:]...)
			break
		}
	}
}

// Len returns the number of sinks
func (g *SinkGroup) Len() int {
	g.mutex.RLock()
	defer g.mutex.RUnlock()
	return len(g.sinks)
}

// Log delivers the event to every sink
func (g *SinkGroup) Log(event Event) {
	g.mutex.RLock()
	sinks := make([]EventSink, len(g.sinks))
	copy(sinks, g.sinks)
	g.mutex.RUnlock()

	for i, sink := range sinks {
		if r := deliver(sink, event); r != nil {
			g.reportPanic(sinks, i, fmt.Errorf("sink panic in Log(%s): %v", event.Kind, r))
		}
	}
}

func deliver(sink EventSink, event Event) (recovered any) {
	defer func() {
		recovered = recover()
	}()
	sink.Log(event)
	return nil
}

func (g *SinkGroup) reportPanic(sinks []EventSink, culprit int, err error) {
	for i, sink := range sinks {
		if i == culprit {
			continue
		}
		if reporter, ok := sink.(PanicReporter); ok {
			func() {
				defer func() { recover() }()
				reporter.OnSinkPanic(err)
			}()
		}
	}
}
