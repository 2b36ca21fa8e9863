package observers

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/anggasct/pelican"
)

// MetricsObserver collects metrics about controller execution. Time is taken
// from event timestamps, so simulated runs report simulated durations.
type MetricsObserver struct {
	phaseVisits      map[pelican.Phase]int
	phaseTimeSpent   map[pelican.Phase]time.Duration
	transitionCounts map[string]int
	violationCounts  map[pelican.ViolationKind]int
	pressCount       int
	blockedCount     int
	faultCount       int

	currentPhase pelican.Phase
	phaseEntry   pelican.Timestamp
	entered      bool

	transitionsTotal *prometheus.CounterVec
	violationsTotal  *prometheus.CounterVec
	pressesTotal     prometheus.Counter
	blockedTotal     prometheus.Counter
	faultsTotal      prometheus.Counter
	phaseGauge       prometheus.Gauge
	phaseSeconds     *prometheus.CounterVec

	mutex sync.RWMutex
}

// MetricsSnapshot is a JSON friendly copy of the collected metrics
type MetricsSnapshot struct {
	PhaseVisits      map[string]int     `json:"phase_visits"`
	PhaseSeconds     map[string]float64 `json:"phase_seconds"`
	TransitionCounts map[string]int     `json:"transition_counts"`
	ViolationCounts  map[string]int     `json:"violation_counts"`
	Presses          int                `json:"presses"`
	Blocked          int                `json:"blocked"`
	Faults           int                `json:"faults"`
	CurrentPhase     string             `json:"current_phase"`
}

// NewMetricsObserver creates a new metrics observer
func NewMetricsObserver() *MetricsObserver {
	return &MetricsObserver{
		phaseVisits:      make(map[pelican.Phase]int),
		phaseTimeSpent:   make(map[pelican.Phase]time.Duration),
		transitionCounts: make(map[string]int),
		violationCounts:  make(map[pelican.ViolationKind]int),

		transitionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pelican",
			Name:      "transitions_total",
			Help:      "Committed phase transitions.",
		}, []string{"from", "to", "cause"}),
		violationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pelican",
			Name:      "safety_violations_total",
			Help:      "Invariant violations detected on the outputs.",
		}, []string{"kind"}),
		pressesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "pelican",
			Name:      "button_presses_total",
			Help:      "Debounced pedestrian button presses.",
		}),
		blockedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "pelican",
			Name:      "transitions_blocked_total",
			Help:      "Transitions refused by a safety check.",
		}),
		faultsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "pelican",
			Name:      "phase_faults_total",
			Help:      "Resets caused by an unrecognized phase.",
		}),
		phaseGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "pelican",
			Name:      "phase",
			Help:      "Active phase (0 red, 1 red_amber, 2 green, 3 amber, 4 pedestrian_crossing).",
		}),
		phaseSeconds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pelican",
			Name:      "phase_seconds_total",
			Help:      "Time spent in each completed phase.",
		}, []string{"phase"}),
	}
}

// Collectors returns the prometheus collectors backing this observer
func (o *MetricsObserver) Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		o.transitionsTotal,
		o.violationsTotal,
		o.pressesTotal,
		o.blockedTotal,
		o.faultsTotal,
		o.phaseGauge,
		o.phaseSeconds,
	}
}

// Register registers every collector with reg
func (o *MetricsObserver) Register(reg prometheus.Registerer) error {
	for _, c := range o.Collectors() {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// Log implements pelican.EventSink
func (o *MetricsObserver) Log(event pelican.Event) {
	o.mutex.Lock()
	defer o.mutex.Unlock()

	switch event.Kind {
	case pelican.EventStarted:
		o.enter(event.Phase, event.At)
	case pelican.EventTransition:
		o.leave(event.At)
		o.enter(event.To, event.At)
		o.transitionCounts[event.From.String()+"->"+event.To.String()]++
		o.transitionsTotal.WithLabelValues(event.From.String(), event.To.String(), event.Cause.String()).Inc()
	case pelican.EventFault:
		o.faultCount++
		o.faultsTotal.Inc()
		o.entered = false
		o.enter(pelican.Red, event.At)
	case pelican.EventReset:
		o.leave(event.At)
		o.enter(pelican.Red, event.At)
	case pelican.EventTransitionBlocked:
		o.blockedCount++
		o.blockedTotal.Inc()
	case pelican.EventPress:
		o.pressCount++
		o.pressesTotal.Inc()
	case pelican.EventViolation:
		o.violationCounts[event.Violation]++
		o.violationsTotal.WithLabelValues(event.Violation.String()).Inc()
	}
}

func (o *MetricsObserver) enter(phase pelican.Phase, at pelican.Timestamp) {
	o.phaseVisits[phase]++
	o.currentPhase = phase
	o.phaseEntry = at
	o.entered = true
	o.phaseGauge.Set(float64(phase))
}

func (o *MetricsObserver) leave(at pelican.Timestamp) {
	if !o.entered {
		return
	}
	spent := at.Sub(o.phaseEntry)
	o.phaseTimeSpent[o.currentPhase] += spent
	o.phaseSeconds.WithLabelValues(o.currentPhase.String()).Add(spent.Seconds())
}

// GetPhaseVisitCounts returns the number of times each phase was entered
func (o *MetricsObserver) GetPhaseVisitCounts() map[pelican.Phase]int {
	o.mutex.RLock()
	defer o.mutex.RUnlock()

	result := make(map[pelican.Phase]int)
	for phase, count := range o.phaseVisits {
		result[phase] = count
	}
	return result
}

// GetPhaseTimeSpent returns the time spent in each completed phase
func (o *MetricsObserver) GetPhaseTimeSpent() map[pelican.Phase]time.Duration {
	o.mutex.RLock()
	defer o.mutex.RUnlock()

	result := make(map[pelican.Phase]time.Duration)
	for phase, duration := range o.phaseTimeSpent {
		result[phase] = duration
	}
	return result
}

// GetTransitionCounts returns the number of times each edge was taken
func (o *MetricsObserver) GetTransitionCounts() map[string]int {
	o.mutex.RLock()
	defer o.mutex.RUnlock()

	result := make(map[string]int)
	for transition, count := range o.transitionCounts {
		result[transition] = count
	}
	return result
}

// GetViolationCounts returns the number of violations of each kind
func (o *MetricsObserver) GetViolationCounts() map[pelican.ViolationKind]int {
	o.mutex.RLock()
	defer o.mutex.RUnlock()

	result := make(map[pelican.ViolationKind]int)
	for kind, count := range o.violationCounts {
		result[kind] = count
	}
	return result
}

// GetPressCount returns the number of debounced presses
func (o *MetricsObserver) GetPressCount() int {
	o.mutex.RLock()
	defer o.mutex.RUnlock()
	return o.pressCount
}

// GetBlockedCount returns the number of refused transitions
func (o *MetricsObserver) GetBlockedCount() int {
	o.mutex.RLock()
	defer o.mutex.RUnlock()
	return o.blockedCount
}

// Snapshot returns every metric keyed by name
func (o *MetricsObserver) Snapshot() MetricsSnapshot {
	o.mutex.RLock()
	defer o.mutex.RUnlock()

	snapshot := MetricsSnapshot{
		PhaseVisits:      make(map[string]int),
		PhaseSeconds:     make(map[string]float64),
		TransitionCounts: make(map[string]int),
		ViolationCounts:  make(map[string]int),
		Presses:          o.pressCount,
		Blocked:          o.blockedCount,
		Faults:           o.faultCount,
		CurrentPhase:     o.currentPhase.String(),
	}
	for phase, count := range o.phaseVisits {
		snapshot.PhaseVisits[phase.String()] = count
	}
	for phase, spent := range o.phaseTimeSpent {
		snapshot.PhaseSeconds[phase.String()] = spent.Seconds()
	}
	for edge, count := range o.transitionCounts {
		snapshot.TransitionCounts[edge] = count
	}
	for kind, count := range o.violationCounts {
		snapshot.ViolationCounts[kind.String()] = count
	}
	return snapshot
}

// Reset clears the in-memory counters. Prometheus counters keep their totals.
func (o *MetricsObserver) Reset() {
	o.mutex.Lock()
	defer o.mutex.Unlock()

	o.phaseVisits = make(map[pelican.Phase]int)
	o.phaseTimeSpent = make(map[pelican.Phase]time.Duration)
	o.transitionCounts = make(map[string]int)
	o.violationCounts = make(map[pelican.ViolationKind]int)
	o.pressCount = 0
	o.blockedCount = 0
	o.faultCount = 0
	o.entered = false
}
