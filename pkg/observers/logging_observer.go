// Package observers provides event sinks for monitoring a crossing controller
package observers

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/anggasct/pelican"
)

// LogLevel represents the logging level
type LogLevel int

const (
	// LogError logs only errors
	LogError LogLevel = iota
	// LogWarning logs errors and warnings
	LogWarning
	// LogInfo logs errors, warnings, and info
	LogInfo
	// LogDebug logs errors, warnings, info, and debug
	LogDebug
)

// LevelCritical sits above slog.LevelError for phase faults
const LevelCritical = slog.Level(12)

// LoggingObserver writes controller events as structured log records
type LoggingObserver struct {
	level     LogLevel
	prefix    string
	mutex     sync.RWMutex
	logger    *slog.Logger
	formatter LogFormatter
}

// LogFormatter turns an event into the attributes of its log record
type LogFormatter func(event pelican.Event) []any

// DefaultLogFormatter records the state, the transition details and the message
func DefaultLogFormatter(event pelican.Event) []any {
	attrs := []any{
		slog.String("event_id", event.ID),
		slog.Int64("at_ms", int64(event.At)),
		slog.String("phase", event.Phase.String()),
		slog.String("request", event.Request.String()),
	}

	switch event.Kind {
	case pelican.EventTransition, pelican.EventTransitionBlocked:
		attrs = append(attrs,
			slog.String("from", event.From.String()),
			slog.String("to", event.To.String()),
			slog.String("cause", event.Cause.String()),
			slog.Duration("elapsed", event.Elapsed),
			slog.String("signals", event.Signals.String()),
		)
		if event.Violation != pelican.NoViolation {
			attrs = append(attrs, slog.String("violation", event.Violation.String()))
		}
	case pelican.EventViolation:
		attrs = append(attrs,
			slog.String("violation", event.Violation.String()),
			slog.String("signals", event.Signals.String()),
		)
	case pelican.EventFault, pelican.EventReset:
		attrs = append(attrs,
			slog.String("cause", event.Cause.String()),
			slog.String("signals", event.Signals.String()),
		)
	}
	if event.Message != "" {
		attrs = append(attrs, slog.String("detail", event.Message))
	}
	return attrs
}

// CompactLogFormatter keeps only the timestamp and the phase change
func CompactLogFormatter(event pelican.Event) []any {
	attrs := []any{slog.Int64("at_ms", int64(event.At))}
	switch event.Kind {
	case pelican.EventTransition, pelican.EventTransitionBlocked:
		return append(attrs,
			slog.String("from", event.From.String()),
			slog.String("to", event.To.String()),
		)
	default:
		return append(attrs, slog.String("phase", event.Phase.String()))
	}
}

// NewLoggingObserver creates a logging observer writing text records to w
func NewLoggingObserver(level LogLevel, prefix string, w io.Writer) *LoggingObserver {
	if w == nil {
		w = os.Stdout
	}
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug})
	return &LoggingObserver{
		level:     level,
		prefix:    prefix,
		logger:    slog.New(handler),
		formatter: DefaultLogFormatter,
	}
}

// SetLogger replaces the underlying logger
func (o *LoggingObserver) SetLogger(logger *slog.Logger) {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	o.logger = logger
}

// SetFormatter replaces the attribute formatter; nil restores the default
func (o *LoggingObserver) SetFormatter(formatter LogFormatter) {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	if formatter == nil {
		formatter = DefaultLogFormatter
	}
	o.formatter = formatter
}

// SetLevel changes the threshold
func (o *LoggingObserver) SetLevel(level LogLevel) {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	o.level = level
}

// Log implements pelican.EventSink
func (o *LoggingObserver) Log(event pelican.Event) {
	o.mutex.RLock()
	defer o.mutex.RUnlock()

	if levelOf(event.Severity) > o.level {
		return
	}

	attrs := o.formatter(event)
	if o.prefix != "" {
		attrs = append(attrs, slog.String("component", o.prefix))
	}

	o.logger.Log(context.Background(), slogLevel(event.Severity), string(event.Kind), attrs...)
}

// OnSinkPanic implements pelican.PanicReporter
func (o *LoggingObserver) OnSinkPanic(err error) {
	o.mutex.RLock()
	defer o.mutex.RUnlock()
	o.logger.Error("event_sink_panic", slog.String("error", fmt.Sprint(err)))
}

func levelOf(severity pelican.Severity) LogLevel {
	switch severity {
	case pelican.SeverityDebug:
		return LogDebug
	case pelican.SeverityInfo:
		return LogInfo
	case pelican.SeverityWarning:
		return LogWarning
	default:
		return LogError
	}
}

func slogLevel(severity pelican.Severity) slog.Level {
	switch severity {
	case pelican.SeverityDebug:
		return slog.LevelDebug
	case pelican.SeverityInfo:
		return slog.LevelInfo
	case pelican.SeverityWarning:
		return slog.LevelWarn
	case pelican.SeverityError:
		return slog.LevelError
	default:
		return LevelCritical
	}
}
