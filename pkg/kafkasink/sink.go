// Package kafkasink publishes controller events to a Kafka topic
package kafkasink

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/anggasct/pelican"
)

// DefaultQueueSize bounds the number of events waiting to be published
const DefaultQueueSize = 256

// messageWriter is the part of *kafka.Writer the sink uses
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Config describes where events are published
type Config struct {
	Brokers      []string
	Topic        string
	QueueSize    int
	WriteTimeout time.Duration
}

// Sink is an event sink that hands events to a background publisher. Log never
// blocks; events are dropped when the queue is full.
type Sink struct {
	writer       messageWriter
	queue        chan pelican.Event
	writeTimeout time.Duration
	log          *slog.Logger

	dropped   atomic.Uint64
	published atomic.Uint64
	failed    atomic.Uint64

	closeOnce sync.Once
	mutex     sync.RWMutex
	closed    bool
	done      chan struct{}
}

// NewWriter builds the kafka writer used by New
func NewWriter(cfg Config) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		Async:        false,
	}
}

// New creates a sink publishing to cfg.Topic
func New(cfg Config, log *slog.Logger) *Sink {
	return newSink(NewWriter(cfg), cfg, log)
}

func newSink(writer messageWriter, cfg Config, log *slog.Logger) *Sink {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultQueueSize
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 5 * time.Second
	}
	if log == nil {
		log = slog.Default()
	}

	s := &Sink{
		writer:       writer,
		queue:        make(chan pelican.Event, cfg.QueueSize),
		writeTimeout: cfg.WriteTimeout,
		log:          log.With(slog.String("component", "kafka-sink"), slog.String("topic", cfg.Topic)),
		done:         make(chan struct{}),
	}
	go s.loop()
	return s
}

// Log implements pelican.EventSink
func (s *Sink) Log(event pelican.Event) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	if s.closed {
		s.dropped.Add(1)
		return
	}

	select {
	case s.queue <- event:
	default:
		s.dropped.Add(1)
	}
}

func (s *Sink) loop() {
	defer close(s.done)
	for event := range s.queue {
		s.publish(event)
	}
}

func (s *Sink) publish(event pelican.Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		s.failed.Add(1)
		s.log.Error("event_encode_failed", slog.String("event_id", event.ID), slog.Any("error", err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.writeTimeout)
	defer cancel()

	msg := kafka.Message{
		Key:   []byte(event.Kind),
		Value: payload,
		Time:  time.Now(),
	}
	if err := s.writer.WriteMessages(ctx, msg); err != nil {
		s.failed.Add(1)
		s.log.Warn("event_publish_failed", slog.String("event_id", event.ID), slog.Any("error", err))
		return
	}
	s.published.Add(1)
}

// Dropped returns the number of events discarded because the queue was full
func (s *Sink) Dropped() uint64 { return s.dropped.Load() }

// Published returns the number of events written to Kafka
func (s *Sink) Published() uint64 { return s.published.Load() }

// Failed returns the number of events that could not be written
func (s *Sink) Failed() uint64 { return s.failed.Load() }

// Close drains the queue and closes the writer
func (s *Sink) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.mutex.Lock()
		s.closed = true
		close(s.queue)
		s.mutex.Unlock()

		<-s.done
		err = s.writer.Close()
	})
	return err
}
