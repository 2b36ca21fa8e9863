package kafkasink

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anggasct/pelican"
)

type fakeWriter struct {
	mutex    sync.Mutex
	messages []kafka.Message
	gate     chan struct{}
	err      error
	closed   bool
}

func (w *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if w.gate != nil {
		<-w.gate
	}
	w.mutex.Lock()
	defer w.mutex.Unlock()
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	w.closed = true
	return nil
}

func (w *fakeWriter) Messages() []kafka.Message {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	return append([]kafka.Message(nil), w.messages...)
}

func TestSinkPublishesEventsAsJSON(t *testing.T) {
	writer := &fakeWriter{}
	sink := newSink(writer, Config{Topic: "pelican.events"}, nil)

	event := pelican.NewEvent(pelican.EventTransition, pelican.SeverityInfo, pelican.At(5000))
	event.From = pelican.Red
	event.To = pelican.RedAmber
	sink.Log(event)

	require.NoError(t, sink.Close())
	assert.True(t, writer.closed)

	messages := writer.Messages()
	require.Len(t, messages, 1)
	assert.Equal(t, "phase_transition", string(messages[0].Key))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(messages[0].Value, &decoded))
	assert.Equal(t, event.ID, decoded["id"])
	assert.Equal(t, "red", decoded["from"])
	assert.Equal(t, "red_amber", decoded["to"])
	assert.Equal(t, uint64(1), sink.Published())
}

func TestSinkDropsWhenQueueIsFull(t *testing.T) {
	writer := &fakeWriter{gate: make(chan struct{})}
	sink := newSink(writer, Config{Topic: "pelican.events", QueueSize: 1}, nil)

	// first event is held by the writer, second fills the queue
	for i := 0; i < 10; i++ {
		sink.Log(pelican.NewEvent(pelican.EventPress, pelican.SeverityDebug, pelican.At(int64(i))))
	}
	assert.GreaterOrEqual(t, sink.Dropped(), uint64(8))

	close(writer.gate)
	require.NoError(t, sink.Close())
	assert.Equal(t, uint64(10), sink.Dropped()+sink.Published())
}

func TestSinkCountsFailures(t *testing.T) {
	writer := &fakeWriter{err: errors.New("broker unavailable")}
	sink := newSink(writer, Config{Topic: "pelican.events"}, nil)

	sink.Log(pelican.NewEvent(pelican.EventPress, pelican.SeverityDebug, pelican.At(1)))
	require.NoError(t, sink.Close())

	assert.Equal(t, uint64(1), sink.Failed())
	assert.Equal(t, uint64(0), sink.Published())
}

func TestSinkIgnoresEventsAfterClose(t *testing.T) {
	writer := &fakeWriter{}
	sink := newSink(writer, Config{Topic: "pelican.events"}, nil)
	require.NoError(t, sink.Close())
	require.NoError(t, sink.Close())

	sink.Log(pelican.NewEvent(pelican.EventPress, pelican.SeverityDebug, pelican.At(1)))
	assert.Equal(t, uint64(1), sink.Dropped())
	assert.Empty(t, writer.Messages())
}
