// Package mqttio connects the controller's button and lamps to an MQTT broker
package mqttio

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/anggasct/pelican"
)

// Client is the part of mqtt.Client used here
type Client interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Subscribe(topic string, qos byte, callback mqtt.MessageHandler) mqtt.Token
}

// Connect dials broker and returns a connected client
func Connect(broker, clientID string, timeout time.Duration) (mqtt.Client, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectTimeout(timeout)
	c := mqtt.NewClient(opts)
	token := c.Connect()
	if !token.WaitTimeout(timeout) {
		return nil, fmt.Errorf("timed out connecting to %s", broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("cannot connect to %s: %w", broker, err)
	}
	return c, nil
}

// ButtonTopic returns the topic carrying button state
func ButtonTopic(prefix string) string { return prefix + "/button" }

// SignalsTopic returns the topic carrying the asserted lamp pattern
func SignalsTopic(prefix string) string { return prefix + "/signals" }

// ButtonMessage is the payload on the button topic
type ButtonMessage struct {
	Pressed bool `json:"pressed"`
}

// Button is a pelican.ButtonInput fed by MQTT messages
type Button struct {
	pressed atomic.Bool
	log     *slog.Logger
}

// NewButton subscribes to the button topic under prefix
func NewButton(client Client, prefix string, timeout time.Duration, log *slog.Logger) (*Button, error) {
	if log == nil {
		log = slog.Default()
	}
	b := &Button{log: log.With(slog.String("component", "mqtt-button"))}

	topic := ButtonTopic(prefix)
	token := client.Subscribe(topic, 1, b.handle)
	if !token.WaitTimeout(timeout) {
		return nil, fmt.Errorf("timed out subscribing to %s", topic)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("cannot subscribe to %s: %w", topic, err)
	}
	return b, nil
}

func (b *Button) handle(_ mqtt.Client, msg mqtt.Message) {
	var payload ButtonMessage
	if err := json.Unmarshal(msg.Payload(), &payload); err != nil {
		b.log.Warn("button_payload_invalid", slog.String("topic", msg.Topic()), slog.Any("error", err))
		return
	}
	b.pressed.Store(payload.Pressed)
}

// IsPressed implements pelican.ButtonInput
func (b *Button) IsPressed() bool {
	return b.pressed.Load()
}

// Actuator is a pelican.ActuatorOutput that publishes retained lamp patterns
type Actuator struct {
	client Client
	topic  string
	log    *slog.Logger

	mutex    sync.RWMutex
	asserted pelican.Signals
	applied  bool
}

// NewActuator creates an actuator publishing under prefix
func NewActuator(client Client, prefix string, log *slog.Logger) *Actuator {
	if log == nil {
		log = slog.Default()
	}
	return &Actuator{
		client: client,
		topic:  SignalsTopic(prefix),
		log:    log.With(slog.String("component", "mqtt-actuator")),
	}
}

// Apply implements pelican.ActuatorOutput. Only changes are published, and
// the publish is not awaited.
func (a *Actuator) Apply(signals pelican.Signals) {
	a.mutex.Lock()
	if a.applied && a.asserted == signals {
		a.mutex.Unlock()
		return
	}
	a.asserted = signals
	a.applied = true
	a.mutex.Unlock()

	payload, err := json.Marshal(signals)
	if err != nil {
		a.log.Error("signals_encode_failed", slog.Any("error", err))
		return
	}
	token := a.client.Publish(a.topic, 1, true, payload)
	go a.watch(token, signals)
}

func (a *Actuator) watch(token mqtt.Token, signals pelican.Signals) {
	<-token.Done()
	if err := token.Error(); err != nil {
		a.log.Warn("signals_publish_failed", slog.String("signals", signals.String()), slog.Any("error", err))
	}
}

// Asserted implements pelican.SignalReader
func (a *Actuator) Asserted() pelican.Signals {
	a.mutex.RLock()
	defer a.mutex.RUnlock()
	return a.asserted
}
