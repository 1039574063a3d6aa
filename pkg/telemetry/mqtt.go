// Package telemetry mirrors controller status reports to an MQTT broker.
package telemetry

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/itohio/thermoctl/pkg/actuation"
	"github.com/itohio/thermoctl/pkg/config"
)

const (
	publishTimeout = 2 * time.Second
	quiesce        = 250 // ms
)

// Publisher is an actuation.Publisher that can be shut down.
type Publisher interface {
	actuation.Publisher
	Close() error
}

var (
	_ Publisher = (*MQTT)(nil)
	_ Publisher = Nop{}
)

// client is the part of mqtt.Client the publisher uses.
type client interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	IsConnected() bool
	Disconnect(quiesce uint)
}

// MQTT publishes retained JSON status to <prefix>/state and keeps an
// online/offline availability flag on <prefix>/status.
type MQTT struct {
	client client
	prefix string
}

// StateTopic returns the topic status reports are published on.
func StateTopic(prefix string) string {
	return fmt.Sprintf("%s/state", prefix)
}

// AvailabilityTopic returns the topic carrying online/offline.
func AvailabilityTopic(prefix string) string {
	return fmt.Sprintf("%s/status", prefix)
}

// Dial connects to the configured broker. The client reconnects on its
// own after the first successful connect.
func Dial(cfg config.TelemetryConfig) (*MQTT, error) {
	availTopic := AvailabilityTopic(cfg.TopicPrefix)

	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetUsername(cfg.Username)
	opts.SetPassword(cfg.Password)
	opts.SetClientID("thermoctl-" + uuid.NewString())
	opts.SetAutoReconnect(true)
	opts.SetWill(availTopic, "offline", 0, true)
	opts.SetOnConnectHandler(func(c mqtt.Client) {
		log.Printf("telemetry: connected to %s", cfg.Broker)
		c.Publish(availTopic, 0, true, "online")
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		log.Printf("telemetry: connection lost: %v", err)
	})

	c := mqtt.NewClient(opts)
	if token := c.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("telemetry: connect %s: %w", cfg.Broker, token.Error())
	}
	return newMQTT(c, cfg.TopicPrefix), nil
}

func newMQTT(c client, prefix string) *MQTT {
	return &MQTT{client: c, prefix: prefix}
}

// Publish sends one status report. Reports made while disconnected are
// dropped; the next one carries the current state anyway.
func (m *MQTT) Publish(st actuation.Status) error {
	if !m.client.IsConnected() {
		return nil
	}
	payload, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("telemetry: marshal status: %w", err)
	}
	token := m.client.Publish(StateTopic(m.prefix), 0, true, payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("telemetry: publish timed out after %v", publishTimeout)
	}
	return token.Error()
}

// Close marks the device offline and disconnects.
func (m *MQTT) Close() error {
	if m.client.IsConnected() {
		token := m.client.Publish(AvailabilityTopic(m.prefix), 0, true, "offline")
		token.WaitTimeout(publishTimeout)
	}
	m.client.Disconnect(quiesce)
	return nil
}

// Nop discards status reports.
type Nop struct{}

func (Nop) Publish(actuation.Status) error { return nil }
func (Nop) Close() error                   { return nil }

// Open returns an MQTT publisher when a broker is configured and Nop
// otherwise.
func Open(cfg config.TelemetryConfig) (Publisher, error) {
	if cfg.Broker == "" {
		return Nop{}, nil
	}
	return Dial(cfg)
}
