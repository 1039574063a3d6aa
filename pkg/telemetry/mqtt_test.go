package telemetry

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itohio/thermoctl/pkg/actuation"
	"github.com/itohio/thermoctl/pkg/config"
)

type token struct {
	err     error
	pending bool
}

func (t *token) Wait() bool                     { return !t.pending }
func (t *token) WaitTimeout(time.Duration) bool { return !t.pending }
func (t *token) Error() error                   { return t.err }

func (t *token) Done() <-chan struct{} {
	ch := make(chan struct{})
	if !t.pending {
		close(ch)
	}
	return ch
}

type message struct {
	topic    string
	retained bool
	payload  interface{}
}

type fakeClient struct {
	mu           sync.Mutex
	connected    bool
	err          error
	pending      bool
	sent         []message
	disconnected bool
}

func (c *fakeClient) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, message{topic: topic, retained: retained, payload: payload})
	return &token{err: c.err, pending: c.pending}
}

func (c *fakeClient) IsConnected() bool { return c.connected }

func (c *fakeClient) Disconnect(uint) { c.disconnected = true }

func TestMQTT_PublishStatus(t *testing.T) {
	c := &fakeClient{connected: true}
	m := newMQTT(c, "lab/oven")

	st := actuation.Status{
		Timestamp:   time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
		Temperature: 42,
		Average:     40.5,
		Bucket:      actuation.Stable.String(),
		Duty:        0.5,
		Indicators:  actuation.Indicators{Yellow: true},
	}
	require.NoError(t, m.Publish(st))

	require.Len(t, c.sent, 1)
	assert.Equal(t, "lab/oven/state", c.sent[0].topic)
	assert.True(t, c.sent[0].retained)

	var got map[string]any
	require.NoError(t, json.Unmarshal(c.sent[0].payload.([]byte), &got))
	assert.Equal(t, "Stable", got["bucket"])
	assert.Equal(t, 42.0, got["temperature"])
	assert.Equal(t, false, got["emergency"])
	assert.Equal(t, map[string]any{"green": false, "yellow": true, "red": false}, got["indicators"])
}

func TestMQTT_PublishErrors(t *testing.T) {
	c := &fakeClient{connected: true, err: errors.New("broker said no")}
	m := newMQTT(c, "p")
	assert.EqualError(t, m.Publish(actuation.Status{}), "broker said no")

	c.err, c.pending = nil, true
	assert.ErrorContains(t, m.Publish(actuation.Status{}), "timed out")
}

func TestMQTT_DisconnectedDrops(t *testing.T) {
	c := &fakeClient{}
	m := newMQTT(c, "p")
	assert.NoError(t, m.Publish(actuation.Status{}))
	assert.Empty(t, c.sent)

	assert.NoError(t, m.Close())
	assert.Empty(t, c.sent)
	assert.True(t, c.disconnected)
}

func TestMQTT_CloseMarksOffline(t *testing.T) {
	c := &fakeClient{connected: true}
	m := newMQTT(c, "p")
	require.NoError(t, m.Close())
	require.Len(t, c.sent, 1)
	assert.Equal(t, message{topic: "p/status", retained: true, payload: "offline"}, c.sent[0])
	assert.True(t, c.disconnected)
}

func TestOpen_NoBrokerIsNop(t *testing.T) {
	p, err := Open(config.Default().Telemetry)
	require.NoError(t, err)
	assert.Equal(t, Nop{}, p)
	assert.NoError(t, p.Publish(actuation.Status{}))
	assert.NoError(t, p.Close())
}

func TestTopics(t *testing.T) {
	assert.Equal(t, "thermoctl/state", StateTopic("thermoctl"))
	assert.Equal(t, "thermoctl/status", AvailabilityTopic("thermoctl"))
}
