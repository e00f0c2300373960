package emitter

import (
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/Mikhail1201/FAYES/internal/config"
	"github.com/Mikhail1201/FAYES/internal/dto"
	"github.com/Mikhail1201/FAYES/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type doneToken struct {
	err error
}

func (t *doneToken) Wait() bool                     { return true }
func (t *doneToken) WaitTimeout(time.Duration) bool { return true }
func (t *doneToken) Error() error                   { return t.err }

func (t *doneToken) Done() <-chan struct{} {
	c := make(chan struct{})
	close(c)
	return c
}

type message struct {
	topic   string
	qos     byte
	payload []byte
}

type fakePublisher struct {
	messages []message
	err      error
}

func (p *fakePublisher) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	p.messages = append(p.messages, message{topic: topic, qos: qos, payload: payload.([]byte)})
	return &doneToken{err: p.err}
}

func newTestEmitter(pub *fakePublisher) *MQTTEmitter {
	cfg := config.Default()
	cfg.MQTTBroker = "localhost:1883"
	e := NewMQTTEmitter(cfg, "run-1", logger.NewWithWriter(io.Discard))
	e.publisher = pub
	e.connected = true
	return e
}

func TestMQTTEmitter_PublishesOutcome(t *testing.T) {
	pub := &fakePublisher{}
	e := newTestEmitter(pub)

	e.Observe(nil, dto.Outcome{
		RunID:     "run-1",
		CycleID:   "c1",
		Status:    dto.StatusReported,
		Detection: &dto.DetectionResult{Label: "banana", Confidence: 0.8},
		Product:   "banana",
		Receipt:   &dto.Receipt{StatusCode: 200, Success: true},
	})

	require.Len(t, pub.messages, 1)
	msg := pub.messages[0]
	assert.Equal(t, "fayes/scanner/detections/reported", msg.topic)
	assert.Equal(t, byte(1), msg.qos)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(msg.payload, &decoded))
	assert.Equal(t, "c1", decoded["cycleId"])
	assert.Equal(t, "banana", decoded["product"])

	assert.Equal(t, Stats{Connected: true, Published: 1}, e.Stats())
}

func TestMQTTEmitter_Errors(t *testing.T) {
	pub := &fakePublisher{err: errors.New("broker said no")}
	e := newTestEmitter(pub)

	assert.Error(t, e.Publish(dto.Outcome{CycleID: "c1", Status: dto.StatusNoDetection}))

	e.setConnected(false)
	assert.Error(t, e.Publish(dto.Outcome{CycleID: "c2", Status: dto.StatusNoDetection}))

	assert.Len(t, pub.messages, 1)
	assert.Equal(t, uint64(2), e.Stats().Errors)
}
