package emitter

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/Mikhail1201/FAYES/internal/config"
	"github.com/Mikhail1201/FAYES/internal/dto"
	"github.com/Mikhail1201/FAYES/internal/logger"
	"github.com/Mikhail1201/FAYES/internal/service/scanner"
)

// publisher is the part of mqtt.Client the emitter needs.
type publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// Stats contains emitter statistics.
type Stats struct {
	Connected bool
	Published uint64
	Errors    uint64
}

// MQTTEmitter publishes cycle outcomes to an MQTT broker.
type MQTTEmitter struct {
	broker   string
	topic    string
	clientID string
	logger   *logger.Logger

	client    mqtt.Client
	publisher publisher

	mu        sync.RWMutex
	connected bool
	published uint64
	errors    uint64
}

// NewMQTTEmitter creates an emitter for cfg.MQTTBroker. Connect must be called before use.
func NewMQTTEmitter(cfg *config.Config, runID string, logger *logger.Logger) *MQTTEmitter {
	return &MQTTEmitter{
		broker:   cfg.MQTTBroker,
		topic:    cfg.MQTTTopic,
		clientID: "fayes-scanner-" + runID,
		logger:   logger,
	}
}

// Connect establishes the connection to the broker.
func (e *MQTTEmitter) Connect() error {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s", e.broker))
	opts.SetClientID(e.clientID)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(2 * time.Second)
	opts.SetMaxReconnectInterval(30 * time.Second)

	opts.OnConnect = func(c mqtt.Client) {
		e.setConnected(true)
		e.logger.Info("MQTT connection established: %s", e.broker)
	}
	opts.OnConnectionLost = func(c mqtt.Client, err error) {
		e.setConnected(false)
		e.logger.Warning("MQTT connection lost, will auto-reconnect: %v", err)
	}

	e.client = mqtt.NewClient(opts)
	e.publisher = e.client

	e.logger.Info("Connecting to MQTT broker %s", e.broker)
	token := e.client.Connect()
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("mqtt connection timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt connection failed: %w", err)
	}

	e.setConnected(true)
	return nil
}

// Observe implements scanner.Observer.
func (e *MQTTEmitter) Observe(_ scanner.Image, outcome dto.Outcome) {
	if err := e.Publish(outcome); err != nil {
		e.logger.Warning("Failed to publish cycle %s: %v", outcome.CycleID, err)
	}
}

// Publish sends one outcome as JSON to the configured topic, under its status.
func (e *MQTTEmitter) Publish(outcome dto.Outcome) error {
	if !e.isConnected() {
		e.countError()
		return fmt.Errorf("mqtt not connected")
	}

	payload, err := json.Marshal(outcome)
	if err != nil {
		e.countError()
		return fmt.Errorf("failed to marshal outcome: %w", err)
	}

	topic := fmt.Sprintf("%s/%s", e.topic, outcome.Status)
	token := e.publisher.Publish(topic, 1, false, payload)
	if !token.WaitTimeout(2 * time.Second) {
		e.countError()
		return fmt.Errorf("publish timeout")
	}
	if err := token.Error(); err != nil {
		e.countError()
		return fmt.Errorf("publish failed: %w", err)
	}

	e.mu.Lock()
	e.published++
	e.mu.Unlock()
	return nil
}

// Disconnect closes the MQTT connection.
func (e *MQTTEmitter) Disconnect() {
	if e.client != nil && e.client.IsConnected() {
		e.client.Disconnect(250)
		e.logger.Info("MQTT disconnected")
	}
	e.setConnected(false)
}

// Stats returns emitter statistics.
func (e *MQTTEmitter) Stats() Stats {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return Stats{Connected: e.connected, Published: e.published, Errors: e.errors}
}

func (e *MQTTEmitter) setConnected(v bool) {
	e.mu.Lock()
	e.connected = v
	e.mu.Unlock()
}

func (e *MQTTEmitter) isConnected() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.connected
}

func (e *MQTTEmitter) countError() {
	e.mu.Lock()
	e.errors++
	e.mu.Unlock()
}
