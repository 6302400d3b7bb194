package mqttbridge

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"kioskd/internal/bus"
	"kioskd/internal/infrastructure/logging"
	"kioskd/internal/infrastructure/mqtt"
	"kioskd/internal/logbook"
	"kioskd/internal/state"
)

// DefaultStatusInterval is the retained status cadence when config gives
// none.
const DefaultStatusInterval = 10 * time.Second

// MQTTClient is the interface for broker operations.
// This allows mocking in tests and flexibility in implementation.
type MQTTClient interface {
	// Publish sends a message to a topic.
	Publish(topic string, payload []byte, qos byte, retained bool) error

	// Subscribe registers a handler for a topic pattern.
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error

	// IsConnected returns true if connected to the broker.
	IsConnected() bool
}

// Options holds configuration for creating a bridge.
type Options struct {
	// Client is the MQTT client implementation. Required.
	Client MQTTClient

	// Topics builds the command and status topic names.
	Topics mqtt.Topics

	// Store is the shared state store read by the status publisher. Required.
	Store *state.Store

	// Commands is the queue inbound commands are enqueued on. Required.
	Commands *bus.Queue[bus.Command]

	// Recorder journals boundary traffic. Required.
	Recorder *logbook.Recorder

	// StatusInterval overrides the retained status cadence.
	// Zero means DefaultStatusInterval.
	StatusInterval time.Duration

	// QoS is used for both the command subscription and status publishes.
	QoS byte

	// Logger is the operational logger. Required.
	Logger *logging.Logger
}

// Bridge translates between MQTT and the kiosk's internal command queue.
//
// Thread Safety: all methods are safe for concurrent use.
type Bridge struct {
	client   MQTTClient
	topics   mqtt.Topics
	store    *state.Store
	commands *bus.Queue[bus.Command]
	recorder *logbook.Recorder
	interval time.Duration
	qos      byte
	logger   *logging.Logger

	done     chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// New creates a bridge. Call Start to begin operation.
func New(opts Options) (*Bridge, error) {
	if opts.Client == nil {
		return nil, fmt.Errorf("MQTT client is required")
	}
	if opts.Store == nil {
		return nil, fmt.Errorf("state store is required")
	}
	if opts.Commands == nil {
		return nil, fmt.Errorf("command queue is required")
	}
	if opts.Recorder == nil {
		return nil, fmt.Errorf("recorder is required")
	}
	if opts.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	interval := opts.StatusInterval
	if interval <= 0 {
		interval = DefaultStatusInterval
	}

	return &Bridge{
		client:   opts.Client,
		topics:   opts.Topics,
		store:    opts.Store,
		commands: opts.Commands,
		recorder: opts.Recorder,
		interval: interval,
		qos:      opts.QoS,
		logger:   opts.Logger.With("component", "mqttbridge"),
		done:     make(chan struct{}),
	}, nil
}

// Start subscribes to the command topics and launches the status publisher.
func (b *Bridge) Start() error {
	topic := b.topics.CommandWildcard()
	if err := b.client.Subscribe(topic, b.qos, b.handleCommand); err != nil {
		return fmt.Errorf("subscribe to commands: %w", err)
	}
	b.logger.Info("subscribed to commands", "topic", topic)

	b.wg.Add(1)
	go b.statusLoop()

	return nil
}

// Stop halts the status publisher. The command subscription is torn down
// with the client connection.
func (b *Bridge) Stop() {
	b.stopOnce.Do(func() {
		close(b.done)
		b.wg.Wait()
		b.logger.Info("bridge stopped")
	})
}

// handleCommand translates one inbound message into a queued command. The
// topic's final segment is the command type; the payload, when present,
// carries the parameter fields.
func (b *Bridge) handleCommand(topic string, payload []byte) error {
	cmdType, ok := b.topics.CommandType(topic)
	if !ok {
		return fmt.Errorf("malformed command topic %q", topic)
	}

	cmd := bus.NewCommand(bus.CommandType(cmdType))
	if len(payload) > 0 {
		var params bus.Command
		if err := json.Unmarshal(payload, &params); err != nil {
			return fmt.Errorf("invalid command payload on %q: %w", topic, err)
		}
		params.ID = cmd.ID
		params.Type = cmd.Type
		cmd = params
	}

	if err := cmd.Validate(); err != nil {
		b.recorder.Error("Rejected MQTT command: %v", err)
		return err
	}

	b.recorder.API("MQTT command received: %s", cmd.Type)
	b.commands.Send(cmd)
	return nil
}

// statusLoop publishes the retained status documents on a fixed cadence.
// One round is published immediately so subscribers are not left waiting a
// full interval after startup.
func (b *Bridge) statusLoop() {
	defer b.wg.Done()

	b.publishStatus()

	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	for {
		select {
		case <-b.done:
			return
		case <-ticker.C:
			b.publishStatus()
		}
	}
}

// publishStatus writes one retained document per domain. Skipped entirely
// while the broker link is down; paho would only queue the messages.
func (b *Bridge) publishStatus() {
	if !b.client.IsConnected() {
		return
	}

	snap := b.store.GetSnapshot()

	docs := map[string]any{
		"weather":   snap.Weather,
		"media":     snap.Media,
		"bluetooth": snap.Bluetooth,
		"audio":     snap.Audio,
		"network":   snap.Network,
	}

	for domain, doc := range docs {
		payload, err := json.Marshal(doc)
		if err != nil {
			b.logger.Error("failed to encode status", "domain", domain, "error", err)
			continue
		}
		if err := b.client.Publish(b.topics.Status(domain), payload, b.qos, true); err != nil {
			b.logger.Warn("failed to publish status", "domain", domain, "error", err)
		}
	}
}
