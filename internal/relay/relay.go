package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// ErrNotConnected is returned by Publish while the broker link is down.
var ErrNotConnected = errors.New("relay: not connected to broker")

const (
	subscribeTimeout = 5 * time.Second
	publishTimeout   = 5 * time.Second
	connectPoll      = 200 * time.Millisecond

	// inboundQueueSize buffers receipt-ordered messages between the paho
	// callback and the dispatch loop. The device publishes every few
	// seconds, so this never fills in practice.
	inboundQueueSize = 64
)

// Config holds the broker endpoint and the topics of the device wire
// contract.
type Config struct {
	BrokerURL string
	ClientID  string
	Username  string
	Password  string

	DataTopic    string
	StatusTopic  string
	CommandTopic string

	// RetryInterval is the fixed delay between reconnect attempts.
	RetryInterval time.Duration
	KeepAlive     time.Duration
	PingTimeout   time.Duration
}

type inbound struct {
	topic   string
	payload []byte
}

// Relay owns the single persistent broker connection. Run consumes inbound
// messages on one goroutine so decode, cache update and broadcast happen in
// strict receipt order.
type Relay struct {
	cfg    Config
	cache  *Cache
	hub    Broadcaster
	logger *slog.Logger

	client   mqtt.Client
	messages chan inbound
	lost     chan error
}

func New(cfg Config, cache *Cache, hub Broadcaster, logger *slog.Logger) *Relay {
	r := &Relay{
		cfg:      cfg,
		cache:    cache,
		hub:      hub,
		logger:   logger,
		messages: make(chan inbound, inboundQueueSize),
		lost:     make(chan error, 1),
	}

	opts := mqtt.NewClientOptions().AddBroker(cfg.BrokerURL)
	opts.SetClientID(cfg.ClientID)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}
	// Reconnects are driven by Run so every attempt updates the cache and
	// is visible to viewers; paho's own retry would bypass that.
	opts.SetAutoReconnect(false)
	// Keepalive bounds how long a silently hung connection can linger
	// before it trips the normal disconnect path.
	opts.SetKeepAlive(cfg.KeepAlive)
	opts.SetPingTimeout(cfg.PingTimeout)
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		select {
		case r.lost <- err:
		default:
		}
	})

	r.client = mqtt.NewClient(opts)
	return r
}

// Run connects, serves and reconnects until ctx is cancelled. It must run on
// its own goroutine; the receive path blocks indefinitely waiting for broker
// events.
func (r *Relay) Run(ctx context.Context) {
	for {
		if err := r.connect(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			r.noteDisconnect(err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(r.cfg.RetryInterval):
			}
			continue
		}

		r.cache.SetBrokerStatus("Connecté au broker")
		r.hub.Broadcast(EventBrokerStatus, BrokerStatusEvent{Status: "connected"})
		r.logger.Info("connected to mqtt broker", "url", r.cfg.BrokerURL)

		err := r.serve(ctx)
		if ctx.Err() != nil {
			r.client.Disconnect(250)
			return
		}
		r.noteDisconnect(err)
		select {
		case <-ctx.Done():
			return
		case <-time.After(r.cfg.RetryInterval):
		}
	}
}

func (r *Relay) noteDisconnect(err error) {
	r.cache.SetBrokerStatus(fmt.Sprintf("Déconnecté, reconnexion... (%v)", err))
	r.hub.Broadcast(EventBrokerStatus, BrokerStatusEvent{Status: "reconnecting", Error: err.Error()})
	r.logger.Warn("mqtt connection lost, retrying",
		"error", err,
		"retry_in", r.cfg.RetryInterval,
	)
}

func (r *Relay) connect(ctx context.Context) error {
	token := r.client.Connect()
	for !token.WaitTimeout(connectPoll) {
		if ctx.Err() != nil {
			r.client.Disconnect(0)
			return ctx.Err()
		}
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt connect: %w", err)
	}

	for _, topic := range []string{r.cfg.DataTopic, r.cfg.StatusTopic} {
		t := r.client.Subscribe(topic, 0, r.enqueue)
		if !t.WaitTimeout(subscribeTimeout) {
			r.client.Disconnect(0)
			return fmt.Errorf("subscribe timeout for %s", topic)
		}
		if err := t.Error(); err != nil {
			r.client.Disconnect(0)
			return fmt.Errorf("subscribe %s: %w", topic, err)
		}
		r.logger.Info("subscribed to mqtt topic", "topic", topic)
	}
	return nil
}

// enqueue runs on paho's router goroutine and hands the message to the
// dispatch loop. It never blocks the receive path.
func (r *Relay) enqueue(_ mqtt.Client, msg mqtt.Message) {
	select {
	case r.messages <- inbound{topic: msg.Topic(), payload: msg.Payload()}:
	default:
		r.logger.Warn("inbound queue full, dropping message", "topic", msg.Topic())
	}
}

func (r *Relay) serve(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-r.lost:
			return err
		case m := <-r.messages:
			r.dispatch(m.topic, m.payload)
		}
	}
}

// dispatch applies one inbound message to the cache and fans the resulting
// event out to viewers. A malformed payload is logged and dropped; it never
// touches the cache or stops the loop.
func (r *Relay) dispatch(topic string, payload []byte) {
	switch topic {
	case r.cfg.DataTopic:
		update, err := decodeTelemetry(payload)
		if err != nil {
			r.logger.Warn("dropping malformed telemetry payload",
				"topic", topic,
				"error", err,
				"payload", string(payload),
			)
			return
		}
		snap := r.cache.ApplyTelemetry(update)
		r.hub.Broadcast(EventSensorUpdate, SensorEvent{
			Temperature: update.Temperature,
			Humidite:    update.Humidite,
			Sol:         update.Sol,
			Timestamp:   snap.LastUpdate,
		})
	case r.cfg.StatusTopic:
		status := string(payload)
		r.cache.SetDeviceStatus(status)
		r.hub.Broadcast(EventDeviceStatus, DeviceStatusEvent{Status: status})
		r.logger.Info("device status received", "status", status)
	default:
		r.logger.Debug("message on unexpected topic", "topic", topic)
	}
}

// decodeTelemetry parses a data payload as permissively as possible: any
// JSON object is accepted and only the known keys are extracted, as opaque
// scalars. Numbers stay json.Number so they re-serialize exactly as sent.
func decodeTelemetry(payload []byte) (TelemetryUpdate, error) {
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return TelemetryUpdate{}, err
	}
	return TelemetryUpdate{
		Temperature: raw["temperature"],
		Humidite:    raw["humidite"],
		Sol:         raw["sol"],
	}, nil
}

// Publish sends a payload to the broker and waits for completion. Command
// publishing is infrequent and short, so it is safe to call from a request
// handler.
func (r *Relay) Publish(topic, payload string) error {
	if !r.client.IsConnected() {
		return ErrNotConnected
	}
	token := r.client.Publish(topic, 0, false, payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("publish to %s: timeout", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish to %s: %w", topic, err)
	}
	return nil
}
