package transport

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"github.com/muurk/orion-kiosk/internal/config"
	"github.com/muurk/orion-kiosk/internal/logging"
)

const (
	mqttQoS           = 0
	disconnectQuiesce = 250 // milliseconds
)

// MQTTBus implements Bus over an MQTT 3.1.1 broker.
type MQTTBus struct {
	client  mqtt.Client
	timeout time.Duration

	mu     sync.Mutex
	subs   map[string]Handler
	closed atomic.Bool
}

// NewMQTTBus connects to the broker described by cfg. The connection is
// retried in the background if the broker is not up yet, so the kiosk can
// start before it.
func NewMQTTBus(cfg config.Broker) (*MQTTBus, error) {
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}

	b := &MQTTBus{
		timeout: cfg.Timeout,
		subs:    make(map[string]Handler),
	}

	opts := mqtt.NewClientOptions().
		AddBroker(fmt.Sprintf("tcp://%s:%d", cfg.Host, cfg.Port)).
		SetClientID(cfg.ClientID).
		SetKeepAlive(cfg.KeepAlive).
		SetConnectTimeout(cfg.Timeout).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetCleanSession(true).
		SetOnConnectHandler(b.onConnect).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			logging.Warn("MQTT connection lost", zap.Error(err))
		})
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}

	b.client = mqtt.NewClient(opts)
	token := b.client.Connect()
	if !token.WaitTimeout(cfg.Timeout) {
		logging.Warn("MQTT broker not reachable yet, retrying in background",
			zap.String("host", cfg.Host),
			zap.Int("port", cfg.Port),
		)
		return b, nil
	}
	if err := token.Error(); err != nil {
		b.client.Disconnect(0)
		return nil, fmt.Errorf("mqtt connect: %w", err)
	}
	return b, nil
}

// onConnect restores subscriptions after every (re)connect since the
// session is clean.
func (b *MQTTBus) onConnect(c mqtt.Client) {
	b.mu.Lock()
	subs := make(map[string]Handler, len(b.subs))
	for topic, h := range b.subs {
		subs[topic] = h
	}
	b.mu.Unlock()

	logging.Info("MQTT connected", zap.Int("subscriptions", len(subs)))
	for topic, h := range subs {
		if err := b.subscribe(c, topic, h); err != nil {
			logging.Error("MQTT resubscribe failed", zap.String("topic", topic), zap.Error(err))
		}
	}
}

func (b *MQTTBus) subscribe(c mqtt.Client, topic string, h Handler) error {
	token := c.Subscribe(topic, mqttQoS, func(_ mqtt.Client, m mqtt.Message) {
		h(Message{Topic: m.Topic(), Payload: m.Payload()})
	})
	if !token.WaitTimeout(b.timeout) {
		return fmt.Errorf("subscribe %s: timed out", topic)
	}
	return token.Error()
}

func (b *MQTTBus) Subscribe(topic string, h Handler) error {
	if b.closed.Load() {
		return ErrClosed
	}

	b.mu.Lock()
	b.subs[topic] = h
	b.mu.Unlock()

	// Not connected yet: onConnect will subscribe.
	if !b.client.IsConnectionOpen() {
		return nil
	}
	return b.subscribe(b.client, topic, h)
}

func (b *MQTTBus) Publish(ctx context.Context, topic string, payload []byte) error {
	if b.closed.Load() {
		return ErrClosed
	}
	if !b.client.IsConnectionOpen() {
		return ErrNotConnected
	}

	token := b.client.Publish(topic, mqttQoS, false, payload)
	select {
	case <-token.Done():
		return token.Error()
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (b *MQTTBus) Close() error {
	if b.closed.Swap(true) {
		return nil
	}
	b.client.Disconnect(disconnectQuiesce)
	return nil
}
