// Package transport connects the kiosk to its message broker.
//
// A Bus delivers messages by topic. Topics use the MQTT "/" separator
// regardless of the broker; the NATS bus maps them to dotted subjects.
// MemoryBus delivers synchronously and backs the offline mode and tests.
package transport

import (
	"context"
	"errors"
	"fmt"

	"github.com/muurk/orion-kiosk/internal/config"
)

// Transport names accepted in the broker configuration.
const (
	TransportMQTT = "mqtt"
	TransportNATS = "nats"
	TransportNone = "none"
)

var (
	// ErrClosed is returned when operating on a closed bus.
	ErrClosed = errors.New("bus closed")

	// ErrNotConnected is returned by Publish while the broker is unreachable.
	ErrNotConnected = errors.New("broker not connected")
)

// Message is a payload received on a topic.
type Message struct {
	Topic   string
	Payload []byte
}

// Handler processes incoming messages. It is called from the bus's
// delivery goroutine and should not block for long.
type Handler func(msg Message)

// Bus is a topic-based publish/subscribe connection.
// Implementations must be safe for concurrent use.
type Bus interface {
	// Subscribe registers h for topic. Subscriptions survive reconnects.
	Subscribe(topic string, h Handler) error

	// Publish sends payload to topic.
	Publish(ctx context.Context, topic string, payload []byte) error

	// Close disconnects from the broker.
	Close() error
}

// New connects to the broker selected by cfg.Transport.
func New(cfg config.Broker) (Bus, error) {
	switch cfg.Transport {
	case TransportMQTT, "":
		return NewMQTTBus(cfg)
	case TransportNATS:
		return NewNATSBus(cfg)
	case TransportNone:
		return NewMemoryBus(), nil
	}
	return nil, fmt.Errorf("unknown transport %q", cfg.Transport)
}
