package transport

import (
	"context"
	"sync"
	"sync/atomic"
)

// MemoryBus is an in-process bus. Publish invokes the handlers of the
// topic on the caller's goroutine before returning.
type MemoryBus struct {
	mu     sync.RWMutex
	subs   map[string][]Handler
	closed atomic.Bool
}

// NewMemoryBus creates an empty in-memory bus.
func NewMemoryBus() *MemoryBus {
	return &MemoryBus{subs: make(map[string][]Handler)}
}

func (b *MemoryBus) Subscribe(topic string, h Handler) error {
	if b.closed.Load() {
		return ErrClosed
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs[topic] = append(b.subs[topic], h)
	return nil
}

func (b *MemoryBus) Publish(ctx context.Context, topic string, payload []byte) error {
	if b.closed.Load() {
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	b.mu.RLock()
	handlers := append([]Handler(nil), b.subs[topic]...)
	b.mu.RUnlock()

	for _, h := range handlers {
		h(Message{Topic: topic, Payload: append([]byte(nil), payload...)})
	}
	return nil
}

func (b *MemoryBus) Close() error {
	if b.closed.Swap(true) {
		return nil
	}
	b.mu.Lock()
	b.subs = make(map[string][]Handler)
	b.mu.Unlock()
	return nil
}
