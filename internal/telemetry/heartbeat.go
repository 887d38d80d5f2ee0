package telemetry

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/orion-kiosk/internal/logging"
	"github.com/muurk/orion-kiosk/internal/state"
	"github.com/muurk/orion-kiosk/internal/transport"
	"github.com/muurk/orion-kiosk/internal/version"
)

// Status is the heartbeat payload.
type Status struct {
	Menu    string  `json:"menu"`
	Standby bool    `json:"standby"`
	Uptime  float64 `json:"uptime"`
	Version string  `json:"version"`
}

// Heartbeat periodically publishes the kiosk status.
type Heartbeat struct {
	bus      transport.Bus
	store    *state.Store
	topic    string
	interval time.Duration
	started  time.Time
	now      func() time.Time
}

// NewHeartbeat creates a heartbeat publishing to topic every interval.
func NewHeartbeat(bus transport.Bus, store *state.Store, topic string, interval time.Duration) *Heartbeat {
	return &Heartbeat{
		bus:      bus,
		store:    store,
		topic:    topic,
		interval: interval,
		started:  time.Now(),
		now:      time.Now,
	}
}

// Status builds the current payload.
func (h *Heartbeat) Status() Status {
	m := h.store.Snapshot()
	return Status{
		Menu:    m.Menu.String(),
		Standby: m.Standby,
		Uptime:  h.now().Sub(h.started).Seconds(),
		Version: version.Get().Version,
	}
}

// Run publishes immediately and then on every tick until ctx is done.
func (h *Heartbeat) Run(ctx context.Context) error {
	if h.interval <= 0 || h.topic == "" {
		<-ctx.Done()
		return nil
	}

	tick := time.NewTicker(h.interval)
	defer tick.Stop()

	h.publish(ctx)
	for {
		select {
		case <-ctx.Done():
			logging.Debug("Heartbeat stopping")
			return nil
		case <-tick.C:
			h.publish(ctx)
		}
	}
}

func (h *Heartbeat) publish(ctx context.Context) {
	payload, err := json.Marshal(h.Status())
	if err != nil {
		logging.Error("Encoding heartbeat failed", zap.Error(err))
		return
	}

	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := h.bus.Publish(pctx, h.topic, payload); err != nil {
		logging.Debug("Heartbeat not published", zap.Error(err))
	}
}
