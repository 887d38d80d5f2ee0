package sysinfo

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/orion-kiosk/internal/logging"
	"github.com/muurk/orion-kiosk/internal/state"
)

// Source produces a metrics collection.
type Source interface {
	Collect(ctx context.Context) (Metrics, error)
}

// Refresher keeps the device pages of the shared state current.
type Refresher struct {
	source   Source
	store    *state.Store
	interval time.Duration
	timeout  time.Duration
}

// NewRefresher creates a refresher collecting every interval.
func NewRefresher(source Source, store *state.Store, interval time.Duration) *Refresher {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &Refresher{
		source:   source,
		store:    store,
		interval: interval,
		timeout:  3 * time.Second,
	}
}

// Run collects immediately and then on every tick until ctx is done.
// Ticks are skipped while the display is in standby.
func (r *Refresher) Run(ctx context.Context) error {
	tick := time.NewTicker(r.interval)
	defer tick.Stop()

	r.Refresh(ctx)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-tick.C:
			if r.store.Standby() {
				continue
			}
			r.Refresh(ctx)
		}
	}
}

// Refresh runs one collection and stores the pages.
func (r *Refresher) Refresh(ctx context.Context) {
	cctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	m, err := r.source.Collect(cctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		logging.Debug("Device metrics partially unavailable", zap.Error(err))
	}
	r.store.SetDevicePages(m.Pages())
}
