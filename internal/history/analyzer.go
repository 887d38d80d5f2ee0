// Package history keeps rolling windows of energy readings and derives
// the 24-hour and 7-day statistics shown on the energy trend views.
package history

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/orion-kiosk/internal/energy"
	"github.com/muurk/orion-kiosk/internal/logging"
)

// Window identifies a rolling history window.
type Window string

const (
	Day  Window = "24h"
	Week Window = "7d"
)

// Span returns how far back the window reaches.
func (w Window) Span() time.Duration {
	if w == Week {
		return 7 * 24 * time.Hour
	}
	return 24 * time.Hour
}

// capacity and spacing of each window.
var windowSizes = map[Window]struct {
	size     int
	interval time.Duration
}{
	Day:  {size: 288, interval: 5 * time.Minute},
	Week: {size: 336, interval: 30 * time.Minute},
}

// Sample is one stored reading.
type Sample struct {
	Time    time.Time `json:"time"`
	Power   float64   `json:"power"`
	Energy  float64   `json:"energy"`
	Voltage float64   `json:"voltage"`
	Battery float64   `json:"battery"`
}

// SampleOf extracts the numeric fields of r. Non-numeric fields are 0.
func SampleOf(r energy.Reading, at time.Time) Sample {
	v, _ := r.Voltage.Float()
	b, _ := r.Battery.Float()
	return Sample{Time: at, Power: r.Power(), Energy: r.Energy(), Voltage: v, Battery: b}
}

// Store persists samples across restarts.
type Store interface {
	Append(ctx context.Context, w Window, s Sample) error
	Load(ctx context.Context, w Window, since time.Time) ([]Sample, error)
	Prune(ctx context.Context, w Window, before time.Time) error
}

type ring struct {
	size     int
	interval time.Duration
	samples  []Sample
	last     time.Time
}

func newRing(w Window) *ring {
	ws := windowSizes[w]
	return &ring{size: ws.size, interval: ws.interval}
}

// offer stores s if at least interval has passed since the previous
// sample. It reports whether s was kept.
func (r *ring) offer(s Sample) bool {
	if !r.last.IsZero() && s.Time.Sub(r.last) < r.interval {
		return false
	}
	if len(r.samples) == r.size {
		r.samples = append(r.samples[:0], r.samples[1:]...)
	}
	r.samples = append(r.samples, s)
	r.last = s.Time
	return true
}

// Analyzer maintains the day and week windows. Safe for concurrent use.
type Analyzer struct {
	mu       sync.RWMutex
	windows  map[Window]*ring
	lastData time.Time
	store    Store
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithStore persists accepted samples to s.
func WithStore(s Store) Option {
	return func(a *Analyzer) { a.store = s }
}

// NewAnalyzer creates an empty analyzer.
func NewAnalyzer(opts ...Option) *Analyzer {
	a := &Analyzer{windows: map[Window]*ring{
		Day:  newRing(Day),
		Week: newRing(Week),
	}}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Add records a reading received at at.
func (a *Analyzer) Add(ctx context.Context, r energy.Reading, at time.Time) {
	s := SampleOf(r, at)

	var kept []Window
	a.mu.Lock()
	a.lastData = at
	for _, w := range []Window{Day, Week} {
		if a.windows[w].offer(s) {
			kept = append(kept, w)
		}
	}
	a.mu.Unlock()

	if a.store == nil {
		return
	}
	for _, w := range kept {
		if err := a.store.Append(ctx, w, s); err != nil {
			logging.Warn("Persisting energy sample failed", zap.String("window", string(w)), zap.Error(err))
		}
	}
}

// Restore fills the windows with samples taken before now, oldest first.
// Samples older than a window's span or closer together than its
// interval are skipped.
func (a *Analyzer) Restore(samples []Sample, now time.Time) {
	a.mu.Lock()
	defer a.mu.Unlock()

	for w, r := range a.windows {
		cutoff := now.Add(-w.Span())
		for _, s := range samples {
			if s.Time.Before(cutoff) || s.Time.After(now) {
				continue
			}
			r.offer(s)
		}
	}
}

// LastData returns when the last reading was added, or the zero time.
func (a *Analyzer) LastData() time.Time {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.lastData
}

// Samples returns a copy of the samples in w, oldest first.
func (a *Analyzer) Samples(w Window) []Sample {
	a.mu.RLock()
	defer a.mu.RUnlock()

	r, ok := a.windows[w]
	if !ok {
		return nil
	}
	return append([]Sample(nil), r.samples...)
}

// Stats summarises w. It returns nil when the window holds no sample with
// positive power.
func (a *Analyzer) Stats(w Window) *energy.Stats {
	return Summarize(a.Samples(w))
}

// Summarize computes average, maximum and minimum power over the samples
// with positive power, and the energy consumed between the first and last
// sample.
func Summarize(samples []Sample) *energy.Stats {
	var (
		sum    float64
		count  int
		hi, lo float64
	)
	for _, s := range samples {
		if s.Power <= 0 {
			continue
		}
		if count == 0 || s.Power > hi {
			hi = s.Power
		}
		if count == 0 || s.Power < lo {
			lo = s.Power
		}
		sum += s.Power
		count++
	}
	if count == 0 {
		return nil
	}

	st := &energy.Stats{
		AvgPower: sum / float64(count),
		MaxPower: hi,
		MinPower: lo,
		Points:   len(samples),
	}
	if len(samples) > 1 {
		st.TotalEnergy = samples[len(samples)-1].Energy - samples[0].Energy
	}
	return st
}
