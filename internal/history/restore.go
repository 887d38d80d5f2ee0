package history

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/orion-kiosk/internal/datalog"
	"github.com/muurk/orion-kiosk/internal/energy"
	"github.com/muurk/orion-kiosk/internal/logging"
)

// logTailLines bounds how much of the data log is read at start-up.
const logTailLines = 1000

// LoadLog reads samples from the tail of the data log at path, oldest
// first. Entries that do not decode as readings are skipped.
func LoadLog(path string) ([]Sample, error) {
	entries, err := datalog.Tail(path, logTailLines)
	if err != nil {
		return nil, err
	}

	samples := make([]Sample, 0, len(entries))
	for _, e := range entries {
		r, err := energy.Parse(e.Payload)
		if err != nil {
			logging.Debug("Skipping data log entry", zap.Time("time", e.Time), zap.Error(err))
			continue
		}
		samples = append(samples, SampleOf(r, e.Time))
	}
	sort.SliceStable(samples, func(i, j int) bool { return samples[i].Time.Before(samples[j].Time) })
	return samples, nil
}

// Load restores the analyzer's windows, preferring the store and falling
// back to the data log at logPath when the store holds nothing.
func (a *Analyzer) Load(ctx context.Context, logPath string, now time.Time) error {
	if a.store != nil {
		restored, err := a.loadStore(ctx, now)
		if err != nil {
			logging.Warn("Loading history from database failed", zap.Error(err))
		} else if restored > 0 {
			logging.Info("History restored from database", zap.Int("samples", restored))
			return nil
		}
	}

	if logPath == "" {
		return nil
	}
	samples, err := LoadLog(logPath)
	if err != nil {
		return fmt.Errorf("load data log: %w", err)
	}
	a.Restore(samples, now)
	logging.Info("History restored from data log",
		zap.Int("day_samples", len(a.Samples(Day))),
		zap.Int("week_samples", len(a.Samples(Week))),
	)
	return nil
}

func (a *Analyzer) loadStore(ctx context.Context, now time.Time) (int, error) {
	restored := 0
	for _, w := range []Window{Day, Week} {
		cutoff := now.Add(-w.Span())
		if err := a.store.Prune(ctx, w, cutoff); err != nil {
			return 0, err
		}
		samples, err := a.store.Load(ctx, w, cutoff)
		if err != nil {
			return 0, err
		}

		a.mu.Lock()
		r := a.windows[w]
		for _, s := range samples {
			if r.offer(s) {
				restored++
			}
		}
		a.mu.Unlock()
	}
	return restored, nil
}
