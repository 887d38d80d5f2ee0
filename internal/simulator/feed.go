package simulator

import (
	"context"
	"encoding/json"
	"math"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/orion-kiosk/internal/energy"
	"github.com/muurk/orion-kiosk/internal/logging"
	"github.com/muurk/orion-kiosk/internal/transport"
)

// Meter produces plausible three-phase readings.
type Meter struct {
	rng     *rand.Rand
	start   time.Time
	energy  float64
	last    time.Time
	battery float64
}

// NewMeter creates a meter seeded with seed.
func NewMeter(seed uint64, start time.Time) *Meter {
	return &Meter{
		rng:     rand.New(rand.NewPCG(seed, seed^0x9E3779B97F4A7C15)),
		start:   start,
		last:    start,
		energy:  1234.5,
		battery: 100,
	}
}

// Next returns the reading at now.
func (m *Meter) Next(now time.Time) energy.Reading {
	// daily load curve peaking in the early evening
	hour := float64(now.Hour()) + float64(now.Minute())/60
	base := 900 + 600*math.Sin((hour-12)/24*2*math.Pi)

	phases := make([]energy.Phase, 3)
	total := 0.0
	for i := range phases {
		p := math.Max(base/3*(0.8+0.4*m.rng.Float64()), 0)
		phases[i] = energy.Phase{Power: round(p), Current: round(p / 230)}
		total += p
	}

	m.energy += total * now.Sub(m.last).Hours() / 1000
	m.last = now
	m.battery = math.Max(m.battery-0.01, 20)

	return energy.Reading{
		Voltage:     energy.Number(round(228 + 4*m.rng.Float64())),
		TotalPower:  energy.Number(round(total)),
		Battery:     energy.Number(round(m.battery)),
		EnergyTotal: energy.Number(round(m.energy)),
		RunTime:     energy.Number(math.Floor(now.Sub(m.start).Seconds())),
		Phases:      phases,
	}
}

func round(f float64) float64 {
	return math.Round(f*100) / 100
}

// Feed publishes a reading on topic every interval until ctx is done.
func Feed(ctx context.Context, bus transport.Bus, topic string, interval time.Duration) error {
	meter := NewMeter(uint64(time.Now().UnixNano()), time.Now())
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		payload, err := json.Marshal(meter.Next(time.Now()))
		if err != nil {
			return err
		}
		if err := bus.Publish(ctx, topic, payload); err != nil {
			logging.Debug("Simulated reading not published", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
