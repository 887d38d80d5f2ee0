// Package telemetry feeds broker messages into the kiosk state.
//
// Ingest subscribes to the energy and pairing topics. Energy readings
// replace the displayed metrics, are appended to the data log and feed the
// history analyzer. Heartbeat publishes the kiosk's own status.
package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/orion-kiosk/internal/config"
	"github.com/muurk/orion-kiosk/internal/energy"
	"github.com/muurk/orion-kiosk/internal/history"
	"github.com/muurk/orion-kiosk/internal/logging"
	"github.com/muurk/orion-kiosk/internal/state"
	"github.com/muurk/orion-kiosk/internal/transport"
)

// DataLog stores raw energy payloads.
type DataLog interface {
	Write(payload []byte) error
}

// Analyzer accumulates readings into rolling statistics.
type Analyzer interface {
	Add(ctx context.Context, r energy.Reading, at time.Time)
	Stats(w history.Window) *energy.Stats
}

// Observer counts ingested and dropped messages.
type Observer interface {
	Received(topic string)
	Dropped(topic, reason string)
}

// Ingest routes broker messages.
type Ingest struct {
	store    *state.Store
	topics   config.Topics
	log      DataLog
	analyzer Analyzer
	scanFile string
	now      func() time.Time
	obs      Observer
}

// Option configures an Ingest.
type Option func(*Ingest)

// WithDataLog appends every energy payload to l.
func WithDataLog(l DataLog) Option {
	return func(i *Ingest) { i.log = l }
}

// WithAnalyzer feeds readings to a and publishes its statistics.
func WithAnalyzer(a Analyzer) Option {
	return func(i *Ingest) { i.analyzer = a }
}

// WithScanFile writes network scan results to path.
func WithScanFile(path string) Option {
	return func(i *Ingest) { i.scanFile = path }
}

// WithClock replaces the wall clock.
func WithClock(now func() time.Time) Option {
	return func(i *Ingest) { i.now = now }
}

// WithObserver registers an ingest observer.
func WithObserver(o Observer) Option {
	return func(i *Ingest) { i.obs = o }
}

// NewIngest creates an ingest writing to store.
func NewIngest(store *state.Store, topics config.Topics, opts ...Option) *Ingest {
	i := &Ingest{
		store:  store,
		topics: topics,
		now:    time.Now,
		obs:    nopObserver{},
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Subscribe registers the ingest on every topic it handles.
func (i *Ingest) Subscribe(bus transport.Bus) error {
	topics := []string{
		i.topics.Energy,
		i.topics.PairingStatus,
		i.topics.WiFiCredentials,
		i.topics.Confirm,
		i.topics.Scan,
	}
	for _, t := range topics {
		if t == "" {
			continue
		}
		if err := bus.Subscribe(t, i.Handle); err != nil {
			return fmt.Errorf("subscribe %s: %w", t, err)
		}
	}
	return nil
}

// Handle processes one message. Malformed payloads are logged and
// dropped without touching the state.
func (i *Ingest) Handle(msg transport.Message) {
	defer func() {
		if r := recover(); r != nil {
			logging.Error("Recovered panic in telemetry handler",
				zap.String("topic", msg.Topic),
				zap.Any("panic", r),
				zap.Stack("stack"),
			)
			i.obs.Dropped(msg.Topic, "panic")
		}
	}()

	i.obs.Received(msg.Topic)

	var err error
	switch msg.Topic {
	case i.topics.Energy:
		err = i.energy(msg.Payload)
	case i.topics.Scan:
		err = i.scan(msg.Payload)
	case i.topics.PairingStatus, i.topics.WiFiCredentials, i.topics.Confirm:
		err = i.notice(msg.Topic, msg.Payload)
	default:
		logging.Debug("Ignoring message on unknown topic", zap.String("topic", msg.Topic))
		return
	}

	logging.LogTelemetry(msg.Topic, len(msg.Payload), err)
	if err != nil {
		i.obs.Dropped(msg.Topic, "malformed")
	}
}

func (i *Ingest) energy(payload []byte) error {
	r, err := energy.Parse(payload)
	if err != nil {
		return err
	}

	now := i.now()
	r.Received = now
	i.store.SetEnergy(r)

	if i.log != nil {
		if err := i.log.Write(payload); err != nil {
			logging.Error("Error logging data", zap.Error(err))
		}
	}

	if i.analyzer != nil {
		i.analyzer.Add(context.Background(), r, now)
		i.store.SetTrends(i.analyzer.Stats(history.Day), i.analyzer.Stats(history.Week))
	}
	return nil
}

func (i *Ingest) scan(payload []byte) error {
	if !json.Valid(payload) {
		return fmt.Errorf("scan results are not JSON")
	}
	if i.scanFile == "" {
		return nil
	}
	return writeFileAtomic(i.scanFile, payload)
}

// notice logs messages on topics that carry no state for the kiosk.
func (i *Ingest) notice(topic string, payload []byte) error {
	var v any
	if err := json.Unmarshal(payload, &v); err != nil {
		return fmt.Errorf("invalid payload: %w", err)
	}
	if topic == i.topics.WiFiCredentials {
		// never log the password
		logging.Info("WiFi credentials received", zap.String("topic", topic))
		return nil
	}
	logging.Info("Broker notice", zap.String("topic", topic), zap.Any("payload", v))
	return nil
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to rename %s: %w", tmp, err)
	}
	return nil
}

type nopObserver struct{}

func (nopObserver) Received(string)        {}
func (nopObserver) Dropped(string, string) {}
