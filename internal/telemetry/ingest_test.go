package telemetry

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/muurk/orion-kiosk/internal/config"
	"github.com/muurk/orion-kiosk/internal/datalog"
	"github.com/muurk/orion-kiosk/internal/history"
	"github.com/muurk/orion-kiosk/internal/state"
	"github.com/muurk/orion-kiosk/internal/transport"
)

var t0 = time.Date(2026, 4, 2, 9, 30, 0, 0, time.Local)

type countingObserver struct {
	mu       sync.Mutex
	received map[string]int
	dropped  map[string]int
}

func newCountingObserver() *countingObserver {
	return &countingObserver{received: map[string]int{}, dropped: map[string]int{}}
}

func (o *countingObserver) Received(topic string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.received[topic]++
}

func (o *countingObserver) Dropped(topic, _ string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.dropped[topic]++
}

func setup(t *testing.T, opts ...Option) (*state.Store, *transport.MemoryBus, *countingObserver) {
	t.Helper()

	store := state.New(t0, state.ThemeDark)
	bus := transport.NewMemoryBus()
	obs := newCountingObserver()

	opts = append([]Option{WithClock(func() time.Time { return t0 }), WithObserver(obs)}, opts...)
	in := NewIngest(store, config.Default().Topics, opts...)
	if err := in.Subscribe(bus); err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	return store, bus, obs
}

func publish(t *testing.T, bus transport.Bus, topic, payload string) {
	t.Helper()
	if err := bus.Publish(context.Background(), topic, []byte(payload)); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
}

func TestEnergyMessageRebuildsMetrics(t *testing.T) {
	store, bus, _ := setup(t)

	publish(t, bus, "energy/metrics", `{
		"voltage": 230.1,
		"totalPower": 1520.5,
		"energyTotal": 12.34,
		"runTime": 3600,
		"phases": [{"power": 500.25, "current": 2.1}, {"power": 1020.25}]
	}`)

	want := []string{
		"Voltage: 230.1 V",
		"Total Power: 1520.50 W",
		"Energy Total: 12.34 kWh",
		"Runtime: 3600 sec",
		"Phase 1: 500.25W / 2.10A",
		"Phase 2: 1020.25W / 0.00A",
	}
	m := store.Snapshot()
	if !reflect.DeepEqual(m.EnergyMetrics, want) {
		t.Errorf("EnergyMetrics =\n%q\nwant\n%q", m.EnergyMetrics, want)
	}
	if !m.Energy.Received.Equal(t0) {
		t.Errorf("Received = %v, want %v", m.Energy.Received, t0)
	}
}

func TestEnergyMessageDefaults(t *testing.T) {
	store, bus, _ := setup(t)

	publish(t, bus, "energy/metrics", `{}`)

	want := []string{
		"Voltage: N/A V",
		"Total Power: N/A",
		"Energy Total: N/A kWh",
		"Runtime: 0 sec",
	}
	if got := store.Snapshot().EnergyMetrics; !reflect.DeepEqual(got, want) {
		t.Errorf("EnergyMetrics = %q, want %q", got, want)
	}
}

func TestMalformedEnergyIsDropped(t *testing.T) {
	store, bus, obs := setup(t)

	publish(t, bus, "energy/metrics", `{"voltage": 231}`)
	before := store.Snapshot().EnergyMetrics

	for _, payload := range []string{`{"voltage":`, `[1,2]`, ``, `"text"`} {
		publish(t, bus, "energy/metrics", payload)
	}

	if got := store.Snapshot().EnergyMetrics; !reflect.DeepEqual(got, before) {
		t.Errorf("state changed by malformed payloads: %q", got)
	}
	if obs.dropped["energy/metrics"] != 4 {
		t.Errorf("dropped = %d, want 4", obs.dropped["energy/metrics"])
	}
	if obs.received["energy/metrics"] != 5 {
		t.Errorf("received = %d, want 5", obs.received["energy/metrics"])
	}
}

func TestEnergyFeedsLogAndAnalyzer(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "mqtt_data_log.txt")
	dl, err := datalog.New(path)
	if err != nil {
		t.Fatal(err)
	}
	analyzer := history.NewAnalyzer()

	store, bus, _ := setup(t, WithDataLog(dl), WithAnalyzer(analyzer))
	publish(t, bus, "energy/metrics", `{"totalPower": 800, "energyTotal": 5}`)

	entries, err := datalog.Tail(path, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || string(entries[0].Payload) != `{"totalPower":800,"energyTotal":5}` {
		t.Errorf("data log entries = %+v", entries)
	}

	m := store.Snapshot()
	if m.Trend24h == nil || m.Trend24h.AvgPower != 800 {
		t.Errorf("Trend24h = %+v, want avg 800", m.Trend24h)
	}
	if m.Trend7d == nil || m.Trend7d.Points != 1 {
		t.Errorf("Trend7d = %+v, want one point", m.Trend7d)
	}
}

func TestScanResultsWritten(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scanned_networks.json")
	_, bus, obs := setup(t, WithScanFile(path))

	publish(t, bus, "orion/scan", `[{"ssid":"Home","rssi":-40}]`)

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("scan file not written: %v", err)
	}
	var got []map[string]any
	if err := json.Unmarshal(data, &got); err != nil || len(got) != 1 || got[0]["ssid"] != "Home" {
		t.Errorf("scan file = %s", data)
	}

	publish(t, bus, "orion/scan", `not json`)
	if obs.dropped["orion/scan"] != 1 {
		t.Errorf("dropped = %d, want 1", obs.dropped["orion/scan"])
	}
	if data2, _ := os.ReadFile(path); string(data2) != string(data) {
		t.Error("invalid scan overwrote the previous results")
	}
}

func TestPairingTopicsDoNotTouchState(t *testing.T) {
	store, bus, obs := setup(t)
	before := store.Snapshot()

	publish(t, bus, "pairing/status", `{"status":"paired"}`)
	publish(t, bus, "orion/wifi_credentials", `{"ssid":"Home","password":"secret"}`)
	publish(t, bus, "orion/confirm", `{"ok":true}`)
	publish(t, bus, "orion/confirm", `nope`)

	after := store.Snapshot()
	if !reflect.DeepEqual(before, after) {
		t.Error("notice topics changed the state")
	}
	if obs.dropped["orion/confirm"] != 1 {
		t.Errorf("dropped = %d, want 1", obs.dropped["orion/confirm"])
	}
}

func TestHeartbeatPublishesStatus(t *testing.T) {
	store := state.New(t0, state.ThemeDark)
	store.Update(func(m *state.Model) {
		m.Menu = state.MenuEnergy
		m.Standby = true
	})
	bus := transport.NewMemoryBus()

	received := make(chan Status, 4)
	if err := bus.Subscribe("orion/kiosk/status", func(m transport.Message) {
		var s Status
		if err := json.Unmarshal(m.Payload, &s); err != nil {
			t.Errorf("heartbeat payload: %v", err)
		}
		received <- s
	}); err != nil {
		t.Fatal(err)
	}

	h := NewHeartbeat(bus, store, "orion/kiosk/status", time.Hour)
	h.now = func() time.Time { return h.started.Add(90 * time.Second) }

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.Run(ctx) }()

	select {
	case s := <-received:
		if s.Menu != "Energy" || !s.Standby || s.Uptime != 90 {
			t.Errorf("Status = %+v", s)
		}
		if strings.TrimSpace(s.Version) == "" {
			t.Error("Status.Version is empty")
		}
	case <-time.After(time.Second):
		t.Fatal("no heartbeat published on start")
	}

	cancel()
	if err := <-done; err != nil {
		t.Errorf("Run() error = %v", err)
	}
}

func TestHeartbeatDisabled(t *testing.T) {
	h := NewHeartbeat(transport.NewMemoryBus(), state.New(t0, state.ThemeDark), "orion/kiosk/status", 0)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := h.Run(ctx); err != nil {
		t.Errorf("Run() error = %v", err)
	}
}
