// Package instrument exports the kiosk's Prometheus metrics.
//
// Instruments implements the observer interfaces of the navigation loop
// and the telemetry ingest so neither package depends on Prometheus.
package instrument

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/muurk/orion-kiosk/internal/gesture"
	"github.com/muurk/orion-kiosk/internal/state"
)

const namespace = "orion"

// Instruments holds every kiosk metric.
type Instruments struct {
	gestures    *prometheus.CounterVec
	transitions *prometheus.CounterVec
	standby     prometheus.Gauge
	standbys    prometheus.Counter
	faults      *prometheus.CounterVec
	received    *prometheus.CounterVec
	dropped     *prometheus.CounterVec
}

// New registers the instruments with reg. A nil reg uses the default
// registry.
func New(reg prometheus.Registerer) *Instruments {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)

	return &Instruments{
		gestures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gestures_total",
			Help:      "Gestures seen by the navigation loop, by outcome.",
		}, []string{"gesture", "outcome"}),
		transitions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "menu_transitions_total",
			Help:      "Menu changes.",
		}, []string{"from", "to"}),
		standby: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "standby",
			Help:      "1 while the display is in standby.",
		}),
		standbys: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "standby_entries_total",
			Help:      "Times the kiosk went idle.",
		}),
		faults: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "loop_faults_total",
			Help:      "Recovered panics and errors in the navigation loop.",
		}, []string{"where"}),
		received: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "telemetry_messages_total",
			Help:      "Broker messages processed.",
		}, []string{"topic"}),
		dropped: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "telemetry_dropped_total",
			Help:      "Broker messages dropped.",
		}, []string{"topic", "reason"}),
	}
}

func (i *Instruments) GestureAccepted(g gesture.Code) {
	i.gestures.WithLabelValues(g.String(), "accepted").Inc()
}

func (i *Instruments) GestureDebounced(g gesture.Code) {
	i.gestures.WithLabelValues(g.String(), "debounced").Inc()
}

func (i *Instruments) Transition(from, to state.Menu) {
	i.transitions.WithLabelValues(from.String(), to.String()).Inc()
}

func (i *Instruments) Standby(entered bool) {
	if entered {
		i.standby.Set(1)
		i.standbys.Inc()
		return
	}
	i.standby.Set(0)
}

func (i *Instruments) Fault(where string) {
	i.faults.WithLabelValues(where).Inc()
}

func (i *Instruments) Received(topic string) {
	i.received.WithLabelValues(topic).Inc()
}

func (i *Instruments) Dropped(topic, reason string) {
	i.dropped.WithLabelValues(topic, reason).Inc()
}

// WatchStore exports gauges read from the store at scrape time.
func WatchStore(reg prometheus.Registerer, store *state.Store) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)

	f.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "energy_power_watts",
		Help:      "Total power of the last energy reading.",
	}, func() float64 {
		m := store.Snapshot()
		return m.Energy.Power()
	})
	f.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "energy_total_kwh",
		Help:      "Cumulative energy of the last energy reading.",
	}, func() float64 {
		m := store.Snapshot()
		return m.Energy.Energy()
	})
	f.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "menu",
		Help:      "Index of the menu on screen.",
	}, func() float64 {
		return float64(store.Menu())
	})
}
