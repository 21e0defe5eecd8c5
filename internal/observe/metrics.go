package observe

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Mutation outcomes recorded by Metrics.
const (
	outcomeChanged   = "changed"
	outcomeUnchanged = "unchanged"
	outcomeStale     = "stale"
)

// Metrics counts observer activity. A nil *Metrics records nothing.
type Metrics struct {
	starts    prometheus.Counter
	mutations *prometheus.CounterVec
	handles   prometheus.Gauge
}

// NewMetrics creates the observer metrics and registers them with reg.
// Observers sharing a registry must share the Metrics value.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		starts: f.NewCounter(prometheus.CounterOpts{
			Name: "factview_observer_starts_total",
			Help: "Number of times an observer started projecting a root",
		}),
		mutations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "factview_observer_mutations_total",
			Help: "Store transformers received, by outcome",
		}, []string{"outcome"}),
		handles: f.NewGauge(prometheus.GaugeOpts{
			Name: "factview_observer_open_handles",
			Help: "Top-level subscriptions currently open",
		}),
	}
}

func (m *Metrics) started(handles int) {
	if m == nil {
		return
	}
	m.starts.Inc()
	m.handles.Add(float64(handles))
}

func (m *Metrics) stopped(handles int) {
	if m == nil {
		return
	}
	m.handles.Sub(float64(handles))
}

func (m *Metrics) mutation(outcome string) {
	if m == nil {
		return
	}
	m.mutations.WithLabelValues(outcome).Inc()
}
