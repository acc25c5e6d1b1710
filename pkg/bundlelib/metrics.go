package bundlelib

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the scheduler's Prometheus collectors. A nil *Metrics
// records nothing.
type Metrics struct {
	FreeSlots       prometheus.Gauge
	InFlight        prometheus.Gauge
	ActiveOps       prometheus.Gauge
	CachedBundles   prometheus.Gauge
	Attempts        *prometheus.CounterVec
	Operations      *prometheus.CounterVec
	AttemptDuration prometheus.Histogram
}

// NewMetrics creates the collectors and registers them on reg when reg
// is not nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		FreeSlots: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "warpbundle_free_slots",
			Help: "Number of transport slots not currently in use.",
		}),
		InFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "warpbundle_in_flight_transfers",
			Help: "Number of bundle transfers in progress.",
		}),
		ActiveOps: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "warpbundle_active_operations",
			Help: "Number of load operations that have not completed.",
		}),
		CachedBundles: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "warpbundle_cached_bundles",
			Help: "Number of bundles in the cache.",
		}),
		Attempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "warpbundle_attempts_total",
				Help: "Bundle transfer attempts by result.",
			},
			[]string{"result"},
		),
		Operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "warpbundle_operations_total",
				Help: "Completed load operations by result.",
			},
			[]string{"result"},
		),
		AttemptDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "warpbundle_attempt_duration_seconds",
			Help:    "Time taken by one bundle transfer attempt.",
			Buckets: prometheus.DefBuckets,
		}),
	}
	if reg != nil {
		reg.MustRegister(
			m.FreeSlots,
			m.InFlight,
			m.ActiveOps,
			m.CachedBundles,
			m.Attempts,
			m.Operations,
			m.AttemptDuration,
		)
	}
	return m
}

func (m *Metrics) observeSlots(free, inFlight, active int) {
	if m == nil {
		return
	}
	m.FreeSlots.Set(float64(free))
	m.InFlight.Set(float64(inFlight))
	m.ActiveOps.Set(float64(active))
}

func (m *Metrics) observeAttempt(ok bool, d time.Duration) {
	if m == nil {
		return
	}
	m.Attempts.WithLabelValues(resultLabel(ok)).Inc()
	m.AttemptDuration.Observe(d.Seconds())
}

func (m *Metrics) observeOperation(ok bool) {
	if m == nil {
		return
	}
	m.Operations.WithLabelValues(resultLabel(ok)).Inc()
}

func (m *Metrics) observeCache(n int) {
	if m == nil {
		return
	}
	m.CachedBundles.Set(float64(n))
}

func resultLabel(ok bool) string {
	if ok {
		return "success"
	}
	return "failure"
}
