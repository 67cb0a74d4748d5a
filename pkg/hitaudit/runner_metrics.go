package hitaudit

import (
	"github.com/prometheus/client_golang/prometheus"
)

type metricSet struct {
	events    *prometheus.CounterVec
	proc      prometheus.Histogram
	lagGauge  prometheus.Gauge
	lastValue prometheus.Gauge
}

func newMetricSet(r prometheus.Registerer) *metricSet {
	m := &metricSet{
		events: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hit_audit_events_total",
				Help: "Hit events consumed by result.",
			},
			[]string{"result"},
		),
		proc: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "hit_audit_processing_seconds",
				Help:    "Processing time for one hit event.",
				Buckets: prometheus.ExponentialBuckets(0.00005, 2, 15),
			},
		),
		lagGauge: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "hit_audit_lag_seconds",
				Help: "Approximate lag: now - message.timestamp.",
			},
		),
		lastValue: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "hit_audit_last_value",
				Help: "Highest counter value seen in hit events.",
			},
		),
	}
	if r != nil {
		r.MustRegister(m.events, m.proc, m.lagGauge, m.lastValue)
	}
	return m
}
