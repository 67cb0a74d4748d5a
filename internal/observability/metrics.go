// Package observability records the service's application metrics.
//
// Collectors are registered on the registry handed to Init. Until Init is
// called with enabled=true every recording function is a no-op.
package observability

import (
	"strconv"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
)

// Store operation results.
const (
	ResultOK          = "ok"
	ResultUnavailable = "unavailable"
	ResultError       = "error"
)

type metricSet struct {
	httpRequests     *prometheus.CounterVec
	httpDuration     *prometheus.HistogramVec
	redisOpDuration  *prometheus.HistogramVec
	storeOps         *prometheus.CounterVec
	hits             prometheus.Counter
	counterValue     prometheus.Gauge
	hitEventsDropped prometheus.Counter
}

var current atomic.Pointer[metricSet]

func newMetricSet() *metricSet {
	return &metricSet{
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests.",
			},
			[]string{"method", "route", "status"},
		),
		httpDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds.",
				Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14), // 0.5ms to ~4s
			},
			[]string{"method", "route", "status"},
		),
		redisOpDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "redis_operation_duration_seconds",
				Help:    "Latency of Redis operations in seconds.",
				Buckets: prometheus.ExponentialBuckets(0.0001, 2, 14),
			},
			[]string{"op"},
		),
		storeOps: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "counter_store_ops_total",
				Help: "Counter store operations by result.",
			},
			[]string{"op", "result"},
		),
		hits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "counter_hits_total",
			Help: "Increments acknowledged by the counter store.",
		}),
		counterValue: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "counter_value",
			Help: "Last counter value returned by the store.",
		}),
		hitEventsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hit_events_dropped_total",
			Help: "Hit events dropped because the publish queue was full.",
		}),
	}
}

func Init(reg prometheus.Registerer, enabled bool) {
	if !enabled || reg == nil {
		current.Store(nil)
		return
	}
	m := newMetricSet()
	reg.MustRegister(
		m.httpRequests,
		m.httpDuration,
		m.redisOpDuration,
		m.storeOps,
		m.hits,
		m.counterValue,
		m.hitEventsDropped,
	)
	current.Store(m)
}

func ObserveHTTP(method, route string, status int, durationSeconds float64) {
	m := current.Load()
	if m == nil {
		return
	}
	st := strconv.Itoa(status)
	m.httpRequests.WithLabelValues(method, route, st).Inc()
	m.httpDuration.WithLabelValues(method, route, st).Observe(durationSeconds)
}

func ObserveStoreOp(op, result string, durationSeconds float64) {
	m := current.Load()
	if m == nil {
		return
	}
	m.redisOpDuration.WithLabelValues(op).Observe(durationSeconds)
	m.storeOps.WithLabelValues(op, result).Inc()
}

func ObserveHit(value int64) {
	m := current.Load()
	if m == nil {
		return
	}
	m.hits.Inc()
	m.counterValue.Set(float64(value))
}

func IncHitEventsDropped() {
	if m := current.Load(); m != nil {
		m.hitEventsDropped.Inc()
	}
}
