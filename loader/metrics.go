package loader

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// namespace is the leading part of all published metrics for the loader.
const namespace = "wasmload"

type loaderMetrics struct {
	Fetches      *prometheus.CounterVec   // label: status ("0" when no response)
	Compiles     *prometheus.CounterVec   // label: result
	Instantiates *prometheus.CounterVec   // label: result
	CacheLookups *prometheus.CounterVec   // label: result = {"hit", "miss"}
	Durations    *prometheus.HistogramVec // label: phase
}

func newLoaderMetrics() *loaderMetrics {
	return &loaderMetrics{
		Fetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_total",
			Help:      "Number of module fetches by response status.",
		}, []string{"status"}),
		Compiles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "compile_total",
			Help:      "Number of module compilations.",
		}, []string{"result"}),
		Instantiates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "instantiate_total",
			Help:      "Number of module instantiations.",
		}, []string{"result"}),
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Number of cache slot lookups.",
		}, []string{"result"}),
		Durations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "phase_duration_seconds",
			Help:      "Time spent in each load phase.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 8),
		}, []string{"phase"}),
	}
}

func (m *loaderMetrics) PrometheusCollectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.Fetches,
		m.Compiles,
		m.Instantiates,
		m.CacheLookups,
		m.Durations,
	}
}

func (m *loaderMetrics) fetched(status int, since time.Time) {
	m.Fetches.WithLabelValues(strconv.Itoa(status)).Inc()
	m.Durations.WithLabelValues("fetch").Observe(time.Since(since).Seconds())
}

func (m *loaderMetrics) compiled(err error, since time.Time) {
	m.Compiles.WithLabelValues(result(err)).Inc()
	m.Durations.WithLabelValues("compile").Observe(time.Since(since).Seconds())
}

func (m *loaderMetrics) instantiated(err error, since time.Time) {
	m.Instantiates.WithLabelValues(result(err)).Inc()
	m.Durations.WithLabelValues("instantiate").Observe(time.Since(since).Seconds())
}

func (m *loaderMetrics) lookup(hit bool) {
	if hit {
		m.CacheLookups.WithLabelValues("hit").Inc()
		return
	}
	m.CacheLookups.WithLabelValues("miss").Inc()
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
