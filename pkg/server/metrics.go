package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	dberr "ccsim/pkg/error"
	"ccsim/pkg/scheduler"
)

// Metrics holds the simulator's Prometheus collectors. Each Server owns its
// own registry so several servers (and tests) never collide on registration.
type Metrics struct {
	registry *prometheus.Registry

	runs         *prometheus.CounterVec
	failures     *prometheus.CounterVec
	aborts       *prometheus.CounterVec
	runDuration  *prometheus.HistogramVec
	httpRequests *prometheus.CounterVec
}

// NewMetrics creates and registers every collector.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ccsim",
			Name:      "runs_total",
			Help:      "Simulation runs by algorithm and outcome (clean, aborts, failed).",
		}, []string{"algorithm", "outcome"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ccsim",
			Name:      "run_failures_total",
			Help:      "Fatal run errors by algorithm and error code.",
		}, []string{"algorithm", "code"}),
		aborts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ccsim",
			Name:      "aborts_total",
			Help:      "Aborted transaction incarnations by algorithm and reason code.",
		}, []string{"algorithm", "code"}),
		runDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "ccsim",
			Name:      "run_duration_seconds",
			Help:      "Wall time of one simulation run including parsing.",
			Buckets:   prometheus.ExponentialBuckets(0.00005, 4, 8),
		}, []string{"algorithm"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ccsim",
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status code.",
		}, []string{"route", "status"}),
	}

	m.registry.MustRegister(
		m.runs,
		m.failures,
		m.aborts,
		m.runDuration,
		m.httpRequests,
		collectors.NewGoCollector(),
	)
	return m
}

// ObserveRun records the outcome of one simulation.
func (m *Metrics) ObserveRun(alg scheduler.Algorithm, res *scheduler.Result, err error, elapsed time.Duration) {
	m.runDuration.WithLabelValues(alg.String()).Observe(elapsed.Seconds())

	switch {
	case err != nil:
		m.runs.WithLabelValues(alg.String(), "failed").Inc()
		m.failures.WithLabelValues(alg.String(), dberr.CodeOf(err)).Inc()
	case res.Clean():
		m.runs.WithLabelValues(alg.String(), "clean").Inc()
	default:
		m.runs.WithLabelValues(alg.String(), "aborts").Inc()
	}

	if res == nil {
		return
	}
	for _, ev := range res.Aborts {
		m.aborts.WithLabelValues(alg.String(), ev.Code).Inc()
	}
}

func (m *Metrics) observeRequest(route string, status int) {
	m.httpRequests.WithLabelValues(route, strconv.Itoa(status)).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
