package server

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/papercomputeco/lmnode/pkg/llm"
)

// metrics records node invocations on a private registry.
type metrics struct {
	registry    *prometheus.Registry
	generations *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	inFlight    prometheus.Gauge
}

func newMetrics() *metrics {
	m := &metrics{
		registry: prometheus.NewRegistry(),
		generations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lmnode_generations_total",
				Help: "Node invocations by transport and outcome",
			},
			[]string{"transport", "outcome"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "lmnode_generation_duration_seconds",
				Help:    "Duration of node invocations",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
			},
			[]string{"transport"},
		),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "lmnode_generations_in_flight",
			Help: "Node invocations currently running",
		}),
	}

	m.registry.MustRegister(
		m.generations,
		m.duration,
		m.inFlight,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// track wraps a single invocation.
func (m *metrics) track(fn func() llm.Response) llm.Response {
	m.inFlight.Inc()
	defer m.inFlight.Dec()

	start := time.Now()
	resp := fn()

	transport := resp.Transport
	if transport == "" {
		transport = "none"
	}
	m.generations.WithLabelValues(transport, string(resp.Outcome)).Inc()
	m.duration.WithLabelValues(transport).Observe(time.Since(start).Seconds())

	return resp
}

func (m *metrics) handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
