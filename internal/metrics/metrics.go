// Package metrics exposes Prometheus collectors for server queries and history writes.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/woozymasta/mcstatus/internal/game"
	"github.com/woozymasta/mcstatus/internal/models"
)

// Namespace prefixes every metric name.
const Namespace = "mcstatus"

// Query results used in the "result" label.
const (
	ResultOnline  = "online"
	ResultOffline = "offline"
)

// Metrics holds the collectors registered by New.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry       *prometheus.Registry
	queries        *prometheus.CounterVec
	duration       *prometheus.HistogramVec
	errors         *prometheus.CounterVec
	historyWritten *prometheus.CounterVec
	historyDropped prometheus.Counter
}

// New registers the collectors on a fresh registry together with the Go and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return NewWithRegistry(reg)
}

// NewWithRegistry registers the collectors on reg.
func NewWithRegistry(reg *prometheus.Registry) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		queries: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "queries_total",
			Help:      "Total number of server queries by kind and result",
		}, []string{"kind", "result"}),

		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "query_duration_seconds",
			Help:      "Server query duration in seconds, failures included",
			Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"kind"}),

		errors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "query_errors_total",
			Help:      "Total number of failed server queries by error kind",
		}, []string{"kind", "error_kind"}),

		historyWritten: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "history_writes_total",
			Help:      "Total number of history write attempts by result",
		}, []string{"result"}),

		historyDropped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "history_dropped_total",
			Help:      "History jobs dropped because the queue was full or stopped",
		}),
	}
}

// ObserveQuery records the outcome of one query.
func (m *Metrics) ObserveQuery(kind string, res models.Result, took time.Duration) {
	if m == nil {
		return
	}

	m.duration.WithLabelValues(kind).Observe(took.Seconds())
	if res.OK() {
		m.queries.WithLabelValues(kind, ResultOnline).Inc()
		return
	}

	m.queries.WithLabelValues(kind, ResultOffline).Inc()
	m.errors.WithLabelValues(kind, game.KindOf(res.Err).String()).Inc()
}

// Instrument wraps q so every query is observed under kind.
func (m *Metrics) Instrument(kind string, q game.Querier) game.Querier {
	if m == nil {
		return q
	}

	return game.QuerierFunc(func(ctx context.Context, address string) models.Result {
		start := time.Now()
		res := q.Query(ctx, address)
		m.ObserveQuery(kind, res, time.Since(start))

		return res
	})
}

// HistoryWritten counts a history write, failed or not.
func (m *Metrics) HistoryWritten(err error) {
	if m == nil {
		return
	}

	result := "ok"
	if err != nil {
		result = "error"
	}
	m.historyWritten.WithLabelValues(result).Inc()
}

// HistoryDropped counts a history job that was not queued.
func (m *Metrics) HistoryDropped() {
	if m == nil {
		return
	}

	m.historyDropped.Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}

	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
