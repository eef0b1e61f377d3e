// Package metrics exposes Prometheus counters for live feeds, record mapping,
// date normalization and writes.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder is what the rest of the app reports to.
type Recorder interface {
	RecordSnapshot(feed string, kept, dropped int)
	RecordFeedError(feed string)
	RecordDateFallback(reason string)
	RecordMutation(entity, op string, err error, took time.Duration)
}

// Nop discards everything.
type Nop struct{}

func (Nop) RecordSnapshot(string, int, int)                     {}
func (Nop) RecordFeedError(string)                              {}
func (Nop) RecordDateFallback(string)                           {}
func (Nop) RecordMutation(string, string, error, time.Duration) {}

// Collector is the Prometheus-backed Recorder.
type Collector struct {
	snapshots     *prometheus.CounterVec
	feedErrors    *prometheus.CounterVec
	liveRows      *prometheus.GaugeVec
	dropped       *prometheus.CounterVec
	dateFallbacks *prometheus.CounterVec
	mutations     *prometheus.CounterVec
	mutationTime  *prometheus.HistogramVec
}

// NewCollector creates the metrics and registers them with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		snapshots: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "newsdesk_live_snapshots_total",
			Help: "Snapshots delivered by live feeds.",
		}, []string{"feed"}),
		feedErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "newsdesk_live_errors_total",
			Help: "Live feeds that ended with an error.",
		}, []string{"feed"}),
		liveRows: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "newsdesk_live_records",
			Help: "Records in the latest snapshot of each feed.",
		}, []string{"feed"}),
		dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "newsdesk_records_dropped_total",
			Help: "Stored documents rejected by the record mapper.",
		}, []string{"feed"}),
		dateFallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "newsdesk_date_fallbacks_total",
			Help: "Date values replaced by the current time or formatted as an error.",
		}, []string{"reason"}),
		mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "newsdesk_mutations_total",
			Help: "Create, update and delete calls by outcome.",
		}, []string{"entity", "op", "result"}),
		mutationTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "newsdesk_mutation_duration_seconds",
			Help:    "Latency of create, update and delete calls.",
			Buckets: prometheus.DefBuckets,
		}, []string{"entity", "op"}),
	}

	reg.MustRegister(
		c.snapshots,
		c.feedErrors,
		c.liveRows,
		c.dropped,
		c.dateFallbacks,
		c.mutations,
		c.mutationTime,
	)
	return c
}

func (c *Collector) RecordSnapshot(feed string, kept, dropped int) {
	c.snapshots.WithLabelValues(feed).Inc()
	c.liveRows.WithLabelValues(feed).Set(float64(kept))
	if dropped > 0 {
		c.dropped.WithLabelValues(feed).Add(float64(dropped))
	}
}

func (c *Collector) RecordFeedError(feed string) {
	c.feedErrors.WithLabelValues(feed).Inc()
}

func (c *Collector) RecordDateFallback(reason string) {
	c.dateFallbacks.WithLabelValues(reason).Inc()
}

func (c *Collector) RecordMutation(entity, op string, err error, took time.Duration) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	c.mutations.WithLabelValues(entity, op, result).Inc()
	c.mutationTime.WithLabelValues(entity, op).Observe(took.Seconds())
}

// Handler serves the registry in the Prometheus text format.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
