package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// QueryDuration is the latency of executed queries by engine and outcome.
	QueryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sensorsql_query_duration_seconds",
			Help:    "Query execution latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"engine", "outcome"},
	)
	// QueriesTotal counts queries by engine and error kind ("ok" on success).
	QueriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sensorsql_queries_total",
			Help: "Total number of executed queries",
		},
		[]string{"engine", "outcome"},
	)
)

// Collector exports a Counters snapshot as gauges on every scrape.
type Collector struct {
	c      *Counters
	gauges map[string]*prometheus.Desc
}

var gaugeHelp = map[string]string{
	"volume":          "Records seen since the last reset",
	"velocity":        "Target records per second",
	"structured":      "Structured records seen",
	"unstructured":    "Unstructured records seen",
	"semi_structured": "Semi-structured records seen",
	"valid":           "Records that passed quality checks",
	"errors":          "Records with errors",
	"missing":         "Records with missing values",
	"batch_count":     "Items queued for batch processing",
	"stream_rate":     "Current stream processing rate",
	"quality_percent": "Share of valid records in percent",
}

// NewCollector returns a collector over c.
func NewCollector(c *Counters) *Collector {
	col := &Collector{c: c, gauges: make(map[string]*prometheus.Desc, len(gaugeHelp))}
	for name, help := range gaugeHelp {
		col.gauges[name] = prometheus.NewDesc("sensorsql_simulation_"+name, help, nil, nil)
	}
	return col
}

// Describe implements prometheus.Collector.
func (col *Collector) Describe(ch chan<- *prometheus.Desc) {
	for _, d := range col.gauges {
		ch <- d
	}
}

// Collect implements prometheus.Collector.
func (col *Collector) Collect(ch chan<- prometheus.Metric) {
	s := col.c.Snapshot()
	values := map[string]float64{
		"volume":          float64(s.Volume),
		"velocity":        float64(s.Velocity),
		"structured":      float64(s.Structured),
		"unstructured":    float64(s.Unstructured),
		"semi_structured": float64(s.SemiStructured),
		"valid":           float64(s.Valid),
		"errors":          float64(s.Errors),
		"missing":         float64(s.Missing),
		"batch_count":     float64(s.BatchCount),
		"stream_rate":     float64(s.StreamRate),
		"quality_percent": s.Quality,
	}
	for name, d := range col.gauges {
		ch <- prometheus.MustNewConstMetric(d, prometheus.GaugeValue, values[name])
	}
}

// NewRegistry returns a registry with the query metrics and a collector for c.
func NewRegistry(c *Counters) *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(QueryDuration, QueriesTotal, NewCollector(c))
	return reg
}

// ObserveQuery records one query outcome.
func ObserveQuery(engine, outcome string, seconds float64) {
	QueryDuration.WithLabelValues(engine, outcome).Observe(seconds)
	QueriesTotal.WithLabelValues(engine, outcome).Inc()
}
