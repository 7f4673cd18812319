package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// Recorder implements repository.Metrics using Prometheus.
type Recorder struct {
	cacheLookups  *prometheus.CounterVec
	selections    *prometheus.CounterVec
	selectedCount prometheus.Histogram
	errorsTotal   *prometheus.CounterVec
	latency       *prometheus.HistogramVec
}

// New creates a recorder registered on the default registry.
func New() *Recorder {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates a recorder registered on reg. Tests pass a fresh registry.
func NewWithRegistry(reg prometheus.Registerer) *Recorder {
	r := &Recorder{
		cacheLookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chartfeed_chunk_cache_lookups_total",
				Help: "Chunk cache lookups by lifetime and result",
			},
			[]string{"lifetime", "result"},
		),
		selections: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chartfeed_chunk_selections_total",
				Help: "Chunk selections by whether both the volume and range targets were met",
			},
			[]string{"complete"},
		),
		selectedCount: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "chartfeed_chunk_selection_size",
				Help:    "Number of chunks returned by one selection",
				Buckets: []float64{0, 1, 2, 3, 5, 8, 13, 21, 50},
			},
		),
		errorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chartfeed_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		latency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "chartfeed_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
	reg.MustRegister(r.cacheLookups, r.selections, r.selectedCount, r.errorsTotal, r.latency)
	return r
}

// RecordCacheLookup counts a hit or miss for chunks of the given lifetime.
func (r *Recorder) RecordCacheLookup(lifetime string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	r.cacheLookups.WithLabelValues(lifetime, result).Inc()
}

func (r *Recorder) RecordSelection(chunks int, complete bool) {
	r.selections.WithLabelValues(strconv.FormatBool(complete)).Inc()
	r.selectedCount.Observe(float64(chunks))
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

// Noop discards everything.
type Noop struct{}

func (Noop) RecordCacheLookup(string, bool) {}
func (Noop) RecordSelection(int, bool)      {}
func (Noop) RecordError(string)             {}
func (Noop) RecordLatency(string, float64)  {}
