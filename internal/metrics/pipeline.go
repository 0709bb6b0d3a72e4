package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Recommendation pipeline metrics.
var (
	RecommendationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recommendations_total",
			Help:      "Recommendation requests by outcome",
		},
		[]string{"outcome"}, // recommend.Outcome labels
	)

	StageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pipeline_stage_duration_seconds",
			Help:      "Duration of each recommendation pipeline stage",
			Buckets:   []float64{0.0001, 0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"stage"}, // "search" / "truncate" / "balance"
	)

	ResultBucketRecords = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recommended_records_total",
			Help:      "Recommended records by balancing bucket",
		},
		[]string{"bucket"},
	)

	IndexLoadDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "index_load_duration_seconds",
			Help:      "Time to load the index artifact",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30},
		},
	)

	IndexLoadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "index_loads_total",
			Help:      "Index artifact load attempts",
		},
		[]string{"status"},
	)

	IndexRecords = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "index_records",
			Help:      "Number of records in the loaded index",
		},
	)
)

var pipelineMetricsRegistered bool

// RegisterPipelineMetrics registers recommendation and index metrics. Must be called once from main.
func RegisterPipelineMetrics() {
	if pipelineMetricsRegistered {
		return
	}
	prometheus.MustRegister(RecommendationsTotal)
	prometheus.MustRegister(StageDuration)
	prometheus.MustRegister(ResultBucketRecords)
	prometheus.MustRegister(IndexLoadDuration)
	prometheus.MustRegister(IndexLoadsTotal)
	prometheus.MustRegister(IndexRecords)
	pipelineMetricsRegistered = true
}

// ObserveStage records the time elapsed since start for a pipeline stage.
func ObserveStage(stage string, start time.Time) {
	StageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}
