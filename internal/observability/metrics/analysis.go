package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kirillkom/meal-nutrition/internal/core/domain"
)

const namespace = "nutrition"

// AnalysisMetrics records matching, aggregation and reference load
// observations. It satisfies ports.AnalysisRecorder and ports.ReferenceRecorder.
type AnalysisMetrics struct {
	service string

	matchTotal           *prometheus.CounterVec
	lowConfidenceTotal   *prometheus.CounterVec
	aggregationTotal     *prometheus.CounterVec
	aggregationDuration  *prometheus.HistogramVec
	aggregationItems     *prometheus.HistogramVec
	itemsTotal           *prometheus.CounterVec
	completeness         *prometheus.HistogramVec
	referenceLoadTotal   *prometheus.CounterVec
	referenceLoadSeconds *prometheus.HistogramVec
	referenceRecords     *prometheus.GaugeVec
}

func newAnalysisMetrics(service string, registry prometheus.Registerer) *AnalysisMetrics {
	matchTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "match",
			Name:      "total",
			Help:      "Food match attempts by confidence tier.",
		},
		[]string{"service", "tier", "matched"},
	)
	lowConfidenceTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "match",
			Name:      "low_confidence_total",
			Help:      "Candidates rejected for scoring below the similarity threshold.",
		},
		[]string{"service"},
	)
	aggregationTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "aggregation",
			Name:      "runs_total",
			Help:      "Completed meal aggregations.",
		},
		[]string{"service"},
	)
	aggregationDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "aggregation",
			Name:      "duration_seconds",
			Help:      "Meal aggregation duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service"},
	)
	aggregationItems := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "aggregation",
			Name:      "input_items",
			Help:      "Distribution of input items per aggregation.",
			Buckets:   []float64{1, 2, 3, 5, 8, 13, 21, 50, 100, 200},
		},
		[]string{"service"},
	)
	itemsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "aggregation",
			Name:      "items_total",
			Help:      "Aggregated input items by resolution status.",
		},
		[]string{"service", "status"},
	)
	completeness := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "aggregation",
			Name:      "completeness_ratio",
			Help:      "Share of input items resolved to reference records.",
			Buckets:   []float64{0, 0.25, 0.5, 0.75, 0.9, 1},
		},
		[]string{"service"},
	)
	referenceLoadTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reference",
			Name:      "loads_total",
			Help:      "Reference dataset loads by outcome.",
		},
		[]string{"service", "outcome"},
	)
	referenceLoadSeconds := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "reference",
			Name:      "load_duration_seconds",
			Help:      "Reference dataset load duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"service", "outcome"},
	)
	referenceRecords := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "reference",
			Name:      "records",
			Help:      "Valid records in the active reference snapshot.",
		},
		[]string{"service"},
	)

	registry.MustRegister(
		matchTotal,
		lowConfidenceTotal,
		aggregationTotal,
		aggregationDuration,
		aggregationItems,
		itemsTotal,
		completeness,
		referenceLoadTotal,
		referenceLoadSeconds,
		referenceRecords,
	)

	return &AnalysisMetrics{
		service:              service,
		matchTotal:           matchTotal,
		lowConfidenceTotal:   lowConfidenceTotal,
		aggregationTotal:     aggregationTotal,
		aggregationDuration:  aggregationDuration,
		aggregationItems:     aggregationItems,
		itemsTotal:           itemsTotal,
		completeness:         completeness,
		referenceLoadTotal:   referenceLoadTotal,
		referenceLoadSeconds: referenceLoadSeconds,
		referenceRecords:     referenceRecords,
	}
}

func (m *AnalysisMetrics) RecordMatch(tier domain.ConfidenceTier, matched bool) {
	label := string(tier)
	if label == "" {
		label = "NONE"
	}
	status := "false"
	if matched {
		status = "true"
	}
	m.matchTotal.WithLabelValues(m.service, label, status).Inc()
}

func (m *AnalysisMetrics) RecordLowConfidenceMatch() {
	m.lowConfidenceTotal.WithLabelValues(m.service).Inc()
}

func (m *AnalysisMetrics) RecordAggregation(inputItems, resolvedItems int, completeness float64, duration time.Duration) {
	m.aggregationTotal.WithLabelValues(m.service).Inc()
	m.aggregationDuration.WithLabelValues(m.service).Observe(duration.Seconds())
	m.aggregationItems.WithLabelValues(m.service).Observe(float64(inputItems))
	if inputItems <= 0 {
		return
	}
	m.completeness.WithLabelValues(m.service).Observe(completeness)
	m.itemsTotal.WithLabelValues(m.service, "resolved").Add(float64(resolvedItems))
	if unresolved := inputItems - resolvedItems; unresolved > 0 {
		m.itemsTotal.WithLabelValues(m.service, "unresolved").Add(float64(unresolved))
	}
}

// RecordReferenceLoad counts a load by outcome. The records gauge only moves
// on success, since a failed reload keeps the previous snapshot.
func (m *AnalysisMetrics) RecordReferenceLoad(outcome string, records int, duration time.Duration) {
	if outcome == "" {
		outcome = "unknown"
	}
	m.referenceLoadTotal.WithLabelValues(m.service, outcome).Inc()
	m.referenceLoadSeconds.WithLabelValues(m.service, outcome).Observe(duration.Seconds())
	if outcome == "ok" {
		m.referenceRecords.WithLabelValues(m.service).Set(float64(records))
	}
}
