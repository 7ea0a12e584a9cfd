// Package metrics exposes Prometheus collectors for the statement import pipeline.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "statement_import"

// ImportMetrics groups the collectors updated by the import service. A nil
// *ImportMetrics is valid and records nothing.
type ImportMetrics struct {
	documents    *prometheus.CounterVec
	extraction   prometheus.Histogram
	statements   *prometheus.CounterVec
	transactions *prometheus.CounterVec
	warnings     *prometheus.CounterVec
	duplicates   prometheus.Counter
	owners       *prometheus.CounterVec
}

// NewImportMetrics registers the import collectors with reg.
func NewImportMetrics(reg prometheus.Registerer) *ImportMetrics {
	f := promauto.With(reg)
	return &ImportMetrics{
		documents: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "documents_total",
			Help:      "Documents submitted for extraction, by result.",
		}, []string{"result"}),
		extraction: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "extraction_duration_seconds",
			Help:      "Time spent extracting text from a document.",
			Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}),
		statements: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "statements_parsed_total",
			Help:      "Statements run through the parser registry, by institution and result.",
		}, []string{"institution", "result"}),
		transactions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transactions_parsed_total",
			Help:      "Transactions emitted by statement parsers.",
		}, []string{"institution"}),
		warnings: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "row_warnings_total",
			Help:      "Rows that looked like transactions but could not be parsed.",
		}, []string{"institution"}),
		duplicates: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "duplicates_detected_total",
			Help:      "Incoming transactions classified as duplicates.",
		}),
		owners: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "owner_suggestions_total",
			Help:      "Owner suggestions, by outcome (matched, new_member, none).",
		}, []string{"outcome"}),
	}
}

// ObserveExtraction records a finished extraction.
func (m *ImportMetrics) ObserveExtraction(result string, d time.Duration) {
	if m == nil {
		return
	}
	m.documents.WithLabelValues(result).Inc()
	m.extraction.Observe(d.Seconds())
}

// ObserveParse records a registry run. institution is empty for unsupported formats.
func (m *ImportMetrics) ObserveParse(institution string, success bool, transactions, warnings int) {
	if m == nil {
		return
	}
	if institution == "" {
		institution = "unknown"
	}
	result := "failure"
	if success {
		result = "success"
	}
	m.statements.WithLabelValues(institution, result).Inc()
	m.transactions.WithLabelValues(institution).Add(float64(transactions))
	m.warnings.WithLabelValues(institution).Add(float64(warnings))
}

// ObserveDuplicates records the number of duplicates found in a batch.
func (m *ImportMetrics) ObserveDuplicates(n int) {
	if m == nil {
		return
	}
	m.duplicates.Add(float64(n))
}

// ObserveOwner records the outcome of an owner suggestion.
func (m *ImportMetrics) ObserveOwner(outcome string) {
	if m == nil {
		return
	}
	m.owners.WithLabelValues(outcome).Inc()
}
