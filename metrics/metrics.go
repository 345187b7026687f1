// Package metrics provides the Prometheus collectors for PillChecker.
//
// HTTP:
//   - http_request_total: Counter with method, path, and status labels
//   - http_request_duration_seconds: Histogram with method and path labels
//   - http_request_in_flight: Gauge for concurrent requests
//
// Pipeline:
//   - ner_requests_total, ner_request_duration_seconds: entity-linking calls by outcome
//   - ocr_duration_seconds: text recognition latency
//   - medication_uploads_total: upload workflow outcomes
//   - extraction_fields_total: extracted fields that were found, by field
//
// All metrics are registered with the Prometheus default registry during
// package initialization.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Outcome label values.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeSkipped = "skipped"
)

var (
	HTTPRequestTotals = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_request_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path"},
	)

	HTTPRequestInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_request_in_flight",
			Help: "Current in-flight requests",
		},
	)

	RateLimiterBucketsTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "rate_limiter_buckets_total",
			Help: "Number of per-client rate limiter buckets",
		},
	)

	NERRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ner_requests_total",
			Help: "Entity-linking service calls by outcome",
		},
		[]string{"outcome"},
	)

	NERRequestDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ner_request_duration_seconds",
			Help:    "Entity-linking call latency including retries",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		},
	)

	OCRDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ocr_duration_seconds",
			Help:    "Text recognition latency",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 30},
		},
	)

	UploadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "medication_uploads_total",
			Help: "Medication scan uploads by outcome",
		},
		[]string{"outcome"},
	)

	ExtractionFieldsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "extraction_fields_total",
			Help: "Extracted medication fields that were found, by field",
		},
		[]string{"field"},
	)
)

func init() {
	prometheus.MustRegister(HTTPRequestTotals)
	prometheus.MustRegister(HTTPRequestDuration)
	prometheus.MustRegister(HTTPRequestInFlight)
	prometheus.MustRegister(RateLimiterBucketsTotal)
	prometheus.MustRegister(NERRequestsTotal)
	prometheus.MustRegister(NERRequestDuration)
	prometheus.MustRegister(OCRDuration)
	prometheus.MustRegister(UploadsTotal)
	prometheus.MustRegister(ExtractionFieldsTotal)
}

// RecordExtraction counts which fields an extraction result filled.
func RecordExtraction(title, ingredients, dosage, frequency, timing, expiry bool) {
	for field, found := range map[string]bool{
		"title":              title,
		"active_ingredients": ingredients,
		"dosage":             dosage,
		"frequency":          frequency,
		"timing":             timing,
		"expiry_date":        expiry,
	} {
		if found {
			ExtractionFieldsTotal.WithLabelValues(field).Inc()
		}
	}
}
