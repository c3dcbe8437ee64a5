package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	extractions *prometheus.CounterVec
	fallbacks   *prometheus.CounterVec
	errorsTotal *prometheus.CounterVec
	impliedMove *prometheus.GaugeVec
	latency     *prometheus.HistogramVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		extractions: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "optionlens_extractions_total",
				Help: "Total number of density extractions",
			},
			[]string{"ticker", "method"},
		),
		fallbacks: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "optionlens_calibration_fallbacks_total",
				Help: "SABR calibrations that degraded to the spline",
			},
			[]string{"ticker"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "optionlens_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		impliedMove: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "optionlens_implied_move_pct",
				Help: "Last extracted implied move for a ticker, percent",
			},
			[]string{"ticker"},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "optionlens_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordExtraction records a completed density extraction.
func (r *Recorder) RecordExtraction(ticker, method string) {
	r.extractions.WithLabelValues(ticker, method).Inc()
}

// RecordFallback records a SABR-to-spline calibration fallback.
func (r *Recorder) RecordFallback(ticker string) {
	r.fallbacks.WithLabelValues(ticker).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordImpliedMove records the latest implied move for a ticker.
func (r *Recorder) RecordImpliedMove(ticker string, pct float64) {
	r.impliedMove.WithLabelValues(ticker).Set(pct)
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
