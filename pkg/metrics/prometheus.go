package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements repository.Metrics using Prometheus.
type Recorder struct {
	fits        *prometheus.CounterVec
	candidates  *prometheus.CounterVec
	fitSeconds  *prometheus.HistogramVec
	escalations *prometheus.CounterVec
	errorsTotal *prometheus.CounterVec
	latency     *prometheus.HistogramVec
}

// New registers the collectors on reg; nil means the default registry.
func New(reg prometheus.Registerer) *Recorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Recorder{
		fits: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bubblescope_fit_runs_total",
				Help: "Strategy runs by outcome",
			},
			[]string{"strategy", "outcome"},
		),
		candidates: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bubblescope_fit_candidates_total",
				Help: "Fit candidates by kind (converged, usable)",
			},
			[]string{"strategy", "kind"},
		),
		fitSeconds: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "bubblescope_fit_run_seconds",
				Help:    "Wall time of one strategy run",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300},
			},
			[]string{"strategy"},
		),
		escalations: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bubblescope_escalations_total",
				Help: "Strategy escalations",
			},
			[]string{"from", "to"},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bubblescope_errors_total",
				Help: "Errors by kind",
			},
			[]string{"type"},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "bubblescope_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordFit records one strategy run.
func (r *Recorder) RecordFit(strategy string, converged, usable int, seconds float64) {
	outcome := "usable"
	switch {
	case converged == 0:
		outcome = "no_convergence"
	case usable == 0:
		outcome = "poor_quality"
	}
	r.fits.WithLabelValues(strategy, outcome).Inc()
	r.candidates.WithLabelValues(strategy, "converged").Add(float64(converged))
	r.candidates.WithLabelValues(strategy, "usable").Add(float64(usable))
	r.fitSeconds.WithLabelValues(strategy).Observe(seconds)
}

func (r *Recorder) RecordEscalation(from, to string) {
	r.escalations.WithLabelValues(from, to).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

// Nop discards every measurement.
type Nop struct{}

func (Nop) RecordFit(string, int, int, float64) {}
func (Nop) RecordEscalation(string, string)     {}
func (Nop) RecordError(string)                  {}
func (Nop) RecordLatency(string, float64)       {}
