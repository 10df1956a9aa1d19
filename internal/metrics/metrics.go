package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "finding_dedup"

// Evaluation outcome labels.
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
)

// Recorder collects evaluation metrics on a private registry. A nil
// Recorder discards everything.
type Recorder struct {
	registry    *prometheus.Registry
	evaluations *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	fMeasure    *prometheus.GaugeVec
}

// NewRecorder creates a recorder with its metrics registered.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		evaluations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "evaluations_total",
			Help:      "Technique evaluations by outcome.",
		}, []string{"technique", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "evaluation_duration_seconds",
			Help:      "Time spent applying a technique and scoring its prediction.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		}, []string{"technique"}),
		fMeasure: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "f_measure",
			Help:      "Pairwise F-measure of the latest evaluation of a run case parameter set.",
		}, []string{"runcase", "params"}),
	}
	r.registry.MustRegister(r.evaluations, r.duration, r.fMeasure)
	return r
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry { return r.registry }

// ObserveSuccess records a completed evaluation.
func (r *Recorder) ObserveSuccess(runCase, technique, params string, took time.Duration, fMeasure float64) {
	if r == nil {
		return
	}
	r.evaluations.WithLabelValues(technique, StatusSuccess).Inc()
	r.duration.WithLabelValues(technique).Observe(took.Seconds())
	r.fMeasure.WithLabelValues(runCase, params).Set(fMeasure)
}

// ObserveFailure records an aborted evaluation.
func (r *Recorder) ObserveFailure(technique string) {
	if r == nil {
		return
	}
	r.evaluations.WithLabelValues(technique, StatusFailure).Inc()
}

// WriteToTextfile writes the metrics in the text exposition format, e.g. for
// the node exporter textfile collector.
func (r *Recorder) WriteToTextfile(path string) error {
	if r == nil || path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("failed to write metrics: %w", err)
	}
	return nil
}
