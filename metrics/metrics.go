// SPDX-License-Identifier: MIT

// Package metrics exposes Prometheus collectors for model folds and
// reconstructions.
package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	// OutcomeSuccess labels operations that completed.
	OutcomeSuccess = "success"
	// OutcomeSkipped labels folds that contributed no evidence (fewer than two
	// locations or samples).
	OutcomeSkipped = "skipped"
	// OutcomeError labels failed operations.
	OutcomeError = "error"
)

var (
	foldsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "supereeg",
			Name:      "folds_total",
			Help:      "Subjects folded into correlation models, partitioned by outcome.",
		},
		[]string{"outcome"},
	)

	predictionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "supereeg",
			Name:      "predictions_total",
			Help:      "Reconstructions attempted, partitioned by outcome.",
		},
		[]string{"outcome"},
	)

	foldDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "supereeg",
			Name:      "fold_seconds",
			Help:      "Time to compute and apply one subject's contribution.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
		},
	)

	predictDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "supereeg",
			Name:      "predict_seconds",
			Help:      "Reconstruction latency in seconds.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
		},
	)

	modelSubjects = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "supereeg",
			Name:      "model_subjects",
			Help:      "Subjects folded into the most recently built model.",
		},
	)
)

// Register attaches the supereeg collectors to reg. Collectors already
// registered are left in place.
func Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		foldsTotal,
		predictionsTotal,
		foldDurationSeconds,
		predictDurationSeconds,
		modelSubjects,
	}

	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			return err
		}
	}
	return nil
}

// ObserveFold records one fold duration and outcome.
func ObserveFold(duration time.Duration, outcome string) {
	foldsTotal.WithLabelValues(normalize(outcome)).Inc()
	if duration < 0 {
		duration = 0
	}
	foldDurationSeconds.Observe(duration.Seconds())
}

// ObservePrediction records one reconstruction duration and outcome.
func ObservePrediction(duration time.Duration, outcome string) {
	label := outcome
	if label != OutcomeError {
		label = OutcomeSuccess
	}
	predictionsTotal.WithLabelValues(label).Inc()
	if duration < 0 {
		duration = 0
	}
	predictDurationSeconds.Observe(duration.Seconds())
}

// SetModelSubjects publishes the subject count of a freshly built model.
func SetModelSubjects(n int) {
	modelSubjects.Set(float64(n))
}

func normalize(outcome string) string {
	switch outcome {
	case OutcomeSkipped, OutcomeError:
		return outcome
	default:
		return OutcomeSuccess
	}
}
