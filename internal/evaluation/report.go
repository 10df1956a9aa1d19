package evaluation

import (
	"fmt"
	"math"

	"github.com/xkilldash9x/finding-dedup/api/schemas"
)

// DefaultRoundDigits is the decimal precision scalar metrics are rounded to.
const DefaultRoundDigits = 3

// Evaluator builds evaluation reports. It holds no mutable state and is safe
// for concurrent use.
type Evaluator struct {
	roundDigits int
}

// Option is a function that configures an Evaluator.
type Option func(*Evaluator)

// WithRoundDigits overrides the decimal precision of reported metrics.
func WithRoundDigits(digits int) Option {
	return func(e *Evaluator) {
		if digits >= 0 {
			e.roundDigits = digits
		}
	}
}

// New creates an Evaluator.
func New(opts ...Option) *Evaluator {
	e := &Evaluator{roundDigits: DefaultRoundDigits}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Evaluate scores a raw prediction against reference labels.
//
// Both sides are canonicalized and their universes checked first; a mismatch
// aborts the evaluation with an error wrapping ErrUniverseMismatch. An empty
// cluster set aborts with ErrDegenerateInput.
func (e *Evaluator) Evaluate(predicted schemas.Prediction, labels schemas.Labels) (*schemas.EvaluationReport, error) {
	p, q := Canonicalize(predicted), Canonicalize(labels)
	if err := CheckUniverse(p, q); err != nil {
		return nil, err
	}

	accuracy, err := ScoreSetAccuracy(p, q)
	if err != nil {
		return nil, fmt.Errorf("set accuracy: %w", err)
	}
	pairwise := ScorePairwise(p, q)

	return &schemas.EvaluationReport{
		Accuracy: schemas.AccuracyScores{
			Predictions: e.round(accuracy.PredictionAccuracy),
			Labels:      e.round(accuracy.LabelAccuracy),
			Average:     e.round(accuracy.AverageAccuracy),
		},
		FMeasure:             e.round(pairwise.FMeasure),
		Precision:            e.round(pairwise.Precision),
		Recall:               e.round(pairwise.Recall),
		Pairs:                pairwise.Counts,
		UnmatchedLabels:      accuracy.UnmatchedLabels.Sorted(),
		UnmatchedPredictions: accuracy.UnmatchedPredictions.Sorted(),
		MatchedPredictions:   accuracy.Matched.Sorted(),
	}, nil
}

// Evaluate scores a prediction with the default evaluator.
func Evaluate(predicted schemas.Prediction, labels schemas.Labels) (*schemas.EvaluationReport, error) {
	return New().Evaluate(predicted, labels)
}

func (e *Evaluator) round(v float64) float64 {
	scale := math.Pow(10, float64(e.roundDigits))
	return math.Round(v*scale) / scale
}
