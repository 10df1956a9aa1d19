package evaluation

import (
	"errors"
	"fmt"

	"github.com/xkilldash9x/finding-dedup/api/schemas"
)

// ErrDegenerateInput is returned when set-level accuracy is requested over an
// empty cluster set, where the ratio would be meaningless.
var ErrDegenerateInput = errors.New("degenerate input: empty cluster set")

// SetAccuracy is the strict, cluster-for-cluster agreement between
// predictions and labels. Ratios are not rounded.
type SetAccuracy struct {
	PredictionAccuracy float64
	LabelAccuracy      float64
	AverageAccuracy    float64

	Matched              ClusterSet
	UnmatchedPredictions ClusterSet
	UnmatchedLabels      ClusterSet
}

// ScoreSetAccuracy computes the fraction of predicted clusters that exactly
// match a label cluster and the fraction of label clusters exactly predicted.
func ScoreSetAccuracy(predicted, labels ClusterSet) (SetAccuracy, error) {
	if len(predicted) == 0 {
		return SetAccuracy{}, fmt.Errorf("%w: no predicted clusters", ErrDegenerateInput)
	}
	if len(labels) == 0 {
		return SetAccuracy{}, fmt.Errorf("%w: no label clusters", ErrDegenerateInput)
	}

	matched := predicted.Intersect(labels)
	predictionAccuracy := float64(len(matched)) / float64(len(predicted))
	labelAccuracy := float64(len(matched)) / float64(len(labels))

	return SetAccuracy{
		PredictionAccuracy:   predictionAccuracy,
		LabelAccuracy:        labelAccuracy,
		AverageAccuracy:      (predictionAccuracy + labelAccuracy) / 2,
		Matched:              matched,
		UnmatchedPredictions: predicted.Difference(matched),
		UnmatchedLabels:      labels.Difference(matched),
	}, nil
}

// ComputeSetAccuracy canonicalizes raw predictions and labels, checks their
// universes and scores exact cluster matches.
func ComputeSetAccuracy(predicted schemas.Prediction, labels schemas.Labels) (SetAccuracy, error) {
	p, q := Canonicalize(predicted), Canonicalize(labels)
	if err := CheckUniverse(p, q); err != nil {
		return SetAccuracy{}, err
	}
	return ScoreSetAccuracy(p, q)
}
