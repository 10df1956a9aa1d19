package evaluation

import (
	"errors"
	"testing"

	fuzz "github.com/AdaLogics/go-fuzz-headers"
	"github.com/xkilldash9x/finding-dedup/api/schemas"
)

// fuzzGroups is the structure populated from fuzzed data.
type fuzzGroups struct {
	Predicted [][]uint8
	Labeled   [][]uint8
}

func toPrediction(groups [][]uint8) schemas.Prediction {
	prediction := make(schemas.Prediction)
	for _, g := range groups {
		members := make([]schemas.FindingID, len(g))
		for i, id := range g {
			members[i] = schemas.FindingID(id)
		}
		for _, id := range members {
			prediction[id] = members
		}
	}
	return prediction
}

// FuzzEvaluate_Structured checks the scorer invariants on arbitrary groupings:
// metrics stay in [0, 1], and scoring a prediction against its own clusters is
// a perfect match.
func FuzzEvaluate_Structured(f *testing.F) {
	f.Fuzz(func(t *testing.T, data []byte) {
		consumer := fuzz.NewConsumer(data)
		input := &fuzzGroups{}
		if err := consumer.GenerateStruct(input); err != nil {
			return
		}

		predicted := toPrediction(input.Predicted)

		// Self-agreement: labels built from the prediction's own clusters.
		self := make(schemas.Labels)
		for i, c := range Canonicalize(predicted).Sorted() {
			self[schemas.LabelKey{CollectionID: i}] = c
		}
		report, err := Evaluate(predicted, self)
		if err != nil {
			if !errors.Is(err, ErrDegenerateInput) {
				t.Fatalf("unexpected error on self agreement: %v", err)
			}
		} else if report.FMeasure != 1 || report.Accuracy.Average != 1 {
			t.Fatalf("self agreement not perfect: %+v", report)
		}

		// Arbitrary labels: either a precondition error or bounded metrics.
		labels := make(schemas.Labels)
		for i, c := range Canonicalize(toPrediction(input.Labeled)).Sorted() {
			labels[schemas.LabelKey{CollectionID: i}] = c
		}
		report, err = Evaluate(predicted, labels)
		if err != nil {
			if !errors.Is(err, ErrUniverseMismatch) && !errors.Is(err, ErrDegenerateInput) {
				t.Fatalf("unexpected error: %v", err)
			}
			return
		}
		for name, v := range map[string]float64{
			"precision": report.Precision,
			"recall":    report.Recall,
			"f-measure": report.FMeasure,
			"accuracy":  report.Accuracy.Average,
		} {
			if v < 0 || v > 1 {
				t.Fatalf("%s out of range: %v", name, v)
			}
		}
	})
}
