package evaluation

import (
	"errors"
	"fmt"

	"github.com/xkilldash9x/finding-dedup/api/schemas"
)

// ErrUniverseMismatch is the precondition violation raised when predictions
// and labels do not cover the same findings. It points at a data pipeline bug
// upstream and must abort the evaluation.
var ErrUniverseMismatch = errors.New("label/prediction universe mismatch")

// UniverseMismatchError carries the symmetric difference of the two universes.
type UniverseMismatchError struct {
	OnlyPredicted []schemas.FindingID // present in predictions, absent from labels
	OnlyLabeled   []schemas.FindingID // present in labels, absent from predictions
}

func (e *UniverseMismatchError) Error() string {
	return fmt.Sprintf("%s: %d finding(s) only in predictions %v, %d finding(s) only in labels %v",
		ErrUniverseMismatch, len(e.OnlyPredicted), e.OnlyPredicted, len(e.OnlyLabeled), e.OnlyLabeled)
}

// Unwrap allows errors.Is(err, ErrUniverseMismatch).
func (e *UniverseMismatchError) Unwrap() error { return ErrUniverseMismatch }

// CheckUniverse verifies that both cluster sets describe the same findings.
// It must pass before any scorer runs.
func CheckUniverse(predicted, labels ClusterSet) error {
	predictedIDs := predicted.Universe()
	labeledIDs := labels.Universe()

	onlyPredicted := missingFrom(predictedIDs, labeledIDs)
	onlyLabeled := missingFrom(labeledIDs, predictedIDs)
	if len(onlyPredicted) == 0 && len(onlyLabeled) == 0 {
		return nil
	}
	return &UniverseMismatchError{OnlyPredicted: onlyPredicted, OnlyLabeled: onlyLabeled}
}

// missingFrom lists the IDs of a that are not in b, ascending.
func missingFrom(a, b map[schemas.FindingID]struct{}) []schemas.FindingID {
	var missing []schemas.FindingID
	for id := range a {
		if _, ok := b[id]; !ok {
			missing = append(missing, id)
		}
	}
	schemas.SortIDs(missing)
	return missing
}
