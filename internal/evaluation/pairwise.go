package evaluation

import (
	"github.com/xkilldash9x/finding-dedup/api/schemas"
)

// PairwiseScores measures agreement over co-membership pairs. Values are not
// rounded; the report builder rounds them.
type PairwiseScores struct {
	Precision float64
	Recall    float64
	FMeasure  float64
	Counts    schemas.PairCounts
}

// pair is an unordered pair of findings, stored with lo < hi.
type pair struct {
	lo, hi schemas.FindingID
}

// pairsOf collects every 2-combination of members within each cluster.
// Singleton clusters contribute nothing.
func pairsOf(set ClusterSet) map[pair]struct{} {
	pairs := make(map[pair]struct{})
	for _, c := range set {
		// Canonical clusters are sorted, so c[i] < c[j] for i < j.
		for i := 0; i < len(c); i++ {
			for j := i + 1; j < len(c); j++ {
				pairs[pair{lo: c[i], hi: c[j]}] = struct{}{}
			}
		}
	}
	return pairs
}

// ScorePairwise computes pair-counting agreement between canonical predicted
// clusters P and label clusters Q:
//
//	a = |pairs(P) ∩ pairs(Q)|, b = |pairs(P) − pairs(Q)|, c = |pairs(Q) − pairs(P)|
//	precision = a/(a+c), recall = a/(a+b), F = 2a/(2a+b+c)
//
// A ratio with a zero denominator is 1.0 when the opposing disagreement term
// is also zero and 0.0 otherwise; all-singleton corpora reach this state
// legitimately.
func ScorePairwise(predicted, labels ClusterSet) PairwiseScores {
	predictedPairs := pairsOf(predicted)
	labeledPairs := pairsOf(labels)

	agreed := 0
	for p := range predictedPairs {
		if _, ok := labeledPairs[p]; ok {
			agreed++
		}
	}
	counts := schemas.PairCounts{
		Agreed:        agreed,
		PredictedOnly: len(predictedPairs) - agreed,
		LabeledOnly:   len(labeledPairs) - agreed,
	}

	a, b, c := counts.Agreed, counts.PredictedOnly, counts.LabeledOnly
	return PairwiseScores{
		Precision: safeRatio(a, a+c, b),
		Recall:    safeRatio(a, a+b, c),
		FMeasure:  safeRatio(2*a, 2*a+b+c, 0),
		Counts:    counts,
	}
}

// ComputePairwiseAgreement canonicalizes raw predictions and labels, checks
// their universes and scores them pairwise.
func ComputePairwiseAgreement(predicted schemas.Prediction, labels schemas.Labels) (PairwiseScores, error) {
	p, q := Canonicalize(predicted), Canonicalize(labels)
	if err := CheckUniverse(p, q); err != nil {
		return PairwiseScores{}, err
	}
	return ScorePairwise(p, q), nil
}

// safeRatio returns num/denom, falling back to 1.0 when there is nothing to
// measure (denom and opposing both zero) and 0.0 when only denom is zero.
func safeRatio(num, denom, opposing int) float64 {
	if denom == 0 {
		if opposing == 0 {
			return 1.0
		}
		return 0.0
	}
	return float64(num) / float64(denom)
}
