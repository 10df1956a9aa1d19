package schemas

import (
	"strconv"
	"strings"
	"time"
)

// -- Evaluation Schemas --

// AccuracyScores holds the set-level accuracy figures, rounded.
type AccuracyScores struct {
	Predictions float64 `json:"predictions" yaml:"predictions"` // |matched| / |predicted clusters|
	Labels      float64 `json:"labels" yaml:"labels"`           // |matched| / |label clusters|
	Average     float64 `json:"average" yaml:"average"`
}

// PairCounts are the raw pair-counting statistics behind the pairwise scores.
type PairCounts struct {
	Agreed        int `json:"agreed" yaml:"agreed"`                 // a: together in both
	PredictedOnly int `json:"predicted_only" yaml:"predicted_only"` // b: predicted together, labeled apart
	LabeledOnly   int `json:"labeled_only" yaml:"labeled_only"`     // c: labeled together, predicted apart
}

// EvaluationReport is the outcome of scoring one prediction against the
// reference labels. It is built once and not modified afterwards; cluster
// lists are in ascending lexicographic order.
type EvaluationReport struct {
	Accuracy  AccuracyScores `json:"accuracy" yaml:"accuracy"`
	FMeasure  float64        `json:"f-measure" yaml:"f-measure"`
	Precision float64        `json:"precision" yaml:"precision"`
	Recall    float64        `json:"recall" yaml:"recall"`
	Pairs     PairCounts     `json:"pairs" yaml:"pairs"`

	UnmatchedLabels      []Cluster `json:"unmatched_labels" yaml:"unmatched_labels"`
	UnmatchedPredictions []Cluster `json:"unmatched_predictions" yaml:"unmatched_predictions"`
	MatchedPredictions   []Cluster `json:"matched_predictions" yaml:"matched_predictions"`
}

// -- Technique Parameters --

// ClosureMode selects how raw similarity relations are expanded into clusters
// after a technique has run.
type ClosureMode string

const (
	ClosureNone       ClosureMode = "none"        // Use the technique output as is.
	ClosureSinglePass ClosureMode = "single_pass" // One neighbour-union pass per key.
	ClosureComponents ClosureMode = "components"  // Full connected components.
)

// Params is one parameter set a technique is applied with. Unset fields fall
// back to the technique's defaults.
type Params struct {
	Threshold *float64    `mapstructure:"threshold" json:"threshold,omitempty" yaml:"threshold,omitempty"`
	Closure   ClosureMode `mapstructure:"closure" json:"closure,omitempty" yaml:"closure,omitempty"`
	SkipBlank bool        `mapstructure:"skip_blank" json:"skip_blank,omitempty" yaml:"skip_blank,omitempty"`
}

// ThresholdOr returns the configured threshold or def when none is set.
func (p Params) ThresholdOr(def float64) float64 {
	if p.Threshold == nil {
		return def
	}
	return *p.Threshold
}

// ClosureOr returns the configured closure mode or def when none is set.
func (p Params) ClosureOr(def ClosureMode) ClosureMode {
	if p.Closure == "" {
		return def
	}
	return p.Closure
}

// String renders the parameter set as a stable, human-readable label.
func (p Params) String() string {
	var parts []string
	if p.Threshold != nil {
		parts = append(parts, "threshold="+strconv.FormatFloat(*p.Threshold, 'f', -1, 64))
	}
	if p.Closure != "" {
		parts = append(parts, "closure="+string(p.Closure))
	}
	if p.SkipBlank {
		parts = append(parts, "skip_blank=true")
	}
	if len(parts) == 0 {
		return "{}"
	}
	return "{" + strings.Join(parts, " ") + "}"
}

// -- Run Schemas --

// RunResult records one (technique, parameter set) evaluation of a run case.
type RunResult struct {
	RunID     string            `json:"run_id" yaml:"run_id"`
	Title     string            `json:"title" yaml:"title"`
	Format    string            `json:"corpus_format" yaml:"corpus_format"`
	Technique string            `json:"technique" yaml:"technique"`
	Params    Params            `json:"params" yaml:"params"`
	StartedAt time.Time         `json:"started_at" yaml:"started_at"`
	Duration  time.Duration     `json:"duration_ns" yaml:"duration_ns"`
	Report    *EvaluationReport `json:"evaluation" yaml:"evaluation"`
}
