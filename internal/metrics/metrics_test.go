package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorder_Observations(t *testing.T) {
	r := NewRecorder()

	r.ObserveSuccess("BoW", "bow", "{threshold=0.25}", 120*time.Millisecond, 0.8)
	r.ObserveSuccess("BoW", "bow", "{threshold=0.5}", 80*time.Millisecond, 0.6)
	r.ObserveFailure("tfidf")

	assert.Equal(t, 2.0, testutil.ToFloat64(r.evaluations.WithLabelValues("bow", StatusSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.evaluations.WithLabelValues("tfidf", StatusFailure)))
	assert.Equal(t, 0.6, testutil.ToFloat64(r.fMeasure.WithLabelValues("BoW", "{threshold=0.5}")))
	assert.Equal(t, 1, testutil.CollectAndCount(r.duration))

	expected := `
# HELP finding_dedup_evaluations_total Technique evaluations by outcome.
# TYPE finding_dedup_evaluations_total counter
finding_dedup_evaluations_total{status="failure",technique="tfidf"} 1
finding_dedup_evaluations_total{status="success",technique="bow"} 2
`
	require.NoError(t, testutil.GatherAndCompare(r.Registry(), strings.NewReader(expected), "finding_dedup_evaluations_total"))
}

func TestRecorder_Nil(t *testing.T) {
	var r *Recorder
	assert.NotPanics(t, func() {
		r.ObserveSuccess("x", "y", "{}", time.Second, 1)
		r.ObserveFailure("y")
	})
	assert.NoError(t, r.WriteToTextfile(filepath.Join(t.TempDir(), "m.prom")))
}

func TestRecorder_WriteToTextfile(t *testing.T) {
	r := NewRecorder()
	r.ObserveSuccess("Equality", "equality", "{}", time.Millisecond, 1)

	path := filepath.Join(t.TempDir(), "finding_dedup.prom")
	require.NoError(t, r.WriteToTextfile(path))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), `finding_dedup_f_measure{params="{}",runcase="Equality"} 1`)
	assert.Contains(t, string(content), "finding_dedup_evaluation_duration_seconds_count")

	assert.NoError(t, r.WriteToTextfile(""), "an empty path disables the file")
}
