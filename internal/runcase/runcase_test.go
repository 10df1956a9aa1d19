package runcase

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/xkilldash9x/finding-dedup/api/schemas"
	"github.com/xkilldash9x/finding-dedup/internal/config"
	"github.com/xkilldash9x/finding-dedup/internal/corpus"
	"github.com/xkilldash9x/finding-dedup/internal/evaluation"
	"github.com/xkilldash9x/finding-dedup/internal/metrics"
	"github.com/xkilldash9x/finding-dedup/internal/techniques"
)

// Test Helpers and Fixtures

func fixtureLoader() *staticLoader {
	return &staticLoader{
		corpus: schemas.Corpus{1: "sql injection", 2: "sql injection", 3: "xss"},
		labels: schemas.Labels{
			{CollectionID: 1, Name: "sqli"}: {1, 2},
			{CollectionID: 2, Name: "xss"}:  {3},
		},
	}
}

func equalityCase(title string, loader corpus.Loader) *RunCase {
	return &RunCase{
		Title:     title,
		Format:    corpus.Format{Name: "descriptions"},
		Loader:    loader,
		Technique: techniques.NewEquality(zap.NewNop()),
	}
}

func fixedClock() func() time.Time {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	calls := 0
	return func() time.Time {
		calls++
		return start.Add(time.Duration(calls) * time.Second)
	}
}

// -- Test Cases: RunCase --

func TestRunCase_Execute(t *testing.T) {
	loader := fixtureLoader()
	threshold := 0.5
	rc := equalityCase("Equality", loader)
	rc.ParamSets = []schemas.Params{{}, {SkipBlank: true, Threshold: &threshold}}
	rc.now = fixedClock()
	rc.newID = func() string { return "run-id" }

	results, err := rc.Execute(context.Background(), zap.NewNop())
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, 1, loader.loads, "the corpus is loaded once per run case")

	first := results[0]
	assert.Equal(t, "run-id", first.RunID)
	assert.Equal(t, "Equality", first.Title)
	assert.Equal(t, "descriptions", first.Format)
	assert.Equal(t, "equality", first.Technique)
	assert.Equal(t, time.Second, first.Duration)
	assert.Equal(t, 1.0, first.Report.FMeasure)
	assert.True(t, results[1].Params.SkipBlank)
}

func TestRunCase_Execute_DefaultParams(t *testing.T) {
	rc := equalityCase("Equality", fixtureLoader())

	results, err := rc.Execute(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, schemas.Params{}, results[0].Params)
	assert.NotEmpty(t, results[0].RunID)
}

func TestRunCase_Execute_UniverseMismatchAborts(t *testing.T) {
	technique := new(MockTechnique)
	technique.On("Name").Return("mock").Maybe()
	technique.On("Apply", mock.Anything, mock.Anything, mock.Anything).
		Return(schemas.Prediction{1: {1, 2}, 2: {1, 2}}, nil).Once()

	rc := &RunCase{
		Title:     "Mismatch",
		Loader:    fixtureLoader(),
		Technique: technique,
		ParamSets: []schemas.Params{{}, {SkipBlank: true}},
	}

	_, err := rc.Execute(context.Background(), zap.NewNop())
	require.Error(t, err)
	assert.ErrorIs(t, err, evaluation.ErrUniverseMismatch)
	assert.Contains(t, err.Error(), `run case "Mismatch"`)
	technique.AssertExpectations(t)
}

func TestRunCase_Execute_LoaderError(t *testing.T) {
	loader := &staticLoader{err: corpus.ErrMissingField}
	_, err := equalityCase("Broken", loader).Execute(context.Background(), zap.NewNop())
	assert.ErrorIs(t, err, corpus.ErrMissingField)
	assert.Contains(t, err.Error(), "failed to load corpus")
}

// -- Test Cases: Runner --

func TestRunner_Run(t *testing.T) {
	defer goleak.VerifyNone(t)

	sink := &collectingSink{}
	recorder := metrics.NewRecorder()
	core, logs := observer.New(zapcore.InfoLevel)
	runner := NewRunner(2, zap.New(core), WithSinks(sink), WithRecorder(recorder))

	cases := make([]*RunCase, 5)
	for i := range cases {
		cases[i] = equalityCase(fmt.Sprintf("case-%d", i), fixtureLoader())
	}

	results, err := runner.Run(context.Background(), cases)
	require.NoError(t, err)
	require.Len(t, results, 5)
	for i, res := range results {
		assert.Equal(t, fmt.Sprintf("case-%d", i), res.Title, "results keep run case order")
	}
	assert.Len(t, sink.results, 5)
	assert.Equal(t, 5, logs.FilterMessage("Run case finished.").Len())
	count, err := testutil.GatherAndCount(recorder.Registry(), "finding_dedup_f_measure")
	require.NoError(t, err)
	assert.Equal(t, 5, count, "one gauge per run case parameter set")
}

func TestRunner_FailingCaseDoesNotStopOthers(t *testing.T) {
	defer goleak.VerifyNone(t)

	core, logs := observer.New(zapcore.ErrorLevel)
	runner := NewRunner(1, zap.New(core))

	broken := equalityCase("broken", &staticLoader{err: errors.New("disk on fire")})
	results, err := runner.Run(context.Background(), []*RunCase{broken, equalityCase("ok", fixtureLoader())})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk on fire")
	require.Len(t, results, 1)
	assert.Equal(t, "ok", results[0].Title)
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "Run case failed.", logs.All()[0].Message)
}

func TestRunner_SinkErrorStopsRun(t *testing.T) {
	defer goleak.VerifyNone(t)

	sinkErr := errors.New("store unavailable")
	runner := NewRunner(2, zap.NewNop(), WithSinks(&collectingSink{err: sinkErr}))

	_, err := runner.Run(context.Background(), []*RunCase{equalityCase("a", fixtureLoader())})
	assert.ErrorIs(t, err, sinkErr)
}

func TestRunner_Cancelled(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	runner := NewRunner(2, zap.NewNop())

	_, err := runner.Run(ctx, []*RunCase{equalityCase("a", fixtureLoader())})
	assert.ErrorIs(t, err, context.Canceled)
}

// -- Test Cases: FromConfig --

func TestFromConfig(t *testing.T) {
	dir := t.TempDir()
	snapshotPath := filepath.Join(dir, "snapshot.json")
	f, err := os.Create(snapshotPath)
	require.NoError(t, err)
	require.NoError(t, corpus.WriteSnapshot(f, fixtureLoader().corpus, fixtureLoader().labels))
	require.NoError(t, f.Close())

	cfg := config.NewDefaultConfig()
	cfg.EvaluationCfg.RoundDigits = 2
	cfg.DatasetsCfg = map[string]config.DatasetConfig{"snap": {Type: config.DatasetSnapshot, Path: snapshotPath}}
	cfg.FormatsCfg = []config.FormatConfig{{Name: "any", Tools: []config.ToolConfig{{Tool: "zap"}}}}
	cfg.RunCasesCfg = []config.RunCaseConfig{
		{Title: "Equality", Dataset: "snap", Format: "any", Technique: "equality"},
		{Title: "BoW", Dataset: "snap", Format: "any", Technique: "bow", Params: []schemas.Params{{}}},
	}
	registry := corpus.NewRegistry(cfg)

	all, err := FromConfig(cfg, registry, techniques.Dependencies{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "bow", all[1].Technique.Name())

	filtered, err := FromConfig(cfg, registry, techniques.Dependencies{}, "BoW")
	require.NoError(t, err)
	require.Len(t, filtered, 1)

	results, err := filtered[0].Execute(context.Background(), zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, 1.0, results[0].Report.Accuracy.Average)

	_, err = FromConfig(cfg, registry, techniques.Dependencies{}, "SBERT", "LSI")
	assert.ErrorContains(t, err, "unknown run case(s): LSI, SBERT")

	cfg.RunCasesCfg[0].Technique = "lsi"
	_, err = FromConfig(cfg, registry, techniques.Dependencies{})
	assert.ErrorContains(t, err, `unknown technique "lsi"`)
}
