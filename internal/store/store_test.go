package store

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/xkilldash9x/finding-dedup/api/schemas"
)

// flexibleSQLMatcher creates a regex that is insensitive to whitespace for more robust SQL mock testing.
func flexibleSQLMatcher(sql string) string {
	trimmed := strings.TrimSpace(sql)
	return regexp.MustCompile(`\s+`).ReplaceAllString(regexp.QuoteMeta(trimmed), `\s+`)
}

// ArgumentMatcherFunc is a helper to create inline mock matchers.
type ArgumentMatcherFunc func(interface{}) bool

func (f ArgumentMatcherFunc) Match(v interface{}) bool {
	return f(v)
}

var utcTime = ArgumentMatcherFunc(func(v interface{}) bool {
	ts, ok := v.(time.Time)
	return ok && ts.Location() == time.UTC
})

func newMockStore(t *testing.T, logger *zap.Logger) (*Store, pgxmock.PgxPoolIface) {
	t.Helper()
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mockPool.Close)

	store, err := New(context.Background(), mockPool, logger)
	require.NoError(t, err)
	return store, mockPool
}

func sampleRun() *schemas.RunResult {
	threshold := 0.25
	loc := time.FixedZone("CET", 3600)
	return &schemas.RunResult{
		RunID:     "0b8e5c1e-1111-4c3a-9d55-7a0c7e7a1a01",
		Title:     "BoW",
		Format:    "descriptions",
		Technique: "bow",
		Params:    schemas.Params{Threshold: &threshold},
		StartedAt: time.Date(2024, 5, 1, 10, 0, 0, 0, loc),
		Duration:  2500 * time.Millisecond,
		Report: &schemas.EvaluationReport{
			Accuracy:             schemas.AccuracyScores{Predictions: 0.333, Labels: 0.5, Average: 0.417},
			FMeasure:             0.667,
			Precision:            0.5,
			Recall:               1,
			Pairs:                schemas.PairCounts{Agreed: 1, PredictedOnly: 0, LabeledOnly: 1},
			MatchedPredictions:   []schemas.Cluster{{1, 2}},
			UnmatchedLabels:      []schemas.Cluster{{3, 4}},
			UnmatchedPredictions: []schemas.Cluster{{3}, {4}},
		},
	}
}

func expectRunInsert(mockPool pgxmock.PgxPoolIface, run *schemas.RunResult) *pgxmock.ExpectedExec {
	rep := run.Report
	return mockPool.ExpectExec(flexibleSQLMatcher(insertRunSQL)).
		WithArgs(
			run.RunID, run.Title, run.Format, run.Technique, `{"threshold":0.25}`,
			utcTime, int64(2500),
			rep.Accuracy.Predictions, rep.Accuracy.Labels, rep.Accuracy.Average,
			rep.FMeasure, rep.Precision, rep.Recall,
			1, 0, 1,
		)
}

// -- Test Cases --

func TestSaveRun(t *testing.T) {
	ctx := context.Background()

	t.Run("should persist run and clusters in one transaction", func(t *testing.T) {
		observedZapCore, observedLogs := observer.New(zapcore.ErrorLevel)
		store, mockPool := newMockStore(t, zap.New(observedZapCore))
		run := sampleRun()

		mockPool.ExpectBegin()
		expectRunInsert(mockPool, run).WillReturnResult(pgxmock.NewResult("INSERT", 1))
		mockPool.ExpectCopyFrom(pgx.Identifier{"evaluation_clusters"}, clusterColumns).WillReturnResult(4)
		mockPool.ExpectCommit()
		mockPool.ExpectRollback().WillReturnError(pgx.ErrTxClosed)

		require.NoError(t, store.SaveRun(ctx, run))
		assert.NoError(t, mockPool.ExpectationsWereMet())
		assert.Empty(t, observedLogs.All(), "Expected no errors logged on successful commit")
	})

	t.Run("should skip the copy when there are no clusters", func(t *testing.T) {
		store, mockPool := newMockStore(t, zap.NewNop())
		run := sampleRun()
		run.Report.MatchedPredictions = nil
		run.Report.UnmatchedLabels = nil
		run.Report.UnmatchedPredictions = nil

		mockPool.ExpectBegin()
		expectRunInsert(mockPool, run).WillReturnResult(pgxmock.NewResult("INSERT", 1))
		mockPool.ExpectCommit()
		mockPool.ExpectRollback().WillReturnError(pgx.ErrTxClosed)

		require.NoError(t, store.SaveRun(ctx, run))
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("should roll back when the insert fails", func(t *testing.T) {
		store, mockPool := newMockStore(t, zap.NewNop())
		run := sampleRun()
		insertErr := errors.New("duplicate key value violates unique constraint")

		mockPool.ExpectBegin()
		expectRunInsert(mockPool, run).WillReturnError(insertErr)
		mockPool.ExpectRollback()

		err := store.SaveRun(ctx, run)
		require.Error(t, err)
		assert.ErrorIs(t, err, insertErr)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("should fail on a short copy", func(t *testing.T) {
		store, mockPool := newMockStore(t, zap.NewNop())
		run := sampleRun()

		mockPool.ExpectBegin()
		expectRunInsert(mockPool, run).WillReturnResult(pgxmock.NewResult("INSERT", 1))
		mockPool.ExpectCopyFrom(pgx.Identifier{"evaluation_clusters"}, clusterColumns).WillReturnResult(2)
		mockPool.ExpectRollback()

		err := store.SaveRun(ctx, run)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "mismatch in copied clusters count: expected 4, got 2")
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("should log a failed rollback", func(t *testing.T) {
		observedZapCore, observedLogs := observer.New(zapcore.ErrorLevel)
		store, mockPool := newMockStore(t, zap.New(observedZapCore))
		run := sampleRun()

		mockPool.ExpectBegin()
		expectRunInsert(mockPool, run).WillReturnError(errors.New("boom"))
		mockPool.ExpectRollback().WillReturnError(errors.New("connection reset"))

		require.Error(t, store.SaveRun(ctx, run))
		require.Equal(t, 1, observedLogs.Len())
		assert.Equal(t, "Failed to rollback transaction", observedLogs.All()[0].Message)
	})

	t.Run("should reject a run without report", func(t *testing.T) {
		store, mockPool := newMockStore(t, zap.NewNop())
		err := store.SaveRun(ctx, &schemas.RunResult{RunID: "x"})
		assert.ErrorContains(t, err, "no evaluation report")
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})
}

func TestEnsureSchema(t *testing.T) {
	store, mockPool := newMockStore(t, zap.NewNop())
	mockPool.ExpectExec("CREATE TABLE IF NOT EXISTS evaluation_runs").
		WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))

	require.NoError(t, store.EnsureSchema(context.Background()))
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestRunsByTitle(t *testing.T) {
	store, mockPool := newMockStore(t, zap.NewNop())

	rows := pgxmock.NewRows([]string{"run_id", "title", "corpus_format", "technique", "f_measure", "precision", "recall", "accuracy_average"}).
		AddRow("r1", "BoW", "descriptions", "bow", 0.5, 0.4, 0.667, 0.25).
		AddRow("r2", "BoW", "descriptions", "bow", 0.8, 0.9, 0.72, 0.6)
	mockPool.ExpectQuery(flexibleSQLMatcher(selectRunsSQL)).WithArgs("BoW").WillReturnRows(rows)

	runs, err := store.RunsByTitle(context.Background(), "BoW")
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, RunSummary{RunID: "r2", Title: "BoW", Format: "descriptions", Technique: "bow", FMeasure: 0.8, Precision: 0.9, Recall: 0.72, Accuracy: 0.6}, runs[1])
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestRunsByTitle_QueryError(t *testing.T) {
	store, mockPool := newMockStore(t, zap.NewNop())
	mockPool.ExpectQuery(flexibleSQLMatcher(selectRunsSQL)).WithArgs("BoW").WillReturnError(errors.New("relation does not exist"))

	_, err := store.RunsByTitle(context.Background(), "BoW")
	assert.ErrorContains(t, err, "failed to query runs")
}
