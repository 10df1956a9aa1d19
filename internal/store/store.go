package store

import (
	"context"
	"errors"
	"fmt"

	json "github.com/json-iterator/go"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"github.com/xkilldash9x/finding-dedup/api/schemas"
)

// DBPool is an interface that abstracts the pgxpool.Pool to allow for mocking in tests.
type DBPool interface {
	Ping(ctx context.Context) error
	Begin(ctx context.Context) (pgx.Tx, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
}

// Cluster kinds stored in evaluation_clusters.
const (
	KindMatched             = "matched"
	KindUnmatchedLabel      = "unmatched_label"
	KindUnmatchedPrediction = "unmatched_prediction"
)

const schemaDDL = `
CREATE TABLE IF NOT EXISTS evaluation_runs (
    run_id TEXT PRIMARY KEY,
    title TEXT NOT NULL,
    corpus_format TEXT NOT NULL,
    technique TEXT NOT NULL,
    params JSONB NOT NULL,
    started_at TIMESTAMPTZ NOT NULL,
    duration_ms BIGINT NOT NULL,
    accuracy_predictions DOUBLE PRECISION NOT NULL,
    accuracy_labels DOUBLE PRECISION NOT NULL,
    accuracy_average DOUBLE PRECISION NOT NULL,
    f_measure DOUBLE PRECISION NOT NULL,
    precision DOUBLE PRECISION NOT NULL,
    recall DOUBLE PRECISION NOT NULL,
    agreed_pairs INTEGER NOT NULL,
    predicted_only_pairs INTEGER NOT NULL,
    labeled_only_pairs INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS evaluation_clusters (
    run_id TEXT NOT NULL REFERENCES evaluation_runs (run_id) ON DELETE CASCADE,
    kind TEXT NOT NULL,
    members BIGINT[] NOT NULL
);`

const insertRunSQL = `
INSERT INTO evaluation_runs (
    run_id, title, corpus_format, technique, params, started_at, duration_ms,
    accuracy_predictions, accuracy_labels, accuracy_average,
    f_measure, precision, recall,
    agreed_pairs, predicted_only_pairs, labeled_only_pairs
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16);`

const selectRunsSQL = `
SELECT run_id, title, corpus_format, technique, f_measure, precision, recall, accuracy_average
FROM evaluation_runs
WHERE title = $1
ORDER BY started_at ASC;`

var clusterColumns = []string{"run_id", "kind", "members"}

// Store persists evaluation results in PostgreSQL.
type Store struct {
	pool DBPool
	log  *zap.Logger
}

// New creates a new store instance and verifies the connection.
func New(ctx context.Context, pool DBPool, logger *zap.Logger) (*Store, error) {
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &Store{pool: pool, log: logger.Named("store")}, nil
}

// EnsureSchema creates the result tables if they do not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaDDL); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// SaveRun inserts a run result and its clusters in one transaction.
func (s *Store) SaveRun(ctx context.Context, result *schemas.RunResult) error {
	if result.Report == nil {
		return fmt.Errorf("run %s has no evaluation report", result.RunID)
	}
	params, err := json.Marshal(result.Params)
	if err != nil {
		return fmt.Errorf("failed to encode params: %w", err)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if rollbackErr := tx.Rollback(ctx); rollbackErr != nil && !errors.Is(rollbackErr, pgx.ErrTxClosed) {
			s.log.Error("Failed to rollback transaction", zap.Error(rollbackErr))
		}
	}()

	rep := result.Report
	if _, err := tx.Exec(ctx, insertRunSQL,
		result.RunID, result.Title, result.Format, result.Technique, string(params),
		result.StartedAt.UTC(), result.Duration.Milliseconds(),
		rep.Accuracy.Predictions, rep.Accuracy.Labels, rep.Accuracy.Average,
		rep.FMeasure, rep.Precision, rep.Recall,
		rep.Pairs.Agreed, rep.Pairs.PredictedOnly, rep.Pairs.LabeledOnly,
	); err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	if err := s.persistClusters(ctx, tx, result.RunID, rep); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	s.log.Debug("Persisted run.", zap.String("run_id", result.RunID), zap.String("title", result.Title))
	return nil
}

func (s *Store) persistClusters(ctx context.Context, tx pgx.Tx, runID string, rep *schemas.EvaluationReport) error {
	var rows [][]interface{}
	add := func(kind string, clusters []schemas.Cluster) {
		for _, c := range clusters {
			members := make([]int64, len(c))
			for i, id := range c {
				members[i] = int64(id)
			}
			rows = append(rows, []interface{}{runID, kind, members})
		}
	}
	add(KindMatched, rep.MatchedPredictions)
	add(KindUnmatchedLabel, rep.UnmatchedLabels)
	add(KindUnmatchedPrediction, rep.UnmatchedPredictions)
	if len(rows) == 0 {
		return nil
	}

	copyCount, err := tx.CopyFrom(ctx, pgx.Identifier{"evaluation_clusters"}, clusterColumns, pgx.CopyFromRows(rows))
	if err != nil {
		return fmt.Errorf("failed to copy clusters: %w", err)
	}
	if int(copyCount) != len(rows) {
		return fmt.Errorf("mismatch in copied clusters count: expected %d, got %d", len(rows), copyCount)
	}
	return nil
}

// RunSummary is the headline of a stored run.
type RunSummary struct {
	RunID     string
	Title     string
	Format    string
	Technique string
	FMeasure  float64
	Precision float64
	Recall    float64
	Accuracy  float64
}

// RunsByTitle lists the stored runs of a run case, oldest first.
func (s *Store) RunsByTitle(ctx context.Context, title string) ([]RunSummary, error) {
	rows, err := s.pool.Query(ctx, selectRunsSQL, title)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []RunSummary
	for rows.Next() {
		var r RunSummary
		if err := rows.Scan(&r.RunID, &r.Title, &r.Format, &r.Technique, &r.FMeasure, &r.Precision, &r.Recall, &r.Accuracy); err != nil {
			return nil, fmt.Errorf("failed to scan run row: %w", err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during row iteration: %w", err)
	}
	return runs, nil
}
