// File: internal/runcase/runcase.go
package runcase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xkilldash9x/finding-dedup/api/schemas"
	"github.com/xkilldash9x/finding-dedup/internal/corpus"
	"github.com/xkilldash9x/finding-dedup/internal/evaluation"
	"github.com/xkilldash9x/finding-dedup/internal/techniques"
)

// RunCase applies one technique to one corpus for every parameter set.
type RunCase struct {
	Title     string
	Dataset   string
	Format    corpus.Format
	Loader    corpus.Loader
	Technique techniques.Technique
	ParamSets []schemas.Params
	Evaluator *evaluation.Evaluator

	// Hooks for tests.
	now   func() time.Time
	newID func() string
}

// Execute loads the corpus once and evaluates the technique with each
// parameter set in order. No parameter sets means one run with defaults.
// Any failure, including a universe mismatch, aborts the whole run case.
func (rc *RunCase) Execute(ctx context.Context, logger *zap.Logger) ([]schemas.RunResult, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	now, newID := rc.now, rc.newID
	if now == nil {
		now = time.Now
	}
	if newID == nil {
		newID = uuid.NewString
	}
	evaluator := rc.Evaluator
	if evaluator == nil {
		evaluator = evaluation.New()
	}

	c, labels, err := rc.Loader.Load(ctx, rc.Format)
	if err != nil {
		return nil, fmt.Errorf("run case %q: failed to load corpus: %w", rc.Title, err)
	}
	logger.Debug("Corpus loaded.", zap.Int("findings", len(c)), zap.Int("collections", len(labels)))

	paramSets := rc.ParamSets
	if len(paramSets) == 0 {
		paramSets = []schemas.Params{{}}
	}

	results := make([]schemas.RunResult, 0, len(paramSets))
	for _, params := range paramSets {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		logger.Info("Evaluating parameter set.", zap.String("params", params.String()))

		started := now()
		prediction, err := rc.Technique.Apply(ctx, c, params)
		if err != nil {
			return nil, fmt.Errorf("run case %q, params %s: %w", rc.Title, params, err)
		}
		report, err := evaluator.Evaluate(prediction, labels)
		if err != nil {
			return nil, fmt.Errorf("run case %q, params %s: %w", rc.Title, params, err)
		}

		results = append(results, schemas.RunResult{
			RunID:     newID(),
			Title:     rc.Title,
			Format:    rc.Format.Name,
			Technique: rc.Technique.Name(),
			Params:    params,
			StartedAt: started,
			Duration:  now().Sub(started),
			Report:    report,
		})
	}
	return results, nil
}
