package runcase

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xkilldash9x/finding-dedup/api/schemas"
	"github.com/xkilldash9x/finding-dedup/internal/metrics"
)

// Sink receives every finished run result, e.g. a reporter or the store.
type Sink interface {
	Consume(ctx context.Context, result *schemas.RunResult) error
}

// SinkFunc adapts a function to a Sink.
type SinkFunc func(ctx context.Context, result *schemas.RunResult) error

func (f SinkFunc) Consume(ctx context.Context, result *schemas.RunResult) error { return f(ctx, result) }

// Runner executes run cases concurrently. Sinks are called one result at a
// time.
type Runner struct {
	concurrency int
	sinks       []Sink
	recorder    *metrics.Recorder
	logger      *zap.Logger

	sinkMu sync.Mutex
}

// Option configures a Runner.
type Option func(*Runner)

// WithSinks adds result sinks.
func WithSinks(sinks ...Sink) Option {
	return func(r *Runner) { r.sinks = append(r.sinks, sinks...) }
}

// WithRecorder records evaluation metrics.
func WithRecorder(recorder *metrics.Recorder) Option {
	return func(r *Runner) { r.recorder = recorder }
}

// NewRunner creates a runner executing at most concurrency run cases at once.
func NewRunner(concurrency int, logger *zap.Logger, opts ...Option) *Runner {
	if concurrency <= 0 {
		concurrency = 1
	}
	r := &Runner{concurrency: concurrency, logger: logger.Named("runner")}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes all run cases and returns their results in run case order.
// A failing run case does not stop the others; its error is joined into the
// returned error next to the results of the successful ones. A sink error or
// a cancelled context stops the run.
func (r *Runner) Run(ctx context.Context, cases []*RunCase) ([]schemas.RunResult, error) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)

	perCase := make([][]schemas.RunResult, len(cases))
	failures := make([]error, len(cases))

	for i, rc := range cases {
		if gctx.Err() != nil {
			break
		}
		i, rc := i, rc
		g.Go(func() error {
			logger := r.logger.With(zap.String("runcase", rc.Title), zap.String("technique", rc.Technique.Name()))
			logger.Info("Starting run case.", zap.Int("param_sets", len(rc.ParamSets)))

			results, err := rc.Execute(gctx, logger)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				logger.Error("Run case failed.", zap.Error(err))
				r.recorder.ObserveFailure(rc.Technique.Name())
				failures[i] = err
				return nil
			}

			for j := range results {
				res := &results[j]
				r.recorder.ObserveSuccess(res.Title, res.Technique, res.Params.String(), res.Duration, res.Report.FMeasure)
				if err := r.consume(gctx, res); err != nil {
					return err
				}
			}
			logger.Info("Run case finished.", zap.Int("results", len(results)))
			perCase[i] = results
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	// The loop may have stopped early on a cancelled context.
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var all []schemas.RunResult
	for _, results := range perCase {
		all = append(all, results...)
	}
	return all, errors.Join(failures...)
}

func (r *Runner) consume(ctx context.Context, result *schemas.RunResult) error {
	r.sinkMu.Lock()
	defer r.sinkMu.Unlock()
	for _, sink := range r.sinks {
		if err := sink.Consume(ctx, result); err != nil {
			return fmt.Errorf("failed to hand off result of %q: %w", result.Title, err)
		}
	}
	return nil
}
