// File: cmd/evaluate.go
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/finding-dedup/api/schemas"
	"github.com/xkilldash9x/finding-dedup/internal/config"
	"github.com/xkilldash9x/finding-dedup/internal/corpus"
	"github.com/xkilldash9x/finding-dedup/internal/metrics"
	"github.com/xkilldash9x/finding-dedup/internal/observability"
	"github.com/xkilldash9x/finding-dedup/internal/reporting"
	"github.com/xkilldash9x/finding-dedup/internal/runcase"
	"github.com/xkilldash9x/finding-dedup/internal/techniques"
)

// evaluateOptions holds the flags of the evaluate command.
type evaluateOptions struct {
	runCases    []string
	output      string
	format      string
	diagnostics bool
	snapshotDir string
	concurrency int
}

func newEvaluateCmd(provider storeProvider) *cobra.Command {
	opts := &evaluateOptions{}

	evaluateCmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Run the configured run cases and report their evaluation",
		Long: `Loads every configured run case (or the ones named with --runcase), applies
its technique with each parameter set, scores the prediction against the
dataset labels and writes one result per run to the configured output.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := getConfigFromContext(ctx)
			if err != nil {
				return err
			}
			applyEvaluateFlagOverrides(cmd, cfg, opts)
			return runEvaluate(ctx, observability.GetLogger(), cfg, opts, provider, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	flags := evaluateCmd.Flags()
	flags.StringSliceVarP(&opts.runCases, "runcase", "r", nil, "Only run the run cases with these titles (repeatable)")
	flags.StringVarP(&opts.output, "output", "o", "", "Output file path. If unset, results are printed to stdout.")
	flags.StringVarP(&opts.format, "format", "f", "", "Output format: json, yaml or text (default from config)")
	flags.BoolVar(&opts.diagnostics, "diagnostics", false, "Print unmatched clusters with their texts to stderr")
	flags.StringVar(&opts.snapshotDir, "snapshot", "", "Write every loaded corpus as a snapshot file into this directory")
	flags.IntVarP(&opts.concurrency, "concurrency", "j", 0, "Number of run cases evaluated in parallel (default from config)")
	return evaluateCmd
}

// applyEvaluateFlagOverrides lets explicitly set flags win over the config.
func applyEvaluateFlagOverrides(cmd *cobra.Command, cfg config.Interface, opts *evaluateOptions) {
	if cmd.Flags().Changed("output") {
		cfg.SetOutputPath(opts.output)
	}
	if cmd.Flags().Changed("format") {
		cfg.SetOutputFormat(opts.format)
	}
	if cmd.Flags().Changed("diagnostics") {
		cfg.SetOutputDiagnostics(opts.diagnostics)
	}
	if cmd.Flags().Changed("concurrency") && opts.concurrency > 0 {
		cfg.SetEngineWorkerConcurrency(opts.concurrency)
	}
}

// runEvaluate contains the testable core of the evaluate command.
func runEvaluate(
	ctx context.Context,
	logger *zap.Logger,
	cfg config.Interface,
	opts *evaluateOptions,
	provider storeProvider,
	stdout, stderr io.Writer,
) (err error) {
	logger = logger.Named("evaluate")

	cache, err := loadCache(cfg.Cache())
	if err != nil {
		return err
	}
	defer func() {
		if flushErr := cache.Flush(); flushErr != nil {
			logger.Warn("Failed to persist similarity cache.", zap.Error(flushErr))
		}
	}()

	registry := corpus.NewRegistry(cfg)
	cases, err := runcase.FromConfig(cfg, registry, techniques.Dependencies{Cache: cache, Logger: logger}, opts.runCases...)
	if err != nil {
		return err
	}
	if len(cases) == 0 {
		logger.Warn("No run cases configured, nothing to evaluate.")
		return nil
	}
	shareLoaders(cases)

	if opts.snapshotDir != "" {
		if err := writeSnapshots(ctx, cases, opts.snapshotDir, logger); err != nil {
			return err
		}
	}

	reporter, err := newReporter(cfg.Output(), stdout)
	if err != nil {
		return fmt.Errorf("failed to initialize reporter: %w", err)
	}
	defer func() {
		if closeErr := reporter.Close(); closeErr != nil {
			err = errors.Join(err, fmt.Errorf("failed to finalize report: %w", closeErr))
		}
	}()

	sinks := []runcase.Sink{reporterSink(reporter)}
	if cfg.Output().Diagnostics {
		sinks = append(sinks, diagnosticsSink(cases, stderr))
	}
	if cfg.Database().URL != "" {
		st, cleanup, err := provider.Create(ctx, cfg)
		if err != nil {
			return fmt.Errorf("failed to initialize store: %w", err)
		}
		if cleanup != nil {
			defer cleanup()
		}
		sinks = append(sinks, runcase.SinkFunc(st.SaveRun))
	}

	recorder := metrics.NewRecorder()
	runner := runcase.NewRunner(cfg.Engine().WorkerConcurrency, logger,
		runcase.WithSinks(sinks...),
		runcase.WithRecorder(recorder),
	)

	results, runErr := runner.Run(ctx, cases)
	logger.Info("Evaluation finished.", zap.Int("run_cases", len(cases)), zap.Int("results", len(results)))

	if path := cfg.Output().MetricsFile; path != "" {
		if err := recorder.WriteToTextfile(path); err != nil {
			logger.Warn("Failed to write metrics file.", zap.String("path", path), zap.Error(err))
		}
	}
	return runErr
}

// loadCache opens the persisted similarity cache and adds the configured
// skip words to it.
func loadCache(cfg config.CacheConfig) (*techniques.Cache, error) {
	cache, err := techniques.LoadCache(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to load similarity cache: %w", err)
	}
	cache.AddSkipWords(cfg.SkipWords...)
	return cache, nil
}

// shareLoaders makes run cases over the same dataset and format share a
// single corpus load, which diagnostics and snapshots reuse as well.
func shareLoaders(cases []*runcase.RunCase) {
	memos := make(map[corpus.Loader]*corpus.MemoLoader)
	for _, rc := range cases {
		memo, ok := memos[rc.Loader]
		if !ok {
			memo = corpus.Memoize(rc.Loader)
			memos[rc.Loader] = memo
		}
		rc.Loader = memo
	}
}

func newReporter(out config.OutputConfig, stdout io.Writer) (reporting.Reporter, error) {
	if out.Path == "" || out.Path == "stdout" {
		return reporting.NewWithWriter(out.Format, nopWriteCloser{stdout})
	}
	return reporting.New(out.Format, out.Path)
}

func reporterSink(reporter reporting.Reporter) runcase.Sink {
	return runcase.SinkFunc(func(_ context.Context, result *schemas.RunResult) error {
		return reporter.Write(result)
	})
}

// diagnosticsSink prints the unmatched clusters of every result with the
// texts of their members.
func diagnosticsSink(cases []*runcase.RunCase, w io.Writer) runcase.Sink {
	byTitle := make(map[string]*runcase.RunCase, len(cases))
	for _, rc := range cases {
		byTitle[rc.Title] = rc
	}
	return runcase.SinkFunc(func(ctx context.Context, result *schemas.RunResult) error {
		rc, ok := byTitle[result.Title]
		if !ok || result.Report == nil {
			return nil
		}
		c, _, err := rc.Loader.Load(ctx, rc.Format)
		if err != nil {
			return fmt.Errorf("diagnostics for %q: %w", result.Title, err)
		}
		if _, err := fmt.Fprintln(w, reporting.Summary(result)); err != nil {
			return err
		}
		return reporting.Diagnostics(result.Report, c, w)
	})
}

// writeSnapshots stores each distinct (dataset, format) corpus once.
func writeSnapshots(ctx context.Context, cases []*runcase.RunCase, dir string, logger *zap.Logger) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create snapshot directory %s: %w", dir, err)
	}
	written := make(map[string]bool)
	for _, rc := range cases {
		name := snapshotFileName(rc.Dataset, rc.Format.Name)
		if written[name] {
			continue
		}
		written[name] = true

		c, labels, err := rc.Loader.Load(ctx, rc.Format)
		if err != nil {
			return fmt.Errorf("run case %q: failed to load corpus: %w", rc.Title, err)
		}
		path := filepath.Join(dir, name)
		if err := writeSnapshotFile(path, c, labels); err != nil {
			return err
		}
		logger.Info("Snapshot written.", zap.String("path", path), zap.Int("findings", len(c)))
	}
	return nil
}

func writeSnapshotFile(path string, c schemas.Corpus, labels schemas.Labels) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create snapshot %s: %w", path, err)
	}
	if err := corpus.WriteSnapshot(f, c, labels); err != nil {
		f.Close()
		return fmt.Errorf("failed to write snapshot %s: %w", path, err)
	}
	return f.Close()
}

func snapshotFileName(dataset, format string) string {
	clean := strings.NewReplacer("/", "_", string(os.PathSeparator), "_", " ", "_")
	return clean.Replace(dataset) + "-" + clean.Replace(format) + ".json"
}
