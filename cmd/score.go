package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	json "github.com/json-iterator/go"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/finding-dedup/api/schemas"
	"github.com/xkilldash9x/finding-dedup/internal/config"
	"github.com/xkilldash9x/finding-dedup/internal/corpus"
	"github.com/xkilldash9x/finding-dedup/internal/evaluation"
	"github.com/xkilldash9x/finding-dedup/internal/observability"
	"github.com/xkilldash9x/finding-dedup/internal/reporting"
)

type scoreOptions struct {
	predictions string
	labels      string
	closure     string
	title       string
	output      string
	format      string
	diagnostics bool
}

func newScoreCmd() *cobra.Command {
	opts := &scoreOptions{}

	scoreCmd := &cobra.Command{
		Use:   "score",
		Short: "Score an externally produced prediction against a labelled snapshot",
		Long: `Reads a prediction file, a JSON object mapping each finding ID to the IDs it
is related to, and scores it against the labels of a snapshot file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := getConfigFromContext(ctx)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("output") {
				cfg.SetOutputPath(opts.output)
			}
			if cmd.Flags().Changed("format") {
				cfg.SetOutputFormat(opts.format)
			}
			if cmd.Flags().Changed("diagnostics") {
				cfg.SetOutputDiagnostics(opts.diagnostics)
			}
			return runScore(ctx, observability.GetLogger(), cfg, opts, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	flags := scoreCmd.Flags()
	flags.StringVarP(&opts.predictions, "predictions", "p", "", "Prediction JSON file (required)")
	flags.StringVarP(&opts.labels, "labels", "l", "", "Snapshot JSON file holding the reference labels (required)")
	flags.StringVar(&opts.closure, "closure", string(schemas.ClosureNone), "Closure applied to the prediction: none, single_pass or components")
	flags.StringVar(&opts.title, "title", "", "Title of the result (default is the prediction file name)")
	flags.StringVarP(&opts.output, "output", "o", "", "Output file path. If unset, the result is printed to stdout.")
	flags.StringVarP(&opts.format, "format", "f", "", "Output format: json, yaml or text (default from config)")
	flags.BoolVar(&opts.diagnostics, "diagnostics", false, "Print unmatched clusters with their texts to stderr")
	_ = scoreCmd.MarkFlagRequired("predictions")
	_ = scoreCmd.MarkFlagRequired("labels")
	return scoreCmd
}

func runScore(ctx context.Context, logger *zap.Logger, cfg config.Interface, opts *scoreOptions, stdout, stderr io.Writer) error {
	logger = logger.Named("score")
	started := time.Now()

	predicted, err := readPrediction(opts.predictions)
	if err != nil {
		return err
	}
	snapshot, err := corpus.NewSnapshotLoader(opts.labels)
	if err != nil {
		return err
	}
	c, labels, err := snapshot.Load(ctx, corpus.Format{})
	if err != nil {
		return err
	}

	mode := schemas.ClosureMode(opts.closure)
	closed, err := evaluation.ApplyClosure(predicted, mode)
	if err != nil {
		return err
	}

	evaluator := evaluation.New(evaluation.WithRoundDigits(cfg.Evaluation().RoundDigits))
	report, err := evaluator.Evaluate(closed, labels)
	if err != nil {
		return fmt.Errorf("failed to score %s: %w", opts.predictions, err)
	}

	title := opts.title
	if title == "" {
		title = strings.TrimSuffix(filepath.Base(opts.predictions), filepath.Ext(opts.predictions))
	}
	result := &schemas.RunResult{
		RunID:     uuid.NewString(),
		Title:     title,
		Format:    "snapshot",
		Technique: "external",
		Params:    schemas.Params{Closure: mode},
		StartedAt: started,
		Duration:  time.Since(started),
		Report:    report,
	}
	logger.Info("Prediction scored.", zap.String("title", title), zap.Float64("f_measure", report.FMeasure))

	reporter, err := newReporter(cfg.Output(), stdout)
	if err != nil {
		return fmt.Errorf("failed to initialize reporter: %w", err)
	}
	if err := reporter.Write(result); err != nil {
		reporter.Close()
		return fmt.Errorf("failed to write result: %w", err)
	}
	if err := reporter.Close(); err != nil {
		return fmt.Errorf("failed to finalize report: %w", err)
	}

	if cfg.Output().Diagnostics {
		return reporting.Diagnostics(report, c, stderr)
	}
	return nil
}

// readPrediction decodes a JSON object of finding ID to related IDs.
func readPrediction(path string) (schemas.Prediction, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read prediction file: %w", err)
	}
	var raw map[string][]schemas.FlexibleInt
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode prediction file %s: %w", path, err)
	}

	predicted := make(schemas.Prediction, len(raw))
	for key, related := range raw {
		var id schemas.FlexibleInt
		if err := id.UnmarshalJSON([]byte(key)); err != nil {
			return nil, fmt.Errorf("prediction file %s: invalid finding ID %q: %w", path, key, err)
		}
		members := make([]schemas.FindingID, len(related))
		for i, r := range related {
			members[i] = schemas.FindingID(r)
		}
		predicted[schemas.FindingID(id)] = members
	}
	return predicted, nil
}
