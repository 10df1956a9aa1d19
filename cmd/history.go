package cmd

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/xkilldash9x/finding-dedup/internal/config"
	"github.com/xkilldash9x/finding-dedup/internal/store"
)

func newHistoryCmd(provider storeProvider) *cobra.Command {
	return &cobra.Command{
		Use:   "history <runcase>",
		Short: "List the stored results of a run case",
		Long:  `Lists every stored run of the run case with its headline metrics, oldest first. Requires database.url.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := getConfigFromContext(ctx)
			if err != nil {
				return err
			}
			return runHistory(ctx, cfg, args[0], provider, cmd.OutOrStdout())
		},
	}
}

func runHistory(ctx context.Context, cfg config.Interface, title string, provider storeProvider, w io.Writer) error {
	st, cleanup, err := provider.Create(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize store: %w", err)
	}
	if cleanup != nil {
		defer cleanup()
	}

	runs, err := st.RunsByTitle(ctx, title)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		_, err := fmt.Fprintf(w, "no stored runs for %q\n", title)
		return err
	}
	return writeHistory(w, runs)
}

func writeHistory(w io.Writer, runs []store.RunSummary) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN ID\tFORMAT\tTECHNIQUE\tF-MEASURE\tPRECISION\tRECALL\tACCURACY")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%.3f\t%.3f\t%.3f\t%.3f\n",
			r.RunID, r.Format, r.Technique, r.FMeasure, r.Precision, r.Recall, r.Accuracy)
	}
	return tw.Flush()
}
