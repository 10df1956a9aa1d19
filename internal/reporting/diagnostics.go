package reporting

import (
	"fmt"
	"io"

	"github.com/xkilldash9x/finding-dedup/api/schemas"
)

// Diagnostics prints every unmatched label cluster and unmatched predicted
// cluster with the corpus text of each member, to inspect where a technique
// split or merged findings.
func Diagnostics(report *schemas.EvaluationReport, corpus schemas.Corpus, w io.Writer) error {
	sections := []struct {
		title    string
		clusters []schemas.Cluster
	}{
		{"Unmatched labels", report.UnmatchedLabels},
		{"Unmatched predictions", report.UnmatchedPredictions},
	}
	for _, section := range sections {
		if _, err := fmt.Fprintf(w, "==== %s (%d) ====\n", section.title, len(section.clusters)); err != nil {
			return err
		}
		for _, cluster := range section.clusters {
			if _, err := fmt.Fprintf(w, "---- cluster %s\n", cluster.Key()); err != nil {
				return err
			}
			for _, id := range cluster {
				if _, err := fmt.Fprintf(w, "%6d: %q\n", id, corpus[id]); err != nil {
					return err
				}
			}
		}
	}
	return nil
}
