package runcase

import (
	"fmt"
	"sort"
	"strings"

	"github.com/xkilldash9x/finding-dedup/internal/config"
	"github.com/xkilldash9x/finding-dedup/internal/corpus"
	"github.com/xkilldash9x/finding-dedup/internal/evaluation"
	"github.com/xkilldash9x/finding-dedup/internal/techniques"
)

// FromConfig builds the configured run cases. A non-empty filter keeps only
// the run cases with those titles; unknown titles are an error.
func FromConfig(cfg config.Interface, registry *corpus.Registry, deps techniques.Dependencies, filter ...string) ([]*RunCase, error) {
	wanted := make(map[string]bool, len(filter))
	for _, title := range filter {
		wanted[title] = true
	}
	evaluator := evaluation.New(evaluation.WithRoundDigits(cfg.Evaluation().RoundDigits))

	var cases []*RunCase
	for _, rcc := range cfg.RunCases() {
		if len(wanted) > 0 && !wanted[rcc.Title] {
			continue
		}
		delete(wanted, rcc.Title)

		loader, err := registry.Loader(rcc.Dataset)
		if err != nil {
			return nil, fmt.Errorf("run case %q: %w", rcc.Title, err)
		}
		format, err := registry.Format(rcc.Format)
		if err != nil {
			return nil, fmt.Errorf("run case %q: %w", rcc.Title, err)
		}
		technique, err := techniques.New(rcc.Technique, deps)
		if err != nil {
			return nil, fmt.Errorf("run case %q: %w", rcc.Title, err)
		}
		cases = append(cases, &RunCase{
			Title:     rcc.Title,
			Dataset:   rcc.Dataset,
			Format:    format,
			Loader:    loader,
			Technique: technique,
			ParamSets: rcc.Params,
			Evaluator: evaluator,
		})
	}
	if len(wanted) > 0 {
		missing := make([]string, 0, len(wanted))
		for title := range wanted {
			missing = append(missing, title)
		}
		sort.Strings(missing)
		return nil, fmt.Errorf("unknown run case(s): %s", strings.Join(missing, ", "))
	}
	return cases, nil
}
