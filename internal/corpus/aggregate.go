package corpus

import (
	"context"
	"fmt"
	"strings"

	"github.com/xkilldash9x/finding-dedup/api/schemas"
)

// AggregatedLoader merges the texts of findings that share a unique key,
// such as a CVE identifier. Key findings are loaded with KeyFormat; texts and
// labels come from Target.
type AggregatedLoader struct {
	Key       Loader
	KeyFormat Format
	Target    Loader
}

// Load replaces the target text of every finding with a non-empty key by the
// separator-joined target texts of all findings sharing that key. Findings
// with an empty key keep their own text. Key findings missing from the
// target corpus are ignored.
func (l *AggregatedLoader) Load(ctx context.Context, format Format) (schemas.Corpus, schemas.Labels, error) {
	target, labels, err := l.Target.Load(ctx, format)
	if err != nil {
		return nil, nil, fmt.Errorf("target corpus: %w", err)
	}
	keys, _, err := l.Key.Load(ctx, l.KeyFormat)
	if err != nil {
		return nil, nil, fmt.Errorf("unique key corpus: %w", err)
	}

	// Ascending IDs keep the join order stable.
	grouped := make(map[string][]string)
	for _, id := range keys.IDs() {
		key := keys[id]
		text, ok := target[id]
		if key == "" || !ok {
			continue
		}
		grouped[key] = append(grouped[key], text)
	}

	for id, key := range keys {
		if _, ok := target[id]; key == "" || !ok {
			continue
		}
		target[id] = strings.Join(grouped[key], format.Separator)
	}
	return target, labels, nil
}
