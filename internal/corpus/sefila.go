package corpus

import (
	"context"
	"fmt"
	"io"
	"os"

	json "github.com/json-iterator/go"

	"github.com/xkilldash9x/finding-dedup/api/schemas"
)

// SeFiLaLoader reads a labeled dataset of finding collections.
type SeFiLaLoader struct {
	collections []schemas.Collection
	normalizer  Normalizer
}

// NewSeFiLaLoader parses the dataset at path.
func NewSeFiLaLoader(path string, normalizer Normalizer) (*SeFiLaLoader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open dataset: %w", err)
	}
	defer f.Close()
	return ParseSeFiLa(f, normalizer)
}

// ParseSeFiLa decodes a dataset from r.
func ParseSeFiLa(r io.Reader, normalizer Normalizer) (*SeFiLaLoader, error) {
	var collections []schemas.Collection
	if err := json.NewDecoder(r).Decode(&collections); err != nil {
		return nil, fmt.Errorf("failed to decode dataset: %w", err)
	}
	return &SeFiLaLoader{collections: collections, normalizer: normalizer}, nil
}

// Load builds the corpus tool by tool in format order. Findings of tools the
// format does not list are left out of both corpus and labels.
func (l *SeFiLaLoader) Load(ctx context.Context, format Format) (schemas.Corpus, schemas.Labels, error) {
	corpus := make(schemas.Corpus)
	labels := make(schemas.Labels)

	for _, tool := range format.Tools {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		for _, collection := range l.collections {
			key := collection.Key()
			for _, finding := range collection.Findings {
				if finding.Tool != tool.Tool {
					continue
				}
				id := schemas.FindingID(finding.ID)
				entry, err := tool.Entry(int(id), finding.Finding, format.Separator)
				if err != nil {
					return nil, nil, fmt.Errorf("format %q: %w", format.Name, err)
				}
				corpus[id] = l.normalizer.Normalize(entry)
				labels[key] = append(labels[key], id)
			}
		}
	}
	return corpus, labels, nil
}
