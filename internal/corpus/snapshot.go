package corpus

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"

	json "github.com/json-iterator/go"

	"github.com/xkilldash9x/finding-dedup/api/schemas"
)

// SnapshotLoader serves a corpus that was built ahead of time. The format
// passed to Load is ignored.
type SnapshotLoader struct {
	corpus schemas.Corpus
	labels schemas.Labels
}

// NewSnapshotLoader reads the snapshot at path.
func NewSnapshotLoader(path string) (*SnapshotLoader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open snapshot: %w", err)
	}
	defer f.Close()
	return ReadSnapshot(f)
}

// ReadSnapshot decodes a snapshot from r.
func ReadSnapshot(r io.Reader) (*SnapshotLoader, error) {
	var snap schemas.Snapshot
	if err := json.NewDecoder(r).Decode(&snap); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	l := &SnapshotLoader{
		corpus: schemas.Corpus(snap.Corpus),
		labels: make(schemas.Labels, len(snap.Labels)),
	}
	if l.corpus == nil {
		l.corpus = make(schemas.Corpus)
	}
	for _, lbl := range snap.Labels {
		key := schemas.LabelKey{CollectionID: lbl.CollectionID, Name: lbl.Name}
		l.labels[key] = append(l.labels[key], lbl.Findings...)
	}
	return l, nil
}

// Load returns copies of the stored corpus and labels.
func (l *SnapshotLoader) Load(ctx context.Context, _ Format) (schemas.Corpus, schemas.Labels, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	return copyCorpus(l.corpus), copyLabels(l.labels), nil
}

// WriteSnapshot stores a corpus and its labels so they can be reloaded with
// a SnapshotLoader. Labels are written ordered by collection.
func WriteSnapshot(w io.Writer, corpus schemas.Corpus, labels schemas.Labels) error {
	snap := schemas.Snapshot{Corpus: corpus, Labels: make([]schemas.SnapshotLabel, 0, len(labels))}
	for key, ids := range labels {
		snap.Labels = append(snap.Labels, schemas.SnapshotLabel{CollectionID: key.CollectionID, Name: key.Name, Findings: ids})
	}
	sort.Slice(snap.Labels, func(i, j int) bool {
		a, b := snap.Labels[i], snap.Labels[j]
		if a.CollectionID != b.CollectionID {
			return a.CollectionID < b.CollectionID
		}
		return a.Name < b.Name
	})

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(snap); err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return nil
}
