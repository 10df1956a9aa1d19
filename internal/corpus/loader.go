package corpus

import (
	"context"
	"sync"

	"github.com/xkilldash9x/finding-dedup/api/schemas"
)

// Loader produces a corpus and its reference labels for a format.
type Loader interface {
	Load(ctx context.Context, format Format) (schemas.Corpus, schemas.Labels, error)
}

// MemoLoader remembers what its underlying loader produced per format name,
// so several consumers of the same dataset share a single load. Callers get
// copies and may modify them freely.
type MemoLoader struct {
	inner Loader

	mu     sync.Mutex
	loaded map[string]memoEntry
}

type memoEntry struct {
	corpus schemas.Corpus
	labels schemas.Labels
}

// Memoize wraps a loader. Wrapping a MemoLoader returns it unchanged.
func Memoize(inner Loader) *MemoLoader {
	if m, ok := inner.(*MemoLoader); ok {
		return m
	}
	return &MemoLoader{inner: inner, loaded: make(map[string]memoEntry)}
}

// Load returns the cached result for format.Name, loading it on first use.
// Failed loads are not cached.
func (m *MemoLoader) Load(ctx context.Context, format Format) (schemas.Corpus, schemas.Labels, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.loaded[format.Name]
	if !ok {
		c, labels, err := m.inner.Load(ctx, format)
		if err != nil {
			return nil, nil, err
		}
		entry = memoEntry{corpus: c, labels: labels}
		m.loaded[format.Name] = entry
	}
	return copyCorpus(entry.corpus), copyLabels(entry.labels), nil
}

func copyCorpus(c schemas.Corpus) schemas.Corpus {
	out := make(schemas.Corpus, len(c))
	for id, text := range c {
		out[id] = text
	}
	return out
}

func copyLabels(labels schemas.Labels) schemas.Labels {
	out := make(schemas.Labels, len(labels))
	for key, ids := range labels {
		out[key] = append([]schemas.FindingID(nil), ids...)
	}
	return out
}
