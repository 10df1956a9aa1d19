package techniques

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/xkilldash9x/finding-dedup/api/schemas"
)

// Technique clusters a corpus into a raw prediction.
type Technique interface {
	Name() string
	// Apply relates every finding of the corpus to the findings it considers
	// duplicates of it, then applies the closure mode of params.
	Apply(ctx context.Context, corpus schemas.Corpus, params schemas.Params) (schemas.Prediction, error)
}

// Dependencies are the shared collaborators handed to technique factories.
type Dependencies struct {
	Cache  *Cache
	Logger *zap.Logger
}

// Factory builds a technique.
type Factory func(deps Dependencies) Technique

var (
	registryMu sync.RWMutex
	registry   = map[string]Factory{
		"equality": func(deps Dependencies) Technique { return NewEquality(deps.Logger) },
		"bow":      func(deps Dependencies) Technique { return NewBagOfWords(deps.Cache, deps.Logger) },
		"tfidf":    func(deps Dependencies) Technique { return NewTFIDF(deps.Logger) },
	}
)

// register adds or replaces a technique factory.
func register(name string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = factory
}

// New builds the named technique. A nil cache or logger is replaced by an
// in-memory cache and a no-op logger.
func New(name string, deps Dependencies) (Technique, error) {
	registryMu.RLock()
	factory, ok := registry[name]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown technique %q (known: %s)", name, strings.Join(Names(), ", "))
	}
	if deps.Cache == nil {
		deps.Cache = NewCache()
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return factory(deps), nil
}

// Names lists the registered techniques in alphabetical order.
func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// threshold validates a similarity threshold.
func threshold(params schemas.Params, def float64) (float64, error) {
	t := params.ThresholdOr(def)
	if t < 0 || t > 1 {
		return 0, fmt.Errorf("threshold %v out of range [0, 1]", t)
	}
	return t, nil
}
