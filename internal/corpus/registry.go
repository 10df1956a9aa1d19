package corpus

import (
	"fmt"
	"strings"
	"sync"

	"github.com/xkilldash9x/finding-dedup/internal/config"
)

// Registry resolves configured datasets and formats by name. Datasets are
// parsed once and shared between run cases.
type Registry struct {
	datasets map[string]config.DatasetConfig
	formats  []config.FormatConfig

	mu      sync.Mutex
	loaders map[string]Loader
}

// NewRegistry creates a registry over the configured datasets and formats.
func NewRegistry(cfg config.Interface) *Registry {
	return &Registry{
		datasets: cfg.Datasets(),
		formats:  cfg.Formats(),
		loaders:  make(map[string]Loader),
	}
}

// Format returns the named corpus format.
func (r *Registry) Format(name string) (Format, error) {
	for _, fc := range r.formats {
		if fc.Name == name {
			return FormatFromConfig(fc)
		}
	}
	return Format{}, fmt.Errorf("unknown corpus format %q", name)
}

// Loader returns the loader of the named dataset.
func (r *Registry) Loader(name string) (Loader, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.loader(strings.ToLower(name), map[string]bool{})
}

func (r *Registry) loader(name string, visiting map[string]bool) (Loader, error) {
	if l, ok := r.loaders[name]; ok {
		return l, nil
	}
	ds, ok := r.datasets[name]
	if !ok {
		return nil, fmt.Errorf("unknown dataset %q", name)
	}
	if visiting[name] {
		return nil, fmt.Errorf("dataset %q aggregates itself", name)
	}
	visiting[name] = true

	var (
		l   Loader
		err error
	)
	switch ds.Type {
	case config.DatasetSeFiLa:
		l, err = NewSeFiLaLoader(ds.Path, NormalizerFromConfig(ds))
	case config.DatasetSnapshot:
		l, err = NewSnapshotLoader(ds.Path)
	case config.DatasetAggregated:
		l, err = r.aggregated(ds, visiting)
	default:
		err = fmt.Errorf("unsupported dataset type %q", ds.Type)
	}
	if err != nil {
		return nil, fmt.Errorf("dataset %q: %w", name, err)
	}
	r.loaders[name] = l
	return l, nil
}

func (r *Registry) aggregated(ds config.DatasetConfig, visiting map[string]bool) (Loader, error) {
	key, err := r.loader(strings.ToLower(ds.Key), visiting)
	if err != nil {
		return nil, err
	}
	target, err := r.loader(strings.ToLower(ds.Target), visiting)
	if err != nil {
		return nil, err
	}
	keyFormat, err := r.Format(ds.KeyFormat)
	if err != nil {
		return nil, err
	}
	return &AggregatedLoader{Key: key, KeyFormat: keyFormat, Target: target}, nil
}
