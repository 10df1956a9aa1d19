package reporting

import (
	"fmt"
	"io"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/xkilldash9x/finding-dedup/api/schemas"
)

// YAMLReporter streams every result as its own YAML document.
type YAMLReporter struct {
	writer  io.WriteCloser
	encoder *yaml.Encoder
	mu      sync.Mutex
	closed  bool
}

// NewYAMLReporter creates a YAML reporter.
func NewYAMLReporter(writer io.WriteCloser) *YAMLReporter {
	enc := yaml.NewEncoder(writer)
	enc.SetIndent(2)
	return &YAMLReporter{writer: writer, encoder: enc}
}

func (r *YAMLReporter) Write(result *schemas.RunResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return fmt.Errorf("reporter is closed")
	}
	if err := r.encoder.Encode(result); err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	return nil
}

func (r *YAMLReporter) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	if err := r.encoder.Close(); err != nil {
		r.writer.Close()
		return fmt.Errorf("failed to finish yaml stream: %w", err)
	}
	return r.writer.Close()
}
