package reporting

import (
	"fmt"
	"io"
	"sync"

	json "github.com/json-iterator/go"

	"github.com/xkilldash9x/finding-dedup/api/schemas"
)

// JSONReporter collects results and writes them as one indented JSON array
// on Close. It is safe for concurrent use.
type JSONReporter struct {
	writer  io.WriteCloser
	mu      sync.Mutex
	results []*schemas.RunResult
	closed  bool
}

// NewJSONReporter creates a JSON reporter.
func NewJSONReporter(writer io.WriteCloser) *JSONReporter {
	return &JSONReporter{writer: writer, results: []*schemas.RunResult{}}
}

func (r *JSONReporter) Write(result *schemas.RunResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return fmt.Errorf("reporter is closed")
	}
	r.results = append(r.results, result)
	return nil
}

func (r *JSONReporter) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true

	data, err := json.MarshalIndent(r.results, "", "  ")
	if err != nil {
		r.writer.Close()
		return fmt.Errorf("failed to encode results: %w", err)
	}
	if _, err := r.writer.Write(append(data, '\n')); err != nil {
		r.writer.Close()
		return fmt.Errorf("failed to write results: %w", err)
	}
	return r.writer.Close()
}
