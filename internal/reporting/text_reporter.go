package reporting

import (
	"fmt"
	"io"
	"sync"

	"github.com/xkilldash9x/finding-dedup/api/schemas"
)

// TextReporter prints one summary line per result.
type TextReporter struct {
	writer io.WriteCloser
	mu     sync.Mutex
}

// NewTextReporter creates a text reporter.
func NewTextReporter(writer io.WriteCloser) *TextReporter {
	return &TextReporter{writer: writer}
}

func (r *TextReporter) Write(result *schemas.RunResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, err := fmt.Fprintln(r.writer, Summary(result))
	return err
}

func (r *TextReporter) Close() error {
	return r.writer.Close()
}

// Summary renders the headline metrics of a result on one line.
func Summary(result *schemas.RunResult) string {
	rep := result.Report
	return fmt.Sprintf("%s [%s] %s params=%s accuracy=%.3f/%.3f/%.3f f-measure=%.3f precision=%.3f recall=%.3f (%s)",
		result.Title, result.Format, result.Technique, result.Params,
		rep.Accuracy.Predictions, rep.Accuracy.Labels, rep.Accuracy.Average,
		rep.FMeasure, rep.Precision, rep.Recall, result.Duration)
}
