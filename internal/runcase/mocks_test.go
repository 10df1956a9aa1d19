package runcase

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/xkilldash9x/finding-dedup/api/schemas"
	"github.com/xkilldash9x/finding-dedup/internal/corpus"
)

// MockTechnique is a mock implementation of techniques.Technique.
type MockTechnique struct {
	mock.Mock
}

func (m *MockTechnique) Name() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockTechnique) Apply(ctx context.Context, c schemas.Corpus, params schemas.Params) (schemas.Prediction, error) {
	args := m.Called(ctx, c, params)
	if p, ok := args.Get(0).(schemas.Prediction); ok {
		return p, args.Error(1)
	}
	return nil, args.Error(1)
}

// staticLoader serves a fixed corpus and counts how often it was loaded.
type staticLoader struct {
	corpus schemas.Corpus
	labels schemas.Labels
	err    error

	mu    sync.Mutex
	loads int
}

func (l *staticLoader) Load(ctx context.Context, _ corpus.Format) (schemas.Corpus, schemas.Labels, error) {
	l.mu.Lock()
	l.loads++
	l.mu.Unlock()
	if l.err != nil {
		return nil, nil, l.err
	}
	return l.corpus, l.labels, ctx.Err()
}

// collectingSink records every result it receives.
type collectingSink struct {
	mu      sync.Mutex
	results []schemas.RunResult
	err     error
}

func (s *collectingSink) Consume(_ context.Context, result *schemas.RunResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.results = append(s.results, *result)
	return nil
}
