package techniques

import (
	"context"
	"math"

	"go.uber.org/zap"

	"github.com/xkilldash9x/finding-dedup/api/schemas"
	"github.com/xkilldash9x/finding-dedup/internal/corpus"
	"github.com/xkilldash9x/finding-dedup/internal/evaluation"
)

// DefaultTFIDFThreshold is the cosine similarity a document needs to be
// related to a query.
const DefaultTFIDFThreshold = 0.5

// TFIDF ranks findings by cosine similarity of their TF-IDF vectors. The model
// is trained on the corpus it is applied to.
type TFIDF struct {
	logger *zap.Logger
}

// NewTFIDF creates the technique.
func NewTFIDF(logger *zap.Logger) *TFIDF {
	return &TFIDF{logger: logger.Named("tfidf")}
}

func (t *TFIDF) Name() string { return "tfidf" }

// sparseVector maps a term index to its weight.
type sparseVector map[int]float64

func (v sparseVector) dot(o sparseVector) float64 {
	if len(o) < len(v) {
		v, o = o, v
	}
	var sum float64
	for term, w := range v {
		sum += w * o[term]
	}
	return sum
}

// Model is a TF-IDF model over a tokenized training corpus.
type Model struct {
	vocabulary map[string]int
	idf        []float64
}

// Train builds the vocabulary from docs, dropping tokens that occur only once
// in the whole corpus. IDF is log2(N / df).
func Train(docs [][]string) *Model {
	frequency := make(map[string]int)
	for _, doc := range docs {
		for _, token := range doc {
			frequency[token]++
		}
	}

	m := &Model{vocabulary: make(map[string]int)}
	var df []int
	for _, doc := range docs {
		seen := make(map[int]bool)
		for _, token := range doc {
			if frequency[token] <= 1 {
				continue
			}
			idx, ok := m.vocabulary[token]
			if !ok {
				idx = len(df)
				m.vocabulary[token] = idx
				df = append(df, 0)
			}
			if !seen[idx] {
				seen[idx] = true
				df[idx]++
			}
		}
	}

	n := float64(len(docs))
	m.idf = make([]float64, len(df))
	for i, d := range df {
		m.idf[i] = math.Log2(n / float64(d))
	}
	return m
}

// Vector returns the L2-normalized TF-IDF vector of a tokenized document.
// Terms outside the vocabulary or present in every document carry no weight.
func (m *Model) Vector(tokens []string) sparseVector {
	v := make(sparseVector)
	for _, token := range tokens {
		if idx, ok := m.vocabulary[token]; ok && m.idf[idx] > 0 {
			v[idx]++
		}
	}
	var norm float64
	for idx, tf := range v {
		w := tf * m.idf[idx]
		v[idx] = w
		norm += w * w
	}
	if norm == 0 {
		return sparseVector{}
	}
	norm = math.Sqrt(norm)
	for idx := range v {
		v[idx] /= norm
	}
	return v
}

// Apply relates every non-empty query to itself and to the documents with a
// cosine similarity of at least the threshold. Findings with empty text form
// one group. The default closure is a single pass.
func (t *TFIDF) Apply(ctx context.Context, c schemas.Corpus, params schemas.Params) (schemas.Prediction, error) {
	limit, err := threshold(params, DefaultTFIDFThreshold)
	if err != nil {
		return nil, err
	}

	ids := c.IDs()
	docs := make([][]string, len(ids))
	for i, id := range ids {
		docs[i] = corpus.Tokenize(c[id])
	}
	model := Train(docs)
	vectors := make([]sparseVector, len(ids))
	for i := range docs {
		vectors[i] = model.Vector(docs[i])
	}

	prediction := make(schemas.Prediction, len(ids))
	var empty []schemas.FindingID
	for qi, query := range ids {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if c[query] == "" {
			empty = append(empty, query)
			continue
		}
		related := []schemas.FindingID{query}
		for di, doc := range ids {
			if di != qi && vectors[qi].dot(vectors[di]) >= limit {
				related = append(related, doc)
			}
		}
		schemas.SortIDs(related)
		prediction[query] = related
	}
	for _, id := range empty {
		prediction[id] = append([]schemas.FindingID(nil), empty...)
	}
	t.logger.Debug("Ranked findings.",
		zap.Int("findings", len(ids)),
		zap.Int("vocabulary", len(model.vocabulary)),
		zap.Int("empty_queries", len(empty)))

	return evaluation.ApplyClosure(prediction, params.ClosureOr(schemas.ClosureSinglePass))
}
