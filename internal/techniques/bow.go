package techniques

import (
	"context"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/xkilldash9x/finding-dedup/api/schemas"
	"github.com/xkilldash9x/finding-dedup/internal/corpus"
	"github.com/xkilldash9x/finding-dedup/internal/evaluation"
)

// DefaultBagOfWordsThreshold is the similarity a pair needs to be related.
const DefaultBagOfWordsThreshold = 0.25

var nonAlpha = regexp.MustCompile(`[^A-Za-z ]+`)

// BagOfWords relates findings by the Jaccard coefficient of their word sets.
type BagOfWords struct {
	cache  *Cache
	logger *zap.Logger
}

// NewBagOfWords creates the technique. Sentence similarities are memoized in
// cache.
func NewBagOfWords(cache *Cache, logger *zap.Logger) *BagOfWords {
	return &BagOfWords{cache: cache, logger: logger.Named("bow")}
}

func (b *BagOfWords) Name() string { return "bow" }

// Apply relates each finding to itself and to every finding whose text
// similarity reaches the threshold.
func (b *BagOfWords) Apply(ctx context.Context, c schemas.Corpus, params schemas.Params) (schemas.Prediction, error) {
	limit, err := threshold(params, DefaultBagOfWordsThreshold)
	if err != nil {
		return nil, err
	}

	ids := c.IDs()
	prediction := make(schemas.Prediction, len(ids))
	for _, query := range ids {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		related := []schemas.FindingID{query}
		for _, other := range ids {
			if other != query && b.Similarity(c[query], c[other]) >= limit {
				related = append(related, other)
			}
		}
		schemas.SortIDs(related)
		prediction[query] = related
	}
	b.logger.Debug("Compared findings.", zap.Int("findings", len(ids)), zap.Int("cached_similarities", b.cache.Len()))

	return evaluation.ApplyClosure(prediction, params.ClosureOr(schemas.ClosureNone))
}

// Similarity is 1.0 for identical texts, 0.0 when either text is empty and
// the Jaccard coefficient of their token sets otherwise.
func (b *BagOfWords) Similarity(s1, s2 string) float64 {
	if s1 == s2 {
		return 1.0
	}
	if s1 == "" || s2 == "" {
		return 0.0
	}
	if v, ok := b.cache.Similarity(s1, s2); ok {
		return v
	}
	v := jaccard(b.tokens(s1), b.tokens(s2))
	b.cache.PutSimilarity(s1, s2, v)
	return v
}

// tokens returns the alphabetic words of text without stop words or skip
// words.
func (b *BagOfWords) tokens(text string) map[string]struct{} {
	cleaned := nonAlpha.ReplaceAllString(corpus.RemoveStopwords(text), "")
	set := make(map[string]struct{})
	for _, w := range strings.Fields(cleaned) {
		if b.cache.Skip(w) {
			continue
		}
		set[w] = struct{}{}
	}
	return set
}

func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0.0
	}
	shared := 0
	for w := range a {
		if _, ok := b[w]; ok {
			shared++
		}
	}
	return float64(shared) / float64(len(a)+len(b)-shared)
}
