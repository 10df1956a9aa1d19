package techniques

import (
	"context"

	"go.uber.org/zap"

	"github.com/xkilldash9x/finding-dedup/api/schemas"
	"github.com/xkilldash9x/finding-dedup/internal/evaluation"
)

// Equality groups findings whose texts are byte-identical.
type Equality struct {
	logger *zap.Logger
}

// NewEquality creates the equality comparison technique.
func NewEquality(logger *zap.Logger) *Equality {
	return &Equality{logger: logger.Named("equality")}
}

func (e *Equality) Name() string { return "equality" }

// Apply relates each finding to all findings with the same text. With
// SkipBlank, findings with empty text are related only to themselves.
func (e *Equality) Apply(ctx context.Context, corpus schemas.Corpus, params schemas.Params) (schemas.Prediction, error) {
	byText := make(map[string][]schemas.FindingID)
	for _, id := range corpus.IDs() {
		byText[corpus[id]] = append(byText[corpus[id]], id)
	}

	prediction := make(schemas.Prediction, len(corpus))
	for id, text := range corpus {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if params.SkipBlank && text == "" {
			prediction[id] = []schemas.FindingID{id}
			continue
		}
		prediction[id] = append([]schemas.FindingID(nil), byText[text]...)
	}
	e.logger.Debug("Grouped identical texts.", zap.Int("findings", len(corpus)), zap.Int("distinct_texts", len(byText)))

	return evaluation.ApplyClosure(prediction, params.ClosureOr(schemas.ClosureNone))
}
