package embedding

import (
	"context"

	"github.com/efebarandurmaz/docqa/internal/observability"
)

// Traced wraps p so that every call runs inside an "embedding.embed" span
// and failures are counted on m. m may be nil.
func Traced(p Provider, m *observability.DocQAMetrics) Provider {
	if p == nil {
		return nil
	}
	return &traced{inner: p, metrics: m}
}

type traced struct {
	inner   Provider
	metrics *observability.DocQAMetrics
}

func (t *traced) Embed(ctx context.Context, text string) ([]float32, error) {
	ctx, span := observability.StartEmbedSpan(ctx, t.inner.Name())
	defer span.End()
	vec, err := t.inner.Embed(ctx, text)
	if err != nil {
		observability.RecordError(span, err)
		t.metrics.RecordEmbeddingError()
	}
	return vec, err
}

func (t *traced) Dimension() int { return t.inner.Dimension() }
func (t *traced) Name() string   { return t.inner.Name() }
