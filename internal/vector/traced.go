package vector

import (
	"context"

	"github.com/efebarandurmaz/docqa/internal/observability"
)

// Traced wraps s so that every operation runs inside a "vector.<op>" span.
func Traced(s Store) Store {
	if s == nil {
		return nil
	}
	if _, ok := s.(*traced); ok {
		return s
	}
	return &traced{inner: s}
}

type traced struct {
	inner Store
}

func (t *traced) Upsert(ctx context.Context, records []Record) error {
	ctx, span := observability.StartStoreSpan(ctx, "upsert")
	defer span.End()
	err := t.inner.Upsert(ctx, records)
	observability.RecordError(span, err)
	return err
}

func (t *traced) DeleteBySource(ctx context.Context, source string) (int, error) {
	ctx, span := observability.StartStoreSpan(ctx, "delete")
	defer span.End()
	n, err := t.inner.DeleteBySource(ctx, source)
	observability.RecordError(span, err)
	return n, err
}

func (t *traced) FindExact(ctx context.Context, key, source string, limit int) ([]Payload, error) {
	ctx, span := observability.StartStoreSpan(ctx, "find_exact")
	defer span.End()
	out, err := t.inner.FindExact(ctx, key, source, limit)
	observability.RecordError(span, err)
	return out, err
}

func (t *traced) Nearest(ctx context.Context, vec []float32, limit int, source string) ([]Match, error) {
	ctx, span := observability.StartStoreSpan(ctx, "nearest")
	defer span.End()
	out, err := t.inner.Nearest(ctx, vec, limit, source)
	observability.RecordError(span, err)
	return out, err
}

func (t *traced) Count(ctx context.Context, source string) (int, error) {
	ctx, span := observability.StartStoreSpan(ctx, "count")
	defer span.End()
	n, err := t.inner.Count(ctx, source)
	observability.RecordError(span, err)
	return n, err
}

func (t *traced) Health(ctx context.Context) error { return t.inner.Health(ctx) }
func (t *traced) Close() error                     { return t.inner.Close() }
