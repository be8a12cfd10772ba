// Package memory is an in-process vector.Store using brute-force cosine
// similarity. It backs tests, the CLI and single-node deployments.
package memory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/efebarandurmaz/docqa/internal/vector"
)

// Store keeps records in insertion order.
type Store struct {
	mu      sync.RWMutex
	dim     int
	order   []string
	records map[string]vector.Record
}

// New creates an empty store. dim <= 0 accepts any vector length.
func New(dim int) *Store {
	return &Store{dim: dim, records: make(map[string]vector.Record)}
}

func (s *Store) Upsert(ctx context.Context, records []vector.Record) error {
	if err := ctx.Err(); err != nil {
		return vector.Unavailable("upsert", err)
	}
	for _, r := range records {
		if r.ID == "" {
			return vector.Unavailable("upsert", fmt.Errorf("record without id"))
		}
		if s.dim > 0 && len(r.Vector) != s.dim {
			return vector.Unavailable("upsert", fmt.Errorf("vector dimension %d, want %d", len(r.Vector), s.dim))
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range records {
		if _, ok := s.records[r.ID]; !ok {
			s.order = append(s.order, r.ID)
		}
		r.Vector = append([]float32(nil), r.Vector...)
		s.records[r.ID] = r
	}
	return nil
}

func (s *Store) DeleteBySource(ctx context.Context, source string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, vector.Unavailable("delete", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.order[:0]
	removed := 0
	for _, id := range s.order {
		if s.records[id].Payload.Source == source {
			delete(s.records, id)
			removed++
			continue
		}
		kept = append(kept, id)
	}
	s.order = kept
	return removed, nil
}

func (s *Store) FindExact(ctx context.Context, key, source string, limit int) ([]vector.Payload, error) {
	if err := ctx.Err(); err != nil {
		return nil, vector.Unavailable("find", err)
	}
	s.mu.RLock()
	var out []vector.Payload
	for _, id := range s.order {
		p := s.records[id].Payload
		if p.CanonicalKey != key || (source != "" && p.Source != source) {
			continue
		}
		out = append(out, p)
	}
	s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool { return vector.Newer(out[i], out[j]) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) Nearest(ctx context.Context, vec []float32, limit int, source string) ([]vector.Match, error) {
	if err := ctx.Err(); err != nil {
		return nil, vector.Unavailable("search", err)
	}
	if limit <= 0 {
		limit = 5
	}
	s.mu.RLock()
	var out []vector.Match
	for _, id := range s.order {
		r := s.records[id]
		if source != "" && r.Payload.Source != source {
			continue
		}
		out = append(out, vector.Match{Payload: r.Payload, Score: cosine(vec, r.Vector)})
	}
	s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) Count(ctx context.Context, source string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, vector.Unavailable("count", err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if source == "" {
		return len(s.order), nil
	}
	n := 0
	for _, id := range s.order {
		if s.records[id].Payload.Source == source {
			n++
		}
	}
	return n, nil
}

func (s *Store) Health(ctx context.Context) error { return ctx.Err() }

func (s *Store) Close() error { return nil }

func cosine(a, b []float32) float32 {
	n := min(len(a), len(b))
	var dot, na, nb float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return float32(dot / math.Sqrt(na*nb))
}

var _ vector.Store = (*Store)(nil)
