// Package resolve answers a query from stored pairs: exact key lookup on
// the latest source, then on every source, then similarity search.
package resolve

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/efebarandurmaz/docqa/internal/embedding"
	"github.com/efebarandurmaz/docqa/internal/keys"
	"github.com/efebarandurmaz/docqa/internal/observability"
	"github.com/efebarandurmaz/docqa/internal/state"
	"github.com/efebarandurmaz/docqa/internal/vector"
)

// Status says how an answer was found.
type Status string

const (
	StatusExact            Status = "exact"
	StatusSemantic         Status = "semantic"
	StatusNotFoundInLatest Status = "not_found_in_latest"
	StatusNotFound         Status = "not_found"
	StatusNoRelevant       Status = "no_relevant"
)

// Found reports whether the status carries an answer from the store.
func (s Status) Found() bool {
	return s == StatusExact || s == StatusSemantic
}

// Answer is the result of resolving one query.
type Answer struct {
	Text   string `json:"answer"`
	Source string `json:"source,omitempty"`
	Status Status `json:"status"`
}

// exactLimit bounds how many exact matches are compared per scope.
const exactLimit = 50

// Options tunes a Resolver.
type Options struct {
	SemanticTopK   int
	// MinScore drops semantic matches scoring at or below it.
	MinScore       float32
	// SemanticGlobal widens a semantic search that found nothing in the
	// scoped source to all sources.
	SemanticGlobal bool
	Metrics        *observability.DocQAMetrics
	Logger         *slog.Logger
}

// Resolver answers queries. It never writes to the store.
type Resolver struct {
	keys     *keys.Table
	store    vector.Store
	embedder embedding.Provider
	latest   *state.LatestSource
	topK     int
	minScore float32
	widen    bool
	metrics  *observability.DocQAMetrics
	logger   *slog.Logger
}

// New creates a Resolver. A nil table means the built-in aliases; a nil
// latest means queries are always global.
func New(table *keys.Table, store vector.Store, emb embedding.Provider, latest *state.LatestSource, opts Options) *Resolver {
	if table == nil {
		table = keys.DefaultTable()
	}
	if latest == nil {
		latest = state.NewLatestSource()
	}
	if opts.SemanticTopK <= 0 {
		opts.SemanticTopK = 3
	}
	return &Resolver{
		keys:     table,
		store:    store,
		embedder: emb,
		latest:   latest,
		topK:     opts.SemanticTopK,
		minScore: opts.MinScore,
		widen:    opts.SemanticGlobal,
		metrics:  opts.Metrics,
		logger:   observability.Component(opts.Logger, "resolve"),
	}
}

// Resolve answers query, preferring the most recently ingested source.
func (r *Resolver) Resolve(ctx context.Context, query string) (Answer, error) {
	latest, _ := r.latest.Get()
	return r.resolve(ctx, query, latest)
}

// ResolveIn answers query, preferring source over the latest one. An empty
// source behaves like Resolve.
func (r *Resolver) ResolveIn(ctx context.Context, query, source string) (Answer, error) {
	if source == "" {
		return r.Resolve(ctx, query)
	}
	return r.resolve(ctx, query, source)
}

func (r *Resolver) resolve(ctx context.Context, query, scope string) (ans Answer, err error) {
	start := time.Now()
	candidates, known := r.keys.Lookup(query)

	ctx, span := observability.StartResolveSpan(ctx, scope)
	defer func() {
		observability.RecordResolveResult(span, string(ans.Status), candidates)
		observability.RecordError(span, err)
		span.End()
		if err == nil {
			r.metrics.RecordQuery(start, string(ans.Status))
		}
	}()

	if len(candidates) > 0 {
		var hit bool
		ans, hit, err = r.exact(ctx, candidates, scope)
		// An unknown phrase of several words may still be free text.
		if err != nil || hit || known || !strings.Contains(candidates[0], " ") {
			return ans, err
		}
		r.logger.Debug("unknown label missed, trying semantic search", "candidates", candidates)
	}
	return r.semantic(ctx, query, scope)
}

// exact tries each candidate key in order, scoped first and then global.
// hit is false when nothing matched; ans then carries the miss status.
func (r *Resolver) exact(ctx context.Context, candidates []string, scope string) (ans Answer, hit bool, err error) {
	for _, key := range candidates {
		scopes := []string{""}
		if scope != "" {
			scopes = []string{scope, ""}
		}
		for _, s := range scopes {
			hits, err := r.store.FindExact(ctx, key, s, exactLimit)
			if err != nil {
				return Answer{}, false, fmt.Errorf("exact lookup %q: %w", key, err)
			}
			if best, ok := pick(hits); ok {
				r.logger.Debug("exact hit", "key", key, "scope", s, "source", best.Source, "sequence", best.Sequence)
				return Answer{Text: best.Value, Source: best.Source, Status: StatusExact}, true, nil
			}
		}
	}

	r.logger.Debug("no exact hit", "candidates", candidates, "scope", scope)
	if scope != "" {
		return Answer{
			Text:   fmt.Sprintf("No information about that in %s.", scope),
			Source: scope,
			Status: StatusNotFoundInLatest,
		}, false, nil
	}
	return Answer{Text: "No information found.", Status: StatusNotFound}, false, nil
}

// pick returns the winning payload among exact matches with a non-empty
// value.
func pick(hits []vector.Payload) (vector.Payload, bool) {
	var best vector.Payload
	found := false
	for _, h := range hits {
		if strings.TrimSpace(h.Value) == "" {
			continue
		}
		if !found || vector.Newer(h, best) {
			best, found = h, true
		}
	}
	return best, found
}

// semantic embeds the query and answers from the nearest record in scope,
// or globally when there is no scope. With SemanticGlobal a scoped miss is
// retried globally.
func (r *Resolver) semantic(ctx context.Context, query, scope string) (Answer, error) {
	if strings.TrimSpace(query) == "" {
		return Answer{Text: "No information found.", Status: StatusNotFound}, nil
	}
	if r.embedder == nil {
		return Answer{}, embedding.ErrUnavailable
	}
	vec, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return Answer{}, fmt.Errorf("embed query: %w", err)
	}

	scopes := []string{scope}
	if scope != "" && r.widen {
		scopes = append(scopes, "")
	}
	for _, s := range scopes {
		matches, err := r.store.Nearest(ctx, vec, r.topK, s)
		if err != nil {
			return Answer{}, fmt.Errorf("semantic search: %w", err)
		}
		if len(matches) == 0 || matches[0].Score <= r.minScore {
			continue
		}
		top := matches[0]
		r.logger.Debug("semantic hit", "scope", s, "source", top.Source, "score", top.Score)
		text := strings.TrimSpace(top.Value)
		if text == "" {
			text = fmt.Sprintf("%s: %s", top.Source, top.DisplayText)
		}
		return Answer{Text: text, Source: top.Source, Status: StatusSemantic}, nil
	}
	return Answer{Text: "No relevant information found.", Status: StatusNoRelevant}, nil
}
