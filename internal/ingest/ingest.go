// Package ingest drives extraction, embedding and storage for one source,
// replacing whatever the store previously held for it.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/efebarandurmaz/docqa/internal/documents"
	"github.com/efebarandurmaz/docqa/internal/embedding"
	"github.com/efebarandurmaz/docqa/internal/extract"
	"github.com/efebarandurmaz/docqa/internal/observability"
	"github.com/efebarandurmaz/docqa/internal/state"
	"github.com/efebarandurmaz/docqa/internal/vector"
)

// CMSSource is the fixed identifier of CMS payloads.
const CMSSource = "cms"

// ErrNoSource is returned for an ingestion without a source identifier.
var ErrNoSource = errors.New("source identifier is required")

// Source identifies one ingested unit.
type Source struct {
	ID       string `json:"id"`
	Type     string `json:"type"`      // vector.SourceFile or vector.SourceCMS
	FileType string `json:"file_type"` // document format, "json" for CMS
}

// Result summarizes one ingestion.
type Result struct {
	Source  string `json:"source"`
	Pairs   int    `json:"pairs"`
	Stored  int    `json:"stored_count"`
	Deleted int    `json:"deleted"`
}

// Options tunes an Orchestrator. Zero values pick defaults.
type Options struct {
	Concurrency int
	Metrics     *observability.DocQAMetrics
	Logger      *slog.Logger
}

// Orchestrator runs ingestions.
type Orchestrator struct {
	extractor   *extract.Extractor
	embedder    embedding.Provider
	store       vector.Store
	latest      *state.LatestSource
	metrics     *observability.DocQAMetrics
	logger      *slog.Logger
	concurrency int

	now   func() time.Time
	newID func() string
}

// New creates an Orchestrator. latest may be nil when the caller tracks the
// latest source itself.
func New(ex *extract.Extractor, emb embedding.Provider, store vector.Store, latest *state.LatestSource, opts Options) *Orchestrator {
	if ex == nil {
		ex = extract.New(nil)
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 4
	}
	return &Orchestrator{
		extractor:   ex,
		embedder:    emb,
		store:       store,
		latest:      latest,
		metrics:     opts.Metrics,
		logger:      observability.Component(opts.Logger, "ingest"),
		concurrency: opts.Concurrency,
		now:         time.Now,
		newID:       uuid.NewString,
	}
}

// Extract decodes an uploaded file and returns its source descriptor and
// pairs without touching the store. Binary formats that yield no text
// produce zero pairs rather than an error.
func (o *Orchestrator) Extract(filename string, data []byte) (Source, []extract.Pair, error) {
	if filename == "" {
		return Source{}, nil, ErrNoSource
	}
	src := Source{ID: filename, Type: vector.SourceFile}

	format, text, err := documents.Read(filename, data)
	src.FileType = string(format)
	if err != nil {
		if errors.Is(err, documents.ErrUnsupported) {
			o.logger.Warn("no text extracted", "source", filename, "error", err)
			return src, nil, nil
		}
		return src, nil, fmt.Errorf("read %s: %w", filename, err)
	}

	if format == documents.FormatJSON {
		if pairs, err := o.extractor.FromJSON([]byte(text)); err == nil {
			return src, pairs, nil
		}
	}
	return src, o.extractor.FromText(text), nil
}

// ExtractCMS parses a CMS JSON document into pairs.
func (o *Orchestrator) ExtractCMS(data []byte) (Source, []extract.Pair, error) {
	src := Source{ID: CMSSource, Type: vector.SourceCMS, FileType: "json"}
	pairs, err := o.extractor.FromJSON(data)
	if err != nil {
		return src, nil, err
	}
	return src, pairs, nil
}

// IngestFile extracts and stores an uploaded file.
func (o *Orchestrator) IngestFile(ctx context.Context, filename string, data []byte) (Result, error) {
	src, pairs, err := o.Extract(filename, data)
	if err != nil {
		return Result{Source: filename}, err
	}
	return o.Ingest(ctx, src, pairs)
}

// IngestCMS extracts and stores a CMS JSON document.
func (o *Orchestrator) IngestCMS(ctx context.Context, data []byte) (Result, error) {
	src, pairs, err := o.ExtractCMS(data)
	if err != nil {
		return Result{Source: CMSSource}, err
	}
	return o.Ingest(ctx, src, pairs)
}

// Ingest replaces the stored records of src with pairs and, once every
// record is stored, marks src as the latest source.
func (o *Orchestrator) Ingest(ctx context.Context, src Source, pairs []extract.Pair) (Result, error) {
	res, err := o.Write(ctx, src, pairs)
	if err != nil {
		return res, err
	}
	if o.latest != nil {
		o.latest.Set(src.ID)
	}
	return res, nil
}

// Write deletes the records of src and stores pairs in its place. It does
// not update the latest source. Records stored before a failure are kept.
func (o *Orchestrator) Write(ctx context.Context, src Source, pairs []extract.Pair) (res Result, err error) {
	res = Result{Source: src.ID, Pairs: len(pairs)}
	if src.ID == "" {
		return res, ErrNoSource
	}

	start := time.Now()
	ctx, span := observability.StartIngestSpan(ctx, src.ID, src.Type)
	defer func() {
		observability.RecordIngestResult(span, res.Stored, res.Deleted)
		observability.RecordError(span, err)
		span.End()
		o.metrics.RecordIngestion(start, res.Stored, err)
	}()
	if o.metrics != nil {
		o.metrics.IngestionsInFlight.Add(1)
		defer o.metrics.IngestionsInFlight.Add(-1)
	}

	o.logger.Info("ingesting", "source", src.ID, "type", src.Type, "file_type", src.FileType, "pairs", len(pairs))

	res.Deleted, err = o.store.DeleteBySource(ctx, src.ID)
	if err != nil {
		return res, fmt.Errorf("wipe %s: %w", src.ID, err)
	}

	res.Stored, err = o.writePairs(ctx, src, pairs)
	if err != nil {
		o.logger.Error("ingestion failed", "source", src.ID, "stored", res.Stored, "error", err)
		return res, err
	}

	o.logger.Info("ingested", "source", src.ID, "stored", res.Stored, "deleted", res.Deleted,
		"duration", time.Since(start))
	return res, nil
}

// writePairs embeds and upserts every pair with bounded concurrency, returning
// how many records were written.
func (o *Orchestrator) writePairs(ctx context.Context, src Source, pairs []extract.Pair) (int, error) {
	if len(pairs) == 0 {
		return 0, nil
	}
	if o.embedder == nil {
		return 0, embedding.ErrUnavailable
	}

	ingestedAt := o.now().UTC()
	var (
		mu     sync.Mutex
		stored int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.concurrency)
	for _, p := range pairs {
		g.Go(func() error {
			vec, err := o.embedder.Embed(gctx, p.DisplayText)
			if err != nil {
				return fmt.Errorf("embed pair %d: %w", p.Sequence, err)
			}
			rec := vector.Record{
				ID:     o.newID(),
				Vector: vec,
				Payload: vector.Payload{
					Source:       src.ID,
					SourceType:   src.Type,
					FileType:     src.FileType,
					RawKey:       p.RawKey,
					CanonicalKey: p.CanonicalKey,
					Value:        p.Value,
					DisplayText:  p.DisplayText,
					Sequence:     p.Sequence,
					IngestedAt:   ingestedAt,
				},
			}
			if err := o.store.Upsert(gctx, []vector.Record{rec}); err != nil {
				return fmt.Errorf("store pair %d: %w", p.Sequence, err)
			}
			mu.Lock()
			stored++
			mu.Unlock()
			return nil
		})
	}
	err := g.Wait()
	return stored, err
}
