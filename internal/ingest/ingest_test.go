package ingest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/efebarandurmaz/docqa/internal/embedding"
	"github.com/efebarandurmaz/docqa/internal/extract"
	"github.com/efebarandurmaz/docqa/internal/observability"
	"github.com/efebarandurmaz/docqa/internal/state"
	"github.com/efebarandurmaz/docqa/internal/vector"
	"github.com/efebarandurmaz/docqa/internal/vector/memory"
)

// scripted embeds with the local embedder and fails from call failAt on.
type scripted struct {
	mu     sync.Mutex
	inner  embedding.Provider
	calls  int
	failAt int
}

func (s *scripted) Embed(ctx context.Context, text string) ([]float32, error) {
	s.mu.Lock()
	s.calls++
	n := s.calls
	s.mu.Unlock()
	if s.failAt > 0 && n >= s.failAt {
		return nil, embedding.ErrRequestFailed
	}
	return s.inner.Embed(ctx, text)
}

func (s *scripted) Dimension() int { return s.inner.Dimension() }
func (s *scripted) Name() string   { return "scripted" }

// brokenStore fails every wipe.
type brokenStore struct{ vector.Store }

func (brokenStore) DeleteBySource(context.Context, string) (int, error) {
	return 0, vector.Unavailable("delete", errors.New("connection refused"))
}

type fixture struct {
	orch    *Orchestrator
	store   *memory.Store
	latest  *state.LatestSource
	metrics *observability.DocQAMetrics
}

func newFixture(t *testing.T, emb embedding.Provider) fixture {
	t.Helper()
	if emb == nil {
		emb = embedding.NewLocal(64)
	}
	f := fixture{
		store:   memory.New(emb.Dimension()),
		latest:  state.NewLatestSource(),
		metrics: observability.NewDocQAMetrics(),
	}
	f.orch = New(nil, emb, f.store, f.latest, Options{Concurrency: 1, Metrics: f.metrics})
	f.orch.now = func() time.Time { return time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC) }
	return f
}

func TestIngestFile_StoresPairsAndSetsLatest(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)

	res, err := f.orch.IngestFile(ctx, "brief.txt", []byte("Project Name: Apollo\nCity: Warsaw\n"))
	require.NoError(t, err)
	assert.Equal(t, Result{Source: "brief.txt", Pairs: 2, Stored: 2}, res)

	latest, ok := f.latest.Get()
	require.True(t, ok)
	assert.Equal(t, "brief.txt", latest)

	hits, err := f.store.FindExact(ctx, "city", "brief.txt", 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	p := hits[0]
	assert.Equal(t, "City", p.RawKey)
	assert.Equal(t, "Warsaw", p.Value)
	assert.Equal(t, "City: Warsaw", p.DisplayText)
	assert.Equal(t, vector.SourceFile, p.SourceType)
	assert.Equal(t, "txt", p.FileType)
	assert.Equal(t, 1, p.Sequence)
	assert.True(t, p.IngestedAt.Equal(time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)))

	assert.Equal(t, float64(1), f.metrics.IngestionsTotal.Value())
	assert.Equal(t, float64(2), f.metrics.PairsStoredTotal.Value())
}

func TestIngest_ReingestionReplaces(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)

	_, err := f.orch.IngestFile(ctx, "a.txt", []byte("City: Warsaw\nBudget: 5k\nDeadline: June"))
	require.NoError(t, err)
	_, err = f.orch.IngestFile(ctx, "b.txt", []byte("City: Kraków"))
	require.NoError(t, err)

	res, err := f.orch.IngestFile(ctx, "a.txt", []byte("City: Gdańsk"))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Stored)
	assert.Equal(t, 3, res.Deleted)

	n, err := f.store.Count(ctx, "a.txt")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = f.store.Count(ctx, "b.txt")
	require.NoError(t, err)
	assert.Equal(t, 1, n, "other sources are untouched")

	hits, err := f.store.FindExact(ctx, "budget", "a.txt", 10)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestIngest_EmbeddingFailureKeepsLatestAndPartialRecords(t *testing.T) {
	ctx := context.Background()
	emb := &scripted{inner: embedding.NewLocal(32), failAt: 2}
	f := newFixture(t, emb)
	f.latest.Set("earlier.txt")

	res, err := f.orch.IngestFile(ctx, "a.txt", []byte("City: Warsaw\nBudget: 5k\nDeadline: June"))
	require.Error(t, err)
	assert.ErrorIs(t, err, embedding.ErrRequestFailed)
	assert.Equal(t, 1, res.Stored)

	latest, _ := f.latest.Get()
	assert.Equal(t, "earlier.txt", latest)

	n, err := f.store.Count(ctx, "a.txt")
	require.NoError(t, err)
	assert.Equal(t, 1, n, "records stored before the failure remain")

	assert.Equal(t, float64(1), f.metrics.IngestionErrorsTotal.Value())
	assert.Zero(t, f.metrics.IngestionsTotal.Value())
}

func TestIngest_DisabledEmbedder(t *testing.T) {
	f := newFixture(t, embedding.Disabled{Dim: 8})

	_, err := f.orch.IngestFile(context.Background(), "a.txt", []byte("City: Warsaw"))
	assert.ErrorIs(t, err, embedding.ErrUnavailable)
	_, ok := f.latest.Get()
	assert.False(t, ok)
}

func TestIngest_StoreFailure(t *testing.T) {
	emb := embedding.NewLocal(16)
	latest := state.NewLatestSource()
	orch := New(nil, emb, brokenStore{memory.New(16)}, latest, Options{})

	_, err := orch.IngestFile(context.Background(), "a.txt", []byte("City: Warsaw"))
	require.Error(t, err)
	assert.ErrorIs(t, err, vector.ErrUnavailable)
	_, ok := latest.Get()
	assert.False(t, ok)
}

func TestIngest_ZeroPairsStillReplaces(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)

	earlier := extract.New(nil).FromText("City: Warsaw")
	_, err := f.orch.Ingest(ctx, Source{ID: "report.pdf", Type: vector.SourceFile, FileType: "pdf"}, earlier)
	require.NoError(t, err)

	res, err := f.orch.IngestFile(ctx, "report.pdf", []byte("%PDF-1.4 garbage"))
	require.NoError(t, err)
	assert.Zero(t, res.Stored)
	assert.Equal(t, 1, res.Deleted)

	latest, _ := f.latest.Get()
	assert.Equal(t, "report.pdf", latest)
}

func TestIngestCMS(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)

	res, err := f.orch.IngestCMS(ctx, []byte(`{"faq":[{"q":"What is the SLA?","a":"24/7"}],"city":"Warsaw"}`))
	require.NoError(t, err)
	assert.Equal(t, CMSSource, res.Source)
	assert.Equal(t, 2, res.Stored)

	hits, err := f.store.FindExact(ctx, "city", CMSSource, 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, vector.SourceCMS, hits[0].SourceType)
	assert.Equal(t, "json", hits[0].FileType)
}

func TestIngestCMS_Malformed(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.orch.IngestCMS(context.Background(), []byte(`{"city":`))
	require.Error(t, err)
	_, ok := f.latest.Get()
	assert.False(t, ok)
}

func TestExtract_JSONFileFallsBackToText(t *testing.T) {
	f := newFixture(t, nil)

	src, pairs, err := f.orch.Extract("data.json", []byte(`{"city":"Warsaw"}`))
	require.NoError(t, err)
	assert.Equal(t, "json", src.FileType)
	require.Len(t, pairs, 1)
	assert.Equal(t, "city", pairs[0].CanonicalKey)

	_, pairs, err = f.orch.Extract("notes.json", []byte("City: Warsaw"))
	require.NoError(t, err)
	require.Len(t, pairs, 1)
	assert.Equal(t, "Warsaw", pairs[0].Value)
}

func TestIngest_RequiresSource(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.orch.IngestFile(context.Background(), "", []byte("City: Warsaw"))
	assert.ErrorIs(t, err, ErrNoSource)
	_, err = f.orch.Write(context.Background(), Source{}, nil)
	assert.ErrorIs(t, err, ErrNoSource)
}

func TestWrite_DoesNotTouchLatest(t *testing.T) {
	f := newFixture(t, nil)
	src, pairs, err := f.orch.Extract("a.txt", []byte("City: Warsaw"))
	require.NoError(t, err)

	res, err := f.orch.Write(context.Background(), src, pairs)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Stored)
	_, ok := f.latest.Get()
	assert.False(t, ok)
}

func TestIngest_ConcurrentWorkers(t *testing.T) {
	ctx := context.Background()
	emb := embedding.NewLocal(32)
	store := memory.New(32)
	orch := New(nil, emb, store, nil, Options{Concurrency: 8})

	text := ""
	for _, k := range []string{"City", "Budget", "Deadline", "Client", "Status", "Goal", "Team", "Phone"} {
		text += k + ": value of " + k + "\n"
	}
	res, err := orch.IngestFile(ctx, "wide.txt", []byte(text))
	require.NoError(t, err)
	assert.Equal(t, 8, res.Stored)

	n, err := store.Count(ctx, "wide.txt")
	require.NoError(t, err)
	assert.Equal(t, 8, n)
}
