package temporal

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/mocks"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/testsuite"

	"github.com/efebarandurmaz/docqa/internal/embedding"
	"github.com/efebarandurmaz/docqa/internal/extract"
	"github.com/efebarandurmaz/docqa/internal/ingest"
	"github.com/efebarandurmaz/docqa/internal/keys"
	"github.com/efebarandurmaz/docqa/internal/state"
	"github.com/efebarandurmaz/docqa/internal/vector"
	"github.com/efebarandurmaz/docqa/internal/vector/memory"
)

type countingEmbedder struct {
	calls atomic.Int32
	err   error
}

func (c *countingEmbedder) Embed(context.Context, string) ([]float32, error) {
	c.calls.Add(1)
	if c.err != nil {
		return nil, c.err
	}
	return []float32{1, 0, 0, 0}, nil
}

func (c *countingEmbedder) Dimension() int { return 4 }
func (c *countingEmbedder) Name() string   { return "counting" }

func briefPairs(t *testing.T) []extract.Pair {
	t.Helper()
	pairs := extract.New(keys.DefaultTable()).FromText("Budget: 120k\nCity: Warsaw\n")
	require.Len(t, pairs, 2)
	return pairs
}

func setup(t *testing.T, emb embedding.Provider) (vector.Store, *state.LatestSource) {
	t.Helper()
	store := memory.New(emb.Dimension())
	latest := state.NewLatestSource()
	SetDependencies(&Dependencies{
		Ingester: ingest.New(nil, emb, store, latest, ingest.Options{Concurrency: 1}),
	})
	t.Cleanup(func() { SetDependencies(nil) })
	return store, latest
}

func TestIngestWorkflow_StoresPairs(t *testing.T) {
	emb := &countingEmbedder{}
	store, latest := setup(t, emb)

	var suite testsuite.WorkflowTestSuite
	env := suite.NewTestWorkflowEnvironment()
	env.RegisterActivity(WriteActivity)

	src := ingest.Source{ID: "brief.txt", Type: vector.SourceFile, FileType: "txt"}
	env.ExecuteWorkflow(IngestWorkflow, IngestInput{Source: src, Pairs: briefPairs(t)})

	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var res ingest.Result
	require.NoError(t, env.GetWorkflowResult(&res))
	assert.Equal(t, "brief.txt", res.Source)
	assert.Equal(t, 2, res.Stored)

	n, err := store.Count(context.Background(), "brief.txt")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, ok := latest.Get()
	assert.False(t, ok, "the activity must not mark the latest source")
}

func TestIngestWorkflow_FailureIsNotRetried(t *testing.T) {
	emb := &countingEmbedder{err: fmt.Errorf("%w: status 500", embedding.ErrRequestFailed)}
	setup(t, emb)

	var suite testsuite.WorkflowTestSuite
	env := suite.NewTestWorkflowEnvironment()
	env.RegisterActivity(WriteActivity)

	src := ingest.Source{ID: "brief.txt", Type: vector.SourceFile}
	env.ExecuteWorkflow(IngestWorkflow, IngestInput{Source: src, Pairs: briefPairs(t)[:1]})

	require.True(t, env.IsWorkflowCompleted())
	err := env.GetWorkflowError()
	require.Error(t, err)
	assert.EqualValues(t, 1, emb.calls.Load())

	var appErr *temporal.ApplicationError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, ErrTypeEmbeddingFailed, appErr.Type())
	assert.ErrorIs(t, restoreError(err), embedding.ErrRequestFailed)
}

func TestWriteActivity_WithoutDependencies(t *testing.T) {
	SetDependencies(nil)
	_, err := WriteActivity(context.Background(), IngestInput{Source: ingest.Source{ID: "a.txt"}})
	require.Error(t, err)

	var appErr *temporal.ApplicationError
	require.True(t, errors.As(err, &appErr))
	assert.True(t, appErr.NonRetryable())
}

func TestErrorTypes(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{fmt.Errorf("embed: %w", embedding.ErrUnavailable), ErrTypeEmbeddingUnavailable},
		{fmt.Errorf("embed: %w", embedding.ErrRequestFailed), ErrTypeEmbeddingFailed},
		{vector.Unavailable("upsert", errors.New("refused")), ErrTypeStoreUnavailable},
		{ingest.ErrNoSource, ErrTypeInvalidInput},
		{errors.New("boom"), ErrTypeIngestFailed},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, errorType(tt.err))
		})
	}
}

func TestRestoreError(t *testing.T) {
	wrapped := temporal.NewNonRetryableApplicationError("store down", ErrTypeStoreUnavailable, nil)
	assert.ErrorIs(t, restoreError(wrapped), vector.ErrUnavailable)

	other := errors.New("timeout")
	assert.Same(t, other, restoreError(other))

	unknown := temporal.NewApplicationError("odd", ErrTypeIngestFailed)
	assert.Equal(t, unknown, restoreError(unknown))
}

func TestDispatcher_SetsLatestOnSuccess(t *testing.T) {
	c := &mocks.Client{}
	run := &mocks.WorkflowRun{}
	c.On("ExecuteWorkflow", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(run, nil)
	run.On("Get", mock.Anything, mock.Anything).Return(nil).Run(func(args mock.Arguments) {
		out := args.Get(1).(*ingest.Result)
		*out = ingest.Result{Source: "brief.txt", Pairs: 2, Stored: 2}
	})

	latest := state.NewLatestSource()
	d := NewDispatcher(c, "docqa-ingest", latest, nil)
	res, err := d.Ingest(context.Background(), ingest.Source{ID: "brief.txt"}, briefPairs(t))
	require.NoError(t, err)
	assert.Equal(t, 2, res.Stored)

	got, ok := latest.Get()
	require.True(t, ok)
	assert.Equal(t, "brief.txt", got)
	c.AssertExpectations(t)
}

func TestDispatcher_FailureKeepsLatest(t *testing.T) {
	c := &mocks.Client{}
	run := &mocks.WorkflowRun{}
	c.On("ExecuteWorkflow", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(run, nil)
	run.On("Get", mock.Anything, mock.Anything).Return(
		temporal.NewNonRetryableApplicationError("no key", ErrTypeEmbeddingUnavailable, nil))

	latest := state.NewLatestSource()
	latest.Set("old.txt")
	d := NewDispatcher(c, "docqa-ingest", latest, nil)
	_, err := d.Ingest(context.Background(), ingest.Source{ID: "new.txt"}, briefPairs(t))
	assert.ErrorIs(t, err, embedding.ErrUnavailable)

	got, _ := latest.Get()
	assert.Equal(t, "old.txt", got)
}

func TestDispatcher_RequiresSource(t *testing.T) {
	d := NewDispatcher(&mocks.Client{}, "q", nil, nil)
	_, err := d.Ingest(context.Background(), ingest.Source{}, nil)
	assert.ErrorIs(t, err, ingest.ErrNoSource)
}
