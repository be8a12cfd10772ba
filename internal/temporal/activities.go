package temporal

import (
	"context"
	"errors"
	"fmt"

	"go.temporal.io/sdk/temporal"

	"github.com/efebarandurmaz/docqa/internal/embedding"
	"github.com/efebarandurmaz/docqa/internal/ingest"
	"github.com/efebarandurmaz/docqa/internal/vector"
)

// Application error types carried across the workflow boundary.
const (
	ErrTypeEmbeddingUnavailable = "EmbeddingUnavailable"
	ErrTypeEmbeddingFailed      = "EmbeddingRequestFailed"
	ErrTypeStoreUnavailable     = "VectorStoreUnavailable"
	ErrTypeInvalidInput         = "InvalidInput"
	ErrTypeIngestFailed         = "IngestFailed"
)

// Dependencies holds shared resources injected into activities.
type Dependencies struct {
	Ingester *ingest.Orchestrator
}

var deps *Dependencies

// SetDependencies injects shared resources (called during worker setup).
func SetDependencies(d *Dependencies) {
	deps = d
}

// WriteActivity wipes the source's records and stores the new pairs. It
// leaves the latest source alone; the dispatching process owns that.
func WriteActivity(ctx context.Context, input IngestInput) (ingest.Result, error) {
	if deps == nil || deps.Ingester == nil {
		return ingest.Result{}, temporal.NewNonRetryableApplicationError(
			"worker has no ingester configured", ErrTypeIngestFailed, nil)
	}
	res, err := deps.Ingester.Write(ctx, input.Source, input.Pairs)
	if err != nil {
		return res, temporal.NewNonRetryableApplicationError(err.Error(), errorType(err), err, res)
	}
	return res, nil
}

func errorType(err error) string {
	switch {
	case errors.Is(err, embedding.ErrUnavailable):
		return ErrTypeEmbeddingUnavailable
	case errors.Is(err, embedding.ErrRequestFailed):
		return ErrTypeEmbeddingFailed
	case errors.Is(err, vector.ErrUnavailable):
		return ErrTypeStoreUnavailable
	case errors.Is(err, ingest.ErrNoSource):
		return ErrTypeInvalidInput
	default:
		return ErrTypeIngestFailed
	}
}

// restoreError maps a workflow failure back onto the sentinel errors so
// callers can classify it with errors.Is.
func restoreError(err error) error {
	var appErr *temporal.ApplicationError
	if !errors.As(err, &appErr) {
		return err
	}
	var sentinel error
	switch appErr.Type() {
	case ErrTypeEmbeddingUnavailable:
		sentinel = embedding.ErrUnavailable
	case ErrTypeEmbeddingFailed:
		sentinel = embedding.ErrRequestFailed
	case ErrTypeStoreUnavailable:
		sentinel = vector.ErrUnavailable
	case ErrTypeInvalidInput:
		sentinel = ingest.ErrNoSource
	default:
		return err
	}
	return fmt.Errorf("%w: %s", sentinel, appErr.Error())
}
