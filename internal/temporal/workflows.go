// Package temporal runs ingestion as a durable Temporal workflow.
package temporal

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/efebarandurmaz/docqa/internal/extract"
	"github.com/efebarandurmaz/docqa/internal/ingest"
)

// IngestInput holds the workflow parameters. Extraction happens before the
// workflow starts so the payload is plain data.
type IngestInput struct {
	Source ingest.Source
	Pairs  []extract.Pair
}

// IngestWorkflow replaces the stored records of one source. The write runs
// exactly once: a failed embedding or store call is reported, not retried.
func IngestWorkflow(ctx workflow.Context, input IngestInput) (*ingest.Result, error) {
	ao := workflow.ActivityOptions{
		StartToCloseTimeout: 10 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: 1,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, ao)

	logger := workflow.GetLogger(ctx)
	logger.Info("ingestion started", "source", input.Source.ID, "pairs", len(input.Pairs))

	// The activity error is returned as is so its application error type
	// stays the first one in the failure chain.
	var result ingest.Result
	if err := workflow.ExecuteActivity(ctx, WriteActivity, input).Get(ctx, &result); err != nil {
		logger.Error("ingestion failed", "source", input.Source.ID, "error", err)
		return nil, err
	}

	logger.Info("ingestion finished", "source", result.Source, "stored", result.Stored, "deleted", result.Deleted)
	return &result, nil
}
