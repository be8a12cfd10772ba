package temporal

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"go.temporal.io/sdk/client"
	tlog "go.temporal.io/sdk/log"
	"go.temporal.io/sdk/worker"

	"github.com/efebarandurmaz/docqa/internal/config"
	"github.com/efebarandurmaz/docqa/internal/extract"
	"github.com/efebarandurmaz/docqa/internal/ingest"
	"github.com/efebarandurmaz/docqa/internal/observability"
	"github.com/efebarandurmaz/docqa/internal/state"
)

// Dial connects to the Temporal frontend described by cfg.
func Dial(cfg config.TemporalConfig, logger *slog.Logger) (client.Client, error) {
	if logger == nil {
		logger = slog.Default()
	}
	c, err := client.Dial(client.Options{
		HostPort:  cfg.Host,
		Namespace: cfg.Namespace,
		Logger:    tlog.NewStructuredLogger(logger.With("component", "temporal-sdk")),
	})
	if err != nil {
		return nil, fmt.Errorf("temporal client: %w", err)
	}
	return c, nil
}

// StartWorker creates and starts a Temporal worker.
func StartWorker(c client.Client, taskQueue string) (worker.Worker, error) {
	w := worker.New(c, taskQueue, worker.Options{})

	w.RegisterWorkflow(IngestWorkflow)
	w.RegisterActivity(WriteActivity)

	if err := w.Start(); err != nil {
		return nil, fmt.Errorf("starting worker: %w", err)
	}
	return w, nil
}

// Dispatcher runs ingestions through IngestWorkflow and waits for the
// result. It marks the latest source of this process once a workflow
// completes successfully.
type Dispatcher struct {
	client    client.Client
	taskQueue string
	latest    *state.LatestSource
	logger    *slog.Logger
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(c client.Client, taskQueue string, latest *state.LatestSource, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		client:    c,
		taskQueue: taskQueue,
		latest:    latest,
		logger:    observability.Component(logger, "temporal"),
	}
}

// Ingest starts IngestWorkflow for src and blocks until it finishes.
func (d *Dispatcher) Ingest(ctx context.Context, src ingest.Source, pairs []extract.Pair) (ingest.Result, error) {
	if src.ID == "" {
		return ingest.Result{}, ingest.ErrNoSource
	}
	opts := client.StartWorkflowOptions{
		ID:        "ingest-" + src.ID + "-" + uuid.NewString(),
		TaskQueue: d.taskQueue,
	}
	run, err := d.client.ExecuteWorkflow(ctx, opts, IngestWorkflow, IngestInput{Source: src, Pairs: pairs})
	if err != nil {
		return ingest.Result{Source: src.ID}, fmt.Errorf("start ingestion workflow: %w", err)
	}

	var res ingest.Result
	if err := run.Get(ctx, &res); err != nil {
		d.logger.Error("ingestion workflow failed", "source", src.ID, "workflow_id", opts.ID, "error", err)
		return ingest.Result{Source: src.ID, Pairs: len(pairs)}, restoreError(err)
	}
	if d.latest != nil {
		d.latest.Set(src.ID)
	}
	d.logger.Info("ingestion workflow completed", "source", src.ID, "stored", res.Stored)
	return res, nil
}

// CheckHealth reports whether the Temporal frontend is reachable.
func CheckHealth(c client.Client) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		_, err := c.CheckHealth(ctx, &client.CheckHealthRequest{})
		return err
	}
}
