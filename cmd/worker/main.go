package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/efebarandurmaz/docqa/internal/app"
	"github.com/efebarandurmaz/docqa/internal/config"
	"github.com/efebarandurmaz/docqa/internal/observability"
	temporalmod "github.com/efebarandurmaz/docqa/internal/temporal"
)

func main() {
	configPath := flag.String("config", "configs/docqa.yaml", "Config file path")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("config", "error", err)
		os.Exit(1)
	}
	logger := observability.NewLogger(observability.LogConfig{Level: cfg.Log.Level, Format: cfg.Log.Format})
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("worker failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx := context.Background()
	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := a.Close(closeCtx); err != nil {
			logger.Warn("shutdown", "error", err)
		}
	}()

	temporalmod.SetDependencies(&temporalmod.Dependencies{Ingester: a.Ingester})

	c, err := temporalmod.Dial(cfg.Temporal, logger)
	if err != nil {
		return err
	}
	defer c.Close()

	w, err := temporalmod.StartWorker(c, cfg.Temporal.TaskQueue)
	if err != nil {
		return err
	}

	logger.Info("Worker started",
		"task_queue", cfg.Temporal.TaskQueue,
		"embedding", a.Embedder.Name(),
		"vector_backend", cfg.Vector.Backend,
	)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	w.Stop()
	logger.Info("Worker stopped")
	return nil
}
