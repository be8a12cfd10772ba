package main

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/efebarandurmaz/docqa/internal/api"
	"github.com/efebarandurmaz/docqa/internal/app"
	"github.com/efebarandurmaz/docqa/internal/server"
	"github.com/efebarandurmaz/docqa/internal/temporal"
)

func newServeCmd(c *cli) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr != "" {
				c.cfg.Server.Addr = addr
			}
			return c.serve(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides server.addr)")
	return cmd
}

func (c *cli) serve(ctx context.Context) error {
	cfg := c.cfg
	a, err := app.New(ctx, cfg, c.logger)
	if err != nil {
		return err
	}

	gs := server.NewGracefulServer(
		&server.HealthConfig{Version: app.Version},
		&server.ShutdownConfig{Timeout: 30 * time.Second, Logger: c.logger},
	)
	gs.Health.RegisterCheck("vector_store", server.VectorStoreHealthChecker(cfg.Vector.Backend, a.Store.Health))
	gs.Health.RegisterCheck("embedding", server.EmbeddingHealthChecker(a.Embedder.Name(), a.Embedder.Dimension()))
	gs.Shutdown.Register(server.TracingShutdownHook(a.Tracer.Shutdown))
	gs.Shutdown.Register(server.VectorStoreShutdownHook(a.Store.Close))

	var ingester api.Ingester = a.Ingester
	if cfg.Temporal.Enabled {
		tc, err := temporal.Dial(cfg.Temporal, c.logger)
		if err != nil {
			return err
		}
		ingester = temporal.NewDispatcher(tc, cfg.Temporal.TaskQueue, a.Latest, c.logger)
		gs.Health.RegisterCheck("temporal", server.TemporalHealthChecker(temporal.CheckHealth(tc)))
		gs.RegisterHook("temporal-client", 30, func(context.Context) error {
			tc.Close()
			return nil
		})
		c.logger.Info("ingestion dispatched to temporal", "task_queue", cfg.Temporal.TaskQueue)
	}

	if cfg.Log.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := api.NewRouter(api.RouterConfig{
		Extractor:      a.Ingester,
		Ingester:       ingester,
		Resolver:       a.Resolver,
		Health:         gs.Health,
		Metrics:        a.Metrics,
		CORSOrigins:    cfg.Server.CORSOrigins,
		RequestTimeout: cfg.Server.RequestTimeout,
		MaxUploadBytes: cfg.Server.MaxUploadBytes,
		Logger:         c.logger,
	})

	// Stop on context cancellation as well as on signals.
	go func() {
		<-ctx.Done()
		gs.Shutdown.Shutdown()
	}()

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	c.logger.Info("Starting docqa API", "addr", cfg.Server.Addr, "version", app.Version)
	if err := gs.ListenAndServe(srv); err != nil {
		return err
	}
	c.logger.Info("docqa API stopped")
	return nil
}
