// Package app assembles the docqa components from configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/efebarandurmaz/docqa/internal/config"
	"github.com/efebarandurmaz/docqa/internal/embedding"
	"github.com/efebarandurmaz/docqa/internal/embedding/openai"
	"github.com/efebarandurmaz/docqa/internal/extract"
	"github.com/efebarandurmaz/docqa/internal/ingest"
	"github.com/efebarandurmaz/docqa/internal/keys"
	"github.com/efebarandurmaz/docqa/internal/observability"
	"github.com/efebarandurmaz/docqa/internal/resolve"
	"github.com/efebarandurmaz/docqa/internal/state"
	"github.com/efebarandurmaz/docqa/internal/vector"
	"github.com/efebarandurmaz/docqa/internal/vector/memory"
	"github.com/efebarandurmaz/docqa/internal/vector/qdrant"
)

// App holds the wired components of one process.
type App struct {
	Config    *config.Config
	Keys      *keys.Table
	Extractor *extract.Extractor
	Embedder  embedding.Provider
	Store     vector.Store
	Latest    *state.LatestSource
	Ingester  *ingest.Orchestrator
	Resolver  *resolve.Resolver
	Metrics   *observability.DocQAMetrics
	Tracer    *observability.TracerProvider
	Logger    *slog.Logger
}

// Option adjusts how New wires the application.
type Option func(*options)

type options struct {
	store    vector.Store
	embedder embedding.Provider
}

// WithStore replaces the configured vector backend.
func WithStore(s vector.Store) Option {
	return func(o *options) { o.store = s }
}

// WithEmbedder replaces the configured embedding provider.
func WithEmbedder(p embedding.Provider) Option {
	return func(o *options) { o.embedder = p }
}

// New builds every component described by cfg.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts ...Option) (*App, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if logger == nil {
		logger = slog.Default()
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	a := &App{
		Config:  cfg,
		Latest:  state.NewLatestSource(),
		Metrics: observability.NewDocQAMetrics(),
		Logger:  logger,
	}

	tp, err := observability.InitTracing(ctx, &observability.TracingConfig{
		ServiceName:    "docqa",
		ServiceVersion: Version,
		Environment:    cfg.Tracing.Environment,
		OTLPEndpoint:   cfg.Tracing.OTLPEndpoint,
		SampleRate:     cfg.Tracing.SampleRate,
	})
	if err != nil {
		return nil, fmt.Errorf("tracing: %w", err)
	}
	a.Tracer = tp

	a.Keys, err = keys.LoadTable(cfg.Aliases.File)
	if err != nil {
		return nil, fmt.Errorf("aliases: %w", err)
	}
	a.Extractor = extract.New(a.Keys)

	emb := o.embedder
	if emb == nil {
		emb, err = NewEmbedder(cfg.Embedding)
		if err != nil {
			return nil, err
		}
	}
	a.Embedder = embedding.Traced(emb, a.Metrics)

	store := o.store
	if store == nil {
		store, err = NewStore(ctx, cfg.Vector, a.Embedder.Dimension(), logger)
		if err != nil {
			return nil, err
		}
	}
	a.Store = vector.Traced(store)

	a.Ingester = ingest.New(a.Extractor, a.Embedder, a.Store, a.Latest, ingest.Options{
		Concurrency: cfg.Ingest.Concurrency,
		Metrics:     a.Metrics,
		Logger:      logger,
	})
	a.Resolver = resolve.New(a.Keys, a.Store, a.Embedder, a.Latest, resolve.Options{
		SemanticTopK:   cfg.Resolver.SemanticTopK,
		MinScore:       float32(cfg.Resolver.MinScore),
		SemanticGlobal: cfg.Resolver.SemanticGlobal,
		Metrics:        a.Metrics,
		Logger:         logger,
	})

	logger.Info("components ready",
		"embedding", a.Embedder.Name(),
		"dimension", a.Embedder.Dimension(),
		"vector_backend", cfg.Vector.Backend,
		"aliases", a.Keys.Len(),
	)
	return a, nil
}

// Version is reported in traces and health responses.
var Version = "0.1.0"

// NewEmbedder creates the configured embedding provider.
func NewEmbedder(cfg config.EmbeddingConfig) (embedding.Provider, error) {
	f := embedding.NewFactory()
	openai.Register(f)
	p, err := f.Create(embedding.Config{
		Provider:          cfg.Provider,
		APIKey:            cfg.APIKey,
		Model:             cfg.Model,
		BaseURL:           cfg.BaseURL,
		Dimension:         cfg.Dimension,
		Timeout:           cfg.Timeout,
		RequestsPerMinute: cfg.RequestsPerMinute,
		MaxInputChars:     cfg.MaxInputChars,
	})
	if err != nil {
		return nil, fmt.Errorf("embedding: %w", err)
	}
	return p, nil
}

// NewStore creates the configured vector backend. A Qdrant collection that
// cannot be bootstrapped is logged, not fatal; the store reports itself
// unavailable until Qdrant is reachable.
func NewStore(ctx context.Context, cfg config.VectorConfig, dim int, logger *slog.Logger) (vector.Store, error) {
	switch cfg.Backend {
	case "memory":
		return memory.New(dim), nil
	case "qdrant", "":
		s, err := qdrant.New(qdrant.Config{
			Host:       cfg.Host,
			Port:       cfg.Port,
			APIKey:     cfg.APIKey,
			UseTLS:     cfg.UseTLS,
			Collection: cfg.Collection,
			Dimension:  dim,
		}, logger)
		if err != nil {
			return nil, err
		}
		bootCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		if err := s.EnsureCollection(bootCtx); err != nil {
			logger.Warn("vector collection bootstrap failed", "collection", cfg.Collection, "error", err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown vector backend %q", cfg.Backend)
	}
}

// Close releases the store and flushes traces.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	if a.Store != nil {
		errs = append(errs, a.Store.Close())
	}
	if a.Tracer != nil {
		errs = append(errs, a.Tracer.Shutdown(ctx))
	}
	return errors.Join(errs...)
}
