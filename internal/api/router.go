// Package api exposes ingestion and question answering over HTTP.
package api

import (
	"context"
	"log/slog"
	"slices"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/efebarandurmaz/docqa/internal/extract"
	"github.com/efebarandurmaz/docqa/internal/ingest"
	"github.com/efebarandurmaz/docqa/internal/observability"
	"github.com/efebarandurmaz/docqa/internal/resolve"
	"github.com/efebarandurmaz/docqa/internal/server"
)

// Ingester stores the pairs of one source. Both the in-process
// orchestrator and the Temporal dispatcher satisfy it.
type Ingester interface {
	Ingest(ctx context.Context, src ingest.Source, pairs []extract.Pair) (ingest.Result, error)
}

// Extractor turns request bodies into pairs.
type Extractor interface {
	Extract(filename string, data []byte) (ingest.Source, []extract.Pair, error)
	ExtractCMS(data []byte) (ingest.Source, []extract.Pair, error)
}

// Resolver answers questions.
type Resolver interface {
	Resolve(ctx context.Context, query string) (resolve.Answer, error)
	ResolveIn(ctx context.Context, query, source string) (resolve.Answer, error)
}

// RouterConfig wires the handlers.
type RouterConfig struct {
	Extractor Extractor
	Ingester  Ingester
	Resolver  Resolver
	Health    *server.HealthServer
	Metrics   *observability.DocQAMetrics

	ServiceName    string
	CORSOrigins    []string
	RequestTimeout time.Duration
	MaxUploadBytes int64
	Logger         *slog.Logger
}

// NewRouter builds the gin engine serving the docqa API.
func NewRouter(cfg RouterConfig) *gin.Engine {
	if cfg.ServiceName == "" {
		cfg.ServiceName = "docqa"
	}
	logger := observability.Component(cfg.Logger, "api")

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(cfg.ServiceName))
	router.Use(accessLog(logger))
	router.Use(cors.New(corsConfig(cfg.CORSOrigins)))

	h := &Handler{
		extractor: cfg.Extractor,
		ingester:  cfg.Ingester,
		resolver:  cfg.Resolver,
		maxUpload: cfg.MaxUploadBytes,
		logger:    logger,
	}

	routes := router.Group("/")
	routes.Use(timeout(cfg.RequestTimeout))
	{
		routes.POST("/upload", h.Upload)
		routes.POST("/cms", h.CMS)
		routes.POST("/query", h.Query)
		routes.GET("/query", h.QueryGet)
	}

	if cfg.Health != nil {
		health := gin.WrapH(cfg.Health.Handler())
		for _, path := range []string{"/health", "/ready", "/live", "/healthz", "/readyz", "/livez"} {
			router.GET(path, health)
		}
	}
	if cfg.Metrics != nil {
		router.GET("/metrics", gin.WrapH(cfg.Metrics.Handler()))
	}

	return router
}

func corsConfig(origins []string) cors.Config {
	c := cors.Config{
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Authorization", "X-Requested-With"},
		MaxAge:       12 * time.Hour,
	}
	if len(origins) == 0 || slices.Contains(origins, "*") {
		c.AllowAllOrigins = true
	} else {
		c.AllowOrigins = origins
	}
	return c
}

func timeout(d time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if d <= 0 {
			c.Next()
			return
		}
		ctx, cancel := context.WithTimeout(c.Request.Context(), d)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func accessLog(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}
