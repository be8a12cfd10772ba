package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Embedding EmbeddingConfig `mapstructure:"embedding"`
	Vector    VectorConfig    `mapstructure:"vector"`
	Ingest    IngestConfig    `mapstructure:"ingest"`
	Resolver  ResolverConfig  `mapstructure:"resolver"`
	Aliases   AliasesConfig   `mapstructure:"aliases"`
	Temporal  TemporalConfig  `mapstructure:"temporal"`
	Tracing   TracingConfig   `mapstructure:"tracing"`
	Log       LogConfig       `mapstructure:"log"`
}

type ServerConfig struct {
	Addr           string        `mapstructure:"addr"`
	CORSOrigins    []string      `mapstructure:"cors_origins"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	MaxUploadBytes int64         `mapstructure:"max_upload_bytes"`
}

type EmbeddingConfig struct {
	Provider          string        `mapstructure:"provider"`
	APIKey            string        `mapstructure:"api_key"`
	Model             string        `mapstructure:"model"`
	BaseURL           string        `mapstructure:"base_url"`
	Dimension         int           `mapstructure:"dimension"`
	Timeout           time.Duration `mapstructure:"timeout"`
	RequestsPerMinute int           `mapstructure:"requests_per_minute"`
	MaxInputChars     int           `mapstructure:"max_input_chars"`
}

type VectorConfig struct {
	Backend    string `mapstructure:"backend"`
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	APIKey     string `mapstructure:"api_key"`
	UseTLS     bool   `mapstructure:"use_tls"`
	Collection string `mapstructure:"collection"`
}

type IngestConfig struct {
	Concurrency int `mapstructure:"concurrency"`
}

type ResolverConfig struct {
	SemanticTopK   int     `mapstructure:"semantic_top_k"`
	MinScore       float64 `mapstructure:"min_score"`
	// SemanticGlobal retries a semantic search that missed in the latest
	// source across all sources.
	SemanticGlobal bool    `mapstructure:"semantic_global"`
}

// AliasesConfig points at an optional YAML overlay for the key table.
type AliasesConfig struct {
	File string `mapstructure:"file"`
}

type TemporalConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Host      string `mapstructure:"host"`
	Namespace string `mapstructure:"namespace"`
	TaskQueue string `mapstructure:"task_queue"`
}

type TracingConfig struct {
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	SampleRate   float64 `mapstructure:"sample_rate"`
	Environment  string  `mapstructure:"environment"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// envAliases maps config keys to environment variables honoured in
// addition to the DOCQA_ ones.
var envAliases = map[string]string{
	"embedding.api_key": "OPENAI_API_KEY",
	"embedding.model":   "OPENAI_EMBED_MODEL",
	"vector.api_key":    "QDRANT_API_KEY",
	"vector.collection": "QDRANT_COLLECTION",
	"vector.host":       "QDRANT_HOST",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8000")
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("server.request_timeout", 30*time.Second)
	v.SetDefault("server.max_upload_bytes", 20<<20)

	v.SetDefault("embedding.provider", "openai")
	v.SetDefault("embedding.api_key", "")
	v.SetDefault("embedding.model", "text-embedding-3-small")
	v.SetDefault("embedding.base_url", "")
	v.SetDefault("embedding.dimension", 1536)
	v.SetDefault("embedding.timeout", 30*time.Second)
	v.SetDefault("embedding.requests_per_minute", 0)
	v.SetDefault("embedding.max_input_chars", 15000)

	v.SetDefault("vector.backend", "qdrant")
	v.SetDefault("vector.host", "localhost")
	v.SetDefault("vector.port", 6334)
	v.SetDefault("vector.api_key", "")
	v.SetDefault("vector.use_tls", false)
	v.SetDefault("vector.collection", "documents")

	v.SetDefault("ingest.concurrency", 4)
	v.SetDefault("resolver.semantic_top_k", 3)
	v.SetDefault("resolver.min_score", 0.0)
	v.SetDefault("resolver.semantic_global", false)
	v.SetDefault("aliases.file", "")

	v.SetDefault("temporal.enabled", false)
	v.SetDefault("temporal.host", "localhost:7233")
	v.SetDefault("temporal.namespace", "default")
	v.SetDefault("temporal.task_queue", "docqa-ingest")

	v.SetDefault("tracing.otlp_endpoint", "")
	v.SetDefault("tracing.sample_rate", 1.0)
	v.SetDefault("tracing.environment", "development")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// Default returns the configuration used when no file or environment
// overrides anything.
func Default() *Config {
	cfg, err := load(viper.New(), "")
	if err != nil {
		panic(err)
	}
	return cfg
}

// Validate checks configuration for issues and returns warnings.
func (c *Config) Validate() []string {
	var warnings []string

	switch c.Embedding.Provider {
	case "", "none", "local":
	case "openai":
		if c.Embedding.APIKey == "" {
			warnings = append(warnings, "embedding provider 'openai' is configured but api_key is empty; embedding calls will fail")
		}
	default:
		warnings = append(warnings, fmt.Sprintf("unknown embedding provider '%s'", c.Embedding.Provider))
	}

	if c.Embedding.Dimension <= 0 {
		warnings = append(warnings, fmt.Sprintf("embedding dimension %d is not positive", c.Embedding.Dimension))
	}

	switch c.Vector.Backend {
	case "qdrant", "memory":
	default:
		warnings = append(warnings, fmt.Sprintf("unknown vector backend '%s'", c.Vector.Backend))
	}

	if c.Ingest.Concurrency < 0 {
		warnings = append(warnings, fmt.Sprintf("ingest concurrency %d is negative", c.Ingest.Concurrency))
	}

	if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1 {
		warnings = append(warnings, fmt.Sprintf("tracing sample_rate %.2f is outside [0.0, 1.0]", c.Tracing.SampleRate))
	}

	return warnings
}

// Load reads configuration from file and environment. A missing file is
// not an error; defaults and environment still apply.
func Load(path string) (*Config, error) {
	cfg, err := load(viper.New(), path)
	if err != nil {
		return nil, err
	}

	// Validate configuration and print warnings
	for _, warning := range cfg.Validate() {
		fmt.Fprintf(os.Stderr, "Warning: %s\n", warning)
	}
	return cfg, nil
}

func load(v *viper.Viper, path string) (*Config, error) {
	setDefaults(v)
	v.SetEnvPrefix("DOCQA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range envAliases {
		prefixed := "DOCQA_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, prefixed, env); err != nil {
			return nil, fmt.Errorf("binding %s: %w", env, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}
	return &cfg, nil
}
