package embedding

import (
	"fmt"
	"sort"
	"time"
)

// Config holds everything needed to create any embedding provider.
type Config struct {
	Provider  string // "openai", "local", "none"
	APIKey    string
	Model     string
	BaseURL   string // Override for self-hosted / OpenAI-compatible endpoints
	Dimension int

	Timeout           time.Duration
	RequestsPerMinute int // 0 = unlimited
	MaxInputChars     int // 0 = unbounded
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Provider:      "openai",
		Model:         "text-embedding-3-small",
		Dimension:     1536,
		Timeout:       30 * time.Second,
		MaxInputChars: 15000,
	}
}

// Constructor builds a Provider from config.
type Constructor func(cfg Config) (Provider, error)

// Factory creates Provider instances from config.
type Factory struct {
	constructors map[string]Constructor
}

// NewFactory creates a factory with the "local" provider pre-registered.
func NewFactory() *Factory {
	f := &Factory{constructors: make(map[string]Constructor)}
	f.Register("local", func(cfg Config) (Provider, error) {
		return NewLocal(cfg.Dimension), nil
	})
	return f
}

// Register adds a provider constructor under the given name.
func (f *Factory) Register(name string, ctor Constructor) {
	f.constructors[name] = ctor
}

// Create builds a Provider from config. An empty or "none" provider yields
// a Disabled provider rather than an error so the process can still
// serve exact lookups. The result is wrapped with the configured input
// bound and rate limit.
func (f *Factory) Create(cfg Config) (Provider, error) {
	if cfg.Provider == "" || cfg.Provider == "none" {
		return Disabled{Dim: cfg.Dimension, Reason: "embedding provider is none"}, nil
	}

	ctor, ok := f.constructors[cfg.Provider]
	if !ok {
		return nil, fmt.Errorf("unknown embedding provider %q, registered: %v", cfg.Provider, f.names())
	}

	p, err := ctor(cfg)
	if err != nil {
		return nil, err
	}

	p = Truncate(p, cfg.MaxInputChars)
	if cfg.RequestsPerMinute > 0 {
		p = WithRateLimit(p, &RateLimitConfig{RequestsPerMinute: cfg.RequestsPerMinute})
	}
	return p, nil
}

func (f *Factory) names() []string {
	out := make([]string, 0, len(f.constructors))
	for k := range f.constructors {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
