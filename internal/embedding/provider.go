// Package embedding turns text into fixed-length vectors.
package embedding

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrUnavailable means no embedding backend is configured, usually a
	// missing credential.
	ErrUnavailable = errors.New("embedding provider unavailable")
	// ErrRequestFailed means the backend was reached but did not return a
	// usable vector.
	ErrRequestFailed = errors.New("embedding request failed")
)

// Provider is the interface all embedding backends implement.
type Provider interface {
	// Embed returns the vector for one text. Every vector a provider
	// returns has length Dimension().
	Embed(ctx context.Context, text string) ([]float32, error)
	// Dimension is the vector length.
	Dimension() int
	// Name returns the backend identifier (e.g. "openai", "local").
	Name() string
}

// Disabled is the provider used when embeddings are switched off or no
// credential is configured. Every call fails with ErrUnavailable.
type Disabled struct {
	Dim    int
	Reason string
}

func (d Disabled) Embed(context.Context, string) ([]float32, error) {
	if d.Reason != "" {
		return nil, fmt.Errorf("%w: %s", ErrUnavailable, d.Reason)
	}
	return nil, ErrUnavailable
}

func (d Disabled) Dimension() int { return d.Dim }
func (d Disabled) Name() string   { return "none" }

// Truncate bounds the input of a provider to maxChars runes.
func Truncate(p Provider, maxChars int) Provider {
	if p == nil || maxChars <= 0 {
		return p
	}
	return &truncating{inner: p, max: maxChars}
}

type truncating struct {
	inner Provider
	max   int
}

func (t *truncating) Embed(ctx context.Context, text string) ([]float32, error) {
	if len(text) > t.max {
		if r := []rune(text); len(r) > t.max {
			text = string(r[:t.max])
		}
	}
	return t.inner.Embed(ctx, text)
}

func (t *truncating) Dimension() int { return t.inner.Dimension() }
func (t *truncating) Name() string   { return t.inner.Name() }
