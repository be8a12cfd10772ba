// Package vector defines the record store behind ingestion and query
// resolution: exact lookup by canonical key and nearest-neighbor search,
// both optionally scoped to one source.
package vector

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrUnavailable wraps every backend failure.
var ErrUnavailable = errors.New("vector store unavailable")

// Unavailable wraps err as ErrUnavailable, naming the operation.
func Unavailable(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %s: %w", ErrUnavailable, op, err)
}

// Source types.
const (
	SourceFile = "file"
	SourceCMS  = "cms"
)

// Payload is everything stored next to a vector.
type Payload struct {
	Source       string    `json:"source"`
	SourceType   string    `json:"source_type"`
	FileType     string    `json:"file_type"`
	RawKey       string    `json:"raw_key"`
	CanonicalKey string    `json:"canonical_key"`
	Value        string    `json:"value"`
	DisplayText  string    `json:"display_text"`
	Sequence     int       `json:"sequence"`
	IngestedAt   time.Time `json:"ingested_at"`
}

// Record is one stored pair.
type Record struct {
	ID      string
	Vector  []float32
	Payload Payload
}

// Match is a nearest-neighbor result, most similar first.
type Match struct {
	Payload
	Score float32
}

// Store provides record storage, exact lookup and similarity search. An
// empty source argument means all sources.
type Store interface {
	// Upsert inserts or replaces records by ID.
	Upsert(ctx context.Context, records []Record) error
	// DeleteBySource removes every record of source and reports how many
	// were removed.
	DeleteBySource(ctx context.Context, source string) (int, error)
	// FindExact returns up to limit payloads whose canonical key equals
	// key, highest sequence first.
	FindExact(ctx context.Context, key, source string, limit int) ([]Payload, error)
	// Nearest returns up to limit records ordered by similarity to vec.
	Nearest(ctx context.Context, vec []float32, limit int, source string) ([]Match, error)
	// Count reports how many records source has.
	Count(ctx context.Context, source string) (int, error)
	// Health checks that the backend is reachable.
	Health(ctx context.Context) error
	// Close releases resources.
	Close() error
}

// Newer reports whether a should win over b as the answer for one key:
// higher sequence first, then the more recent ingestion.
func Newer(a, b Payload) bool {
	if a.Sequence != b.Sequence {
		return a.Sequence > b.Sequence
	}
	return a.IngestedAt.After(b.IngestedAt)
}
