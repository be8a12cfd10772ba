// Package state holds process-wide mutable state shared between ingestion
// and query resolution.
package state

import "sync"

// LatestSource remembers the most recently ingested source. The zero value
// is ready to use and reports no source.
type LatestSource struct {
	mu     sync.RWMutex
	source string
}

// NewLatestSource returns an empty LatestSource.
func NewLatestSource() *LatestSource {
	return &LatestSource{}
}

// Get returns the latest source and whether one has been recorded.
func (l *LatestSource) Get() (string, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.source, l.source != ""
}

// Set records source as the latest. An empty source is ignored.
func (l *LatestSource) Set(source string) {
	if source == "" {
		return
	}
	l.mu.Lock()
	l.source = source
	l.mu.Unlock()
}
