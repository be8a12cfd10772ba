// Package tui implements the interactive chat client.
package tui

import (
	"time"

	"github.com/efebarandurmaz/docqa/internal/ingest"
	"github.com/efebarandurmaz/docqa/internal/resolve"
)

// Exchange is one question and its outcome.
type Exchange struct {
	Query  string
	Answer resolve.Answer
	Err    error
	At     time.Time
}

// Outcome classifies an exchange for the summary.
func (e *Exchange) Outcome() string {
	switch {
	case e.Err != nil:
		return "failed"
	case e.Answer.Status.Found():
		return "answered"
	default:
		return "missed"
	}
}

// Session holds one chat conversation.
type Session struct {
	Ingested  []ingest.Result
	Exchanges []*Exchange
	StartedAt time.Time
}

// NewSession creates a session. ingested lists the files loaded before the
// chat opened.
func NewSession(ingested []ingest.Result) *Session {
	return &Session{
		Ingested:  ingested,
		StartedAt: time.Now(),
	}
}

// Add records an exchange.
func (s *Session) Add(e *Exchange) {
	if e.At.IsZero() {
		e.At = time.Now()
	}
	s.Exchanges = append(s.Exchanges, e)
}

// Stats counts exchanges per outcome.
type Stats struct {
	Total    int `json:"total"`
	Answered int `json:"answered"`
	Exact    int `json:"exact"`
	Semantic int `json:"semantic"`
	Missed   int `json:"missed"`
	Failed   int `json:"failed"`
}

// Stats summarizes the session.
func (s *Session) Stats() Stats {
	st := Stats{Total: len(s.Exchanges)}
	for _, e := range s.Exchanges {
		switch e.Outcome() {
		case "failed":
			st.Failed++
		case "answered":
			st.Answered++
			if e.Answer.Status == resolve.StatusExact {
				st.Exact++
			} else {
				st.Semantic++
			}
		default:
			st.Missed++
		}
	}
	return st
}
