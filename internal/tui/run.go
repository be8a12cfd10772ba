package tui

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// RunChat starts the interactive chat, then shows the session summary.
// Returns the finished session.
func RunChat(ctx context.Context, asker Asker, session *Session, timeout time.Duration) (*Session, error) {
	chat := NewChatModel(ctx, asker, session, timeout)
	p := tea.NewProgram(chat, tea.WithAltScreen(), tea.WithContext(ctx))
	finalModel, err := p.Run()
	if err != nil {
		return nil, fmt.Errorf("TUI error: %w", err)
	}

	final := finalModel.(ChatModel)

	sp := tea.NewProgram(NewSummaryModel(final.session), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := sp.Run(); err != nil {
		return nil, fmt.Errorf("summary error: %w", err)
	}

	return final.session, nil
}

// Transcript is the JSON form of a chat session.
type Transcript struct {
	StartedAt string              `json:"started_at"`
	Files     []TranscriptFile    `json:"files,omitempty"`
	Exchanges []TranscriptMessage `json:"exchanges"`
	Summary   Stats               `json:"summary"`
}

// TranscriptFile is one file loaded before the chat.
type TranscriptFile struct {
	Source string `json:"source"`
	Stored int    `json:"stored_count"`
}

// TranscriptMessage is one question and its outcome.
type TranscriptMessage struct {
	Time   string `json:"time"`
	Query  string `json:"query"`
	Answer string `json:"answer,omitempty"`
	Source string `json:"source,omitempty"`
	Status string `json:"status,omitempty"`
	Error  string `json:"error,omitempty"`
}

// BuildTranscript converts a session into its JSON form.
func BuildTranscript(session *Session) Transcript {
	t := Transcript{
		StartedAt: session.StartedAt.UTC().Format(time.RFC3339),
		Exchanges: make([]TranscriptMessage, 0, len(session.Exchanges)),
		Summary:   session.Stats(),
	}
	for _, r := range session.Ingested {
		t.Files = append(t.Files, TranscriptFile{Source: r.Source, Stored: r.Stored})
	}
	for _, e := range session.Exchanges {
		msg := TranscriptMessage{
			Time:  e.At.UTC().Format(time.RFC3339),
			Query: e.Query,
		}
		if e.Err != nil {
			msg.Error = e.Err.Error()
		} else {
			msg.Answer = e.Answer.Text
			msg.Source = e.Answer.Source
			msg.Status = string(e.Answer.Status)
		}
		t.Exchanges = append(t.Exchanges, msg)
	}
	return t
}

// SaveTranscript writes the session as JSON.
func SaveTranscript(session *Session, outputPath string) error {
	data, err := json.MarshalIndent(BuildTranscript(session), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal transcript: %w", err)
	}

	if err := os.WriteFile(outputPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write transcript: %w", err)
	}

	return nil
}
