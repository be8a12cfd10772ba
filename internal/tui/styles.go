package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/efebarandurmaz/docqa/internal/resolve"
)

// Color constants matching the dark terminal theme
const (
	ColorBg     = "#0d1117"
	ColorBorder = "#30363d"
	ColorBlue   = "#58a6ff"
	ColorGreen  = "#3fb950"
	ColorRed    = "#f85149"
	ColorYellow = "#d29922"
	ColorGray   = "#8b949e"
	ColorText   = "#c9d1d9"
	ColorBright = "#f0f6fc"
)

// Styles holds all lipgloss styles for the TUI
type Styles struct {
	Title    lipgloss.Style
	Subtitle lipgloss.Style
	Help     lipgloss.Style

	// Conversation
	Prompt   lipgloss.Style
	Question lipgloss.Style
	Answer   lipgloss.Style
	Source   lipgloss.Style
	Error    lipgloss.Style

	// Status badges
	StatusFound   lipgloss.Style
	StatusMissed  lipgloss.Style
	StatusFailed  lipgloss.Style
	StatusPending lipgloss.Style

	Border  lipgloss.Style
	Spinner lipgloss.Style
}

func badge(bg string) lipgloss.Style {
	return lipgloss.NewStyle().
		Background(lipgloss.Color(bg)).
		Foreground(lipgloss.Color(ColorBg)).
		Padding(0, 1).
		Bold(true)
}

// DefaultStyles creates the default style set
func DefaultStyles() *Styles {
	return &Styles{
		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color(ColorBright)).
			MarginBottom(1),

		Subtitle: lipgloss.NewStyle().
			Foreground(lipgloss.Color(ColorText)),

		Help: lipgloss.NewStyle().
			Foreground(lipgloss.Color(ColorGray)).
			Italic(true),

		Prompt: lipgloss.NewStyle().
			Foreground(lipgloss.Color(ColorBlue)).
			Bold(true),

		Question: lipgloss.NewStyle().
			Foreground(lipgloss.Color(ColorBright)),

		Answer: lipgloss.NewStyle().
			Foreground(lipgloss.Color(ColorText)).
			PaddingLeft(2),

		Source: lipgloss.NewStyle().
			Foreground(lipgloss.Color(ColorGray)),

		Error: lipgloss.NewStyle().
			Foreground(lipgloss.Color(ColorRed)).
			PaddingLeft(2),

		StatusFound:   badge(ColorGreen),
		StatusMissed:  badge(ColorYellow),
		StatusFailed:  badge(ColorRed),
		StatusPending: badge(ColorGray),

		Border: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color(ColorBorder)).
			Padding(0, 1),

		Spinner: lipgloss.NewStyle().
			Foreground(lipgloss.Color(ColorBlue)),
	}
}

// StatusBadge returns the badge style for a resolver status.
// Green for answers, yellow for misses.
func (s *Styles) StatusBadge(status resolve.Status) lipgloss.Style {
	if status.Found() {
		return s.StatusFound
	}
	return s.StatusMissed
}
