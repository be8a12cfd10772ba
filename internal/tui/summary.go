package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// SummaryModel displays the session summary after the chat closes
type SummaryModel struct {
	session  *Session
	styles   *Styles
	width    int
	height   int
	quitting bool
}

// NewSummaryModel creates a new summary screen
func NewSummaryModel(session *Session) SummaryModel {
	return SummaryModel{
		session: session,
		styles:  DefaultStyles(),
	}
}

// Init implements tea.Model
func (m SummaryModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model
func (m SummaryModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "enter", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		}
	}

	return m, nil
}

// View implements tea.Model
func (m SummaryModel) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(m.styles.Title.Render("Session Summary"))
	b.WriteString("\n\n")

	if len(m.session.Ingested) > 0 {
		b.WriteString(m.styles.Subtitle.Render("Loaded files"))
		b.WriteString("\n")
		for _, r := range m.session.Ingested {
			fmt.Fprintf(&b, "  %-30s %d pairs\n", r.Source, r.Stored)
		}
		b.WriteString("\n")
	}

	b.WriteString(m.renderStats(m.session.Stats()))
	b.WriteString("\n")

	if failed := m.failures(); failed != "" {
		b.WriteString(m.styles.Subtitle.Render("Failed questions"))
		b.WriteString("\n")
		b.WriteString(failed)
		b.WriteString("\n")
	}

	b.WriteString(m.styles.Help.Render("Press enter to exit"))
	return b.String()
}

func (m SummaryModel) renderStats(st Stats) string {
	var b strings.Builder
	b.WriteString(m.styles.Subtitle.Render("Questions"))
	b.WriteString("\n")

	count := func(color string, n int) string {
		return lipgloss.NewStyle().Foreground(lipgloss.Color(color)).Bold(true).Render(fmt.Sprintf("%d", n))
	}
	fmt.Fprintf(&b, "  Asked:          %d\n", st.Total)
	fmt.Fprintf(&b, "  Exact answers:  %s\n", count(ColorGreen, st.Exact))
	fmt.Fprintf(&b, "  Semantic:       %s\n", count(ColorBlue, st.Semantic))
	fmt.Fprintf(&b, "  No answer:      %s\n", count(ColorYellow, st.Missed))
	fmt.Fprintf(&b, "  Errors:         %s\n", count(ColorRed, st.Failed))
	return b.String()
}

func (m SummaryModel) failures() string {
	var b strings.Builder
	for _, e := range m.session.Exchanges {
		if e.Err == nil {
			continue
		}
		fmt.Fprintf(&b, "  %s %s\n", m.styles.StatusFailed.Render("error"), e.Query)
	}
	return b.String()
}
