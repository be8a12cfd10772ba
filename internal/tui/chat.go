package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/efebarandurmaz/docqa/internal/resolve"
)

// Asker answers one question.
type Asker interface {
	Resolve(ctx context.Context, query string) (resolve.Answer, error)
}

// answerMsg carries a finished query back into Update.
type answerMsg struct {
	exchange *Exchange
}

type keyMap struct {
	Ask      key.Binding
	PageUp   key.Binding
	PageDown key.Binding
	Clear    key.Binding
	Quit     key.Binding
}

func (km keyMap) ShortHelp() []key.Binding {
	return []key.Binding{km.Ask, km.PageUp, km.PageDown, km.Clear, km.Quit}
}

func (km keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{km.Ask, km.Clear},
		{km.PageUp, km.PageDown, km.Quit},
	}
}

func newKeyMap() keyMap {
	return keyMap{
		Ask: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "ask"),
		),
		PageUp: key.NewBinding(
			key.WithKeys("pgup"),
			key.WithHelp("pgup", "scroll up"),
		),
		PageDown: key.NewBinding(
			key.WithKeys("pgdown"),
			key.WithHelp("pgdn", "scroll down"),
		),
		Clear: key.NewBinding(
			key.WithKeys("ctrl+l"),
			key.WithHelp("ctrl+l", "clear"),
		),
		Quit: key.NewBinding(
			key.WithKeys("esc", "ctrl+c"),
			key.WithHelp("esc", "quit"),
		),
	}
}

// ChatModel is the conversation screen.
type ChatModel struct {
	ctx      context.Context
	asker    Asker
	timeout  time.Duration
	session  *Session
	styles   *Styles
	viewport viewport.Model
	input    textinput.Model
	spinner  spinner.Model
	help     help.Model
	keys     keyMap
	pending  string // query in flight
	shown    int    // exchanges already rendered before the last clear
	width    int
	height   int
	quitting bool
}

// NewChatModel creates the chat screen. Each query runs with timeout.
func NewChatModel(ctx context.Context, asker Asker, session *Session, timeout time.Duration) ChatModel {
	ti := textinput.New()
	ti.Placeholder = "Ask about the documents..."
	ti.Prompt = "› "
	ti.CharLimit = 500
	ti.Width = 60
	ti.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	if session == nil {
		session = NewSession(nil)
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	styles := DefaultStyles()
	sp.Style = styles.Spinner

	m := ChatModel{
		ctx:      ctx,
		asker:    asker,
		timeout:  timeout,
		session:  session,
		styles:   styles,
		viewport: viewport.New(80, 18),
		input:    ti,
		spinner:  sp,
		help:     help.New(),
		keys:     newKeyMap(),
		width:    80,
		height:   24,
	}
	m.viewport.SetContent(m.transcript())
	return m
}

// Session returns the conversation so far.
func (m ChatModel) Session() *Session {
	return m.session
}

func (m ChatModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m ChatModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.viewport.Width = msg.Width
		m.viewport.Height = max(msg.Height-6, 3)
		m.input.Width = max(msg.Width-4, 10)
		m.viewport.SetContent(m.transcript())
		return m, nil

	case answerMsg:
		m.session.Add(msg.exchange)
		m.pending = ""
		m.viewport.SetContent(m.transcript())
		m.viewport.GotoBottom()
		return m, nil

	case spinner.TickMsg:
		if m.pending == "" {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.quitting = true
			return m, tea.Quit
		case key.Matches(msg, m.keys.Clear):
			m.shown = len(m.session.Exchanges)
			m.viewport.SetContent(m.transcript())
			return m, nil
		case key.Matches(msg, m.keys.PageUp), key.Matches(msg, m.keys.PageDown):
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		case key.Matches(msg, m.keys.Ask):
			query := strings.TrimSpace(m.input.Value())
			if query == "" || m.pending != "" {
				return m, nil
			}
			m.pending = query
			m.input.Reset()
			m.viewport.SetContent(m.transcript())
			m.viewport.GotoBottom()
			return m, tea.Batch(m.ask(query), m.spinner.Tick)
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// ask resolves query off the update loop.
func (m ChatModel) ask(query string) tea.Cmd {
	ctx, asker, timeout := m.ctx, m.asker, m.timeout
	return func() tea.Msg {
		if ctx == nil {
			ctx = context.Background()
		}
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		ans, err := asker.Resolve(ctx, query)
		return answerMsg{exchange: &Exchange{Query: query, Answer: ans, Err: err, At: time.Now()}}
	}
}

func (m ChatModel) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(m.styles.Title.Render("docqa"))
	b.WriteString(" ")
	b.WriteString(m.styles.Source.Render(m.loadedLine()))
	b.WriteString("\n")
	b.WriteString(m.viewport.View())
	b.WriteString("\n")
	if m.pending != "" {
		b.WriteString(m.spinner.View())
		b.WriteString(" ")
		b.WriteString(m.styles.Help.Render("looking up " + m.pending))
		b.WriteString("\n")
	}
	b.WriteString(m.input.View())
	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

func (m ChatModel) loadedLine() string {
	n := len(m.session.Ingested)
	switch n {
	case 0:
		return "no files loaded this session"
	case 1:
		return "1 file loaded: " + m.session.Ingested[0].Source
	default:
		return fmt.Sprintf("%d files loaded", n)
	}
}

// transcript renders every exchange after the last clear.
func (m ChatModel) transcript() string {
	exchanges := m.session.Exchanges[min(m.shown, len(m.session.Exchanges)):]
	if len(exchanges) == 0 && m.pending == "" {
		return m.styles.Help.Render("Ask a question, for example: what is the budget?")
	}

	wrap := lipgloss.NewStyle().Width(max(m.width-4, 20))
	var b strings.Builder
	for _, e := range exchanges {
		b.WriteString(m.renderExchange(e, wrap))
		b.WriteString("\n")
	}
	if m.pending != "" {
		b.WriteString(m.styles.Prompt.Render("you "))
		b.WriteString(m.styles.Question.Render(m.pending))
		b.WriteString("\n")
	}
	return b.String()
}

func (m ChatModel) renderExchange(e *Exchange, wrap lipgloss.Style) string {
	var b strings.Builder
	b.WriteString(m.styles.Prompt.Render("you "))
	b.WriteString(m.styles.Question.Render(e.Query))
	b.WriteString("\n")

	if e.Err != nil {
		b.WriteString(m.styles.StatusFailed.Render("error"))
		b.WriteString("\n")
		b.WriteString(m.styles.Error.Render(wrap.Render(e.Err.Error())))
		b.WriteString("\n")
		return b.String()
	}

	b.WriteString(m.styles.StatusBadge(e.Answer.Status).Render(string(e.Answer.Status)))
	if e.Answer.Source != "" {
		b.WriteString(" ")
		b.WriteString(m.styles.Source.Render(e.Answer.Source))
	}
	b.WriteString("\n")
	b.WriteString(m.styles.Answer.Render(wrap.Render(e.Answer.Text)))
	b.WriteString("\n")
	return b.String()
}
