// Package review provides the interactive terminal decision surface:
// a Bubble Tea list of pending candidates with accept, decline, and
// defer actions, plus the one-time setup wizard.
package review

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/inbox-calendar/internal/lifecycle"
	"github.com/nhle/inbox-calendar/internal/model"
	"github.com/nhle/inbox-calendar/internal/store"
)

const snippetLen = 100

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205")).
			MarginBottom(1)

	selectedStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("170"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			MarginTop(1)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			MarginTop(1)
)

// KeyMap defines the review key bindings.
type KeyMap struct {
	Up      key.Binding
	Down    key.Binding
	Accept  key.Binding
	Decline key.Binding
	Skip    key.Binding
	Quit    key.Binding
}

// DefaultKeyMap is the standard review binding set.
var DefaultKeyMap = KeyMap{
	Up:      key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
	Down:    key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
	Accept:  key.NewBinding(key.WithKeys("a", "y"), key.WithHelp("a", "accept")),
	Decline: key.NewBinding(key.WithKeys("d", "n"), key.WithHelp("d", "decline")),
	Skip:    key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "skip")),
	Quit:    key.NewBinding(key.WithKeys("q", "esc", "ctrl+c"), key.WithHelp("q", "quit")),
}

// pendingLoadedMsg carries the refreshed pending list.
type pendingLoadedMsg struct {
	cands []model.EventCandidate
	err   error
}

// decisionDoneMsg reports the outcome of an accept or decline.
type decisionDoneMsg struct {
	id     string
	action string
	err    error
}

// Model is the Bubble Tea model for the review surface.
type Model struct {
	coord *lifecycle.Coordinator
	store store.EventStore

	cands   []model.EventCandidate
	skipped map[string]bool
	cursor  int
	status  string
	failed  bool
	busy    bool
	keys    KeyMap
}

// New creates a review model over the coordinator and store.
func New(coord *lifecycle.Coordinator, st store.EventStore) Model {
	return Model{
		coord:   coord,
		store:   st,
		skipped: make(map[string]bool),
		keys:    DefaultKeyMap,
	}
}

// Init loads the pending candidates.
func (m Model) Init() tea.Cmd {
	return m.loadPending
}

func (m Model) loadPending() tea.Msg {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cands, err := m.store.ListPending(ctx)
	return pendingLoadedMsg{cands: cands, err: err}
}

// Update handles key presses and async decision results.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case pendingLoadedMsg:
		if msg.err != nil {
			m.status = fmt.Sprintf("loading pending events: %v", msg.err)
			m.failed = true
			return m, nil
		}
		m.cands = msg.cands
		if m.cursor >= len(m.cands) {
			m.cursor = max(0, len(m.cands)-1)
		}
		return m, nil

	case decisionDoneMsg:
		m.busy = false
		if msg.err != nil {
			m.status = fmt.Sprintf("%s %s failed: %v", msg.action, msg.id, msg.err)
			m.failed = true
		} else {
			m.status = fmt.Sprintf("%s: %s", msg.action, msg.id)
			m.failed = false
		}
		return m, m.loadPending

	case tea.KeyMsg:
		if m.busy {
			return m, nil
		}
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Up):
			if m.cursor > 0 {
				m.cursor--
			}
		case key.Matches(msg, m.keys.Down):
			if m.cursor < len(m.cands)-1 {
				m.cursor++
			}
		case key.Matches(msg, m.keys.Accept):
			return m.decide("accepted", m.coordAccept)
		case key.Matches(msg, m.keys.Decline):
			return m.decide("declined", m.coordDecline)
		case key.Matches(msg, m.keys.Skip):
			if cand, ok := m.current(); ok {
				m.skipped[cand.SourceMessageID] = true
				if m.cursor < len(m.cands)-1 {
					m.cursor++
				}
			}
		}
	}
	return m, nil
}

func (m Model) current() (model.EventCandidate, bool) {
	if m.cursor < 0 || m.cursor >= len(m.cands) {
		return model.EventCandidate{}, false
	}
	return m.cands[m.cursor], true
}

// decide kicks off an async accept or decline for the selected
// candidate.
func (m Model) decide(
	action string,
	op func(context.Context, string) error,
) (tea.Model, tea.Cmd) {
	cand, ok := m.current()
	if !ok {
		return m, nil
	}
	m.busy = true
	id := cand.SourceMessageID

	return m, func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return decisionDoneMsg{id: id, action: action, err: op(ctx, id)}
	}
}

func (m Model) coordAccept(ctx context.Context, id string) error {
	_, err := m.coord.Accept(ctx, id)
	return err
}

func (m Model) coordDecline(ctx context.Context, id string) error {
	return m.coord.Decline(ctx, id)
}

// View renders the pending list with the selected candidate expanded.
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Pending event suggestions"))
	b.WriteString("\n")

	if len(m.cands) == 0 {
		b.WriteString(dimStyle.Render("Nothing pending. Press q to quit.") + "\n")
	}

	for i, cand := range m.cands {
		line := fmt.Sprintf(
			"%s  %s", cand.StartTime.Format("Mon Jan 2 15:04"), cand.Title,
		)
		if m.skipped[cand.SourceMessageID] {
			line += "  (skipped)"
		}

		if i == m.cursor {
			b.WriteString(selectedStyle.Render("> "+line) + "\n")
			b.WriteString(dimStyle.Render("    "+snippet(cand.Description)) + "\n")
			b.WriteString(dimStyle.Render(fmt.Sprintf(
				"    confidence %.2f, from message %s",
				cand.Confidence, cand.SourceMessageID,
			)) + "\n")
		} else {
			b.WriteString("  " + line + "\n")
		}
	}

	if m.status != "" {
		style := statusStyle
		if m.failed {
			style = errorStyle
		}
		b.WriteString(style.Render(m.status) + "\n")
	}

	b.WriteString(dimStyle.Render(
		"\na accept · d decline · s skip · ↑/↓ move · q quit",
	) + "\n")
	return b.String()
}

// snippet shortens a body for display; storage keeps the full text.
func snippet(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if len(s) <= snippetLen {
		return s
	}
	return s[:snippetLen] + "…"
}

// Run starts the review TUI and blocks until the user quits.
func Run(coord *lifecycle.Coordinator, st store.EventStore) error {
	p := tea.NewProgram(New(coord, st))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("running review UI: %w", err)
	}
	return nil
}
