package main

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/yuanying/epubterm/internal/session"
)

var keyIntents = map[string]session.Intent{
	"l":      session.NextPage,
	"right":  session.NextPage,
	" ":      session.NextPage,
	"pgdown": session.NextPage,
	"h":      session.PrevPage,
	"left":   session.PrevPage,
	"pgup":   session.PrevPage,
	"j":      session.ScrollDown,
	"down":   session.ScrollDown,
	"k":      session.ScrollUp,
	"up":     session.ScrollUp,
	"e":      session.ShowETA,
	"m":      session.ShowMetadata,
	"q":      session.Quit,
	"ctrl+c": session.Quit,
}

var (
	statusStyle  = lipgloss.NewStyle().Reverse(true)
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
)

// model adapts a session.Controller to bubbletea.
type model struct {
	ctrl    *session.Controller
	width   int
	warning string
}

func newModel(ctrl *session.Controller) *model {
	return &model{ctrl: ctrl, width: ctrl.Viewport().Width}
}

func (m *model) Init() tea.Cmd { return nil }

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.ctrl.Resize(textViewport(msg.Width, msg.Height))
	case tea.KeyMsg:
		intent, ok := keyIntents[msg.String()]
		if !ok {
			return m, nil
		}
		res := m.ctrl.Dispatch(intent)
		if res.Quit {
			return m, tea.Quit
		}
		if res.PageChanged {
			m.warning = ""
		}
		if res.Warning != nil {
			m.warning = "progress not saved: " + res.Warning.Error()
		}
	}
	return m, nil
}

func (m *model) View() string {
	screen := m.ctrl.View()
	height := m.ctrl.Viewport().Height

	var sb strings.Builder
	for i := 0; i < height; i++ {
		if i < len(screen.Lines) {
			sb.WriteString(screen.Lines[i])
		}
		sb.WriteByte('\n')
	}

	// The status bar must stay on one row.
	if m.warning != "" {
		sb.WriteString(warningStyle.Render(runewidth.Truncate(m.warning, m.width, "…")))
	} else {
		sb.WriteString(statusStyle.Width(m.width).Render(runewidth.Truncate(screen.Status, m.width, "…")))
	}
	return sb.String()
}
