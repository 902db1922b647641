// Package tui is the live dictation view.
package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/natasadenman-dotcom/authorsvoice/internal/record"
	"github.com/natasadenman-dotcom/authorsvoice/internal/transcript"
)

// Controller is the part of the accumulator the view drives.
type Controller interface {
	Start() error
	Stop() error
	Reset()
	State() transcript.State
}

// StateMsg carries a new accumulator snapshot.
type StateMsg struct {
	State transcript.State
}

// actionErrMsg reports a failed start or stop.
type actionErrMsg struct {
	err error
}

// Model is the bubbletea model for a dictation session.
type Model struct {
	ctrl    Controller
	updates <-chan transcript.State

	state  transcript.State
	err    string
	width  int
	height int
	done   bool
}

// New creates a Model. updates should receive every accumulator snapshot,
// typically fed from transcript.Config.OnChange.
func New(ctrl Controller, updates <-chan transcript.State) Model {
	return Model{
		ctrl:    ctrl,
		updates: updates,
		state:   ctrl.State(),
	}
}

// Transcript returns the text on screen when the view exited.
func (m Model) Transcript() string {
	return m.state.Transcript()
}

// Init starts capture and begins listening for snapshots.
func (m Model) Init() tea.Cmd {
	return tea.Batch(startCmd(m.ctrl), waitForState(m.updates))
}

func startCmd(ctrl Controller) tea.Cmd {
	return func() tea.Msg {
		if err := ctrl.Start(); err != nil {
			return actionErrMsg{err: err}
		}
		return nil
	}
}

func stopCmd(ctrl Controller) tea.Cmd {
	return func() tea.Msg {
		if err := ctrl.Stop(); err != nil {
			return actionErrMsg{err: err}
		}
		return nil
	}
}

// resetCmd resets off the event loop: Reset publishes a snapshot, and the
// loop is what drains the updates channel.
func resetCmd(ctrl Controller) tea.Cmd {
	return func() tea.Msg {
		ctrl.Reset()
		return StateMsg{State: ctrl.State()}
	}
}

// waitForState blocks until the next snapshot arrives.
func waitForState(updates <-chan transcript.State) tea.Cmd {
	if updates == nil {
		return nil
	}
	return func() tea.Msg {
		s, ok := <-updates
		if !ok {
			return nil
		}
		return StateMsg{State: s}
	}
}

// Update processes messages and returns the updated model and any commands.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case StateMsg:
		// Snapshots can arrive out of order from the event goroutine.
		if msg.State.Seq >= m.state.Seq {
			m.state = msg.State
			if m.state.Err != nil {
				m.err = m.state.Err.Error()
			} else {
				m.err = ""
			}
		}
		return m, waitForState(m.updates)

	case actionErrMsg:
		m.err = msg.err.Error()
		return m, nil
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "Q", "ctrl+c":
		m.done = true
		return m, tea.Quit

	case "s", " ":
		if m.state.Listening {
			return m, stopCmd(m.ctrl)
		}
		return m, startCmd(m.ctrl)

	case "r":
		return m, resetCmd(m.ctrl)
	}
	return m, nil
}

// View renders the model.
func (m Model) View() string {
	if m.done {
		return ""
	}
	width := m.width
	if width == 0 {
		width = 80
	}

	var sections []string
	sections = append(sections, m.renderHeader())
	sections = append(sections, dividerStyle.Render(strings.Repeat("─", width)))
	sections = append(sections, m.renderTranscript(width))
	sections = append(sections, dividerStyle.Render(strings.Repeat("─", width)))
	if m.err != "" {
		sections = append(sections, errorStyle.Render("Error: ")+m.err)
	}
	sections = append(sections, m.renderFooter())
	return strings.Join(sections, "\n")
}

func (m Model) renderHeader() string {
	dot := idleDotStyle.Render("○")
	status := "Idle"
	if m.state.Listening {
		dot = listeningDotStyle.Render("●")
		status = "Listening"
	}
	words := record.CountWords(m.state.Transcript())
	return fmt.Sprintf("%s %s %s  %s",
		titleStyle.Render("Authors Voice"),
		dot,
		status,
		statusStyle.Render(fmt.Sprintf("%d words", words)),
	)
}

func (m Model) renderTranscript(width int) string {
	body := m.state.Confirmed
	if m.state.Interim != "" {
		body += interimStyle.Render(m.state.Interim)
	}
	if body == "" {
		body = statusStyle.Render("Start speaking…")
	}
	return lipgloss.NewStyle().Width(width).Render(body)
}

func (m Model) renderFooter() string {
	keys := []struct{ key, desc string }{
		{"s", "start/stop"},
		{"r", "reset"},
		{"q", "quit"},
	}
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, footerKeyStyle.Render(k.key)+" "+footerDescStyle.Render(k.desc))
	}
	return strings.Join(parts, "  ")
}
