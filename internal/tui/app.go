// Package tui renders a forecast session in the terminal.
package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/i474232898/forecast-screen/internal/session"
	"github.com/i474232898/forecast-screen/internal/weather"
)

// Controller is the part of *session.Controller the UI drives.
type Controller interface {
	State() session.State
	Updates() <-chan struct{}
	OpenSearch()
	CloseSearch()
	QueryChanged(query string)
	Select(loc weather.LocationSuggestion)
}

// stateChangedMsg tells the model to re-read the controller state.
type stateChangedMsg struct{}

type Model struct {
	ctrl     Controller
	state    session.State
	input    textinput.Model
	spinner  spinner.Model
	cursor   int // highlighted suggestion
	width    int
	height   int
	quitting bool
}

func NewModel(ctrl Controller) Model {
	ti := textinput.New()
	ti.Placeholder = "Search city"
	ti.CharLimit = 100

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = spinnerStyle

	return Model{
		ctrl:    ctrl,
		state:   ctrl.State(),
		input:   ti,
		spinner: sp,
		width:   80,
		height:  24,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, waitForUpdate(m.ctrl.Updates()))
}

func waitForUpdate(ch <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		if _, ok := <-ch; !ok {
			return nil
		}
		return stateChangedMsg{}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case stateChangedMsg:
		tick := m.refresh()
		return m, tea.Batch(tick, waitForUpdate(m.ctrl.Updates()))

	case spinner.TickMsg:
		// The spinner is only visible while loading; let the tick chain end.
		if m.state.Content != session.ContentLoading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.quitting = true
			return m, tea.Quit
		}
		// Nothing is interactive while the forecast loads.
		if m.state.Content == session.ContentLoading {
			return m, nil
		}
		if m.state.SearchOpen {
			return m.updateSearch(msg)
		}
		return m.updateBrowse(msg)
	}
	return m, nil
}

func (m Model) updateBrowse(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q":
		m.quitting = true
		return m, tea.Quit

	case "/":
		m.ctrl.OpenSearch()
		m.input.Reset()
		m.cursor = 0
		tick := m.refresh()
		return m, tea.Batch(tick, m.input.Focus())
	}
	return m, nil
}

func (m Model) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.ctrl.CloseSearch()
		tick := m.refresh()
		return m, tick

	case "up":
		if m.cursor > 0 {
			m.cursor--
		}
		return m, nil

	case "down":
		if m.cursor < len(m.state.Suggestions)-1 {
			m.cursor++
		}
		return m, nil

	case "enter":
		if len(m.state.Suggestions) > 0 {
			m.ctrl.Select(m.state.Suggestions[m.cursor])
			tick := m.refresh()
			return m, tick
		}
		return m, nil
	}

	before := m.input.Value()
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if v := m.input.Value(); v != before {
		m.ctrl.QueryChanged(v)
	}
	return m, cmd
}

// refresh pulls the controller state and keeps local widgets consistent with
// it. It returns a spinner tick when loading starts again.
func (m *Model) refresh() tea.Cmd {
	wasLoading := m.state.Content == session.ContentLoading
	m.state = m.ctrl.State()
	if !m.state.SearchOpen && m.input.Focused() {
		m.input.Blur()
		m.input.Reset()
	}
	if m.cursor >= len(m.state.Suggestions) {
		m.cursor = max(0, len(m.state.Suggestions)-1)
	}
	if !wasLoading && m.state.Content == session.ContentLoading {
		return m.spinner.Tick
	}
	return nil
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	if m.state.Content == session.ContentLoading {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center,
			m.spinner.View()+" "+dimStyle.Render("loading forecast"))
	}

	var b strings.Builder

	if m.state.SearchOpen {
		b.WriteString(searchBarStyle.Render(m.input.View()) + "\n")
		// autocomplete suggestions
		if len(m.state.Suggestions) > 0 {
			b.WriteString(renderSuggestions(m.state.Suggestions, m.cursor) + "\n")
		}
		b.WriteString("\n")
	}

	b.WriteString(renderForecast(m.state.Snapshot))
	b.WriteString("\n")
	b.WriteString(m.renderHelp())

	return b.String()
}

func (m Model) renderHelp() string {
	if m.state.SearchOpen {
		return helpStyle.Render("  type to search  ↑/↓: choose  Enter: select  Esc: close")
	}
	return helpStyle.Render("  /: search  q: quit")
}
