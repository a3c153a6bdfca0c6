package tui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/amishk599/cvvin/internal/model"
)

var (
	borderStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("39"))

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39")).
			Padding(0, 1)

	statusBarStyle = lipgloss.NewStyle().
			Padding(0, 1).
			Foreground(lipgloss.Color("252")).
			Background(lipgloss.Color("236"))
)

// ShareFunc sends a result to the configured notifier.
type ShareFunc func(ctx context.Context, res model.MatchResult) error

type sharedMsg struct {
	err error
}

type viewerModel struct {
	result   model.MatchResult
	share    ShareFunc
	viewport viewport.Model
	width    int
	height   int
	ready    bool

	sharing  bool
	shared   bool
	shareErr string
}

func (m viewerModel) Init() tea.Cmd {
	return nil
}

func (m viewerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.recalcLayout()
		return m, nil

	case sharedMsg:
		m.sharing = false
		if msg.err != nil {
			m.shareErr = fmt.Sprintf("share failed: %v", msg.err)
		} else {
			m.shareErr = ""
			m.shared = true
		}
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return m, tea.Quit
		case "s":
			if m.share != nil && !m.sharing {
				m.sharing = true
				m.shareErr = ""
				return m, m.shareCmd()
			}
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m viewerModel) shareCmd() tea.Cmd {
	share := m.share
	res := m.result
	return func() tea.Msg {
		return sharedMsg{err: share(context.Background(), res)}
	}
}

func (m *viewerModel) recalcLayout() {
	// Header (1) + border (2) + status bar (1).
	w := max(m.width-4, 20)
	h := max(m.height-4, 5)
	if !m.ready {
		m.viewport = viewport.New(w, h)
		m.ready = true
	} else {
		m.viewport.Width = w
		m.viewport.Height = h
	}
	m.viewport.SetContent(RenderReport(m.result, w))
}

func (m viewerModel) View() string {
	if !m.ready {
		return "Initializing..."
	}

	header := headerStyle.Render("Resume analysis")
	content := borderStyle.Width(m.width - 2).Render(m.viewport.View())
	return header + "\n" + content + "\n" + statusBarStyle.Width(m.width).Render(m.statusText())
}

func (m viewerModel) statusText() string {
	keys := " ↑/↓ scroll  q quit"
	if m.share != nil {
		keys = " ↑/↓ scroll  s share  q quit"
	}
	switch {
	case m.sharing:
		return keys + "    sharing..."
	case m.shareErr != "":
		return keys + "    " + errorStyle.Render("⚠ "+m.shareErr)
	case m.shared:
		return keys + "    shared ✓"
	}
	return keys
}

// RunReportViewer shows res full screen. share may be nil, in which case the
// share key is disabled.
func RunReportViewer(res model.MatchResult, share ShareFunc) error {
	m := viewerModel{result: res, share: share}
	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err := p.Run()
	return err
}
