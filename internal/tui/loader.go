package tui

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/amishk599/cvvin/internal/model"
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// Pending is an analysis run still in progress.
type Pending interface {
	Done() <-chan struct{}
	Result() (model.MatchResult, error)
}

type runDoneMsg struct {
	result model.MatchResult
	err    error
}

type spinnerTickMsg struct{}

type loaderModel struct {
	label   string
	run     Pending
	cancel  func()
	frame   int
	started time.Time
	elapsed time.Duration
	result  model.MatchResult
	err     error
	done    bool
}

func (m loaderModel) Init() tea.Cmd {
	return tea.Batch(m.waitRun(), m.tick())
}

func (m loaderModel) waitRun() tea.Cmd {
	run := m.run
	return func() tea.Msg {
		<-run.Done()
		res, err := run.Result()
		return runDoneMsg{result: res, err: err}
	}
}

func (m loaderModel) tick() tea.Cmd {
	return tea.Tick(80*time.Millisecond, func(time.Time) tea.Msg {
		return spinnerTickMsg{}
	})
}

func (m loaderModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case runDoneMsg:
		m.result = msg.result
		m.err = msg.err
		m.done = true
		return m, tea.Quit
	case spinnerTickMsg:
		m.frame = (m.frame + 1) % len(spinnerFrames)
		if !m.started.IsZero() {
			m.elapsed = time.Since(m.started).Truncate(100 * time.Millisecond)
		}
		return m, m.tick()
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" || msg.String() == "esc" {
			if m.cancel != nil {
				m.cancel()
			}
			m.done = true
			m.err = model.ErrCanceled
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m loaderModel) View() string {
	if m.done {
		return ""
	}
	spinner := lipgloss.NewStyle().Foreground(lipgloss.Color("33")).Render(spinnerFrames[m.frame])
	line := fmt.Sprintf("%s %s", spinner, m.label)
	if m.elapsed > 0 {
		line += hintStyle.Render(fmt.Sprintf("  %s  (esc to cancel)", m.elapsed))
	}
	return line + "\n"
}

// RunLoader shows a spinner until run finishes. ctrl+c or esc calls cancel
// and returns ErrCanceled. It renders inline (no alt screen).
func RunLoader(label string, run Pending, cancel func()) (model.MatchResult, error) {
	m := loaderModel{
		label:   label,
		run:     run,
		cancel:  cancel,
		started: time.Now(),
	}
	p := tea.NewProgram(m)
	result, err := p.Run()
	if err != nil {
		return model.MatchResult{}, err
	}
	final := result.(loaderModel)
	return final.result, final.err
}
