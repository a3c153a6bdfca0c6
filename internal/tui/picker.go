package tui

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	pickerTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("39")).
				Padding(1, 0, 1, 2)

	pickerItemStyle = lipgloss.NewStyle().
			Padding(0, 0, 0, 4)

	pickerSelectedStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("39")).
				Bold(true).
				Padding(0, 0, 0, 2)

	pickerHintStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Padding(1, 0, 0, 2)
)

type pickerModel struct {
	title     string
	options   []string
	checked   []bool
	cursor    int
	confirmed bool
}

func newPickerModel(title string, options, selected []string) pickerModel {
	m := pickerModel{title: title, options: options, checked: make([]bool, len(options))}
	for i, opt := range options {
		for _, s := range selected {
			if strings.EqualFold(opt, s) {
				m.checked[i] = true
			}
		}
	}
	return m
}

func (m pickerModel) Init() tea.Cmd {
	return nil
}

func (m pickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			m.confirmed = false
			return m, tea.Quit
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.cursor < len(m.options)-1 {
				m.cursor++
			}
		case " ", "x":
			if len(m.options) > 0 {
				m.checked[m.cursor] = !m.checked[m.cursor]
			}
		case "enter":
			m.confirmed = true
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m pickerModel) View() string {
	s := pickerTitleStyle.Render(m.title)
	s += "\n"

	for i, opt := range m.options {
		box := "[ ] "
		if m.checked[i] {
			box = "[x] "
		}
		if i == m.cursor {
			s += pickerSelectedStyle.Render("> "+box+opt) + "\n"
		} else {
			s += pickerItemStyle.Render(box+opt) + "\n"
		}
	}

	s += pickerHintStyle.Render("↑/↓/j/k navigate  space toggle  enter save  q cancel")
	return s
}

func (m pickerModel) selection() []string {
	var out []string
	for i, opt := range m.options {
		if m.checked[i] {
			out = append(out, opt)
		}
	}
	return out
}

// RunMultiPicker lets the user check any of options, starting from selected.
// ok is false if the user cancelled.
func RunMultiPicker(title string, options, selected []string) (chosen []string, ok bool, err error) {
	p := tea.NewProgram(newPickerModel(title, options, selected))
	result, err := p.Run()
	if err != nil {
		return nil, false, err
	}
	final := result.(pickerModel)
	if !final.confirmed {
		return nil, false, nil
	}
	return final.selection(), true, nil
}
