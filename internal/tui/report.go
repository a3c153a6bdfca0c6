package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"

	"github.com/amishk599/cvvin/internal/model"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15"))

	sectionStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39")).
			MarginTop(1)

	matchedChipStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("15")).
				Background(lipgloss.Color("28")).
				Padding(0, 1)

	missingChipStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("15")).
				Background(lipgloss.Color("124")).
				Padding(0, 1)

	bulletStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))

	hintStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")).
			Italic(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))
)

// ScoreLabel describes a score the way the results page did.
func ScoreLabel(score int) string {
	switch {
	case score >= 80:
		return "Excellent match"
	case score >= 60:
		return "Good match"
	case score >= 40:
		return "Fair match"
	default:
		return "Needs work"
	}
}

// RenderReport renders res as a styled report no wider than width.
func RenderReport(res model.MatchResult, width int) string {
	width = max(width, 30)
	var b strings.Builder

	bar := progress.New(progress.WithDefaultGradient(), progress.WithWidth(min(width-8, 50)), progress.WithoutPercentage())
	b.WriteString(titleStyle.Render(fmt.Sprintf("Match score: %d%%  %s", res.MatchScore, ScoreLabel(res.MatchScore))))
	b.WriteByte('\n')
	b.WriteString(bar.ViewAs(float64(res.MatchScore) / 100))
	b.WriteByte('\n')

	b.WriteString(sectionStyle.Render(fmt.Sprintf("Matched skills (%d)", len(res.MatchedSkills))))
	b.WriteByte('\n')
	b.WriteString(chips(res.MatchedSkills, matchedChipStyle, width))
	b.WriteByte('\n')

	b.WriteString(sectionStyle.Render(fmt.Sprintf("Missing skills (%d)", len(res.MissingSkills))))
	b.WriteByte('\n')
	b.WriteString(chips(res.MissingSkills, missingChipStyle, width))
	b.WriteByte('\n')

	if len(res.Strengths) > 0 {
		b.WriteString(sectionStyle.Render("Strengths"))
		b.WriteByte('\n')
		writeBullets(&b, res.Strengths, width)
	}
	if len(res.Improvements) > 0 {
		b.WriteString(sectionStyle.Render("Areas for improvement"))
		b.WriteByte('\n')
		writeBullets(&b, res.Improvements, width)
	}

	if res.RunID != "" {
		b.WriteByte('\n')
		b.WriteString(hintStyle.Render(fmt.Sprintf("run %s · %s", res.RunID, res.ComputedAt.Local().Format("2006-01-02 15:04 MST"))))
		b.WriteByte('\n')
	}
	return b.String()
}

// chips lays skills out as colored tags, wrapping at width.
func chips(skills []string, style lipgloss.Style, width int) string {
	if len(skills) == 0 {
		return hintStyle.Render("  none")
	}
	var lines []string
	line := " "
	lineWidth := 1
	for _, s := range skills {
		chip := style.Render(s)
		w := lipgloss.Width(chip) + 1
		if lineWidth+w > width && lineWidth > 1 {
			lines = append(lines, line)
			line, lineWidth = " ", 1
		}
		line += " " + chip
		lineWidth += w
	}
	lines = append(lines, line)
	return strings.Join(lines, "\n")
}

func writeBullets(b *strings.Builder, items []string, width int) {
	for _, it := range items {
		wrapped := wordWrap(it, max(width-4, 10))
		b.WriteString(bulletStyle.Render("  • " + strings.ReplaceAll(wrapped, "\n", "\n    ")))
		b.WriteByte('\n')
	}
}

func wordWrap(text string, width int) string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return ""
	}
	var lines []string
	line := words[0]
	for _, w := range words[1:] {
		if len(line)+1+len(w) <= width {
			line += " " + w
		} else {
			lines = append(lines, line)
			line = w
		}
	}
	lines = append(lines, line)
	return strings.Join(lines, "\n")
}
