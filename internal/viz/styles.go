package viz

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/san-kum/nrsolve/internal/newton"
)

func labelStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(CurrentTheme.Muted).Width(12)
}

func valueStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(CurrentTheme.Text)
}

func HeaderStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Bold(true).
		Foreground(CurrentTheme.Primary).
		BorderStyle(lipgloss.NormalBorder()).
		BorderBottom(true).
		BorderForeground(CurrentTheme.Muted)
}

func StatusColor(s newton.Status) lipgloss.Color {
	switch s {
	case newton.StatusConverged:
		return CurrentTheme.Success
	case newton.StatusNonConvergence, newton.StatusCanceled:
		return CurrentTheme.Warning
	default:
		return CurrentTheme.Error
	}
}

// Status renders the outcome name in upper case, coloured by severity.
func Status(s newton.Status) string {
	label := strings.ToUpper(strings.ReplaceAll(s.String(), "_", " "))
	return lipgloss.NewStyle().Bold(true).Foreground(StatusColor(s)).Render(label)
}

// Field renders one "label value" row.
func Field(label, value string) string {
	return labelStyle().Render(label) + valueStyle().Render(value)
}

// Summary renders a boxed report of res. solveErr is shown when set.
func Summary(system string, res *newton.Result, solveErr error) string {
	var s strings.Builder
	s.WriteString(HeaderStyle().Render(system) + "\n")
	s.WriteString(Field("status", Status(res.Status)) + "\n")
	s.WriteString(Field("iterations", fmt.Sprintf("%d", res.Iterations)) + "\n")
	s.WriteString(Field("error", fmt.Sprintf("%.3e", res.Error)) + "\n")
	s.WriteString(Field("solution", formatVector(res.X)))
	if solveErr != nil {
		s.WriteString("\n" + Field("reason", solveErr.Error()))
	}

	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(StatusColor(res.Status)).
		Padding(0, 1).
		Render(s.String())
}

func formatVector(v newton.Vector) string {
	parts := make([]string, len(v))
	for i, x := range v {
		parts[i] = fmt.Sprintf("%.10g", x)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
