// Package tui steps a Newton-Raphson solve interactively.
package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/san-kum/nrsolve/internal/newton"
	"github.com/san-kum/nrsolve/internal/systems"
	"github.com/san-kum/nrsolve/internal/trace"
	"github.com/san-kum/nrsolve/internal/viz"
)

var (
	panelStyle = lipgloss.NewStyle().Padding(1, 2)
	graphStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("49")).Padding(1, 0)
	helpStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).MarginTop(1)
)

// Model is a bubbletea model around a newton.Iterator.
type Model struct {
	system systems.System
	cfg    newton.Config
	x0     newton.Vector

	it    *newton.Iterator
	path  []newton.Vector
	last  newton.IterationRecord
	err   error
	width int
}

func New(sys systems.System, x0 newton.Vector, cfg newton.Config) (*Model, error) {
	if err := sys.CheckGuess(x0); err != nil {
		return nil, err
	}
	m := &Model{system: sys, cfg: cfg, x0: x0.Clone(), width: 80}
	if err := m.reset(); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Model) reset() error {
	it, err := newton.NewIterator(m.system.F, m.system.DF, m.x0, m.cfg)
	if err != nil {
		return err
	}
	m.it = it
	m.path = []newton.Vector{m.x0.Clone()}
	m.last = newton.IterationRecord{}
	m.err = nil
	return nil
}

// Step advances one iteration unless the solve has finished.
func (m *Model) Step() {
	if m.it.Done() {
		return
	}
	rec, err := m.it.Step()
	if err != nil {
		m.err = err
		return
	}
	m.last = rec
	m.path = append(m.path, rec.X)
}

// Finish steps until the loop exit condition holds.
func (m *Model) Finish() {
	for !m.it.Done() {
		m.Step()
	}
}

func (m *Model) Result() *newton.Result { return m.it.Result() }

func (m *Model) Init() tea.Cmd { return nil }

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "n", " ", "right", "l":
			m.Step()
		case "f", "enter":
			m.Finish()
		case "r":
			// x0 and cfg were accepted once, so a reset cannot fail validation
			// unless f or df are non-deterministic.
			if err := m.reset(); err != nil {
				m.err = err
			}
		case "t":
			names := viz.ThemeNames()
			for i, name := range names {
				if name == viz.CurrentTheme.Name {
					viz.SetTheme(names[(i+1)%len(names)])
					break
				}
			}
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width
	}
	return m, nil
}

func (m *Model) View() string {
	res := m.it.Result()

	var s strings.Builder
	s.WriteString(viz.HeaderStyle().Render(m.system.Name+"  "+m.system.Description) + "\n\n")
	s.WriteString(viz.Field("status", m.statusLabel(res)) + "\n")
	s.WriteString(viz.Field("iteration", fmt.Sprintf("%d / %d", res.Iterations, m.cfg.MaxIterations)) + "\n")
	s.WriteString(viz.Field("x", trace.FormatVector(res.X, 10)) + "\n")
	if res.Iterations > 0 {
		s.WriteString(viz.Field("step error", fmt.Sprintf("%.6e", m.last.Error)) + "\n")
		s.WriteString(viz.Field("residual", fmt.Sprintf("%.6e", m.last.Residual)) + "\n")
	}
	if m.err != nil {
		s.WriteString(viz.Field("reason", m.err.Error()) + "\n")
	}

	if chart := viz.ConvergencePlot(res.History, 40, 6); chart != "" {
		s.WriteString(graphStyle.Render(chart) + "\n")
	}
	s.WriteString(helpStyle.Render("n/space: step  f: finish  r: reset  t: theme  q: quit"))

	info := panelStyle.Render(s.String())
	path := panelStyle.Render(viz.PathPlot(m.path, 30, 12))
	if m.width < 100 {
		return lipgloss.JoinVertical(lipgloss.Left, info, path)
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, info, path)
}

func (m *Model) statusLabel(res *newton.Result) string {
	if res.Iterations == 0 && m.err == nil {
		return "ready"
	}
	if !m.it.Done() {
		return "running"
	}
	return viz.Status(res.Status)
}

// Run starts the program on the alternate screen.
func Run(m *Model) error {
	_, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}
