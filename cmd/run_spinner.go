package cmd

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	spinnerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("69"))
	doneStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("114"))
	failedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
)

type workFinishedMsg struct {
	err error
}

// progressModel spins with an elapsed timer while a meeting works, then
// leaves one line saying how it ended.
type progressModel struct {
	spinner spinner.Model
	label   string
	work    tea.Cmd
	started time.Time
	elapsed time.Duration
	err     error
	done    bool
}

func newProgressModel(label string, work tea.Cmd, started time.Time) progressModel {
	return progressModel{
		spinner: spinner.New(spinner.WithSpinner(spinner.MiniDot), spinner.WithStyle(spinnerStyle)),
		label:   label,
		work:    work,
		started: started,
	}
}

func (m progressModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.work)
}

func (m progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case workFinishedMsg:
		m.done = true
		m.err = msg.err
		m.elapsed = time.Since(m.started)
		return m, tea.Quit
	case spinner.TickMsg:
		if m.done {
			return m, nil
		}
		m.elapsed = time.Since(m.started)
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m progressModel) View() string {
	elapsed := m.elapsed.Round(time.Second)
	switch {
	case !m.done:
		return fmt.Sprintf("%s %s %s", m.spinner.View(), m.label, elapsed)
	case m.err != nil:
		return failedStyle.Render("x") + fmt.Sprintf(" %s failed after %s\n", m.label, elapsed)
	default:
		return doneStyle.Render("✓") + fmt.Sprintf(" %s took %s\n", m.label, elapsed)
	}
}

// runWithSpinner draws progress on output while work runs and returns the
// error work returned.
func runWithSpinner(ctx context.Context, output io.Writer, label string, work func(context.Context) error) error {
	program := tea.NewProgram(
		newProgressModel(label, func() tea.Msg {
			return workFinishedMsg{err: work(ctx)}
		}, time.Now()),
		tea.WithInput(nil),
		tea.WithOutput(output),
		tea.WithContext(ctx),
	)

	final, err := program.Run()
	if err != nil {
		return err
	}
	model, ok := final.(progressModel)
	if !ok {
		return fmt.Errorf("progress: unexpected final model %T", final)
	}

	return model.err
}
