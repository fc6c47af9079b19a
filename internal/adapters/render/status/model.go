// Package status draws the run status card shown by `meeting status` and
// after `meeting run`.
package status

import (
	"errors"
	"io"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/yoke233/metting/internal/application"
)

var ErrUnexpectedRenderModel = errors.New("status card: unexpected final model")

type blockMsg struct {
	index int
}

// card appends one block per update and quits after the last one.
type card struct {
	blocks []string
	shown  int
}

func (c card) Init() tea.Cmd {
	return nextBlock(0)
}

func (c card) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	next, ok := msg.(blockMsg)
	if !ok || next.index != c.shown {
		return c, nil
	}
	if c.shown < len(c.blocks) {
		c.shown++
	}
	if c.shown == len(c.blocks) {
		return c, tea.Quit
	}

	return c, nextBlock(c.shown)
}

func (c card) View() string {
	return lipgloss.JoinVertical(lipgloss.Left, c.blocks[:c.shown]...)
}

func nextBlock(index int) tea.Cmd {
	return func() tea.Msg {
		return blockMsg{index: index}
	}
}

// Render runs the card headless and returns the final frame.
func Render(status application.RunStatus, opts RenderOptions) (string, error) {
	program := tea.NewProgram(
		card{blocks: blocks(status, opts, newStyles())},
		tea.WithInput(nil),
		tea.WithOutput(io.Discard),
	)

	final, err := program.Run()
	if err != nil {
		return "", err
	}
	done, ok := final.(card)
	if !ok {
		return "", ErrUnexpectedRenderModel
	}

	return done.View(), nil
}
