package generatecmder

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/papercomputeco/lmnode/pkg/llm"
)

type doneMsg llm.Response

// spinnerModel shows a spinner until the generation finishes.
type spinnerModel struct {
	spinner  spinner.Model
	label    string
	generate func() llm.Response
	resp     *llm.Response
}

func newSpinnerModel(label string, generate func() llm.Response) spinnerModel {
	s := spinner.New(
		spinner.WithSpinner(spinner.Dot),
		spinner.WithStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("5"))),
	)
	return spinnerModel{spinner: s, label: label, generate: generate}
}

func (m spinnerModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, func() tea.Msg {
		return doneMsg(m.generate())
	})
}

func (m spinnerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case doneMsg:
		resp := llm.Response(msg)
		m.resp = &resp
		return m, tea.Quit
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m spinnerModel) View() string {
	if m.resp != nil {
		return ""
	}
	return m.spinner.View() + " " + mutedStyle.Render(m.label) + "\n"
}

// withSpinner runs generate while drawing a spinner on stderr.
func withSpinner(ctx context.Context, label string, generate func() llm.Response) (llm.Response, error) {
	p := tea.NewProgram(newSpinnerModel(label, generate),
		tea.WithContext(ctx),
		tea.WithOutput(os.Stderr),
		tea.WithInput(nil),
	)

	final, err := p.Run()
	if err != nil {
		return llm.Response{}, fmt.Errorf("spinner failed: %w", err)
	}

	m, ok := final.(spinnerModel)
	if !ok || m.resp == nil {
		return llm.Response{}, errors.New("generation interrupted")
	}
	return *m.resp, nil
}
