package tui

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/amishk599/hireflow/internal/model"
)

// ErrCancelled is returned when the user interrupts a run with ctrl+c.
var ErrCancelled = errors.New("cancelled")

type runDoneMsg struct {
	report *model.Report
	err    error
}

type loaderModel struct {
	url     string
	runFn   func(ctx context.Context) (*model.Report, error)
	ctx     context.Context
	cancel  context.CancelFunc
	spinner spinner.Model
	result  *model.Report
	err     error
	done    bool
}

func (m loaderModel) Init() tea.Cmd {
	return tea.Batch(m.doRun(), m.spinner.Tick)
}

func (m loaderModel) doRun() tea.Cmd {
	runFn, ctx := m.runFn, m.ctx
	return func() tea.Msg {
		report, err := runFn(ctx)
		return runDoneMsg{report: report, err: err}
	}
}

func (m loaderModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case runDoneMsg:
		if !m.done {
			m.result = msg.report
			m.err = msg.err
			m.done = true
		}
		return m, tea.Quit
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.cancel()
			m.done = true
			m.err = ErrCancelled
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m loaderModel) View() string {
	if m.done {
		return ""
	}
	return fmt.Sprintf("%s Analyzing %s...\n", m.spinner.View(), m.url)
}

// RunLoader shows a spinner while runFn works. It renders inline (no alt screen).
func RunLoader(ctx context.Context, url string, runFn func(ctx context.Context) (*model.Report, error)) (*model.Report, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s := spinner.New(spinner.WithSpinner(spinner.Dot))
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("33"))

	m := loaderModel{
		url:     url,
		runFn:   runFn,
		ctx:     ctx,
		cancel:  cancel,
		spinner: s,
	}
	p := tea.NewProgram(m)
	result, err := p.Run()
	if err != nil {
		return nil, err
	}
	final := result.(loaderModel)
	return final.result, final.err
}
