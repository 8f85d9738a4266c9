// Package tui provides the animated status indicator shown while the agent
// loop is waiting on a subprocess. It is purely presentational: it observes
// loop events and never feeds anything back into the state machine.
package tui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	spinnerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))
	messageStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	iterStyle    = lipgloss.NewStyle().Bold(true)
)

// rotating status messages, cycled while an iteration runs.
var statusMessages = []string{
	"agent is thinking",
	"still working",
	"writing code",
	"running tests",
	"checking stories",
}

const rotateEvery = 4 * time.Second

// Indicator drives a spinner TUI on the terminal while iterations run.
type Indicator struct {
	prog *tea.Program
	done chan struct{}
}

// iterationMsg updates the displayed iteration counter.
type iterationMsg struct {
	iteration int
	max       int
}

// rotateMsg advances to the next status message.
type rotateMsg struct{}

// stopMsg tells the model to quit cleanly.
type stopMsg struct{}

type model struct {
	spinner   spinner.Model
	iteration int
	max       int
	msgIndex  int
	quitting  bool
}

func newModel() model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = spinnerStyle
	return model{spinner: s}
}

// Init implements tea.Model.
func (m model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, rotateTick())
}

func rotateTick() tea.Cmd {
	return tea.Tick(rotateEvery, func(time.Time) tea.Msg {
		return rotateMsg{}
	})
}

// Update implements tea.Model.
func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case iterationMsg:
		m.iteration = msg.iteration
		m.max = msg.max
		m.msgIndex = 0
		return m, nil
	case rotateMsg:
		m.msgIndex = (m.msgIndex + 1) % len(statusMessages)
		return m, rotateTick()
	case stopMsg:
		m.quitting = true
		return m, tea.Quit
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	default:
		return m, nil
	}
}

// View implements tea.Model.
func (m model) View() string {
	if m.quitting {
		return ""
	}
	iter := ""
	if m.max > 0 {
		iter = iterStyle.Render(fmt.Sprintf("[%d/%d] ", m.iteration, m.max))
	}
	return fmt.Sprintf("%s %s%s\n",
		m.spinner.View(), iter, messageStyle.Render(statusMessages[m.msgIndex]+"..."))
}

// NewIndicator creates a stopped indicator.
func NewIndicator() *Indicator {
	return &Indicator{}
}

// Start launches the indicator in the background. Calling Start twice is a
// no-op for the second call.
func (ind *Indicator) Start() {
	if ind.prog != nil {
		return
	}
	ind.prog = tea.NewProgram(newModel())
	ind.done = make(chan struct{})
	go func() {
		defer close(ind.done)
		_, _ = ind.prog.Run()
	}()
}

// Iteration reports the iteration counter to the display.
func (ind *Indicator) Iteration(iteration, max int) {
	if ind.prog != nil {
		ind.prog.Send(iterationMsg{iteration: iteration, max: max})
	}
}

// Stop shuts the indicator down and waits for the terminal to be restored.
func (ind *Indicator) Stop() {
	if ind.prog == nil {
		return
	}
	ind.prog.Send(stopMsg{})
	<-ind.done
	ind.prog = nil
	ind.done = nil
}
