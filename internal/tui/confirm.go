package tui

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/asynkron/patchstage/internal/core/stage"
)

type keyMap struct {
	Yes  key.Binding
	No   key.Binding
	Quit key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		Yes: key.NewBinding(
			key.WithKeys("y", "Y"),
			key.WithHelp("y", "apply"),
		),
		No: key.NewBinding(
			key.WithKeys("n", "N", "enter"),
			key.WithHelp("n/enter", "skip"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "esc", "ctrl+c"),
			key.WithHelp("q", "stop reviewing"),
		),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Yes, k.No, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}

// confirmModel is a single-keystroke y/N prompt. Anything other than the
// apply binding resolves to skip or quit; the default is skip.
type confirmModel struct {
	prompt   stage.Prompt
	keys     keyMap
	help     help.Model
	question lipgloss.Style
	answer   lipgloss.Style

	decision stage.Decision
	done     bool
}

func newConfirmModel(prompt stage.Prompt, renderer *lipgloss.Renderer) confirmModel {
	h := help.New()
	h.Styles.ShortKey = renderer.NewStyle().Foreground(lipgloss.Color("63"))
	h.Styles.ShortDesc = renderer.NewStyle().Foreground(lipgloss.Color("244"))
	h.Styles.ShortSeparator = renderer.NewStyle().Foreground(lipgloss.Color("240"))
	return confirmModel{
		prompt:   prompt,
		keys:     newKeyMap(),
		help:     h,
		question: renderer.NewStyle().Bold(true).Foreground(lipgloss.Color("252")),
		answer:   renderer.NewStyle().Foreground(lipgloss.Color("129")),
		decision: stage.DecisionSkip,
	}
}

func (m confirmModel) Init() tea.Cmd {
	return nil
}

func (m confirmModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Yes):
			m.decision = stage.DecisionApply
		case key.Matches(msg, m.keys.No):
			m.decision = stage.DecisionSkip
		case key.Matches(msg, m.keys.Quit):
			m.decision = stage.DecisionQuit
		default:
			return m, nil
		}
		m.done = true
		return m, tea.Quit
	case tea.WindowSizeMsg:
		m.help.Width = msg.Width
	}
	return m, nil
}

func (m confirmModel) View() string {
	q := m.question.Render(m.prompt.Question())
	if m.done {
		return q + m.answer.Render(m.decision.String()) + "\n"
	}
	return q + "\n" + m.help.View(m.keys) + "\n"
}

// Confirmer asks for each artifact with a bubbletea prompt. It needs a
// terminal on in; the line-based stage.LineConfirmer covers everything else.
type Confirmer struct {
	in       io.Reader
	out      io.Writer
	renderer *lipgloss.Renderer
}

var _ stage.Confirmer = (*Confirmer)(nil)

// NewConfirmer builds a Confirmer that shares the printer's color profile.
func NewConfirmer(in io.Reader, out io.Writer, printer *Printer) *Confirmer {
	renderer := lipgloss.DefaultRenderer()
	if printer != nil {
		renderer = printer.Renderer()
	}
	return &Confirmer{in: in, out: out, renderer: renderer}
}

func (c *Confirmer) Confirm(ctx context.Context, prompt stage.Prompt) (stage.Decision, error) {
	program := tea.NewProgram(
		newConfirmModel(prompt, c.renderer),
		tea.WithInput(c.in),
		tea.WithOutput(c.out),
		tea.WithContext(ctx),
		tea.WithoutSignalHandler(),
	)
	final, err := program.Run()
	if ctx.Err() != nil {
		return stage.DecisionQuit, ctx.Err()
	}
	if err != nil {
		if errors.Is(err, tea.ErrProgramKilled) {
			return stage.DecisionQuit, nil
		}
		return stage.DecisionQuit, fmt.Errorf("prompt: %w", err)
	}
	m, ok := final.(confirmModel)
	if !ok || !m.done {
		return stage.DecisionQuit, nil
	}
	return m.decision, nil
}
