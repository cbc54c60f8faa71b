// Package phases sequences full-screen TUI models. Only the current phase
// receives input; moving to another phase re-runs its Init. Window sizes go
// to every phase so one that becomes current already knows the terminal.
package phases

import (
	tea "github.com/charmbracelet/bubbletea"
)

// NextPhaseMsg signals the phases container to advance to the next phase.
type NextPhaseMsg struct{}

// PrevPhaseMsg signals the phases container to go back to the previous phase.
type PrevPhaseMsg struct{}

// NextPhaseCmd advances the container.
func NextPhaseCmd() tea.Msg { return NextPhaseMsg{} }

// PrevPhaseCmd moves the container back.
func PrevPhaseCmd() tea.Msg { return PrevPhaseMsg{} }

// Phase is a named step of the UI.
type Phase struct {
	Name  string
	model tea.Model
}

func NewPhase(name string, model tea.Model) Phase {
	return Phase{Name: name, model: model}
}

func (p Phase) update(msg tea.Msg) (Phase, tea.Cmd) {
	var cmd tea.Cmd
	p.model, cmd = p.model.Update(msg)

	return p, cmd
}

// Model is the phase container.
type Model struct {
	phases []Phase
	curr   int
}

func New(phases []Phase) Model {
	return Model{phases: phases, curr: 0}
}

func (m Model) Init() tea.Cmd {
	return m.phases[m.curr].model.Init()
}

func (m Model) Update(teaMsg tea.Msg) (tea.Model, tea.Cmd) {
	switch typedMsg := teaMsg.(type) {
	case NextPhaseMsg:
		return m.move(1)

	case PrevPhaseMsg:
		return m.move(-1)

	case tea.WindowSizeMsg:
		cmds := make([]tea.Cmd, len(m.phases))
		for i := range m.phases {
			m.phases[i], cmds[i] = m.phases[i].update(typedMsg)
		}
		return m, tea.Batch(cmds...)
	}

	var cmd tea.Cmd
	m.phases[m.curr], cmd = m.phases[m.curr].update(teaMsg)

	return m, cmd
}

// move steps by delta, staying put at either end.
func (m Model) move(delta int) (tea.Model, tea.Cmd) {
	next := m.curr + delta
	if next < 0 || next >= len(m.phases) {
		return m, nil
	}
	m.curr = next

	return m, m.phases[m.curr].model.Init()
}

func (m Model) View() string {
	return m.phases[m.curr].model.View()
}

// Index returns the position of the current phase.
func (m Model) Index() int {
	return m.curr
}

// CurrentPhaseName returns the name of the current phase.
func (m Model) CurrentPhaseName() string {
	return m.phases[m.curr].Name
}
