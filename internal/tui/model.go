// Package tui assembles the full-screen practice UI from its phases.
package tui

import (
	"context"
	"strings"

	"github.com/alkime/practice/internal/tui/components/phases"
	tuiPhases "github.com/alkime/practice/internal/tui/phases"
	"github.com/alkime/practice/internal/tui/style"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

// Config holds the hooks of the root model.
type Config struct {
	// Cancel is called when the user quits.
	Cancel context.CancelFunc
}

type model struct {
	config Config
	keys   tuiPhases.KeyMap
	phases phases.Model
}

// New creates the root model over the given phases.
func New(config Config, phaseList ...phases.Phase) tea.Model {
	return &model{
		config: config,
		keys:   tuiPhases.DefaultKeyMap(),
		phases: phases.New(phaseList),
	}
}

// Init returns the initial command.
func (m *model) Init() tea.Cmd {
	return m.phases.Init()
}

// Update handles all messages.
func (m *model) Update(teaMsg tea.Msg) (tea.Model, tea.Cmd) {
	// Global key handling (quit from any phase)
	if km, ok := teaMsg.(tea.KeyMsg); ok {
		if key.Matches(km, m.keys.ForceQuit) || key.Matches(km, m.keys.Quit) {
			if m.config.Cancel != nil {
				m.config.Cancel()
			}

			return m, tea.Quit
		}
	}

	// Delegate to phases container
	updatedPhases, cmd := m.phases.Update(teaMsg)
	m.phases = updatedPhases.(phases.Model) //nolint:forcetypeassert // phases.Model always returns phases.Model

	return m, cmd
}

// View renders the current UI.
func (m *model) View() string {
	var sb strings.Builder

	sb.WriteString(style.Subtitle.Render("Practice · " + m.phases.CurrentPhaseName()))
	sb.WriteString("\n\n")
	sb.WriteString(m.phases.View())
	sb.WriteString("\n")

	return sb.String()
}
