// Package labeledspinner shows a one-line spinner while a background step
// runs.
package labeledspinner

import (
	"github.com/alkime/practice/internal/tui/style"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

// Model is a spinner followed by a label.
type Model struct {
	spinner spinner.Model
	label   string
}

func New(s spinner.Spinner, label string) Model {
	sp := spinner.New()
	sp.Spinner = s

	return Model{spinner: sp, label: label}
}

// Label returns the text shown next to the spinner.
func (ls Model) Label() string {
	return ls.label
}

// WithLabel returns a copy showing label, keeping the animation frame.
func (ls Model) WithLabel(label string) Model {
	ls.label = label
	return ls
}

// Init starts the animation.
func (ls Model) Init() tea.Cmd {
	return ls.spinner.Tick
}

// Update advances the animation on its own tick messages.
func (ls Model) Update(teaMsg tea.Msg) (Model, tea.Cmd) {
	tickMsg, ok := teaMsg.(spinner.TickMsg)
	if !ok {
		return ls, nil
	}

	var cmd tea.Cmd
	ls.spinner, cmd = ls.spinner.Update(tickMsg)

	return ls, cmd
}

func (ls Model) View() string {
	return ls.spinner.View() + " " + style.Subtitle.Render(ls.label)
}
