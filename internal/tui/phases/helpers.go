package phases

import (
	"fmt"
	"strings"
	"time"

	"github.com/alkime/practice/internal/tui/style"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

// refreshInterval matches the session clock resolution.
const refreshInterval = 100 * time.Millisecond

// refreshMsg asks a phase to re-read its session snapshot.
type refreshMsg time.Time

func refreshCmd() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg {
		return refreshMsg(t)
	})
}

func renderKeyHelp(keyBinding key.Binding, suffix ...string) string {
	s := style.Help.Render("[") + style.Key.Render(keyBinding.Help().Key) +
		style.Help.Render("] ") +
		style.Help.Render(keyBinding.Help().Desc)

	s += strings.Join(suffix, "")

	return s
}

// renderHelpLine renders the enabled bindings on one line.
func renderHelpLine(bindings ...key.Binding) string {
	parts := make([]string, 0, len(bindings))
	for _, b := range bindings {
		if b.Enabled() {
			parts = append(parts, renderKeyHelp(b))
		}
	}

	return strings.Join(parts, "  ")
}

// FormatClock renders whole seconds as m:ss.
func FormatClock(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}

	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}

// barWidth fits a progress bar or meter to the terminal, between 10 and 48
// columns.
func barWidth(termWidth int) int {
	return max(10, min(48, termWidth-4))
}
