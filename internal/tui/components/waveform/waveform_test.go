package waveform_test

import (
	"strings"
	"testing"

	"github.com/alkime/practice/internal/tui/components/waveform"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	lipgloss.SetColorProfile(termenv.Ascii)
}

// mockLevels implements uictl.Levels[int16] for testing.
type mockLevels struct {
	samples []int16
}

func (m *mockLevels) Read() []int16 {
	return m.samples
}

func TestWaveform_Empty(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		levels *mockLevels
	}{
		{name: "no samples", levels: &mockLevels{}},
		{name: "nil source", levels: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var m waveform.Model
			if tt.levels == nil {
				m = waveform.New(nil, 5, 1)
			} else {
				m = waveform.New(tt.levels, 5, 1)
			}

			assert.Equal(t, "▁▁▁▁▁", m.View())
		})
	}
}

func TestWaveform_Levels(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		samples []int16
		width   int
		want    string
	}{
		{name: "silence", samples: []int16{0, 0, 0, 0, 0}, width: 5, want: "     "},
		{name: "full scale", samples: []int16{32767, 32767, 32767}, width: 3, want: "███"},
		{name: "negative full scale", samples: []int16{-32768, -32768, -32768}, width: 3, want: "███"},
		{name: "fewer samples than columns", samples: []int16{32767}, width: 3, want: "█  "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			m := waveform.New(&mockLevels{samples: tt.samples}, tt.width, 1)
			assert.Equal(t, tt.want, m.View())
		})
	}
}

func TestWaveform_QuietIsVisible(t *testing.T) {
	t.Parallel()

	// ~3% amplitude still draws a bar on the square-root curve
	m := waveform.New(&mockLevels{samples: []int16{0, 1000, 32767}}, 3, 1)

	runes := []rune(m.View())
	require.Len(t, runes, 3)
	assert.Equal(t, ' ', runes[0])
	assert.NotEqual(t, ' ', runes[1])
	assert.Equal(t, '█', runes[2])
}

func TestWaveform_Buckets(t *testing.T) {
	t.Parallel()

	samples := make([]int16, 100)
	samples[95] = 32767

	m := waveform.New(&mockLevels{samples: samples}, 10, 1)

	// the peak of each bucket of 10 wins
	assert.Equal(t, "         █", m.View())
}

func TestWaveform_MultiRow(t *testing.T) {
	t.Parallel()

	m := waveform.New(&mockLevels{samples: []int16{32767, 0}}, 2, 3)

	lines := strings.Split(m.View(), "\n")
	require.Len(t, lines, 3)
	for _, line := range lines {
		assert.Equal(t, "█ ", line)
	}
}

func TestWaveform_HeightDefaultsToOne(t *testing.T) {
	t.Parallel()

	m := waveform.New(&mockLevels{samples: []int16{32767}}, 5, 0)

	view := m.View()
	assert.NotEmpty(t, view)
	assert.NotContains(t, view, "\n")
}
