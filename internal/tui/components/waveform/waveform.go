// Package waveform renders live input levels as rows of block characters.
package waveform

import (
	"math"
	"strings"

	"github.com/alkime/practice/internal/tui/style"
	"github.com/alkime/practice/pkg/uictl"
)

// blockChars holds the 8 fill levels of one cell; index 0 is empty.
const blockChars = " ▁▂▃▄▅▆▇█"

const maxAmplitude = math.MaxInt16

// Model draws the samples of a Levels source, oldest on the left. It has no
// ticker of its own; the owning view redraws it on refresh.
type Model struct {
	levels uictl.Levels[int16]
	width  int
	height int
}

// New creates a waveform width columns wide and height rows tall.
func New(levels uictl.Levels[int16], width, height int) Model {
	return Model{
		levels: levels,
		width:  max(1, width),
		height: max(1, height),
	}
}

func (m Model) View() string {
	var samples []int16
	if m.levels != nil {
		samples = m.levels.Read()
	}

	if len(samples) == 0 {
		return m.renderEmpty()
	}

	return m.render(m.columnLevels(samples))
}

func (m Model) render(levels []int) string {
	runes := []rune(blockChars)
	rows := make([]string, m.height)

	for row := range rows {
		// row 0 is the top; each row covers 8 levels
		base := (m.height - 1 - row) * 8

		var sb strings.Builder
		for _, level := range levels {
			sb.WriteRune(runes[min(8, max(0, level-base))])
		}
		rows[row] = style.Recording.Render(sb.String())
	}

	return strings.Join(rows, "\n")
}

// columnLevels buckets samples into columns and maps each bucket's peak to
// 0..height*8.
func (m Model) columnLevels(samples []int16) []int {
	levels := make([]int, m.width)
	bucket := max(1, len(samples)/m.width)

	for col := range levels {
		start := col * bucket
		if start >= len(samples) {
			break
		}

		levels[col] = scale(peak(samples[start:min(start+bucket, len(samples))]), m.height*8)
	}

	return levels
}

func (m Model) renderEmpty() string {
	rows := make([]string, m.height)
	for row := range rows {
		fill := " "
		if row == m.height-1 {
			fill = "▁"
		}
		rows[row] = style.Muted.Render(strings.Repeat(fill, m.width))
	}

	return strings.Join(rows, "\n")
}

// peak returns the largest absolute amplitude in samples.
func peak(samples []int16) int {
	var top int
	for _, s := range samples {
		top = max(top, abs(int(s)))
	}

	return min(top, maxAmplitude)
}

// scale maps an amplitude onto 0..maxLevel along a square-root curve so
// quiet speech still moves the meter.
func scale(amp, maxLevel int) int {
	if amp <= 0 {
		return 0
	}

	return min(int(math.Sqrt(float64(amp)/maxAmplitude)*float64(maxLevel)), maxLevel)
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
