package audio

import (
	"encoding/binary"
	"sync"

	"github.com/alkime/practice/pkg/uictl"
)

// DefaultMeterWindow holds about 50ms of mono audio at the default rate.
const DefaultMeterWindow = 2048

// LevelMeter keeps a sliding window of the most recent captured samples for
// level displays. Multi-channel input is read from the first channel.
type LevelMeter struct {
	channels int

	mu      sync.Mutex
	samples []int16
	window  int
}

var _ uictl.Levels[int16] = (*LevelMeter)(nil)

func NewLevelMeter(window, channels int) *LevelMeter {
	if window <= 0 {
		window = DefaultMeterWindow
	}
	if channels <= 0 {
		channels = DefaultChannels
	}

	return &LevelMeter{ //nolint:exhaustruct // mu
		channels: channels,
		samples:  make([]int16, 0, window),
		window:   window,
	}
}

// Write appends the S16LE frames in pkt, dropping the oldest samples once
// the window is full.
func (m *LevelMeter) Write(pkt DataPacket) {
	stride := m.channels * bytesPerSample

	m.mu.Lock()
	defer m.mu.Unlock()

	for i := 0; i+bytesPerSample <= len(pkt); i += stride {
		m.samples = append(m.samples, int16(binary.LittleEndian.Uint16(pkt[i:]))) //nolint:gosec // S16LE reinterpretation
	}

	if over := len(m.samples) - m.window; over > 0 {
		m.samples = m.samples[:copy(m.samples, m.samples[over:])]
	}
}

// Read returns a copy of the current window, oldest first.
func (m *LevelMeter) Read() []int16 {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]int16, len(m.samples))
	copy(out, m.samples)

	return out
}

// Reset empties the window.
func (m *LevelMeter) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.samples = m.samples[:0]
}
