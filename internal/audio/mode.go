package audio

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/alkime/practice/internal/session"
)

var (
	// ErrModeBusy is returned when switching modes while a device of the
	// current mode is still running.
	ErrModeBusy = errors.New("audio device of another mode is running")
	// ErrWrongMode is returned when a device is started in a mode it does
	// not belong to.
	ErrWrongMode = errors.New("audio mode not configured for device")
)

// ModeSwitch is the process-wide audio configuration. Capture devices only
// start in record mode and playback devices only in playback mode; switching
// is refused while a device of the other kind runs.
type ModeSwitch struct {
	mu     sync.Mutex
	mode   session.AudioMode
	active map[session.AudioMode]int
}

func NewModeSwitch() *ModeSwitch {
	return &ModeSwitch{
		mode:   session.ModeNone,
		active: make(map[session.AudioMode]int),
	}
}

// SetMode switches the audio configuration.
func (m *ModeSwitch) SetMode(_ context.Context, mode session.AudioMode) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.mode == mode {
		return nil
	}

	for kind, n := range m.active {
		if kind != mode && n > 0 {
			return fmt.Errorf("cannot switch to %s: %w (%d %s)", mode, ErrModeBusy, n, kind)
		}
	}

	slog.Debug("audio mode switched", "from", m.mode, "to", mode)
	m.mode = mode

	return nil
}

// Mode returns the current configuration.
func (m *ModeSwitch) Mode() session.AudioMode {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.mode
}

func (m *ModeSwitch) acquire(kind session.AudioMode) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.mode != kind {
		return fmt.Errorf("%w: mode is %s, device needs %s", ErrWrongMode, m.mode, kind)
	}
	m.active[kind]++

	return nil
}

func (m *ModeSwitch) release(kind session.AudioMode) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active[kind] > 0 {
		m.active[kind]--
	}
}
