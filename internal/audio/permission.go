package audio

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/alkime/practice/internal/session"
)

// MicrophoneGate grants microphone access when the host exposes at least one
// capture device. Desktop hosts have no prompt, so Request probes instead.
type MicrophoneGate struct {
	dev Device

	mu     sync.Mutex
	answer session.Permission
}

var _ session.PermissionGate = (*MicrophoneGate)(nil)

// NewMicrophoneGate probes capture devices through dev's enumeration.
func NewMicrophoneGate(dev Device) *MicrophoneGate {
	return &MicrophoneGate{dev: dev, answer: session.PermissionUnknown} //nolint:exhaustruct // mu
}

// Check returns the answer of the last Request, unknown before the first.
func (g *MicrophoneGate) Check(context.Context) (session.Permission, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.answer, nil
}

func (g *MicrophoneGate) Request(ctx context.Context) (session.Permission, error) {
	infos, err := g.dev.EnumerateDevices(ctx)
	if err != nil {
		return session.PermissionUnknown, fmt.Errorf("failed to probe microphone: %w", err)
	}

	answer := session.PermissionDenied
	if len(infos) > 0 {
		answer = session.PermissionGranted
	}
	slog.Debug("microphone probed", "devices", len(infos), "permission", answer)

	g.mu.Lock()
	g.answer = answer
	g.mu.Unlock()

	return answer, nil
}
