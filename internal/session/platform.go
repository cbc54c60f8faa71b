// Package session implements the recording and playback state machines that
// sit between the UI and the host audio platform.
//
// The platform itself (microphone, speaker, permission prompts) is consumed
// through the small interfaces declared here so sessions can be driven by
// fakes in tests and by malgo-backed devices in the binaries.
package session

import (
	"context"
	"errors"
)

// Sentinel errors returned by sessions.
var (
	ErrPermissionDenied = errors.New("microphone permission denied")
	ErrInvalidState     = errors.New("operation not valid in current state")
	ErrNoSource         = errors.New("no audio source")
	ErrNoRecordingFile  = errors.New("recorder produced no file")
)

// Permission is the tri-state answer of a PermissionGate.
type Permission int

const (
	PermissionUnknown Permission = iota
	PermissionGranted
	PermissionDenied
)

func (p Permission) String() string {
	switch p {
	case PermissionGranted:
		return "granted"
	case PermissionDenied:
		return "denied"
	default:
		return "unknown"
	}
}

// PermissionGate queries and requests microphone access from the host.
type PermissionGate interface {
	// Check reports the current permission without prompting.
	Check(ctx context.Context) (Permission, error)
	// Request asks the host for access, prompting if it needs to.
	Request(ctx context.Context) (Permission, error)
}

// AudioMode is the host audio configuration. Recording and playback modes
// are mutually exclusive and have to be switched explicitly.
type AudioMode int

const (
	ModeNone AudioMode = iota
	ModeRecord
	ModePlayback
)

func (m AudioMode) String() string {
	switch m {
	case ModeRecord:
		return "record"
	case ModePlayback:
		return "playback"
	default:
		return "none"
	}
}

// ModeSwitcher configures the host audio mode.
type ModeSwitcher interface {
	SetMode(ctx context.Context, mode AudioMode) error
}

// Recorder is a platform audio recorder. One Recorder may be used for many
// attempts; each Prepare begins a new one.
type Recorder interface {
	// Prepare allocates the capture device and the output file.
	Prepare(ctx context.Context) error
	// Record starts capturing into the prepared output.
	Record(ctx context.Context) error
	// Stop finalizes the output and returns its URI.
	Stop(ctx context.Context) (string, error)
	// Abort releases a prepared or running attempt and drops its output.
	Abort(ctx context.Context)
}

// PlayerStatus is one tick of a player's live status stream.
type PlayerStatus struct {
	Loaded      bool
	Playing     bool
	CurrentTime float64 // seconds
	Duration    float64 // seconds, 0 until loaded
}

// Player is a platform audio player bound to one source.
type Player interface {
	Play(ctx context.Context) error
	Pause() error
	// SeekTo moves the playhead. Out of range values are clamped by the player.
	SeekTo(seconds float64) error
	// Status returns the live status.
	Status() PlayerStatus
	// Subscribe registers fn for every status tick. Ticks are delivered
	// serially, in order.
	Subscribe(fn func(PlayerStatus)) (unsubscribe func())
	Close() error
}

// PlayerOpener creates players for a URI.
type PlayerOpener interface {
	Open(ctx context.Context, uri string) (Player, error)
}
