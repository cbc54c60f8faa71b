package session

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
)

// PlaybackState is a state of a PlaybackSession.
type PlaybackState string

const (
	PlaybackIdle    PlaybackState = "idle"
	PlaybackLoading PlaybackState = "loading"
	PlaybackPlaying PlaybackState = "playing"
	PlaybackPaused  PlaybackState = "paused"
	PlaybackEnded   PlaybackState = "ended"
)

// PlaybackConfig carries the callbacks of a playback session.
type PlaybackConfig struct {
	// OnComplete fires once each time playback reaches the end.
	OnComplete func()
	OnError    func(error)
	Logger     *slog.Logger
}

// PlaybackSnapshot is a consistent copy of a playback session's public fields.
type PlaybackSnapshot struct {
	SourceURI       string
	State           PlaybackState
	IsPlaying       bool
	PositionSeconds int
	DurationSeconds int
	Progress        float64
	LastError       string
}

// PlaybackSession plays a single audio source. Its derived fields are
// recomputed from the player's status stream on every tick.
type PlaybackSession struct {
	sourceURI string
	player    Player
	modes     ModeSwitcher
	conf      PlaybackConfig
	logger    *slog.Logger

	unsubscribe func()

	mu        sync.Mutex
	state     PlaybackState
	status    PlayerStatus
	lastError string
}

// NewPlaybackSession binds a session to uri. An empty uri yields an idle
// session with no player.
func NewPlaybackSession(
	ctx context.Context,
	uri string,
	opener PlayerOpener,
	modes ModeSwitcher,
	conf PlaybackConfig,
) (*PlaybackSession, error) {
	logger := conf.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &PlaybackSession{ //nolint:exhaustruct // player bound below
		sourceURI: uri,
		modes:     modes,
		conf:      conf,
		logger:    logger.With("uri", uri),
		state:     PlaybackIdle,
	}

	if uri == "" {
		return s, nil
	}

	if err := modes.SetMode(ctx, ModePlayback); err != nil {
		// play() configures the mode again, so this is not fatal here
		s.logger.Warn("failed to configure audio for playback", "error", err)
	}

	player, err := opener.Open(ctx, uri)
	if err != nil {
		return nil, fmt.Errorf("failed to open player for %s: %w", uri, err)
	}

	s.player = player
	s.state = PlaybackLoading
	s.unsubscribe = player.Subscribe(s.onStatus)
	s.onStatus(player.Status())

	return s, nil
}

// SourceURI returns the bound source, or "" for an idle session.
func (s *PlaybackSession) SourceURI() string {
	return s.sourceURI
}

// Snapshot returns the current public state.
func (s *PlaybackSession) Snapshot() PlaybackSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	return PlaybackSnapshot{
		SourceURI:       s.sourceURI,
		State:           s.state,
		IsPlaying:       s.status.Playing,
		PositionSeconds: int(math.Floor(s.status.CurrentTime)),
		DurationSeconds: int(math.Floor(s.status.Duration)),
		Progress:        Progress(s.status.CurrentTime, s.status.Duration),
		LastError:       s.lastError,
	}
}

// Progress returns position/duration clamped to [0,1], or 0 when the
// duration is unknown.
func Progress(position, duration float64) float64 {
	if duration <= 0 {
		return 0
	}

	return math.Max(0, math.Min(1, position/duration))
}

// DeriveState maps a player status onto a playback state.
func DeriveState(status PlayerStatus) PlaybackState {
	switch {
	case !status.Loaded:
		return PlaybackLoading
	case status.Playing:
		return PlaybackPlaying
	case status.CurrentTime > 0 && status.Duration > 0 && status.CurrentTime >= status.Duration:
		return PlaybackEnded
	case status.CurrentTime > 0:
		return PlaybackPaused
	default:
		return PlaybackIdle
	}
}

func (s *PlaybackSession) onStatus(status PlayerStatus) {
	s.mu.Lock()
	prev := s.state
	s.status = status
	s.state = DeriveState(status)
	ended := s.state == PlaybackEnded && prev != PlaybackEnded
	s.mu.Unlock()

	if ended {
		s.logger.Debug("playback ended")
		if s.conf.OnComplete != nil {
			s.conf.OnComplete()
		}
	}
}

// Play starts or resumes playback. When the playhead sits at the end the
// source restarts from the beginning.
func (s *PlaybackSession) Play(ctx context.Context) error {
	if s.player == nil {
		return ErrNoSource
	}

	s.setLastError("")

	if err := s.modes.SetMode(ctx, ModePlayback); err != nil {
		return s.fail(fmt.Errorf("failed to configure audio for playback: %w", err))
	}

	status := s.player.Status()
	if status.Duration > 0 && status.CurrentTime >= status.Duration {
		if err := s.player.SeekTo(0); err != nil {
			return s.fail(fmt.Errorf("failed to rewind: %w", err))
		}
	}

	if err := s.player.Play(ctx); err != nil {
		return s.fail(fmt.Errorf("failed to play audio: %w", err))
	}

	return nil
}

// Pause stops playback at the current position.
func (s *PlaybackSession) Pause() error {
	if s.player == nil {
		return ErrNoSource
	}

	if err := s.player.Pause(); err != nil {
		return s.fail(fmt.Errorf("failed to pause audio: %w", err))
	}

	return nil
}

// TogglePlayPause pauses when the player reports it is playing, otherwise
// plays. The player's live flag is used rather than the derived state.
func (s *PlaybackSession) TogglePlayPause(ctx context.Context) error {
	if s.player == nil {
		return ErrNoSource
	}

	if s.player.Status().Playing {
		return s.Pause()
	}

	return s.Play(ctx)
}

// SeekTo moves the playhead to seconds.
func (s *PlaybackSession) SeekTo(seconds float64) error {
	if s.player == nil {
		return ErrNoSource
	}

	if err := s.player.SeekTo(seconds); err != nil {
		return s.fail(fmt.Errorf("failed to seek: %w", err))
	}

	return nil
}

// Reset rewinds and pauses. Errors are ignored.
func (s *PlaybackSession) Reset() {
	if s.player == nil {
		return
	}

	if err := s.player.SeekTo(0); err != nil {
		s.logger.Debug("reset seek failed", "error", err)
	}
	if err := s.player.Pause(); err != nil {
		s.logger.Debug("reset pause failed", "error", err)
	}

	s.mu.Lock()
	s.state = PlaybackIdle
	s.mu.Unlock()
}

// Close tears the session down and releases the player.
func (s *PlaybackSession) Close() error {
	if s.player == nil {
		return nil
	}

	if s.unsubscribe != nil {
		s.unsubscribe()
	}

	if err := s.player.Close(); err != nil {
		return fmt.Errorf("failed to close player: %w", err)
	}

	return nil
}

func (s *PlaybackSession) setLastError(msg string) {
	s.mu.Lock()
	s.lastError = msg
	s.mu.Unlock()
}

func (s *PlaybackSession) fail(err error) error {
	s.setLastError(err.Error())
	s.logger.Warn("playback operation failed", "error", err)

	if s.conf.OnError != nil {
		s.conf.OnError(err)
	}

	return err
}
