package session_test

import (
	"context"
	"errors"
	"testing"

	"github.com/alkime/practice/internal/session"
	"github.com/alkime/practice/internal/session/sessiontest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type playbackFixture struct {
	session   *session.PlaybackSession
	player    *sessiontest.Player
	opener    *sessiontest.Opener
	modes     *sessiontest.Modes
	completes int
	errs      []error
}

func newPlaybackFixture(t *testing.T, duration float64) *playbackFixture {
	t.Helper()

	f := &playbackFixture{
		player: sessiontest.NewPlayer(duration),
		modes:  &sessiontest.Modes{},
	}
	f.opener = &sessiontest.Opener{Player: f.player}

	s, err := session.NewPlaybackSession(context.Background(), "/data/recordings/my-recording.mp3",
		f.opener, f.modes, session.PlaybackConfig{
			OnComplete: func() { f.completes++ },
			OnError:    func(err error) { f.errs = append(f.errs, err) },
			Logger:     quietLogger,
		})
	require.NoError(t, err)
	f.session = s

	return f
}

func TestProgress(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name               string
		position, duration float64
		want               float64
	}{
		{name: "unknown duration", position: 3, duration: 0, want: 0},
		{name: "negative duration", position: 3, duration: -1, want: 0},
		{name: "start", position: 0, duration: 10, want: 0},
		{name: "middle", position: 2.5, duration: 10, want: 0.25},
		{name: "end", position: 10, duration: 10, want: 1},
		{name: "past end", position: 12, duration: 10, want: 1},
		{name: "negative position", position: -1, duration: 10, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.InDelta(t, tt.want, session.Progress(tt.position, tt.duration), 1e-9)
		})
	}
}

func TestDeriveState(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		status session.PlayerStatus
		want   session.PlaybackState
	}{
		{name: "not loaded", status: session.PlayerStatus{}, want: session.PlaybackLoading},
		{name: "loaded at start", status: session.PlayerStatus{Loaded: true, Duration: 10}, want: session.PlaybackIdle},
		{
			name:   "playing",
			status: session.PlayerStatus{Loaded: true, Playing: true, CurrentTime: 1, Duration: 10},
			want:   session.PlaybackPlaying,
		},
		{
			name:   "playing wins over end",
			status: session.PlayerStatus{Loaded: true, Playing: true, CurrentTime: 10, Duration: 10},
			want:   session.PlaybackPlaying,
		},
		{
			name:   "paused mid-way",
			status: session.PlayerStatus{Loaded: true, CurrentTime: 4, Duration: 10},
			want:   session.PlaybackPaused,
		},
		{
			name:   "ended",
			status: session.PlayerStatus{Loaded: true, CurrentTime: 10, Duration: 10},
			want:   session.PlaybackEnded,
		},
		{
			name:   "no duration never ends",
			status: session.PlayerStatus{Loaded: true, CurrentTime: 3},
			want:   session.PlaybackPaused,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, session.DeriveState(tt.status))
		})
	}
}

func TestPlaybackSession_NoSource(t *testing.T) {
	t.Parallel()

	opener := &sessiontest.Opener{}
	modes := &sessiontest.Modes{}

	s, err := session.NewPlaybackSession(context.Background(), "", opener, modes, session.PlaybackConfig{})
	require.NoError(t, err)

	snap := s.Snapshot()
	assert.Equal(t, session.PlaybackIdle, snap.State)
	assert.Zero(t, snap.Progress)
	assert.Empty(t, opener.Opened)
	assert.Empty(t, modes.History)

	require.ErrorIs(t, s.Play(context.Background()), session.ErrNoSource)
	require.ErrorIs(t, s.Pause(), session.ErrNoSource)
	require.ErrorIs(t, s.SeekTo(1), session.ErrNoSource)
	require.ErrorIs(t, s.TogglePlayPause(context.Background()), session.ErrNoSource)
	s.Reset()
	require.NoError(t, s.Close())
}

func TestPlaybackSession_OpenError(t *testing.T) {
	t.Parallel()

	opener := &sessiontest.Opener{Err: errors.New("corrupt file")}

	_, err := session.NewPlaybackSession(context.Background(), "/tmp/x.mp3", opener,
		&sessiontest.Modes{}, session.PlaybackConfig{Logger: quietLogger})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "corrupt file")
}

func TestPlaybackSession_LoadingUntilLoaded(t *testing.T) {
	t.Parallel()

	player := sessiontest.NewPlayer(0)
	player.Emit(session.PlayerStatus{})

	s, err := session.NewPlaybackSession(context.Background(), "/tmp/x.mp3",
		&sessiontest.Opener{Player: player}, &sessiontest.Modes{}, session.PlaybackConfig{Logger: quietLogger})
	require.NoError(t, err)
	assert.Equal(t, session.PlaybackLoading, s.Snapshot().State)

	player.Emit(session.PlayerStatus{Loaded: true, Duration: 8})

	snap := s.Snapshot()
	assert.Equal(t, session.PlaybackIdle, snap.State)
	assert.Equal(t, 8, snap.DurationSeconds)
}

func TestPlaybackSession_PlayPauseEnd(t *testing.T) {
	t.Parallel()

	f := newPlaybackFixture(t, 10)
	ctx := context.Background()

	assert.Equal(t, []string{"/data/recordings/my-recording.mp3"}, f.opener.Opened)
	assert.Equal(t, session.PlaybackIdle, f.session.Snapshot().State)

	require.NoError(t, f.session.Play(ctx))
	assert.Equal(t, session.ModePlayback, f.modes.Current())

	snap := f.session.Snapshot()
	assert.Equal(t, session.PlaybackPlaying, snap.State)
	assert.True(t, snap.IsPlaying)

	f.player.Advance(2.6)
	require.NoError(t, f.session.Pause())

	snap = f.session.Snapshot()
	assert.Equal(t, session.PlaybackPaused, snap.State)
	assert.Equal(t, 2, snap.PositionSeconds)
	assert.Equal(t, 10, snap.DurationSeconds)
	assert.InDelta(t, 0.26, snap.Progress, 1e-9)

	require.NoError(t, f.session.Play(ctx))
	f.player.Advance(100)

	snap = f.session.Snapshot()
	assert.Equal(t, session.PlaybackEnded, snap.State)
	assert.InDelta(t, 1.0, snap.Progress, 1e-9)
	assert.Equal(t, 1, f.completes)

	// further ticks at the end do not fire completion again
	f.player.Emit(f.player.Status())
	assert.Equal(t, 1, f.completes)
}

func TestPlaybackSession_RestartOnReplay(t *testing.T) {
	t.Parallel()

	f := newPlaybackFixture(t, 10)
	ctx := context.Background()

	require.NoError(t, f.session.Play(ctx))
	f.player.Advance(10)
	require.Equal(t, session.PlaybackEnded, f.session.Snapshot().State)

	require.NoError(t, f.session.Play(ctx))

	assert.Equal(t, []float64{0}, f.player.Seeks)
	snap := f.session.Snapshot()
	assert.Equal(t, session.PlaybackPlaying, snap.State)
	assert.Equal(t, 0, snap.PositionSeconds)

	f.player.Advance(10)
	assert.Equal(t, 2, f.completes, "each completed pass fires once")
}

func TestPlaybackSession_PlayMidwayDoesNotSeek(t *testing.T) {
	t.Parallel()

	f := newPlaybackFixture(t, 10)
	ctx := context.Background()

	require.NoError(t, f.session.Play(ctx))
	f.player.Advance(4)
	require.NoError(t, f.session.Pause())
	require.NoError(t, f.session.Play(ctx))

	assert.Empty(t, f.player.Seeks)
	assert.Equal(t, 4, f.session.Snapshot().PositionSeconds)
}

func TestPlaybackSession_TogglePlayPause(t *testing.T) {
	t.Parallel()

	f := newPlaybackFixture(t, 10)
	ctx := context.Background()

	require.NoError(t, f.session.TogglePlayPause(ctx))
	assert.True(t, f.player.Status().Playing)

	require.NoError(t, f.session.TogglePlayPause(ctx))
	assert.False(t, f.player.Status().Playing)
}

func TestPlaybackSession_ToggleUsesLiveFlag(t *testing.T) {
	t.Parallel()

	f := newPlaybackFixture(t, 10)
	ctx := context.Background()

	require.NoError(t, f.session.Play(ctx))

	// detach the status stream so the session's derived state goes stale
	require.NoError(t, f.session.Close())

	require.NoError(t, f.session.TogglePlayPause(ctx))
	assert.False(t, f.player.Status().Playing)
	assert.Equal(t, session.PlaybackPlaying, f.session.Snapshot().State)
}

func TestPlaybackSession_SeekAndReset(t *testing.T) {
	t.Parallel()

	f := newPlaybackFixture(t, 10)
	ctx := context.Background()

	require.NoError(t, f.session.SeekTo(7))
	snap := f.session.Snapshot()
	assert.Equal(t, 7, snap.PositionSeconds)
	assert.Equal(t, session.PlaybackPaused, snap.State)

	// the player clamps out of range positions
	require.NoError(t, f.session.SeekTo(50))
	assert.Equal(t, session.PlaybackEnded, f.session.Snapshot().State)

	require.NoError(t, f.session.Play(ctx))
	f.session.Reset()

	snap = f.session.Snapshot()
	assert.Equal(t, session.PlaybackIdle, snap.State)
	assert.Equal(t, 0, snap.PositionSeconds)
	assert.False(t, snap.IsPlaying)
}

func TestPlaybackSession_ResetSwallowsErrors(t *testing.T) {
	t.Parallel()

	f := newPlaybackFixture(t, 10)
	f.player.SeekErr = errors.New("seek broke")
	f.player.PauseErr = errors.New("pause broke")

	f.session.Reset()

	assert.Equal(t, session.PlaybackIdle, f.session.Snapshot().State)
	assert.Empty(t, f.session.Snapshot().LastError)
	assert.Empty(t, f.errs)
}

func TestPlaybackSession_Errors(t *testing.T) {
	t.Parallel()

	t.Run("play error leaves state", func(t *testing.T) {
		t.Parallel()
		f := newPlaybackFixture(t, 10)
		f.player.PlayErr = errors.New("device gone")

		err := f.session.Play(context.Background())
		require.Error(t, err)

		snap := f.session.Snapshot()
		assert.Equal(t, session.PlaybackIdle, snap.State)
		assert.Contains(t, snap.LastError, "device gone")
		assert.Len(t, f.errs, 1)
	})

	t.Run("mode switch error", func(t *testing.T) {
		t.Parallel()
		f := newPlaybackFixture(t, 10)
		f.modes.Err = errors.New("recording active")

		err := f.session.Play(context.Background())
		require.Error(t, err)
		assert.Contains(t, f.session.Snapshot().LastError, "failed to configure audio for playback")
		assert.False(t, f.player.Status().Playing)
	})

	t.Run("pause error is captured", func(t *testing.T) {
		t.Parallel()
		f := newPlaybackFixture(t, 10)
		require.NoError(t, f.session.Play(context.Background()))
		f.player.PauseErr = errors.New("stuck")

		require.Error(t, f.session.Pause())
		snap := f.session.Snapshot()
		assert.Equal(t, session.PlaybackPlaying, snap.State)
		assert.Contains(t, snap.LastError, "stuck")
	})

	t.Run("seek error is captured", func(t *testing.T) {
		t.Parallel()
		f := newPlaybackFixture(t, 10)
		f.player.SeekErr = errors.New("not seekable")

		require.Error(t, f.session.SeekTo(3))
		assert.Contains(t, f.session.Snapshot().LastError, "not seekable")
		assert.Len(t, f.errs, 1)
	})

	t.Run("successful play clears error", func(t *testing.T) {
		t.Parallel()
		f := newPlaybackFixture(t, 10)
		f.player.SeekErr = errors.New("not seekable")
		require.Error(t, f.session.SeekTo(3))

		require.NoError(t, f.session.Play(context.Background()))
		assert.Empty(t, f.session.Snapshot().LastError)
	})
}

func TestPlaybackSession_Close(t *testing.T) {
	t.Parallel()

	f := newPlaybackFixture(t, 10)
	require.Equal(t, 1, f.player.Listeners())

	require.NoError(t, f.session.Close())
	assert.Zero(t, f.player.Listeners())
	assert.True(t, f.player.Closed())
}
