package audio_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/alkime/practice/internal/audio"
	gomp3 "github.com/hajimehoshi/go-mp3"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeCapture is a capture-only audio.Device fed by the test.
type fakeCapture struct {
	mu       sync.Mutex
	dataC    chan<- audio.DataPacket
	conf     *audio.DeviceConfig
	started  bool
	deallocs int
	allocErr error
	startErr error
}

func (f *fakeCapture) EnumerateDevices(context.Context) ([]audio.Info, error) {
	return []audio.Info{{Name: "fake", IsDefault: true}}, nil
}

func (f *fakeCapture) CaptureInto(_ context.Context, dataC chan<- audio.DataPacket) error {
	if f.allocErr != nil {
		return f.allocErr
	}
	f.dataC = dataC
	return nil
}

func (f *fakeCapture) PlaybackFrom(context.Context, audio.FillFunc) error {
	return errors.New("capture only")
}

func (f *fakeCapture) Start(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.startErr != nil {
		return f.startErr
	}
	f.started = true
	return nil
}

func (f *fakeCapture) Stop(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.started = false
	return nil
}

func (f *fakeCapture) IsStarted() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.started
}

func (f *fakeCapture) Dealloc(context.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deallocs++
}

func (f *fakeCapture) push(t *testing.T, pcm []byte) {
	t.Helper()
	require.True(t, f.IsStarted(), "capture not started")
	for i := 0; i < len(pcm); i += 4410 {
		f.dataC <- pcm[i:min(i+4410, len(pcm))]
	}
}

type recorderFixture struct {
	fs    afero.Fs
	dev   *fakeCapture
	meter *audio.LevelMeter
	rec   *audio.MicRecorder
}

func newRecorderFixture(t *testing.T) *recorderFixture {
	t.Helper()

	f := &recorderFixture{
		fs:    afero.NewMemMapFs(),
		dev:   &fakeCapture{},
		meter: audio.NewLevelMeter(100, 1),
	}
	n := 0
	rec, err := audio.NewMicRecorder(audio.RecorderConfig{
		Fs:    f.fs,
		Meter: f.meter,
		TempPath: func() string {
			n++
			return fmt.Sprintf("/tmp/take-%d.mp3", n)
		},
		NewDevice: func(conf *audio.DeviceConfig, _ *audio.ModeSwitch) audio.Device {
			f.dev.conf = conf
			return f.dev
		},
	})
	require.NoError(t, err)
	f.rec = rec

	return f
}

func TestNewMicRecorder_RejectsBadEncoderConfig(t *testing.T) {
	t.Parallel()

	_, err := audio.NewMicRecorder(audio.RecorderConfig{
		Encoder: audio.EncoderConfig{SampleRate: 16000},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid recorder config")
}

func TestMicRecorder_RecordsTake(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newRecorderFixture(t)

	require.NoError(t, f.rec.Prepare(ctx))
	assert.Equal(t, audio.DefaultSampleRate, f.dev.conf.SampleRate)
	assert.Equal(t, 1, f.dev.conf.CaptureChannels)

	require.NoError(t, f.rec.Record(ctx))
	f.dev.push(t, tone(44100/2))

	path, err := f.rec.Stop(ctx)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/take-1.mp3", path)
	assert.False(t, f.dev.IsStarted())
	assert.Equal(t, 1, f.dev.deallocs)

	data, err := afero.ReadFile(f.fs, path)
	require.NoError(t, err)

	dec, err := gomp3.NewDecoder(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, audio.DefaultSampleRate, dec.SampleRate())

	levels := f.meter.Read()
	assert.Len(t, levels, 100)
	assert.NotEqual(t, make([]int16, 100), levels)

	// the next take starts from an empty meter
	require.NoError(t, f.rec.Prepare(ctx))
	assert.Empty(t, f.meter.Read())
	f.rec.Abort(ctx)
}

func TestMicRecorder_StopWithoutAudio(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newRecorderFixture(t)

	require.NoError(t, f.rec.Prepare(ctx))
	require.NoError(t, f.rec.Record(ctx))

	path, err := f.rec.Stop(ctx)
	require.NoError(t, err)
	assert.Empty(t, path)

	exists, err := afero.Exists(f.fs, "/tmp/take-1.mp3")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestMicRecorder_AbortDiscardsTake(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newRecorderFixture(t)

	require.NoError(t, f.rec.Prepare(ctx))
	require.NoError(t, f.rec.Record(ctx))
	f.dev.push(t, tone(4410))

	f.rec.Abort(ctx)

	exists, err := afero.Exists(f.fs, "/tmp/take-1.mp3")
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = f.rec.Stop(ctx)
	require.Error(t, err)

	// aborting with nothing prepared is a no-op
	f.rec.Abort(ctx)
}

func TestMicRecorder_PrepareReplacesUnfinishedTake(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newRecorderFixture(t)

	require.NoError(t, f.rec.Prepare(ctx))
	require.NoError(t, f.rec.Prepare(ctx))

	first, err := afero.Exists(f.fs, "/tmp/take-1.mp3")
	require.NoError(t, err)
	assert.False(t, first)

	second, err := afero.Exists(f.fs, "/tmp/take-2.mp3")
	require.NoError(t, err)
	assert.True(t, second)
}

func TestMicRecorder_Errors(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("record before prepare", func(t *testing.T) {
		t.Parallel()

		f := newRecorderFixture(t)
		require.Error(t, f.rec.Record(ctx))
	})

	t.Run("device allocation fails", func(t *testing.T) {
		t.Parallel()

		f := newRecorderFixture(t)
		f.dev.allocErr = errors.New("no microphone")

		err := f.rec.Prepare(ctx)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no microphone")

		exists, existsErr := afero.Exists(f.fs, "/tmp/take-1.mp3")
		require.NoError(t, existsErr)
		assert.False(t, exists)
	})

	t.Run("device start fails", func(t *testing.T) {
		t.Parallel()

		f := newRecorderFixture(t)
		f.dev.startErr = audio.ErrWrongMode

		require.NoError(t, f.rec.Prepare(ctx))
		require.ErrorIs(t, f.rec.Record(ctx), audio.ErrWrongMode)

		f.rec.Abort(ctx)
		assert.Equal(t, 1, f.dev.deallocs)
	})
}
