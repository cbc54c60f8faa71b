package audio

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/alkime/practice/internal/session"
	"github.com/alkime/practice/internal/workdir"
	"github.com/gen2brain/malgo"
	"github.com/spf13/afero"
)

const captureBuffer = 64

var errNotPrepared = errors.New("recorder not prepared")

// RecorderConfig configures a MicRecorder. Zero fields get defaults.
type RecorderConfig struct {
	Encoder EncoderConfig
	Modes   *ModeSwitch
	Fs      afero.Fs
	// Meter, when set, sees the samples of every take.
	Meter *LevelMeter

	// TempPath names the file a take is encoded into.
	TempPath func() string
	// NewDevice allocates the capture device.
	NewDevice func(conf *DeviceConfig, modes *ModeSwitch) Device
}

func (c RecorderConfig) withDefaults() RecorderConfig {
	c.Encoder = c.Encoder.WithDefaults()
	if c.Modes == nil {
		c.Modes = NewModeSwitch()
	}
	if c.Fs == nil {
		c.Fs = afero.NewOsFs()
	}
	if c.TempPath == nil {
		c.TempPath = workdir.TempRecordingPath
	}
	if c.NewDevice == nil {
		c.NewDevice = NewDevice
	}

	return c
}

// MicRecorder captures the default microphone into an MP3 file.
type MicRecorder struct {
	conf RecorderConfig

	mu      sync.Mutex
	path    string
	file    afero.File
	dataC   chan DataPacket
	dev     Device
	encoder *StreamingEncoder
	cancel  context.CancelFunc
	running bool
}

var _ session.Recorder = (*MicRecorder)(nil)

func NewMicRecorder(conf RecorderConfig) (*MicRecorder, error) {
	conf = conf.withDefaults()
	if err := conf.Encoder.Validate(); err != nil {
		return nil, fmt.Errorf("invalid recorder config: %w", err)
	}

	return &MicRecorder{conf: conf}, nil //nolint:exhaustruct // take state set by Prepare()
}

// Prepare allocates the capture device and output file for a new take.
// A take that was prepared but never stopped is discarded first.
func (r *MicRecorder) Prepare(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.teardownLocked(ctx)

	path := r.conf.TempPath()
	file, err := r.conf.Fs.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create recording file: %w", err)
	}

	dataC := make(chan DataPacket, captureBuffer)
	encoder, err := NewStreamingEncoder(r.conf.Encoder, dataC, file)
	if err != nil {
		r.discardFile(file, path)
		return fmt.Errorf("failed to create encoder: %w", err)
	}
	if r.conf.Meter != nil {
		r.conf.Meter.Reset()
		encoder.Observe(r.conf.Meter.Write)
	}

	dev := r.conf.NewDevice(&DeviceConfig{
		Format:          malgo.FormatS16,
		CaptureChannels: r.conf.Encoder.Channels,
		SampleRate:      r.conf.Encoder.SampleRate,
	}, r.conf.Modes)
	if err := dev.CaptureInto(ctx, dataC); err != nil {
		r.discardFile(file, path)
		return fmt.Errorf("failed to allocate capture device: %w", err)
	}

	r.path, r.file, r.dataC, r.dev, r.encoder = path, file, dataC, dev, encoder
	slog.Debug("recorder prepared", "path", path)

	return nil
}

// Record starts capturing into the prepared take.
func (r *MicRecorder) Record(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.dev == nil {
		return errNotPrepared
	}
	if r.running {
		return nil
	}

	encCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	if err := r.encoder.Start(encCtx); err != nil {
		cancel()
		return fmt.Errorf("failed to start encoder: %w", err)
	}
	r.cancel = cancel

	if err := r.dev.Start(ctx); err != nil {
		return fmt.Errorf("failed to start capture: %w", err)
	}
	r.running = true

	return nil
}

// Stop finishes the take and returns the path of the encoded file, or an
// empty path when nothing was captured.
func (r *MicRecorder) Stop(ctx context.Context) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.dev == nil {
		return "", errNotPrepared
	}

	if err := r.dev.Stop(ctx); err != nil {
		return "", fmt.Errorf("failed to stop capture: %w", err)
	}

	path, file, encoder := r.path, r.file, r.encoder
	cancel := r.releaseLocked(ctx)
	started := cancel != nil

	var encErr error
	if started {
		encErr = encoder.Wait()
		cancel()
	}
	if err := file.Close(); err != nil && encErr == nil {
		encErr = fmt.Errorf("failed to close recording file: %w", err)
	}

	if encErr != nil {
		r.removeFile(path)
		return "", fmt.Errorf("failed to encode recording: %w", encErr)
	}

	if !started || encoder.Encoded() == 0 {
		r.removeFile(path)
		slog.Debug("recorder stopped with no audio")
		return "", nil
	}

	slog.Info("recording finished", "path", path, "duration", encoder.Encoded())

	return path, nil
}

// Abort discards the current take, if any.
func (r *MicRecorder) Abort(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.teardownLocked(ctx)
}

func (r *MicRecorder) teardownLocked(ctx context.Context) {
	if r.dev == nil {
		return
	}

	if err := r.dev.Stop(ctx); err != nil {
		slog.Warn("failed to stop capture device", "error", err)
	}

	path, file, encoder := r.path, r.file, r.encoder
	if cancel := r.releaseLocked(ctx); cancel != nil {
		cancel()
		_ = encoder.Wait()
	}

	r.discardFile(file, path)
}

// releaseLocked frees the device, ends the capture stream and returns the
// encoder's cancel func, nil if the encoder never started.
func (r *MicRecorder) releaseLocked(ctx context.Context) context.CancelFunc {
	r.dev.Dealloc(ctx)
	close(r.dataC)

	cancel := r.cancel
	r.path, r.file, r.dataC, r.dev, r.encoder, r.cancel = "", nil, nil, nil, nil, nil
	r.running = false

	return cancel
}

func (r *MicRecorder) discardFile(file afero.File, path string) {
	if err := file.Close(); err != nil {
		slog.Debug("failed to close discarded recording", "error", err)
	}
	r.removeFile(path)
}

func (r *MicRecorder) removeFile(path string) {
	if err := r.conf.Fs.Remove(path); err != nil {
		slog.Warn("failed to remove recording file", "path", path, "error", err)
	}
}
