package audio

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/alkime/practice/internal/session"
	"github.com/alkime/practice/pkg/channels"
	"github.com/alkime/practice/pkg/collections"
	"github.com/gen2brain/malgo"
)

// FillFunc fills out with the next playback samples.
type FillFunc func(out []byte)

type Device interface {
	// EnumerateDevices lists available capture devices.
	// It ignores any device configuration passed in.
	EnumerateDevices(ctx context.Context) ([]Info, error)

	// CaptureInto initializes the underlying device and uses the provided
	// data channel to write packets of sampled bytes into when Start() is called.
	CaptureInto(ctx context.Context, dataC chan<- DataPacket) error

	// PlaybackFrom initializes the underlying device as an output which
	// pulls samples from fill while started.
	PlaybackFrom(ctx context.Context, fill FillFunc) error

	// Start starts the audio device. The mode switch must be in the mode
	// matching the device kind.
	Start(ctx context.Context) error
	// Stop stops the audio device.
	// if the device is not started this is a no-op.
	Stop(ctx context.Context) error

	// IsStarted returns whether the audio device is currently started.
	IsStarted() bool

	// Dealloc deallocates the underlying audio device and frees resources.
	Dealloc(ctx context.Context)
}

type device struct {
	conf  *DeviceConfig
	modes *ModeSwitch
	kind  session.AudioMode

	mu       sync.Mutex
	started  bool
	mgCtx    *malgo.AllocatedContext
	mgDevice *malgo.Device
}

// NewDevice creates an unallocated device. modes may be nil when the device
// is only used for enumeration.
func NewDevice(conf *DeviceConfig, modes *ModeSwitch) Device {
	return &device{conf: conf, modes: modes, kind: session.ModeNone}
}

func (d *device) EnumerateDevices(ctx context.Context) ([]Info, error) {
	// An empty context is enough for listing devices.
	devCtx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize malgo context: %w", err)
	}
	defer uninitializeContext(devCtx)

	captureDevices, err := devCtx.Devices(malgo.Capture)
	if err != nil {
		return nil, fmt.Errorf("failed to get capture devices: %w", err)
	}

	return collections.Apply(captureDevices, malgoDeviceInfoToDeviceInfo), nil
}

func (d *device) CaptureInto(ctx context.Context, dataC chan<- DataPacket) error {
	if dataC == nil {
		return errors.New("data channel is nil. unable to allocate device")
	}

	devCnf := malgo.DefaultDeviceConfig(malgo.Capture)
	devCnf.Capture.Format = d.conf.Format
	devCnf.Capture.Channels = uint32(d.conf.CaptureChannels)
	devCnf.SampleRate = uint32(d.conf.SampleRate)

	callbacks := malgo.DeviceCallbacks{
		Data: func(_, samples []byte, _ uint32) {
			// malgo reuses the sample buffer between callbacks
			packet := make(DataPacket, len(samples))
			copy(packet, samples)
			// never block the device thread; a lagging encoder loses packets
			if err := channels.SendNonBlock(dataC, packet); err != nil {
				slog.Warn("dropped capture packet", "bytes", len(packet), "error", err)
			}
		},
	}

	if err := d.alloc(devCnf, callbacks); err != nil {
		return fmt.Errorf("failed to create malgo capture device: %w", err)
	}
	d.kind = session.ModeRecord

	return nil
}

func (d *device) PlaybackFrom(ctx context.Context, fill FillFunc) error {
	if fill == nil {
		return errors.New("fill func is nil. unable to allocate device")
	}

	devCnf := malgo.DefaultDeviceConfig(malgo.Playback)
	devCnf.Playback.Format = d.conf.Format
	devCnf.Playback.Channels = uint32(d.conf.PlaybackChannels)
	devCnf.SampleRate = uint32(d.conf.SampleRate)

	callbacks := malgo.DeviceCallbacks{
		Data: func(out, _ []byte, _ uint32) {
			fill(out)
		},
	}

	if err := d.alloc(devCnf, callbacks); err != nil {
		return fmt.Errorf("failed to create malgo playback device: %w", err)
	}
	d.kind = session.ModePlayback

	return nil
}

func (d *device) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.mgDevice == nil {
		return errors.New("device nil. have you allocated it with CaptureInto() or PlaybackFrom()?")
	}

	if d.started {
		// noop
		return nil
	}

	if d.modes != nil {
		if err := d.modes.acquire(d.kind); err != nil {
			return err
		}
	}

	if err := d.mgDevice.Start(); err != nil {
		d.releaseMode()
		return fmt.Errorf("failed to start malgo device: %w", err)
	}
	d.started = true

	return nil
}

func (d *device) Stop(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.mgDevice == nil || !d.started {
		// noop
		return nil
	}

	if err := d.mgDevice.Stop(); err != nil {
		return fmt.Errorf("failed to stop malgo device: %w", err)
	}
	d.started = false
	d.releaseMode()

	return nil
}

func (d *device) IsStarted() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.started
}

func (d *device) Dealloc(ctx context.Context) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.mgDevice == nil {
		return
	}

	if d.started {
		d.started = false
		d.releaseMode()
	}

	d.mgDevice.Uninit()
	uninitializeContext(d.mgCtx)
	d.mgDevice = nil
	d.mgCtx = nil
}

func (d *device) releaseMode() {
	if d.modes != nil {
		d.modes.release(d.kind)
	}
}

func (d *device) alloc(devCnf malgo.DeviceConfig, callbacks malgo.DeviceCallbacks) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.mgDevice != nil {
		return errors.New("device already allocated")
	}

	mgCtx, err := malgo.InitContext(nil, malgo.ContextConfig{}, func(msg string) {
		slog.Debug("malgo audio device log", "msg", msg)
	})
	if err != nil {
		return fmt.Errorf("failed to initialize malgo context: %w", err)
	}

	mgDevice, err := malgo.InitDevice(mgCtx.Context, devCnf, callbacks)
	if err != nil {
		uninitializeContext(mgCtx)
		return fmt.Errorf("failed to initialize malgo device: %w", err)
	}

	d.mgCtx = mgCtx
	d.mgDevice = mgDevice

	return nil
}

type Info struct {
	Name        string
	IsDefault   bool
	FormatCount int
	Formats     []string
}

func malgoDeviceInfoToDeviceInfo(mdi malgo.DeviceInfo) Info {
	formats := make([]string, len(mdi.Formats))
	for i, mf := range mdi.Formats {
		formats[i] = fmt.Sprintf("(SampleSizeBytes: %d, Channels: %d, SampleRate: %d)",
			malgo.SampleSizeInBytes(mf.Format),
			mf.Channels, mf.SampleRate)
	}
	return Info{
		Name:        mdi.Name(),
		IsDefault:   mdi.IsDefault != 0,
		FormatCount: int(mdi.FormatCount),
		Formats:     formats,
	}
}

type DataPacket = []byte

func uninitializeContext(deviceCtx *malgo.AllocatedContext) {
	if deviceCtx == nil {
		return
	}

	if err := deviceCtx.Uninit(); err != nil {
		slog.Error("failed to uninitialize malgo context", "error", err)
	}
	deviceCtx.Free()
}
