package audio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/alkime/practice/internal/session"
	"github.com/gen2brain/malgo"
	gomp3 "github.com/hajimehoshi/go-mp3"
	"github.com/spf13/afero"
)

const (
	// StatusInterval is how often a playing Player publishes its status.
	StatusInterval = 100 * time.Millisecond

	// decoded output is always S16LE stereo
	playbackChannels = 2
	playbackFrame    = bytesPerSample * playbackChannels
)

var errPlayerClosed = errors.New("player closed")

// pcmSource is a seekable stream of S16LE stereo frames.
type pcmSource interface {
	io.ReadSeeker
	Length() int64
	SampleRate() int
}

// Opener opens MP3 files for playback on the default output device.
type Opener struct {
	Fs    afero.Fs
	Modes *ModeSwitch
	// NewDevice allocates the output device. Defaults to NewDevice.
	NewDevice func(conf *DeviceConfig, modes *ModeSwitch) Device
}

var _ session.PlayerOpener = (*Opener)(nil)

func (o *Opener) Open(ctx context.Context, uri string) (session.Player, error) {
	fs := o.Fs
	if fs == nil {
		fs = afero.NewOsFs()
	}
	newDevice := o.NewDevice
	if newDevice == nil {
		newDevice = NewDevice
	}

	file, err := fs.Open(uri)
	if err != nil {
		return nil, fmt.Errorf("failed to open audio file: %w", err)
	}

	dec, err := gomp3.NewDecoder(file)
	if err != nil {
		closeQuietly(file)
		return nil, fmt.Errorf("failed to decode audio file: %w", err)
	}

	dev := newDevice(&DeviceConfig{
		Format:           malgo.FormatS16,
		PlaybackChannels: playbackChannels,
		SampleRate:       dec.SampleRate(),
	}, o.Modes)

	player, err := newPlayer(ctx, dec, file, dev, StatusInterval)
	if err != nil {
		closeQuietly(file)
		return nil, err
	}

	return player, nil
}

// Player plays one decoded source through an output device and publishes
// its status while playing.
type Player struct {
	src    pcmSource
	closer io.Closer
	dev    Device
	length int64
	rate   int

	mu      sync.Mutex
	pos     int64
	playing bool
	closed  bool

	emitMu     sync.Mutex
	listeners  map[int]func(session.PlayerStatus)
	nextID     int
	pending    []session.PlayerStatus
	delivering bool

	endC      chan struct{}
	done      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

var _ session.Player = (*Player)(nil)

func newPlayer(ctx context.Context, src pcmSource, closer io.Closer, dev Device, interval time.Duration) (*Player, error) {
	if src.SampleRate() <= 0 {
		return nil, errors.New("source has no sample rate")
	}

	length := src.Length()
	if length < 0 {
		return nil, errors.New("source length unknown")
	}

	p := &Player{ //nolint:exhaustruct // playback state starts zeroed
		src:       src,
		closer:    closer,
		dev:       dev,
		length:    length - length%playbackFrame,
		rate:      src.SampleRate(),
		listeners: make(map[int]func(session.PlayerStatus)),
		endC:      make(chan struct{}, 1),
		done:      make(chan struct{}),
	}

	if err := dev.PlaybackFrom(ctx, p.fill); err != nil {
		return nil, fmt.Errorf("failed to allocate playback device: %w", err)
	}

	p.wg.Go(func() { p.monitor(interval) })

	return p, nil
}

// fill is called from the device thread for every output period.
func (p *Player) fill(out []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.playing {
		clear(out)
		return
	}

	n, err := io.ReadFull(p.src, out)
	p.pos += int64(n)
	clear(out[n:])

	if err == nil && p.pos < p.length {
		return
	}

	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		slog.Warn("failed to decode audio", "error", err)
	}

	p.playing = false
	p.pos = p.length
	select {
	case p.endC <- struct{}{}:
	default:
	}
}

func (p *Player) monitor(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-p.done:
			return
		case <-ticker.C:
			if p.Status().Playing {
				p.emit()
			}
		case <-p.endC:
			if err := p.dev.Stop(context.Background()); err != nil {
				slog.Warn("failed to stop playback device", "error", err)
			}
			p.emit()
		}
	}
}

// Play starts the output device from the current position, rewinding first
// when the source has been played to the end.
func (p *Player) Play(ctx context.Context) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return errPlayerClosed
	}
	if p.pos >= p.length {
		if err := p.seekLocked(0); err != nil {
			p.mu.Unlock()
			return err
		}
	}
	p.playing = true
	p.mu.Unlock()

	if err := p.dev.Start(ctx); err != nil {
		p.mu.Lock()
		p.playing = false
		p.mu.Unlock()

		return fmt.Errorf("failed to start playback: %w", err)
	}

	p.emit()

	return nil
}

func (p *Player) Pause() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return errPlayerClosed
	}
	p.playing = false
	p.mu.Unlock()

	if err := p.dev.Stop(context.Background()); err != nil {
		return fmt.Errorf("failed to pause playback: %w", err)
	}

	p.emit()

	return nil
}

// SeekTo moves the playhead, clamped to the source.
func (p *Player) SeekTo(seconds float64) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return errPlayerClosed
	}

	frame := int64(seconds * float64(p.rate))
	err := p.seekLocked(max(0, min(frame*playbackFrame, p.length)))
	p.mu.Unlock()

	if err != nil {
		return err
	}

	p.emit()

	return nil
}

func (p *Player) seekLocked(offset int64) error {
	if _, err := p.src.Seek(offset, io.SeekStart); err != nil {
		return fmt.Errorf("failed to seek audio: %w", err)
	}
	p.pos = offset

	return nil
}

func (p *Player) Status() session.PlayerStatus {
	p.mu.Lock()
	defer p.mu.Unlock()

	return session.PlayerStatus{
		Loaded:      true,
		Playing:     p.playing,
		CurrentTime: p.seconds(p.pos),
		Duration:    p.seconds(p.length),
	}
}

func (p *Player) seconds(offset int64) float64 {
	return float64(offset/playbackFrame) / float64(p.rate)
}

func (p *Player) Subscribe(fn func(session.PlayerStatus)) func() {
	p.emitMu.Lock()
	defer p.emitMu.Unlock()

	id := p.nextID
	p.nextID++
	p.listeners[id] = fn

	return func() {
		p.emitMu.Lock()
		defer p.emitMu.Unlock()

		delete(p.listeners, id)
	}
}

// emit delivers the current status to every listener, serially and in
// subscription order. Listeners run without emitMu held, so they may call
// back into the player; an emit made while another is delivering is queued
// and delivered by that goroutine once the current round returns.
func (p *Player) emit() {
	p.emitMu.Lock()
	p.pending = append(p.pending, p.Status())
	if p.delivering {
		p.emitMu.Unlock()
		return
	}
	p.delivering = true

	for len(p.pending) > 0 {
		status := p.pending[0]
		p.pending = p.pending[1:]

		listeners := make([]func(session.PlayerStatus), 0, len(p.listeners))
		for _, id := range slices.Sorted(maps.Keys(p.listeners)) {
			listeners = append(listeners, p.listeners[id])
		}
		p.emitMu.Unlock()

		for _, fn := range listeners {
			fn(status)
		}

		p.emitMu.Lock()
	}

	p.delivering = false
	p.emitMu.Unlock()
}

// Close stops playback and releases the device and source.
func (p *Player) Close() error {
	var err error

	p.closeOnce.Do(func() {
		p.mu.Lock()
		p.closed = true
		p.playing = false
		p.mu.Unlock()

		close(p.done)
		p.wg.Wait()

		if stopErr := p.dev.Stop(context.Background()); stopErr != nil {
			slog.Warn("failed to stop playback device", "error", stopErr)
		}
		p.dev.Dealloc(context.Background())

		if p.closer != nil {
			if closeErr := p.closer.Close(); closeErr != nil {
				err = fmt.Errorf("failed to close audio source: %w", closeErr)
			}
		}
	})

	return err
}

func closeQuietly(c io.Closer) {
	if err := c.Close(); err != nil {
		slog.Debug("failed to close", "error", err)
	}
}
