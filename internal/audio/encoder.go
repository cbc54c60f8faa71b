package audio

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	mp3encoder "github.com/braheezy/shine-mp3/pkg/mp3"
)

// StreamingEncoder reads captured PCM packets from a channel, buffers them to
// a threshold, then encodes MP3 frames to an io.Writer.
//
// The encoder stops when the input channel is closed (flushing what is
// buffered) or when the context is cancelled (dropping it).
type StreamingEncoder struct {
	config EncoderConfig
	input  <-chan DataPacket
	output io.Writer

	encoder *mp3encoder.Encoder
	buffer  []byte
	frames  atomic.Int64
	observe func(DataPacket)

	wg      sync.WaitGroup
	errOnce sync.Once
	err     error
}

// NewStreamingEncoder creates a new streaming MP3 encoder reading S16LE PCM.
func NewStreamingEncoder(
	config EncoderConfig,
	input <-chan DataPacket,
	output io.Writer,
) (*StreamingEncoder, error) {
	if input == nil {
		return nil, errors.New("input channel cannot be nil")
	}

	if output == nil {
		return nil, errors.New("output writer cannot be nil")
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid encoder config: %w", err)
	}

	return &StreamingEncoder{ //nolint:exhaustruct // encoder, wg, errOnce, err set on Start()
		config: config,
		input:  input,
		output: output,
		buffer: make([]byte, 0, config.BufferThreshold),
	}, nil
}

// Observe registers fn to see every packet the encoder consumes, on the
// encoding goroutine. Call it before Start.
func (e *StreamingEncoder) Observe(fn func(DataPacket)) {
	e.observe = fn
}

// Start begins the encoding goroutine. Returns error if already started.
func (e *StreamingEncoder) Start(ctx context.Context) error {
	if e.encoder != nil {
		return errors.New("encoder already started")
	}

	// shine-mp3 mis-steps through mono input, so always encode stereo.
	e.encoder = mp3encoder.NewEncoder(e.config.SampleRate, 2)

	e.wg.Go(func() {
		for {
			select {
			case data, ok := <-e.input:
				if !ok {
					if err := e.Flush(); err != nil {
						e.setError(err)
					}
					return
				}

				if e.observe != nil {
					e.observe(data)
				}
				e.buffer = append(e.buffer, data...)

				if len(e.buffer) >= e.config.BufferThreshold {
					if err := e.encodeBatch(); err != nil {
						e.setError(err)
						return
					}
				}

			case <-ctx.Done():
				e.setError(fmt.Errorf("encoder context cancelled: %w", ctx.Err()))
				return
			}
		}
	})

	return nil
}

// encodeBatch encodes the whole frames in the buffer and keeps any
// trailing partial frame for the next batch.
func (e *StreamingEncoder) encodeBatch() error {
	frameBytes := e.config.frameBytes()
	whole := len(e.buffer) - len(e.buffer)%frameBytes
	if whole == 0 {
		return nil
	}

	samples := make([]int16, whole/bytesPerSample)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(e.buffer[i*bytesPerSample:])) //nolint:gosec // S16LE reinterpretation
	}

	stereo := samples
	if e.config.Channels == 1 {
		stereo = make([]int16, len(samples)*2)
		for i, sample := range samples {
			stereo[i*2] = sample
			stereo[i*2+1] = sample
		}
	}

	if err := e.encoder.Write(e.output, stereo); err != nil {
		return fmt.Errorf("failed to encode audio to MP3: %w", err)
	}

	e.frames.Add(int64(whole / frameBytes))
	slog.Debug("encoded MP3 batch", "frames", whole/frameBytes)

	rest := copy(e.buffer, e.buffer[whole:])
	e.buffer = e.buffer[:rest]

	return nil
}

// Flush encodes any remaining buffered frames. Safe to call multiple times.
func (e *StreamingEncoder) Flush() error {
	if err := e.encodeBatch(); err != nil {
		return fmt.Errorf("failed to flush MP3 encoder: %w", err)
	}

	return nil
}

// Encoded returns the duration of audio encoded so far.
func (e *StreamingEncoder) Encoded() time.Duration {
	return time.Duration(e.frames.Load()) * time.Second / time.Duration(e.config.SampleRate)
}

// Wait blocks until encoding completes and returns any error that occurred.
func (e *StreamingEncoder) Wait() error {
	e.wg.Wait()

	return e.err
}

// setError records the first error that occurs.
func (e *StreamingEncoder) setError(err error) {
	e.errOnce.Do(func() {
		e.err = err
		slog.Debug("streaming encoder error", "error", err)
	})
}
