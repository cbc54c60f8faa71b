package audio

import (
	"errors"
	"fmt"
)

const (
	// DefaultSampleRate is 44.1kHz, an MPEG-1 rate that every decoder
	// used for playback accepts.
	DefaultSampleRate = 44100
	// DefaultChannels is mono.
	DefaultChannels = 1
	// DefaultBufferThreshold is 8KB = 4096 mono samples, ~93ms @ 44.1kHz.
	DefaultBufferThreshold = 8192

	bytesPerSample = 2
)

// mpeg1Rates are the sample rates the playback decoder supports.
var mpeg1Rates = map[int]bool{32000: true, 44100: true, 48000: true}

// EncoderConfig configures the MP3 streaming encoder.
type EncoderConfig struct {
	// SampleRate is the PCM sample rate in Hz. Must be an MPEG-1 rate.
	SampleRate int

	// Channels is 1 (mono, duplicated to stereo on encode) or 2.
	Channels int

	// BufferThreshold is the number of PCM bytes to accumulate before encoding.
	BufferThreshold int
}

// Validate returns an error if the config is invalid.
func (c EncoderConfig) Validate() error {
	if c.SampleRate <= 0 {
		return errors.New("sample rate must be positive")
	}

	if !mpeg1Rates[c.SampleRate] {
		return fmt.Errorf("sample rate %d is not playable (use 32000, 44100 or 48000)", c.SampleRate)
	}

	if c.Channels != 1 && c.Channels != 2 {
		return errors.New("only mono or stereo input is supported")
	}

	if c.BufferThreshold <= 0 {
		return errors.New("buffer threshold must be positive")
	}

	if c.BufferThreshold%(bytesPerSample*c.Channels) != 0 {
		return errors.New("buffer threshold must hold whole frames")
	}

	return nil
}

// WithDefaults returns a config with default values applied to zero fields.
func (c EncoderConfig) WithDefaults() EncoderConfig {
	if c.SampleRate == 0 {
		c.SampleRate = DefaultSampleRate
	}

	if c.Channels == 0 {
		c.Channels = DefaultChannels
	}

	if c.BufferThreshold == 0 {
		c.BufferThreshold = DefaultBufferThreshold
	}

	return c
}

// frameBytes is the size of one PCM frame across all channels.
func (c EncoderConfig) frameBytes() int {
	return bytesPerSample * c.Channels
}
