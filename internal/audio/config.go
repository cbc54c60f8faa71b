package audio

import (
	"github.com/gen2brain/malgo"
)

// DeviceConfig describes the PCM format of a capture or playback device.
type DeviceConfig struct {
	Format           malgo.FormatType
	CaptureChannels  int
	PlaybackChannels int
	SampleRate       int
}
