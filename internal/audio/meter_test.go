package audio_test

import (
	"encoding/binary"
	"testing"

	"github.com/alkime/practice/internal/audio"
	"github.com/stretchr/testify/assert"
)

func pcm(samples ...int16) audio.DataPacket {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(s)) //nolint:gosec // S16LE reinterpretation
	}
	return out
}

func TestLevelMeter(t *testing.T) {
	t.Parallel()

	t.Run("keeps the newest window", func(t *testing.T) {
		t.Parallel()

		m := audio.NewLevelMeter(3, 1)
		m.Write(pcm(1, 2))
		m.Write(pcm(3, 4, -5))

		assert.Equal(t, []int16{3, 4, -5}, m.Read())
	})

	t.Run("reads the first channel", func(t *testing.T) {
		t.Parallel()

		m := audio.NewLevelMeter(10, 2)
		m.Write(pcm(1, 100, 2, 200))

		assert.Equal(t, []int16{1, 2}, m.Read())
	})

	t.Run("read is a copy", func(t *testing.T) {
		t.Parallel()

		m := audio.NewLevelMeter(10, 1)
		m.Write(pcm(7))
		m.Read()[0] = 0

		assert.Equal(t, []int16{7}, m.Read())
	})

	t.Run("reset", func(t *testing.T) {
		t.Parallel()

		m := audio.NewLevelMeter(0, 0)
		m.Write(pcm(1, 2, 3))
		m.Reset()

		assert.Empty(t, m.Read())
	})
}
