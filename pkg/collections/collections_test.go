package collections_test

import (
	"testing"

	"github.com/alkime/practice/pkg/collections"
	"github.com/stretchr/testify/require"
)

func TestApply(t *testing.T) {
	t.Parallel()

	t.Run("basic types", func(t *testing.T) {
		t.Parallel()

		rates := []int{32000, 44100, 48000}
		khz := collections.Apply(rates, func(r int) float64 {
			return float64(r) / 1000
		})

		require.Equal(t, []float64{32, 44.1, 48}, khz)
	})

	t.Run("structs", func(t *testing.T) {
		t.Parallel()

		type device struct {
			Name      string
			IsDefault bool
		}

		devices := []device{
			{Name: "Built-in Microphone", IsDefault: true},
			{Name: "USB Interface", IsDefault: false},
		}

		names := collections.Apply(devices, func(d device) string {
			return d.Name
		})
		require.Equal(t, []string{"Built-in Microphone", "USB Interface"}, names)
	})

	t.Run("empty", func(t *testing.T) {
		t.Parallel()

		out := collections.Apply(nil, func(s string) int { return len(s) })
		require.Empty(t, out)
	})
}

func TestApplyVariadic(t *testing.T) {
	t.Parallel()

	lengths := collections.ApplyVariadic(func(s string) int { return len(s) }, "a", "bb", "ccc")
	require.Equal(t, []int{1, 2, 3}, lengths)
}
