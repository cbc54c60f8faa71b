package preview_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/alkime/practice/internal/preview"
	"github.com/alkime/practice/internal/store"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type transcriberFunc func(ctx context.Context, path string) (string, error)

func (f transcriberFunc) Transcribe(ctx context.Context, path string) (string, error) {
	return f(ctx, path)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestFlow_Transcribe(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		transcriber preview.Transcriber
		expected    preview.Transcript
	}{
		{
			name: "success",
			transcriber: transcriberFunc(func(_ context.Context, path string) (string, error) {
				return "text of " + path, nil
			}),
			expected: preview.Transcript{Text: "text of /tmp/take.mp3"},
		},
		{
			name: "failure becomes placeholder",
			transcriber: transcriberFunc(func(context.Context, string) (string, error) {
				return "", errors.New("network down")
			}),
			expected: preview.Transcript{Text: preview.FailedTranscript, Failed: true},
		},
		{
			name:        "no transcriber",
			transcriber: nil,
			expected:    preview.Transcript{Text: preview.FailedTranscript, Failed: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			flow := &preview.Flow{Transcriber: tt.transcriber, Logger: quietLogger()}

			assert.Equal(t, tt.expected, flow.Transcribe(context.Background(), "/tmp/take.mp3"))
		})
	}
}

func TestFlow_SaveStoresTake(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/tmp/take.mp3", []byte("take"), 0o600))
	st := store.New(fs, "/data")

	flow := &preview.Flow{Store: st, Logger: quietLogger()}

	uri, err := flow.Save(context.Background(), "/tmp/take.mp3")
	require.NoError(t, err)
	assert.Equal(t, st.Path(), uri)

	data, err := afero.ReadFile(fs, uri)
	require.NoError(t, err)
	assert.Equal(t, "take", string(data))
}

func TestFlow_SaveFailure(t *testing.T) {
	t.Parallel()

	flow := &preview.Flow{Store: store.New(afero.NewMemMapFs(), "/data"), Logger: quietLogger()}

	uri, err := flow.Save(context.Background(), "/tmp/missing.mp3")
	require.ErrorIs(t, err, preview.ErrSaveFailed)
	assert.Empty(t, uri)
}
