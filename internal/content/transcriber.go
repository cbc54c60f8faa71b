package content

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/spf13/afero"
)

// ErrMissingAPIKey is returned when no OpenAI key is configured.
var ErrMissingAPIKey = errors.New("API key required: set OPENAI_API_KEY or run `practice config set-key openai`")

// TranscriberConfig configures a Transcriber.
type TranscriberConfig struct {
	APIKey string
	// Language is an optional ISO-639-1 hint, e.g. "es".
	Language string
	// BaseURL overrides the OpenAI endpoint.
	BaseURL string
	Fs      afero.Fs
}

// Transcriber handles Whisper API transcription requests.
type Transcriber struct {
	conf TranscriberConfig
}

// NewTranscriber creates a new transcription client.
func NewTranscriber(conf TranscriberConfig) *Transcriber {
	if conf.Fs == nil {
		conf.Fs = afero.NewOsFs()
	}

	return &Transcriber{conf: conf}
}

// Transcribe transcribes the audio file at path.
func (t *Transcriber) Transcribe(ctx context.Context, path string) (string, error) {
	if t.conf.APIKey == "" {
		return "", ErrMissingAPIKey
	}

	file, err := t.conf.Fs.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open audio file: %w", err)
	}
	defer file.Close()

	return t.TranscribeFile(ctx, file)
}

// TranscribeFile transcribes an audio stream using Whisper API. Readers that
// expose Name() are uploaded under that filename.
func (t *Transcriber) TranscribeFile(ctx context.Context, audioFile io.Reader) (string, error) {
	if t.conf.APIKey == "" {
		return "", ErrMissingAPIKey
	}

	opts := []option.RequestOption{option.WithAPIKey(t.conf.APIKey)}
	if t.conf.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(t.conf.BaseURL))
	}
	client := openai.NewClient(opts...)

	params := openai.AudioTranscriptionNewParams{ //nolint:exhaustruct // optional params left unset
		File:  audioFile,
		Model: openai.AudioModelWhisper1,
	}
	if t.conf.Language != "" {
		params.Language = openai.String(t.conf.Language)
	}

	resp, err := client.Audio.Transcriptions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("failed to create transcription via Whisper API: %w", err)
	}

	return strings.TrimSpace(resp.Text), nil
}
