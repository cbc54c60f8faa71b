// Package preview holds the steps between a finished take and the stored
// slot: transcribing the take for review and saving it on confirmation.
package preview

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// FailedTranscript is shown in place of a transcript that could not be made.
const FailedTranscript = "Transcription failed"

// ErrSaveFailed wraps any storage failure while saving a take.
var ErrSaveFailed = errors.New("save failed")

// Transcriber turns an audio file into text.
type Transcriber interface {
	Transcribe(ctx context.Context, path string) (string, error)
}

// Saver persists a take into the recording slot and returns its URI.
type Saver interface {
	Save(ctx context.Context, sourceURI string) (string, error)
}

// Transcript is the text shown under a take. Failed transcripts carry the
// placeholder text.
type Transcript struct {
	Text   string
	Failed bool
}

// Flow reviews and saves finished takes.
type Flow struct {
	Transcriber Transcriber
	Store       Saver
	Logger      *slog.Logger
}

func (f *Flow) logger() *slog.Logger {
	if f.Logger == nil {
		return slog.Default()
	}

	return f.Logger
}

// Transcribe never fails: errors are logged and the placeholder returned.
func (f *Flow) Transcribe(ctx context.Context, uri string) Transcript {
	if f.Transcriber == nil {
		return Transcript{Text: FailedTranscript, Failed: true}
	}

	text, err := f.Transcriber.Transcribe(ctx, uri)
	if err != nil {
		f.logger().Warn("transcription failed", "uri", uri, "error", err)
		return Transcript{Text: FailedTranscript, Failed: true}
	}

	return Transcript{Text: text, Failed: false}
}

// Save stores the take at uri and returns the stored URI.
func (f *Flow) Save(ctx context.Context, uri string) (string, error) {
	stored, err := f.Store.Save(ctx, uri)
	if err != nil {
		f.logger().Error("failed to save recording", "uri", uri, "error", err)
		return "", fmt.Errorf("%w: %w", ErrSaveFailed, err)
	}

	f.logger().Info("recording saved", "uri", stored)

	return stored, nil
}
