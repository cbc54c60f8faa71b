package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/alkime/practice/internal/audio"
	"github.com/alkime/practice/internal/config"
	"github.com/alkime/practice/internal/content"
	"github.com/alkime/practice/internal/logger"
	"github.com/alkime/practice/internal/preview"
	"github.com/alkime/practice/internal/session"
	"github.com/alkime/practice/internal/store"
	"github.com/alkime/practice/internal/tui"
	"github.com/alkime/practice/internal/tui/components/phases"
	tuiPhases "github.com/alkime/practice/internal/tui/phases"
	"github.com/alkime/practice/internal/workdir"
	tea "github.com/charmbracelet/bubbletea"
)

// RecordCmd is the default command that runs the record/preview TUI.
type RecordCmd struct {
	Language string `help:"Transcription language hint (ISO-639-1, overrides TRANSCRIBE_LANGUAGE)"`
}

// Run executes the record command.
func (c *RecordCmd) Run(cfg *config.Config) error {
	closeLog, err := prepareTUI(cfg)
	if err != nil {
		return err
	}
	defer closeLog()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	language := cfg.TranscribeLanguage
	if c.Language != "" {
		language = c.Language
	}

	modes := audio.NewModeSwitch()
	meter := audio.NewLevelMeter(audio.DefaultMeterWindow, audio.DefaultChannels)

	recorder, err := audio.NewMicRecorder(audio.RecorderConfig{Modes: modes, Meter: meter}) //nolint:exhaustruct // defaults
	if err != nil {
		return fmt.Errorf("failed to create recorder: %w", err)
	}

	rec := session.NewRecordingSession(
		recorder,
		audio.NewMicrophoneGate(audio.NewDevice(nil, nil)),
		modes,
		session.RecordingConfig{ //nolint:exhaustruct // real clock
			OnComplete: func(res session.RecordingResult) {
				slog.Info("take recorded", "uri", res.URI, "seconds", res.DurationSeconds)
			},
			OnError: func(err error) {
				slog.Warn("recording error", "error", err)
			},
		},
	)

	flow := &preview.Flow{
		Transcriber: content.NewTranscriber(content.TranscriberConfig{ //nolint:exhaustruct // default endpoint and fs
			APIKey:   cfg.ResolveAPIKey(),
			Language: language,
		}),
		Store:  store.NewOS(cfg.DataDir),
		Logger: slog.Default(),
	}

	take := &tuiPhases.Take{}
	previewPhase := tuiPhases.NewPreview(ctx, tuiPhases.PreviewConfig{
		Flow:   flow,
		Opener: &audio.Opener{Modes: modes}, //nolint:exhaustruct // host fs and device
		Modes:  modes,
		OnDiscard: func() {
			rec.DiscardRecording()
			removeTake(take.URI)
		},
	}, take)

	p := tea.NewProgram(tui.New(tui.Config{Cancel: cancel},
		phases.NewPhase("Record", tuiPhases.NewRecord(ctx, rec, take).ShowLevels(meter).OnDiscard(removeTake)),
		phases.NewPhase("Preview", previewPhase),
	), tea.WithAltScreen())

	_, runErr := p.Run()

	// the take only survives as the saved copy
	previewPhase.Close()
	last := rec.Snapshot().ResultURI
	rec.DiscardRecording()
	removeTake(take.URI)
	removeTake(last)

	if runErr != nil {
		return fmt.Errorf("failed to run TUI: %w", runErr)
	}

	fmt.Println("finished. bye!")

	return nil
}

// PlayCmd plays the saved recording.
type PlayCmd struct{}

// Run executes the play command.
func (c *PlayCmd) Run(cfg *config.Config) error {
	st := store.NewOS(cfg.DataDir)
	if !st.Exists() {
		return errors.New("no recording saved yet: run 'practice' to record one")
	}

	closeLog, err := prepareTUI(cfg)
	if err != nil {
		return err
	}
	defer closeLog()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	modes := audio.NewModeSwitch()
	player := tuiPhases.NewPreview(ctx, tuiPhases.PreviewConfig{ //nolint:exhaustruct // playback only
		Opener: &audio.Opener{Modes: modes}, //nolint:exhaustruct // host fs and device
		Modes:  modes,
	}, &tuiPhases.Take{URI: st.Path()}) //nolint:exhaustruct // duration unknown
	defer player.Close()

	p := tea.NewProgram(tui.New(tui.Config{Cancel: cancel},
		phases.NewPhase("Play", player),
	), tea.WithAltScreen())

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("failed to run TUI: %w", err)
	}

	return nil
}

// prepareTUI creates the data dir and moves logging into it so log lines
// do not tear the screen.
func prepareTUI(cfg *config.Config) (func(), error) {
	if err := workdir.Prep(cfg.DataDir); err != nil {
		return nil, fmt.Errorf("failed to prepare data directory: %w", err)
	}

	_, closer, err := logger.SetupFile(cfg, filepath.Join(cfg.DataDir, workdir.LogFile))
	if err != nil {
		return nil, fmt.Errorf("failed to set up log file: %w", err)
	}

	return func() { closeQuietly(closer) }, nil
}

func removeTake(uri string) {
	if uri == "" {
		return
	}

	if err := os.Remove(uri); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("failed to remove temporary take", "uri", uri, "error", err)
	}
}

func closeQuietly(c io.Closer) {
	if err := c.Close(); err != nil {
		slog.Debug("failed to close", "error", err)
	}
}
