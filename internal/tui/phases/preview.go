package phases

import (
	"context"
	"log/slog"
	"strings"

	"github.com/alkime/practice/internal/preview"
	"github.com/alkime/practice/internal/session"
	"github.com/alkime/practice/internal/tui/components/labeledspinner"
	"github.com/alkime/practice/internal/tui/components/phases"
	"github.com/alkime/practice/internal/tui/style"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

// seekStep is how far the arrow keys move the playhead, in seconds.
const seekStep = 5

// PreviewConfig wires a Preview phase. A nil Flow disables transcription
// and saving, which makes the phase a plain player.
type PreviewConfig struct {
	Flow   *preview.Flow
	Opener session.PlayerOpener
	Modes  session.ModeSwitcher
	// OnDiscard drops the take; the phase then returns to recording.
	OnDiscard func()
}

// Results of the preview's commands carry the generation of the take they
// were started for; results for an older take are dropped.

type openedMsg struct {
	gen      int
	playback *session.PlaybackSession
	err      error
}

type transcriptMsg struct {
	gen        int
	transcript preview.Transcript
}

type savedMsg struct {
	gen int
	uri string
	err error
}

// Preview plays a finished take back next to its transcript and lets the
// user save or discard it.
type Preview struct {
	ctx      context.Context //nolint:containedctx // bubbletea models outlive any single call
	conf     PreviewConfig
	take     *Take
	keys     previewKeyMap
	spinner  labeledspinner.Model
	progress progress.Model

	gen        int
	playback   *session.PlaybackSession
	snap       session.PlaybackSnapshot
	transcript *preview.Transcript
	savedURI   string
	errMsg     string
}

func NewPreview(ctx context.Context, conf PreviewConfig, take *Take) *Preview {
	return &Preview{ //nolint:exhaustruct // take state set on Init
		ctx:  ctx,
		conf: conf,
		take: take,
		keys: defaultPreviewKeyMap(),
		spinner: labeledspinner.New(spinner.Dot, "Transcribing..."),
		progress: progress.New(
			progress.WithDefaultGradient(),
			progress.WithWidth(40),
			progress.WithoutPercentage(),
		),
	}
}

// Init binds the phase to the current take. It runs again every time the
// record phase hands over a new one.
func (p *Preview) Init() tea.Cmd {
	p.gen++
	p.closePlayback()
	p.snap = session.PlaybackSnapshot{} //nolint:exhaustruct // zero snapshot until opened
	p.transcript = nil
	p.savedURI = ""
	p.errMsg = ""

	cmds := []tea.Cmd{p.openCmd(), refreshCmd()}
	if p.conf.Flow != nil {
		cmds = append(cmds, p.spinner.Init(), p.transcribeCmd())
	}

	return tea.Batch(cmds...)
}

func (p *Preview) openCmd() tea.Cmd {
	uri, gen := p.take.URI, p.gen

	return func() tea.Msg {
		playback, err := session.NewPlaybackSession(p.ctx, uri, p.conf.Opener, p.conf.Modes, session.PlaybackConfig{
			OnComplete: func() { slog.Debug("preview playback complete", "uri", uri) },
			OnError:    nil,
			Logger:     slog.Default(),
		})

		return openedMsg{gen: gen, playback: playback, err: err}
	}
}

func (p *Preview) transcribeCmd() tea.Cmd {
	uri, gen := p.take.URI, p.gen

	return func() tea.Msg {
		return transcriptMsg{gen: gen, transcript: p.conf.Flow.Transcribe(p.ctx, uri)}
	}
}

func (p *Preview) saveCmd() tea.Cmd {
	uri, gen := p.take.URI, p.gen

	return func() tea.Msg {
		stored, err := p.conf.Flow.Save(p.ctx, uri)
		return savedMsg{gen: gen, uri: stored, err: err}
	}
}

func (p *Preview) Update(teaMsg tea.Msg) (tea.Model, tea.Cmd) {
	switch typedMsg := teaMsg.(type) {
	case openedMsg:
		if typedMsg.gen != p.gen {
			closeStale(typedMsg.playback)
			return p, nil
		}
		if typedMsg.err != nil {
			p.errMsg = typedMsg.err.Error()
			return p, nil
		}
		p.playback = typedMsg.playback
		p.snap = p.playback.Snapshot()
		return p, nil

	case transcriptMsg:
		if typedMsg.gen != p.gen {
			return p, nil
		}
		transcript := typedMsg.transcript
		p.transcript = &transcript
		return p, nil

	case savedMsg:
		if typedMsg.gen != p.gen {
			return p, nil
		}
		if typedMsg.err != nil {
			p.errMsg = typedMsg.err.Error()
			return p, nil
		}
		p.savedURI = typedMsg.uri
		return p, nil

	case tea.WindowSizeMsg:
		p.progress.Width = barWidth(typedMsg.Width)
		return p, nil

	case refreshMsg:
		if p.playback != nil {
			p.snap = p.playback.Snapshot()
		}
		return p, refreshCmd()

	case tea.KeyMsg:
		return p, p.handleKey(typedMsg)

	case spinner.TickMsg:
		if p.transcript != nil {
			return p, nil
		}
		var cmd tea.Cmd
		p.spinner, cmd = p.spinner.Update(typedMsg)
		return p, cmd
	}

	return p, nil
}

func (p *Preview) handleKey(km tea.KeyMsg) tea.Cmd {
	if key.Matches(km, p.keys.Discard) && p.conf.Flow != nil {
		p.gen++
		p.closePlayback()
		if p.conf.OnDiscard != nil {
			p.conf.OnDiscard()
		}
		p.take.URI = ""
		return phases.PrevPhaseCmd
	}

	if key.Matches(km, p.keys.Save) && p.conf.Flow != nil {
		if p.savedURI != "" {
			return nil
		}
		return p.saveCmd()
	}

	if p.playback == nil {
		return nil
	}

	// errors land in the snapshot's LastError
	switch {
	case key.Matches(km, p.keys.Toggle):
		_ = p.playback.TogglePlayPause(p.ctx)
	case key.Matches(km, p.keys.Back):
		_ = p.playback.SeekTo(float64(p.snap.PositionSeconds - seekStep))
	case key.Matches(km, p.keys.Forward):
		_ = p.playback.SeekTo(float64(p.snap.PositionSeconds + seekStep))
	case key.Matches(km, p.keys.Reset):
		p.playback.Reset()
	default:
		return nil
	}

	p.snap = p.playback.Snapshot()

	return nil
}

// Close releases the playback session.
func (p *Preview) Close() {
	p.closePlayback()
}

func (p *Preview) closePlayback() {
	if p.playback == nil {
		return
	}

	if err := p.playback.Close(); err != nil {
		slog.Warn("failed to close playback", "error", err)
	}
	p.playback = nil
}

func closeStale(playback *session.PlaybackSession) {
	if playback == nil {
		return
	}

	if err := playback.Close(); err != nil {
		slog.Warn("failed to close stale playback", "error", err)
	}
}

func (p *Preview) View() string {
	var sb strings.Builder

	if p.conf.Flow != nil {
		sb.WriteString(style.Title.Render("Preview"))
	} else {
		sb.WriteString(style.Title.Render("Playback"))
	}
	sb.WriteString(" ")
	sb.WriteString(style.Muted.Render(p.take.URI))
	sb.WriteString("\n\n")

	sb.WriteString(p.stateLabel())
	sb.WriteString(" ")
	sb.WriteString(style.Clock.Render(FormatClock(p.snap.PositionSeconds) + " / " + FormatClock(p.snap.DurationSeconds)))
	sb.WriteString("\n")
	sb.WriteString(p.progress.ViewAs(p.snap.Progress))
	sb.WriteString("\n\n")

	if p.conf.Flow != nil {
		switch {
		case p.transcript == nil:
			sb.WriteString(p.spinner.View())
		case p.transcript.Failed:
			sb.WriteString(style.Warning.Render(p.transcript.Text))
		default:
			sb.WriteString(style.Transcript.Render(p.transcript.Text))
		}
		sb.WriteString("\n\n")
	}

	if p.savedURI != "" {
		sb.WriteString(style.Success.Render("Saved to " + p.savedURI))
		sb.WriteString("\n")
	}
	for _, msg := range []string{p.errMsg, p.snap.LastError} {
		if msg != "" {
			sb.WriteString(style.Error.Render("Error: " + msg))
			sb.WriteString("\n")
		}
	}

	sb.WriteString("\n")
	sb.WriteString(p.helpLine())

	return sb.String()
}

func (p *Preview) stateLabel() string {
	switch p.snap.State {
	case session.PlaybackPlaying:
		return style.Success.Render("Playing")
	case session.PlaybackPaused:
		return style.Warning.Render("Paused")
	case session.PlaybackEnded:
		return style.Subtitle.Render("Ended")
	case session.PlaybackLoading:
		return style.Subtitle.Render("Loading")
	default:
		return style.Subtitle.Render("Stopped")
	}
}

func (p *Preview) helpLine() string {
	toggle := p.keys.Toggle
	if p.snap.IsPlaying {
		toggle.SetHelp("space", "pause")
	} else {
		toggle.SetHelp("space", "play")
	}

	save := p.keys.Save
	save.SetEnabled(p.conf.Flow != nil && p.savedURI == "")

	discard := p.keys.Discard
	discard.SetEnabled(p.conf.Flow != nil)

	return renderHelpLine(toggle, p.keys.Back, p.keys.Forward, p.keys.Reset, save, discard, DefaultKeyMap().Quit)
}
