// Package phases provides the TUI phases of a practice session.
package phases

import (
	"context"
	"strings"

	"github.com/alkime/practice/internal/session"
	"github.com/alkime/practice/internal/tui/components/phases"
	"github.com/alkime/practice/internal/tui/components/waveform"
	"github.com/alkime/practice/internal/tui/style"
	"github.com/alkime/practice/pkg/uictl"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

// Take hands the finished recording from the record phase to the preview.
type Take struct {
	URI             string
	DurationSeconds int
}

// permissionMsg reports the permission cached by CheckPermission.
type permissionMsg struct{ perm session.Permission }

// startedMsg reports the outcome of StartRecording.
type startedMsg struct{ err error }

// stoppedMsg reports the outcome of StopRecording.
type stoppedMsg struct {
	result session.RecordingResult
	err    error
}

// Record drives a RecordingSession: space starts and stops, d discards and
// enter moves a finished take on to the preview phase.
type Record struct {
	ctx     context.Context //nolint:containedctx // bubbletea models outlive any single call
	rec     *session.RecordingSession
	take    *Take
	keys    recordKeyMap
	spinner spinner.Model
	meter   *waveform.Model
	levels  uictl.Levels[int16]
	discard func(uri string)
	snap    session.RecordingSnapshot
	busy    bool
}

const (
	meterWidth  = 48
	meterHeight = 2
)

func NewRecord(ctx context.Context, rec *session.RecordingSession, take *Take) *Record {
	s := spinner.New()
	s.Spinner = spinner.Points

	return &Record{
		ctx:     ctx,
		rec:     rec,
		take:    take,
		keys:    defaultRecordKeyMap(),
		spinner: s,
		meter:   nil,
		levels:  nil,
		discard: nil,
		snap:    rec.Snapshot(),
		busy:    false,
	}
}

// ShowLevels draws the input level from levels while recording.
func (r *Record) ShowLevels(levels uictl.Levels[int16]) *Record {
	meter := waveform.New(levels, meterWidth, meterHeight)
	r.meter = &meter
	r.levels = levels

	return r
}

// OnDiscard calls fn with the file of a stopped take when it is discarded.
func (r *Record) OnDiscard(fn func(uri string)) *Record {
	r.discard = fn

	return r
}

// Init refreshes from the session, which may have been reset by a discard
// in a later phase, and checks the microphone permission without prompting.
func (r *Record) Init() tea.Cmd {
	r.snap = r.rec.Snapshot()

	return tea.Batch(r.spinner.Tick, refreshCmd(), r.permissionCmd())
}

func (r *Record) Update(teaMsg tea.Msg) (tea.Model, tea.Cmd) {
	switch typedMsg := teaMsg.(type) {
	case tea.KeyMsg:
		return r, r.handleKey(typedMsg)

	case permissionMsg:
		r.snap = r.rec.Snapshot()
		return r, nil

	case startedMsg, stoppedMsg:
		r.busy = false
		r.snap = r.rec.Snapshot()
		return r, nil

	case tea.WindowSizeMsg:
		if r.meter != nil {
			meter := waveform.New(r.levels, barWidth(typedMsg.Width), meterHeight)
			r.meter = &meter
		}
		return r, nil

	case refreshMsg:
		r.snap = r.rec.Snapshot()
		return r, refreshCmd()

	case spinner.TickMsg:
		var cmd tea.Cmd
		r.spinner, cmd = r.spinner.Update(typedMsg)
		return r, cmd
	}

	return r, nil
}

func (r *Record) handleKey(km tea.KeyMsg) tea.Cmd {
	if r.busy {
		return nil
	}

	switch {
	case key.Matches(km, r.keys.Toggle):
		switch r.snap.State {
		case session.RecordingIdle:
			r.busy = true
			return r.startCmd()
		case session.RecordingRecording:
			r.busy = true
			return r.stopCmd()
		default:
			return nil
		}

	case key.Matches(km, r.keys.Discard):
		uri := r.rec.Snapshot().ResultURI
		r.rec.DiscardRecording()
		r.snap = r.rec.Snapshot()
		if uri != "" && r.discard != nil {
			r.discard(uri)
		}
		return nil

	case key.Matches(km, r.keys.Preview):
		if !r.snap.HasRecording() {
			return nil
		}
		r.take.URI = r.snap.ResultURI
		r.take.DurationSeconds = r.snap.DurationSeconds()
		return phases.NextPhaseCmd
	}

	return nil
}

func (r *Record) permissionCmd() tea.Cmd {
	return func() tea.Msg {
		return permissionMsg{perm: r.rec.CheckPermission(r.ctx)}
	}
}

func (r *Record) startCmd() tea.Cmd {
	return func() tea.Msg {
		return startedMsg{err: r.rec.StartRecording(r.ctx)}
	}
}

func (r *Record) stopCmd() tea.Cmd {
	return func() tea.Msg {
		result, err := r.rec.StopRecording(r.ctx)
		return stoppedMsg{result: result, err: err}
	}
}

func (r *Record) View() string {
	var sb strings.Builder

	clock := style.Clock.Render(FormatClock(r.snap.DurationSeconds()))

	switch r.snap.State {
	case session.RecordingPreparing:
		sb.WriteString(r.spinner.View())
		sb.WriteString(" ")
		sb.WriteString(style.Subtitle.Render("Preparing microphone..."))
	case session.RecordingRecording:
		sb.WriteString(r.spinner.View())
		sb.WriteString(" ")
		sb.WriteString(style.Recording.Render("Recording"))
		sb.WriteString(" ")
		sb.WriteString(clock)
		if r.meter != nil {
			sb.WriteString("\n\n")
			sb.WriteString(r.meter.View())
		}
	case session.RecordingStopped:
		sb.WriteString(style.Success.Render("Recorded"))
		sb.WriteString(" ")
		sb.WriteString(clock)
		sb.WriteString("\n")
		sb.WriteString(style.Muted.Render(r.snap.ResultURI))
	default:
		sb.WriteString(style.Title.Render("Ready to record"))
		sb.WriteString(" ")
		sb.WriteString(clock)
	}

	sb.WriteString("\n\n")

	if r.snap.Permission == session.PermissionDenied {
		sb.WriteString(style.Warning.Render("Microphone access is needed to record."))
		sb.WriteString("\n")
	}
	if r.snap.LastError != "" {
		sb.WriteString(style.Error.Render("Error: " + r.snap.LastError))
		sb.WriteString("\n")
	}

	sb.WriteString("\n")
	sb.WriteString(r.helpLine())

	return sb.String()
}

func (r *Record) helpLine() string {
	toggle := r.keys.Toggle
	toggle.SetEnabled(r.snap.State == session.RecordingIdle || r.snap.State == session.RecordingRecording)
	if r.snap.IsRecording() {
		toggle.SetHelp("space", "stop")
	} else {
		toggle.SetHelp("space", "start recording")
	}

	discard := r.keys.Discard
	discard.SetEnabled(r.snap.State != session.RecordingIdle)

	preview := r.keys.Preview
	preview.SetEnabled(r.snap.HasRecording())

	return renderHelpLine(toggle, preview, discard, DefaultKeyMap().Quit)
}

