package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// ClockResolution is how often the elapsed clock of a recording is sampled.
const ClockResolution = 100 * time.Millisecond

// RecordingState is a state of a RecordingSession.
type RecordingState string

const (
	RecordingIdle      RecordingState = "idle"
	RecordingPreparing RecordingState = "preparing"
	RecordingRecording RecordingState = "recording"
	// RecordingPaused is reserved; no transition enters it.
	RecordingPaused  RecordingState = "paused"
	RecordingStopped RecordingState = "stopped"
)

// RecordingResult is handed to the completion callback.
type RecordingResult struct {
	URI             string
	DurationSeconds int
}

// RecordingConfig carries the collaborators and callbacks of a session.
type RecordingConfig struct {
	OnComplete func(RecordingResult)
	OnError    func(error)
	// Clock defaults to the real clock.
	Clock  clockwork.Clock
	Logger *slog.Logger
}

// RecordingSnapshot is a consistent copy of a session's public fields.
type RecordingSnapshot struct {
	State         RecordingState
	ElapsedMillis int64
	ResultURI     string
	Permission    Permission
	LastError     string
}

// IsRecording reports whether audio is being captured.
func (s RecordingSnapshot) IsRecording() bool {
	return s.State == RecordingRecording
}

// HasRecording reports whether a finished recording is available.
func (s RecordingSnapshot) HasRecording() bool {
	return s.State == RecordingStopped && s.ResultURI != ""
}

// DurationSeconds is the elapsed time in whole seconds.
func (s RecordingSnapshot) DurationSeconds() int {
	return int(s.ElapsedMillis / 1000)
}

// RecordingSession owns one recording attempt at a time.
//
// Commands are expected to be issued one at a time by a single caller;
// the lock only protects readers (Snapshot) and the clock goroutine.
type RecordingSession struct {
	recorder Recorder
	gate     PermissionGate
	modes    ModeSwitcher
	conf     RecordingConfig
	logger   *slog.Logger
	clock    clockwork.Clock

	mu         sync.Mutex
	state      RecordingState
	permission Permission
	resultURI  string
	lastError  string
	elapsed    time.Duration
	base       time.Duration
	startedAt  time.Time
	generation uint64
	clockStop  chan struct{}
	clockDone  chan struct{}
}

// NewRecordingSession creates an idle session.
func NewRecordingSession(
	recorder Recorder,
	gate PermissionGate,
	modes ModeSwitcher,
	conf RecordingConfig,
) *RecordingSession {
	clock := conf.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	logger := conf.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &RecordingSession{ //nolint:exhaustruct // remaining fields start zeroed
		recorder:   recorder,
		gate:       gate,
		modes:      modes,
		conf:       conf,
		logger:     logger,
		clock:      clock,
		state:      RecordingIdle,
		permission: PermissionUnknown,
	}
}

// Snapshot returns the current public state.
func (s *RecordingSession) Snapshot() RecordingSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	return RecordingSnapshot{
		State:         s.state,
		ElapsedMillis: s.elapsed.Milliseconds(),
		ResultURI:     s.resultURI,
		Permission:    s.permission,
		LastError:     s.lastError,
	}
}

// CheckPermission refreshes the cached permission without prompting.
// Errors are treated as a denial.
func (s *RecordingSession) CheckPermission(ctx context.Context) Permission {
	perm, err := s.gate.Check(ctx)
	if err != nil {
		s.logger.Warn("microphone permission check failed", "error", err)
		perm = PermissionDenied
	}

	s.setPermission(perm)

	return perm
}

// RequestPermission asks the host for microphone access and reports whether
// it was granted. Errors are treated as a denial.
func (s *RecordingSession) RequestPermission(ctx context.Context) bool {
	perm, err := s.gate.Request(ctx)
	if err != nil {
		s.logger.Warn("microphone permission request failed", "error", err)
		perm = PermissionDenied
	}

	s.setPermission(perm)

	return perm == PermissionGranted
}

func (s *RecordingSession) setPermission(perm Permission) {
	s.mu.Lock()
	s.permission = perm
	s.mu.Unlock()
}

// StartRecording moves the session from idle to recording.
//
// Permission is requested if it has not been granted yet. On any failure the
// session goes back to idle, LastError is set and the error is returned.
func (s *RecordingSession) StartRecording(ctx context.Context) error {
	s.mu.Lock()
	if s.state != RecordingIdle {
		state := s.state
		s.mu.Unlock()
		return fmt.Errorf("cannot start recording while %s: %w", state, ErrInvalidState)
	}
	s.lastError = ""
	perm := s.permission
	s.mu.Unlock()

	if perm != PermissionGranted && !s.RequestPermission(ctx) {
		return s.failStart(ErrPermissionDenied)
	}

	if err := s.modes.SetMode(ctx, ModeRecord); err != nil {
		return s.failStart(fmt.Errorf("failed to configure audio for recording: %w", err))
	}

	s.mu.Lock()
	s.state = RecordingPreparing
	gen := s.generation
	s.mu.Unlock()

	if err := s.recorder.Prepare(ctx); err != nil {
		return s.failStart(fmt.Errorf("failed to prepare recorder: %w", err))
	}

	if err := s.recorder.Record(ctx); err != nil {
		s.recorder.Abort(ctx)
		return s.failStart(fmt.Errorf("failed to start recorder: %w", err))
	}

	s.mu.Lock()
	if s.generation != gen {
		// discarded while preparing
		s.mu.Unlock()
		s.recorder.Abort(ctx)
		return fmt.Errorf("recording discarded while preparing: %w", ErrInvalidState)
	}
	s.state = RecordingRecording
	s.base = s.elapsed
	s.startedAt = s.clock.Now()
	s.startClockLocked()
	s.mu.Unlock()

	s.logger.Info("recording started")

	return nil
}

// StopRecording finalizes a running recording. Outside the recording state
// it does nothing and returns a zero result.
//
// If the recorder fails to stop, the session keeps recording and the error is
// surfaced; it is not retried.
func (s *RecordingSession) StopRecording(ctx context.Context) (RecordingResult, error) {
	s.mu.Lock()
	if s.state != RecordingRecording {
		s.mu.Unlock()
		return RecordingResult{}, nil
	}
	gen := s.generation
	s.mu.Unlock()

	uri, err := s.recorder.Stop(ctx)
	if err != nil {
		err = fmt.Errorf("failed to stop recorder: %w", err)
		s.setLastError(err)
		s.logger.Warn("failed to stop recording", "error", err)
		s.notifyError(err)
		return RecordingResult{}, err
	}

	s.mu.Lock()
	if s.generation != gen {
		s.mu.Unlock()
		return RecordingResult{}, fmt.Errorf("recording discarded while stopping: %w", ErrInvalidState)
	}

	done := s.stopClockLocked()
	s.elapsed = s.base + s.clock.Since(s.startedAt)

	if uri == "" {
		s.state = RecordingIdle
		s.lastError = ErrNoRecordingFile.Error()
		s.mu.Unlock()
		waitFor(done)
		s.notifyError(ErrNoRecordingFile)
		return RecordingResult{}, ErrNoRecordingFile
	}

	s.state = RecordingStopped
	s.resultURI = uri
	result := RecordingResult{
		URI:             uri,
		DurationSeconds: int(s.elapsed / time.Second),
	}
	s.mu.Unlock()
	waitFor(done)

	s.logger.Info("recording stopped", "uri", uri, "duration_seconds", result.DurationSeconds)

	if s.conf.OnComplete != nil {
		s.conf.OnComplete(result)
	}

	return result, nil
}

// DiscardRecording abandons the in-memory session and returns it to idle.
// A running capture is aborted; stored recordings are never touched.
func (s *RecordingSession) DiscardRecording() {
	s.mu.Lock()
	prev := s.state
	done := s.stopClockLocked()
	s.state = RecordingIdle
	s.resultURI = ""
	s.elapsed = 0
	s.base = 0
	s.lastError = ""
	s.generation++
	s.mu.Unlock()
	waitFor(done)

	if prev == RecordingRecording {
		s.recorder.Abort(context.Background())
	}

	s.logger.Debug("recording discarded", "from", prev)
}

func (s *RecordingSession) setLastError(err error) {
	s.mu.Lock()
	s.lastError = err.Error()
	s.mu.Unlock()
}

func (s *RecordingSession) failStart(err error) error {
	s.mu.Lock()
	s.state = RecordingIdle
	s.lastError = err.Error()
	s.mu.Unlock()

	s.logger.Warn("failed to start recording", "error", err)
	s.notifyError(err)

	return err
}

func (s *RecordingSession) notifyError(err error) {
	if s.conf.OnError != nil {
		s.conf.OnError(err)
	}
}

// startClockLocked starts sampling the elapsed time. Callers hold mu.
func (s *RecordingSession) startClockLocked() {
	stop := make(chan struct{})
	done := make(chan struct{})
	s.clockStop = stop
	s.clockDone = done

	ticker := s.clock.NewTicker(ClockResolution)

	go func() {
		defer close(done)
		defer ticker.Stop()

		for {
			select {
			case <-stop:
				return
			case <-ticker.Chan():
				s.mu.Lock()
				if s.state == RecordingRecording {
					next := s.base + s.clock.Since(s.startedAt)
					if next > s.elapsed {
						s.elapsed = next
					}
				}
				s.mu.Unlock()
			}
		}
	}()
}

// stopClockLocked signals the clock goroutine to exit and returns a channel
// closed once it has. Callers hold mu and wait after releasing it.
func (s *RecordingSession) stopClockLocked() <-chan struct{} {
	if s.clockStop == nil {
		return nil
	}

	close(s.clockStop)
	done := s.clockDone
	s.clockStop = nil
	s.clockDone = nil

	return done
}

func waitFor(done <-chan struct{}) {
	if done != nil {
		<-done
	}
}
