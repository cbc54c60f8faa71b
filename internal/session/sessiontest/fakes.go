// Package sessiontest provides in-memory platform fakes for driving sessions
// in tests.
package sessiontest

import (
	"context"
	"errors"
	"math"
	"sync"

	"github.com/alkime/practice/internal/session"
)

// Gate is a fake PermissionGate answering with a fixed permission.
type Gate struct {
	mu           sync.Mutex
	Answer       session.Permission
	Err          error
	CheckCalls   int
	RequestCalls int
}

func (g *Gate) Check(_ context.Context) (session.Permission, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.CheckCalls++
	return g.Answer, g.Err
}

func (g *Gate) Request(_ context.Context) (session.Permission, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.RequestCalls++
	return g.Answer, g.Err
}

// Modes is a fake ModeSwitcher recording every switch.
type Modes struct {
	mu      sync.Mutex
	Err     error
	History []session.AudioMode
}

func (m *Modes) SetMode(_ context.Context, mode session.AudioMode) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Err != nil {
		return m.Err
	}
	m.History = append(m.History, mode)
	return nil
}

// Current returns the last mode switched to.
func (m *Modes) Current() session.AudioMode {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.History) == 0 {
		return session.ModeNone
	}
	return m.History[len(m.History)-1]
}

// Recorder is a fake session.Recorder.
type Recorder struct {
	mu         sync.Mutex
	URI        string
	PrepareErr error
	RecordErr  error
	StopErr    error

	Prepared  bool
	Recording bool
	Aborts    int
	Stops     int
}

func (r *Recorder) Prepare(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.PrepareErr != nil {
		return r.PrepareErr
	}
	r.Prepared = true
	return nil
}

func (r *Recorder) Record(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.Prepared {
		return errors.New("not prepared")
	}
	if r.RecordErr != nil {
		return r.RecordErr
	}
	r.Recording = true
	return nil
}

func (r *Recorder) Stop(_ context.Context) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.Stops++
	if r.StopErr != nil {
		return "", r.StopErr
	}
	r.Recording = false
	r.Prepared = false
	return r.URI, nil
}

func (r *Recorder) Abort(_ context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.Aborts++
	r.Recording = false
	r.Prepared = false
}

// IsRecording reports whether Record was called without a Stop or Abort.
func (r *Recorder) IsRecording() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.Recording
}

// Player is a fake session.Player. Every change emits a status tick to
// subscribers synchronously.
type Player struct {
	mu        sync.Mutex
	status    session.PlayerStatus
	listeners map[int]func(session.PlayerStatus)
	nextID    int
	closed    bool

	PlayErr  error
	PauseErr error
	SeekErr  error
	Seeks    []float64
}

// NewPlayer creates a loaded player for a source of the given length.
func NewPlayer(durationSeconds float64) *Player {
	return &Player{ //nolint:exhaustruct // zero errors
		status: session.PlayerStatus{
			Loaded:   true,
			Duration: durationSeconds,
		},
		listeners: make(map[int]func(session.PlayerStatus)),
	}
}

func (p *Player) Play(_ context.Context) error {
	if p.PlayErr != nil {
		return p.PlayErr
	}
	p.update(func(st *session.PlayerStatus) { st.Playing = true })
	return nil
}

func (p *Player) Pause() error {
	if p.PauseErr != nil {
		return p.PauseErr
	}
	p.update(func(st *session.PlayerStatus) { st.Playing = false })
	return nil
}

func (p *Player) SeekTo(seconds float64) error {
	if p.SeekErr != nil {
		return p.SeekErr
	}
	p.mu.Lock()
	p.Seeks = append(p.Seeks, seconds)
	p.mu.Unlock()

	p.update(func(st *session.PlayerStatus) {
		st.CurrentTime = math.Max(0, math.Min(seconds, st.Duration))
	})
	return nil
}

func (p *Player) Status() session.PlayerStatus {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.status
}

func (p *Player) Subscribe(fn func(session.PlayerStatus)) func() {
	p.mu.Lock()
	defer p.mu.Unlock()

	id := p.nextID
	p.nextID++
	p.listeners[id] = fn

	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		delete(p.listeners, id)
	}
}

func (p *Player) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.closed = true
	return nil
}

// Closed reports whether Close was called.
func (p *Player) Closed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.closed
}

// Listeners returns the number of active subscriptions.
func (p *Player) Listeners() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return len(p.listeners)
}

// Advance simulates playback progress. Reaching the end stops playing.
func (p *Player) Advance(seconds float64) {
	p.update(func(st *session.PlayerStatus) {
		if !st.Playing {
			return
		}
		st.CurrentTime = math.Min(st.CurrentTime+seconds, st.Duration)
		if st.CurrentTime >= st.Duration {
			st.Playing = false
		}
	})
}

// Emit replaces the status and delivers it.
func (p *Player) Emit(status session.PlayerStatus) {
	p.update(func(st *session.PlayerStatus) { *st = status })
}

func (p *Player) update(fn func(*session.PlayerStatus)) {
	p.mu.Lock()
	fn(&p.status)
	status := p.status
	listeners := make([]func(session.PlayerStatus), 0, len(p.listeners))
	for id := 0; id < p.nextID; id++ {
		if l, ok := p.listeners[id]; ok {
			listeners = append(listeners, l)
		}
	}
	p.mu.Unlock()

	for _, l := range listeners {
		l(status)
	}
}

// Opener hands out a fixed player.
type Opener struct {
	Player *Player
	Err    error
	Opened []string
}

func (o *Opener) Open(_ context.Context, uri string) (session.Player, error) {
	if o.Err != nil {
		return nil, o.Err
	}
	o.Opened = append(o.Opened, uri)
	return o.Player, nil
}
