// Package session owns the view state of each visitor session and carries out
// the effects its transitions produce.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/snappy-loop/gallery/internal/metrics"
	"github.com/snappy-loop/gallery/internal/playback"
	"github.com/snappy-loop/gallery/internal/viewstate"
)

// ErrNotFound is returned for unknown or closed sessions.
var ErrNotFound = errors.New("session not found")

const subscriberBuffer = 8

// Canceller cancels in-flight requests by ID.
type Canceller interface {
	Cancel(id uuid.UUID) bool
	CancelSession(sessionID uuid.UUID) int
}

// Releaser releases playback references.
type Releaser interface {
	Release(ctx context.Context, id uuid.UUID) error
	ReleaseSession(ctx context.Context, sessionID uuid.UUID) int
}

// Snapshot is a session's state at one point in time.
type Snapshot struct {
	ID    uuid.UUID       `json:"id"`
	State viewstate.State `json:"state"`
}

type session struct {
	id       uuid.UUID
	mu       sync.Mutex
	state    viewstate.State
	lastSeen time.Time
	subs     map[int]chan viewstate.State
	nextSub  int
	closed   bool
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// OnClose registers a callback run after a session is closed.
func OnClose(fn func(id uuid.UUID)) Option {
	return func(m *Manager) { m.onClose = fn }
}

// Manager holds the live sessions.
type Manager struct {
	tasks    Canceller
	refs     Releaser
	idle     time.Duration
	now      func() time.Time
	onClose  func(uuid.UUID)
	mu       sync.RWMutex
	sessions map[uuid.UUID]*session
}

// NewManager creates a Manager. Sessions untouched for idle are closed by CloseIdle.
func NewManager(tasks Canceller, refs Releaser, idle time.Duration, opts ...Option) *Manager {
	m := &Manager{
		tasks:    tasks,
		refs:     refs,
		idle:     idle,
		now:      time.Now,
		sessions: make(map[uuid.UUID]*session),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Create opens a new session in the initial state.
func (m *Manager) Create() Snapshot {
	s := &session{
		id:       uuid.New(),
		state:    viewstate.Initial(),
		lastSeen: m.now(),
		subs:     make(map[int]chan viewstate.State),
	}
	m.mu.Lock()
	m.sessions[s.id] = s
	m.mu.Unlock()

	metrics.SessionOpened()
	log.Info().Str("session_id", s.id.String()).Msg("Session opened")
	return Snapshot{ID: s.id, State: s.state}
}

// Get returns the current state of a session.
func (m *Manager) Get(id uuid.UUID) (Snapshot, error) {
	s, err := m.lookup(id)
	if err != nil {
		return Snapshot{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return Snapshot{}, ErrNotFound
	}
	return Snapshot{ID: id, State: s.state}, nil
}

// Dispatch applies a to the session and executes the resulting effects.
func (m *Manager) Dispatch(ctx context.Context, id uuid.UUID, a viewstate.Action) (viewstate.State, error) {
	return m.DispatchThen(ctx, id, a, nil)
}

// DispatchThen is Dispatch with then called on the new state while the
// session is still locked. Callers start the task for a request action
// there, so no later action can see the request ID before its task exists.
func (m *Manager) DispatchThen(ctx context.Context, id uuid.UUID, a viewstate.Action, then func(viewstate.State)) (viewstate.State, error) {
	s, err := m.lookup(id)
	if err != nil {
		return viewstate.State{}, err
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return viewstate.State{}, ErrNotFound
	}
	next, effects := viewstate.Reduce(s.state, a)
	s.state = next
	s.lastSeen = m.now()
	if then != nil {
		then(next)
	}
	for _, ch := range s.subs {
		publish(ch, next)
	}
	s.mu.Unlock()

	log.Debug().
		Str("session_id", id.String()).
		Str("action", string(a.Type)).
		Int("effects", len(effects)).
		Msg("Action dispatched")

	m.execute(ctx, id, effects)
	return next, nil
}

func (m *Manager) execute(ctx context.Context, sessionID uuid.UUID, effects []viewstate.Effect) {
	for _, e := range effects {
		switch e.Type {
		case viewstate.EffectCancelRequest:
			m.tasks.Cancel(e.ID)
		case viewstate.EffectReleaseReference:
			if err := m.refs.Release(ctx, e.ID); err != nil && !errors.Is(err, playback.ErrNotFound) {
				log.Error().
					Err(err).
					Str("session_id", sessionID.String()).
					Str("reference_id", e.ID.String()).
					Msg("Failed to release playback reference")
			}
		case viewstate.EffectStopAmbient:
			// Ambient audio lives on the playback surface; subscribers see AmbientPlaying=false.
		}
	}
}

// publish sends st without blocking, dropping the oldest queued state when full.
func publish(ch chan viewstate.State, st viewstate.State) {
	for {
		select {
		case ch <- st:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}

// Subscribe returns a channel of state snapshots, starting with the current
// one. The channel is closed when the session closes or cancel is called.
func (m *Manager) Subscribe(id uuid.UUID) (<-chan viewstate.State, func(), error) {
	s, err := m.lookup(id)
	if err != nil {
		return nil, nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, nil, ErrNotFound
	}
	ch := make(chan viewstate.State, subscriberBuffer)
	ch <- s.state
	key := s.nextSub
	s.nextSub++
	s.subs[key] = ch
	s.lastSeen = m.now()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			if c, ok := s.subs[key]; ok {
				delete(s.subs, key)
				close(c)
			}
			s.lastSeen = m.now()
		})
	}
	return ch, cancel, nil
}

// Close cancels the session's requests, releases its references and removes it.
func (m *Manager) Close(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if !ok {
		return ErrNotFound
	}
	m.teardown(ctx, s)
	return nil
}

func (m *Manager) teardown(ctx context.Context, s *session) {
	s.mu.Lock()
	s.closed = true
	for key, ch := range s.subs {
		delete(s.subs, key)
		close(ch)
	}
	s.mu.Unlock()

	cancelled := m.tasks.CancelSession(s.id)
	released := m.refs.ReleaseSession(ctx, s.id)

	metrics.SessionClosed()
	log.Info().
		Str("session_id", s.id.String()).
		Int("cancelled_requests", cancelled).
		Int("released_references", released).
		Msg("Session closed")

	if m.onClose != nil {
		m.onClose(s.id)
	}
}

// CloseIdle closes sessions without subscribers that were last touched
// before now minus the idle timeout. It returns how many were closed.
func (m *Manager) CloseIdle(ctx context.Context, now time.Time) int {
	cutoff := now.Add(-m.idle)

	m.mu.Lock()
	var idle []*session
	for id, s := range m.sessions {
		s.mu.Lock()
		if len(s.subs) == 0 && s.lastSeen.Before(cutoff) {
			idle = append(idle, s)
			delete(m.sessions, id)
		}
		s.mu.Unlock()
	}
	m.mu.Unlock()

	for _, s := range idle {
		m.teardown(ctx, s)
	}
	return len(idle)
}

// RunJanitor calls CloseIdle every interval until ctx is done.
func (m *Manager) RunJanitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := m.CloseIdle(ctx, m.now()); n > 0 {
				log.Info().Int("sessions", n).Msg("Closed idle sessions")
			}
		}
	}
}

// CloseAll closes every session.
func (m *Manager) CloseAll(ctx context.Context) {
	m.mu.Lock()
	all := make([]*session, 0, len(m.sessions))
	for id, s := range m.sessions {
		all = append(all, s)
		delete(m.sessions, id)
	}
	m.mu.Unlock()

	for _, s := range all {
		m.teardown(ctx, s)
	}
}

// Len returns the number of open sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

func (m *Manager) lookup(id uuid.UUID) (*session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return s, nil
}
