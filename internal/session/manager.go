package session

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/roach88/goalctl/internal/actionlock"
	"github.com/roach88/goalctl/internal/goal"
	"github.com/roach88/goalctl/internal/relations"
	"github.com/roach88/goalctl/internal/timefmt"
)

var (
	// ErrBusy is returned when a session cannot be closed or replaced because
	// an action is in flight.
	ErrBusy = errors.New("an action is in progress")

	// ErrNotOpen is returned for a handle that is not the active session.
	ErrNotOpen = errors.New("session is not open")
)

// Session is one open editor.
//
// Thread-safety: Apply, State, and Closed are safe for concurrent use. The
// engine is the only writer in practice.
type Session struct {
	id    string
	norm  *timefmt.Normalizer
	lock  actionlock.Lock
	edges *relations.Cache

	mu     sync.Mutex
	state  State
	closed bool
}

// ID returns the session handle.
func (s *Session) ID() string { return s.id }

// Lock returns the session's action lock.
func (s *Session) Lock() *actionlock.Lock { return &s.lock }

// Edges returns the session's memoized relationship graph.
func (s *Session) Edges() *relations.Cache { return s.edges }

// Normalizer returns the timestamp normalizer for the viewer.
func (s *Session) Normalizer() *timefmt.Normalizer { return s.norm }

// State returns a snapshot of the session state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// Closed reports whether the session has been closed.
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Apply runs changes in order. It stops at the first failing change; earlier
// changes stay applied. A closed session ignores every change.
func (s *Session) Apply(changes ...Change) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrNotOpen
	}
	for _, c := range changes {
		if err := c.apply(&s.state, s.norm); err != nil {
			return err
		}
	}
	return nil
}

// Manager owns zero or one active session.
type Manager struct {
	fetch relations.FetchFunc
	norm  *timefmt.Normalizer
	newID func() string

	mu     sync.Mutex
	active *Session
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithNormalizer sets the viewer's timestamp normalizer.
func WithNormalizer(n *timefmt.Normalizer) ManagerOption {
	return func(m *Manager) {
		m.norm = n
	}
}

// WithIDGenerator replaces UUIDv7 session handles, for deterministic tests.
func WithIDGenerator(gen func() string) ManagerOption {
	return func(m *Manager) {
		m.newID = gen
	}
}

// NewManager creates a manager whose sessions load edges through fetch.
func NewManager(fetch relations.FetchFunc, opts ...ManagerOption) *Manager {
	m := &Manager{
		fetch: fetch,
		norm:  timefmt.New(nil),
		newID: func() string { return uuid.Must(uuid.NewV7()).String() },
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Open starts a session for g. Any previous session is closed first, unless
// it has an action in flight, in which case Open returns ErrBusy.
func (m *Manager) Open(g goal.Goal, mode Mode) (*Session, error) {
	if _, ok := ParseMode(string(mode)); !ok {
		return nil, fmt.Errorf("invalid mode %q", mode)
	}
	if mode != ModeCreate && g.ID == 0 {
		return nil, fmt.Errorf("%s mode needs a saved goal", mode)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active != nil {
		if err := m.closeLocked(m.active); err != nil {
			return nil, err
		}
	}

	s := &Session{
		id:    m.newID(),
		norm:  m.norm,
		edges: relations.NewCache(m.fetch),
		state: newState(g, mode),
	}
	m.active = s
	slog.Debug("session opened", "session", s.id, "mode", string(mode), "goal_id", g.ID, "goal_type", string(g.GoalType))
	return s, nil
}

// Close closes the session with the given handle. It refuses while an action
// is in flight.
func (m *Manager) Close(handle string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active == nil || m.active.id != handle {
		return ErrNotOpen
	}
	return m.closeLocked(m.active)
}

// Active returns the open session, if any.
func (m *Manager) Active() (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active, m.active != nil
}

// Get returns the session for handle if it is the active one.
func (m *Manager) Get(handle string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active == nil || m.active.id != handle {
		return nil, ErrNotOpen
	}
	return m.active, nil
}

func (m *Manager) closeLocked(s *Session) error {
	if name, busy := s.lock.Current(); busy {
		return fmt.Errorf("close session %s: %w (%s)", s.id, ErrBusy, name)
	}
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	m.active = nil
	slog.Debug("session closed", "session", s.id)
	return nil
}
