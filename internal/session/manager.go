package session

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/sync/singleflight"

	apperrors "finora/internal/errors"
)

// Manager keeps one running session per owner. Sessions are started outside
// the lock, one start per owner at a time.
type Manager struct {
	deps   Deps
	starts singleflight.Group

	mu       sync.Mutex
	sessions map[string]*Session
	closed   bool
}

var errManagerClosed = apperrors.WithMessage(apperrors.ErrInternalServer, "session manager is shut down")

// NewManager creates a manager building sessions from deps.
func NewManager(deps Deps) *Manager {
	return &Manager{deps: deps, sessions: make(map[string]*Session)}
}

// Get returns the owner's session, starting one on first use. Concurrent
// callers for the same owner share a single start. A caller whose ctx ends
// stops waiting, while the start itself runs to completion.
func (m *Manager) Get(ctx context.Context, ownerID string) (*Session, error) {
	if s, ok := m.Lookup(ownerID); ok {
		return s, nil
	}

	ch := m.starts.DoChan(ownerID, func() (interface{}, error) {
		m.mu.Lock()
		s, ok := m.sessions[ownerID]
		closed := m.closed
		m.mu.Unlock()
		if ok {
			return s, nil
		}
		if closed {
			return nil, errManagerClosed
		}
		s = New(ownerID, m.deps)
		if err := s.Start(context.WithoutCancel(ctx)); err != nil {
			return nil, err
		}
		return m.publish(s)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Session), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (m *Manager) publish(s *Session) (*Session, error) {
	m.mu.Lock()
	if !m.closed {
		m.sessions[s.OwnerID] = s
		m.mu.Unlock()
		return s, nil
	}
	m.mu.Unlock()

	if err := s.Stop(context.Background()); err != nil {
		s.log.Warnw("Stopping late session failed", "error", err)
	}
	return nil, errManagerClosed
}

// Lookup returns the owner's session without starting one.
func (m *Manager) Lookup(ownerID string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[ownerID]
	return s, ok
}

// End stops and forgets the owner's session.
func (m *Manager) End(ctx context.Context, ownerID string) error {
	m.mu.Lock()
	s, ok := m.sessions[ownerID]
	delete(m.sessions, ownerID)
	m.mu.Unlock()

	if !ok {
		return nil
	}
	return s.Stop(ctx)
}

// Shutdown stops every session. Starts still in flight are stopped as they
// finish.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	m.closed = true
	sessions := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	var errs []error
	for _, s := range sessions {
		if err := s.Stop(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
