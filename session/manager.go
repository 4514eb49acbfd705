package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hairizuan-noorazman/linkedin-agent/logger"
)

// Manager issues review sessions. Expiry slides forward on every validated
// request, and expired sessions are dropped in the background.
type Manager struct {
	store       *Store
	duration    time.Duration
	maxSessions int
	now         func() time.Time
	logger      logger.Logger

	stopCh   chan struct{}
	stopOnce sync.Once
	createMu sync.Mutex
}

// Option configures a Manager.
type Option func(*Manager)

// WithMaxSessions caps open sessions; creating one more evicts the least
// recently seen. Zero means no cap.
func WithMaxSessions(n int) Option {
	return func(m *Manager) {
		m.maxSessions = n
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

// NewManager creates a manager whose sessions live for duration after their
// last use.
func NewManager(duration time.Duration, log logger.Logger, opts ...Option) *Manager {
	m := &Manager{
		store:    NewStore(),
		duration: duration,
		now:      time.Now,
		logger:   log.WithField("component", "review_sessions"),
		stopCh:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Create opens a session for the reviewer at remote.
func (m *Manager) Create(remote string) *Session {
	m.createMu.Lock()
	defer m.createMu.Unlock()

	if m.maxSessions > 0 && m.store.Len() >= m.maxSessions {
		m.store.Cleanup(m.now())
		if m.store.Len() >= m.maxSessions {
			if id, ok := m.store.LeastRecent(); ok {
				m.store.Delete(id)
				m.logger.Info(context.Background(), "evicted least recent review session", map[string]interface{}{
					"session_id": id.String(),
				})
			}
		}
	}

	now := m.now()
	session := &Session{
		ID:        uuid.New(),
		Remote:    remote,
		CreatedAt: now,
		LastSeen:  now,
		ExpiresAt: now.Add(m.duration),
	}
	m.store.Set(session)

	m.logger.Info(context.Background(), "review session created", map[string]interface{}{
		"session_id": session.ID.String(),
		"remote":     remote,
	})
	return session
}

func (m *Manager) Get(id uuid.UUID) (*Session, error) {
	return m.store.Get(id, m.now())
}

// Validate checks that id is live and was issued to the host in remote,
// then extends its expiry.
func (m *Manager) Validate(id uuid.UUID, remote string) (*Session, error) {
	now := m.now()
	session, err := m.store.Get(id, now)
	if err != nil {
		return nil, err
	}
	if session.Host() != remoteHost(remote) {
		return nil, ErrRemoteMismatch
	}
	return m.store.Touch(id, now, m.duration)
}

func (m *Manager) Delete(id uuid.UUID) {
	m.store.Delete(id)
	m.logger.Info(context.Background(), "review session deleted", map[string]interface{}{
		"session_id": id.String(),
	})
}

// Len returns the number of open sessions.
func (m *Manager) Len() int {
	return m.store.Len()
}

// StartCleanup removes expired sessions every interval until StopCleanup.
func (m *Manager) StartCleanup(interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if removed := m.store.Cleanup(m.now()); removed > 0 {
					m.logger.Info(context.Background(), "cleaned up expired review sessions", map[string]interface{}{
						"removed_count": removed,
					})
				}
			case <-m.stopCh:
				return
			}
		}
	}()
}

// StopCleanup stops the cleanup goroutine. It is safe to call more than once.
func (m *Manager) StopCleanup() {
	m.stopOnce.Do(func() { close(m.stopCh) })
}
