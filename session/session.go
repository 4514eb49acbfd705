package session

import (
	"errors"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrSessionNotFound is returned for unknown session ids.
	ErrSessionNotFound = errors.New("session not found")

	// ErrSessionExpired is returned for sessions past their expiry.
	ErrSessionExpired = errors.New("session expired")

	// ErrRemoteMismatch is returned when a session is presented from a host
	// other than the one it was issued to.
	ErrRemoteMismatch = errors.New("session used from another host")
)

// Session is a review page opened in a browser. Only holders of a live
// session may submit approvals or shut the review down.
type Session struct {
	ID        uuid.UUID
	Remote    string
	CreatedAt time.Time
	LastSeen  time.Time
	ExpiresAt time.Time
}

// IsExpired reports whether the session has expired by now.
func (s *Session) IsExpired() bool {
	return s.ExpiredAt(time.Now())
}

// ExpiredAt reports whether the session has expired at t.
func (s *Session) ExpiredAt(t time.Time) bool {
	return t.After(s.ExpiresAt)
}

// Host returns the remote address without its port.
func (s *Session) Host() string {
	return remoteHost(s.Remote)
}

func remoteHost(remote string) string {
	host, _, err := net.SplitHostPort(remote)
	if err != nil {
		return remote
	}
	return host
}

// Store is an in-memory session store. It hands out copies so callers never
// share a session with a concurrent Touch.
type Store struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*Session
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		sessions: make(map[uuid.UUID]*Session),
	}
}

func (s *Store) Set(session *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *session
	s.sessions[session.ID] = &cp
}

// Get returns the session if it is live at now.
func (s *Store) Get(id uuid.UUID, now time.Time) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lookup(id, now)
}

// Touch marks the session as seen at now and moves its expiry to now+ttl.
func (s *Store) Touch(id uuid.UUID, now time.Time, ttl time.Duration) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.lookup(id, now); err != nil {
		return nil, err
	}
	stored := s.sessions[id]
	stored.LastSeen = now
	stored.ExpiresAt = now.Add(ttl)
	cp := *stored
	return &cp, nil
}

func (s *Store) lookup(id uuid.UUID, now time.Time) (*Session, error) {
	session, ok := s.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	if session.ExpiredAt(now) {
		return nil, ErrSessionExpired
	}
	cp := *session
	return &cp, nil
}

func (s *Store) Delete(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
}

// Cleanup drops sessions expired at now and returns how many were removed.
func (s *Store) Cleanup(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, session := range s.sessions {
		if session.ExpiredAt(now) {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

// LeastRecent returns the id of the session seen longest ago.
func (s *Store) LeastRecent() (uuid.UUID, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		oldest uuid.UUID
		seen   time.Time
		found  bool
	)
	for id, session := range s.sessions {
		if !found || session.LastSeen.Before(seen) {
			oldest, seen, found = id, session.LastSeen, true
		}
	}
	return oldest, found
}

// Len returns the number of stored sessions, expired ones included.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
