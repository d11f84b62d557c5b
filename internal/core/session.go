package core

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// SessionFile is one uploaded file kept in a session. Exactly one of
// Dataset and Err is set.
type SessionFile struct {
	Index   int
	Name    string
	Size    int
	Dataset *Dataset
	Err     error
}

// OK reports whether the file parsed.
func (f *SessionFile) OK() bool { return f.Err == nil }

// Session is a batch of uploaded files. The parsed Datasets are never
// mutated; every conversion works on a clone, so the same file can be
// converted repeatedly with different options.
type Session struct {
	ID        string
	CreatedAt time.Time
	Files     []*SessionFile

	lastSeen time.Time // guarded by SessionStore.mu
}

// File returns the file at index idx.
func (s *Session) File(idx int) (*SessionFile, error) {
	if idx < 0 || idx >= len(s.Files) {
		return nil, fmt.Errorf("%w: index %d", ErrFileNotFound, idx)
	}
	return s.Files[idx], nil
}

// SessionStore keeps sessions in memory until they go unused for ttl.
type SessionStore struct {
	ttl     time.Duration
	max     int
	now     func() time.Time
	metrics *Metrics

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewSessionStore creates a store. max <= 0 means unbounded.
func NewSessionStore(ttl time.Duration, max int, metrics *Metrics) *SessionStore {
	return &SessionStore{
		ttl:      ttl,
		max:      max,
		now:      time.Now,
		metrics:  metrics,
		sessions: make(map[string]*Session),
	}
}

// Create stores files under a new session ID. Expired sessions are swept
// first when the store is full.
func (s *SessionStore) Create(files []*SessionFile) (*Session, error) {
	now := s.now()
	sess := &Session{
		ID:        uuid.New().String(),
		CreatedAt: now,
		Files:     files,
		lastSeen:  now,
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.max > 0 && len(s.sessions) >= s.max {
		s.sweepLocked(now)
		if len(s.sessions) >= s.max {
			return nil, ErrTooManySessions
		}
	}
	s.sessions[sess.ID] = sess
	s.metrics.setActiveSessions(len(s.sessions))
	return sess, nil
}

// Get returns a live session and refreshes its expiry.
func (s *SessionStore) Get(id string) (*Session, error) {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok || s.expired(sess, now) {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	sess.lastSeen = now
	return sess, nil
}

// Delete removes a session. Deleting an unknown ID is a no-op.
func (s *SessionStore) Delete(id string) {
	s.mu.Lock()
	delete(s.sessions, id)
	s.metrics.setActiveSessions(len(s.sessions))
	s.mu.Unlock()
}

// Sweep removes expired sessions and returns how many were removed.
func (s *SessionStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sweepLocked(s.now())
}

func (s *SessionStore) sweepLocked(now time.Time) int {
	removed := 0
	for id, sess := range s.sessions {
		if s.expired(sess, now) {
			delete(s.sessions, id)
			removed++
		}
	}
	if removed > 0 {
		s.metrics.addExpiredSessions(removed)
		s.metrics.setActiveSessions(len(s.sessions))
	}
	return removed
}

func (s *SessionStore) expired(sess *Session, now time.Time) bool {
	return s.ttl > 0 && now.Sub(sess.lastSeen) > s.ttl
}

// Len returns the number of stored sessions, expired ones included until
// the next sweep.
func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// IDs returns the stored session IDs in sorted order.
func (s *SessionStore) IDs() []string {
	s.mu.RLock()
	ids := make([]string, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	s.mu.RUnlock()
	sort.Strings(ids)
	return ids
}
