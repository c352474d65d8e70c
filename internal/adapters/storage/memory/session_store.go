package memory

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/PabloGalante/mealprep-agent/internal/domain"
)

// DefaultSessionTimeout is how long a session may idle before it expires.
const DefaultSessionTimeout = 60 * time.Minute

// SessionStore keeps sessions in process memory. A session idle for longer
// than the timeout is gone: reads never revive it.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[domain.SessionID]*domain.Session
	timeout  time.Duration
	now      func() time.Time
}

// SessionOption configures a SessionStore.
type SessionOption func(*SessionStore)

// WithClock replaces time.Now; used by tests.
func WithClock(now func() time.Time) SessionOption {
	return func(s *SessionStore) { s.now = now }
}

func NewSessionStore(timeout time.Duration, opts ...SessionOption) *SessionStore {
	if timeout <= 0 {
		timeout = DefaultSessionTimeout
	}
	s := &SessionStore{
		sessions: make(map[domain.SessionID]*domain.Session),
		timeout:  timeout,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *SessionStore) Create(userID domain.UserID, initial domain.Values) (*domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	sess := &domain.Session{
		ID:           domain.SessionID(uuid.NewString()),
		UserID:       userID,
		CreatedAt:    now,
		LastAccessed: now,
		Context:      initial.Clone(),
		Preferences:  domain.Values{},
	}
	s.sessions[sess.ID] = sess
	return sess.Clone(), nil
}

// Get returns a copy of the session and marks it as accessed.
func (s *SessionStore) Get(id domain.SessionID) (*domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.liveLocked(id)
	if err != nil {
		return nil, err
	}
	sess.LastAccessed = s.now()
	return sess.Clone(), nil
}

func (s *SessionStore) UpdateContext(id domain.SessionID, partial domain.Values) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.liveLocked(id)
	if err != nil {
		return err
	}
	sess.Context.Merge(partial)
	sess.LastAccessed = s.now()
	return nil
}

func (s *SessionStore) UpdatePreferences(id domain.SessionID, partial domain.Values) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.liveLocked(id)
	if err != nil {
		return err
	}
	sess.Preferences.Merge(partial)
	sess.LastAccessed = s.now()
	return nil
}

// Delete removes the session and reports whether it existed.
func (s *SessionStore) Delete(id domain.SessionID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[id]; !ok {
		return false
	}
	delete(s.sessions, id)
	return true
}

// SweepExpired drops every expired session and returns how many were removed.
func (s *SessionStore) SweepExpired() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for id, sess := range s.sessions {
		if s.expired(sess, now) {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

// ListByUser returns copies of the user's live sessions without touching them.
func (s *SessionStore) ListByUser(userID domain.UserID) []*domain.Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	var result []*domain.Session
	for _, sess := range s.sessions {
		if sess.UserID == userID && !s.expired(sess, now) {
			result = append(result, sess.Clone())
		}
	}
	return result
}

// liveLocked resolves id, evicting it if it has expired. Caller holds mu.
func (s *SessionStore) liveLocked(id domain.SessionID) (*domain.Session, error) {
	sess, ok := s.sessions[id]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	if s.expired(sess, s.now()) {
		delete(s.sessions, id)
		return nil, domain.ErrSessionNotFound
	}
	return sess, nil
}

func (s *SessionStore) expired(sess *domain.Session, now time.Time) bool {
	return now.Sub(sess.LastAccessed) > s.timeout
}
