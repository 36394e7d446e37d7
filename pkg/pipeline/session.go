package pipeline

import (
	"slices"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// DefaultSession is used when a caller has no session of its own (CLI, MCP).
const DefaultSession = "default"

// Session holds the state carried between user actions: the last legend and
// the entry names of the last fetched archive. Each fetch overwrites it.
type Session struct {
	ID        string    `json:"id"`
	Legend    []string  `json:"legend"`
	Entries   []string  `json:"entries"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Sessions is a concurrency-safe in-memory session store.
type Sessions struct {
	mu    sync.Mutex
	clock clockwork.Clock
	byID  map[string]*Session
}

// NewSessions creates an empty store.
func NewSessions(clock clockwork.Clock) *Sessions {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Sessions{clock: clock, byID: make(map[string]*Session)}
}

// Get returns a copy of the session, empty when it does not exist yet.
func (s *Sessions) Get(id string) Session {
	id = sessionID(id)
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.byID[id]
	if !ok {
		return Session{ID: id}
	}
	return Session{
		ID:        sess.ID,
		Legend:    slices.Clone(sess.Legend),
		Entries:   slices.Clone(sess.Entries),
		UpdatedAt: sess.UpdatedAt,
	}
}

// SetLegend replaces the session legend.
func (s *Sessions) SetLegend(id string, legend []string) {
	s.update(id, func(sess *Session) { sess.Legend = slices.Clone(legend) })
}

// SetEntries replaces the session archive listing.
func (s *Sessions) SetEntries(id string, entries []string) {
	s.update(id, func(sess *Session) { sess.Entries = slices.Clone(entries) })
}

// Delete forgets a session.
func (s *Sessions) Delete(id string) {
	s.mu.Lock()
	delete(s.byID, sessionID(id))
	s.mu.Unlock()
}

func (s *Sessions) update(id string, fn func(*Session)) {
	id = sessionID(id)
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.byID[id]
	if !ok {
		sess = &Session{ID: id}
		s.byID[id] = sess
	}
	fn(sess)
	sess.UpdatedAt = s.clock.Now()
}

func sessionID(id string) string {
	if id == "" {
		return DefaultSession
	}
	return id
}
