package service

import (
	"sync"
	"sync/atomic"
	"time"

	appErrors "github.com/sisb-tech/backoffice-billing-api/pkg/errors"
)

type sessionEntry struct {
	mu     sync.Mutex
	engine *SelectionEngine

	// lastAccess is unix nanoseconds, atomic because the sweeper reads it
	// without taking the entry lock.
	lastAccess atomic.Int64
}

func (e *sessionEntry) touch() {
	e.lastAccess.Store(time.Now().UnixNano())
}

// sessionStore keeps live selection engines in process memory. A selection
// belongs to a single operator's browser session; it is never shared across
// operators, so entries live here rather than in a shared store. Idle entries
// expire after the configured TTL.
type sessionStore struct {
	mu      sync.RWMutex
	entries map[string]*sessionEntry
	ttl     time.Duration
	done    chan struct{}
	once    sync.Once
}

func newSessionStore(ttl time.Duration) *sessionStore {
	if ttl <= 0 {
		ttl = 2 * time.Hour
	}
	s := &sessionStore{
		entries: make(map[string]*sessionEntry),
		ttl:     ttl,
		done:    make(chan struct{}),
	}
	go s.sweep()
	return s
}

func (s *sessionStore) put(engine *SelectionEngine) {
	entry := &sessionEntry{engine: engine}
	entry.touch()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[engine.SessionID()] = entry
}

func (s *sessionStore) get(sessionID string) (*sessionEntry, error) {
	s.mu.RLock()
	entry, ok := s.entries[sessionID]
	s.mu.RUnlock()
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "selection session not found")
	}
	return entry, nil
}

func (s *sessionStore) remove(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, sessionID)
}

func (s *sessionStore) len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func (s *sessionStore) close() {
	s.once.Do(func() { close(s.done) })
}

func (s *sessionStore) sweep() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-s.done:
			return
		case now := <-ticker.C:
			s.evictIdle(now)
		}
	}
}

func (s *sessionStore) evictIdle(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, entry := range s.entries {
		if now.Sub(time.Unix(0, entry.lastAccess.Load())) > s.ttl {
			delete(s.entries, id)
		}
	}
}

// withEntry runs fn while holding the entry's lock and refreshes its TTL.
func (s *sessionStore) withEntry(sessionID string, fn func(*SelectionEngine) error) error {
	entry, err := s.get(sessionID)
	if err != nil {
		return err
	}
	entry.touch()
	entry.mu.Lock()
	defer entry.mu.Unlock()
	return fn(entry.engine)
}
