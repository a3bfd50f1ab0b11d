package convo

import (
	"log/slog"
	"sync"
	"time"
)

// Store keeps per-conversation memory in process, keyed by conversation id
// (the channel user id). Entries expire TTL after their last write and are
// reaped lazily on access; there is no background janitor. Reads and writes
// replace the whole entry, so concurrent messages on one conversation are
// last-writer-wins.
type Store struct {
	mu      sync.Mutex
	entries map[string]*entry
	ttl     time.Duration

	// now is swappable for tests.
	now func() time.Time

	logger *slog.Logger
}

type entry struct {
	window    Window
	binding   RuleBinding
	expiresAt time.Time
}

// NewStore creates a conversation memory store. A ttl <= 0 falls back to
// DefaultTTL.
func NewStore(ttl time.Duration, logger *slog.Logger) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		entries: make(map[string]*entry),
		ttl:     ttl,
		now:     time.Now,
		logger:  logger.With("component", "convo"),
	}
}

// Get returns the window and rule binding for a conversation. The second
// return is false when the conversation has no live memory.
func (s *Store) Get(conversationID string) (Window, RuleBinding, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.live(conversationID)
	if e == nil {
		return Window{}, RuleBinding{}, false
	}

	// Copy out so callers never alias the stored slice.
	w := Window{Turns: make([]Turn, len(e.window.Turns))}
	copy(w.Turns, e.window.Turns)
	return w, e.binding, true
}

// Put replaces the conversation's window, re-keys the binding to ruleID,
// and refreshes the TTL.
func (s *Store) Put(conversationID string, w Window, ruleID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	e := s.live(conversationID)
	if e == nil {
		e = &entry{}
		s.entries[conversationID] = e
	}

	e.window = Window{Turns: make([]Turn, len(w.Turns))}
	copy(e.window.Turns, w.Turns)

	if e.binding.RuleID != ruleID {
		e.binding = RuleBinding{RuleID: ruleID, BoundAt: now}
	}
	e.expiresAt = now.Add(s.ttl)
}

// Forget drops a conversation's memory.
func (s *Store) Forget(conversationID string) {
	s.mu.Lock()
	delete(s.entries, conversationID)
	s.mu.Unlock()
}

// Len reports how many conversations currently hold live memory. Expired
// entries that have not been touched still count until reaped.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// live returns the entry if present and unexpired, reaping it otherwise.
// Caller holds the lock.
func (s *Store) live(conversationID string) *entry {
	e, ok := s.entries[conversationID]
	if !ok {
		return nil
	}
	if s.now().After(e.expiresAt) {
		delete(s.entries, conversationID)
		return nil
	}
	return e
}
