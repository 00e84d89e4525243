package history

import (
	"context"
	"sync"
)

// MemoryStore keeps history in process memory; it is lost on restart.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string][]Entry
	limit   int
}

// NewMemoryStore returns an empty store. When limit > 0 only the newest
// limit entries per user are retained.
func NewMemoryStore(limit int) *MemoryStore {
	return &MemoryStore{
		entries: make(map[string][]Entry),
		limit:   limit,
	}
}

// Append adds entries to the user's history.
func (s *MemoryStore) Append(_ context.Context, userID string, entries ...Entry) error {
	if userID == "" {
		return ErrUserIDRequired
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	list := append(s.entries[userID], entries...)
	if s.limit > 0 && len(list) > s.limit {
		list = append([]Entry(nil), list[len(list)-s.limit:]...)
	}
	s.entries[userID] = list
	return nil
}

// Recent returns a copy of the newest entries for the user.
func (s *MemoryStore) Recent(_ context.Context, userID string, limit int) ([]Entry, error) {
	if userID == "" {
		return nil, ErrUserIDRequired
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	list := tail(s.entries[userID], limit)
	copied := make([]Entry, len(list))
	copy(copied, list)
	return copied, nil
}
