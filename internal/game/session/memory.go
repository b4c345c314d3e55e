package session

import (
	"context"
	"fmt"
	"sync"
)

// MemoryStore is an in-process Store. All methods are safe for concurrent use.
type MemoryStore[T Battle] struct {
	mu sync.RWMutex
	m  map[string]T
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore[T Battle]() *MemoryStore[T] {
	return &MemoryStore[T]{m: map[string]T{}}
}

func (s *MemoryStore[T]) Get(_ context.Context, userID string) (T, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.m[userID]
	return v, ok, nil
}

func (s *MemoryStore[T]) Register(_ context.Context, v T) error {
	ids := v.Participants()
	if len(ids) == 0 {
		return fmt.Errorf("session: battle has no participants")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		if cur, ok := s.m[id]; ok && cur != v && !cur.Ended() {
			return fmt.Errorf("%w: %s", ErrParticipantBusy, id)
		}
	}
	for _, id := range ids {
		s.m[id] = v
	}
	return nil
}

func (s *MemoryStore[T]) Remove(_ context.Context, v T) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range v.Participants() {
		if cur, ok := s.m[id]; ok && cur == v {
			delete(s.m, id)
		}
	}
	return nil
}

// Len returns the number of participant mappings.
func (s *MemoryStore[T]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.m)
}
