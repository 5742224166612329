package audit

import (
	"context"
	"sync"
)

// InMemoryStore keeps audit events in process memory, indexed by resource.
type InMemoryStore struct {
	mu     sync.RWMutex
	events map[string][]Event
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{events: make(map[string][]Event)}
}

func (s *InMemoryStore) Append(_ context.Context, event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[event.ResourceID] = append(s.events[event.ResourceID], event)
	return nil
}

func (s *InMemoryStore) ListByResource(_ context.Context, resourceID string) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Event{}, s.events[resourceID]...), nil
}

// ListAll returns every stored event, for test assertions.
func (s *InMemoryStore) ListAll(_ context.Context) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var all []Event
	for _, events := range s.events {
		all = append(all, events...)
	}
	return all, nil
}

func (s *InMemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = make(map[string][]Event)
}
