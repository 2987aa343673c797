package order

import (
	"context"
	"sync"
)

type MemStore struct {
	mu    sync.RWMutex
	m     map[string]Summary
	order []string
}

func NewMemStore() *MemStore {
	return &MemStore{m: map[string]Summary{}}
}

func NewStore() Store {
	return NewMemStore()
}

func (s *MemStore) Put(_ context.Context, o Summary) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.m[o.ID]; !ok {
		s.order = append(s.order, o.ID)
	}
	s.m[o.ID] = o
	return nil
}

func (s *MemStore) Get(_ context.Context, id string) (Summary, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.m[id]
	return o, ok, nil
}

func (s *MemStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.m[id]; !ok {
		return nil
	}
	delete(s.m, id)
	for i, v := range s.order {
		if v == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

func (s *MemStore) Pending(_ context.Context) (Summary, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.order) == 0 {
		return Summary{}, false, nil
	}
	return s.m[s.order[len(s.order)-1]], true, nil
}
