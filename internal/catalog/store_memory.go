package catalog

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

type MemStore struct {
	mu sync.RWMutex
	m  map[int64]Product
}

func NewMemStore() *MemStore {
	return &MemStore{m: map[int64]Product{}}
}

func (s *MemStore) Ping(ctx context.Context) error { return nil }

func (s *MemStore) List(ctx context.Context) ([]Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Product, 0, len(s.m))
	for _, p := range s.m {
		out = append(out, p)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemStore) Create(ctx context.Context, p Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.m[p.ID]; ok {
		return fmt.Errorf("%w: id=%d", ErrDuplicateKey, p.ID)
	}
	s.m[p.ID] = p
	return nil
}

func (s *MemStore) Update(ctx context.Context, p Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[p.ID] = p
	return nil
}

func (s *MemStore) Delete(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, id)
	return nil
}

func (s *MemStore) Get(ctx context.Context, id int64) (Product, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.m[id]
	return p, ok, nil
}

func (s *MemStore) Close() error { return nil }
