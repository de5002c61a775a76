package repository

import (
	"context"
	"sync"

	"github.com/akm-xdd/igap-club/internal/post"
)

// MemoryRepo is a simple in-memory repository used by the "memory" backend
// and by unit tests.
type MemoryRepo struct {
	mu    sync.RWMutex
	store map[string]*post.Post
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{store: make(map[string]*post.Post)}
}

func clone(p *post.Post) *post.Post {
	cp := *p
	cp.Tags = append([]string(nil), p.Tags...)
	return &cp
}

func (m *MemoryRepo) Create(ctx context.Context, p *post.Post) (*post.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.ID == "" {
		p.ID = newID()
	}
	m.store[p.ID] = clone(p)
	return clone(p), nil
}

func (m *MemoryRepo) Get(ctx context.Context, id string) (*post.Post, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if p, ok := m.store[id]; ok {
		return clone(p), nil
	}
	return nil, post.ErrNotFound
}

func (m *MemoryRepo) List(ctx context.Context) ([]*post.Post, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*post.Post, 0, len(m.store))
	for _, p := range m.store {
		out = append(out, p.Summary())
	}
	sortNewestFirst(out)
	return out, nil
}

func (m *MemoryRepo) Update(ctx context.Context, id string, patch post.Patch) (*post.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.store[id]
	if !ok {
		return nil, post.ErrNotFound
	}
	patch.Apply(p)
	return clone(p), nil
}

func (m *MemoryRepo) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.store[id]; !ok {
		return post.ErrNotFound
	}
	delete(m.store, id)
	return nil
}
