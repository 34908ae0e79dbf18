// Package memory is a process-local link store for development and tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/wadjakorntonsri/linkgate/pkg/core/domain"
	"github.com/wadjakorntonsri/linkgate/pkg/ports"
)

type Store struct {
	mu    sync.RWMutex
	links map[string]domain.Link
}

func New() *Store {
	return &Store{links: make(map[string]domain.Link)}
}

func (s *Store) Get(_ context.Context, key string, _ time.Duration) (*domain.Link, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	link, ok := s.links[key]
	if !ok {
		return nil, nil
	}
	return &link, nil
}

func (s *Store) Put(_ context.Context, key string, link *domain.Link) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.links[key] = *link
	return nil
}

func (s *Store) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.links, key)
	return nil
}

// Dump returns every stored link ordered by key.
func (s *Store) Dump(_ context.Context) ([]domain.Link, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.links))
	for k := range s.links {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]domain.Link, 0, len(keys))
	for _, k := range keys {
		out = append(out, s.links[k])
	}
	return out, nil
}

// SampleLinks are the development fixtures.
func SampleLinks(now time.Time) []domain.Link {
	ts := now.Unix()
	return []domain.Link{
		{ID: "test123", URL: "https://example.com", Slug: "test", Title: "Test Link", CreatedAt: ts, UpdatedAt: ts},
		{ID: "quantum123", URL: "https://openai.com", Slug: "quantum-ai", Title: "Quantum AI", CreatedAt: ts, UpdatedAt: ts},
	}
}

// Seed writes the sample links under their slug keys.
func Seed(ctx context.Context, store ports.LinkStore, now time.Time) error {
	for _, link := range SampleLinks(now) {
		if err := store.Put(ctx, domain.LinkKey(link.Slug), &link); err != nil {
			return err
		}
	}
	return nil
}

var _ ports.LinkStore = (*Store)(nil)
