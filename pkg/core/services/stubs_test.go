package services

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/wadjakorntonsri/linkgate/pkg/core/domain"
)

type stubStore struct {
	links    map[string]*domain.Link
	getErr   error
	keys     []string
	ttls     []time.Duration
	deleted  []string
	putCalls int
}

func newStubStore(links map[string]*domain.Link) *stubStore {
	if links == nil {
		links = map[string]*domain.Link{}
	}
	return &stubStore{links: links}
}

func (s *stubStore) Get(_ context.Context, key string, ttl time.Duration) (*domain.Link, error) {
	s.keys = append(s.keys, key)
	s.ttls = append(s.ttls, ttl)
	if s.getErr != nil {
		return nil, s.getErr
	}
	return s.links[key], nil
}

func (s *stubStore) Put(_ context.Context, key string, link *domain.Link) error {
	s.putCalls++
	s.links[key] = link
	return nil
}

func (s *stubStore) Delete(_ context.Context, key string) error {
	s.deleted = append(s.deleted, key)
	delete(s.links, key)
	return nil
}

type stubCounter struct {
	countFunc  func(id string) (int64, error)
	countsFunc func(ids []string) (map[string]int64, error)
	calls      int
}

func (c *stubCounter) CountFor(_ context.Context, id string) (int64, error) {
	c.calls++
	return c.countFunc(id)
}

func (c *stubCounter) Counts(_ context.Context, ids []string) (map[string]int64, error) {
	c.calls++
	return c.countsFunc(ids)
}

type stubAccess struct {
	err    error
	visits []*domain.Visit
}

func (a *stubAccess) Record(_ context.Context, v *domain.Visit) error {
	a.visits = append(a.visits, v)
	return a.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func int64p(v int64) *int64 { return &v }
