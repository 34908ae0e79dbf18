package ratelimit

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"
)

// DefaultSweepChance is the probability that a hit also purges elapsed windows.
const DefaultSweepChance = 0.01

type memoryEntry struct {
	count   int64
	resetAt time.Time
}

// MemoryStore keeps windows in process memory. Counters are not shared
// between instances.
type MemoryStore struct {
	mu          sync.Mutex
	entries     map[string]memoryEntry
	sweepChance float64
	rand        func() float64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries:     make(map[string]memoryEntry),
		sweepChance: DefaultSweepChance,
		rand:        rand.Float64,
	}
}

func (s *MemoryStore) Hit(_ context.Context, key string, now time.Time, window time.Duration) (Window, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.rand() < s.sweepChance {
		s.sweep(now)
	}

	e, ok := s.entries[key]
	if !ok || now.After(e.resetAt) {
		e = memoryEntry{count: 1, resetAt: now.Add(window)}
	} else {
		e.count++
	}
	s.entries[key] = e

	return Window{Count: e.count, ResetAt: e.resetAt}, nil
}

// sweep drops only windows whose reset time has passed.
func (s *MemoryStore) sweep(now time.Time) {
	for k, e := range s.entries {
		if now.After(e.resetAt) {
			delete(s.entries, k)
		}
	}
}

// Len reports the number of tracked clients.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
