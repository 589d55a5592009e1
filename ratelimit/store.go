// Package ratelimit throttles requests per client IP and route with an approximate
// sliding window.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Result is the outcome of one Hit.
type Result struct {
	Allowed     bool
	Count       int
	WindowStart time.Time
}

// Store owns the counter state. Hit must apply the whole read-modify-write atomically
// for its key.
type Store interface {
	Hit(ctx context.Context, key string, now time.Time, window time.Duration, max int) (Result, error)
}

// apply advances one window entry. Shared by every store so the algorithm lives in one place.
func apply(count int, start, now time.Time, window time.Duration, max int) (Result, bool) {
	if start.IsZero() || now.Sub(start) >= window {
		return Result{Allowed: true, Count: 1, WindowStart: now}, true
	}
	if count < max {
		return Result{Allowed: true, Count: count + 1, WindowStart: start}, true
	}
	return Result{Allowed: false, Count: count, WindowStart: start}, false
}

const defaultPruneThreshold = 10_000

type entry struct {
	count int
	start time.Time
}

// MemoryStore keeps counters in process memory. It is the default for single-instance
// deployments.
type MemoryStore struct {
	mu             sync.Mutex
	entries        map[string]*entry
	pruneThreshold int
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries:        make(map[string]*entry),
		pruneThreshold: defaultPruneThreshold,
	}
}

func (s *MemoryStore) Hit(_ context.Context, key string, now time.Time, window time.Duration, max int) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		if len(s.entries) >= s.pruneThreshold {
			s.prune(now, window)
		}
		e = &entry{}
		s.entries[key] = e
	}

	result, changed := apply(e.count, e.start, now, window, max)
	if changed {
		e.count = result.Count
		e.start = result.WindowStart
	}
	return result, nil
}

// Len reports the number of tracked keys.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// prune drops entries whose window has elapsed. Must be called while holding s.mu.
func (s *MemoryStore) prune(now time.Time, window time.Duration) {
	for key, e := range s.entries {
		if now.Sub(e.start) >= window {
			delete(s.entries, key)
		}
	}
}
