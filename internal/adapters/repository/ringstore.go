package repository

import (
	"context"
	"sync"

	"github.com/okian/ecotrack/internal/domain/model"
	"github.com/okian/ecotrack/pkg/metrics"
)

const defaultCapacity = 1000

// RingStore is a fixed-size, in-memory Store. Once full, each append
// overwrites the oldest entry.
type RingStore struct {
	mu       sync.RWMutex
	capacity int
	buf      []model.Adjustment
	next     int // slot for the next append
	count    int
	closed   bool
}

// NewRingStore creates an empty journal.
func NewRingStore(opts ...Option) *RingStore {
	s := &RingStore{capacity: defaultCapacity}
	for _, opt := range opts {
		opt(s)
	}
	s.buf = make([]model.Adjustment, s.capacity)
	metrics.UpdateJournalSize(0)
	return s
}

// Append implements Store.
func (s *RingStore) Append(_ context.Context, a model.Adjustment) error { //nolint:gocritic // hugeParam: stored by value
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}

	s.buf[s.next] = a
	s.next = (s.next + 1) % s.capacity
	if s.count < s.capacity {
		s.count++
	}
	metrics.UpdateJournalSize(s.count)
	return nil
}

// Recent implements Store.
func (s *RingStore) Recent(_ context.Context, n int) ([]model.Adjustment, error) {
	if n < 1 {
		return nil, ErrInvalidLimit
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if n > s.count {
		n = s.count
	}
	out := make([]model.Adjustment, 0, n)
	for i := 1; i <= n; i++ {
		idx := (s.next - i + s.capacity) % s.capacity
		out = append(out, s.buf[idx])
	}
	return out, nil
}

// Count implements Store.
func (s *RingStore) Count(_ context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.count
}

// Close rejects further appends. Entries stay readable.
func (s *RingStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
