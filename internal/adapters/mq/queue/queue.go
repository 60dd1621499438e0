// Package queue carries accepted point adjustments from the request path to
// the journal workers.
//
// Enqueue never blocks: when the queue is full or closed the adjustment is
// rejected and the caller decides what to do with it.
package queue

import (
	"context"
	"sync"
	"time"

	"github.com/okian/ecotrack/internal/domain/model"
	"github.com/okian/ecotrack/pkg/metrics"
)

const defaultQueueCapacity = 1024

// Adjustment is the payload type flowing through the queue.
type Adjustment = model.Adjustment

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue adds an adjustment to the queue.
	// Returns false if the queue is full or closed.
	Enqueue(ctx context.Context, a Adjustment) bool

	// Dequeue returns a channel that receives adjustments as they arrive.
	// The channel is closed once the queue is closed and drained.
	Dequeue(ctx context.Context) <-chan Adjustment

	// Len returns the current number of queued adjustments.
	Len(ctx context.Context) int

	// Close stops accepting adjustments. Queued ones are still delivered.
	Close() error

	// IsClosed returns true if the queue has been closed.
	IsClosed() bool
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue struct {
	items    chan Adjustment
	capacity int

	mu     sync.RWMutex
	closed bool
}

// NewInMemoryQueue creates a new in-memory queue with configuration options.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{capacity: defaultQueueCapacity}
	for _, opt := range opts {
		opt(q)
	}
	q.items = make(chan Adjustment, q.capacity)

	metrics.UpdateQueueCapacity(q.capacity)
	metrics.UpdateQueueSize(0)
	return q
}

// Enqueue adds an adjustment to the queue.
func (q *InMemoryQueue) Enqueue(ctx context.Context, a Adjustment) bool { //nolint:gocritic // hugeParam: passed by value for channel semantics
	start := time.Now()
	defer func() {
		metrics.RecordQueueProcessingLatency(float64(time.Since(start).Milliseconds()))
	}()

	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordQueueEnqueueError()
		metrics.RecordErrorByComponent("queue", "closed")
		return false
	}

	select {
	case q.items <- a:
		metrics.RecordQueueEnqueue()
		metrics.UpdateQueueSize(len(q.items))
		return true
	case <-ctx.Done():
		metrics.RecordQueueEnqueueError()
		metrics.RecordErrorByComponent("queue", "context_cancelled")
		return false
	default:
		metrics.RecordQueueEnqueueError()
		metrics.RecordErrorByComponent("queue", "queue_full")
		return false
	}
}

// Dequeue returns a channel that receives adjustments as they arrive.
func (q *InMemoryQueue) Dequeue(ctx context.Context) <-chan Adjustment {
	out := make(chan Adjustment)
	go func() {
		defer close(out)
		for a := range q.items {
			select {
			case out <- a:
				metrics.RecordQueueDequeue()
				metrics.UpdateQueueSize(len(q.items))
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// Len returns the current number of queued adjustments.
func (q *InMemoryQueue) Len(_ context.Context) int {
	size := len(q.items)
	metrics.UpdateQueueSize(size)
	return size
}

// Close stops accepting adjustments.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	close(q.items)
	q.closed = true
	return nil
}

// IsClosed returns true if the queue has been closed.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
