package worker_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	queue "github.com/okian/ecotrack/internal/adapters/mq/queue"
	worker "github.com/okian/ecotrack/internal/adapters/mq/worker"
	model "github.com/okian/ecotrack/internal/domain/model"
	logging "github.com/okian/ecotrack/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

type mockQueue struct {
	ch chan queue.Adjustment
}

func newMockQueue() *mockQueue {
	return &mockQueue{ch: make(chan queue.Adjustment, 10)}
}

func (mq *mockQueue) Dequeue(context.Context) <-chan queue.Adjustment { return mq.ch }

func (mq *mockQueue) Close() error {
	close(mq.ch)
	return nil
}

type mockRecorder struct {
	mu      sync.Mutex
	entries  []model.Adjustment
	err      error
	attempts int
}

func (m *mockRecorder) Append(_ context.Context, a model.Adjustment) error { //nolint:gocritic // test mock
	m.mu.Lock()
	defer m.mu.Unlock()
	m.attempts++
	if m.err != nil {
		return m.err
	}
	m.entries = append(m.entries, a)
	return nil
}

func (m *mockRecorder) ids() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.entries))
	for _, e := range m.entries {
		out = append(out, e.ID)
	}
	return out
}

func (m *mockRecorder) attemptCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.attempts
}

func waitFor(cond func() bool) bool {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return false
}

func TestInMemoryWorker(t *testing.T) {
	convey.Convey("Given a worker over a mock queue", t, func() {
		_ = logging.Init()

		q := newMockQueue()
		rec := &mockRecorder{}
		w := worker.NewInMemoryWorker(q, rec, worker.WithName("test-worker"))
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go w.Run(ctx)

		convey.Convey("When an adjustment is queued", func() {
			q.ch <- model.Adjustment{ID: "adj-1", Type: model.AdjustmentAdd, Points: 5}

			convey.Convey("Then it should be journaled", func() {
				convey.So(waitFor(func() bool { return w.Processed() == 1 }), convey.ShouldBeTrue)
				convey.So(rec.ids(), convey.ShouldResemble, []string{"adj-1"})
			})
		})

		convey.Convey("When the recorder fails", func() {
			rec.mu.Lock()
			rec.err = errors.New("journal closed")
			rec.mu.Unlock()
			q.ch <- model.Adjustment{ID: "adj-2"}

			convey.Convey("Then the worker keeps running without counting it", func() {
				convey.So(waitFor(func() bool { return rec.attemptCount() == 1 }), convey.ShouldBeTrue)
				convey.So(w.Processed(), convey.ShouldEqual, int64(0))

				rec.mu.Lock()
				rec.err = nil
				rec.mu.Unlock()
				q.ch <- model.Adjustment{ID: "adj-3"}
				convey.So(waitFor(func() bool { return w.Processed() == 1 }), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When shutting down", func() {
			err := w.Shutdown(context.Background())

			convey.Convey("Then it should stop cleanly and tolerate a second call", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(w.Shutdown(context.Background()), convey.ShouldBeNil)
			})
		})
	})
}

func TestPool(t *testing.T) {
	convey.Convey("Given a pool over a real queue", t, func() {
		_ = logging.Init()

		q := queue.NewInMemoryQueue(queue.WithCapacity(100))
		rec := &mockRecorder{}
		pool := worker.NewPool(3, q, rec)
		pool.Start(context.Background())

		convey.Convey("When adjustments are enqueued and the pool shuts down", func() {
			for _, id := range []string{"a", "b", "c", "d", "e"} {
				convey.So(q.Enqueue(context.Background(), model.Adjustment{ID: id}), convey.ShouldBeTrue)
			}
			err := pool.Shutdown(context.Background())

			convey.Convey("Then every queued adjustment should be journaled", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(pool.Size(), convey.ShouldEqual, 3)
				convey.So(len(rec.ids()), convey.ShouldEqual, 5)
				convey.So(pool.Processed(), convey.ShouldEqual, int64(5))
				convey.So(q.IsClosed(), convey.ShouldBeTrue)
			})
		})
	})

	convey.Convey("Given a pool with a non-positive worker count", t, func() {
		_ = logging.Init()
		pool := worker.NewPool(0, newMockQueue(), &mockRecorder{})

		convey.Convey("Then it should fall back to the default size", func() {
			convey.So(pool.Size(), convey.ShouldEqual, 2)
		})
	})
}
