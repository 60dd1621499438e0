// Package dedupe remembers the outcome of requests that carry an idempotency
// key so a retried request is answered without being applied twice.
package dedupe

import (
	"context"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/okian/ecotrack/internal/domain/types"
)

const defaultMaxSize = 10000

// Deduper records idempotency keys and the result produced for each.
type Deduper interface {
	// SeenAndRecord atomically checks if key was seen and records it if not.
	// Returns true if key was already seen, false if it was newly recorded.
	SeenAndRecord(ctx context.Context, key string) bool

	// Complete stores the result for a recorded key.
	Complete(ctx context.Context, key string, result types.UpdateResult)

	// Result returns the stored result. ok is false while the first request
	// for key is still in flight or when key is unknown.
	Result(ctx context.Context, key string) (result types.UpdateResult, ok bool)

	// Unrecord forgets key so the request can be retried. Used when the
	// first attempt failed before producing a result.
	Unrecord(ctx context.Context, key string)

	Size() int64
}

type entry struct {
	done   bool
	result types.UpdateResult
}

// inMemoryDeduper keeps the most recently used keys in a bounded LRU.
type inMemoryDeduper struct {
	maxSize int
	cache   *lru.Cache[string, entry]
}

// NewInMemoryDeduper creates a new in-memory deduper with configuration options.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{maxSize: defaultMaxSize}
	for _, opt := range opts {
		opt(d)
	}

	cache, err := lru.New[string, entry](d.maxSize)
	if err != nil {
		// Only fails for a non-positive size, which WithMaxSize rejects.
		panic(err)
	}
	d.cache = cache
	return d
}

// SeenAndRecord implements Deduper.
func (d *inMemoryDeduper) SeenAndRecord(_ context.Context, key string) bool {
	seen, _ := d.cache.ContainsOrAdd(key, entry{})
	return seen
}

// Complete implements Deduper.
func (d *inMemoryDeduper) Complete(_ context.Context, key string, result types.UpdateResult) {
	d.cache.Add(key, entry{done: true, result: result})
}

// Result implements Deduper.
func (d *inMemoryDeduper) Result(_ context.Context, key string) (types.UpdateResult, bool) {
	e, ok := d.cache.Get(key)
	if !ok || !e.done {
		return types.UpdateResult{}, false
	}
	return e.result, true
}

// Unrecord implements Deduper.
func (d *inMemoryDeduper) Unrecord(_ context.Context, key string) {
	d.cache.Remove(key)
}

// Size returns the current number of entries in the deduper.
func (d *inMemoryDeduper) Size() int64 {
	return int64(d.cache.Len())
}
