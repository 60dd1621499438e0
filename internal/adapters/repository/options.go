package repository

// Option applies a configuration option to the RingStore.
type Option func(*RingStore)

// WithCapacity sets how many adjustments the journal retains.
func WithCapacity(capacity int) Option {
	return func(s *RingStore) {
		if capacity > 0 {
			s.capacity = capacity
		}
	}
}
