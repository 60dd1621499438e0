package footprint

import (
	"math/rand"
	"time"
)

// Option applies a configuration option to the Aggregator.
type Option func(*Aggregator)

// WithJitter sets the weekly jitter fraction. Values outside [0, 1) are ignored.
func WithJitter(jitter float64) Option {
	return func(a *Aggregator) {
		if jitter >= 0 && jitter < 1 {
			a.jitter = jitter
		}
	}
}

// WithClock overrides the clock used to label weekly totals.
func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) {
		if now != nil {
			a.now = now
		}
	}
}

// WithRandSource seeds the jitter generator, mainly for tests.
func WithRandSource(src rand.Source) Option {
	return func(a *Aggregator) {
		if src != nil {
			a.rng = rand.New(src) //nolint:gosec // jitter for mocked series only
		}
	}
}
