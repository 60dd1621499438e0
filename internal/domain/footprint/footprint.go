// Package footprint aggregates raw digital-activity readings into the carbon
// footprint views served by the dashboard.
package footprint

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/okian/ecotrack/internal/domain/types"
	"github.com/okian/ecotrack/pkg/metrics"
)

// Category names as shown on the dashboard.
const (
	CategoryEmail   = "Email"
	CategoryStorage = "Online Storage"
	CategoryVideo   = "Video Streaming"
)

const (
	defaultJitter = 0.15
	daysPerWeek   = 7
	weekdayLayout = "Mon"
)

// Provider supplies a single non-negative reading.
type Provider interface {
	Name() string
	Read(ctx context.Context) (float64, error)
}

// Aggregator combines the email, storage and video readings.
type Aggregator struct {
	email   Provider
	storage Provider
	video   Provider

	jitter float64
	now    func() time.Time

	rngMu sync.Mutex
	rng   *rand.Rand
}

// NewAggregator creates an aggregator over the three providers.
func NewAggregator(email, storage, video Provider, opts ...Option) *Aggregator {
	a := &Aggregator{
		email:   email,
		storage: storage,
		video:   video,
		jitter:  defaultJitter,
		now:     time.Now,
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())), //nolint:gosec // jitter for mocked series only
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// readings holds one reading per category.
type readings struct {
	email   float64
	storage float64
	video   float64
}

func (a *Aggregator) readAll(ctx context.Context) (readings, error) {
	var r readings
	var err error
	if r.email, err = read(ctx, a.email); err != nil {
		return readings{}, err
	}
	if r.storage, err = read(ctx, a.storage); err != nil {
		return readings{}, err
	}
	if r.video, err = read(ctx, a.video); err != nil {
		return readings{}, err
	}
	return r, nil
}

func read(ctx context.Context, p Provider) (float64, error) {
	start := time.Now()
	v, err := p.Read(ctx)
	metrics.RecordProviderLatency(p.Name(), float64(time.Since(start).Milliseconds()))
	if err != nil {
		metrics.RecordProviderError(p.Name())
		return 0, fmt.Errorf("%w: %s: %w", ErrProvider, p.Name(), err)
	}
	metrics.UpdateProviderReading(p.Name(), v)
	return v, nil
}

// CategoryPie returns the raw reading of each category.
func (a *Aggregator) CategoryPie(ctx context.Context) ([]types.CategorySlice, error) {
	r, err := a.readAll(ctx)
	if err != nil {
		return nil, err
	}
	return []types.CategorySlice{
		{Name: CategoryEmail, Value: r.email},
		{Name: CategoryStorage, Value: r.storage},
		{Name: CategoryVideo, Value: r.video},
	}, nil
}

// WeeklyTotals synthesizes totals for the last seven days, oldest first and
// ending today. Each category reading is scaled by an independent random
// factor in [1-jitter, 1+jitter) and truncated to a non-negative integer.
func (a *Aggregator) WeeklyTotals(ctx context.Context) ([]types.DayTotal, error) {
	r, err := a.readAll(ctx)
	if err != nil {
		return nil, err
	}

	today := a.now()
	out := make([]types.DayTotal, 0, daysPerWeek)
	for i := 0; i < daysPerWeek; i++ {
		day := today.AddDate(0, 0, -(daysPerWeek - 1 - i))
		total := a.jittered(r.email) + a.jittered(r.storage) + a.jittered(r.video)
		out = append(out, types.DayTotal{Day: day.Format(weekdayLayout), Value: total})
	}
	return out, nil
}

func (a *Aggregator) jittered(v float64) int64 {
	a.rngMu.Lock()
	u := 1 - a.jitter + a.rng.Float64()*2*a.jitter
	a.rngMu.Unlock()
	return int64(math.Max(0, math.Trunc(v*u)))
}

// DailyBreakdown returns today's readings per activity. Video hours stand in
// for browsing hours.
func (a *Aggregator) DailyBreakdown(ctx context.Context) (types.DailyBreakdown, error) {
	r, err := a.readAll(ctx)
	if err != nil {
		return types.DailyBreakdown{}, err
	}
	return types.DailyBreakdown{
		EmailsSent:    r.email,
		BrowsingHours: roundTenth(r.video),
		CloudStorage:  roundTenth(r.storage),
	}, nil
}

// TotalCO2 sums today's readings, rounded half to even.
func (a *Aggregator) TotalCO2(ctx context.Context) (types.TotalCO2, error) {
	r, err := a.readAll(ctx)
	if err != nil {
		return types.TotalCO2{}, err
	}
	return types.TotalCO2{Total: math.RoundToEven(r.email + r.storage + r.video)}, nil
}

func roundTenth(v float64) float64 {
	return math.RoundToEven(v*10) / 10
}
