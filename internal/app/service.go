// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/ecotrack/internal/adapters/mq/queue"
	"github.com/okian/ecotrack/internal/adapters/mq/worker"
	"github.com/okian/ecotrack/internal/adapters/repository"
	"github.com/okian/ecotrack/internal/domain/footprint"
	"github.com/okian/ecotrack/internal/domain/gamification"
	"github.com/okian/ecotrack/internal/domain/model"
	"github.com/okian/ecotrack/internal/domain/types"
	"github.com/okian/ecotrack/pkg/logger"
	"github.com/okian/ecotrack/pkg/metrics"
)

const (
	defaultWorkerCount     = 2
	defaultQueueSize       = 1024
	defaultJournalCapacity = 1000

	defaultEmailCount = 42
	defaultStorageGB  = 12.5
	defaultVideoHours = 3.2
)

// Service implements the API dependencies for the dashboard backend.
type Service struct {
	mu sync.RWMutex

	// Core components
	tracker    *gamification.Tracker
	aggregator *footprint.Aggregator
	journal    *repository.RingStore
	queue      *queue.InMemoryQueue
	pool       *worker.Pool

	// Configuration
	workerCount     int
	queueSize       int
	journalCapacity int
	providers       [3]footprint.Provider
	footprintOpts   []footprint.Option

	// State
	started bool
	stopped bool

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of journal workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the capacity of the adjustment queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithJournalCapacity sets how many adjustments the history retains.
func WithJournalCapacity(capacity int) Option {
	return func(s *Service) {
		if capacity > 0 {
			s.journalCapacity = capacity
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithTracker injects the gamification tracker owned by the caller.
func WithTracker(t *gamification.Tracker) Option {
	return func(s *Service) {
		if t != nil {
			s.tracker = t
		}
	}
}

// WithProviders replaces the footprint reading sources.
func WithProviders(email, storage, video footprint.Provider) Option {
	return func(s *Service) {
		if email != nil && storage != nil && video != nil {
			s.providers = [3]footprint.Provider{email, storage, video}
		}
	}
}

// WithMockReadings serves fixed footprint readings.
func WithMockReadings(emailCount, storageGB, videoHours float64) Option {
	return WithProviders(
		footprint.NewStaticProvider(footprint.ProviderEmail, emailCount),
		footprint.NewStaticProvider(footprint.ProviderStorage, storageGB),
		footprint.NewStaticProvider(footprint.ProviderVideo, videoHours),
	)
}

// WithWeeklyJitter sets the +/- fraction applied to synthetic weekly totals.
func WithWeeklyJitter(jitter float64) Option {
	return WithFootprintOptions(footprint.WithJitter(jitter))
}

// WithFootprintOptions forwards options to the footprint aggregator.
func WithFootprintOptions(opts ...footprint.Option) Option {
	return func(s *Service) {
		s.footprintOpts = append(s.footprintOpts, opts...)
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount:     defaultWorkerCount,
		queueSize:       defaultQueueSize,
		journalCapacity: defaultJournalCapacity,
	}
	WithMockReadings(defaultEmailCount, defaultStorageGB, defaultVideoHours)(s)

	for _, opt := range opts {
		opt(s)
	}

	if s.tracker == nil {
		s.tracker = gamification.NewTracker()
	}
	s.aggregator = footprint.NewAggregator(s.providers[0], s.providers[1], s.providers[2], s.footprintOpts...)
	s.journal = repository.NewRingStore(repository.WithCapacity(s.journalCapacity))

	return s
}

// Start creates the adjustment queue and starts the journal workers.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.stopped {
		return ErrStopped
	}

	if s.logger == nil {
		s.logger = logger.Get()
	}

	s.logger.Info(ctx, "starting ecotrack service...")

	s.queue = queue.NewInMemoryQueue(queue.WithCapacity(s.queueSize))
	s.pool = worker.NewPool(s.workerCount, s.queue, s.journal)
	s.pool.Start(ctx)

	st := s.tracker.Status()
	metrics.UpdateGamificationStatus(st.Score, st.Level.String())

	s.started = true
	s.logger.Info(ctx, "ecotrack service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Int("journalCapacity", s.journalCapacity),
	)
	return nil
}

// Stop drains the adjustment queue, stops the workers and closes the
// journal. History stays readable afterwards; the service cannot be
// restarted.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}

	s.logger.Info(ctx, "stopping ecotrack service...")

	var err error
	if s.pool != nil {
		if err = s.pool.Shutdown(ctx); err != nil {
			s.logger.Error(ctx, "worker pool shutdown failed", logger.Error(err))
		}
	}
	if cerr := s.journal.Close(); cerr != nil {
		s.logger.Error(ctx, "journal close failed", logger.Error(cerr))
	}

	s.started = false
	s.stopped = true
	s.logger.Info(ctx, "ecotrack service stopped",
		logger.Int("journaled", int(s.pool.Processed())),
	)
	return err
}

// Status returns the current score and the level recomputed from it.
func (s *Service) Status(_ context.Context) gamification.Status {
	st := s.tracker.Status()
	metrics.UpdateGamificationStatus(st.Score, st.Level.String())
	return st
}

// ApplyAdjustment adds or deducts points and journals the change. Unknown
// types are rejected before any mutation. The journal is best effort: if the
// queue is full the change still stands.
func (s *Service) ApplyAdjustment(ctx context.Context, typ model.AdjustmentType, points float64, description string) (gamification.Status, error) {
	if !typ.Valid() {
		return gamification.Status{}, fmt.Errorf("%w: %q", ErrInvalidType, typ)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.started {
		return gamification.Status{}, ErrNotStarted
	}

	var st gamification.Status
	switch typ {
	case model.AdjustmentAdd:
		st = s.tracker.AddPoints(points, description)
	case model.AdjustmentDeduct:
		var clamped bool
		st, clamped = s.tracker.DeductPointsClamped(points, description)
		if clamped {
			metrics.RecordClampedDeduction()
		}
	}
	metrics.RecordPointAdjustment(string(typ))
	metrics.UpdateGamificationStatus(st.Score, st.Level.String())

	a := model.Adjustment{
		ID:          uuid.NewString(),
		Type:        typ,
		Points:      points,
		Description: description,
		ScoreAfter:  st.Score,
		LevelAfter:  st.Level.String(),
		At:          time.Now().UTC(),
	}
	if !s.queue.Enqueue(ctx, a) {
		metrics.RecordAdjustmentDropped()
		s.logger.Warn(ctx, "adjustment not journaled, queue unavailable",
			logger.String("id", a.ID),
			logger.String("type", string(typ)),
		)
	}

	s.logger.Debug(ctx, "points adjusted",
		logger.String("type", string(typ)),
		logger.Float64("points", points),
		logger.Float64("score", st.Score),
		logger.String("level", st.Level.String()),
	)
	return st, nil
}

// CategoryPie returns the per-category footprint readings.
func (s *Service) CategoryPie(ctx context.Context) ([]types.CategorySlice, error) {
	return s.aggregator.CategoryPie(ctx)
}

// WeeklyTotals returns the synthetic totals for the last seven days.
func (s *Service) WeeklyTotals(ctx context.Context) ([]types.DayTotal, error) {
	return s.aggregator.WeeklyTotals(ctx)
}

// DailyBreakdown returns today's readings per activity.
func (s *Service) DailyBreakdown(ctx context.Context) (types.DailyBreakdown, error) {
	return s.aggregator.DailyBreakdown(ctx)
}

// TotalCO2 returns today's combined footprint.
func (s *Service) TotalCO2(ctx context.Context) (types.TotalCO2, error) {
	return s.aggregator.TotalCO2(ctx)
}

// History returns up to n journaled adjustments, newest first.
func (s *Service) History(ctx context.Context, n int) ([]types.HistoryEntry, error) {
	recent, err := s.journal.Recent(ctx, n)
	if err != nil {
		return nil, err
	}

	out := make([]types.HistoryEntry, len(recent))
	for i, a := range recent {
		out[i] = types.HistoryEntry{
			ID:          a.ID,
			Type:        string(a.Type),
			Points:      a.Points,
			Description: a.Description,
			ScoreAfter:  a.ScoreAfter,
			LevelAfter:  a.LevelAfter,
			At:          a.At,
		}
	}
	return out, nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	st := s.tracker.Status()
	stats := map[string]interface{}{
		"started":         s.started,
		"workerCount":     s.workerCount,
		"queueSize":       s.queueSize,
		"journalCapacity": s.journalCapacity,
		"journalSize":     s.journal.Count(ctx),
		"score":           st.Score,
		"level":           st.Level.String(),
	}

	if s.started {
		stats["queueLength"] = s.queue.Len(ctx)
		stats["journaled"] = s.pool.Processed()
		metrics.UpdateWorkerCount(s.pool.Size())
	}

	return stats
}
