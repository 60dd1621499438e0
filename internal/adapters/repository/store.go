// Package repository keeps the in-memory journal of point adjustments.
package repository

import (
	"context"

	"github.com/okian/ecotrack/internal/domain/model"
)

// Store provides append and read access to journaled adjustments.
type Store interface {
	// Append records an adjustment, evicting the oldest entry when full.
	Append(ctx context.Context, a model.Adjustment) error

	// Recent returns up to n adjustments, newest first.
	// Returns ErrInvalidLimit if n < 1.
	Recent(ctx context.Context, n int) ([]model.Adjustment, error)

	// Count returns the number of adjustments currently retained.
	Count(ctx context.Context) int
}
