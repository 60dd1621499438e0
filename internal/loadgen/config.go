package loadgen

import (
	"fmt"
	"time"

	"github.com/okian/ecotrack/internal/domain/model"
)

// Config holds configuration for a load run.
type Config struct {
	BaseURL        string        // Base URL of the service
	NumAdjustments int           // Number of adjustments to generate
	DeductRatio    float64       // Fraction of adjustments that deduct points
	MaxPoints      int           // Upper bound for the points of one adjustment
	Replays        int           // Adjustments re-sent with their original Idempotency-Key
	Workers        int           // Number of concurrent workers
	RatePerSec     float64       // Client-side request rate, 0 for unlimited
	Timeout        time.Duration // HTTP request timeout
	OutputFile     string        // Output file for generated adjustments, empty to skip
	LogFile        string        // Log file for run output
	Verbose        bool          // Enable verbose logging
}

// Validate checks the configuration before a run.
func (c *Config) Validate() error {
	switch {
	case c.BaseURL == "":
		return fmt.Errorf("%w: base url must not be empty", ErrInvalidConfig)
	case c.NumAdjustments < 1:
		return fmt.Errorf("%w: adjustments must be positive", ErrInvalidConfig)
	case c.DeductRatio < 0 || c.DeductRatio > 1:
		return fmt.Errorf("%w: deduct ratio must be in [0, 1]", ErrInvalidConfig)
	case c.MaxPoints < 1:
		return fmt.Errorf("%w: max points must be positive", ErrInvalidConfig)
	case c.Replays < 0 || c.Replays > c.NumAdjustments:
		return fmt.Errorf("%w: replays must be in [0, adjustments]", ErrInvalidConfig)
	case c.Workers < 1:
		return fmt.Errorf("%w: workers must be positive", ErrInvalidConfig)
	case c.RatePerSec < 0:
		return fmt.Errorf("%w: rate must not be negative", ErrInvalidConfig)
	}
	return nil
}

// Adjustment is one generated point change together with its idempotency key.
type Adjustment struct {
	Key         string               `json:"key"`
	Type        model.AdjustmentType `json:"type"`
	Points      float64              `json:"points"`
	Description string               `json:"description,omitempty"`
}

// Stats holds run statistics.
type Stats struct {
	Generated   int
	Submitted   int
	Applied     int
	Replayed    int
	RateLimited int
	Failed      int

	AppliedAdds    float64
	AppliedDeducts float64

	InitialScore float64
	FinalScore   float64
	FinalLevel   string

	StartTime time.Time
	EndTime   time.Time
	Duration  time.Duration
}
