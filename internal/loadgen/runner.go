package loadgen

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/okian/ecotrack/internal/domain/types"
	"github.com/okian/ecotrack/pkg/logger"
)

// File permission constants.
const (
	directoryPermission = 0750
	filePermission      = 0600
)

// Run executes a complete load run: health check, submission, replays and
// verification of the final score.
func Run(ctx context.Context, config *Config) (*Stats, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	stats := &Stats{StartTime: time.Now()}

	logger.Get().Info(ctx, "starting ecotrack load run",
		logger.String("baseURL", config.BaseURL),
		logger.Int("adjustments", config.NumAdjustments),
		logger.Float64("deductRatio", config.DeductRatio),
		logger.Int("replays", config.Replays),
		logger.Int("workers", config.Workers),
		logger.Float64("ratePerSec", config.RatePerSec),
		logger.Duration("timeout", config.Timeout),
		logger.Bool("verbose", config.Verbose))

	client := newHTTPClient(config.Timeout, config.RatePerSec)

	// Step 1: Check service health
	if err := checkServiceHealth(ctx, client, config); err != nil {
		return stats, err
	}

	// Step 2: Read the starting score
	initial, err := fetchStatus(ctx, client, config)
	if err != nil {
		return stats, fmt.Errorf("initial status: %w", err)
	}
	stats.InitialScore = initial.Score

	// Step 3: Generate adjustments
	adjustments, err := generateAdjustments(ctx, config, stats)
	if err != nil {
		return stats, fmt.Errorf("generation failed: %w", err)
	}

	// Step 4: Submit, then re-send a prefix with the same keys
	var t tally
	submitAdjustments(ctx, config, client, adjustments, &t)
	if config.Replays > 0 {
		submitAdjustments(ctx, config, client, adjustments[:config.Replays], &t)
	}
	stats.Submitted = t.submitted
	stats.Applied = t.applied
	stats.Replayed = t.replayed
	stats.RateLimited = t.rateLimited
	stats.Failed = t.failed
	stats.AppliedAdds = t.adds
	stats.AppliedDeducts = t.deducts

	// Step 5: Read the final score and verify
	final, err := fetchStatus(ctx, client, config)
	if err != nil {
		return stats, fmt.Errorf("final status: %w", err)
	}
	stats.FinalScore = final.Score
	stats.FinalLevel = final.Level

	if err := verifyResults(ctx, config, stats); err != nil {
		return stats, err
	}

	// Step 6: Save adjustments to file
	if config.OutputFile != "" {
		if err := saveAdjustmentsToFile(ctx, config.OutputFile, adjustments); err != nil {
			logger.Get().Warn(ctx, "failed to save adjustments to file", logger.Error(err))
		}
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(ctx, stats)

	logger.Get().Info(ctx, "load run completed successfully")
	return stats, nil
}

// checkServiceHealth verifies the service is running.
func checkServiceHealth(ctx context.Context, client *HTTPClient, config *Config) error {
	logger.Get().Info(ctx, "checking service health")

	resp, err := client.Get(ctx, config.BaseURL+"/healthz")
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnhealthy, err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logger.Get().Error(ctx, "failed to close response body", logger.Error(err))
		}
	}()

	// The health endpoint serves Prometheus metrics; any 200 is healthy.
	if resp.StatusCode != StatusOK {
		return fmt.Errorf("%w: status %d", ErrUnhealthy, resp.StatusCode)
	}

	logger.Get().Info(ctx, "service is healthy")
	return nil
}

// fetchStatus reads GET /api/gamification.
func fetchStatus(ctx context.Context, client *HTTPClient, config *Config) (types.GamificationStatus, error) {
	var st types.GamificationStatus
	if err := getJSON(ctx, client, config.BaseURL+"/api/gamification", &st); err != nil {
		return types.GamificationStatus{}, err
	}
	return st, nil
}

// saveAdjustmentsToFile writes the generated adjustments as a JSON array.
func saveAdjustmentsToFile(ctx context.Context, filename string, adjustments []Adjustment) error {
	if len(adjustments) == 0 {
		return fmt.Errorf("no adjustments to save")
	}

	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	data, err := json.MarshalIndent(adjustments, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal adjustments: %w", err)
	}
	if err := os.WriteFile(filename, append(data, '\n'), filePermission); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	logger.Get().Info(ctx, "adjustments saved to file", logger.String("filename", filename))
	return nil
}

// displayFinalStats logs the final run statistics.
func displayFinalStats(ctx context.Context, stats *Stats) {
	var successRate, requestsPerSecond float64

	if stats.Submitted > 0 {
		successRate = float64(stats.Applied+stats.Replayed) / float64(stats.Submitted) * PercentageMultiplier
	}
	if stats.Duration > 0 {
		requestsPerSecond = float64(stats.Submitted) / stats.Duration.Seconds()
	}

	logger.Get().Info(ctx, "final statistics",
		logger.Int("generated", stats.Generated),
		logger.Int("submitted", stats.Submitted),
		logger.Int("applied", stats.Applied),
		logger.Int("replayed", stats.Replayed),
		logger.Int("rateLimited", stats.RateLimited),
		logger.Int("failed", stats.Failed),
		logger.Float64("initialScore", stats.InitialScore),
		logger.Float64("finalScore", stats.FinalScore),
		logger.String("finalLevel", stats.FinalLevel),
		logger.Duration("duration", stats.Duration),
		logger.Float64("successRate", successRate),
		logger.Float64("requestsPerSecond", requestsPerSecond))
}
