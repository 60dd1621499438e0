package loadgen

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/okian/ecotrack/pkg/logger"
)

// SetupLogging initializes the logger to write to both console and file.
// If logFile is empty, a timestamped filename is generated.
func SetupLogging(logFile string, verbose bool) error {
	if logFile == "" {
		logFile = "loadgen_log_" + time.Now().Format("20060102_150405") + ".log"
	}

	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, filePermission)
	if err != nil {
		return fmt.Errorf("failed to create log file: %w", err)
	}

	if err := logger.InitWithWriter(io.MultiWriter(os.Stdout, file), logger.FormatText); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	if verbose {
		if err := logger.SetLevelString("debug"); err != nil {
			return err
		}
	}
	logger.Get().Info(context.Background(), "logging to file", logger.String("logFile", logFile))
	return nil
}

// ShowHelp prints usage information for the load generator.
func ShowHelp() {
	_, _ = os.Stdout.WriteString(`EcoTrack Load Generator
=======================

A concurrent tool that drives point adjustments through the EcoTrack API
and verifies the resulting score.

Usage:
  go run ./cmd/loadgen [options]

Options:
  -url string
        Base URL of the service (default "http://localhost:5000")
  -adjustments int
        Number of adjustments to generate and submit (default 200)
  -deduct-ratio float
        Fraction of adjustments that deduct points (default 0)
  -max-points int
        Upper bound for points per adjustment (default 25)
  -replays int
        Adjustments re-sent with their original Idempotency-Key (default 20)
  -workers int
        Number of concurrent workers (default 4)
  -rate float
        Client-side requests per second, 0 for unlimited (default 15)
  -timeout duration
        HTTP request timeout (default 10s)
  -output string
        Output file for generated adjustments
  -log string
        Log file for run output (default: loadgen_log_TIMESTAMP.log)
  -verbose
        Enable verbose logging
  -help
        Show this help message

Examples:
  # Add-only run; the final score must equal the sum of applied points
  go run ./cmd/loadgen

  # Mixed run against another address
  go run ./cmd/loadgen -adjustments 1000 -deduct-ratio 0.3 -url http://localhost:8080
`)
}
