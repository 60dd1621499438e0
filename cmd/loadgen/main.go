package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/okian/ecotrack/internal/loadgen"
)

// Default configuration constants.
const (
	defaultAdjustments = 200
	defaultMaxPoints   = 25
	defaultReplays     = 20
	defaultWorkers     = 4
	defaultRate        = 15
	defaultTimeout     = 10 * time.Second
	defaultRunTimeout  = 10 * time.Minute
)

func main() {
	var (
		baseURL     = flag.String("url", "http://localhost:5000", "Base URL of the service")
		adjustments = flag.Int("adjustments", defaultAdjustments, "Number of adjustments to generate and submit")
		deductRatio = flag.Float64("deduct-ratio", 0, "Fraction of adjustments that deduct points")
		maxPoints   = flag.Int("max-points", defaultMaxPoints, "Upper bound for points per adjustment")
		replays     = flag.Int("replays", defaultReplays, "Adjustments re-sent with their original Idempotency-Key")
		workers     = flag.Int("workers", defaultWorkers, "Number of concurrent workers")
		ratePerSec  = flag.Float64("rate", defaultRate, "Client-side requests per second, 0 for unlimited")
		timeout     = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		outputFile  = flag.String("output", "", "Output file for generated adjustments")
		logFile     = flag.String("log", "", "Log file for run output (default: loadgen_log_TIMESTAMP.log)")
		verbose     = flag.Bool("verbose", false, "Enable verbose logging")
		help        = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		loadgen.ShowHelp()
		return
	}

	if err := loadgen.SetupLogging(*logFile, *verbose); err != nil {
		_, _ = os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultRunTimeout)
	defer cancel()

	config := &loadgen.Config{
		BaseURL:        *baseURL,
		NumAdjustments: *adjustments,
		DeductRatio:    *deductRatio,
		MaxPoints:      *maxPoints,
		Replays:        *replays,
		Workers:        *workers,
		RatePerSec:     *ratePerSec,
		Timeout:        *timeout,
		OutputFile:     *outputFile,
		LogFile:        *logFile,
		Verbose:        *verbose,
	}

	if _, err := loadgen.Run(ctx, config); err != nil {
		_, _ = os.Stderr.WriteString("Load run failed: " + err.Error() + "\n")
		cancel()
		os.Exit(1) //nolint:gocritic // cancel called above
	}
}
