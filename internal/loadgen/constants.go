package loadgen

import (
	"errors"
	"time"
)

// HTTP status code constants.
const (
	StatusOK              = 200
	StatusTooManyRequests = 429
)

// Worker configuration constants.
const (
	WorkerChannelMultiplier = 2
)

// Retry configuration constants.
const (
	maxAttempts  = 5
	retryBackoff = 100 * time.Millisecond
)

// Runner configuration constants.
const (
	PercentageMultiplier = 100
)

// Sentinel errors.
var (
	ErrInvalidConfig = errors.New("invalid load config")
	ErrUnhealthy     = errors.New("service unhealthy")
	ErrVerification  = errors.New("verification failed")
)
