package service

import "errors"

// Sentinel kinds returned by Service methods.
var (
	ErrNotStarted  = errors.New("service not started")
	ErrStopped     = errors.New("service stopped")
	ErrInvalidType = errors.New("invalid adjustment type")
)
