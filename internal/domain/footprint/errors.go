package footprint

import "errors"

// Sentinel kinds for footprint errors.
var (
	ErrProvider = errors.New("provider read failed")
)
