package api

import (
	"errors"
	"fmt"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest   = errors.New("bad request")
	ErrInvalidBody  = errors.New("invalid request body")
	ErrInvalidType  = errors.New("invalid action type")
	ErrInvalidPoint = errors.New("invalid points")
	ErrInvalidLimit = errors.New("invalid limit")
	ErrRateLimited  = errors.New("too many requests")
	ErrInFlight     = errors.New("request already in progress")
	ErrUnavailable  = errors.New("service unavailable")
	ErrUpstream     = errors.New("upstream read failed")
)

// publicMessages maps error kinds to the message sent in {"error": ...}.
var publicMessages = []struct {
	kind error
	msg  string
}{
	{ErrInvalidBody, "Invalid request body"},
	{ErrInvalidType, "Invalid action type"},
	{ErrInvalidPoint, "Invalid points"},
	{ErrInvalidLimit, "Invalid limit"},
	{ErrRateLimited, "Too many requests"},
	{ErrInFlight, "Request already in progress"},
	{ErrUnavailable, "Service unavailable"},
	{ErrUpstream, "Failed to read footprint data"},
}

// publicMessage returns the client-facing message for err, falling back to
// the status text.
func publicMessage(err error, fallback string) string {
	for _, p := range publicMessages {
		if errors.Is(err, p.kind) {
			return p.msg
		}
	}
	return fallback
}

// opError ties an error to the operation that produced it.
type opError struct {
	op   string
	kind error
	err  error
}

func (e *opError) Error() string {
	switch {
	case e.kind != nil && e.err != nil:
		return fmt.Sprintf("%s: %v: %v", e.op, e.kind, e.err)
	case e.kind != nil:
		return fmt.Sprintf("%s: %v", e.op, e.kind)
	default:
		return fmt.Sprintf("%s: %v", e.op, e.err)
	}
}

func (e *opError) Unwrap() []error {
	out := make([]error, 0, 2)
	if e.kind != nil {
		out = append(out, e.kind)
	}
	if e.err != nil {
		out = append(out, e.err)
	}
	return out
}

// NewKind returns an error of the given kind raised by op.
func NewKind(op string, kind error) error {
	return &opError{op: op, kind: kind}
}

// Wrap annotates err with op. A nil err stays nil.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return &opError{op: op, err: err}
}

// WrapKind annotates err with op and classifies it as kind.
func WrapKind(op string, kind, err error) error {
	if err == nil {
		return NewKind(op, kind)
	}
	return &opError{op: op, kind: kind, err: err}
}
