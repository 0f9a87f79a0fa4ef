package service

import (
	"errors"
	"fmt"
)

// Caller-facing error taxonomy. Handlers translate these to HTTP
// status codes; none of them are retried automatically.
var (
	ErrNotFound         = errors.New("not found")
	ErrForbidden        = errors.New("forbidden")
	ErrValidation       = errors.New("validation failed")
	ErrInvalidState     = errors.New("invalid state")
	ErrNotAvailable     = errors.New("coupon issue is not available")
	ErrExpired          = errors.New("expired")
	ErrAlreadyAcquired  = errors.New("coupon already acquired")
	ErrCapacityExceeded = errors.New("coupon acquisition limit reached")
	ErrNotUsable        = errors.New("coupon is not usable")
	ErrBatchRunning     = errors.New("schedule batch is already running")
)

func validationErr(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
