package repository

import (
	"errors"

	"github.com/lib/pq"
)

// Sentinel errors surfaced from transactional paths. The service
// layer maps these onto caller-facing results.
var (
	ErrIssueNotFound       = errors.New("repository: coupon issue not found")
	ErrIssueNotActive      = errors.New("repository: coupon issue is not active")
	ErrIssueWindowClosed   = errors.New("repository: coupon issue acquisition window has closed")
	ErrAlreadyAcquired     = errors.New("repository: user already acquired this issue")
	ErrCapacityExceeded    = errors.New("repository: coupon issue acquisition limit reached")
	ErrAcquisitionNotFound = errors.New("repository: coupon acquisition not found")
	ErrNotUsable           = errors.New("repository: coupon acquisition is not usable")
)

// IsTransient reports whether the error is a lock/serialization
// conflict worth retrying the single atomic operation for.
func IsTransient(err error) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	switch pqErr.Code {
	case "40001", "40P01", "55P03": // serialization_failure, deadlock_detected, lock_not_available
		return true
	}
	return false
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
