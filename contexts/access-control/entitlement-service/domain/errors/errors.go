package errors

import "errors"

var (
	ErrInvalidUserID   = errors.New("user id is required")
	ErrInvalidDuration = errors.New("grant duration must be a positive number of hours")
	ErrUnknownPlan     = errors.New("unrecognized subscription plan")

	ErrUserNotFound = errors.New("user not found")

	// ErrBackendUnavailable marks a failed primary read or identity lookup;
	// writes that hit it move on to the fallback path.
	ErrBackendUnavailable = errors.New("entitlement backend unavailable")

	// ErrAllPathsFailed means both the primary and the fallback write failed.
	// Nothing was partially applied; the caller should retry.
	ErrAllPathsFailed = errors.New("primary and fallback entitlement writes failed")

	ErrIdempotencyConflict = errors.New("idempotency key reused with a different request")
)
