package domain

import (
	"errors"
	"fmt"
)

// Error classes. Every error returned by the core wraps exactly one of these,
// so transports can map them with errors.Is.
var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrForbidden    = errors.New("forbidden")
	ErrUnavailable  = errors.New("unavailable")
)

var (
	ErrInvalidCrisisType = fmt.Errorf("%w: unknown crisis type", ErrInvalidInput)
	ErrInvalidRadius     = fmt.Errorf("%w: unsupported alert radius", ErrInvalidInput)
	ErrInvalidLocation   = fmt.Errorf("%w: location out of range", ErrInvalidInput)
	ErrInvalidProgress   = fmt.Errorf("%w: unknown responder progress", ErrInvalidInput)
	ErrEmptyMessage      = fmt.Errorf("%w: message text is empty", ErrInvalidInput)

	ErrIncidentNotFound  = fmt.Errorf("%w: incident", ErrNotFound)
	ErrUserNotFound      = fmt.Errorf("%w: user", ErrNotFound)
	ErrResponderNotFound = fmt.Errorf("%w: not a responder for this incident", ErrNotFound)

	ErrAlreadyResponding = fmt.Errorf("%w: already responding", ErrConflict)
	ErrIncidentResolved  = fmt.Errorf("%w: incident already resolved", ErrConflict)
	ErrAlreadyFlagged    = fmt.Errorf("%w: incident already flagged as false alert", ErrConflict)
	ErrUserExists        = fmt.Errorf("%w: user already exists", ErrConflict)

	ErrNotTriggerer       = fmt.Errorf("%w: only the person who triggered can resolve", ErrForbidden)
	ErrAccountSuspended   = fmt.Errorf("%w: account suspended", ErrForbidden)
	ErrCannotSuspendAdmin = fmt.Errorf("%w: cannot suspend an admin", ErrForbidden)
)

// ErrInvalidCredentials is kept outside the taxonomy: it is an authentication
// failure, which transports report as 401 rather than 403.
var ErrInvalidCredentials = errors.New("invalid credentials")

// Unavailable wraps a downstream failure so it is classified as ErrUnavailable
// while keeping the original cause in the chain.
func Unavailable(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", op, ErrUnavailable, err)
}
