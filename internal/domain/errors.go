package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidRequest       = errors.New("invalid request")
	ErrInsufficientCapacity = errors.New("insufficient capacity")
	ErrSeatsUnavailable     = errors.New("seats unavailable")
	ErrForbidden            = errors.New("forbidden")
	ErrInvalidTransition    = errors.New("invalid status transition")
	ErrAlreadyCanceled      = errors.New("booking already canceled")
	ErrPersistence          = errors.New("persistence failure")
	ErrFlightNotFound       = errors.New("flight not found")
	ErrBookingNotFound      = errors.New("booking not found")
)

// SeatsUnavailableError names the requested seats that another booking
// already holds.
type SeatsUnavailableError struct {
	FlightID int64
	Seats    []string
}

func (e *SeatsUnavailableError) Error() string {
	return fmt.Sprintf("seats unavailable on flight %d: %s", e.FlightID, strings.Join(e.Seats, ", "))
}

func (e *SeatsUnavailableError) Is(target error) bool {
	return target == ErrSeatsUnavailable
}

// PersistenceError wraps an infrastructure failure. Any ledger reservation made
// for the attempt has been compensated before it is returned.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

func (e *PersistenceError) Is(target error) bool {
	return target == ErrPersistence
}

func InvalidRequest(msg string) error {
	return fmt.Errorf("%w: %s", ErrInvalidRequest, msg)
}

// IsRetryable reports whether the caller may resubmit: capacity and seat
// conflicts with different seats, persistence failures as-is.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrInsufficientCapacity) ||
		errors.Is(err, ErrSeatsUnavailable) ||
		errors.Is(err, ErrPersistence)
}
