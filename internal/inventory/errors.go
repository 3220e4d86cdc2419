package inventory

import "errors"

var (
	ErrCauseNotFound       = errors.New("Cause not found")
	ErrOutOfStock          = errors.New("No totes available for this cause")
	ErrReservationNotFound = errors.New("Reservation not found")
	ErrReservationReleased = errors.New("Reservation was already released")
	ErrInvariantViolation  = errors.New("Inventory counters are inconsistent")
)
