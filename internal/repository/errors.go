// Package repository defines error types that are reused across multiple
// repositories and by the booking service.  These sentinel values allow
// higher layers such as handlers to distinguish between different failure
// scenarios without inspecting driver errors.  For example, ErrInvalidUser
// indicates that a dependent record referenced a user that does not exist,
// while ErrConstraintViolation signals that a uniqueness or format invariant
// was rejected by the store.
package repository

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when the target of a read, update or delete does
// not exist.  Handlers translate this into an HTTP 404 response.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when a write collides with a concurrent or
// existing row in a way no more specific error describes.
var ErrConflict = errors.New("conflict")

// Referenced-entity errors: a dependent record was created against a
// parent that does not exist at that moment.
var (
	ErrInvalidUser        = errors.New("user does not exist")
	ErrInvalidFlight      = errors.New("flight does not exist")
	ErrInvalidReservation = errors.New("reservation does not exist")
	ErrInvalidTemplate    = errors.New("template flight does not exist")
)

// ErrAlreadyBooked is returned when a user already holds a reservation on
// the requested flight.
var ErrAlreadyBooked = errors.New("user already has a reservation on this flight")

// ErrNoMoreSeats is returned when a ticket is requested for a flight whose
// remaining capacity is zero.
var ErrNoMoreSeats = errors.New("no more seats available")

// ErrConstraintViolation is the parent of every uniqueness or format error
// detected at the storage layer.
var ErrConstraintViolation = errors.New("constraint violation")

var (
	ErrEmailExists      = fmt.Errorf("%w: email already registered", ErrConstraintViolation)
	ErrFlightCodeExists = fmt.Errorf("%w: flight code already exists", ErrConstraintViolation)
	ErrInvalidGate      = fmt.Errorf("%w: gate must look like GATE01", ErrConstraintViolation)
	ErrSeatsOutOfRange  = fmt.Errorf("%w: seats left must be between 0 and total seats", ErrConstraintViolation)
)

// Reservation change errors; both map to ErrConflict.
var (
	ErrReferenceExists       = fmt.Errorf("%w: reference already in use", ErrConflict)
	ErrReservationHasTickets = fmt.Errorf("%w: reservation already holds tickets on its flight", ErrConflict)
)
