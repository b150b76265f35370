package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrValidation        = errors.New("validation failed")
	ErrStateConflict     = errors.New("state conflict")
	ErrPersistence       = errors.New("persistence failure")
	ErrDepartureNotFound = fmt.Errorf("departure %w", ErrNotFound)
)

type BookingErrorKind string

const (
	NoSeatsSelected          BookingErrorKind = "no_seats_selected"
	DepartureNotFound        BookingErrorKind = "departure_not_found"
	DepartureAlreadyDeparted BookingErrorKind = "departure_already_departed"
	SeatAlreadyTaken         BookingErrorKind = "seat_already_taken"
	InsufficientCapacity     BookingErrorKind = "insufficient_capacity"
	InvalidSeat              BookingErrorKind = "invalid_seat"
	MissingCustomerInfo      BookingErrorKind = "missing_customer_info"
)

// BookingError is the tagged failure returned by the booking validator.
type BookingError struct {
	Kind      BookingErrorKind
	Seat      int
	Available int
}

func (e *BookingError) Error() string {
	switch e.Kind {
	case NoSeatsSelected:
		return "please select at least one seat"
	case DepartureNotFound:
		return "departure does not exist"
	case DepartureAlreadyDeparted:
		return "departure has already left"
	case SeatAlreadyTaken:
		return fmt.Sprintf("seat %d is already taken", e.Seat)
	case InsufficientCapacity:
		return fmt.Sprintf("not enough seats left, only %d available", e.Available)
	case InvalidSeat:
		return fmt.Sprintf("seat %d is not a valid seat on this departure", e.Seat)
	case MissingCustomerInfo:
		return "name and phone are required"
	default:
		return string(e.Kind)
	}
}

// Unwrap maps the kind onto the error taxonomy so callers can use errors.Is.
func (e *BookingError) Unwrap() error {
	switch e.Kind {
	case DepartureNotFound:
		return ErrNotFound
	case DepartureAlreadyDeparted:
		return ErrStateConflict
	default:
		return ErrValidation
	}
}

func NewBookingError(kind BookingErrorKind) *BookingError {
	return &BookingError{Kind: kind}
}

func SeatTakenError(seat int) *BookingError {
	return &BookingError{Kind: SeatAlreadyTaken, Seat: seat}
}

func CapacityError(available int) *BookingError {
	return &BookingError{Kind: InsufficientCapacity, Available: available}
}

func InvalidSeatError(seat int) *BookingError {
	return &BookingError{Kind: InvalidSeat, Seat: seat}
}

// PersistenceError wraps a storage failure so it matches ErrPersistence.
func PersistenceError(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", op, errors.Join(ErrPersistence, err))
}
