package repository

import (
	"context"
	"errors"

	"github.com/Domenick1991/tourbooking/internal/domain"
)

// ErrNoCapacity is returned by CommitBooking when the departure cannot absorb the seats.
var ErrNoCapacity = errors.New("no available seats")

// Store persists departures and bookings. Every backend keeps bookedCount in step
// with the bookings it holds and deletes bookings together with their departure.
type Store interface {
	ListDepartures(ctx context.Context) ([]domain.Departure, error)
	GetDeparture(ctx context.Context, id int64) (*domain.Departure, error)
	// CreateDeparture assigns d.ID as the current maximum id plus one.
	CreateDeparture(ctx context.Context, d *domain.Departure) error
	// DeleteDeparture removes the departure and its bookings. It reports whether
	// anything was removed; a missing id is not an error.
	DeleteDeparture(ctx context.Context, id int64) (bool, error)

	ListBookings(ctx context.Context) ([]domain.Booking, error)
	ListBookingsByDeparture(ctx context.Context, departureID int64) ([]domain.Booking, error)
	BookingCodeExists(ctx context.Context, code string) (bool, error)
	// CommitBooking inserts b and adds its seat count to the departure as one unit.
	CommitBooking(ctx context.Context, b *domain.Booking) (*domain.Departure, error)

	Close() error
}
