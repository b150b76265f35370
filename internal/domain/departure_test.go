package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeparture_Normalize(t *testing.T) {
	d := Departure{Capacity: 0, Vehicle: "   ", BookedCount: 3}
	d.Normalize()

	assert.Equal(t, DefaultCapacity, d.Capacity)
	assert.Equal(t, DefaultVehicle, d.Vehicle)
	assert.Zero(t, d.BookedCount)

	d = Departure{Capacity: 12, Vehicle: "coach"}
	d.Normalize()
	assert.Equal(t, 12, d.Capacity)
	assert.Equal(t, "coach", d.Vehicle)
}

func TestComputeStats(t *testing.T) {
	stats := ComputeStats([]Departure{
		{ID: 1, Capacity: 6, BookedCount: 6},
		{ID: 2, Capacity: 6, BookedCount: 2},
		{ID: 3, Capacity: 4, BookedCount: 0},
	})

	assert.Equal(t, CatalogStats{ActiveDepartures: 3, BookedSeats: 8, FullDepartures: 1}, stats)
}

func TestSeatMap(t *testing.T) {
	d := Departure{ID: 7, Capacity: 4}
	bookings := []Booking{
		{DepartureID: 7, SeatNumbers: []int{1, 3}},
		{DepartureID: 8, SeatNumbers: []int{2}},
	}

	seats := SeatMap(d, bookings)

	assert.Equal(t, []Seat{
		{Number: 1, Taken: true},
		{Number: 2, Taken: false},
		{Number: 3, Taken: true},
		{Number: 4, Taken: false},
	}, seats)
}

func TestBooking_Matches(t *testing.T) {
	b := Booking{Code: "BKAB12CD", Name: "Alice Wong", Phone: "13800001111"}

	assert.True(t, b.Matches("ab12"))
	assert.True(t, b.Matches("0000"))
	assert.True(t, b.Matches("alice"))
	assert.True(t, b.Matches(""))
	assert.False(t, b.Matches("bob"))
}

func TestBookingError_Taxonomy(t *testing.T) {
	assert.True(t, errors.Is(NewBookingError(DepartureNotFound), ErrNotFound))
	assert.True(t, errors.Is(NewBookingError(DepartureAlreadyDeparted), ErrStateConflict))
	assert.True(t, errors.Is(SeatTakenError(2), ErrValidation))
	assert.True(t, errors.Is(CapacityError(3), ErrValidation))
	assert.Equal(t, "seat 2 is already taken", SeatTakenError(2).Error())
	assert.Equal(t, "not enough seats left, only 3 available", CapacityError(3).Error())

	err := PersistenceError("commit booking", errors.New("disk full"))
	assert.True(t, errors.Is(err, ErrPersistence))
	assert.Contains(t, err.Error(), "disk full")
}
