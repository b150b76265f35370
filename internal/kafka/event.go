package kafka

import (
	"time"

	"github.com/Domenick1991/tourbooking/internal/domain"
	"github.com/google/uuid"
)

const (
	EventBookingCreated   = "booking_created"
	EventDepartureCreated = "departure_created"
	EventDepartureDeleted = "departure_deleted"
	EventDeparturesPruned = "departures_pruned"
)

type BookingEvent struct {
	ID          string    `json:"id"`
	Type        string    `json:"type"`
	Code        string    `json:"code,omitempty"`
	DepartureID int64     `json:"tour_id"`
	SeatNumbers []int     `json:"seat_numbers,omitempty"`
	BookedCount int       `json:"booked"`
	Capacity    int       `json:"max_seats"`
	OccurredAt  time.Time `json:"occurred_at"`
}

func NewBookingCreated(b domain.Booking, d domain.Departure) BookingEvent {
	return BookingEvent{
		ID:          uuid.NewString(),
		Type:        EventBookingCreated,
		Code:        b.Code,
		DepartureID: d.ID,
		SeatNumbers: b.SeatNumbers,
		BookedCount: d.BookedCount,
		Capacity:    d.Capacity,
		OccurredAt:  b.CreatedAt,
	}
}

func NewDepartureEvent(eventType string, d domain.Departure, at time.Time) BookingEvent {
	return BookingEvent{
		ID:          uuid.NewString(),
		Type:        eventType,
		DepartureID: d.ID,
		BookedCount: d.BookedCount,
		Capacity:    d.Capacity,
		OccurredAt:  at,
	}
}
