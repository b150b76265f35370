package domain

import (
	"strings"
	"time"
)

type Booking struct {
	Code        string    `json:"code"`
	Name        string    `json:"name"`
	Phone       string    `json:"phone"`
	SeatNumbers []int     `json:"seat_numbers"`
	DepartureID int64     `json:"tour_id"`
	CreatedAt   time.Time `json:"created_at"`
}

// SeatCount is the number of seats the booking commits.
func (b Booking) SeatCount() int {
	return len(b.SeatNumbers)
}

// Matches reports whether query (already lower-cased) hits the code, the phone
// number or the customer name.
func (b Booking) Matches(query string) bool {
	return strings.Contains(strings.ToLower(b.Code), query) ||
		strings.Contains(b.Phone, query) ||
		strings.Contains(strings.ToLower(b.Name), query)
}

// TakenSeats collects the seat numbers committed by bookings of departureID.
func TakenSeats(bookings []Booking, departureID int64) map[int]struct{} {
	taken := make(map[int]struct{})
	for _, b := range bookings {
		if b.DepartureID != departureID {
			continue
		}
		for _, seat := range b.SeatNumbers {
			taken[seat] = struct{}{}
		}
	}
	return taken
}

type Seat struct {
	Number int  `json:"number"`
	Taken  bool `json:"taken"`
}

// SeatMap lists seats 1..capacity tagged taken or available.
func SeatMap(d Departure, bookings []Booking) []Seat {
	taken := TakenSeats(bookings, d.ID)
	seats := make([]Seat, 0, d.Capacity)
	for n := 1; n <= d.Capacity; n++ {
		_, ok := taken[n]
		seats = append(seats, Seat{Number: n, Taken: ok})
	}
	return seats
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
