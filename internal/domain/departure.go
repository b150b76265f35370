package domain

import "time"

const (
	DefaultCapacity = 6
	DefaultVehicle  = "unspecified"

	// RetentionDays is how many whole days a departed departure stays visible.
	RetentionDays = 7

	DateTimeLayout = "2006-01-02 15:04"
)

type Departure struct {
	ID          int64     `json:"id"`
	Date        string    `json:"date"`
	Time        string    `json:"time"`
	Destination string    `json:"destination"`
	Vehicle     string    `json:"vehicle_model"`
	Capacity    int       `json:"max_seats"`
	BookedCount int       `json:"booked"`
	CreatedAt   time.Time `json:"created_at"`
}

// Available returns the number of seats not yet committed to a booking.
func (d Departure) Available() int {
	if left := d.Capacity - d.BookedCount; left > 0 {
		return left
	}
	return 0
}

func (d Departure) IsFull() bool {
	return d.Available() == 0
}

// ScheduledAt parses Date and Time as a naive wall-clock timestamp in loc.
func (d Departure) ScheduledAt(loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	return time.ParseInLocation(DateTimeLayout, d.Date+" "+d.Time, loc)
}

// Normalize applies the lenient defaults used when an administrator creates a departure.
func (d *Departure) Normalize() {
	if d.Capacity < 1 {
		d.Capacity = DefaultCapacity
	}
	if isBlank(d.Vehicle) {
		d.Vehicle = DefaultVehicle
	}
	d.BookedCount = 0
}

// CatalogStats are the aggregate counters shown on the landing page.
type CatalogStats struct {
	ActiveDepartures int `json:"active_departures"`
	BookedSeats      int `json:"booked_seats"`
	FullDepartures   int `json:"full_departures"`
}

func ComputeStats(departures []Departure) CatalogStats {
	stats := CatalogStats{ActiveDepartures: len(departures)}
	for _, d := range departures {
		stats.BookedSeats += d.BookedCount
		if d.IsFull() {
			stats.FullDepartures++
		}
	}
	return stats
}
