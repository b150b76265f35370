package domain

import "time"

// HasDeparted is true iff the scheduled time is strictly before now.
// Unparseable schedules are treated as not departed.
func HasDeparted(d Departure, now time.Time) bool {
	at, err := d.ScheduledAt(now.Location())
	if err != nil {
		return false
	}
	return at.Before(now)
}

// ShouldRetain keeps upcoming departures and departed ones whose whole-day age
// is at most RetentionDays. Unparseable schedules are always retained.
func ShouldRetain(d Departure, now time.Time) bool {
	at, err := d.ScheduledAt(now.Location())
	if err != nil {
		return true
	}
	if !at.Before(now) {
		return true
	}
	days := int(now.Sub(at) / (24 * time.Hour))
	return days <= RetentionDays
}

// Retained splits departures into the ones to keep and the ids to prune.
func Retained(departures []Departure, now time.Time) (keep []Departure, expired []int64) {
	keep = make([]Departure, 0, len(departures))
	for _, d := range departures {
		if ShouldRetain(d, now) {
			keep = append(keep, d)
			continue
		}
		expired = append(expired, d.ID)
	}
	return keep, expired
}
