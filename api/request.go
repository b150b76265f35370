package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// flexInt accepts a JSON number or a numeric string, as sent by plain HTML forms.
type flexInt struct {
	Value int64
	Set   bool
}

func (f *flexInt) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			return nil
		}
		data = []byte(s)
	}
	n, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return fmt.Errorf("expected an integer, got %s", data)
	}
	f.Value, f.Set = n, true
	return nil
}

// first returns the first value that was present in the request.
func first(values ...flexInt) flexInt {
	for _, v := range values {
		if v.Set {
			return v
		}
	}
	return flexInt{}
}

func firstString(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

type bookRequest struct {
	TourID         flexInt `json:"tour_id"`
	DepartureID    flexInt `json:"departureId"`
	Name           string  `json:"name"`
	Phone          string  `json:"phone"`
	SeatNumbers    []int   `json:"seat_numbers"`
	SeatNumbersAlt []int   `json:"seatNumbers"`
}

func (r bookRequest) seats() []int {
	if len(r.SeatNumbers) > 0 {
		return r.SeatNumbers
	}
	return r.SeatNumbersAlt
}

type createTourRequest struct {
	Date         string  `json:"date"`
	Time         string  `json:"time"`
	Destination  string  `json:"destination"`
	VehicleModel string  `json:"vehicle_model"`
	Vehicle      string  `json:"vehicle"`
	MaxSeats     flexInt `json:"max_seats"`
	Capacity     flexInt `json:"capacity"`
}

type deleteTourRequest struct {
	TourID      flexInt `json:"tour_id"`
	DepartureID flexInt `json:"departureId"`
}

type loginRequest struct {
	Password string `json:"password" form:"password"`
}
