package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Metrics are registered on their own registry so tests can build many instances.
type Metrics struct {
	Registry         *prometheus.Registry
	bookings         *prometheus.CounterVec
	bookedSeats      prometheus.Counter
	departuresPruned prometheus.Counter
}

func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		bookings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tourbooking",
			Name:      "bookings_total",
			Help:      "Booking requests by result.",
		}, []string{"result"}),
		bookedSeats: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tourbooking",
			Name:      "booked_seats_total",
			Help:      "Seats committed by accepted bookings.",
		}),
		departuresPruned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tourbooking",
			Name:      "departures_pruned_total",
			Help:      "Departures removed after the retention window.",
		}),
	}
	m.Registry.MustRegister(m.bookings, m.bookedSeats, m.departuresPruned,
		collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return m
}

func (m *Metrics) BookingAccepted(seats int) {
	if m == nil {
		return
	}
	m.bookings.WithLabelValues("accepted").Inc()
	m.bookedSeats.Add(float64(seats))
}

// BookingRejected records a failed booking under reason (an error kind).
func (m *Metrics) BookingRejected(reason string) {
	if m == nil {
		return
	}
	m.bookings.WithLabelValues(reason).Inc()
}

func (m *Metrics) DeparturesPruned(n int) {
	if m == nil || n == 0 {
		return
	}
	m.departuresPruned.Add(float64(n))
}
