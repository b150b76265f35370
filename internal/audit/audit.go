package audit

import (
	"context"

	"github.com/Domenick1991/tourbooking/internal/kafka"
	"github.com/sirupsen/logrus"
)

// Recorder writes consumed booking events to the audit log.
type Recorder struct {
	log logrus.FieldLogger
}

func NewRecorder(log logrus.FieldLogger) *Recorder {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Recorder{log: log.WithField("component", "audit")}
}

func (r *Recorder) Record(_ context.Context, event kafka.BookingEvent) error {
	fields := logrus.Fields{
		"event_id": event.ID,
		"type":     event.Type,
		"tour_id":  event.DepartureID,
		"booked":   event.BookedCount,
		"capacity": event.Capacity,
		"at":       event.OccurredAt,
	}
	if event.Code != "" {
		fields["code"] = event.Code
		fields["seats"] = event.SeatNumbers
	}
	r.log.WithFields(fields).Info("booking event")
	return nil
}
