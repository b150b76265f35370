package departures

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/Domenick1991/tourbooking/internal/domain"
	"github.com/Domenick1991/tourbooking/internal/kafka"
	"github.com/Domenick1991/tourbooking/internal/lock"
	"github.com/Domenick1991/tourbooking/internal/metrics"
	"github.com/Domenick1991/tourbooking/internal/repository"
	"github.com/Domenick1991/tourbooking/internal/service/booking"
	"github.com/sirupsen/logrus"
)

type DepartureUseCase interface {
	List(ctx context.Context) ([]domain.Departure, error)
	Prune(ctx context.Context) ([]int64, error)
	Get(ctx context.Context, id int64) (*domain.Departure, error)
	SeatMap(ctx context.Context, id int64) (*SeatMapView, error)
	Stats(ctx context.Context) (domain.CatalogStats, error)
	Create(ctx context.Context, input CreateDepartureInput) (*domain.Departure, error)
	Delete(ctx context.Context, id int64) error
}

type DepartureCache interface {
	GetDepartures(ctx context.Context) ([]domain.Departure, error)
	SetDepartures(ctx context.Context, departures []domain.Departure) error
	InvalidateDepartures(ctx context.Context) error
}

type CreateDepartureInput struct {
	Date        string `json:"date"`
	Time        string `json:"time"`
	Destination string `json:"destination"`
	Vehicle     string `json:"vehicle_model"`
	Capacity    int    `json:"max_seats"`
}

type SeatMapView struct {
	Departure domain.Departure `json:"departure"`
	Seats     []domain.Seat    `json:"seats"`
}

type DepartureService struct {
	store       repository.Store
	locker      booking.Locker
	cache       DepartureCache
	producer    booking.Producer
	eventsTopic string
	metrics     *metrics.Metrics
	log         logrus.FieldLogger
	now         func() time.Time
}

type DepartureServiceOption func(*DepartureService)

func WithLocker(l booking.Locker) DepartureServiceOption {
	return func(s *DepartureService) {
		s.locker = l
	}
}

func WithCache(c DepartureCache) DepartureServiceOption {
	return func(s *DepartureService) {
		s.cache = c
	}
}

func WithProducer(p booking.Producer, topic string) DepartureServiceOption {
	return func(s *DepartureService) {
		s.producer = p
		s.eventsTopic = topic
	}
}

func WithMetrics(m *metrics.Metrics) DepartureServiceOption {
	return func(s *DepartureService) {
		s.metrics = m
	}
}

func WithLogger(log logrus.FieldLogger) DepartureServiceOption {
	return func(s *DepartureService) {
		s.log = log
	}
}

func WithClock(now func() time.Time) DepartureServiceOption {
	return func(s *DepartureService) {
		s.now = now
	}
}

func NewDepartureService(store repository.Store, opts ...DepartureServiceOption) *DepartureService {
	service := &DepartureService{
		store:  store,
		locker: lock.NewKeyedMutex(),
		log:    logrus.StandardLogger(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

// List is a plain read; call Prune first to drop expired departures.
func (s *DepartureService) List(ctx context.Context) ([]domain.Departure, error) {
	if s.cache != nil {
		if cached, err := s.cache.GetDepartures(ctx); err == nil && cached != nil {
			return cached, nil
		}
	}

	departures, err := s.store.ListDepartures(ctx)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if err := s.cache.SetDepartures(ctx, departures); err != nil {
			s.log.WithError(err).Debug("failed to cache departures")
		}
	}
	return departures, nil
}

// Prune deletes every departure that left more than the retention window ago,
// together with its bookings, and returns the removed ids.
func (s *DepartureService) Prune(ctx context.Context) ([]int64, error) {
	departures, err := s.store.ListDepartures(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now()
	_, expired := domain.Retained(departures, now)
	pruned := make([]int64, 0, len(expired))
	for _, id := range expired {
		deleted, err := s.deleteLocked(ctx, id)
		if err != nil {
			return pruned, err
		}
		if !deleted {
			continue
		}
		pruned = append(pruned, id)
		s.publish(ctx, kafka.NewDepartureEvent(kafka.EventDeparturesPruned, domain.Departure{ID: id}, now))
	}

	if len(pruned) > 0 {
		s.metrics.DeparturesPruned(len(pruned))
		s.invalidate(ctx)
		s.log.WithField("tour_ids", pruned).Info("pruned expired departures")
	}
	return pruned, nil
}

// RunPruneLoop prunes on every tick until ctx is done. A non-positive
// interval disables the loop.
func (s *DepartureService) RunPruneLoop(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		<-ctx.Done()
		return nil
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := s.Prune(ctx); err != nil && ctx.Err() == nil {
				s.log.WithError(err).Warn("scheduled prune failed")
			}
		}
	}
}

func (s *DepartureService) Get(ctx context.Context, id int64) (*domain.Departure, error) {
	return s.store.GetDeparture(ctx, id)
}

// SeatMap returns the departure with every seat marked taken or available.
// Departures that already left cannot be booked and are reported as a conflict.
func (s *DepartureService) SeatMap(ctx context.Context, id int64) (*SeatMapView, error) {
	departure, err := s.store.GetDeparture(ctx, id)
	if err != nil {
		return nil, err
	}
	if domain.HasDeparted(*departure, s.now()) {
		return nil, domain.NewBookingError(domain.DepartureAlreadyDeparted)
	}

	bookings, err := s.store.ListBookingsByDeparture(ctx, id)
	if err != nil {
		return nil, err
	}
	return &SeatMapView{Departure: *departure, Seats: domain.SeatMap(*departure, bookings)}, nil
}

func (s *DepartureService) Stats(ctx context.Context) (domain.CatalogStats, error) {
	departures, err := s.store.ListDepartures(ctx)
	if err != nil {
		return domain.CatalogStats{}, err
	}
	return domain.ComputeStats(departures), nil
}

// Create stores a new departure. Capacity and vehicle fall back to defaults;
// nothing else is validated.
func (s *DepartureService) Create(ctx context.Context, input CreateDepartureInput) (*domain.Departure, error) {
	now := s.now()
	departure := &domain.Departure{
		Date:        strings.TrimSpace(input.Date),
		Time:        strings.TrimSpace(input.Time),
		Destination: strings.TrimSpace(input.Destination),
		Vehicle:     strings.TrimSpace(input.Vehicle),
		Capacity:    input.Capacity,
		CreatedAt:   now,
	}
	departure.Normalize()

	if err := s.store.CreateDeparture(ctx, departure); err != nil {
		return nil, err
	}

	s.invalidate(ctx)
	s.log.WithFields(logrus.Fields{
		"tour_id":     departure.ID,
		"destination": departure.Destination,
		"max_seats":   departure.Capacity,
	}).Info("departure created")
	s.publish(ctx, kafka.NewDepartureEvent(kafka.EventDepartureCreated, *departure, now))
	return departure, nil
}

// Delete removes the departure and its bookings. Unknown ids are a no-op.
func (s *DepartureService) Delete(ctx context.Context, id int64) error {
	deleted, err := s.deleteLocked(ctx, id)
	if err != nil {
		return err
	}
	if !deleted {
		return nil
	}

	s.invalidate(ctx)
	s.log.WithField("tour_id", id).Info("departure deleted")
	s.publish(ctx, kafka.NewDepartureEvent(kafka.EventDepartureDeleted, domain.Departure{ID: id}, s.now()))
	return nil
}

func (s *DepartureService) deleteLocked(ctx context.Context, id int64) (bool, error) {
	unlock, err := s.locker.Lock(ctx, id)
	if err != nil {
		return false, err
	}
	defer unlock()

	deleted, err := s.store.DeleteDeparture(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return false, nil
	}
	return deleted, err
}

func (s *DepartureService) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateDepartures(ctx); err != nil {
		s.log.WithError(err).Warn("failed to invalidate departures cache")
	}
}

func (s *DepartureService) publish(ctx context.Context, event kafka.BookingEvent) {
	if s.producer == nil || s.eventsTopic == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), booking.PublishTimeout)
	defer cancel()

	key := strconv.FormatInt(event.DepartureID, 10)
	if err := s.producer.PublishWithRetry(ctx, s.eventsTopic, key, event, booking.PublishAttempts); err != nil {
		s.log.WithError(err).WithField("type", event.Type).Warn("failed to publish departure event")
	}
}

var _ DepartureUseCase = (*DepartureService)(nil)
