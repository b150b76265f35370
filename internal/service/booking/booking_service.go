package booking

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Domenick1991/tourbooking/internal/domain"
	"github.com/Domenick1991/tourbooking/internal/kafka"
	"github.com/Domenick1991/tourbooking/internal/lock"
	"github.com/Domenick1991/tourbooking/internal/metrics"
	"github.com/Domenick1991/tourbooking/internal/repository"
	"github.com/sirupsen/logrus"
)

const (
	maxCodeAttempts = 10

	// PublishAttempts and PublishTimeout bound event delivery per request.
	PublishAttempts = 3
	PublishTimeout  = 5 * time.Second
)

type BookingUseCase interface {
	CreateBooking(ctx context.Context, input CreateBookingInput) (*domain.Booking, error)
	Search(ctx context.Context, query string) ([]domain.Booking, error)
	ListAll(ctx context.Context) ([]domain.Booking, error)
	ListByDeparture(ctx context.Context, departureID int64) ([]domain.Booking, error)
}

// Locker provides the per-departure critical section around validate and commit.
type Locker interface {
	Lock(ctx context.Context, departureID int64) (unlock func(), err error)
}

type Producer interface {
	PublishWithRetry(ctx context.Context, topic, key string, value any, maxRetries int) error
}

type Cache interface {
	InvalidateDepartures(ctx context.Context) error
}

type CreateBookingInput struct {
	DepartureID int64  `json:"tour_id"`
	Name        string `json:"name"`
	Phone       string `json:"phone"`
	SeatNumbers []int  `json:"seat_numbers"`
}

type BookingService struct {
	store       repository.Store
	locker      Locker
	cache       Cache
	producer    Producer
	eventsTopic string
	metrics     *metrics.Metrics
	log         logrus.FieldLogger
	now         func() time.Time
	newCode     func() (string, error)
}

type BookingServiceOption func(*BookingService)

func WithLocker(l Locker) BookingServiceOption {
	return func(s *BookingService) {
		s.locker = l
	}
}

func WithCache(c Cache) BookingServiceOption {
	return func(s *BookingService) {
		s.cache = c
	}
}

func WithProducer(p Producer, topic string) BookingServiceOption {
	return func(s *BookingService) {
		s.producer = p
		s.eventsTopic = topic
	}
}

func WithMetrics(m *metrics.Metrics) BookingServiceOption {
	return func(s *BookingService) {
		s.metrics = m
	}
}

func WithLogger(log logrus.FieldLogger) BookingServiceOption {
	return func(s *BookingService) {
		s.log = log
	}
}

func WithClock(now func() time.Time) BookingServiceOption {
	return func(s *BookingService) {
		s.now = now
	}
}

func WithCodeGenerator(gen func() (string, error)) BookingServiceOption {
	return func(s *BookingService) {
		s.newCode = gen
	}
}

func NewBookingService(store repository.Store, opts ...BookingServiceOption) *BookingService {
	service := &BookingService{
		store:   store,
		locker:  lock.NewKeyedMutex(),
		log:     logrus.StandardLogger(),
		now:     time.Now,
		newCode: GenerateCode,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

// CreateBooking validates the request against the departure and commits it.
// Checks run in a fixed order and the first failure is returned as a
// *domain.BookingError; nothing is written on any failure.
func (s *BookingService) CreateBooking(ctx context.Context, input CreateBookingInput) (*domain.Booking, error) {
	if len(input.SeatNumbers) == 0 {
		return nil, s.reject(domain.NewBookingError(domain.NoSeatsSelected))
	}

	unlock, err := s.locker.Lock(ctx, input.DepartureID)
	if err != nil {
		return nil, fmt.Errorf("lock departure %d: %w", input.DepartureID, err)
	}
	defer unlock()

	departure, err := s.store.GetDeparture(ctx, input.DepartureID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, s.reject(domain.NewBookingError(domain.DepartureNotFound))
	}
	if err != nil {
		return nil, err
	}

	now := s.now()
	if domain.HasDeparted(*departure, now) {
		return nil, s.reject(domain.NewBookingError(domain.DepartureAlreadyDeparted))
	}

	existing, err := s.store.ListBookingsByDeparture(ctx, departure.ID)
	if err != nil {
		return nil, err
	}
	taken := domain.TakenSeats(existing, departure.ID)
	for _, seat := range input.SeatNumbers {
		if _, ok := taken[seat]; ok {
			return nil, s.reject(domain.SeatTakenError(seat))
		}
	}

	if available := departure.Capacity - departure.BookedCount; len(input.SeatNumbers) > available {
		return nil, s.reject(domain.CapacityError(max(available, 0)))
	}

	seen := make(map[int]struct{}, len(input.SeatNumbers))
	for _, seat := range input.SeatNumbers {
		if _, dup := seen[seat]; dup || seat < 1 || seat > departure.Capacity {
			return nil, s.reject(domain.InvalidSeatError(seat))
		}
		seen[seat] = struct{}{}
	}

	if strings.TrimSpace(input.Name) == "" || strings.TrimSpace(input.Phone) == "" {
		return nil, s.reject(domain.NewBookingError(domain.MissingCustomerInfo))
	}

	code, err := s.uniqueCode(ctx)
	if err != nil {
		return nil, err
	}

	booking := &domain.Booking{
		Code:        code,
		Name:        strings.TrimSpace(input.Name),
		Phone:       strings.TrimSpace(input.Phone),
		SeatNumbers: append([]int(nil), input.SeatNumbers...),
		DepartureID: departure.ID,
		CreatedAt:   now,
	}

	updated, err := s.store.CommitBooking(ctx, booking)
	if errors.Is(err, repository.ErrNoCapacity) {
		return nil, s.reject(domain.CapacityError(departure.Available()))
	}
	if errors.Is(err, domain.ErrNotFound) {
		return nil, s.reject(domain.NewBookingError(domain.DepartureNotFound))
	}
	if err != nil {
		s.metrics.BookingRejected("persistence")
		return nil, fmt.Errorf("commit booking: %w", err)
	}

	s.metrics.BookingAccepted(booking.SeatCount())
	s.invalidate(ctx)
	s.log.WithFields(logrus.Fields{
		"code":    booking.Code,
		"tour_id": booking.DepartureID,
		"seats":   booking.SeatNumbers,
		"booked":  updated.BookedCount,
	}).Info("booking accepted")

	if err := s.publish(ctx, kafka.NewBookingCreated(*booking, *updated)); err != nil {
		s.log.WithError(err).WithField("code", booking.Code).Warn("failed to publish booking_created event")
	}
	return booking, nil
}

// Search returns bookings whose code, phone or name contains query.
func (s *BookingService) Search(ctx context.Context, query string) ([]domain.Booking, error) {
	bookings, err := s.store.ListBookings(ctx)
	if err != nil {
		return nil, err
	}

	q := strings.ToLower(query)
	results := make([]domain.Booking, 0)
	for _, b := range bookings {
		if b.Matches(q) {
			results = append(results, b)
		}
	}
	return results, nil
}

func (s *BookingService) ListAll(ctx context.Context) ([]domain.Booking, error) {
	return s.store.ListBookings(ctx)
}

func (s *BookingService) ListByDeparture(ctx context.Context, departureID int64) ([]domain.Booking, error) {
	return s.store.ListBookingsByDeparture(ctx, departureID)
}

func (s *BookingService) uniqueCode(ctx context.Context) (string, error) {
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code, err := s.newCode()
		if err != nil {
			return "", fmt.Errorf("generate booking code: %w", err)
		}
		exists, err := s.store.BookingCodeExists(ctx, code)
		if err != nil {
			return "", err
		}
		if !exists {
			return code, nil
		}
		s.log.WithField("code", code).Debug("booking code collision, regenerating")
	}
	return "", domain.PersistenceError("generate booking code", errors.New("too many collisions"))
}

func (s *BookingService) reject(err *domain.BookingError) error {
	s.metrics.BookingRejected(string(err.Kind))
	return err
}

func (s *BookingService) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateDepartures(ctx); err != nil {
		s.log.WithError(err).Warn("failed to invalidate departures cache")
	}
}

func (s *BookingService) publish(ctx context.Context, event kafka.BookingEvent) error {
	if s.producer == nil || s.eventsTopic == "" {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), PublishTimeout)
	defer cancel()
	return s.producer.PublishWithRetry(ctx, s.eventsTopic, strconv.FormatInt(event.DepartureID, 10), event, PublishAttempts)
}

var _ BookingUseCase = (*BookingService)(nil)
