package departures

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/Domenick1991/tourbooking/internal/domain"
	"github.com/Domenick1991/tourbooking/internal/kafka"
	"github.com/Domenick1991/tourbooking/internal/lock"
	"github.com/Domenick1991/tourbooking/internal/metrics"
	"github.com/Domenick1991/tourbooking/internal/repository"
	"github.com/Domenick1991/tourbooking/internal/service/booking"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockCache struct {
	mock.Mock
}

func (m *MockCache) GetDepartures(ctx context.Context) ([]domain.Departure, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Departure), args.Error(1)
}

func (m *MockCache) SetDepartures(ctx context.Context, departures []domain.Departure) error {
	args := m.Called(ctx, departures)
	return args.Error(0)
}

func (m *MockCache) InvalidateDepartures(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

type MockProducer struct {
	mock.Mock
}

func (m *MockProducer) PublishWithRetry(ctx context.Context, topic, key string, value any, maxRetries int) error {
	args := m.Called(ctx, topic, key, value, maxRetries)
	return args.Error(0)
}

var now = time.Date(2024, 12, 24, 12, 0, 0, 0, time.UTC)

func newService(store repository.Store, opts ...DepartureServiceOption) *DepartureService {
	log, _ := test.NewNullLogger()
	opts = append([]DepartureServiceOption{
		WithClock(func() time.Time { return now }),
		WithLogger(log),
	}, opts...)
	return NewDepartureService(store, opts...)
}

func createAt(t *testing.T, service *DepartureService, at time.Time, capacity int) *domain.Departure {
	t.Helper()
	d, err := service.Create(context.Background(), CreateDepartureInput{
		Date:        at.Format("2006-01-02"),
		Time:        at.Format("15:04"),
		Destination: "Hangzhou",
		Capacity:    capacity,
	})
	require.NoError(t, err)
	return d
}

func TestDepartureService_Create_AppliesDefaults(t *testing.T) {
	store := repository.NewMemoryStore()
	service := newService(store)

	d, err := service.Create(context.Background(), CreateDepartureInput{Date: "2025-01-01", Time: "09:30", Destination: " Suzhou ", Capacity: 0})

	require.NoError(t, err)
	assert.Equal(t, int64(1), d.ID)
	assert.Equal(t, domain.DefaultCapacity, d.Capacity)
	assert.Equal(t, domain.DefaultVehicle, d.Vehicle)
	assert.Equal(t, "Suzhou", d.Destination)
	assert.Zero(t, d.BookedCount)
	assert.Equal(t, now, d.CreatedAt)

	second, err := service.Create(context.Background(), CreateDepartureInput{Date: "not a date", Vehicle: "minibus", Capacity: 12})
	require.NoError(t, err)
	assert.Equal(t, int64(2), second.ID)
	assert.Equal(t, "minibus", second.Vehicle)
	assert.Equal(t, 12, second.Capacity)
}

func TestDepartureService_Create_PublishesAndInvalidates(t *testing.T) {
	store := repository.NewMemoryStore()
	cache := &MockCache{}
	producer := &MockProducer{}
	service := newService(store, WithCache(cache), WithProducer(producer, "events"))
	ctx := context.Background()

	cache.On("InvalidateDepartures", ctx).Return(nil).Once()
	producer.On("PublishWithRetry", mock.Anything, "events", "1", mock.MatchedBy(func(e kafka.BookingEvent) bool {
		return e.Type == kafka.EventDepartureCreated && e.Capacity == 6
	}), booking.PublishAttempts).Return(nil).Once()

	_, err := service.Create(ctx, CreateDepartureInput{Date: "2025-01-01", Time: "09:30"})

	require.NoError(t, err)
	cache.AssertExpectations(t)
	producer.AssertExpectations(t)
}

func TestDepartureService_Create_PublishesAfterRequestCancelled(t *testing.T) {
	store := repository.NewMemoryStore()
	producer := &MockProducer{}
	service := newService(store, WithProducer(producer, "events"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	live := mock.MatchedBy(func(c context.Context) bool {
		_, hasDeadline := c.Deadline()
		return hasDeadline && c.Err() == nil
	})
	producer.On("PublishWithRetry", live, "events", "1", mock.Anything, booking.PublishAttempts).Return(nil).Once()

	_, err := service.Create(ctx, CreateDepartureInput{Date: "2025-01-01", Time: "09:30"})

	require.NoError(t, err)
	producer.AssertExpectations(t)
}

func TestDepartureService_Delete_WaitsForSharedLock(t *testing.T) {
	store := repository.NewMemoryStore()
	shared := lock.NewKeyedMutex()
	service := newService(store, WithLocker(shared))
	ctx := context.Background()
	d := createAt(t, service, now.Add(time.Hour), 6)

	unlock, err := shared.Lock(ctx, d.ID)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- service.Delete(ctx, d.ID) }()

	select {
	case <-done:
		t.Fatal("delete finished while a booking held the departure lock")
	case <-time.After(50 * time.Millisecond):
	}
	_, err = store.GetDeparture(ctx, d.ID)
	require.NoError(t, err)

	unlock()
	require.NoError(t, <-done)
	_, err = store.GetDeparture(ctx, d.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDepartureService_Delete_CascadesAndIsIdempotent(t *testing.T) {
	store := repository.NewMemoryStore()
	service := newService(store)
	bookings := booking.NewBookingService(store, booking.WithClock(func() time.Time { return now }))
	ctx := context.Background()

	d := createAt(t, service, now.Add(24*time.Hour), 6)
	other := createAt(t, service, now.Add(48*time.Hour), 6)
	_, err := bookings.CreateBooking(ctx, booking.CreateBookingInput{DepartureID: d.ID, Name: "A", Phone: "1", SeatNumbers: []int{1, 2}})
	require.NoError(t, err)
	_, err = bookings.CreateBooking(ctx, booking.CreateBookingInput{DepartureID: other.ID, Name: "B", Phone: "2", SeatNumbers: []int{1}})
	require.NoError(t, err)

	require.NoError(t, service.Delete(ctx, d.ID))
	require.NoError(t, service.Delete(ctx, d.ID))
	require.NoError(t, service.Delete(ctx, 999))

	_, err = service.Get(ctx, d.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	all, err := store.ListBookings(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, other.ID, all[0].DepartureID)
}

func TestDepartureService_Delete_UnknownIDPublishesNothing(t *testing.T) {
	store := repository.NewMemoryStore()
	producer := &MockProducer{}
	service := newService(store, WithProducer(producer, "events"))

	require.NoError(t, service.Delete(context.Background(), 42))

	producer.AssertNotCalled(t, "PublishWithRetry", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestDepartureService_Prune(t *testing.T) {
	store := repository.NewMemoryStore()
	m := metrics.New()
	service := newService(store, WithMetrics(m))
	bookings := booking.NewBookingService(store, booking.WithClock(func() time.Time { return now.AddDate(0, 0, -30) }))
	ctx := context.Background()

	upcoming := createAt(t, service, now.Add(time.Hour), 6)
	recent := createAt(t, service, now.AddDate(0, 0, -7), 6)
	expired := createAt(t, service, now.AddDate(0, 0, -8), 6)
	_, err := service.Create(ctx, CreateDepartureInput{Date: "garbage", Time: "??"})
	require.NoError(t, err)

	_, err = bookings.CreateBooking(ctx, booking.CreateBookingInput{DepartureID: expired.ID, Name: "Old", Phone: "1", SeatNumbers: []int{3}})
	require.NoError(t, err)

	pruned, err := service.Prune(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{expired.ID}, pruned)
	expectedMetric := `
# HELP tourbooking_departures_pruned_total Departures removed after the retention window.
# TYPE tourbooking_departures_pruned_total counter
tourbooking_departures_pruned_total 1
`
	assert.NoError(t, testutil.GatherAndCompare(m.Registry, strings.NewReader(expectedMetric), "tourbooking_departures_pruned_total"))

	listed, err := service.List(ctx)
	require.NoError(t, err)
	ids := make([]int64, 0, len(listed))
	for _, d := range listed {
		ids = append(ids, d.ID)
	}
	assert.ElementsMatch(t, []int64{upcoming.ID, recent.ID, 4}, ids)

	all, err := store.ListBookings(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)

	again, err := service.Prune(ctx)
	require.NoError(t, err)
	assert.Empty(t, again)
}

func TestDepartureService_List_UsesCache(t *testing.T) {
	store := &MockStoreLister{}
	cache := &MockCache{}
	service := newService(store, WithCache(cache))
	ctx := context.Background()

	cached := []domain.Departure{{ID: 7, Destination: "Cached"}}
	cache.On("GetDepartures", ctx).Return(cached, nil).Once()

	got, err := service.List(ctx)

	require.NoError(t, err)
	assert.Equal(t, cached, got)
	store.AssertNotCalled(t, "ListDepartures", mock.Anything)
}

func TestDepartureService_List_FillsCacheOnMiss(t *testing.T) {
	store := repository.NewMemoryStore()
	cache := &MockCache{}
	service := newService(store)
	ctx := context.Background()
	d := createAt(t, service, now.Add(time.Hour), 4)
	service.cache = cache

	cache.On("GetDepartures", ctx).Return(nil, nil).Once()
	cache.On("SetDepartures", ctx, []domain.Departure{*d}).Return(errors.New("redis down")).Once()

	got, err := service.List(ctx)

	require.NoError(t, err)
	assert.Equal(t, []domain.Departure{*d}, got)
	cache.AssertExpectations(t)
}

func TestDepartureService_SeatMap(t *testing.T) {
	store := repository.NewMemoryStore()
	service := newService(store)
	bookings := booking.NewBookingService(store, booking.WithClock(func() time.Time { return now }))
	ctx := context.Background()

	d := createAt(t, service, now.Add(time.Hour), 4)
	_, err := bookings.CreateBooking(ctx, booking.CreateBookingInput{DepartureID: d.ID, Name: "A", Phone: "1", SeatNumbers: []int{2, 4}})
	require.NoError(t, err)

	view, err := service.SeatMap(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, view.Departure.BookedCount)
	assert.Equal(t, []domain.Seat{
		{Number: 1, Taken: false},
		{Number: 2, Taken: true},
		{Number: 3, Taken: false},
		{Number: 4, Taken: true},
	}, view.Seats)

	_, err = service.SeatMap(ctx, 99)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	past := createAt(t, service, now.Add(-time.Hour), 4)
	_, err = service.SeatMap(ctx, past.ID)
	assert.ErrorIs(t, err, domain.ErrStateConflict)
}

func TestDepartureService_Stats(t *testing.T) {
	store := repository.NewMemoryStore()
	service := newService(store)
	bookings := booking.NewBookingService(store, booking.WithClock(func() time.Time { return now }))
	ctx := context.Background()

	full := createAt(t, service, now.Add(time.Hour), 2)
	partial := createAt(t, service, now.Add(2*time.Hour), 5)
	_, err := bookings.CreateBooking(ctx, booking.CreateBookingInput{DepartureID: full.ID, Name: "A", Phone: "1", SeatNumbers: []int{1, 2}})
	require.NoError(t, err)
	_, err = bookings.CreateBooking(ctx, booking.CreateBookingInput{DepartureID: partial.ID, Name: "B", Phone: "2", SeatNumbers: []int{5}})
	require.NoError(t, err)

	stats, err := service.Stats(ctx)

	require.NoError(t, err)
	assert.Equal(t, domain.CatalogStats{ActiveDepartures: 2, BookedSeats: 3, FullDepartures: 1}, stats)
}

// MockStoreLister only answers ListDepartures; any other store call panics.
type MockStoreLister struct {
	mock.Mock
	repository.Store
}

func (m *MockStoreLister) ListDepartures(ctx context.Context) ([]domain.Departure, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.Departure), args.Error(1)
}

func TestDepartureService_RunPruneLoop(t *testing.T) {
	store := repository.NewMemoryStore()
	service := newService(store)
	expired := createAt(t, service, now.AddDate(0, 0, -10), 6)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- service.RunPruneLoop(ctx, 5*time.Millisecond) }()

	assert.Eventually(t, func() bool {
		_, err := store.GetDeparture(context.Background(), expired.ID)
		return errors.Is(err, domain.ErrNotFound)
	}, time.Second, 5*time.Millisecond)

	cancel()
	assert.NoError(t, <-done)
}

func TestDepartureService_RunPruneLoop_Disabled(t *testing.T) {
	service := newService(repository.NewMemoryStore())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.NoError(t, service.RunPruneLoop(ctx, 0))
}
