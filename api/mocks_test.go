package api

import (
	"context"

	"github.com/Domenick1991/tourbooking/internal/domain"
	"github.com/Domenick1991/tourbooking/internal/service/booking"
	"github.com/Domenick1991/tourbooking/internal/service/departures"
	"github.com/stretchr/testify/mock"
)

// MockBookingUseCase is a mock implementation of booking.BookingUseCase
type MockBookingUseCase struct {
	mock.Mock
}

func (m *MockBookingUseCase) CreateBooking(ctx context.Context, input booking.CreateBookingInput) (*domain.Booking, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

func (m *MockBookingUseCase) Search(ctx context.Context, query string) ([]domain.Booking, error) {
	args := m.Called(ctx, query)
	return args.Get(0).([]domain.Booking), args.Error(1)
}

func (m *MockBookingUseCase) ListAll(ctx context.Context) ([]domain.Booking, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.Booking), args.Error(1)
}

func (m *MockBookingUseCase) ListByDeparture(ctx context.Context, departureID int64) ([]domain.Booking, error) {
	args := m.Called(ctx, departureID)
	return args.Get(0).([]domain.Booking), args.Error(1)
}

// MockDepartureUseCase is a mock implementation of departures.DepartureUseCase
type MockDepartureUseCase struct {
	mock.Mock
}

func (m *MockDepartureUseCase) List(ctx context.Context) ([]domain.Departure, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.Departure), args.Error(1)
}

func (m *MockDepartureUseCase) Prune(ctx context.Context) ([]int64, error) {
	args := m.Called(ctx)
	return args.Get(0).([]int64), args.Error(1)
}

func (m *MockDepartureUseCase) Get(ctx context.Context, id int64) (*domain.Departure, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Departure), args.Error(1)
}

func (m *MockDepartureUseCase) SeatMap(ctx context.Context, id int64) (*departures.SeatMapView, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*departures.SeatMapView), args.Error(1)
}

func (m *MockDepartureUseCase) Stats(ctx context.Context) (domain.CatalogStats, error) {
	args := m.Called(ctx)
	return args.Get(0).(domain.CatalogStats), args.Error(1)
}

func (m *MockDepartureUseCase) Create(ctx context.Context, input departures.CreateDepartureInput) (*domain.Departure, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Departure), args.Error(1)
}

func (m *MockDepartureUseCase) Delete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}
