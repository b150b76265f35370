package repository

import (
	"context"
	"slices"
	"sync"

	"github.com/Domenick1991/tourbooking/internal/domain"
)

type snapshot struct {
	Departures []domain.Departure `json:"tours"`
	Bookings   []domain.Booking   `json:"bookings"`
}

func (s snapshot) clone() snapshot {
	return snapshot{
		Departures: slices.Clone(s.Departures),
		Bookings:   cloneBookings(s.Bookings),
	}
}

func cloneBookings(in []domain.Booking) []domain.Booking {
	out := make([]domain.Booking, len(in))
	for i, b := range in {
		b.SeatNumbers = slices.Clone(b.SeatNumbers)
		out[i] = b
	}
	return out
}

// MemoryStore keeps everything in process memory. Mutations are applied to a copy
// which replaces the current state only after the optional persist hook succeeds.
// With a reload hook the state is re-read from its backing source before every
// operation, so several processes can share one data file.
type MemoryStore struct {
	mu      sync.RWMutex
	state   snapshot
	persist func(snapshot) error
	reload  func() (snapshot, error)
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{state: snapshot{Departures: []domain.Departure{}, Bookings: []domain.Booking{}}}
}

func (s *MemoryStore) ListDepartures(_ context.Context) ([]domain.Departure, error) {
	if err := s.syncForRead(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.state.Departures), nil
}

func (s *MemoryStore) GetDeparture(_ context.Context, id int64) (*domain.Departure, error) {
	if err := s.syncForRead(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := s.indexOf(id)
	if i < 0 {
		return nil, domain.ErrDepartureNotFound
	}
	d := s.state.Departures[i]
	return &d, nil
}

func (s *MemoryStore) CreateDeparture(_ context.Context, d *domain.Departure) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.sync(); err != nil {
		return err
	}

	var maxID int64
	for _, existing := range s.state.Departures {
		maxID = max(maxID, existing.ID)
	}
	created := *d
	created.ID = maxID + 1

	err := s.apply(func(next *snapshot) error {
		next.Departures = append(next.Departures, created)
		return nil
	})
	if err != nil {
		return err
	}
	d.ID = created.ID
	return nil
}

func (s *MemoryStore) DeleteDeparture(_ context.Context, id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.sync(); err != nil {
		return false, err
	}

	if s.indexOf(id) < 0 {
		return false, nil
	}
	err := s.apply(func(next *snapshot) error {
		next.Departures = slices.DeleteFunc(next.Departures, func(d domain.Departure) bool { return d.ID == id })
		next.Bookings = slices.DeleteFunc(next.Bookings, func(b domain.Booking) bool { return b.DepartureID == id })
		return nil
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *MemoryStore) ListBookings(_ context.Context) ([]domain.Booking, error) {
	if err := s.syncForRead(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneBookings(s.state.Bookings), nil
}

func (s *MemoryStore) ListBookingsByDeparture(_ context.Context, departureID int64) ([]domain.Booking, error) {
	if err := s.syncForRead(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Booking, 0)
	for _, b := range s.state.Bookings {
		if b.DepartureID == departureID {
			b.SeatNumbers = slices.Clone(b.SeatNumbers)
			out = append(out, b)
		}
	}
	return out, nil
}

func (s *MemoryStore) BookingCodeExists(_ context.Context, code string) (bool, error) {
	if err := s.syncForRead(); err != nil {
		return false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.ContainsFunc(s.state.Bookings, func(b domain.Booking) bool { return b.Code == code }), nil
}

func (s *MemoryStore) CommitBooking(_ context.Context, b *domain.Booking) (*domain.Departure, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.sync(); err != nil {
		return nil, err
	}

	i := s.indexOf(b.DepartureID)
	if i < 0 {
		return nil, domain.ErrDepartureNotFound
	}
	if s.state.Departures[i].Available() < b.SeatCount() {
		return nil, ErrNoCapacity
	}

	var updated domain.Departure
	err := s.apply(func(next *snapshot) error {
		next.Departures[i].BookedCount += b.SeatCount()
		stored := *b
		stored.SeatNumbers = slices.Clone(b.SeatNumbers)
		next.Bookings = append(next.Bookings, stored)
		updated = next.Departures[i]
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

func (s *MemoryStore) Close() error {
	return nil
}

// sync replaces the state with the reloaded one. The write lock must be held.
func (s *MemoryStore) sync() error {
	if s.reload == nil {
		return nil
	}
	loaded, err := s.reload()
	if err != nil {
		return domain.PersistenceError("reload state", err)
	}
	s.state = loaded
	return nil
}

func (s *MemoryStore) syncForRead() error {
	if s.reload == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sync()
}

// apply must be called with the write lock held.
func (s *MemoryStore) apply(mutate func(next *snapshot) error) error {
	next := s.state.clone()
	if err := mutate(&next); err != nil {
		return err
	}
	if s.persist != nil {
		if err := s.persist(next); err != nil {
			return domain.PersistenceError("persist state", err)
		}
	}
	s.state = next
	return nil
}

func (s *MemoryStore) indexOf(id int64) int {
	return slices.IndexFunc(s.state.Departures, func(d domain.Departure) bool { return d.ID == id })
}

var _ Store = (*MemoryStore)(nil)
