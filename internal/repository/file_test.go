package repository

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Domenick1991/tourbooking/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStore_SurvivesRestart(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "data.json")

	store, err := NewFileStore(path)
	require.NoError(t, err)
	d := &domain.Departure{Date: "2030-01-01", Time: "08:00", Destination: "Shanghai", Vehicle: "bus", Capacity: 6}
	require.NoError(t, store.CreateDeparture(ctx, d))
	_, err = store.CommitBooking(ctx, &domain.Booking{Code: "BKAAAAAA", Name: "Alice", Phone: "111", SeatNumbers: []int{3}, DepartureID: d.ID, CreatedAt: time.Now().UTC()})
	require.NoError(t, err)

	reopened, err := NewFileStore(path)
	require.NoError(t, err)

	departures, err := reopened.ListDepartures(ctx)
	require.NoError(t, err)
	require.Len(t, departures, 1)
	assert.Equal(t, 1, departures[0].BookedCount)

	bookings, err := reopened.ListBookings(ctx)
	require.NoError(t, err)
	require.Len(t, bookings, 1)
	assert.Equal(t, "BKAAAAAA", bookings[0].Code)
}

func TestFileStore_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, err := NewFileStore(path)
	assert.Error(t, err)
}

func TestMemoryStore_PersistFailureLeavesStateUntouched(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	d := &domain.Departure{Date: "2030-01-01", Time: "08:00", Destination: "Shanghai", Vehicle: "bus", Capacity: 6}
	require.NoError(t, store.CreateDeparture(ctx, d))

	store.persist = func(snapshot) error { return errors.New("disk full") }

	_, err := store.CommitBooking(ctx, &domain.Booking{Code: "BKAAAAAA", Name: "A", Phone: "1", SeatNumbers: []int{1, 2}, DepartureID: d.ID})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrPersistence)

	got, err := store.GetDeparture(ctx, d.ID)
	require.NoError(t, err)
	assert.Zero(t, got.BookedCount)
	bookings, err := store.ListBookings(ctx)
	require.NoError(t, err)
	assert.Empty(t, bookings)

	failed := &domain.Departure{Date: "2030-01-02", Time: "08:00", Destination: "X", Vehicle: "bus", Capacity: 6}
	require.Error(t, store.CreateDeparture(ctx, failed))
	assert.Zero(t, failed.ID)
}

func TestFileStore_SharedBetweenProcesses(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "data.json")

	app, err := NewFileStore(path)
	require.NoError(t, err)
	worker, err := NewFileStore(path)
	require.NoError(t, err)

	expired := &domain.Departure{Date: "2020-01-01", Time: "08:00", Destination: "Old", Vehicle: "bus", Capacity: 6}
	upcoming := &domain.Departure{Date: "2030-01-01", Time: "08:00", Destination: "New", Vehicle: "bus", Capacity: 6}
	require.NoError(t, app.CreateDeparture(ctx, expired))
	require.NoError(t, app.CreateDeparture(ctx, upcoming))
	_, err = app.CommitBooking(ctx, &domain.Booking{Code: "BKAAAAAA", Name: "A", Phone: "1", SeatNumbers: []int{1}, DepartureID: upcoming.ID, CreatedAt: time.Now().UTC()})
	require.NoError(t, err)

	deleted, err := worker.DeleteDeparture(ctx, expired.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	reopened, err := NewFileStore(path)
	require.NoError(t, err)
	departures, err := reopened.ListDepartures(ctx)
	require.NoError(t, err)
	require.Len(t, departures, 1)
	assert.Equal(t, upcoming.ID, departures[0].ID)
	assert.Equal(t, 1, departures[0].BookedCount)
	bookings, err := reopened.ListBookings(ctx)
	require.NoError(t, err)
	assert.Len(t, bookings, 1)

	_, err = app.GetDeparture(ctx, expired.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	next := &domain.Departure{Date: "2030-02-01", Time: "09:00", Destination: "Next", Vehicle: "bus", Capacity: 6}
	require.NoError(t, worker.CreateDeparture(ctx, next))
	assert.Equal(t, upcoming.ID+1, next.ID)
}
