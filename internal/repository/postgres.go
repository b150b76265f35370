package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/Domenick1991/tourbooking/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const pgSchema = `
CREATE TABLE IF NOT EXISTS tours (
	id            BIGINT      PRIMARY KEY,
	date          TEXT        NOT NULL,
	time          TEXT        NOT NULL,
	destination   TEXT        NOT NULL,
	vehicle_model TEXT        NOT NULL,
	max_seats     INTEGER     NOT NULL,
	booked        INTEGER     NOT NULL DEFAULT 0,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS bookings (
	code         TEXT        PRIMARY KEY,
	name         TEXT        NOT NULL,
	phone        TEXT        NOT NULL,
	seat_numbers INTEGER[]   NOT NULL,
	tour_id      BIGINT      NOT NULL REFERENCES tours(id) ON DELETE CASCADE,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_bookings_tour_id ON bookings(tour_id);
`

type PGStore struct {
	db *pgxpool.Pool
}

func NewPGStore(db *pgxpool.Pool) *PGStore {
	return &PGStore{db: db}
}

func (r *PGStore) Migrate(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, pgSchema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

func (r *PGStore) ListDepartures(ctx context.Context) ([]domain.Departure, error) {
	rows, err := r.db.Query(ctx, `SELECT id, date, time, destination, vehicle_model, max_seats, booked, created_at FROM tours ORDER BY id`)
	if err != nil {
		return nil, domain.PersistenceError("list departures", err)
	}
	defer rows.Close()

	departures := make([]domain.Departure, 0)
	for rows.Next() {
		var d domain.Departure
		if err := rows.Scan(&d.ID, &d.Date, &d.Time, &d.Destination, &d.Vehicle, &d.Capacity, &d.BookedCount, &d.CreatedAt); err != nil {
			return nil, domain.PersistenceError("scan departure", err)
		}
		departures = append(departures, d)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.PersistenceError("list departures", err)
	}
	return departures, nil
}

func (r *PGStore) GetDeparture(ctx context.Context, id int64) (*domain.Departure, error) {
	return getPGDeparture(ctx, r.db, id)
}

func (r *PGStore) CreateDeparture(ctx context.Context, d *domain.Departure) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return domain.PersistenceError("begin transaction", err)
	}
	defer tx.Rollback(ctx)

	// Serialize id allocation; max(id)+1 is racy otherwise.
	if _, err := tx.Exec(ctx, `LOCK TABLE tours IN SHARE ROW EXCLUSIVE MODE`); err != nil {
		return domain.PersistenceError("lock tours", err)
	}
	if err := tx.QueryRow(ctx, `INSERT INTO tours (id, date, time, destination, vehicle_model, max_seats, booked)
		VALUES ((SELECT COALESCE(MAX(id), 0) + 1 FROM tours), $1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`, d.Date, d.Time, d.Destination, d.Vehicle, d.Capacity, d.BookedCount).
		Scan(&d.ID, &d.CreatedAt); err != nil {
		return domain.PersistenceError("insert departure", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.PersistenceError("commit transaction", err)
	}
	return nil
}

func (r *PGStore) DeleteDeparture(ctx context.Context, id int64) (bool, error) {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return false, domain.PersistenceError("begin transaction", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM bookings WHERE tour_id = $1`, id); err != nil {
		return false, domain.PersistenceError("delete bookings", err)
	}
	cmd, err := tx.Exec(ctx, `DELETE FROM tours WHERE id = $1`, id)
	if err != nil {
		return false, domain.PersistenceError("delete departure", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return false, domain.PersistenceError("commit transaction", err)
	}
	return cmd.RowsAffected() > 0, nil
}

func (r *PGStore) ListBookings(ctx context.Context) ([]domain.Booking, error) {
	return r.queryBookings(ctx, `SELECT code, name, phone, seat_numbers, tour_id, created_at FROM bookings ORDER BY created_at, code`)
}

func (r *PGStore) ListBookingsByDeparture(ctx context.Context, departureID int64) ([]domain.Booking, error) {
	return r.queryBookings(ctx, `SELECT code, name, phone, seat_numbers, tour_id, created_at FROM bookings WHERE tour_id = $1 ORDER BY created_at, code`, departureID)
}

func (r *PGStore) BookingCodeExists(ctx context.Context, code string) (bool, error) {
	var exists bool
	if err := r.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM bookings WHERE code = $1)`, code).Scan(&exists); err != nil {
		return false, domain.PersistenceError("check booking code", err)
	}
	return exists, nil
}

func (r *PGStore) CommitBooking(ctx context.Context, b *domain.Booking) (*domain.Departure, error) {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, domain.PersistenceError("begin transaction", err)
	}
	defer tx.Rollback(ctx)

	var d domain.Departure
	err = tx.QueryRow(ctx, `UPDATE tours SET booked = booked + $1 WHERE id = $2 AND booked + $1 <= max_seats
		RETURNING id, date, time, destination, vehicle_model, max_seats, booked, created_at`, b.SeatCount(), b.DepartureID).
		Scan(&d.ID, &d.Date, &d.Time, &d.Destination, &d.Vehicle, &d.Capacity, &d.BookedCount, &d.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM tours WHERE id = $1)`, b.DepartureID).Scan(&exists); err != nil {
			return nil, domain.PersistenceError("check departure", err)
		}
		if !exists {
			return nil, domain.ErrDepartureNotFound
		}
		return nil, ErrNoCapacity
	}
	if err != nil {
		return nil, domain.PersistenceError("update booked count", err)
	}

	if _, err := tx.Exec(ctx, `INSERT INTO bookings (code, name, phone, seat_numbers, tour_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`, b.Code, b.Name, b.Phone, b.SeatNumbers, b.DepartureID, b.CreatedAt); err != nil {
		return nil, domain.PersistenceError("insert booking", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, domain.PersistenceError("commit transaction", err)
	}
	return &d, nil
}

func (r *PGStore) Close() error {
	r.db.Close()
	return nil
}

func (r *PGStore) queryBookings(ctx context.Context, query string, args ...any) ([]domain.Booking, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, domain.PersistenceError("list bookings", err)
	}
	defer rows.Close()

	bookings := make([]domain.Booking, 0)
	for rows.Next() {
		var b domain.Booking
		if err := rows.Scan(&b.Code, &b.Name, &b.Phone, &b.SeatNumbers, &b.DepartureID, &b.CreatedAt); err != nil {
			return nil, domain.PersistenceError("scan booking", err)
		}
		bookings = append(bookings, b)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.PersistenceError("list bookings", err)
	}
	return bookings, nil
}

type pgQueryer interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func getPGDeparture(ctx context.Context, q pgQueryer, id int64) (*domain.Departure, error) {
	row := q.QueryRow(ctx, `SELECT id, date, time, destination, vehicle_model, max_seats, booked, created_at FROM tours WHERE id = $1`, id)
	var d domain.Departure
	if err := row.Scan(&d.ID, &d.Date, &d.Time, &d.Destination, &d.Vehicle, &d.Capacity, &d.BookedCount, &d.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrDepartureNotFound
		}
		return nil, domain.PersistenceError("get departure", err)
	}
	return &d, nil
}

var _ Store = (*PGStore)(nil)
