package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Domenick1991/tourbooking/internal/domain"
	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS tours (
	id            INTEGER PRIMARY KEY,
	date          TEXT    NOT NULL,
	time          TEXT    NOT NULL,
	destination   TEXT    NOT NULL,
	vehicle_model TEXT    NOT NULL,
	max_seats     INTEGER NOT NULL,
	booked        INTEGER NOT NULL DEFAULT 0,
	created_at    TEXT    NOT NULL
);
CREATE TABLE IF NOT EXISTS bookings (
	code         TEXT    PRIMARY KEY,
	name         TEXT    NOT NULL,
	phone        TEXT    NOT NULL,
	seat_numbers TEXT    NOT NULL,
	tour_id      INTEGER NOT NULL,
	created_at   TEXT    NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_bookings_tour_id ON bookings(tour_id);
`

const (
	sqliteTourColumns    = `id, date, time, destination, vehicle_model, max_seats, booked, created_at`
	sqliteBookingColumns = `code, name, phone, seat_numbers, tour_id, created_at`
)

// SQLiteStore persists the catalog through database/sql. It works with any
// driver using ? placeholders; production wiring opens modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the database at dsn and applies the schema.
func OpenSQLite(ctx context.Context, dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// SQLite allows a single writer; one connection also keeps :memory: databases shared.
	db.SetMaxOpenConns(1)

	store := NewSQLiteStore(db)
	if err := store.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

func (r *SQLiteStore) Migrate(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, sqliteSchema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

func (r *SQLiteStore) ListDepartures(ctx context.Context) ([]domain.Departure, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+sqliteTourColumns+` FROM tours ORDER BY id`)
	if err != nil {
		return nil, domain.PersistenceError("list departures", err)
	}
	defer rows.Close()

	departures := make([]domain.Departure, 0)
	for rows.Next() {
		d, err := scanSQLiteDeparture(rows)
		if err != nil {
			return nil, domain.PersistenceError("scan departure", err)
		}
		departures = append(departures, d)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.PersistenceError("list departures", err)
	}
	return departures, nil
}

func (r *SQLiteStore) GetDeparture(ctx context.Context, id int64) (*domain.Departure, error) {
	return getSQLiteDeparture(ctx, r.db, id)
}

func (r *SQLiteStore) CreateDeparture(ctx context.Context, d *domain.Departure) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		var id int64
		if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(id), 0) + 1 FROM tours`).Scan(&id); err != nil {
			return fmt.Errorf("next departure id: %w", err)
		}
		if d.CreatedAt.IsZero() {
			d.CreatedAt = time.Now().UTC()
		}
		_, err := tx.ExecContext(ctx, `INSERT INTO tours (`+sqliteTourColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			id, d.Date, d.Time, d.Destination, d.Vehicle, d.Capacity, d.BookedCount, d.CreatedAt.Format(time.RFC3339Nano))
		if err != nil {
			return fmt.Errorf("insert departure: %w", err)
		}
		d.ID = id
		return nil
	})
}

func (r *SQLiteStore) DeleteDeparture(ctx context.Context, id int64) (bool, error) {
	var deleted bool
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM bookings WHERE tour_id = ?`, id); err != nil {
			return fmt.Errorf("delete bookings: %w", err)
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM tours WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("delete departure: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		deleted = n > 0
		return nil
	})
	return deleted, err
}

func (r *SQLiteStore) ListBookings(ctx context.Context) ([]domain.Booking, error) {
	return r.queryBookings(ctx, `SELECT `+sqliteBookingColumns+` FROM bookings ORDER BY created_at, code`)
}

func (r *SQLiteStore) ListBookingsByDeparture(ctx context.Context, departureID int64) ([]domain.Booking, error) {
	return r.queryBookings(ctx, `SELECT `+sqliteBookingColumns+` FROM bookings WHERE tour_id = ? ORDER BY created_at, code`, departureID)
}

func (r *SQLiteStore) BookingCodeExists(ctx context.Context, code string) (bool, error) {
	var exists bool
	if err := r.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM bookings WHERE code = ?)`, code).Scan(&exists); err != nil {
		return false, domain.PersistenceError("check booking code", err)
	}
	return exists, nil
}

func (r *SQLiteStore) CommitBooking(ctx context.Context, b *domain.Booking) (*domain.Departure, error) {
	seats, err := json.Marshal(b.SeatNumbers)
	if err != nil {
		return nil, fmt.Errorf("encode seat numbers: %w", err)
	}

	var updated *domain.Departure
	err = r.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `UPDATE tours SET booked = booked + ? WHERE id = ? AND booked + ? <= max_seats`,
			b.SeatCount(), b.DepartureID, b.SeatCount())
		if err != nil {
			return fmt.Errorf("update booked count: %w", err)
		}
		if n, err := res.RowsAffected(); err != nil {
			return err
		} else if n == 0 {
			var exists bool
			if err := tx.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM tours WHERE id = ?)`, b.DepartureID).Scan(&exists); err != nil {
				return fmt.Errorf("check departure: %w", err)
			}
			if !exists {
				return domain.ErrDepartureNotFound
			}
			return ErrNoCapacity
		}

		_, err = tx.ExecContext(ctx, `INSERT INTO bookings (`+sqliteBookingColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
			b.Code, b.Name, b.Phone, string(seats), b.DepartureID, b.CreatedAt.Format(time.RFC3339Nano))
		if err != nil {
			return fmt.Errorf("insert booking: %w", err)
		}

		updated, err = getSQLiteDeparture(ctx, tx, b.DepartureID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (r *SQLiteStore) Close() error {
	return r.db.Close()
}

// withTx rolls back on any error returned by fn and maps failures to ErrPersistence,
// except for the domain errors fn reports on purpose.
func (r *SQLiteStore) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.PersistenceError("begin transaction", err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			err = errors.Join(err, rbErr)
		}
		if errors.Is(err, ErrNoCapacity) || errors.Is(err, domain.ErrNotFound) {
			return err
		}
		return domain.PersistenceError("transaction", err)
	}

	if err := tx.Commit(); err != nil {
		return domain.PersistenceError("commit transaction", err)
	}
	return nil
}

func (r *SQLiteStore) queryBookings(ctx context.Context, query string, args ...any) ([]domain.Booking, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, domain.PersistenceError("list bookings", err)
	}
	defer rows.Close()

	bookings := make([]domain.Booking, 0)
	for rows.Next() {
		var (
			b         domain.Booking
			seats     string
			createdAt string
		)
		if err := rows.Scan(&b.Code, &b.Name, &b.Phone, &seats, &b.DepartureID, &createdAt); err != nil {
			return nil, domain.PersistenceError("scan booking", err)
		}
		if err := json.Unmarshal([]byte(seats), &b.SeatNumbers); err != nil {
			return nil, domain.PersistenceError("decode seat numbers", err)
		}
		b.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		bookings = append(bookings, b)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.PersistenceError("list bookings", err)
	}
	return bookings, nil
}

type sqliteQueryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type sqliteScanner interface {
	Scan(dest ...any) error
}

func getSQLiteDeparture(ctx context.Context, q sqliteQueryer, id int64) (*domain.Departure, error) {
	row := q.QueryRowContext(ctx, `SELECT `+sqliteTourColumns+` FROM tours WHERE id = ?`, id)
	d, err := scanSQLiteDeparture(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrDepartureNotFound
	}
	if err != nil {
		return nil, domain.PersistenceError("get departure", err)
	}
	return &d, nil
}

func scanSQLiteDeparture(s sqliteScanner) (domain.Departure, error) {
	var (
		d         domain.Departure
		createdAt string
	)
	if err := s.Scan(&d.ID, &d.Date, &d.Time, &d.Destination, &d.Vehicle, &d.Capacity, &d.BookedCount, &createdAt); err != nil {
		return domain.Departure{}, err
	}
	d.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	return d, nil
}

var _ Store = (*SQLiteStore)(nil)
