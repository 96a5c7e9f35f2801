package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Domenick1991/skybooking/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type BookingRepository interface {
	Create(ctx context.Context, booking *domain.Booking) error
	GetByID(ctx context.Context, id string) (*domain.Booking, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Booking, error)
	// Transition locks the booking row, passes its current state to apply and
	// stores the status apply returns. An error from apply rolls back and is
	// returned as is. When apply returns the current status and payment nothing
	// is written.
	Transition(ctx context.Context, id string, apply TransitionFunc) (*domain.Booking, error)
}

type TransitionFunc func(current *domain.Booking) (domain.BookingStatus, domain.PaymentStatus, error)

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

type PGBookingRepository struct {
	db *pgxpool.Pool
}

func NewBookingRepository(db *pgxpool.Pool) BookingRepository {
	return &PGBookingRepository{db: db}
}

const bookingColumns = `id::text, user_id, flight_id, total_price_cents, status, payment_status, created_at, updated_at`

func scanBooking(row pgx.Row) (*domain.Booking, error) {
	var b domain.Booking
	if err := row.Scan(&b.ID, &b.UserID, &b.FlightID, &b.TotalPriceCents, &b.Status, &b.PaymentStatus, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return nil, err
	}
	return &b, nil
}

// Create stores the booking and its passengers in one transaction.
func (r *PGBookingRepository) Create(ctx context.Context, booking *domain.Booking) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `INSERT INTO bookings (id, user_id, flight_id, total_price_cents, status, payment_status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		booking.ID, booking.UserID, booking.FlightID, booking.TotalPriceCents, booking.Status, booking.PaymentStatus, booking.CreatedAt, booking.UpdatedAt); err != nil {
		return fmt.Errorf("insert booking: %w", err)
	}

	batch := &pgx.Batch{}
	for i, p := range booking.Passengers {
		batch.Queue(`INSERT INTO booking_passengers (booking_id, position, first_name, last_name, passport_number, seat_label)
			VALUES ($1, $2, $3, $4, $5, $6)`, booking.ID, i, p.FirstName, p.LastName, p.PassportNumber, p.SeatLabel)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("insert passengers: %w", err)
	}

	return tx.Commit(ctx)
}

func (r *PGBookingRepository) GetByID(ctx context.Context, id string) (*domain.Booking, error) {
	b, err := scanBooking(r.db.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) || isInvalidUUID(err) {
		return nil, domain.ErrBookingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get booking %s: %w", id, err)
	}
	if err := loadPassengers(ctx, r.db, b); err != nil {
		return nil, err
	}
	return b, nil
}

func (r *PGBookingRepository) ListByUser(ctx context.Context, userID string) ([]domain.Booking, error) {
	rows, err := r.db.Query(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE user_id=$1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	defer rows.Close()

	bookings := make([]domain.Booking, 0)
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	for i := range bookings {
		if err := loadPassengers(ctx, r.db, &bookings[i]); err != nil {
			return nil, err
		}
	}
	return bookings, nil
}

// Waiting for the row lock happens outside a transaction, so callers queued on
// a busy booking hold no pooled connection. The lock holder may need one for
// work done inside apply.
const (
	lockRetryMin = 5 * time.Millisecond
	lockRetryMax = 200 * time.Millisecond
)

var errRowLocked = errors.New("booking row locked")

func (r *PGBookingRepository) Transition(ctx context.Context, id string, apply TransitionFunc) (*domain.Booking, error) {
	wait := lockRetryMin
	for {
		b, err := r.transition(ctx, id, apply)
		if !errors.Is(err, errRowLocked) {
			return b, err
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
		if wait < lockRetryMax {
			wait *= 2
		}
	}
}

func (r *PGBookingRepository) transition(ctx context.Context, id string, apply TransitionFunc) (*domain.Booking, error) {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	current, err := scanBooking(tx.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id=$1 FOR UPDATE NOWAIT`, id))
	if errors.Is(err, pgx.ErrNoRows) || isInvalidUUID(err) {
		return nil, domain.ErrBookingNotFound
	}
	if isLockNotAvailable(err) {
		return nil, errRowLocked
	}
	if err != nil {
		return nil, fmt.Errorf("lock booking %s: %w", id, err)
	}
	if err := loadPassengers(ctx, tx, current); err != nil {
		return nil, err
	}

	status, payment, err := apply(current)
	if err != nil {
		return nil, err
	}
	if status == current.Status && payment == current.PaymentStatus {
		return current, tx.Commit(ctx)
	}

	updated, err := scanBooking(tx.QueryRow(ctx, `UPDATE bookings SET status=$1, payment_status=$2, updated_at=now() WHERE id=$3 RETURNING `+bookingColumns, status, payment, id))
	if err != nil {
		return nil, fmt.Errorf("update booking %s: %w", id, err)
	}
	updated.Passengers = current.Passengers

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit booking %s: %w", id, err)
	}
	return updated, nil
}

func loadPassengers(ctx context.Context, q querier, b *domain.Booking) error {
	rows, err := q.Query(ctx, `SELECT first_name, last_name, passport_number, seat_label FROM booking_passengers WHERE booking_id=$1 ORDER BY position`, b.ID)
	if err != nil {
		return fmt.Errorf("load passengers: %w", err)
	}
	defer rows.Close()

	b.Passengers = make([]domain.Passenger, 0)
	for rows.Next() {
		var p domain.Passenger
		if err := rows.Scan(&p.FirstName, &p.LastName, &p.PassportNumber, &p.SeatLabel); err != nil {
			return err
		}
		b.Passengers = append(b.Passengers, p)
	}
	return rows.Err()
}

var _ BookingRepository = (*PGBookingRepository)(nil)
