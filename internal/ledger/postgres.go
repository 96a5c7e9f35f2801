package ledger

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/Domenick1991/skybooking/internal/clock"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrUnknownFlight = errors.New("ledger: unknown flight")

// PGLedger keeps holds in the seat_holds table. Writers serialise on the
// flight's row lock, so two flights never contend.
type PGLedger struct {
	db    *pgxpool.Pool
	clock clock.Clock
}

func NewPGLedger(db *pgxpool.Pool, clk clock.Clock) *PGLedger {
	return &PGLedger{db: db, clock: clk}
}

func (l *PGLedger) Occupied(ctx context.Context, flightID int64) ([]string, error) {
	rows, err := l.db.Query(ctx, `SELECT seat_label FROM seat_holds WHERE flight_id=$1`, flightID)
	if err != nil {
		return nil, fmt.Errorf("query occupied seats: %w", err)
	}
	labels, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scan occupied seats: %w", err)
	}
	sort.Strings(labels)
	return labels, nil
}

func (l *PGLedger) TryReserve(ctx context.Context, flightID int64, labels []string, bookingID string) error {
	labels = dedupe(labels)

	tx, err := l.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	found, err := lockFlight(ctx, tx, flightID)
	if err != nil {
		return err
	}
	if !found {
		return ErrUnknownFlight
	}

	rows, err := tx.Query(ctx, `SELECT seat_label FROM seat_holds WHERE flight_id=$1 AND seat_label = ANY($2)`, flightID, labels)
	if err != nil {
		return fmt.Errorf("query held seats: %w", err)
	}
	taken, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return fmt.Errorf("scan held seats: %w", err)
	}
	if len(taken) > 0 {
		sort.Strings(taken)
		return &ConflictError{FlightID: flightID, Seats: taken}
	}

	if _, err := tx.Exec(ctx, `INSERT INTO seat_holds (flight_id, seat_label, booking_id, held_at)
		SELECT $1, label, $3, $4 FROM unnest($2::text[]) AS label`,
		flightID, labels, bookingID, l.clock.Now()); err != nil {
		return fmt.Errorf("insert seat holds: %w", err)
	}

	return tx.Commit(ctx)
}

func (l *PGLedger) Release(ctx context.Context, flightID int64, bookingID string) error {
	tx, err := l.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	found, err := lockFlight(ctx, tx, flightID)
	if err != nil {
		return err
	}
	if !found {
		return nil
	}

	if _, err := tx.Exec(ctx, `DELETE FROM seat_holds WHERE flight_id=$1 AND booking_id=$2`, flightID, bookingID); err != nil {
		return fmt.Errorf("delete seat holds: %w", err)
	}
	return tx.Commit(ctx)
}

func (l *PGLedger) Holds(ctx context.Context, flightID int64) ([]Hold, error) {
	rows, err := l.db.Query(ctx, `SELECT flight_id, seat_label, booking_id::text, held_at FROM seat_holds WHERE flight_id=$1 ORDER BY seat_label`, flightID)
	if err != nil {
		return nil, fmt.Errorf("query holds: %w", err)
	}
	defer rows.Close()

	var holds []Hold
	for rows.Next() {
		var h Hold
		if err := rows.Scan(&h.FlightID, &h.SeatLabel, &h.BookingID, &h.HeldAt); err != nil {
			return nil, err
		}
		holds = append(holds, h)
	}
	return holds, rows.Err()
}

func (l *PGLedger) Flights(ctx context.Context) ([]int64, error) {
	rows, err := l.db.Query(ctx, `SELECT DISTINCT flight_id FROM seat_holds ORDER BY flight_id`)
	if err != nil {
		return nil, fmt.Errorf("query flights with holds: %w", err)
	}
	return pgx.CollectRows(rows, pgx.RowTo[int64])
}

// lockFlight takes the per-flight row lock for the rest of tx.
func lockFlight(ctx context.Context, tx pgx.Tx, flightID int64) (bool, error) {
	var id int64
	err := tx.QueryRow(ctx, `SELECT id FROM flights WHERE id=$1 FOR UPDATE`, flightID).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("lock flight %d: %w", flightID, err)
	}
	return true, nil
}

var _ Ledger = (*PGLedger)(nil)
