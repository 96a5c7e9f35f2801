package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Domenick1991/skybooking/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// FlightRepository is the flight directory the booking core reads from.
type FlightRepository interface {
	// List returns the flights matching filter, earliest departure first.
	List(ctx context.Context, filter domain.FlightFilter) ([]domain.Flight, error)
	GetByID(ctx context.Context, id int64) (*domain.Flight, error)
	// AdjustCapacity moves the displayed available-seat counter by delta,
	// keeping it within [0, total_seats].
	AdjustCapacity(ctx context.Context, id int64, delta int) error
}

type PGFlightRepository struct {
	db *pgxpool.Pool
}

func NewFlightRepository(db *pgxpool.Pool) FlightRepository {
	return &PGFlightRepository{db: db}
}

const flightColumns = `id, flight_number, airline, departure_city, arrival_city, departure_time, arrival_time, class, total_seats, available_seats, price_cents, status, created_at, updated_at`

func scanFlight(row pgx.Row) (*domain.Flight, error) {
	var f domain.Flight
	if err := row.Scan(&f.ID, &f.FlightNumber, &f.Airline, &f.DepartureCity, &f.ArrivalCity, &f.DepartureTime, &f.ArrivalTime,
		&f.Class, &f.TotalSeats, &f.AvailableSeats, &f.PriceCents, &f.Status, &f.CreatedAt, &f.UpdatedAt); err != nil {
		return nil, err
	}
	return &f, nil
}

func (r *PGFlightRepository) List(ctx context.Context, filter domain.FlightFilter) ([]domain.Flight, error) {
	where, args := flightConditions(filter)
	query := `SELECT ` + flightColumns + ` FROM flights`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, ` AND `)
	}
	query += ` ORDER BY departure_time, id`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	flights := make([]domain.Flight, 0)
	for rows.Next() {
		f, err := scanFlight(rows)
		if err != nil {
			return nil, err
		}
		flights = append(flights, *f)
	}
	return flights, rows.Err()
}

func flightConditions(filter domain.FlightFilter) ([]string, []any) {
	var (
		where []string
		args  []any
	)
	add := func(cond string, arg any) {
		args = append(args, arg)
		where = append(where, strings.ReplaceAll(cond, "?", fmt.Sprintf("$%d", len(args))))
	}

	if filter.Origin != "" {
		add(`departure_city ILIKE ?`, likePattern(filter.Origin))
	}
	if filter.Destination != "" {
		add(`arrival_city ILIKE ?`, likePattern(filter.Destination))
	}
	if !filter.Date.IsZero() {
		start, end := filter.DayRange()
		add(`departure_time >= ?`, start)
		add(`departure_time < ?`, end)
	}
	if filter.Class != "" {
		add(`class = ?`, string(filter.Class))
	}
	if filter.Seats > 0 {
		add(`available_seats >= ?`, filter.Seats)
	}
	return where, args
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func likePattern(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}

func (r *PGFlightRepository) GetByID(ctx context.Context, id int64) (*domain.Flight, error) {
	f, err := scanFlight(r.db.QueryRow(ctx, `SELECT `+flightColumns+` FROM flights WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrFlightNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get flight %d: %w", id, err)
	}
	return f, nil
}

func (r *PGFlightRepository) AdjustCapacity(ctx context.Context, id int64, delta int) error {
	res, err := r.db.Exec(ctx, `UPDATE flights SET available_seats = available_seats + $2, updated_at = now()
		WHERE id=$1 AND available_seats + $2 >= 0 AND available_seats + $2 <= total_seats`, id, delta)
	if err != nil {
		if isCheckViolation(err) {
			return domain.ErrInsufficientCapacity
		}
		return fmt.Errorf("adjust capacity of flight %d: %w", id, err)
	}
	if res.RowsAffected() > 0 {
		return nil
	}

	if _, err := r.GetByID(ctx, id); err != nil {
		return err
	}
	if delta < 0 {
		return domain.ErrInsufficientCapacity
	}
	return fmt.Errorf("flight %d: available seats would exceed total", id)
}

var _ FlightRepository = (*PGFlightRepository)(nil)
