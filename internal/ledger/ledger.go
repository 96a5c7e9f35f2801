// Package ledger records which booking holds which seat on a flight. Every
// operation is atomic with respect to other callers on the same flight;
// operations on different flights never wait for each other.
package ledger

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"
)

type Ledger interface {
	// Occupied returns the sorted labels held by active bookings on the flight.
	Occupied(ctx context.Context, flightID int64) ([]string, error)
	// TryReserve holds every label for bookingID, or none of them. When any
	// label is already held it returns a *ConflictError naming those labels.
	TryReserve(ctx context.Context, flightID int64, labels []string, bookingID string) error
	// Release drops every hold of bookingID on the flight. Releasing a booking
	// without holds is a no-op.
	Release(ctx context.Context, flightID int64, bookingID string) error
	// Holds lists the individual holds on the flight.
	Holds(ctx context.Context, flightID int64) ([]Hold, error)
	// Flights lists flights that have at least one hold.
	Flights(ctx context.Context) ([]int64, error)
}

type Hold struct {
	FlightID  int64
	SeatLabel string
	BookingID string
	HeldAt    time.Time
}

// ConflictError is returned by TryReserve when seats are already held.
type ConflictError struct {
	FlightID int64
	Seats    []string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("flight %d: seats already held: %s", e.FlightID, strings.Join(e.Seats, ", "))
}

// dedupe returns the distinct labels in sorted order.
func dedupe(labels []string) []string {
	seen := make(map[string]struct{}, len(labels))
	out := make([]string, 0, len(labels))
	for _, l := range labels {
		if _, ok := seen[l]; ok {
			continue
		}
		seen[l] = struct{}{}
		out = append(out, l)
	}
	sort.Strings(out)
	return out
}
