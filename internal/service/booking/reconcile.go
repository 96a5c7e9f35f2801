package booking

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/Domenick1991/skybooking/internal/domain"
	"github.com/Domenick1991/skybooking/internal/kafka"
	"github.com/Domenick1991/skybooking/internal/ledger"
	"github.com/sirupsen/logrus"
)

type ReconcileReport struct {
	FlightsScanned   int
	BookingsReleased int
	SeatsReleased    int
}

// Reconcile releases holds whose booking is missing or canceled in the
// booking store. Holds younger than grace are skipped, since their booking may
// still be in the middle of CreateBooking.
func (s *BookingService) Reconcile(ctx context.Context, grace time.Duration) (ReconcileReport, error) {
	var report ReconcileReport

	flightIDs, err := s.ledger.Flights(ctx)
	if err != nil {
		return report, &domain.PersistenceError{Op: "list ledger flights", Err: err}
	}

	cutoff := s.clock.Now().Add(-grace)
	for _, flightID := range flightIDs {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		report.FlightsScanned++

		holds, err := s.ledger.Holds(ctx, flightID)
		if err != nil {
			s.log.WithError(err).WithField("flight_id", flightID).Warn("failed to list holds")
			continue
		}

		for bookingID, seats := range staleHolds(holds, cutoff) {
			log := s.log.WithFields(logrus.Fields{"flight_id": flightID, "booking_id": bookingID})

			orphan, err := s.orphaned(ctx, bookingID)
			if err != nil {
				log.WithError(err).Warn("failed to check booking")
				continue
			}
			if !orphan {
				continue
			}

			if err := s.ledger.Release(ctx, flightID, bookingID); err != nil {
				log.WithError(err).Warn("failed to release orphaned holds")
				continue
			}
			report.BookingsReleased++
			report.SeatsReleased += len(seats)
			log.WithField("seats", seats).Info("released orphaned holds")

			s.publish(ctx, kafka.EventHoldsReconciled, &domain.Booking{
				ID:         bookingID,
				FlightID:   flightID,
				Passengers: passengersFor(seats),
				Status:     domain.BookingStatusCanceled,
			})
		}
	}
	return report, nil
}

func (s *BookingService) orphaned(ctx context.Context, bookingID string) (bool, error) {
	b, err := s.bookings.GetByID(ctx, bookingID)
	if errors.Is(err, domain.ErrBookingNotFound) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	return !b.Status.Active(), nil
}

// staleHolds groups holds taken before cutoff by booking id. A booking counts
// as stale only when all of its holds are.
func staleHolds(holds []ledger.Hold, cutoff time.Time) map[string][]string {
	fresh := make(map[string]bool)
	out := make(map[string][]string)
	for _, h := range holds {
		if h.HeldAt.After(cutoff) {
			fresh[h.BookingID] = true
			continue
		}
		out[h.BookingID] = append(out[h.BookingID], h.SeatLabel)
	}
	for id := range fresh {
		delete(out, id)
	}
	for _, seats := range out {
		sort.Strings(seats)
	}
	return out
}

func passengersFor(seats []string) []domain.Passenger {
	out := make([]domain.Passenger, len(seats))
	for i, seat := range seats {
		out[i].SeatLabel = seat
	}
	return out
}
