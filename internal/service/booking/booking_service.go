package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Domenick1991/skybooking/internal/clock"
	"github.com/Domenick1991/skybooking/internal/domain"
	"github.com/Domenick1991/skybooking/internal/kafka"
	"github.com/Domenick1991/skybooking/internal/ledger"
	"github.com/Domenick1991/skybooking/internal/repository"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type BookingUseCase interface {
	CreateBooking(ctx context.Context, input CreateBookingInput) (*domain.Booking, error)
	UpdateStatus(ctx context.Context, bookingID string, status domain.BookingStatus, userID string) (*domain.Booking, error)
	Cancel(ctx context.Context, bookingID, userID string) (*domain.Booking, error)
	GetBooking(ctx context.Context, bookingID, userID string) (*domain.Booking, error)
	ListUserBookings(ctx context.Context, userID string) ([]domain.Booking, error)
	OccupiedSeats(ctx context.Context, flightID int64) ([]string, error)
	AvailableSeats(ctx context.Context, flightID int64) (*SeatMap, error)
	CheckoutSummary(ctx context.Context, bookingID, userID string) (*domain.CheckoutSummary, error)
}

// FlightCache is invalidated whenever a flight's seat counter moves.
type FlightCache interface {
	InvalidateFlight(ctx context.Context, flightID int64) error
}

type Producer interface {
	Publish(ctx context.Context, topic, key string, value interface{}) error
}

type BookingService struct {
	bookings           repository.BookingRepository
	flights            repository.FlightRepository
	ledger             ledger.Ledger
	cache              FlightCache
	producer           Producer
	bookingTopic       string
	notificationsTopic string
	clock              clock.Clock
	newID              func() string
	log                logrus.FieldLogger
}

type CreateBookingInput struct {
	FlightID   int64
	UserID     string
	Passengers []domain.Passenger
}

// SeatMap is the seat picker view of a flight.
type SeatMap struct {
	FlightID  int64
	Class     domain.CabinClass
	Occupied  []string
	Available []string
}

type BookingServiceOption func(*BookingService)

func WithCache(cache FlightCache) BookingServiceOption {
	return func(s *BookingService) {
		s.cache = cache
	}
}

func WithProducer(producer Producer, bookingTopic string) BookingServiceOption {
	return func(s *BookingService) {
		s.producer = producer
		s.bookingTopic = bookingTopic
	}
}

func WithNotificationsTopic(topic string) BookingServiceOption {
	return func(s *BookingService) {
		s.notificationsTopic = topic
	}
}

func WithClock(c clock.Clock) BookingServiceOption {
	return func(s *BookingService) {
		s.clock = c
	}
}

func WithLogger(log logrus.FieldLogger) BookingServiceOption {
	return func(s *BookingService) {
		s.log = log
	}
}

// WithIDGenerator replaces uuid.NewString for booking ids.
func WithIDGenerator(newID func() string) BookingServiceOption {
	return func(s *BookingService) {
		s.newID = newID
	}
}

func NewBookingService(
	bookings repository.BookingRepository,
	flights repository.FlightRepository,
	seats ledger.Ledger,
	opts ...BookingServiceOption,
) *BookingService {
	service := &BookingService{
		bookings: bookings,
		flights:  flights,
		ledger:   seats,
		clock:    clock.NewSystem(),
		newID:    uuid.NewString,
		log:      logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

func validateInput(input CreateBookingInput) error {
	if strings.TrimSpace(input.UserID) == "" {
		return domain.InvalidRequest("user id is required")
	}
	if len(input.Passengers) == 0 {
		return domain.InvalidRequest("at least one passenger is required")
	}

	seen := make(map[string]struct{}, len(input.Passengers))
	for i, p := range input.Passengers {
		if p.SeatLabel == "" {
			return domain.InvalidRequest(fmt.Sprintf("passenger %d: seat label is required", i+1))
		}
		if strings.TrimSpace(p.FirstName) == "" || strings.TrimSpace(p.LastName) == "" {
			return domain.InvalidRequest(fmt.Sprintf("passenger %d: name is required", i+1))
		}
		if strings.TrimSpace(p.PassportNumber) == "" {
			return domain.InvalidRequest(fmt.Sprintf("passenger %d: passport number is required", i+1))
		}
		if _, dup := seen[p.SeatLabel]; dup {
			return domain.InvalidRequest(fmt.Sprintf("seat %s requested twice", p.SeatLabel))
		}
		seen[p.SeatLabel] = struct{}{}
	}
	return nil
}

// CreateBooking reserves the requested seats and stores a pending booking.
// Once the ledger has accepted the reservation, any later failure undoes the
// capacity change and the reservation before the error is returned.
func (s *BookingService) CreateBooking(ctx context.Context, input CreateBookingInput) (*domain.Booking, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}

	flight, err := s.flights.GetByID(ctx, input.FlightID)
	if err != nil {
		if errors.Is(err, domain.ErrFlightNotFound) {
			return nil, err
		}
		return nil, &domain.PersistenceError{Op: "load flight", Err: err}
	}
	if !flight.Bookable() {
		return nil, domain.InvalidRequest(fmt.Sprintf("flight %s is %s", flight.FlightNumber, flight.Status))
	}
	for _, p := range input.Passengers {
		if !domain.ValidSeat(flight.Class, p.SeatLabel) {
			return nil, domain.InvalidRequest(fmt.Sprintf("seat %s does not exist in %s class", p.SeatLabel, flight.Class))
		}
	}

	n := len(input.Passengers)
	if flight.AvailableSeats < n {
		return nil, fmt.Errorf("%w: flight %s has %d seats left, %d requested", domain.ErrInsufficientCapacity, flight.FlightNumber, flight.AvailableSeats, n)
	}

	now := s.clock.Now()
	booking := &domain.Booking{
		ID:              s.newID(),
		UserID:          input.UserID,
		FlightID:        flight.ID,
		Passengers:      append([]domain.Passenger(nil), input.Passengers...),
		TotalPriceCents: flight.PriceCents * int64(n),
		Status:          domain.BookingStatusPending,
		PaymentStatus:   domain.PaymentStatusUnpaid,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	log := s.log.WithFields(logrus.Fields{"booking_id": booking.ID, "flight_id": flight.ID})

	if err := s.ledger.TryReserve(ctx, flight.ID, booking.SeatLabels(), booking.ID); err != nil {
		var conflict *ledger.ConflictError
		if errors.As(err, &conflict) {
			return nil, &domain.SeatsUnavailableError{FlightID: flight.ID, Seats: conflict.Seats}
		}
		return nil, &domain.PersistenceError{Op: "reserve seats", Err: err}
	}

	if err := s.flights.AdjustCapacity(ctx, flight.ID, -n); err != nil {
		s.releaseHolds(ctx, log, flight.ID, booking.ID)
		if errors.Is(err, domain.ErrInsufficientCapacity) {
			return nil, fmt.Errorf("flight %s: %w", flight.FlightNumber, err)
		}
		return nil, &domain.PersistenceError{Op: "adjust capacity", Err: err}
	}

	if err := s.bookings.Create(ctx, booking); err != nil {
		if cerr := s.flights.AdjustCapacity(ctx, flight.ID, n); cerr != nil {
			log.WithError(cerr).Error("failed to restore capacity after booking insert failure")
		}
		s.releaseHolds(ctx, log, flight.ID, booking.ID)
		return nil, &domain.PersistenceError{Op: "store booking", Err: err}
	}

	s.invalidate(ctx, log, flight.ID)
	log.WithField("seats", booking.SeatLabels()).Info("booking created")
	s.publish(ctx, kafka.EventBookingCreated, booking)
	return booking, nil
}

// UpdateStatus moves a booking through pending -> confirmed -> canceled.
// The booking row is locked for the whole transition, and canceling releases
// the seats before the new status is stored.
func (s *BookingService) UpdateStatus(ctx context.Context, bookingID string, status domain.BookingStatus, userID string) (*domain.Booking, error) {
	var released *domain.Booking
	apply := func(current *domain.Booking) (domain.BookingStatus, domain.PaymentStatus, error) {
		if current.UserID != userID {
			return "", "", domain.ErrForbidden
		}
		if !status.Valid() {
			return "", "", fmt.Errorf("%w: unknown status %q", domain.ErrInvalidTransition, status)
		}
		if current.Status == domain.BookingStatusCanceled {
			return "", "", domain.ErrAlreadyCanceled
		}

		switch status {
		case domain.BookingStatusPending:
			if current.Status != domain.BookingStatusPending {
				return "", "", fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, current.Status, status)
			}
			return current.Status, current.PaymentStatus, nil

		case domain.BookingStatusConfirmed:
			if current.Status != domain.BookingStatusPending {
				return "", "", fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, current.Status, status)
			}
			return domain.BookingStatusConfirmed, domain.PaymentStatusPaid, nil

		default:
			// The row stays locked until the new status is stored, so no other
			// transition can see the booking active with its seats gone.
			if err := s.ledger.Release(ctx, current.FlightID, current.ID); err != nil {
				return "", "", &domain.PersistenceError{Op: "release seats", Err: err}
			}
			released = current
			return domain.BookingStatusCanceled, current.PaymentStatus, nil
		}
	}

	updated, err := s.bookings.Transition(ctx, bookingID, apply)
	if err != nil {
		if released != nil {
			// The cancel was rolled back, so the booking is still active.
			if rerr := s.ledger.TryReserve(ctx, released.FlightID, released.SeatLabels(), released.ID); rerr != nil {
				s.log.WithError(rerr).WithFields(logrus.Fields{"booking_id": released.ID, "flight_id": released.FlightID}).
					Error("failed to restore holds after cancel failure")
			}
			return nil, &domain.PersistenceError{Op: "cancel booking", Err: err}
		}
		return nil, transitionError(status, err)
	}

	log := s.log.WithFields(logrus.Fields{"booking_id": updated.ID, "flight_id": updated.FlightID})
	switch {
	case status == domain.BookingStatusConfirmed:
		log.Info("booking confirmed")
		s.publish(ctx, kafka.EventBookingConfirmed, updated)
	case released != nil:
		log.Info("booking canceled")
		s.publish(ctx, kafka.EventBookingCanceled, updated)
	}
	return updated, nil
}

// transitionError passes domain errors through and wraps store failures.
func transitionError(status domain.BookingStatus, err error) error {
	var perr *domain.PersistenceError
	switch {
	case errors.Is(err, domain.ErrBookingNotFound),
		errors.Is(err, domain.ErrForbidden),
		errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, domain.ErrAlreadyCanceled),
		errors.As(err, &perr):
		return err
	case status == domain.BookingStatusConfirmed:
		return &domain.PersistenceError{Op: "confirm booking", Err: err}
	default:
		return &domain.PersistenceError{Op: "update booking status", Err: err}
	}
}

// Cancel cancels the booking and gives its seats back to the flight counter.
// A cancel that loses to another one gets ErrAlreadyCanceled, so the counter
// moves once per booking.
func (s *BookingService) Cancel(ctx context.Context, bookingID, userID string) (*domain.Booking, error) {
	updated, err := s.UpdateStatus(ctx, bookingID, domain.BookingStatusCanceled, userID)
	if err != nil {
		return nil, err
	}

	log := s.log.WithFields(logrus.Fields{"booking_id": updated.ID, "flight_id": updated.FlightID})
	if err := s.flights.AdjustCapacity(ctx, updated.FlightID, len(updated.Passengers)); err != nil {
		log.WithError(err).Warn("failed to restore flight capacity")
	}
	s.invalidate(ctx, log, updated.FlightID)
	return updated, nil
}

func (s *BookingService) GetBooking(ctx context.Context, bookingID, userID string) (*domain.Booking, error) {
	return s.ownedBooking(ctx, bookingID, userID)
}

func (s *BookingService) ListUserBookings(ctx context.Context, userID string) ([]domain.Booking, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, domain.InvalidRequest("user id is required")
	}
	bookings, err := s.bookings.ListByUser(ctx, userID)
	if err != nil {
		return nil, &domain.PersistenceError{Op: "list bookings", Err: err}
	}
	return bookings, nil
}

func (s *BookingService) OccupiedSeats(ctx context.Context, flightID int64) ([]string, error) {
	if _, err := s.flight(ctx, flightID); err != nil {
		return nil, err
	}
	occupied, err := s.ledger.Occupied(ctx, flightID)
	if err != nil {
		return nil, &domain.PersistenceError{Op: "list occupied seats", Err: err}
	}
	return occupied, nil
}

func (s *BookingService) AvailableSeats(ctx context.Context, flightID int64) (*SeatMap, error) {
	flight, err := s.flight(ctx, flightID)
	if err != nil {
		return nil, err
	}
	occupied, err := s.ledger.Occupied(ctx, flightID)
	if err != nil {
		return nil, &domain.PersistenceError{Op: "list occupied seats", Err: err}
	}
	return &SeatMap{
		FlightID:  flight.ID,
		Class:     flight.Class,
		Occupied:  occupied,
		Available: domain.AvailableSeats(flight.Class, occupied),
	}, nil
}

// CheckoutSummary returns what a payment provider needs to charge for the
// booking.
func (s *BookingService) CheckoutSummary(ctx context.Context, bookingID, userID string) (*domain.CheckoutSummary, error) {
	b, err := s.ownedBooking(ctx, bookingID, userID)
	if err != nil {
		return nil, err
	}
	if b.Status == domain.BookingStatusCanceled {
		return nil, fmt.Errorf("%w: booking %s is canceled", domain.ErrInvalidTransition, b.ID)
	}

	description := fmt.Sprintf("Flight booking %s, %d passenger(s)", b.ID, len(b.Passengers))
	if flight, err := s.flights.GetByID(ctx, b.FlightID); err == nil {
		description = fmt.Sprintf("Flight %s %s -> %s, %d passenger(s)", flight.FlightNumber, flight.DepartureCity, flight.ArrivalCity, len(b.Passengers))
	}

	return &domain.CheckoutSummary{
		BookingID:      b.ID,
		AmountCents:    b.TotalPriceCents,
		PassengerCount: len(b.Passengers),
		Description:    description,
	}, nil
}

func (s *BookingService) ownedBooking(ctx context.Context, bookingID, userID string) (*domain.Booking, error) {
	b, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, domain.ErrBookingNotFound) {
			return nil, err
		}
		return nil, &domain.PersistenceError{Op: "load booking", Err: err}
	}
	if b.UserID != userID {
		return nil, domain.ErrForbidden
	}
	return b, nil
}

func (s *BookingService) flight(ctx context.Context, flightID int64) (*domain.Flight, error) {
	flight, err := s.flights.GetByID(ctx, flightID)
	if err != nil {
		if errors.Is(err, domain.ErrFlightNotFound) {
			return nil, err
		}
		return nil, &domain.PersistenceError{Op: "load flight", Err: err}
	}
	return flight, nil
}

func (s *BookingService) releaseHolds(ctx context.Context, log logrus.FieldLogger, flightID int64, bookingID string) {
	if err := s.ledger.Release(ctx, flightID, bookingID); err != nil {
		log.WithError(err).Error("failed to release holds, reconciler will retry")
	}
}

func (s *BookingService) invalidate(ctx context.Context, log logrus.FieldLogger, flightID int64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateFlight(ctx, flightID); err != nil {
		log.WithError(err).Warn("failed to invalidate flight cache")
	}
}

func (s *BookingService) publish(ctx context.Context, eventType string, b *domain.Booking) {
	if s.producer == nil || s.bookingTopic == "" {
		return
	}
	event := kafka.BookingEvent{
		Type:            eventType,
		BookingID:       b.ID,
		UserID:          b.UserID,
		FlightID:        b.FlightID,
		Seats:           b.SeatLabels(),
		Status:          string(b.Status),
		PaymentStatus:   string(b.PaymentStatus),
		TotalPriceCents: b.TotalPriceCents,
		OccurredAt:      s.clock.Now(),
	}

	log := s.log.WithFields(logrus.Fields{"booking_id": b.ID, "event": eventType})
	if err := s.producer.Publish(ctx, s.bookingTopic, b.ID, event); err != nil {
		log.WithError(err).Warn("failed to publish booking event")
		return
	}
	if s.notificationsTopic != "" {
		if err := s.producer.Publish(ctx, s.notificationsTopic, b.ID, event); err != nil {
			log.WithError(err).Warn("failed to publish notification event")
		}
	}
}

var _ BookingUseCase = (*BookingService)(nil)
