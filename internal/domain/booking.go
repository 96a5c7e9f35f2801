package domain

import "time"

type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusCanceled  BookingStatus = "canceled"
)

// Valid reports whether s is one of the recognised booking statuses.
func (s BookingStatus) Valid() bool {
	switch s {
	case BookingStatusPending, BookingStatusConfirmed, BookingStatusCanceled:
		return true
	}
	return false
}

// Active bookings hold their seats.
func (s BookingStatus) Active() bool {
	return s == BookingStatusPending || s == BookingStatusConfirmed
}

type PaymentStatus string

const (
	PaymentStatusUnpaid PaymentStatus = "unpaid"
	PaymentStatusPaid   PaymentStatus = "paid"
)

type Passenger struct {
	FirstName      string
	LastName       string
	PassportNumber string
	SeatLabel      string
}

type Booking struct {
	ID              string
	UserID          string
	FlightID        int64
	Passengers      []Passenger
	TotalPriceCents int64
	Status          BookingStatus
	PaymentStatus   PaymentStatus
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// SeatLabels returns the seat labels in passenger order.
func (b *Booking) SeatLabels() []string {
	labels := make([]string, 0, len(b.Passengers))
	for _, p := range b.Passengers {
		labels = append(labels, p.SeatLabel)
	}
	return labels
}

// CheckoutSummary is what a payment provider needs to build a checkout session.
type CheckoutSummary struct {
	BookingID      string
	AmountCents    int64
	PassengerCount int
	Description    string
}
