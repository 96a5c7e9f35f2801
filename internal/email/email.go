package email

import (
	"context"
	"fmt"
	"strings"

	"github.com/Domenick1991/skybooking/internal/kafka"
	"github.com/sirupsen/logrus"
)

// Sender turns booking events into customer notifications. Delivery is a log
// line; a real mail provider slots in behind the same method.
type Sender struct {
	log logrus.FieldLogger
}

func NewSender(log logrus.FieldLogger) *Sender {
	return &Sender{log: log}
}

func (s *Sender) Send(ctx context.Context, event kafka.BookingEvent) error {
	subject, ok := Subject(event)
	if !ok {
		return nil
	}
	s.log.WithFields(logrus.Fields{
		"user_id":    event.UserID,
		"booking_id": event.BookingID,
		"flight_id":  event.FlightID,
		"subject":    subject,
	}).Info("notification sent")
	return nil
}

// Subject renders the notification subject; ok is false for events that do
// not notify the customer.
func Subject(event kafka.BookingEvent) (string, bool) {
	seats := strings.Join(event.Seats, ", ")
	switch event.Type {
	case kafka.EventBookingCreated:
		return fmt.Sprintf("Booking %s received: seats %s on flight %d, awaiting payment", event.BookingID, seats, event.FlightID), true
	case kafka.EventBookingConfirmed:
		return fmt.Sprintf("Booking %s confirmed: seats %s on flight %d", event.BookingID, seats, event.FlightID), true
	case kafka.EventBookingCanceled:
		return fmt.Sprintf("Booking %s canceled: seats %s on flight %d released", event.BookingID, seats, event.FlightID), true
	default:
		return "", false
	}
}
