package domain

import (
	"strings"
	"time"
)

type CabinClass string

const (
	CabinClassFirst    CabinClass = "first"
	CabinClassBusiness CabinClass = "business"
	CabinClassEconomy  CabinClass = "economy"
)

type FlightStatus string

const (
	FlightStatusScheduled FlightStatus = "scheduled"
	FlightStatusDelayed   FlightStatus = "delayed"
	FlightStatusCancelled FlightStatus = "cancelled"
)

type Flight struct {
	ID             int64
	FlightNumber   string
	Airline        string
	DepartureCity  string
	ArrivalCity    string
	DepartureTime  time.Time
	ArrivalTime    time.Time
	Class          CabinClass
	TotalSeats     int
	AvailableSeats int
	PriceCents     int64
	Status         FlightStatus
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Bookable reports whether new bookings may be placed on the flight.
func (f *Flight) Bookable() bool {
	return f.Status != FlightStatusCancelled
}

// Valid reports whether c is one of the three cabin classes.
func (c CabinClass) Valid() bool {
	_, ok := seatRanges[c]
	return ok
}

// FlightFilter narrows a flight listing. Zero fields match every flight.
type FlightFilter struct {
	// Origin and Destination match the city case-insensitively, as a substring.
	Origin      string
	Destination string
	// Date keeps flights departing on that UTC calendar day.
	Date  time.Time
	Class CabinClass
	// Seats is the minimum number of available seats.
	Seats int
}

func (f FlightFilter) Empty() bool {
	return f.Origin == "" && f.Destination == "" && f.Date.IsZero() && f.Class == "" && f.Seats <= 0
}

// DayRange returns the half-open UTC range [start, end) of the filter date.
func (f FlightFilter) DayRange() (time.Time, time.Time) {
	d := f.Date.UTC()
	start := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 0, 1)
}

// Matches applies the filter to a single flight.
func (f FlightFilter) Matches(flight *Flight) bool {
	if f.Origin != "" && !containsFold(flight.DepartureCity, f.Origin) {
		return false
	}
	if f.Destination != "" && !containsFold(flight.ArrivalCity, f.Destination) {
		return false
	}
	if !f.Date.IsZero() {
		start, end := f.DayRange()
		if flight.DepartureTime.Before(start) || !flight.DepartureTime.Before(end) {
			return false
		}
	}
	if f.Class != "" && flight.Class != f.Class {
		return false
	}
	return flight.AvailableSeats >= f.Seats
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
