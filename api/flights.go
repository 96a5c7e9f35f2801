package api

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Domenick1991/skybooking/internal/domain"
	"github.com/Domenick1991/skybooking/internal/service/booking"
	"github.com/Domenick1991/skybooking/internal/service/flights"
	"github.com/gin-gonic/gin"
)

// SeatQuery serves the seat picker.
type SeatQuery interface {
	AvailableSeats(ctx context.Context, flightID int64) (*booking.SeatMap, error)
}

type FlightHandler struct {
	service flights.FlightUseCase
	seats   SeatQuery
}

type flightResponse struct {
	ID             int64     `json:"id"`
	FlightNumber   string    `json:"flight_number"`
	Airline        string    `json:"airline"`
	DepartureCity  string    `json:"departure_city"`
	ArrivalCity    string    `json:"arrival_city"`
	DepartureTime  time.Time `json:"departure_time"`
	ArrivalTime    time.Time `json:"arrival_time"`
	Class          string    `json:"class"`
	TotalSeats     int       `json:"total_seats"`
	AvailableSeats int       `json:"available_seats"`
	PriceCents     int64     `json:"price_cents"`
	Status         string    `json:"status"`
}

type seatMapResponse struct {
	FlightID  int64    `json:"flight_id"`
	Class     string   `json:"class"`
	Occupied  []string `json:"occupied"`
	Available []string `json:"available"`
}

func NewFlightHandler(service flights.FlightUseCase, seats SeatQuery) *FlightHandler {
	return &FlightHandler{service: service, seats: seats}
}

func (h *FlightHandler) Register(router *gin.RouterGroup) {
	router.GET("", h.list)
	router.GET("/:id", h.get)
	router.GET("/:id/seats", h.seatMap)
}

func toFlightResponse(f *domain.Flight) flightResponse {
	return flightResponse{
		ID:             f.ID,
		FlightNumber:   f.FlightNumber,
		Airline:        f.Airline,
		DepartureCity:  f.DepartureCity,
		ArrivalCity:    f.ArrivalCity,
		DepartureTime:  f.DepartureTime,
		ArrivalTime:    f.ArrivalTime,
		Class:          string(f.Class),
		TotalSeats:     f.TotalSeats,
		AvailableSeats: f.AvailableSeats,
		PriceCents:     f.PriceCents,
		Status:         string(f.Status),
	}
}

func flightID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, "invalid flight id")
		return 0, false
	}
	return id, true
}

type flightSearchQuery struct {
	Origin      string `form:"origin"`
	Destination string `form:"destination"`
	Date        string `form:"date"`
	Class       string `form:"class"`
	Seats       int    `form:"seats"`
}

func (q flightSearchQuery) filter() (domain.FlightFilter, error) {
	filter := domain.FlightFilter{
		Origin:      strings.TrimSpace(q.Origin),
		Destination: strings.TrimSpace(q.Destination),
		Class:       domain.CabinClass(strings.TrimSpace(q.Class)),
		Seats:       q.Seats,
	}
	if date := strings.TrimSpace(q.Date); date != "" {
		day, err := time.Parse(time.DateOnly, date)
		if err != nil {
			return filter, domain.InvalidRequest("date must be YYYY-MM-DD")
		}
		filter.Date = day
	}
	return filter, nil
}

func (h *FlightHandler) list(c *gin.Context) {
	var query flightSearchQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		badRequest(c, "invalid search parameters")
		return
	}
	filter, err := query.filter()
	if err != nil {
		writeError(c, err)
		return
	}

	flights, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		writeError(c, err)
		return
	}
	resp := make([]flightResponse, 0, len(flights))
	for i := range flights {
		resp = append(resp, toFlightResponse(&flights[i]))
	}
	c.JSON(http.StatusOK, resp)
}

func (h *FlightHandler) get(c *gin.Context) {
	id, ok := flightID(c)
	if !ok {
		return
	}
	flight, err := h.service.GetByID(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toFlightResponse(flight))
}

func (h *FlightHandler) seatMap(c *gin.Context) {
	id, ok := flightID(c)
	if !ok {
		return
	}
	seats, err := h.seats.AvailableSeats(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, seatMapResponse{
		FlightID:  seats.FlightID,
		Class:     string(seats.Class),
		Occupied:  seats.Occupied,
		Available: seats.Available,
	})
}
