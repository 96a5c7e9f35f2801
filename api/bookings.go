package api

import (
	"net/http"
	"time"

	"github.com/Domenick1991/skybooking/internal/domain"
	"github.com/Domenick1991/skybooking/internal/service/booking"
	"github.com/gin-gonic/gin"
)

type BookingHandler struct {
	service booking.BookingUseCase
}

type passengerRequest struct {
	FirstName      string `json:"first_name"`
	LastName       string `json:"last_name"`
	PassportNumber string `json:"passport_number"`
	SeatLabel      string `json:"seat"`
}

type createBookingRequest struct {
	FlightID   int64              `json:"flight_id" binding:"required"`
	Passengers []passengerRequest `json:"passengers"`
}

type updateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

type passengerResponse struct {
	FirstName      string `json:"first_name"`
	LastName       string `json:"last_name"`
	PassportNumber string `json:"passport_number"`
	SeatLabel      string `json:"seat"`
}

type bookingResponse struct {
	ID              string              `json:"id"`
	UserID          string              `json:"user_id"`
	FlightID        int64               `json:"flight_id"`
	Passengers      []passengerResponse `json:"passengers"`
	TotalPriceCents int64               `json:"total_price_cents"`
	Status          string              `json:"status"`
	PaymentStatus   string              `json:"payment_status"`
	CreatedAt       time.Time           `json:"created_at"`
	UpdatedAt       time.Time           `json:"updated_at"`
}

type checkoutResponse struct {
	BookingID      string `json:"booking_id"`
	AmountCents    int64  `json:"amount_cents"`
	PassengerCount int    `json:"passenger_count"`
	Description    string `json:"description"`
}

func NewBookingHandler(service booking.BookingUseCase) *BookingHandler {
	return &BookingHandler{service: service}
}

// Register mounts the booking routes. Every route requires a caller id.
func (h *BookingHandler) Register(router *gin.RouterGroup) {
	router.Use(RequireUser())
	router.POST("", h.create)
	router.GET("/mine", h.mine)
	router.GET("/:id", h.get)
	router.PATCH("/:id/status", h.updateStatus)
	router.POST("/:id/cancel", h.cancel)
	router.DELETE("/:id", h.cancel)
	router.GET("/:id/checkout", h.checkout)
}

func toBookingResponse(b *domain.Booking) bookingResponse {
	passengers := make([]passengerResponse, 0, len(b.Passengers))
	for _, p := range b.Passengers {
		passengers = append(passengers, passengerResponse(p))
	}
	return bookingResponse{
		ID:              b.ID,
		UserID:          b.UserID,
		FlightID:        b.FlightID,
		Passengers:      passengers,
		TotalPriceCents: b.TotalPriceCents,
		Status:          string(b.Status),
		PaymentStatus:   string(b.PaymentStatus),
		CreatedAt:       b.CreatedAt,
		UpdatedAt:       b.UpdatedAt,
	}
}

func (h *BookingHandler) create(c *gin.Context) {
	var req createBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	passengers := make([]domain.Passenger, 0, len(req.Passengers))
	for _, p := range req.Passengers {
		passengers = append(passengers, domain.Passenger(p))
	}

	created, err := h.service.CreateBooking(c.Request.Context(), booking.CreateBookingInput{
		FlightID:   req.FlightID,
		UserID:     userID(c),
		Passengers: passengers,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toBookingResponse(created))
}

func (h *BookingHandler) mine(c *gin.Context) {
	bookings, err := h.service.ListUserBookings(c.Request.Context(), userID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	resp := make([]bookingResponse, 0, len(bookings))
	for i := range bookings {
		resp = append(resp, toBookingResponse(&bookings[i]))
	}
	c.JSON(http.StatusOK, resp)
}

func (h *BookingHandler) get(c *gin.Context) {
	b, err := h.service.GetBooking(c.Request.Context(), c.Param("id"), userID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toBookingResponse(b))
}

// updateStatus is also the payment-completion callback: a provider confirms a
// booking by setting its status to "confirmed".
func (h *BookingHandler) updateStatus(c *gin.Context) {
	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	ctx := c.Request.Context()
	status := domain.BookingStatus(req.Status)

	var (
		updated *domain.Booking
		err     error
	)
	if status == domain.BookingStatusCanceled {
		updated, err = h.service.Cancel(ctx, c.Param("id"), userID(c))
	} else {
		updated, err = h.service.UpdateStatus(ctx, c.Param("id"), status, userID(c))
	}
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toBookingResponse(updated))
}

func (h *BookingHandler) cancel(c *gin.Context) {
	updated, err := h.service.Cancel(c.Request.Context(), c.Param("id"), userID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toBookingResponse(updated))
}

func (h *BookingHandler) checkout(c *gin.Context) {
	summary, err := h.service.CheckoutSummary(c.Request.Context(), c.Param("id"), userID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, checkoutResponse{
		BookingID:      summary.BookingID,
		AmountCents:    summary.AmountCents,
		PassengerCount: summary.PassengerCount,
		Description:    summary.Description,
	})
}
