package api

import (
	"errors"
	"net/http"

	"github.com/Domenick1991/skybooking/internal/domain"
	"github.com/gin-gonic/gin"
)

type errorResponse struct {
	Error string   `json:"error"`
	Code  string   `json:"code"`
	Seats []string `json:"seats,omitempty"`
}

// statusFor maps a core error to an HTTP status and a machine-readable code.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrInvalidRequest):
		return http.StatusBadRequest, "invalid_request"
	case errors.Is(err, domain.ErrFlightNotFound), errors.Is(err, domain.ErrBookingNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, domain.ErrInsufficientCapacity):
		return http.StatusConflict, "insufficient_capacity"
	case errors.Is(err, domain.ErrSeatsUnavailable):
		return http.StatusConflict, "seats_unavailable"
	case errors.Is(err, domain.ErrAlreadyCanceled):
		return http.StatusConflict, "already_canceled"
	case errors.Is(err, domain.ErrInvalidTransition):
		return http.StatusConflict, "invalid_transition"
	case errors.Is(err, domain.ErrPersistence):
		return http.StatusServiceUnavailable, "persistence_failure"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

func writeError(c *gin.Context, err error) {
	status, code := statusFor(err)
	resp := errorResponse{Error: err.Error(), Code: code}

	var unavailable *domain.SeatsUnavailableError
	if errors.As(err, &unavailable) {
		resp.Seats = unavailable.Seats
	}
	if status >= http.StatusInternalServerError {
		// infrastructure detail stays in the log
		_ = c.Error(err)
		if status == http.StatusInternalServerError {
			resp.Error = "internal server error"
		} else {
			resp.Error = "temporarily unavailable, retry the request"
		}
	}
	c.AbortWithStatusJSON(status, resp)
}

func badRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{Error: msg, Code: "invalid_request"})
}
