package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/flightbooker/backend/internal/apperrors"
)

// statusForKind maps the error taxonomy onto HTTP status codes. Clients
// branch on the stable "error" field, not on the message text.
var statusForKind = map[apperrors.Kind]int{
	apperrors.KindInvalidArgument:   http.StatusBadRequest,
	apperrors.KindNotFound:          http.StatusNotFound,
	apperrors.KindConflict:          http.StatusConflict,
	apperrors.KindSeatUnavailable:   http.StatusConflict,
	apperrors.KindFlightNotBookable: http.StatusConflict,
	apperrors.KindPriceChanged:      http.StatusConflict,
	apperrors.KindHoldExpired:       http.StatusGone,
	apperrors.KindInvalidState:      http.StatusConflict,
	apperrors.KindPaymentFailed:     http.StatusPaymentRequired,
	apperrors.KindPassengerLimit:    http.StatusBadRequest,
	apperrors.KindForbidden:         http.StatusForbidden,
	apperrors.KindInternal:          http.StatusInternalServerError,
}

// respondError writes the error as JSON with the status its kind maps to
func respondError(c *gin.Context, err error) {
	kind := apperrors.KindOf(err)
	status, ok := statusForKind[kind]
	if !ok {
		status = http.StatusInternalServerError
	}

	message := apperrors.MessageOf(err)
	if status == http.StatusInternalServerError {
		// Internal details stay in the logs
		message = "internal server error"
	}

	c.JSON(status, gin.H{
		"error":   string(kind),
		"message": message,
	})
}
