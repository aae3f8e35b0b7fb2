package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/flightbooker/backend/internal/apperrors"
	"github.com/flightbooker/backend/internal/middleware"
	"github.com/flightbooker/backend/internal/models"
	"github.com/flightbooker/backend/internal/services"
	"github.com/flightbooker/backend/internal/utils"
)

// BookingHandler handles the booking lifecycle endpoints
type BookingHandler struct {
	bookingSvc *services.BookingService
	logger     *logrus.Logger
}

// NewBookingHandler creates a new BookingHandler
func NewBookingHandler(bookingSvc *services.BookingService, logger *logrus.Logger) *BookingHandler {
	return &BookingHandler{
		bookingSvc: bookingSvc,
		logger:     logger,
	}
}

// CreateHold reserves seats at the current fare
// POST /api/v1/bookings
func (h *BookingHandler) CreateHold(c *gin.Context) {
	actor, _ := middleware.GetActor(c)

	var req models.CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperrors.Wrap(apperrors.KindInvalidArgument, err, "invalid request body"))
		return
	}
	req.UserID = actor.UserID

	channel := utils.ClassifyUserAgent(c.Request.UserAgent())
	h.logger.WithFields(logrus.Fields{
		"user_id":   actor.UserID,
		"flight_id": req.FlightID,
		"channel":   channel.Channel,
		"platform":  channel.Platform,
	}).Info("Hold requested")

	booking, err := h.bookingSvc.CreateHold(&req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, booking)
}

// Pay submits payment for a held booking
// POST /api/v1/bookings/:reference/pay
func (h *BookingHandler) Pay(c *gin.Context) {
	actor, _ := middleware.GetActor(c)

	var req models.PayBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperrors.Wrap(apperrors.KindInvalidArgument, err, "invalid request body"))
		return
	}
	req.BookingReference = c.Param("reference")

	booking, err := h.bookingSvc.Pay(actor.UserID, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, booking)
}

// Cancel cancels a booking and releases its seats. Airline staff and admins
// may cancel on a customer's behalf.
// POST /api/v1/bookings/:reference/cancel
func (h *BookingHandler) Cancel(c *gin.Context) {
	actor, _ := middleware.GetActor(c)

	booking, err := h.bookingSvc.Cancel(actor, c.Param("reference"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, booking)
}

// GetBooking returns one of the user's bookings
// GET /api/v1/bookings/:reference
func (h *BookingHandler) GetBooking(c *gin.Context) {
	actor, _ := middleware.GetActor(c)

	booking, err := h.bookingSvc.GetBooking(actor.UserID, c.Param("reference"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, booking)
}

// ListBookings returns the user's bookings, newest first
// GET /api/v1/bookings
func (h *BookingHandler) ListBookings(c *gin.Context) {
	actor, _ := middleware.GetActor(c)

	bookings, err := h.bookingSvc.ListBookings(actor.UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bookings": bookings})
}

// PNRStatus returns the public, redacted booking status by record locator
// GET /api/v1/pnr/:pnr
func (h *BookingHandler) PNRStatus(c *gin.Context) {
	pnr, ok := pnrParam(c)
	if !ok {
		return
	}

	view, err := h.bookingSvc.PNRStatus(pnr)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// GetBookingByPNR returns the full booking record by record locator
// GET /api/v1/pnr/:pnr/booking
func (h *BookingHandler) GetBookingByPNR(c *gin.Context) {
	actor, _ := middleware.GetActor(c)
	pnr, ok := pnrParam(c)
	if !ok {
		return
	}

	booking, err := h.bookingSvc.BookingByPNR(actor, pnr)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, booking)
}

// Receipt returns the rendered receipt document by record locator
// GET /api/v1/pnr/:pnr/receipt
func (h *BookingHandler) Receipt(c *gin.Context) {
	actor, _ := middleware.GetActor(c)
	pnr, ok := pnrParam(c)
	if !ok {
		return
	}

	subject, body, err := h.bookingSvc.IssueReceipt(actor, pnr)
	if err != nil {
		respondError(c, err)
		return
	}
	c.Header("X-Receipt-Subject", subject)
	c.Data(http.StatusOK, "text/plain; charset=utf-8", []byte(body))
}

func pnrParam(c *gin.Context) (string, bool) {
	pnr := strings.TrimSpace(c.Param("pnr"))
	if len(pnr) != 6 {
		respondError(c, apperrors.E(apperrors.KindInvalidArgument, "a PNR is exactly 6 characters"))
		return "", false
	}
	return pnr, true
}
