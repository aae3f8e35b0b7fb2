package handlers

import (
	"database/sql"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/flightbooker/backend/internal/apperrors"
	"github.com/flightbooker/backend/internal/database"
	"github.com/flightbooker/backend/internal/middleware"
	"github.com/flightbooker/backend/internal/models"
	"github.com/flightbooker/backend/internal/services"
)

// FlightHandler handles flight search, detail and operational endpoints
type FlightHandler struct {
	searchSvc   *services.SearchService
	flightRepo  *database.FlightRepository
	catalogRepo *database.CatalogRepository
	logger      *logrus.Logger
}

// NewFlightHandler creates a new FlightHandler
func NewFlightHandler(
	searchSvc *services.SearchService,
	flightRepo *database.FlightRepository,
	catalogRepo *database.CatalogRepository,
	logger *logrus.Logger,
) *FlightHandler {
	return &FlightHandler{
		searchSvc:   searchSvc,
		flightRepo:  flightRepo,
		catalogRepo: catalogRepo,
		logger:      logger,
	}
}

// Search returns priced flights on a route
// GET /api/v1/flights?origin=DEL&destination=BOM&date=2026-03-10&passengers=2&sort=price
func (h *FlightHandler) Search(c *gin.Context) {
	var req models.SearchFlightsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		respondError(c, apperrors.Wrap(apperrors.KindInvalidArgument, err, "invalid search query"))
		return
	}

	result, err := h.searchSvc.Search(&req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// GetFlight returns one flight with live fares
// GET /api/v1/flights/:id
func (h *FlightHandler) GetFlight(c *gin.Context) {
	summary, err := h.searchSvc.GetFlight(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// GetSeatMap returns the seat map for seat selection
// GET /api/v1/flights/:id/seats
func (h *FlightHandler) GetSeatMap(c *gin.Context) {
	seats, err := h.searchSvc.GetSeatMap(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"seats": seats})
}

// GetFareHistory returns the recorded fare time series
// GET /api/v1/flights/:id/fare-history?tier=Economy&limit=288
func (h *FlightHandler) GetFareHistory(c *gin.Context) {
	var tier *models.CabinClass
	if raw := c.Query("tier"); raw != "" {
		t := models.CabinClass(raw)
		tier = &t
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "288"))

	samples, err := h.searchSvc.FareHistory(c.Param("id"), tier, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"samples": samples})
}

// CreateFlight schedules a flight and materializes its seat inventory
// POST /api/v1/admin/flights
func (h *FlightHandler) CreateFlight(c *gin.Context) {
	var req models.CreateFlightRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperrors.Wrap(apperrors.KindInvalidArgument, err, "invalid request body"))
		return
	}
	if err := req.Validate(); err != nil {
		respondError(c, apperrors.Wrap(apperrors.KindInvalidArgument, err, "invalid flight"))
		return
	}

	if err := h.checkCatalogRefs(&req); err != nil {
		respondError(c, err)
		return
	}

	aircraft, err := h.catalogRepo.GetAircraftByID(req.AircraftID)
	if err != nil {
		respondError(c, err)
		return
	}
	if aircraft == nil {
		respondError(c, apperrors.E(apperrors.KindNotFound, "aircraft %s not found", req.AircraftID))
		return
	}

	flight, err := h.flightRepo.CreateFlight(&req, aircraft)
	if err != nil {
		respondError(c, err)
		return
	}

	h.logger.WithFields(logrus.Fields{
		"flight_id":     flight.ID,
		"flight_number": flight.FlightNumber,
		"route":         flight.OriginCode + "-" + flight.DestinationCode,
	}).Info("Flight scheduled")
	c.JSON(http.StatusCreated, flight)
}

// UpdateStatus applies a staff status/delay update
// PATCH /api/v1/staff/flights/:id/status
func (h *FlightHandler) UpdateStatus(c *gin.Context) {
	actor, _ := middleware.GetActor(c)
	if !actor.CanUpdateFlightStatus() {
		respondError(c, apperrors.E(apperrors.KindForbidden, "flight status updates require airline staff access"))
		return
	}

	var req models.UpdateFlightStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperrors.Wrap(apperrors.KindInvalidArgument, err, "invalid request body"))
		return
	}
	if err := req.Validate(); err != nil {
		respondError(c, apperrors.Wrap(apperrors.KindInvalidArgument, err, "invalid status update"))
		return
	}

	flightID := c.Param("id")
	if err := h.flightRepo.UpdateFlightStatus(flightID, &req); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			respondError(c, apperrors.E(apperrors.KindNotFound, "flight %s not found", flightID))
			return
		}
		respondError(c, err)
		return
	}

	h.logger.WithFields(logrus.Fields{
		"flight_id": flightID,
		"status":    req.Status,
		"actor_id":  actor.UserID,
	}).Info("Flight status updated")
	c.JSON(http.StatusOK, gin.H{"flight_id": flightID, "status": req.Status})
}

// AssignGate records the departure gate
// PATCH /api/v1/staff/flights/:id/gate
func (h *FlightHandler) AssignGate(c *gin.Context) {
	actor, _ := middleware.GetActor(c)
	if !actor.CanAssignGate() {
		respondError(c, apperrors.E(apperrors.KindForbidden, "gate assignment requires airport authority access"))
		return
	}

	var req models.AssignGateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperrors.Wrap(apperrors.KindInvalidArgument, err, "invalid request body"))
		return
	}

	flightID := c.Param("id")
	if err := h.flightRepo.AssignGate(flightID, req.Gate); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			respondError(c, apperrors.E(apperrors.KindNotFound, "flight %s not found", flightID))
			return
		}
		respondError(c, err)
		return
	}

	h.logger.WithFields(logrus.Fields{
		"flight_id": flightID,
		"gate":      req.Gate,
		"actor_id":  actor.UserID,
	}).Info("Gate assigned")
	c.JSON(http.StatusOK, gin.H{"flight_id": flightID, "gate": req.Gate})
}

func (h *FlightHandler) checkCatalogRefs(req *models.CreateFlightRequest) error {
	airline, err := h.catalogRepo.GetAirlineByCode(req.AirlineCode)
	if err != nil {
		return err
	}
	if airline == nil {
		return apperrors.E(apperrors.KindNotFound, "airline %s not found", req.AirlineCode)
	}

	for _, code := range []string{req.OriginCode, req.DestinationCode} {
		airport, err := h.catalogRepo.GetAirportByCode(code)
		if err != nil {
			return err
		}
		if airport == nil {
			return apperrors.E(apperrors.KindNotFound, "airport %s not found", code)
		}
	}
	return nil
}
