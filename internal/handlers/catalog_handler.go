package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/flightbooker/backend/internal/apperrors"
	"github.com/flightbooker/backend/internal/database"
	"github.com/flightbooker/backend/internal/models"
)

// CatalogHandler handles airport, airline and aircraft administration
type CatalogHandler struct {
	catalogRepo *database.CatalogRepository
	logger      *logrus.Logger
}

// NewCatalogHandler creates a new CatalogHandler
func NewCatalogHandler(catalogRepo *database.CatalogRepository, logger *logrus.Logger) *CatalogHandler {
	return &CatalogHandler{
		catalogRepo: catalogRepo,
		logger:      logger,
	}
}

// CreateAirport registers an airport
// POST /api/v1/admin/airports
func (h *CatalogHandler) CreateAirport(c *gin.Context) {
	var req models.CreateAirportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperrors.Wrap(apperrors.KindInvalidArgument, err, "invalid request body"))
		return
	}
	if err := req.Validate(); err != nil {
		respondError(c, apperrors.Wrap(apperrors.KindInvalidArgument, err, "invalid airport"))
		return
	}

	existing, err := h.catalogRepo.GetAirportByCode(req.Code)
	if err != nil {
		respondError(c, err)
		return
	}
	if existing != nil {
		respondError(c, apperrors.E(apperrors.KindConflict, "airport %s already exists", req.Code))
		return
	}

	airport, err := h.catalogRepo.CreateAirport(&req)
	if err != nil {
		respondError(c, err)
		return
	}

	h.logger.WithField("code", airport.Code).Info("Airport registered")
	c.JSON(http.StatusCreated, airport)
}

// ListAirports returns all airports
// GET /api/v1/airports
func (h *CatalogHandler) ListAirports(c *gin.Context) {
	airports, err := h.catalogRepo.ListAirports()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"airports": airports})
}

// CreateAirline registers an airline
// POST /api/v1/admin/airlines
func (h *CatalogHandler) CreateAirline(c *gin.Context) {
	var req models.CreateAirlineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperrors.Wrap(apperrors.KindInvalidArgument, err, "invalid request body"))
		return
	}
	if err := req.Validate(); err != nil {
		respondError(c, apperrors.Wrap(apperrors.KindInvalidArgument, err, "invalid airline"))
		return
	}

	existing, err := h.catalogRepo.GetAirlineByCode(req.Code)
	if err != nil {
		respondError(c, err)
		return
	}
	if existing != nil {
		respondError(c, apperrors.E(apperrors.KindConflict, "airline %s already exists", req.Code))
		return
	}

	airline, err := h.catalogRepo.CreateAirline(&req)
	if err != nil {
		respondError(c, err)
		return
	}

	h.logger.WithField("code", airline.Code).Info("Airline registered")
	c.JSON(http.StatusCreated, airline)
}

// ListAirlines returns all airlines
// GET /api/v1/airlines
func (h *CatalogHandler) ListAirlines(c *gin.Context) {
	airlines, err := h.catalogRepo.ListAirlines()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"airlines": airlines})
}

// CreateAircraft registers an aircraft with its cabin layout
// POST /api/v1/admin/aircraft
func (h *CatalogHandler) CreateAircraft(c *gin.Context) {
	var req models.CreateAircraftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperrors.Wrap(apperrors.KindInvalidArgument, err, "invalid request body"))
		return
	}
	if err := req.Validate(); err != nil {
		respondError(c, apperrors.Wrap(apperrors.KindInvalidArgument, err, "invalid aircraft"))
		return
	}

	aircraft, err := h.catalogRepo.CreateAircraft(&req)
	if err != nil {
		respondError(c, err)
		return
	}

	h.logger.WithFields(logrus.Fields{
		"registration": aircraft.Registration,
		"total_seats":  aircraft.TotalSeats,
	}).Info("Aircraft registered")
	c.JSON(http.StatusCreated, aircraft)
}

// ListAircraft returns the fleet
// GET /api/v1/admin/aircraft
func (h *CatalogHandler) ListAircraft(c *gin.Context) {
	fleet, err := h.catalogRepo.ListAircraft()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"aircraft": fleet})
}
