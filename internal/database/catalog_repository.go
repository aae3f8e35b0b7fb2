package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/flightbooker/backend/internal/models"
)

// CatalogRepository handles airport, airline and aircraft database operations
type CatalogRepository struct {
	db DB
}

// NewCatalogRepository creates a new catalog repository
func NewCatalogRepository(db DB) *CatalogRepository {
	return &CatalogRepository{
		db: db,
	}
}

// CreateAirport registers an airport
func (r *CatalogRepository) CreateAirport(req *models.CreateAirportRequest) (*models.Airport, error) {
	airport := &models.Airport{
		Code:      req.Code,
		Name:      req.Name,
		City:      req.City,
		Country:   req.Country,
		CreatedAt: time.Now(),
	}

	query := `
		INSERT INTO airports (code, name, city, country, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.db.Exec(query, airport.Code, airport.Name, airport.City, airport.Country, airport.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create airport: %w", err)
	}

	return airport, nil
}

// GetAirportByCode returns the airport with the given IATA code, or nil
func (r *CatalogRepository) GetAirportByCode(code string) (*models.Airport, error) {
	var airport models.Airport
	query := `SELECT code, name, city, country, created_at FROM airports WHERE code = $1`

	err := r.db.Get(&airport, query, code)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get airport: %w", err)
	}

	return &airport, nil
}

// ListAirports returns all registered airports
func (r *CatalogRepository) ListAirports() ([]models.Airport, error) {
	var airports []models.Airport
	query := `SELECT code, name, city, country, created_at FROM airports ORDER BY code`

	if err := r.db.Select(&airports, query); err != nil {
		return nil, fmt.Errorf("failed to list airports: %w", err)
	}

	return airports, nil
}

// CreateAirline registers an airline
func (r *CatalogRepository) CreateAirline(req *models.CreateAirlineRequest) (*models.Airline, error) {
	airline := &models.Airline{
		Code:      req.Code,
		Name:      req.Name,
		CreatedAt: time.Now(),
	}

	query := `INSERT INTO airlines (code, name, created_at) VALUES ($1, $2, $3)`

	_, err := r.db.Exec(query, airline.Code, airline.Name, airline.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create airline: %w", err)
	}

	return airline, nil
}

// GetAirlineByCode returns the airline with the given IATA code, or nil
func (r *CatalogRepository) GetAirlineByCode(code string) (*models.Airline, error) {
	var airline models.Airline
	query := `SELECT code, name, created_at FROM airlines WHERE code = $1`

	err := r.db.Get(&airline, query, code)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get airline: %w", err)
	}

	return &airline, nil
}

// ListAirlines returns all registered airlines
func (r *CatalogRepository) ListAirlines() ([]models.Airline, error) {
	var airlines []models.Airline
	query := `SELECT code, name, created_at FROM airlines ORDER BY code`

	if err := r.db.Select(&airlines, query); err != nil {
		return nil, fmt.Errorf("failed to list airlines: %w", err)
	}

	return airlines, nil
}

// CreateAircraft registers an aircraft with its cabin layout
func (r *CatalogRepository) CreateAircraft(req *models.CreateAircraftRequest) (*models.Aircraft, error) {
	aircraft := &models.Aircraft{
		ID:                uuid.New().String(),
		Registration:      req.Registration,
		Model:             req.Model,
		TotalSeats:        req.ClassDistribution.TotalSeats(),
		ClassDistribution: req.ClassDistribution,
		CreatedAt:         time.Now(),
	}

	query := `
		INSERT INTO aircraft (id, registration, model, total_seats, class_distribution, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.db.Exec(
		query,
		aircraft.ID,
		aircraft.Registration,
		aircraft.Model,
		aircraft.TotalSeats,
		aircraft.ClassDistribution,
		aircraft.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create aircraft: %w", err)
	}

	return aircraft, nil
}

// GetAircraftByID returns the aircraft with the given ID, or nil
func (r *CatalogRepository) GetAircraftByID(id string) (*models.Aircraft, error) {
	var aircraft models.Aircraft
	query := `
		SELECT id, registration, model, total_seats, class_distribution, created_at
		FROM aircraft WHERE id = $1
	`

	err := r.db.Get(&aircraft, query, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get aircraft: %w", err)
	}

	return &aircraft, nil
}

// ListAircraft returns all registered aircraft
func (r *CatalogRepository) ListAircraft() ([]models.Aircraft, error) {
	var fleet []models.Aircraft
	query := `
		SELECT id, registration, model, total_seats, class_distribution, created_at
		FROM aircraft ORDER BY registration
	`

	if err := r.db.Select(&fleet, query); err != nil {
		return nil, fmt.Errorf("failed to list aircraft: %w", err)
	}

	return fleet, nil
}
