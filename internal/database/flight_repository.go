package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/flightbooker/backend/internal/models"
)

// FlightRepository handles flight, seat-inventory and fare-history database operations
type FlightRepository struct {
	db *sqlx.DB
}

// NewFlightRepository creates a new FlightRepository
func NewFlightRepository(db *sqlx.DB) *FlightRepository {
	return &FlightRepository{db: db}
}

// seatLayout describes how one cabin class is laid out
type seatLayout struct {
	letters   []string
	positions []models.SeatPosition
	surcharge []float64
}

// premiumLayout is 4-abreast, economyLayout 6-abreast
var (
	premiumLayout = seatLayout{
		letters:   []string{"A", "C", "D", "F"},
		positions: []models.SeatPosition{models.PositionWindow, models.PositionAisle, models.PositionAisle, models.PositionWindow},
		surcharge: []float64{0, 0, 0, 0},
	}
	economyLayout = seatLayout{
		letters: []string{"A", "B", "C", "D", "E", "F"},
		positions: []models.SeatPosition{
			models.PositionWindow, models.PositionMiddle, models.PositionAisle,
			models.PositionAisle, models.PositionMiddle, models.PositionWindow,
		},
		surcharge: []float64{150, 0, 100, 100, 0, 150},
	}
)

func layoutFor(class models.CabinClass) seatLayout {
	if class == models.ClassBusiness || class == models.ClassFirst {
		return premiumLayout
	}
	return economyLayout
}

// CreateFlight inserts a flight and materializes its full seat inventory
// from the aircraft cabin layout in one transaction.
func (r *FlightRepository) CreateFlight(req *models.CreateFlightRequest, aircraft *models.Aircraft) (*models.Flight, error) {
	flight := &models.Flight{
		ID:              uuid.New().String(),
		FlightNumber:    req.FlightNumber,
		AirlineCode:     req.AirlineCode,
		OriginCode:      req.OriginCode,
		DestinationCode: req.DestinationCode,
		AircraftID:      aircraft.ID,
		DepartureTime:   req.DepartureTime,
		ArrivalTime:     req.ArrivalTime,
		BaseFare:        req.BaseFare,
		DemandIndex:     req.DemandIndex,
		Status:          models.FlightStatusScheduled,
		CreatedAt:       time.Now(),
		UpdatedAt:       time.Now(),
	}

	tx, err := r.db.Beginx()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO flights (
			id, flight_number, airline_code, origin_code, destination_code,
			aircraft_id, departure_time, arrival_time, base_fare, demand_index,
			status, delay_minutes, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, 0, $12, $13)
	`,
		flight.ID, flight.FlightNumber, flight.AirlineCode, flight.OriginCode,
		flight.DestinationCode, flight.AircraftID, flight.DepartureTime,
		flight.ArrivalTime, flight.BaseFare, flight.DemandIndex,
		flight.Status, flight.CreatedAt, flight.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create flight: %w", err)
	}

	// Seats are numbered row by row, premium cabins first, rows shared
	// across classes so "1A" is always the front of the aircraft.
	row := 1
	for _, class := range models.AllCabinClasses {
		count := aircraft.ClassDistribution[class]
		if count == 0 {
			continue
		}
		layout := layoutFor(class)
		placed := 0
		for placed < count {
			for i, letter := range layout.letters {
				if placed >= count {
					break
				}
				_, err = tx.Exec(`
					INSERT INTO seats (
						id, flight_id, seat_number, class, position,
						surcharge, status, created_at, updated_at
					) VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
				`,
					uuid.New().String(), flight.ID, fmt.Sprintf("%d%s", row, letter),
					class, layout.positions[i], layout.surcharge[i], models.SeatStatusAvailable,
				)
				if err != nil {
					return nil, fmt.Errorf("failed to create seat inventory: %w", err)
				}
				placed++
			}
			row++
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return flight, nil
}

// GetFlightByID returns the flight with the given ID, or nil if not found
func (r *FlightRepository) GetFlightByID(id string) (*models.Flight, error) {
	var flight models.Flight
	query := `
		SELECT id, flight_number, airline_code, origin_code, destination_code,
		       aircraft_id, departure_time, arrival_time, base_fare, demand_index,
		       status, delay_minutes, delay_reason, gate, created_at, updated_at
		FROM flights WHERE id = $1
	`

	err := r.db.Get(&flight, query, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get flight: %w", err)
	}

	return &flight, nil
}

// SearchFlights returns flights matching the route and optional date window.
// Only Cancelled flights are filtered out; sold-out or departed flights are
// still listed and their seat counts speak for themselves. Sorting by live
// price happens in the service layer; departure and duration ordering are
// pushed down, with id as tie-breaker so pagination is stable.
func (r *FlightRepository) SearchFlights(req *models.SearchFlightsRequest) ([]models.Flight, error) {
	query := `
		SELECT id, flight_number, airline_code, origin_code, destination_code,
		       aircraft_id, departure_time, arrival_time, base_fare, demand_index,
		       status, delay_minutes, delay_reason, gate, created_at, updated_at
		FROM flights
		WHERE origin_code = $1
		  AND destination_code = $2
		  AND status <> 'Cancelled'
	`
	args := []interface{}{req.Origin, req.Destination}

	if req.Date != nil {
		query += fmt.Sprintf(" AND departure_time >= $%d AND departure_time < $%d", len(args)+1, len(args)+2)
		args = append(args, req.Date.UTC(), req.Date.UTC().Add(24*time.Hour))
	}

	switch req.SortBy {
	case models.SortByDuration:
		query += " ORDER BY (arrival_time - departure_time), departure_time, id"
	default:
		query += " ORDER BY departure_time, id"
	}

	var flights []models.Flight
	if err := r.db.Select(&flights, query, args...); err != nil {
		return nil, fmt.Errorf("failed to search flights: %w", err)
	}

	return flights, nil
}

// ClassSeatCount is per-class seat availability for one flight
type ClassSeatCount struct {
	Class     models.CabinClass `db:"class"`
	Available int               `db:"available"`
	Total     int               `db:"total"`
}

// SeatCountsByClass returns remaining and total seats per cabin class
func (r *FlightRepository) SeatCountsByClass(flightID string) (map[models.CabinClass]ClassSeatCount, error) {
	var rows []ClassSeatCount
	query := `
		SELECT class,
		       COUNT(*) FILTER (WHERE status = 'Available') AS available,
		       COUNT(*) AS total
		FROM seats
		WHERE flight_id = $1
		GROUP BY class
	`

	if err := r.db.Select(&rows, query, flightID); err != nil {
		return nil, fmt.Errorf("failed to count seats: %w", err)
	}

	counts := make(map[models.CabinClass]ClassSeatCount, len(rows))
	for _, row := range rows {
		counts[row.Class] = row
	}
	return counts, nil
}

// GetSeatMap returns the public seat map for a flight
func (r *FlightRepository) GetSeatMap(flightID string) ([]models.SeatMapEntry, error) {
	var seats []models.Seat
	query := `
		SELECT id, flight_id, seat_number, class, position, surcharge,
		       status, booking_id, created_at, updated_at
		FROM seats WHERE flight_id = $1
		ORDER BY class, seat_number
	`

	if err := r.db.Select(&seats, query, flightID); err != nil {
		return nil, fmt.Errorf("failed to load seat map: %w", err)
	}

	entries := make([]models.SeatMapEntry, 0, len(seats))
	for _, s := range seats {
		entries = append(entries, models.SeatMapEntry{
			ID:         s.ID,
			SeatNumber: s.SeatNumber,
			Class:      s.Class,
			Position:   s.Position,
			Surcharge:  s.Surcharge,
			Available:  s.Status == models.SeatStatusAvailable,
		})
	}
	return entries, nil
}

// UpdateFlightStatus applies a staff status/delay update
func (r *FlightRepository) UpdateFlightStatus(flightID string, req *models.UpdateFlightStatusRequest) error {
	delayMinutes := 0
	if req.DelayMinutes != nil {
		delayMinutes = *req.DelayMinutes
	}

	query := `
		UPDATE flights
		SET status = $1, delay_minutes = $2, delay_reason = $3, updated_at = NOW()
		WHERE id = $4
	`

	result, err := r.db.Exec(query, req.Status, delayMinutes, req.DelayReason, flightID)
	if err != nil {
		return fmt.Errorf("failed to update flight status: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// AssignGate records the departure gate for a flight
func (r *FlightRepository) AssignGate(flightID, gate string) error {
	query := `UPDATE flights SET gate = $1, updated_at = NOW() WHERE id = $2`

	result, err := r.db.Exec(query, gate, flightID)
	if err != nil {
		return fmt.Errorf("failed to assign gate: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ListUpcomingFlightIDs returns IDs of flights that are still taking
// bookings, optionally capped to those departing within the window. A
// non-positive window means every upcoming flight. The demand simulator
// walks this list.
func (r *FlightRepository) ListUpcomingFlightIDs(window time.Duration) ([]string, error) {
	var ids []string
	query := `
		SELECT id FROM flights
		WHERE status NOT IN ('Cancelled', 'Departed', 'Landed')
		  AND departure_time > NOW()
	`
	args := []interface{}{}

	if window > 0 {
		query += " AND departure_time <= NOW() + $1::interval"
		args = append(args, fmt.Sprintf("%d seconds", int(window.Seconds())))
	}
	query += " ORDER BY departure_time"

	if err := r.db.Select(&ids, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list upcoming flights: %w", err)
	}

	return ids, nil
}

// ListAirlineSchedule returns an airline's upcoming flights within the
// window, earliest departure first with flight_number as tie-breaker so the
// feed is stable across polls.
func (r *FlightRepository) ListAirlineSchedule(airlineCode string, window time.Duration) ([]models.Flight, error) {
	var flights []models.Flight
	query := `
		SELECT id, flight_number, airline_code, origin_code, destination_code,
		       aircraft_id, departure_time, arrival_time, base_fare, demand_index,
		       status, delay_minutes, delay_reason, gate, created_at, updated_at
		FROM flights
		WHERE airline_code = $1
		  AND departure_time > NOW()
		  AND departure_time <= NOW() + $2::interval
		ORDER BY departure_time, flight_number
	`

	if err := r.db.Select(&flights, query, airlineCode, fmt.Sprintf("%d seconds", int(window.Seconds()))); err != nil {
		return nil, fmt.Errorf("failed to list airline schedule: %w", err)
	}

	return flights, nil
}

// UpdateDemandAndRecordFares sets the flight's new demand index and appends
// one fare-history sample per tier, all in one short transaction.
func (r *FlightRepository) UpdateDemandAndRecordFares(flightID string, demandIndex float64, fares map[models.CabinClass]float64, sampledAt time.Time) error {
	tx, err := r.db.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		UPDATE flights SET demand_index = $1, updated_at = NOW() WHERE id = $2
	`, demandIndex, flightID)
	if err != nil {
		return fmt.Errorf("failed to update demand index: %w", err)
	}

	for tier, fare := range fares {
		_, err = tx.Exec(`
			INSERT INTO fare_history (flight_id, tier, fare, demand_index, sampled_at)
			VALUES ($1, $2, $3, $4, $5)
		`, flightID, tier, fare, demandIndex, sampledAt)
		if err != nil {
			return fmt.Errorf("failed to record fare sample: %w", err)
		}
	}

	return tx.Commit()
}

// ListFareHistory returns the fare time series for a flight, optionally
// filtered to one tier, oldest first.
func (r *FlightRepository) ListFareHistory(flightID string, tier *models.CabinClass, limit int) ([]models.FareHistorySample, error) {
	query := `
		SELECT id, flight_id, tier, fare, demand_index, sampled_at
		FROM fare_history
		WHERE flight_id = $1
	`
	args := []interface{}{flightID}

	if tier != nil {
		query += " AND tier = $2"
		args = append(args, *tier)
	}
	query += fmt.Sprintf(" ORDER BY sampled_at DESC LIMIT $%d", len(args)+1)
	args = append(args, limit)

	var samples []models.FareHistorySample
	if err := r.db.Select(&samples, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list fare history: %w", err)
	}

	// Reverse to oldest-first for charting
	for i, j := 0, len(samples)-1; i < j; i, j = i+1, j-1 {
		samples[i], samples[j] = samples[j], samples[i]
	}

	return samples, nil
}

// GetDB returns the underlying database connection
func (r *FlightRepository) GetDB() *sqlx.DB {
	return r.db
}
