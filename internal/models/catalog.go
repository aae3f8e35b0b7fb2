package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Airport represents an airport in the catalog
type Airport struct {
	Code      string    `json:"code" db:"code"`
	Name      string    `json:"name" db:"name"`
	City      string    `json:"city" db:"city"`
	Country   string    `json:"country" db:"country"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Airline represents an airline in the catalog
type Airline struct {
	Code      string    `json:"code" db:"code"`
	Name      string    `json:"name" db:"name"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// ClassDistribution maps a cabin class to its seat count on an aircraft.
// Stored as JSONB.
type ClassDistribution map[CabinClass]int

// Value implements driver.Valuer for JSONB storage
func (d ClassDistribution) Value() (driver.Value, error) {
	if d == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(d)
}

// Scan implements sql.Scanner for JSONB retrieval
func (d *ClassDistribution) Scan(src interface{}) error {
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, d)
	case string:
		return json.Unmarshal([]byte(v), d)
	case nil:
		*d = ClassDistribution{}
		return nil
	default:
		return fmt.Errorf("unsupported type for ClassDistribution: %T", src)
	}
}

// TotalSeats sums the distribution across all classes
func (d ClassDistribution) TotalSeats() int {
	total := 0
	for _, n := range d {
		total += n
	}
	return total
}

// Aircraft represents an aircraft in the catalog
type Aircraft struct {
	ID                string            `json:"id" db:"id"`
	Registration      string            `json:"registration" db:"registration"`
	Model             string            `json:"model" db:"model"`
	TotalSeats        int               `json:"total_seats" db:"total_seats"`
	ClassDistribution ClassDistribution `json:"class_distribution" db:"class_distribution"`
	CreatedAt         time.Time         `json:"created_at" db:"created_at"`
}

// CreateAirportRequest represents the request to register an airport
type CreateAirportRequest struct {
	Code    string `json:"code" binding:"required"`
	Name    string `json:"name" binding:"required"`
	City    string `json:"city" binding:"required"`
	Country string `json:"country" binding:"required"`
}

// Validate validates the airport request
func (r *CreateAirportRequest) Validate() error {
	if len(r.Code) != 3 {
		return errors.New("code must be a 3-character IATA code")
	}
	r.Code = strings.ToUpper(r.Code)
	return nil
}

// CreateAirlineRequest represents the request to register an airline
type CreateAirlineRequest struct {
	Code string `json:"code" binding:"required"`
	Name string `json:"name" binding:"required"`
}

// Validate validates the airline request
func (r *CreateAirlineRequest) Validate() error {
	if len(r.Code) != 2 {
		return errors.New("code must be a 2-character IATA code")
	}
	r.Code = strings.ToUpper(r.Code)
	return nil
}

// CreateAircraftRequest represents the request to register an aircraft
type CreateAircraftRequest struct {
	Registration      string            `json:"registration" binding:"required"`
	Model             string            `json:"model" binding:"required"`
	ClassDistribution ClassDistribution `json:"class_distribution" binding:"required"`
}

// Validate validates the aircraft request
func (r *CreateAircraftRequest) Validate() error {
	if len(r.ClassDistribution) == 0 {
		return errors.New("class_distribution must not be empty")
	}
	for class, count := range r.ClassDistribution {
		if !class.Valid() {
			return fmt.Errorf("unknown cabin class %q", class)
		}
		if count <= 0 {
			return fmt.Errorf("seat count for %s must be positive", class)
		}
	}
	return nil
}
