package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// CabinClass represents a fare tier
type CabinClass string

const (
	ClassEconomy     CabinClass = "Economy"
	ClassEconomyFlex CabinClass = "EconomyFlex"
	ClassBusiness    CabinClass = "Business"
	ClassFirst       CabinClass = "First"
)

// AllCabinClasses lists every tier in display order
var AllCabinClasses = []CabinClass{ClassEconomy, ClassEconomyFlex, ClassBusiness, ClassFirst}

// Valid reports whether the cabin class is one of the known tiers
func (c CabinClass) Valid() bool {
	switch c {
	case ClassEconomy, ClassEconomyFlex, ClassBusiness, ClassFirst:
		return true
	}
	return false
}

// FlightStatus represents the operational status of a flight
type FlightStatus string

const (
	FlightStatusScheduled FlightStatus = "Scheduled"
	FlightStatusBoarding  FlightStatus = "Boarding"
	FlightStatusDelayed   FlightStatus = "Delayed"
	FlightStatusDeparted  FlightStatus = "Departed"
	FlightStatusLanded    FlightStatus = "Landed"
	FlightStatusCancelled FlightStatus = "Cancelled"
)

// Valid reports whether the status is a known flight status
func (s FlightStatus) Valid() bool {
	switch s {
	case FlightStatusScheduled, FlightStatusBoarding, FlightStatusDelayed,
		FlightStatusDeparted, FlightStatusLanded, FlightStatusCancelled:
		return true
	}
	return false
}

// FareMap maps a cabin class to its base fare. Stored as JSONB.
type FareMap map[CabinClass]float64

// Value implements driver.Valuer for JSONB storage
func (m FareMap) Value() (driver.Value, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(m)
}

// Scan implements sql.Scanner for JSONB retrieval
func (m *FareMap) Scan(src interface{}) error {
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, m)
	case string:
		return json.Unmarshal([]byte(v), m)
	case nil:
		*m = FareMap{}
		return nil
	default:
		return fmt.Errorf("unsupported type for FareMap: %T", src)
	}
}

// Flight represents a single flight instance
type Flight struct {
	ID              string       `json:"id" db:"id"`
	FlightNumber    string       `json:"flight_number" db:"flight_number"`
	AirlineCode     string       `json:"airline_code" db:"airline_code"`
	OriginCode      string       `json:"origin_code" db:"origin_code"`
	DestinationCode string       `json:"destination_code" db:"destination_code"`
	AircraftID      string       `json:"aircraft_id" db:"aircraft_id"`
	DepartureTime   time.Time    `json:"departure_time" db:"departure_time"`
	ArrivalTime     time.Time    `json:"arrival_time" db:"arrival_time"`
	BaseFare        FareMap      `json:"base_fare" db:"base_fare"`
	DemandIndex     float64      `json:"demand_index" db:"demand_index"`
	Status          FlightStatus `json:"status" db:"status"`
	DelayMinutes    int          `json:"delay_minutes" db:"delay_minutes"`
	DelayReason     *string      `json:"delay_reason,omitempty" db:"delay_reason"`
	Gate            *string      `json:"gate,omitempty" db:"gate"`
	CreatedAt       time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at" db:"updated_at"`
}

// DurationMinutes derives the scheduled flight duration
func (f *Flight) DurationMinutes() int {
	return int(f.ArrivalTime.Sub(f.DepartureTime).Minutes())
}

// Bookable reports whether holds may still be created on this flight
func (f *Flight) Bookable(now time.Time) bool {
	if f.Status == FlightStatusCancelled || f.Status == FlightStatusDeparted || f.Status == FlightStatusLanded {
		return false
	}
	return f.DepartureTime.After(now)
}

// FlightSummary is a flight decorated with live fares and remaining seats
type FlightSummary struct {
	Flight
	DurationMins int                    `json:"duration_minutes"`
	PriceMap     map[CabinClass]float64 `json:"price_map"`
	SeatsByClass map[CabinClass]int     `json:"seats_by_class"`
}

// FareHistorySample is one point of the append-only fare time series
type FareHistorySample struct {
	ID          int64      `json:"id" db:"id"`
	FlightID    string     `json:"flight_id" db:"flight_id"`
	Tier        CabinClass `json:"tier" db:"tier"`
	Fare        float64    `json:"fare" db:"fare"`
	DemandIndex float64    `json:"demand_index" db:"demand_index"`
	SampledAt   time.Time  `json:"sampled_at" db:"sampled_at"`
}

// CreateFlightRequest represents the request to schedule a flight
type CreateFlightRequest struct {
	FlightNumber    string    `json:"flight_number" binding:"required"`
	AirlineCode     string    `json:"airline_code" binding:"required"`
	OriginCode      string    `json:"origin_code" binding:"required"`
	DestinationCode string    `json:"destination_code" binding:"required"`
	AircraftID      string    `json:"aircraft_id" binding:"required"`
	DepartureTime   time.Time `json:"departure_time" binding:"required"`
	ArrivalTime     time.Time `json:"arrival_time" binding:"required"`
	BaseFare        FareMap   `json:"base_fare" binding:"required"`
	DemandIndex     float64   `json:"demand_index"`
}

// Validate validates the flight request
func (r *CreateFlightRequest) Validate() error {
	if !r.ArrivalTime.After(r.DepartureTime) {
		return errors.New("arrival_time must be after departure_time")
	}
	if r.OriginCode == r.DestinationCode {
		return errors.New("origin and destination must differ")
	}
	if len(r.BaseFare) == 0 {
		return errors.New("base_fare must define at least one tier")
	}
	for tier, fare := range r.BaseFare {
		if !tier.Valid() {
			return fmt.Errorf("unknown tier %q in base_fare", tier)
		}
		if fare <= 0 {
			return fmt.Errorf("base fare for %s must be positive", tier)
		}
	}
	if r.DemandIndex < 0 || r.DemandIndex > 100 {
		return errors.New("demand_index must be within [0, 100]")
	}
	return nil
}

// UpdateFlightStatusRequest represents a staff status/delay update
type UpdateFlightStatusRequest struct {
	Status       FlightStatus `json:"status" binding:"required"`
	DelayMinutes *int         `json:"delay_minutes,omitempty"`
	DelayReason  *string      `json:"delay_reason,omitempty"`
}

// Validate validates the status update request
func (r *UpdateFlightStatusRequest) Validate() error {
	if !r.Status.Valid() {
		return fmt.Errorf("unknown flight status %q", r.Status)
	}
	if r.DelayMinutes != nil && *r.DelayMinutes < 0 {
		return errors.New("delay_minutes must be non-negative")
	}
	return nil
}

// AssignGateRequest represents an airport-authority gate assignment
type AssignGateRequest struct {
	Gate string `json:"gate" binding:"required"`
}

// SortKey orders search results
type SortKey string

const (
	SortByPrice     SortKey = "price"
	SortByDuration  SortKey = "duration"
	SortByDeparture SortKey = "departure"
)

// SearchFlightsRequest represents the flight search input
type SearchFlightsRequest struct {
	Origin      string      `form:"origin" json:"origin"`
	Destination string      `form:"destination" json:"destination"`
	Date        *time.Time  `form:"date" json:"date,omitempty" time_format:"2006-01-02"`
	Passengers  int         `form:"passengers,default=1" json:"passengers"`
	Tier        *CabinClass `form:"tier" json:"tier,omitempty"`
	SortBy      SortKey     `form:"sort,default=departure" json:"sort"`
	Page        int         `form:"page,default=1" json:"page"`
	PageSize    int         `form:"page_size,default=20" json:"page_size"`
}

// Validate validates the search request
func (r *SearchFlightsRequest) Validate() error {
	r.Origin = strings.ToUpper(strings.TrimSpace(r.Origin))
	r.Destination = strings.ToUpper(strings.TrimSpace(r.Destination))
	if r.Origin == "" || r.Destination == "" {
		return errors.New("origin and destination are required")
	}
	if r.Passengers < 1 {
		return errors.New("passengers must be at least 1")
	}
	if r.Tier != nil && !r.Tier.Valid() {
		return fmt.Errorf("unknown tier %q", *r.Tier)
	}
	switch r.SortBy {
	case SortByPrice, SortByDuration, SortByDeparture:
	case "":
		r.SortBy = SortByDeparture
	default:
		return fmt.Errorf("unknown sort key %q", r.SortBy)
	}
	if r.Page < 1 {
		r.Page = 1
	}
	if r.PageSize < 1 || r.PageSize > 100 {
		r.PageSize = 20
	}
	return nil
}
