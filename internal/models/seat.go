package models

import "time"

// SeatStatus represents the lifecycle state of a seat
type SeatStatus string

const (
	SeatStatusAvailable SeatStatus = "Available"
	SeatStatusHeld      SeatStatus = "Held"
	SeatStatusSold      SeatStatus = "Sold"
)

// SeatPosition represents where the seat sits in its row
type SeatPosition string

const (
	PositionWindow SeatPosition = "Window"
	PositionAisle  SeatPosition = "Aisle"
	PositionMiddle SeatPosition = "Middle"
)

// Seat represents one physical seat on a flight.
// BookingID is non-null iff the seat is Held or Sold.
type Seat struct {
	ID         string       `json:"id" db:"id"`
	FlightID   string       `json:"flight_id" db:"flight_id"`
	SeatNumber string       `json:"seat_number" db:"seat_number"`
	Class      CabinClass   `json:"class" db:"class"`
	Position   SeatPosition `json:"position" db:"position"`
	Surcharge  float64      `json:"surcharge" db:"surcharge"`
	Status     SeatStatus   `json:"status" db:"status"`
	BookingID  *string      `json:"booking_id,omitempty" db:"booking_id"`
	CreatedAt  time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time    `json:"updated_at" db:"updated_at"`
}

// SeatMapEntry is the public projection of a seat for seat-map displays
type SeatMapEntry struct {
	ID         string       `json:"id"`
	SeatNumber string       `json:"seat_number"`
	Class      CabinClass   `json:"class"`
	Position   SeatPosition `json:"position"`
	Surcharge  float64      `json:"surcharge"`
	Available  bool         `json:"available"`
}
