package models

import (
	"errors"
	"fmt"
	"time"
)

// MaxPassengersPerBooking caps a single booking
const MaxPassengersPerBooking = 9

// BookingStatus represents the booking state machine states
type BookingStatus string

const (
	BookingStatusHeld           BookingStatus = "Held"
	BookingStatusPendingPayment BookingStatus = "PendingPayment"
	BookingStatusConfirmed      BookingStatus = "Confirmed"
	BookingStatusCancelled      BookingStatus = "Cancelled"
	BookingStatusExpired        BookingStatus = "Expired"
)

// Payable reports whether a payment attempt is allowed in this state
func (s BookingStatus) Payable() bool {
	return s == BookingStatusHeld || s == BookingStatusPendingPayment
}

// Booking represents one reservation on one flight
type Booking struct {
	ID               string        `json:"id" db:"id"`
	BookingReference string        `json:"booking_reference" db:"booking_reference"`
	PNR              *string       `json:"pnr,omitempty" db:"pnr"`
	UserID           string        `json:"user_id" db:"user_id"`
	FlightID         string        `json:"flight_id" db:"flight_id"`
	Tier             CabinClass    `json:"tier" db:"tier"`
	Status           BookingStatus `json:"status" db:"status"`
	TotalFare        float64       `json:"total_fare" db:"total_fare"`
	PaidAmount       float64       `json:"paid_amount" db:"paid_amount"`
	TransactionID    *string       `json:"transaction_id,omitempty" db:"transaction_id"`
	HoldExpiresAt    time.Time     `json:"hold_expires_at" db:"hold_expires_at"`
	CreatedAt        time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time     `json:"updated_at" db:"updated_at"`

	Tickets []Ticket `json:"tickets,omitempty"`
}

// HoldExpired reports whether the hold window has lapsed
func (b *Booking) HoldExpired(now time.Time) bool {
	return !now.Before(b.HoldExpiresAt)
}

// Ticket represents one passenger on a booking, pinned to a seat
type Ticket struct {
	ID              string     `json:"id" db:"id"`
	BookingID       string     `json:"booking_id" db:"booking_id"`
	SeatID          string     `json:"seat_id" db:"seat_id"`
	PassengerName   string     `json:"passenger_name" db:"passenger_name"`
	PassengerAge    int        `json:"passenger_age" db:"passenger_age"`
	PassengerGender string     `json:"passenger_gender" db:"passenger_gender"`
	TicketNumber    *string    `json:"ticket_number,omitempty" db:"ticket_number"`
	SeatNumber      string     `json:"seat_number" db:"seat_number"`
	SeatClass       CabinClass `json:"seat_class" db:"seat_class"`
	CreatedAt       time.Time  `json:"created_at" db:"created_at"`
}

// PaymentMethod represents the simulated payment instrument
type PaymentMethod string

const (
	PaymentMethodCard       PaymentMethod = "Card"
	PaymentMethodUPI        PaymentMethod = "UPI"
	PaymentMethodNetBanking PaymentMethod = "NetBanking"
	PaymentMethodWallet     PaymentMethod = "Wallet"
)

// Valid reports whether the method is recognized
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentMethodCard, PaymentMethodUPI, PaymentMethodNetBanking, PaymentMethodWallet:
		return true
	}
	return false
}

// PaymentStatus records the outcome of a payment attempt
type PaymentStatus string

const (
	PaymentStatusSuccess PaymentStatus = "Success"
	PaymentStatusFailed  PaymentStatus = "Failed"
)

// Payment is the record of one payment attempt against a booking
type Payment struct {
	ID               int64         `json:"id" db:"id"`
	BookingReference string        `json:"booking_reference" db:"booking_reference"`
	Amount           float64       `json:"amount" db:"amount"`
	Method           PaymentMethod `json:"method" db:"method"`
	Status           PaymentStatus `json:"status" db:"status"`
	TransactionID    string        `json:"transaction_id" db:"transaction_id"`
	CreatedAt        time.Time     `json:"created_at" db:"created_at"`
}

// PassengerInput describes one passenger on a hold request
type PassengerInput struct {
	Name   string  `json:"name" binding:"required"`
	Age    int     `json:"age" binding:"required"`
	Gender string  `json:"gender" binding:"required"`
	SeatID *string `json:"seat_id,omitempty"`
}

// CreateBookingRequest represents the hold-creation input. QuotedUnitFare
// echoes the per-passenger fare the client saw at search time.
type CreateBookingRequest struct {
	UserID         string           `json:"user_id" binding:"required"`
	FlightID       string           `json:"flight_id" binding:"required"`
	Tier           CabinClass       `json:"tier" binding:"required"`
	Passengers     []PassengerInput `json:"passengers" binding:"required"`
	QuotedUnitFare *float64         `json:"quoted_unit_fare,omitempty"`
}

// Validate validates the hold request
func (r *CreateBookingRequest) Validate() error {
	if !r.Tier.Valid() {
		return fmt.Errorf("unknown tier %q", r.Tier)
	}
	if len(r.Passengers) == 0 {
		return errors.New("at least one passenger is required")
	}
	for i, p := range r.Passengers {
		if p.Name == "" {
			return fmt.Errorf("passenger %d: name is required", i+1)
		}
		if p.Age < 0 || p.Age > 130 {
			return fmt.Errorf("passenger %d: invalid age", i+1)
		}
	}
	if r.QuotedUnitFare != nil && *r.QuotedUnitFare <= 0 {
		return errors.New("quoted_unit_fare must be positive")
	}
	return nil
}

// PayBookingRequest represents the payment submission input
type PayBookingRequest struct {
	BookingReference string        `json:"booking_reference" binding:"required"`
	Amount           float64       `json:"amount" binding:"required"`
	Method           PaymentMethod `json:"method" binding:"required"`
}

// Validate validates the payment request
func (r *PayBookingRequest) Validate() error {
	if r.Amount <= 0 {
		return errors.New("amount must be positive")
	}
	if !r.Method.Valid() {
		return fmt.Errorf("unknown payment method %q", r.Method)
	}
	return nil
}

// PNRStatusView is the redacted public projection of a booking
type PNRStatusView struct {
	PNR           string        `json:"pnr"`
	Status        BookingStatus `json:"status"`
	FlightNumber  string        `json:"flight_number"`
	OriginCode    string        `json:"origin_code"`
	DestCode      string        `json:"destination_code"`
	DepartureTime time.Time     `json:"departure_time"`
	Passengers    int           `json:"passengers"`
}

// ReceiptPassenger is one passenger line on a receipt
type ReceiptPassenger struct {
	Name       string     `json:"name"`
	SeatNumber string     `json:"seat_number"`
	SeatClass  CabinClass `json:"seat_class"`
	TicketNo   string     `json:"ticket_number"`
}

// ReceiptRecord is the structured document handed to the external renderer.
// The core does not care how it becomes bytes.
type ReceiptRecord struct {
	Kind             string             `json:"kind"` // confirmation or cancellation
	PNR              string             `json:"pnr"`
	BookingReference string             `json:"booking_reference"`
	FlightNumber     string             `json:"flight_number"`
	AirlineCode      string             `json:"airline_code"`
	OriginCode       string             `json:"origin_code"`
	DestinationCode  string             `json:"destination_code"`
	DepartureTime    time.Time          `json:"departure_time"`
	ArrivalTime      time.Time          `json:"arrival_time"`
	Passengers       []ReceiptPassenger `json:"passengers"`
	TotalFare        float64            `json:"total_fare"`
	PaidAmount       float64            `json:"paid_amount"`
	TransactionID    string             `json:"transaction_id"`
	PaidAt           time.Time          `json:"paid_at"`
	IssuedAt         time.Time          `json:"issued_at"`
}
