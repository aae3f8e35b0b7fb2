package models

import (
	"errors"
	"strings"
	"time"
)

// Role enumerates the access roles recognized by the booking core
type Role string

const (
	RoleCustomer         Role = "customer"
	RoleAdmin            Role = "admin"
	RoleAirlineStaff     Role = "airline_staff"
	RoleAirportAuthority Role = "airport_authority"
)

// Valid reports whether the role is recognized
func (r Role) Valid() bool {
	switch r {
	case RoleCustomer, RoleAdmin, RoleAirlineStaff, RoleAirportAuthority:
		return true
	}
	return false
}

// User represents an account holder
type User struct {
	ID           string    `json:"id" db:"id"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password_hash"`
	FullName     string    `json:"full_name" db:"full_name"`
	Role         Role      `json:"role" db:"role"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// Actor identifies who is performing a staff-gated operation
type Actor struct {
	UserID string
	Role   Role
}

// CanUpdateFlightStatus gates airline staff operations
func (a Actor) CanUpdateFlightStatus() bool {
	return a.Role == RoleAirlineStaff || a.Role == RoleAdmin
}

// CanAssignGate gates airport authority operations
func (a Actor) CanAssignGate() bool {
	return a.Role == RoleAirportAuthority || a.Role == RoleAdmin
}

// CanManageBookings reports whether the actor may act on bookings they do
// not own, such as cancelling on a customer's behalf
func (a Actor) CanManageBookings() bool {
	return a.Role == RoleAirlineStaff || a.Role == RoleAdmin
}

// RegisterUserRequest represents the account registration input
type RegisterUserRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
	FullName string `json:"full_name" binding:"required"`
}

// Validate validates the registration request
func (r *RegisterUserRequest) Validate() error {
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	if !strings.Contains(r.Email, "@") {
		return errors.New("invalid email address")
	}
	if len(r.Password) < 8 {
		return errors.New("password must be at least 8 characters")
	}
	return nil
}

// LoginRequest represents the login input
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}
