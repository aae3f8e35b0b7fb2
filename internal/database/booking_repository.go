package database

import (
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"fmt"
	"math/big"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/flightbooker/backend/internal/apperrors"
	"github.com/flightbooker/backend/internal/models"
)

// pnrAlphabet excludes the ambiguous characters 0, O, 1 and I
const pnrAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

const (
	pnrLength      = 6
	pnrMaxAttempts = 8
)

// QuoteFunc prices one seat of the requested tier from state read under the
// flight row lock. Returning an error aborts the hold.
type QuoteFunc func(flight *models.Flight, seatsAvailable, seatsTotal int) (float64, error)

// BookingRepository handles booking, ticket and payment database operations
type BookingRepository struct {
	db *sqlx.DB
}

// NewBookingRepository creates a new BookingRepository
func NewBookingRepository(db *sqlx.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

// generateBookingReference returns a reference like FB3F7A2C9D1E
func generateBookingReference() (string, error) {
	buf := make([]byte, 5)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate booking reference: %w", err)
	}
	return "FB" + strings.ToUpper(hex.EncodeToString(buf)), nil
}

// generatePNR returns a random 6-character record locator
func generatePNR() (string, error) {
	code := make([]byte, pnrLength)
	for i := range code {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(pnrAlphabet))))
		if err != nil {
			return "", fmt.Errorf("failed to generate PNR: %w", err)
		}
		code[i] = pnrAlphabet[n.Int64()]
	}
	return string(code), nil
}

// CreateHold reserves seats for the request inside one transaction.
//
// Lock order is fixed: the flight row first, then the chosen seats in
// ascending seat_number. Every concurrent hold on the same flight takes the
// same locks in the same order, so two holds can never deadlock each other.
func (r *BookingRepository) CreateHold(req *models.CreateBookingRequest, quote QuoteFunc, holdTTL time.Duration) (*models.Booking, error) {
	tx, err := r.db.Beginx()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var flight models.Flight
	err = tx.Get(&flight, `
		SELECT id, flight_number, airline_code, origin_code, destination_code,
		       aircraft_id, departure_time, arrival_time, base_fare, demand_index,
		       status, delay_minutes, delay_reason, gate, created_at, updated_at
		FROM flights WHERE id = $1
		FOR UPDATE
	`, req.FlightID)
	if err == sql.ErrNoRows {
		return nil, apperrors.E(apperrors.KindNotFound, "flight %s not found", req.FlightID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock flight: %w", err)
	}

	now := time.Now()
	if !flight.Bookable(now) {
		return nil, apperrors.E(apperrors.KindFlightNotBookable, "flight %s is not accepting bookings", flight.FlightNumber)
	}

	var count ClassSeatCount
	err = tx.Get(&count, `
		SELECT class,
		       COUNT(*) FILTER (WHERE status = 'Available') AS available,
		       COUNT(*) AS total
		FROM seats
		WHERE flight_id = $1 AND class = $2
		GROUP BY class
	`, req.FlightID, req.Tier)
	if err == sql.ErrNoRows {
		return nil, apperrors.E(apperrors.KindSeatUnavailable, "flight has no %s cabin", req.Tier)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to count seats: %w", err)
	}
	if count.Available < len(req.Passengers) {
		return nil, apperrors.E(apperrors.KindSeatUnavailable,
			"only %d %s seats remain, %d requested", count.Available, req.Tier, len(req.Passengers))
	}

	unitFare, err := quote(&flight, count.Available, count.Total)
	if err != nil {
		return nil, err
	}

	seats, err := r.lockSeats(tx, req)
	if err != nil {
		return nil, err
	}

	reference, err := generateBookingReference()
	if err != nil {
		return nil, err
	}

	booking := &models.Booking{
		ID:               uuid.New().String(),
		BookingReference: reference,
		UserID:           req.UserID,
		FlightID:         req.FlightID,
		Tier:             req.Tier,
		Status:           models.BookingStatusHeld,
		HoldExpiresAt:    now.Add(holdTTL),
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	total := 0.0
	for _, seat := range seats {
		total += unitFare + seat.Surcharge
	}
	booking.TotalFare = total

	_, err = tx.Exec(`
		INSERT INTO bookings (
			id, booking_reference, user_id, flight_id, tier, status,
			total_fare, paid_amount, hold_expires_at, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, 0, $8, $9, $10)
	`,
		booking.ID, booking.BookingReference, booking.UserID, booking.FlightID,
		booking.Tier, booking.Status, booking.TotalFare, booking.HoldExpiresAt,
		booking.CreatedAt, booking.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create booking: %w", err)
	}

	for i, seat := range seats {
		_, err = tx.Exec(`
			UPDATE seats SET status = $1, booking_id = $2, updated_at = NOW() WHERE id = $3
		`, models.SeatStatusHeld, booking.ID, seat.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to hold seat %s: %w", seat.SeatNumber, err)
		}

		passenger := req.Passengers[i]
		ticket := models.Ticket{
			ID:              uuid.New().String(),
			BookingID:       booking.ID,
			SeatID:          seat.ID,
			PassengerName:   passenger.Name,
			PassengerAge:    passenger.Age,
			PassengerGender: passenger.Gender,
			SeatNumber:      seat.SeatNumber,
			SeatClass:       seat.Class,
			CreatedAt:       now,
		}
		_, err = tx.Exec(`
			INSERT INTO tickets (
				id, booking_id, seat_id, passenger_name, passenger_age,
				passenger_gender, seat_number, seat_class, created_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`,
			ticket.ID, ticket.BookingID, ticket.SeatID, ticket.PassengerName,
			ticket.PassengerAge, ticket.PassengerGender, ticket.SeatNumber,
			ticket.SeatClass, ticket.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create ticket: %w", err)
		}
		booking.Tickets = append(booking.Tickets, ticket)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return booking, nil
}

// lockSeats selects and row-locks one seat per passenger. Passengers with an
// explicit seat_id get that seat; the rest are auto-assigned the lowest
// available seat numbers. Seats are always locked in ascending seat_number.
func (r *BookingRepository) lockSeats(tx *sqlx.Tx, req *models.CreateBookingRequest) ([]models.Seat, error) {
	explicitIDs := make([]string, 0, len(req.Passengers))
	autoCount := 0
	for _, p := range req.Passengers {
		if p.SeatID != nil {
			explicitIDs = append(explicitIDs, *p.SeatID)
		} else {
			autoCount++
		}
	}

	var chosen []models.Seat

	if len(explicitIDs) > 0 {
		var seats []models.Seat
		err := tx.Select(&seats, `
			SELECT id, flight_id, seat_number, class, position, surcharge,
			       status, booking_id, created_at, updated_at
			FROM seats
			WHERE flight_id = $1 AND id = ANY($2)
			ORDER BY seat_number ASC
			FOR UPDATE
		`, req.FlightID, pq.Array(explicitIDs))
		if err != nil {
			return nil, fmt.Errorf("failed to lock seats: %w", err)
		}
		if len(seats) != len(explicitIDs) {
			return nil, apperrors.E(apperrors.KindSeatUnavailable, "one or more requested seats do not exist on this flight")
		}
		for _, seat := range seats {
			if seat.Status != models.SeatStatusAvailable {
				return nil, apperrors.E(apperrors.KindSeatUnavailable, "seat %s is no longer available", seat.SeatNumber)
			}
			if seat.Class != req.Tier {
				return nil, apperrors.E(apperrors.KindInvalidArgument, "seat %s is not in the %s cabin", seat.SeatNumber, req.Tier)
			}
		}
		chosen = seats
	}

	if autoCount > 0 {
		var seats []models.Seat
		err := tx.Select(&seats, `
			SELECT id, flight_id, seat_number, class, position, surcharge,
			       status, booking_id, created_at, updated_at
			FROM seats
			WHERE flight_id = $1 AND class = $2 AND status = 'Available'
			  AND NOT (id = ANY($3))
			ORDER BY seat_number ASC
			LIMIT $4
			FOR UPDATE
		`, req.FlightID, req.Tier, pq.Array(explicitIDs), autoCount)
		if err != nil {
			return nil, fmt.Errorf("failed to auto-assign seats: %w", err)
		}
		if len(seats) < autoCount {
			return nil, apperrors.E(apperrors.KindSeatUnavailable, "not enough %s seats remain", req.Tier)
		}
		chosen = append(chosen, seats...)
	}

	// Pair explicit choices back to their passengers: re-order so chosen[i]
	// belongs to req.Passengers[i].
	bySeatID := make(map[string]models.Seat, len(chosen))
	auto := make([]models.Seat, 0, autoCount)
	explicitSet := make(map[string]bool, len(explicitIDs))
	for _, id := range explicitIDs {
		explicitSet[id] = true
	}
	for _, seat := range chosen {
		if explicitSet[seat.ID] {
			bySeatID[seat.ID] = seat
		} else {
			auto = append(auto, seat)
		}
	}
	sort.Slice(auto, func(i, j int) bool { return auto[i].SeatNumber < auto[j].SeatNumber })

	ordered := make([]models.Seat, 0, len(req.Passengers))
	autoIdx := 0
	for _, p := range req.Passengers {
		if p.SeatID != nil {
			ordered = append(ordered, bySeatID[*p.SeatID])
		} else {
			ordered = append(ordered, auto[autoIdx])
			autoIdx++
		}
	}
	return ordered, nil
}

// MarkPendingPayment transitions a live hold to PendingPayment. Expired holds
// are rejected so the reaper can reclaim them.
func (r *BookingRepository) MarkPendingPayment(bookingReference string) (*models.Booking, error) {
	tx, err := r.db.Beginx()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	booking, err := getBookingForUpdate(tx, bookingReference)
	if err != nil {
		return nil, err
	}

	if !booking.Status.Payable() {
		return nil, apperrors.E(apperrors.KindInvalidState,
			"booking %s is %s, payment is not allowed", bookingReference, booking.Status)
	}
	if booking.HoldExpired(time.Now()) {
		return nil, apperrors.E(apperrors.KindHoldExpired, "hold on booking %s has expired", bookingReference)
	}

	_, err = tx.Exec(`
		UPDATE bookings SET status = $1, updated_at = NOW() WHERE id = $2
	`, models.BookingStatusPendingPayment, booking.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to mark pending payment: %w", err)
	}
	booking.Status = models.BookingStatusPendingPayment

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return booking, nil
}

// ConfirmBooking finalizes a paid booking: seats become Sold, ticket numbers
// and the PNR are assigned, and the successful payment is recorded. The PNR
// is retried on collision; uniqueness is enforced over non-Expired bookings
// by a partial unique index.
func (r *BookingRepository) ConfirmBooking(bookingReference string, amount float64, method models.PaymentMethod, transactionID string) (*models.Booking, error) {
	var confirmed *models.Booking

	for attempt := 0; attempt < pnrMaxAttempts; attempt++ {
		pnr, err := generatePNR()
		if err != nil {
			return nil, err
		}

		confirmed, err = r.confirmWithPNR(bookingReference, pnr, amount, method, transactionID)
		if err == nil {
			return confirmed, nil
		}
		if isPNRCollision(err) {
			continue
		}
		return nil, err
	}

	return nil, apperrors.E(apperrors.KindInternal, "could not allocate a unique PNR after %d attempts", pnrMaxAttempts)
}

func (r *BookingRepository) confirmWithPNR(bookingReference, pnr string, amount float64, method models.PaymentMethod, transactionID string) (*models.Booking, error) {
	tx, err := r.db.Beginx()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	booking, err := getBookingForUpdate(tx, bookingReference)
	if err != nil {
		return nil, err
	}

	if !booking.Status.Payable() {
		return nil, apperrors.E(apperrors.KindInvalidState,
			"booking %s is %s, it cannot be confirmed", bookingReference, booking.Status)
	}
	if booking.HoldExpired(time.Now()) {
		return nil, apperrors.E(apperrors.KindHoldExpired, "hold on booking %s has expired", bookingReference)
	}

	_, err = tx.Exec(`
		UPDATE bookings
		SET status = $1, pnr = $2, paid_amount = $3, transaction_id = $4, updated_at = NOW()
		WHERE id = $5
	`, models.BookingStatusConfirmed, pnr, amount, transactionID, booking.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to confirm booking: %w", err)
	}

	_, err = tx.Exec(`
		UPDATE seats SET status = $1, updated_at = NOW() WHERE booking_id = $2
	`, models.SeatStatusSold, booking.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to mark seats sold: %w", err)
	}

	tickets, err := getTickets(tx, booking.ID)
	if err != nil {
		return nil, err
	}
	for i := range tickets {
		number := fmt.Sprintf("%s-%03d", pnr, i+1)
		_, err = tx.Exec(`
			UPDATE tickets SET ticket_number = $1 WHERE id = $2
		`, number, tickets[i].ID)
		if err != nil {
			return nil, fmt.Errorf("failed to assign ticket number: %w", err)
		}
		tickets[i].TicketNumber = &number
	}

	_, err = tx.Exec(`
		INSERT INTO payments (booking_reference, amount, method, status, transaction_id, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
	`, bookingReference, amount, method, models.PaymentStatusSuccess, transactionID)
	if err != nil {
		return nil, fmt.Errorf("failed to record payment: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	booking.Status = models.BookingStatusConfirmed
	booking.PNR = &pnr
	booking.PaidAmount = amount
	booking.TransactionID = &transactionID
	booking.Tickets = tickets
	return booking, nil
}

// isPNRCollision detects a unique violation on the PNR partial index
func isPNRCollision(err error) bool {
	var pqErr *pq.Error
	if !asPQError(err, &pqErr) {
		return false
	}
	return pqErr.Code == "23505" && strings.Contains(pqErr.Constraint, "pnr")
}

func asPQError(err error, target **pq.Error) bool {
	for err != nil {
		if pe, ok := err.(*pq.Error); ok {
			*target = pe
			return true
		}
		unwrapper, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = unwrapper.Unwrap()
	}
	return false
}

// RecordFailedPayment logs a failed payment attempt. The booking itself is
// left in PendingPayment so the user can retry.
func (r *BookingRepository) RecordFailedPayment(bookingReference string, amount float64, method models.PaymentMethod, transactionID string) error {
	_, err := r.db.Exec(`
		INSERT INTO payments (booking_reference, amount, method, status, transaction_id, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
	`, bookingReference, amount, method, models.PaymentStatusFailed, transactionID)
	if err != nil {
		return fmt.Errorf("failed to record failed payment: %w", err)
	}
	return nil
}

// CancelBooking cancels a booking and releases its seats. Staff callers pass
// staffOverride to cancel on a customer's behalf. Cancelling a booking that
// is already Cancelled or Expired is a no-op returning the existing state.
func (r *BookingRepository) CancelBooking(bookingReference, userID string, staffOverride bool) (*models.Booking, error) {
	tx, err := r.db.Beginx()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	booking, err := getBookingForUpdate(tx, bookingReference)
	if err != nil {
		return nil, err
	}

	if booking.UserID != userID && !staffOverride {
		return nil, apperrors.E(apperrors.KindForbidden, "booking %s does not belong to this user", bookingReference)
	}

	switch booking.Status {
	case models.BookingStatusCancelled, models.BookingStatusExpired:
		return booking, nil
	}

	_, err = tx.Exec(`
		UPDATE bookings SET status = $1, updated_at = NOW() WHERE id = $2
	`, models.BookingStatusCancelled, booking.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to cancel booking: %w", err)
	}

	_, err = tx.Exec(`
		UPDATE seats SET status = $1, booking_id = NULL, updated_at = NOW() WHERE booking_id = $2
	`, models.SeatStatusAvailable, booking.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to release seats: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	booking.Status = models.BookingStatusCancelled
	return booking, nil
}

// ReapExpiredHolds expires every lapsed hold and releases its seats.
// Each booking is processed in its own short transaction so one poisoned row
// cannot wedge the sweep.
func (r *BookingRepository) ReapExpiredHolds() (int, error) {
	var ids []string
	err := r.db.Select(&ids, `
		SELECT id FROM bookings
		WHERE status IN ('Held', 'PendingPayment') AND hold_expires_at < NOW()
		ORDER BY hold_expires_at
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to list expired holds: %w", err)
	}

	reaped := 0
	for _, id := range ids {
		if err := r.expireOne(id); err != nil {
			return reaped, err
		}
		reaped++
	}
	return reaped, nil
}

func (r *BookingRepository) expireOne(bookingID string) error {
	tx, err := r.db.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// Re-check under lock: the user may have paid between the scan and now
	result, err := tx.Exec(`
		UPDATE bookings SET status = $1, updated_at = NOW()
		WHERE id = $2 AND status IN ('Held', 'PendingPayment') AND hold_expires_at < NOW()
	`, models.BookingStatusExpired, bookingID)
	if err != nil {
		return fmt.Errorf("failed to expire booking: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return tx.Commit()
	}

	_, err = tx.Exec(`
		UPDATE seats SET status = $1, booking_id = NULL, updated_at = NOW() WHERE booking_id = $2
	`, models.SeatStatusAvailable, bookingID)
	if err != nil {
		return fmt.Errorf("failed to release expired seats: %w", err)
	}

	return tx.Commit()
}

// GetBookingByReference returns the booking with its tickets, or nil
func (r *BookingRepository) GetBookingByReference(bookingReference string) (*models.Booking, error) {
	var booking models.Booking
	err := r.db.Get(&booking, `
		SELECT id, booking_reference, pnr, user_id, flight_id, tier, status,
		       total_fare, paid_amount, transaction_id, hold_expires_at,
		       created_at, updated_at
		FROM bookings WHERE booking_reference = $1
	`, bookingReference)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}

	if err := r.attachTickets(&booking); err != nil {
		return nil, err
	}
	return &booking, nil
}

// GetBookingByPNR returns the non-expired booking with the given PNR, or nil
func (r *BookingRepository) GetBookingByPNR(pnr string) (*models.Booking, error) {
	var booking models.Booking
	err := r.db.Get(&booking, `
		SELECT id, booking_reference, pnr, user_id, flight_id, tier, status,
		       total_fare, paid_amount, transaction_id, hold_expires_at,
		       created_at, updated_at
		FROM bookings WHERE pnr = $1 AND status <> 'Expired'
	`, strings.ToUpper(pnr))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get booking by PNR: %w", err)
	}

	if err := r.attachTickets(&booking); err != nil {
		return nil, err
	}
	return &booking, nil
}

// ListUserBookings returns a user's bookings, newest first
func (r *BookingRepository) ListUserBookings(userID string) ([]models.Booking, error) {
	var bookings []models.Booking
	err := r.db.Select(&bookings, `
		SELECT id, booking_reference, pnr, user_id, flight_id, tier, status,
		       total_fare, paid_amount, transaction_id, hold_expires_at,
		       created_at, updated_at
		FROM bookings WHERE user_id = $1
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}

	for i := range bookings {
		if err := r.attachTickets(&bookings[i]); err != nil {
			return nil, err
		}
	}
	return bookings, nil
}

func (r *BookingRepository) attachTickets(booking *models.Booking) error {
	err := r.db.Select(&booking.Tickets, `
		SELECT id, booking_id, seat_id, passenger_name, passenger_age,
		       passenger_gender, ticket_number, seat_number, seat_class, created_at
		FROM tickets WHERE booking_id = $1
		ORDER BY seat_number
	`, booking.ID)
	if err != nil {
		return fmt.Errorf("failed to load tickets: %w", err)
	}
	return nil
}

func getBookingForUpdate(tx *sqlx.Tx, bookingReference string) (*models.Booking, error) {
	var booking models.Booking
	err := tx.Get(&booking, `
		SELECT id, booking_reference, pnr, user_id, flight_id, tier, status,
		       total_fare, paid_amount, transaction_id, hold_expires_at,
		       created_at, updated_at
		FROM bookings WHERE booking_reference = $1
		FOR UPDATE
	`, bookingReference)
	if err == sql.ErrNoRows {
		return nil, apperrors.E(apperrors.KindNotFound, "booking %s not found", bookingReference)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock booking: %w", err)
	}
	return &booking, nil
}

func getTickets(tx *sqlx.Tx, bookingID string) ([]models.Ticket, error) {
	var tickets []models.Ticket
	err := tx.Select(&tickets, `
		SELECT id, booking_id, seat_id, passenger_name, passenger_age,
		       passenger_gender, ticket_number, seat_number, seat_class, created_at
		FROM tickets WHERE booking_id = $1
		ORDER BY seat_number
	`, bookingID)
	if err != nil {
		return nil, fmt.Errorf("failed to load tickets: %w", err)
	}
	return tickets, nil
}

// GetDB returns the underlying database connection
func (r *BookingRepository) GetDB() *sqlx.DB {
	return r.db
}
