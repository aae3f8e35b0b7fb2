package database

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flightbooker/backend/internal/apperrors"
	"github.com/flightbooker/backend/internal/models"
)

var (
	flightColumns = []string{
		"id", "flight_number", "airline_code", "origin_code", "destination_code",
		"aircraft_id", "departure_time", "arrival_time", "base_fare", "demand_index",
		"status", "delay_minutes", "delay_reason", "gate", "created_at", "updated_at",
	}
	bookingColumns = []string{
		"id", "booking_reference", "pnr", "user_id", "flight_id", "tier", "status",
		"total_fare", "paid_amount", "transaction_id", "hold_expires_at",
		"created_at", "updated_at",
	}
	seatColumns = []string{
		"id", "flight_id", "seat_number", "class", "position", "surcharge",
		"status", "booking_id", "created_at", "updated_at",
	}
	ticketColumns = []string{
		"id", "booking_id", "seat_id", "passenger_name", "passenger_age",
		"passenger_gender", "ticket_number", "seat_number", "seat_class", "created_at",
	}
)

func newBookingRepo(t *testing.T) (*BookingRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewBookingRepository(sqlx.NewDb(db, "sqlmock")), mock
}

func flightRow(status models.FlightStatus, departure time.Time) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(flightColumns).AddRow(
		"flight-1", "6E123", "6E", "DEL", "BOM",
		"aircraft-1", departure, departure.Add(2*time.Hour), []byte(`{"Economy":5000}`), 20.0,
		status, 0, nil, nil, now, now,
	)
}

func bookingRow(status models.BookingStatus, userID string, holdExpiresAt time.Time) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(bookingColumns).AddRow(
		"booking-1", "FB0011223344", nil, userID, "flight-1", "Economy", status,
		10000.0, 0.0, nil, holdExpiresAt, now, now,
	)
}

func TestCreateHold(t *testing.T) {
	req := func() *models.CreateBookingRequest {
		return &models.CreateBookingRequest{
			UserID:   "user-1",
			FlightID: "flight-1",
			Tier:     models.ClassEconomy,
			Passengers: []models.PassengerInput{
				{Name: "Jo Smith", Age: 34, Gender: "F"},
			},
		}
	}
	fixedQuote := func(fare float64) QuoteFunc {
		return func(_ *models.Flight, _, _ int) (float64, error) { return fare, nil }
	}

	t.Run("Success", func(t *testing.T) {
		repo, mock := newBookingRepo(t)
		now := time.Now()

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT (.+) FROM flights WHERE id`).
			WithArgs("flight-1").
			WillReturnRows(flightRow(models.FlightStatusScheduled, now.Add(72*time.Hour)))
		mock.ExpectQuery(`SELECT class`).
			WithArgs("flight-1", models.ClassEconomy).
			WillReturnRows(sqlmock.NewRows([]string{"class", "available", "total"}).
				AddRow("Economy", 10, 100))
		mock.ExpectQuery(`SELECT (.+) FROM seats`).
			WillReturnRows(sqlmock.NewRows(seatColumns).
				AddRow("seat-12a", "flight-1", "12A", "Economy", "Window", 150.0, "Available", nil, now, now))
		mock.ExpectExec(`INSERT INTO bookings`).
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectExec(`UPDATE seats SET status`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`INSERT INTO tickets`).
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectCommit()

		booking, err := repo.CreateHold(req(), fixedQuote(5750), 15*time.Minute)
		require.NoError(t, err)
		assert.Equal(t, models.BookingStatusHeld, booking.Status)
		assert.InDelta(t, 5750+150, booking.TotalFare, 0.001) // unit fare plus window surcharge
		require.Len(t, booking.Tickets, 1)
		assert.Equal(t, "12A", booking.Tickets[0].SeatNumber)
		assert.True(t, booking.HoldExpiresAt.After(now))

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Flight Not Bookable", func(t *testing.T) {
		repo, mock := newBookingRepo(t)

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT (.+) FROM flights WHERE id`).
			WithArgs("flight-1").
			WillReturnRows(flightRow(models.FlightStatusCancelled, time.Now().Add(72*time.Hour)))
		mock.ExpectRollback()

		_, err := repo.CreateHold(req(), fixedQuote(5000), 15*time.Minute)
		require.Error(t, err)
		assert.Equal(t, apperrors.KindFlightNotBookable, apperrors.KindOf(err))

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Departure In The Past", func(t *testing.T) {
		repo, mock := newBookingRepo(t)

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT (.+) FROM flights WHERE id`).
			WithArgs("flight-1").
			WillReturnRows(flightRow(models.FlightStatusScheduled, time.Now().Add(-time.Hour)))
		mock.ExpectRollback()

		_, err := repo.CreateHold(req(), fixedQuote(5000), 15*time.Minute)
		require.Error(t, err)
		assert.Equal(t, apperrors.KindFlightNotBookable, apperrors.KindOf(err))

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Not Enough Seats", func(t *testing.T) {
		repo, mock := newBookingRepo(t)

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT (.+) FROM flights WHERE id`).
			WithArgs("flight-1").
			WillReturnRows(flightRow(models.FlightStatusScheduled, time.Now().Add(72*time.Hour)))
		mock.ExpectQuery(`SELECT class`).
			WithArgs("flight-1", models.ClassEconomy).
			WillReturnRows(sqlmock.NewRows([]string{"class", "available", "total"}).
				AddRow("Economy", 0, 100))
		mock.ExpectRollback()

		_, err := repo.CreateHold(req(), fixedQuote(5000), 15*time.Minute)
		require.Error(t, err)
		assert.Equal(t, apperrors.KindSeatUnavailable, apperrors.KindOf(err))

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Quote Rejection Aborts The Hold", func(t *testing.T) {
		repo, mock := newBookingRepo(t)

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT (.+) FROM flights WHERE id`).
			WithArgs("flight-1").
			WillReturnRows(flightRow(models.FlightStatusScheduled, time.Now().Add(72*time.Hour)))
		mock.ExpectQuery(`SELECT class`).
			WithArgs("flight-1", models.ClassEconomy).
			WillReturnRows(sqlmock.NewRows([]string{"class", "available", "total"}).
				AddRow("Economy", 10, 100))
		mock.ExpectRollback()

		drifted := func(_ *models.Flight, _, _ int) (float64, error) {
			return 0, apperrors.E(apperrors.KindPriceChanged, "fare is now 6000.00, quoted 5000.00")
		}
		_, err := repo.CreateHold(req(), drifted, 15*time.Minute)
		require.Error(t, err)
		assert.Equal(t, apperrors.KindPriceChanged, apperrors.KindOf(err))

		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestMarkPendingPayment(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		repo, mock := newBookingRepo(t)

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT (.+) FROM bookings WHERE booking_reference`).
			WithArgs("FB0011223344").
			WillReturnRows(bookingRow(models.BookingStatusHeld, "user-1", time.Now().Add(10*time.Minute)))
		mock.ExpectExec(`UPDATE bookings SET status`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		booking, err := repo.MarkPendingPayment("FB0011223344")
		require.NoError(t, err)
		assert.Equal(t, models.BookingStatusPendingPayment, booking.Status)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Expired Hold Rejected", func(t *testing.T) {
		repo, mock := newBookingRepo(t)

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT (.+) FROM bookings WHERE booking_reference`).
			WithArgs("FB0011223344").
			WillReturnRows(bookingRow(models.BookingStatusHeld, "user-1", time.Now().Add(-time.Second)))
		mock.ExpectRollback()

		_, err := repo.MarkPendingPayment("FB0011223344")
		require.Error(t, err)
		assert.Equal(t, apperrors.KindHoldExpired, apperrors.KindOf(err))

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Confirmed Booking Rejected", func(t *testing.T) {
		repo, mock := newBookingRepo(t)

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT (.+) FROM bookings WHERE booking_reference`).
			WithArgs("FB0011223344").
			WillReturnRows(bookingRow(models.BookingStatusConfirmed, "user-1", time.Now().Add(10*time.Minute)))
		mock.ExpectRollback()

		_, err := repo.MarkPendingPayment("FB0011223344")
		require.Error(t, err)
		assert.Equal(t, apperrors.KindInvalidState, apperrors.KindOf(err))

		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestConfirmBooking(t *testing.T) {
	expectConfirmSuccess := func(mock sqlmock.Sqlmock) {
		now := time.Now()
		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT (.+) FROM bookings WHERE booking_reference`).
			WithArgs("FB0011223344").
			WillReturnRows(bookingRow(models.BookingStatusPendingPayment, "user-1", now.Add(10*time.Minute)))
		mock.ExpectExec(`UPDATE bookings`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`UPDATE seats SET status`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(`SELECT (.+) FROM tickets WHERE booking_id`).
			WithArgs("booking-1").
			WillReturnRows(sqlmock.NewRows(ticketColumns).
				AddRow("ticket-1", "booking-1", "seat-12a", "Jo Smith", 34, "F", nil, "12A", "Economy", now))
		mock.ExpectExec(`UPDATE tickets SET ticket_number`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`INSERT INTO payments`).
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectCommit()
	}

	t.Run("Success Assigns PNR And Ticket Numbers", func(t *testing.T) {
		repo, mock := newBookingRepo(t)
		expectConfirmSuccess(mock)

		booking, err := repo.ConfirmBooking("FB0011223344", 10000, models.PaymentMethodCard, "TXN-ABC")
		require.NoError(t, err)
		assert.Equal(t, models.BookingStatusConfirmed, booking.Status)
		require.NotNil(t, booking.PNR)
		assert.Len(t, *booking.PNR, 6)
		for _, ch := range *booking.PNR {
			assert.NotContains(t, "0O1I", string(ch))
		}
		require.Len(t, booking.Tickets, 1)
		require.NotNil(t, booking.Tickets[0].TicketNumber)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("PNR Collision Is Retried", func(t *testing.T) {
		repo, mock := newBookingRepo(t)

		// First attempt hits the partial unique index and rolls back
		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT (.+) FROM bookings WHERE booking_reference`).
			WithArgs("FB0011223344").
			WillReturnRows(bookingRow(models.BookingStatusPendingPayment, "user-1", time.Now().Add(10*time.Minute)))
		mock.ExpectExec(`UPDATE bookings`).
			WillReturnError(&pq.Error{Code: "23505", Constraint: "idx_bookings_pnr_live"})
		mock.ExpectRollback()

		// Second attempt succeeds with a fresh PNR
		expectConfirmSuccess(mock)

		booking, err := repo.ConfirmBooking("FB0011223344", 10000, models.PaymentMethodCard, "TXN-ABC")
		require.NoError(t, err)
		assert.Equal(t, models.BookingStatusConfirmed, booking.Status)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Expired Hold Rejected", func(t *testing.T) {
		repo, mock := newBookingRepo(t)

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT (.+) FROM bookings WHERE booking_reference`).
			WithArgs("FB0011223344").
			WillReturnRows(bookingRow(models.BookingStatusHeld, "user-1", time.Now().Add(-time.Minute)))
		mock.ExpectRollback()

		_, err := repo.ConfirmBooking("FB0011223344", 10000, models.PaymentMethodCard, "TXN-ABC")
		require.Error(t, err)
		assert.Equal(t, apperrors.KindHoldExpired, apperrors.KindOf(err))

		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestCancelBooking(t *testing.T) {
	t.Run("Success Releases Seats", func(t *testing.T) {
		repo, mock := newBookingRepo(t)

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT (.+) FROM bookings WHERE booking_reference`).
			WithArgs("FB0011223344").
			WillReturnRows(bookingRow(models.BookingStatusHeld, "user-1", time.Now().Add(10*time.Minute)))
		mock.ExpectExec(`UPDATE bookings SET status`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`UPDATE seats SET status`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		booking, err := repo.CancelBooking("FB0011223344", "user-1", false)
		require.NoError(t, err)
		assert.Equal(t, models.BookingStatusCancelled, booking.Status)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Foreign Booking Forbidden", func(t *testing.T) {
		repo, mock := newBookingRepo(t)

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT (.+) FROM bookings WHERE booking_reference`).
			WithArgs("FB0011223344").
			WillReturnRows(bookingRow(models.BookingStatusHeld, "user-1", time.Now().Add(10*time.Minute)))
		mock.ExpectRollback()

		_, err := repo.CancelBooking("FB0011223344", "someone-else", false)
		require.Error(t, err)
		assert.Equal(t, apperrors.KindForbidden, apperrors.KindOf(err))

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Staff May Cancel Another Users Booking", func(t *testing.T) {
		repo, mock := newBookingRepo(t)

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT (.+) FROM bookings WHERE booking_reference`).
			WithArgs("FB0011223344").
			WillReturnRows(bookingRow(models.BookingStatusConfirmed, "user-1", time.Now().Add(10*time.Minute)))
		mock.ExpectExec(`UPDATE bookings SET status`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`UPDATE seats SET status`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		booking, err := repo.CancelBooking("FB0011223344", "staff-1", true)
		require.NoError(t, err)
		assert.Equal(t, models.BookingStatusCancelled, booking.Status)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Cancelled Booking Is A NoOp", func(t *testing.T) {
		repo, mock := newBookingRepo(t)

		// No status or seat writes: the existing state comes straight back
		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT (.+) FROM bookings WHERE booking_reference`).
			WithArgs("FB0011223344").
			WillReturnRows(bookingRow(models.BookingStatusCancelled, "user-1", time.Now().Add(-time.Hour)))
		mock.ExpectRollback()

		booking, err := repo.CancelBooking("FB0011223344", "user-1", false)
		require.NoError(t, err)
		assert.Equal(t, models.BookingStatusCancelled, booking.Status)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Expired Booking Is A NoOp", func(t *testing.T) {
		repo, mock := newBookingRepo(t)

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT (.+) FROM bookings WHERE booking_reference`).
			WithArgs("FB0011223344").
			WillReturnRows(bookingRow(models.BookingStatusExpired, "user-1", time.Now().Add(-time.Hour)))
		mock.ExpectRollback()

		booking, err := repo.CancelBooking("FB0011223344", "user-1", false)
		require.NoError(t, err)
		assert.Equal(t, models.BookingStatusExpired, booking.Status)

		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestReapExpiredHolds(t *testing.T) {
	t.Run("Expires Each Hold In Its Own Transaction", func(t *testing.T) {
		repo, mock := newBookingRepo(t)

		mock.ExpectQuery(`SELECT id FROM bookings`).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("booking-1").AddRow("booking-2"))

		for i := 0; i < 2; i++ {
			mock.ExpectBegin()
			mock.ExpectExec(`UPDATE bookings SET status`).
				WillReturnResult(sqlmock.NewResult(0, 1))
			mock.ExpectExec(`UPDATE seats SET status`).
				WillReturnResult(sqlmock.NewResult(0, 1))
			mock.ExpectCommit()
		}

		reaped, err := repo.ReapExpiredHolds()
		require.NoError(t, err)
		assert.Equal(t, 2, reaped)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Hold Paid Between Scan And Sweep Survives", func(t *testing.T) {
		repo, mock := newBookingRepo(t)

		mock.ExpectQuery(`SELECT id FROM bookings`).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("booking-1"))

		// Re-check under lock finds nothing to expire, so no seats are touched
		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE bookings SET status`).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectCommit()

		reaped, err := repo.ReapExpiredHolds()
		require.NoError(t, err)
		assert.Equal(t, 1, reaped)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Nothing To Do", func(t *testing.T) {
		repo, mock := newBookingRepo(t)

		mock.ExpectQuery(`SELECT id FROM bookings`).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		reaped, err := repo.ReapExpiredHolds()
		require.NoError(t, err)
		assert.Equal(t, 0, reaped)

		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
