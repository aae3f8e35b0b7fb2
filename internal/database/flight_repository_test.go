package database

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flightbooker/backend/internal/models"
)

func newFlightRepo(t *testing.T) (*FlightRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewFlightRepository(sqlx.NewDb(db, "sqlmock")), mock
}

func TestGetFlightByID(t *testing.T) {
	t.Run("Found", func(t *testing.T) {
		repo, mock := newFlightRepo(t)
		mock.ExpectQuery(`SELECT (.+) FROM flights WHERE id`).
			WithArgs("flight-1").
			WillReturnRows(flightRow(models.FlightStatusScheduled, time.Now().Add(72*time.Hour)))

		flight, err := repo.GetFlightByID("flight-1")
		require.NoError(t, err)
		require.NotNil(t, flight)
		assert.Equal(t, "6E123", flight.FlightNumber)
		assert.Equal(t, 5000.0, flight.BaseFare[models.ClassEconomy])

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Not Found Returns Nil", func(t *testing.T) {
		repo, mock := newFlightRepo(t)
		mock.ExpectQuery(`SELECT (.+) FROM flights WHERE id`).
			WithArgs("ghost").
			WillReturnRows(sqlmock.NewRows(flightColumns))

		flight, err := repo.GetFlightByID("ghost")
		require.NoError(t, err)
		assert.Nil(t, flight)

		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestSearchFlights(t *testing.T) {
	t.Run("Route Only", func(t *testing.T) {
		repo, mock := newFlightRepo(t)
		mock.ExpectQuery(`SELECT (.+) FROM flights`).
			WithArgs("DEL", "BOM").
			WillReturnRows(flightRow(models.FlightStatusScheduled, time.Now().Add(72*time.Hour)))

		flights, err := repo.SearchFlights(&models.SearchFlightsRequest{
			Origin:      "DEL",
			Destination: "BOM",
		})
		require.NoError(t, err)
		require.Len(t, flights, 1)
		assert.Equal(t, "6E123", flights[0].FlightNumber)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Only Cancelled Flights Are Filtered", func(t *testing.T) {
		repo, mock := newFlightRepo(t)
		// Departed and past flights still come back; the only status filter
		// is Cancelled, and ordering ties break on id
		mock.ExpectQuery(`AND status <> 'Cancelled'\s+ORDER BY departure_time, id`).
			WithArgs("DEL", "BOM").
			WillReturnRows(flightRow(models.FlightStatusDeparted, time.Now().Add(-2*time.Hour)))

		flights, err := repo.SearchFlights(&models.SearchFlightsRequest{
			Origin:      "DEL",
			Destination: "BOM",
		})
		require.NoError(t, err)
		require.Len(t, flights, 1)
		assert.Equal(t, models.FlightStatusDeparted, flights[0].Status)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("With Date Window", func(t *testing.T) {
		repo, mock := newFlightRepo(t)
		date := time.Date(2026, 9, 10, 0, 0, 0, 0, time.UTC)
		mock.ExpectQuery(`SELECT (.+) FROM flights`).
			WithArgs("DEL", "BOM", date, date.Add(24*time.Hour)).
			WillReturnRows(sqlmock.NewRows(flightColumns))

		flights, err := repo.SearchFlights(&models.SearchFlightsRequest{
			Origin:      "DEL",
			Destination: "BOM",
			Date:        &date,
		})
		require.NoError(t, err)
		assert.Empty(t, flights)

		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestListUpcomingFlightIDs(t *testing.T) {
	t.Run("Unbounded By Default", func(t *testing.T) {
		repo, mock := newFlightRepo(t)
		mock.ExpectQuery(`departure_time > NOW\(\)\s+ORDER BY departure_time`).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("flight-1").AddRow("flight-2"))

		ids, err := repo.ListUpcomingFlightIDs(0)
		require.NoError(t, err)
		assert.Equal(t, []string{"flight-1", "flight-2"}, ids)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Departure Window Applied", func(t *testing.T) {
		repo, mock := newFlightRepo(t)
		mock.ExpectQuery(`SELECT id FROM flights`).
			WithArgs("259200 seconds").
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("flight-1"))

		ids, err := repo.ListUpcomingFlightIDs(72 * time.Hour)
		require.NoError(t, err)
		assert.Equal(t, []string{"flight-1"}, ids)

		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestSeatCountsByClass(t *testing.T) {
	repo, mock := newFlightRepo(t)
	mock.ExpectQuery(`SELECT class`).
		WithArgs("flight-1").
		WillReturnRows(sqlmock.NewRows([]string{"class", "available", "total"}).
			AddRow("Economy", 87, 120).
			AddRow("Business", 16, 16))

	counts, err := repo.SeatCountsByClass("flight-1")
	require.NoError(t, err)
	assert.Equal(t, 87, counts[models.ClassEconomy].Available)
	assert.Equal(t, 120, counts[models.ClassEconomy].Total)
	assert.Equal(t, 16, counts[models.ClassBusiness].Available)
	_, ok := counts[models.ClassFirst]
	assert.False(t, ok)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateFlightStatus(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		repo, mock := newFlightRepo(t)
		delay := 45
		reason := "late inbound aircraft"
		mock.ExpectExec(`UPDATE flights`).
			WithArgs(models.FlightStatusDelayed, delay, &reason, "flight-1").
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.UpdateFlightStatus("flight-1", &models.UpdateFlightStatusRequest{
			Status:       models.FlightStatusDelayed,
			DelayMinutes: &delay,
			DelayReason:  &reason,
		})
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Missing Flight", func(t *testing.T) {
		repo, mock := newFlightRepo(t)
		mock.ExpectExec(`UPDATE flights`).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.UpdateFlightStatus("ghost", &models.UpdateFlightStatusRequest{
			Status: models.FlightStatusBoarding,
		})
		assert.Error(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestUpdateDemandAndRecordFares(t *testing.T) {
	repo, mock := newFlightRepo(t)
	sampledAt := time.Now()

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE flights SET demand_index`).
		WithArgs(42.5, "flight-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO fare_history`).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	err := repo.UpdateDemandAndRecordFares("flight-1", 42.5,
		map[models.CabinClass]float64{models.ClassEconomy: 6050}, sampledAt)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListFareHistory(t *testing.T) {
	repo, mock := newFlightRepo(t)
	base := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)

	// The query returns newest-first; the repository reverses for charting
	mock.ExpectQuery(`SELECT (.+) FROM fare_history`).
		WithArgs("flight-1", models.ClassEconomy, 288).
		WillReturnRows(sqlmock.NewRows([]string{"id", "flight_id", "tier", "fare", "demand_index", "sampled_at"}).
			AddRow(3, "flight-1", "Economy", 6200.0, 48.0, base.Add(10*time.Minute)).
			AddRow(2, "flight-1", "Economy", 6100.0, 45.0, base.Add(5*time.Minute)).
			AddRow(1, "flight-1", "Economy", 6050.0, 42.5, base))

	tier := models.ClassEconomy
	samples, err := repo.ListFareHistory("flight-1", &tier, 288)
	require.NoError(t, err)
	require.Len(t, samples, 3)
	assert.Equal(t, 6050.0, samples[0].Fare)
	assert.Equal(t, 6200.0, samples[2].Fare)
	assert.True(t, samples[0].SampledAt.Before(samples[2].SampledAt))

	assert.NoError(t, mock.ExpectationsWereMet())
}
