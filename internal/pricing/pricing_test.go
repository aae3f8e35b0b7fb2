package pricing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flightbooker/backend/internal/apperrors"
	"github.com/flightbooker/backend/internal/models"
)

func snapshot() Snapshot {
	return Snapshot{
		BaseFare:       models.FareMap{models.ClassEconomy: 5000, models.ClassBusiness: 12000},
		SeatsAvailable: 100,
		SeatsTotal:     100,
		DepartureTime:  time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC),
		DemandIndex:    10,
	}
}

func TestQuote(t *testing.T) {
	now := time.Date(2026, 3, 7, 9, 0, 0, 0, time.UTC) // 72h out

	t.Run("Quiet Flight Prices At Base", func(t *testing.T) {
		fare, err := Quote(snapshot(), models.ClassEconomy, now)
		require.NoError(t, err)
		// empty cabin, low demand, 72h out: only the time factor applies
		assert.InDelta(t, 5000*1.15, fare, 0.01)
	})

	t.Run("Deterministic", func(t *testing.T) {
		a, err := Quote(snapshot(), models.ClassEconomy, now)
		require.NoError(t, err)
		b, err := Quote(snapshot(), models.ClassEconomy, now)
		require.NoError(t, err)
		assert.Equal(t, a, b)
	})

	t.Run("Class Factor Applied", func(t *testing.T) {
		eco, err := Quote(snapshot(), models.ClassEconomy, now)
		require.NoError(t, err)
		biz, err := Quote(snapshot(), models.ClassBusiness, now)
		require.NoError(t, err)
		assert.Greater(t, biz, eco)
	})

	t.Run("Floor And Cap", func(t *testing.T) {
		snap := snapshot()
		for avail := 0; avail <= snap.SeatsTotal; avail += 5 {
			for _, idx := range []float64{0, 24, 49, 74, 100} {
				s := snap
				s.SeatsAvailable = avail
				s.DemandIndex = idx
				fare, err := Quote(s, models.ClassEconomy, now)
				require.NoError(t, err)
				assert.GreaterOrEqual(t, fare, 5000.0)
				assert.LessOrEqual(t, fare, 50000.0)
			}
		}
	})

	t.Run("Monotone In Fill Ratio", func(t *testing.T) {
		prev := 0.0
		for avail := snapshot().SeatsTotal; avail >= 0; avail-- {
			s := snapshot()
			s.SeatsAvailable = avail
			fare, err := Quote(s, models.ClassEconomy, now)
			require.NoError(t, err)
			assert.GreaterOrEqual(t, fare, prev, "fare dropped as seats filled (available=%d)", avail)
			prev = fare
		}
	})

	t.Run("Monotone As Departure Approaches", func(t *testing.T) {
		prev := 0.0
		for _, hoursOut := range []float64{1000, 720, 300, 168, 100, 48, 24, 1} {
			at := snapshot().DepartureTime.Add(-time.Duration(hoursOut * float64(time.Hour)))
			fare, err := Quote(snapshot(), models.ClassEconomy, at)
			require.NoError(t, err)
			assert.GreaterOrEqual(t, fare, prev, "fare dropped closer to departure (%vh out)", hoursOut)
			prev = fare
		}
	})

	t.Run("Monotone In Demand Index", func(t *testing.T) {
		prev := 0.0
		for idx := 0.0; idx <= 100; idx += 5 {
			s := snapshot()
			s.DemandIndex = idx
			fare, err := Quote(s, models.ClassEconomy, now)
			require.NoError(t, err)
			assert.GreaterOrEqual(t, fare, prev)
			prev = fare
		}
	})

	t.Run("Past Departure Returns Cap", func(t *testing.T) {
		late := snapshot().DepartureTime.Add(time.Minute)
		fare, err := Quote(snapshot(), models.ClassEconomy, late)
		require.NoError(t, err)
		assert.Equal(t, 50000.0, fare)
	})

	t.Run("Missing Tier Rejected", func(t *testing.T) {
		_, err := Quote(snapshot(), models.ClassFirst, now)
		require.Error(t, err)
		assert.Equal(t, apperrors.KindInvalidArgument, apperrors.KindOf(err))
	})

	t.Run("Invalid Inputs Rejected", func(t *testing.T) {
		cases := map[string]func(*Snapshot){
			"negative available": func(s *Snapshot) { s.SeatsAvailable = -1 },
			"zero total":         func(s *Snapshot) { s.SeatsTotal = 0 },
			"available > total":  func(s *Snapshot) { s.SeatsAvailable = s.SeatsTotal + 1 },
			"demand below range": func(s *Snapshot) { s.DemandIndex = -0.1 },
			"demand above range": func(s *Snapshot) { s.DemandIndex = 100.1 },
			"zero base fare":     func(s *Snapshot) { s.BaseFare[models.ClassEconomy] = 0 },
		}
		for name, mutate := range cases {
			s := snapshot()
			s.BaseFare = models.FareMap{models.ClassEconomy: 5000}
			mutate(&s)
			_, err := Quote(s, models.ClassEconomy, now)
			require.Error(t, err, name)
			assert.Equal(t, apperrors.KindInvalidArgument, apperrors.KindOf(err), name)
		}
	})
}
