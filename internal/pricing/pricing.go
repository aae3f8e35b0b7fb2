// Package pricing implements the dynamic fare computation. It is a pure
// function of a flight snapshot: no I/O, deterministic for fixed inputs.
package pricing

import (
	"math"
	"time"

	"github.com/flightbooker/backend/internal/apperrors"
	"github.com/flightbooker/backend/internal/models"
)

// FareCapMultiplier bounds any computed fare at 10x the base fare
const FareCapMultiplier = 10.0

// Snapshot is the value-type input the engine prices against. A thin
// loader produces it from committed flight and seat state.
type Snapshot struct {
	BaseFare       models.FareMap
	SeatsAvailable int
	SeatsTotal     int
	DepartureTime  time.Time
	DemandIndex    float64
}

var classFactors = map[models.CabinClass]float64{
	models.ClassEconomy:     1.0,
	models.ClassEconomyFlex: 1.2,
	models.ClassBusiness:    1.8,
	models.ClassFirst:       2.5,
}

// inventoryFactor grows with the fill ratio. inventoryFactor(0) == 1.
func inventoryFactor(fillRatio float64) float64 {
	switch {
	case fillRatio <= 0.3:
		return 1.0
	case fillRatio <= 0.6:
		return 1.1
	case fillRatio <= 0.8:
		return 1.25
	default:
		return 1.4
	}
}

// timeFactor grows as departure approaches
func timeFactor(hoursUntilDeparture float64) float64 {
	switch {
	case hoursUntilDeparture > 720: // > 30 days
		return 1.0
	case hoursUntilDeparture > 168: // 7-30 days
		return 1.05
	case hoursUntilDeparture > 48: // 2-7 days
		return 1.15
	default: // < 48 hours
		return 1.30
	}
}

// demandFactor buckets the demand index
func demandFactor(demandIndex float64) float64 {
	switch {
	case demandIndex < 25:
		return 1.0
	case demandIndex < 50:
		return 1.15
	case demandIndex < 75:
		return 1.35
	default:
		return 1.6
	}
}

// Quote returns the current fare for one passenger of the given tier.
// The result is floored at the tier base fare and capped at 10x it.
func Quote(snap Snapshot, tier models.CabinClass, now time.Time) (float64, error) {
	if !tier.Valid() {
		return 0, apperrors.E(apperrors.KindInvalidArgument, "unknown tier %q", tier)
	}
	base, ok := snap.BaseFare[tier]
	if !ok {
		return 0, apperrors.E(apperrors.KindInvalidArgument, "no base fare configured for tier %s", tier)
	}
	if base <= 0 {
		return 0, apperrors.E(apperrors.KindInvalidArgument, "base fare for %s must be positive", tier)
	}
	if snap.SeatsTotal <= 0 {
		return 0, apperrors.E(apperrors.KindInvalidArgument, "seats_total must be positive")
	}
	if snap.SeatsAvailable < 0 || snap.SeatsAvailable > snap.SeatsTotal {
		return 0, apperrors.E(apperrors.KindInvalidArgument, "seats_available out of range")
	}
	if snap.DemandIndex < 0 || snap.DemandIndex > 100 {
		return 0, apperrors.E(apperrors.KindInvalidArgument, "demand_index must be within [0, 100]")
	}

	// Past departure the window is closed; the cap is returned so a stale
	// caller can never undercut a live fare.
	hours := snap.DepartureTime.Sub(now).Hours()
	if hours < 0 {
		return round2(base * FareCapMultiplier), nil
	}

	fillRatio := 1.0 - float64(snap.SeatsAvailable)/float64(snap.SeatsTotal)
	fare := base *
		inventoryFactor(fillRatio) *
		timeFactor(hours) *
		demandFactor(snap.DemandIndex) *
		classFactors[tier]

	fare = math.Min(fare, base*FareCapMultiplier)
	fare = math.Max(fare, base)
	return round2(fare), nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
