package services

import (
	"math/rand"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/flightbooker/backend/internal/config"
	"github.com/flightbooker/backend/internal/database"
	"github.com/flightbooker/backend/internal/models"
	"github.com/flightbooker/backend/internal/pricing"
)

// DemandSimulatorService drives the market: on every tick it walks each
// upcoming flight's demand index and appends the resulting fares to the
// fare history. Each flight is committed in its own short transaction, so a
// bad row only loses its own tick.
type DemandSimulatorService struct {
	flightRepo *database.FlightRepository
	config     config.SimulatorConfig
	logger     *logrus.Logger

	mu  sync.Mutex
	rng *rand.Rand
}

// NewDemandSimulatorService creates a new DemandSimulatorService
func NewDemandSimulatorService(flightRepo *database.FlightRepository, cfg config.SimulatorConfig, logger *logrus.Logger) *DemandSimulatorService {
	return &DemandSimulatorService{
		flightRepo: flightRepo,
		config:     cfg,
		logger:     logger,
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Tick runs one simulation pass over all upcoming flights. It returns the
// number of flights updated; per-flight failures are logged and skipped.
func (s *DemandSimulatorService) Tick() int {
	window := time.Duration(s.config.WindowHours) * time.Hour
	ids, err := s.flightRepo.ListUpcomingFlightIDs(window)
	if err != nil {
		s.logger.WithError(err).Error("Demand tick: failed to list flights")
		return 0
	}

	now := time.Now()
	updated := 0
	for _, id := range ids {
		if err := s.tickFlight(id, now); err != nil {
			s.logger.WithError(err).WithField("flight_id", id).Warn("Demand tick: flight skipped")
			continue
		}
		updated++
	}

	if updated > 0 {
		s.logger.WithFields(logrus.Fields{
			"flights": updated,
			"skipped": len(ids) - updated,
		}).Debug("Demand tick complete")
	}
	return updated
}

func (s *DemandSimulatorService) tickFlight(flightID string, now time.Time) error {
	flight, err := s.flightRepo.GetFlightByID(flightID)
	if err != nil {
		return err
	}
	if flight == nil {
		return nil
	}

	counts, err := s.flightRepo.SeatCountsByClass(flightID)
	if err != nil {
		return err
	}

	demand := s.step(flight.DemandIndex, flight.DepartureTime.Sub(now))

	fares := make(map[models.CabinClass]float64, len(flight.BaseFare))
	for tier := range flight.BaseFare {
		count, ok := counts[tier]
		if !ok {
			continue
		}
		fare, err := pricing.Quote(pricing.Snapshot{
			BaseFare:       flight.BaseFare,
			SeatsAvailable: count.Available,
			SeatsTotal:     count.Total,
			DepartureTime:  flight.DepartureTime,
			DemandIndex:    demand,
		}, tier, now)
		if err != nil {
			return err
		}
		fares[tier] = fare
	}

	return s.flightRepo.UpdateDemandAndRecordFares(flightID, demand, fares, now)
}

// step advances the demand index one bounded random-walk step. The walk
// drifts upward as departure approaches: travel demand concentrates in the
// final days before a flight.
func (s *DemandSimulatorService) step(current float64, untilDeparture time.Duration) float64 {
	s.mu.Lock()
	delta := (s.rng.Float64()*2 - 1) * s.config.MaxStepSize
	s.mu.Unlock()

	hoursOut := untilDeparture.Hours()
	switch {
	case hoursOut <= 48:
		delta += s.config.MaxStepSize * 0.5
	case hoursOut <= 168:
		delta += s.config.MaxStepSize * 0.25
	}

	next := current + delta
	if next < 0 {
		next = 0
	}
	if next > 100 {
		next = 100
	}
	return next
}
