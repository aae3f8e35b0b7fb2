package services

import (
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/flightbooker/backend/internal/apperrors"
	"github.com/flightbooker/backend/internal/database"
	"github.com/flightbooker/backend/internal/models"
	"github.com/flightbooker/backend/internal/pricing"
)

// SearchService answers flight search and detail queries with live fares
type SearchService struct {
	flightRepo  *database.FlightRepository
	catalogRepo *database.CatalogRepository
	logger      *logrus.Logger
}

// NewSearchService creates a new SearchService
func NewSearchService(flightRepo *database.FlightRepository, catalogRepo *database.CatalogRepository, logger *logrus.Logger) *SearchService {
	return &SearchService{
		flightRepo:  flightRepo,
		catalogRepo: catalogRepo,
		logger:      logger,
	}
}

// SearchResult is one page of priced flights
type SearchResult struct {
	Flights  []models.FlightSummary `json:"flights"`
	Page     int                    `json:"page"`
	PageSize int                    `json:"page_size"`
	Total    int                    `json:"total"`
}

// Search returns flights on the route priced live per tier. Flights without
// room for the whole party are still listed; seats_by_class tells the caller
// what remains. Price ordering can only be applied after pricing, so it
// happens here rather than in SQL.
func (s *SearchService) Search(req *models.SearchFlightsRequest) (*SearchResult, error) {
	if err := req.Validate(); err != nil {
		return nil, apperrors.Wrap(apperrors.KindInvalidArgument, err, "invalid search request")
	}

	for _, code := range []string{req.Origin, req.Destination} {
		airport, err := s.catalogRepo.GetAirportByCode(code)
		if err != nil {
			return nil, err
		}
		if airport == nil {
			return nil, apperrors.E(apperrors.KindNotFound, "airport %s not found", code)
		}
	}

	flights, err := s.flightRepo.SearchFlights(req)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	summaries := make([]models.FlightSummary, 0, len(flights))
	for i := range flights {
		summary, err := s.summarize(&flights[i], now)
		if err != nil {
			s.logger.WithError(err).WithField("flight_id", flights[i].ID).Warn("Search: flight skipped")
			continue
		}
		summaries = append(summaries, *summary)
	}

	if req.SortBy == models.SortByPrice {
		tier := models.ClassEconomy
		if req.Tier != nil {
			tier = *req.Tier
		}
		sort.SliceStable(summaries, func(i, j int) bool {
			pi, pj := priceFor(summaries[i], tier), priceFor(summaries[j], tier)
			if pi != pj {
				return pi < pj
			}
			return summaries[i].ID < summaries[j].ID
		})
	}

	total := len(summaries)
	start := (req.Page - 1) * req.PageSize
	if start > total {
		start = total
	}
	end := start + req.PageSize
	if end > total {
		end = total
	}

	return &SearchResult{
		Flights:  summaries[start:end],
		Page:     req.Page,
		PageSize: req.PageSize,
		Total:    total,
	}, nil
}

// GetFlight returns one flight with live fares and seat counts
func (s *SearchService) GetFlight(flightID string) (*models.FlightSummary, error) {
	flight, err := s.flightRepo.GetFlightByID(flightID)
	if err != nil {
		return nil, err
	}
	if flight == nil {
		return nil, apperrors.E(apperrors.KindNotFound, "flight %s not found", flightID)
	}
	return s.summarize(flight, time.Now())
}

// GetSeatMap returns the seat map for seat selection
func (s *SearchService) GetSeatMap(flightID string) ([]models.SeatMapEntry, error) {
	flight, err := s.flightRepo.GetFlightByID(flightID)
	if err != nil {
		return nil, err
	}
	if flight == nil {
		return nil, apperrors.E(apperrors.KindNotFound, "flight %s not found", flightID)
	}
	return s.flightRepo.GetSeatMap(flightID)
}

// FareHistory returns the recorded fare time series for charting
func (s *SearchService) FareHistory(flightID string, tier *models.CabinClass, limit int) ([]models.FareHistorySample, error) {
	if tier != nil && !tier.Valid() {
		return nil, apperrors.E(apperrors.KindInvalidArgument, "unknown tier %q", *tier)
	}
	if limit < 1 || limit > 1000 {
		limit = 288 // one day of 5-minute samples
	}

	flight, err := s.flightRepo.GetFlightByID(flightID)
	if err != nil {
		return nil, err
	}
	if flight == nil {
		return nil, apperrors.E(apperrors.KindNotFound, "flight %s not found", flightID)
	}

	return s.flightRepo.ListFareHistory(flightID, tier, limit)
}

func (s *SearchService) summarize(flight *models.Flight, now time.Time) (*models.FlightSummary, error) {
	counts, err := s.flightRepo.SeatCountsByClass(flight.ID)
	if err != nil {
		return nil, err
	}

	priceMap := make(map[models.CabinClass]float64, len(flight.BaseFare))
	seatsByClass := make(map[models.CabinClass]int, len(counts))
	for tier := range flight.BaseFare {
		count, ok := counts[tier]
		if !ok {
			continue
		}
		seatsByClass[tier] = count.Available

		fare, err := pricing.Quote(pricing.Snapshot{
			BaseFare:       flight.BaseFare,
			SeatsAvailable: count.Available,
			SeatsTotal:     count.Total,
			DepartureTime:  flight.DepartureTime,
			DemandIndex:    flight.DemandIndex,
		}, tier, now)
		if err != nil {
			return nil, err
		}
		priceMap[tier] = fare
	}

	return &models.FlightSummary{
		Flight:       *flight,
		DurationMins: flight.DurationMinutes(),
		PriceMap:     priceMap,
		SeatsByClass: seatsByClass,
	}, nil
}

func priceFor(summary models.FlightSummary, tier models.CabinClass) float64 {
	if fare, ok := summary.PriceMap[tier]; ok {
		return fare
	}
	// Flights without the tier sort after flights that have it
	lowest := 0.0
	for _, fare := range summary.PriceMap {
		if lowest == 0 || fare < lowest {
			lowest = fare
		}
	}
	if lowest == 0 {
		return 1e18
	}
	return lowest * 1e6
}
