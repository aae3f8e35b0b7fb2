package services

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/flightbooker/backend/internal/apperrors"
	"github.com/flightbooker/backend/internal/database"
	"github.com/flightbooker/backend/internal/models"
)

// feedWindow bounds how far ahead the schedule feed looks
const feedWindow = 30 * 24 * time.Hour

// FeedService projects an airline's upcoming schedule into the flat feed
// format external consumers poll. The projection is deterministic: the same
// flight rows always produce the same feed.
type FeedService struct {
	flightRepo  *database.FlightRepository
	catalogRepo *database.CatalogRepository
	logger      *logrus.Logger
}

// NewFeedService creates a new FeedService
func NewFeedService(flightRepo *database.FlightRepository, catalogRepo *database.CatalogRepository, logger *logrus.Logger) *FeedService {
	return &FeedService{
		flightRepo:  flightRepo,
		catalogRepo: catalogRepo,
		logger:      logger,
	}
}

// FeedEntry is one flight line in a schedule feed
type FeedEntry struct {
	FlightNumber    string              `json:"flight_number"`
	OriginCode      string              `json:"origin_code"`
	DestinationCode string              `json:"destination_code"`
	DepartureTime   time.Time           `json:"departure_time"`
	ArrivalTime     time.Time           `json:"arrival_time"`
	Status          models.FlightStatus `json:"status"`
	DelayMinutes    int                 `json:"delay_minutes"`
	Gate            *string             `json:"gate,omitempty"`
}

// ScheduleFeed is the full feed document for one airline
type ScheduleFeed struct {
	AirlineCode string      `json:"airline_code"`
	AirlineName string      `json:"airline_name"`
	GeneratedAt time.Time   `json:"generated_at"`
	Flights     []FeedEntry `json:"flights"`
}

// Schedule builds the feed for the given airline code
func (s *FeedService) Schedule(airlineCode string) (*ScheduleFeed, error) {
	airline, err := s.catalogRepo.GetAirlineByCode(airlineCode)
	if err != nil {
		return nil, err
	}
	if airline == nil {
		return nil, apperrors.E(apperrors.KindNotFound, "airline %s not found", airlineCode)
	}

	flights, err := s.flightRepo.ListAirlineSchedule(airline.Code, feedWindow)
	if err != nil {
		return nil, err
	}

	entries := make([]FeedEntry, 0, len(flights))
	for _, f := range flights {
		entries = append(entries, FeedEntry{
			FlightNumber:    f.FlightNumber,
			OriginCode:      f.OriginCode,
			DestinationCode: f.DestinationCode,
			DepartureTime:   f.DepartureTime,
			ArrivalTime:     f.ArrivalTime,
			Status:          f.Status,
			DelayMinutes:    f.DelayMinutes,
			Gate:            f.Gate,
		})
	}

	return &ScheduleFeed{
		AirlineCode: airline.Code,
		AirlineName: airline.Name,
		GeneratedAt: time.Now(),
		Flights:     entries,
	}, nil
}
