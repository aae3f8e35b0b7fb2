package services

import (
	"github.com/sirupsen/logrus"

	"github.com/flightbooker/backend/internal/database"
)

// ReaperService sweeps lapsed holds back into open inventory
type ReaperService struct {
	bookingRepo *database.BookingRepository
	logger      *logrus.Logger
}

// NewReaperService creates a new ReaperService
func NewReaperService(bookingRepo *database.BookingRepository, logger *logrus.Logger) *ReaperService {
	return &ReaperService{
		bookingRepo: bookingRepo,
		logger:      logger,
	}
}

// Run performs one sweep and returns how many holds were expired
func (s *ReaperService) Run() int {
	reaped, err := s.bookingRepo.ReapExpiredHolds()
	if err != nil {
		s.logger.WithError(err).Error("Hold reaper sweep failed")
		return reaped
	}

	if reaped > 0 {
		s.logger.WithField("expired", reaped).Info("Expired holds released")
	}
	return reaped
}
