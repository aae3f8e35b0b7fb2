package services

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/flightbooker/backend/internal/config"
)

// CronService manages the background jobs: the demand simulator tick and the
// expired-hold reaper.
type CronService struct {
	cron         *cron.Cron
	simulatorSvc *DemandSimulatorService
	reaperSvc    *ReaperService
	simPeriod    time.Duration
	reaperPeriod time.Duration
	logger       *logrus.Logger
}

// NewCronService creates a new CronService
func NewCronService(
	simulatorSvc *DemandSimulatorService,
	reaperSvc *ReaperService,
	simCfg config.SimulatorConfig,
	bookingCfg config.BookingConfig,
	logger *logrus.Logger,
) *CronService {
	return &CronService{
		cron:         cron.New(),
		simulatorSvc: simulatorSvc,
		reaperSvc:    reaperSvc,
		simPeriod:    simCfg.Period,
		reaperPeriod: bookingCfg.ReaperPeriod,
		logger:       logger,
	}
}

// Start schedules and starts all background jobs
func (s *CronService) Start() error {
	_, err := s.cron.AddFunc(fmt.Sprintf("@every %s", s.simPeriod), s.demandTickJob)
	if err != nil {
		return fmt.Errorf("failed to schedule demand simulator: %w", err)
	}
	s.logger.WithField("period", s.simPeriod.String()).Info("Scheduled: demand simulator")

	_, err = s.cron.AddFunc(fmt.Sprintf("@every %s", s.reaperPeriod), s.reaperJob)
	if err != nil {
		return fmt.Errorf("failed to schedule hold reaper: %w", err)
	}
	s.logger.WithField("period", s.reaperPeriod.String()).Info("Scheduled: hold reaper")

	s.cron.Start()
	s.logger.Info("Cron service started")
	return nil
}

// Stop stops all jobs and waits for running ones to finish
func (s *CronService) Stop() {
	s.logger.Info("Stopping cron service...")
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("Cron service stopped")
}

func (s *CronService) demandTickJob() {
	start := time.Now()
	updated := s.simulatorSvc.Tick()
	s.logger.WithFields(logrus.Fields{
		"flights":  updated,
		"duration": time.Since(start).String(),
	}).Debug("Demand simulator tick finished")
}

func (s *CronService) reaperJob() {
	s.reaperSvc.Run()
}

// RunDemandTickNow runs one simulator tick immediately (for seeding and debugging)
func (s *CronService) RunDemandTickNow() {
	s.demandTickJob()
}
