package services

import (
	"github.com/sirupsen/logrus"

	"github.com/flightbooker/backend/internal/models"
	"github.com/flightbooker/backend/pkg/mailer"
	"github.com/flightbooker/backend/pkg/receipt"
)

// ReceiptService renders and emails booking receipts. Delivery is
// fire-and-forget: a failed send is logged, never surfaced to the booking
// flow.
type ReceiptService struct {
	renderer receipt.Renderer
	mailer   mailer.Mailer
	logger   *logrus.Logger
}

// NewReceiptService creates a new ReceiptService
func NewReceiptService(renderer receipt.Renderer, m mailer.Mailer, logger *logrus.Logger) *ReceiptService {
	return &ReceiptService{
		renderer: renderer,
		mailer:   m,
		logger:   logger,
	}
}

// Render produces the receipt document for synchronous delivery, such as
// the receipt download endpoint
func (s *ReceiptService) Render(record *models.ReceiptRecord) (subject, body string, err error) {
	return s.renderer.Render(record)
}

// Send dispatches the receipt in the background
func (s *ReceiptService) Send(email string, record *models.ReceiptRecord) {
	go func() {
		subject, body, err := s.renderer.Render(record)
		if err != nil {
			s.logger.WithError(err).WithField("booking_reference", record.BookingReference).
				Error("Failed to render receipt")
			return
		}

		if err := s.mailer.Send(email, subject, body); err != nil {
			s.logger.WithError(err).WithFields(logrus.Fields{
				"booking_reference": record.BookingReference,
				"kind":              record.Kind,
			}).Error("Failed to send receipt")
			return
		}

		s.logger.WithFields(logrus.Fields{
			"booking_reference": record.BookingReference,
			"kind":              record.Kind,
		}).Info("Receipt sent")
	}()
}
