package services

import (
	"math"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/flightbooker/backend/internal/apperrors"
	"github.com/flightbooker/backend/internal/config"
	"github.com/flightbooker/backend/internal/database"
	"github.com/flightbooker/backend/internal/models"
	"github.com/flightbooker/backend/internal/pricing"
)

// BookingService orchestrates the Hold -> Payment -> Confirm booking flow
type BookingService struct {
	bookingRepo *database.BookingRepository
	flightRepo  *database.FlightRepository
	userRepo    *database.UserRepository
	paymentSvc  *PaymentService
	receiptSvc  *ReceiptService
	config      config.BookingConfig
	retryPolicy RetryPolicy
	logger      *logrus.Logger
}

// NewBookingService creates a new BookingService
func NewBookingService(
	bookingRepo *database.BookingRepository,
	flightRepo *database.FlightRepository,
	userRepo *database.UserRepository,
	paymentSvc *PaymentService,
	receiptSvc *ReceiptService,
	cfg config.BookingConfig,
	logger *logrus.Logger,
) *BookingService {
	return &BookingService{
		bookingRepo: bookingRepo,
		flightRepo:  flightRepo,
		userRepo:    userRepo,
		paymentSvc:  paymentSvc,
		receiptSvc:  receiptSvc,
		config:      cfg,
		retryPolicy: DefaultRetryPolicy(),
		logger:      logger,
	}
}

// CreateHold reserves seats at the current fare. The fare is computed under
// the flight row lock; if it has drifted beyond tolerance from the fare the
// client quoted, the hold is refused with price_changed.
func (s *BookingService) CreateHold(req *models.CreateBookingRequest) (*models.Booking, error) {
	if err := req.Validate(); err != nil {
		return nil, apperrors.Wrap(apperrors.KindInvalidArgument, err, "invalid booking request")
	}
	if len(req.Passengers) > models.MaxPassengersPerBooking {
		return nil, apperrors.E(apperrors.KindPassengerLimit,
			"a booking may carry at most %d passengers, got %d", models.MaxPassengersPerBooking, len(req.Passengers))
	}

	quoteFn := func(flight *models.Flight, seatsAvailable, seatsTotal int) (float64, error) {
		fare, err := pricing.Quote(pricing.Snapshot{
			BaseFare:       flight.BaseFare,
			SeatsAvailable: seatsAvailable,
			SeatsTotal:     seatsTotal,
			DepartureTime:  flight.DepartureTime,
			DemandIndex:    flight.DemandIndex,
		}, req.Tier, time.Now())
		if err != nil {
			return 0, err
		}

		if req.QuotedUnitFare != nil {
			quoted := *req.QuotedUnitFare
			if math.Abs(fare-quoted) > quoted*s.config.PriceDriftTolerance {
				return 0, apperrors.E(apperrors.KindPriceChanged,
					"fare is now %.2f, quoted %.2f", fare, quoted)
			}
		}
		return fare, nil
	}

	var booking *models.Booking
	err := withRetry(s.retryPolicy, s.logger, "create_hold", func() error {
		var opErr error
		booking, opErr = s.bookingRepo.CreateHold(req, quoteFn, s.config.HoldTTL)
		return opErr
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"booking_reference": booking.BookingReference,
		"flight_id":         booking.FlightID,
		"tier":              booking.Tier,
		"passengers":        len(booking.Tickets),
		"total_fare":        booking.TotalFare,
		"hold_expires_at":   booking.HoldExpiresAt,
	}).Info("Hold created")

	return booking, nil
}

// Pay runs the payment flow for a held booking. The booking moves to
// PendingPayment before the gateway is called; a declined charge leaves it
// there so the user can retry until the hold expires.
func (s *BookingService) Pay(userID string, req *models.PayBookingRequest) (*models.Booking, error) {
	if err := req.Validate(); err != nil {
		return nil, apperrors.Wrap(apperrors.KindInvalidArgument, err, "invalid payment request")
	}

	booking, err := s.bookingRepo.GetBookingByReference(req.BookingReference)
	if err != nil {
		return nil, err
	}
	if booking == nil {
		return nil, apperrors.E(apperrors.KindNotFound, "booking %s not found", req.BookingReference)
	}
	if booking.UserID != userID {
		return nil, apperrors.E(apperrors.KindForbidden, "booking %s does not belong to this user", req.BookingReference)
	}
	if math.Abs(req.Amount-booking.TotalFare) > 0.005 {
		return nil, apperrors.E(apperrors.KindInvalidArgument,
			"amount %.2f does not match the booking total %.2f", req.Amount, booking.TotalFare)
	}

	err = withRetry(s.retryPolicy, s.logger, "mark_pending_payment", func() error {
		_, opErr := s.bookingRepo.MarkPendingPayment(req.BookingReference)
		return opErr
	})
	if err != nil {
		return nil, err
	}

	transactionID, err := s.paymentSvc.Charge(req.BookingReference, req.Amount, req.Method)
	if err != nil {
		if apperrors.IsKind(err, apperrors.KindPaymentFailed) && transactionID != "" {
			if recordErr := s.bookingRepo.RecordFailedPayment(req.BookingReference, req.Amount, req.Method, transactionID); recordErr != nil {
				s.logger.WithError(recordErr).Error("Failed to record declined payment")
			}
		}
		return nil, err
	}

	var confirmed *models.Booking
	err = withRetry(s.retryPolicy, s.logger, "confirm_booking", func() error {
		var opErr error
		confirmed, opErr = s.bookingRepo.ConfirmBooking(req.BookingReference, req.Amount, req.Method, transactionID)
		return opErr
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"booking_reference": confirmed.BookingReference,
		"pnr":               *confirmed.PNR,
		"paid_amount":       confirmed.PaidAmount,
		"transaction_id":    transactionID,
	}).Info("Booking confirmed")

	s.sendReceipt(confirmed, "confirmation")

	return confirmed, nil
}

// Cancel cancels a booking and releases its seats. Airline staff and admins
// may cancel bookings they do not own; cancelling an already terminal
// booking returns it unchanged.
func (s *BookingService) Cancel(actor models.Actor, bookingReference string) (*models.Booking, error) {
	wasConfirmed := false
	if existing, err := s.bookingRepo.GetBookingByReference(bookingReference); err == nil && existing != nil {
		wasConfirmed = existing.Status == models.BookingStatusConfirmed
	}

	var booking *models.Booking
	err := withRetry(s.retryPolicy, s.logger, "cancel_booking", func() error {
		var opErr error
		booking, opErr = s.bookingRepo.CancelBooking(bookingReference, actor.UserID, actor.CanManageBookings())
		return opErr
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"booking_reference": booking.BookingReference,
		"status":            booking.Status,
		"was_confirmed":     wasConfirmed,
	}).Info("Booking cancelled")

	if wasConfirmed && booking.Status == models.BookingStatusCancelled {
		s.sendReceipt(booking, "cancellation")
	}

	return booking, nil
}

// GetBooking returns a user's booking by reference
func (s *BookingService) GetBooking(userID, bookingReference string) (*models.Booking, error) {
	booking, err := s.bookingRepo.GetBookingByReference(bookingReference)
	if err != nil {
		return nil, err
	}
	if booking == nil {
		return nil, apperrors.E(apperrors.KindNotFound, "booking %s not found", bookingReference)
	}
	if booking.UserID != userID {
		return nil, apperrors.E(apperrors.KindForbidden, "booking %s does not belong to this user", bookingReference)
	}
	return booking, nil
}

// ListBookings returns all of a user's bookings, newest first
func (s *BookingService) ListBookings(userID string) ([]models.Booking, error) {
	return s.bookingRepo.ListUserBookings(userID)
}

// BookingByPNR returns the full booking record for a record locator. Only
// the owner, airline staff or an admin may see it.
func (s *BookingService) BookingByPNR(actor models.Actor, pnr string) (*models.Booking, error) {
	booking, err := s.bookingRepo.GetBookingByPNR(pnr)
	if err != nil {
		return nil, err
	}
	if booking == nil {
		return nil, apperrors.E(apperrors.KindNotFound, "no booking found for PNR %s", pnr)
	}
	if booking.UserID != actor.UserID && !actor.CanManageBookings() {
		return nil, apperrors.E(apperrors.KindForbidden, "booking %s does not belong to this user", booking.BookingReference)
	}
	return booking, nil
}

// IssueReceipt renders the receipt document for a confirmed or cancelled
// booking, looked up by record locator
func (s *BookingService) IssueReceipt(actor models.Actor, pnr string) (subject, body string, err error) {
	booking, err := s.BookingByPNR(actor, pnr)
	if err != nil {
		return "", "", err
	}

	kind := "confirmation"
	switch booking.Status {
	case models.BookingStatusConfirmed:
	case models.BookingStatusCancelled:
		kind = "cancellation"
	default:
		return "", "", apperrors.E(apperrors.KindInvalidState,
			"booking %s is %s, no receipt has been issued", booking.BookingReference, booking.Status)
	}

	record, err := s.buildReceipt(booking, kind)
	if err != nil {
		return "", "", err
	}
	return s.receiptSvc.Render(record)
}

// PNRStatus returns the public, redacted view of a booking by record locator
func (s *BookingService) PNRStatus(pnr string) (*models.PNRStatusView, error) {
	booking, err := s.bookingRepo.GetBookingByPNR(pnr)
	if err != nil {
		return nil, err
	}
	if booking == nil || booking.PNR == nil {
		return nil, apperrors.E(apperrors.KindNotFound, "no booking found for PNR %s", pnr)
	}

	flight, err := s.flightRepo.GetFlightByID(booking.FlightID)
	if err != nil {
		return nil, err
	}
	if flight == nil {
		return nil, apperrors.E(apperrors.KindInternal, "booking %s references a missing flight", booking.BookingReference)
	}

	return &models.PNRStatusView{
		PNR:           *booking.PNR,
		Status:        booking.Status,
		FlightNumber:  flight.FlightNumber,
		OriginCode:    flight.OriginCode,
		DestCode:      flight.DestinationCode,
		DepartureTime: flight.DepartureTime,
		Passengers:    len(booking.Tickets),
	}, nil
}

// sendReceipt builds and dispatches a receipt without blocking the caller
func (s *BookingService) sendReceipt(booking *models.Booking, kind string) {
	record, err := s.buildReceipt(booking, kind)
	if err != nil {
		s.logger.WithError(err).Error("Failed to build receipt")
		return
	}

	user, err := s.userRepo.GetUserByID(booking.UserID)
	if err != nil || user == nil {
		s.logger.WithError(err).Error("Failed to load user for receipt")
		return
	}

	s.receiptSvc.Send(user.Email, record)
}

// buildReceipt assembles the structured receipt record handed to the renderer
func (s *BookingService) buildReceipt(booking *models.Booking, kind string) (*models.ReceiptRecord, error) {
	flight, err := s.flightRepo.GetFlightByID(booking.FlightID)
	if err != nil {
		return nil, err
	}
	if flight == nil {
		return nil, apperrors.E(apperrors.KindInternal, "booking %s references a missing flight", booking.BookingReference)
	}

	passengers := make([]models.ReceiptPassenger, 0, len(booking.Tickets))
	for _, t := range booking.Tickets {
		ticketNo := ""
		if t.TicketNumber != nil {
			ticketNo = *t.TicketNumber
		}
		passengers = append(passengers, models.ReceiptPassenger{
			Name:       t.PassengerName,
			SeatNumber: t.SeatNumber,
			SeatClass:  t.SeatClass,
			TicketNo:   ticketNo,
		})
	}

	pnr := ""
	if booking.PNR != nil {
		pnr = *booking.PNR
	}
	transactionID := ""
	if booking.TransactionID != nil {
		transactionID = *booking.TransactionID
	}

	return &models.ReceiptRecord{
		Kind:             kind,
		PNR:              pnr,
		BookingReference: booking.BookingReference,
		FlightNumber:     flight.FlightNumber,
		AirlineCode:      flight.AirlineCode,
		OriginCode:       flight.OriginCode,
		DestinationCode:  flight.DestinationCode,
		DepartureTime:    flight.DepartureTime,
		ArrivalTime:      flight.ArrivalTime,
		Passengers:       passengers,
		TotalFare:        booking.TotalFare,
		PaidAmount:       booking.PaidAmount,
		TransactionID:    transactionID,
		PaidAt:           booking.UpdatedAt,
		IssuedAt:         time.Now(),
	}, nil
}
