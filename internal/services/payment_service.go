package services

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/flightbooker/backend/internal/apperrors"
	"github.com/flightbooker/backend/internal/models"
)

// PaymentService simulates a payment gateway. Charges succeed with a
// configurable probability; there is no real money anywhere in the system.
type PaymentService struct {
	successProbability float64
	logger             *logrus.Logger
}

// NewPaymentService creates a new PaymentService
func NewPaymentService(successProbability float64, logger *logrus.Logger) *PaymentService {
	return &PaymentService{
		successProbability: successProbability,
		logger:             logger,
	}
}

// Charge attempts to charge the given amount. It returns a gateway
// transaction ID on success and a payment_failed error otherwise. The
// transaction ID is returned even on failure so the attempt can be audited.
func (s *PaymentService) Charge(bookingReference string, amount float64, method models.PaymentMethod) (string, error) {
	transactionID, err := generateTransactionID()
	if err != nil {
		return "", err
	}

	roll, err := randomFraction()
	if err != nil {
		return "", err
	}

	if roll >= s.successProbability {
		s.logger.WithFields(logrus.Fields{
			"booking_reference": bookingReference,
			"amount":            amount,
			"method":            method,
			"transaction_id":    transactionID,
		}).Warn("Simulated payment declined")
		return transactionID, apperrors.E(apperrors.KindPaymentFailed, "payment was declined by the gateway")
	}

	s.logger.WithFields(logrus.Fields{
		"booking_reference": bookingReference,
		"amount":            amount,
		"method":            method,
		"transaction_id":    transactionID,
	}).Info("Simulated payment captured")

	return transactionID, nil
}

func generateTransactionID() (string, error) {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate transaction id: %w", err)
	}
	return "TXN-" + strings.ToUpper(hex.EncodeToString(buf)), nil
}

// randomFraction returns a uniform value in [0, 1)
func randomFraction() (float64, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1<<53))
	if err != nil {
		return 0, fmt.Errorf("failed to read random source: %w", err)
	}
	return float64(n.Int64()) / float64(1<<53), nil
}
