package services

import (
	"time"

	"github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

// RetryPolicy controls how transient transaction failures are retried
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Multiplier  float64
}

// DefaultRetryPolicy retries up to 5 times with 50ms, 100ms, 200ms, 400ms backoff
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 5,
		BaseDelay:   50 * time.Millisecond,
		Multiplier:  2,
	}
}

// isTransientTxError reports whether the error is a serialization failure or
// deadlock, the two cases where re-running the transaction can succeed.
func isTransientTxError(err error) bool {
	for err != nil {
		if pqErr, ok := err.(*pq.Error); ok {
			return pqErr.Code == "40001" || pqErr.Code == "40P01"
		}
		unwrapper, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = unwrapper.Unwrap()
	}
	return false
}

// withRetry runs fn, re-running it on transient transaction failures with
// exponential backoff. Non-transient errors return immediately.
func withRetry(policy RetryPolicy, logger *logrus.Logger, op string, fn func() error) error {
	delay := policy.BaseDelay
	var err error

	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		err = fn()
		if err == nil || !isTransientTxError(err) {
			return err
		}
		if attempt == policy.MaxAttempts {
			break
		}

		logger.WithFields(logrus.Fields{
			"operation": op,
			"attempt":   attempt,
			"delay":     delay.String(),
		}).Warn("Transient transaction failure, retrying")

		time.Sleep(delay)
		delay = time.Duration(float64(delay) * policy.Multiplier)
	}

	return err
}
