package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/flightbooker/backend/internal/config"
)

func newStepper() *DemandSimulatorService {
	return NewDemandSimulatorService(nil, config.SimulatorConfig{
		Period:      5 * time.Minute,
		WindowHours: 720,
		MaxStepSize: 12.0,
	}, quietLogger())
}

func TestDemandStep(t *testing.T) {
	t.Run("Stays Within Bounds", func(t *testing.T) {
		s := newStepper()
		for i := 0; i < 1000; i++ {
			next := s.step(50, 500*time.Hour)
			assert.GreaterOrEqual(t, next, 0.0)
			assert.LessOrEqual(t, next, 100.0)
		}
	})

	t.Run("Clamps At Zero", func(t *testing.T) {
		s := newStepper()
		for i := 0; i < 1000; i++ {
			assert.GreaterOrEqual(t, s.step(0, 500*time.Hour), 0.0)
		}
	})

	t.Run("Clamps At Hundred", func(t *testing.T) {
		s := newStepper()
		for i := 0; i < 1000; i++ {
			assert.LessOrEqual(t, s.step(100, 10*time.Hour), 100.0)
		}
	})

	t.Run("Step Size Is Bounded", func(t *testing.T) {
		s := newStepper()
		for i := 0; i < 1000; i++ {
			next := s.step(50, 500*time.Hour)
			assert.LessOrEqual(t, next, 50+s.config.MaxStepSize)
			assert.GreaterOrEqual(t, next, 50-s.config.MaxStepSize)
		}
	})

	t.Run("Drifts Upward Near Departure", func(t *testing.T) {
		s := newStepper()
		const trials = 5000

		sum := func(untilDeparture time.Duration) float64 {
			total := 0.0
			for i := 0; i < trials; i++ {
				total += s.step(50, untilDeparture)
			}
			return total / trials
		}

		far := sum(500 * time.Hour)
		week := sum(100 * time.Hour)
		imminent := sum(24 * time.Hour)

		// The walk is symmetric far out and biased by +0.25 and +0.5 of the
		// max step inside the one-week and 48-hour windows. With 5000 trials
		// the sample means separate cleanly.
		assert.InDelta(t, 50, far, 1.0)
		assert.Greater(t, week, far+1.0)
		assert.Greater(t, imminent, week+1.0)
	})
}
