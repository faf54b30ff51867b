package gateway

import (
	"context"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/fullmargin/factures/models"
	"github.com/google/uuid"
)

// Simulated stands in for a mobile-money operator: it waits Delay, then approves
// a charge with probability SuccessRate.
type Simulated struct {
	Delay       time.Duration
	SuccessRate float64

	// Roll returns a number in [0, 1). Defaults to math/rand.
	Roll func() float64
}

func NewSimulated(delay time.Duration, successRate float64) *Simulated {
	return &Simulated{
		Delay:       delay,
		SuccessRate: successRate,
		Roll:        rand.Float64,
	}
}

func (s *Simulated) Charge(ctx context.Context, req ChargeRequest) (*ChargeResult, error) {
	if s.Delay > 0 {
		timer := time.NewTimer(s.Delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
		}
	} else if err := ctx.Err(); err != nil {
		return nil, err
	}

	roll := s.Roll
	if roll == nil {
		roll = rand.Float64
	}
	if roll() >= s.SuccessRate {
		return &ChargeResult{
			Success: false,
			Message: "Mobile money payment declined: insufficient funds",
			Method:  models.MethodMobileMoney,
		}, nil
	}

	return &ChargeResult{
		Success:   true,
		Reference: "MM" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")),
		Message:   "Mobile money payment accepted",
		Method:    models.MethodMobileMoney,
	}, nil
}
