// Package gateway charges payers through an external payment processor.
package gateway

import (
	"context"

	"github.com/shopspring/decimal"
)

type ChargeRequest struct {
	Amount        decimal.Decimal
	PhoneNumber   string
	InvoiceNumber string
}

// ChargeResult is the processor's answer. A declined charge is a result with
// Success false, not an error; errors mean the processor could not be reached
// or did not answer in time.
type ChargeResult struct {
	Success   bool
	Reference string
	Message   string
	Method    string
}

type Gateway interface {
	Charge(ctx context.Context, req ChargeRequest) (*ChargeResult, error)
}

// Func adapts an ordinary function to the Gateway interface.
type Func func(ctx context.Context, req ChargeRequest) (*ChargeResult, error)

func (f Func) Charge(ctx context.Context, req ChargeRequest) (*ChargeResult, error) {
	return f(ctx, req)
}
