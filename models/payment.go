package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type PaymentOutcome string

const (
	OutcomeSuccess    PaymentOutcome = "SUCCESS"
	OutcomeFailure    PaymentOutcome = "FAILURE"
	OutcomeInProgress PaymentOutcome = "IN_PROGRESS"
)

const (
	MethodMobileMoney = "mobile_money"
	MethodStellar     = "stellar"
)

// Payment is one charge attempt against an invoice. Failed attempts are kept
// with a FAILURE outcome and no reference; they never move the invoice balance.
type Payment struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	CreatedAt   time.Time       `gorm:"index" json:"timestamp"`
	Amount      decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount"`
	Method      string          `gorm:"size:50;not null" json:"method"`
	Reference   *string         `gorm:"uniqueIndex;size:100" json:"reference,omitempty"`
	PhoneNumber string          `gorm:"size:20" json:"phone_number"`
	InvoiceID   uint            `gorm:"not null;index" json:"invoice_id"`
	Outcome     PaymentOutcome  `gorm:"size:20;not null" json:"outcome"`
	Message     string          `gorm:"size:255" json:"message,omitempty"`
}

// TableName overrides the table name
func (Payment) TableName() string {
	return "payments"
}

// PaymentRecord is a payment joined with its invoice and the other party's name,
// as listed in a user's payment history.
type PaymentRecord struct {
	Payment
	InvoiceNumber    string          `json:"invoice_number"`
	InvoiceAmount    decimal.Decimal `json:"invoice_amount"`
	CounterpartyName string          `json:"counterparty_name"`
}
