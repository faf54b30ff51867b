package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type InvoiceStatus string

const (
	StatusPending       InvoiceStatus = "PENDING"
	StatusPartiallyPaid InvoiceStatus = "PARTIALLY_PAID"
	StatusPaid          InvoiceStatus = "PAID"
)

func (s InvoiceStatus) Valid() bool {
	switch s {
	case StatusPending, StatusPartiallyPaid, StatusPaid:
		return true
	}
	return false
}

// StatusFor derives the invoice status from what has been paid against the billed amount.
func StatusFor(amount, paid decimal.Decimal) InvoiceStatus {
	switch {
	case paid.GreaterThanOrEqual(amount):
		return StatusPaid
	case paid.IsPositive():
		return StatusPartiallyPaid
	default:
		return StatusPending
	}
}

type Invoice struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	CreatedAt   time.Time       `gorm:"index" json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	Number      string          `gorm:"uniqueIndex;size:50;not null" json:"number"`
	Amount      decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount"`
	AmountPaid  decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount_paid"`
	IssueDate   time.Time       `gorm:"type:date;not null" json:"issue_date"`
	DueDate     time.Time       `gorm:"type:date;not null" json:"due_date"`
	Description string          `gorm:"type:text" json:"description"`
	Status      InvoiceStatus   `gorm:"size:20;not null;index" json:"status"`
	SupplierID  uint            `gorm:"not null;index" json:"supplier_id"`
	Supplier    *User           `gorm:"foreignKey:SupplierID" json:"supplier,omitempty"`
	MerchantID  uint            `gorm:"not null;index" json:"merchant_id"`
	Merchant    *User           `gorm:"foreignKey:MerchantID" json:"merchant,omitempty"`
	Payments    []Payment       `gorm:"constraint:OnDelete:CASCADE" json:"payments,omitempty"`
}

// TableName overrides the table name
func (Invoice) TableName() string {
	return "invoices"
}

// Remaining is the balance still owed on the invoice.
func (i *Invoice) Remaining() decimal.Decimal {
	return i.Amount.Sub(i.AmountPaid)
}
