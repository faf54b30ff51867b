package stores

import (
	"context"

	"github.com/fullmargin/factures/models"
	"gorm.io/gorm"
)

type PaymentStore struct {
	BaseStore
}

func CreatePaymentStore(db *gorm.DB) *PaymentStore {
	return &PaymentStore{BaseStore: BaseStore{db: db}}
}

func (s *PaymentStore) Create(ctx context.Context, payment *models.Payment) error {
	return s.GetDB(ctx).Create(payment).Error
}

func (s *PaymentStore) ListForInvoice(ctx context.Context, invoiceID uint) ([]models.Payment, error) {
	var payments []models.Payment
	err := s.GetDB(ctx).
		Where("invoice_id = ?", invoiceID).
		Order("created_at DESC, id DESC").
		Find(&payments).Error
	return payments, err
}

// HistoryForMerchant lists payments made on invoices the merchant owes, naming the supplier.
func (s *PaymentStore) HistoryForMerchant(ctx context.Context, merchantID uint) ([]models.PaymentRecord, error) {
	return s.history(ctx, "invoices.merchant_id = ?", "invoices.supplier_id", merchantID)
}

// HistoryForSupplier lists payments received on invoices the supplier issued, naming the merchant.
func (s *PaymentStore) HistoryForSupplier(ctx context.Context, supplierID uint) ([]models.PaymentRecord, error) {
	return s.history(ctx, "invoices.supplier_id = ?", "invoices.merchant_id", supplierID)
}

func (s *PaymentStore) history(ctx context.Context, scope, counterpartyColumn string, userID uint) ([]models.PaymentRecord, error) {
	var records []models.PaymentRecord
	err := s.GetDB(ctx).
		Table("payments").
		Select("payments.*, invoices.number AS invoice_number, invoices.amount AS invoice_amount, users.name AS counterparty_name").
		Joins("JOIN invoices ON invoices.id = payments.invoice_id").
		Joins("JOIN users ON users.id = "+counterpartyColumn).
		Where(scope, userID).
		Order("payments.created_at DESC, payments.id DESC").
		Scan(&records).Error
	return records, err
}
