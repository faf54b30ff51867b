package stores

import (
	"context"

	"github.com/fullmargin/factures/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type InvoiceStore struct {
	BaseStore
}

func CreateInvoiceStore(db *gorm.DB) *InvoiceStore {
	return &InvoiceStore{BaseStore: BaseStore{db: db}}
}

// StatusTotals aggregates the invoices of one status.
type StatusTotals struct {
	Status     models.InvoiceStatus
	Count      int64
	Amount     decimal.Decimal
	AmountPaid decimal.Decimal
}

func (s *InvoiceStore) Create(ctx context.Context, invoice *models.Invoice) error {
	return s.GetDB(ctx).Create(invoice).Error
}

// GetForParty loads an invoice the user issued or owes, with both parties and its payments.
func (s *InvoiceStore) GetForParty(ctx context.Context, id, userID uint) (*models.Invoice, error) {
	var invoice models.Invoice
	err := s.GetDB(ctx).
		Preload("Supplier").
		Preload("Merchant").
		Preload("Payments", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at DESC, id DESC")
		}).
		Where("id = ? AND (supplier_id = ? OR merchant_id = ?)", id, userID, userID).
		First(&invoice).Error
	if err != nil {
		return nil, err
	}
	return &invoice, nil
}

func (s *InvoiceStore) GetForSupplier(ctx context.Context, id, supplierID uint) (*models.Invoice, error) {
	var invoice models.Invoice
	if err := s.GetDB(ctx).Where("id = ? AND supplier_id = ?", id, supplierID).First(&invoice).Error; err != nil {
		return nil, err
	}
	return &invoice, nil
}

func (s *InvoiceStore) GetForMerchant(ctx context.Context, id, merchantID uint) (*models.Invoice, error) {
	var invoice models.Invoice
	if err := s.GetDB(ctx).Where("id = ? AND merchant_id = ?", id, merchantID).First(&invoice).Error; err != nil {
		return nil, err
	}
	return &invoice, nil
}

// ListForParty returns the invoices the user issued or owes, newest first.
// An empty status returns every status.
func (s *InvoiceStore) ListForParty(ctx context.Context, userID uint, status models.InvoiceStatus) ([]models.Invoice, error) {
	query := s.GetDB(ctx).
		Preload("Supplier").
		Preload("Merchant").
		Where("(supplier_id = ? OR merchant_id = ?)", userID, userID)
	if status != "" {
		query = query.Where("status = ?", string(status))
	}

	var invoices []models.Invoice
	err := query.Order("created_at DESC, id DESC").Find(&invoices).Error
	return invoices, err
}

// UpdateTerms writes amount, due date, description and status unless the invoice
// has been settled in the meantime. It reports whether a row was written.
func (s *InvoiceStore) UpdateTerms(ctx context.Context, invoice *models.Invoice) (bool, error) {
	result := s.GetDB(ctx).
		Model(&models.Invoice{}).
		Where("id = ? AND status <> ? AND amount_paid <= ?", invoice.ID, string(models.StatusPaid), invoice.Amount).
		Updates(map[string]interface{}{
			"amount":      invoice.Amount,
			"due_date":    invoice.DueDate,
			"description": invoice.Description,
			"status":      gorm.Expr("CASE WHEN amount_paid >= ? THEN ? WHEN amount_paid > 0 THEN ? ELSE ? END", invoice.Amount, string(models.StatusPaid), string(models.StatusPartiallyPaid), string(models.StatusPending)),
		})
	return result.RowsAffected == 1, result.Error
}

// DeletePending removes a supplier's invoice if it is still PENDING.
// It reports whether a row was removed.
func (s *InvoiceStore) DeletePending(ctx context.Context, id, supplierID uint) (bool, error) {
	result := s.GetDB(ctx).
		Where("id = ? AND supplier_id = ? AND status = ?", id, supplierID, string(models.StatusPending)).
		Delete(&models.Invoice{})
	return result.RowsAffected == 1, result.Error
}

// AddPayment increments amount_paid by amount and re-derives the status in a single
// conditional statement. Nothing is written, and false is returned, when the
// payment would take amount_paid above amount. Sums are rounded to cents because
// sqlite stores fractional decimals as REAL.
func (s *InvoiceStore) AddPayment(ctx context.Context, id uint, amount decimal.Decimal) (bool, error) {
	result := s.GetDB(ctx).
		Model(&models.Invoice{}).
		Where("id = ? AND ROUND(amount_paid + ?, 2) <= amount", id, amount).
		Updates(map[string]interface{}{
			"amount_paid": gorm.Expr("ROUND(amount_paid + ?, 2)", amount),
			"status":      gorm.Expr("CASE WHEN ROUND(amount_paid + ?, 2) >= amount THEN ? ELSE ? END", amount, string(models.StatusPaid), string(models.StatusPartiallyPaid)),
		})
	return result.RowsAffected == 1, result.Error
}

// TotalsForParty groups the user's invoices by status.
func (s *InvoiceStore) TotalsForParty(ctx context.Context, userID uint) ([]StatusTotals, error) {
	var totals []StatusTotals
	err := s.GetDB(ctx).
		Model(&models.Invoice{}).
		Select("status, COUNT(*) AS count, ROUND(COALESCE(SUM(amount), 0), 2) AS amount, ROUND(COALESCE(SUM(amount_paid), 0), 2) AS amount_paid").
		Where("supplier_id = ? OR merchant_id = ?", userID, userID).
		Group("status").
		Scan(&totals).Error
	return totals, err
}
