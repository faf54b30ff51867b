// Package ledger owns the invoice lifecycle: creation, balance tracking, status
// transitions and the application of mobile-money payments.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fullmargin/factures/gateway"
	"github.com/fullmargin/factures/identity"
	"github.com/fullmargin/factures/models"
	"github.com/fullmargin/factures/stores"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Notifier delivers a notification to a user. Delivery failures are logged by the
// ledger and never fail the operation that caused them.
type Notifier interface {
	Notify(ctx context.Context, userID uint, kind, content string) error
}

type Options struct {
	Gateway  gateway.Gateway
	Notifier Notifier
	Logger   zerolog.Logger

	// Locker defaults to a MemoryLocker.
	Locker Locker

	// GatewayTimeout bounds each charge. Defaults to 15s.
	GatewayTimeout time.Duration
}

type Service struct {
	tx       *stores.BaseStore
	invoices *stores.InvoiceStore
	payments *stores.PaymentStore
	users    *stores.UserStore

	gateway        gateway.Gateway
	notifier       Notifier
	locker         Locker
	log            zerolog.Logger
	gatewayTimeout time.Duration

	now       func() time.Time
	newNumber func(time.Time) string
}

func NewService(db *gorm.DB, opts Options) *Service {
	s := &Service{
		tx:             stores.NewTransactor(db),
		invoices:       stores.CreateInvoiceStore(db),
		payments:       stores.CreatePaymentStore(db),
		users:          stores.CreateUserStore(db),
		gateway:        opts.Gateway,
		notifier:       opts.Notifier,
		locker:         opts.Locker,
		log:            opts.Logger,
		gatewayTimeout: opts.GatewayTimeout,
		now:            time.Now,
		newNumber:      newInvoiceNumber,
	}
	if s.locker == nil {
		s.locker = NewMemoryLocker()
	}
	if s.gatewayTimeout <= 0 {
		s.gatewayTimeout = 15 * time.Second
	}
	return s
}

type CreateInvoiceInput struct {
	MerchantID  uint
	Amount      decimal.Decimal
	IssueDate   time.Time
	DueDate     time.Time
	Description string
}

// UpdateInvoiceInput changes only the non-nil fields.
type UpdateInvoiceInput struct {
	Amount      *decimal.Decimal
	DueDate     *time.Time
	Description *string
}

type PaymentInput struct {
	InvoiceID   uint
	Amount      decimal.Decimal
	PhoneNumber string
}

type PaymentResult struct {
	PaymentID uint                 `json:"payment_id"`
	Reference string               `json:"reference"`
	Amount    decimal.Decimal      `json:"amount"`
	Status    models.InvoiceStatus `json:"status"`
	Remaining decimal.Decimal      `json:"remaining"`
}

type Summary struct {
	Total       int64                          `json:"total"`
	ByStatus    map[models.InvoiceStatus]int64 `json:"by_status"`
	Billed      decimal.Decimal                `json:"billed"`
	Paid        decimal.Decimal                `json:"paid"`
	Outstanding decimal.Decimal                `json:"outstanding"`
}

func (s *Service) CreateInvoice(ctx context.Context, caller identity.Identity, in CreateInvoiceInput) (*models.Invoice, error) {
	const op = "CreateInvoice"

	if !caller.IsSupplier() {
		return nil, newError(op, ErrAuthorization, "only suppliers can create invoices")
	}
	if in.MerchantID == 0 || in.Amount.IsZero() || in.IssueDate.IsZero() || in.DueDate.IsZero() {
		return nil, newError(op, ErrValidation, "merchant_id, amount, issue_date and due_date are required")
	}
	if err := checkAmount(op, in.Amount); err != nil {
		return nil, err
	}

	merchant, err := s.users.GetByID(ctx, in.MerchantID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, internal(op, err)
	}
	if merchant == nil || merchant.Role != models.RoleMerchant || merchant.ID == caller.UserID {
		return nil, newError(op, ErrValidation, "merchant_id does not reference a merchant account")
	}

	invoice := models.Invoice{
		Amount:      in.Amount,
		AmountPaid:  decimal.Zero,
		IssueDate:   in.IssueDate,
		DueDate:     in.DueDate,
		Description: in.Description,
		Status:      models.StatusPending,
		SupplierID:  caller.UserID,
		MerchantID:  merchant.ID,
	}

	for attempt := 1; ; attempt++ {
		invoice.Number = s.newNumber(s.now())
		err = s.invoices.Create(ctx, &invoice)
		if err == nil {
			break
		}
		if !errors.Is(err, gorm.ErrDuplicatedKey) || attempt == maxNumberAttempts {
			return nil, internal(op, err)
		}
		s.log.Warn().Str("number", invoice.Number).Msg("invoice number collision, drawing another")
		invoice.ID = 0
	}

	s.log.Info().
		Uint("invoice_id", invoice.ID).
		Str("number", invoice.Number).
		Uint("supplier_id", invoice.SupplierID).
		Uint("merchant_id", invoice.MerchantID).
		Msg("invoice created")

	s.notify(ctx, invoice.MerchantID, models.NotificationNewInvoice,
		fmt.Sprintf("You have received a new invoice %s of %s FCFA", invoice.Number, invoice.Amount.String()))

	return &invoice, nil
}

// ApplyPayment charges the merchant through the gateway and, on success, records the
// payment and moves the invoice balance. The invoice is locked for the whole call and
// the balance update is conditional, so amount_paid never exceeds amount.
func (s *Service) ApplyPayment(ctx context.Context, caller identity.Identity, in PaymentInput) (*PaymentResult, error) {
	const op = "ApplyPayment"

	if !caller.IsMerchant() {
		return nil, newError(op, ErrAuthorization, "only merchants can pay invoices")
	}
	if in.InvoiceID == 0 || in.PhoneNumber == "" || in.Amount.IsZero() {
		return nil, newError(op, ErrValidation, "invoice_id, amount and phone_number are required")
	}
	if err := checkAmount(op, in.Amount); err != nil {
		return nil, err
	}

	unlock, err := s.locker.Lock(ctx, invoiceLockKey(in.InvoiceID))
	if err != nil {
		return nil, lockFailed(op, err)
	}
	defer unlock()

	invoice, err := s.invoices.GetForMerchant(ctx, in.InvoiceID, caller.UserID)
	if err != nil {
		return nil, notFoundOrInternal(op, err)
	}
	if invoice.Status == models.StatusPaid {
		return nil, newError(op, ErrConflict, "invoice is already paid")
	}
	remaining := invoice.Remaining()
	if in.Amount.GreaterThan(remaining) {
		return nil, newError(op, ErrValidation,
			fmt.Sprintf("amount cannot exceed the remaining balance of %s", remaining.String()))
	}

	log := s.log.With().Uint("invoice_id", invoice.ID).Str("amount", in.Amount.String()).Logger()
	log.Info().Msg("charging payer")

	chargeCtx, cancel := context.WithTimeout(ctx, s.gatewayTimeout)
	res, err := s.gateway.Charge(chargeCtx, gateway.ChargeRequest{
		Amount:        in.Amount,
		PhoneNumber:   in.PhoneNumber,
		InvoiceNumber: invoice.Number,
	})
	cancel()

	// The payer may have been charged from here on; finish the bookkeeping even if
	// the caller goes away.
	ctx = context.WithoutCancel(ctx)

	if err != nil || res == nil || !res.Success {
		message := "payment processor unavailable"
		method := models.MethodMobileMoney
		if res != nil {
			message = res.Message
			if res.Method != "" {
				method = res.Method
			}
		}
		log.Warn().Err(err).Str("reason", message).Msg("charge failed")
		s.recordFailedAttempt(ctx, invoice.ID, in, method, message)
		if err != nil {
			return nil, wrapError(op, ErrGateway, message, err)
		}
		return nil, newError(op, ErrGateway, message)
	}

	method := res.Method
	if method == "" {
		method = models.MethodMobileMoney
	}
	reference := res.Reference
	payment := models.Payment{
		Amount:      in.Amount,
		Method:      method,
		Reference:   &reference,
		PhoneNumber: in.PhoneNumber,
		InvoiceID:   invoice.ID,
		Outcome:     models.OutcomeSuccess,
		Message:     res.Message,
	}

	var updated *models.Invoice
	err = s.tx.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.payments.Create(txCtx, &payment); err != nil {
			return err
		}
		applied, err := s.invoices.AddPayment(txCtx, invoice.ID, in.Amount)
		if err != nil {
			return err
		}
		if !applied {
			return errBalanceChanged
		}
		updated, err = s.invoices.GetForMerchant(txCtx, invoice.ID, caller.UserID)
		return err
	})
	if err != nil {
		log.Error().Err(err).Str("reference", reference).Msg("charge succeeded but payment could not be recorded")
		if errors.Is(err, errBalanceChanged) {
			return nil, wrapError(op, ErrConflict, "invoice balance changed while the payment was processed", err)
		}
		return nil, internal(op, err)
	}

	log.Info().
		Str("reference", reference).
		Str("status", string(updated.Status)).
		Str("remaining", updated.Remaining().String()).
		Msg("payment applied")

	s.notify(ctx, invoice.SupplierID, models.NotificationPaymentReceived,
		fmt.Sprintf("Payment of %s FCFA received for invoice %s", in.Amount.String(), invoice.Number))

	return &PaymentResult{
		PaymentID: payment.ID,
		Reference: reference,
		Amount:    in.Amount,
		Status:    updated.Status,
		Remaining: updated.Remaining(),
	}, nil
}

var errBalanceChanged = errors.New("conditional balance update matched no row")

func (s *Service) recordFailedAttempt(ctx context.Context, invoiceID uint, in PaymentInput, method, message string) {
	attempt := models.Payment{
		Amount:      in.Amount,
		Method:      method,
		PhoneNumber: in.PhoneNumber,
		InvoiceID:   invoiceID,
		Outcome:     models.OutcomeFailure,
		Message:     truncate(message, 255),
	}
	if err := s.payments.Create(ctx, &attempt); err != nil {
		s.log.Error().Err(err).Uint("invoice_id", invoiceID).Msg("failed to record failed payment attempt")
	}
}

// UpdateInvoice changes the amount, due date or description of an invoice the caller
// issued, as long as it is not paid.
func (s *Service) UpdateInvoice(ctx context.Context, caller identity.Identity, id uint, in UpdateInvoiceInput) (*models.Invoice, error) {
	const op = "UpdateInvoice"

	if !caller.IsSupplier() {
		return nil, newError(op, ErrAuthorization, "only suppliers can modify invoices")
	}
	if in.Amount != nil {
		if err := checkAmount(op, *in.Amount); err != nil {
			return nil, err
		}
	}

	unlock, err := s.locker.Lock(ctx, invoiceLockKey(id))
	if err != nil {
		return nil, lockFailed(op, err)
	}
	defer unlock()

	invoice, err := s.invoices.GetForSupplier(ctx, id, caller.UserID)
	if err != nil {
		return nil, notFoundOrInternal(op, err)
	}
	if invoice.Status == models.StatusPaid {
		return nil, newError(op, ErrConflict, "a paid invoice cannot be modified")
	}

	if in.Amount != nil {
		if in.Amount.LessThan(invoice.AmountPaid) {
			return nil, newError(op, ErrValidation,
				fmt.Sprintf("amount cannot be lower than the %s already paid", invoice.AmountPaid.String()))
		}
		invoice.Amount = *in.Amount
	}
	if in.DueDate != nil && !in.DueDate.IsZero() {
		invoice.DueDate = *in.DueDate
	}
	if in.Description != nil {
		invoice.Description = *in.Description
	}

	written, err := s.invoices.UpdateTerms(ctx, invoice)
	if err != nil {
		return nil, internal(op, err)
	}
	if !written {
		return nil, newError(op, ErrConflict, "invoice changed while it was being modified")
	}

	updated, err := s.invoices.GetForSupplier(ctx, id, caller.UserID)
	if err != nil {
		return nil, internal(op, err)
	}
	s.log.Info().Uint("invoice_id", id).Str("status", string(updated.Status)).Msg("invoice updated")
	return updated, nil
}

// DeleteInvoice removes a PENDING invoice the caller issued.
func (s *Service) DeleteInvoice(ctx context.Context, caller identity.Identity, id uint) error {
	const op = "DeleteInvoice"

	if !caller.IsSupplier() {
		return newError(op, ErrAuthorization, "only suppliers can delete invoices")
	}

	unlock, err := s.locker.Lock(ctx, invoiceLockKey(id))
	if err != nil {
		return lockFailed(op, err)
	}
	defer unlock()

	invoice, err := s.invoices.GetForSupplier(ctx, id, caller.UserID)
	if err != nil {
		return notFoundOrInternal(op, err)
	}
	if invoice.Status != models.StatusPending {
		return newError(op, ErrConflict, "only pending invoices can be deleted")
	}

	deleted, err := s.invoices.DeletePending(ctx, id, caller.UserID)
	if err != nil {
		return internal(op, err)
	}
	if !deleted {
		return newError(op, ErrConflict, "only pending invoices can be deleted")
	}
	s.log.Info().Uint("invoice_id", id).Msg("invoice deleted")
	return nil
}

// ListInvoices returns the invoices the caller issued or owes, newest first,
// optionally restricted to one status.
func (s *Service) ListInvoices(ctx context.Context, caller identity.Identity, status string) ([]models.Invoice, error) {
	const op = "ListInvoices"

	filter := models.InvoiceStatus(status)
	if status != "" && !filter.Valid() {
		return nil, newError(op, ErrValidation, fmt.Sprintf("unknown status %q", status))
	}

	invoices, err := s.invoices.ListForParty(ctx, caller.UserID, filter)
	if err != nil {
		return nil, internal(op, err)
	}
	return invoices, nil
}

// GetInvoice returns an invoice the caller is party to, with its payments.
func (s *Service) GetInvoice(ctx context.Context, caller identity.Identity, id uint) (*models.Invoice, error) {
	invoice, err := s.invoices.GetForParty(ctx, id, caller.UserID)
	if err != nil {
		return nil, notFoundOrInternal("GetInvoice", err)
	}
	return invoice, nil
}

func (s *Service) InvoicePayments(ctx context.Context, caller identity.Identity, invoiceID uint) ([]models.Payment, error) {
	const op = "InvoicePayments"

	if _, err := s.invoices.GetForParty(ctx, invoiceID, caller.UserID); err != nil {
		return nil, notFoundOrInternal(op, err)
	}
	payments, err := s.payments.ListForInvoice(ctx, invoiceID)
	if err != nil {
		return nil, internal(op, err)
	}
	return payments, nil
}

// PaymentHistory lists payments made by a merchant, or received by a supplier.
func (s *Service) PaymentHistory(ctx context.Context, caller identity.Identity) ([]models.PaymentRecord, error) {
	var (
		records []models.PaymentRecord
		err     error
	)
	if caller.IsMerchant() {
		records, err = s.payments.HistoryForMerchant(ctx, caller.UserID)
	} else {
		records, err = s.payments.HistoryForSupplier(ctx, caller.UserID)
	}
	if err != nil {
		return nil, internal("PaymentHistory", err)
	}
	return records, nil
}

// Summary aggregates the caller's invoices for a dashboard.
func (s *Service) Summary(ctx context.Context, caller identity.Identity) (*Summary, error) {
	totals, err := s.invoices.TotalsForParty(ctx, caller.UserID)
	if err != nil {
		return nil, internal("Summary", err)
	}

	summary := &Summary{
		ByStatus: map[models.InvoiceStatus]int64{
			models.StatusPending:       0,
			models.StatusPartiallyPaid: 0,
			models.StatusPaid:          0,
		},
		Billed: decimal.Zero,
		Paid:   decimal.Zero,
	}
	for _, t := range totals {
		summary.Total += t.Count
		summary.ByStatus[t.Status] += t.Count
		summary.Billed = summary.Billed.Add(t.Amount)
		summary.Paid = summary.Paid.Add(t.AmountPaid)
	}
	summary.Outstanding = summary.Billed.Sub(summary.Paid)
	return summary, nil
}

func (s *Service) notify(ctx context.Context, userID uint, kind, content string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, userID, kind, content); err != nil {
		s.log.Warn().Err(err).Uint("user_id", userID).Str("type", kind).Msg("notification not delivered")
	}
}

func checkAmount(op string, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return newError(op, ErrValidation, "amount must be positive")
	}
	if !amount.Equal(amount.Round(2)) {
		return newError(op, ErrValidation, "amount cannot have more than two decimals")
	}
	return nil
}

func notFoundOrInternal(op string, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return wrapError(op, ErrNotFound, "invoice not found", err)
	}
	return internal(op, err)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
