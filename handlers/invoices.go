package handlers

import (
	"net/http"
	"time"

	"github.com/fullmargin/factures/ledger"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const dateLayout = "2006-01-02"

type InvoiceHandler struct {
	ledger *ledger.Service
	log    zerolog.Logger
}

func NewInvoiceHandler(svc *ledger.Service, log zerolog.Logger) *InvoiceHandler {
	return &InvoiceHandler{ledger: svc, log: log}
}

type CreateInvoiceRequest struct {
	MerchantID  uint            `json:"merchant_id" binding:"required"`
	Amount      decimal.Decimal `json:"amount"`
	IssueDate   string          `json:"issue_date" binding:"required"`
	DueDate     string          `json:"due_date" binding:"required"`
	Description string          `json:"description"`
}

// UpdateInvoiceRequest leaves absent fields unchanged.
type UpdateInvoiceRequest struct {
	Amount      *decimal.Decimal `json:"amount"`
	DueDate     *string          `json:"due_date"`
	Description *string          `json:"description"`
}

func parseDate(field, value string) (time.Time, error) {
	t, err := time.Parse(dateLayout, value)
	if err != nil {
		return time.Time{}, &ledger.Error{Op: "ParseRequest", Kind: ledger.ErrValidation, Message: field + " must be a YYYY-MM-DD date", Err: err}
	}
	return t, nil
}

func (h *InvoiceHandler) CreateInvoice(c *gin.Context) {
	id, ok := caller(c)
	if !ok {
		return
	}

	var req CreateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondFail(c, http.StatusBadRequest, err.Error())
		return
	}
	issue, err := parseDate("issue_date", req.IssueDate)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	due, err := parseDate("due_date", req.DueDate)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	invoice, err := h.ledger.CreateInvoice(c.Request.Context(), id, ledger.CreateInvoiceInput{
		MerchantID:  req.MerchantID,
		Amount:      req.Amount,
		IssueDate:   issue,
		DueDate:     due,
		Description: req.Description,
	})
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respondOK(c, http.StatusCreated, "invoice created", invoice)
}

func (h *InvoiceHandler) ListInvoices(c *gin.Context) {
	id, ok := caller(c)
	if !ok {
		return
	}
	invoices, err := h.ledger.ListInvoices(c.Request.Context(), id, c.Query("status"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respondOK(c, http.StatusOK, "", invoices)
}

func (h *InvoiceHandler) GetInvoice(c *gin.Context) {
	id, ok := caller(c)
	if !ok {
		return
	}
	invoiceID, ok := parseID(c, "id")
	if !ok {
		return
	}
	invoice, err := h.ledger.GetInvoice(c.Request.Context(), id, invoiceID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respondOK(c, http.StatusOK, "", invoice)
}

func (h *InvoiceHandler) UpdateInvoice(c *gin.Context) {
	id, ok := caller(c)
	if !ok {
		return
	}
	invoiceID, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req UpdateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondFail(c, http.StatusBadRequest, err.Error())
		return
	}
	in := ledger.UpdateInvoiceInput{Amount: req.Amount, Description: req.Description}
	if req.DueDate != nil {
		due, err := parseDate("due_date", *req.DueDate)
		if err != nil {
			respondError(c, h.log, err)
			return
		}
		in.DueDate = &due
	}

	invoice, err := h.ledger.UpdateInvoice(c.Request.Context(), id, invoiceID, in)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respondOK(c, http.StatusOK, "invoice updated", invoice)
}

func (h *InvoiceHandler) DeleteInvoice(c *gin.Context) {
	id, ok := caller(c)
	if !ok {
		return
	}
	invoiceID, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.ledger.DeleteInvoice(c.Request.Context(), id, invoiceID); err != nil {
		respondError(c, h.log, err)
		return
	}
	respondOK(c, http.StatusOK, "invoice deleted", nil)
}

func (h *InvoiceHandler) Stats(c *gin.Context) {
	id, ok := caller(c)
	if !ok {
		return
	}
	summary, err := h.ledger.Summary(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respondOK(c, http.StatusOK, "", summary)
}
