package handlers

import (
	"net/http"

	"github.com/fullmargin/factures/ledger"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

type PaymentHandler struct {
	ledger *ledger.Service
	log    zerolog.Logger
}

func NewPaymentHandler(svc *ledger.Service, log zerolog.Logger) *PaymentHandler {
	return &PaymentHandler{ledger: svc, log: log}
}

type PayRequest struct {
	InvoiceID   uint            `json:"invoice_id" binding:"required"`
	Amount      decimal.Decimal `json:"amount"`
	PhoneNumber string          `json:"phone_number" binding:"required,max=20"`
}

func (h *PaymentHandler) Pay(c *gin.Context) {
	id, ok := caller(c)
	if !ok {
		return
	}

	var req PayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondFail(c, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.ledger.ApplyPayment(c.Request.Context(), id, ledger.PaymentInput{
		InvoiceID:   req.InvoiceID,
		Amount:      req.Amount,
		PhoneNumber: req.PhoneNumber,
	})
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respondOK(c, http.StatusCreated, "payment applied", result)
}

func (h *PaymentHandler) History(c *gin.Context) {
	id, ok := caller(c)
	if !ok {
		return
	}
	records, err := h.ledger.PaymentHistory(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respondOK(c, http.StatusOK, "", records)
}

func (h *PaymentHandler) InvoicePayments(c *gin.Context) {
	id, ok := caller(c)
	if !ok {
		return
	}
	invoiceID, ok := parseID(c, "id")
	if !ok {
		return
	}
	payments, err := h.ledger.InvoicePayments(c.Request.Context(), id, invoiceID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respondOK(c, http.StatusOK, "", payments)
}
