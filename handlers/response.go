package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/fullmargin/factures/identity"
	"github.com/fullmargin/factures/ledger"
	"github.com/fullmargin/factures/middleware"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// Response is the envelope of every JSON answer.
type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

func respondOK(c *gin.Context, status int, message string, data any) {
	c.JSON(status, Response{Success: true, Message: message, Data: data})
}

func respondFail(c *gin.Context, status int, message string) {
	c.JSON(status, Response{Success: false, Message: message})
}

// statusFor maps a ledger error kind to its HTTP status.
func statusFor(err error) int {
	switch kind := ledger.Kind(err); {
	case errors.Is(kind, ledger.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(kind, ledger.ErrAuthorization):
		return http.StatusForbidden
	case errors.Is(kind, ledger.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(kind, ledger.ErrConflict):
		return http.StatusConflict
	case errors.Is(kind, ledger.ErrGateway):
		return http.StatusPaymentRequired
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes err as an envelope. Internal causes are logged and replaced
// by a generic message.
func respondError(c *gin.Context, log zerolog.Logger, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		log.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
	}
	c.Error(err)
	respondFail(c, status, ledger.Message(err))
}

func parseID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		respondFail(c, http.StatusBadRequest, "invalid "+name)
		return 0, false
	}
	return uint(id), true
}

// caller returns the authenticated identity or answers 401.
func caller(c *gin.Context) (identity.Identity, bool) {
	id, ok := middleware.CurrentIdentity(c)
	if !ok {
		respondFail(c, http.StatusUnauthorized, "Unauthorized")
	}
	return id, ok
}
