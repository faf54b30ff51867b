package handlers

import (
	"errors"
	"net/http"

	"github.com/fullmargin/factures/models"
	"github.com/fullmargin/factures/stores"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

type ClientHandler struct {
	clients *stores.ClientStore
	log     zerolog.Logger
}

func NewClientHandler(db *gorm.DB, log zerolog.Logger) *ClientHandler {
	return &ClientHandler{clients: stores.CreateClientStore(db), log: log}
}

type ClientRequest struct {
	Name    string `json:"name" binding:"required,max=100"`
	Email   string `json:"email" binding:"omitempty,email,max=100"`
	Phone   string `json:"phone" binding:"max=20"`
	Address string `json:"address"`
}

func (h *ClientHandler) internalError(c *gin.Context, err error, msg string) {
	h.log.Error().Err(err).Msg(msg)
	respondFail(c, http.StatusInternalServerError, "internal server error")
}

func (h *ClientHandler) CreateClient(c *gin.Context) {
	id, ok := caller(c)
	if !ok {
		return
	}
	var req ClientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondFail(c, http.StatusBadRequest, err.Error())
		return
	}

	client := &models.Client{
		Name:    req.Name,
		Email:   req.Email,
		Phone:   req.Phone,
		Address: req.Address,
		UserID:  id.UserID,
	}
	if err := h.clients.Create(c.Request.Context(), client); err != nil {
		h.internalError(c, err, "failed to create client")
		return
	}
	respondOK(c, http.StatusCreated, "client created", client)
}

func (h *ClientHandler) ListClients(c *gin.Context) {
	id, ok := caller(c)
	if !ok {
		return
	}
	clients, err := h.clients.ListByOwner(c.Request.Context(), id.UserID)
	if err != nil {
		h.internalError(c, err, "failed to list clients")
		return
	}
	respondOK(c, http.StatusOK, "", clients)
}

// owned loads the client named by :id, answering 404 when it is not the caller's.
func (h *ClientHandler) owned(c *gin.Context) (*models.Client, bool) {
	id, ok := caller(c)
	if !ok {
		return nil, false
	}
	clientID, ok := parseID(c, "id")
	if !ok {
		return nil, false
	}
	client, err := h.clients.GetOwned(c.Request.Context(), clientID, id.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondFail(c, http.StatusNotFound, "client not found")
		} else {
			h.internalError(c, err, "failed to load client")
		}
		return nil, false
	}
	return client, true
}

func (h *ClientHandler) GetClient(c *gin.Context) {
	client, ok := h.owned(c)
	if !ok {
		return
	}
	respondOK(c, http.StatusOK, "", client)
}

func (h *ClientHandler) UpdateClient(c *gin.Context) {
	client, ok := h.owned(c)
	if !ok {
		return
	}
	var req ClientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondFail(c, http.StatusBadRequest, err.Error())
		return
	}

	client.Name = req.Name
	client.Email = req.Email
	client.Phone = req.Phone
	client.Address = req.Address
	if err := h.clients.Update(c.Request.Context(), client); err != nil {
		h.internalError(c, err, "failed to update client")
		return
	}
	respondOK(c, http.StatusOK, "client updated", client)
}

func (h *ClientHandler) DeleteClient(c *gin.Context) {
	client, ok := h.owned(c)
	if !ok {
		return
	}
	if err := h.clients.Delete(c.Request.Context(), client.ID, client.UserID); err != nil {
		h.internalError(c, err, "failed to delete client")
		return
	}
	respondOK(c, http.StatusOK, "client deleted", nil)
}
