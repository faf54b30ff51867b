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

const notificationPageSize = 50

type NotificationHandler struct {
	notifications *stores.NotificationStore
	log           zerolog.Logger
}

func NewNotificationHandler(db *gorm.DB, log zerolog.Logger) *NotificationHandler {
	return &NotificationHandler{notifications: stores.CreateNotificationStore(db), log: log}
}

type NotificationList struct {
	Notifications []models.Notification `json:"notifications"`
	Unread        int64                 `json:"unread"`
}

func (h *NotificationHandler) fail(c *gin.Context, err error) {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		respondFail(c, http.StatusNotFound, "notification not found")
		return
	}
	h.log.Error().Err(err).Str("path", c.FullPath()).Msg("notification request failed")
	respondFail(c, http.StatusInternalServerError, "internal server error")
}

func (h *NotificationHandler) ListNotifications(c *gin.Context) {
	id, ok := caller(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	list, err := h.notifications.ListForUser(ctx, id.UserID, notificationPageSize)
	if err != nil {
		h.fail(c, err)
		return
	}
	unread, err := h.notifications.CountUnread(ctx, id.UserID)
	if err != nil {
		h.fail(c, err)
		return
	}
	respondOK(c, http.StatusOK, "", NotificationList{Notifications: list, Unread: unread})
}

func (h *NotificationHandler) MarkRead(c *gin.Context) {
	id, ok := caller(c)
	if !ok {
		return
	}
	notificationID, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.notifications.MarkRead(c.Request.Context(), notificationID, id.UserID); err != nil {
		h.fail(c, err)
		return
	}
	respondOK(c, http.StatusOK, "notification marked as read", nil)
}

func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	id, ok := caller(c)
	if !ok {
		return
	}
	n, err := h.notifications.MarkAllRead(c.Request.Context(), id.UserID)
	if err != nil {
		h.fail(c, err)
		return
	}
	respondOK(c, http.StatusOK, "notifications marked as read", gin.H{"updated": n})
}

func (h *NotificationHandler) DeleteNotification(c *gin.Context) {
	id, ok := caller(c)
	if !ok {
		return
	}
	notificationID, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.notifications.Delete(c.Request.Context(), notificationID, id.UserID); err != nil {
		h.fail(c, err)
		return
	}
	respondOK(c, http.StatusOK, "notification deleted", nil)
}
