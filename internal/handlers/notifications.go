package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// NotificationHandler serves the caller's notification inbox.
type NotificationHandler struct {
	inbox Inbox
}

func NewNotificationHandler(inbox Inbox) *NotificationHandler {
	return &NotificationHandler{inbox: inbox}
}

// ListNotifications supports ?unread_only=true and ?limit=.
func (h *NotificationHandler) ListNotifications(c *gin.Context) {
	p, ok := principalFromContext(c)
	if !ok {
		return
	}
	limit, ok := queryInt(c, "limit")
	if !ok {
		return
	}
	inbox, err := h.inbox.List(c.Request.Context(), p, c.Query("unread_only") == "true", limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, inbox)
}

func (h *NotificationHandler) MarkRead(c *gin.Context) {
	p, ok := principalFromContext(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "notification_id", "notification id")
	if !ok {
		return
	}
	if err := h.inbox.MarkRead(c.Request.Context(), p, id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"notification_id": id, "is_read": true})
}

func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	p, ok := principalFromContext(c)
	if !ok {
		return
	}
	n, err := h.inbox.MarkAllRead(c.Request.Context(), p)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": n})
}
