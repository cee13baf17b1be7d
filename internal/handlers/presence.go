package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"channel-service/internal/presence"
)

const maxPresenceLookup = 200

// PresenceHandler exposes the presence tracker to polling clients. Tracker failures degrade to offline.
type PresenceHandler struct {
	tracker presence.Tracker
	log     *zap.Logger
}

func NewPresenceHandler(tracker presence.Tracker, log *zap.Logger) *PresenceHandler {
	if tracker == nil {
		tracker = presence.Disabled{}
	}
	return &PresenceHandler{tracker: tracker, log: log.Named("presence_handler")}
}

// GetPresence returns statuses for ?user_ids=1,2,3.
func (h *PresenceHandler) GetPresence(c *gin.Context) {
	p, ok := principalFromContext(c)
	if !ok {
		return
	}
	ids, err := parseIDList(c.Query("user_ids"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user_ids"})
		return
	}
	if len(ids) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_ids is required"})
		return
	}
	if len(ids) > maxPresenceLookup {
		c.JSON(http.StatusBadRequest, gin.H{"error": "too many user_ids"})
		return
	}

	statuses, err := h.tracker.Statuses(c.Request.Context(), p.TenantID, ids)
	if err != nil {
		h.log.Warn("presence lookup failed", zap.Int64("tenant_id", p.TenantID), zap.Error(err))
		statuses = make([]presence.Status, 0, len(ids))
		for _, id := range ids {
			statuses = append(statuses, presence.Status{UserID: id})
		}
	}
	c.JSON(http.StatusOK, gin.H{"statuses": statuses})
}

func (h *PresenceHandler) ListOnline(c *gin.Context) {
	p, ok := principalFromContext(c)
	if !ok {
		return
	}
	ids, err := h.tracker.OnlineUsers(c.Request.Context(), p.TenantID)
	if err != nil {
		h.log.Warn("online users lookup failed", zap.Int64("tenant_id", p.TenantID), zap.Error(err))
		ids = []int64{}
	}
	c.JSON(http.StatusOK, gin.H{"user_ids": ids})
}

// SetPresence lets a polling client mark itself online (refreshing the TTL) or offline.
func (h *PresenceHandler) SetPresence(c *gin.Context) {
	p, ok := principalFromContext(c)
	if !ok {
		return
	}
	var req struct {
		Online *bool `json:"online" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if *req.Online {
		err := h.tracker.SetOnline(c.Request.Context(), p.TenantID, p.UserID)
		if err != nil {
			h.log.Warn("set online failed", zap.Int64("user_id", p.UserID), zap.Error(err))
		}
	} else {
		err := h.tracker.SetOffline(c.Request.Context(), p.TenantID, p.UserID)
		if err != nil {
			h.log.Warn("set offline failed", zap.Int64("user_id", p.UserID), zap.Error(err))
		}
	}
	c.JSON(http.StatusOK, gin.H{"user_id": p.UserID, "online": *req.Online})
}
