package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"channel-service/internal/messaging"
	"channel-service/internal/models"
	"channel-service/internal/presence"
)

// ChannelHandler serves channel lifecycle and membership endpoints.
type ChannelHandler struct {
	channels ChannelService
	presence presence.Tracker
	log      *zap.Logger
}

// NewChannelHandler builds a ChannelHandler.
func NewChannelHandler(channels ChannelService, tracker presence.Tracker, log *zap.Logger) *ChannelHandler {
	if tracker == nil {
		tracker = presence.Disabled{}
	}
	return &ChannelHandler{channels: channels, presence: tracker, log: log.Named("channel_handler")}
}

// ListChannels returns the caller's active channels, most recently active first.
func (h *ChannelHandler) ListChannels(c *gin.Context) {
	p, ok := principalFromContext(c)
	if !ok {
		return
	}
	channels, err := h.channels.ListChannels(c.Request.Context(), p)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"channels": channels})
}

// CreateChannel creates a group or direct channel. An existing direct channel is returned with 200.
func (h *ChannelHandler) CreateChannel(c *gin.Context) {
	p, ok := principalFromContext(c)
	if !ok {
		return
	}
	var req messaging.CreateChannelInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	channel, created, err := h.channels.CreateChannel(c.Request.Context(), p, req)
	if err != nil {
		respondError(c, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, gin.H{"channel": channel, "created": created})
}

func (h *ChannelHandler) SearchChannels(c *gin.Context) {
	p, ok := principalFromContext(c)
	if !ok {
		return
	}
	limit, ok := queryInt(c, "limit")
	if !ok {
		return
	}
	channels, err := h.channels.SearchChannels(c.Request.Context(), p, c.Query("q"), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"channels": channels})
}

func (h *ChannelHandler) GetChannel(c *gin.Context) {
	p, ok := principalFromContext(c)
	if !ok {
		return
	}
	channelID, ok := idParam(c, "channel_id", "channel id")
	if !ok {
		return
	}
	details, err := h.channels.GetChannel(c.Request.Context(), p, channelID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, details)
}

func (h *ChannelHandler) UpdateChannel(c *gin.Context) {
	p, ok := principalFromContext(c)
	if !ok {
		return
	}
	channelID, ok := idParam(c, "channel_id", "channel id")
	if !ok {
		return
	}
	var req models.ChannelUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	channel, err := h.channels.UpdateChannel(c.Request.Context(), p, channelID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"channel": channel})
}

func (h *ChannelHandler) ArchiveChannel(c *gin.Context) {
	h.channelAction(c, h.channels.ArchiveChannel, "archived")
}

func (h *ChannelHandler) DeleteChannel(c *gin.Context) {
	h.channelAction(c, h.channels.DeleteChannel, "deleted")
}

func (h *ChannelHandler) LeaveChannel(c *gin.Context) {
	h.channelAction(c, h.channels.LeaveChannel, "left")
}

func (h *ChannelHandler) channelAction(c *gin.Context, action func(ctx context.Context, p models.Principal, channelID int64) error, status string) {
	p, ok := principalFromContext(c)
	if !ok {
		return
	}
	channelID, ok := idParam(c, "channel_id", "channel id")
	if !ok {
		return
	}
	if err := action(c.Request.Context(), p, channelID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": status, "channel_id": channelID})
}

// UpdatePreferences changes the caller's own mute/pin flags on a channel.
func (h *ChannelHandler) UpdatePreferences(c *gin.Context) {
	p, ok := principalFromContext(c)
	if !ok {
		return
	}
	channelID, ok := idParam(c, "channel_id", "channel id")
	if !ok {
		return
	}
	var req models.ParticipantPreferences
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	participant, err := h.channels.UpdatePreferences(c.Request.Context(), p, channelID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"membership": participant})
}

type memberResponse struct {
	messaging.MemberView
	Online bool `json:"online"`
}

// ListMembers returns active members with their presence. ?q= filters by username or display name.
func (h *ChannelHandler) ListMembers(c *gin.Context) {
	p, ok := principalFromContext(c)
	if !ok {
		return
	}
	channelID, ok := idParam(c, "channel_id", "channel id")
	if !ok {
		return
	}
	members, err := h.channels.ListMembers(c.Request.Context(), p, channelID, c.Query("q"))
	if err != nil {
		respondError(c, err)
		return
	}

	ids := make([]int64, 0, len(members))
	for _, m := range members {
		ids = append(ids, m.UserID)
	}
	online := map[int64]bool{}
	if len(ids) > 0 {
		statuses, err := h.presence.Statuses(c.Request.Context(), p.TenantID, ids)
		if err != nil {
			h.log.Warn("presence lookup failed", zap.Int64("channel_id", channelID), zap.Error(err))
		}
		for _, s := range statuses {
			online[s.UserID] = s.Online
		}
	}

	resp := make([]memberResponse, 0, len(members))
	for _, m := range members {
		resp = append(resp, memberResponse{MemberView: m, Online: online[m.UserID]})
	}
	c.JSON(http.StatusOK, gin.H{"members": resp})
}

func (h *ChannelHandler) AddMembers(c *gin.Context) {
	p, ok := principalFromContext(c)
	if !ok {
		return
	}
	channelID, ok := idParam(c, "channel_id", "channel id")
	if !ok {
		return
	}
	var req struct {
		UserIDs []int64 `json:"user_ids" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	added, err := h.channels.AddMembers(c.Request.Context(), p, channelID, req.UserIDs)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"channel_id": channelID, "added": added})
}

func (h *ChannelHandler) RemoveMember(c *gin.Context) {
	p, ok := principalFromContext(c)
	if !ok {
		return
	}
	channelID, ok := idParam(c, "channel_id", "channel id")
	if !ok {
		return
	}
	userID, ok := idParam(c, "user_id", "user id")
	if !ok {
		return
	}
	if err := h.channels.RemoveMember(c.Request.Context(), p, channelID, userID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"channel_id": channelID, "removed": userID})
}

func (h *ChannelHandler) ChangeRole(c *gin.Context) {
	p, ok := principalFromContext(c)
	if !ok {
		return
	}
	channelID, ok := idParam(c, "channel_id", "channel id")
	if !ok {
		return
	}
	userID, ok := idParam(c, "user_id", "user id")
	if !ok {
		return
	}
	var req struct {
		Role string `json:"role" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.channels.ChangeRole(c.Request.Context(), p, channelID, userID, req.Role); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"channel_id": channelID, "user_id": userID, "role": req.Role})
}
