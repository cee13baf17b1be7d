package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"channel-service/internal/messaging"
	"channel-service/internal/models"
)

// MessageHandler serves message, reaction, thread and read-state endpoints.
type MessageHandler struct {
	messages MessageService
}

// NewMessageHandler builds a MessageHandler.
func NewMessageHandler(messages MessageService) *MessageHandler {
	return &MessageHandler{messages: messages}
}

type sendRequest struct {
	Content     string              `json:"content"`
	Type        string              `json:"type"`
	Mentions    []int64             `json:"mentions"`
	Attachments []models.Attachment `json:"attachments"`
	ParentID    *int64              `json:"parent_message_id"`
}

func (r sendRequest) input(channelID int64) messaging.SendInput {
	return messaging.SendInput{
		ChannelID:       channelID,
		Content:         r.Content,
		Type:            r.Type,
		Mentions:        r.Mentions,
		Attachments:     r.Attachments,
		ParentMessageID: r.ParentID,
	}
}

// ListMessages pages backwards through a channel. ?before= is a message id, ?limit= caps the page.
func (h *MessageHandler) ListMessages(c *gin.Context) {
	p, ok := principalFromContext(c)
	if !ok {
		return
	}
	channelID, ok := idParam(c, "channel_id", "channel id")
	if !ok {
		return
	}
	before, ok := queryInt64(c, "before")
	if !ok {
		return
	}
	limit, ok := queryInt(c, "limit")
	if !ok {
		return
	}
	messages, err := h.messages.ListMessages(c.Request.Context(), p, channelID, before, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": messages})
}

// PostMessage sends a message (or a thread reply when parent_message_id is set).
func (h *MessageHandler) PostMessage(c *gin.Context) {
	p, ok := principalFromContext(c)
	if !ok {
		return
	}
	channelID, ok := idParam(c, "channel_id", "channel id")
	if !ok {
		return
	}
	var req sendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	msg, err := h.messages.Send(c.Request.Context(), p, req.input(channelID))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": msg})
}

func (h *MessageHandler) GetMessage(c *gin.Context) {
	p, ok := principalFromContext(c)
	if !ok {
		return
	}
	messageID, ok := idParam(c, "message_id", "message id")
	if !ok {
		return
	}
	msg, err := h.messages.GetMessage(c.Request.Context(), p, messageID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": msg})
}

func (h *MessageHandler) EditMessage(c *gin.Context) {
	p, ok := principalFromContext(c)
	if !ok {
		return
	}
	messageID, ok := idParam(c, "message_id", "message id")
	if !ok {
		return
	}
	var req struct {
		Content string `json:"content" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	msg, err := h.messages.Edit(c.Request.Context(), p, messageID, req.Content)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": msg})
}

func (h *MessageHandler) DeleteMessage(c *gin.Context) {
	p, ok := principalFromContext(c)
	if !ok {
		return
	}
	messageID, ok := idParam(c, "message_id", "message id")
	if !ok {
		return
	}
	if err := h.messages.Delete(c.Request.Context(), p, messageID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted", "message_id": messageID})
}

func (h *MessageHandler) PinMessage(c *gin.Context)   { h.setPinned(c, true) }
func (h *MessageHandler) UnpinMessage(c *gin.Context) { h.setPinned(c, false) }

func (h *MessageHandler) setPinned(c *gin.Context, pinned bool) {
	p, ok := principalFromContext(c)
	if !ok {
		return
	}
	messageID, ok := idParam(c, "message_id", "message id")
	if !ok {
		return
	}
	msg, err := h.messages.Pin(c.Request.Context(), p, messageID, pinned)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": msg})
}

// ForwardMessage copies a message into each target channel and reports per-target outcomes.
func (h *MessageHandler) ForwardMessage(c *gin.Context) {
	p, ok := principalFromContext(c)
	if !ok {
		return
	}
	messageID, ok := idParam(c, "message_id", "message id")
	if !ok {
		return
	}
	var req struct {
		ChannelIDs []int64 `json:"channel_ids" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	results, err := h.messages.Forward(c.Request.Context(), p, messageID, req.ChannelIDs)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": results})
}

func (h *MessageHandler) ListReplies(c *gin.Context) {
	p, ok := principalFromContext(c)
	if !ok {
		return
	}
	messageID, ok := idParam(c, "message_id", "message id")
	if !ok {
		return
	}
	thread, err := h.messages.ListThread(c.Request.Context(), p, messageID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, thread)
}

func (h *MessageHandler) PostReply(c *gin.Context) {
	p, ok := principalFromContext(c)
	if !ok {
		return
	}
	messageID, ok := idParam(c, "message_id", "message id")
	if !ok {
		return
	}
	var req sendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	msg, err := h.messages.ThreadReply(c.Request.Context(), p, messageID, req.input(0))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": msg})
}

// AddReaction is idempotent: a repeat returns 200 with action "already_exists".
func (h *MessageHandler) AddReaction(c *gin.Context) {
	p, ok := principalFromContext(c)
	if !ok {
		return
	}
	messageID, ok := idParam(c, "message_id", "message id")
	if !ok {
		return
	}
	var req struct {
		Emoji string `json:"emoji" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	result, err := h.messages.AddReaction(c.Request.Context(), p, messageID, req.Emoji)
	if err != nil {
		respondError(c, err)
		return
	}
	status := http.StatusOK
	if result.Action == messaging.ReactionAdded {
		status = http.StatusCreated
	}
	c.JSON(status, result)
}

func (h *MessageHandler) RemoveReaction(c *gin.Context) {
	p, ok := principalFromContext(c)
	if !ok {
		return
	}
	messageID, ok := idParam(c, "message_id", "message id")
	if !ok {
		return
	}
	emoji := strings.TrimSpace(c.Param("emoji"))
	if emoji == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "emoji is required"})
		return
	}
	removed, err := h.messages.RemoveReaction(c.Request.Context(), p, messageID, emoji)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message_id": messageID, "emoji": emoji, "removed": removed})
}

func (h *MessageHandler) MarkRead(c *gin.Context) {
	p, ok := principalFromContext(c)
	if !ok {
		return
	}
	messageID, ok := idParam(c, "message_id", "message id")
	if !ok {
		return
	}
	result, err := h.messages.MarkRead(c.Request.Context(), p, messageID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// MarkChannelRead marks every unread message up to up_to_message_id (or all, when omitted).
func (h *MessageHandler) MarkChannelRead(c *gin.Context) {
	p, ok := principalFromContext(c)
	if !ok {
		return
	}
	channelID, ok := idParam(c, "channel_id", "channel id")
	if !ok {
		return
	}
	var req struct {
		UpToMessageID int64 `json:"up_to_message_id"`
	}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}
	result, err := h.messages.MarkChannelRead(c.Request.Context(), p, channelID, req.UpToMessageID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *MessageHandler) UnreadCounts(c *gin.Context) {
	p, ok := principalFromContext(c)
	if !ok {
		return
	}
	summary, err := h.messages.UnreadCounts(c.Request.Context(), p)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// SearchMessages matches content across the caller's channels, or one channel with ?channel_id=.
func (h *MessageHandler) SearchMessages(c *gin.Context) {
	p, ok := principalFromContext(c)
	if !ok {
		return
	}
	channelID, ok := queryInt64(c, "channel_id")
	if !ok {
		return
	}
	limit, ok := queryInt(c, "limit")
	if !ok {
		return
	}
	messages, err := h.messages.SearchMessages(c.Request.Context(), p, channelID, c.Query("q"), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": messages})
}

func (h *MessageHandler) ListPinned(c *gin.Context) {
	p, ok := principalFromContext(c)
	if !ok {
		return
	}
	channelID, ok := idParam(c, "channel_id", "channel id")
	if !ok {
		return
	}
	messages, err := h.messages.ListPinned(c.Request.Context(), p, channelID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": messages})
}

func (h *MessageHandler) ListFiles(c *gin.Context) {
	p, ok := principalFromContext(c)
	if !ok {
		return
	}
	channelID, ok := idParam(c, "channel_id", "channel id")
	if !ok {
		return
	}
	limit, ok := queryInt(c, "limit")
	if !ok {
		return
	}
	files, err := h.messages.ListFiles(c.Request.Context(), p, channelID, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"files": files})
}
