package ws

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"channel-service/internal/apperrors"
	"channel-service/internal/messaging"
	"channel-service/internal/models"
	"channel-service/internal/presence"
)

const (
	InboundSendMessage    = "send_message"
	InboundTypingStart    = "typing_start"
	InboundTypingStop     = "typing_stop"
	InboundAddReaction    = "add_reaction"
	InboundRemoveReaction = "remove_reaction"
	InboundEditMessage    = "edit_message"
	InboundDeleteMessage  = "delete_message"
	InboundPinMessage     = "pin_message"
	InboundThreadReply    = "thread_reply"
	InboundMarkAsRead     = "mark_as_read"
	InboundInviteMembers  = "invite_members"
	InboundPing           = "ping"

	eventAck = "ack"
)

// Messenger is the part of the messaging service reachable from a live connection.
type Messenger interface {
	ChannelIDsFor(ctx context.Context, p models.Principal) ([]int64, error)
	Send(ctx context.Context, p models.Principal, in messaging.SendInput) (models.MessageView, error)
	ThreadReply(ctx context.Context, p models.Principal, parentID int64, in messaging.SendInput) (models.MessageView, error)
	Edit(ctx context.Context, p models.Principal, messageID int64, content string) (models.Message, error)
	Delete(ctx context.Context, p models.Principal, messageID int64) error
	Pin(ctx context.Context, p models.Principal, messageID int64, pinned bool) (models.Message, error)
	AddReaction(ctx context.Context, p models.Principal, messageID int64, emoji string) (messaging.ReactionResult, error)
	RemoveReaction(ctx context.Context, p models.Principal, messageID int64, emoji string) (bool, error)
	MarkRead(ctx context.Context, p models.Principal, messageID int64) (messaging.ReadResult, error)
	MarkChannelRead(ctx context.Context, p models.Principal, channelID, upToID int64) (messaging.ChannelReadResult, error)
	Typing(ctx context.Context, p models.Principal, channelID int64, typing bool) error
	AddMembers(ctx context.Context, p models.Principal, channelID int64, userIDs []int64) ([]int64, error)
}

// Inbound is a client frame: {"type": "...", "request_id": "...", "data": {...}}.
type Inbound struct {
	Type      string          `json:"type"`
	RequestID string          `json:"request_id,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// Ack answers exactly one inbound frame.
type Ack struct {
	RequestID string      `json:"request_id,omitempty"`
	Event     string      `json:"event"`
	Success   bool        `json:"success"`
	Data      interface{} `json:"data,omitempty"`
	Error     *AckError   `json:"error,omitempty"`
}

type AckError struct {
	Code    apperrors.Code `json:"code"`
	Message string         `json:"message"`
}

type payload struct {
	ChannelID        int64               `json:"channel_id"`
	MessageID        int64               `json:"message_id"`
	ParentMessageID  int64               `json:"parent_message_id"`
	ReplyToMessageID int64               `json:"reply_to_message_id"`
	UpToMessageID    int64               `json:"up_to_message_id"`
	Content          string              `json:"content"`
	Type             string              `json:"type"`
	Mentions         []int64             `json:"mentions"`
	Attachments      []models.Attachment `json:"attachments"`
	Emoji            string              `json:"emoji"`
	IsPinned         *bool               `json:"is_pinned"`
	UserIDs          []int64             `json:"user_ids"`
}

// UnmarshalJSON also accepts the camelCase spellings of the id fields. When a frame carries both
// spellings the snake_case value wins.
func (b *payload) UnmarshalJSON(data []byte) error {
	type plain payload
	var camel struct {
		ChannelID        int64   `json:"channelId"`
		MessageID        int64   `json:"messageId"`
		ParentMessageID  int64   `json:"parentMessageId"`
		ReplyToMessageID int64   `json:"replyToMessageId"`
		UpToMessageID    int64   `json:"upToMessageId"`
		IsPinned         *bool   `json:"isPinned"`
		UserIDs          []int64 `json:"userIds"`
	}
	if err := json.Unmarshal(data, (*plain)(b)); err != nil {
		return err
	}
	if err := json.Unmarshal(data, &camel); err != nil {
		return err
	}
	fill := func(dst *int64, v int64) {
		if *dst == 0 {
			*dst = v
		}
	}
	fill(&b.ChannelID, camel.ChannelID)
	fill(&b.MessageID, camel.MessageID)
	fill(&b.ParentMessageID, camel.ParentMessageID)
	fill(&b.ReplyToMessageID, camel.ReplyToMessageID)
	fill(&b.UpToMessageID, camel.UpToMessageID)
	if b.IsPinned == nil {
		b.IsPinned = camel.IsPinned
	}
	if b.UserIDs == nil {
		b.UserIDs = camel.UserIDs
	}
	return nil
}

// Router turns inbound frames into messaging calls.
type Router struct {
	messenger Messenger
	presence  presence.Tracker
	log       *zap.Logger
}

func NewRouter(messenger Messenger, tracker presence.Tracker, log *zap.Logger) *Router {
	return &Router{messenger: messenger, presence: tracker, log: log.Named("ws.router")}
}

// Handle runs one inbound frame and builds its acknowledgement. Every frame also refreshes the
// sender's presence.
func (r *Router) Handle(ctx context.Context, p models.Principal, in Inbound) Ack {
	r.heartbeat(ctx, p)
	ack := Ack{RequestID: in.RequestID, Event: in.Type}

	var body payload
	if len(in.Data) > 0 {
		if err := json.Unmarshal(in.Data, &body); err != nil {
			return fail(ack, apperrors.BadRequest("malformed event payload"))
		}
	}
	data, err := r.route(ctx, p, in.Type, body)
	if err != nil {
		if apperrors.CodeOf(err) == apperrors.CodeInternal {
			r.log.Error("inbound event failed", zap.String("event", in.Type), zap.Int64("user_id", p.UserID), zap.Error(err))
		}
		return fail(ack, err)
	}
	ack.Success = true
	ack.Data = data
	return ack
}

func (r *Router) route(ctx context.Context, p models.Principal, event string, b payload) (interface{}, error) {
	switch event {
	case InboundPing:
		return map[string]bool{"pong": true}, nil
	case InboundSendMessage:
		in := messaging.SendInput{
			ChannelID:   b.ChannelID,
			Content:     b.Content,
			Type:        b.Type,
			Mentions:    b.Mentions,
			Attachments: b.Attachments,
		}
		if b.ReplyToMessageID > 0 {
			in.ParentMessageID = &b.ReplyToMessageID
		}
		return r.messenger.Send(ctx, p, in)
	case InboundThreadReply:
		if b.ParentMessageID <= 0 {
			return nil, apperrors.BadRequest("parent_message_id is required")
		}
		return r.messenger.ThreadReply(ctx, p, b.ParentMessageID, messaging.SendInput{
			ChannelID:   b.ChannelID,
			Content:     b.Content,
			Mentions:    b.Mentions,
			Attachments: b.Attachments,
		})
	case InboundTypingStart, InboundTypingStop:
		return nil, r.messenger.Typing(ctx, p, b.ChannelID, event == InboundTypingStart)
	case InboundAddReaction:
		return r.messenger.AddReaction(ctx, p, b.MessageID, b.Emoji)
	case InboundRemoveReaction:
		removed, err := r.messenger.RemoveReaction(ctx, p, b.MessageID, b.Emoji)
		return map[string]bool{"removed": removed}, err
	case InboundEditMessage:
		return r.messenger.Edit(ctx, p, b.MessageID, b.Content)
	case InboundDeleteMessage:
		return nil, r.messenger.Delete(ctx, p, b.MessageID)
	case InboundPinMessage:
		pinned := true
		if b.IsPinned != nil {
			pinned = *b.IsPinned
		}
		return r.messenger.Pin(ctx, p, b.MessageID, pinned)
	case InboundMarkAsRead:
		if b.MessageID > 0 {
			return r.messenger.MarkRead(ctx, p, b.MessageID)
		}
		return r.messenger.MarkChannelRead(ctx, p, b.ChannelID, b.UpToMessageID)
	case InboundInviteMembers:
		added, err := r.messenger.AddMembers(ctx, p, b.ChannelID, b.UserIDs)
		return map[string][]int64{"added": added}, err
	}
	return nil, apperrors.BadRequest("unknown event type")
}

func (r *Router) heartbeat(ctx context.Context, p models.Principal) {
	if err := r.presence.SetOnline(ctx, p.TenantID, p.UserID); err != nil {
		r.log.Debug("presence refresh failed", zap.Int64("user_id", p.UserID), zap.Error(err))
	}
}

func fail(ack Ack, err error) Ack {
	ack.Success = false
	ack.Data = nil
	ack.Error = &AckError{Code: apperrors.CodeOf(err), Message: apperrors.MessageOf(err)}
	return ack
}
