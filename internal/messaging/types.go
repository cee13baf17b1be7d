package messaging

import (
	"time"

	"channel-service/internal/models"
)

const (
	MaxContentLength = 10000
	MaxEmojiLength   = 64
	DefaultPageSize  = 50
	MaxPageSize      = 100

	ReactionAdded         = "added"
	ReactionAlreadyExists = "already_exists"
)

// SendInput describes a new message. ParentMessageID makes it a thread reply.
type SendInput struct {
	ChannelID       int64               `json:"channel_id"`
	Content         string              `json:"content"`
	Type            string              `json:"type"`
	Mentions        []int64             `json:"mentions"`
	Attachments     []models.Attachment `json:"attachments"`
	ParentMessageID *int64              `json:"parent_message_id"`
}

type ForwardResult struct {
	ChannelID int64  `json:"channel_id"`
	Success   bool   `json:"success"`
	MessageID int64  `json:"message_id,omitempty"`
	Error     string `json:"error,omitempty"`
}

type ReactionResult struct {
	Action    string `json:"action"`
	MessageID int64  `json:"message_id"`
	Emoji     string `json:"emoji"`
}

type ReadResult struct {
	MessageID int64 `json:"message_id"`
	Changed   bool  `json:"changed"`
}

type ChannelReadResult struct {
	ChannelID int64   `json:"channel_id"`
	Marked    []int64 `json:"marked"`
}

type UnreadSummary struct {
	Total    int           `json:"total"`
	Channels map[int64]int `json:"channels"`
}

// MessageReadEvent is pushed privately to a message's sender.
type MessageReadEvent struct {
	ChannelID  int64     `json:"channel_id"`
	MessageID  int64     `json:"message_id"`
	MessageIDs []int64   `json:"message_ids"`
	ReaderID   int64     `json:"reader_id"`
	ReaderName string    `json:"reader_name"`
	ReadAt     time.Time `json:"read_at"`
}

type CreateChannelInput struct {
	Name           string  `json:"name"`
	Description    string  `json:"description"`
	Kind           string  `json:"kind"`
	IsPrivate      bool    `json:"is_private"`
	ParticipantIDs []int64 `json:"participant_ids"`
}

type ChannelDetails struct {
	Channel     models.Channel     `json:"channel"`
	Participant models.Participant `json:"membership"`
}

type MemberView struct {
	models.Participant
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	AvatarURL   string `json:"avatar_url,omitempty"`
}

type ThreadView struct {
	Root    models.MessageView   `json:"root"`
	Replies []models.MessageView `json:"replies"`
}

type TypingEvent struct {
	ChannelID   int64  `json:"channel_id"`
	UserID      int64  `json:"user_id"`
	DisplayName string `json:"display_name"`
	IsTyping    bool   `json:"is_typing"`
}

type ReactionEvent struct {
	ChannelID int64  `json:"channel_id"`
	MessageID int64  `json:"message_id"`
	UserID    int64  `json:"user_id"`
	Emoji     string `json:"emoji"`
}

type MessageDeletedEvent struct {
	ChannelID int64 `json:"channel_id"`
	MessageID int64 `json:"message_id"`
	DeletedBy int64 `json:"deleted_by"`
}

type MembershipEvent struct {
	ChannelID int64   `json:"channel_id"`
	UserIDs   []int64 `json:"user_ids"`
	ActorID   int64   `json:"actor_id"`
	Role      string  `json:"role,omitempty"`
}
