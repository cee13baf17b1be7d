package models

import "time"

const (
	MessageTypeText   = "text"
	MessageTypeFile   = "file"
	MessageTypeSystem = "system"
)

// Message represents a channel message.
type Message struct {
	ID              int64        `db:"id" json:"id"`
	ChannelID       int64        `db:"channel_id" json:"channel_id"`
	TenantID        int64        `db:"tenant_id" json:"tenant_id"`
	SenderID        int64        `db:"sender_id" json:"sender_id"`
	Type            string       `db:"message_type" json:"type"`
	Content         string       `db:"content" json:"content"`
	Mentions        RecipientSet `db:"mentions" json:"mentions"`
	HasAttachments  bool         `db:"has_attachments" json:"has_attachments"`
	HasMentions     bool         `db:"has_mentions" json:"has_mentions"`
	IsEdited        bool         `db:"is_edited" json:"is_edited"`
	EditedAt        *time.Time   `db:"edited_at" json:"edited_at,omitempty"`
	IsDeleted       bool         `db:"is_deleted" json:"is_deleted"`
	DeletedAt       *time.Time   `db:"deleted_at" json:"deleted_at,omitempty"`
	DeletedBy       *int64       `db:"deleted_by" json:"deleted_by,omitempty"`
	IsPinned        bool         `db:"is_pinned" json:"is_pinned"`
	PinnedAt        *time.Time   `db:"pinned_at" json:"pinned_at,omitempty"`
	PinnedBy        *int64       `db:"pinned_by" json:"pinned_by,omitempty"`
	ParentMessageID *int64       `db:"parent_message_id" json:"parent_message_id,omitempty"`
	ThreadID        *int64       `db:"thread_id" json:"thread_id,omitempty"`
	ForwardedFromID *int64       `db:"forwarded_from_id" json:"forwarded_from_id,omitempty"`
	DeliveredTo     RecipientSet `db:"delivered_to" json:"delivered_to"`
	ReadBy          RecipientSet `db:"read_by" json:"read_by"`
	CreatedAt       time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time    `db:"updated_at" json:"updated_at"`
}

// IsThreadReply reports whether the message belongs to a thread under another message.
func (m Message) IsThreadReply() bool {
	return m.ParentMessageID != nil
}

// ThreadRoot returns the id of the message that anchors the thread m belongs to.
func (m Message) ThreadRoot() int64 {
	if m.ThreadID != nil {
		return *m.ThreadID
	}
	return m.ID
}

// MessageView is a message enriched with display fields for immediate rendering.
type MessageView struct {
	Message
	SenderName  string       `json:"sender_name,omitempty"`
	Attachments []Attachment `json:"attachments,omitempty"`
	Reactions   []Reaction   `json:"reactions,omitempty"`
}

// Reaction is a single (message, user, emoji) row.
type Reaction struct {
	ID        int64     `db:"id" json:"id"`
	MessageID int64     `db:"message_id" json:"message_id"`
	UserID    int64     `db:"user_id" json:"user_id"`
	Emoji     string    `db:"emoji" json:"emoji"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Attachment belongs to exactly one message; the bytes live with the storage collaborator.
type Attachment struct {
	ID          int64     `db:"id" json:"id"`
	MessageID   int64     `db:"message_id" json:"message_id"`
	ChannelID   int64     `db:"channel_id" json:"channel_id"`
	TenantID    int64     `db:"tenant_id" json:"tenant_id"`
	FileName    string    `db:"file_name" json:"file_name"`
	MimeType    string    `db:"mime_type" json:"mime_type"`
	SizeBytes   int64     `db:"size_bytes" json:"size_bytes"`
	ContentHash string    `db:"content_hash" json:"content_hash"`
	StorageKey  string    `db:"storage_key" json:"storage_key"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}
