package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

const (
	SubjectChannel = "channel"
	SubjectMessage = "message"
)

// Activity is an append-only audit trail entry.
type Activity struct {
	ID          int64     `db:"id" json:"id"`
	TenantID    int64     `db:"tenant_id" json:"tenant_id"`
	UserID      int64     `db:"user_id" json:"user_id"`
	SubjectType string    `db:"subject_type" json:"subject_type"`
	SubjectID   int64     `db:"subject_id" json:"subject_id"`
	Action      string    `db:"action" json:"action"`
	Description string    `db:"description" json:"description"`
	Metadata    JSONMap   `db:"metadata" json:"metadata,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

const (
	NotificationMention     = "mention"
	NotificationThreadReply = "thread_reply"
	NotificationNewMessage  = "new_message"
	NotificationReaction    = "reaction_added"
	NotificationInvited     = "member_invited"

	PriorityHigh   = "high"
	PriorityNormal = "normal"
	PriorityLow    = "low"
)

// Notification is addressed to a single recipient.
type Notification struct {
	ID          int64      `db:"id" json:"id"`
	TenantID    int64      `db:"tenant_id" json:"tenant_id"`
	RecipientID int64      `db:"recipient_id" json:"recipient_id"`
	EventType   string     `db:"event_type" json:"event_type"`
	Payload     JSONMap    `db:"payload" json:"payload"`
	Priority    string     `db:"priority" json:"priority"`
	IsRead      bool       `db:"is_read" json:"is_read"`
	ReadAt      *time.Time `db:"read_at" json:"read_at,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
}

// JSONMap is a JSONB column.
type JSONMap map[string]any

// Value implements driver.Valuer.
func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(m)
}

// Scan implements sql.Scanner.
func (m *JSONMap) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*m = nil
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("jsonmap: unsupported source %T", src)
	}
	if len(raw) == 0 {
		*m = nil
		return nil
	}
	return json.Unmarshal(raw, m)
}
