package models

import "time"

const (
	ChannelKindDirect = "direct"
	ChannelKindGroup  = "group"
)

const (
	RoleOwner  = "owner"
	RoleAdmin  = "admin"
	RoleMember = "member"
)

// Channel is a conversation scope owned by a tenant.
type Channel struct {
	ID          int64      `db:"id" json:"id"`
	TenantID    int64      `db:"tenant_id" json:"tenant_id"`
	Name        string     `db:"name" json:"name"`
	Description string     `db:"description" json:"description"`
	Kind        string     `db:"kind" json:"kind"`
	IsPrivate   bool       `db:"is_private" json:"is_private"`
	IsArchived  bool       `db:"is_archived" json:"is_archived"`
	MemberCount int        `db:"member_count" json:"member_count"`
	CreatedBy   int64      `db:"created_by" json:"created_by"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`
	ArchivedAt  *time.Time `db:"archived_at" json:"archived_at,omitempty"`
}

// ChannelSummary is a channel as listed for one participant.
type ChannelSummary struct {
	Channel
	Role          string     `db:"role" json:"role"`
	IsMuted       bool       `db:"is_muted" json:"is_muted"`
	IsPinned      bool       `db:"is_pinned" json:"is_pinned"`
	LastMessageAt *time.Time `db:"last_message_at" json:"last_message_at,omitempty"`
}

// ChannelUpdate carries the mutable channel fields; nil fields are left untouched.
type ChannelUpdate struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	IsPrivate   *bool   `json:"is_private"`
}

// Empty reports whether the update changes nothing.
func (u ChannelUpdate) Empty() bool {
	return u.Name == nil && u.Description == nil && u.IsPrivate == nil
}

// Participant binds a user to a channel.
type Participant struct {
	ChannelID  int64      `db:"channel_id" json:"channel_id"`
	UserID     int64      `db:"user_id" json:"user_id"`
	TenantID   int64      `db:"tenant_id" json:"tenant_id"`
	Role       string     `db:"role" json:"role"`
	IsActive   bool       `db:"is_active" json:"is_active"`
	IsMuted    bool       `db:"is_muted" json:"is_muted"`
	IsPinned   bool       `db:"is_pinned" json:"is_pinned"`
	JoinedAt   time.Time  `db:"joined_at" json:"joined_at"`
	LeftAt     *time.Time `db:"left_at" json:"left_at,omitempty"`
	LastReadAt *time.Time `db:"last_read_at" json:"last_read_at,omitempty"`
}

// CanModerate reports whether the participant holds an admin or owner role.
func (p Participant) CanModerate() bool {
	return p.Role == RoleOwner || p.Role == RoleAdmin
}

// ParticipantPreferences are per-user channel settings.
type ParticipantPreferences struct {
	IsMuted  *bool `json:"is_muted"`
	IsPinned *bool `json:"is_pinned"`
}

// ValidRole reports whether role is one of the participant roles.
func ValidRole(role string) bool {
	switch role {
	case RoleOwner, RoleAdmin, RoleMember:
		return true
	}
	return false
}
