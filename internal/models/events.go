package models

// Outbound realtime event names.
const (
	EventNewMessage     = "new_message"
	EventMessageEdited  = "message_edited"
	EventMessageDeleted = "message_deleted"
	EventReactionAdded  = "reaction_added"
	EventReactionRemove = "reaction_removed"
	EventMessagePinned  = "message_pinned"
	EventMessageUnpin   = "message_unpinned"
	EventThreadReply    = "thread_reply"
	EventMessageRead    = "message_read"
	EventUserTyping     = "user_typing"
	EventMembersAdded   = "members_added"
	EventMemberInvited  = "member_invited"
	EventMemberRemoved  = "member_removed"
	EventMemberLeft     = "member_left"
	EventRoleChanged    = "role_changed"
	EventChannelUpdated = "channel_updated"
	EventChannelArchive = "channel_archived"
	EventNotification   = "notification"
)

// Event is pushed to live connections.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// NewEvent builds an event.
func NewEvent(eventType string, data any) Event {
	return Event{Type: eventType, Data: data}
}
