package handlers

import (
	"context"

	"channel-service/internal/messaging"
	"channel-service/internal/models"
	"channel-service/internal/notifications"
)

// ChannelService is the channel and membership subset of the messaging service.
type ChannelService interface {
	ListChannels(ctx context.Context, p models.Principal) ([]models.ChannelSummary, error)
	CreateChannel(ctx context.Context, p models.Principal, in messaging.CreateChannelInput) (models.Channel, bool, error)
	GetChannel(ctx context.Context, p models.Principal, channelID int64) (messaging.ChannelDetails, error)
	SearchChannels(ctx context.Context, p models.Principal, query string, limit int) ([]models.Channel, error)
	UpdateChannel(ctx context.Context, p models.Principal, channelID int64, update models.ChannelUpdate) (models.Channel, error)
	ArchiveChannel(ctx context.Context, p models.Principal, channelID int64) error
	DeleteChannel(ctx context.Context, p models.Principal, channelID int64) error
	LeaveChannel(ctx context.Context, p models.Principal, channelID int64) error
	UpdatePreferences(ctx context.Context, p models.Principal, channelID int64, prefs models.ParticipantPreferences) (models.Participant, error)
	ListMembers(ctx context.Context, p models.Principal, channelID int64, query string) ([]messaging.MemberView, error)
	AddMembers(ctx context.Context, p models.Principal, channelID int64, userIDs []int64) ([]int64, error)
	RemoveMember(ctx context.Context, p models.Principal, channelID, userID int64) error
	ChangeRole(ctx context.Context, p models.Principal, channelID, userID int64, role string) error
}

// MessageService is the message, reaction and read-state subset of the messaging service.
type MessageService interface {
	ListMessages(ctx context.Context, p models.Principal, channelID, beforeID int64, limit int) ([]models.MessageView, error)
	GetMessage(ctx context.Context, p models.Principal, messageID int64) (models.MessageView, error)
	Send(ctx context.Context, p models.Principal, in messaging.SendInput) (models.MessageView, error)
	ThreadReply(ctx context.Context, p models.Principal, parentID int64, in messaging.SendInput) (models.MessageView, error)
	ListThread(ctx context.Context, p models.Principal, messageID int64) (messaging.ThreadView, error)
	Edit(ctx context.Context, p models.Principal, messageID int64, content string) (models.Message, error)
	Delete(ctx context.Context, p models.Principal, messageID int64) error
	Pin(ctx context.Context, p models.Principal, messageID int64, pinned bool) (models.Message, error)
	Forward(ctx context.Context, p models.Principal, messageID int64, targetIDs []int64) ([]messaging.ForwardResult, error)
	AddReaction(ctx context.Context, p models.Principal, messageID int64, emoji string) (messaging.ReactionResult, error)
	RemoveReaction(ctx context.Context, p models.Principal, messageID int64, emoji string) (bool, error)
	MarkRead(ctx context.Context, p models.Principal, messageID int64) (messaging.ReadResult, error)
	MarkChannelRead(ctx context.Context, p models.Principal, channelID, upToID int64) (messaging.ChannelReadResult, error)
	UnreadCounts(ctx context.Context, p models.Principal) (messaging.UnreadSummary, error)
	SearchMessages(ctx context.Context, p models.Principal, channelID int64, query string, limit int) ([]models.MessageView, error)
	ListPinned(ctx context.Context, p models.Principal, channelID int64) ([]models.MessageView, error)
	ListFiles(ctx context.Context, p models.Principal, channelID int64, limit int) ([]models.Attachment, error)
}

// Inbox is the notification inbox surface.
type Inbox interface {
	List(ctx context.Context, p models.Principal, unreadOnly bool, limit int) (notifications.Inbox, error)
	MarkRead(ctx context.Context, p models.Principal, notificationID int64) error
	MarkAllRead(ctx context.Context, p models.Principal) (int64, error)
}

var (
	_ ChannelService = (*messaging.Service)(nil)
	_ MessageService = (*messaging.Service)(nil)
	_ Inbox          = (*notifications.Service)(nil)
)
