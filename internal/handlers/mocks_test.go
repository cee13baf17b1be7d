package handlers

import (
	"context"

	"github.com/stretchr/testify/mock"

	"channel-service/internal/messaging"
	"channel-service/internal/models"
	"channel-service/internal/notifications"
)

type channelServiceMock struct {
	mock.Mock
}

var _ ChannelService = (*channelServiceMock)(nil)

func (m *channelServiceMock) ListChannels(ctx context.Context, p models.Principal) ([]models.ChannelSummary, error) {
	args := m.Called(ctx, p)
	var r0 []models.ChannelSummary
	if val := args.Get(0); val != nil {
		r0 = val.([]models.ChannelSummary)
	}
	return r0, args.Error(1)
}

func (m *channelServiceMock) CreateChannel(ctx context.Context, p models.Principal, in messaging.CreateChannelInput) (models.Channel, bool, error) {
	args := m.Called(ctx, p, in)
	var r0 models.Channel
	if val := args.Get(0); val != nil {
		r0 = val.(models.Channel)
	}
	return r0, args.Bool(1), args.Error(2)
}

func (m *channelServiceMock) GetChannel(ctx context.Context, p models.Principal, channelID int64) (messaging.ChannelDetails, error) {
	args := m.Called(ctx, p, channelID)
	var r0 messaging.ChannelDetails
	if val := args.Get(0); val != nil {
		r0 = val.(messaging.ChannelDetails)
	}
	return r0, args.Error(1)
}

func (m *channelServiceMock) SearchChannels(ctx context.Context, p models.Principal, query string, limit int) ([]models.Channel, error) {
	args := m.Called(ctx, p, query, limit)
	var r0 []models.Channel
	if val := args.Get(0); val != nil {
		r0 = val.([]models.Channel)
	}
	return r0, args.Error(1)
}

func (m *channelServiceMock) UpdateChannel(ctx context.Context, p models.Principal, channelID int64, update models.ChannelUpdate) (models.Channel, error) {
	args := m.Called(ctx, p, channelID, update)
	var r0 models.Channel
	if val := args.Get(0); val != nil {
		r0 = val.(models.Channel)
	}
	return r0, args.Error(1)
}

func (m *channelServiceMock) ArchiveChannel(ctx context.Context, p models.Principal, channelID int64) error {
	args := m.Called(ctx, p, channelID)
	return args.Error(0)
}

func (m *channelServiceMock) DeleteChannel(ctx context.Context, p models.Principal, channelID int64) error {
	args := m.Called(ctx, p, channelID)
	return args.Error(0)
}

func (m *channelServiceMock) LeaveChannel(ctx context.Context, p models.Principal, channelID int64) error {
	args := m.Called(ctx, p, channelID)
	return args.Error(0)
}

func (m *channelServiceMock) UpdatePreferences(ctx context.Context, p models.Principal, channelID int64, prefs models.ParticipantPreferences) (models.Participant, error) {
	args := m.Called(ctx, p, channelID, prefs)
	var r0 models.Participant
	if val := args.Get(0); val != nil {
		r0 = val.(models.Participant)
	}
	return r0, args.Error(1)
}

func (m *channelServiceMock) ListMembers(ctx context.Context, p models.Principal, channelID int64, query string) ([]messaging.MemberView, error) {
	args := m.Called(ctx, p, channelID, query)
	var r0 []messaging.MemberView
	if val := args.Get(0); val != nil {
		r0 = val.([]messaging.MemberView)
	}
	return r0, args.Error(1)
}

func (m *channelServiceMock) AddMembers(ctx context.Context, p models.Principal, channelID int64, userIDs []int64) ([]int64, error) {
	args := m.Called(ctx, p, channelID, userIDs)
	var r0 []int64
	if val := args.Get(0); val != nil {
		r0 = val.([]int64)
	}
	return r0, args.Error(1)
}

func (m *channelServiceMock) RemoveMember(ctx context.Context, p models.Principal, channelID int64, userID int64) error {
	args := m.Called(ctx, p, channelID, userID)
	return args.Error(0)
}

func (m *channelServiceMock) ChangeRole(ctx context.Context, p models.Principal, channelID int64, userID int64, role string) error {
	args := m.Called(ctx, p, channelID, userID, role)
	return args.Error(0)
}

type messageServiceMock struct {
	mock.Mock
}

var _ MessageService = (*messageServiceMock)(nil)

func (m *messageServiceMock) ListMessages(ctx context.Context, p models.Principal, channelID int64, beforeID int64, limit int) ([]models.MessageView, error) {
	args := m.Called(ctx, p, channelID, beforeID, limit)
	var r0 []models.MessageView
	if val := args.Get(0); val != nil {
		r0 = val.([]models.MessageView)
	}
	return r0, args.Error(1)
}

func (m *messageServiceMock) GetMessage(ctx context.Context, p models.Principal, messageID int64) (models.MessageView, error) {
	args := m.Called(ctx, p, messageID)
	var r0 models.MessageView
	if val := args.Get(0); val != nil {
		r0 = val.(models.MessageView)
	}
	return r0, args.Error(1)
}

func (m *messageServiceMock) Send(ctx context.Context, p models.Principal, in messaging.SendInput) (models.MessageView, error) {
	args := m.Called(ctx, p, in)
	var r0 models.MessageView
	if val := args.Get(0); val != nil {
		r0 = val.(models.MessageView)
	}
	return r0, args.Error(1)
}

func (m *messageServiceMock) ThreadReply(ctx context.Context, p models.Principal, parentID int64, in messaging.SendInput) (models.MessageView, error) {
	args := m.Called(ctx, p, parentID, in)
	var r0 models.MessageView
	if val := args.Get(0); val != nil {
		r0 = val.(models.MessageView)
	}
	return r0, args.Error(1)
}

func (m *messageServiceMock) ListThread(ctx context.Context, p models.Principal, messageID int64) (messaging.ThreadView, error) {
	args := m.Called(ctx, p, messageID)
	var r0 messaging.ThreadView
	if val := args.Get(0); val != nil {
		r0 = val.(messaging.ThreadView)
	}
	return r0, args.Error(1)
}

func (m *messageServiceMock) Edit(ctx context.Context, p models.Principal, messageID int64, content string) (models.Message, error) {
	args := m.Called(ctx, p, messageID, content)
	var r0 models.Message
	if val := args.Get(0); val != nil {
		r0 = val.(models.Message)
	}
	return r0, args.Error(1)
}

func (m *messageServiceMock) Delete(ctx context.Context, p models.Principal, messageID int64) error {
	args := m.Called(ctx, p, messageID)
	return args.Error(0)
}

func (m *messageServiceMock) Pin(ctx context.Context, p models.Principal, messageID int64, pinned bool) (models.Message, error) {
	args := m.Called(ctx, p, messageID, pinned)
	var r0 models.Message
	if val := args.Get(0); val != nil {
		r0 = val.(models.Message)
	}
	return r0, args.Error(1)
}

func (m *messageServiceMock) Forward(ctx context.Context, p models.Principal, messageID int64, targetIDs []int64) ([]messaging.ForwardResult, error) {
	args := m.Called(ctx, p, messageID, targetIDs)
	var r0 []messaging.ForwardResult
	if val := args.Get(0); val != nil {
		r0 = val.([]messaging.ForwardResult)
	}
	return r0, args.Error(1)
}

func (m *messageServiceMock) AddReaction(ctx context.Context, p models.Principal, messageID int64, emoji string) (messaging.ReactionResult, error) {
	args := m.Called(ctx, p, messageID, emoji)
	var r0 messaging.ReactionResult
	if val := args.Get(0); val != nil {
		r0 = val.(messaging.ReactionResult)
	}
	return r0, args.Error(1)
}

func (m *messageServiceMock) RemoveReaction(ctx context.Context, p models.Principal, messageID int64, emoji string) (bool, error) {
	args := m.Called(ctx, p, messageID, emoji)
	return args.Bool(0), args.Error(1)
}

func (m *messageServiceMock) MarkRead(ctx context.Context, p models.Principal, messageID int64) (messaging.ReadResult, error) {
	args := m.Called(ctx, p, messageID)
	var r0 messaging.ReadResult
	if val := args.Get(0); val != nil {
		r0 = val.(messaging.ReadResult)
	}
	return r0, args.Error(1)
}

func (m *messageServiceMock) MarkChannelRead(ctx context.Context, p models.Principal, channelID int64, upToID int64) (messaging.ChannelReadResult, error) {
	args := m.Called(ctx, p, channelID, upToID)
	var r0 messaging.ChannelReadResult
	if val := args.Get(0); val != nil {
		r0 = val.(messaging.ChannelReadResult)
	}
	return r0, args.Error(1)
}

func (m *messageServiceMock) UnreadCounts(ctx context.Context, p models.Principal) (messaging.UnreadSummary, error) {
	args := m.Called(ctx, p)
	var r0 messaging.UnreadSummary
	if val := args.Get(0); val != nil {
		r0 = val.(messaging.UnreadSummary)
	}
	return r0, args.Error(1)
}

func (m *messageServiceMock) SearchMessages(ctx context.Context, p models.Principal, channelID int64, query string, limit int) ([]models.MessageView, error) {
	args := m.Called(ctx, p, channelID, query, limit)
	var r0 []models.MessageView
	if val := args.Get(0); val != nil {
		r0 = val.([]models.MessageView)
	}
	return r0, args.Error(1)
}

func (m *messageServiceMock) ListPinned(ctx context.Context, p models.Principal, channelID int64) ([]models.MessageView, error) {
	args := m.Called(ctx, p, channelID)
	var r0 []models.MessageView
	if val := args.Get(0); val != nil {
		r0 = val.([]models.MessageView)
	}
	return r0, args.Error(1)
}

func (m *messageServiceMock) ListFiles(ctx context.Context, p models.Principal, channelID int64, limit int) ([]models.Attachment, error) {
	args := m.Called(ctx, p, channelID, limit)
	var r0 []models.Attachment
	if val := args.Get(0); val != nil {
		r0 = val.([]models.Attachment)
	}
	return r0, args.Error(1)
}

type inboxMock struct {
	mock.Mock
}

var _ Inbox = (*inboxMock)(nil)

func (m *inboxMock) List(ctx context.Context, p models.Principal, unreadOnly bool, limit int) (notifications.Inbox, error) {
	args := m.Called(ctx, p, unreadOnly, limit)
	var r0 notifications.Inbox
	if val := args.Get(0); val != nil {
		r0 = val.(notifications.Inbox)
	}
	return r0, args.Error(1)
}

func (m *inboxMock) MarkRead(ctx context.Context, p models.Principal, notificationID int64) error {
	args := m.Called(ctx, p, notificationID)
	return args.Error(0)
}

func (m *inboxMock) MarkAllRead(ctx context.Context, p models.Principal) (int64, error) {
	args := m.Called(ctx, p)
	var r0 int64
	if val := args.Get(0); val != nil {
		r0 = val.(int64)
	}
	return r0, args.Error(1)
}

