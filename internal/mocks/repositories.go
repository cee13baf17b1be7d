package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"channel-service/internal/models"
	"channel-service/internal/repositories"
)

type ChannelRepositoryMock struct {
	mock.Mock
}

var _ repositories.ChannelRepository = (*ChannelRepositoryMock)(nil)

func (m *ChannelRepositoryMock) CreateChannel(ctx context.Context, channel models.Channel, participants []models.Participant) (models.Channel, error) {
	args := m.Called(ctx, channel, participants)
	var r0 models.Channel
	if val := args.Get(0); val != nil {
		r0 = val.(models.Channel)
	}
	return r0, args.Error(1)
}

func (m *ChannelRepositoryMock) FindDirectChannel(ctx context.Context, tenantID int64, userA int64, userB int64) (models.Channel, error) {
	args := m.Called(ctx, tenantID, userA, userB)
	var r0 models.Channel
	if val := args.Get(0); val != nil {
		r0 = val.(models.Channel)
	}
	return r0, args.Error(1)
}

func (m *ChannelRepositoryMock) GetChannel(ctx context.Context, channelID int64) (models.Channel, error) {
	args := m.Called(ctx, channelID)
	var r0 models.Channel
	if val := args.Get(0); val != nil {
		r0 = val.(models.Channel)
	}
	return r0, args.Error(1)
}

func (m *ChannelRepositoryMock) UpdateChannel(ctx context.Context, channelID int64, update models.ChannelUpdate) (models.Channel, error) {
	args := m.Called(ctx, channelID, update)
	var r0 models.Channel
	if val := args.Get(0); val != nil {
		r0 = val.(models.Channel)
	}
	return r0, args.Error(1)
}

func (m *ChannelRepositoryMock) ArchiveChannel(ctx context.Context, channelID int64) error {
	args := m.Called(ctx, channelID)
	return args.Error(0)
}

func (m *ChannelRepositoryMock) ListChannelsForUser(ctx context.Context, tenantID int64, userID int64) ([]models.ChannelSummary, error) {
	args := m.Called(ctx, tenantID, userID)
	var r0 []models.ChannelSummary
	if val := args.Get(0); val != nil {
		r0 = val.([]models.ChannelSummary)
	}
	return r0, args.Error(1)
}

func (m *ChannelRepositoryMock) SearchChannels(ctx context.Context, tenantID int64, userID int64, query string, limit int) ([]models.Channel, error) {
	args := m.Called(ctx, tenantID, userID, query, limit)
	var r0 []models.Channel
	if val := args.Get(0); val != nil {
		r0 = val.([]models.Channel)
	}
	return r0, args.Error(1)
}

func (m *ChannelRepositoryMock) ChannelIDsForUser(ctx context.Context, tenantID int64, userID int64) ([]int64, error) {
	args := m.Called(ctx, tenantID, userID)
	var r0 []int64
	if val := args.Get(0); val != nil {
		r0 = val.([]int64)
	}
	return r0, args.Error(1)
}

func (m *ChannelRepositoryMock) GetParticipant(ctx context.Context, channelID int64, userID int64) (models.Participant, error) {
	args := m.Called(ctx, channelID, userID)
	var r0 models.Participant
	if val := args.Get(0); val != nil {
		r0 = val.(models.Participant)
	}
	return r0, args.Error(1)
}

func (m *ChannelRepositoryMock) ListParticipants(ctx context.Context, channelID int64) ([]models.Participant, error) {
	args := m.Called(ctx, channelID)
	var r0 []models.Participant
	if val := args.Get(0); val != nil {
		r0 = val.([]models.Participant)
	}
	return r0, args.Error(1)
}

func (m *ChannelRepositoryMock) ActiveMemberIDs(ctx context.Context, channelID int64) ([]int64, error) {
	args := m.Called(ctx, channelID)
	var r0 []int64
	if val := args.Get(0); val != nil {
		r0 = val.([]int64)
	}
	return r0, args.Error(1)
}

func (m *ChannelRepositoryMock) AddParticipants(ctx context.Context, channelID int64, tenantID int64, userIDs []int64) ([]int64, error) {
	args := m.Called(ctx, channelID, tenantID, userIDs)
	var r0 []int64
	if val := args.Get(0); val != nil {
		r0 = val.([]int64)
	}
	return r0, args.Error(1)
}

func (m *ChannelRepositoryMock) DeactivateParticipant(ctx context.Context, channelID int64, userID int64) (bool, error) {
	args := m.Called(ctx, channelID, userID)
	return args.Bool(0), args.Error(1)
}

func (m *ChannelRepositoryMock) ChangeRole(ctx context.Context, channelID int64, userID int64, role string) error {
	args := m.Called(ctx, channelID, userID, role)
	return args.Error(0)
}

func (m *ChannelRepositoryMock) TransferOwnership(ctx context.Context, channelID int64, fromUserID int64, toUserID int64) error {
	args := m.Called(ctx, channelID, fromUserID, toUserID)
	return args.Error(0)
}

func (m *ChannelRepositoryMock) UpdatePreferences(ctx context.Context, channelID int64, userID int64, prefs models.ParticipantPreferences) (models.Participant, error) {
	args := m.Called(ctx, channelID, userID, prefs)
	var r0 models.Participant
	if val := args.Get(0); val != nil {
		r0 = val.(models.Participant)
	}
	return r0, args.Error(1)
}

type MessageRepositoryMock struct {
	mock.Mock
}

var _ repositories.MessageRepository = (*MessageRepositoryMock)(nil)

func (m *MessageRepositoryMock) CreateMessage(ctx context.Context, msg models.Message, attachments []models.Attachment) (models.Message, []models.Attachment, error) {
	args := m.Called(ctx, msg, attachments)
	var r0 models.Message
	if val := args.Get(0); val != nil {
		r0 = val.(models.Message)
	}
	var r1 []models.Attachment
	if val := args.Get(1); val != nil {
		r1 = val.([]models.Attachment)
	}
	return r0, r1, args.Error(2)
}

func (m *MessageRepositoryMock) GetMessage(ctx context.Context, messageID int64) (models.Message, error) {
	args := m.Called(ctx, messageID)
	var r0 models.Message
	if val := args.Get(0); val != nil {
		r0 = val.(models.Message)
	}
	return r0, args.Error(1)
}

func (m *MessageRepositoryMock) ListMessages(ctx context.Context, channelID int64, beforeID int64, limit int) ([]models.Message, error) {
	args := m.Called(ctx, channelID, beforeID, limit)
	var r0 []models.Message
	if val := args.Get(0); val != nil {
		r0 = val.([]models.Message)
	}
	return r0, args.Error(1)
}

func (m *MessageRepositoryMock) ListThread(ctx context.Context, threadID int64) ([]models.Message, error) {
	args := m.Called(ctx, threadID)
	var r0 []models.Message
	if val := args.Get(0); val != nil {
		r0 = val.([]models.Message)
	}
	return r0, args.Error(1)
}

func (m *MessageRepositoryMock) ThreadParticipantIDs(ctx context.Context, threadID int64) ([]int64, error) {
	args := m.Called(ctx, threadID)
	var r0 []int64
	if val := args.Get(0); val != nil {
		r0 = val.([]int64)
	}
	return r0, args.Error(1)
}

func (m *MessageRepositoryMock) UpdateContent(ctx context.Context, messageID int64, content string) (models.Message, error) {
	args := m.Called(ctx, messageID, content)
	var r0 models.Message
	if val := args.Get(0); val != nil {
		r0 = val.(models.Message)
	}
	return r0, args.Error(1)
}

func (m *MessageRepositoryMock) SoftDelete(ctx context.Context, messageID int64, deletedBy int64) (models.Message, error) {
	args := m.Called(ctx, messageID, deletedBy)
	var r0 models.Message
	if val := args.Get(0); val != nil {
		r0 = val.(models.Message)
	}
	return r0, args.Error(1)
}

func (m *MessageRepositoryMock) SetPinned(ctx context.Context, messageID int64, pinned bool, actorID int64) (models.Message, error) {
	args := m.Called(ctx, messageID, pinned, actorID)
	var r0 models.Message
	if val := args.Get(0); val != nil {
		r0 = val.(models.Message)
	}
	return r0, args.Error(1)
}

func (m *MessageRepositoryMock) ListPinned(ctx context.Context, channelID int64) ([]models.Message, error) {
	args := m.Called(ctx, channelID)
	var r0 []models.Message
	if val := args.Get(0); val != nil {
		r0 = val.([]models.Message)
	}
	return r0, args.Error(1)
}

func (m *MessageRepositoryMock) SearchMessages(ctx context.Context, tenantID int64, userID int64, channelID int64, query string, limit int) ([]models.Message, error) {
	args := m.Called(ctx, tenantID, userID, channelID, query, limit)
	var r0 []models.Message
	if val := args.Get(0); val != nil {
		r0 = val.([]models.Message)
	}
	return r0, args.Error(1)
}

func (m *MessageRepositoryMock) MarkRead(ctx context.Context, messageID int64, userID int64) (models.Message, bool, error) {
	args := m.Called(ctx, messageID, userID)
	var r0 models.Message
	if val := args.Get(0); val != nil {
		r0 = val.(models.Message)
	}
	return r0, args.Bool(1), args.Error(2)
}

func (m *MessageRepositoryMock) MarkChannelRead(ctx context.Context, channelID int64, userID int64, upToID int64) ([]models.Message, error) {
	args := m.Called(ctx, channelID, userID, upToID)
	var r0 []models.Message
	if val := args.Get(0); val != nil {
		r0 = val.([]models.Message)
	}
	return r0, args.Error(1)
}

func (m *MessageRepositoryMock) UnreadCounts(ctx context.Context, tenantID int64, userID int64) (map[int64]int, error) {
	args := m.Called(ctx, tenantID, userID)
	var r0 map[int64]int
	if val := args.Get(0); val != nil {
		r0 = val.(map[int64]int)
	}
	return r0, args.Error(1)
}

func (m *MessageRepositoryMock) ListAttachments(ctx context.Context, messageIDs []int64) ([]models.Attachment, error) {
	args := m.Called(ctx, messageIDs)
	var r0 []models.Attachment
	if val := args.Get(0); val != nil {
		r0 = val.([]models.Attachment)
	}
	return r0, args.Error(1)
}

func (m *MessageRepositoryMock) ListChannelFiles(ctx context.Context, channelID int64, limit int) ([]models.Attachment, error) {
	args := m.Called(ctx, channelID, limit)
	var r0 []models.Attachment
	if val := args.Get(0); val != nil {
		r0 = val.([]models.Attachment)
	}
	return r0, args.Error(1)
}

type ReactionRepositoryMock struct {
	mock.Mock
}

var _ repositories.ReactionRepository = (*ReactionRepositoryMock)(nil)

func (m *ReactionRepositoryMock) AddReaction(ctx context.Context, messageID int64, userID int64, emoji string) (bool, error) {
	args := m.Called(ctx, messageID, userID, emoji)
	return args.Bool(0), args.Error(1)
}

func (m *ReactionRepositoryMock) RemoveReaction(ctx context.Context, messageID int64, userID int64, emoji string) (bool, error) {
	args := m.Called(ctx, messageID, userID, emoji)
	return args.Bool(0), args.Error(1)
}

func (m *ReactionRepositoryMock) ListReactions(ctx context.Context, messageIDs []int64) ([]models.Reaction, error) {
	args := m.Called(ctx, messageIDs)
	var r0 []models.Reaction
	if val := args.Get(0); val != nil {
		r0 = val.([]models.Reaction)
	}
	return r0, args.Error(1)
}

type ActivityRepositoryMock struct {
	mock.Mock
}

var _ repositories.ActivityRepository = (*ActivityRepositoryMock)(nil)

func (m *ActivityRepositoryMock) Append(ctx context.Context, activity models.Activity) (models.Activity, error) {
	args := m.Called(ctx, activity)
	var r0 models.Activity
	if val := args.Get(0); val != nil {
		r0 = val.(models.Activity)
	}
	return r0, args.Error(1)
}

func (m *ActivityRepositoryMock) ListForSubject(ctx context.Context, tenantID int64, subjectType string, subjectID int64, limit int) ([]models.Activity, error) {
	args := m.Called(ctx, tenantID, subjectType, subjectID, limit)
	var r0 []models.Activity
	if val := args.Get(0); val != nil {
		r0 = val.([]models.Activity)
	}
	return r0, args.Error(1)
}

type NotificationRepositoryMock struct {
	mock.Mock
}

var _ repositories.NotificationRepository = (*NotificationRepositoryMock)(nil)

func (m *NotificationRepositoryMock) Create(ctx context.Context, n models.Notification) (models.Notification, error) {
	args := m.Called(ctx, n)
	var r0 models.Notification
	if val := args.Get(0); val != nil {
		r0 = val.(models.Notification)
	}
	return r0, args.Error(1)
}

func (m *NotificationRepositoryMock) ListForUser(ctx context.Context, tenantID int64, userID int64, unreadOnly bool, limit int) ([]models.Notification, error) {
	args := m.Called(ctx, tenantID, userID, unreadOnly, limit)
	var r0 []models.Notification
	if val := args.Get(0); val != nil {
		r0 = val.([]models.Notification)
	}
	return r0, args.Error(1)
}

func (m *NotificationRepositoryMock) MarkRead(ctx context.Context, tenantID int64, userID int64, notificationID int64) error {
	args := m.Called(ctx, tenantID, userID, notificationID)
	return args.Error(0)
}

func (m *NotificationRepositoryMock) MarkAllRead(ctx context.Context, tenantID int64, userID int64) (int64, error) {
	args := m.Called(ctx, tenantID, userID)
	var r0 int64
	if val := args.Get(0); val != nil {
		r0 = val.(int64)
	}
	return r0, args.Error(1)
}

func (m *NotificationRepositoryMock) UnreadCount(ctx context.Context, tenantID int64, userID int64) (int, error) {
	args := m.Called(ctx, tenantID, userID)
	return args.Int(0), args.Error(1)
}

