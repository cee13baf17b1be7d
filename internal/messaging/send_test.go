package messaging

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"channel-service/internal/apperrors"
	"channel-service/internal/cache"
	"channel-service/internal/mocks"
	"channel-service/internal/models"
	"channel-service/internal/repositories"
)

func ptr[T any](v T) *T { return &v }

func TestSendDeliversToActiveMembersExceptSender(t *testing.T) {
	h := newHarness(t)
	h.member(7, 1, models.RoleOwner)
	h.channel(models.Channel{ID: 7})
	h.activeMembers(7, 1, 2, 3)
	h.participants(7, models.Participant{UserID: 1}, models.Participant{UserID: 2}, models.Participant{UserID: 3})

	created := models.Message{ID: 100, ChannelID: 7, TenantID: tenant, SenderID: 1, Type: models.MessageTypeText, Content: "hi",
		DeliveredTo: models.NewRecipientSet(2, 3)}
	h.messages.On("CreateMessage", mock.Anything, mock.MatchedBy(func(m models.Message) bool {
		return m.SenderID == 1 && m.Content == "hi" &&
			slices.Equal(m.DeliveredTo.IDs(), []int64{2, 3}) &&
			m.ReadBy.Len() == 0 && !m.DeliveredTo.Contains(1)
	}), []models.Attachment{}).Return(created, []models.Attachment{}, nil).Once()

	view, err := h.svc.Send(context.Background(), alice, SendInput{ChannelID: 7, Content: "  hi "})
	require.NoError(t, err)
	assert.Equal(t, int64(100), view.ID)
	assert.Equal(t, "alice", view.SenderName)

	pushed := h.bc.ofType(models.EventNewMessage)
	require.Len(t, pushed, 1)
	assert.Equal(t, int64(7), pushed[0].target)
	assert.Equal(t, int64(1), pushed[0].exclude)

	types, counts := h.notifier.byRecipient()
	assert.Equal(t, map[int64]string{2: models.NotificationNewMessage, 3: models.NotificationNewMessage}, types)
	assert.Equal(t, map[int64]int{2: 1, 3: 1}, counts)

	assert.True(t, contains(h.cache.deleted,
		cache.ChannelListKey(tenant, 1), cache.ChannelListKey(tenant, 2), cache.ChannelListKey(tenant, 3),
		cache.UnreadKey(tenant, 2), cache.UnreadKey(tenant, 3)))
	assert.Contains(t, h.cache.patterns, cache.MessagePagesPattern(7))
	h.messages.AssertExpectations(t)
}

func TestSendMentionWinsAndMutedMembersAreSkipped(t *testing.T) {
	h := newHarness(t)
	h.member(7, 1, models.RoleMember)
	h.channel(models.Channel{ID: 7})
	h.activeMembers(7, 1, 2, 3, 4)
	h.participants(7,
		models.Participant{UserID: 1},
		models.Participant{UserID: 2, IsMuted: true},
		models.Participant{UserID: 3, IsMuted: true},
		models.Participant{UserID: 4},
	)

	created := models.Message{ID: 101, ChannelID: 7, TenantID: tenant, SenderID: 1, Content: "@carol look",
		Mentions: models.NewRecipientSet(3), HasMentions: true, DeliveredTo: models.NewRecipientSet(2, 3, 4)}
	h.messages.On("CreateMessage", mock.Anything, mock.MatchedBy(func(m models.Message) bool {
		return m.HasMentions && slices.Equal(m.Mentions.IDs(), []int64{3})
	}), mock.Anything).Return(created, nil, nil).Once()

	_, err := h.svc.Send(context.Background(), alice, SendInput{ChannelID: 7, Content: "@carol look", Mentions: []int64{3, 1, 3}})
	require.NoError(t, err)

	types, counts := h.notifier.byRecipient()
	assert.Equal(t, map[int64]string{3: models.NotificationMention, 4: models.NotificationNewMessage}, types)
	assert.Equal(t, 1, counts[3])
	for _, n := range h.notifier.sent {
		if n.RecipientID == 3 {
			assert.Equal(t, models.PriorityHigh, n.Priority)
		}
	}
}

func TestThreadReplyNotifiesEarlierParticipantsOnly(t *testing.T) {
	h := newHarness(t)
	h.member(7, 1, models.RoleMember)
	h.channel(models.Channel{ID: 7})
	h.activeMembers(7, 1, 2, 3, 4, 5)
	h.message(models.Message{ID: 50, ChannelID: 7, SenderID: 2, Content: "root"})
	h.messages.On("ThreadParticipantIDs", mock.Anything, int64(50)).Return([]int64{1, 2, 3}, nil).Once()

	created := models.Message{ID: 102, ChannelID: 7, TenantID: tenant, SenderID: 1, Content: "reply",
		ParentMessageID: ptr(int64(50)), ThreadID: ptr(int64(50)),
		Mentions: models.NewRecipientSet(4), HasMentions: true, DeliveredTo: models.NewRecipientSet(2, 3, 4, 5)}
	h.messages.On("CreateMessage", mock.Anything, mock.MatchedBy(func(m models.Message) bool {
		return m.ParentMessageID != nil && *m.ParentMessageID == 50 && m.ThreadID != nil && *m.ThreadID == 50
	}), mock.Anything).Return(created, nil, nil).Once()

	_, err := h.svc.ThreadReply(context.Background(), alice, 50, SendInput{ChannelID: 7, Content: "reply", Mentions: []int64{4}})
	require.NoError(t, err)

	types, counts := h.notifier.byRecipient()
	assert.Equal(t, map[int64]string{
		2: models.NotificationThreadReply,
		3: models.NotificationThreadReply,
		4: models.NotificationMention,
	}, types)
	for id, n := range counts {
		assert.Equal(t, 1, n, "recipient %d", id)
	}
	assert.Len(t, h.bc.ofType(models.EventThreadReply), 1)
	assert.Empty(t, h.bc.ofType(models.EventNewMessage))
	h.channels.AssertNotCalled(t, "ListParticipants", mock.Anything, mock.Anything)
}

func TestReplyToNestedReplyKeepsThreadRoot(t *testing.T) {
	h := newHarness(t)
	h.member(7, 1, models.RoleMember)
	h.channel(models.Channel{ID: 7})
	h.activeMembers(7, 1)
	h.message(models.Message{ID: 60, ChannelID: 7, SenderID: 2, ParentMessageID: ptr(int64(50)), ThreadID: ptr(int64(50))})
	h.messages.On("ThreadParticipantIDs", mock.Anything, int64(50)).Return([]int64{1, 2}, nil).Maybe()

	h.messages.On("CreateMessage", mock.Anything, mock.MatchedBy(func(m models.Message) bool {
		return *m.ParentMessageID == 60 && *m.ThreadID == 50
	}), mock.Anything).Return(models.Message{ID: 103, ChannelID: 7, SenderID: 1,
		ParentMessageID: ptr(int64(60)), ThreadID: ptr(int64(50))}, nil, nil).Once()

	_, err := h.svc.ThreadReply(context.Background(), alice, 60, SendInput{ChannelID: 7, Content: "deeper"})
	require.NoError(t, err)
	h.messages.AssertExpectations(t)
}

func TestSendRejections(t *testing.T) {
	t.Run("non member", func(t *testing.T) {
		h := newHarness(t)
		h.nonMember(7, 1)
		_, err := h.svc.Send(context.Background(), alice, SendInput{ChannelID: 7, Content: "hi"})
		assert.Equal(t, apperrors.CodeUnauthorized, apperrors.CodeOf(err))
		h.messages.AssertNotCalled(t, "CreateMessage", mock.Anything, mock.Anything, mock.Anything)
	})
	t.Run("inactive member", func(t *testing.T) {
		h := newHarness(t)
		h.channels.On("GetParticipant", mock.Anything, int64(7), int64(1)).
			Return(models.Participant{ChannelID: 7, UserID: 1, TenantID: tenant, IsActive: false}, nil)
		_, err := h.svc.Send(context.Background(), alice, SendInput{ChannelID: 7, Content: "hi"})
		assert.Equal(t, apperrors.CodeUnauthorized, apperrors.CodeOf(err))
		assert.False(t, h.cache.has(cache.MembershipKey(7, 1)))
	})
	t.Run("other tenant", func(t *testing.T) {
		h := newHarness(t)
		h.member(7, 1, models.RoleOwner)
		_, err := h.svc.Send(context.Background(), models.Principal{UserID: 1, TenantID: 2}, SendInput{ChannelID: 7, Content: "hi"})
		assert.Equal(t, apperrors.CodeUnauthorized, apperrors.CodeOf(err))
	})
	t.Run("empty content", func(t *testing.T) {
		h := newHarness(t)
		_, err := h.svc.Send(context.Background(), alice, SendInput{ChannelID: 7, Content: "   "})
		assert.Equal(t, apperrors.CodeBadRequest, apperrors.CodeOf(err))
	})
	t.Run("archived channel", func(t *testing.T) {
		h := newHarness(t)
		h.member(7, 1, models.RoleOwner)
		h.channel(models.Channel{ID: 7, IsArchived: true})
		_, err := h.svc.Send(context.Background(), alice, SendInput{ChannelID: 7, Content: "hi"})
		assert.Equal(t, apperrors.CodeBadRequest, apperrors.CodeOf(err))
	})
	t.Run("parent in another channel", func(t *testing.T) {
		h := newHarness(t)
		h.member(7, 1, models.RoleOwner)
		h.channel(models.Channel{ID: 7})
		h.message(models.Message{ID: 50, ChannelID: 8})
		_, err := h.svc.ThreadReply(context.Background(), alice, 50, SendInput{ChannelID: 7, Content: "hi"})
		assert.Equal(t, apperrors.CodeNotFound, apperrors.CodeOf(err))
	})
	t.Run("store failure", func(t *testing.T) {
		h := newHarness(t)
		h.member(7, 1, models.RoleOwner)
		h.channel(models.Channel{ID: 7})
		h.activeMembers(7, 1, 2)
		h.messages.On("CreateMessage", mock.Anything, mock.Anything, mock.Anything).
			Return(models.Message{}, nil, errors.New("connection reset"))
		_, err := h.svc.Send(context.Background(), alice, SendInput{ChannelID: 7, Content: "hi"})
		assert.Equal(t, apperrors.CodeInternal, apperrors.CodeOf(err))
		assert.Empty(t, h.bc.sent)
	})
}

func TestSendSucceedsWhenSideEffectsCannotBeQueued(t *testing.T) {
	d := &unavailableDispatcher{}
	h := newHarnessWith(t, d)
	h.member(7, 1, models.RoleOwner)
	h.channel(models.Channel{ID: 7})
	h.activeMembers(7, 1, 2)
	h.messages.On("CreateMessage", mock.Anything, mock.Anything, mock.Anything).
		Return(models.Message{ID: 104, ChannelID: 7, SenderID: 1, Content: "hi"}, nil, nil).Once()

	view, err := h.svc.Send(context.Background(), alice, SendInput{ChannelID: 7, Content: "hi"})
	require.NoError(t, err)
	assert.Equal(t, int64(104), view.ID)
	assert.Len(t, h.bc.ofType(models.EventNewMessage), 1)
	assert.Empty(t, h.notifier.sent)
	assert.Positive(t, d.calls)
}

func TestForwardReportsPerTarget(t *testing.T) {
	h := newHarness(t)
	h.member(7, 1, models.RoleMember)
	h.member(8, 1, models.RoleMember)
	h.nonMember(9, 1)
	h.message(models.Message{ID: 70, ChannelID: 7, SenderID: 2, Type: models.MessageTypeText, Content: "fwd me"})
	h.channel(models.Channel{ID: 8})
	h.activeMembers(8, 1, 4)
	h.participants(8, models.Participant{UserID: 1}, models.Participant{UserID: 4})
	h.messages.On("CreateMessage", mock.Anything, mock.MatchedBy(func(m models.Message) bool {
		return m.ChannelID == 8 && m.ForwardedFromID != nil && *m.ForwardedFromID == 70 && m.Content == "fwd me"
	}), mock.Anything).Return(models.Message{ID: 200, ChannelID: 8, SenderID: 1, Content: "fwd me", ForwardedFromID: ptr(int64(70))}, nil, nil).Once()

	results, err := h.svc.Forward(context.Background(), alice, 70, []int64{8, 9, 8})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, ForwardResult{ChannelID: 8, Success: true, MessageID: 200}, results[0])
	assert.Equal(t, int64(9), results[1].ChannelID)
	assert.False(t, results[1].Success)
	assert.NotEmpty(t, results[1].Error)
	h.messages.AssertExpectations(t)
}

func TestForwardRequiresAccessToSource(t *testing.T) {
	h := newHarness(t)
	h.nonMember(7, 1)
	h.message(models.Message{ID: 70, ChannelID: 7, SenderID: 2})

	_, err := h.svc.Forward(context.Background(), alice, 70, []int64{8})
	assert.Equal(t, apperrors.CodeUnauthorized, apperrors.CodeOf(err))

	h.messages.On("GetMessage", mock.Anything, int64(71)).Return(models.Message{}, repositories.ErrMessageNotFound)
	_, err = h.svc.Forward(context.Background(), alice, 71, []int64{8})
	assert.Equal(t, apperrors.CodeNotFound, apperrors.CodeOf(err))
}

func TestSendSucceedsWhenNotifierFails(t *testing.T) {
	h := newHarness(t)
	notifier := new(mocks.NotifierMock)
	h.svc.notifier = notifier
	h.member(7, 1, models.RoleOwner)
	h.channel(models.Channel{ID: 7})
	h.activeMembers(7, 1, 2)
	h.participants(7, models.Participant{UserID: 1}, models.Participant{UserID: 2})
	h.messages.On("CreateMessage", mock.Anything, mock.Anything, []models.Attachment{}).
		Return(models.Message{ID: 101, ChannelID: 7, TenantID: tenant, SenderID: 1, Content: "hi"}, []models.Attachment{}, nil).Once()
	notifier.On("Notify", mock.Anything, mock.MatchedBy(func(n models.Notification) bool {
		return n.RecipientID == 2
	})).Return(errors.New("notification store down")).Once()

	view, err := h.svc.Send(context.Background(), alice, SendInput{ChannelID: 7, Content: "hi"})
	require.NoError(t, err)
	assert.Equal(t, int64(101), view.ID)
	assert.Len(t, h.bc.ofType(models.EventNewMessage), 1)
	notifier.AssertExpectations(t)
}
