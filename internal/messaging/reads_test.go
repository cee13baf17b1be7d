package messaging

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"channel-service/internal/apperrors"
	"channel-service/internal/cache"
	"channel-service/internal/models"
)

func TestMarkReadTellsSenderOnce(t *testing.T) {
	h := newHarness(t)
	h.member(7, 2, models.RoleMember)
	h.message(models.Message{ID: 110, ChannelID: 7, SenderID: 1})
	read := models.Message{ID: 110, ChannelID: 7, SenderID: 1, ReadBy: models.NewRecipientSet(2)}
	h.messages.On("MarkRead", mock.Anything, int64(110), int64(2)).Return(read, true, nil).Once()
	h.messages.On("MarkRead", mock.Anything, int64(110), int64(2)).Return(read, false, nil).Once()
	require.NoError(t, h.cache.Set(context.Background(), cache.UnreadKey(tenant, 2), []byte(`{"7":1}`), 0))

	res, err := h.svc.MarkRead(context.Background(), bob, 110)
	require.NoError(t, err)
	assert.True(t, res.Changed)
	assert.False(t, h.cache.has(cache.UnreadKey(tenant, 2)))

	res, err = h.svc.MarkRead(context.Background(), bob, 110)
	require.NoError(t, err)
	assert.False(t, res.Changed)

	pushed := h.bc.ofType(models.EventMessageRead)
	require.Len(t, pushed, 1)
	assert.True(t, pushed[0].toUser)
	assert.Equal(t, int64(1), pushed[0].target)
	data := pushed[0].event.Data.(MessageReadEvent)
	assert.Equal(t, int64(110), data.MessageID)
	assert.Equal(t, int64(2), data.ReaderID)
	assert.Equal(t, "bob", data.ReaderName)
}

func TestMarkReadOwnMessageIsSilent(t *testing.T) {
	h := newHarness(t)
	h.member(7, 1, models.RoleMember)
	h.message(models.Message{ID: 111, ChannelID: 7, SenderID: 1})
	h.messages.On("MarkRead", mock.Anything, int64(111), int64(1)).
		Return(models.Message{ID: 111, ChannelID: 7, SenderID: 1}, true, nil).Once()

	_, err := h.svc.MarkRead(context.Background(), alice, 111)
	require.NoError(t, err)
	assert.Empty(t, h.bc.sent)
}

func TestMarkChannelReadBatchesPerSender(t *testing.T) {
	h := newHarness(t)
	h.member(7, 3, models.RoleMember)
	h.messages.On("MarkChannelRead", mock.Anything, int64(7), int64(3), int64(0)).Return([]models.Message{
		{ID: 1, ChannelID: 7, SenderID: 1},
		{ID: 2, ChannelID: 7, SenderID: 2},
		{ID: 3, ChannelID: 7, SenderID: 1},
	}, nil).Once()

	res, err := h.svc.MarkChannelRead(context.Background(), carol, 7, 0)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3}, res.Marked)

	pushed := h.bc.ofType(models.EventMessageRead)
	require.Len(t, pushed, 2)
	assert.Equal(t, int64(1), pushed[0].target)
	assert.Equal(t, []int64{1, 3}, pushed[0].event.Data.(MessageReadEvent).MessageIDs)
	assert.Equal(t, int64(2), pushed[1].target)
	assert.Equal(t, []int64{2}, pushed[1].event.Data.(MessageReadEvent).MessageIDs)
	assert.Contains(t, h.cache.deleted, cache.UnreadKey(tenant, 3))
}

func TestMarkChannelReadRequiresMembership(t *testing.T) {
	h := newHarness(t)
	h.nonMember(7, 3)
	_, err := h.svc.MarkChannelRead(context.Background(), carol, 7, 0)
	assert.Equal(t, apperrors.CodeUnauthorized, apperrors.CodeOf(err))
}

func TestUnreadCountsAreCached(t *testing.T) {
	h := newHarness(t)
	h.messages.On("UnreadCounts", mock.Anything, tenant, int64(1)).Return(map[int64]int{7: 2, 8: 3}, nil).Once()

	first, err := h.svc.UnreadCounts(context.Background(), alice)
	require.NoError(t, err)
	assert.Equal(t, 5, first.Total)

	second, err := h.svc.UnreadCounts(context.Background(), alice)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	h.messages.AssertExpectations(t)
}

func TestTypingIsRelayedToOthers(t *testing.T) {
	h := newHarness(t)
	h.member(7, 1, models.RoleMember)
	h.nonMember(7, 3)

	require.NoError(t, h.svc.Typing(context.Background(), alice, 7, true))
	pushed := h.bc.ofType(models.EventUserTyping)
	require.Len(t, pushed, 1)
	assert.Equal(t, int64(1), pushed[0].exclude)
	assert.Equal(t, TypingEvent{ChannelID: 7, UserID: 1, DisplayName: "alice", IsTyping: true}, pushed[0].event.Data)

	assert.Equal(t, apperrors.CodeUnauthorized, apperrors.CodeOf(h.svc.Typing(context.Background(), carol, 7, true)))
}
