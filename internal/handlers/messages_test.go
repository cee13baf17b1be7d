package handlers

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"channel-service/internal/apperrors"
	"channel-service/internal/messaging"
	"channel-service/internal/models"
)

func TestListMessagesPaging(t *testing.T) {
	f := setupRouter()
	f.messages.On("ListMessages", mock.Anything, alice, int64(7), int64(120), 20).
		Return([]models.MessageView{{Message: models.Message{ID: 119}}}, nil).Once()

	rec := f.do(http.MethodGet, "/channels/7/messages?before=120&limit=20", "")

	require.Equal(t, http.StatusOK, rec.Code)
	f.assertExpectations(t)
}

func TestListMessagesInvalidCursor(t *testing.T) {
	f := setupRouter()

	rec := f.do(http.MethodGet, "/channels/7/messages?before=x", "")

	require.Equal(t, http.StatusBadRequest, rec.Code)
	f.messages.AssertNotCalled(t, "ListMessages", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestPostMessageSuccess(t *testing.T) {
	f := setupRouter()
	in := messaging.SendInput{ChannelID: 7, Content: "hello", Mentions: []int64{2}}
	f.messages.On("Send", mock.Anything, alice, in).
		Return(models.MessageView{Message: models.Message{ID: 50, ChannelID: 7, Content: "hello"}}, nil).Once()

	rec := f.do(http.MethodPost, "/channels/7/messages", `{"content":"hello","mentions":[2]}`)

	require.Equal(t, http.StatusCreated, rec.Code)
	f.assertExpectations(t)
}

func TestPostMessageNotMember(t *testing.T) {
	f := setupRouter()
	f.messages.On("Send", mock.Anything, alice, mock.Anything).
		Return(models.MessageView{}, apperrors.Unauthorized("not a member of this channel")).Once()

	rec := f.do(http.MethodPost, "/channels/7/messages", `{"content":"hello"}`)

	require.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, string(apperrors.CodeUnauthorized), decode(t, rec)["code"])
	f.assertExpectations(t)
}

func TestEditMessageRequiresContent(t *testing.T) {
	f := setupRouter()

	rec := f.do(http.MethodPatch, "/messages/50", `{}`)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	f.messages.AssertNotCalled(t, "Edit", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestEditMessageNotSender(t *testing.T) {
	f := setupRouter()
	f.messages.On("Edit", mock.Anything, alice, int64(50), "changed").
		Return(models.Message{}, apperrors.Forbidden("only the sender can edit a message")).Once()

	rec := f.do(http.MethodPatch, "/messages/50", `{"content":"changed"}`)

	require.Equal(t, http.StatusForbidden, rec.Code)
	f.assertExpectations(t)
}

func TestDeleteMessageNotFound(t *testing.T) {
	f := setupRouter()
	f.messages.On("Delete", mock.Anything, alice, int64(50)).Return(apperrors.NotFound("message not found")).Once()

	rec := f.do(http.MethodDelete, "/messages/50", "")

	require.Equal(t, http.StatusNotFound, rec.Code)
	f.assertExpectations(t)
}

func TestPinAndUnpin(t *testing.T) {
	f := setupRouter()
	f.messages.On("Pin", mock.Anything, alice, int64(50), true).Return(models.Message{ID: 50, IsPinned: true}, nil).Once()
	f.messages.On("Pin", mock.Anything, alice, int64(50), false).Return(models.Message{ID: 50}, nil).Once()

	require.Equal(t, http.StatusOK, f.do(http.MethodPost, "/messages/50/pin", "").Code)
	require.Equal(t, http.StatusOK, f.do(http.MethodDelete, "/messages/50/pin", "").Code)
	f.assertExpectations(t)
}

func TestForwardReportsPerTarget(t *testing.T) {
	f := setupRouter()
	f.messages.On("Forward", mock.Anything, alice, int64(50), []int64{8, 9}).Return([]messaging.ForwardResult{
		{ChannelID: 8, Success: true, MessageID: 61},
		{ChannelID: 9, Success: false, Error: "not a member of this channel"},
	}, nil).Once()

	rec := f.do(http.MethodPost, "/messages/50/forward", `{"channel_ids":[8,9]}`)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Results []messaging.ForwardResult `json:"results"`
	}
	require.NoError(t, jsonDecode(rec, &resp))
	require.Len(t, resp.Results, 2)
	assert.True(t, resp.Results[0].Success)
	assert.Equal(t, "not a member of this channel", resp.Results[1].Error)
	f.assertExpectations(t)
}

func TestPostReplyUsesParentFromPath(t *testing.T) {
	f := setupRouter()
	f.messages.On("ThreadReply", mock.Anything, alice, int64(50), messaging.SendInput{Content: "reply"}).
		Return(models.MessageView{Message: models.Message{ID: 51}}, nil).Once()

	rec := f.do(http.MethodPost, "/messages/50/replies", `{"content":"reply"}`)

	require.Equal(t, http.StatusCreated, rec.Code)
	f.assertExpectations(t)
}

func TestListReplies(t *testing.T) {
	f := setupRouter()
	f.messages.On("ListThread", mock.Anything, alice, int64(50)).Return(messaging.ThreadView{
		Root:    models.MessageView{Message: models.Message{ID: 50}},
		Replies: []models.MessageView{{Message: models.Message{ID: 51}}},
	}, nil).Once()

	rec := f.do(http.MethodGet, "/messages/50/replies", "")

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode(t, rec)
	assert.Len(t, resp["replies"], 1)
	f.assertExpectations(t)
}

func TestAddReactionIdempotentStatus(t *testing.T) {
	f := setupRouter()
	f.messages.On("AddReaction", mock.Anything, alice, int64(50), "👍").
		Return(messaging.ReactionResult{Action: messaging.ReactionAdded, MessageID: 50, Emoji: "👍"}, nil).Once()
	f.messages.On("AddReaction", mock.Anything, alice, int64(50), "👍").
		Return(messaging.ReactionResult{Action: messaging.ReactionAlreadyExists, MessageID: 50, Emoji: "👍"}, nil).Once()

	first := f.do(http.MethodPost, "/messages/50/reactions", `{"emoji":"👍"}`)
	second := f.do(http.MethodPost, "/messages/50/reactions", `{"emoji":"👍"}`)

	require.Equal(t, http.StatusCreated, first.Code)
	require.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, messaging.ReactionAlreadyExists, decode(t, second)["action"])
	f.assertExpectations(t)
}

func TestRemoveReactionDecodesEmoji(t *testing.T) {
	f := setupRouter()
	f.messages.On("RemoveReaction", mock.Anything, alice, int64(50), "👍").Return(true, nil).Once()

	rec := f.do(http.MethodDelete, "/messages/50/reactions/%F0%9F%91%8D", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decode(t, rec)["removed"])
	f.assertExpectations(t)
}

func TestMarkRead(t *testing.T) {
	f := setupRouter()
	f.messages.On("MarkRead", mock.Anything, alice, int64(50)).Return(messaging.ReadResult{MessageID: 50, Changed: true}, nil).Once()

	rec := f.do(http.MethodPost, "/messages/50/read", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decode(t, rec)["changed"])
	f.assertExpectations(t)
}

func TestMarkChannelReadWithAndWithoutBody(t *testing.T) {
	f := setupRouter()
	f.messages.On("MarkChannelRead", mock.Anything, alice, int64(7), int64(0)).
		Return(messaging.ChannelReadResult{ChannelID: 7, Marked: []int64{50, 51}}, nil).Once()
	f.messages.On("MarkChannelRead", mock.Anything, alice, int64(7), int64(50)).
		Return(messaging.ChannelReadResult{ChannelID: 7, Marked: []int64{50}}, nil).Once()

	require.Equal(t, http.StatusOK, f.do(http.MethodPost, "/channels/7/read", "").Code)
	require.Equal(t, http.StatusOK, f.do(http.MethodPost, "/channels/7/read", `{"up_to_message_id":50}`).Code)
	f.assertExpectations(t)
}

func TestUnreadCounts(t *testing.T) {
	f := setupRouter()
	f.messages.On("UnreadCounts", mock.Anything, alice).
		Return(messaging.UnreadSummary{Total: 3, Channels: map[int64]int{7: 3}}, nil).Once()

	rec := f.do(http.MethodGet, "/unread", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 3, decode(t, rec)["total"])
	f.assertExpectations(t)
}

func TestSearchMessagesRoutesBeforeMessageID(t *testing.T) {
	f := setupRouter()
	f.messages.On("SearchMessages", mock.Anything, alice, int64(7), "deploy", 0).
		Return([]models.MessageView{{Message: models.Message{ID: 50}}}, nil).Once()

	rec := f.do(http.MethodGet, "/messages/search?q=deploy&channel_id=7", "")

	require.Equal(t, http.StatusOK, rec.Code)
	f.assertExpectations(t)
}

func TestSearchMessagesEmptyQuery(t *testing.T) {
	f := setupRouter()
	f.messages.On("SearchMessages", mock.Anything, alice, int64(0), "", 0).
		Return(nil, apperrors.BadRequest("query is required")).Once()

	rec := f.do(http.MethodGet, "/messages/search", "")

	require.Equal(t, http.StatusBadRequest, rec.Code)
	f.assertExpectations(t)
}

func TestListPinnedAndFiles(t *testing.T) {
	f := setupRouter()
	f.messages.On("ListPinned", mock.Anything, alice, int64(7)).Return([]models.MessageView{}, nil).Once()
	f.messages.On("ListFiles", mock.Anything, alice, int64(7), 25).
		Return([]models.Attachment{{ID: 1, FileName: "roadmap.pdf"}}, nil).Once()

	require.Equal(t, http.StatusOK, f.do(http.MethodGet, "/channels/7/pinned", "").Code)
	rec := f.do(http.MethodGet, "/channels/7/files?limit=25", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode(t, rec)["files"], 1)
	f.assertExpectations(t)
}
