package handlers

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"channel-service/internal/presence"
)

func TestGetPresence(t *testing.T) {
	f := setupRouter()
	f.presence.On("Statuses", mock.Anything, int64(1), []int64{2, 3}).
		Return([]presence.Status{{UserID: 2, Online: true}, {UserID: 3}}, nil).Once()

	rec := f.do(http.MethodGet, "/presence?user_ids=2,3", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode(t, rec)["statuses"], 2)
	f.assertExpectations(t)
}

func TestGetPresenceValidation(t *testing.T) {
	f := setupRouter()

	require.Equal(t, http.StatusBadRequest, f.do(http.MethodGet, "/presence", "").Code)
	require.Equal(t, http.StatusBadRequest, f.do(http.MethodGet, "/presence?user_ids=2,x", "").Code)
	f.presence.AssertNotCalled(t, "Statuses", mock.Anything, mock.Anything, mock.Anything)
}

func TestGetPresenceTrackerDownReportsOffline(t *testing.T) {
	f := setupRouter()
	f.presence.On("Statuses", mock.Anything, int64(1), []int64{2}).Return(nil, assert.AnError).Once()

	rec := f.do(http.MethodGet, "/presence?user_ids=2", "")

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Statuses []presence.Status `json:"statuses"`
	}
	require.NoError(t, jsonDecode(rec, &resp))
	require.Len(t, resp.Statuses, 1)
	assert.False(t, resp.Statuses[0].Online)
	f.assertExpectations(t)
}

func TestListOnline(t *testing.T) {
	f := setupRouter()
	f.presence.On("OnlineUsers", mock.Anything, int64(1)).Return([]int64{1, 2}, nil).Once()

	rec := f.do(http.MethodGet, "/presence/online", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode(t, rec)["user_ids"], 2)
	f.assertExpectations(t)
}

func TestSetPresence(t *testing.T) {
	f := setupRouter()
	f.presence.On("SetOnline", mock.Anything, int64(1), int64(1)).Return(nil).Once()
	f.presence.On("SetOffline", mock.Anything, int64(1), int64(1)).Return(assert.AnError).Once()

	require.Equal(t, http.StatusOK, f.do(http.MethodPut, "/presence", `{"online":true}`).Code)
	require.Equal(t, http.StatusOK, f.do(http.MethodPut, "/presence", `{"online":false}`).Code)
	require.Equal(t, http.StatusBadRequest, f.do(http.MethodPut, "/presence", `{}`).Code)
	f.assertExpectations(t)
}
