package ws

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"channel-service/internal/config"
	"channel-service/internal/mocks"
	"channel-service/internal/models"
	"channel-service/internal/presence"
	"channel-service/internal/registry"
)

type wireEvent struct {
	Type string         `json:"type"`
	Data map[string]any `json:"data"`
}

type recordingTracker struct {
	presence.Disabled
	mu      sync.Mutex
	online  int
	offline int
}

func (r *recordingTracker) SetOnline(context.Context, int64, int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.online++
	return nil
}

func (r *recordingTracker) SetOffline(context.Context, int64, int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.offline++
	return nil
}

func (r *recordingTracker) counts() (int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.online, r.offline
}

func newTestGateway(t *testing.T) (*httptest.Server, *registry.Registry) {
	return newTestGatewayWith(t, presence.Disabled{}, false)
}

func newTestGatewayWith(t *testing.T, tracker presence.Tracker, relay bool) (*httptest.Server, *registry.Registry) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	verifier := new(mocks.VerifierMock)
	verifier.On("ValidateToken", mock.Anything, "good").Return(user, nil)
	verifier.On("ValidateToken", mock.Anything, mock.Anything).Return(models.Principal{}, errors.New("bad token"))

	reg := registry.New(nil, zap.NewNop())
	gw := NewGateway(verifier, &fakeMessenger{channelIDs: []int64{7}}, reg, tracker, config.RealtimeConfig{
		Relay:           relay,
		SendBuffer:      8,
		InboundRPS:      100,
		InboundBurst:    100,
		PingInterval:    time.Second,
		PongWait:        5 * time.Second,
		WriteWait:       time.Second,
		MaxMessageBytes: 4096,
	}, zap.NewNop())

	engine := gin.New()
	engine.GET("/ws", gw.Handle)
	srv := httptest.NewServer(engine)
	t.Cleanup(srv.Close)
	return srv, reg
}

func wsURL(srv *httptest.Server, query string) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws" + query
}

func TestHandshakeRejectsBadToken(t *testing.T) {
	srv, _ := newTestGateway(t)

	_, resp, err := websocket.DefaultDialer.Dial(wsURL(srv, "?token=nope"), nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	_, resp, err = websocket.DefaultDialer.Dial(wsURL(srv, ""), nil)
	require.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestConnectionLifecycle(t *testing.T) {
	srv, reg := newTestGateway(t)

	header := http.Header{}
	header.Set("Authorization", "Bearer good")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, ""), header)
	require.NoError(t, err)

	require.Eventually(t, func() bool { return reg.IsConnected(user.UserID) }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, conn.WriteJSON(Inbound{Type: InboundPing, RequestID: "r1"}))
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var ack wireEvent
	require.NoError(t, conn.ReadJSON(&ack))
	assert.Equal(t, eventAck, ack.Type)
	assert.Equal(t, "r1", ack.Data["request_id"])
	assert.Equal(t, true, ack.Data["success"])

	reg.ToChannel(context.Background(), 7, models.NewEvent(models.EventUserTyping, map[string]any{"channel_id": 7}), 0)
	var pushed wireEvent
	require.NoError(t, conn.ReadJSON(&pushed))
	assert.Equal(t, models.EventUserTyping, pushed.Type)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("not json")))
	var malformed wireEvent
	require.NoError(t, conn.ReadJSON(&malformed))
	assert.Equal(t, false, malformed.Data["success"])

	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool { return !reg.IsConnected(user.UserID) }, 2*time.Second, 10*time.Millisecond)
}

func TestDisconnectSetsOffline(t *testing.T) {
	for name, relay := range map[string]bool{"single instance": false, "relay": true} {
		t.Run(name, func(t *testing.T) {
			tracker := &recordingTracker{}
			srv, reg := newTestGatewayWith(t, tracker, relay)

			header := http.Header{}
			header.Set("Authorization", "Bearer good")
			conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, ""), header)
			require.NoError(t, err)
			require.Eventually(t, func() bool { return reg.IsConnected(user.UserID) }, 2*time.Second, 10*time.Millisecond)

			require.NoError(t, conn.Close())
			require.Eventually(t, func() bool { return !reg.IsConnected(user.UserID) }, 2*time.Second, 10*time.Millisecond)

			if relay {
				// Another instance may still serve the user.
				time.Sleep(50 * time.Millisecond)
				online, offline := tracker.counts()
				assert.Equal(t, 1, online)
				assert.Zero(t, offline)
				return
			}
			assert.Eventually(t, func() bool {
				_, offline := tracker.counts()
				return offline == 1
			}, 2*time.Second, 10*time.Millisecond)
		})
	}
}

func TestClientSendNeverBlocks(t *testing.T) {
	c := newClient(nil, user, ConnInfo{ConnID: "c1"}, 1, nil, timing{}, zap.NewNop())

	assert.True(t, c.Send(models.NewEvent(models.EventUserTyping, nil)))
	assert.False(t, c.Send(models.NewEvent(models.EventUserTyping, nil)), "buffer full")

	<-c.send
	close(c.done)
	assert.False(t, c.Send(models.NewEvent(models.EventUserTyping, nil)), "closed")
}
