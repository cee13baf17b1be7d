package ws

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"channel-service/internal/apperrors"
	"channel-service/internal/models"
	"channel-service/internal/observability"
)

// Client is one authenticated websocket connection. Outbound events go through a bounded buffer
// drained by writePump; a full buffer drops the event for this connection only.
type Client struct {
	conn      *websocket.Conn
	principal models.Principal
	info      ConnInfo
	send      chan models.Event
	done      chan struct{}
	closeOnce sync.Once
	limiter   *rate.Limiter
	timing    timing
	log       *zap.Logger
}

type timing struct {
	pingInterval time.Duration
	pongWait     time.Duration
	writeWait    time.Duration
	maxBytes     int64
}

func newClient(conn *websocket.Conn, p models.Principal, info ConnInfo, buffer int, limiter *rate.Limiter, t timing, log *zap.Logger) *Client {
	return &Client{
		conn:      conn,
		principal: p,
		info:      info,
		send:      make(chan models.Event, buffer),
		done:      make(chan struct{}),
		limiter:   limiter,
		timing:    t,
		log:       log.With(zap.String("conn_id", info.ConnID), zap.Int64("user_id", p.UserID)),
	}
}

func (c *Client) ID() string { return c.info.ConnID }

func (c *Client) UserID() int64 { return c.principal.UserID }

// Send enqueues event without blocking and reports whether it was accepted.
func (c *Client) Send(event models.Event) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- event:
		return true
	default:
		return false
	}
}

func (c *Client) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.conn.Close()
	})
}

// readPump reads frames until the connection fails, handing each to the router. It returns the
// close reason.
func (c *Client) readPump(ctx context.Context, router *Router) string {
	c.conn.SetReadLimit(c.timing.maxBytes)
	_ = c.conn.SetReadDeadline(time.Now().Add(c.timing.pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.timing.pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				publishLifecycle(ctx, c.info, eventError, err.Error())
			}
			return err.Error()
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(c.timing.pongWait))

		var in Inbound
		if err := json.Unmarshal(raw, &in); err != nil || in.Type == "" {
			c.Send(models.NewEvent(eventAck, fail(Ack{}, apperrors.BadRequest("malformed frame"))))
			continue
		}
		observability.IncWSEvent("in", in.Type)
		if !c.limiter.Allow() {
			c.Send(models.NewEvent(eventAck, fail(Ack{RequestID: in.RequestID, Event: in.Type}, apperrors.BadRequest("rate limit exceeded"))))
			continue
		}
		ack := router.Handle(ctx, c.principal, in)
		if !c.Send(models.NewEvent(eventAck, ack)) {
			c.log.Debug("ack dropped", zap.String("event", in.Type))
		}
	}
}

// writePump drains the send buffer and keeps the connection alive with pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(c.timing.pingInterval)
	defer func() {
		ticker.Stop()
		c.close()
	}()
	for {
		select {
		case <-c.done:
			_ = c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(c.timing.writeWait))
			return
		case event := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.timing.writeWait))
			if err := c.conn.WriteJSON(event); err != nil {
				if !errors.Is(err, websocket.ErrCloseSent) {
					c.log.Debug("write failed", zap.Error(err))
				}
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.timing.writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
