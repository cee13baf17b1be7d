// Package ws is the realtime transport: it authenticates a websocket at handshake, registers it
// with the connection registry and routes inbound events to the messaging service.
package ws

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"channel-service/internal/apperrors"
	"channel-service/internal/config"
	"channel-service/internal/identity"
	"channel-service/internal/observability"
	"channel-service/internal/presence"
	"channel-service/internal/registry"
	"channel-service/internal/telemetry"
)

// Connections is the registry surface the gateway needs.
type Connections interface {
	Register(conn registry.Conn, channelIDs []int64) bool
	Unregister(conn registry.Conn) bool
}

type Gateway struct {
	verifier    identity.Verifier
	messenger   Messenger
	connections Connections
	presence    presence.Tracker
	router      *Router
	cfg         config.RealtimeConfig
	upgrader    websocket.Upgrader
	log         *zap.Logger
}

func NewGateway(verifier identity.Verifier, messenger Messenger, connections Connections, tracker presence.Tracker, cfg config.RealtimeConfig, log *zap.Logger) *Gateway {
	return &Gateway{
		verifier:    verifier,
		messenger:   messenger,
		connections: connections,
		presence:    tracker,
		router:      NewRouter(messenger, tracker, log),
		cfg:         cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		log: log.Named("ws"),
	}
}

// Handle authenticates the handshake, upgrades and starts the connection pumps.
func (g *Gateway) Handle(c *gin.Context) {
	ctx, span := otel.Tracer("channel-service/ws").Start(c.Request.Context(), "ws.handshake")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	principal, err := g.verifier.ValidateToken(ctx, tokenFromRequest(c))
	if err != nil {
		span.SetStatus(codes.Error, "invalid token")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}
	span.SetAttributes(attribute.Int64("user.id", principal.UserID), attribute.Int64("tenant.id", principal.TenantID))

	channelIDs, err := g.messenger.ChannelIDsFor(ctx, principal)
	if err != nil {
		span.RecordError(err)
		c.JSON(apperrors.HTTPStatus(err), gin.H{"error": apperrors.MessageOf(err)})
		return
	}

	conn, err := g.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		g.log.Debug("upgrade failed", zap.Error(err))
		return
	}

	info := newConnInfo(c.Request, principal, span.SpanContext().TraceID().String())
	client := newClient(conn, principal, info, g.cfg.SendBuffer,
		rate.NewLimiter(rate.Limit(g.cfg.InboundRPS), g.cfg.InboundBurst),
		timing{
			pingInterval: g.cfg.PingInterval,
			pongWait:     g.cfg.PongWait,
			writeWait:    g.cfg.WriteWait,
			maxBytes:     g.cfg.MaxMessageBytes,
		}, g.log)

	// The connection outlives the handshake request.
	connCtx := telemetry.WithRequestID(context.WithoutCancel(ctx), info.RequestID)
	if g.connections.Register(client, channelIDs) {
		if err := g.presence.SetOnline(connCtx, principal.TenantID, principal.UserID); err != nil {
			g.log.Warn("presence update failed", zap.Int64("user_id", principal.UserID), zap.Error(err))
		}
	}
	observability.IncWSActive()
	publishLifecycle(connCtx, info, eventConnect, "")

	go client.writePump()
	go func() {
		reason := client.readPump(connCtx, g.router)
		client.close()
		// With the relay on the user may still be connected to another instance, so presence is
		// left to expire through its TTL.
		if g.connections.Unregister(client) && !g.cfg.Relay {
			if err := g.presence.SetOffline(connCtx, principal.TenantID, principal.UserID); err != nil {
				g.log.Warn("presence update failed", zap.Int64("user_id", principal.UserID), zap.Error(err))
			}
		}
		observability.DecWSActive()
		publishLifecycle(connCtx, info, eventDisconnect, reason)
	}()
}

func tokenFromRequest(c *gin.Context) string {
	if header := c.GetHeader("Authorization"); header != "" {
		if token, ok := strings.CutPrefix(header, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
		return ""
	}
	return c.Query("token")
}
