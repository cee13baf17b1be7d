package ws

import (
	"context"
	"time"

	"channel-service/internal/observability"
)

const (
	lifecycleRoutingKey = "ws_events.connections"

	eventConnect    = "ws_connect"
	eventDisconnect = "ws_disconnect"
	eventError      = "ws_error"
)

// publishLifecycle reports a connection state change to the event broker. Failures only count
// towards the broker error metric.
func publishLifecycle(ctx context.Context, info ConnInfo, event, reason string) {
	var duration int64
	if event != eventConnect {
		duration = time.Since(info.ConnectedAt).Milliseconds()
	}
	payload := map[string]interface{}{
		"ws": map[string]interface{}{
			"event":       event,
			"conn_id":     info.ConnID,
			"duration_ms": duration,
			"reason":      reason,
		},
		"identity": map[string]interface{}{
			"user_id":   info.UserID,
			"tenant_id": info.TenantID,
			"device_id": info.DeviceID,
			"ip":        info.IP,
		},
	}
	_ = observability.PublishEvent(ctx, lifecycleRoutingKey,
		observability.NewEventEnvelope("ws_events", event, info.RequestID, info.TraceID, payload))
	observability.IncWSEvent("lifecycle", event)
}
