package ws

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"channel-service/internal/models"
	"channel-service/internal/observability"
)

type ConnInfo struct {
	ConnID      string
	UserID      int64
	TenantID    int64
	DeviceID    string
	IP          string
	RequestID   string
	TraceID     string
	ConnectedAt time.Time
}

func newConnInfo(r *http.Request, p models.Principal, traceID string) ConnInfo {
	return ConnInfo{
		ConnID:      uuid.NewString(),
		UserID:      p.UserID,
		TenantID:    p.TenantID,
		DeviceID:    observability.DeviceIDFromRequest(r),
		IP:          observability.IPFromRequest(r),
		RequestID:   observability.RequestIDFromRequest(r),
		TraceID:     traceID,
		ConnectedAt: time.Now(),
	}
}
