package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"channel-service/internal/middleware"
	"channel-service/internal/telemetry"
)

// RegisterDebugRoutes wires debug-only endpoints.
func RegisterDebugRoutes(router gin.IRoutes, emitter *telemetry.Emitter, enabled bool) {
	if !enabled {
		return
	}

	router.GET("/debug/emit-test", func(c *gin.Context) {
		if emitter == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "event emitter not configured"})
			return
		}
		var tenantID, userID int64
		if p, ok := middleware.PrincipalFrom(c); ok {
			tenantID, userID = p.TenantID, p.UserID
		}
		err := emitter.Emit(c.Request.Context(), "debug.test", "debug.test", tenantID, userID, gin.H{
			"request_id": middleware.RequestIDFrom(c),
		})
		if err != nil {
			c.JSON(http.StatusBadGateway, gin.H{"error": "publish failed"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}
