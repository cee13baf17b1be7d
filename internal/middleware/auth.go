package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"channel-service/internal/identity"
	"channel-service/internal/models"
)

const (
	principalKey = "principal"
	userIDKey    = "userID"
)

// Auth validates the Authorization header with the configured verifier (JWT or the auth-service gRPC client).
func Auth(verifier identity.Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization"})
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization header"})
			return
		}

		principal, err := verifier.ValidateToken(c.Request.Context(), strings.TrimSpace(parts[1]))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		SetPrincipal(c, principal)
		c.Next()
	}
}

func SetPrincipal(c *gin.Context, p models.Principal) {
	c.Set(principalKey, p)
	c.Set(userIDKey, p.UserID)
}

// PrincipalFrom returns the caller stored by Auth.
func PrincipalFrom(c *gin.Context) (models.Principal, bool) {
	val, ok := c.Get(principalKey)
	if !ok {
		return models.Principal{}, false
	}
	p, ok := val.(models.Principal)
	return p, ok && p.UserID != 0
}
