package middleware

import (
	"net/http"
	"strings"

	"CampusPoker/internal/identity"

	"github.com/gin-gonic/gin"
)

// JwtAuthMiddleware resolves the session token to a profile and injects it
// into the gin context. Token comes from the Authorization header, or from
// the ?token= query param for websocket handshakes.
func JwtAuthMiddleware(verifier identity.Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr := ""
		if h := c.GetHeader("Authorization"); h != "" {
			tokenStr = strings.TrimPrefix(h, "Bearer ")
		}
		if tokenStr == "" {
			tokenStr = c.Query("token")
		}
		if tokenStr == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
			return
		}

		profile, err := verifier.Verify(tokenStr)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Set("userId", profile.UserID)
		c.Set("name", profile.Name)
		c.Set("handle", profile.Handle)
		c.Next()
	}
}
