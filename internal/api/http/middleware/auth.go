package middleware

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/EternisAI/cnc-server/internal/auth"
	"github.com/gin-gonic/gin"
)

// IdentityKey is the gin context key the authenticated client identity is
// stored under.
const IdentityKey = "client_identity"

// ClientAuth gates client routes on the fixed token header. Every rejection
// gets the same body and status so an unapproved client is indistinguishable
// from an unknown one.
func ClientAuth(authenticator *auth.ClientAuthenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.GetHeader(auth.HeaderName)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
			return
		}

		identity, err := authenticator.Authenticate(c.Request.Context(), token)
		if err != nil {
			if !errors.Is(err, auth.ErrUnauthenticated) {
				slog.Error("Client authentication lookup failed", "error", err)
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
				return
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
			return
		}

		c.Set(IdentityKey, identity)
		c.Next()
	}
}

// ClientIdentity pulls the identity set by ClientAuth out of the context.
func ClientIdentity(c *gin.Context) (auth.Identity, bool) {
	value, exists := c.Get(IdentityKey)
	if !exists {
		return auth.Identity{}, false
	}
	identity, ok := value.(auth.Identity)
	return identity, ok
}

// JWTAuth protects operator routes with a Bearer JWT.
func JWTAuth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" || !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing or invalid authorization header"})
			return
		}

		token := strings.TrimPrefix(header, "Bearer ")
		claims, err := auth.ValidateToken(secret, token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Set("user_id", claims.UserID)
		c.Set("username", claims.Username)
		c.Next()
	}
}
