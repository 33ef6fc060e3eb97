package v1

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/controlwise/account-service/internal/logger"
	logicv1 "github.com/controlwise/account-service/internal/logic/v1"
)

// Context keys set by RequireAuth for downstream handlers.
const (
	actorContextKey = "auth.actor"
	tokenContextKey = "auth.token"
)

// bearerToken extracts the session token from the Authorization header.
func bearerToken(c *gin.Context) (string, bool) {
	const prefix = "Bearer "
	header := c.GetHeader("Authorization")
	if header == "" || !strings.HasPrefix(header, prefix) {
		return "", false
	}
	token := header[len(prefix):]
	if token == "" {
		return "", false
	}
	return token, true
}

// RequireAuth resolves the acting identity from the bearer session token and
// aborts with 401 before the handler runs when no valid session backs the
// request. Missing, unknown and expired tokens all fail closed.
func (h *Handler) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
			return
		}

		user, err := h.auth.GetUserByToken(c.Request.Context(), token)
		if err != nil {
			logger.FromContext(c.Request.Context()).Warn().Err(err).Msg("Session resolution failed")

			switch {
			case errors.Is(err, logicv1.ErrUnauthenticated):
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid session"})
			case errors.Is(err, logicv1.ErrSessionExpired):
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Session expired"})
			default:
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			}
			return
		}

		c.Set(actorContextKey, logicv1.Actor{ID: user.ID, Role: user.Role})
		c.Set(tokenContextKey, token)
		c.Next()
	}
}

// currentActor returns the identity stored by RequireAuth.
func currentActor(c *gin.Context) (logicv1.Actor, bool) {
	v, ok := c.Get(actorContextKey)
	if !ok {
		return logicv1.Actor{}, false
	}
	actor, ok := v.(logicv1.Actor)
	return actor, ok
}

// currentToken returns the session token stored by RequireAuth.
func currentToken(c *gin.Context) (string, bool) {
	v, ok := c.Get(tokenContextKey)
	if !ok {
		return "", false
	}
	token, ok := v.(string)
	return token, ok
}
