package httpapi

import (
	"net/http"

	"plana-api/internal/auth"
	"plana-api/internal/authstate"
	"plana-api/internal/discord"
	"plana-api/internal/guilds"

	"github.com/gin-gonic/gin"
)

// Handlers groups HTTP handlers for dependency injection.
// Keep these thin: parse/validate input, call internal services, return JSON.
type Handlers struct {
	Tokens  *auth.Manager
	Discord *discord.Client

	// States is optional; when nil the callback skips state verification
	// (handler tests and deployments without redis).
	States *authstate.Store

	Guilds *guilds.Store

	// FrontendOrigin is the target origin for the OAuth popup postMessage.
	FrontendOrigin string
}

// requireUser pulls a user identity from the request context. Service
// callers are identified but not entitled to the session endpoints.
func requireUser(c *gin.Context) (auth.Identity, bool) {
	id, ok := auth.IdentityFrom(c.Request.Context())
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return auth.Identity{}, false
	}
	if id.Kind != auth.KindUser {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return auth.Identity{}, false
	}
	return id, true
}
