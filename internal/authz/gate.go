package authz

import (
	"context"
	"errors"
	"net/http"

	"plana-api/internal/auth"
	"plana-api/pkg/logger"

	"github.com/gin-gonic/gin"
)

// ErrForbidden marks an authenticated caller who is not entitled to the
// target resource. Distinct from an authentication failure: the caller is
// identified, just not allowed.
var ErrForbidden = errors.New("forbidden")

// Gate makes allow/deny decisions for authenticated callers. Service callers
// are fully trusted; users must hold the admin bit in the target guild,
// verified through the permission cache.
type Gate struct {
	cache *PermissionCache
}

func NewGate(cache *PermissionCache) (*Gate, error) {
	if cache == nil {
		return nil, errors.New("permission cache is required")
	}
	return &Gate{cache: cache}, nil
}

// Check applies the permission rules for a guild-scoped operation.
func (g *Gate) Check(ctx context.Context, id auth.Identity, guildID string) error {
	switch {
	case id.Kind == auth.KindService:
		// Static-key callers have full access regardless of guild.
		return nil

	case id.Kind == auth.KindUser && guildID != "":
		if id.DiscordToken == "" {
			// Cannot verify without the Discord token; fail closed.
			return ErrForbidden
		}
		if !g.cache.HasAdmin(ctx, id.SubjectID, guildID, id.DiscordToken) {
			return ErrForbidden
		}
		return nil

	default:
		return ErrForbidden
	}
}

// RequirePermission guards guild-scoped routes. The dispatcher has already
// attached identity and advisory guild id to the request context.
func (g *Gate) RequirePermission() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := auth.IdentityFrom(c.Request.Context())
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}

		guildID := auth.GuildIDFrom(c.Request.Context())
		if err := g.Check(c.Request.Context(), id, guildID); err != nil {
			logger.FromGin(c).Warn("permission denied",
				"path", c.Request.URL.Path,
				"subject", id.SubjectID,
				"guild_id", guildID,
			)
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}
		c.Next()
	}
}

// RequireServiceOnly guards routes reserved for the bot process.
func RequireServiceOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := auth.IdentityFrom(c.Request.Context())
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}
		if !id.IsService() {
			logger.FromGin(c).Warn("service-only route denied",
				"path", c.Request.URL.Path,
				"subject", id.SubjectID,
			)
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}
		c.Next()
	}
}
