package auth

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"plana-api/pkg/logger"

	"github.com/gin-gonic/gin"
)

// HeaderAPIKey carries the static service credential presented by the bot.
const HeaderAPIKey = "Plana-API-Key"

const (
	authorizationHeader = "Authorization"
	bearerPrefix        = "Bearer "
)

// Dispatcher authenticates every request before any handler runs. Public
// routes and CORS pre-flight pass through untouched; everything else must
// present a service key or a bearer session token or is rejected with 401.
type Dispatcher struct {
	tokens  *Manager
	apiKeys map[string]struct{}
	now     func() time.Time
}

func NewDispatcher(tokens *Manager, apiKeys []string) (*Dispatcher, error) {
	if tokens == nil {
		return nil, errors.New("token manager is required")
	}
	keys := make(map[string]struct{}, len(apiKeys))
	for _, k := range apiKeys {
		if k = strings.TrimSpace(k); k != "" {
			keys[k] = struct{}{}
		}
	}
	return &Dispatcher{
		tokens:  tokens,
		apiKeys: keys,
		now:     time.Now,
	}, nil
}

// Middleware classifies the route, extracts a credential, and attaches the
// resulting identity (plus the advisory guild id) to the request context.
// On rejection the handler never executes.
func (d *Dispatcher) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path

		// Pre-flight probes carry no credentials and are always public.
		if c.Request.Method == http.MethodOptions || IsPublicPath(path) {
			c.Next()
			return
		}

		log := logger.FromGin(c)

		if key := c.GetHeader(HeaderAPIKey); key != "" {
			if _, ok := d.apiKeys[key]; !ok {
				log.Warn("auth rejected", "path", path, "reason", "invalid api key")
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid api key"})
				return
			}
			d.admit(c, ServiceIdentity())
			log.Debug("auth ok", "path", path, "kind", KindService)
			return
		}

		raw := strings.TrimSpace(c.GetHeader(authorizationHeader))
		if token, ok := strings.CutPrefix(raw, bearerPrefix); ok && strings.TrimSpace(token) != "" {
			claims, err := d.tokens.Verify(strings.TrimSpace(token), d.now())
			if err != nil {
				reason := "invalid token"
				if errors.Is(err, ErrTokenExpired) {
					reason = "token expired"
				}
				log.Warn("auth rejected", "path", path, "reason", reason)
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": reason})
				return
			}
			id := UserIdentity(claims)
			d.admit(c, id)
			log.Debug("auth ok", "path", path, "kind", KindUser, "user_id", id.SubjectID)
			return
		}

		log.Warn("auth rejected", "path", path, "reason", "authentication required")
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
	}
}

func (d *Dispatcher) admit(c *gin.Context, id Identity) {
	ctx := WithIdentity(c.Request.Context(), id)
	if gid := GuildIDFromRequest(c); gid != "" {
		ctx = WithGuildID(ctx, gid)
	}
	c.Request = c.Request.WithContext(ctx)
	c.Next()
}
