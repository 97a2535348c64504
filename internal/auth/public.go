package auth

import (
	"strings"

	"github.com/gin-gonic/gin"
)

// publicRoutes are the exact paths reachable without a credential: the root
// and health endpoints, docs, and the OAuth endpoints a user must hit before
// holding a session.
var publicRoutes = map[string]struct{}{
	"/":                  {},
	"/healthz":           {},
	"/docs":              {},
	"/api/auth/url":      {},
	"/api/auth/invite":   {},
	"/api/auth/callback": {},
}

// IsPublicPath reports whether a path requires no authentication. A path
// equal to a public route, or exactly one segment below one, is public. The
// root path is excluded from the segment rule so "/" does not open up "/foo".
func IsPublicPath(path string) bool {
	if _, ok := publicRoutes[path]; ok {
		return true
	}

	parent := path
	if i := strings.LastIndex(strings.TrimSuffix(parent, "/"), "/"); i > 0 {
		parent = parent[:i]
	} else {
		return false
	}
	_, ok := publicRoutes[parent]
	return ok
}

// GuildIDFromRequest extracts the advisory target guild id: the guild_id
// route parameter when the matched route binds one, falling back to a
// guild_id query parameter. Route parameters must be numeric (Discord
// snowflakes); query values pass through as-is.
func GuildIDFromRequest(c *gin.Context) string {
	if p := c.Param("guild_id"); p != "" && isDigits(p) {
		return p
	}
	return c.Query("guild_id")
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
