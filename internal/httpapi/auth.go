package httpapi

import (
	"net/http"
	"time"

	"plana-api/internal/discord"
	"plana-api/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// AuthURL returns the Discord authorization URL plus the anti-CSRF state the
// frontend must carry through the redirect.
func (h Handlers) AuthURL(c *gin.Context) {
	var state string
	if h.States != nil {
		s, err := h.States.Issue(c.Request.Context())
		if err != nil {
			logger.FromGin(c).Error("oauth state issue failed", "err", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "failed to generate authorization URL"})
			return
		}
		state = s
	} else {
		state = uuid.NewString()
	}

	c.JSON(http.StatusOK, gin.H{
		"url":   h.Discord.AuthorizeURL(state),
		"state": state,
	})
}

// BotInvite returns the URL that installs the bot into a guild.
func (h Handlers) BotInvite(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"url": h.Discord.BotInviteURL()})
}

// AuthCallback completes the OAuth flow: verify state, exchange the code,
// fetch the user, mint a session token, and hand it to the opener window.
// Any upstream failure here is terminal for the login attempt.
func (h Handlers) AuthCallback(c *gin.Context) {
	log := logger.FromGin(c)

	code := c.Query("code")
	if code == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "code is required"})
		return
	}

	if state := c.Query("state"); h.States != nil && state != "" {
		ok, err := h.States.Consume(c.Request.Context(), state)
		if err != nil || !ok {
			if err != nil {
				log.Error("oauth state verification failed", "err", err)
			} else {
				log.Warn("oauth state rejected", "reason", "unknown or replayed state")
			}
			h.popupError(c, "Authentication failed")
			return
		}
	}

	accessToken, err := h.Discord.ExchangeCode(c.Request.Context(), code)
	if err != nil {
		log.Error("code exchange failed", "err", err)
		h.popupError(c, "Authentication failed")
		return
	}

	user, err := h.Discord.FetchUser(c.Request.Context(), accessToken)
	if err != nil {
		log.Error("identity fetch failed", "err", err)
		h.popupError(c, "Authentication failed")
		return
	}

	session, err := h.Tokens.Mint(time.Now(), user.ID, user.Username, user.Avatar, accessToken)
	if err != nil {
		log.Error("session mint failed", "err", err)
		h.popupError(c, "Authentication failed")
		return
	}

	log.Info("user logged in", "user_id", user.ID)
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(popupSuccessHTML(session, h.FrontendOrigin)))
}

func (h Handlers) popupError(c *gin.Context, msg string) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(popupErrorHTML(msg, h.FrontendOrigin)))
}

// Me returns the authenticated user's own identity.
func (h Handlers) Me(c *gin.Context) {
	id, ok := requireUser(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"user": gin.H{
			"id":       id.SubjectID,
			"username": id.Username,
			"avatar":   id.Avatar,
		},
	})
}

// Logout acknowledges a logout; the client discards the token. Nothing is
// revoked server-side (see the claims type for the trade-off).
func (h Handlers) Logout(c *gin.Context) {
	id, ok := requireUser(c)
	if !ok {
		return
	}
	logger.FromGin(c).Info("user logged out", "user_id", id.SubjectID)
	c.JSON(http.StatusOK, gin.H{"message": "Logged out successfully"})
}

type guildInfo struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Icon         string `json:"icon,omitempty"`
	Banner       string `json:"banner,omitempty"`
	Owner        bool   `json:"owner"`
	Permissions  int64  `json:"permissions"`
	BotInstalled bool   `json:"bot_installed"`
}

// UserGuilds lists the caller's guilds where they hold the admin bit, each
// annotated with whether the bot is installed there.
func (h Handlers) UserGuilds(c *gin.Context) {
	id, ok := requireUser(c)
	if !ok {
		return
	}
	if id.DiscordToken == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "discord access token not found"})
		return
	}

	allGuilds, err := h.Discord.FetchGuilds(c.Request.Context(), id.DiscordToken)
	if err != nil {
		logger.FromGin(c).Error("guild list fetch failed", "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch user guilds"})
		return
	}

	var admin []discord.Guild
	for _, g := range allGuilds {
		if g.HasAdmin() {
			admin = append(admin, g)
		}
	}

	ids := make([]string, len(admin))
	for i, g := range admin {
		ids[i] = g.ID
	}
	botStatus := map[string]bool{}
	if h.Guilds != nil {
		botStatus, err = h.Guilds.BotStatus(c.Request.Context(), ids)
		if err != nil {
			logger.FromGin(c).Error("bot status lookup failed", "err", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch user guilds"})
			return
		}
	}

	out := make([]guildInfo, len(admin))
	for i, g := range admin {
		out[i] = guildInfo{
			ID:           g.ID,
			Name:         g.Name,
			Icon:         g.Icon,
			Banner:       g.Banner,
			Owner:        g.Owner,
			Permissions:  g.PermissionBits(),
			BotInstalled: botStatus[g.ID],
		}
	}

	c.JSON(http.StatusOK, gin.H{"guilds": out, "user_id": id.SubjectID})
}
