package main

import (
	"net/http"

	"plana-api/internal/auth"
	"plana-api/internal/authstate"
	"plana-api/internal/authz"
	"plana-api/internal/config"
	"plana-api/internal/discord"
	"plana-api/internal/guilds"
	"plana-api/internal/httpapi"

	"github.com/gin-gonic/gin"
)

func httpHandlers(
	cfg config.Config,
	tokens *auth.Manager,
	dc *discord.Client,
	states *authstate.Store,
	guildStore *guilds.Store,
) httpapi.Handlers {
	return httpapi.Handlers{
		Tokens:         tokens,
		Discord:        dc,
		States:         states,
		Guilds:         guildStore,
		FrontendOrigin: cfg.Discord.FrontendRedirectURI,
	}
}

// registerRoutes wires HTTP routes to handlers.
// Keep this file free of business logic. Handlers should delegate to internal modules.
// The auth dispatcher runs engine-wide, so every non-public route below
// already carries an identity by the time its chain starts.
func registerRoutes(r *gin.Engine, h httpapi.Handlers, gate *authz.Gate, loginLimit gin.HandlerFunc) {
	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "Plana API is running", "docs": "/docs"})
	})
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")

	authGroup := api.Group("/auth")
	{
		authGroup.GET("/url", loginLimit, h.AuthURL)
		authGroup.GET("/invite", h.BotInvite)
		authGroup.GET("/callback", loginLimit, h.AuthCallback)

		// Session endpoints; the handlers enforce a user identity.
		authGroup.GET("/me", h.Me)
		authGroup.POST("/logout", h.Logout)
		authGroup.GET("/guilds", h.UserGuilds)
	}

	guildGroup := api.Group("/guilds")
	{
		// Bot lifecycle callbacks from the bot process itself.
		guildGroup.PUT("/:guild_id/bot", authz.RequireServiceOnly(), h.BotPresence)

		scoped := guildGroup.Group("")
		scoped.Use(gate.RequirePermission())
		{
			scoped.GET("/:guild_id/preferences", h.GetPreferences)
			scoped.POST("/:guild_id/preferences", h.CreatePreferences)
			scoped.PATCH("/:guild_id/preferences", h.UpdatePreferences)
			scoped.DELETE("/:guild_id/preferences", h.DeletePreferences)
		}
	}
}
