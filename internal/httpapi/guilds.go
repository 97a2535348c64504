package httpapi

import (
	"errors"
	"net/http"

	"plana-api/internal/guilds"
	"plana-api/pkg/logger"

	"github.com/gin-gonic/gin"
)

// Guild preferences CRUD. These routes sit behind the permission gate: the
// caller is either the bot or a verified admin of :guild_id by the time a
// handler runs.

func (h Handlers) GetPreferences(c *gin.Context) {
	prefs, err := h.Guilds.Get(c.Request.Context(), c.Param("guild_id"))
	if err != nil {
		if errors.Is(err, guilds.ErrNotFound) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "preferences not found"})
			return
		}
		logger.FromGin(c).Error("fetch guild preferences failed", "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch guild preferences"})
		return
	}
	c.JSON(http.StatusOK, prefs)
}

func (h Handlers) CreatePreferences(c *gin.Context) {
	var body guilds.Preferences
	if err := c.ShouldBindJSON(&body); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	body.GuildID = c.Param("guild_id")

	prefs, err := h.Guilds.Create(c.Request.Context(), body)
	if err != nil {
		if errors.Is(err, guilds.ErrExists) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "preferences already exist"})
			return
		}
		logger.FromGin(c).Error("create guild preferences failed", "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "failed to create guild preferences"})
		return
	}
	c.JSON(http.StatusCreated, prefs)
}

func (h Handlers) UpdatePreferences(c *gin.Context) {
	var patch guilds.PreferencesPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	prefs, err := h.Guilds.Update(c.Request.Context(), c.Param("guild_id"), patch)
	if err != nil {
		if errors.Is(err, guilds.ErrNotFound) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "preferences not found"})
			return
		}
		logger.FromGin(c).Error("update guild preferences failed", "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "failed to update guild preferences"})
		return
	}
	c.JSON(http.StatusOK, prefs)
}

func (h Handlers) DeletePreferences(c *gin.Context) {
	if err := h.Guilds.Delete(c.Request.Context(), c.Param("guild_id")); err != nil {
		if errors.Is(err, guilds.ErrNotFound) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "preferences not found"})
			return
		}
		logger.FromGin(c).Error("delete guild preferences failed", "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "failed to delete guild preferences"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "preferences deleted"})
}

type botPresenceRequest struct {
	Installed *bool `json:"installed"`
}

// BotPresence is called by the bot process on guild join/leave to keep the
// dashboard's bot_installed flag current. Service-only.
func (h Handlers) BotPresence(c *gin.Context) {
	var req botPresenceRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Installed == nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "installed is required"})
		return
	}

	guildID := c.Param("guild_id")
	if err := h.Guilds.SetBotInstalled(c.Request.Context(), guildID, *req.Installed); err != nil {
		logger.FromGin(c).Error("bot presence update failed", "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "failed to update bot presence"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"guild_id": guildID, "installed": *req.Installed})
}
