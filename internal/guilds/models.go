package guilds

import "time"

// Preferences is the per-guild bot configuration row. Enabled doubles as the
// bot-installed flag: it flips on guild join/leave events reported by the
// bot process.
type Preferences struct {
	GuildID       string    `json:"guild_id"`
	Enabled       bool      `json:"enabled"`
	CommandPrefix string    `json:"command_prefix"`
	Language      string    `json:"language"`
	Timezone      string    `json:"timezone"`
	EmbedColor    string    `json:"embed_color"`
	EmbedFooter   string    `json:"embed_footer"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// PreferencesPatch carries optional updates; nil fields are left untouched.
type PreferencesPatch struct {
	Enabled       *bool   `json:"enabled"`
	CommandPrefix *string `json:"command_prefix"`
	Language      *string `json:"language"`
	Timezone      *string `json:"timezone"`
	EmbedColor    *string `json:"embed_color"`
	EmbedFooter   *string `json:"embed_footer"`
}

func defaultPreferences(guildID string) Preferences {
	return Preferences{
		GuildID:       guildID,
		Enabled:       true,
		CommandPrefix: "!",
		Language:      "en-US",
		Timezone:      "UTC",
		EmbedColor:    "#7289DA",
		EmbedFooter:   "Project Plana",
	}
}
