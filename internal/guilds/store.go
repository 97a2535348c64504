package guilds

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"plana-api/pkg/utils"
)

// NOTE: This store assumes the following table exists:
//
// CREATE TABLE server_preferences (
//   guild_id       BIGINT PRIMARY KEY,
//   enabled        BOOLEAN NOT NULL DEFAULT TRUE,
//   command_prefix VARCHAR(10) NOT NULL DEFAULT '!',
//   language       VARCHAR(10) NOT NULL DEFAULT 'en-US',
//   timezone       VARCHAR(50) NOT NULL DEFAULT 'UTC',
//   embed_color    VARCHAR(7)  NOT NULL DEFAULT '#7289DA',
//   embed_footer   VARCHAR(256) NOT NULL DEFAULT 'Project Plana',
//   updated_at     TIMESTAMPTZ NOT NULL DEFAULT now()
// );

var (
	ErrNotFound = errors.New("guild preferences not found")
	ErrExists   = errors.New("guild preferences already exist")
)

// Store is the persistence layer for guild preferences.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) (*Store, error) {
	if db == nil {
		return nil, errors.New("db is required")
	}
	return &Store{db: db}, nil
}

// rowQuerier is satisfied by both *sql.DB and *sql.Tx.
type rowQuerier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Store) Get(ctx context.Context, guildID string) (Preferences, error) {
	return getPreferences(ctx, s.db, guildID)
}

func getPreferences(ctx context.Context, q rowQuerier, guildID string) (Preferences, error) {
	const query = `
SELECT guild_id, enabled, command_prefix, language, timezone, embed_color, embed_footer, updated_at
FROM server_preferences
WHERE guild_id = $1
`
	var p Preferences
	if err := q.QueryRowContext(ctx, query, guildID).Scan(
		&p.GuildID,
		&p.Enabled,
		&p.CommandPrefix,
		&p.Language,
		&p.Timezone,
		&p.EmbedColor,
		&p.EmbedFooter,
		&p.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Preferences{}, ErrNotFound
		}
		return Preferences{}, err
	}
	return p, nil
}

// Create inserts a fresh preferences row, seeded with defaults for fields
// the caller left zero-valued. The insert and the read-back run in one
// transaction so the returned row is the one just written.
func (s *Store) Create(ctx context.Context, p Preferences) (Preferences, error) {
	p = applyDefaults(p)

	var out Preferences
	err := utils.WithTx(ctx, s.db, nil, func(ctx context.Context, tx *sql.Tx) error {
		const q = `
INSERT INTO server_preferences (guild_id, enabled, command_prefix, language, timezone, embed_color, embed_footer, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, now())
ON CONFLICT (guild_id) DO NOTHING
`
		res, err := tx.ExecContext(ctx, q,
			p.GuildID, p.Enabled, p.CommandPrefix, p.Language, p.Timezone, p.EmbedColor, p.EmbedFooter,
		)
		if err != nil {
			return err
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return ErrExists
		}
		out, err = getPreferences(ctx, tx, p.GuildID)
		return err
	})
	if err != nil {
		return Preferences{}, err
	}
	return out, nil
}

// Update applies a partial patch and returns the updated row.
func (s *Store) Update(ctx context.Context, guildID string, patch PreferencesPatch) (Preferences, error) {
	sets := []string{"updated_at = now()"}
	args := []any{guildID}

	add := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if patch.Enabled != nil {
		add("enabled", *patch.Enabled)
	}
	if patch.CommandPrefix != nil {
		add("command_prefix", *patch.CommandPrefix)
	}
	if patch.Language != nil {
		add("language", *patch.Language)
	}
	if patch.Timezone != nil {
		add("timezone", *patch.Timezone)
	}
	if patch.EmbedColor != nil {
		add("embed_color", *patch.EmbedColor)
	}
	if patch.EmbedFooter != nil {
		add("embed_footer", *patch.EmbedFooter)
	}

	q := fmt.Sprintf("UPDATE server_preferences SET %s WHERE guild_id = $1", strings.Join(sets, ", "))

	var out Preferences
	err := utils.WithTx(ctx, s.db, nil, func(ctx context.Context, tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, q, args...)
		if err != nil {
			return err
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return ErrNotFound
		}
		out, err = getPreferences(ctx, tx, guildID)
		return err
	})
	if err != nil {
		return Preferences{}, err
	}
	return out, nil
}

func (s *Store) Delete(ctx context.Context, guildID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM server_preferences WHERE guild_id = $1`, guildID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// SetBotInstalled flips the enabled flag from guild join/leave events. A row
// is created on first join so the dashboard sees the guild immediately.
func (s *Store) SetBotInstalled(ctx context.Context, guildID string, installed bool) error {
	const q = `
INSERT INTO server_preferences (guild_id, enabled, updated_at)
VALUES ($1, $2, now())
ON CONFLICT (guild_id) DO UPDATE SET enabled = $2, updated_at = now()
`
	_, err := s.db.ExecContext(ctx, q, guildID, installed)
	return err
}

// BotStatus reports, for each requested guild, whether the bot is installed.
// Guilds with no row read as false.
func (s *Store) BotStatus(ctx context.Context, guildIDs []string) (map[string]bool, error) {
	out := make(map[string]bool, len(guildIDs))
	if len(guildIDs) == 0 {
		return out, nil
	}

	placeholders := make([]string, len(guildIDs))
	args := make([]any, len(guildIDs))
	for i, id := range guildIDs {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = id
	}

	q := fmt.Sprintf(
		"SELECT guild_id, enabled FROM server_preferences WHERE guild_id IN (%s)",
		strings.Join(placeholders, ", "),
	)
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		var enabled bool
		if err := rows.Scan(&id, &enabled); err != nil {
			return nil, err
		}
		out[id] = enabled
	}
	return out, rows.Err()
}

func applyDefaults(p Preferences) Preferences {
	def := defaultPreferences(p.GuildID)
	if p.CommandPrefix == "" {
		p.CommandPrefix = def.CommandPrefix
	}
	if p.Language == "" {
		p.Language = def.Language
	}
	if p.Timezone == "" {
		p.Timezone = def.Timezone
	}
	if p.EmbedColor == "" {
		p.EmbedColor = def.EmbedColor
	}
	if p.EmbedFooter == "" {
		p.EmbedFooter = def.EmbedFooter
	}
	return p
}
