package auth

import "context"

type ctxKey int

const (
	ctxIdentity ctxKey = iota
	ctxGuildID
)

// WithIdentity stores the authenticated identity in the request context.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxIdentity, id)
}

// IdentityFrom retrieves the authenticated identity, if any.
func IdentityFrom(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(ctxIdentity).(Identity)
	return id, ok
}

// WithGuildID attaches the advisory target guild id extracted from the
// request. It is routing context, not a security decision.
func WithGuildID(ctx context.Context, guildID string) context.Context {
	return context.WithValue(ctx, ctxGuildID, guildID)
}

// GuildIDFrom retrieves the advisory guild id; empty when the request does
// not target a guild.
func GuildIDFrom(ctx context.Context) string {
	if s, ok := ctx.Value(ctxGuildID).(string); ok {
		return s
	}
	return ""
}
