package auth

import "time"

// Kind distinguishes the two classes of authenticated caller.
type Kind string

const (
	// KindService is the bot process calling with a static API key.
	KindService Kind = "service"
	// KindUser is a dashboard user holding a session token.
	KindUser Kind = "user"
)

// Well-known identity presented by service callers. The bot is a single
// trusted principal; individual keys are not distinguished.
const (
	ServiceSubjectID = "plana_bot"
	ServiceUsername  = "Plana Bot"
)

// Identity is the per-request authentication context. It is constructed by
// the dispatcher, carried in the request context, and discarded when the
// request ends.
//
// Invariant: a service identity never carries a DiscordToken and is never
// guild-restricted. A user identity without a DiscordToken can never pass a
// guild-scoped permission check.
type Identity struct {
	Kind      Kind
	SubjectID string
	Username  string

	// User-only fields, copied from the session claims.
	Avatar       string
	DiscordToken string
	IssuedAt     time.Time
	ExpiresAt    time.Time
}

func (id Identity) IsService() bool { return id.Kind == KindService }

// ServiceIdentity returns the fixed identity for API-key callers.
func ServiceIdentity() Identity {
	return Identity{
		Kind:      KindService,
		SubjectID: ServiceSubjectID,
		Username:  ServiceUsername,
	}
}

// UserIdentity builds an identity from verified session claims.
func UserIdentity(claims SessionClaims) Identity {
	id := Identity{
		Kind:         KindUser,
		SubjectID:    claims.UserID,
		Username:     claims.Username,
		Avatar:       claims.Avatar,
		DiscordToken: claims.DiscordAccessToken,
	}
	if claims.IssuedAt != nil {
		id.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		id.ExpiresAt = claims.ExpiresAt.Time
	}
	return id
}
