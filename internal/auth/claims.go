package auth

import "github.com/golang-jwt/jwt/v5"

// SessionClaims is the only supported JWT claims shape for this service.
//
// The Discord access token is embedded inside the signed payload instead of
// being stored server-side. That keeps the API stateless, but anyone holding
// the session token can act with the embedded Discord token until expiry;
// revisit with an opaque server-side session if revocation is ever needed.
type SessionClaims struct {
	jwt.RegisteredClaims

	UserID             string `json:"user_id"`
	Username           string `json:"username"`
	Avatar             string `json:"avatar,omitempty"`
	DiscordAccessToken string `json:"discord_access_token"`
}
