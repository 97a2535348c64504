package auth

import (
	"errors"
	"time"

	"plana-api/internal/config"

	"github.com/golang-jwt/jwt/v5"
)

// Verification failure classes. The middleware maps both to 401 but reports
// distinct reasons.
var (
	ErrTokenExpired = errors.New("session token expired")
	ErrTokenInvalid = errors.New("session token invalid")
)

// Manager mints and verifies session tokens for dashboard users.
// Verification is pure computation; no external state is consulted.
type Manager struct {
	secret     []byte
	sessionTTL time.Duration
}

func NewManager(cfg config.AuthConfig) (*Manager, error) {
	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}
	ttl := cfg.SessionTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}

	return &Manager{
		secret:     []byte(cfg.JWTSecret),
		sessionTTL: ttl,
	}, nil
}

// Mint issues a signed session token embedding the user's Discord identity
// and access token, valid for the configured session window from now.
func (m *Manager) Mint(now time.Time, userID, username, avatar, discordToken string) (string, error) {
	claims := SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.sessionTTL)),
		},
		UserID:             userID,
		Username:           username,
		Avatar:             avatar,
		DiscordAccessToken: discordToken,
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(m.secret)
}

// Verify decodes a session token and checks signature and expiry against now.
// Returns ErrTokenExpired past the expiry, ErrTokenInvalid for anything else
// that fails to verify.
func (m *Manager) Verify(tokenString string, now time.Time) (SessionClaims, error) {
	var claims SessionClaims

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(func() time.Time { return now }),
		jwt.WithIssuedAt(),
		jwt.WithExpirationRequired(),
	)

	_, err := parser.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (any, error) {
		return m.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return SessionClaims{}, ErrTokenExpired
		}
		return SessionClaims{}, ErrTokenInvalid
	}

	if claims.UserID == "" {
		return SessionClaims{}, ErrTokenInvalid
	}

	return claims, nil
}
