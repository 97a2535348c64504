package discord

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"plana-api/internal/config"
)

// AdminPermission is the Discord administrator permission bit. Not
// configurable; its value is fixed by the Discord API.
const AdminPermission = 0x00000008

const defaultBaseURL = "https://discord.com/api"

// ErrUnavailable wraps any network or upstream failure talking to Discord.
// During login this is a hard failure; guild-admin checks swallow it and
// deny instead.
var ErrUnavailable = errors.New("discord api unavailable")

// User is the identity payload returned by /users/@me.
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Avatar   string `json:"avatar"`
}

// Guild is one entry from /users/@me/guilds. Permissions arrive as a decimal
// string on current API versions but were an integer historically, so the
// field is decoded as json.Number.
type Guild struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Icon        string      `json:"icon"`
	Banner      string      `json:"banner"`
	Owner       bool        `json:"owner"`
	Permissions json.Number `json:"permissions"`
}

// PermissionBits parses the raw permission field; malformed values read as 0.
func (g Guild) PermissionBits() int64 {
	n, err := strconv.ParseInt(g.Permissions.String(), 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// HasAdmin reports whether the administrator bit is set.
func (g Guild) HasAdmin() bool {
	return g.PermissionBits()&AdminPermission != 0
}

// Client talks to the Discord OAuth and REST API on behalf of dashboard
// users. The embedded HTTP client owns request timeouts; timeouts and
// transport errors surface as ErrUnavailable.
type Client struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string

	// BaseURL points at the Discord API root; overridden in tests.
	BaseURL    string
	HTTPClient *http.Client
}

func NewClient(cfg config.DiscordConfig) *Client {
	return &Client{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURI:  cfg.RedirectURI,
		BaseURL:      defaultBaseURL,
		HTTPClient:   &http.Client{Timeout: 10 * time.Second},
	}
}

// AuthorizeURL builds the OAuth authorization URL. The caller-supplied
// anti-CSRF state round-trips unmodified through Discord.
func (c *Client) AuthorizeURL(state string) string {
	q := url.Values{
		"client_id":     {c.ClientID},
		"redirect_uri":  {c.RedirectURI},
		"response_type": {"code"},
		"scope":         {"identify guilds"},
		"state":         {state},
	}
	return c.BaseURL + "/oauth2/authorize?" + q.Encode()
}

// BotInviteURL builds the URL that installs the bot into a guild.
func (c *Client) BotInviteURL() string {
	q := url.Values{
		"client_id":   {c.ClientID},
		"permissions": {strconv.Itoa(AdminPermission)},
		"scope":       {"bot"},
	}
	return c.BaseURL + "/oauth2/authorize?" + q.Encode()
}

// ExchangeCode trades an authorization code for a Discord access token.
func (c *Client) ExchangeCode(ctx context.Context, code string) (string, error) {
	form := url.Values{
		"client_id":     {c.ClientID},
		"client_secret": {c.ClientSecret},
		"grant_type":    {"authorization_code"},
		"code":          {code},
		"redirect_uri":  {c.RedirectURI},
	}

	var payload struct {
		AccessToken string `json:"access_token"`
	}
	if err := c.postForm(ctx, c.BaseURL+"/oauth2/token", form, &payload); err != nil {
		return "", err
	}
	if payload.AccessToken == "" {
		return "", fmt.Errorf("%w: token response missing access_token", ErrUnavailable)
	}
	return payload.AccessToken, nil
}

// FetchUser returns the identity of the token's owner.
func (c *Client) FetchUser(ctx context.Context, accessToken string) (User, error) {
	var u User
	if err := c.getJSON(ctx, c.BaseURL+"/v10/users/@me", accessToken, &u); err != nil {
		return User{}, err
	}
	return u, nil
}

// FetchGuilds returns the guilds the token's owner belongs to, including the
// caller's permission bitmask per guild.
func (c *Client) FetchGuilds(ctx context.Context, accessToken string) ([]Guild, error) {
	var guilds []Guild
	if err := c.getJSON(ctx, c.BaseURL+"/v10/users/@me/guilds", accessToken, &guilds); err != nil {
		return nil, err
	}
	return guilds, nil
}

// CheckGuildAdmin reports whether the token's owner holds the administrator
// bit in the given guild. Missing membership and every upstream failure
// read as false: a broken upstream must never grant access.
func (c *Client) CheckGuildAdmin(ctx context.Context, guildID, accessToken string) bool {
	guilds, err := c.FetchGuilds(ctx, accessToken)
	if err != nil {
		slog.Warn("guild admin check failed, denying", "guild_id", guildID, "err", err)
		return false
	}

	for _, g := range guilds {
		if strings.TrimSpace(g.ID) == strings.TrimSpace(guildID) {
			return g.HasAdmin()
		}
	}
	slog.Debug("caller not a member of guild", "guild_id", guildID)
	return false
}

func (c *Client) postForm(ctx context.Context, rawURL string, form url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(req, out)
}

func (c *Client) getJSON(ctx context.Context, rawURL, accessToken string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Surface the upstream error description when Discord provides one.
		var apiErr struct {
			ErrorDescription string `json:"error_description"`
			Message          string `json:"message"`
		}
		_ = json.Unmarshal(body, &apiErr)
		desc := apiErr.ErrorDescription
		if desc == "" {
			desc = apiErr.Message
		}
		if desc == "" {
			desc = http.StatusText(resp.StatusCode)
		}
		return fmt.Errorf("%w: %s (status %d)", ErrUnavailable, desc, resp.StatusCode)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: decode response: %v", ErrUnavailable, err)
	}
	return nil
}
