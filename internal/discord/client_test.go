package discord

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"plana-api/internal/config"
)

func testClient(srv *httptest.Server) *Client {
	c := NewClient(config.DiscordConfig{
		ClientID:     "cid",
		ClientSecret: "cs",
		RedirectURI:  "http://localhost/api/auth/callback",
	})
	if srv != nil {
		c.BaseURL = srv.URL
		c.HTTPClient = srv.Client()
	}
	return c
}

func TestAuthorizeURL(t *testing.T) {
	c := testClient(nil)

	raw := c.AuthorizeURL("state-123")
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	q := u.Query()
	if q.Get("client_id") != "cid" || q.Get("response_type") != "code" {
		t.Fatalf("unexpected query: %v", q)
	}
	if q.Get("scope") != "identify guilds" {
		t.Fatalf("unexpected scope: %q", q.Get("scope"))
	}
	if q.Get("state") != "state-123" {
		t.Fatalf("state did not round-trip: %q", q.Get("state"))
	}
}

func TestBotInviteURL(t *testing.T) {
	c := testClient(nil)

	u, err := url.Parse(c.BotInviteURL())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	q := u.Query()
	if q.Get("scope") != "bot" || q.Get("permissions") != "8" {
		t.Fatalf("unexpected query: %v", q)
	}
}

func TestExchangeCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/oauth2/token" || r.Method != http.MethodPost {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		if r.PostForm.Get("code") != "abc" || r.PostForm.Get("grant_type") != "authorization_code" {
			t.Errorf("unexpected form: %v", r.PostForm)
		}
		json.NewEncoder(w).Encode(map[string]string{"access_token": "discord-token"})
	}))
	defer srv.Close()

	tok, err := testClient(srv).ExchangeCode(context.Background(), "abc")
	if err != nil {
		t.Fatalf("exchange: %v", err)
	}
	if tok != "discord-token" {
		t.Fatalf("unexpected token: %q", tok)
	}
}

func TestExchangeCode_UpstreamErrorDescription(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{"error_description": "Invalid \"code\" in request."})
	}))
	defer srv.Close()

	_, err := testClient(srv).ExchangeCode(context.Background(), "bad")
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	if !strings.Contains(err.Error(), "Invalid \"code\" in request.") {
		t.Fatalf("error description not surfaced: %v", err)
	}
}

func TestExchangeCode_MissingAccessToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{})
	}))
	defer srv.Close()

	if _, err := testClient(srv).ExchangeCode(context.Background(), "abc"); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestFetchUser(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v10/users/@me" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer tok" {
			t.Errorf("unexpected auth header: %q", r.Header.Get("Authorization"))
		}
		json.NewEncoder(w).Encode(User{ID: "42", Username: "aru", Avatar: "av"})
	}))
	defer srv.Close()

	u, err := testClient(srv).FetchUser(context.Background(), "tok")
	if err != nil {
		t.Fatalf("fetch user: %v", err)
	}
	if u.ID != "42" || u.Username != "aru" || u.Avatar != "av" {
		t.Fatalf("unexpected user: %+v", u)
	}
}

func TestFetchGuilds_PermissionFormats(t *testing.T) {
	// Current API sends permissions as a decimal string; older payloads used
	// an integer. Both must decode.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[
			{"id": "1", "name": "alpha", "permissions": "8"},
			{"id": "2", "name": "beta", "permissions": 2147483647},
			{"id": "3", "name": "gamma", "permissions": "104324161"}
		]`))
	}))
	defer srv.Close()

	guilds, err := testClient(srv).FetchGuilds(context.Background(), "tok")
	if err != nil {
		t.Fatalf("fetch guilds: %v", err)
	}
	if len(guilds) != 3 {
		t.Fatalf("expected 3 guilds, got %d", len(guilds))
	}
	if !guilds[0].HasAdmin() {
		t.Fatalf("permissions \"8\" should carry admin")
	}
	if !guilds[1].HasAdmin() {
		t.Fatalf("full bitmask should carry admin")
	}
	if guilds[2].HasAdmin() {
		t.Fatalf("104324161 should not carry admin")
	}
}

func TestCheckGuildAdmin(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[
			{"id": "100", "permissions": "8"},
			{"id": "200", "permissions": "0"}
		]`))
	}))
	defer srv.Close()

	c := testClient(srv)
	ctx := context.Background()

	if !c.CheckGuildAdmin(ctx, "100", "tok") {
		t.Fatalf("expected admin in guild 100")
	}
	if c.CheckGuildAdmin(ctx, "200", "tok") {
		t.Fatalf("expected no admin in guild 200")
	}
	if c.CheckGuildAdmin(ctx, "999", "tok") {
		t.Fatalf("expected denial for unknown guild")
	}
	// Whitespace around ids must not defeat the match.
	if !c.CheckGuildAdmin(ctx, " 100 ", "tok") {
		t.Fatalf("expected admin despite padded guild id")
	}
}

func TestCheckGuildAdmin_UpstreamFailureDenies(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	if testClient(srv).CheckGuildAdmin(context.Background(), "100", "tok") {
		t.Fatalf("upstream failure must deny")
	}
}

func TestCheckGuildAdmin_UnreachableDenies(t *testing.T) {
	c := testClient(nil)
	c.BaseURL = "http://127.0.0.1:1"

	if c.CheckGuildAdmin(context.Background(), "100", "tok") {
		t.Fatalf("unreachable upstream must deny")
	}
}

func TestPermissionBits_Malformed(t *testing.T) {
	g := Guild{Permissions: json.Number("not-a-number")}
	if g.PermissionBits() != 0 {
		t.Fatalf("malformed permissions should read as 0")
	}
	if g.HasAdmin() {
		t.Fatalf("malformed permissions must not grant admin")
	}
}
