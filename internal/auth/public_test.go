package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestIsPublicPath(t *testing.T) {
	cases := []struct {
		path   string
		public bool
	}{
		{"/", true},
		{"/healthz", true},
		{"/docs", true},
		{"/api/auth/url", true},
		{"/api/auth/invite", true},
		{"/api/auth/callback", true},
		// One segment below a public route stays public.
		{"/api/auth/callback/extra", true},
		{"/docs/openapi.json", true},
		// The root path must not open up everything.
		{"/foo", false},
		{"/api", false},
		{"/api/auth", false},
		{"/api/auth/me", false},
		{"/api/guilds/123/preferences", false},
		// Two segments below is no longer public.
		{"/api/auth/callback/a/b", false},
	}

	for _, tc := range cases {
		if got := IsPublicPath(tc.path); got != tc.public {
			t.Fatalf("IsPublicPath(%q) = %v, want %v", tc.path, got, tc.public)
		}
	}
}

func TestGuildIDFromRequest_RouteParam(t *testing.T) {
	gin.SetMode(gin.TestMode)

	var got string
	r := gin.New()
	r.GET("/api/guilds/:guild_id/data", func(c *gin.Context) {
		got = GuildIDFromRequest(c)
		c.Status(200)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/guilds/123/data", nil))
	if got != "123" {
		t.Fatalf("expected guild id 123, got %q", got)
	}
}

func TestGuildIDFromRequest_NonNumericParamIgnored(t *testing.T) {
	gin.SetMode(gin.TestMode)

	var got string
	r := gin.New()
	r.GET("/api/guilds/:guild_id/data", func(c *gin.Context) {
		got = GuildIDFromRequest(c)
		c.Status(200)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/guilds/abc/data", nil))
	if got != "" {
		t.Fatalf("expected empty guild id, got %q", got)
	}
}

func TestGuildIDFromRequest_QueryFallback(t *testing.T) {
	gin.SetMode(gin.TestMode)

	var got string
	r := gin.New()
	r.GET("/api/messages", func(c *gin.Context) {
		got = GuildIDFromRequest(c)
		c.Status(200)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/messages?guild_id=456", nil))
	if got != "456" {
		t.Fatalf("expected guild id 456, got %q", got)
	}
}
