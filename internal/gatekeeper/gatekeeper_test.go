package gatekeeper

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crypgo-dev/crypgo-web/internal/routes"
)

const (
	userCookie  = "crypgo_token"
	adminCookie = "crypgo_admin_token"
)

func newTestGatekeeper() *Gatekeeper {
	return New(routes.Default(), userCookie, adminCookie, zerolog.Nop())
}

func TestDecide(t *testing.T) {
	g := newTestGatekeeper()

	tests := []struct {
		name       string
		req        Request
		wantAction Action
		wantTarget string
	}{
		{
			name:       "protected without cookie redirects to login",
			req:        Request{Path: "/exchange/deposit"},
			wantAction: Redirect,
			wantTarget: "/login?redirect=%2Fexchange%2Fdeposit",
		},
		{
			name:       "protected keeps original query",
			req:        Request{Path: "/exchange/withdraw/pending", RawQuery: "withdrawalId=w1"},
			wantAction: Redirect,
			wantTarget: "/login?redirect=%2Fexchange%2Fwithdraw%2Fpending%3FwithdrawalId%3Dw1",
		},
		{
			name:       "protected with cookie passes",
			req:        Request{Path: "/me/statements", HasUserSession: true},
			wantAction: Pass,
		},
		{
			name:       "admin cookie does not open user area",
			req:        Request{Path: "/me", HasAdminSession: true},
			wantAction: Redirect,
			wantTarget: "/login?redirect=%2Fme",
		},
		{
			name:       "admin without cookie redirects to admin login",
			req:        Request{Path: "/admin/users"},
			wantAction: Redirect,
			wantTarget: "/admin/login?redirect=%2Fadmin%2Fusers",
		},
		{
			name:       "user cookie does not open admin area",
			req:        Request{Path: "/admin", HasUserSession: true},
			wantAction: Redirect,
			wantTarget: "/admin/login?redirect=%2Fadmin",
		},
		{
			name:       "admin with cookie passes",
			req:        Request{Path: "/admin/users", HasAdminSession: true},
			wantAction: Pass,
		},
		{
			name:       "admin login without cookie passes",
			req:        Request{Path: "/admin/login"},
			wantAction: Pass,
		},
		{
			name:       "admin login with cookie follows redirect",
			req:        Request{Path: "/admin/login", RawQuery: "redirect=/admin/users", HasAdminSession: true},
			wantAction: Redirect,
			wantTarget: "/admin/users",
		},
		{
			name:       "admin login with cookie defaults to admin home",
			req:        Request{Path: "/admin/login", HasAdminSession: true},
			wantAction: Redirect,
			wantTarget: "/admin",
		},
		{
			name:       "login with cookie follows redirect",
			req:        Request{Path: "/login", RawQuery: "redirect=%2Fme%2Freferrals", HasUserSession: true},
			wantAction: Redirect,
			wantTarget: "/me/referrals",
		},
		{
			name:       "login with cookie defaults to landing",
			req:        Request{Path: "/login", HasUserSession: true},
			wantAction: Redirect,
			wantTarget: "/exchange",
		},
		{
			name:       "login with cookie ignores offsite redirect",
			req:        Request{Path: "/login", RawQuery: "redirect=https://evil.example", HasUserSession: true},
			wantAction: Redirect,
			wantTarget: "/exchange",
		},
		{
			name:       "login without cookie passes",
			req:        Request{Path: "/login", RawQuery: "redirect=/exchange"},
			wantAction: Pass,
		},
		{
			name:       "support passes unconditionally",
			req:        Request{Path: "/support"},
			wantAction: Pass,
		},
		{
			name:       "unlisted marketing page passes",
			req:        Request{Path: "/pricing"},
			wantAction: Pass,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := g.Decide(tt.req)
			assert.Equal(t, tt.wantAction, got.Action)
			assert.Equal(t, tt.wantTarget, got.Target)
		})
	}
}

func TestDecide_AssetsAlwaysPass(t *testing.T) {
	g := newTestGatekeeper()
	paths := []string{"/exchange/qr.png", "/admin/logo.svg", "/me/report.pdf", "/crypgox.apk", "/fonts/a.woff2"}

	for _, path := range paths {
		for _, user := range []bool{false, true} {
			for _, admin := range []bool{false, true} {
				got := g.Decide(Request{Path: path, HasUserSession: user, HasAdminSession: admin})
				assert.Equal(t, Pass, got.Action, path)
				assert.Equal(t, routes.Asset, got.Category, path)
			}
		}
	}
}

func TestMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	g := newTestGatekeeper()

	router := gin.New()
	router.Use(g.Middleware())
	router.GET("/*path", func(c *gin.Context) {
		category, ok := GetCategory(c)
		require.True(t, ok)
		c.String(http.StatusOK, category.String())
	})

	t.Run("redirects without cookie", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/exchange/deposit", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusTemporaryRedirect, w.Code)
		assert.Equal(t, "/login?redirect=%2Fexchange%2Fdeposit", w.Header().Get("Location"))
	})

	t.Run("passes with cookie", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/exchange/deposit", nil)
		req.AddCookie(&http.Cookie{Name: userCookie, Value: "opaque"})
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "protected", w.Body.String())
	})

	t.Run("empty cookie counts as absent", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/admin", nil)
		req.AddCookie(&http.Cookie{Name: adminCookie, Value: ""})
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusTemporaryRedirect, w.Code)
		assert.Equal(t, "/admin/login?redirect=%2Fadmin", w.Header().Get("Location"))
	})
}
