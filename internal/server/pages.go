package server

import (
	"embed"
	"encoding/json"
	"html/template"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/crypgo-dev/crypgo-web/internal/forms"
	"github.com/crypgo-dev/crypgo-web/internal/gatekeeper"
	"github.com/crypgo-dev/crypgo-web/internal/routes"
	"github.com/crypgo-dev/crypgo-web/internal/session"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageTitles = map[string]string{
	"home":            "CrypGo | Sell USDT for INR",
	"login":           "Sign in | CrypGo",
	"support":         "Support | CrypGo",
	"downloads":       "Download the app | CrypGo",
	"not-found":       "Page not found | CrypGo",
	"exchange":        "Exchange | CrypGo",
	"me":              "My account | CrypGo",
	"admin-dashboard": "Dashboard | CrypGo Admin",
	"admin-login":     "Sign in | CrypGo Admin",
	"admin-users":     "Users | CrypGo Admin",
}

func parsePages() (*template.Template, error) {
	return template.ParseFS(templateFS, "templates/*.html")
}

type shellData struct {
	Title string
	Page  string
	State string
}

// loginState is what the login page needs besides the session
type loginState struct {
	session.AuthState
	ReferralCode string `json:"referralCode,omitempty"`
	Redirect     string `json:"redirect"`
}

// render writes the page shell with state serialized into it
func (s *Server) render(c *gin.Context, status int, page string, state any) {
	data, err := json.Marshal(state)
	if err != nil {
		s.respondWithError(c, err)
		return
	}

	title, ok := pageTitles[page]
	if !ok {
		title = "CrypGo"
	}

	c.Header("Cache-Control", "no-store")
	c.HTML(status, "shell", shellData{Title: title, Page: page, State: string(data)})
}

// renderUnavailable renders page with the session error when the backend could
// not say whether the visitor is signed in. The session cookie is kept.
func (s *Server) renderUnavailable(c *gin.Context, page string, err error, state any) {
	log := s.requestLogger(c)
	log.Warn().Err(err).Str("path", c.Request.URL.Path).Msg("Session check failed")
	s.render(c, http.StatusBadGateway, page, state)
}

// followNavigation turns a navigation recorded by a session into a redirect.
// A session sent back to a login page cannot be validated, so its cookie is
// dropped; otherwise the gatekeeper would bounce the visitor straight back.
func (s *Server) followNavigation(c *gin.Context, sc *scope) bool {
	nav, ok := navigation(sc)
	if !ok {
		return false
	}

	target := strings.SplitN(nav.Target, "?", 2)[0]
	switch target {
	case routes.LoginPath:
		if _, had := sc.incoming[s.config.Cookies.User]; had {
			s.clearSessionCookie(c, s.config.Cookies.User)
		}
	case routes.AdminLoginPath:
		if _, had := sc.incoming[s.config.Cookies.Admin]; had {
			s.clearSessionCookie(c, s.config.Cookies.Admin)
		}
	}

	c.Redirect(http.StatusFound, nav.Target)
	c.Abort()
	return true
}

// userPage renders a page of the exchange after re-validating the visitor
func (s *Server) userPage(page string) gin.HandlerFunc {
	return func(c *gin.Context) {
		sc := s.newScope(c)
		user := s.userSession(sc)
		err := user.Sync(c.Request.Context(), c.Request.URL.Path)
		s.relayCookies(c, sc)

		if err != nil {
			s.renderUnavailable(c, page, err, user.Snapshot())
			return
		}
		if s.followNavigation(c, sc) {
			return
		}

		status := http.StatusOK
		if page == "not-found" {
			status = http.StatusNotFound
		}
		s.render(c, status, page, user.Snapshot())
	}
}

// loginPage renders the OTP login. Visitors holding a session never get here.
func (s *Server) loginPage(c *gin.Context) {
	sc := s.newScope(c)
	user := s.userSession(sc)
	user.Sync(c.Request.Context(), c.Request.URL.Path)
	user.RefreshSettings(c.Request.Context())

	query := c.Request.URL.Query()
	s.render(c, http.StatusOK, "login", loginState{
		AuthState:    user.Snapshot(),
		ReferralCode: routes.NormalizeReferral(query.Get(routes.ReferralParam)),
		Redirect:     routes.PostLoginTarget(query, routes.DefaultLandingPath),
	})
}

// adminPage renders an admin console page and preloads its data
func (s *Server) adminPage(page string) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		sc := s.newScope(c)
		admin := s.adminSession(sc)
		err := admin.Sync(ctx, c.Request.URL.Path, c.Request.URL.Query())
		s.relayCookies(c, sc)

		if err != nil {
			s.renderUnavailable(c, page, err, admin.Snapshot())
			return
		}
		if s.followNavigation(c, sc) {
			return
		}

		if admin.Snapshot().IsAuthenticated {
			switch page {
			case "admin-dashboard":
				_, _ = admin.FetchMetrics(ctx)
			case "admin-users":
				var form forms.UserSearch
				if err := c.ShouldBindQuery(&form); err == nil && s.validator.Validate(&form) == nil {
					_, _ = admin.FetchUsers(ctx, form.Query())
				}
			}
		}

		s.render(c, http.StatusOK, page, admin.Snapshot())
	}
}

// fallback serves files from the public directory and the not-found page
func (s *Server) fallback(c *gin.Context) {
	if c.Request.Method == http.MethodGet || c.Request.Method == http.MethodHead {
		if file, ok := s.publicFile(c.Request.URL.Path); ok {
			if strings.EqualFold(filepath.Ext(file), ".apk") {
				c.Header("Content-Type", apkContentType)
			}
			c.File(file)
			return
		}
	}

	category, _ := gatekeeper.GetCategory(c)
	if category == routes.Asset || c.Request.Method != http.MethodGet {
		c.String(http.StatusNotFound, "File not found")
		return
	}

	s.render(c, http.StatusNotFound, "not-found", session.AuthState{})
}

// publicFile resolves path inside the public directory
func (s *Server) publicFile(path string) (string, bool) {
	if s.config.Server.PublicDir == "" {
		return "", false
	}
	file := filepath.Join(s.config.Server.PublicDir, filepath.FromSlash(filepath.Clean("/"+path)))
	info, err := os.Stat(file)
	if err != nil || info.IsDir() {
		return "", false
	}
	return file, true
}
