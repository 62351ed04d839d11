package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/crypgo-dev/crypgo-web/internal/api"
	"github.com/crypgo-dev/crypgo-web/internal/session"
)

// scope is the per-request view of the visitor: a backend client carrying
// the visitor's cookies and the navigator recording what the session asks for.
type scope struct {
	client   *api.Client
	nav      *session.Recorder
	incoming map[string]string
}

// newScope seeds a backend client with the session cookies of the request
func (s *Server) newScope(c *gin.Context) *scope {
	sc := &scope{
		nav:      session.NewRecorder(),
		incoming: make(map[string]string),
	}

	var cookies []*http.Cookie
	for _, name := range s.sessionCookies() {
		if cookie, err := c.Request.Cookie(name); err == nil && cookie.Value != "" {
			sc.incoming[name] = cookie.Value
			cookies = append(cookies, cookie)
		}
	}
	sc.client = s.api.WithCookies(cookies...)
	return sc
}

func (s *Server) userSession(sc *scope) *session.User {
	return session.NewUser(sc.client, s.settings, sc.nav, s.classifier, s.logger)
}

func (s *Server) adminSession(sc *scope) *session.Admin {
	return session.NewAdmin(sc.client, sc.nav, s.classifier, s.logger)
}

func (s *Server) sessionCookies() []string {
	return []string{s.config.Cookies.User, s.config.Cookies.Admin}
}

// relayCookies re-issues session cookies the backend set or cleared during
// the request on the front-end origin, where the gatekeeper can see them.
func (s *Server) relayCookies(c *gin.Context, sc *scope) {
	for _, name := range s.sessionCookies() {
		value, ok := sc.client.Cookie(name)
		before, had := sc.incoming[name]
		switch {
		case ok && (!had || value != before):
			s.setSessionCookie(c, name, value)
		case !ok && had:
			s.clearSessionCookie(c, name)
		}
	}
}

func (s *Server) setSessionCookie(c *gin.Context, name, value string) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(s.config.Cookies.MaxAge.Seconds()),
		HttpOnly: true,
		Secure:   s.config.Server.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Server) clearSessionCookie(c *gin.Context, name string) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.config.Server.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

// navigation returns the target the session asked for, if any
func navigation(sc *scope) (session.Navigation, bool) {
	return sc.nav.Last()
}
