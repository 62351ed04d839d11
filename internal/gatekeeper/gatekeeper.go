// Package gatekeeper decides, once per incoming request and before any page is
// rendered, whether a visitor may proceed or must be redirected. Decisions rely on
// session cookie presence only; the backend remains the authority on validity.
package gatekeeper

import (
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/crypgo-dev/crypgo-web/internal/routes"
)

// CategoryKey is the gin context key holding the routes.Category of the request
const CategoryKey = "route_category"

// Action is the outcome of a gatekeeper decision
type Action int

const (
	Pass Action = iota
	Redirect
)

// Request is everything a decision depends on
type Request struct {
	Path            string
	RawQuery        string
	HasUserSession  bool
	HasAdminSession bool
}

// Decision is terminal for the request it was made for
type Decision struct {
	Action   Action
	Target   string
	Category routes.Category
}

// Gatekeeper holds the classifier and the cookie names it checks
type Gatekeeper struct {
	classifier  *routes.Classifier
	userCookie  string
	adminCookie string
	logger      zerolog.Logger
}

// New creates a gatekeeper
func New(classifier *routes.Classifier, userCookie, adminCookie string, logger zerolog.Logger) *Gatekeeper {
	return &Gatekeeper{
		classifier:  classifier,
		userCookie:  userCookie,
		adminCookie: adminCookie,
		logger:      logger.With().Str("component", "gatekeeper").Logger(),
	}
}

// Decide applies the access rules to req
func (g *Gatekeeper) Decide(req Request) Decision {
	category := g.classifier.Classify(req.Path)

	switch category {
	case routes.Asset:
		return pass(category)

	case routes.Admin, routes.AdminPublic:
		if !req.HasAdminSession && category == routes.Admin {
			original := routes.OriginalURL(req.Path, req.RawQuery)
			return redirect(category, routes.LoginURL(routes.AdminLoginPath, original))
		}
		if req.HasAdminSession && category == routes.AdminPublic {
			return redirect(category, routes.PostLoginTarget(parseQuery(req.RawQuery), routes.AdminHomePath))
		}
		return pass(category)

	case routes.Public:
		// The login page is allow-listed but still bounces visitors who already hold a session
		if req.HasUserSession && g.classifier.IsLogin(req.Path) {
			return redirect(category, routes.PostLoginTarget(parseQuery(req.RawQuery), routes.DefaultLandingPath))
		}
		return pass(category)

	default:
		if !req.HasUserSession {
			original := routes.OriginalURL(req.Path, req.RawQuery)
			return redirect(category, routes.LoginURL(routes.LoginPath, original))
		}
		return pass(category)
	}
}

// RequestFrom extracts a Request from an HTTP request
func (g *Gatekeeper) RequestFrom(r *http.Request) Request {
	return Request{
		Path:            r.URL.Path,
		RawQuery:        r.URL.RawQuery,
		HasUserSession:  hasCookie(r, g.userCookie),
		HasAdminSession: hasCookie(r, g.adminCookie),
	}
}

// Middleware runs Decide for every request and short-circuits redirects
func (g *Gatekeeper) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		decision := g.Decide(g.RequestFrom(c.Request))
		c.Set(CategoryKey, decision.Category)

		if decision.Action == Redirect {
			g.logger.Debug().
				Str("path", c.Request.URL.Path).
				Str("category", decision.Category.String()).
				Str("target", decision.Target).
				Msg("Redirecting request")
			c.Redirect(http.StatusTemporaryRedirect, decision.Target)
			c.Abort()
			return
		}

		c.Next()
	}
}

// GetCategory returns the category stored by Middleware
func GetCategory(c *gin.Context) (routes.Category, bool) {
	value, exists := c.Get(CategoryKey)
	if !exists {
		return routes.Public, false
	}
	category, ok := value.(routes.Category)
	return category, ok
}

func hasCookie(r *http.Request, name string) bool {
	cookie, err := r.Cookie(name)
	return err == nil && cookie.Value != ""
}

func parseQuery(raw string) url.Values {
	values, err := url.ParseQuery(raw)
	if err != nil {
		return url.Values{}
	}
	return values
}

func pass(category routes.Category) Decision {
	return Decision{Action: Pass, Category: category}
}

func redirect(category routes.Category, target string) Decision {
	return Decision{Action: Redirect, Target: target, Category: category}
}
