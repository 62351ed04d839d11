package devbackend

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/crypgo-dev/crypgo-web/internal/auth"
	"github.com/crypgo-dev/crypgo-web/internal/models"
)

var (
	ErrMissingCookie = errors.New("missing session cookie")
	ErrUserNotFound  = errors.New("user not found")
	ErrAdminNotFound = errors.New("admin not found")
	ErrBlocked       = errors.New("account blocked")
)

const sessionKey = "session"

func setSession(c *gin.Context, sessionData *auth.SessionData) {
	c.Set(sessionKey, sessionData)
}

// GetSessionData returns the session established by the auth middleware
func GetSessionData(c *gin.Context) (*auth.SessionData, bool) {
	session, exists := c.Get(sessionKey)
	if !exists {
		return nil, false
	}

	sessionData, ok := session.(*auth.SessionData)
	return sessionData, ok
}

func respondWithError(c *gin.Context, log zerolog.Logger, statusCode int, err error, message string) {
	log.Warn().Err(err).Int("status", statusCode).Msg(message)
	c.JSON(statusCode, gin.H{"error": message})
	c.Abort()
}

// validateCookie reads the session cookie name and validates its token for role
func (s *Server) validateCookie(c *gin.Context, name, role string) (*auth.Claims, bool) {
	token, err := c.Cookie(name)
	if err != nil || token == "" {
		respondWithError(c, s.logger, http.StatusUnauthorized, ErrMissingCookie, "Not authenticated")
		return nil, false
	}

	claims, err := s.tokens.ValidateToken(token, role)
	if err != nil {
		respondWithError(c, s.logger, http.StatusUnauthorized, err, "Invalid or expired session")
		return nil, false
	}
	return claims, true
}

// userAuth requires a valid user session cookie naming an existing account
func (s *Server) userAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := s.validateCookie(c, s.config.Cookies.User, auth.RoleUser)
		if !ok {
			return
		}

		var user models.User
		if err := models.FindByID(s.db, claims.Subject, &user); err != nil {
			respondWithError(c, s.logger, http.StatusUnauthorized, ErrUserNotFound, "User not found")
			return
		}
		if user.Status == models.StatusBlocked {
			respondWithError(c, s.logger, http.StatusForbidden, ErrBlocked, "Account blocked")
			return
		}

		setSession(c, &auth.SessionData{SubjectID: user.ID, Role: auth.RoleUser})
		c.Next()
	}
}

// adminAuth requires a valid admin session cookie naming an existing admin
func (s *Server) adminAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := s.validateCookie(c, s.config.Cookies.Admin, auth.RoleAdmin)
		if !ok {
			return
		}

		var admin models.Admin
		if err := models.FindByID(s.db, claims.Subject, &admin); err != nil {
			respondWithError(c, s.logger, http.StatusUnauthorized, ErrAdminNotFound, "Admin not found")
			return
		}

		setSession(c, &auth.SessionData{SubjectID: admin.ID, Role: auth.RoleAdmin})
		c.Next()
	}
}

// subjectID returns the ID of the authenticated user or admin
func subjectID(c *gin.Context) string {
	sessionData, ok := GetSessionData(c)
	if !ok {
		return ""
	}
	return sessionData.SubjectID
}

func (s *Server) setSessionCookie(c *gin.Context, name, token string) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     name,
		Value:    token,
		Path:     "/",
		MaxAge:   int(s.tokens.TTL().Seconds()),
		HttpOnly: true,
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
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		s.logger.Debug().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("duration", time.Since(start)).
			Msg("Request")
	}
}
