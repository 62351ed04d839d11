package server

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/crypgo-dev/crypgo-web/internal/api"
	"github.com/crypgo-dev/crypgo-web/internal/gatekeeper"
)

const (
	requestIDHeader = "X-Request-ID"
	requestIDKey    = "request_id"
)

// requestIDMiddleware keeps an incoming request ID or assigns a new one
func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" || len(id) > 64 {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

func requestID(c *gin.Context) string {
	return c.GetString(requestIDKey)
}

// loggingMiddleware creates a custom logging middleware using zerolog
func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start)

		event := s.logger.Info()
		if c.Writer.Status() >= 500 {
			event = s.logger.Error()
		}
		if category, ok := gatekeeper.GetCategory(c); ok {
			event = event.Str("category", category.String())
		}
		event.
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("duration", duration).
			Str("client_ip", c.ClientIP()).
			Str("request_id", requestID(c)).
			Msg("HTTP request")
	}
}

// requestLogger returns the server logger tagged with the request ID
func (s *Server) requestLogger(c *gin.Context) *zerolog.Logger {
	logger := s.logger.With().Str("request_id", requestID(c)).Logger()
	return &logger
}

// respondWithError relays a normalized backend or validation error
func (s *Server) respondWithError(c *gin.Context, err error) {
	status := api.StatusOf(err)
	message := api.Message(err)

	log := s.requestLogger(c)
	event := log.Warn()
	if status >= 500 {
		event = log.Error()
	}
	event.Err(err).Int("status", status).Str("kind", api.KindOf(err).String()).Msg(message)

	c.JSON(status, gin.H{"error": message})
	c.Abort()
}
