// Package server is the front-end HTTP server. It gates every page with the
// cookie gatekeeper, renders the page shell with the visitor's session and
// relays session operations to the backend.
package server

import (
	"context"
	"fmt"
	"html/template"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/crypgo-dev/crypgo-web/internal/api"
	"github.com/crypgo-dev/crypgo-web/internal/config"
	"github.com/crypgo-dev/crypgo-web/internal/forms"
	"github.com/crypgo-dev/crypgo-web/internal/gatekeeper"
	"github.com/crypgo-dev/crypgo-web/internal/poller"
	"github.com/crypgo-dev/crypgo-web/internal/routes"
	"github.com/crypgo-dev/crypgo-web/internal/settingscache"
	"github.com/crypgo-dev/crypgo-web/internal/sysinfo"
)

// Server represents the HTTP server
type Server struct {
	router       *gin.Engine
	config       *config.Config
	logger       zerolog.Logger
	api          *api.Client
	classifier   *routes.Classifier
	gatekeeper   *gatekeeper.Gatekeeper
	settings     *settingscache.Cache
	refresher    *settingscache.Refresher
	redisStore   *settingscache.RedisStore
	validator    *forms.Validator
	pages        *template.Template
	pollInterval time.Duration
	version      string
	startedAt    time.Time
}

// New creates a new server instance
func New(cfg *config.Config, zlog zerolog.Logger, version string) (*Server, error) {
	// Route table, optionally overridden from YAML
	table := routes.DefaultTable()
	if cfg.Routes.TableFile != "" {
		loaded, err := routes.LoadTable(cfg.Routes.TableFile)
		if err != nil {
			return nil, err
		}
		table = loaded
		zlog.Info().Str("file", cfg.Routes.TableFile).Msg("Loaded route table")
	}
	classifier, err := routes.NewClassifier(table)
	if err != nil {
		return nil, err
	}

	client := api.New(cfg.Backend.BaseURL(), cfg.Backend.Timeout, zlog)

	// Public settings cache: Redis when configured, in process otherwise
	var store settingscache.Store = settingscache.NewMemoryStore()
	var redisStore *settingscache.RedisStore
	if cfg.Redis.Address != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		redisStore, err = settingscache.NewRedisStore(ctx, cfg.Redis.Address, cfg.Redis.Password, cfg.Redis.DB)
		cancel()
		if err != nil {
			zlog.Warn().Err(err).Msg("Redis unavailable - caching settings in memory")
		} else {
			store = redisStore
		}
	}
	cache := settingscache.New(client, store, cfg.Settings.TTL, zlog)

	refresher, err := settingscache.NewRefresher(cache, cfg.Settings.Schedule, zlog)
	if err != nil {
		return nil, err
	}

	pages, err := parsePages()
	if err != nil {
		return nil, fmt.Errorf("failed to parse page templates: %w", err)
	}

	server := &Server{
		config:       cfg,
		logger:       zlog,
		api:          client,
		classifier:   classifier,
		gatekeeper:   gatekeeper.New(classifier, cfg.Cookies.User, cfg.Cookies.Admin, zlog),
		settings:     cache,
		refresher:    refresher,
		redisStore:   redisStore,
		validator:    forms.New(),
		pages:        pages,
		pollInterval: poller.DefaultInterval,
		version:      version,
		startedAt:    time.Now(),
	}

	// Setup router
	server.setupRouter()

	return server, nil
}

// setupRouter configures the Gin router with routes and middleware
func (s *Server) setupRouter() {
	if s.config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	s.router = gin.New()
	s.router.SetHTMLTemplate(s.pages)

	// Add middleware
	s.router.Use(gin.Recovery())
	s.router.Use(requestIDMiddleware())
	s.router.Use(s.loggingMiddleware())

	// CORS middleware, only when cross-origin callers are configured
	if len(s.config.Server.AllowedOrigins) > 0 {
		s.router.Use(cors.New(cors.Config{
			AllowOrigins:     s.config.Server.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "HEAD", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type", requestIDHeader},
			ExposeHeaders:    []string{"Content-Length", requestIDHeader},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	} else {
		s.logger.Info().Msg("No CORS origins configured - cross-origin requests are not allowed")
	}

	// Every request is classified and gated before anything is rendered
	s.router.Use(s.gatekeeper.Middleware())

	// Health check endpoint
	s.router.GET("/health", s.healthCheck)

	// APK download
	s.router.GET("/api/download/apk", s.downloadAPK)

	// Public pages
	s.router.GET("/", s.userPage("home"))
	s.router.GET("/login", s.loginPage)
	s.router.GET("/support", s.userPage("support"))
	s.router.GET("/downloads", s.userPage("downloads"))
	s.router.GET("/not-found", s.userPage("not-found"))

	// Protected pages
	s.router.GET("/exchange", s.userPage("exchange"))
	s.router.GET("/exchange/*page", s.userPage("exchange"))
	s.router.GET("/me", s.userPage("me"))
	s.router.GET("/me/*page", s.userPage("me"))

	// Admin pages
	s.router.GET("/admin", s.adminPage("admin-dashboard"))
	s.router.GET("/admin/login", s.adminPage("admin-login"))
	s.router.GET("/admin/users", s.adminPage("admin-users"))

	// Session relay for the user pages
	sess := s.router.Group("/session")
	{
		sess.POST("/otp/request", s.requestOTP)
		sess.POST("/otp/verify", s.verifyOTP)
		sess.POST("/logout", s.logout)
		sess.GET("/me", s.me)
		sess.GET("/settings", s.publicSettings)
		sess.POST("/referrals/redeem", s.redeemReferralRewards)
		sess.POST("/wallets", s.addWallet)
		sess.DELETE("/wallets/:id", s.deleteWallet)
		sess.POST("/deposits", s.createDeposit)
		sess.POST("/withdrawals", s.createWithdrawal)
		sess.GET("/withdrawals/:id/stream", s.streamWithdrawal)
	}

	// Session relay for the admin console
	admin := s.router.Group("/session/admin")
	{
		admin.POST("/login", s.adminLogin)
		admin.POST("/logout", s.adminLogout)
		admin.GET("/me", s.adminMe)
		admin.GET("/metrics", s.adminMetrics)
		admin.GET("/settings", s.adminSettings)
		admin.PUT("/settings", s.updateAdminSettings)
		admin.GET("/users", s.adminUsers)
		admin.GET("/users/:id", s.adminUser)
		admin.PUT("/users/:id/status", s.updateUserStatus)
		admin.PUT("/users/:id/balance", s.updateUserBalance)
		admin.GET("/users/:id/transactions", s.adminUserTransactions)
		admin.GET("/transactions", s.adminTransactions)
		admin.POST("/withdrawals/:id/approve", s.approveWithdrawal)
		admin.POST("/withdrawals/:id/reject", s.rejectWithdrawal)
		admin.POST("/sell-orders/:id/complete", s.completeSellOrder)
		admin.POST("/sell-orders/:id/reject", s.rejectSellOrder)
	}

	// Static assets and unknown pages
	s.router.NoRoute(s.fallback)
}

func (s *Server) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "online",
		"timestamp": time.Now().UTC(),
		"service":   "crypgo-web",
		"version":   s.version,
		"system":    sysinfo.GetMetrics(s.startedAt),
	})
}

// Handler returns the HTTP handler, for tests and embedding
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the HTTP server and blocks until SIGINT or SIGTERM
func (s *Server) Start() error {
	addr := ":" + s.config.Server.Port

	// Setup signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       120 * time.Second,
		// No WriteTimeout: withdrawal status streams stay open
	}

	s.refresher.Start()

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", addr).Str("backend", s.config.Backend.URL).Msg("Starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	// Wait for shutdown signal
	select {
	case <-sigChan:
		s.logger.Info().Msg("Received shutdown signal, shutting down gracefully...")
	case err := <-errChan:
		s.logger.Error().Err(err).Msg("HTTP server error")
		s.refresher.Stop()
		return err
	}

	s.refresher.Stop()

	// Shutdown HTTP server with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), s.config.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.logger.Error().Err(err).Msg("Error shutting down HTTP server")
		return err
	}

	if s.redisStore != nil {
		if err := s.redisStore.Close(); err != nil {
			s.logger.Warn().Err(err).Msg("Error closing Redis connection")
		}
	}

	s.logger.Info().Msg("Server shutdown complete")
	return nil
}
