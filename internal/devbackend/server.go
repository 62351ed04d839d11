// Package devbackend is a local stand-in for the exchange backend. It serves
// the API contract the front end talks to, backed by SQLite.
package devbackend

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/crypgo-dev/crypgo-web/internal/auth"
	"github.com/crypgo-dev/crypgo-web/internal/config"
	"github.com/crypgo-dev/crypgo-web/internal/models"
)

const (
	otpTTL          = 2 * time.Minute
	otpCooldown     = 30 * time.Second
	otpMaxAttempts  = 5
	withdrawalFee   = 1.0 // percent
	payoutThreshold = 100.0
	settingsID      = 1
)

// Server represents the development backend
type Server struct {
	router *gin.Engine
	db     *gorm.DB
	config *config.Config
	tokens *auth.Tokens
	logger zerolog.Logger
	now    func() time.Time
}

// New creates the backend over an opened database and seeds it
func New(cfg *config.Config, db *gorm.DB, zlog zerolog.Logger) (*Server, error) {
	ttl := cfg.Cookies.MaxAge
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	tokens, err := auth.NewTokens(cfg.DevBackend.JWTSecret, ttl)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tokens: %w", err)
	}

	s := &Server{
		db:     db,
		config: cfg,
		tokens: tokens,
		logger: zlog.With().Str("component", "devbackend").Logger(),
		now:    time.Now,
	}

	if err := s.seed(); err != nil {
		return nil, err
	}

	s.setupRouter()
	return s, nil
}

// seed creates the admin account and the settings row on first start
func (s *Server) seed() error {
	var admins int64
	if err := s.db.Model(&models.Admin{}).Where("username = ?", s.config.DevBackend.AdminUsername).Count(&admins).Error; err != nil {
		return fmt.Errorf("failed to count admins: %w", err)
	}
	if admins == 0 {
		hash, err := auth.HashPassword(s.config.DevBackend.AdminPassword)
		if err != nil {
			return fmt.Errorf("failed to hash admin password: %w", err)
		}
		admin := &models.Admin{
			Username:     s.config.DevBackend.AdminUsername,
			PasswordHash: hash,
			Role:         auth.RoleAdmin,
		}
		if err := s.db.Create(admin).Error; err != nil {
			return fmt.Errorf("failed to create admin: %w", err)
		}
		s.logger.Info().Str("username", admin.Username).Msg("Seeded admin account")
	}

	var settings models.Settings
	err := s.db.Where("id = ?", settingsID).First(&settings).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		settings = models.Settings{
			ID:       settingsID,
			BaseRate: 88.5,
			PricingTiers: []models.PricingTier{
				{Range: "0 - 1,000 USDT", Markup: "+0.00"},
				{Range: "1,000 - 5,000 USDT", Markup: "+0.50"},
				{Range: "5,000+ USDT", Markup: "+1.00"},
			},
			DepositAddresses: []string{"TQn9Y2khEsLJW1ChVWFMSMeRDow5KcbLSE"},
			InviteCommission: 5,
		}
		if err := s.db.Create(&settings).Error; err != nil {
			return fmt.Errorf("failed to create settings: %w", err)
		}
		s.logger.Info().Msg("Seeded platform settings")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}
	return nil
}

func (s *Server) setupRouter() {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(s.loggingMiddleware())

	base := router.Group("/api")
	base.GET("/health", s.healthCheck)
	base.GET("/public/settings", s.publicSettings)

	authGroup := base.Group("/auth")
	authGroup.POST("/otp/request", s.requestOTP)
	authGroup.POST("/otp/verify", s.verifyOTP)
	authGroup.POST("/logout", s.logout)
	authGroup.GET("/me", s.userAuth(), s.me)

	user := base.Group("/user", s.userAuth())
	user.POST("/referrals/redeem", s.redeemReferralRewards)
	user.POST("/wallets", s.addWallet)
	user.DELETE("/wallets/:id", s.deleteWallet)
	user.POST("/deposits", s.createDeposit)
	user.POST("/withdrawals", s.createWithdrawal)
	user.GET("/withdrawals/:id", s.getWithdrawal)
	user.POST("/sell-orders", s.createSellOrder)

	admin := base.Group("/admin")
	admin.POST("/login", s.adminLogin)
	admin.POST("/logout", s.adminLogout)
	admin.GET("/me", s.adminAuth(), s.adminMe)

	dashboard := admin.Group("/dashboard", s.adminAuth())
	dashboard.GET("/metrics", s.metrics)
	dashboard.GET("/settings", s.adminSettings)
	dashboard.PUT("/settings", s.updateSettings)
	dashboard.GET("/users", s.listUsers)
	dashboard.GET("/users/:id", s.getUser)
	dashboard.PUT("/users/:id/status", s.updateUserStatus)
	dashboard.PUT("/users/:id/balance", s.updateUserBalance)
	dashboard.GET("/users/:id/transactions", s.userTransactions)
	dashboard.GET("/transactions", s.transactions)
	dashboard.POST("/withdrawals/:id/approve", s.approveWithdrawal)
	dashboard.POST("/withdrawals/:id/reject", s.rejectWithdrawal)
	dashboard.POST("/sell-orders/:id/complete", s.completeSellOrder)
	dashboard.POST("/sell-orders/:id/reject", s.rejectSellOrder)

	s.router = router
}

func (s *Server) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "online",
		"timestamp": s.now().UTC().Format(time.RFC3339),
		"service":   "crypgo-devbackend",
	})
}

// Handler returns the HTTP handler of the backend
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves the backend until SIGINT or SIGTERM
func (s *Server) Start() error {
	addr := ":" + s.config.DevBackend.Port

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", addr).Msg("Starting development backend")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case <-sigChan:
		s.logger.Info().Msg("Received shutdown signal, shutting down gracefully...")
	case err := <-errChan:
		s.logger.Error().Err(err).Msg("HTTP server error")
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.logger.Error().Err(err).Msg("Error shutting down HTTP server")
		return err
	}

	if sqlDB, err := s.db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			s.logger.Warn().Err(err).Msg("Error closing database")
		}
	}

	s.logger.Info().Msg("Development backend stopped")
	return nil
}
