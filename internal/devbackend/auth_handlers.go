package devbackend

import (
	"errors"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/crypgo-dev/crypgo-web/internal/auth"
	"github.com/crypgo-dev/crypgo-web/internal/models"
)

// OTPRequest represents an OTP request
type OTPRequest struct {
	Phone string `json:"phone" binding:"required,len=10,numeric"`
}

// OTPVerifyRequest represents an OTP verification
type OTPVerifyRequest struct {
	Phone        string `json:"phone" binding:"required,len=10,numeric"`
	OTP          string `json:"otp" binding:"required"`
	Name         string `json:"name"`
	ReferralCode string `json:"referralCode"`
}

func (s *Server) requestOTP(c *gin.Context) {
	var req OTPRequest
	if !s.bindJSON(c, &req) {
		return
	}

	now := s.now()
	var existing models.OTP
	err := s.db.Where("phone = ?", req.Phone).First(&existing).Error
	if err == nil && now.Sub(existing.RequestedAt) < otpCooldown {
		respondWithError(c, s.logger, http.StatusTooManyRequests, errors.New("otp cooldown"),
			"Please wait before requesting another OTP")
		return
	}
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		s.fail(c, err, "")
		return
	}

	code, err := randomDigits(6)
	if err != nil {
		s.fail(c, err, "")
		return
	}

	otp := models.OTP{
		Phone:       req.Phone,
		Code:        code,
		ExpiresAt:   now.Add(otpTTL),
		RequestedAt: now,
	}
	if err := s.db.Save(&otp).Error; err != nil {
		s.fail(c, err, "")
		return
	}

	var users int64
	if err := s.db.Model(&models.User{}).Where("phone = ?", req.Phone).Count(&users).Error; err != nil {
		s.fail(c, err, "")
		return
	}

	resp := gin.H{
		"message":      "OTP sent",
		"expiresAt":    otp.ExpiresAt.UnixMilli(),
		"requiresName": users == 0,
	}
	if !s.config.IsProduction() {
		resp["devOtp"] = code
	}

	s.logger.Info().Str("phone_suffix", req.Phone[len(req.Phone)-4:]).Msg("OTP issued")
	c.JSON(http.StatusOK, resp)
}

func (s *Server) verifyOTP(c *gin.Context) {
	var req OTPVerifyRequest
	if !s.bindJSON(c, &req) {
		return
	}

	if err := s.checkOTP(req.Phone, strings.TrimSpace(req.OTP)); err != nil {
		s.fail(c, err, "")
		return
	}

	var userID string
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var user models.User
		err := tx.Where("phone = ?", req.Phone).First(&user).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			created, err := s.register(tx, req)
			if err != nil {
				return err
			}
			user = *created
		case err != nil:
			return err
		case user.Status == models.StatusBlocked:
			return refuse(http.StatusForbidden, "Account blocked")
		}

		now := s.now()
		userID = user.ID
		if err := tx.Model(&models.User{}).Where("id = ?", user.ID).Update("last_login_at", &now).Error; err != nil {
			return err
		}
		return tx.Where("phone = ?", req.Phone).Delete(&models.OTP{}).Error
	})
	if err != nil {
		s.fail(c, err, "")
		return
	}

	token, err := s.tokens.GenerateToken(userID, auth.RoleUser)
	if err != nil {
		s.fail(c, err, "")
		return
	}

	profile, err := s.loadProfile(userID)
	if err != nil {
		s.fail(c, err, "User not found")
		return
	}
	settings, err := s.loadSettings(s.db)
	if err != nil {
		s.fail(c, err, "")
		return
	}

	s.setSessionCookie(c, s.config.Cookies.User, token)
	s.logger.Info().Str("user_id", userID).Msg("User logged in")
	c.JSON(http.StatusOK, gin.H{
		"token":    token,
		"user":     profile,
		"settings": settingsView(settings),
	})
}

// checkOTP checks code against the pending OTP of phone. Wrong codes count
// towards the attempt limit; the OTP is deleted once the login commits.
func (s *Server) checkOTP(phone, code string) error {
	var otp models.OTP
	if err := s.db.Where("phone = ?", phone).First(&otp).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return refuse(http.StatusBadRequest, "OTP not requested")
		}
		return err
	}

	if s.now().After(otp.ExpiresAt) || otp.Attempts >= otpMaxAttempts {
		if err := s.db.Delete(&otp).Error; err != nil {
			return err
		}
		return refuse(http.StatusBadRequest, "OTP expired, please request a new one")
	}

	if otp.Code != code {
		if err := s.db.Model(&otp).Update("attempts", gorm.Expr("attempts + 1")).Error; err != nil {
			return err
		}
		return refuse(http.StatusBadRequest, "Invalid OTP")
	}
	return nil
}

// register creates the account of a first-time visitor
func (s *Server) register(tx *gorm.DB, req OTPVerifyRequest) (*models.User, error) {
	name := strings.TrimSpace(req.Name)
	if n := utf8.RuneCountInString(name); n < 2 || n > 50 {
		return nil, refuse(http.StatusUnprocessableEntity, "Name is required for new accounts")
	}

	var inviter *models.User
	if code := strings.ToUpper(strings.TrimSpace(req.ReferralCode)); code != "" {
		var found models.User
		if err := tx.Where("invite_code = ?", code).First(&found).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, refuse(http.StatusBadRequest, "Invalid referral code")
			}
			return nil, err
		}
		inviter = &found
	}

	code, err := newInviteCode()
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Phone:      req.Phone,
		Name:       name,
		Role:       auth.RoleUser,
		Currency:   "USDT",
		InviteCode: code,
		Status:     models.StatusActive,
	}
	if inviter != nil {
		user.ReferredByID = &inviter.ID
	}
	if err := tx.Create(user).Error; err != nil {
		return nil, err
	}

	if inviter != nil {
		invite := &models.Invite{
			InviterID: inviter.ID,
			InviteeID: user.ID,
			Status:    models.OrderPending,
		}
		if err := tx.Create(invite).Error; err != nil {
			return nil, err
		}
	}

	s.logger.Info().Str("user_id", user.ID).Bool("referred", inviter != nil).Msg("User registered")
	return user, nil
}

func (s *Server) me(c *gin.Context) {
	profile, err := s.loadProfile(subjectID(c))
	if err != nil {
		s.fail(c, err, "User not found")
		return
	}
	settings, err := s.loadSettings(s.db)
	if err != nil {
		s.fail(c, err, "")
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": profile, "settings": settingsView(settings)})
}

func (s *Server) logout(c *gin.Context) {
	s.clearSessionCookie(c, s.config.Cookies.User)
	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}

func (s *Server) publicSettings(c *gin.Context) {
	settings, err := s.loadSettings(s.db)
	if err != nil {
		s.fail(c, err, "")
		return
	}
	c.JSON(http.StatusOK, gin.H{"settings": settingsView(settings)})
}
