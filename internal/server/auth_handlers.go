package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/crypgo-dev/crypgo-web/internal/api"
	"github.com/crypgo-dev/crypgo-web/internal/forms"
	"github.com/crypgo-dev/crypgo-web/internal/routes"
	"github.com/crypgo-dev/crypgo-web/internal/session"
)

// bindForm decodes the JSON body into form and validates it
func (s *Server) bindForm(c *gin.Context, form any) bool {
	if err := c.ShouldBindJSON(form); err != nil {
		e := api.NewValidationError("Invalid request body")
		e.Err = err
		s.respondWithError(c, e)
		return false
	}
	if err := s.validator.Validate(form); err != nil {
		s.respondWithError(c, err)
		return false
	}
	return true
}

// requestOTP handles POST /session/otp/request
func (s *Server) requestOTP(c *gin.Context) {
	var form forms.OTPRequest
	if !s.bindForm(c, &form) {
		return
	}

	sc := s.newScope(c)
	user := s.userSession(sc)
	res, err := user.RequestOTP(c.Request.Context(), form.Phone)
	if err != nil {
		s.respondWithError(c, err)
		return
	}

	s.requestLogger(c).Info().Str("phone", forms.MaskPhone(form.Phone)).Msg("OTP requested")
	c.JSON(http.StatusOK, res)
}

// verifyOTP handles POST /session/otp/verify. The redirect query parameter
// captured by the gatekeeper decides where the visitor lands.
func (s *Server) verifyOTP(c *gin.Context) {
	var form forms.OTPVerify
	if !s.bindForm(c, &form) {
		return
	}

	ctx := c.Request.Context()
	sc := s.newScope(c)
	user := s.userSession(sc)
	user.Sync(ctx, routes.LoginPath)

	res, err := user.VerifyOTP(ctx, form.Input())
	if err != nil {
		if session.ShouldRestartPhoneStep(err) {
			c.JSON(api.StatusOf(err), gin.H{"error": api.Message(err), "restartPhoneStep": true})
			return
		}
		s.respondWithError(c, err)
		return
	}

	s.relayCookies(c, sc)
	if _, ok := sc.client.Cookie(s.config.Cookies.User); !ok && res.Token != "" {
		s.setSessionCookie(c, s.config.Cookies.User, res.Token)
	}

	redirect := routes.DefaultLandingPath
	if user.CompleteLogin(c.Request.URL.Query()) {
		if nav, ok := navigation(sc); ok {
			redirect = nav.Target
		}
	}

	s.requestLogger(c).Info().Str("phone", forms.MaskPhone(form.Phone)).Msg("OTP verified")
	c.JSON(http.StatusOK, gin.H{
		"user":     res.User,
		"settings": res.Settings,
		"redirect": redirect,
	})
}

// logout handles POST /session/logout. The cookie is always expired.
func (s *Server) logout(c *gin.Context) {
	sc := s.newScope(c)
	user := s.userSession(sc)
	if err := user.Logout(c.Request.Context()); err != nil {
		s.requestLogger(c).Warn().Err(err).Msg("Backend logout failed")
	}
	s.clearSessionCookie(c, s.config.Cookies.User)

	redirect := routes.LoginPath
	if nav, ok := navigation(sc); ok {
		redirect = nav.Target
	}
	c.JSON(http.StatusOK, gin.H{"redirect": redirect})
}

// me handles GET /session/me. Anonymous visitors get the public settings.
func (s *Server) me(c *gin.Context) {
	sc := s.newScope(c)
	user := s.userSession(sc)
	if _, err := user.FetchProfile(c.Request.Context()); err != nil {
		s.respondWithError(c, err)
		return
	}

	state := user.Snapshot()
	if !state.IsAuthenticated {
		if _, had := sc.incoming[s.config.Cookies.User]; had {
			s.clearSessionCookie(c, s.config.Cookies.User)
		}
	} else {
		s.relayCookies(c, sc)
	}
	c.JSON(http.StatusOK, state)
}

// publicSettings handles GET /session/settings
func (s *Server) publicSettings(c *gin.Context) {
	settings, err := s.settings.PublicSettings(c.Request.Context())
	if err != nil {
		s.respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"settings": settings})
}

// redeemReferralRewards handles POST /session/referrals/redeem
func (s *Server) redeemReferralRewards(c *gin.Context) {
	sc := s.newScope(c)
	user := s.userSession(sc)
	res, err := user.RedeemReferralRewards(c.Request.Context())
	if err != nil {
		s.respondWithError(c, err)
		return
	}
	s.relayCookies(c, sc)
	c.JSON(http.StatusOK, res)
}

// addWallet handles POST /session/wallets
func (s *Server) addWallet(c *gin.Context) {
	var form forms.WalletAdd
	if !s.bindForm(c, &form) {
		return
	}

	sc := s.newScope(c)
	wallet, err := sc.client.AddWallet(c.Request.Context(), form.Input())
	if err != nil {
		s.respondWithError(c, err)
		return
	}
	s.relayCookies(c, sc)
	c.JSON(http.StatusCreated, gin.H{"wallet": wallet})
}

// deleteWallet handles DELETE /session/wallets/:id
func (s *Server) deleteWallet(c *gin.Context) {
	sc := s.newScope(c)
	if err := sc.client.DeleteWallet(c.Request.Context(), c.Param("id")); err != nil {
		s.respondWithError(c, err)
		return
	}
	s.relayCookies(c, sc)
	c.Status(http.StatusNoContent)
}

// createDeposit handles POST /session/deposits
func (s *Server) createDeposit(c *gin.Context) {
	var form forms.DepositCreate
	if !s.bindForm(c, &form) {
		return
	}

	sc := s.newScope(c)
	deposit, err := sc.client.CreateDeposit(c.Request.Context(), form.Input())
	if err != nil {
		s.respondWithError(c, err)
		return
	}
	s.relayCookies(c, sc)
	c.JSON(http.StatusCreated, gin.H{"deposit": deposit})
}

// createWithdrawal handles POST /session/withdrawals
func (s *Server) createWithdrawal(c *gin.Context) {
	var form forms.WithdrawalCreate
	if !s.bindForm(c, &form) {
		return
	}

	sc := s.newScope(c)
	withdrawal, err := sc.client.CreateWithdrawal(c.Request.Context(), form.Input())
	if err != nil {
		s.respondWithError(c, err)
		return
	}
	s.relayCookies(c, sc)

	s.requestLogger(c).Info().Str("withdrawal_id", withdrawal.ID).Msg("Withdrawal requested")
	c.JSON(http.StatusCreated, gin.H{"withdrawal": withdrawal})
}
