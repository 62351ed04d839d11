package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/crypgo-dev/crypgo-web/internal/api"
	"github.com/crypgo-dev/crypgo-web/internal/forms"
	"github.com/crypgo-dev/crypgo-web/internal/routes"
	"github.com/crypgo-dev/crypgo-web/internal/session"
)

// adminLogin handles POST /session/admin/login. Success is answered with a
// full page navigation so the new cookie goes out with the next request.
func (s *Server) adminLogin(c *gin.Context) {
	var form forms.AdminLogin
	if !s.bindForm(c, &form) {
		return
	}

	ctx := c.Request.Context()
	sc := s.newScope(c)
	admin := s.adminSession(sc)
	admin.Sync(ctx, routes.AdminLoginPath, c.Request.URL.Query())

	profile, err := admin.Login(ctx, form.Username, form.Password)
	if err != nil {
		s.requestLogger(c).Warn().Str("username", form.Username).Msg("Admin login failed")
		s.respondWithError(c, err)
		return
	}
	s.relayCookies(c, sc)

	redirect := routes.AdminHomePath
	fullReload := true
	if nav, ok := navigation(sc); ok {
		redirect = nav.Target
		fullReload = nav.Kind == session.NavAssign
	}

	c.JSON(http.StatusOK, gin.H{
		"admin":      profile,
		"redirect":   redirect,
		"fullReload": fullReload,
	})
}

// adminLogout handles POST /session/admin/logout. The cookie is always expired.
func (s *Server) adminLogout(c *gin.Context) {
	sc := s.newScope(c)
	admin := s.adminSession(sc)
	if err := admin.Logout(c.Request.Context()); err != nil {
		s.requestLogger(c).Warn().Err(err).Msg("Backend admin logout failed")
	}
	s.clearSessionCookie(c, s.config.Cookies.Admin)

	redirect := routes.AdminLoginPath
	if nav, ok := navigation(sc); ok {
		redirect = nav.Target
	}
	c.JSON(http.StatusOK, gin.H{"redirect": redirect})
}

// adminMe handles GET /session/admin/me
func (s *Server) adminMe(c *gin.Context) {
	sc := s.newScope(c)
	admin := s.adminSession(sc)
	profile, err := admin.FetchProfile(c.Request.Context())
	if err != nil {
		s.respondWithError(c, err)
		return
	}
	if profile == nil {
		if _, had := sc.incoming[s.config.Cookies.Admin]; had {
			s.clearSessionCookie(c, s.config.Cookies.Admin)
		}
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}
	s.relayCookies(c, sc)
	c.JSON(http.StatusOK, gin.H{"admin": profile})
}

// adminMetrics handles GET /session/admin/metrics
func (s *Server) adminMetrics(c *gin.Context) {
	sc := s.newScope(c)
	metrics, err := s.adminSession(sc).FetchMetrics(c.Request.Context())
	s.adminReply(c, sc, err, http.StatusOK, gin.H{"metrics": metrics})
}

// adminSettings handles GET /session/admin/settings
func (s *Server) adminSettings(c *gin.Context) {
	sc := s.newScope(c)
	settings, err := s.adminSession(sc).FetchSettings(c.Request.Context())
	s.adminReply(c, sc, err, http.StatusOK, gin.H{"settings": settings})
}

// updateAdminSettings handles PUT /session/admin/settings. The cached public
// settings are refreshed so visitors see the change without waiting for cron.
func (s *Server) updateAdminSettings(c *gin.Context) {
	var form forms.SettingsUpdate
	if !s.bindForm(c, &form) {
		return
	}

	ctx := c.Request.Context()
	sc := s.newScope(c)
	settings, err := s.adminSession(sc).UpdateSettings(ctx, form.UpdateSettingsInput)
	if err == nil {
		if _, rerr := s.settings.Refresh(ctx); rerr != nil {
			s.requestLogger(c).Warn().Err(rerr).Msg("Failed to refresh cached settings")
		}
	}
	s.adminReply(c, sc, err, http.StatusOK, gin.H{"settings": settings})
}

// adminUsers handles GET /session/admin/users
func (s *Server) adminUsers(c *gin.Context) {
	var form forms.UserSearch
	if err := c.ShouldBindQuery(&form); err != nil {
		e := api.NewValidationError("Invalid query")
		e.Err = err
		s.respondWithError(c, e)
		return
	}
	if err := s.validator.Validate(&form); err != nil {
		s.respondWithError(c, err)
		return
	}

	sc := s.newScope(c)
	list, err := s.adminSession(sc).FetchUsers(c.Request.Context(), form.Query())
	s.adminReply(c, sc, err, http.StatusOK, list)
}

// adminUser handles GET /session/admin/users/:id
func (s *Server) adminUser(c *gin.Context) {
	sc := s.newScope(c)
	user, err := s.adminSession(sc).FetchUserDetail(c.Request.Context(), c.Param("id"))
	s.adminReply(c, sc, err, http.StatusOK, gin.H{"user": user})
}

// updateUserStatus handles PUT /session/admin/users/:id/status
func (s *Server) updateUserStatus(c *gin.Context) {
	var form forms.UserStatus
	if !s.bindForm(c, &form) {
		return
	}

	sc := s.newScope(c)
	user, err := s.adminSession(sc).UpdateUserStatus(c.Request.Context(), c.Param("id"), api.UserStatus(form.Status))
	if err == nil {
		s.requestLogger(c).Info().Str("user_id", c.Param("id")).Str("status", form.Status).Msg("User status changed")
	}
	s.adminReply(c, sc, err, http.StatusOK, gin.H{"user": user})
}

// updateUserBalance handles PUT /session/admin/users/:id/balance
func (s *Server) updateUserBalance(c *gin.Context) {
	var form forms.UserBalance
	if !s.bindForm(c, &form) {
		return
	}

	sc := s.newScope(c)
	user, err := s.adminSession(sc).UpdateUserBalance(c.Request.Context(), c.Param("id"), *form.Balance, form.Reason)
	if err == nil {
		s.requestLogger(c).Info().Str("user_id", c.Param("id")).Float64("balance", *form.Balance).Msg("User balance changed")
	}
	s.adminReply(c, sc, err, http.StatusOK, gin.H{"user": user})
}

// adminUserTransactions handles GET /session/admin/users/:id/transactions
func (s *Server) adminUserTransactions(c *gin.Context) {
	sc := s.newScope(c)
	relations, err := s.adminSession(sc).FetchUserTransactions(c.Request.Context(), c.Param("id"))
	s.adminReply(c, sc, err, http.StatusOK, relations)
}

// adminTransactions handles GET /session/admin/transactions
func (s *Server) adminTransactions(c *gin.Context) {
	var form forms.TransactionFilter
	if err := c.ShouldBindQuery(&form); err != nil {
		e := api.NewValidationError("Invalid query")
		e.Err = err
		s.respondWithError(c, e)
		return
	}
	if err := s.validator.Validate(&form); err != nil {
		s.respondWithError(c, err)
		return
	}

	sc := s.newScope(c)
	overview, err := s.adminSession(sc).FetchTransactions(c.Request.Context(), form.Query())
	s.adminReply(c, sc, err, http.StatusOK, overview)
}

// approveWithdrawal handles POST /session/admin/withdrawals/:id/approve
func (s *Server) approveWithdrawal(c *gin.Context) {
	var form forms.WithdrawalDecision
	if !s.bindForm(c, &form) {
		return
	}

	sc := s.newScope(c)
	withdrawal, err := s.adminSession(sc).ApproveWithdrawal(c.Request.Context(), c.Param("id"),
		api.ApproveWithdrawalInput{TxID: form.TxID})
	s.adminReply(c, sc, err, http.StatusOK, gin.H{"withdrawal": withdrawal})
}

// rejectWithdrawal handles POST /session/admin/withdrawals/:id/reject
func (s *Server) rejectWithdrawal(c *gin.Context) {
	var form forms.WithdrawalDecision
	if !s.bindForm(c, &form) {
		return
	}

	sc := s.newScope(c)
	withdrawal, err := s.adminSession(sc).RejectWithdrawal(c.Request.Context(), c.Param("id"),
		api.RejectWithdrawalInput{Reason: form.Reason})
	s.adminReply(c, sc, err, http.StatusOK, gin.H{"withdrawal": withdrawal})
}

// completeSellOrder handles POST /session/admin/sell-orders/:id/complete
func (s *Server) completeSellOrder(c *gin.Context) {
	var form forms.SellOrderDecision
	if !s.bindForm(c, &form) {
		return
	}

	sc := s.newScope(c)
	order, err := s.adminSession(sc).CompleteSellOrder(c.Request.Context(), c.Param("id"),
		api.CompleteSellOrderInput{TxID: form.TxID, Note: form.Note, PayoutINR: form.PayoutINR})
	s.adminReply(c, sc, err, http.StatusOK, gin.H{"sellOrder": order})
}

// rejectSellOrder handles POST /session/admin/sell-orders/:id/reject
func (s *Server) rejectSellOrder(c *gin.Context) {
	var form forms.SellOrderDecision
	if !s.bindForm(c, &form) {
		return
	}

	sc := s.newScope(c)
	order, err := s.adminSession(sc).RejectSellOrder(c.Request.Context(), c.Param("id"),
		api.RejectSellOrderInput{Reason: form.Reason, Note: form.Note})
	s.adminReply(c, sc, err, http.StatusOK, gin.H{"sellOrder": order})
}

// adminReply relays the outcome of an admin pass-through. A 401 means the
// admin session is gone, so the cookie is expired along with the error.
func (s *Server) adminReply(c *gin.Context, sc *scope, err error, status int, body any) {
	if err != nil {
		if api.IsAuth(err) {
			s.clearSessionCookie(c, s.config.Cookies.Admin)
		}
		s.respondWithError(c, err)
		return
	}
	s.relayCookies(c, sc)
	c.JSON(status, body)
}
