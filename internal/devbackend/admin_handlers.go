package devbackend

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/crypgo-dev/crypgo-web/internal/api"
	"github.com/crypgo-dev/crypgo-web/internal/auth"
	"github.com/crypgo-dev/crypgo-web/internal/models"
)

const (
	defaultUsersLimit        = 20
	maxListLimit             = 200
	defaultTransactionsLimit = 50
	dateLayout               = "2006-01-02"
)

// AdminLoginRequest represents an admin login
type AdminLoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// UserStatusRequest changes a user's status
type UserStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=ACTIVE FROZEN BLOCKED"`
}

// UserBalanceRequest overwrites a user's balance
type UserBalanceRequest struct {
	Balance *float64 `json:"balance" binding:"required"`
	Reason  string   `json:"reason"`
}

// DecisionRequest carries the optional details of an approval or rejection
type DecisionRequest struct {
	TxID      string   `json:"txId"`
	Reason    string   `json:"reason"`
	Note      string   `json:"note"`
	PayoutINR *float64 `json:"payoutInr"`
}

func (s *Server) adminLogin(c *gin.Context) {
	var req AdminLoginRequest
	if !s.bindJSON(c, &req) {
		return
	}

	var admin models.Admin
	if err := s.db.Where("username = ?", req.Username).First(&admin).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondWithError(c, s.logger, http.StatusUnauthorized, err, "Invalid username or password")
			return
		}
		s.fail(c, err, "")
		return
	}

	if err := auth.VerifyPassword(req.Password, admin.PasswordHash); err != nil {
		respondWithError(c, s.logger, http.StatusUnauthorized, err, "Invalid username or password")
		return
	}

	token, err := s.tokens.GenerateToken(admin.ID, auth.RoleAdmin)
	if err != nil {
		s.fail(c, err, "")
		return
	}

	s.setSessionCookie(c, s.config.Cookies.Admin, token)
	s.logger.Info().Str("username", admin.Username).Msg("Admin logged in")
	c.JSON(http.StatusOK, gin.H{"admin": api.AdminSession{Username: admin.Username, Role: admin.Role}})
}

func (s *Server) adminLogout(c *gin.Context) {
	s.clearSessionCookie(c, s.config.Cookies.Admin)
	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}

func (s *Server) adminMe(c *gin.Context) {
	var admin models.Admin
	if err := models.FindByID(s.db, subjectID(c), &admin); err != nil {
		s.fail(c, err, "Admin not found")
		return
	}
	c.JSON(http.StatusOK, gin.H{"admin": api.AdminSession{Username: admin.Username, Role: admin.Role}})
}

func (s *Server) metrics(c *gin.Context) {
	settings, err := s.loadSettings(s.db)
	if err != nil {
		s.fail(c, err, "")
		return
	}

	var (
		totalUsers, pendingWithdrawals, pendingDeposits, pendingSellOrders int64
		totalUSDT, deposited, withdrawn                                    float64
	)
	queries := []*gorm.DB{
		s.db.Model(&models.User{}).Count(&totalUsers),
		s.db.Model(&models.User{}).Select("COALESCE(SUM(balance), 0)").Scan(&totalUSDT),
		s.db.Model(&models.Withdrawal{}).Where("status = ?", models.OrderPending).Count(&pendingWithdrawals),
		s.db.Model(&models.Deposit{}).Where("status = ?", models.OrderPending).Count(&pendingDeposits),
		s.db.Model(&models.Statement{}).
			Where("type = ? AND json_extract(metadata, '$.status') = ?", models.StatementSellOrder, models.OrderPending).
			Count(&pendingSellOrders),
		s.db.Model(&models.Deposit{}).Where("status = ?", models.OrderCompleted).
			Select("COALESCE(SUM(amount), 0)").Scan(&deposited),
		s.db.Model(&models.Withdrawal{}).Where("status = ?", models.OrderCompleted).
			Select("COALESCE(SUM(amount), 0)").Scan(&withdrawn),
	}
	for _, q := range queries {
		if q.Error != nil {
			s.fail(c, q.Error, "")
			return
		}
	}

	hot := roundCents(deposited - withdrawn)
	c.JSON(http.StatusOK, gin.H{"metrics": api.AdminMetrics{
		TotalUsers:         int(totalUsers),
		TotalUSDT:          roundCents(totalUSDT),
		TotalINR:           roundCents(totalUSDT * settings.BaseRate),
		PendingWithdrawals: int(pendingWithdrawals),
		PendingDeposits:    int(pendingDeposits),
		PendingSellOrders:  int(pendingSellOrders),
		WalletBalances: api.WalletBalances{
			USDT: hot,
			INR:  roundCents(hot * settings.BaseRate),
		},
	}})
}

func (s *Server) adminSettings(c *gin.Context) {
	settings, err := s.loadSettings(s.db)
	if err != nil {
		s.fail(c, err, "")
		return
	}
	c.JSON(http.StatusOK, gin.H{"settings": settingsView(settings)})
}

func (s *Server) updateSettings(c *gin.Context) {
	var req api.UpdateSettingsInput
	if !s.bindJSON(c, &req) {
		return
	}
	if req.BaseRate != nil && *req.BaseRate <= 0 {
		respondWithError(c, s.logger, http.StatusUnprocessableEntity, errors.New("invalid base rate"), "Base rate must be positive")
		return
	}
	if req.InviteCommission != nil && *req.InviteCommission < 0 {
		respondWithError(c, s.logger, http.StatusUnprocessableEntity, errors.New("invalid commission"), "Invite commission cannot be negative")
		return
	}

	settings, err := s.loadSettings(s.db)
	if err != nil {
		s.fail(c, err, "")
		return
	}
	if req.BaseRate != nil {
		settings.BaseRate = *req.BaseRate
	}
	if req.PricingTiers != nil {
		tiers := make([]models.PricingTier, 0, len(req.PricingTiers))
		for _, t := range req.PricingTiers {
			tiers = append(tiers, models.PricingTier{Range: t.Range, Markup: t.Markup})
		}
		settings.PricingTiers = tiers
	}
	if req.DepositAddresses != nil {
		settings.DepositAddresses = req.DepositAddresses
	}
	if req.InviteCommission != nil {
		settings.InviteCommission = *req.InviteCommission
	}

	if err := s.db.Save(settings).Error; err != nil {
		s.fail(c, err, "")
		return
	}

	s.logger.Info().Float64("base_rate", settings.BaseRate).Msg("Settings updated")
	c.JSON(http.StatusOK, gin.H{"settings": settingsView(settings)})
}

// dateRange applies startDate and endDate (inclusive, YYYY-MM-DD) to q
func dateRange(c *gin.Context, q *gorm.DB, column string) (*gorm.DB, error) {
	if raw := c.Query("startDate"); raw != "" {
		start, err := time.Parse(dateLayout, raw)
		if err != nil {
			return nil, refuse(http.StatusUnprocessableEntity, "Invalid startDate")
		}
		q = q.Where(column+" >= ?", start)
	}
	if raw := c.Query("endDate"); raw != "" {
		end, err := time.Parse(dateLayout, raw)
		if err != nil {
			return nil, refuse(http.StatusUnprocessableEntity, "Invalid endDate")
		}
		q = q.Where(column+" < ?", end.AddDate(0, 0, 1))
	}
	return q, nil
}

func queryInt(c *gin.Context, key string, fallback, upper int) int {
	n, err := strconv.Atoi(c.Query(key))
	if err != nil || n <= 0 {
		return fallback
	}
	if upper > 0 && n > upper {
		return upper
	}
	return n
}

func (s *Server) listUsers(c *gin.Context) {
	q := s.db.Model(&models.User{})
	if search := strings.TrimSpace(c.Query("search")); search != "" {
		like := "%" + strings.ToLower(search) + "%"
		q = q.Where("LOWER(name) LIKE ? OR phone LIKE ? OR LOWER(invite_code) LIKE ?", like, like, like)
	}
	q, err := dateRange(c, q, "created_at")
	if err != nil {
		s.fail(c, err, "")
		return
	}
	q = q.Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		s.fail(c, err, "")
		return
	}

	var users []models.User
	limit := queryInt(c, "limit", defaultUsersLimit, maxListLimit)
	offset := queryInt(c, "offset", 0, 0)
	if err := q.Order("created_at DESC").Limit(limit).Offset(offset).Find(&users).Error; err != nil {
		s.fail(c, err, "")
		return
	}

	out := make([]api.AdminUser, 0, len(users))
	for i := range users {
		stats, err := s.userStats(users[i].ID)
		if err != nil {
			s.fail(c, err, "")
			return
		}
		out = append(out, adminUserView(&users[i], stats))
	}
	c.JSON(http.StatusOK, api.AdminUserList{Users: out, Total: int(total)})
}

func (s *Server) getUser(c *gin.Context) {
	user, err := s.adminUser(c.Param("id"))
	if err != nil {
		s.fail(c, err, "User not found")
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

func (s *Server) updateUserStatus(c *gin.Context) {
	var req UserStatusRequest
	if !s.bindJSON(c, &req) {
		return
	}

	result := s.db.Model(&models.User{}).Where("id = ?", c.Param("id")).Update("status", req.Status)
	if result.Error != nil {
		s.fail(c, result.Error, "")
		return
	}
	if result.RowsAffected == 0 {
		respondWithError(c, s.logger, http.StatusNotFound, errNotFound, "User not found")
		return
	}

	s.logger.Info().Str("user_id", c.Param("id")).Str("status", req.Status).Msg("User status changed")
	s.getUser(c)
}

func (s *Server) updateUserBalance(c *gin.Context) {
	var req UserBalanceRequest
	if !s.bindJSON(c, &req) {
		return
	}
	if *req.Balance < 0 {
		respondWithError(c, s.logger, http.StatusUnprocessableEntity, errors.New("negative balance"), "Balance cannot be negative")
		return
	}
	userID := c.Param("id")

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := models.FindByID(tx, userID, &user); err != nil {
			return err
		}
		balance := roundCents(*req.Balance)
		if err := tx.Model(&models.User{}).Where("id = ?", userID).Update("balance", balance).Error; err != nil {
			return err
		}
		return addStatement(tx, userID, models.StatementAdjustment, roundCents(balance-user.Balance), map[string]any{
			"reason":          strings.TrimSpace(req.Reason),
			"previousBalance": user.Balance,
		})
	})
	if err != nil {
		s.fail(c, err, "User not found")
		return
	}
	s.getUser(c)
}

func (s *Server) userTransactions(c *gin.Context) {
	userID := c.Param("id")

	var user models.User
	err := s.db.
		Preload("Statements", newestFirst).
		Preload("Deposits", newestFirst).
		Preload("Withdrawals", newestFirst).
		Where("id = ?", userID).
		First(&user).Error
	if err != nil {
		s.fail(c, err, "User not found")
		return
	}
	invites, err := s.invitesOf(userID)
	if err != nil {
		s.fail(c, err, "")
		return
	}

	view := userView(&user, invites)
	c.JSON(http.StatusOK, api.UserRelations{
		Statements:  view.Statements,
		Deposits:    view.Deposits,
		Withdrawals: view.Withdrawals,
		Invites:     view.Invites.List,
	})
}

func (s *Server) transactions(c *gin.Context) {
	limit := queryInt(c, "limit", defaultTransactionsLimit, maxListLimit)

	scoped := func(model any) (*gorm.DB, error) {
		q := s.db.Model(model).Preload("User").Order("created_at DESC").Limit(limit)
		return dateRange(c, q, "created_at")
	}

	var (
		deposits    []models.Deposit
		withdrawals []models.Withdrawal
		sellOrders  []models.Statement
	)
	q, err := scoped(&models.Deposit{})
	if err == nil {
		err = q.Find(&deposits).Error
	}
	if err == nil {
		if q, err = scoped(&models.Withdrawal{}); err == nil {
			err = q.Find(&withdrawals).Error
		}
	}
	if err == nil {
		if q, err = scoped(&models.Statement{}); err == nil {
			err = q.Where("type = ?", models.StatementSellOrder).Find(&sellOrders).Error
		}
	}
	if err != nil {
		s.fail(c, err, "")
		return
	}

	out := api.AdminTransactions{
		Deposits:    make([]api.AdminDeposit, 0, len(deposits)),
		Withdrawals: make([]api.AdminWithdrawal, 0, len(withdrawals)),
		SellOrders:  make([]api.SellOrder, 0, len(sellOrders)),
	}
	for _, d := range deposits {
		out.Deposits = append(out.Deposits, adminDepositView(d))
	}
	for _, w := range withdrawals {
		out.Withdrawals = append(out.Withdrawals, adminWithdrawalView(w))
	}
	for _, o := range sellOrders {
		out.SellOrders = append(out.SellOrders, *sellOrderView(o))
	}
	c.JSON(http.StatusOK, out)
}

// pendingWithdrawal loads a withdrawal that is still awaiting review
func pendingWithdrawal(tx *gorm.DB, id string) (*models.Withdrawal, error) {
	var w models.Withdrawal
	if err := models.FindByID(tx, id, &w); err != nil {
		return nil, err
	}
	if w.Status != models.OrderPending {
		return nil, refuse(http.StatusConflict, "Withdrawal already processed")
	}
	return &w, nil
}

func (s *Server) approveWithdrawal(c *gin.Context) {
	var req DecisionRequest
	if !s.bindJSON(c, &req) {
		return
	}

	var withdrawal *models.Withdrawal
	err := s.db.Transaction(func(tx *gorm.DB) error {
		w, err := pendingWithdrawal(tx, c.Param("id"))
		if err != nil {
			return err
		}

		updates := map[string]any{"status": models.OrderCompleted}
		if txID := strings.TrimSpace(req.TxID); txID != "" {
			updates["tx_id"] = txID
		}
		if err := tx.Model(&models.Withdrawal{}).Where("id = ?", w.ID).Updates(updates).Error; err != nil {
			return err
		}
		if err := s.completeInvite(tx, w); err != nil {
			return err
		}

		withdrawal = &models.Withdrawal{}
		return models.FindByID(tx, w.ID, withdrawal)
	})
	if err != nil {
		s.fail(c, err, "Withdrawal not found")
		return
	}

	s.logger.Info().Str("withdrawal_id", withdrawal.ID).Msg("Withdrawal approved")
	c.JSON(http.StatusOK, gin.H{"withdrawal": withdrawalView(*withdrawal)})
}

// completeInvite rewards the inviter on the invitee's first paid withdrawal
func (s *Server) completeInvite(tx *gorm.DB, w *models.Withdrawal) error {
	var invite models.Invite
	err := tx.Where("invitee_id = ? AND status = ?", w.UserID, models.OrderPending).First(&invite).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	settings, err := s.loadSettings(tx)
	if err != nil {
		return err
	}
	reward := roundCents(w.Amount * settings.InviteCommission / 100)
	return tx.Model(&models.Invite{}).Where("id = ?", invite.ID).Updates(map[string]any{
		"status": models.OrderCompleted,
		"reward": reward,
	}).Error
}

func (s *Server) rejectWithdrawal(c *gin.Context) {
	var req DecisionRequest
	if !s.bindJSON(c, &req) {
		return
	}

	var withdrawal *models.Withdrawal
	err := s.db.Transaction(func(tx *gorm.DB) error {
		w, err := pendingWithdrawal(tx, c.Param("id"))
		if err != nil {
			return err
		}

		reason := strings.TrimSpace(req.Reason)
		if err := tx.Model(&models.Withdrawal{}).Where("id = ?", w.ID).Updates(map[string]any{
			"status": models.OrderRejected,
			"reason": reason,
		}).Error; err != nil {
			return err
		}
		if err := adjustBalance(tx, w.UserID, w.TotalDebit); err != nil {
			return err
		}
		if err := addStatement(tx, w.UserID, models.StatementWithdrawalRefund, w.TotalDebit, map[string]any{
			"withdrawalId": w.ID,
			"reason":       reason,
		}); err != nil {
			return err
		}

		withdrawal = &models.Withdrawal{}
		return models.FindByID(tx, w.ID, withdrawal)
	})
	if err != nil {
		s.fail(c, err, "Withdrawal not found")
		return
	}

	s.logger.Info().Str("withdrawal_id", withdrawal.ID).Msg("Withdrawal rejected")
	c.JSON(http.StatusOK, gin.H{"withdrawal": withdrawalView(*withdrawal)})
}

// decideSellOrder moves a pending sell order to status, merging details into
// its metadata. Rejected orders are refunded.
func (s *Server) decideSellOrder(c *gin.Context, status string) {
	var req DecisionRequest
	if !s.bindJSON(c, &req) {
		return
	}

	var order models.Statement
	err := s.db.Transaction(func(tx *gorm.DB) error {
		err := tx.Preload("User").
			Where("id = ? AND type = ?", c.Param("id"), models.StatementSellOrder).
			First(&order).Error
		if err != nil {
			return err
		}

		metadata := order.Metadata
		if metadata == nil {
			metadata = map[string]any{}
		}
		if current, _ := metadata["status"].(string); current != models.OrderPending {
			return refuse(http.StatusConflict, "Sell order already processed")
		}

		metadata["status"] = status
		metadata["processedAt"] = timestamp(s.now())
		for key, value := range map[string]string{"txId": req.TxID, "reason": req.Reason, "note": req.Note} {
			if v := strings.TrimSpace(value); v != "" {
				metadata[key] = v
			}
		}
		if req.PayoutINR != nil && status == models.OrderCompleted {
			metadata["payoutInr"] = *req.PayoutINR
		}
		order.Metadata = metadata

		if err := tx.Model(&models.Statement{}).Where("id = ?", order.ID).
			Select("metadata").Updates(&models.Statement{Metadata: metadata}).Error; err != nil {
			return err
		}

		if status == models.OrderRejected {
			if err := adjustBalance(tx, order.UserID, order.Amount); err != nil {
				return err
			}
			return addStatement(tx, order.UserID, models.StatementSellOrderRefund, order.Amount, map[string]any{
				"sellOrderId": order.ID,
				"reason":      strings.TrimSpace(req.Reason),
			})
		}
		return nil
	})
	if err != nil {
		s.fail(c, err, "Sell order not found")
		return
	}

	s.logger.Info().Str("sell_order_id", order.ID).Str("status", status).Msg("Sell order processed")
	c.JSON(http.StatusOK, gin.H{"sellOrder": sellOrderView(order)})
}

func (s *Server) completeSellOrder(c *gin.Context) {
	s.decideSellOrder(c, models.OrderCompleted)
}

func (s *Server) rejectSellOrder(c *gin.Context) {
	s.decideSellOrder(c, models.OrderRejected)
}
