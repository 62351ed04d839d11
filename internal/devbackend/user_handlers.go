package devbackend

import (
	"errors"
	"math"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/crypgo-dev/crypgo-web/internal/models"
)

const defaultNetwork = "TRC20"

// WalletRequest binds a withdrawal address
type WalletRequest struct {
	Address string `json:"address" binding:"required,min=26,max=64,alphanum"`
	Network string `json:"network" binding:"omitempty,oneof=TRC20"`
	Label   string `json:"label" binding:"max=50"`
}

// DepositRequest opens a deposit order
type DepositRequest struct {
	Amount  float64 `json:"amount" binding:"required,gt=0"`
	Network string  `json:"network"`
}

// WithdrawalRequest requests a payout to a bound wallet
type WithdrawalRequest struct {
	Amount   float64 `json:"amount" binding:"required,gt=0"`
	WalletID string  `json:"walletId" binding:"required"`
}

// SellOrderRequest sells USDT from the balance for INR
type SellOrderRequest struct {
	Amount float64 `json:"amount" binding:"required,gt=0"`
}

// roundCents rounds to two decimals
func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}

func (s *Server) redeemReferralRewards(c *gin.Context) {
	userID := subjectID(c)

	var amount float64
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var invites []models.Invite
		if err := tx.Where("inviter_id = ? AND status = ?", userID, models.OrderCompleted).Find(&invites).Error; err != nil {
			return err
		}

		amount = roundCents(availableReward(invites))
		if amount < payoutThreshold {
			return refuse(http.StatusBadRequest, "Minimum redeemable referral balance is 100 USDT")
		}

		for _, inv := range invites {
			if err := tx.Model(&models.Invite{}).Where("id = ?", inv.ID).Update("reward_redeemed", inv.Reward).Error; err != nil {
				return err
			}
		}
		if err := adjustBalance(tx, userID, amount); err != nil {
			return err
		}
		return addStatement(tx, userID, models.StatementReferralReward, amount, map[string]any{
			"invites": len(invites),
		})
	})
	if err != nil {
		s.fail(c, err, "")
		return
	}

	profile, err := s.loadProfile(userID)
	if err != nil {
		s.fail(c, err, "User not found")
		return
	}

	s.logger.Info().Str("user_id", userID).Float64("amount", amount).Msg("Referral rewards redeemed")
	c.JSON(http.StatusOK, gin.H{"amount": amount, "user": profile})
}

func (s *Server) addWallet(c *gin.Context) {
	var req WalletRequest
	if !s.bindJSON(c, &req) {
		return
	}
	userID := subjectID(c)

	network := req.Network
	if network == "" {
		network = defaultNetwork
	}

	var duplicates int64
	if err := s.db.Model(&models.Wallet{}).
		Where("user_id = ? AND address = ?", userID, req.Address).
		Count(&duplicates).Error; err != nil {
		s.fail(c, err, "")
		return
	}
	if duplicates > 0 {
		respondWithError(c, s.logger, http.StatusConflict, errors.New("duplicate wallet"), "Wallet already added")
		return
	}

	wallet := &models.Wallet{
		UserID:  userID,
		Address: req.Address,
		Network: network,
		Label:   strings.TrimSpace(req.Label),
	}
	if err := s.db.Create(wallet).Error; err != nil {
		s.fail(c, err, "")
		return
	}

	c.JSON(http.StatusCreated, gin.H{"wallet": walletView(*wallet)})
}

func (s *Server) deleteWallet(c *gin.Context) {
	result := s.db.Where("id = ? AND user_id = ?", c.Param("id"), subjectID(c)).Delete(&models.Wallet{})
	if result.Error != nil {
		s.fail(c, result.Error, "")
		return
	}
	if result.RowsAffected == 0 {
		respondWithError(c, s.logger, http.StatusNotFound, errNotFound, "Wallet not found")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Wallet removed"})
}

func (s *Server) createDeposit(c *gin.Context) {
	var req DepositRequest
	if !s.bindJSON(c, &req) {
		return
	}

	settings, err := s.loadSettings(s.db)
	if err != nil {
		s.fail(c, err, "")
		return
	}

	network := req.Network
	if network == "" {
		network = defaultNetwork
	}
	notes := map[string]any{}
	if len(settings.DepositAddresses) > 0 {
		notes["depositAddress"] = settings.DepositAddresses[0]
	}

	deposit := &models.Deposit{
		UserID:  subjectID(c),
		Amount:  roundCents(req.Amount),
		Status:  models.OrderPending,
		Network: &network,
		Notes:   notes,
	}
	if err := s.db.Create(deposit).Error; err != nil {
		s.fail(c, err, "")
		return
	}

	c.JSON(http.StatusCreated, gin.H{"deposit": depositView(*deposit)})
}

func (s *Server) createWithdrawal(c *gin.Context) {
	var req WithdrawalRequest
	if !s.bindJSON(c, &req) {
		return
	}
	userID := subjectID(c)

	var withdrawal models.Withdrawal
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := models.FindByID(tx, userID, &user); err != nil {
			return err
		}
		if user.Status != models.StatusActive {
			return refuse(http.StatusForbidden, "Account frozen")
		}

		var wallet models.Wallet
		if err := tx.Where("id = ? AND user_id = ?", req.WalletID, userID).First(&wallet).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return refuse(http.StatusBadRequest, "Wallet not found")
			}
			return err
		}

		amount := roundCents(req.Amount)
		fee := roundCents(amount * withdrawalFee / 100)
		total := roundCents(amount + fee)
		if user.Balance < total {
			return refuse(http.StatusBadRequest, "Insufficient balance")
		}

		withdrawal = models.Withdrawal{
			UserID:      userID,
			WalletID:    wallet.ID,
			Amount:      amount,
			Status:      models.OrderPending,
			Destination: wallet.Address,
			Network:     wallet.Network,
			Label:       wallet.Label,
			FeePercent:  withdrawalFee,
			FeeAmount:   fee,
			TotalDebit:  total,
		}
		if err := tx.Create(&withdrawal).Error; err != nil {
			return err
		}
		if err := adjustBalance(tx, userID, -total); err != nil {
			return err
		}
		return addStatement(tx, userID, models.StatementWithdrawal, -total, map[string]any{
			"withdrawalId": withdrawal.ID,
			"destination":  wallet.Address,
			"feeAmount":    fee,
		})
	})
	if err != nil {
		s.fail(c, err, "User not found")
		return
	}

	s.logger.Info().Str("user_id", userID).Str("withdrawal_id", withdrawal.ID).Msg("Withdrawal requested")
	c.JSON(http.StatusCreated, gin.H{"withdrawal": withdrawalView(withdrawal)})
}

func (s *Server) getWithdrawal(c *gin.Context) {
	var withdrawal models.Withdrawal
	err := s.db.Where("id = ? AND user_id = ?", c.Param("id"), subjectID(c)).First(&withdrawal).Error
	if err != nil {
		s.fail(c, err, "Withdrawal not found")
		return
	}
	c.JSON(http.StatusOK, gin.H{"withdrawal": withdrawalView(withdrawal)})
}

// createSellOrder debits the balance and records a pending SELL_ORDER statement
func (s *Server) createSellOrder(c *gin.Context) {
	var req SellOrderRequest
	if !s.bindJSON(c, &req) {
		return
	}
	userID := subjectID(c)

	var order models.Statement
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := models.FindByID(tx, userID, &user); err != nil {
			return err
		}
		if user.Status != models.StatusActive {
			return refuse(http.StatusForbidden, "Account frozen")
		}

		amount := roundCents(req.Amount)
		if user.Balance < amount {
			return refuse(http.StatusBadRequest, "Insufficient balance")
		}

		settings, err := s.loadSettings(tx)
		if err != nil {
			return err
		}

		order = models.Statement{
			UserID: userID,
			Type:   models.StatementSellOrder,
			Amount: amount,
			Metadata: map[string]any{
				"status":    models.OrderPending,
				"rate":      settings.BaseRate,
				"payoutInr": roundCents(amount * settings.BaseRate),
			},
		}
		if err := tx.Create(&order).Error; err != nil {
			return err
		}
		order.User = user
		return adjustBalance(tx, userID, -amount)
	})
	if err != nil {
		s.fail(c, err, "User not found")
		return
	}

	c.JSON(http.StatusCreated, gin.H{"sellOrder": sellOrderView(order)})
}
