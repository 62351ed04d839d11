package devbackend

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/crypgo-dev/crypgo-web/internal/api"
	"github.com/crypgo-dev/crypgo-web/internal/models"
)

const inviteCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

var errNotFound = errors.New("record not found")

func (s *Server) loadSettings(db *gorm.DB) (*models.Settings, error) {
	var settings models.Settings
	if err := db.Where("id = ?", settingsID).First(&settings).Error; err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}
	return &settings, nil
}

// loadProfile loads a user with its ledger and invites, newest first
func (s *Server) loadProfile(userID string) (*api.User, error) {
	var user models.User
	err := s.db.
		Preload("Wallets", newestFirst).
		Preload("Statements", newestFirst).
		Preload("Deposits", newestFirst).
		Preload("Withdrawals", newestFirst).
		Where("id = ?", userID).
		First(&user).Error
	if err != nil {
		return nil, notFoundOr(err)
	}

	invites, err := s.invitesOf(userID)
	if err != nil {
		return nil, err
	}
	return userView(&user, invites), nil
}

func (s *Server) invitesOf(inviterID string) ([]models.Invite, error) {
	var invites []models.Invite
	err := s.db.Preload("Invitee").
		Where("inviter_id = ?", inviterID).
		Order("created_at DESC").
		Find(&invites).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load invites: %w", err)
	}
	return invites, nil
}

// adjustBalance adds delta to a user's balance inside tx
func adjustBalance(tx *gorm.DB, userID string, delta float64) error {
	return tx.Model(&models.User{}).
		Where("id = ?", userID).
		Update("balance", gorm.Expr("balance + ?", delta)).Error
}

func addStatement(tx *gorm.DB, userID, kind string, amount float64, metadata map[string]any) error {
	return tx.Create(&models.Statement{
		UserID:   userID,
		Type:     kind,
		Amount:   amount,
		Metadata: metadata,
	}).Error
}

// userStats sums completed deposits and withdrawals of a user
func (s *Server) userStats(userID string) (api.AdminUserStats, error) {
	var stats api.AdminUserStats
	if err := s.db.Model(&models.Deposit{}).
		Where("user_id = ? AND status = ?", userID, models.OrderCompleted).
		Select("COALESCE(SUM(amount), 0)").Scan(&stats.TotalDeposits).Error; err != nil {
		return stats, fmt.Errorf("failed to sum deposits: %w", err)
	}
	if err := s.db.Model(&models.Withdrawal{}).
		Where("user_id = ? AND status = ?", userID, models.OrderCompleted).
		Select("COALESCE(SUM(amount), 0)").Scan(&stats.TotalWithdrawals).Error; err != nil {
		return stats, fmt.Errorf("failed to sum withdrawals: %w", err)
	}
	stats.Tier = tierFor(stats.TotalDeposits)
	return stats, nil
}

func (s *Server) adminUser(userID string) (*api.AdminUser, error) {
	var user models.User
	if err := models.FindByID(s.db, userID, &user); err != nil {
		return nil, notFoundOr(err)
	}
	stats, err := s.userStats(user.ID)
	if err != nil {
		return nil, err
	}
	view := adminUserView(&user, stats)
	return &view, nil
}

func notFoundOr(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return errNotFound
	}
	return err
}

// randomDigits returns n random decimal digits
func randomDigits(n int) (string, error) {
	out := make([]byte, n)
	for i := range out {
		d, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", err
		}
		out[i] = byte('0' + d.Int64())
	}
	return string(out), nil
}

func newInviteCode() (string, error) {
	const length = 8
	out := make([]byte, length)
	size := big.NewInt(int64(len(inviteCodeAlphabet)))
	for i := range out {
		idx, err := rand.Int(rand.Reader, size)
		if err != nil {
			return "", err
		}
		out[i] = inviteCodeAlphabet[idx.Int64()]
	}
	return string(out), nil
}

// requestError is a refusal with the status and message sent to the caller
type requestError struct {
	status  int
	message string
}

func (e *requestError) Error() string {
	return e.message
}

func refuse(status int, message string) error {
	return &requestError{status: status, message: message}
}

// fail answers a failed operation. Refusals keep their status, missing
// records become 404 with notFound, anything else is a 500.
func (s *Server) fail(c *gin.Context, err error, notFound string) {
	var re *requestError
	if errors.As(err, &re) {
		respondWithError(c, s.logger, re.status, err, re.message)
		return
	}
	if errors.Is(err, errNotFound) || errors.Is(err, gorm.ErrRecordNotFound) {
		respondWithError(c, s.logger, http.StatusNotFound, err, notFound)
		return
	}
	s.logger.Error().Err(err).Str("path", c.Request.URL.Path).Msg("Storage failure")
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	c.Abort()
}

// bindJSON decodes the request body, answering 422 on malformed input
func (s *Server) bindJSON(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		respondWithError(c, s.logger, http.StatusUnprocessableEntity, err, "Invalid request body")
		return false
	}
	return true
}
