package devbackend

import (
	"time"

	"gorm.io/gorm"

	"github.com/crypgo-dev/crypgo-web/internal/api"
	"github.com/crypgo-dev/crypgo-web/internal/models"
)

func timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func optionalTimestamp(t *time.Time) *string {
	if t == nil {
		return nil
	}
	v := timestamp(*t)
	return &v
}

func newestFirst(db *gorm.DB) *gorm.DB {
	return db.Order("created_at DESC")
}

func settingsView(m *models.Settings) *api.PlatformSettings {
	tiers := make([]api.PricingTier, 0, len(m.PricingTiers))
	for _, t := range m.PricingTiers {
		tiers = append(tiers, api.PricingTier{Range: t.Range, Markup: t.Markup})
	}
	addresses := m.DepositAddresses
	if addresses == nil {
		addresses = []string{}
	}
	updated := timestamp(m.UpdatedAt)
	return &api.PlatformSettings{
		ID:               m.ID,
		BaseRate:         m.BaseRate,
		PricingTiers:     tiers,
		DepositAddresses: addresses,
		InviteCommission: m.InviteCommission,
		UpdatedAt:        &updated,
	}
}

func walletView(m models.Wallet) api.Wallet {
	return api.Wallet{
		ID:        m.ID,
		Address:   m.Address,
		Network:   m.Network,
		Label:     m.Label,
		CreatedAt: timestamp(m.CreatedAt),
	}
}

func statementView(m models.Statement) api.Statement {
	return api.Statement{
		ID:        m.ID,
		Type:      m.Type,
		Amount:    m.Amount,
		Metadata:  m.Metadata,
		CreatedAt: timestamp(m.CreatedAt),
	}
}

func depositView(m models.Deposit) api.Deposit {
	return api.Deposit{
		ID:        m.ID,
		Amount:    m.Amount,
		Status:    m.Status,
		TxID:      m.TxID,
		Network:   m.Network,
		CreatedAt: timestamp(m.CreatedAt),
		Notes:     m.Notes,
	}
}

func withdrawalView(m models.Withdrawal) api.Withdrawal {
	destination := m.Destination
	feePercent, feeAmount, totalDebit := m.FeePercent, m.FeeAmount, m.TotalDebit
	return api.Withdrawal{
		ID:          m.ID,
		Amount:      m.Amount,
		Status:      m.Status,
		Destination: &destination,
		TxID:        m.TxID,
		CreatedAt:   timestamp(m.CreatedAt),
		Metadata: &api.WithdrawalMetadata{
			Network:    m.Network,
			Label:      m.Label,
			Reason:     m.Reason,
			Status:     m.Status,
			FeePercent: &feePercent,
			FeeAmount:  &feeAmount,
			TotalDebit: &totalDebit,
		},
	}
}

func inviteView(m models.Invite) api.Invite {
	return api.Invite{
		ID:             m.ID,
		InviteePhone:   m.Invitee.Phone,
		InviteeName:    m.Invitee.Name,
		Status:         m.Status,
		Reward:         m.Reward,
		RewardRedeemed: m.RewardRedeemed,
		CreatedAt:      timestamp(m.CreatedAt),
	}
}

// availableReward is the unredeemed reward of completed invites
func availableReward(invites []models.Invite) float64 {
	var available float64
	for _, inv := range invites {
		if inv.Status == models.OrderCompleted {
			available += inv.Reward - inv.RewardRedeemed
		}
	}
	return available
}

func inviteSummary(code string, invites []models.Invite) api.InviteSummary {
	summary := api.InviteSummary{
		Code:            code,
		List:            make([]api.Invite, 0, len(invites)),
		Total:           len(invites),
		PayoutThreshold: payoutThreshold,
	}
	for _, inv := range invites {
		summary.List = append(summary.List, inviteView(inv))
		switch inv.Status {
		case models.OrderCompleted:
			summary.Completed++
			summary.TotalReward += inv.Reward
			summary.RedeemedReward += inv.RewardRedeemed
		case models.OrderPending:
			summary.Pending++
		}
	}
	summary.AvailableReward = availableReward(invites)
	summary.EligibleForPayout = summary.AvailableReward >= payoutThreshold
	return summary
}

// userView is the full profile of m. Relations must be preloaded.
func userView(m *models.User, invites []models.Invite) *api.User {
	u := &api.User{
		ID:          m.ID,
		Phone:       m.Phone,
		Name:        m.Name,
		Role:        m.Role,
		AvatarURL:   m.AvatarURL,
		Balance:     m.Balance,
		Currency:    m.Currency,
		InviteCode:  m.InviteCode,
		Status:      api.UserStatus(m.Status),
		Wallets:     make([]api.Wallet, 0, len(m.Wallets)),
		Statements:  make([]api.Statement, 0, len(m.Statements)),
		Deposits:    make([]api.Deposit, 0, len(m.Deposits)),
		Withdrawals: make([]api.Withdrawal, 0, len(m.Withdrawals)),
		Invites:     inviteSummary(m.InviteCode, invites),
		CreatedAt:   timestamp(m.CreatedAt),
	}
	for _, w := range m.Wallets {
		u.Wallets = append(u.Wallets, walletView(w))
	}
	for _, st := range m.Statements {
		u.Statements = append(u.Statements, statementView(st))
	}
	for _, d := range m.Deposits {
		u.Deposits = append(u.Deposits, depositView(d))
	}
	for _, w := range m.Withdrawals {
		u.Withdrawals = append(u.Withdrawals, withdrawalView(w))
	}
	return u
}

// tierFor grades a user by completed deposit volume
func tierFor(totalDeposits float64) string {
	switch {
	case totalDeposits >= 10000:
		return "GOLD"
	case totalDeposits >= 1000:
		return "SILVER"
	default:
		return "BRONZE"
	}
}

func adminUserView(m *models.User, stats api.AdminUserStats) api.AdminUser {
	return api.AdminUser{
		ID:          m.ID,
		Phone:       m.Phone,
		Role:        m.Role,
		Name:        m.Name,
		AvatarURL:   m.AvatarURL,
		Balance:     m.Balance,
		Currency:    m.Currency,
		InviteCode:  m.InviteCode,
		Status:      api.UserStatus(m.Status),
		Stats:       stats,
		CreatedAt:   timestamp(m.CreatedAt),
		UpdatedAt:   timestamp(m.UpdatedAt),
		LastLoginAt: optionalTimestamp(m.LastLoginAt),
	}
}

func adminDepositView(m models.Deposit) api.AdminDeposit {
	return api.AdminDeposit{
		ID:        m.ID,
		UserID:    m.UserID,
		UserName:  m.User.Name,
		UserPhone: m.User.Phone,
		Amount:    m.Amount,
		Status:    m.Status,
		TxID:      m.TxID,
		Network:   m.Network,
		CreatedAt: timestamp(m.CreatedAt),
		Notes:     m.Notes,
	}
}

func adminWithdrawalView(m models.Withdrawal) api.AdminWithdrawal {
	destination := m.Destination
	return api.AdminWithdrawal{
		ID:          m.ID,
		UserID:      m.UserID,
		UserName:    m.User.Name,
		UserPhone:   m.User.Phone,
		Amount:      m.Amount,
		Status:      m.Status,
		Destination: &destination,
		TxID:        m.TxID,
		CreatedAt:   timestamp(m.CreatedAt),
		Notes: map[string]any{
			"network":    m.Network,
			"reason":     m.Reason,
			"feePercent": m.FeePercent,
			"feeAmount":  m.FeeAmount,
			"totalDebit": m.TotalDebit,
		},
	}
}

func sellOrderView(m models.Statement) *api.SellOrder {
	return &api.SellOrder{
		ID:        m.ID,
		UserID:    m.UserID,
		UserName:  m.User.Name,
		UserPhone: m.User.Phone,
		EntryType: m.Type,
		Amount:    m.Amount,
		Metadata:  m.Metadata,
		CreatedAt: timestamp(m.CreatedAt),
	}
}
