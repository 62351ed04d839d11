package api

import (
	"math"
	"strconv"
	"strings"
)

// UserStatus is the account status managed by admins
type UserStatus string

const (
	UserActive  UserStatus = "ACTIVE"
	UserFrozen  UserStatus = "FROZEN"
	UserBlocked UserStatus = "BLOCKED"
)

// Withdrawal statuses
const (
	WithdrawalPending   = "PENDING"
	WithdrawalCompleted = "COMPLETED"
	WithdrawalRejected  = "REJECTED"
	WithdrawalFailed    = "FAILED"
)

// PricingTier is one row of the platform pricing table
type PricingTier struct {
	Range  string `json:"range" validate:"required"`
	Markup string `json:"markup" validate:"required"`
}

// PlatformSettings are the platform-wide values configured by admins
type PlatformSettings struct {
	ID               int           `json:"id"`
	BaseRate         float64       `json:"baseRate"`
	PricingTiers     []PricingTier `json:"pricingTiers"`
	DepositAddresses []string      `json:"depositAddresses"`
	InviteCommission float64       `json:"inviteCommission"`
	UpdatedAt        *string       `json:"updatedAt"`
}

// Wallet is a bound withdrawal address
type Wallet struct {
	ID        string `json:"id"`
	Address   string `json:"address"`
	Network   string `json:"network"`
	Label     string `json:"label,omitempty"`
	CreatedAt string `json:"createdAt"`
}

// Statement is a ledger entry shown in the user's history
type Statement struct {
	ID        string         `json:"id"`
	Type      string         `json:"type"`
	Amount    float64        `json:"amount"`
	Metadata  map[string]any `json:"metadata"`
	CreatedAt string         `json:"createdAt"`
}

// Deposit is a USDT deposit order
type Deposit struct {
	ID        string         `json:"id"`
	Amount    float64        `json:"amount"`
	Status    string         `json:"status"`
	TxID      *string        `json:"txId"`
	Network   *string        `json:"network"`
	CreatedAt string         `json:"createdAt"`
	Notes     map[string]any `json:"notes,omitempty"`
}

// WithdrawalMetadata carries fee and review details computed by the backend
type WithdrawalMetadata struct {
	Network    string   `json:"network,omitempty"`
	Label      string   `json:"label,omitempty"`
	Reason     string   `json:"reason,omitempty"`
	Status     string   `json:"status,omitempty"`
	FeePercent *float64 `json:"feePercent,omitempty"`
	FeeAmount  *float64 `json:"feeAmount,omitempty"`
	TotalDebit *float64 `json:"totalDebit,omitempty"`
}

// Withdrawal is a USDT withdrawal order
type Withdrawal struct {
	ID          string              `json:"id"`
	Amount      float64             `json:"amount"`
	Status      string              `json:"status"`
	Destination *string             `json:"destination"`
	TxID        *string             `json:"txId"`
	CreatedAt   string              `json:"createdAt"`
	Metadata    *WithdrawalMetadata `json:"metadata"`
}

// Invite is one referral made by the user
type Invite struct {
	ID             string  `json:"id"`
	InviteePhone   string  `json:"inviteePhone,omitempty"`
	InviteeName    string  `json:"inviteeName,omitempty"`
	Status         string  `json:"status"`
	Reward         float64 `json:"reward"`
	RewardRedeemed float64 `json:"rewardRedeemed"`
	CreatedAt      string  `json:"createdAt"`
}

// InviteSummary aggregates the referral programme for a user
type InviteSummary struct {
	Code              string   `json:"code"`
	List              []Invite `json:"list"`
	Total             int      `json:"total"`
	Completed         int      `json:"completed"`
	Pending           int      `json:"pending"`
	TotalReward       float64  `json:"totalReward"`
	RedeemedReward    float64  `json:"redeemedReward"`
	AvailableReward   float64  `json:"availableReward"`
	PayoutThreshold   float64  `json:"payoutThreshold"`
	EligibleForPayout bool     `json:"eligibleForPayout"`
}

// User is the profile returned by the backend for the signed-in visitor
type User struct {
	ID          string        `json:"id"`
	Phone       string        `json:"phone"`
	Name        string        `json:"name"`
	Role        string        `json:"role"`
	AvatarURL   *string       `json:"avatarUrl"`
	Balance     float64       `json:"balance"`
	Currency    string        `json:"currency"`
	InviteCode  string        `json:"inviteCode"`
	Status      UserStatus    `json:"status"`
	Wallets     []Wallet      `json:"wallets"`
	Statements  []Statement   `json:"statements"`
	Deposits    []Deposit     `json:"deposits"`
	Withdrawals []Withdrawal  `json:"withdrawals"`
	Invites     InviteSummary `json:"invites"`
	CreatedAt   string        `json:"createdAt"`
}

// AdminSession identifies the signed-in admin
type AdminSession struct {
	Username string `json:"username"`
	Role     string `json:"role"`
}

// AdminUserStats are per-user aggregates shown in the admin console
type AdminUserStats struct {
	TotalDeposits    float64 `json:"totalDeposits"`
	TotalWithdrawals float64 `json:"totalWithdrawals"`
	Tier             string  `json:"tier"`
}

// AdminUser is a user as seen from the admin console
type AdminUser struct {
	ID          string         `json:"id"`
	Phone       string         `json:"phone"`
	Role        string         `json:"role"`
	Name        string         `json:"name"`
	AvatarURL   *string        `json:"avatarUrl"`
	Balance     float64        `json:"balance"`
	Currency    string         `json:"currency"`
	InviteCode  string         `json:"inviteCode"`
	Status      UserStatus     `json:"status"`
	Stats       AdminUserStats `json:"stats"`
	CreatedAt   string         `json:"createdAt"`
	UpdatedAt   string         `json:"updatedAt"`
	LastLoginAt *string        `json:"lastLoginAt"`
}

// AdminUserList is one page of the user search
type AdminUserList struct {
	Users []AdminUser `json:"users"`
	Total int         `json:"total"`
}

// UserRelations are the ledger records attached to a single user
type UserRelations struct {
	Statements  []Statement  `json:"statements"`
	Deposits    []Deposit    `json:"deposits"`
	Withdrawals []Withdrawal `json:"withdrawals"`
	Invites     []Invite     `json:"invites"`
}

// AdminDeposit is a deposit row of the transactions overview
type AdminDeposit struct {
	ID        string         `json:"id"`
	UserID    string         `json:"userId"`
	UserName  string         `json:"userName"`
	UserPhone string         `json:"userPhone"`
	Amount    float64        `json:"amount"`
	Status    string         `json:"status"`
	TxID      *string        `json:"txId"`
	Network   *string        `json:"network"`
	CreatedAt string         `json:"createdAt"`
	Notes     map[string]any `json:"notes"`
}

// AdminWithdrawal is a withdrawal row of the transactions overview
type AdminWithdrawal struct {
	ID          string         `json:"id"`
	UserID      string         `json:"userId"`
	UserName    string         `json:"userName"`
	UserPhone   string         `json:"userPhone"`
	Amount      float64        `json:"amount"`
	Status      string         `json:"status"`
	Destination *string        `json:"destination"`
	TxID        *string        `json:"txId"`
	CreatedAt   string         `json:"createdAt"`
	Notes       map[string]any `json:"notes"`
}

// SellOrder is a USDT→INR sell request awaiting payout
type SellOrder struct {
	ID        string         `json:"id"`
	UserID    string         `json:"userId"`
	UserName  string         `json:"userName"`
	UserPhone string         `json:"userPhone"`
	EntryType string         `json:"entryType"`
	Amount    float64        `json:"amount"`
	Metadata  map[string]any `json:"metadata"`
	CreatedAt string         `json:"createdAt"`
}

// AdminTransactions is the transactions overview of the admin dashboard
type AdminTransactions struct {
	Deposits    []AdminDeposit    `json:"deposits"`
	Withdrawals []AdminWithdrawal `json:"withdrawals"`
	SellOrders  []SellOrder       `json:"sellOrders"`
}

// WalletBalances are the platform hot wallet totals
type WalletBalances struct {
	USDT float64 `json:"usdt"`
	INR  float64 `json:"inr"`
}

// AdminMetrics are the dashboard counters
type AdminMetrics struct {
	TotalUsers         int            `json:"totalUsers"`
	TotalUSDT          float64        `json:"totalUsdt"`
	TotalINR           float64        `json:"totalInr"`
	PendingWithdrawals int            `json:"pendingWithdrawals"`
	PendingDeposits    int            `json:"pendingDeposits"`
	PendingSellOrders  int            `json:"pendingSellOrders"`
	WalletBalances     WalletBalances `json:"walletBalances"`
}

// Number decodes a JSON number, a numeric string or null. Anything that does
// not parse to a finite number becomes 0.
type Number float64

func (n *Number) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if raw == "null" || raw == "" {
		*n = 0
		return nil
	}
	if unquoted, err := strconv.Unquote(raw); err == nil {
		raw = strings.TrimSpace(unquoted)
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		*n = 0
		return nil
	}
	*n = Number(v)
	return nil
}

// metricsPayload is the loosely typed wire form of AdminMetrics
type metricsPayload struct {
	TotalUsers         Number `json:"totalUsers"`
	TotalUSDT          Number `json:"totalUsdt"`
	TotalINR           Number `json:"totalInr"`
	PendingWithdrawals Number `json:"pendingWithdrawals"`
	PendingDeposits    Number `json:"pendingDeposits"`
	PendingSellOrders  Number `json:"pendingSellOrders"`
	WalletBalances     *struct {
		USDT Number `json:"usdt"`
		INR  Number `json:"inr"`
	} `json:"walletBalances"`
}

func (p metricsPayload) normalize() *AdminMetrics {
	m := &AdminMetrics{
		TotalUsers:         int(p.TotalUsers),
		TotalUSDT:          float64(p.TotalUSDT),
		TotalINR:           float64(p.TotalINR),
		PendingWithdrawals: int(p.PendingWithdrawals),
		PendingDeposits:    int(p.PendingDeposits),
		PendingSellOrders:  int(p.PendingSellOrders),
	}
	if p.WalletBalances != nil {
		m.WalletBalances = WalletBalances{
			USDT: float64(p.WalletBalances.USDT),
			INR:  float64(p.WalletBalances.INR),
		}
	}
	return m
}
