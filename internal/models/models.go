// Package models holds the gorm models of the development backend.
package models

import (
	"time"

	"github.com/oklog/ulid/v2"
	"gorm.io/gorm"
)

// User statuses
const (
	StatusActive  = "ACTIVE"
	StatusFrozen  = "FROZEN"
	StatusBlocked = "BLOCKED"
)

// Order statuses shared by deposits, withdrawals, invites and sell orders
const (
	OrderPending   = "PENDING"
	OrderCompleted = "COMPLETED"
	OrderRejected  = "REJECTED"
	OrderFailed    = "FAILED"
)

// Statement types
const (
	StatementDeposit          = "DEPOSIT"
	StatementWithdrawal       = "WITHDRAWAL"
	StatementWithdrawalRefund = "WITHDRAWAL_REFUND"
	StatementReferralReward   = "REFERRAL_REWARD"
	StatementAdjustment       = "ADMIN_ADJUSTMENT"
	StatementSellOrder        = "SELL_ORDER"
	StatementSellOrderRefund  = "SELL_ORDER_REFUND"
)

// BaseModel provides common fields and auto-generated ULID for all models
type BaseModel struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(26)"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
}

// BeforeCreate generates a ULID for the ID field if it's empty
func (b *BaseModel) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = ulid.Make().String()
	}
	return nil
}

// User is an exchange customer identified by phone number
type User struct {
	BaseModel
	Phone        string     `gorm:"uniqueIndex;not null"`
	Name         string     `gorm:"not null"`
	Role         string     `gorm:"not null;default:USER"`
	AvatarURL    *string
	Balance      float64    `gorm:"not null;default:0"`
	Currency     string     `gorm:"not null;default:USDT"`
	InviteCode   string     `gorm:"uniqueIndex;not null"`
	ReferredByID *string    `gorm:"type:varchar(26)"`
	Status       string     `gorm:"not null;default:ACTIVE"`
	LastLoginAt  *time.Time
	UpdatedAt    time.Time `gorm:"autoUpdateTime"`

	// Relationships
	Wallets     []Wallet     `gorm:"foreignKey:UserID"`
	Statements  []Statement  `gorm:"foreignKey:UserID"`
	Deposits    []Deposit    `gorm:"foreignKey:UserID"`
	Withdrawals []Withdrawal `gorm:"foreignKey:UserID"`
}

// OTP is the pending login code of a phone number. One row per phone.
type OTP struct {
	Phone       string    `gorm:"primaryKey"`
	Code        string    `gorm:"not null"`
	ExpiresAt   time.Time `gorm:"not null"`
	RequestedAt time.Time `gorm:"not null"`
	Attempts    int       `gorm:"not null;default:0"`
}

// Admin is an operator account of the admin console
type Admin struct {
	BaseModel
	Username     string `gorm:"uniqueIndex;not null"`
	PasswordHash string `gorm:"not null"`
	Role         string `gorm:"not null;default:ADMIN"`
}

// Wallet is a withdrawal address bound by a user
type Wallet struct {
	BaseModel
	UserID  string `gorm:"type:varchar(26);index;not null"`
	Address string `gorm:"not null"`
	Network string `gorm:"not null;default:TRC20"`
	Label   string
}

// Deposit is an incoming USDT order
type Deposit struct {
	BaseModel
	UserID  string  `gorm:"type:varchar(26);index;not null"`
	Amount  float64 `gorm:"not null"`
	Status  string  `gorm:"not null;default:PENDING"`
	TxID    *string
	Network *string
	Notes   map[string]any `gorm:"serializer:json"`

	User User `gorm:"foreignKey:UserID"`
}

// Withdrawal is an outgoing USDT order. The total debit is held from the
// balance when requested and refunded on rejection.
type Withdrawal struct {
	BaseModel
	UserID      string  `gorm:"type:varchar(26);index;not null"`
	WalletID    string  `gorm:"type:varchar(26);not null"`
	Amount      float64 `gorm:"not null"`
	Status      string  `gorm:"not null;default:PENDING"`
	Destination string  `gorm:"not null"`
	Network     string  `gorm:"not null"`
	Label       string
	TxID        *string
	Reason      string
	FeePercent  float64 `gorm:"not null;default:0"`
	FeeAmount   float64 `gorm:"not null;default:0"`
	TotalDebit  float64 `gorm:"not null"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime"`

	User User `gorm:"foreignKey:UserID"`
}

// Statement is a ledger entry. Sell orders are statements of type SELL_ORDER
// whose metadata carries their status.
type Statement struct {
	BaseModel
	UserID   string         `gorm:"type:varchar(26);index;not null"`
	Type     string         `gorm:"index;not null"`
	Amount   float64        `gorm:"not null"`
	Metadata map[string]any `gorm:"serializer:json"`

	User User `gorm:"foreignKey:UserID"`
}

// Invite links a referred user to the user whose code they used
type Invite struct {
	BaseModel
	InviterID      string  `gorm:"type:varchar(26);index;not null"`
	InviteeID      string  `gorm:"type:varchar(26);uniqueIndex;not null"`
	Status         string  `gorm:"not null;default:PENDING"`
	Reward         float64 `gorm:"not null;default:0"`
	RewardRedeemed float64 `gorm:"not null;default:0"`

	Invitee User `gorm:"foreignKey:InviteeID"`
}

// PricingTier is one row of the pricing table
type PricingTier struct {
	Range  string `json:"range"`
	Markup string `json:"markup"`
}

// Settings is the platform settings singleton (ID 1)
type Settings struct {
	ID               int           `gorm:"primaryKey"`
	BaseRate         float64       `gorm:"not null"`
	PricingTiers     []PricingTier `gorm:"serializer:json"`
	DepositAddresses []string      `gorm:"serializer:json"`
	InviteCommission float64       `gorm:"not null;default:0"`
	UpdatedAt        time.Time     `gorm:"autoUpdateTime"`
}

// AutoMigrate runs database migrations for all models
func AutoMigrate(db *gorm.DB) error {
	// Collect all models
	models := []interface{}{
		&User{}, &OTP{}, &Admin{}, &Wallet{}, &Deposit{}, &Withdrawal{},
		&Statement{}, &Invite{}, &Settings{},
	}

	return db.AutoMigrate(models...)
}

// FindByID safely finds a record by string ID
func FindByID[T any](db *gorm.DB, id string, model *T) error {
	return db.Where("id = ?", id).First(model).Error
}
