package forms

import (
	"strings"

	"github.com/crypgo-dev/crypgo-web/internal/api"
	"github.com/crypgo-dev/crypgo-web/internal/routes"
)

// OTPRequest is the phone step of the login page
type OTPRequest struct {
	Phone string `json:"phone" binding:"required" validate:"required,phone10"`
}

func (f *OTPRequest) normalize(clean func(string) string) {
	f.Phone = NormalizePhone(f.Phone)
}

// OTPVerify is the OTP step, plus the name step for new users
type OTPVerify struct {
	Phone        string `json:"phone" binding:"required" validate:"required,phone10"`
	OTP          string `json:"otp" binding:"required" validate:"required,otpcode"`
	Name         string `json:"name" validate:"omitempty,min=2,max=50"`
	ReferralCode string `json:"referralCode" validate:"omitempty,max=32,refcode"`
}

func (f *OTPVerify) normalize(clean func(string) string) {
	f.Phone = NormalizePhone(f.Phone)
	f.OTP = strings.TrimSpace(f.OTP)
	f.Name = clean(f.Name)
	f.ReferralCode = routes.NormalizeReferral(f.ReferralCode)
}

// Input converts the form to the backend payload
func (f *OTPVerify) Input() api.VerifyOTPInput {
	return api.VerifyOTPInput{
		Phone:        f.Phone,
		OTP:          f.OTP,
		Name:         f.Name,
		ReferralCode: f.ReferralCode,
	}
}

// AdminLogin is the admin sign-in form
type AdminLogin struct {
	Username string `json:"username" binding:"required" validate:"required,max=64"`
	Password string `json:"password" binding:"required" validate:"required,max=128"`
}

func (f *AdminLogin) normalize(clean func(string) string) {
	f.Username = strings.TrimSpace(f.Username)
}

// UserStatus changes an account status
type UserStatus struct {
	Status string `json:"status" binding:"required" validate:"required,oneof=ACTIVE FROZEN BLOCKED"`
}

func (f *UserStatus) normalize(clean func(string) string) {
	f.Status = strings.ToUpper(strings.TrimSpace(f.Status))
}

// UserBalance sets an account balance with an optional audit reason
type UserBalance struct {
	Balance *float64 `json:"balance" binding:"required" validate:"required,gte=0"`
	Reason  string   `json:"reason" validate:"max=200"`
}

func (f *UserBalance) normalize(clean func(string) string) {
	f.Reason = clean(f.Reason)
}

// WithdrawalDecision approves (with a transaction hash) or rejects (with a reason)
type WithdrawalDecision struct {
	TxID   string `json:"txId" validate:"max=128"`
	Reason string `json:"reason" validate:"max=500"`
}

func (f *WithdrawalDecision) normalize(clean func(string) string) {
	f.TxID = strings.TrimSpace(f.TxID)
	f.Reason = clean(f.Reason)
}

// SellOrderDecision completes or rejects a sell order
type SellOrderDecision struct {
	TxID      string   `json:"txId" validate:"max=128"`
	Note      string   `json:"note" validate:"max=500"`
	Reason    string   `json:"reason" validate:"max=500"`
	PayoutINR *float64 `json:"payoutInr" validate:"omitempty,gt=0"`
}

func (f *SellOrderDecision) normalize(clean func(string) string) {
	f.TxID = strings.TrimSpace(f.TxID)
	f.Note = clean(f.Note)
	f.Reason = clean(f.Reason)
}

// SettingsUpdate changes the platform settings; unset fields are left alone
type SettingsUpdate struct {
	api.UpdateSettingsInput
}

func (f *SettingsUpdate) normalize(clean func(string) string) {
	for i, addr := range f.DepositAddresses {
		f.DepositAddresses[i] = strings.TrimSpace(addr)
	}
	for i := range f.PricingTiers {
		f.PricingTiers[i].Range = clean(f.PricingTiers[i].Range)
		f.PricingTiers[i].Markup = clean(f.PricingTiers[i].Markup)
	}
}

// UserSearch filters the admin user list
type UserSearch struct {
	Search    string `form:"search" json:"search" validate:"max=100"`
	Limit     int    `form:"limit" json:"limit" validate:"omitempty,min=1,max=200"`
	Offset    int    `form:"offset" json:"offset" validate:"gte=0"`
	StartDate string `form:"startDate" json:"startDate" validate:"omitempty,datetime=2006-01-02"`
	EndDate   string `form:"endDate" json:"endDate" validate:"omitempty,datetime=2006-01-02"`
}

func (f *UserSearch) normalize(clean func(string) string) {
	f.Search = clean(f.Search)
}

// Query converts the form to the backend query
func (f *UserSearch) Query() api.UserQuery {
	return api.UserQuery{
		Search:    f.Search,
		Limit:     f.Limit,
		Offset:    f.Offset,
		StartDate: f.StartDate,
		EndDate:   f.EndDate,
	}
}

// TransactionFilter filters the transactions overview
type TransactionFilter struct {
	Limit     int    `form:"limit" json:"limit" validate:"omitempty,min=1,max=500"`
	StartDate string `form:"startDate" json:"startDate" validate:"omitempty,datetime=2006-01-02"`
	EndDate   string `form:"endDate" json:"endDate" validate:"omitempty,datetime=2006-01-02"`
}

// Query converts the form to the backend query
func (f *TransactionFilter) Query() api.TransactionQuery {
	return api.TransactionQuery{
		Limit:     f.Limit,
		StartDate: f.StartDate,
		EndDate:   f.EndDate,
	}
}

// WalletAdd binds a withdrawal address
type WalletAdd struct {
	Address string `json:"address" binding:"required" validate:"required,min=26,max=64,alphanum"`
	Network string `json:"network" validate:"omitempty,oneof=TRC20"`
	Label   string `json:"label" validate:"max=50"`
}

func (f *WalletAdd) normalize(clean func(string) string) {
	f.Address = strings.TrimSpace(f.Address)
	f.Network = strings.ToUpper(strings.TrimSpace(f.Network))
	if f.Network == "" {
		f.Network = DefaultNetwork
	}
	f.Label = clean(f.Label)
}

// Input converts the form to the backend payload
func (f *WalletAdd) Input() api.AddWalletInput {
	return api.AddWalletInput{Address: f.Address, Network: f.Network, Label: f.Label}
}

// DepositCreate opens a deposit order
type DepositCreate struct {
	Amount  *float64 `json:"amount" binding:"required" validate:"required,gt=0"`
	Network string   `json:"network" validate:"omitempty,oneof=TRC20"`
}

func (f *DepositCreate) normalize(clean func(string) string) {
	f.Network = strings.ToUpper(strings.TrimSpace(f.Network))
	if f.Network == "" {
		f.Network = DefaultNetwork
	}
}

// Input converts the form to the backend payload
func (f *DepositCreate) Input() api.CreateDepositInput {
	return api.CreateDepositInput{Amount: *f.Amount, Network: f.Network}
}

// WithdrawalCreate requests a withdrawal to a bound wallet
type WithdrawalCreate struct {
	Amount   *float64 `json:"amount" binding:"required" validate:"required,gt=0"`
	WalletID string   `json:"walletId" binding:"required" validate:"required,max=64"`
}

func (f *WithdrawalCreate) normalize(clean func(string) string) {
	f.WalletID = strings.TrimSpace(f.WalletID)
}

// Input converts the form to the backend payload
func (f *WithdrawalCreate) Input() api.CreateWithdrawalInput {
	return api.CreateWithdrawalInput{Amount: *f.Amount, WalletID: f.WalletID}
}
