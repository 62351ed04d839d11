package api

import (
	"context"
	"net/http"
)

// OTPRequestResult is returned when an OTP was sent
type OTPRequestResult struct {
	Message      string `json:"message"`
	ExpiresAt    int64  `json:"expiresAt"` // unix milliseconds
	DevOTP       string `json:"devOtp,omitempty"`
	RequiresName bool   `json:"requiresName"`
}

// RequestOTP asks the backend to send a login OTP to phone
func (c *Client) RequestOTP(ctx context.Context, phone string) (*OTPRequestResult, error) {
	var out OTPRequestResult
	body := map[string]string{"phone": phone}
	if err := c.do(ctx, http.MethodPost, "/auth/otp/request", nil, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// VerifyOTPInput is the OTP verification payload
type VerifyOTPInput struct {
	Phone        string `json:"phone"`
	OTP          string `json:"otp"`
	Name         string `json:"name,omitempty"`
	ReferralCode string `json:"referralCode,omitempty"`
}

// VerifyOTPResult is returned on successful login
type VerifyOTPResult struct {
	Token    string            `json:"token"`
	User     *User             `json:"user"`
	Settings *PlatformSettings `json:"settings"`
}

// VerifyOTP exchanges an OTP for a session
func (c *Client) VerifyOTP(ctx context.Context, in VerifyOTPInput) (*VerifyOTPResult, error) {
	var out VerifyOTPResult
	if err := c.do(ctx, http.MethodPost, "/auth/otp/verify", nil, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ProfileResult is the "who am I" response
type ProfileResult struct {
	User     *User             `json:"user"`
	Settings *PlatformSettings `json:"settings"`
}

// Me fetches the profile of the session owner
func (c *Client) Me(ctx context.Context) (*ProfileResult, error) {
	var out ProfileResult
	if err := c.do(ctx, http.MethodGet, "/auth/me", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Logout ends the user session on the backend
func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/auth/logout", nil, nil, nil)
}

// PublicSettings fetches the settings visible without a session
func (c *Client) PublicSettings(ctx context.Context) (*PlatformSettings, error) {
	var out struct {
		Settings *PlatformSettings `json:"settings"`
	}
	if err := c.do(ctx, http.MethodGet, "/public/settings", nil, nil, &out); err != nil {
		return nil, err
	}
	return out.Settings, nil
}

// RedeemResult is the outcome of a referral redemption
type RedeemResult struct {
	Amount float64 `json:"amount"`
	User   *User   `json:"user"`
}

// RedeemReferralRewards moves available referral rewards into the balance
func (c *Client) RedeemReferralRewards(ctx context.Context) (*RedeemResult, error) {
	var out RedeemResult
	if err := c.do(ctx, http.MethodPost, "/user/referrals/redeem", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AddWalletInput binds a withdrawal address
type AddWalletInput struct {
	Address string `json:"address"`
	Network string `json:"network,omitempty"`
	Label   string `json:"label,omitempty"`
}

// AddWallet binds a new withdrawal address
func (c *Client) AddWallet(ctx context.Context, in AddWalletInput) (*Wallet, error) {
	var out struct {
		Wallet *Wallet `json:"wallet"`
	}
	if err := c.do(ctx, http.MethodPost, "/user/wallets", nil, in, &out); err != nil {
		return nil, err
	}
	return out.Wallet, nil
}

// DeleteWallet removes a bound withdrawal address
func (c *Client) DeleteWallet(ctx context.Context, walletID string) error {
	return c.do(ctx, http.MethodDelete, "/user/wallets/"+pathID(walletID), nil, nil, nil)
}

// CreateDepositInput opens a deposit order
type CreateDepositInput struct {
	Amount  float64 `json:"amount"`
	Network string  `json:"network,omitempty"`
}

// CreateDeposit opens a deposit order
func (c *Client) CreateDeposit(ctx context.Context, in CreateDepositInput) (*Deposit, error) {
	var out struct {
		Deposit *Deposit `json:"deposit"`
	}
	if err := c.do(ctx, http.MethodPost, "/user/deposits", nil, in, &out); err != nil {
		return nil, err
	}
	return out.Deposit, nil
}

// CreateWithdrawalInput requests a withdrawal to a bound wallet
type CreateWithdrawalInput struct {
	Amount   float64 `json:"amount"`
	WalletID string  `json:"walletId"`
}

// CreateWithdrawal submits a withdrawal request
func (c *Client) CreateWithdrawal(ctx context.Context, in CreateWithdrawalInput) (*Withdrawal, error) {
	var out struct {
		Withdrawal *Withdrawal `json:"withdrawal"`
	}
	if err := c.do(ctx, http.MethodPost, "/user/withdrawals", nil, in, &out); err != nil {
		return nil, err
	}
	return out.Withdrawal, nil
}

// Withdrawal fetches the current state of a withdrawal
func (c *Client) Withdrawal(ctx context.Context, withdrawalID string) (*Withdrawal, error) {
	var out struct {
		Withdrawal *Withdrawal `json:"withdrawal"`
	}
	if err := c.do(ctx, http.MethodGet, "/user/withdrawals/"+pathID(withdrawalID), nil, nil, &out); err != nil {
		return nil, err
	}
	return out.Withdrawal, nil
}
