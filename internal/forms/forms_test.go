package forms

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crypgo-dev/crypgo-web/internal/api"
)

func TestNormalizePhone(t *testing.T) {
	tests := map[string]string{
		"9876543210":        "9876543210",
		"+91 98765-43210":   "9198765432",
		"98 76 54 32 10 99": "9876543210",
		"abc":               "",
		"":                  "",
	}
	for in, want := range tests {
		assert.Equal(t, want, NormalizePhone(in), in)
	}
}

func TestMaskPhone(t *testing.T) {
	assert.Equal(t, "98****3210", MaskPhone("9876543210"))
	assert.Equal(t, "123", MaskPhone("123"))
}

func TestOTPRequest(t *testing.T) {
	v := New()

	form := &OTPRequest{Phone: "98765 43210"}
	require.NoError(t, v.Validate(form))
	assert.Equal(t, "9876543210", form.Phone)

	err := v.Validate(&OTPRequest{Phone: "12345"})
	require.Error(t, err)
	assert.True(t, api.IsValidation(err))
	assert.Equal(t, "Enter a valid 10-digit phone number", api.Message(err))

	err = v.Validate(&OTPRequest{})
	require.Error(t, err)
	assert.Equal(t, "phone is required", api.Message(err))
}

func TestOTPVerify(t *testing.T) {
	v := New()

	tests := []struct {
		name    string
		form    OTPVerify
		wantErr string
	}{
		{"existing user", OTPVerify{Phone: "9876543210", OTP: "1234"}, ""},
		{"six digit otp", OTPVerify{Phone: "9876543210", OTP: "123456"}, ""},
		{"new user with name", OTPVerify{Phone: "9876543210", OTP: "1234", Name: "  Asha  "}, ""},
		{"short otp", OTPVerify{Phone: "9876543210", OTP: "12"}, "Enter the OTP sent to your phone"},
		{"letters in otp", OTPVerify{Phone: "9876543210", OTP: "12a4"}, "Enter the OTP sent to your phone"},
		{"one letter name", OTPVerify{Phone: "9876543210", OTP: "1234", Name: "A"}, "name must be at least 2 characters"},
		{"bad referral", OTPVerify{Phone: "9876543210", OTP: "1234", ReferralCode: "AB-12"}, "Referral code may only contain letters and digits"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			form := tt.form
			err := v.Validate(&form)
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.wantErr, api.Message(err))
		})
	}
}

func TestOTPVerifyNormalizes(t *testing.T) {
	v := New()
	form := &OTPVerify{
		Phone:        "98765-43210",
		OTP:          " 1234 ",
		Name:         "<b>Asha</b> Rao",
		ReferralCode: " ab12cd ",
	}
	require.NoError(t, v.Validate(form))

	in := form.Input()
	assert.Equal(t, "9876543210", in.Phone)
	assert.Equal(t, "1234", in.OTP)
	assert.Equal(t, "Asha Rao", in.Name)
	assert.Equal(t, "AB12CD", in.ReferralCode)
}

func TestSanitizeKeepsPlainText(t *testing.T) {
	v := New()
	assert.Equal(t, "Tom & Jerry", v.Sanitize("Tom & Jerry"))
	assert.Equal(t, "", v.Sanitize("<script>alert(1)</script>"))
}

func TestAdminForms(t *testing.T) {
	v := New()

	status := &UserStatus{Status: " frozen "}
	require.NoError(t, v.Validate(status))
	assert.Equal(t, "FROZEN", status.Status)

	err := v.Validate(&UserStatus{Status: "DELETED"})
	require.Error(t, err)
	assert.Equal(t, "status must be one of ACTIVE FROZEN BLOCKED", api.Message(err))

	err = v.Validate(&UserBalance{Reason: "x"})
	require.Error(t, err)
	assert.Equal(t, "balance is required", api.Message(err))

	negative := -5.0
	err = v.Validate(&UserBalance{Balance: &negative})
	require.Error(t, err)
	assert.Equal(t, "balance must be 0 or more", api.Message(err))

	zero := 0.0
	balance := &UserBalance{Balance: &zero, Reason: "<i>chargeback</i>"}
	require.NoError(t, v.Validate(balance))
	assert.Equal(t, "chargeback", balance.Reason)

	payout := 0.0
	err = v.Validate(&SellOrderDecision{PayoutINR: &payout})
	require.Error(t, err)
	assert.Equal(t, "payoutInr must be greater than 0", api.Message(err))

	require.NoError(t, v.Validate(&WithdrawalDecision{TxID: " 0xabc "}))
	require.NoError(t, v.Validate(&AdminLogin{Username: "ops", Password: "secret"}))
}

func TestUserSearchDates(t *testing.T) {
	v := New()

	require.NoError(t, v.Validate(&UserSearch{StartDate: "2024-01-31", EndDate: "2024-02-29"}))

	err := v.Validate(&UserSearch{StartDate: "31/01/2024"})
	require.Error(t, err)
	assert.Equal(t, "startDate must be a date (YYYY-MM-DD)", api.Message(err))

	err = v.Validate(&TransactionFilter{Limit: 1000})
	require.Error(t, err)
	assert.Equal(t, "limit must be at most 500", api.Message(err))
}

func TestSettingsUpdate(t *testing.T) {
	v := New()
	rate := 88.5

	form := &SettingsUpdate{}
	form.BaseRate = &rate
	form.DepositAddresses = []string{" TXYZ "}
	form.PricingTiers = []api.PricingTier{{Range: "0-1000", Markup: "<b>1%</b>"}}
	require.NoError(t, v.Validate(form))
	assert.Equal(t, "TXYZ", form.DepositAddresses[0])
	assert.Equal(t, "1%", form.PricingTiers[0].Markup)

	bad := -1.0
	form = &SettingsUpdate{}
	form.BaseRate = &bad
	err := v.Validate(form)
	require.Error(t, err)
	assert.Equal(t, "baseRate must be greater than 0", api.Message(err))

	form = &SettingsUpdate{}
	form.PricingTiers = []api.PricingTier{{Range: "", Markup: "1%"}}
	err = v.Validate(form)
	require.Error(t, err)
	assert.Equal(t, "range is required", api.Message(err))
}

func TestWalletAdd(t *testing.T) {
	v := New()

	form := &WalletAdd{Address: "  TQn9Y2khEsLJW1ChVWFMSMeRDow5KcbLSE ", Label: "<i>main</i>"}
	require.NoError(t, v.Validate(form))
	assert.Equal(t, "TQn9Y2khEsLJW1ChVWFMSMeRDow5KcbLSE", form.Address)
	assert.Equal(t, DefaultNetwork, form.Network)
	assert.Equal(t, "main", form.Label)

	err := v.Validate(&WalletAdd{Address: "TQn9Y2khEsLJW1ChVWFMSMeRDow5KcbLSE", Network: "erc20"})
	require.Error(t, err)
	assert.Equal(t, "network must be one of TRC20", api.Message(err))

	err = v.Validate(&WalletAdd{Address: "short"})
	require.Error(t, err)
	assert.Equal(t, "address must be at least 26 characters", api.Message(err))
}

func TestDepositAndWithdrawalAmounts(t *testing.T) {
	v := New()
	amount := 150.0
	zero := 0.0

	deposit := &DepositCreate{Amount: &amount}
	require.NoError(t, v.Validate(deposit))
	assert.Equal(t, api.CreateDepositInput{Amount: 150, Network: DefaultNetwork}, deposit.Input())

	err := v.Validate(&DepositCreate{Amount: &zero})
	require.Error(t, err)
	assert.Equal(t, "amount must be greater than 0", api.Message(err))

	err = v.Validate(&WithdrawalCreate{Amount: &amount})
	require.Error(t, err)
	assert.Equal(t, "walletId is required", api.Message(err))

	withdrawal := &WithdrawalCreate{Amount: &amount, WalletID: " w1 "}
	require.NoError(t, v.Validate(withdrawal))
	assert.Equal(t, api.CreateWithdrawalInput{Amount: 150, WalletID: "w1"}, withdrawal.Input())
}
