package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crypgo-dev/crypgo-web/internal/api"
	"github.com/crypgo-dev/crypgo-web/internal/cli/auth"
	"github.com/crypgo-dev/crypgo-web/internal/cli/userconfig"
	"github.com/crypgo-dev/crypgo-web/internal/config"
	"github.com/crypgo-dev/crypgo-web/internal/devbackend"
)

const (
	userCookie  = "crypgo_token"
	adminCookie = "crypgo_admin_token"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// mockTokenStore is a simple in-memory token store for testing
type mockTokenStore struct {
	tokens map[string]string
}

func newMockTokenStore() *mockTokenStore {
	return &mockTokenStore{
		tokens: make(map[string]string),
	}
}

func (m *mockTokenStore) SaveToken(backendURL, token string) error {
	m.tokens[backendURL] = token
	return nil
}

func (m *mockTokenStore) LoadToken(backendURL string) (string, error) {
	token, exists := m.tokens[backendURL]
	if !exists {
		return "", auth.ErrNotAuthenticated
	}
	return token, nil
}

func (m *mockTokenStore) DeleteToken(backendURL string) error {
	delete(m.tokens, backendURL)
	return nil
}

type testEnv struct {
	*Env
	tokens *mockTokenStore
	out    *bytes.Buffer
}

// newTestEnv starts a development backend and returns an Env pointing at it
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	t.Setenv("CRYPGO_ADMIN_USERNAME", "")
	t.Setenv("CRYPGO_ADMIN_PASSWORD", "")

	db, err := devbackend.OpenDatabase(devbackend.MemoryDatabase, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	backend, err := devbackend.New(&config.Config{
		Environment: "development",
		Cookies:     config.CookieConfig{User: userCookie, Admin: adminCookie, MaxAge: time.Hour},
		DevBackend: config.DevBackendConfig{
			JWTSecret:     "cli-secret",
			AdminUsername: "admin",
			AdminPassword: "admin123",
		},
	}, db, zerolog.Nop())
	require.NoError(t, err)

	srv := httptest.NewServer(backend.Handler())
	t.Cleanup(srv.Close)

	tokens := newMockTokenStore()
	out := &bytes.Buffer{}
	return &testEnv{
		Env: &Env{
			BackendURL:   srv.URL,
			CookieName:   adminCookie,
			Timeout:      5 * time.Second,
			Tokens:       tokens,
			Out:          out,
			ReadPassword: func() (string, error) { return "admin123", nil },
			Logger:       zerolog.Nop(),
		},
		tokens: tokens,
		out:    out,
	}
}

// execute runs cmd with args and returns what it printed
func (e *testEnv) execute(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()
	e.out.Reset()
	cmd.SetArgs(args)
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	err := cmd.ExecuteContext(context.Background())
	return e.out.String(), err
}

func (e *testEnv) login(t *testing.T) {
	t.Helper()
	_, err := e.execute(t, NewLoginCmd(e.Env), "--username", "admin")
	require.NoError(t, err)
}

// signUp registers a user through the backend and returns a client holding its session
func (e *testEnv) signUp(t *testing.T, phone, name string) (*api.Client, *api.User) {
	t.Helper()
	ctx := context.Background()
	client := api.New(e.BackendURL+"/api", 5*time.Second, zerolog.Nop())

	otp, err := client.RequestOTP(ctx, phone)
	require.NoError(t, err)
	res, err := client.VerifyOTP(ctx, api.VerifyOTPInput{Phone: phone, OTP: otp.DevOTP, Name: name})
	require.NoError(t, err)
	return client, res.User
}

func TestLoginStoresSession(t *testing.T) {
	env := newTestEnv(t)

	out, err := env.execute(t, NewLoginCmd(env.Env), "--username", "admin")
	require.NoError(t, err)
	assert.Contains(t, out, "Login successful")
	assert.Contains(t, out, "Admin: admin")
	assert.NotEmpty(t, env.tokens.tokens[env.BackendURL])

	saved, err := userconfig.Load()
	require.NoError(t, err)
	assert.Equal(t, env.BackendURL, saved.BackendURL)
	assert.Equal(t, "admin", saved.Username)

	// The remembered username is used when none is given
	out, err = env.execute(t, NewLoginCmd(env.Env))
	require.NoError(t, err)
	assert.Contains(t, out, "Login successful")

	out, err = env.execute(t, NewWhoamiCmd(env.Env))
	require.NoError(t, err)
	assert.Contains(t, out, "admin")
}

func TestLoginFailures(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.execute(t, NewLoginCmd(env.Env))
	require.Error(t, err)
	assert.Equal(t, "username is required (use --username flag or CRYPGO_ADMIN_USERNAME env var)", err.Error())

	_, err = env.execute(t, NewLoginCmd(env.Env), "--username", "admin", "--password", "wrong")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid username or password")
	assert.Empty(t, env.tokens.tokens)

	env.ReadPassword = func() (string, error) { return "", fmt.Errorf("no terminal") }
	_, err = env.execute(t, NewLoginCmd(env.Env), "--username", "admin")
	assert.EqualError(t, err, "no terminal")
}

func TestCommandsRequireLogin(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.execute(t, NewMetricsCmd(env.Env))
	assert.ErrorIs(t, err, auth.ErrNotAuthenticated)

	out, err := env.execute(t, NewLogoutCmd(env.Env))
	require.NoError(t, err)
	assert.Contains(t, out, "Not logged in.")
}

func TestRejectedSessionIsDropped(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.tokens.SaveToken(env.BackendURL, "not-a-jwt"))

	_, err := env.execute(t, NewMetricsCmd(env.Env))
	assert.ErrorIs(t, err, ErrSessionExpired)
	assert.Empty(t, env.tokens.tokens)

	require.NoError(t, env.tokens.SaveToken(env.BackendURL, "not-a-jwt"))
	_, err = env.execute(t, NewWhoamiCmd(env.Env))
	assert.ErrorIs(t, err, ErrSessionExpired)
	assert.Empty(t, env.tokens.tokens)
}

func TestUnreachableBackend(t *testing.T) {
	env := newTestEnv(t)
	env.BackendURL = "http://127.0.0.1:1"
	require.NoError(t, env.tokens.SaveToken(env.BackendURL, "token"))

	_, err := env.execute(t, NewMetricsCmd(env.Env))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot reach backend at http://127.0.0.1:1")
}

func TestMetricsAndUsers(t *testing.T) {
	env := newTestEnv(t)
	env.signUp(t, "9876543210", "Asha")
	env.signUp(t, "9123456780", "Ravi")
	env.login(t)

	out, err := env.execute(t, NewMetricsCmd(env.Env))
	require.NoError(t, err)
	assert.Regexp(t, `Total users\s+2`, out)

	out, err = env.execute(t, NewUsersCmd(env.Env), "--search", "asha")
	require.NoError(t, err)
	assert.Contains(t, out, "Asha")
	assert.NotContains(t, out, "Ravi")
	assert.Contains(t, out, "Showing 1-1 of 1 users")

	out, err = env.execute(t, NewUsersCmd(env.Env), "--search", "nobody")
	require.NoError(t, err)
	assert.Contains(t, out, "No users found.")

	_, err = env.execute(t, NewUsersCmd(env.Env), "--start", "18/10/2026")
	require.Error(t, err)
	assert.True(t, api.IsValidation(err))

	env.JSON = true
	out, err = env.execute(t, NewUsersCmd(env.Env))
	require.NoError(t, err)
	var list api.AdminUserList
	require.NoError(t, json.Unmarshal([]byte(out), &list))
	assert.Equal(t, 2, list.Total)
	assert.Len(t, list.Users, 2)
}

func TestUserStatusAndBalance(t *testing.T) {
	env := newTestEnv(t)
	_, user := env.signUp(t, "9876543210", "Asha")
	env.login(t)

	out, err := env.execute(t, NewUserStatusCmd(env.Env), user.ID, "frozen")
	require.NoError(t, err)
	assert.Contains(t, out, "Asha is now FROZEN")

	_, err = env.execute(t, NewUserStatusCmd(env.Env), user.ID, "deleted")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status must be one of")

	out, err = env.execute(t, NewUserBalanceCmd(env.Env), user.ID, "150", "--reason", "manual credit")
	require.NoError(t, err)
	assert.Contains(t, out, "balance set to 150.00 USDT")

	_, err = env.execute(t, NewUserBalanceCmd(env.Env), user.ID, "lots")
	assert.EqualError(t, err, `invalid balance "lots": must be a number`)

	out, err = env.execute(t, NewUserCmd(env.Env), user.ID)
	require.NoError(t, err)
	assert.Regexp(t, `Status\s+FROZEN`, out)
	assert.Regexp(t, `Balance\s+150.00 USDT`, out)

	_, err = env.execute(t, NewUserCmd(env.Env), "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "User not found")
}

func TestWithdrawalReview(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	client, user := env.signUp(t, "9876543210", "Asha")
	env.login(t)

	_, err := env.execute(t, NewUserBalanceCmd(env.Env), user.ID, "300")
	require.NoError(t, err)

	wallet, err := client.AddWallet(ctx, api.AddWalletInput{Address: "TQn9Y2khEsLJW1ChVWFMSMeRDow5KcbLSE", Network: "TRC20"})
	require.NoError(t, err)
	first, err := client.CreateWithdrawal(ctx, api.CreateWithdrawalInput{Amount: 100, WalletID: wallet.ID})
	require.NoError(t, err)
	second, err := client.CreateWithdrawal(ctx, api.CreateWithdrawalInput{Amount: 50, WalletID: wallet.ID})
	require.NoError(t, err)

	out, err := env.execute(t, NewMetricsCmd(env.Env))
	require.NoError(t, err)
	assert.Regexp(t, `Pending withdrawals\s+2`, out)

	out, err = env.execute(t, NewWithdrawalCmd(env.Env), "approve", first.ID, "--tx-id", "0xfeed")
	require.NoError(t, err)
	assert.Contains(t, out, "COMPLETED")

	_, err = env.execute(t, NewWithdrawalCmd(env.Env), "approve", first.ID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Withdrawal already processed")

	out, err = env.execute(t, NewWithdrawalCmd(env.Env), "reject", second.ID, "--reason", "Suspicious destination")
	require.NoError(t, err)
	assert.Contains(t, out, "REJECTED")

	// 300 - 101 for the paid withdrawal; the rejected one is refunded
	me, err := client.Me(ctx)
	require.NoError(t, err)
	assert.Equal(t, 199.0, me.User.Balance)
}

func TestSellOrderReview(t *testing.T) {
	env := newTestEnv(t)
	client, user := env.signUp(t, "9876543210", "Asha")
	env.login(t)

	_, err := env.execute(t, NewUserBalanceCmd(env.Env), user.ID, "300")
	require.NoError(t, err)

	first := createSellOrder(t, env, client, 100)
	second := createSellOrder(t, env, client, 50)

	out, err := env.execute(t, NewSellOrderCmd(env.Env), "complete", first, "--tx-id", "UTR123", "--payout-inr", "8800")
	require.NoError(t, err)
	assert.Contains(t, out, "COMPLETED")

	_, err = env.execute(t, NewSellOrderCmd(env.Env), "complete", second, "--payout-inr", "-5")
	require.Error(t, err)
	assert.True(t, api.IsValidation(err))

	out, err = env.execute(t, NewSellOrderCmd(env.Env), "reject", second, "--reason", "KYC pending")
	require.NoError(t, err)
	assert.Contains(t, out, "REJECTED")

	out, err = env.execute(t, NewTransactionsCmd(env.Env))
	require.NoError(t, err)
	assert.Contains(t, out, "Sell orders (2)")
	assert.Contains(t, out, "8800")
}

// createSellOrder places a sell order for the user of client and returns its ID
func createSellOrder(t *testing.T, env *testEnv, client *api.Client, amount float64) string {
	t.Helper()
	token, ok := client.Cookie(userCookie)
	require.True(t, ok)

	body, err := json.Marshal(map[string]any{"amount": amount})
	require.NoError(t, err)
	req, err := http.NewRequest(http.MethodPost, env.BackendURL+"/api/user/sell-orders", bytes.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.AddCookie(&http.Cookie{Name: userCookie, Value: token})

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created struct {
		SellOrder api.SellOrder `json:"sellOrder"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	return created.SellOrder.ID
}

func TestTransactions(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	client, user := env.signUp(t, "9876543210", "Asha")
	env.login(t)

	_, err := client.CreateDeposit(ctx, api.CreateDepositInput{Amount: 25, Network: "TRC20"})
	require.NoError(t, err)

	out, err := env.execute(t, NewTransactionsCmd(env.Env), "--limit", "10")
	require.NoError(t, err)
	assert.Contains(t, out, "Deposits (1)")
	assert.Contains(t, out, "Asha")
	assert.Contains(t, out, "Withdrawals (0)")

	_, err = env.execute(t, NewTransactionsCmd(env.Env), "--end", "tomorrow")
	require.Error(t, err)
	assert.True(t, api.IsValidation(err))

	out, err = env.execute(t, NewTransactionsCmd(env.Env), user.ID)
	require.NoError(t, err)
	assert.Contains(t, out, "Deposits (1)")
	assert.Contains(t, out, "Statements (")
	assert.Contains(t, out, "Invites (0)")
}

func TestSettings(t *testing.T) {
	env := newTestEnv(t)
	env.login(t)

	out, err := env.execute(t, NewSettingsCmd(env.Env))
	require.NoError(t, err)
	assert.Regexp(t, `Base rate\s+88.50 INR`, out)
	assert.Contains(t, out, "TQn9Y2khEsLJW1ChVWFMSMeRDow5KcbLSE")

	out, err = env.execute(t, NewSettingsCmd(env.Env), "update", "--base-rate", "90.25", "--tier", "0-500=+1.00")
	require.NoError(t, err)
	assert.Contains(t, out, "Settings updated")
	assert.Regexp(t, `Base rate\s+90.25 INR`, out)
	assert.Contains(t, out, "0-500")

	_, err = env.execute(t, NewSettingsCmd(env.Env), "update")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nothing to update")

	_, err = env.execute(t, NewSettingsCmd(env.Env), "update", "--base-rate", "0")
	require.Error(t, err)
	assert.True(t, api.IsValidation(err))

	_, err = env.execute(t, NewSettingsCmd(env.Env), "update", "--tier", "no-markup")
	assert.EqualError(t, err, `invalid tier "no-markup": expected range=markup`)

	env.JSON = true
	out, err = env.execute(t, NewSettingsCmd(env.Env), "show")
	require.NoError(t, err)
	var settings api.PlatformSettings
	require.NoError(t, json.Unmarshal([]byte(out), &settings))
	assert.Equal(t, 90.25, settings.BaseRate)
	assert.Equal(t, []api.PricingTier{{Range: "0-500", Markup: "+1.00"}}, settings.PricingTiers)
}

func TestLogout(t *testing.T) {
	env := newTestEnv(t)
	env.login(t)
	require.NotEmpty(t, env.tokens.tokens)

	out, err := env.execute(t, NewLogoutCmd(env.Env))
	require.NoError(t, err)
	assert.Contains(t, out, "Logged out")
	assert.Empty(t, env.tokens.tokens)

	_, err = env.execute(t, NewMetricsCmd(env.Env))
	assert.ErrorIs(t, err, auth.ErrNotAuthenticated)
}

func TestParseTiers(t *testing.T) {
	tests := []struct {
		name    string
		raw     []string
		want    []api.PricingTier
		wantErr bool
	}{
		{name: "single", raw: []string{"0-1000=+0.00"}, want: []api.PricingTier{{Range: "0-1000", Markup: "+0.00"}}},
		{name: "trims", raw: []string{" 1000+ = +1.5 "}, want: []api.PricingTier{{Range: "1000+", Markup: "+1.5"}}},
		{name: "markup with equals", raw: []string{"a=b=c"}, want: []api.PricingTier{{Range: "a", Markup: "b=c"}}},
		{name: "missing separator", raw: []string{"0-1000"}, wantErr: true},
		{name: "empty markup", raw: []string{"0-1000="}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseTiers(tt.raw)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
