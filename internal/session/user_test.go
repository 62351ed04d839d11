package session

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crypgo-dev/crypgo-web/internal/api"
	"github.com/crypgo-dev/crypgo-web/internal/routes"
)

// mockAPIServer starts a backend stub answering with handlers keyed by "METHOD /path"
func mockAPIServer(t *testing.T, handlers map[string]http.HandlerFunc) *api.Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h, ok := handlers[r.Method+" "+r.URL.Path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"message":"Not found"}`))
			return
		}
		h(w, r)
	}))
	t.Cleanup(srv.Close)
	return api.New(srv.URL+"/api", 5*time.Second, zerolog.Nop())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func jsonHandler(status int, v any) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, status, v)
	}
}

var (
	testUser = map[string]any{
		"id":      "01HUSER",
		"phone":   "9876543210",
		"name":    "Asha",
		"balance": 125.5,
		"status":  "ACTIVE",
	}
	testSettings = map[string]any{"id": 1, "baseRate": 88.2}
	unauthorized = jsonHandler(http.StatusUnauthorized, map[string]string{"message": "Not authenticated"})
)

func newUserSession(t *testing.T, handlers map[string]http.HandlerFunc) (*User, *Recorder) {
	t.Helper()
	client := mockAPIServer(t, handlers)
	nav := NewRecorder()
	return NewUser(client, client, nav, routes.Default(), zerolog.Nop()), nav
}

func TestUserStartsLoading(t *testing.T) {
	u, _ := newUserSession(t, nil)
	state := u.Snapshot()
	assert.True(t, state.IsLoading)
	assert.False(t, state.IsAuthenticated)
	assert.Nil(t, state.User)
}

func TestFetchProfileUnauthorizedOnPrivatePage(t *testing.T) {
	u, nav := newUserSession(t, map[string]http.HandlerFunc{
		"GET /api/auth/me":         unauthorized,
		"GET /api/public/settings": jsonHandler(http.StatusOK, map[string]any{"settings": testSettings}),
	})

	u.Sync(context.Background(), "/me/statements")

	state := u.Snapshot()
	assert.False(t, state.IsLoading)
	assert.False(t, state.IsAuthenticated)
	assert.Nil(t, state.User)
	assert.Empty(t, state.Error)
	require.NotNil(t, state.Settings)
	assert.Equal(t, 88.2, state.Settings.BaseRate)

	last, ok := nav.Last()
	require.True(t, ok)
	assert.Equal(t, Navigation{Kind: NavReplace, Target: "/login"}, last)
}

func TestFetchProfileUnauthorizedOnPublicPage(t *testing.T) {
	u, nav := newUserSession(t, map[string]http.HandlerFunc{
		"GET /api/auth/me":         unauthorized,
		"GET /api/public/settings": jsonHandler(http.StatusOK, map[string]any{"settings": testSettings}),
	})

	u.Sync(context.Background(), "/support")

	_, ok := nav.Last()
	assert.False(t, ok)
	assert.False(t, u.Snapshot().IsAuthenticated)
}

func TestFetchProfileOtherErrorPropagates(t *testing.T) {
	u, nav := newUserSession(t, map[string]http.HandlerFunc{
		"GET /api/auth/me": jsonHandler(http.StatusInternalServerError, map[string]string{"message": "Database down"}),
	})

	err := u.Sync(context.Background(), "/exchange")
	require.Error(t, err)
	_, ok := nav.Last()
	assert.False(t, ok, "a failing backend is not a signed out visitor")

	state := u.Snapshot()
	assert.False(t, state.IsLoading)
	assert.Equal(t, "Database down", state.Error)

	user, err := u.RefreshProfile(context.Background())
	require.Error(t, err)
	assert.Nil(t, user)
	assert.True(t, api.IsDomain(err))
	assert.Equal(t, "Database down", api.Message(err))
}

func TestSyncAuthenticated(t *testing.T) {
	u, nav := newUserSession(t, map[string]http.HandlerFunc{
		"GET /api/auth/me": jsonHandler(http.StatusOK, map[string]any{"user": testUser, "settings": testSettings}),
	})

	u.Sync(context.Background(), "/exchange/deposit")

	state := u.Snapshot()
	assert.True(t, state.IsAuthenticated)
	assert.False(t, state.IsLoading)
	assert.Equal(t, "01HUSER", state.User.ID)
	assert.Equal(t, 125.5, state.User.Balance)
	_, ok := nav.Last()
	assert.False(t, ok)
}

func TestSyncSkipsAdminAndLoginRoutes(t *testing.T) {
	var calls atomic.Int32
	u, _ := newUserSession(t, map[string]http.HandlerFunc{
		"GET /api/auth/me": func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			writeJSON(w, http.StatusOK, map[string]any{"user": testUser})
		},
	})

	u.SetUser(&api.User{ID: "stale"})
	u.Sync(context.Background(), "/admin/users")
	assert.Nil(t, u.Snapshot().User)

	u.Sync(context.Background(), "/login")
	assert.Nil(t, u.Snapshot().User)
	assert.False(t, u.Snapshot().IsLoading)

	assert.Equal(t, int32(0), calls.Load())
}

func TestRequestOTPExistingUser(t *testing.T) {
	expires := time.Now().Add(2 * time.Minute).UnixMilli()
	u, _ := newUserSession(t, map[string]http.HandlerFunc{
		"POST /api/auth/otp/request": func(w http.ResponseWriter, r *http.Request) {
			var body map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "9876543210", body["phone"])
			writeJSON(w, http.StatusOK, map[string]any{
				"message":      "OTP sent",
				"expiresAt":    expires,
				"requiresName": false,
			})
		},
	})

	res, err := u.RequestOTP(context.Background(), "9876543210")
	require.NoError(t, err)
	assert.Equal(t, expires, res.ExpiresAt)
	assert.False(t, res.RequiresName)
	assert.False(t, u.Snapshot().IsAuthenticated)
}

func TestRequestOTPRateLimited(t *testing.T) {
	u, _ := newUserSession(t, map[string]http.HandlerFunc{
		"POST /api/auth/otp/request": jsonHandler(http.StatusTooManyRequests, map[string]string{"message": "Please wait before requesting another OTP"}),
	})

	_, err := u.RequestOTP(context.Background(), "9876543210")
	require.Error(t, err)
	assert.True(t, api.IsValidation(err))
	assert.Equal(t, "Please wait before requesting another OTP", u.Snapshot().Error)

	u.ClearError()
	assert.Empty(t, u.Snapshot().Error)
}

func TestVerifyOTPAuthenticates(t *testing.T) {
	u, _ := newUserSession(t, map[string]http.HandlerFunc{
		"POST /api/auth/otp/verify": func(w http.ResponseWriter, r *http.Request) {
			var body map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "123456", body["otp"])
			_, hasName := body["name"]
			assert.False(t, hasName)
			_, hasRef := body["referralCode"]
			assert.False(t, hasRef)
			writeJSON(w, http.StatusOK, map[string]any{"token": "tok", "user": testUser, "settings": testSettings})
		},
	})

	res, err := u.VerifyOTP(context.Background(), api.VerifyOTPInput{Phone: "9876543210", OTP: "123456", Name: "  "})
	require.NoError(t, err)
	assert.Equal(t, "01HUSER", res.User.ID)

	state := u.Snapshot()
	assert.True(t, state.IsAuthenticated)
	assert.False(t, state.IsLoading)
	assert.Equal(t, "tok", state.Token)
	assert.Equal(t, 88.2, state.Settings.BaseRate)
}

func TestVerifyOTPExpired(t *testing.T) {
	u, _ := newUserSession(t, map[string]http.HandlerFunc{
		"POST /api/auth/otp/verify": jsonHandler(http.StatusBadRequest, map[string]string{"message": "OTP expired"}),
	})

	_, err := u.VerifyOTP(context.Background(), api.VerifyOTPInput{Phone: "9876543210", OTP: "123456"})
	require.Error(t, err)
	assert.True(t, ShouldRestartPhoneStep(err))
	assert.False(t, u.Snapshot().IsAuthenticated)
	assert.Equal(t, "OTP expired", u.Snapshot().Error)
}

func TestShouldRestartPhoneStep(t *testing.T) {
	assert.False(t, ShouldRestartPhoneStep(nil))
	assert.True(t, ShouldRestartPhoneStep(&api.Error{Kind: api.KindDomain, Message: "OTP not requested"}))
	assert.False(t, ShouldRestartPhoneStep(&api.Error{Kind: api.KindDomain, Message: "Invalid OTP"}))
}

func TestCompleteLogin(t *testing.T) {
	tests := []struct {
		name  string
		query url.Values
		want  string
	}{
		{"captured redirect", url.Values{"redirect": {"/exchange/deposit"}}, "/exchange/deposit"},
		{"no redirect", url.Values{}, "/exchange"},
		{"external redirect ignored", url.Values{"redirect": {"https://evil.example"}}, "/exchange"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, nav := newUserSession(t, map[string]http.HandlerFunc{
				"POST /api/auth/otp/verify": jsonHandler(http.StatusOK, map[string]any{"token": "tok", "user": testUser}),
			})
			u.Sync(context.Background(), "/login")
			_, err := u.VerifyOTP(context.Background(), api.VerifyOTPInput{Phone: "9876543210", OTP: "123456"})
			require.NoError(t, err)

			require.True(t, u.CompleteLogin(tt.query))
			last, _ := nav.Last()
			assert.Equal(t, Navigation{Kind: NavReplace, Target: tt.want}, last)
		})
	}
}

func TestCompleteLoginAnonymous(t *testing.T) {
	u, nav := newUserSession(t, nil)
	u.Sync(context.Background(), "/login")
	assert.False(t, u.CompleteLogin(url.Values{}))
	_, ok := nav.Last()
	assert.False(t, ok)
}

func TestLogoutClearsStateEvenOnFailure(t *testing.T) {
	u, nav := newUserSession(t, map[string]http.HandlerFunc{
		"GET /api/auth/me":         jsonHandler(http.StatusOK, map[string]any{"user": testUser}),
		"POST /api/auth/logout":    jsonHandler(http.StatusInternalServerError, map[string]string{"message": "boom"}),
		"GET /api/public/settings": jsonHandler(http.StatusOK, map[string]any{"settings": testSettings}),
	})

	u.Sync(context.Background(), "/me")
	require.True(t, u.Snapshot().IsAuthenticated)

	err := u.Logout(context.Background())
	require.Error(t, err)

	state := u.Snapshot()
	assert.False(t, state.IsAuthenticated)
	assert.NotNil(t, state.Settings)
	last, _ := nav.Last()
	assert.Equal(t, Navigation{Kind: NavReplace, Target: "/login"}, last)
}

func TestRedeemReferralRewardsStoresBackendProfile(t *testing.T) {
	updated := map[string]any{"id": "01HUSER", "balance": 150.5}
	u, _ := newUserSession(t, map[string]http.HandlerFunc{
		"GET /api/auth/me":                jsonHandler(http.StatusOK, map[string]any{"user": testUser}),
		"POST /api/user/referrals/redeem": jsonHandler(http.StatusOK, map[string]any{"amount": 25, "user": updated}),
	})

	u.Sync(context.Background(), "/me/invite")
	res, err := u.RedeemReferralRewards(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 25.0, res.Amount)
	assert.Equal(t, 150.5, u.Snapshot().User.Balance)
}

func TestRefreshSettingsFailure(t *testing.T) {
	u, _ := newUserSession(t, map[string]http.HandlerFunc{
		"GET /api/public/settings": jsonHandler(http.StatusServiceUnavailable, map[string]string{"error": "Maintenance"}),
	})

	assert.Nil(t, u.RefreshSettings(context.Background()))
	assert.Equal(t, "Maintenance", u.Snapshot().Error)
}
