package server

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crypgo-dev/crypgo-web/internal/config"
	"github.com/crypgo-dev/crypgo-web/internal/devbackend"
)

// newIntegrationServer wires the front end to a development backend over an
// in-memory database
func newIntegrationServer(t *testing.T) *Server {
	t.Helper()

	db, err := devbackend.OpenDatabase(devbackend.MemoryDatabase, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	backendCfg := &config.Config{
		Environment: "development",
		Cookies:     config.CookieConfig{User: userCookie, Admin: adminCookie, MaxAge: time.Hour},
		DevBackend: config.DevBackendConfig{
			JWTSecret:     "integration-secret",
			AdminUsername: "admin",
			AdminPassword: "admin123",
		},
	}
	backend, err := devbackend.New(backendCfg, db, zerolog.Nop())
	require.NoError(t, err)

	srv := httptest.NewServer(backend.Handler())
	t.Cleanup(srv.Close)

	s, err := New(testConfig(srv.URL, t.TempDir()), zerolog.Nop(), "test")
	require.NoError(t, err)
	s.pollInterval = 10 * time.Millisecond
	return s
}

func TestIntegrationUserJourney(t *testing.T) {
	s := newIntegrationServer(t)

	rec := doRequest(s, http.MethodPost, "/session/otp/request", map[string]string{"phone": "98765 43210"})
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, true, body["requiresName"])
	otp, _ := body["devOtp"].(string)
	require.Len(t, otp, 6)

	rec = doRequest(s, http.MethodPost, "/session/otp/verify?redirect=%2Fexchange%2Fdeposit",
		map[string]string{"phone": "9876543210", "otp": otp, "name": "Asha"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "/exchange/deposit", decodeBody(t, rec)["redirect"])
	session := findCookie(rec, userCookie)
	require.NotNil(t, session)
	require.NotEmpty(t, session.Value)

	rec = doRequest(s, http.MethodGet, "/exchange/deposit", nil, session)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Asha")

	rec = doRequest(s, http.MethodPost, "/session/wallets",
		map[string]string{"address": "TQn9Y2khEsLJW1ChVWFMSMeRDow5KcbLSE", "label": "Main"}, session)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = doRequest(s, http.MethodPost, "/session/deposits", map[string]any{"amount": 25}, session)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = doRequest(s, http.MethodGet, "/session/me", nil, session)
	require.Equal(t, http.StatusOK, rec.Code)
	user := decodeBody(t, rec)["user"].(map[string]any)
	assert.Len(t, user["wallets"], 1)
	assert.Len(t, user["deposits"], 1)

	// The login page bounces a signed-in visitor to the landing page
	rec = doRequest(s, http.MethodGet, "/login", nil, session)
	assert.Equal(t, http.StatusTemporaryRedirect, rec.Code)
	assert.Equal(t, "/exchange", rec.Header().Get("Location"))

	rec = doRequest(s, http.MethodPost, "/session/logout", nil, session)
	require.Equal(t, http.StatusOK, rec.Code)
	cleared := findCookie(rec, userCookie)
	require.NotNil(t, cleared)
	assert.Less(t, cleared.MaxAge, 0)
}

func TestIntegrationAdminReviewsWithdrawal(t *testing.T) {
	s := newIntegrationServer(t)

	rec := doRequest(s, http.MethodPost, "/session/otp/request", map[string]string{"phone": "9123456780"})
	require.Equal(t, http.StatusOK, rec.Code)
	otp := decodeBody(t, rec)["devOtp"].(string)
	rec = doRequest(s, http.MethodPost, "/session/otp/verify",
		map[string]string{"phone": "9123456780", "otp": otp, "name": "Ravi"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	session := findCookie(rec, userCookie)
	require.NotNil(t, session)
	userID := decodeBody(t, rec)["user"].(map[string]any)["id"].(string)

	rec = doRequest(s, http.MethodPost, "/session/wallets",
		map[string]string{"address": "TQn9Y2khEsLJW1ChVWFMSMeRDow5KcbLSE"}, session)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	walletID := decodeBody(t, rec)["wallet"].(map[string]any)["id"].(string)

	rec = doRequest(s, http.MethodPost, "/session/admin/login",
		map[string]string{"username": "admin", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doRequest(s, http.MethodPost, "/session/admin/login",
		map[string]string{"username": "admin", "password": "admin123"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	admin := findCookie(rec, adminCookie)
	require.NotNil(t, admin)

	rec = doRequest(s, http.MethodPut, "/session/admin/users/"+userID+"/balance",
		map[string]any{"balance": 200, "reason": "test"}, admin)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = doRequest(s, http.MethodPost, "/session/withdrawals",
		map[string]any{"amount": 100, "walletId": walletID}, session)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	withdrawalID := decodeBody(t, rec)["withdrawal"].(map[string]any)["id"].(string)

	rec = doRequest(s, http.MethodGet, "/session/admin/metrics", nil, admin)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	metrics := decodeBody(t, rec)["metrics"].(map[string]any)
	assert.Equal(t, 1.0, metrics["pendingWithdrawals"])

	rec = doRequest(s, http.MethodPost, "/session/admin/withdrawals/"+withdrawalID+"/approve",
		map[string]string{"txId": "0xfeed"}, admin)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "COMPLETED", decodeBody(t, rec)["withdrawal"].(map[string]any)["status"])

	rec = doRequest(s, http.MethodGet, "/admin", nil, admin)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(s, http.MethodGet, "/session/me", nil, session)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 99.0, decodeBody(t, rec)["user"].(map[string]any)["balance"])
}
