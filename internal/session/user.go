package session

import (
	"context"
	"net/url"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/crypgo-dev/crypgo-web/internal/api"
	"github.com/crypgo-dev/crypgo-web/internal/routes"
)

// UserBackend is the part of the backend API used by the user session
type UserBackend interface {
	RequestOTP(ctx context.Context, phone string) (*api.OTPRequestResult, error)
	VerifyOTP(ctx context.Context, in api.VerifyOTPInput) (*api.VerifyOTPResult, error)
	Me(ctx context.Context) (*api.ProfileResult, error)
	Logout(ctx context.Context) error
	RedeemReferralRewards(ctx context.Context) (*api.RedeemResult, error)
}

// SettingsSource provides the settings shown to anonymous visitors
type SettingsSource interface {
	PublicSettings(ctx context.Context) (*api.PlatformSettings, error)
}

// User is the session context of one visitor. It starts out loading and
// settles into authenticated or anonymous once Sync has run.
type User struct {
	mu sync.Mutex

	backend    UserBackend
	settingSrc SettingsSource
	nav        Navigator
	classifier *routes.Classifier
	logger     zerolog.Logger

	path     string
	user     *api.User
	token    string
	settings *api.PlatformSettings
	loading  bool
	err      string
}

// NewUser creates a user session context
func NewUser(backend UserBackend, settings SettingsSource, nav Navigator, classifier *routes.Classifier, logger zerolog.Logger) *User {
	return &User{
		backend:    backend,
		settingSrc: settings,
		nav:        nav,
		classifier: classifier,
		logger:     logger.With().Str("component", "user_session").Logger(),
		loading:    true,
	}
}

// Sync runs when the visitor lands on path. Admin pages and the login page
// never carry a user session, everything else re-validates it with the backend.
// The error is the profile fetch failure other than a 401.
func (u *User) Sync(ctx context.Context, path string) error {
	u.mu.Lock()
	u.path = path
	if u.classifier.IsAdminArea(path) || u.classifier.IsLogin(path) {
		u.loading = false
		u.user = nil
		u.token = ""
		u.mu.Unlock()
		return nil
	}
	u.loading = true
	u.mu.Unlock()

	_, err := u.FetchProfile(ctx)
	if err != nil {
		u.logger.Debug().Err(err).Str("path", path).Msg("Profile fetch failed")
	}

	u.mu.Lock()
	u.loading = false
	u.mu.Unlock()
	return err
}

// Path returns the path of the last Sync
func (u *User) Path() string {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.path
}

// FetchProfile asks the backend who the visitor is. A 401 is not an error: it
// drops the user, sends private pages to the login page, loads public settings
// and returns nil. Other failures leave the session alone and are returned.
func (u *User) FetchProfile(ctx context.Context) (*api.User, error) {
	res, err := u.backend.Me(ctx)
	if err != nil {
		if !api.IsAuth(err) {
			u.mu.Lock()
			u.loading = false
			u.mu.Unlock()
			return nil, u.fail(err)
		}

		u.mu.Lock()
		u.user = nil
		u.token = ""
		u.loading = false
		path := u.path
		u.mu.Unlock()

		if u.classifier.IsPrivate(path) {
			u.nav.Replace(routes.LoginPath)
		}
		_, _ = u.loadPublicSettings(ctx)
		return nil, nil
	}

	u.mu.Lock()
	u.user = res.User
	u.settings = res.Settings
	u.loading = false
	u.mu.Unlock()
	return res.User, nil
}

// RefreshProfile re-reads the profile, for example after a withdrawal settles
func (u *User) RefreshProfile(ctx context.Context) (*api.User, error) {
	user, err := u.FetchProfile(ctx)
	if err != nil {
		if api.IsAuth(err) {
			return nil, nil
		}
		return nil, err
	}
	return user, nil
}

// RefreshSettings reloads the public settings. Failures are stored as the
// session error and yield nil settings.
func (u *User) RefreshSettings(ctx context.Context) *api.PlatformSettings {
	settings, _ := u.loadPublicSettings(ctx)
	return settings
}

func (u *User) loadPublicSettings(ctx context.Context) (*api.PlatformSettings, error) {
	settings, err := u.settingSrc.PublicSettings(ctx)
	if err != nil {
		u.fail(err)
		return nil, err
	}
	u.mu.Lock()
	u.settings = settings
	u.mu.Unlock()
	return settings, nil
}

// RequestOTP asks the backend to send an OTP. The phone must already be
// normalized to ten digits. The session state does not change.
func (u *User) RequestOTP(ctx context.Context, phone string) (*api.OTPRequestResult, error) {
	u.ClearError()
	res, err := u.backend.RequestOTP(ctx, phone)
	if err != nil {
		return nil, u.fail(err)
	}
	return res, nil
}

// VerifyOTP logs the visitor in. Name and referral code are only sent when set.
func (u *User) VerifyOTP(ctx context.Context, in api.VerifyOTPInput) (*api.VerifyOTPResult, error) {
	u.ClearError()
	in.Name = strings.TrimSpace(in.Name)
	in.ReferralCode = strings.TrimSpace(in.ReferralCode)

	res, err := u.backend.VerifyOTP(ctx, in)
	if err != nil {
		return nil, u.fail(err)
	}

	u.mu.Lock()
	u.user = res.User
	u.token = res.Token
	u.settings = res.Settings
	u.loading = false
	u.mu.Unlock()

	u.logger.Info().Str("user_id", userID(res.User)).Msg("User signed in")
	return res, nil
}

// Logout ends the session. Local state is cleared and the visitor is sent to
// the login page even when the backend call fails; that failure is returned.
func (u *User) Logout(ctx context.Context) error {
	err := u.backend.Logout(ctx)

	u.mu.Lock()
	u.user = nil
	u.token = ""
	u.mu.Unlock()

	_, _ = u.loadPublicSettings(ctx)
	u.nav.Replace(routes.LoginPath)
	return err
}

// RedeemReferralRewards redeems available rewards and stores the profile the
// backend returns.
func (u *User) RedeemReferralRewards(ctx context.Context) (*api.RedeemResult, error) {
	u.ClearError()
	res, err := u.backend.RedeemReferralRewards(ctx)
	if err != nil {
		return nil, u.fail(err)
	}
	if res.User != nil {
		u.mu.Lock()
		u.user = res.User
		u.mu.Unlock()
	}
	return res, nil
}

// CompleteLogin sends a signed-in visitor sitting on the login page to the
// destination captured by the gatekeeper. It reports whether it navigated.
func (u *User) CompleteLogin(query url.Values) bool {
	u.mu.Lock()
	authenticated := u.user != nil
	onLogin := u.classifier.IsLogin(u.path)
	u.mu.Unlock()

	if !authenticated || !onLogin {
		return false
	}
	u.nav.Replace(routes.PostLoginTarget(query, routes.DefaultLandingPath))
	return true
}

// SetUser replaces the stored profile
func (u *User) SetUser(user *api.User) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.user = user
}

// ClearError resets the session error
func (u *User) ClearError() {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.err = ""
}

// Snapshot returns a copy of the current state
func (u *User) Snapshot() AuthState {
	u.mu.Lock()
	defer u.mu.Unlock()
	return AuthState{
		User:            u.user,
		Token:           u.token,
		IsLoading:       u.loading,
		IsAuthenticated: u.user != nil,
		Settings:        u.settings,
		Error:           u.err,
	}
}

func (u *User) fail(err error) error {
	u.mu.Lock()
	u.err = api.Message(err)
	u.mu.Unlock()
	return err
}

// ShouldRestartPhoneStep reports whether a verification failure means the OTP
// has to be requested again.
func ShouldRestartPhoneStep(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(api.Message(err))
	return strings.Contains(msg, "expired") || strings.Contains(msg, "not requested")
}

func userID(u *api.User) string {
	if u == nil {
		return ""
	}
	return u.ID
}
