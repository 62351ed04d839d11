package session

import (
	"context"
	"net/url"
	"sync"

	"github.com/rs/zerolog"

	"github.com/crypgo-dev/crypgo-web/internal/api"
	"github.com/crypgo-dev/crypgo-web/internal/routes"
)

// AdminBackend is the part of the backend API used by the admin console
type AdminBackend interface {
	AdminLogin(ctx context.Context, username, password string) (*api.AdminSession, error)
	AdminLogout(ctx context.Context) error
	AdminMe(ctx context.Context) (*api.AdminSession, error)
	AdminMetrics(ctx context.Context) (*api.AdminMetrics, error)
	AdminSettings(ctx context.Context) (*api.PlatformSettings, error)
	UpdateAdminSettings(ctx context.Context, in api.UpdateSettingsInput) (*api.PlatformSettings, error)
	AdminUsers(ctx context.Context, q api.UserQuery) (*api.AdminUserList, error)
	AdminUser(ctx context.Context, userID string) (*api.AdminUser, error)
	UpdateUserStatus(ctx context.Context, userID string, status api.UserStatus) (*api.AdminUser, error)
	UpdateUserBalance(ctx context.Context, userID string, balance float64, reason string) (*api.AdminUser, error)
	AdminUserTransactions(ctx context.Context, userID string) (*api.UserRelations, error)
	AdminTransactionsOverview(ctx context.Context, q api.TransactionQuery) (*api.AdminTransactions, error)
	ApproveWithdrawal(ctx context.Context, withdrawalID string, in api.ApproveWithdrawalInput) (*api.Withdrawal, error)
	RejectWithdrawal(ctx context.Context, withdrawalID string, in api.RejectWithdrawalInput) (*api.Withdrawal, error)
	CompleteSellOrder(ctx context.Context, orderID string, in api.CompleteSellOrderInput) (*api.SellOrder, error)
	RejectSellOrder(ctx context.Context, orderID string, in api.RejectSellOrderInput) (*api.SellOrder, error)
}

// Admin is the admin console session context
type Admin struct {
	mu sync.Mutex

	backend    AdminBackend
	nav        Navigator
	classifier *routes.Classifier
	logger     zerolog.Logger

	path  string
	query url.Values

	admin        *api.AdminSession
	metrics      *api.AdminMetrics
	settings     *api.PlatformSettings
	users        []api.AdminUser
	userTotal    int
	transactions *api.AdminTransactions

	loading             bool
	metricsLoading      bool
	settingsLoading     bool
	usersLoading        bool
	transactionsLoading bool
	err                 string
}

// NewAdmin creates an admin session context
func NewAdmin(backend AdminBackend, nav Navigator, classifier *routes.Classifier, logger zerolog.Logger) *Admin {
	return &Admin{
		backend:    backend,
		nav:        nav,
		classifier: classifier,
		logger:     logger.With().Str("component", "admin_session").Logger(),
		loading:    true,
	}
}

// Sync runs when the admin lands on path. Outside the admin area and on the
// login page there is no admin session to load. When the profile fetch fails
// with anything but a 401 no redirect is applied and the error is returned.
func (a *Admin) Sync(ctx context.Context, path string, query url.Values) error {
	a.mu.Lock()
	a.path = path
	a.query = query
	if !a.classifier.IsAdminArea(path) || a.classifier.IsAdminLogin(path) {
		a.loading = false
		a.admin = nil
		a.mu.Unlock()
		a.enforce()
		return nil
	}
	a.loading = true
	a.mu.Unlock()

	_, err := a.FetchProfile(ctx)

	a.mu.Lock()
	a.loading = false
	a.mu.Unlock()

	if err != nil {
		a.logger.Debug().Err(err).Str("path", path).Msg("Admin profile fetch failed")
		return err
	}
	a.enforce()
	return nil
}

// enforce applies the admin redirect rules once loading has settled. Login
// success uses a full navigation so the new cookie goes out with the next request.
func (a *Admin) enforce() {
	a.mu.Lock()
	if a.loading {
		a.mu.Unlock()
		return
	}
	signedIn := a.admin != nil
	path := a.path
	query := a.query
	a.mu.Unlock()

	onLogin := a.classifier.IsAdminLogin(path)
	onAdmin := a.classifier.IsAdminArea(path)

	switch {
	case !signedIn && onAdmin && !onLogin:
		a.nav.Replace(routes.LoginURL(routes.AdminLoginPath, path))
	case signedIn && onLogin:
		a.nav.Assign(routes.PostLoginTarget(query, routes.AdminHomePath))
	}
}

// FetchProfile loads the signed-in admin. A 401 signs the admin out and yields
// nil without an error. Other failures keep the current admin.
func (a *Admin) FetchProfile(ctx context.Context) (*api.AdminSession, error) {
	admin, err := a.backend.AdminMe(ctx)
	if err != nil && !api.IsAuth(err) {
		return nil, a.fail(err)
	}

	a.mu.Lock()
	a.admin = admin
	a.mu.Unlock()
	if err != nil {
		return nil, nil
	}
	return admin, nil
}

// Login signs an admin in and applies the login page redirect
func (a *Admin) Login(ctx context.Context, username, password string) (*api.AdminSession, error) {
	a.ClearError()
	admin, err := a.backend.AdminLogin(ctx, username, password)
	if err != nil {
		return nil, a.fail(err)
	}

	a.mu.Lock()
	a.admin = admin
	a.loading = false
	a.mu.Unlock()

	a.logger.Info().Str("username", admin.Username).Msg("Admin signed in")
	a.enforce()
	return admin, nil
}

// Logout ends the admin session. Local state is cleared and the admin is sent
// to the login page even when the backend call fails; that failure is returned.
func (a *Admin) Logout(ctx context.Context) error {
	err := a.backend.AdminLogout(ctx)

	a.mu.Lock()
	a.admin = nil
	a.metrics = nil
	a.mu.Unlock()

	a.nav.Replace(routes.AdminLoginPath)
	return err
}

// FetchMetrics loads the dashboard counters
func (a *Admin) FetchMetrics(ctx context.Context) (*api.AdminMetrics, error) {
	a.begin(&a.metricsLoading)
	metrics, err := a.backend.AdminMetrics(ctx)
	if err == nil {
		a.mu.Lock()
		a.metrics = metrics
		a.mu.Unlock()
	}
	return metrics, a.end(&a.metricsLoading, err)
}

// FetchSettings loads the platform settings
func (a *Admin) FetchSettings(ctx context.Context) (*api.PlatformSettings, error) {
	a.begin(&a.settingsLoading)
	settings, err := a.backend.AdminSettings(ctx)
	if err == nil {
		a.setSettings(settings)
	}
	return settings, a.end(&a.settingsLoading, err)
}

// UpdateSettings writes the platform settings and keeps what the backend stored
func (a *Admin) UpdateSettings(ctx context.Context, in api.UpdateSettingsInput) (*api.PlatformSettings, error) {
	a.begin(&a.settingsLoading)
	settings, err := a.backend.UpdateAdminSettings(ctx, in)
	if err == nil {
		a.setSettings(settings)
	}
	return settings, a.end(&a.settingsLoading, err)
}

func (a *Admin) setSettings(settings *api.PlatformSettings) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.settings = settings
}

// FetchUsers loads one page of the user search. Overlapping calls are not
// cancelled, the last response to arrive wins.
func (a *Admin) FetchUsers(ctx context.Context, q api.UserQuery) (*api.AdminUserList, error) {
	a.begin(&a.usersLoading)
	list, err := a.backend.AdminUsers(ctx, q)
	if err == nil {
		a.mu.Lock()
		a.users = list.Users
		a.userTotal = list.Total
		a.mu.Unlock()
	}
	return list, a.end(&a.usersLoading, err)
}

// FetchUserDetail loads a single user
func (a *Admin) FetchUserDetail(ctx context.Context, userID string) (*api.AdminUser, error) {
	a.begin(nil)
	user, err := a.backend.AdminUser(ctx, userID)
	return user, a.end(nil, err)
}

// UpdateUserStatus changes a user's status and refreshes it in the loaded list
func (a *Admin) UpdateUserStatus(ctx context.Context, userID string, status api.UserStatus) (*api.AdminUser, error) {
	a.begin(nil)
	user, err := a.backend.UpdateUserStatus(ctx, userID, status)
	if err == nil {
		a.replaceUser(user)
	}
	return user, a.end(nil, err)
}

// UpdateUserBalance sets a user's balance with an optional audit reason
func (a *Admin) UpdateUserBalance(ctx context.Context, userID string, balance float64, reason string) (*api.AdminUser, error) {
	a.begin(nil)
	user, err := a.backend.UpdateUserBalance(ctx, userID, balance, reason)
	if err == nil {
		a.replaceUser(user)
	}
	return user, a.end(nil, err)
}

func (a *Admin) replaceUser(user *api.AdminUser) {
	if user == nil {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	for i := range a.users {
		if a.users[i].ID == user.ID {
			a.users[i] = *user
		}
	}
}

// FetchUserTransactions loads the ledger records of one user
func (a *Admin) FetchUserTransactions(ctx context.Context, userID string) (*api.UserRelations, error) {
	a.begin(nil)
	rel, err := a.backend.AdminUserTransactions(ctx, userID)
	return rel, a.end(nil, err)
}

// FetchTransactions loads the transactions overview
func (a *Admin) FetchTransactions(ctx context.Context, q api.TransactionQuery) (*api.AdminTransactions, error) {
	a.begin(&a.transactionsLoading)
	tx, err := a.backend.AdminTransactionsOverview(ctx, q)
	if err == nil {
		a.mu.Lock()
		a.transactions = tx
		a.mu.Unlock()
	}
	return tx, a.end(&a.transactionsLoading, err)
}

// ApproveWithdrawal approves a pending withdrawal
func (a *Admin) ApproveWithdrawal(ctx context.Context, withdrawalID string, in api.ApproveWithdrawalInput) (*api.Withdrawal, error) {
	a.begin(nil)
	w, err := a.backend.ApproveWithdrawal(ctx, withdrawalID, in)
	return w, a.end(nil, err)
}

// RejectWithdrawal rejects a pending withdrawal
func (a *Admin) RejectWithdrawal(ctx context.Context, withdrawalID string, in api.RejectWithdrawalInput) (*api.Withdrawal, error) {
	a.begin(nil)
	w, err := a.backend.RejectWithdrawal(ctx, withdrawalID, in)
	return w, a.end(nil, err)
}

// CompleteSellOrder marks a sell order as paid out
func (a *Admin) CompleteSellOrder(ctx context.Context, orderID string, in api.CompleteSellOrderInput) (*api.SellOrder, error) {
	a.begin(nil)
	order, err := a.backend.CompleteSellOrder(ctx, orderID, in)
	return order, a.end(nil, err)
}

// RejectSellOrder rejects a sell order
func (a *Admin) RejectSellOrder(ctx context.Context, orderID string, in api.RejectSellOrderInput) (*api.SellOrder, error) {
	a.begin(nil)
	order, err := a.backend.RejectSellOrder(ctx, orderID, in)
	return order, a.end(nil, err)
}

// ClearError resets the session error
func (a *Admin) ClearError() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.err = ""
}

// Snapshot returns a copy of the current state
func (a *Admin) Snapshot() AdminState {
	a.mu.Lock()
	defer a.mu.Unlock()

	users := make([]api.AdminUser, len(a.users))
	copy(users, a.users)

	return AdminState{
		Admin:                 a.admin,
		Metrics:               a.metrics,
		Settings:              a.settings,
		Users:                 users,
		UserTotal:             a.userTotal,
		Transactions:          a.transactions,
		IsLoading:             a.loading,
		IsMetricsLoading:      a.metricsLoading,
		IsSettingsLoading:     a.settingsLoading,
		IsUsersLoading:        a.usersLoading,
		IsTransactionsLoading: a.transactionsLoading,
		IsAuthenticated:       a.admin != nil,
		Error:                 a.err,
	}
}

// begin clears the error and raises the loading flag, if any
func (a *Admin) begin(flag *bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.err = ""
	if flag != nil {
		*flag = true
	}
}

// end lowers the loading flag and records err as the session error
func (a *Admin) end(flag *bool, err error) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if flag != nil {
		*flag = false
	}
	if err != nil {
		a.err = api.Message(err)
	}
	return err
}

func (a *Admin) fail(err error) error {
	return a.end(nil, err)
}
