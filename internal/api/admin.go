package api

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
)

const defaultTransactionsLimit = 50

// AdminLogin authenticates an admin
func (c *Client) AdminLogin(ctx context.Context, username, password string) (*AdminSession, error) {
	var out struct {
		Admin *AdminSession `json:"admin"`
	}
	body := map[string]string{"username": username, "password": password}
	if err := c.do(ctx, http.MethodPost, "/admin/login", nil, body, &out); err != nil {
		return nil, err
	}
	return out.Admin, nil
}

// AdminLogout ends the admin session
func (c *Client) AdminLogout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/admin/logout", nil, nil, nil)
}

// AdminMe fetches the signed-in admin
func (c *Client) AdminMe(ctx context.Context) (*AdminSession, error) {
	var out struct {
		Admin *AdminSession `json:"admin"`
	}
	if err := c.do(ctx, http.MethodGet, "/admin/me", nil, nil, &out); err != nil {
		return nil, err
	}
	return out.Admin, nil
}

// AdminMetrics fetches the dashboard counters, tolerating loosely typed numbers
func (c *Client) AdminMetrics(ctx context.Context) (*AdminMetrics, error) {
	var out struct {
		Metrics metricsPayload `json:"metrics"`
	}
	if err := c.do(ctx, http.MethodGet, "/admin/dashboard/metrics", nil, nil, &out); err != nil {
		return nil, err
	}
	return out.Metrics.normalize(), nil
}

// AdminSettings fetches platform settings
func (c *Client) AdminSettings(ctx context.Context) (*PlatformSettings, error) {
	var out struct {
		Settings *PlatformSettings `json:"settings"`
	}
	if err := c.do(ctx, http.MethodGet, "/admin/dashboard/settings", nil, nil, &out); err != nil {
		return nil, err
	}
	return out.Settings, nil
}

// UpdateSettingsInput changes only the fields that are set
type UpdateSettingsInput struct {
	BaseRate         *float64      `json:"baseRate,omitempty" validate:"omitempty,gt=0"`
	PricingTiers     []PricingTier `json:"pricingTiers,omitempty" validate:"omitempty,dive"`
	DepositAddresses []string      `json:"depositAddresses,omitempty" validate:"omitempty,dive,required"`
	InviteCommission *float64      `json:"inviteCommission,omitempty" validate:"omitempty,gte=0"`
}

// UpdateAdminSettings writes platform settings and returns the stored version
func (c *Client) UpdateAdminSettings(ctx context.Context, in UpdateSettingsInput) (*PlatformSettings, error) {
	var out struct {
		Settings *PlatformSettings `json:"settings"`
	}
	if err := c.do(ctx, http.MethodPut, "/admin/dashboard/settings", nil, in, &out); err != nil {
		return nil, err
	}
	return out.Settings, nil
}

// UserQuery filters the admin user list. Dates are YYYY-MM-DD.
type UserQuery struct {
	Search    string
	Limit     int
	Offset    int
	StartDate string
	EndDate   string
}

func (q UserQuery) values() url.Values {
	v := url.Values{}
	if q.Search != "" {
		v.Set("search", q.Search)
	}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.Offset > 0 {
		v.Set("offset", strconv.Itoa(q.Offset))
	}
	if q.StartDate != "" {
		v.Set("startDate", q.StartDate)
	}
	if q.EndDate != "" {
		v.Set("endDate", q.EndDate)
	}
	return v
}

// AdminUsers lists users matching q
func (c *Client) AdminUsers(ctx context.Context, q UserQuery) (*AdminUserList, error) {
	var out AdminUserList
	if err := c.do(ctx, http.MethodGet, "/admin/dashboard/users", q.values(), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AdminUser fetches a single user
func (c *Client) AdminUser(ctx context.Context, userID string) (*AdminUser, error) {
	return c.adminUserCall(ctx, http.MethodGet, "/admin/dashboard/users/"+pathID(userID), nil)
}

// UpdateUserStatus freezes, unfreezes or blocks a user
func (c *Client) UpdateUserStatus(ctx context.Context, userID string, status UserStatus) (*AdminUser, error) {
	body := map[string]UserStatus{"status": status}
	return c.adminUserCall(ctx, http.MethodPut, "/admin/dashboard/users/"+pathID(userID)+"/status", body)
}

type balanceUpdate struct {
	Balance float64 `json:"balance"`
	Reason  string  `json:"reason,omitempty"`
}

// UpdateUserBalance sets a user's balance; reason is kept in the audit trail
func (c *Client) UpdateUserBalance(ctx context.Context, userID string, balance float64, reason string) (*AdminUser, error) {
	body := balanceUpdate{Balance: balance, Reason: reason}
	return c.adminUserCall(ctx, http.MethodPut, "/admin/dashboard/users/"+pathID(userID)+"/balance", body)
}

func (c *Client) adminUserCall(ctx context.Context, method, path string, body any) (*AdminUser, error) {
	var out struct {
		User *AdminUser `json:"user"`
	}
	if err := c.do(ctx, method, path, nil, body, &out); err != nil {
		return nil, err
	}
	return out.User, nil
}

// AdminUserTransactions fetches deposits, withdrawals, statements and invites of a user
func (c *Client) AdminUserTransactions(ctx context.Context, userID string) (*UserRelations, error) {
	var out UserRelations
	if err := c.do(ctx, http.MethodGet, "/admin/dashboard/users/"+pathID(userID)+"/transactions", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// TransactionQuery filters the transactions overview. Limit defaults to 50.
type TransactionQuery struct {
	Limit     int
	StartDate string
	EndDate   string
}

func (q TransactionQuery) values() url.Values {
	limit := q.Limit
	if limit <= 0 {
		limit = defaultTransactionsLimit
	}
	v := url.Values{}
	v.Set("limit", strconv.Itoa(limit))
	if q.StartDate != "" {
		v.Set("startDate", q.StartDate)
	}
	if q.EndDate != "" {
		v.Set("endDate", q.EndDate)
	}
	return v
}

// AdminTransactionsOverview lists recent deposits, withdrawals and sell orders
func (c *Client) AdminTransactionsOverview(ctx context.Context, q TransactionQuery) (*AdminTransactions, error) {
	var out AdminTransactions
	if err := c.do(ctx, http.MethodGet, "/admin/dashboard/transactions", q.values(), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ApproveWithdrawalInput optionally records the on-chain transaction
type ApproveWithdrawalInput struct {
	TxID string `json:"txId,omitempty"`
}

// RejectWithdrawalInput optionally records why a withdrawal was refused
type RejectWithdrawalInput struct {
	Reason string `json:"reason,omitempty"`
}

// ApproveWithdrawal marks a withdrawal as paid out
func (c *Client) ApproveWithdrawal(ctx context.Context, withdrawalID string, in ApproveWithdrawalInput) (*Withdrawal, error) {
	return c.withdrawalDecision(ctx, withdrawalID, "approve", in)
}

// RejectWithdrawal refuses a withdrawal
func (c *Client) RejectWithdrawal(ctx context.Context, withdrawalID string, in RejectWithdrawalInput) (*Withdrawal, error) {
	return c.withdrawalDecision(ctx, withdrawalID, "reject", in)
}

func (c *Client) withdrawalDecision(ctx context.Context, withdrawalID, action string, body any) (*Withdrawal, error) {
	var out struct {
		Withdrawal *Withdrawal `json:"withdrawal"`
	}
	path := "/admin/dashboard/withdrawals/" + pathID(withdrawalID) + "/" + action
	if err := c.do(ctx, http.MethodPost, path, nil, body, &out); err != nil {
		return nil, err
	}
	return out.Withdrawal, nil
}

// CompleteSellOrderInput records the INR payout of a sell order
type CompleteSellOrderInput struct {
	TxID      string   `json:"txId,omitempty"`
	Note      string   `json:"note,omitempty"`
	PayoutINR *float64 `json:"payoutInr,omitempty"`
}

// RejectSellOrderInput records why a sell order was refused
type RejectSellOrderInput struct {
	Reason string `json:"reason,omitempty"`
	Note   string `json:"note,omitempty"`
}

// CompleteSellOrder marks a sell order as paid
func (c *Client) CompleteSellOrder(ctx context.Context, orderID string, in CompleteSellOrderInput) (*SellOrder, error) {
	return c.sellOrderDecision(ctx, orderID, "complete", in)
}

// RejectSellOrder refuses a sell order
func (c *Client) RejectSellOrder(ctx context.Context, orderID string, in RejectSellOrderInput) (*SellOrder, error) {
	return c.sellOrderDecision(ctx, orderID, "reject", in)
}

func (c *Client) sellOrderDecision(ctx context.Context, orderID, action string, body any) (*SellOrder, error) {
	var out struct {
		SellOrder *SellOrder `json:"sellOrder"`
	}
	path := "/admin/dashboard/sell-orders/" + pathID(orderID) + "/" + action
	if err := c.do(ctx, http.MethodPost, path, nil, body, &out); err != nil {
		return nil, err
	}
	return out.SellOrder, nil
}
