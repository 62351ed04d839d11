package session

import "github.com/crypgo-dev/crypgo-web/internal/api"

// AuthState is a point-in-time copy of the user session
type AuthState struct {
	User            *api.User             `json:"user"`
	Token           string                `json:"-"`
	IsLoading       bool                  `json:"isLoading"`
	IsAuthenticated bool                  `json:"isAuthenticated"`
	Settings        *api.PlatformSettings `json:"settings"`
	Error           string                `json:"error,omitempty"`
}

// AdminState is a point-in-time copy of the admin session
type AdminState struct {
	Admin                 *api.AdminSession      `json:"admin"`
	Metrics               *api.AdminMetrics      `json:"metrics"`
	Settings              *api.PlatformSettings  `json:"settings"`
	Users                 []api.AdminUser        `json:"users"`
	UserTotal             int                    `json:"userTotal"`
	Transactions          *api.AdminTransactions `json:"transactions"`
	IsLoading             bool                   `json:"isLoading"`
	IsMetricsLoading      bool                   `json:"isMetricsLoading"`
	IsSettingsLoading     bool                   `json:"isSettingsLoading"`
	IsUsersLoading        bool                   `json:"isUsersLoading"`
	IsTransactionsLoading bool                   `json:"isTransactionsLoading"`
	IsAuthenticated       bool                   `json:"isAuthenticated"`
	Error                 string                 `json:"error,omitempty"`
}
