package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/crypgo-dev/crypgo-web/internal/cli/commands"
	"github.com/crypgo-dev/crypgo-web/internal/cli/userconfig"
	"github.com/crypgo-dev/crypgo-web/internal/config"
	"github.com/crypgo-dev/crypgo-web/internal/logger"
)

var version = "dev" // Will be set during build

// NewRootCmd builds the command tree around env
func NewRootCmd(env *commands.Env) *cobra.Command {
	var backend string

	rootCmd := &cobra.Command{
		Use:   "crypgo-admin",
		Short: "CrypGo admin console",
		Long: `CrypGo admin console - review withdrawals and sell orders, manage users
and platform settings from the terminal.

The backend is taken from --backend, then BACKEND_URL, then the backend of the
last successful login.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			env.BackendURL = resolveBackend(backend, env.BackendURL)
		},
	}

	rootCmd.PersistentFlags().StringVar(&backend, "backend", "", "Backend URL, e.g. http://localhost:4000")
	rootCmd.PersistentFlags().BoolVar(&env.JSON, "json", false, "Print JSON instead of tables")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(env.Out, "crypgo-admin version %s\n", version)
		},
	})

	rootCmd.AddCommand(commands.NewLoginCmd(env))
	rootCmd.AddCommand(commands.NewLogoutCmd(env))
	rootCmd.AddCommand(commands.NewWhoamiCmd(env))
	rootCmd.AddCommand(commands.NewMetricsCmd(env))
	rootCmd.AddCommand(commands.NewUsersCmd(env))
	rootCmd.AddCommand(commands.NewUserCmd(env))
	rootCmd.AddCommand(commands.NewUserStatusCmd(env))
	rootCmd.AddCommand(commands.NewUserBalanceCmd(env))
	rootCmd.AddCommand(commands.NewTransactionsCmd(env))
	rootCmd.AddCommand(commands.NewWithdrawalCmd(env))
	rootCmd.AddCommand(commands.NewSellOrderCmd(env))
	rootCmd.AddCommand(commands.NewSettingsCmd(env))

	return rootCmd
}

// resolveBackend picks the backend URL: flag, then BACKEND_URL, then the
// last login, then fallback
func resolveBackend(flag, fallback string) string {
	if flag != "" {
		return strings.TrimRight(flag, "/")
	}
	if env := os.Getenv("BACKEND_URL"); env != "" {
		return strings.TrimRight(env, "/")
	}
	if saved, err := userconfig.Load(); err == nil && saved.BackendURL != "" {
		return saved.BackendURL
	}
	return strings.TrimRight(fallback, "/")
}

// Execute runs the root command
func Execute() error {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to load configuration: %v\n", err)
		return err
	}

	// Only problems are worth printing next to command output
	logger.InitWithWriter("warn", "console", os.Stderr)

	env := commands.NewEnv(cfg, logger.Component("cli"))
	if err := NewRootCmd(env).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}
