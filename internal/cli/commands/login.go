package commands

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/crypgo-dev/crypgo-web/internal/cli/auth"
	"github.com/crypgo-dev/crypgo-web/internal/cli/userconfig"
	"github.com/crypgo-dev/crypgo-web/internal/forms"
)

// NewLoginCmd creates the login command
func NewLoginCmd(env *Env) *cobra.Command {
	var username, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in to the admin console of a CrypGo backend",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogin(cmd.Context(), env, username, password)
		},
	}

	cmd.Flags().StringVar(&username, "username", "", "Admin username (or set CRYPGO_ADMIN_USERNAME)")
	cmd.Flags().StringVar(&password, "password", "", "Password (or set CRYPGO_ADMIN_PASSWORD, will prompt if not provided)")

	return cmd
}

func runLogin(ctx context.Context, env *Env, username, password string) error {
	// Check for environment variables (useful for scripts)
	if username == "" {
		username = os.Getenv("CRYPGO_ADMIN_USERNAME")
	}
	if password == "" {
		password = os.Getenv("CRYPGO_ADMIN_PASSWORD")
	}

	// Fall back to the last username that signed in
	if username == "" {
		if saved, err := userconfig.Load(); err == nil {
			username = saved.Username
		}
	}
	if username == "" {
		return fmt.Errorf("username is required (use --username flag or CRYPGO_ADMIN_USERNAME env var)")
	}

	if password == "" {
		var err error
		if password, err = env.ReadPassword(); err != nil {
			return err
		}
	}

	form := &forms.AdminLogin{Username: username, Password: password}
	if err := env.validate(form); err != nil {
		return err
	}

	fmt.Fprintf(env.Out, "Logging in to %s...\n", env.BackendURL)

	client := env.client("")
	admin, err := env.newSession(client).Login(ctx, form.Username, form.Password)
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}

	cookie, ok := client.Cookie(env.CookieName)
	if !ok {
		return fmt.Errorf("login failed: backend did not issue the %s cookie", env.CookieName)
	}

	if err := env.Tokens.SaveToken(env.BackendURL, cookie); err != nil {
		return fmt.Errorf("failed to save admin session: %w", err)
	}
	if err := userconfig.RememberLogin(env.BackendURL, admin.Username); err != nil {
		env.Logger.Warn().Err(err).Msg("Failed to remember login")
	}

	fmt.Fprintln(env.Out, "✓ Login successful!")
	fmt.Fprintf(env.Out, "  Admin: %s (%s)\n", admin.Username, admin.Role)
	return nil
}

// NewLogoutCmd creates the logout command
func NewLogoutCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget the stored admin session",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogout(cmd.Context(), env)
		},
	}
}

func runLogout(ctx context.Context, env *Env) error {
	admin, err := env.adminSession()
	if errors.Is(err, auth.ErrNotAuthenticated) {
		fmt.Fprintln(env.Out, "Not logged in.")
		return nil
	}
	if err != nil {
		return err
	}

	// The local session is dropped even when the backend call fails
	if err := admin.Logout(ctx); err != nil {
		env.Logger.Warn().Err(err).Msg("Backend logout failed")
	}
	if err := env.Tokens.DeleteToken(env.BackendURL); err != nil {
		return err
	}

	fmt.Fprintln(env.Out, "✓ Logged out")
	return nil
}

// NewWhoamiCmd creates the whoami command
func NewWhoamiCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in admin",
		RunE: func(cmd *cobra.Command, args []string) error {
			admin, err := env.adminSession()
			if err != nil {
				return err
			}
			profile, err := admin.FetchProfile(cmd.Context())
			if err != nil {
				return env.check(err)
			}
			if profile == nil {
				return env.check(errExpired)
			}
			fmt.Fprintf(env.Out, "%s (%s) on %s\n", profile.Username, profile.Role, env.BackendURL)
			return nil
		},
	}
}
