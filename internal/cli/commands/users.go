package commands

import (
	"context"
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/crypgo-dev/crypgo-web/internal/api"
	"github.com/crypgo-dev/crypgo-web/internal/forms"
	"github.com/crypgo-dev/crypgo-web/internal/session"
)

const defaultUsersLimit = 20

// NewUsersCmd creates the users command
func NewUsersCmd(env *Env) *cobra.Command {
	form := &forms.UserSearch{}

	cmd := &cobra.Command{
		Use:   "users",
		Short: "Search users",
		Long: `Search users by name or phone. Dates are YYYY-MM-DD and filter on
registration date; the end date is inclusive.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUsers(cmd.Context(), env, form)
		},
	}

	cmd.Flags().StringVar(&form.Search, "search", "", "Name or phone fragment")
	cmd.Flags().StringVar(&form.StartDate, "start", "", "Registered on or after (YYYY-MM-DD)")
	cmd.Flags().StringVar(&form.EndDate, "end", "", "Registered on or before (YYYY-MM-DD)")
	cmd.Flags().IntVar(&form.Limit, "limit", defaultUsersLimit, "Page size")
	cmd.Flags().IntVar(&form.Offset, "offset", 0, "Rows to skip")

	return cmd
}

func runUsers(ctx context.Context, env *Env, form *forms.UserSearch) error {
	if err := env.validate(form); err != nil {
		return err
	}

	list, err := run(ctx, env, func(ctx context.Context, a *session.Admin) (*api.AdminUserList, error) {
		return a.FetchUsers(ctx, form.Query())
	})
	if err != nil {
		return err
	}

	if len(list.Users) == 0 && !env.JSON {
		fmt.Fprintln(env.Out, "No users found.")
		return nil
	}

	return env.render(list, func(w *tabwriter.Writer) {
		fmt.Fprintln(w, "ID\tNAME\tPHONE\tSTATUS\tBALANCE\tTIER\tJOINED")
		for _, u := range list.Users {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%.2f\t%s\t%s\n",
				u.ID, u.Name, u.Phone, u.Status, u.Balance, u.Stats.Tier, u.CreatedAt)
		}
		fmt.Fprintf(w, "\nShowing %d-%d of %d users\n", form.Offset+1, form.Offset+len(list.Users), list.Total)
	})
}

// NewUserCmd creates the user command showing one account
func NewUserCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "user <user-id>",
		Short: "Show a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := run(cmd.Context(), env, func(ctx context.Context, a *session.Admin) (*api.AdminUser, error) {
				return a.FetchUserDetail(ctx, args[0])
			})
			if err != nil {
				return err
			}
			return printUser(env, user)
		},
	}
}

func printUser(env *Env, u *api.AdminUser) error {
	return env.render(u, func(w *tabwriter.Writer) {
		fmt.Fprintf(w, "ID\t%s\n", u.ID)
		fmt.Fprintf(w, "Name\t%s\n", u.Name)
		fmt.Fprintf(w, "Phone\t%s\n", u.Phone)
		fmt.Fprintf(w, "Status\t%s\n", u.Status)
		fmt.Fprintf(w, "Balance\t%.2f %s\n", u.Balance, u.Currency)
		fmt.Fprintf(w, "Invite code\t%s\n", u.InviteCode)
		fmt.Fprintf(w, "Tier\t%s\n", u.Stats.Tier)
		fmt.Fprintf(w, "Total deposits\t%.2f\n", u.Stats.TotalDeposits)
		fmt.Fprintf(w, "Total withdrawals\t%.2f\n", u.Stats.TotalWithdrawals)
		fmt.Fprintf(w, "Joined\t%s\n", u.CreatedAt)
		fmt.Fprintf(w, "Last login\t%s\n", deref(u.LastLoginAt))
	})
}

// NewUserStatusCmd creates the user-status command
func NewUserStatusCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "user-status <user-id> <ACTIVE|FROZEN|BLOCKED>",
		Short: "Freeze, unfreeze or block a user",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			form := &forms.UserStatus{Status: args[1]}
			if err := env.validate(form); err != nil {
				return err
			}

			user, err := run(cmd.Context(), env, func(ctx context.Context, a *session.Admin) (*api.AdminUser, error) {
				return a.UpdateUserStatus(ctx, args[0], api.UserStatus(form.Status))
			})
			if err != nil {
				return err
			}

			fmt.Fprintf(env.Out, "✓ %s is now %s\n", user.Name, user.Status)
			return nil
		},
	}
}

// NewUserBalanceCmd creates the user-balance command
func NewUserBalanceCmd(env *Env) *cobra.Command {
	var reason string

	cmd := &cobra.Command{
		Use:   "user-balance <user-id> <balance>",
		Short: "Set a user's USDT balance",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			balance, err := strconv.ParseFloat(args[1], 64)
			if err != nil {
				return fmt.Errorf("invalid balance %q: must be a number", args[1])
			}

			form := &forms.UserBalance{Balance: &balance, Reason: reason}
			if err := env.validate(form); err != nil {
				return err
			}

			user, err := run(cmd.Context(), env, func(ctx context.Context, a *session.Admin) (*api.AdminUser, error) {
				return a.UpdateUserBalance(ctx, args[0], *form.Balance, form.Reason)
			})
			if err != nil {
				return err
			}

			fmt.Fprintf(env.Out, "✓ %s balance set to %.2f %s\n", user.Name, user.Balance, user.Currency)
			return nil
		},
	}

	cmd.Flags().StringVar(&reason, "reason", "", "Reason recorded in the audit trail")

	return cmd
}
