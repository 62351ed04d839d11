package commands

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/crypgo-dev/crypgo-web/internal/api"
	"github.com/crypgo-dev/crypgo-web/internal/forms"
	"github.com/crypgo-dev/crypgo-web/internal/session"
)

// NewTransactionsCmd creates the transactions command
func NewTransactionsCmd(env *Env) *cobra.Command {
	form := &forms.TransactionFilter{}

	cmd := &cobra.Command{
		Use:   "transactions [user-id]",
		Short: "List recent deposits, withdrawals and sell orders",
		Long: `Without arguments, lists the platform-wide transactions overview.
With a user ID, lists the deposits, withdrawals and ledger entries of that user.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				return runUserTransactions(cmd.Context(), env, args[0])
			}
			return runTransactions(cmd.Context(), env, form)
		},
	}

	cmd.Flags().IntVar(&form.Limit, "limit", 0, "Rows per section (backend default 50)")
	cmd.Flags().StringVar(&form.StartDate, "start", "", "Created on or after (YYYY-MM-DD)")
	cmd.Flags().StringVar(&form.EndDate, "end", "", "Created on or before (YYYY-MM-DD)")

	return cmd
}

func runTransactions(ctx context.Context, env *Env, form *forms.TransactionFilter) error {
	if err := env.validate(form); err != nil {
		return err
	}

	overview, err := run(ctx, env, func(ctx context.Context, a *session.Admin) (*api.AdminTransactions, error) {
		return a.FetchTransactions(ctx, form.Query())
	})
	if err != nil {
		return err
	}

	return env.render(overview, func(w *tabwriter.Writer) {
		fmt.Fprintf(w, "Deposits (%d)\n", len(overview.Deposits))
		fmt.Fprintln(w, "ID\tUSER\tPHONE\tAMOUNT\tSTATUS\tCREATED")
		for _, d := range overview.Deposits {
			fmt.Fprintf(w, "%s\t%s\t%s\t%.2f\t%s\t%s\n", d.ID, d.UserName, d.UserPhone, d.Amount, d.Status, d.CreatedAt)
		}

		fmt.Fprintf(w, "\nWithdrawals (%d)\n", len(overview.Withdrawals))
		fmt.Fprintln(w, "ID\tUSER\tPHONE\tAMOUNT\tSTATUS\tDESTINATION\tCREATED")
		for _, wd := range overview.Withdrawals {
			fmt.Fprintf(w, "%s\t%s\t%s\t%.2f\t%s\t%s\t%s\n",
				wd.ID, wd.UserName, wd.UserPhone, wd.Amount, wd.Status, deref(wd.Destination), wd.CreatedAt)
		}

		fmt.Fprintf(w, "\nSell orders (%d)\n", len(overview.SellOrders))
		fmt.Fprintln(w, "ID\tUSER\tPHONE\tAMOUNT\tSTATUS\tRATE\tPAYOUT INR\tCREATED")
		for _, o := range overview.SellOrders {
			fmt.Fprintf(w, "%s\t%s\t%s\t%.2f\t%s\t%s\t%s\t%s\n",
				o.ID, o.UserName, o.UserPhone, o.Amount,
				metadataString(o.Metadata, "status"),
				metadataString(o.Metadata, "rate"),
				metadataString(o.Metadata, "payoutInr"),
				o.CreatedAt)
		}
	})
}

func runUserTransactions(ctx context.Context, env *Env, userID string) error {
	rel, err := run(ctx, env, func(ctx context.Context, a *session.Admin) (*api.UserRelations, error) {
		return a.FetchUserTransactions(ctx, userID)
	})
	if err != nil {
		return err
	}

	return env.render(rel, func(w *tabwriter.Writer) {
		fmt.Fprintf(w, "Deposits (%d)\n", len(rel.Deposits))
		fmt.Fprintln(w, "ID\tAMOUNT\tSTATUS\tTX\tCREATED")
		for _, d := range rel.Deposits {
			fmt.Fprintf(w, "%s\t%.2f\t%s\t%s\t%s\n", d.ID, d.Amount, d.Status, deref(d.TxID), d.CreatedAt)
		}

		fmt.Fprintf(w, "\nWithdrawals (%d)\n", len(rel.Withdrawals))
		fmt.Fprintln(w, "ID\tAMOUNT\tSTATUS\tDESTINATION\tTX\tCREATED")
		for _, wd := range rel.Withdrawals {
			fmt.Fprintf(w, "%s\t%.2f\t%s\t%s\t%s\t%s\n",
				wd.ID, wd.Amount, wd.Status, deref(wd.Destination), deref(wd.TxID), wd.CreatedAt)
		}

		fmt.Fprintf(w, "\nStatements (%d)\n", len(rel.Statements))
		fmt.Fprintln(w, "ID\tTYPE\tAMOUNT\tCREATED")
		for _, s := range rel.Statements {
			fmt.Fprintf(w, "%s\t%s\t%.2f\t%s\n", s.ID, s.Type, s.Amount, s.CreatedAt)
		}

		fmt.Fprintf(w, "\nInvites (%d)\n", len(rel.Invites))
		fmt.Fprintln(w, "ID\tINVITEE\tSTATUS\tREWARD\tCREATED")
		for _, inv := range rel.Invites {
			fmt.Fprintf(w, "%s\t%s\t%s\t%.2f\t%s\n", inv.ID, inv.InviteeName, inv.Status, inv.Reward, inv.CreatedAt)
		}
	})
}
