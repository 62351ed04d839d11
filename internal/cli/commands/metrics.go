package commands

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/crypgo-dev/crypgo-web/internal/api"
	"github.com/crypgo-dev/crypgo-web/internal/session"
)

// NewMetricsCmd creates the metrics command
func NewMetricsCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "metrics",
		Short: "Show the dashboard counters",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMetrics(cmd.Context(), env)
		},
	}
}

func runMetrics(ctx context.Context, env *Env) error {
	metrics, err := run(ctx, env, func(ctx context.Context, a *session.Admin) (*api.AdminMetrics, error) {
		return a.FetchMetrics(ctx)
	})
	if err != nil {
		return err
	}

	return env.render(metrics, func(w *tabwriter.Writer) {
		fmt.Fprintf(w, "Total users\t%d\n", metrics.TotalUsers)
		fmt.Fprintf(w, "Total USDT\t%.2f\n", metrics.TotalUSDT)
		fmt.Fprintf(w, "Total INR\t%.2f\n", metrics.TotalINR)
		fmt.Fprintf(w, "Pending deposits\t%d\n", metrics.PendingDeposits)
		fmt.Fprintf(w, "Pending withdrawals\t%d\n", metrics.PendingWithdrawals)
		fmt.Fprintf(w, "Pending sell orders\t%d\n", metrics.PendingSellOrders)
		fmt.Fprintf(w, "Wallet USDT\t%.2f\n", metrics.WalletBalances.USDT)
		fmt.Fprintf(w, "Wallet INR\t%.2f\n", metrics.WalletBalances.INR)
	})
}
