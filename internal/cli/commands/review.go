package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/crypgo-dev/crypgo-web/internal/api"
	"github.com/crypgo-dev/crypgo-web/internal/forms"
	"github.com/crypgo-dev/crypgo-web/internal/session"
)

// NewWithdrawalCmd creates the withdrawal command and its approve/reject subcommands
func NewWithdrawalCmd(env *Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "withdrawal",
		Short: "Review pending withdrawals",
	}

	var txID string
	approve := &cobra.Command{
		Use:   "approve <withdrawal-id>",
		Short: "Mark a withdrawal as paid out",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			form := &forms.WithdrawalDecision{TxID: txID}
			if err := env.validate(form); err != nil {
				return err
			}
			w, err := run(cmd.Context(), env, func(ctx context.Context, a *session.Admin) (*api.Withdrawal, error) {
				return a.ApproveWithdrawal(ctx, args[0], api.ApproveWithdrawalInput{TxID: form.TxID})
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(env.Out, "✓ Withdrawal %s %s\n", w.ID, w.Status)
			return nil
		},
	}
	approve.Flags().StringVar(&txID, "tx-id", "", "On-chain transaction hash of the payout")

	var reason string
	reject := &cobra.Command{
		Use:   "reject <withdrawal-id>",
		Short: "Refuse a withdrawal and refund the user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			form := &forms.WithdrawalDecision{Reason: reason}
			if err := env.validate(form); err != nil {
				return err
			}
			w, err := run(cmd.Context(), env, func(ctx context.Context, a *session.Admin) (*api.Withdrawal, error) {
				return a.RejectWithdrawal(ctx, args[0], api.RejectWithdrawalInput{Reason: form.Reason})
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(env.Out, "✓ Withdrawal %s %s\n", w.ID, w.Status)
			return nil
		},
	}
	reject.Flags().StringVar(&reason, "reason", "", "Reason shown to the user")

	cmd.AddCommand(approve, reject)
	return cmd
}

// NewSellOrderCmd creates the sell-order command and its complete/reject subcommands
func NewSellOrderCmd(env *Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sell-order",
		Short: "Review pending sell orders",
	}

	var txID, note string
	var payout float64
	complete := &cobra.Command{
		Use:   "complete <order-id>",
		Short: "Mark a sell order as paid in INR",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			form := &forms.SellOrderDecision{TxID: txID, Note: note}
			if cmd.Flags().Changed("payout-inr") {
				form.PayoutINR = &payout
			}
			if err := env.validate(form); err != nil {
				return err
			}
			in := api.CompleteSellOrderInput{TxID: form.TxID, Note: form.Note, PayoutINR: form.PayoutINR}
			order, err := run(cmd.Context(), env, func(ctx context.Context, a *session.Admin) (*api.SellOrder, error) {
				return a.CompleteSellOrder(ctx, args[0], in)
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(env.Out, "✓ Sell order %s %s\n", order.ID, metadataString(order.Metadata, "status"))
			return nil
		},
	}
	complete.Flags().StringVar(&txID, "tx-id", "", "Bank reference of the INR payout")
	complete.Flags().StringVar(&note, "note", "", "Internal note")
	complete.Flags().Float64Var(&payout, "payout-inr", 0, "INR amount paid, if different from the quote")

	var reason, rejectNote string
	reject := &cobra.Command{
		Use:   "reject <order-id>",
		Short: "Refuse a sell order and refund the user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			form := &forms.SellOrderDecision{Reason: reason, Note: rejectNote}
			if err := env.validate(form); err != nil {
				return err
			}
			in := api.RejectSellOrderInput{Reason: form.Reason, Note: form.Note}
			order, err := run(cmd.Context(), env, func(ctx context.Context, a *session.Admin) (*api.SellOrder, error) {
				return a.RejectSellOrder(ctx, args[0], in)
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(env.Out, "✓ Sell order %s %s\n", order.ID, metadataString(order.Metadata, "status"))
			return nil
		},
	}
	reject.Flags().StringVar(&reason, "reason", "", "Reason shown to the user")
	reject.Flags().StringVar(&rejectNote, "note", "", "Internal note")

	cmd.AddCommand(complete, reject)
	return cmd
}
