package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/crypgo-dev/crypgo-web/internal/api"
	"github.com/crypgo-dev/crypgo-web/internal/forms"
	"github.com/crypgo-dev/crypgo-web/internal/session"
)

// NewSettingsCmd creates the settings command. Without a subcommand it shows the settings.
func NewSettingsCmd(env *Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change the platform settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShowSettings(cmd.Context(), env)
		},
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Show the platform settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShowSettings(cmd.Context(), env)
		},
	}

	cmd.AddCommand(show, newSettingsUpdateCmd(env))
	return cmd
}

func newSettingsUpdateCmd(env *Env) *cobra.Command {
	var (
		baseRate   float64
		commission float64
		addresses  []string
		tiers      []string
	)

	cmd := &cobra.Command{
		Use:   "update",
		Short: "Change the platform settings",
		Long: `Change the platform settings. Only the flags given are sent; lists
replace the stored list as a whole.

  crypgo-admin settings update --base-rate 89.1
  crypgo-admin settings update --tier "0-1000=+0.00" --tier "1000-10000=+0.50"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var in api.UpdateSettingsInput
			flags := cmd.Flags()
			if flags.Changed("base-rate") {
				in.BaseRate = &baseRate
			}
			if flags.Changed("invite-commission") {
				in.InviteCommission = &commission
			}
			if flags.Changed("deposit-address") {
				in.DepositAddresses = addresses
			}
			if flags.Changed("tier") {
				parsed, err := parseTiers(tiers)
				if err != nil {
					return err
				}
				in.PricingTiers = parsed
			}
			return runUpdateSettings(cmd.Context(), env, in)
		},
	}

	cmd.Flags().Float64Var(&baseRate, "base-rate", 0, "Base USDT/INR rate")
	cmd.Flags().Float64Var(&commission, "invite-commission", 0, "Referral commission in percent")
	cmd.Flags().StringSliceVar(&addresses, "deposit-address", nil, "Deposit address (repeatable)")
	cmd.Flags().StringArrayVar(&tiers, "tier", nil, `Pricing tier as "range=markup" (repeatable)`)

	return cmd
}

// parseTiers reads "range=markup" pairs
func parseTiers(raw []string) ([]api.PricingTier, error) {
	tiers := make([]api.PricingTier, 0, len(raw))
	for _, r := range raw {
		rng, markup, ok := strings.Cut(r, "=")
		if !ok || strings.TrimSpace(rng) == "" || strings.TrimSpace(markup) == "" {
			return nil, fmt.Errorf("invalid tier %q: expected range=markup", r)
		}
		tiers = append(tiers, api.PricingTier{Range: strings.TrimSpace(rng), Markup: strings.TrimSpace(markup)})
	}
	return tiers, nil
}

func runShowSettings(ctx context.Context, env *Env) error {
	settings, err := run(ctx, env, func(ctx context.Context, a *session.Admin) (*api.PlatformSettings, error) {
		return a.FetchSettings(ctx)
	})
	if err != nil {
		return err
	}
	return printSettings(env, settings)
}

func runUpdateSettings(ctx context.Context, env *Env, in api.UpdateSettingsInput) error {
	if in.BaseRate == nil && in.InviteCommission == nil && in.DepositAddresses == nil && in.PricingTiers == nil {
		return errors.New("nothing to update (see 'crypgo-admin settings update --help')")
	}

	form := &forms.SettingsUpdate{UpdateSettingsInput: in}
	if err := env.validate(form); err != nil {
		return err
	}

	settings, err := run(ctx, env, func(ctx context.Context, a *session.Admin) (*api.PlatformSettings, error) {
		return a.UpdateSettings(ctx, form.UpdateSettingsInput)
	})
	if err != nil {
		return err
	}

	if !env.JSON {
		fmt.Fprintln(env.Out, "✓ Settings updated")
	}
	return printSettings(env, settings)
}

func printSettings(env *Env, s *api.PlatformSettings) error {
	return env.render(s, func(w *tabwriter.Writer) {
		fmt.Fprintf(w, "Base rate\t%.2f INR\n", s.BaseRate)
		fmt.Fprintf(w, "Invite commission\t%.2f%%\n", s.InviteCommission)
		for i, addr := range s.DepositAddresses {
			label := ""
			if i == 0 {
				label = "Deposit addresses"
			}
			fmt.Fprintf(w, "%s\t%s\n", label, addr)
		}
		for i, tier := range s.PricingTiers {
			label := ""
			if i == 0 {
				label = "Pricing tiers"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\n", label, tier.Range, tier.Markup)
		}
		fmt.Fprintf(w, "Updated\t%s\n", deref(s.UpdatedAt))
	})
}
