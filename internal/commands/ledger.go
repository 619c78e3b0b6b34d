package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"vogon/internal/core"
	"vogon/internal/services"
)

func newRecalcCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "recalc [account id]",
		Short: "Recalculate balances from the transaction components",
		Args:  cobra.MaximumNArgs(1),
		RunE: a.run(func(cmd *cobra.Command, l *services.LedgerService, args []string) error {
			if len(args) == 0 {
				if err := l.RefreshAllBalances(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Recalculated all balances")
				return nil
			}
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			acc, err := l.Account(cmd.Context(), id)
			if err != nil {
				return err
			}
			balance, err := l.RefreshAccountBalance(cmd.Context(), id)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", acc.Name, balance.Format(acc.Currency))
			return nil
		}),
	}
}

func newCleanupCommand(a *app) *cobra.Command {
	var recalc bool
	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Remove orphan components and fix the exchange rate table",
		Args:  cobra.NoArgs,
		RunE: a.run(func(cmd *cobra.Command, l *services.LedgerService, args []string) error {
			res, err := l.Cleanup(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d orphan components, created %d and removed %d rates\n",
				res.OrphanComponents, res.Rates.Created, res.Rates.Removed)
			if !recalc {
				return nil
			}
			return l.RefreshAllBalances(cmd.Context())
		}),
	}
	cmd.Flags().BoolVar(&recalc, "recalc", true, "recalculate all balances afterwards")
	return cmd
}

func newTotalCommand(a *app) *cobra.Command {
	var currency string
	cmd := &cobra.Command{
		Use:   "total",
		Short: "Show the total balance of the accounts included in the total",
		Long: `Without --currency every included account is converted to the default
currency. With --currency only accounts in that currency are summed.`,
		Args: cobra.NoArgs,
		RunE: a.run(func(cmd *cobra.Command, l *services.LedgerService, args []string) error {
			var c core.Currency
			if currency != "" {
				var err error
				if c, err = core.ParseCurrency(currency); err != nil {
					return err
				}
			}
			total, err := l.TotalBalance(cmd.Context(), c)
			if err != nil {
				return err
			}
			if c == "" {
				if c, err = l.DefaultCurrency(cmd.Context()); err != nil {
					return err
				}
			}
			fmt.Fprintln(cmd.OutOrStdout(), total.Format(c))
			return nil
		}),
	}
	cmd.Flags().StringVarP(&currency, "currency", "c", "", "only sum accounts in this currency")
	return cmd
}

func newDefaultCurrencyCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "default-currency [currency]",
		Short: "Show or set the default currency",
		Args:  cobra.MaximumNArgs(1),
		RunE: a.run(func(cmd *cobra.Command, l *services.LedgerService, args []string) error {
			if len(args) == 1 {
				c, err := core.ParseCurrency(args[0])
				if err != nil {
					return err
				}
				return l.SetDefaultCurrency(cmd.Context(), c)
			}
			c, err := l.DefaultCurrency(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), c)
			return nil
		}),
	}
}
