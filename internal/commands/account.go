package commands

import (
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"vogon/internal/core"
	"vogon/internal/services"
)

func newAccountCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "account",
		Aliases: []string{"accounts"},
		Short:   "Manage accounts",
	}
	cmd.AddCommand(
		newAccountAddCommand(a),
		&cobra.Command{
			Use:   "rename <id> <name>",
			Short: "Rename an account",
			Args:  cobra.ExactArgs(2),
			RunE: a.run(func(cmd *cobra.Command, l *services.LedgerService, args []string) error {
				id, err := parseID(args[0])
				if err != nil {
					return err
				}
				return l.SetAccountName(cmd.Context(), id, args[1])
			}),
		},
		&cobra.Command{
			Use:   "currency <id> <currency>",
			Short: "Change the currency of an account",
			Args:  cobra.ExactArgs(2),
			RunE: a.run(func(cmd *cobra.Command, l *services.LedgerService, args []string) error {
				id, err := parseID(args[0])
				if err != nil {
					return err
				}
				c, err := core.ParseCurrency(args[1])
				if err != nil {
					return err
				}
				return l.SetAccountCurrency(cmd.Context(), id, c)
			}),
		},
		&cobra.Command{
			Use:   "include <id> <true|false>",
			Short: "Include or exclude an account from the total balance",
			Args:  cobra.ExactArgs(2),
			RunE: a.run(func(cmd *cobra.Command, l *services.LedgerService, args []string) error {
				id, err := parseID(args[0])
				if err != nil {
					return err
				}
				include, err := strconv.ParseBool(args[1])
				if err != nil {
					return fmt.Errorf("invalid flag value %q", args[1])
				}
				return l.SetAccountIncludeInTotal(cmd.Context(), id, include)
			}),
		},
		&cobra.Command{
			Use:   "delete <id>",
			Short: "Delete an account and every component booked on it",
			Args:  cobra.ExactArgs(1),
			RunE: a.run(func(cmd *cobra.Command, l *services.LedgerService, args []string) error {
				id, err := parseID(args[0])
				if err != nil {
					return err
				}
				return l.DeleteAccount(cmd.Context(), id)
			}),
		},
		&cobra.Command{
			Use:   "list",
			Short: "List accounts with their balances",
			Args:  cobra.NoArgs,
			RunE: a.run(func(cmd *cobra.Command, l *services.LedgerService, args []string) error {
				accounts, err := l.Accounts(cmd.Context())
				if err != nil {
					return err
				}
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "ID\tNAME\tCURRENCY\tBALANCE\tIN TOTAL")
				for _, acc := range accounts {
					fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%t\n", acc.ID, acc.Name, acc.Currency, acc.Balance.Format(acc.Currency), acc.IncludeInTotal)
				}
				return w.Flush()
			}),
		},
	)
	return cmd
}

func newAccountAddCommand(a *app) *cobra.Command {
	var (
		currency string
		exclude  bool
	)
	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Create an account",
		Args:  cobra.ExactArgs(1),
		RunE: a.run(func(cmd *cobra.Command, l *services.LedgerService, args []string) error {
			c, err := core.ParseCurrency(currency)
			if err != nil {
				return err
			}
			acc, err := l.CreateAccount(cmd.Context(), core.Account{
				Name:           args[0],
				Currency:       c,
				IncludeInTotal: !exclude,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created account %d (%s, %s)\n", acc.ID, acc.Name, acc.Currency)
			return nil
		}),
	}
	cmd.Flags().StringVarP(&currency, "currency", "c", "EUR", "ISO 4217 currency code")
	cmd.Flags().BoolVar(&exclude, "exclude-from-total", false, "leave the account out of the total balance")
	return cmd
}
