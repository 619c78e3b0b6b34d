package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"vogon/internal/core"
	"vogon/internal/services"
	"vogon/internal/storage"
)

func newRateCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "rate",
		Aliases: []string{"rates"},
		Short:   "Show and set exchange rates",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List exchange rates between the currencies in use",
			Args:  cobra.NoArgs,
			RunE: a.run(func(cmd *cobra.Command, l *services.LedgerService, args []string) error {
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "ID\tFROM\tTO\tRATE")
				for _, r := range l.CurrencyRates() {
					fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", r.ID, r.Source, r.Destination, r.Rate)
				}
				return w.Flush()
			}),
		},
		&cobra.Command{
			Use:   "set <from> <to> <rate>",
			Short: "Set the rate converting one currency into another",
			Args:  cobra.ExactArgs(3),
			RunE: a.run(func(cmd *cobra.Command, l *services.LedgerService, args []string) error {
				src, err := core.ParseCurrency(args[0])
				if err != nil {
					return err
				}
				dst, err := core.ParseCurrency(args[1])
				if err != nil {
					return err
				}
				value, err := decimal.NewFromString(args[2])
				if err != nil {
					return fmt.Errorf("invalid rate %q: %w", args[2], core.ErrInvalidRate)
				}
				pair := core.CurrencyPair{Source: src, Destination: dst}
				for _, r := range l.CurrencyRates() {
					if r.Pair() == pair {
						return l.SetExchangeRate(cmd.Context(), r.ID, value)
					}
				}
				return fmt.Errorf("rate %s->%s: %w", src, dst, storage.ErrNotFound)
			}),
		},
	)
	return cmd
}
