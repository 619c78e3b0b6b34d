package commands

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"vogon/internal/core"
	"vogon/internal/services"
)

func newTransactionCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "tx",
		Aliases: []string{"transaction", "transactions"},
		Short:   "Manage transactions",
	}
	cmd.AddCommand(
		newTransactionAddCommand(a),
		&cobra.Command{
			Use:   "delete <id>",
			Short: "Delete a transaction and revert its amounts",
			Args:  cobra.ExactArgs(1),
			RunE: a.run(func(cmd *cobra.Command, l *services.LedgerService, args []string) error {
				id, err := parseID(args[0])
				if err != nil {
					return err
				}
				return l.DeleteTransaction(cmd.Context(), id)
			}),
		},
		newTransactionListCommand(a),
		&cobra.Command{
			Use:   "show <id>",
			Short: "Show a transaction with its components",
			Args:  cobra.ExactArgs(1),
			RunE: a.run(func(cmd *cobra.Command, l *services.LedgerService, args []string) error {
				id, err := parseID(args[0])
				if err != nil {
					return err
				}
				return showTransaction(cmd, l, id)
			}),
		},
	)
	return cmd
}

// parseComponent reads "<account id>=<amount>".
func parseComponent(s string) (core.Component, error) {
	acc, amount, ok := strings.Cut(s, "=")
	if !ok {
		return core.Component{}, fmt.Errorf("component %q: want <account id>=<amount>", s)
	}
	id, err := parseID(strings.TrimSpace(acc))
	if err != nil {
		return core.Component{}, fmt.Errorf("component %q: %w", s, err)
	}
	a, err := core.ParseAmount(amount)
	if err != nil {
		return core.Component{}, fmt.Errorf("component %q: %w", s, err)
	}
	return core.Component{AccountID: id, Amount: a}, nil
}

func newTransactionAddCommand(a *app) *cobra.Command {
	var (
		date        string
		description string
		typ         string
		tags        []string
		components  []string
	)
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Record a transaction",
		Example: `  vogon tx add --desc Groceries -p 1=-42.50
  vogon tx add --type transfer --desc Savings -p 1=-100 -p 2=100 --tag monthly`,
		Args: cobra.NoArgs,
		RunE: a.run(func(cmd *cobra.Command, l *services.LedgerService, args []string) error {
			d := core.Date{Time: time.Now().UTC().Truncate(24 * time.Hour)}
			if date != "" {
				var err error
				if d, err = core.ParseDate(date); err != nil {
					return fmt.Errorf("invalid date %q: %w", date, err)
				}
			}
			t, err := core.ParseTransactionType(typ)
			if err != nil {
				return err
			}
			comps := make([]core.Component, 0, len(components))
			for _, c := range components {
				comp, err := parseComponent(c)
				if err != nil {
					return err
				}
				comps = append(comps, comp)
			}

			v, err := l.CreateTransaction(cmd.Context(), core.Transaction{
				Description: description,
				Date:        d,
				Type:        t,
				Tags:        tags,
			}, comps)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created transaction %d with %d components\n", v.Transaction.ID, len(v.Components))
			return nil
		}),
	}
	cmd.Flags().StringVar(&date, "date", "", "date as YYYY-MM-DD (default today)")
	cmd.Flags().StringVar(&description, "desc", "", "description")
	cmd.Flags().StringVar(&typ, "type", string(core.Expense), "expense or transfer")
	cmd.Flags().StringSliceVar(&tags, "tag", nil, "tag, repeatable")
	cmd.Flags().StringArrayVarP(&components, "component", "p", nil, "component as <account id>=<amount>, repeatable")
	return cmd
}

func newTransactionListCommand(a *app) *cobra.Command {
	var offset, limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List transactions ordered by date",
		Args:  cobra.NoArgs,
		RunE: a.run(func(cmd *cobra.Command, l *services.LedgerService, args []string) error {
			txs, err := l.Transactions(cmd.Context(), offset, limit)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tDATE\tTYPE\tDESCRIPTION\tTAGS")
			for _, t := range txs {
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", t.ID, t.Date, t.Type, t.Description, strings.Join(t.Tags, ","))
			}
			if err := w.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d of %d transactions\n", len(txs), l.TransactionCount())
			return nil
		}),
	}
	cmd.Flags().IntVar(&offset, "offset", 0, "skip this many transactions")
	cmd.Flags().IntVar(&limit, "limit", 50, "show at most this many transactions, 0 for all")
	return cmd
}

func showTransaction(cmd *cobra.Command, l *services.LedgerService, id int64) error {
	ctx := cmd.Context()
	v, err := l.Transaction(ctx, id)
	if err != nil {
		return err
	}
	accounts, err := l.Accounts(ctx)
	if err != nil {
		return err
	}
	byID := make(map[int64]core.Account, len(accounts))
	for _, acc := range accounts {
		byID[acc.ID] = acc
	}

	out := cmd.OutOrStdout()
	t := v.Transaction
	fmt.Fprintf(out, "Transaction %d  %s  %s\n", t.ID, t.Date, t.Type)
	if t.Description != "" {
		fmt.Fprintf(out, "  %s\n", t.Description)
	}
	if len(t.Tags) > 0 {
		fmt.Fprintf(out, "  tags: %s\n", strings.Join(t.Tags, ", "))
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "COMPONENT\tACCOUNT\tAMOUNT")
	for _, c := range v.Components {
		acc := byID[c.AccountID]
		fmt.Fprintf(w, "%d\t%s\t%s\n", c.ID, acc.Name, c.Amount.Format(acc.Currency))
	}
	if err := w.Flush(); err != nil {
		return err
	}

	def, err := l.DefaultCurrency(ctx)
	if err != nil || def == "" {
		return err
	}
	total, err := l.AmountInCurrency(ctx, id, def)
	if err != nil {
		fmt.Fprintf(out, "Total: unavailable (%v)\n", err)
		return nil
	}
	fmt.Fprintf(out, "Total: %s\n", total.Format(def))
	return nil
}
