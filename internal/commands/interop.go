package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"vogon/internal/interop"
	"vogon/internal/interop/sheets"
	"vogon/internal/services"
)

func newImportCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import accounts and transactions into the ledger",
	}
	importWith := func(newImporter func(path string) interop.Importer) func(*cobra.Command, []string) error {
		return a.run(func(cmd *cobra.Command, l *services.LedgerService, args []string) error {
			res, err := l.Import(cmd.Context(), newImporter(args[0]))
			if err != nil {
				return describeImportError(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d accounts, %d transactions and %d components\n",
				res.Accounts, res.Transactions, res.Components)
			return nil
		})
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "csv <file>",
			Short: "Import a CSV file with one component per row",
			Long:  "The header must contain the columns: transaction, date, description, type, tags, account, currency, amount.",
			Args:  cobra.ExactArgs(1),
			RunE: importWith(func(path string) interop.Importer {
				return interop.NewCSVImporter(path)
			}),
		},
		&cobra.Command{
			Use:   "json <file>",
			Short: "Import a JSON ledger written by export json",
			Args:  cobra.ExactArgs(1),
			RunE: importWith(func(path string) interop.Importer {
				return interop.NewJSONImporter(path)
			}),
		},
	)
	return cmd
}

// describeImportError turns logical errors into the message the user
// should read.
func describeImportError(err error) error {
	var logical *interop.LogicalError
	if errors.As(err, &logical) {
		return fmt.Errorf("import rejected: %s", logical.Message)
	}
	return err
}

func newExportCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the ledger",
	}

	var spreadsheetID, credentials string
	sheetsCmd := &cobra.Command{
		Use:   "sheets",
		Short: "Write accounts, transactions and rates to a Google spreadsheet",
		Args:  cobra.NoArgs,
		RunE: a.run(func(cmd *cobra.Command, l *services.LedgerService, args []string) error {
			cfg := a.config()
			if spreadsheetID == "" {
				spreadsheetID = cfg.GoogleSpreadsheetID
			}
			if credentials == "" {
				credentials = cfg.GoogleCredentialsFile
			}
			if spreadsheetID == "" {
				return errors.New("no spreadsheet: set GOOGLE_SPREADSHEET_ID or --spreadsheet-id")
			}
			exp, err := sheets.New(cmd.Context(), spreadsheetID, credentials, sheets.DefaultTabs())
			if err != nil {
				return err
			}
			if err := l.Export(cmd.Context(), exp); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported to spreadsheet %s\n", spreadsheetID)
			return nil
		}),
	}
	sheetsCmd.Flags().StringVar(&spreadsheetID, "spreadsheet-id", "", "target spreadsheet (default GOOGLE_SPREADSHEET_ID)")
	sheetsCmd.Flags().StringVar(&credentials, "credentials", "", "service account JSON (default GOOGLE_CREDENTIALS_FILE)")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "json <file>",
			Short: "Write the whole ledger to a JSON file",
			Args:  cobra.ExactArgs(1),
			RunE: a.run(func(cmd *cobra.Command, l *services.LedgerService, args []string) error {
				if err := l.Export(cmd.Context(), interop.NewJSONExporter(args[0])); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Exported ledger to %s\n", args[0])
				return nil
			}),
		},
		sheetsCmd,
	)
	return cmd
}
