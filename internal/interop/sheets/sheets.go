// Package sheets exports a ledger to a Google spreadsheet.
package sheets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"golang.org/x/sync/errgroup"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"vogon/internal/core"
	"vogon/internal/interop"
)

// Tabs names the sheets written by the exporter. They must already exist
// in the spreadsheet.
type Tabs struct {
	Accounts     string
	Transactions string
	Rates        string
}

func DefaultTabs() Tabs {
	return Tabs{Accounts: "Accounts", Transactions: "Transactions", Rates: "Rates"}
}

// Exporter overwrites one tab per entity kind. Transactions are written one
// row per component with the same columns interop.CSVImporter reads.
type Exporter struct {
	svc           *gsheet.Service
	spreadsheetID string
	tabs          Tabs
}

var _ interop.Exporter = (*Exporter)(nil)

// New creates an exporter authenticated with a service account key file.
// When credentialsFile is empty GOOGLE_APPLICATION_CREDENTIALS is used.
func New(ctx context.Context, spreadsheetID, credentialsFile string, tabs Tabs) (*Exporter, error) {
	spreadsheetID = strings.TrimSpace(spreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	if credentialsFile == "" {
		credentialsFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}
	if credentialsFile == "" {
		return nil, errors.New("missing service account credentials (set GOOGLE_CREDENTIALS_FILE or GOOGLE_APPLICATION_CREDENTIALS)")
	}
	credentialsJSON, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("read service account file: %w", err)
	}

	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	slog.InfoContext(ctx, "Google Sheets service created", "spreadsheet_id", spreadsheetID)

	return &Exporter{svc: svc, spreadsheetID: spreadsheetID, tabs: tabs}, nil
}

// Export writes the three tabs concurrently.
func (e *Exporter) Export(ctx context.Context, d *interop.Dataset) error {
	if e.svc == nil {
		return errors.New("sheets service not initialized")
	}
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return e.writeTab(ctx, e.tabs.Accounts, AccountRows(d)) })
	g.Go(func() error { return e.writeTab(ctx, e.tabs.Transactions, TransactionRows(d)) })
	g.Go(func() error { return e.writeTab(ctx, e.tabs.Rates, RateRows(d)) })
	return g.Wait()
}

func (e *Exporter) writeTab(ctx context.Context, tab string, rows [][]any) error {
	rng := fmt.Sprintf("%s!A:Z", tab)
	if _, err := e.svc.Spreadsheets.Values.Clear(e.spreadsheetID, rng, &gsheet.ClearValuesRequest{}).Context(ctx).Do(); err != nil {
		return &interop.FormatError{Source: tab, Err: fmt.Errorf("clear: %w", err)}
	}
	vr := &gsheet.ValueRange{Values: rows}
	_, err := e.svc.Spreadsheets.Values.Update(e.spreadsheetID, fmt.Sprintf("%s!A1", tab), vr).
		ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return &interop.FormatError{Source: tab, Err: fmt.Errorf("update: %w", err)}
	}
	slog.InfoContext(ctx, "Sheet tab written", "tab", tab, "rows", len(rows)-1)
	return nil
}

// AccountRows renders the accounts tab, header first.
func AccountRows(d *interop.Dataset) [][]any {
	rows := [][]any{{"id", "name", "currency", "balance", "include_in_total"}}
	for _, a := range d.Accounts {
		rows = append(rows, []any{a.ID, a.Name, string(a.Currency), a.Balance.String(), a.IncludeInTotal})
	}
	return rows
}

// TransactionRows renders one row per component, grouped by transaction in
// dataset order. Transactions without components have no row, since the
// import format keys every row by account.
func TransactionRows(d *interop.Dataset) [][]any {
	header := make([]any, len(interop.CSVColumns))
	for i, c := range interop.CSVColumns {
		header[i] = c
	}
	rows := [][]any{header}

	accounts := make(map[int64]core.Account, len(d.Accounts))
	for _, a := range d.Accounts {
		accounts[a.ID] = a
	}
	byTx := make(map[int64][]core.Component, len(d.Transactions))
	for _, c := range d.Components {
		byTx[c.TransactionID] = append(byTx[c.TransactionID], c)
	}

	for _, t := range d.Transactions {
		base := []any{t.ID, t.Date.String(), t.Description, string(t.Type), strings.Join(t.Tags, ";")}
		for _, c := range byTx[t.ID] {
			acc := accounts[c.AccountID]
			row := append(append([]any{}, base...), acc.Name, string(acc.Currency), c.Amount.String())
			rows = append(rows, row)
		}
	}
	return rows
}

// RateRows renders the rates tab, header first.
func RateRows(d *interop.Dataset) [][]any {
	rows := [][]any{{"source", "destination", "rate"}}
	for _, r := range d.Rates {
		rows = append(rows, []any{string(r.Source), string(r.Destination), r.Rate.String()})
	}
	return rows
}
