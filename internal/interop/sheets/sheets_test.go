package sheets

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"vogon/internal/core"
	"vogon/internal/interop"
)

func dataset() *interop.Dataset {
	return &interop.Dataset{
		Accounts: []core.Account{
			{ID: 1, Name: "Cash", Currency: "EUR", Balance: -1250, IncludeInTotal: true},
			{ID: 2, Name: "Bank", Currency: "EUR", Balance: 1000},
		},
		Transactions: []core.Transaction{
			{ID: 3, Description: "Groceries", Date: core.NewDate(2024, 1, 5), Type: core.Expense, Tags: []string{"food", "home"}},
			{ID: 4, Description: "Move", Date: core.NewDate(2024, 1, 6), Type: core.Transfer},
			{ID: 5, Description: "Empty", Date: core.NewDate(2024, 1, 7), Type: core.Expense},
		},
		Components: []core.Component{
			{ID: 6, TransactionID: 3, AccountID: 1, Amount: -250},
			{ID: 7, TransactionID: 4, AccountID: 1, Amount: -1000},
			{ID: 8, TransactionID: 4, AccountID: 2, Amount: 1000},
		},
		Rates: []core.CurrencyRate{{Source: "EUR", Destination: "USD", Rate: decimal.RequireFromString("1.08")}},
	}
}

func TestAccountRows(t *testing.T) {
	rows := AccountRows(dataset())
	if len(rows) != 3 {
		t.Fatalf("got %d rows, want 3", len(rows))
	}
	if rows[1][3] != "-12.50" {
		t.Errorf("balance = %v, want -12.50", rows[1][3])
	}
	if rows[2][4] != false {
		t.Errorf("include_in_total = %v, want false", rows[2][4])
	}
}

func TestTransactionRows(t *testing.T) {
	rows := TransactionRows(dataset())
	// header + 1 groceries + 2 transfer, the empty transaction is skipped
	if len(rows) != 4 {
		t.Fatalf("got %d rows, want 4", len(rows))
	}
	if len(rows[0]) != len(interop.CSVColumns) || rows[0][0] != "transaction" {
		t.Errorf("unexpected header %v", rows[0])
	}
	want := []any{int64(3), "2024-01-05", "Groceries", "expense", "food;home", "Cash", "EUR", "-2.50"}
	for i := range want {
		if rows[1][i] != want[i] {
			t.Errorf("row 1 col %d = %v, want %v", i, rows[1][i], want[i])
		}
	}
	if rows[3][5] != "Bank" || rows[3][7] != "10.00" {
		t.Errorf("second transfer row = %v", rows[3])
	}
	for _, row := range rows[1:] {
		if row[2] == "Empty" {
			t.Errorf("transaction without components exported: %v", row)
		}
	}
}

func TestTransactionRows_ImportableAsCSV(t *testing.T) {
	var b strings.Builder
	for _, row := range TransactionRows(dataset()) {
		cells := make([]string, len(row))
		for i, v := range row {
			cells[i] = strings.TrimSpace(strings.ReplaceAll(toString(v), ",", ""))
		}
		b.WriteString(strings.Join(cells, ",") + "\n")
	}
	d, err := (&interop.CSVImporter{Reader: strings.NewReader(b.String())}).Import(context.Background())
	if err != nil {
		t.Fatalf("import exported rows: %v", err)
	}
	if len(d.Components) != 3 || len(d.Transactions) != 2 {
		t.Errorf("got %d transactions and %d components", len(d.Transactions), len(d.Components))
	}
}

func TestRateRows(t *testing.T) {
	rows := RateRows(dataset())
	if len(rows) != 2 || rows[1][2] != "1.08" {
		t.Errorf("unexpected rows %v", rows)
	}
}

func TestNew_MissingConfig(t *testing.T) {
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")
	ctx := context.Background()

	if _, err := New(ctx, "", "creds.json", DefaultTabs()); err == nil {
		t.Error("expected error for missing spreadsheet id")
	}
	if _, err := New(ctx, "sheet-id", "", DefaultTabs()); err == nil || !strings.Contains(err.Error(), "credentials") {
		t.Errorf("expected credentials error, got %v", err)
	}
	missing := filepath.Join(t.TempDir(), "nope.json")
	if _, err := New(ctx, "sheet-id", missing, DefaultTabs()); err == nil || !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected not-exist error, got %v", err)
	}
}

func TestExport_Uninitialized(t *testing.T) {
	e := &Exporter{spreadsheetID: "x", tabs: DefaultTabs()}
	if err := e.Export(context.Background(), dataset()); err == nil {
		t.Error("expected error when service is nil")
	}
}

func toString(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case int64:
		return decimal.NewFromInt(x).String()
	default:
		return ""
	}
}
