package commands_test

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vogon/internal/commands"
	"vogon/internal/core"
	"vogon/internal/services"
	"vogon/internal/storage/memory"
)

type harness struct {
	t      *testing.T
	ledger *services.LedgerService
	opens  int
	closes int
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	l, err := services.NewLedgerService(context.Background(), memory.New(), nil, services.Options{DefaultCurrency: "EUR"})
	require.NoError(t, err)
	return &harness{t: t, ledger: l}
}

func (h *harness) open(context.Context) (*commands.Session, error) {
	h.opens++
	return &commands.Session{Ledger: h.ledger, Close: func() error {
		h.closes++
		return nil
	}}, nil
}

func (h *harness) run(args ...string) (string, error) {
	h.t.Helper()
	root := commands.NewRootCommandWith(h.open)
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func (h *harness) mustRun(args ...string) string {
	h.t.Helper()
	out, err := h.run(args...)
	require.NoError(h.t, err, "vogon %v: %s", args, out)
	return out
}

func TestAccountCommands(t *testing.T) {
	h := newHarness(t)

	out := h.mustRun("account", "add", "Cash")
	assert.Contains(t, out, "Created account 1 (Cash, EUR)")
	h.mustRun("account", "add", "Card", "--currency", "usd", "--exclude-from-total")
	h.mustRun("account", "rename", "1", "Wallet")
	h.mustRun("account", "include", "2", "true")

	out = h.mustRun("account", "list")
	assert.Contains(t, out, "Wallet")
	assert.Contains(t, out, "USD")

	out = h.mustRun("rate", "list")
	assert.Contains(t, out, "EUR")
	assert.Contains(t, out, "USD")

	h.mustRun("account", "currency", "2", "GBP")
	h.mustRun("account", "delete", "2")
	accounts, err := h.ledger.Accounts(context.Background())
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.Equal(t, "Wallet", accounts[0].Name)
	assert.Empty(t, h.ledger.CurrencyRates())
}

func TestAccountCommandErrors(t *testing.T) {
	h := newHarness(t)

	_, err := h.run("account", "add", "Cash", "--currency", "nope")
	assert.ErrorIs(t, err, core.ErrInvalidCurrency)
	_, err = h.run("account", "rename", "abc", "x")
	assert.Error(t, err)
	_, err = h.run("account", "include", "1", "maybe")
	assert.Error(t, err)
	_, err = h.run("account", "delete", "42")
	assert.Error(t, err)
}

func TestTransactionCommands(t *testing.T) {
	h := newHarness(t)
	h.mustRun("account", "add", "Cash")
	h.mustRun("account", "add", "Bank")

	out := h.mustRun("tx", "add", "--date", "2024-03-05", "--desc", "Groceries", "-p", "1=-42.50", "--tag", "food")
	assert.Contains(t, out, "with 1 components")
	h.mustRun("tx", "add", "--date", "2024-03-01", "--type", "transfer", "--desc", "Savings", "-p", "1=-100", "-p", "2=100")

	out = h.mustRun("tx", "list")
	assert.Contains(t, out, "Groceries")
	assert.Contains(t, out, "2 of 2 transactions")

	out = h.mustRun("tx", "list", "--offset", "1", "--limit", "1")
	assert.Contains(t, out, "Groceries", "ordered by date, the later one comes second")
	assert.NotContains(t, out, "Savings")

	txs, err := h.ledger.Transactions(context.Background(), 0, 0)
	require.NoError(t, err)
	require.Len(t, txs, 2)
	groceries := txs[1]

	out = h.mustRun("tx", "show", itoa(groceries.ID))
	assert.Contains(t, out, "Groceries")
	assert.Contains(t, out, "tags: food")
	assert.Contains(t, out, "Total:")

	cash, err := h.ledger.Account(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, core.Amount(-14250), cash.Balance)

	h.mustRun("tx", "delete", itoa(groceries.ID))
	assert.EqualValues(t, 1, h.ledger.TransactionCount())
	cash, err = h.ledger.Account(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, core.Amount(-10000), cash.Balance)
}

func TestTransactionAddErrors(t *testing.T) {
	h := newHarness(t)
	h.mustRun("account", "add", "Cash")

	tests := [][]string{
		{"tx", "add", "-p", "1"},
		{"tx", "add", "-p", "x=1"},
		{"tx", "add", "-p", "1=abc"},
		{"tx", "add", "--date", "05/03/2024"},
		{"tx", "add", "--type", "gift"},
		{"tx", "add", "-p", "9=1"},
	}
	for _, args := range tests {
		_, err := h.run(args...)
		assert.Error(t, err, "vogon %v", args)
	}
	assert.Zero(t, h.ledger.TransactionCount())
}

func TestRateAndTotalCommands(t *testing.T) {
	h := newHarness(t)
	h.mustRun("account", "add", "Cash")
	h.mustRun("account", "add", "Card", "-c", "USD")
	h.mustRun("tx", "add", "--date", "2024-01-01", "-p", "1=-10", "-p", "2=-20")

	h.mustRun("rate", "set", "usd", "eur", "0.5")
	r, err := h.ledger.ExchangeRate("USD", "EUR")
	require.NoError(t, err)
	assert.Equal(t, "0.5", r.String())

	_, err = h.run("rate", "set", "USD", "JPY", "2")
	assert.Error(t, err)
	_, err = h.run("rate", "set", "USD", "EUR", "0")
	assert.ErrorIs(t, err, core.ErrInvalidRate)

	out := h.mustRun("total")
	assert.Contains(t, out, "20", "10 EUR plus 20 USD at 0.5")

	out = h.mustRun("total", "--currency", "USD")
	assert.Contains(t, out, "20")

	out = h.mustRun("default-currency")
	assert.Equal(t, "EUR\n", out)
	h.mustRun("default-currency", "USD")
	out = h.mustRun("default-currency")
	assert.Equal(t, "USD\n", out)
}

func TestRecalcAndCleanupCommands(t *testing.T) {
	h := newHarness(t)
	h.mustRun("account", "add", "Cash")
	h.mustRun("tx", "add", "--date", "2024-01-01", "-p", "1=-3")

	out := h.mustRun("recalc", "1")
	assert.Contains(t, out, "Cash")
	out = h.mustRun("recalc")
	assert.Contains(t, out, "Recalculated all balances")

	out = h.mustRun("cleanup")
	assert.Contains(t, out, "Removed 0 orphan components")

	_, err := h.run("recalc", "7")
	assert.Error(t, err)
}

func TestImportExportCommands(t *testing.T) {
	h := newHarness(t)
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "in.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte(`transaction,date,description,type,tags,account,currency,amount
1,2024-02-01,Rent,expense,home,Bank,EUR,-800
`), 0644))

	out := h.mustRun("import", "csv", csvPath)
	assert.Contains(t, out, "Imported 1 accounts, 1 transactions and 1 components")

	jsonPath := filepath.Join(dir, "ledger.json")
	h.mustRun("export", "json", jsonPath)
	_, err := os.Stat(jsonPath)
	require.NoError(t, err)

	other := newHarness(t)
	out = other.mustRun("import", "json", jsonPath)
	assert.Contains(t, out, "Imported 1 accounts")

	bad := filepath.Join(dir, "bad.csv")
	require.NoError(t, os.WriteFile(bad, []byte(`transaction,date,description,type,tags,account,currency,amount
1,2024-02-01,Move,transfer,,Bank,EUR,-800
`), 0644))
	_, err = h.run("import", "csv", bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "import rejected")

	_, err = h.run("export", "sheets")
	if os.Getenv("GOOGLE_SPREADSHEET_ID") == "" {
		assert.ErrorContains(t, err, "no spreadsheet")
	}
}

func TestSessionIsOpenedLazily(t *testing.T) {
	h := newHarness(t)
	_, err := h.run("--help")
	require.NoError(t, err)
	assert.Zero(t, h.opens)

	h.mustRun("account", "list")
	assert.Equal(t, 1, h.opens)
	assert.Equal(t, 1, h.closes)
}

func TestSessionIsClosedWhenCommandFails(t *testing.T) {
	h := newHarness(t)
	_, err := h.run("account", "delete", "999")
	require.Error(t, err)
	assert.Equal(t, 1, h.opens)
	assert.Equal(t, 1, h.closes)

	_, err = h.run("tx", "show", "999")
	require.Error(t, err)
	assert.Equal(t, 2, h.closes)
}

func itoa(id int64) string {
	return fmt.Sprint(id)
}
