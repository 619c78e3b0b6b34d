package services

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vogon/internal/core"
	"vogon/internal/events"
	"vogon/internal/interop"
	"vogon/internal/storage"
	"vogon/internal/storage/memory"
)

type fixture struct {
	t      *testing.T
	ctx    context.Context
	store  storage.Store
	svc    *LedgerService
	events *events.Recorder
}

func newFixture(t *testing.T, store storage.Store) *fixture {
	t.Helper()
	rec := &events.Recorder{}
	d := events.NewDispatcher(events.Forwarder{Sink: rec.Record}.Handlers())
	svc, err := NewLedgerService(context.Background(), store, d, Options{BatchSize: 2, DefaultCurrency: "EUR"})
	require.NoError(t, err)
	return &fixture{t: t, ctx: context.Background(), store: store, svc: svc, events: rec}
}

func (f *fixture) account(name string, c core.Currency) core.Account {
	f.t.Helper()
	a, err := f.svc.CreateAccount(f.ctx, core.Account{Name: name, Currency: c, IncludeInTotal: true})
	require.NoError(f.t, err)
	return a
}

func (f *fixture) expense(day int, desc string, parts map[int64]core.Amount) TransactionView {
	f.t.Helper()
	var comps []core.Component
	for acc, amt := range parts {
		comps = append(comps, core.Component{AccountID: acc, Amount: amt})
	}
	v, err := f.svc.CreateTransaction(f.ctx, core.Transaction{
		Description: desc,
		Date:        core.NewDate(2024, 2, day),
		Type:        core.Expense,
	}, comps)
	require.NoError(f.t, err)
	return v
}

func (f *fixture) balance(id int64) core.Amount {
	f.t.Helper()
	a, err := f.svc.Account(f.ctx, id)
	require.NoError(f.t, err)
	return a.Balance
}

func (f *fixture) componentCount() int {
	f.t.Helper()
	var n int
	require.NoError(f.t, f.store.View(f.ctx, func(tx storage.Tx) error {
		comps, err := tx.ListComponents(f.ctx, storage.ComponentFilter{})
		n = len(comps)
		return err
	}))
	return n
}

func ev(c events.Category, k events.Kind, id int64) events.Event {
	return events.Event{Category: c, Kind: k, EntityID: id}
}

func bulk(c events.Category) events.Event {
	return events.Event{Category: c, Kind: events.KindUpdated, Bulk: true}
}

func backends(t *testing.T, fn func(t *testing.T, f *fixture)) {
	t.Run("memory", func(t *testing.T) { fn(t, newFixture(t, memory.New())) })
	t.Run("sqlite", func(t *testing.T) {
		repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "ledger.db"))
		require.NoError(t, err)
		t.Cleanup(func() { repo.Close() })
		fn(t, newFixture(t, repo))
	})
}

func TestLedger_CreateAccountMaintainsRates(t *testing.T) {
	backends(t, func(t *testing.T, f *fixture) {
		f.account("Card", "USD")
		assert.Empty(t, f.svc.CurrencyRates())

		f.events.Reset()
		cash := f.account("Cash", "EUR")
		assert.Equal(t, []events.Event{
			bulk(events.CategoryAccount),
			ev(events.CategoryAccount, events.KindCreated, cash.ID),
			bulk(events.CategoryCurrency),
		}, f.events.Events)

		rates := f.svc.CurrencyRates()
		require.Len(t, rates, 2)
		assert.Equal(t, core.CurrencyPair{Source: "EUR", Destination: "USD"}, rates[0].Pair())
		assert.Equal(t, core.CurrencyPair{Source: "USD", Destination: "EUR"}, rates[1].Pair())
		for _, r := range rates {
			assert.True(t, r.Rate.Equal(core.DefaultRate))
		}
	})
}

func TestLedger_CreateAccountIsIdempotentForExistingID(t *testing.T) {
	f := newFixture(t, memory.New())
	a := f.account("Cash", "EUR")
	f.events.Reset()

	again, err := f.svc.CreateAccount(f.ctx, a)
	require.NoError(t, err)
	assert.Equal(t, a, again)
	assert.Empty(t, f.events.Events)

	accounts, err := f.svc.Accounts(f.ctx)
	require.NoError(t, err)
	assert.Len(t, accounts, 1)
}

func TestLedger_CreateAccountValidation(t *testing.T) {
	f := newFixture(t, memory.New())
	_, err := f.svc.CreateAccount(f.ctx, core.Account{Name: "  ", Currency: "EUR"})
	assert.ErrorIs(t, err, core.ErrEmptyName)
	_, err = f.svc.CreateAccount(f.ctx, core.Account{Name: "X", Currency: "ZZZ"})
	assert.ErrorIs(t, err, core.ErrInvalidCurrency)
}

func TestLedger_TransactionBooksBalances(t *testing.T) {
	backends(t, func(t *testing.T, f *fixture) {
		cash := f.account("Cash", "EUR")
		bank := f.account("Bank", "EUR")
		f.events.Reset()

		v := f.expense(3, "Groceries", map[int64]core.Amount{cash.ID: -1250})
		assert.Equal(t, core.Amount(-1250), f.balance(cash.ID))
		assert.EqualValues(t, 1, f.svc.TransactionCount())
		assert.True(t, f.events.Has(ev(events.CategoryTransaction, events.KindCreated, v.Transaction.ID)))
		assert.True(t, f.events.Has(ev(events.CategoryAccount, events.KindUpdated, cash.ID)))

		c, err := f.svc.AddComponent(f.ctx, v.Transaction.ID, bank.ID, 300)
		require.NoError(t, err)
		assert.Equal(t, core.Amount(300), f.balance(bank.ID))

		require.NoError(t, f.svc.SetComponentAmount(f.ctx, c.ID, 500))
		assert.Equal(t, core.Amount(500), f.balance(bank.ID))

		require.NoError(t, f.svc.SetComponentAccount(f.ctx, c.ID, cash.ID))
		assert.Equal(t, core.Amount(0), f.balance(bank.ID))
		assert.Equal(t, core.Amount(-750), f.balance(cash.ID))

		view, err := f.svc.Transaction(f.ctx, v.Transaction.ID)
		require.NoError(t, err)
		assert.Len(t, view.Components, 2)
		assert.Equal(t, core.Amount(-750), view.Total())

		require.NoError(t, f.svc.DeleteComponent(f.ctx, c.ID))
		assert.Equal(t, core.Amount(-1250), f.balance(cash.ID))

		view, err = f.svc.Transaction(f.ctx, v.Transaction.ID)
		require.NoError(t, err)
		assert.Len(t, view.Components, 1, "cached view must be invalidated")
	})
}

func TestLedger_TransactionViewIsCallerOwned(t *testing.T) {
	f := newFixture(t, memory.New())
	cash := f.account("Cash", "EUR")
	created, err := f.svc.CreateTransaction(f.ctx, core.Transaction{
		Description: "Coffee",
		Date:        core.NewDate(2024, 2, 1),
		Type:        core.Expense,
		Tags:        []string{"food"},
	}, []core.Component{{AccountID: cash.ID, Amount: -500}})
	require.NoError(t, err)
	id := created.Transaction.ID

	// first call fills the cache, second one is served from it
	for i := 0; i < 2; i++ {
		v, err := f.svc.Transaction(f.ctx, id)
		require.NoError(t, err)
		require.Len(t, v.Components, 1)
		v.Components[0].Amount = 999999
		v.Transaction.Tags[0] = "changed"
	}

	v, err := f.svc.Transaction(f.ctx, id)
	require.NoError(t, err)
	assert.Equal(t, core.Amount(-500), v.Components[0].Amount)
	assert.Equal(t, []string{"food"}, v.Transaction.Tags)

	amount, err := f.svc.AmountInCurrency(f.ctx, id, "EUR")
	require.NoError(t, err)
	assert.Equal(t, core.Amount(-500), amount)
}

func TestLedger_CreateTransactionUnknownAccountRollsBack(t *testing.T) {
	f := newFixture(t, memory.New())
	cash := f.account("Cash", "EUR")
	_, err := f.svc.CreateTransaction(f.ctx, core.Transaction{
		Date: core.NewDate(2024, 1, 1), Type: core.Expense,
	}, []core.Component{{AccountID: cash.ID, Amount: -100}, {AccountID: 999, Amount: 100}})
	require.ErrorIs(t, err, storage.ErrNotFound)

	assert.Equal(t, core.Amount(0), f.balance(cash.ID))
	assert.Zero(t, f.svc.TransactionCount())
	txs, err := f.svc.Transactions(f.ctx, 0, 0)
	require.NoError(t, err)
	assert.Empty(t, txs)
}

func TestLedger_DeleteTransaction(t *testing.T) {
	backends(t, func(t *testing.T, f *fixture) {
		cash := f.account("Cash", "EUR")
		bank := f.account("Bank", "EUR")
		keep := f.expense(1, "keep", map[int64]core.Amount{cash.ID: -100})
		gone := f.expense(2, "gone", map[int64]core.Amount{cash.ID: -200, bank.ID: 200})
		require.Equal(t, 3, f.componentCount())
		before := f.svc.TransactionCount()
		f.events.Reset()

		require.NoError(t, f.svc.DeleteTransaction(f.ctx, gone.Transaction.ID))

		assert.Equal(t, before-1, f.svc.TransactionCount())
		assert.Equal(t, 1, f.componentCount())
		assert.Equal(t, core.Amount(-100), f.balance(cash.ID))
		assert.Equal(t, core.Amount(0), f.balance(bank.ID))
		assert.True(t, f.events.Has(ev(events.CategoryTransaction, events.KindDeleted, gone.Transaction.ID)))
		assert.True(t, f.events.Has(ev(events.CategoryAccount, events.KindUpdated, bank.ID)))

		_, err := f.svc.Transaction(f.ctx, gone.Transaction.ID)
		assert.ErrorIs(t, err, storage.ErrNotFound)
		_, err = f.svc.Transaction(f.ctx, keep.Transaction.ID)
		assert.NoError(t, err)

		err = f.svc.DeleteTransaction(f.ctx, gone.Transaction.ID)
		assert.ErrorIs(t, err, storage.ErrNotFound)
		assert.Equal(t, before-1, f.svc.TransactionCount())
	})
}

func TestLedger_DeleteAccount(t *testing.T) {
	backends(t, func(t *testing.T, f *fixture) {
		cash := f.account("Cash", "EUR")
		card := f.account("Card", "USD")
		f.expense(1, "a", map[int64]core.Amount{cash.ID: -100, card.ID: 110})
		f.expense(2, "b", map[int64]core.Amount{card.ID: -50})
		f.expense(3, "c", map[int64]core.Amount{cash.ID: -10})
		require.Equal(t, 4, f.componentCount())
		require.Len(t, f.svc.CurrencyRates(), 2)
		f.events.Reset()

		require.NoError(t, f.svc.DeleteAccount(f.ctx, card.ID))

		assert.Equal(t, 2, f.componentCount(), "exactly the card components are gone")
		assert.Equal(t, core.Amount(-110), f.balance(cash.ID))
		assert.Empty(t, f.svc.CurrencyRates(), "USD is no longer used")
		assert.EqualValues(t, 3, f.svc.TransactionCount())
		assert.True(t, f.events.Has(ev(events.CategoryAccount, events.KindDeleted, card.ID)))
		assert.True(t, f.events.Has(bulk(events.CategoryCurrency)))

		_, err := f.svc.Account(f.ctx, card.ID)
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})
}

func TestLedger_AccountSetters(t *testing.T) {
	f := newFixture(t, memory.New())
	a := f.account("Cash", "EUR")
	f.account("Bank", "EUR")

	require.NoError(t, f.svc.SetAccountName(f.ctx, a.ID, " Wallet "))
	assert.ErrorIs(t, f.svc.SetAccountName(f.ctx, a.ID, ""), core.ErrEmptyName)
	require.NoError(t, f.svc.SetAccountIncludeInTotal(f.ctx, a.ID, false))

	require.NoError(t, f.svc.SetAccountCurrency(f.ctx, a.ID, "GBP"))
	assert.Len(t, f.svc.CurrencyRates(), 2)
	assert.ErrorIs(t, f.svc.SetAccountCurrency(f.ctx, a.ID, "nope"), core.ErrInvalidCurrency)

	got, err := f.svc.Account(f.ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "Wallet", got.Name)
	assert.False(t, got.IncludeInTotal)
	assert.Equal(t, core.Currency("GBP"), got.Currency)

	currencies, err := f.svc.Currencies(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, []core.Currency{"EUR", "GBP"}, currencies)

	assert.ErrorIs(t, f.svc.SetAccountName(f.ctx, 999, "x"), storage.ErrNotFound)
}

func TestLedger_TransactionSetters(t *testing.T) {
	f := newFixture(t, memory.New())
	cash := f.account("Cash", "EUR")
	v := f.expense(1, "old", map[int64]core.Amount{cash.ID: -1})
	id := v.Transaction.ID
	_, err := f.svc.Transaction(f.ctx, id)
	require.NoError(t, err)
	f.events.Reset()

	require.NoError(t, f.svc.SetTransactionDescription(f.ctx, id, "new"))
	require.NoError(t, f.svc.SetTransactionDate(f.ctx, id, core.NewDate(2023, 12, 31)))
	require.NoError(t, f.svc.SetTransactionType(f.ctx, id, core.Transfer))
	require.NoError(t, f.svc.SetTransactionTags(f.ctx, id, []string{" a ", "", "b"}))
	assert.ErrorIs(t, f.svc.SetTransactionType(f.ctx, id, "gift"), core.ErrInvalidTransactionType)

	got, err := f.svc.Transaction(f.ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "new", got.Transaction.Description)
	assert.Equal(t, "2023-12-31", got.Transaction.Date.String())
	assert.Equal(t, core.Transfer, got.Transaction.Type)
	assert.Equal(t, []string{"a", "b"}, got.Transaction.Tags)

	assert.True(t, f.events.Has(ev(events.CategoryTransaction, events.KindUpdated, id)))
	assert.True(t, f.events.Has(ev(events.CategoryAccount, events.KindUpdated, cash.ID)))
}

func TestLedger_TransactionsPaging(t *testing.T) {
	f := newFixture(t, memory.New())
	cash := f.account("Cash", "EUR")
	for _, day := range []int{5, 1, 3} {
		f.expense(day, "x", map[int64]core.Amount{cash.ID: -1})
	}
	page, err := f.svc.Transactions(f.ctx, 1, 1)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "2024-02-03", page[0].Date.String())
}

func TestLedger_RatesAndTotals(t *testing.T) {
	f := newFixture(t, memory.New())
	cash := f.account("Cash", "EUR")
	card := f.account("Card", "USD")
	hidden := f.account("Hidden", "EUR")
	require.NoError(t, f.svc.SetAccountIncludeInTotal(f.ctx, hidden.ID, false))

	v := f.expense(1, "trip", map[int64]core.Amount{cash.ID: -1000, card.ID: -2000})
	f.expense(2, "x", map[int64]core.Amount{hidden.ID: 99999})

	var usdEur core.CurrencyRate
	for _, r := range f.svc.CurrencyRates() {
		if r.Source == "USD" {
			usdEur = r
		}
	}
	require.NoError(t, f.svc.SetExchangeRate(f.ctx, usdEur.ID, decimal.RequireFromString("0.9")))

	rate, err := f.svc.ExchangeRate("USD", "EUR")
	require.NoError(t, err)
	assert.Equal(t, "0.9", rate.String())
	rate, err = f.svc.ExchangeRate("JPY", "JPY")
	require.NoError(t, err)
	assert.True(t, rate.Equal(core.DefaultRate))
	_, err = f.svc.ExchangeRate("JPY", "EUR")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	amount, err := f.svc.AmountInCurrency(f.ctx, v.Transaction.ID, "EUR")
	require.NoError(t, err)
	assert.Equal(t, core.Amount(-1000-1800), amount)

	total, err := f.svc.TotalBalance(f.ctx, "EUR")
	require.NoError(t, err)
	assert.Equal(t, core.Amount(-1000), total, "only included EUR accounts, unconverted")

	total, err = f.svc.TotalBalance(f.ctx, "")
	require.NoError(t, err)
	assert.Equal(t, core.Amount(-2800), total, "all included accounts in the default currency")

	require.NoError(t, f.svc.SetDefaultCurrency(f.ctx, "USD"))
	total, err = f.svc.TotalBalance(f.ctx, "")
	require.NoError(t, err)
	assert.Equal(t, core.Amount(-3000), total)

	assert.ErrorIs(t, f.svc.SetExchangeRate(f.ctx, usdEur.ID, decimal.Zero), core.ErrInvalidRate)
	assert.ErrorIs(t, f.svc.SetExchangeRate(f.ctx, 424242, decimal.NewFromInt(2)), storage.ErrNotFound)
	assert.ErrorIs(t, f.svc.SetDefaultCurrency(f.ctx, "??"), core.ErrInvalidCurrency)
}

func TestLedger_RefreshAccountBalance(t *testing.T) {
	f := newFixture(t, memory.New())
	cash := f.account("Cash", "EUR")
	f.expense(1, "x", map[int64]core.Amount{cash.ID: -700})
	require.NoError(t, f.store.InTx(f.ctx, func(tx storage.Tx) error {
		return tx.AdjustAccountBalance(f.ctx, cash.ID, 5)
	}))
	f.events.Reset()

	got, err := f.svc.RefreshAccountBalance(f.ctx, cash.ID)
	require.NoError(t, err)
	assert.Equal(t, core.Amount(-700), got)
	assert.True(t, f.events.Has(ev(events.CategoryAccount, events.KindUpdated, cash.ID)))

	require.NoError(t, f.store.InTx(f.ctx, func(tx storage.Tx) error {
		return tx.AdjustAccountBalance(f.ctx, cash.ID, 5)
	}))
	require.NoError(t, f.svc.RefreshAllBalances(f.ctx))
	assert.Equal(t, core.Amount(-700), f.balance(cash.ID))
}

func TestLedger_Cleanup(t *testing.T) {
	backends(t, func(t *testing.T, f *fixture) {
		cash := f.account("Cash", "EUR")
		f.expense(1, "x", map[int64]core.Amount{cash.ID: -1})
		require.NoError(t, f.store.InTx(f.ctx, func(tx storage.Tx) error {
			c := core.Component{TransactionID: 5555, AccountID: cash.ID, Amount: 3}
			return tx.CreateComponent(f.ctx, &c)
		}))
		f.events.Reset()

		res, err := f.svc.Cleanup(f.ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, res.OrphanComponents)
		assert.False(t, res.Rates.Changed())
		assert.Equal(t, 1, f.componentCount())
		assert.Equal(t, []events.Event{
			bulk(events.CategoryTransaction), bulk(events.CategoryAccount), bulk(events.CategoryCurrency),
		}, f.events.Events)
	})
}

// failingStore makes every rate creation fail inside write transactions.
type failingStore struct {
	storage.Store
}

type failingTx struct {
	storage.Tx
}

var errRateWrite = errors.New("rate write failed")

func (failingTx) CreateRate(context.Context, *core.CurrencyRate) error { return errRateWrite }

func (s failingStore) InTx(ctx context.Context, fn func(storage.Tx) error) error {
	return s.Store.InTx(ctx, func(tx storage.Tx) error { return fn(failingTx{tx}) })
}

func TestLedger_FailedRateWriteRollsBackMutation(t *testing.T) {
	mem := memory.New()
	f := newFixture(t, mem)
	f.account("Cash", "EUR")

	svc, err := NewLedgerService(f.ctx, failingStore{mem}, nil, Options{})
	require.NoError(t, err)

	_, err = svc.CreateAccount(f.ctx, core.Account{Name: "Card", Currency: "USD"})
	require.ErrorIs(t, err, errRateWrite)

	accounts, err := svc.Accounts(f.ctx)
	require.NoError(t, err)
	assert.Len(t, accounts, 1, "account insert rolled back with the rate write")
	assert.Empty(t, svc.CurrencyRates())
}

func TestLedger_ImportAndExport(t *testing.T) {
	backends(t, func(t *testing.T, f *fixture) {
		existing := f.account("Existing", "CHF")
		csv := `transaction,date,description,type,tags,account,currency,amount
a,2024-03-01,Salary,expense,work,Bank,USD,2500.00
b,2024-03-02,Move,transfer,,Bank,USD,-100
b,2024-03-02,Move,transfer,,Cash,USD,100
`
		f.events.Reset()
		res, err := f.svc.Import(f.ctx, &interop.CSVImporter{Path: "in.csv", Reader: strings.NewReader(csv)})
		require.NoError(t, err)
		assert.Equal(t, ImportResult{Accounts: 2, Transactions: 2, Components: 3}, res)
		assert.EqualValues(t, 2, f.svc.TransactionCount())
		assert.Len(t, f.svc.CurrencyRates(), 2)
		assert.True(t, f.events.Has(bulk(events.CategoryTransaction)))

		def, err := f.svc.DefaultCurrency(f.ctx)
		require.NoError(t, err)
		assert.Equal(t, core.Currency("CHF"), def, "fallback EUR unused, first used currency wins")

		accounts, err := f.svc.Accounts(f.ctx)
		require.NoError(t, err)
		require.Len(t, accounts, 3)
		assert.Equal(t, existing.ID, accounts[0].ID)
		assert.Equal(t, core.Amount(240000), accounts[1].Balance)
		assert.Equal(t, core.Amount(10000), accounts[2].Balance)

		snap, err := f.svc.Snapshot(f.ctx)
		require.NoError(t, err)
		assert.Len(t, snap.Components, 3)
		assert.Equal(t, core.Currency("CHF"), snap.DefaultCurrency)

		path := filepath.Join(t.TempDir(), "out.json")
		require.NoError(t, f.svc.Export(f.ctx, interop.NewJSONExporter(path)))

		other := newFixture(t, memory.New())
		res, err = other.svc.Import(other.ctx, interop.NewJSONImporter(path))
		require.NoError(t, err)
		assert.Equal(t, ImportResult{Accounts: 3, Transactions: 2, Components: 3}, res)
		otherAccounts, err := other.svc.Accounts(other.ctx)
		require.NoError(t, err)
		for i := range accounts {
			assert.Equal(t, accounts[i].Balance, otherAccounts[i].Balance)
		}
	})
}

func TestLedger_ImportAppliesRatesAndKeepsDefault(t *testing.T) {
	f := newFixture(t, memory.New())
	imp := stubImporter{d: &interop.Dataset{
		Accounts: []core.Account{{ID: 1, Name: "A", Currency: "EUR"}, {ID: 2, Name: "B", Currency: "USD"}},
		Rates: []core.CurrencyRate{
			{Source: "USD", Destination: "EUR", Rate: decimal.RequireFromString("0.95")},
			{Source: "GBP", Destination: "EUR", Rate: decimal.RequireFromString("1.2")},
		},
	}}
	_, err := f.svc.Import(f.ctx, imp)
	require.NoError(t, err)

	r, err := f.svc.ExchangeRate("USD", "EUR")
	require.NoError(t, err)
	assert.Equal(t, "0.95", r.String())
	_, err = f.svc.ExchangeRate("GBP", "EUR")
	assert.Error(t, err, "rates for unused currencies are not imported")

	def, err := f.svc.DefaultCurrency(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, core.Currency("EUR"), def)
}

func TestLedger_ImportErrorsLeaveLedgerUntouched(t *testing.T) {
	f := newFixture(t, memory.New())
	bad := stubImporter{d: &interop.Dataset{
		Components: []core.Component{{TransactionID: 1, AccountID: 1, Amount: 1}},
	}}
	_, err := f.svc.Import(f.ctx, bad)
	var le *interop.LogicalError
	assert.ErrorAs(t, err, &le)

	_, err = f.svc.Import(f.ctx, stubImporter{err: &interop.FormatError{Source: "x", Err: errors.New("eof")}})
	var fe *interop.FormatError
	assert.ErrorAs(t, err, &fe)

	accounts, err := f.svc.Accounts(f.ctx)
	require.NoError(t, err)
	assert.Empty(t, accounts)
}

func TestLedger_ReloadPicksUpExternalChanges(t *testing.T) {
	mem := memory.New()
	f := newFixture(t, mem)
	f.account("Cash", "EUR")

	other, err := NewLedgerService(f.ctx, mem, nil, Options{})
	require.NoError(t, err)
	_, err = other.CreateAccount(f.ctx, core.Account{Name: "Card", Currency: "USD"})
	require.NoError(t, err)

	assert.Empty(t, f.svc.CurrencyRates())
	f.events.Reset()
	require.NoError(t, f.svc.Reload(f.ctx))
	assert.Len(t, f.svc.CurrencyRates(), 2)
	assert.Len(t, f.events.Events, 3)
}

type stubImporter struct {
	d   *interop.Dataset
	err error
}

func (s stubImporter) Import(context.Context) (*interop.Dataset, error) { return s.d, s.err }
