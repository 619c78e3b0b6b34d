// Package storetest holds the behaviour suite every storage.Store backend
// must pass.
package storetest

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vogon/internal/core"
	"vogon/internal/storage"
)

// Run executes the suite against stores created by newStore.
func Run(t *testing.T, newStore func(t *testing.T) storage.Store) {
	t.Run("accounts", func(t *testing.T) { testAccounts(t, newStore(t)) })
	t.Run("transactions", func(t *testing.T) { testTransactions(t, newStore(t)) })
	t.Run("components", func(t *testing.T) { testComponents(t, newStore(t)) })
	t.Run("rates", func(t *testing.T) { testRates(t, newStore(t)) })
	t.Run("preferences", func(t *testing.T) { testPreferences(t, newStore(t)) })
	t.Run("rollback", func(t *testing.T) { testRollback(t, newStore(t)) })
}

func testAccounts(t *testing.T, s storage.Store) {
	ctx := context.Background()
	var cash core.Account
	require.NoError(t, s.InTx(ctx, func(tx storage.Tx) error {
		cash = core.Account{Name: "Cash", Currency: "EUR", IncludeInTotal: true}
		return tx.CreateAccount(ctx, &cash)
	}))
	require.NotZero(t, cash.ID)

	require.NoError(t, s.InTx(ctx, func(tx storage.Tx) error {
		if err := tx.AdjustAccountBalance(ctx, cash.ID, 1250); err != nil {
			return err
		}
		if err := tx.AdjustAccountBalance(ctx, cash.ID, -250); err != nil {
			return err
		}
		return tx.UpdateAccount(ctx, core.Account{ID: cash.ID, Name: "Wallet", Currency: "USD", Balance: 99999})
	}))

	require.NoError(t, s.View(ctx, func(tx storage.Tx) error {
		got, err := tx.FindAccount(ctx, cash.ID)
		require.NoError(t, err)
		assert.Equal(t, "Wallet", got.Name)
		assert.Equal(t, core.Currency("USD"), got.Currency)
		assert.Equal(t, core.Amount(1000), got.Balance, "UpdateAccount must not touch the balance")
		assert.False(t, got.IncludeInTotal)

		all, err := tx.ListAccounts(ctx)
		require.NoError(t, err)
		assert.Len(t, all, 1)
		return nil
	}))

	require.NoError(t, s.InTx(ctx, func(tx storage.Tx) error { return tx.DeleteAccount(ctx, cash.ID) }))
	err := s.View(ctx, func(tx storage.Tx) error {
		_, err := tx.FindAccount(ctx, cash.ID)
		return err
	})
	assert.True(t, errors.Is(err, storage.ErrNotFound), "got %v", err)

	err = s.InTx(ctx, func(tx storage.Tx) error { return tx.AdjustAccountBalance(ctx, cash.ID, 1) })
	assert.True(t, errors.Is(err, storage.ErrNotFound), "got %v", err)
}

func testTransactions(t *testing.T, s storage.Store) {
	ctx := context.Background()
	dates := []core.Date{core.NewDate(2024, 3, 1), core.NewDate(2024, 1, 5), core.NewDate(2024, 1, 5)}
	ids := make([]int64, len(dates))

	require.NoError(t, s.InTx(ctx, func(tx storage.Tx) error {
		for i, d := range dates {
			tr := core.Transaction{Description: "t", Date: d, Type: core.Expense, Tags: []string{"b", "a"}}
			if err := tx.CreateTransaction(ctx, &tr); err != nil {
				return err
			}
			ids[i] = tr.ID
		}
		return nil
	}))

	require.NoError(t, s.View(ctx, func(tx storage.Tx) error {
		all, err := tx.ListTransactions(ctx, storage.TransactionFilter{})
		require.NoError(t, err)
		require.Len(t, all, 3)
		assert.Equal(t, []int64{ids[1], ids[2], ids[0]}, []int64{all[0].ID, all[1].ID, all[2].ID}, "ordered by date then id")
		assert.Equal(t, []string{"b", "a"}, all[0].Tags)

		page, err := tx.ListTransactions(ctx, storage.TransactionFilter{Offset: 1, Limit: 1})
		require.NoError(t, err)
		require.Len(t, page, 1)
		assert.Equal(t, ids[2], page[0].ID)

		tail, err := tx.ListTransactions(ctx, storage.TransactionFilter{Offset: 3, Limit: 2})
		require.NoError(t, err)
		assert.Empty(t, tail)

		n, err := tx.CountTransactions(ctx)
		require.NoError(t, err)
		assert.EqualValues(t, 3, n)
		return nil
	}))

	require.NoError(t, s.InTx(ctx, func(tx storage.Tx) error {
		tr, err := tx.FindTransaction(ctx, ids[0])
		if err != nil {
			return err
		}
		tr.Description = "rent"
		tr.Type = core.Transfer
		tr.Tags = []string{"home"}
		return tx.UpdateTransaction(ctx, tr)
	}))

	require.NoError(t, s.View(ctx, func(tx storage.Tx) error {
		tr, err := tx.FindTransaction(ctx, ids[0])
		require.NoError(t, err)
		assert.Equal(t, "rent", tr.Description)
		assert.Equal(t, core.Transfer, tr.Type)
		assert.Equal(t, []string{"home"}, tr.Tags)
		assert.Equal(t, "2024-03-01", tr.Date.String())
		return nil
	}))
}

func testComponents(t *testing.T, s storage.Store) {
	ctx := context.Background()
	var (
		acc1, acc2 core.Account
		tr1, tr2   core.Transaction
	)
	require.NoError(t, s.InTx(ctx, func(tx storage.Tx) error {
		acc1 = core.Account{Name: "A", Currency: "EUR"}
		acc2 = core.Account{Name: "B", Currency: "EUR"}
		tr1 = core.Transaction{Date: core.NewDate(2024, 1, 1), Type: core.Expense}
		tr2 = core.Transaction{Date: core.NewDate(2024, 1, 2), Type: core.Transfer}
		for _, a := range []*core.Account{&acc1, &acc2} {
			if err := tx.CreateAccount(ctx, a); err != nil {
				return err
			}
		}
		for _, tr := range []*core.Transaction{&tr1, &tr2} {
			if err := tx.CreateTransaction(ctx, tr); err != nil {
				return err
			}
		}
		comps := []core.Component{
			{TransactionID: tr1.ID, AccountID: acc1.ID, Amount: -500},
			{TransactionID: tr2.ID, AccountID: acc1.ID, Amount: -1000},
			{TransactionID: tr2.ID, AccountID: acc2.ID, Amount: 1000},
		}
		for i := range comps {
			if err := tx.CreateComponent(ctx, &comps[i]); err != nil {
				return err
			}
		}
		return nil
	}))

	require.NoError(t, s.View(ctx, func(tx storage.Tx) error {
		byAccount, err := tx.ListComponents(ctx, storage.ComponentFilter{AccountID: acc1.ID})
		require.NoError(t, err)
		assert.Len(t, byAccount, 2)
		assert.Equal(t, core.Amount(-1500), core.SumAmounts(byAccount))

		both, err := tx.ListComponents(ctx, storage.ComponentFilter{TransactionIDs: []int64{tr2.ID}, AccountID: acc2.ID})
		require.NoError(t, err)
		require.Len(t, both, 1)
		assert.Equal(t, core.Amount(1000), both[0].Amount)

		orphans, err := tx.ListComponents(ctx, storage.ComponentFilter{Orphaned: true})
		require.NoError(t, err)
		assert.Empty(t, orphans)
		return nil
	}))

	// A component pointing at a transaction that does not exist is an orphan.
	var orphan core.Component
	require.NoError(t, s.InTx(ctx, func(tx storage.Tx) error {
		orphan = core.Component{TransactionID: 987654, AccountID: acc1.ID, Amount: 1}
		return tx.CreateComponent(ctx, &orphan)
	}))

	require.NoError(t, s.InTx(ctx, func(tx storage.Tx) error { return tx.DeleteTransaction(ctx, tr2.ID) }))

	require.NoError(t, s.View(ctx, func(tx storage.Tx) error {
		rest, err := tx.ListComponents(ctx, storage.ComponentFilter{})
		require.NoError(t, err)
		assert.Len(t, rest, 2, "transaction delete cascades to its components")

		orphans, err := tx.ListComponents(ctx, storage.ComponentFilter{Orphaned: true})
		require.NoError(t, err)
		require.Len(t, orphans, 1)
		assert.Equal(t, orphan.ID, orphans[0].ID)

		c, err := tx.FindComponent(ctx, orphan.ID)
		require.NoError(t, err)
		assert.Equal(t, acc1.ID, c.AccountID)
		return nil
	}))

	require.NoError(t, s.InTx(ctx, func(tx storage.Tx) error {
		c, err := tx.FindComponent(ctx, orphan.ID)
		if err != nil {
			return err
		}
		c.Amount = 42
		c.AccountID = acc2.ID
		if err := tx.UpdateComponent(ctx, c); err != nil {
			return err
		}
		got, err := tx.FindComponent(ctx, orphan.ID)
		if err != nil {
			return err
		}
		assert.Equal(t, core.Amount(42), got.Amount)
		assert.Equal(t, acc2.ID, got.AccountID)
		return tx.DeleteComponent(ctx, orphan.ID)
	}))

	err := s.View(ctx, func(tx storage.Tx) error {
		_, err := tx.FindComponent(ctx, orphan.ID)
		return err
	})
	assert.True(t, errors.Is(err, storage.ErrNotFound), "got %v", err)
}

func testRates(t *testing.T, s storage.Store) {
	ctx := context.Background()
	var usdEur core.CurrencyRate
	require.NoError(t, s.InTx(ctx, func(tx storage.Tx) error {
		usdEur = core.CurrencyRate{Source: "USD", Destination: "EUR", Rate: decimal.RequireFromString("0.92")}
		if err := tx.CreateRate(ctx, &usdEur); err != nil {
			return err
		}
		eurUsd := core.CurrencyRate{Source: "EUR", Destination: "USD", Rate: core.DefaultRate}
		return tx.CreateRate(ctx, &eurUsd)
	}))

	require.NoError(t, s.InTx(ctx, func(tx storage.Tx) error {
		usdEur.Rate = decimal.RequireFromString("0.95")
		return tx.UpdateRate(ctx, usdEur)
	}))

	require.NoError(t, s.View(ctx, func(tx storage.Tx) error {
		rates, err := tx.ListRates(ctx)
		require.NoError(t, err)
		require.Len(t, rates, 2)
		assert.Equal(t, core.Currency("EUR"), rates[0].Source)
		assert.True(t, rates[0].Rate.Equal(core.DefaultRate))
		assert.True(t, rates[1].Rate.Equal(decimal.RequireFromString("0.95")), "got %s", rates[1].Rate)
		return nil
	}))

	require.NoError(t, s.InTx(ctx, func(tx storage.Tx) error { return tx.DeleteRate(ctx, usdEur.ID) }))
	err := s.InTx(ctx, func(tx storage.Tx) error { return tx.DeleteRate(ctx, usdEur.ID) })
	assert.True(t, errors.Is(err, storage.ErrNotFound), "got %v", err)
}

func testPreferences(t *testing.T, s storage.Store) {
	ctx := context.Background()
	require.NoError(t, s.View(ctx, func(tx storage.Tx) error {
		c, err := tx.DefaultCurrency(ctx)
		require.NoError(t, err)
		assert.Empty(t, c)
		return nil
	}))
	for _, c := range []core.Currency{"EUR", "CHF"} {
		require.NoError(t, s.InTx(ctx, func(tx storage.Tx) error { return tx.SetDefaultCurrency(ctx, c) }))
	}
	require.NoError(t, s.View(ctx, func(tx storage.Tx) error {
		c, err := tx.DefaultCurrency(ctx)
		require.NoError(t, err)
		assert.Equal(t, core.Currency("CHF"), c)
		return nil
	}))
}

func testRollback(t *testing.T, s storage.Store) {
	ctx := context.Background()
	boom := errors.New("boom")
	err := s.InTx(ctx, func(tx storage.Tx) error {
		a := core.Account{Name: "Ghost", Currency: "EUR"}
		if err := tx.CreateAccount(ctx, &a); err != nil {
			return err
		}
		r := core.CurrencyRate{Source: "EUR", Destination: "USD", Rate: core.DefaultRate}
		if err := tx.CreateRate(ctx, &r); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	require.NoError(t, s.View(ctx, func(tx storage.Tx) error {
		accounts, err := tx.ListAccounts(ctx)
		require.NoError(t, err)
		assert.Empty(t, accounts)
		rates, err := tx.ListRates(ctx)
		require.NoError(t, err)
		assert.Empty(t, rates)
		return nil
	}))
}
