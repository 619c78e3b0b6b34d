package services

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vogon/internal/core"
	"vogon/internal/storage"
	"vogon/internal/storage/memory"
)

// seedLedger writes accounts and transactions straight to the store and
// leaves the stored balances wrong on purpose.
func seedLedger(t *testing.T, store storage.Store) (cash, bank int64, want map[int64]core.Amount) {
	t.Helper()
	ctx := context.Background()
	want = map[int64]core.Amount{}
	require.NoError(t, store.InTx(ctx, func(tx storage.Tx) error {
		c := core.Account{Name: "Cash", Currency: "EUR"}
		b := core.Account{Name: "Bank", Currency: "EUR"}
		if err := tx.CreateAccount(ctx, &c); err != nil {
			return err
		}
		if err := tx.CreateAccount(ctx, &b); err != nil {
			return err
		}
		cash, bank = c.ID, b.ID

		for i := 0; i < 7; i++ {
			tr := core.Transaction{
				Description: fmt.Sprintf("t%d", i),
				Date:        core.NewDate(2024, 1, 7-i),
				Type:        core.Expense,
			}
			if err := tx.CreateTransaction(ctx, &tr); err != nil {
				return err
			}
			amounts := map[int64]core.Amount{cash: core.Amount(-100 * (i + 1)), bank: core.Amount(33 * i)}
			for acc, amt := range amounts {
				comp := core.Component{TransactionID: tr.ID, AccountID: acc, Amount: amt}
				if err := tx.CreateComponent(ctx, &comp); err != nil {
					return err
				}
				want[acc] += amt
			}
		}
		return tx.AdjustAccountBalance(ctx, cash, 123456)
	}))
	return cash, bank, want
}

func TestBalanceRecalculator_IndependentOfBatchSize(t *testing.T) {
	for _, batch := range []int{1, 2, 3, 7, 100} {
		t.Run(fmt.Sprintf("batch_%d", batch), func(t *testing.T) {
			ctx := context.Background()
			store := memory.New()
			cash, bank, want := seedLedger(t, store)

			r := NewBalanceRecalculator(store, batch)
			got, err := r.Recalculate(ctx, cash)
			require.NoError(t, err)
			assert.Equal(t, want[cash], got)

			got, err = r.Recalculate(ctx, bank)
			require.NoError(t, err)
			assert.Equal(t, want[bank], got)

			require.NoError(t, store.View(ctx, func(tx storage.Tx) error {
				acc, err := tx.FindAccount(ctx, cash)
				require.NoError(t, err)
				assert.Equal(t, want[cash], acc.Balance)
				return nil
			}))
		})
	}
}

func TestBalanceRecalculator_IgnoresOrphanedComponents(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	cash, _, want := seedLedger(t, store)
	require.NoError(t, store.InTx(ctx, func(tx storage.Tx) error {
		c := core.Component{TransactionID: 99999, AccountID: cash, Amount: 5}
		return tx.CreateComponent(ctx, &c)
	}))

	got, err := NewBalanceRecalculator(store, 2).Recalculate(ctx, cash)
	require.NoError(t, err)
	assert.Equal(t, want[cash], got)
}

func TestBalanceRecalculator_UnknownAccount(t *testing.T) {
	_, err := NewBalanceRecalculator(memory.New(), 10).Recalculate(context.Background(), 42)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestBalanceRecalculator_RecalculateAll(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	cash, bank, want := seedLedger(t, store)

	ids, err := NewBalanceRecalculator(store, 0).RecalculateAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{cash, bank}, ids)

	require.NoError(t, store.View(ctx, func(tx storage.Tx) error {
		accounts, err := tx.ListAccounts(ctx)
		require.NoError(t, err)
		for _, a := range accounts {
			assert.Equal(t, want[a.ID], a.Balance, a.Name)
		}
		return nil
	}))
}

func TestNewBalanceRecalculator_DefaultBatch(t *testing.T) {
	assert.Equal(t, DefaultBatchSize, NewBalanceRecalculator(nil, 0).BatchSize())
	assert.Equal(t, 5, NewBalanceRecalculator(nil, 5).BatchSize())
}
