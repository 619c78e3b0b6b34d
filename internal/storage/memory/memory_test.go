package memory

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vogon/internal/core"
	"vogon/internal/storage"
	"vogon/internal/storage/storetest"
)

func TestStore(t *testing.T) {
	storetest.Run(t, func(*testing.T) storage.Store { return New() })
}

func TestNewFromFiles(t *testing.T) {
	dir := t.TempDir()
	seed := "# name;currency\nCash;eur\n\nBank;USD\nbroken line\nBad;XYZQ\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "seed_accounts.txt"), []byte(seed), 0o644))

	s := NewFromFiles(dir)
	ctx := context.Background()
	require.NoError(t, s.View(ctx, func(tx storage.Tx) error {
		accounts, err := tx.ListAccounts(ctx)
		require.NoError(t, err)
		require.Len(t, accounts, 2)
		assert.Equal(t, "Cash", accounts[0].Name)
		assert.Equal(t, core.Currency("EUR"), accounts[0].Currency)
		assert.Equal(t, core.Currency("USD"), accounts[1].Currency)
		return nil
	}))
}

func TestNewFromFiles_Missing(t *testing.T) {
	s := NewFromFiles(t.TempDir())
	ctx := context.Background()
	require.NoError(t, s.View(ctx, func(tx storage.Tx) error {
		accounts, err := tx.ListAccounts(ctx)
		require.NoError(t, err)
		assert.Empty(t, accounts)
		return nil
	}))
}

func TestInTx_CanceledContextDiscardsWork(t *testing.T) {
	s := New()
	ctx, cancel := context.WithCancel(context.Background())
	err := s.InTx(ctx, func(tx storage.Tx) error {
		a := core.Account{Name: "Cash", Currency: "EUR"}
		if err := tx.CreateAccount(ctx, &a); err != nil {
			return err
		}
		cancel()
		return nil
	})
	require.ErrorIs(t, err, context.Canceled)

	require.NoError(t, s.View(context.Background(), func(tx storage.Tx) error {
		accounts, _ := tx.ListAccounts(context.Background())
		assert.Empty(t, accounts)
		return nil
	}))
}

func TestView_DoesNotLeakWrites(t *testing.T) {
	s := New()
	ctx := context.Background()
	require.NoError(t, s.View(ctx, func(tx storage.Tx) error {
		a := core.Account{Name: "Cash", Currency: "EUR"}
		return tx.CreateAccount(ctx, &a)
	}))
	require.NoError(t, s.View(ctx, func(tx storage.Tx) error {
		accounts, _ := tx.ListAccounts(ctx)
		assert.Empty(t, accounts)
		return nil
	}))
}

func TestView_ReadsLiveArenaAndRejectsWrites(t *testing.T) {
	s := New()
	ctx := context.Background()
	require.NoError(t, s.InTx(ctx, func(tx storage.Tx) error {
		a := core.Account{Name: "Cash", Currency: "EUR"}
		return tx.CreateAccount(ctx, &a)
	}))
	live := s.arena

	require.NoError(t, s.View(ctx, func(rtx storage.Tx) error {
		assert.Same(t, live, rtx.(*tx).a, "reads must not copy the arena")

		acc, err := rtx.FindAccount(ctx, 1)
		require.NoError(t, err)
		assert.ErrorIs(t, rtx.AdjustAccountBalance(ctx, acc.ID, 5), ErrReadOnly)
		assert.ErrorIs(t, rtx.DeleteAccount(ctx, acc.ID), ErrReadOnly)
		tr := core.Transaction{Date: core.NewDate(2024, 1, 1), Type: core.Expense}
		assert.ErrorIs(t, rtx.CreateTransaction(ctx, &tr), ErrReadOnly)
		assert.ErrorIs(t, rtx.SetDefaultCurrency(ctx, "USD"), ErrReadOnly)
		return nil
	}))

	require.NoError(t, s.View(ctx, func(tx storage.Tx) error {
		acc, err := tx.FindAccount(ctx, 1)
		require.NoError(t, err)
		assert.Zero(t, acc.Balance)
		n, err := tx.CountTransactions(ctx)
		assert.Zero(t, n)
		return err
	}))
}
