package services

import (
	"context"
	"fmt"
	"log/slog"

	"vogon/internal/core"
	"vogon/internal/log"
	"vogon/internal/storage"
)

// DefaultBatchSize is the number of transactions read per page when
// recalculating balances.
const DefaultBatchSize = 100

// BalanceRecalculator rebuilds account balances from their components.
//
// Transactions are paged by (date, id) in short read-only store
// transactions, so a very large ledger never has to be loaded at once. The
// pages are not isolated from concurrent writers: a mutation committed
// between two pages may be missed or counted by the running pass, and the
// next recalculation corrects it.
type BalanceRecalculator struct {
	store     storage.Store
	batchSize int
}

func NewBalanceRecalculator(store storage.Store, batchSize int) *BalanceRecalculator {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &BalanceRecalculator{store: store, batchSize: batchSize}
}

// BatchSize returns the page size in use.
func (r *BalanceRecalculator) BatchSize() int { return r.batchSize }

// Recalculate sets the account balance to the sum of its components and
// returns the new balance.
func (r *BalanceRecalculator) Recalculate(ctx context.Context, accountID int64) (core.Amount, error) {
	err := r.store.View(ctx, func(tx storage.Tx) error {
		_, err := tx.FindAccount(ctx, accountID)
		return err
	})
	if err != nil {
		return 0, err
	}

	var (
		sum    core.Amount
		offset int
	)
	for {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		var n int
		err := r.store.View(ctx, func(tx storage.Tx) error {
			page, err := tx.ListTransactions(ctx, storage.TransactionFilter{Offset: offset, Limit: r.batchSize})
			if err != nil {
				return err
			}
			n = len(page)
			if n == 0 {
				return nil
			}
			ids := make([]int64, n)
			for i, t := range page {
				ids[i] = t.ID
			}
			comps, err := tx.ListComponents(ctx, storage.ComponentFilter{TransactionIDs: ids, AccountID: accountID})
			if err != nil {
				return err
			}
			sum += core.SumAmounts(comps)
			return nil
		})
		if err != nil {
			return 0, fmt.Errorf("read transactions at offset %d: %w", offset, err)
		}
		if n == 0 {
			break
		}
		offset += n
	}

	err = r.store.InTx(ctx, func(tx storage.Tx) error {
		acc, err := tx.FindAccount(ctx, accountID)
		if err != nil {
			return err
		}
		if delta := sum - acc.Balance; delta != 0 {
			return tx.AdjustAccountBalance(ctx, accountID, delta)
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("store balance: %w", err)
	}

	slog.DebugContext(ctx, "Account balance recalculated",
		log.FieldOperation, log.OpRecalc,
		log.FieldAccountID, accountID,
		log.FieldAmount, sum.String(),
		log.FieldBatchSize, r.batchSize)
	return sum, nil
}

// RecalculateAll recalculates every account in id order and returns the
// ids it touched.
func (r *BalanceRecalculator) RecalculateAll(ctx context.Context) ([]int64, error) {
	var accounts []core.Account
	err := r.store.View(ctx, func(tx storage.Tx) error {
		var err error
		accounts, err = tx.ListAccounts(ctx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}

	ids := make([]int64, 0, len(accounts))
	for _, a := range accounts {
		if _, err := r.Recalculate(ctx, a.ID); err != nil {
			return ids, fmt.Errorf("account %d: %w", a.ID, err)
		}
		ids = append(ids, a.ID)
	}
	return ids, nil
}
