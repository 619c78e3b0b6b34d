package services

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"vogon/internal/core"
	"vogon/internal/interop"
	"vogon/internal/log"
	"vogon/internal/storage"
)

// CleanupResult reports what Cleanup removed or created.
type CleanupResult struct {
	OrphanComponents int
	Rates            MaintenanceResult
}

// Cleanup deletes components whose transaction no longer exists and brings
// the rate rows in line with the accounts. Balances are left untouched; run
// RefreshAllBalances afterwards to fold the removal into them.
func (s *LedgerService) Cleanup(ctx context.Context) (CleanupResult, error) {
	var (
		res   CleanupResult
		table *core.RateTable
		count int64
	)
	err := s.store.InTx(ctx, func(tx storage.Tx) error {
		orphans, err := tx.ListComponents(ctx, storage.ComponentFilter{Orphaned: true})
		if err != nil {
			return err
		}
		for _, c := range orphans {
			if err := tx.DeleteComponent(ctx, c.ID); err != nil {
				return err
			}
		}
		res.OrphanComponents = len(orphans)
		if res.Rates, table, err = s.maintainer.Maintain(ctx, tx); err != nil {
			return err
		}
		count, err = tx.CountTransactions(ctx)
		return err
	})
	if err != nil {
		return CleanupResult{}, fmt.Errorf("cleanup: %w", err)
	}

	s.rates.Store(table)
	s.txCount.Store(count)
	s.views.Purge()
	slog.InfoContext(ctx, "Ledger cleaned up",
		log.FieldOperation, log.OpCleanup,
		log.FieldCount, res.OrphanComponents,
		log.FieldCreated, res.Rates.Created,
		log.FieldRemoved, res.Rates.Removed)
	s.fireAllUpdated()
	return res, nil
}

// ImportResult counts the entities created by Import.
type ImportResult struct {
	Accounts     int
	Transactions int
	Components   int
}

// Import adds everything the importer produces to the ledger in a single
// store transaction. Imported rates overwrite the value of matching pairs.
// Afterwards the default currency is kept if still in use, else set to the
// configured fallback when in use, else to the first used currency.
func (s *LedgerService) Import(ctx context.Context, importer interop.Importer) (ImportResult, error) {
	d, err := importer.Import(ctx)
	if err != nil {
		return ImportResult{}, err
	}
	if err := d.Check(); err != nil {
		return ImportResult{}, err
	}

	var (
		res   ImportResult
		table *core.RateTable
		count int64
	)
	err = s.store.InTx(ctx, func(tx storage.Tx) error {
		accountIDs := make(map[int64]int64, len(d.Accounts))
		for _, a := range d.Accounts {
			na := core.Account{Name: a.Name, Currency: a.Currency, IncludeInTotal: a.IncludeInTotal}
			if err := tx.CreateAccount(ctx, &na); err != nil {
				return err
			}
			accountIDs[a.ID] = na.ID
		}
		res.Accounts = len(d.Accounts)

		transactionIDs := make(map[int64]int64, len(d.Transactions))
		for _, t := range d.Transactions {
			nt := t
			nt.ID = 0
			nt.Tags = core.NormalizeTags(t.Tags)
			if err := tx.CreateTransaction(ctx, &nt); err != nil {
				return err
			}
			transactionIDs[t.ID] = nt.ID
		}
		res.Transactions = len(d.Transactions)

		for _, c := range d.Components {
			nc := core.Component{
				TransactionID: transactionIDs[c.TransactionID],
				AccountID:     accountIDs[c.AccountID],
				Amount:        c.Amount,
			}
			if err := book(ctx, tx, &nc); err != nil {
				return err
			}
		}
		res.Components = len(d.Components)

		var err error
		if _, table, err = s.maintainer.Maintain(ctx, tx); err != nil {
			return err
		}
		if table, err = applyRates(ctx, tx, table, d.Rates); err != nil {
			return err
		}
		if err := s.settleDefaultCurrency(ctx, tx, d.DefaultCurrency); err != nil {
			return err
		}
		count, err = tx.CountTransactions(ctx)
		return err
	})
	if err != nil {
		return ImportResult{}, fmt.Errorf("import: %w", err)
	}

	s.rates.Store(table)
	s.txCount.Store(count)
	s.views.Purge()
	slog.InfoContext(ctx, "Ledger imported",
		log.FieldOperation, log.OpImport,
		"accounts", res.Accounts,
		"transactions", res.Transactions,
		"components", res.Components)
	s.fireAllUpdated()
	return res, nil
}

// applyRates copies imported rate values onto the maintained rows of the
// same pair. Pairs no account uses are ignored.
func applyRates(ctx context.Context, tx storage.Tx, table *core.RateTable, imported []core.CurrencyRate) (*core.RateTable, error) {
	if len(imported) == 0 {
		return table, nil
	}
	rates := table.Rates()
	index := make(map[core.CurrencyPair]int, len(rates))
	for i, r := range rates {
		index[r.Pair()] = i
	}
	changed := false
	for _, r := range imported {
		i, ok := index[r.Pair()]
		if !ok || rates[i].Rate.Equal(r.Rate) {
			continue
		}
		rates[i].Rate = r.Rate
		if err := tx.UpdateRate(ctx, rates[i]); err != nil {
			return nil, err
		}
		changed = true
	}
	if !changed {
		return table, nil
	}
	return core.NewRateTable(rates), nil
}

func (s *LedgerService) settleDefaultCurrency(ctx context.Context, tx storage.Tx, preferred core.Currency) error {
	current, err := tx.DefaultCurrency(ctx)
	if err != nil {
		return err
	}
	if preferred != "" {
		current = preferred
	}
	accounts, err := tx.ListAccounts(ctx)
	if err != nil {
		return err
	}
	used := accountCurrencies(accounts)

	next := current
	switch {
	case slices.Contains(used, current):
	case len(used) == 0:
		if current == "" {
			next = s.fallback
		}
	case slices.Contains(used, s.fallback):
		next = s.fallback
	default:
		next = used[0]
	}
	if next == "" {
		return nil
	}
	stored, err := tx.DefaultCurrency(ctx)
	if err != nil {
		return err
	}
	if next == stored {
		return nil
	}
	return tx.SetDefaultCurrency(ctx, next)
}

// Snapshot copies the whole ledger out of one read transaction.
func (s *LedgerService) Snapshot(ctx context.Context) (*interop.Dataset, error) {
	d := &interop.Dataset{}
	err := s.store.View(ctx, func(tx storage.Tx) error {
		var err error
		if d.Accounts, err = tx.ListAccounts(ctx); err != nil {
			return err
		}
		if d.Transactions, err = tx.ListTransactions(ctx, storage.TransactionFilter{}); err != nil {
			return err
		}
		if d.Components, err = tx.ListComponents(ctx, storage.ComponentFilter{}); err != nil {
			return err
		}
		if d.Rates, err = tx.ListRates(ctx); err != nil {
			return err
		}
		d.DefaultCurrency, err = tx.DefaultCurrency(ctx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("snapshot: %w", err)
	}
	if d.DefaultCurrency == "" {
		d.DefaultCurrency = s.fallback
	}
	return d, nil
}

// Export hands a snapshot of the ledger to the exporter.
func (s *LedgerService) Export(ctx context.Context, exporter interop.Exporter) error {
	d, err := s.Snapshot(ctx)
	if err != nil {
		return err
	}
	if err := exporter.Export(ctx, d); err != nil {
		return fmt.Errorf("export: %w", err)
	}
	slog.InfoContext(ctx, "Ledger exported",
		log.FieldOperation, log.OpExport,
		"accounts", len(d.Accounts),
		"transactions", len(d.Transactions))
	return nil
}
