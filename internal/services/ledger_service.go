package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"

	"vogon/internal/cache"
	"vogon/internal/core"
	"vogon/internal/events"
	"vogon/internal/log"
	"vogon/internal/storage"
)

// TransactionView is a transaction together with its components.
type TransactionView struct {
	Transaction core.Transaction
	Components  []core.Component
}

func (v TransactionView) clone() TransactionView {
	v.Transaction.Tags = slices.Clone(v.Transaction.Tags)
	v.Components = slices.Clone(v.Components)
	return v
}

// Total returns the raw sum of the component amounts.
func (v TransactionView) Total() core.Amount {
	return core.SumAmounts(v.Components)
}

// Options tunes a LedgerService. Zero values pick defaults.
type Options struct {
	// BatchSize is the page size used by balance recalculation.
	BatchSize int
	// DefaultCurrency is used until a default currency preference is stored.
	DefaultCurrency core.Currency
	// Cache holds transaction views. Defaults to an LRU of 256 entries.
	Cache cache.Cache[int64, TransactionView]
}

// LedgerService is the single entry point for ledger mutations. Every
// mutation runs in one store transaction and notifies the dispatcher only
// after it committed.
type LedgerService struct {
	store      storage.Store
	events     *events.Dispatcher
	maintainer RateMaintainer
	recalc     *BalanceRecalculator
	views      cache.Cache[int64, TransactionView]
	fallback   core.Currency

	rates   atomic.Pointer[core.RateTable]
	txCount atomic.Int64
}

// NewLedgerService loads the rate table and transaction count from store,
// creating missing rates for the currencies in use.
func NewLedgerService(ctx context.Context, store storage.Store, dispatcher *events.Dispatcher, opts Options) (*LedgerService, error) {
	s := &LedgerService{
		store:    store,
		events:   dispatcher,
		recalc:   NewBalanceRecalculator(store, opts.BatchSize),
		views:    opts.Cache,
		fallback: opts.DefaultCurrency,
	}
	if s.views == nil {
		s.views = cache.NewLRUCache[int64, TransactionView](256, 10*time.Minute)
	}
	if err := s.load(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *LedgerService) load(ctx context.Context) error {
	var (
		table *core.RateTable
		count int64
	)
	err := s.store.InTx(ctx, func(tx storage.Tx) error {
		var err error
		if _, table, err = s.maintainer.Maintain(ctx, tx); err != nil {
			return err
		}
		count, err = tx.CountTransactions(ctx)
		return err
	})
	if err != nil {
		return fmt.Errorf("load ledger: %w", err)
	}
	s.rates.Store(table)
	s.txCount.Store(count)
	s.views.Purge()
	return nil
}

// Reload rereads derived state from the store and tells observers to
// refresh everything. Use it after another process changed the store.
func (s *LedgerService) Reload(ctx context.Context) error {
	if err := s.load(ctx); err != nil {
		return err
	}
	s.fireAllUpdated()
	return nil
}

// Close closes the underlying store.
func (s *LedgerService) Close() error {
	if s.store == nil {
		return nil
	}
	if err := s.store.Close(); err != nil {
		return fmt.Errorf("close ledger store: %w", err)
	}
	return nil
}

// BatchSize returns the page size used by balance recalculation.
func (s *LedgerService) BatchSize() int {
	return s.recalc.BatchSize()
}

func (s *LedgerService) fireAllUpdated() {
	s.events.TransactionsUpdated()
	s.events.AccountsUpdated()
	s.events.CurrenciesUpdated()
}

func (s *LedgerService) forget(transactionIDs ...int64) {
	for _, id := range transactionIDs {
		s.views.Delete(id)
	}
}

// Accounts

// CreateAccount persists a new account and creates the rates its currency
// needs. An account whose id already exists is returned unchanged and
// fires no events.
func (s *LedgerService) CreateAccount(ctx context.Context, a core.Account) (core.Account, error) {
	a.Name = strings.TrimSpace(a.Name)
	if err := a.Validate(); err != nil {
		return core.Account{}, fmt.Errorf("create account: %w", err)
	}

	var (
		added bool
		table *core.RateTable
	)
	err := s.store.InTx(ctx, func(tx storage.Tx) error {
		if a.ID != 0 {
			existing, err := tx.FindAccount(ctx, a.ID)
			if err == nil {
				a = existing
				return nil
			}
			if !errors.Is(err, storage.ErrNotFound) {
				return err
			}
			a.ID = 0
		}
		a.Balance = 0
		if err := tx.CreateAccount(ctx, &a); err != nil {
			return err
		}
		added = true
		var err error
		_, table, err = s.maintainer.Maintain(ctx, tx)
		return err
	})
	if err != nil {
		return core.Account{}, fmt.Errorf("create account: %w", err)
	}
	if !added {
		return a, nil
	}

	s.rates.Store(table)
	slog.InfoContext(ctx, "Account created", log.NewFields().WithComponent(log.ComponentLedger).WithOperation(log.OpCreate).
		WithAccount(a.ID).
		With(log.FieldCurrency, a.Currency).
		ToSlice()...)
	s.events.AccountsUpdated()
	s.events.AccountCreated(a.ID)
	s.events.CurrenciesUpdated()
	return a, nil
}

func (s *LedgerService) SetAccountName(ctx context.Context, id int64, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return core.ErrEmptyName
	}
	err := s.updateAccount(ctx, id, func(a *core.Account) { a.Name = name })
	if err != nil {
		return err
	}
	s.events.AccountUpdated(id)
	return nil
}

// SetAccountCurrency changes the account currency and brings the rate rows
// in line with the new set of currencies.
func (s *LedgerService) SetAccountCurrency(ctx context.Context, id int64, c core.Currency) error {
	if err := c.Validate(); err != nil {
		return err
	}
	var table *core.RateTable
	err := s.store.InTx(ctx, func(tx storage.Tx) error {
		a, err := tx.FindAccount(ctx, id)
		if err != nil {
			return err
		}
		a.Currency = c
		if err := tx.UpdateAccount(ctx, a); err != nil {
			return err
		}
		_, table, err = s.maintainer.Maintain(ctx, tx)
		return err
	})
	if err != nil {
		return fmt.Errorf("set account %d currency: %w", id, err)
	}
	s.rates.Store(table)
	s.events.AccountsUpdated()
	s.events.CurrenciesUpdated()
	return nil
}

func (s *LedgerService) SetAccountIncludeInTotal(ctx context.Context, id int64, include bool) error {
	err := s.updateAccount(ctx, id, func(a *core.Account) { a.IncludeInTotal = include })
	if err != nil {
		return err
	}
	s.events.AccountsUpdated()
	return nil
}

func (s *LedgerService) updateAccount(ctx context.Context, id int64, mutate func(*core.Account)) error {
	err := s.store.InTx(ctx, func(tx storage.Tx) error {
		a, err := tx.FindAccount(ctx, id)
		if err != nil {
			return err
		}
		mutate(&a)
		return tx.UpdateAccount(ctx, a)
	})
	if err != nil {
		return fmt.Errorf("update account %d: %w", id, err)
	}
	return nil
}

// DeleteAccount removes the account and every component booked on it.
// Other accounts sharing those transactions keep their balances.
func (s *LedgerService) DeleteAccount(ctx context.Context, id int64) error {
	var (
		touched []int64
		table   *core.RateTable
	)
	err := s.store.InTx(ctx, func(tx storage.Tx) error {
		if _, err := tx.FindAccount(ctx, id); err != nil {
			return err
		}
		comps, err := tx.ListComponents(ctx, storage.ComponentFilter{AccountID: id})
		if err != nil {
			return err
		}
		for _, c := range comps {
			if err := tx.DeleteComponent(ctx, c.ID); err != nil {
				return err
			}
			touched = append(touched, c.TransactionID)
		}
		if err := tx.DeleteAccount(ctx, id); err != nil {
			return err
		}
		_, table, err = s.maintainer.Maintain(ctx, tx)
		return err
	})
	if err != nil {
		return fmt.Errorf("delete account %d: %w", id, err)
	}

	s.rates.Store(table)
	s.forget(touched...)
	slog.InfoContext(ctx, "Account deleted", log.NewFields().WithComponent(log.ComponentLedger).WithOperation(log.OpDelete).
		WithAccount(id).
		With(log.FieldCount, len(touched)).
		ToSlice()...)
	s.events.TransactionsUpdated()
	s.events.AccountsUpdated()
	s.events.AccountDeleted(id)
	s.events.CurrenciesUpdated()
	return nil
}

// RefreshAccountBalance recalculates the balance from the account's
// components.
func (s *LedgerService) RefreshAccountBalance(ctx context.Context, id int64) (core.Amount, error) {
	balance, err := s.recalc.Recalculate(ctx, id)
	if err != nil {
		return 0, fmt.Errorf("refresh account %d balance: %w", id, err)
	}
	s.events.AccountUpdated(id)
	return balance, nil
}

// RefreshAllBalances recalculates every account.
func (s *LedgerService) RefreshAllBalances(ctx context.Context) error {
	ids, err := s.recalc.RecalculateAll(ctx)
	if len(ids) > 0 {
		s.events.AccountsUpdated()
	}
	if err != nil {
		return fmt.Errorf("refresh balances: %w", err)
	}
	return nil
}

// Rates and preferences

// SetExchangeRate changes the value of an existing rate row.
func (s *LedgerService) SetExchangeRate(ctx context.Context, rateID int64, value decimal.Decimal) error {
	if !value.IsPositive() {
		return core.ErrInvalidRate
	}
	var table *core.RateTable
	err := s.store.InTx(ctx, func(tx storage.Tx) error {
		rates, err := tx.ListRates(ctx)
		if err != nil {
			return err
		}
		for i := range rates {
			if rates[i].ID != rateID {
				continue
			}
			rates[i].Rate = value
			if err := tx.UpdateRate(ctx, rates[i]); err != nil {
				return err
			}
			table = core.NewRateTable(rates)
			return nil
		}
		return fmt.Errorf("rate %d: %w", rateID, storage.ErrNotFound)
	})
	if err != nil {
		return fmt.Errorf("set exchange rate: %w", err)
	}
	s.rates.Store(table)
	fields := log.NewFields().WithComponent(log.ComponentLedger).WithOperation(log.OpUpdate).
		With(log.FieldRateID, rateID).
		With("rate", value.String())
	if r, ok := table.Find(rateID); ok {
		fields.With("pair", r.Source.String()+"->"+r.Destination.String())
	}
	slog.InfoContext(ctx, "Exchange rate updated", fields.ToSlice()...)
	s.events.TransactionsUpdated()
	s.events.CurrenciesUpdated()
	s.events.AccountsUpdated()
	return nil
}

// SetDefaultCurrency stores the currency used for totals.
func (s *LedgerService) SetDefaultCurrency(ctx context.Context, c core.Currency) error {
	if err := c.Validate(); err != nil {
		return err
	}
	err := s.store.InTx(ctx, func(tx storage.Tx) error {
		return tx.SetDefaultCurrency(ctx, c)
	})
	if err != nil {
		return fmt.Errorf("set default currency: %w", err)
	}
	s.events.TransactionsUpdated()
	s.events.AccountsUpdated()
	return nil
}
