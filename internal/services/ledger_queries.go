package services

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"vogon/internal/core"
	"vogon/internal/storage"
)

func (s *LedgerService) Accounts(ctx context.Context) ([]core.Account, error) {
	var out []core.Account
	err := s.store.View(ctx, func(tx storage.Tx) error {
		var err error
		out, err = tx.ListAccounts(ctx)
		return err
	})
	return out, err
}

func (s *LedgerService) Account(ctx context.Context, id int64) (core.Account, error) {
	var out core.Account
	err := s.store.View(ctx, func(tx storage.Tx) error {
		var err error
		out, err = tx.FindAccount(ctx, id)
		return err
	})
	return out, err
}

// Transactions returns a page of transactions ordered by date then id.
// limit <= 0 returns everything from offset on.
func (s *LedgerService) Transactions(ctx context.Context, offset, limit int) ([]core.Transaction, error) {
	var out []core.Transaction
	err := s.store.View(ctx, func(tx storage.Tx) error {
		var err error
		out, err = tx.ListTransactions(ctx, storage.TransactionFilter{Offset: offset, Limit: limit})
		return err
	})
	return out, err
}

// Transaction returns the transaction with its components. The view is the
// caller's to modify.
func (s *LedgerService) Transaction(ctx context.Context, id int64) (TransactionView, error) {
	if v, ok := s.views.Get(id); ok {
		return v.clone(), nil
	}
	var v TransactionView
	err := s.store.View(ctx, func(tx storage.Tx) error {
		t, err := tx.FindTransaction(ctx, id)
		if err != nil {
			return err
		}
		comps, err := tx.ListComponents(ctx, storage.ComponentFilter{TransactionIDs: []int64{id}})
		if err != nil {
			return err
		}
		v = TransactionView{Transaction: t, Components: comps}
		return nil
	})
	if err != nil {
		return TransactionView{}, err
	}
	s.views.Set(id, v.clone())
	return v, nil
}

// TransactionCount returns the number of stored transactions.
func (s *LedgerService) TransactionCount() int64 {
	return s.txCount.Load()
}

// CurrencyRates returns the current rate rows ordered by source then
// destination.
func (s *LedgerService) CurrencyRates() []core.CurrencyRate {
	return s.rates.Load().Rates()
}

// Currencies returns the sorted set of currencies used by accounts.
func (s *LedgerService) Currencies(ctx context.Context) ([]core.Currency, error) {
	accounts, err := s.Accounts(ctx)
	if err != nil {
		return nil, err
	}
	return accountCurrencies(accounts), nil
}

func accountCurrencies(accounts []core.Account) []core.Currency {
	cs := make([]core.Currency, len(accounts))
	for i, a := range accounts {
		cs[i] = a.Currency
	}
	return core.UniqueCurrencies(cs)
}

// ExchangeRate returns the rate converting src into dst. Converting a
// currency into itself is always 1.
func (s *LedgerService) ExchangeRate(src, dst core.Currency) (decimal.Decimal, error) {
	r, ok := s.rates.Load().Rate(src, dst)
	if !ok {
		return decimal.Zero, fmt.Errorf("exchange rate %s->%s: %w", src, dst, storage.ErrNotFound)
	}
	return r, nil
}

// DefaultCurrency returns the stored preference, or the configured fallback
// when none was stored.
func (s *LedgerService) DefaultCurrency(ctx context.Context) (core.Currency, error) {
	var c core.Currency
	err := s.store.View(ctx, func(tx storage.Tx) error {
		var err error
		c, err = tx.DefaultCurrency(ctx)
		return err
	})
	if err != nil {
		return "", err
	}
	if c == "" {
		c = s.fallback
	}
	return c, nil
}

// AmountInCurrency sums the transaction's components converted to c.
func (s *LedgerService) AmountInCurrency(ctx context.Context, transactionID int64, c core.Currency) (core.Amount, error) {
	v, err := s.Transaction(ctx, transactionID)
	if err != nil {
		return 0, err
	}
	accounts, err := s.Accounts(ctx)
	if err != nil {
		return 0, err
	}
	byID := make(map[int64]core.Account, len(accounts))
	for _, a := range accounts {
		byID[a.ID] = a
	}

	var total core.Amount
	for _, comp := range v.Components {
		acc, ok := byID[comp.AccountID]
		if !ok {
			return 0, fmt.Errorf("component %d account %d: %w", comp.ID, comp.AccountID, storage.ErrNotFound)
		}
		rate, err := s.ExchangeRate(acc.Currency, c)
		if err != nil {
			return 0, err
		}
		total += comp.Amount.Convert(rate)
	}
	return total, nil
}

// TotalBalance sums the balances of the accounts included in the total.
// With a currency, only accounts in that currency count. With an empty
// currency, every included account is converted to the default currency.
func (s *LedgerService) TotalBalance(ctx context.Context, c core.Currency) (core.Amount, error) {
	accounts, err := s.Accounts(ctx)
	if err != nil {
		return 0, err
	}
	var target core.Currency
	if c == "" {
		if target, err = s.DefaultCurrency(ctx); err != nil {
			return 0, err
		}
	}

	var total core.Amount
	for _, a := range accounts {
		if !a.IncludeInTotal {
			continue
		}
		switch {
		case c != "" && a.Currency == c:
			total += a.Balance
		case c == "":
			rate, err := s.ExchangeRate(a.Currency, target)
			if err != nil {
				return 0, err
			}
			total += a.Balance.Convert(rate)
		}
	}
	return total, nil
}
