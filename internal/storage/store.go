package storage

import (
	"context"
	"errors"

	"vogon/internal/core"
)

// ErrNotFound is returned when a row with the requested identity does not exist.
var ErrNotFound = errors.New("not found")

// Ports for the ledger store.
type (
	// Store scopes every read and write in an explicit transaction.
	Store interface {
		// InTx runs fn in a read-write transaction. It commits when fn returns
		// nil and rolls back otherwise.
		InTx(ctx context.Context, fn func(Tx) error) error
		// View runs fn in a transaction that is always rolled back.
		View(ctx context.Context, fn func(Tx) error) error
		Close() error
	}

	// Tx exposes create/find/update/delete/list operations per entity.
	// Relations are resolved through filters instead of back-references.
	Tx interface {
		CreateAccount(ctx context.Context, a *core.Account) error
		FindAccount(ctx context.Context, id int64) (core.Account, error)
		// UpdateAccount stores name, currency and include-in-total. The
		// balance is only changed through AdjustAccountBalance.
		UpdateAccount(ctx context.Context, a core.Account) error
		AdjustAccountBalance(ctx context.Context, id int64, delta core.Amount) error
		DeleteAccount(ctx context.Context, id int64) error
		ListAccounts(ctx context.Context) ([]core.Account, error)

		CreateTransaction(ctx context.Context, t *core.Transaction) error
		FindTransaction(ctx context.Context, id int64) (core.Transaction, error)
		UpdateTransaction(ctx context.Context, t core.Transaction) error
		// DeleteTransaction removes the transaction and its components.
		DeleteTransaction(ctx context.Context, id int64) error
		ListTransactions(ctx context.Context, f TransactionFilter) ([]core.Transaction, error)
		CountTransactions(ctx context.Context) (int64, error)

		CreateComponent(ctx context.Context, c *core.Component) error
		FindComponent(ctx context.Context, id int64) (core.Component, error)
		UpdateComponent(ctx context.Context, c core.Component) error
		DeleteComponent(ctx context.Context, id int64) error
		ListComponents(ctx context.Context, f ComponentFilter) ([]core.Component, error)

		CreateRate(ctx context.Context, r *core.CurrencyRate) error
		UpdateRate(ctx context.Context, r core.CurrencyRate) error
		DeleteRate(ctx context.Context, id int64) error
		ListRates(ctx context.Context) ([]core.CurrencyRate, error)

		// DefaultCurrency returns "" when no preference was stored yet.
		DefaultCurrency(ctx context.Context) (core.Currency, error)
		SetDefaultCurrency(ctx context.Context, c core.Currency) error
	}
)

// TransactionFilter selects transactions ordered by date then id.
type TransactionFilter struct {
	IDs    []int64 // ignored when empty
	Offset int
	Limit  int // <= 0 means no limit
}

// ComponentFilter selects components ordered by transaction then id.
// Empty fields do not restrict the result.
type ComponentFilter struct {
	TransactionIDs []int64
	AccountID      int64
	// Orphaned keeps only components whose transaction no longer exists.
	Orphaned bool
}
