// Package events notifies observers about ledger changes.
//
// Handlers run synchronously on the caller's goroutine after the store
// transaction has committed. They must not open store transactions of their
// own.
package events

// TransactionHandler observes transaction changes.
type TransactionHandler interface {
	TransactionCreated(id int64)
	TransactionUpdated(id int64)
	TransactionDeleted(id int64)
	TransactionsUpdated()
}

// AccountHandler observes account changes.
type AccountHandler interface {
	AccountCreated(id int64)
	AccountUpdated(id int64)
	AccountDeleted(id int64)
	AccountsUpdated()
}

// CurrencyHandler observes changes to the set of currencies or their rates.
type CurrencyHandler interface {
	CurrenciesUpdated()
}

// Handlers holds at most one handler per category. Nil fields are skipped.
type Handlers struct {
	Transaction TransactionHandler
	Account     AccountHandler
	Currency    CurrencyHandler
}

// Dispatcher routes notifications to the registered handlers.
// The zero value and a nil *Dispatcher drop every event.
type Dispatcher struct {
	h Handlers
}

func NewDispatcher(h Handlers) *Dispatcher {
	return &Dispatcher{h: h}
}

func (d *Dispatcher) TransactionCreated(id int64) {
	if d != nil && d.h.Transaction != nil {
		d.h.Transaction.TransactionCreated(id)
	}
}

func (d *Dispatcher) TransactionUpdated(id int64) {
	if d != nil && d.h.Transaction != nil {
		d.h.Transaction.TransactionUpdated(id)
	}
}

func (d *Dispatcher) TransactionDeleted(id int64) {
	if d != nil && d.h.Transaction != nil {
		d.h.Transaction.TransactionDeleted(id)
	}
}

func (d *Dispatcher) TransactionsUpdated() {
	if d != nil && d.h.Transaction != nil {
		d.h.Transaction.TransactionsUpdated()
	}
}

func (d *Dispatcher) AccountCreated(id int64) {
	if d != nil && d.h.Account != nil {
		d.h.Account.AccountCreated(id)
	}
}

func (d *Dispatcher) AccountUpdated(id int64) {
	if d != nil && d.h.Account != nil {
		d.h.Account.AccountUpdated(id)
	}
}

func (d *Dispatcher) AccountDeleted(id int64) {
	if d != nil && d.h.Account != nil {
		d.h.Account.AccountDeleted(id)
	}
}

func (d *Dispatcher) AccountsUpdated() {
	if d != nil && d.h.Account != nil {
		d.h.Account.AccountsUpdated()
	}
}

func (d *Dispatcher) CurrenciesUpdated() {
	if d != nil && d.h.Currency != nil {
		d.h.Currency.CurrenciesUpdated()
	}
}
