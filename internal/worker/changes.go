package worker

import (
	"slices"
	"sync"

	"vogon/internal/events"
)

// changeSet accumulates replayed ledger events between passes. Balance
// effects of transaction changes arrive as AccountUpdated events, so only
// account ids are tracked; anything broader asks for a full pass.
type changeSet struct {
	mu       sync.Mutex
	full     bool
	accounts map[int64]struct{}
}

var (
	_ events.TransactionHandler = (*changeSet)(nil)
	_ events.AccountHandler     = (*changeSet)(nil)
	_ events.CurrencyHandler    = (*changeSet)(nil)
)

func newChangeSet() *changeSet {
	return &changeSet{accounts: map[int64]struct{}{}}
}

func (c *changeSet) handlers() events.Handlers {
	return events.Handlers{Transaction: c, Account: c, Currency: c}
}

func (c *changeSet) account(id int64) {
	c.mu.Lock()
	c.accounts[id] = struct{}{}
	c.mu.Unlock()
}

func (c *changeSet) markFull() {
	c.mu.Lock()
	c.full = true
	c.mu.Unlock()
}

// take returns and clears the collected changes. full is also true when
// nothing account-scoped was collected.
func (c *changeSet) take() (full bool, accounts []int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	full = c.full || len(c.accounts) == 0
	if !full {
		for id := range c.accounts {
			accounts = append(accounts, id)
		}
		slices.Sort(accounts)
	}
	c.full = false
	clear(c.accounts)
	return full, accounts
}

func (c *changeSet) TransactionCreated(int64) {}
func (c *changeSet) TransactionUpdated(int64) {}
func (c *changeSet) TransactionDeleted(int64) {}
func (c *changeSet) TransactionsUpdated() {}

func (c *changeSet) AccountCreated(id int64) { c.account(id) }
func (c *changeSet) AccountUpdated(id int64) { c.account(id) }

// Deleting an account drops components and may orphan rates.
func (c *changeSet) AccountDeleted(int64) { c.markFull() }
func (c *changeSet) AccountsUpdated() { c.markFull() }
func (c *changeSet) CurrenciesUpdated() { c.markFull() }
