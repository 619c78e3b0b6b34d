package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"vogon/internal/core"
	"vogon/internal/log"
	"vogon/internal/storage"
)

// CreateTransaction persists t with the given components and books their
// amounts on the accounts. Only AccountID and Amount of each component are
// used. When t.ID names an existing transaction nothing is written and the
// stored transaction is returned.
func (s *LedgerService) CreateTransaction(ctx context.Context, t core.Transaction, components []core.Component) (TransactionView, error) {
	t.Tags = core.NormalizeTags(t.Tags)
	if err := t.Validate(); err != nil {
		return TransactionView{}, fmt.Errorf("create transaction: %w", err)
	}

	var (
		view  TransactionView
		added bool
	)
	err := s.store.InTx(ctx, func(tx storage.Tx) error {
		if t.ID != 0 {
			existing, err := tx.FindTransaction(ctx, t.ID)
			if err == nil {
				comps, err := tx.ListComponents(ctx, storage.ComponentFilter{TransactionIDs: []int64{existing.ID}})
				view = TransactionView{Transaction: existing, Components: comps}
				return err
			}
			if !errors.Is(err, storage.ErrNotFound) {
				return err
			}
			t.ID = 0
		}

		if err := tx.CreateTransaction(ctx, &t); err != nil {
			return err
		}
		view.Transaction = t
		for i, in := range components {
			c := core.Component{TransactionID: t.ID, AccountID: in.AccountID, Amount: in.Amount}
			if err := book(ctx, tx, &c); err != nil {
				return fmt.Errorf("component %d: %w", i, err)
			}
			view.Components = append(view.Components, c)
		}
		added = true
		return nil
	})
	if err != nil {
		return TransactionView{}, fmt.Errorf("create transaction: %w", err)
	}

	if added {
		s.txCount.Add(1)
		slog.InfoContext(ctx, "Transaction created", log.NewFields().WithComponent(log.ComponentLedger).WithOperation(log.OpCreate).
			WithTransaction(view.Transaction.ID).
			With(log.FieldCount, len(view.Components)).
			ToSlice()...)
		s.events.TransactionsUpdated()
		s.events.TransactionCreated(view.Transaction.ID)
	}
	for _, id := range core.AccountIDs(view.Components) {
		s.events.AccountUpdated(id)
	}
	return view, nil
}

// book creates c and adds its amount to the account balance.
func book(ctx context.Context, tx storage.Tx, c *core.Component) error {
	if _, err := tx.FindAccount(ctx, c.AccountID); err != nil {
		return err
	}
	if err := tx.CreateComponent(ctx, c); err != nil {
		return err
	}
	return tx.AdjustAccountBalance(ctx, c.AccountID, c.Amount)
}

// AddComponent books a new component on an existing transaction.
func (s *LedgerService) AddComponent(ctx context.Context, transactionID, accountID int64, amount core.Amount) (core.Component, error) {
	c := core.Component{TransactionID: transactionID, AccountID: accountID, Amount: amount}
	err := s.store.InTx(ctx, func(tx storage.Tx) error {
		if _, err := tx.FindTransaction(ctx, transactionID); err != nil {
			return err
		}
		return book(ctx, tx, &c)
	})
	if err != nil {
		return core.Component{}, fmt.Errorf("add component to transaction %d: %w", transactionID, err)
	}
	s.forget(transactionID)
	s.events.TransactionUpdated(transactionID)
	s.events.AccountUpdated(accountID)
	return c, nil
}

func (s *LedgerService) SetTransactionTags(ctx context.Context, id int64, tags []string) error {
	tags = core.NormalizeTags(tags)
	return s.updateTransaction(ctx, id, func(t *core.Transaction) { t.Tags = tags })
}

func (s *LedgerService) SetTransactionDate(ctx context.Context, id int64, date core.Date) error {
	return s.updateTransaction(ctx, id, func(t *core.Transaction) { t.Date = date })
}

func (s *LedgerService) SetTransactionDescription(ctx context.Context, id int64, description string) error {
	return s.updateTransaction(ctx, id, func(t *core.Transaction) { t.Description = description })
}

func (s *LedgerService) SetTransactionType(ctx context.Context, id int64, typ core.TransactionType) error {
	return s.updateTransaction(ctx, id, func(t *core.Transaction) { t.Type = typ })
}

func (s *LedgerService) updateTransaction(ctx context.Context, id int64, mutate func(*core.Transaction)) error {
	var accounts []int64
	err := s.store.InTx(ctx, func(tx storage.Tx) error {
		t, err := tx.FindTransaction(ctx, id)
		if err != nil {
			return err
		}
		mutate(&t)
		if err := t.Validate(); err != nil {
			return err
		}
		if err := tx.UpdateTransaction(ctx, t); err != nil {
			return err
		}
		comps, err := tx.ListComponents(ctx, storage.ComponentFilter{TransactionIDs: []int64{id}})
		if err != nil {
			return err
		}
		accounts = core.AccountIDs(comps)
		return nil
	})
	if err != nil {
		return fmt.Errorf("update transaction %d: %w", id, err)
	}
	s.forget(id)
	s.events.TransactionUpdated(id)
	for _, a := range accounts {
		s.events.AccountUpdated(a)
	}
	return nil
}

// SetComponentAmount changes the amount and moves the difference onto the
// account balance.
func (s *LedgerService) SetComponentAmount(ctx context.Context, id int64, amount core.Amount) error {
	var c core.Component
	err := s.store.InTx(ctx, func(tx storage.Tx) error {
		var err error
		if c, err = tx.FindComponent(ctx, id); err != nil {
			return err
		}
		delta := amount - c.Amount
		c.Amount = amount
		if err := tx.UpdateComponent(ctx, c); err != nil {
			return err
		}
		return tx.AdjustAccountBalance(ctx, c.AccountID, delta)
	})
	if err != nil {
		return fmt.Errorf("set component %d amount: %w", id, err)
	}
	s.forget(c.TransactionID)
	s.events.TransactionUpdated(c.TransactionID)
	s.events.AccountUpdated(c.AccountID)
	return nil
}

// SetComponentAccount moves the component, and its amount, to another
// account.
func (s *LedgerService) SetComponentAccount(ctx context.Context, id, accountID int64) error {
	var (
		c   core.Component
		old int64
	)
	err := s.store.InTx(ctx, func(tx storage.Tx) error {
		var err error
		if c, err = tx.FindComponent(ctx, id); err != nil {
			return err
		}
		old = c.AccountID
		if old == accountID {
			return nil
		}
		if _, err := tx.FindAccount(ctx, accountID); err != nil {
			return err
		}
		if err := tx.AdjustAccountBalance(ctx, old, -c.Amount); err != nil && !errors.Is(err, storage.ErrNotFound) {
			return err
		}
		if err := tx.AdjustAccountBalance(ctx, accountID, c.Amount); err != nil {
			return err
		}
		c.AccountID = accountID
		return tx.UpdateComponent(ctx, c)
	})
	if err != nil {
		return fmt.Errorf("set component %d account: %w", id, err)
	}
	if old == accountID {
		return nil
	}
	s.forget(c.TransactionID)
	s.events.TransactionUpdated(c.TransactionID)
	s.events.AccountUpdated(accountID)
	s.events.AccountUpdated(old)
	return nil
}

// DeleteComponent removes the component and takes its amount off the
// account balance.
func (s *LedgerService) DeleteComponent(ctx context.Context, id int64) error {
	var c core.Component
	err := s.store.InTx(ctx, func(tx storage.Tx) error {
		var err error
		if c, err = tx.FindComponent(ctx, id); err != nil {
			return err
		}
		if err := tx.DeleteComponent(ctx, id); err != nil {
			return err
		}
		return tx.AdjustAccountBalance(ctx, c.AccountID, -c.Amount)
	})
	if err != nil {
		return fmt.Errorf("delete component %d: %w", id, err)
	}
	s.forget(c.TransactionID)
	s.events.TransactionUpdated(c.TransactionID)
	s.events.AccountUpdated(c.AccountID)
	return nil
}

// DeleteTransaction removes the transaction with its components and
// reverts their amounts on the accounts.
func (s *LedgerService) DeleteTransaction(ctx context.Context, id int64) error {
	var accounts []int64
	err := s.store.InTx(ctx, func(tx storage.Tx) error {
		if _, err := tx.FindTransaction(ctx, id); err != nil {
			return err
		}
		comps, err := tx.ListComponents(ctx, storage.ComponentFilter{TransactionIDs: []int64{id}})
		if err != nil {
			return err
		}
		for _, c := range comps {
			if err := tx.AdjustAccountBalance(ctx, c.AccountID, -c.Amount); err != nil && !errors.Is(err, storage.ErrNotFound) {
				return err
			}
		}
		accounts = core.AccountIDs(comps)
		return tx.DeleteTransaction(ctx, id)
	})
	if err != nil {
		return fmt.Errorf("delete transaction %d: %w", id, err)
	}

	s.txCount.Add(-1)
	s.forget(id)
	slog.InfoContext(ctx, "Transaction deleted", log.NewFields().WithComponent(log.ComponentLedger).WithOperation(log.OpDelete).
		WithTransaction(id).
		ToSlice()...)
	s.events.TransactionsUpdated()
	s.events.TransactionDeleted(id)
	for _, a := range accounts {
		s.events.AccountUpdated(a)
	}
	return nil
}
