// Package interop moves ledger data in and out of external formats.
//
// Importers produce a Dataset whose ids are local keys: they only relate
// rows inside the same Dataset and are replaced by store ids on import.
package interop

import (
	"context"
	"fmt"

	"vogon/internal/core"
)

// Dataset is a self-contained copy of a ledger.
type Dataset struct {
	Accounts        []core.Account
	Transactions    []core.Transaction
	Components      []core.Component
	Rates           []core.CurrencyRate
	DefaultCurrency core.Currency
}

type Importer interface {
	Import(ctx context.Context) (*Dataset, error)
}

type Exporter interface {
	Export(ctx context.Context, d *Dataset) error
}

// Check verifies that every component points at an account and a transaction
// of the dataset and that every entity validates.
func (d *Dataset) Check() error {
	accounts := make(map[int64]bool, len(d.Accounts))
	for _, a := range d.Accounts {
		if err := a.Validate(); err != nil {
			return &LogicalError{Message: fmt.Sprintf("account %q: %v", a.Name, err)}
		}
		if accounts[a.ID] {
			return &LogicalError{Message: fmt.Sprintf("duplicate account key %d", a.ID)}
		}
		accounts[a.ID] = true
	}
	transactions := make(map[int64]bool, len(d.Transactions))
	for _, t := range d.Transactions {
		if err := t.Validate(); err != nil {
			return &LogicalError{Message: fmt.Sprintf("transaction %q: %v", t.Description, err)}
		}
		if transactions[t.ID] {
			return &LogicalError{Message: fmt.Sprintf("duplicate transaction key %d", t.ID)}
		}
		transactions[t.ID] = true
	}
	for _, c := range d.Components {
		if !accounts[c.AccountID] {
			return &LogicalError{Message: fmt.Sprintf("component references unknown account %d", c.AccountID)}
		}
		if !transactions[c.TransactionID] {
			return &LogicalError{Message: fmt.Sprintf("component references unknown transaction %d", c.TransactionID)}
		}
	}
	for _, r := range d.Rates {
		if err := r.Validate(); err != nil {
			return &LogicalError{Message: fmt.Sprintf("rate %s->%s: %v", r.Source, r.Destination, err)}
		}
	}
	if d.DefaultCurrency != "" {
		if err := d.DefaultCurrency.Validate(); err != nil {
			return &LogicalError{Message: fmt.Sprintf("default currency %q: %v", d.DefaultCurrency, err)}
		}
	}
	return nil
}
