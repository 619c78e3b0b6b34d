package interop

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/shopspring/decimal"

	"vogon/internal/core"
)

// jsonLedger is the on-disk layout. Amounts are decimal strings in major
// units so files stay readable and exact.
type jsonLedger struct {
	DefaultCurrency string            `json:"default_currency,omitempty"`
	Accounts        []jsonAccount     `json:"accounts"`
	Transactions    []jsonTransaction `json:"transactions"`
	Rates           []jsonRate        `json:"rates,omitempty"`
}

type jsonAccount struct {
	ID             int64           `json:"id"`
	Name           string          `json:"name"`
	Currency       string          `json:"currency"`
	Balance        decimal.Decimal `json:"balance"`
	IncludeInTotal bool            `json:"include_in_total"`
}

type jsonTransaction struct {
	ID          int64           `json:"id"`
	Description string          `json:"description"`
	Date        string          `json:"date"`
	Type        string          `json:"type"`
	Tags        []string        `json:"tags,omitempty"`
	Components  []jsonComponent `json:"components"`
}

type jsonComponent struct {
	Account int64           `json:"account"`
	Amount  decimal.Decimal `json:"amount"`
}

type jsonRate struct {
	Source      string          `json:"source"`
	Destination string          `json:"destination"`
	Rate        decimal.Decimal `json:"rate"`
}

// JSONImporter reads a ledger written by JSONExporter. Account balances in
// the file are informational and recomputed from the components.
type JSONImporter struct {
	Path   string
	Reader io.Reader
}

func NewJSONImporter(path string) *JSONImporter {
	return &JSONImporter{Path: path}
}

var _ Importer = (*JSONImporter)(nil)

func (i *JSONImporter) Import(ctx context.Context) (*Dataset, error) {
	r := i.Reader
	if r == nil {
		f, err := os.Open(i.Path)
		if err != nil {
			return nil, &FormatError{Source: i.Path, Err: err}
		}
		defer f.Close()
		r = f
	}

	var doc jsonLedger
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, &FormatError{Source: i.Path, Err: fmt.Errorf("decode: %w", err)}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	d := &Dataset{DefaultCurrency: core.Currency(doc.DefaultCurrency)}
	for _, a := range doc.Accounts {
		d.Accounts = append(d.Accounts, core.Account{
			ID:             a.ID,
			Name:           a.Name,
			Currency:       core.Currency(a.Currency),
			IncludeInTotal: a.IncludeInTotal,
		})
	}
	var seq int64
	for _, t := range doc.Transactions {
		date, err := core.ParseDate(t.Date)
		if err != nil {
			return nil, &FormatError{Source: i.Path, Err: fmt.Errorf("transaction %d date %q: %w", t.ID, t.Date, err)}
		}
		d.Transactions = append(d.Transactions, core.Transaction{
			ID:          t.ID,
			Description: t.Description,
			Date:        date,
			Type:        core.TransactionType(t.Type),
			Tags:        t.Tags,
		})
		for _, c := range t.Components {
			amount, err := core.AmountFromDecimal(c.Amount)
			if err != nil {
				return nil, &FormatError{Source: i.Path, Err: fmt.Errorf("transaction %d amount %s: %w", t.ID, c.Amount, err)}
			}
			seq++
			d.Components = append(d.Components, core.Component{
				ID:            seq,
				TransactionID: t.ID,
				AccountID:     c.Account,
				Amount:        amount,
			})
		}
	}
	for _, r := range doc.Rates {
		d.Rates = append(d.Rates, core.CurrencyRate{
			Source:      core.Currency(r.Source),
			Destination: core.Currency(r.Destination),
			Rate:        r.Rate,
		})
	}

	if err := d.Check(); err != nil {
		return nil, err
	}
	return d, nil
}

// JSONExporter writes the whole dataset as indented JSON.
type JSONExporter struct {
	Path   string
	Writer io.Writer
}

func NewJSONExporter(path string) *JSONExporter {
	return &JSONExporter{Path: path}
}

var _ Exporter = (*JSONExporter)(nil)

func (e *JSONExporter) Export(ctx context.Context, d *Dataset) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	doc := jsonLedger{
		DefaultCurrency: string(d.DefaultCurrency),
		Accounts:        make([]jsonAccount, 0, len(d.Accounts)),
		Transactions:    make([]jsonTransaction, 0, len(d.Transactions)),
	}
	for _, a := range d.Accounts {
		doc.Accounts = append(doc.Accounts, jsonAccount{
			ID:             a.ID,
			Name:           a.Name,
			Currency:       string(a.Currency),
			Balance:        a.Balance.Decimal(),
			IncludeInTotal: a.IncludeInTotal,
		})
	}
	byTx := make(map[int64][]jsonComponent, len(d.Transactions))
	for _, c := range d.Components {
		byTx[c.TransactionID] = append(byTx[c.TransactionID], jsonComponent{Account: c.AccountID, Amount: c.Amount.Decimal()})
	}
	for _, t := range d.Transactions {
		comps := byTx[t.ID]
		if comps == nil {
			comps = []jsonComponent{}
		}
		doc.Transactions = append(doc.Transactions, jsonTransaction{
			ID:          t.ID,
			Description: t.Description,
			Date:        t.Date.String(),
			Type:        string(t.Type),
			Tags:        t.Tags,
			Components:  comps,
		})
	}
	for _, r := range d.Rates {
		doc.Rates = append(doc.Rates, jsonRate{Source: string(r.Source), Destination: string(r.Destination), Rate: r.Rate})
	}

	w := e.Writer
	if w == nil {
		f, err := os.Create(e.Path)
		if err != nil {
			return &FormatError{Source: e.Path, Err: err}
		}
		defer f.Close()
		w = f
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return &FormatError{Source: e.Path, Err: fmt.Errorf("encode: %w", err)}
	}
	return nil
}
