package interop

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"vogon/internal/core"
)

// CSVColumns is the header expected by CSVImporter. Column order is free.
var CSVColumns = []string{"transaction", "date", "description", "type", "tags", "account", "currency", "amount"}

// CSVImporter reads one component per row. Rows sharing the same
// "transaction" value belong to one transaction whose date, description,
// type and tags are taken from its first row. Accounts are keyed by name.
// Tags are separated by ';'.
type CSVImporter struct {
	Path string
	// Reader overrides opening Path when set.
	Reader io.Reader
}

func NewCSVImporter(path string) *CSVImporter {
	return &CSVImporter{Path: path}
}

var _ Importer = (*CSVImporter)(nil)

func (i *CSVImporter) Import(ctx context.Context) (*Dataset, error) {
	r := i.Reader
	if r == nil {
		f, err := os.Open(i.Path)
		if err != nil {
			return nil, &FormatError{Source: i.Path, Err: err}
		}
		defer f.Close()
		r = f
	}

	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	header, err := cr.Read()
	if err != nil {
		return nil, &FormatError{Source: i.Path, Line: 1, Err: fmt.Errorf("read header: %w", err)}
	}
	cols, err := columnIndex(header)
	if err != nil {
		return nil, &FormatError{Source: i.Path, Line: 1, Err: err}
	}
	cr.FieldsPerRecord = len(header)

	b := newDatasetBuilder()
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var line int
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				line = pe.Line
			}
			return nil, &FormatError{Source: i.Path, Line: line, Err: err}
		}
		line, _ := cr.FieldPos(0)
		if err := b.addRow(rec, cols); err != nil {
			var logical *LogicalError
			if errors.As(err, &logical) {
				return nil, &LogicalError{Message: fmt.Sprintf("line %d: %s", line, logical.Message)}
			}
			return nil, &FormatError{Source: i.Path, Line: line, Err: err}
		}
	}

	d := b.dataset()
	if err := checkTransfers(d); err != nil {
		return nil, err
	}
	if err := d.Check(); err != nil {
		return nil, err
	}
	return d, nil
}

func columnIndex(header []string) (map[string]int, error) {
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	var missing []string
	for _, c := range CSVColumns {
		if _, ok := cols[c]; !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing columns: %s", strings.Join(missing, ", "))
	}
	return cols, nil
}

type datasetBuilder struct {
	d            *Dataset
	accounts     map[string]int // name -> index in d.Accounts
	transactions map[string]int64
	seq          int64
}

func newDatasetBuilder() *datasetBuilder {
	return &datasetBuilder{
		d:            &Dataset{},
		accounts:     map[string]int{},
		transactions: map[string]int64{},
	}
}

func (b *datasetBuilder) next() int64 {
	b.seq++
	return b.seq
}

func (b *datasetBuilder) addRow(rec []string, cols map[string]int) error {
	field := func(name string) string { return strings.TrimSpace(rec[cols[name]]) }

	accountID, err := b.account(field("account"), field("currency"))
	if err != nil {
		return err
	}

	key := field("transaction")
	if key == "" {
		return errors.New("empty transaction key")
	}
	txID, ok := b.transactions[key]
	if !ok {
		date, err := core.ParseDate(field("date"))
		if err != nil {
			return fmt.Errorf("date %q: %w", field("date"), err)
		}
		typ, err := core.ParseTransactionType(field("type"))
		if err != nil {
			return fmt.Errorf("type %q: %w", field("type"), err)
		}
		txID = b.next()
		b.transactions[key] = txID
		b.d.Transactions = append(b.d.Transactions, core.Transaction{
			ID:          txID,
			Description: field("description"),
			Date:        date,
			Type:        typ,
			Tags:        core.NormalizeTags(strings.Split(field("tags"), ";")),
		})
	}

	amount, err := core.ParseAmount(field("amount"))
	if err != nil {
		return fmt.Errorf("amount %q: %w", field("amount"), err)
	}
	b.d.Components = append(b.d.Components, core.Component{
		ID:            b.next(),
		TransactionID: txID,
		AccountID:     accountID,
		Amount:        amount,
	})
	return nil
}

func (b *datasetBuilder) account(name, currency string) (int64, error) {
	if name == "" {
		return 0, &LogicalError{Message: "empty account name"}
	}
	cur, err := core.ParseCurrency(currency)
	if err != nil {
		return 0, &LogicalError{Message: fmt.Sprintf("account %q: unknown currency %q", name, currency)}
	}
	if i, ok := b.accounts[name]; ok {
		acc := b.d.Accounts[i]
		if acc.Currency != cur {
			return 0, &LogicalError{Message: fmt.Sprintf("account %q used with currencies %s and %s", name, acc.Currency, cur)}
		}
		return acc.ID, nil
	}
	acc := core.Account{ID: b.next(), Name: name, Currency: cur, IncludeInTotal: true}
	b.accounts[name] = len(b.d.Accounts)
	b.d.Accounts = append(b.d.Accounts, acc)
	return acc.ID, nil
}

func (b *datasetBuilder) dataset() *Dataset { return b.d }

// checkTransfers rejects single-currency transfers whose components do not
// cancel out.
func checkTransfers(d *Dataset) error {
	currency := make(map[int64]core.Currency, len(d.Accounts))
	for _, a := range d.Accounts {
		currency[a.ID] = a.Currency
	}
	byTx := make(map[int64][]core.Component)
	for _, c := range d.Components {
		byTx[c.TransactionID] = append(byTx[c.TransactionID], c)
	}
	for _, t := range d.Transactions {
		if t.Type != core.Transfer {
			continue
		}
		comps := byTx[t.ID]
		if len(comps) == 0 {
			continue
		}
		cur := currency[comps[0].AccountID]
		mixed := false
		for _, c := range comps[1:] {
			if currency[c.AccountID] != cur {
				mixed = true
				break
			}
		}
		if !mixed && core.SumAmounts(comps) != 0 {
			return &LogicalError{Message: fmt.Sprintf("transfer %q on %s is unbalanced by %s %s",
				t.Description, t.Date, core.SumAmounts(comps), cur)}
		}
	}
	return nil
}
