// Package memory is an arena-style ledger store: every entity lives in a
// map keyed by identity and relations are plain ids. Write transactions work
// on a copy of the arena that replaces the live one on commit; reads use the
// live arena under the store lock.
package memory

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"vogon/internal/core"
	"vogon/internal/storage"
)

type Store struct {
	mu    sync.Mutex
	arena *arena
}

var _ storage.Store = (*Store)(nil)

type arena struct {
	accounts        map[int64]core.Account
	transactions    map[int64]core.Transaction
	components      map[int64]core.Component
	rates           map[int64]core.CurrencyRate
	defaultCurrency core.Currency
	seq             int64
}

func New() *Store {
	return &Store{arena: &arena{
		accounts:     map[int64]core.Account{},
		transactions: map[int64]core.Transaction{},
		components:   map[int64]core.Component{},
		rates:        map[int64]core.CurrencyRate{},
	}}
}

// NewFromFiles seeds accounts from base/seed_accounts.txt, one
// "name;currency" per line. Blank lines, comments and invalid rows are skipped.
func NewFromFiles(base string) *Store {
	s := New()
	for _, line := range readLines(filepath.Join(base, "seed_accounts.txt")) {
		name, cur, ok := strings.Cut(line, ";")
		if !ok {
			continue
		}
		acc := core.Account{Name: strings.TrimSpace(name), IncludeInTotal: true}
		c, err := core.ParseCurrency(cur)
		if err != nil {
			continue
		}
		acc.Currency = c
		if acc.Validate() != nil {
			continue
		}
		s.arena.seq++
		acc.ID = s.arena.seq
		s.arena.accounts[acc.ID] = acc
	}
	return s
}

// InTx implements storage.Store
func (s *Store) InTx(ctx context.Context, fn func(storage.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.arena.clone()
	if err := fn(&tx{a: work}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.arena = work
	return nil
}

// View implements storage.Store. The read transaction sees the live arena
// and holds the store lock until fn returns; writes through it fail with
// ErrReadOnly.
func (s *Store) View(_ context.Context, fn func(storage.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(&tx{a: s.arena, readOnly: true})
}

func (s *Store) Close() error { return nil }

func (a *arena) clone() *arena {
	c := &arena{
		accounts:        make(map[int64]core.Account, len(a.accounts)),
		transactions:    make(map[int64]core.Transaction, len(a.transactions)),
		components:      make(map[int64]core.Component, len(a.components)),
		rates:           make(map[int64]core.CurrencyRate, len(a.rates)),
		defaultCurrency: a.defaultCurrency,
		seq:             a.seq,
	}
	for k, v := range a.accounts {
		c.accounts[k] = v
	}
	for k, v := range a.transactions {
		v.Tags = append([]string(nil), v.Tags...)
		c.transactions[k] = v
	}
	for k, v := range a.components {
		c.components[k] = v
	}
	for k, v := range a.rates {
		c.rates[k] = v
	}
	return c
}

// ErrReadOnly is returned by writes attempted inside View.
var ErrReadOnly = errors.New("memory store: write in read-only transaction")

type tx struct {
	a        *arena
	readOnly bool
}

func (t *tx) writable() error {
	if t.readOnly {
		return ErrReadOnly
	}
	return nil
}

func (t *tx) nextID() int64 {
	t.a.seq++
	return t.a.seq
}

func notFound(entity string, id int64) error {
	return fmt.Errorf("%s %d: %w", entity, id, storage.ErrNotFound)
}

func (t *tx) CreateAccount(_ context.Context, a *core.Account) error {
	if err := t.writable(); err != nil {
		return err
	}
	a.ID = t.nextID()
	t.a.accounts[a.ID] = *a
	return nil
}

func (t *tx) FindAccount(_ context.Context, id int64) (core.Account, error) {
	a, ok := t.a.accounts[id]
	if !ok {
		return core.Account{}, notFound("account", id)
	}
	return a, nil
}

func (t *tx) UpdateAccount(_ context.Context, a core.Account) error {
	if err := t.writable(); err != nil {
		return err
	}
	cur, ok := t.a.accounts[a.ID]
	if !ok {
		return notFound("account", a.ID)
	}
	cur.Name, cur.Currency, cur.IncludeInTotal = a.Name, a.Currency, a.IncludeInTotal
	t.a.accounts[a.ID] = cur
	return nil
}

func (t *tx) AdjustAccountBalance(_ context.Context, id int64, delta core.Amount) error {
	if err := t.writable(); err != nil {
		return err
	}
	a, ok := t.a.accounts[id]
	if !ok {
		return notFound("account", id)
	}
	a.Balance += delta
	t.a.accounts[id] = a
	return nil
}

func (t *tx) DeleteAccount(_ context.Context, id int64) error {
	if err := t.writable(); err != nil {
		return err
	}
	if _, ok := t.a.accounts[id]; !ok {
		return notFound("account", id)
	}
	delete(t.a.accounts, id)
	return nil
}

func (t *tx) ListAccounts(_ context.Context) ([]core.Account, error) {
	out := make([]core.Account, 0, len(t.a.accounts))
	for _, a := range t.a.accounts {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (t *tx) CreateTransaction(_ context.Context, tr *core.Transaction) error {
	if err := t.writable(); err != nil {
		return err
	}
	tr.ID = t.nextID()
	stored := *tr
	stored.Tags = append([]string(nil), tr.Tags...)
	t.a.transactions[tr.ID] = stored
	return nil
}

func (t *tx) FindTransaction(_ context.Context, id int64) (core.Transaction, error) {
	tr, ok := t.a.transactions[id]
	if !ok {
		return core.Transaction{}, notFound("transaction", id)
	}
	tr.Tags = append([]string(nil), tr.Tags...)
	return tr, nil
}

func (t *tx) UpdateTransaction(_ context.Context, tr core.Transaction) error {
	if err := t.writable(); err != nil {
		return err
	}
	if _, ok := t.a.transactions[tr.ID]; !ok {
		return notFound("transaction", tr.ID)
	}
	tr.Tags = append([]string(nil), tr.Tags...)
	t.a.transactions[tr.ID] = tr
	return nil
}

func (t *tx) DeleteTransaction(_ context.Context, id int64) error {
	if err := t.writable(); err != nil {
		return err
	}
	if _, ok := t.a.transactions[id]; !ok {
		return notFound("transaction", id)
	}
	for cid, c := range t.a.components {
		if c.TransactionID == id {
			delete(t.a.components, cid)
		}
	}
	delete(t.a.transactions, id)
	return nil
}

func (t *tx) ListTransactions(_ context.Context, f storage.TransactionFilter) ([]core.Transaction, error) {
	var ids map[int64]struct{}
	if len(f.IDs) > 0 {
		ids = toSet(f.IDs)
	}
	out := make([]core.Transaction, 0, len(t.a.transactions))
	for _, tr := range t.a.transactions {
		if ids != nil {
			if _, ok := ids[tr.ID]; !ok {
				continue
			}
		}
		tr.Tags = append([]string(nil), tr.Tags...)
		out = append(out, tr)
	}
	sort.Slice(out, func(i, j int) bool {
		di, dj := out[i].Date.String(), out[j].Date.String()
		if di != dj {
			return di < dj
		}
		return out[i].ID < out[j].ID
	})

	if f.Offset > 0 {
		if f.Offset >= len(out) {
			return nil, nil
		}
		out = out[f.Offset:]
	}
	if f.Limit > 0 && f.Limit < len(out) {
		out = out[:f.Limit]
	}
	return out, nil
}

func (t *tx) CountTransactions(_ context.Context) (int64, error) {
	return int64(len(t.a.transactions)), nil
}

func (t *tx) CreateComponent(_ context.Context, c *core.Component) error {
	if err := t.writable(); err != nil {
		return err
	}
	c.ID = t.nextID()
	t.a.components[c.ID] = *c
	return nil
}

func (t *tx) FindComponent(_ context.Context, id int64) (core.Component, error) {
	c, ok := t.a.components[id]
	if !ok {
		return core.Component{}, notFound("component", id)
	}
	return c, nil
}

func (t *tx) UpdateComponent(_ context.Context, c core.Component) error {
	if err := t.writable(); err != nil {
		return err
	}
	if _, ok := t.a.components[c.ID]; !ok {
		return notFound("component", c.ID)
	}
	t.a.components[c.ID] = c
	return nil
}

func (t *tx) DeleteComponent(_ context.Context, id int64) error {
	if err := t.writable(); err != nil {
		return err
	}
	if _, ok := t.a.components[id]; !ok {
		return notFound("component", id)
	}
	delete(t.a.components, id)
	return nil
}

func (t *tx) ListComponents(_ context.Context, f storage.ComponentFilter) ([]core.Component, error) {
	var txIDs map[int64]struct{}
	if len(f.TransactionIDs) > 0 {
		txIDs = toSet(f.TransactionIDs)
	}
	var out []core.Component
	for _, c := range t.a.components {
		if txIDs != nil {
			if _, ok := txIDs[c.TransactionID]; !ok {
				continue
			}
		}
		if f.AccountID != 0 && c.AccountID != f.AccountID {
			continue
		}
		if f.Orphaned {
			if _, ok := t.a.transactions[c.TransactionID]; ok {
				continue
			}
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TransactionID != out[j].TransactionID {
			return out[i].TransactionID < out[j].TransactionID
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (t *tx) CreateRate(_ context.Context, r *core.CurrencyRate) error {
	if err := t.writable(); err != nil {
		return err
	}
	for _, existing := range t.a.rates {
		if existing.Pair() == r.Pair() {
			return fmt.Errorf("insert rate %s->%s: duplicate pair", r.Source, r.Destination)
		}
	}
	r.ID = t.nextID()
	t.a.rates[r.ID] = *r
	return nil
}

func (t *tx) UpdateRate(_ context.Context, r core.CurrencyRate) error {
	if err := t.writable(); err != nil {
		return err
	}
	cur, ok := t.a.rates[r.ID]
	if !ok {
		return notFound("rate", r.ID)
	}
	cur.Rate = r.Rate
	t.a.rates[r.ID] = cur
	return nil
}

func (t *tx) DeleteRate(_ context.Context, id int64) error {
	if err := t.writable(); err != nil {
		return err
	}
	if _, ok := t.a.rates[id]; !ok {
		return notFound("rate", id)
	}
	delete(t.a.rates, id)
	return nil
}

func (t *tx) ListRates(_ context.Context) ([]core.CurrencyRate, error) {
	out := make([]core.CurrencyRate, 0, len(t.a.rates))
	for _, r := range t.a.rates {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Source != out[j].Source {
			return out[i].Source < out[j].Source
		}
		if out[i].Destination != out[j].Destination {
			return out[i].Destination < out[j].Destination
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (t *tx) DefaultCurrency(_ context.Context) (core.Currency, error) {
	return t.a.defaultCurrency, nil
}

func (t *tx) SetDefaultCurrency(_ context.Context, c core.Currency) error {
	if err := t.writable(); err != nil {
		return err
	}
	t.a.defaultCurrency = c
	return nil
}

func toSet(ids []int64) map[int64]struct{} {
	set := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

func readLines(path string) []string {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()
	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return out
}
