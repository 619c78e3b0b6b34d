package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"vogon/internal/core"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
	QueryContext(context.Context, string, ...any) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...any) *sql.Row
}

// Queries implements Tx on top of a DBTX.
type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

var _ Tx = (*Queries)(nil)

// Accounts

const createAccount = `INSERT INTO accounts (name, currency, balance, include_in_total) VALUES (?, ?, ?, ?)`

func (q *Queries) CreateAccount(ctx context.Context, a *core.Account) error {
	res, err := q.db.ExecContext(ctx, createAccount, a.Name, string(a.Currency), int64(a.Balance), a.IncludeInTotal)
	if err != nil {
		return fmt.Errorf("insert account: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("account id: %w", err)
	}
	a.ID = id
	return nil
}

const selectAccounts = `SELECT id, name, currency, balance, include_in_total FROM accounts`

func (q *Queries) FindAccount(ctx context.Context, id int64) (core.Account, error) {
	row := q.db.QueryRowContext(ctx, selectAccounts+` WHERE id = ?`, id)
	a, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Account{}, fmt.Errorf("account %d: %w", id, ErrNotFound)
	}
	return a, err
}

const updateAccount = `UPDATE accounts SET name = ?, currency = ?, include_in_total = ? WHERE id = ?`

func (q *Queries) UpdateAccount(ctx context.Context, a core.Account) error {
	res, err := q.db.ExecContext(ctx, updateAccount, a.Name, string(a.Currency), a.IncludeInTotal, a.ID)
	if err != nil {
		return fmt.Errorf("update account: %w", err)
	}
	return expectRow(res, "account", a.ID)
}

const adjustAccountBalance = `UPDATE accounts SET balance = balance + ? WHERE id = ?`

func (q *Queries) AdjustAccountBalance(ctx context.Context, id int64, delta core.Amount) error {
	res, err := q.db.ExecContext(ctx, adjustAccountBalance, int64(delta), id)
	if err != nil {
		return fmt.Errorf("adjust account balance: %w", err)
	}
	return expectRow(res, "account", id)
}

func (q *Queries) DeleteAccount(ctx context.Context, id int64) error {
	res, err := q.db.ExecContext(ctx, `DELETE FROM accounts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	return expectRow(res, "account", id)
}

func (q *Queries) ListAccounts(ctx context.Context) ([]core.Account, error) {
	rows, err := q.db.QueryContext(ctx, selectAccounts+` ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	var out []core.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// Transactions

const createTransaction = `INSERT INTO transactions (description, transaction_date, type) VALUES (?, ?, ?)`

func (q *Queries) CreateTransaction(ctx context.Context, t *core.Transaction) error {
	res, err := q.db.ExecContext(ctx, createTransaction, t.Description, t.Date.String(), string(t.Type))
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("transaction id: %w", err)
	}
	t.ID = id
	return q.replaceTags(ctx, id, t.Tags)
}

const selectTransactions = `SELECT id, description, transaction_date, type FROM transactions`

func (q *Queries) FindTransaction(ctx context.Context, id int64) (core.Transaction, error) {
	txs, err := q.ListTransactions(ctx, TransactionFilter{IDs: []int64{id}})
	if err != nil {
		return core.Transaction{}, err
	}
	if len(txs) == 0 {
		return core.Transaction{}, fmt.Errorf("transaction %d: %w", id, ErrNotFound)
	}
	return txs[0], nil
}

const updateTransaction = `UPDATE transactions SET description = ?, transaction_date = ?, type = ? WHERE id = ?`

func (q *Queries) UpdateTransaction(ctx context.Context, t core.Transaction) error {
	res, err := q.db.ExecContext(ctx, updateTransaction, t.Description, t.Date.String(), string(t.Type), t.ID)
	if err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}
	if err := expectRow(res, "transaction", t.ID); err != nil {
		return err
	}
	return q.replaceTags(ctx, t.ID, t.Tags)
}

func (q *Queries) DeleteTransaction(ctx context.Context, id int64) error {
	if _, err := q.db.ExecContext(ctx, `DELETE FROM transaction_components WHERE transaction_id = ?`, id); err != nil {
		return fmt.Errorf("delete transaction components: %w", err)
	}
	if _, err := q.db.ExecContext(ctx, `DELETE FROM transaction_tags WHERE transaction_id = ?`, id); err != nil {
		return fmt.Errorf("delete transaction tags: %w", err)
	}
	res, err := q.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	return expectRow(res, "transaction", id)
}

func (q *Queries) ListTransactions(ctx context.Context, f TransactionFilter) ([]core.Transaction, error) {
	query := selectTransactions
	var args []any
	if len(f.IDs) > 0 {
		query += ` WHERE id IN (` + placeholders(len(f.IDs)) + `)`
		args = appendIDs(args, f.IDs)
	}
	query += ` ORDER BY transaction_date, id`
	if f.Limit > 0 || f.Offset > 0 {
		limit := f.Limit
		if limit <= 0 {
			limit = -1
		}
		query += ` LIMIT ? OFFSET ?`
		args = append(args, limit, f.Offset)
	}

	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	var out []core.Transaction
	for rows.Next() {
		var (
			t       core.Transaction
			date, k string
		)
		if err := rows.Scan(&t.ID, &t.Description, &date, &k); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		if t.Date, err = core.ParseDate(date); err != nil {
			rows.Close()
			return nil, fmt.Errorf("transaction %d date %q: %w", t.ID, date, err)
		}
		t.Type = core.TransactionType(k)
		out = append(out, t)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := q.loadTags(ctx, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (q *Queries) CountTransactions(ctx context.Context) (int64, error) {
	var n int64
	if err := q.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM transactions`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count transactions: %w", err)
	}
	return n, nil
}

func (q *Queries) replaceTags(ctx context.Context, id int64, tags []string) error {
	if _, err := q.db.ExecContext(ctx, `DELETE FROM transaction_tags WHERE transaction_id = ?`, id); err != nil {
		return fmt.Errorf("clear tags: %w", err)
	}
	for i, tag := range tags {
		if _, err := q.db.ExecContext(ctx,
			`INSERT INTO transaction_tags (transaction_id, position, tag) VALUES (?, ?, ?)`, id, i, tag); err != nil {
			return fmt.Errorf("insert tag: %w", err)
		}
	}
	return nil
}

func (q *Queries) loadTags(ctx context.Context, txs []core.Transaction) error {
	if len(txs) == 0 {
		return nil
	}
	byID := make(map[int64]int, len(txs))
	ids := make([]int64, len(txs))
	for i, t := range txs {
		byID[t.ID] = i
		ids[i] = t.ID
	}

	rows, err := q.db.QueryContext(ctx,
		`SELECT transaction_id, tag FROM transaction_tags WHERE transaction_id IN (`+placeholders(len(ids))+`) ORDER BY transaction_id, position`,
		appendIDs(nil, ids)...)
	if err != nil {
		return fmt.Errorf("list tags: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			id  int64
			tag string
		)
		if err := rows.Scan(&id, &tag); err != nil {
			return fmt.Errorf("scan tag: %w", err)
		}
		i := byID[id]
		txs[i].Tags = append(txs[i].Tags, tag)
	}
	return rows.Err()
}

// Components

const createComponent = `INSERT INTO transaction_components (transaction_id, account_id, amount) VALUES (?, ?, ?)`

func (q *Queries) CreateComponent(ctx context.Context, c *core.Component) error {
	res, err := q.db.ExecContext(ctx, createComponent, c.TransactionID, c.AccountID, int64(c.Amount))
	if err != nil {
		return fmt.Errorf("insert component: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("component id: %w", err)
	}
	c.ID = id
	return nil
}

const selectComponents = `SELECT id, transaction_id, account_id, amount FROM transaction_components`

func (q *Queries) FindComponent(ctx context.Context, id int64) (core.Component, error) {
	var c core.Component
	err := q.db.QueryRowContext(ctx, selectComponents+` WHERE id = ?`, id).
		Scan(&c.ID, &c.TransactionID, &c.AccountID, &c.Amount)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Component{}, fmt.Errorf("component %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return core.Component{}, fmt.Errorf("find component: %w", err)
	}
	return c, nil
}

const updateComponent = `UPDATE transaction_components SET transaction_id = ?, account_id = ?, amount = ? WHERE id = ?`

func (q *Queries) UpdateComponent(ctx context.Context, c core.Component) error {
	res, err := q.db.ExecContext(ctx, updateComponent, c.TransactionID, c.AccountID, int64(c.Amount), c.ID)
	if err != nil {
		return fmt.Errorf("update component: %w", err)
	}
	return expectRow(res, "component", c.ID)
}

func (q *Queries) DeleteComponent(ctx context.Context, id int64) error {
	res, err := q.db.ExecContext(ctx, `DELETE FROM transaction_components WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete component: %w", err)
	}
	return expectRow(res, "component", id)
}

func (q *Queries) ListComponents(ctx context.Context, f ComponentFilter) ([]core.Component, error) {
	var (
		where []string
		args  []any
	)
	if len(f.TransactionIDs) > 0 {
		where = append(where, `transaction_id IN (`+placeholders(len(f.TransactionIDs))+`)`)
		args = appendIDs(args, f.TransactionIDs)
	}
	if f.AccountID != 0 {
		where = append(where, `account_id = ?`)
		args = append(args, f.AccountID)
	}
	if f.Orphaned {
		where = append(where, `transaction_id NOT IN (SELECT id FROM transactions)`)
	}
	query := selectComponents
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, ` AND `)
	}
	query += ` ORDER BY transaction_id, id`

	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list components: %w", err)
	}
	defer rows.Close()

	var out []core.Component
	for rows.Next() {
		var c core.Component
		if err := rows.Scan(&c.ID, &c.TransactionID, &c.AccountID, &c.Amount); err != nil {
			return nil, fmt.Errorf("scan component: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Currency rates

const createRate = `INSERT INTO currency_rates (source, destination, rate) VALUES (?, ?, ?)`

func (q *Queries) CreateRate(ctx context.Context, r *core.CurrencyRate) error {
	res, err := q.db.ExecContext(ctx, createRate, string(r.Source), string(r.Destination), r.Rate.String())
	if err != nil {
		return fmt.Errorf("insert rate %s->%s: %w", r.Source, r.Destination, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("rate id: %w", err)
	}
	r.ID = id
	return nil
}

func (q *Queries) UpdateRate(ctx context.Context, r core.CurrencyRate) error {
	res, err := q.db.ExecContext(ctx, `UPDATE currency_rates SET rate = ? WHERE id = ?`, r.Rate.String(), r.ID)
	if err != nil {
		return fmt.Errorf("update rate: %w", err)
	}
	return expectRow(res, "rate", r.ID)
}

func (q *Queries) DeleteRate(ctx context.Context, id int64) error {
	res, err := q.db.ExecContext(ctx, `DELETE FROM currency_rates WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete rate: %w", err)
	}
	return expectRow(res, "rate", id)
}

func (q *Queries) ListRates(ctx context.Context) ([]core.CurrencyRate, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT id, source, destination, rate FROM currency_rates ORDER BY source, destination, id`)
	if err != nil {
		return nil, fmt.Errorf("list rates: %w", err)
	}
	defer rows.Close()

	var out []core.CurrencyRate
	for rows.Next() {
		var (
			r        core.CurrencyRate
			src, dst string
		)
		if err := rows.Scan(&r.ID, &src, &dst, &r.Rate); err != nil {
			return nil, fmt.Errorf("scan rate: %w", err)
		}
		r.Source, r.Destination = core.Currency(src), core.Currency(dst)
		out = append(out, r)
	}
	return out, rows.Err()
}

// Preferences

func (q *Queries) DefaultCurrency(ctx context.Context) (core.Currency, error) {
	var c string
	err := q.db.QueryRowContext(ctx, `SELECT default_currency FROM preferences WHERE id = 1`).Scan(&c)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get default currency: %w", err)
	}
	return core.Currency(c), nil
}

const upsertDefaultCurrency = `INSERT INTO preferences (id, default_currency) VALUES (1, ?)
ON CONFLICT (id) DO UPDATE SET default_currency = excluded.default_currency`

func (q *Queries) SetDefaultCurrency(ctx context.Context, c core.Currency) error {
	if _, err := q.db.ExecContext(ctx, upsertDefaultCurrency, string(c)); err != nil {
		return fmt.Errorf("set default currency: %w", err)
	}
	return nil
}

// helpers

type scanner interface {
	Scan(dest ...any) error
}

func scanAccount(s scanner) (core.Account, error) {
	var (
		a   core.Account
		cur string
	)
	if err := s.Scan(&a.ID, &a.Name, &cur, &a.Balance, &a.IncludeInTotal); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Account{}, err
		}
		return core.Account{}, fmt.Errorf("scan account: %w", err)
	}
	a.Currency = core.Currency(cur)
	return a, nil
}

func expectRow(res sql.Result, entity string, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s %d rows affected: %w", entity, id, err)
	}
	if n == 0 {
		return fmt.Errorf("%s %d: %w", entity, id, ErrNotFound)
	}
	return nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func appendIDs(args []any, ids []int64) []any {
	for _, id := range ids {
		args = append(args, id)
	}
	return args
}
