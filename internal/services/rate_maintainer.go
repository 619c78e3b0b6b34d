package services

import (
	"context"
	"fmt"
	"log/slog"

	"vogon/internal/core"
	"vogon/internal/log"
	"vogon/internal/storage"
)

// MaintenanceResult counts the rate rows written by one maintenance pass.
type MaintenanceResult struct {
	Created int
	Removed int
}

// Changed reports whether the pass wrote anything.
func (r MaintenanceResult) Changed() bool {
	return r.Created > 0 || r.Removed > 0
}

// RateMaintainer keeps exactly one rate row per ordered pair of distinct
// currencies used by accounts.
type RateMaintainer struct{}

// Maintain runs inside the caller's store transaction. For every required
// pair the first existing row (lowest id) is kept and missing pairs get a
// new row at core.DefaultRate. Rows for pairs nobody uses and duplicate rows
// are deleted. A pass over an already consistent store writes nothing.
//
// The returned table reflects the store as it will be after commit; callers
// must not publish it before the transaction commits.
func (RateMaintainer) Maintain(ctx context.Context, tx storage.Tx) (MaintenanceResult, *core.RateTable, error) {
	var res MaintenanceResult

	accounts, err := tx.ListAccounts(ctx)
	if err != nil {
		return res, nil, fmt.Errorf("list accounts: %w", err)
	}
	currencies := make([]core.Currency, 0, len(accounts))
	for _, a := range accounts {
		currencies = append(currencies, a.Currency)
	}
	required := make(map[core.CurrencyPair]bool)
	pairs := core.RequiredPairs(currencies)
	for _, p := range pairs {
		required[p] = true
	}

	existing, err := tx.ListRates(ctx)
	if err != nil {
		return res, nil, fmt.Errorf("list rates: %w", err)
	}

	kept := make(map[core.CurrencyPair]core.CurrencyRate, len(pairs))
	var stale []core.CurrencyRate
	for _, r := range existing {
		p := r.Pair()
		if _, dup := kept[p]; required[p] && !dup {
			kept[p] = r
			continue
		}
		stale = append(stale, r)
	}

	for _, r := range stale {
		if err := tx.DeleteRate(ctx, r.ID); err != nil {
			return res, nil, fmt.Errorf("delete rate %s->%s: %w", r.Source, r.Destination, err)
		}
		res.Removed++
	}

	for _, p := range pairs {
		if _, ok := kept[p]; ok {
			continue
		}
		r := core.CurrencyRate{Source: p.Source, Destination: p.Destination, Rate: core.DefaultRate}
		if err := tx.CreateRate(ctx, &r); err != nil {
			return res, nil, fmt.Errorf("create rate %s->%s: %w", p.Source, p.Destination, err)
		}
		kept[p] = r
		res.Created++
	}

	rates := make([]core.CurrencyRate, 0, len(kept))
	for _, r := range kept {
		rates = append(rates, r)
	}

	if res.Changed() {
		slog.DebugContext(ctx, "Currency rates maintained",
			log.FieldOperation, log.OpMaintain,
			log.FieldCreated, res.Created,
			log.FieldRemoved, res.Removed)
	}
	return res, core.NewRateTable(rates), nil
}
