package core

import (
	"sort"

	"github.com/shopspring/decimal"
)

// CurrencyRate is a stored multiplicative rate from Source to Destination.
type CurrencyRate struct {
	ID          int64
	Source      Currency
	Destination Currency
	Rate        decimal.Decimal
}

// CurrencyPair is an ordered pair of distinct currencies.
type CurrencyPair struct {
	Source      Currency
	Destination Currency
}

// DefaultRate is assigned to rates created for a new currency pair.
var DefaultRate = decimal.NewFromInt(1)

func (r CurrencyRate) Pair() CurrencyPair {
	return CurrencyPair{Source: r.Source, Destination: r.Destination}
}

func (r CurrencyRate) Validate() error {
	if err := r.Source.Validate(); err != nil {
		return err
	}
	if err := r.Destination.Validate(); err != nil {
		return err
	}
	if r.Source == r.Destination || !r.Rate.IsPositive() {
		return ErrInvalidRate
	}
	return nil
}

// RequiredPairs returns every ordered pair of distinct currencies from the
// given set, sorted by source then destination.
func RequiredPairs(currencies []Currency) []CurrencyPair {
	uniq := UniqueCurrencies(currencies)
	pairs := make([]CurrencyPair, 0, len(uniq)*(len(uniq)-1))
	for _, src := range uniq {
		for _, dst := range uniq {
			if src != dst {
				pairs = append(pairs, CurrencyPair{Source: src, Destination: dst})
			}
		}
	}
	return pairs
}

// UniqueCurrencies returns the sorted set of currencies.
func UniqueCurrencies(currencies []Currency) []Currency {
	seen := make(map[Currency]struct{}, len(currencies))
	out := make([]Currency, 0, len(currencies))
	for _, c := range currencies {
		if _, ok := seen[c]; ok || c == "" {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// RateTable is an immutable snapshot of the stored rates.
type RateTable struct {
	rates []CurrencyRate
	index map[CurrencyPair]decimal.Decimal
}

// NewRateTable builds a table ordered by source then destination.
func NewRateTable(rates []CurrencyRate) *RateTable {
	sorted := make([]CurrencyRate, len(rates))
	copy(sorted, rates)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Source != sorted[j].Source {
			return sorted[i].Source < sorted[j].Source
		}
		return sorted[i].Destination < sorted[j].Destination
	})
	index := make(map[CurrencyPair]decimal.Decimal, len(sorted))
	for _, r := range sorted {
		index[r.Pair()] = r.Rate
	}
	return &RateTable{rates: sorted, index: index}
}

// Rate returns the source to destination rate. Identical currencies always
// convert at 1.
func (t *RateTable) Rate(src, dst Currency) (decimal.Decimal, bool) {
	if src == dst {
		return DefaultRate, true
	}
	if t == nil {
		return decimal.Zero, false
	}
	r, ok := t.index[CurrencyPair{Source: src, Destination: dst}]
	return r, ok
}

// Rates returns a copy of the stored rates.
func (t *RateTable) Rates() []CurrencyRate {
	if t == nil {
		return nil
	}
	out := make([]CurrencyRate, len(t.rates))
	copy(out, t.rates)
	return out
}

// Find returns the rate row with the given id.
func (t *RateTable) Find(id int64) (CurrencyRate, bool) {
	if t != nil {
		for _, r := range t.rates {
			if r.ID == id {
				return r, true
			}
		}
	}
	return CurrencyRate{}, false
}
