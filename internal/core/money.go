// Package core provides the ledger domain types and money handling.
//
// Monetary values are scaled integers (Amount) with a fixed sub-unit of
// 1/AmountMultiplier, independent of the currency, so sums never drift.
// Decimal parsing and currency metadata come from shopspring/decimal and
// Rhymond/go-money.
package core

import (
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// AmountMultiplier is the number of sub-units in one major unit.
const AmountMultiplier = 100

// amountExp is the decimal exponent matching AmountMultiplier.
const amountExp = 2

type (
	// Amount is a signed monetary value in sub-units.
	Amount int64

	// Currency is an ISO 4217 currency code.
	Currency string
)

// ParseAmount converts a decimal string to a scaled Amount.
//
// Both dot (12.34) and comma (12,34) separators are accepted, signs are
// kept and digits beyond the sub-unit are rounded half away from zero.
//
// Examples:
//
//	ParseAmount("12.34")  -> 1234
//	ParseAmount("-0,5")   -> -50
//	ParseAmount("1.005")  -> 101
func ParseAmount(s string) (Amount, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	return AmountFromDecimal(d)
}

// AmountFromDecimal scales a major-unit decimal to sub-units.
func AmountFromDecimal(d decimal.Decimal) (Amount, error) {
	scaled := d.Shift(amountExp).Round(0)
	if !scaled.IsInteger() || scaled.Abs().GreaterThan(decimal.NewFromInt(1<<62)) {
		return 0, ErrInvalidAmount
	}
	return Amount(scaled.IntPart()), nil
}

// Decimal returns the amount in major units.
func (a Amount) Decimal() decimal.Decimal {
	return decimal.New(int64(a), -amountExp)
}

// String returns the plain major-unit representation, e.g. "-12.30".
func (a Amount) String() string {
	return a.Decimal().StringFixed(amountExp)
}

// Convert multiplies the amount by rate and rounds back to sub-units.
func (a Amount) Convert(rate decimal.Decimal) Amount {
	return Amount(a.Decimal().Mul(rate).Shift(amountExp).Round(0).IntPart())
}

// Format renders the amount with the currency's symbol and fraction digits.
func (a Amount) Format(c Currency) string {
	cur := money.GetCurrency(string(c))
	if cur == nil {
		return a.String() + " " + string(c)
	}
	units := a.Decimal().Shift(int32(cur.Fraction)).Round(0)
	return cur.Formatter().Format(units.IntPart())
}

// ParseCurrency upper-cases and validates an ISO code.
func ParseCurrency(s string) (Currency, error) {
	c := Currency(strings.ToUpper(strings.TrimSpace(s)))
	if err := c.Validate(); err != nil {
		return "", err
	}
	return c, nil
}

// Validate reports whether the code is a known ISO 4217 currency.
func (c Currency) Validate() error {
	if len(c) != 3 || money.GetCurrency(string(c)) == nil {
		return ErrInvalidCurrency
	}
	return nil
}

func (c Currency) String() string {
	return string(c)
}
