package core

import (
	"errors"
	"strings"
	"time"
)

const (
	Expense  TransactionType = "expense"
	Transfer TransactionType = "transfer"
)

type (
	TransactionType string

	Date struct {
		time.Time
	}

	Account struct {
		ID             int64
		Name           string
		Currency       Currency
		Balance        Amount // maintained by the ledger, never set by callers
		IncludeInTotal bool
	}

	Transaction struct {
		ID          int64
		Description string
		Date        Date
		Type        TransactionType
		Tags        []string
	}

	// Component is a signed entry linking one transaction to one account.
	// Relations are kept as identities, there are no back-pointers.
	Component struct {
		ID            int64
		TransactionID int64
		AccountID     int64
		Amount        Amount
	}
)

var (
	ErrInvalidDay             = errors.New("invalid day")
	ErrInvalidMonth           = errors.New("invalid month")
	ErrInvalidAmount          = errors.New("invalid amount")
	ErrInvalidCurrency        = errors.New("invalid currency")
	ErrInvalidRate            = errors.New("invalid exchange rate")
	ErrInvalidTransactionType = errors.New("invalid transaction type")
	ErrEmptyName              = errors.New("empty account name")
)

func (d Date) Validate() error {
	if d.IsZero() {
		return errors.New("date cannot be zero")
	}
	_, month, day := d.Date()
	if day < 1 || day > 31 {
		return ErrInvalidDay
	}
	if month < 1 || month > 12 {
		return ErrInvalidMonth
	}
	return nil
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses an ISO (YYYY-MM-DD) date.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(time.DateOnly, strings.TrimSpace(s))
	if err != nil {
		return Date{}, err
	}
	return Date{Time: t}, nil
}

// String formats the date as YYYY-MM-DD.
func (d Date) String() string {
	return d.Format(time.DateOnly)
}

// ParseTransactionType accepts "expense" or "transfer" in any case.
func ParseTransactionType(s string) (TransactionType, error) {
	t := TransactionType(strings.ToLower(strings.TrimSpace(s)))
	if err := t.Validate(); err != nil {
		return "", err
	}
	return t, nil
}

func (t TransactionType) Validate() error {
	switch t {
	case Expense, Transfer:
		return nil
	default:
		return ErrInvalidTransactionType
	}
}

func (a Account) Validate() error {
	if strings.TrimSpace(a.Name) == "" {
		return ErrEmptyName
	}
	return a.Currency.Validate()
}

func (t Transaction) Validate() error {
	if err := t.Date.Validate(); err != nil {
		return err
	}
	if len(t.Description) > 500 {
		return errors.New("description too long (max 500 characters)")
	}
	return t.Type.Validate()
}

// NormalizeTags trims tags and drops empty ones, keeping the order.
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		if tag = strings.TrimSpace(tag); tag != "" {
			out = append(out, tag)
		}
	}
	return out
}

// SumAmounts returns the scaled sum of the component amounts.
func SumAmounts(components []Component) Amount {
	var total Amount
	for _, c := range components {
		total += c.Amount
	}
	return total
}

// AccountIDs returns the distinct account ids referenced by components, in
// first-seen order.
func AccountIDs(components []Component) []int64 {
	seen := make(map[int64]struct{}, len(components))
	ids := make([]int64, 0, len(components))
	for _, c := range components {
		if _, ok := seen[c.AccountID]; ok {
			continue
		}
		seen[c.AccountID] = struct{}{}
		ids = append(ids, c.AccountID)
	}
	return ids
}
