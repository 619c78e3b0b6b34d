package events

import "fmt"

type (
	Category string
	Kind     string
)

const (
	CategoryTransaction Category = "transaction"
	CategoryAccount     Category = "account"
	CategoryCurrency    Category = "currency"
)

const (
	KindCreated Kind = "created"
	KindUpdated Kind = "updated"
	KindDeleted Kind = "deleted"
)

// Event is the flattened form of a notification. Bulk events carry no
// entity id and mean "reload everything in this category".
type Event struct {
	Category Category `json:"category"`
	Kind     Kind     `json:"kind"`
	EntityID int64    `json:"entity_id,omitempty"`
	Bulk     bool     `json:"bulk,omitempty"`
}

func (e Event) String() string {
	if e.Bulk {
		return fmt.Sprintf("%s/%s (bulk)", e.Category, e.Kind)
	}
	return fmt.Sprintf("%s/%s #%d", e.Category, e.Kind, e.EntityID)
}

// Replay delivers e to the matching method of d.
func Replay(d *Dispatcher, e Event) {
	switch e.Category {
	case CategoryTransaction:
		switch {
		case e.Bulk:
			d.TransactionsUpdated()
		case e.Kind == KindCreated:
			d.TransactionCreated(e.EntityID)
		case e.Kind == KindDeleted:
			d.TransactionDeleted(e.EntityID)
		default:
			d.TransactionUpdated(e.EntityID)
		}
	case CategoryAccount:
		switch {
		case e.Bulk:
			d.AccountsUpdated()
		case e.Kind == KindCreated:
			d.AccountCreated(e.EntityID)
		case e.Kind == KindDeleted:
			d.AccountDeleted(e.EntityID)
		default:
			d.AccountUpdated(e.EntityID)
		}
	case CategoryCurrency:
		d.CurrenciesUpdated()
	}
}

// Forwarder implements every handler interface by turning each call into an
// Event passed to Sink.
type Forwarder struct {
	Sink func(Event)
}

var (
	_ TransactionHandler = Forwarder{}
	_ AccountHandler     = Forwarder{}
	_ CurrencyHandler    = Forwarder{}
)

// Handlers returns a Handlers value routing all categories to f.
func (f Forwarder) Handlers() Handlers {
	return Handlers{Transaction: f, Account: f, Currency: f}
}

func (f Forwarder) emit(e Event) {
	if f.Sink != nil {
		f.Sink(e)
	}
}

func (f Forwarder) TransactionCreated(id int64) {
	f.emit(Event{Category: CategoryTransaction, Kind: KindCreated, EntityID: id})
}

func (f Forwarder) TransactionUpdated(id int64) {
	f.emit(Event{Category: CategoryTransaction, Kind: KindUpdated, EntityID: id})
}

func (f Forwarder) TransactionDeleted(id int64) {
	f.emit(Event{Category: CategoryTransaction, Kind: KindDeleted, EntityID: id})
}

func (f Forwarder) TransactionsUpdated() {
	f.emit(Event{Category: CategoryTransaction, Kind: KindUpdated, Bulk: true})
}

func (f Forwarder) AccountCreated(id int64) {
	f.emit(Event{Category: CategoryAccount, Kind: KindCreated, EntityID: id})
}

func (f Forwarder) AccountUpdated(id int64) {
	f.emit(Event{Category: CategoryAccount, Kind: KindUpdated, EntityID: id})
}

func (f Forwarder) AccountDeleted(id int64) {
	f.emit(Event{Category: CategoryAccount, Kind: KindDeleted, EntityID: id})
}

func (f Forwarder) AccountsUpdated() {
	f.emit(Event{Category: CategoryAccount, Kind: KindUpdated, Bulk: true})
}

func (f Forwarder) CurrenciesUpdated() {
	f.emit(Event{Category: CategoryCurrency, Kind: KindUpdated, Bulk: true})
}

// Recorder collects events in memory.
type Recorder struct {
	Events []Event
}

func (r *Recorder) Record(e Event) { r.Events = append(r.Events, e) }

// Has reports whether an equal event was recorded.
func (r *Recorder) Has(e Event) bool {
	for _, got := range r.Events {
		if got == e {
			return true
		}
	}
	return false
}

// Reset drops all recorded events.
func (r *Recorder) Reset() { r.Events = nil }
