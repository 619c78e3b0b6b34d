package log

// Common field names for structured logging
const (
	FieldComponent     = "component"
	FieldError         = "error"
	FieldOperation     = "operation"
	FieldDuration      = "duration_ms"
	FieldAccountID     = "account_id"
	FieldTransactionID = "transaction_id"
	FieldComponentID   = "component_id"
	FieldRateID        = "rate_id"
	FieldCurrency      = "currency"
	FieldAmount        = "amount"
	FieldBatchSize     = "batch_size"
	FieldCount         = "count"
	FieldCreated       = "created"
	FieldRemoved       = "removed"
	FieldEvent         = "event"
	FieldMessageID     = "message_id"
	FieldSource        = "source"
)

// Components defines standard component names
const (
	ComponentApp     = "app"
	ComponentCLI     = "cli"
	ComponentLedger  = "ledger"
	ComponentStorage = "storage"
	ComponentAMQP    = "amqp"
	ComponentWorker  = "worker"
	ComponentInterop = "interop"
	ComponentCache   = "cache"
	ComponentBackend = "backend"
)

// Operations defines standard operation names
const (
	OpCreate    = "create"
	OpUpdate    = "update"
	OpDelete    = "delete"
	OpRecalc    = "recalculate"
	OpMaintain  = "maintain_rates"
	OpCleanup   = "cleanup"
	OpImport    = "import"
	OpExport    = "export"
	OpReconcile = "reconcile"
	OpShutdown  = "shutdown"
	OpStartup   = "startup"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

func NewFields() LogFields {
	return make(LogFields)
}

func (f LogFields) WithComponent(component string) LogFields {
	f[FieldComponent] = component
	return f
}

func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithError adds the error message, skipping nil errors.
func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

func (f LogFields) WithAccount(id int64) LogFields {
	f[FieldAccountID] = id
	return f
}

// With sets an arbitrary field.
func (f LogFields) With(key string, value any) LogFields {
	f[key] = value
	return f
}

func (f LogFields) WithTransaction(id int64) LogFields {
	f[FieldTransactionID] = id
	return f
}

// ToSlice converts LogFields to a slice for slog
func (f LogFields) ToSlice() []any {
	slice := make([]any, 0, len(f)*2)
	for k, v := range f {
		slice = append(slice, k, v)
	}
	return slice
}
