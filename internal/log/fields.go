package log

// Field names shared across structured log calls.
const (
	FieldComponent   = "component"
	FieldMethod      = "method"
	FieldPath        = "path"
	FieldError       = "error"
	FieldExpenseID   = "expense_id"
	FieldUserID      = "user_id"
	FieldRole        = "role"
	FieldAmountCents = "amount_cents"
	FieldEventType   = "event_type"
)

// Component names used with WithComponent.
const (
	ComponentApp    = "app"
	ComponentWorker = "worker"
	ComponentLedger = "ledger"
)
