package log

// Common field names for structured logging
const (
	FieldComponent   = "component"
	FieldRequestID   = "request_id"
	FieldMethod      = "method"
	FieldPath        = "path"
	FieldStatusCode  = "status_code"
	FieldDuration    = "duration_ms"
	FieldError       = "error"
	FieldOperation   = "operation"
	FieldAccountID   = "account_id"
	FieldAmountCents = "amount_cents"
	FieldPaymentID   = "payment_id"
	FieldSweepDate   = "sweep_date"
	FieldSnapshotID  = "snapshot_id"
)

// Components defines standard component names
const (
	ComponentApp       = "app"
	ComponentHTTP      = "http"
	ComponentLedger    = "ledger"
	ComponentStorage   = "storage"
	ComponentScheduler = "scheduler"
	ComponentBackup    = "backup"
	ComponentAMQP      = "amqp"
	ComponentWorker    = "worker"
)

// Operations defines standard operation names
const (
	OpCreate   = "create"
	OpRead     = "read"
	OpUpdate   = "update"
	OpDelete   = "delete"
	OpList     = "list"
	OpSweep    = "sweep"
	OpExport   = "export"
	OpRestore  = "restore"
	OpShutdown = "shutdown"
	OpStartup  = "startup"
)
