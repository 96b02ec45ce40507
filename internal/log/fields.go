package log

// Common field names for structured logging
const (
	FieldComponent  = "component"
	FieldRequestID  = "request_id"
	FieldClientIP   = "client_ip"
	FieldMethod     = "method"
	FieldPath       = "path"
	FieldStatusCode = "status_code"
	FieldDuration   = "duration_ms"
	FieldError      = "error"
	FieldOperation  = "operation"
	FieldCompany    = "company"
	FieldStore      = "store"
	FieldEntryDate  = "entry_date"
	FieldTotalCents = "total_cents"
	FieldSeq        = "seq"
	FieldEntries    = "entries"
	FieldPending    = "pending"
	FieldBackend    = "backend"
)

// Components defines standard component names
const (
	ComponentApp     = "app"
	ComponentHTTP    = "http"
	ComponentLedger  = "ledger"
	ComponentNotify  = "notify"
	ComponentAMQP    = "amqp"
	ComponentStorage = "storage"
	ComponentWorker  = "worker"
	ComponentConfig  = "config"
)

// Operations defines standard operation names
const (
	OpAppend   = "append"
	OpReview   = "review"
	OpTotals   = "totals"
	OpSummary  = "summary"
	OpList     = "list"
	OpReplay   = "replay"
	OpPublish  = "publish"
	OpConsume  = "consume"
	OpStartup  = "startup"
	OpShutdown = "shutdown"
)
