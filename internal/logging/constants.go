package logging

// Standardized field names for structured logging.
const (
	FieldComponent    = "component"
	FieldOperation    = "operation"
	FieldResource     = "resource"
	FieldRecordID     = "record_id"
	FieldCounterparty = "counterparty"
	FieldCount        = "count"
	FieldStatus       = "status"
	FieldMethod       = "method"
	FieldURL          = "url"
	FieldDuration     = "duration_ms"
	FieldAttempt      = "attempt"
	FieldRequestID    = "request_id"
	FieldOutputFile   = "output_file"
	FieldFile         = "file"
	FieldDriver       = "driver"
)
